package instancesync

import (
	"context"
	"errors"
	"testing"
	"time"

	"incus-sync/core/incus"
	"incus-sync/core/incus/incustest"
	"incus-sync/feature/hosts"
	"incus-sync/feature/inventory"
	"incus-sync/feature/inventory/inventorytest"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const fingerprint = "0123456789abcdef0123456789abcdef"

// webInstance is a running container with one bridged NIC and a 10GB root disk.
func webInstance() incustest.Instance {
	return incustest.Instance{
		Name:   "web-01",
		Status: "Running",
		Config: map[string]string{
			"limits.cpu":              "2",
			"limits.memory":           "512MB",
			"image.description":       "Debian 12",
			"volatile.uuid":           "5f0c6d2e-6a0b-4a57-9c1e-3f1d2b4c5a6e",
			"volatile.eth0.hwaddr":    "aa:bb:cc:dd:ee:ff",
			"volatile.eth0.host_name": "veth1a2b3c",
		},
		Devices: map[string]map[string]string{
			"eth0": {"type": "nic", "network": "incusbr0", "name": "eth0"},
			"root": {"type": "disk", "path": "/", "pool": "default", "size": "10GB"},
		},
		Network: map[string]any{
			"eth0": map[string]any{
				"hwaddr":    "aa:bb:cc:dd:ee:ff",
				"host_name": "veth1a2b3c",
				"mtu":       1500,
				"state":     "up",
				"type":      "broadcast",
				"addresses": []map[string]string{
					{"family": "inet", "address": "10.0.0.5", "netmask": "24", "scope": "global"},
					{"family": "inet6", "address": "fe80::216:3eff:fe00:1", "netmask": "64", "scope": "link"},
				},
			},
			"lo": map[string]any{"type": "loopback", "state": "up", "mtu": 65536},
		},
	}
}

// stopped returns inst as Incus reports it once stopped: no runtime network.
func stopped(inst incustest.Instance) incustest.Instance {
	inst.Status = "Stopped"
	inst.Network = nil
	return inst
}

func standaloneAPI(name string, instances ...incustest.Instance) *incustest.API {
	return incustest.New().Server(name, fingerprint).Standalone().Instances(instances...)
}

func clusteredAPI(name string, instances ...incustest.Instance) *incustest.API {
	api := incustest.New().Server(name, fingerprint).Instances(instances...)
	return api.Set("/1.0/cluster", map[string]any{"server_name": name, "enabled": true})
}

type env struct {
	store  *inventory.GormStore
	db     *gorm.DB
	writes *inventorytest.WriteCounter
	hosts  *hosts.Service
	apis   map[string]*incustest.API
	cfg    Config
	orch   *Orchestrator
	ctx    context.Context
}

// newEnv wires an orchestrator to an in-memory inventory and to the given
// APIs, keyed by host name.
func newEnv(t *testing.T, apis map[string]*incustest.API) *env {
	t.Helper()
	store, db, writes := inventorytest.NewStore(t)
	require.NoError(t, hosts.Migrate(db))

	e := &env{store: store, db: db, writes: writes, apis: apis, ctx: context.Background()}
	e.hosts = hosts.NewService(db, zap.NewNop()).WithDialer(e.dial, time.Second)
	e.cfg = Config{Concurrency: 4, DetailConcurrency: 4, TimeoutSeconds: 5, ConflictRetries: 3}
	e.orch = NewOrchestrator(e.hosts, e.hosts.Connect, store, e.cfg, nil, zap.NewNop())
	writes.Reset()
	return e
}

func (e *env) addHost(t *testing.T, h hosts.Host) {
	t.Helper()
	if h.ConnectionType == "" {
		h.ConnectionType = "unix"
	}
	h.Enabled = true
	require.NoError(t, e.hosts.Create(e.ctx, &h))
	e.writes.Reset()
}

func (e *env) dial(ep incus.Endpoint, _ time.Duration) (incus.Requester, func(), error) {
	api, ok := e.apis[ep.Name]
	if !ok {
		return nil, nil, &incus.ConnectionError{Host: ep.Name, Op: "dial", Err: errors.New("connection refused")}
	}
	return api, func() {}, nil
}
