package incus

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeAPI serves canned metadata per request path.
type fakeAPI struct {
	mu       sync.Mutex
	metadata map[string]any
	errs     map[string]error
	calls    []string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{metadata: map[string]any{}, errs: map[string]error{}}
}

func (f *fakeAPI) Request(_ context.Context, method, path string, _ any) (*Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, method+" "+path)

	if err, ok := f.errs[path]; ok {
		return nil, err
	}
	md, ok := f.metadata[path]
	if !ok {
		return nil, &APIError{StatusCode: 404, Message: "not found"}
	}
	raw, err := json.Marshal(md)
	if err != nil {
		return nil, err
	}
	return &Response{Type: "sync", StatusCode: 200, Metadata: raw}, nil
}

func webInstance() map[string]any {
	return map[string]any{
		"name":   "web-01",
		"status": "Running",
		"type":   "container",
		"expanded_config": map[string]string{
			"limits.cpu":    "2",
			"limits.memory": "512MB",
		},
		"expanded_devices": map[string]map[string]string{
			"eth0": {"type": "nic", "network": "incusbr0"},
			"root": {"type": "disk", "path": "/", "pool": "default"},
		},
	}
}

func TestHandshake(t *testing.T) {
	ctx := context.Background()

	t.Run("Trusted", func(t *testing.T) {
		api := newFakeAPI()
		api.metadata["/1.0"] = map[string]any{
			"auth":        "trusted",
			"environment": map[string]any{"server_name": "node-a", "server_version": "6.0", "certificate_fingerprint": "abc"},
		}

		info, err := Handshake(ctx, api, "node-a")
		require.NoError(t, err)
		assert.Equal(t, "6.0", info.Environment.ServerVersion)
		assert.Equal(t, "abc", info.Environment.CertificateFingerprint)
	})

	t.Run("Untrusted", func(t *testing.T) {
		api := newFakeAPI()
		api.metadata["/1.0"] = map[string]any{"auth": "untrusted"}

		_, err := Handshake(ctx, api, "node-a")
		var connErr *ConnectionError
		require.ErrorAs(t, err, &connErr)
		assert.Contains(t, err.Error(), "not trusted")
	})

	t.Run("Missing Or Unknown Auth", func(t *testing.T) {
		for _, auth := range []any{nil, "", "tls"} {
			api := newFakeAPI()
			api.metadata["/1.0"] = map[string]any{"auth": auth}

			_, err := Handshake(ctx, api, "node-a")
			var connErr *ConnectionError
			require.ErrorAs(t, err, &connErr)
			assert.Equal(t, "handshake", connErr.Op)
		}
	})

	t.Run("Transport Failure", func(t *testing.T) {
		api := newFakeAPI()
		api.errs["/1.0"] = errors.New("connection refused")

		_, err := Handshake(ctx, api, "node-a")
		var connErr *ConnectionError
		require.ErrorAs(t, err, &connErr)
		assert.Equal(t, "node-a", connErr.Host)
	})
}

func TestFetcher_Fetch(t *testing.T) {
	api := newFakeAPI()
	api.metadata["/1.0/instances"] = []string{"/1.0/instances/web-01", "/1.0/instances/db-01"}
	api.metadata["/1.0/instances/web-01"] = webInstance()
	api.metadata["/1.0/instances/web-01/state"] = map[string]any{
		"status": "Running",
		"network": map[string]any{
			"eth0": map[string]any{"hwaddr": "aa:bb:cc:dd:ee:ff", "state": "up"},
		},
	}
	api.metadata["/1.0/storage-pools/default/volumes/container/web-01"] = map[string]any{
		"config": map[string]string{"size": "10GB"},
	}
	// db-01 detail is missing and must be skipped, not fatal.

	f := NewFetcher("node-a", "", api, 4, zap.NewNop())
	res, err := f.Fetch(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Instances, 1)
	inst := res.Instances[0]
	assert.Equal(t, "web-01", inst.Name)
	require.NotNil(t, inst.State)
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", inst.State.Network["eth0"].Hwaddr)
	assert.Equal(t, "10GB", inst.VolumeSizes["root"])

	require.Len(t, res.Failures, 1)
	assert.Equal(t, "db-01", res.Failures[0].Instance)
	var fetchErr *FetchError
	assert.ErrorAs(t, res.Failures[0], &fetchErr)
}

func TestFetcher_ListingFailureIsFatal(t *testing.T) {
	api := newFakeAPI()
	api.errs["/1.0/instances"] = &APIError{StatusCode: 500, Message: "boom"}

	f := NewFetcher("node-a", "", api, 2, zap.NewNop())
	res, err := f.Fetch(context.Background())
	assert.Nil(t, res)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "/1.0/instances", fetchErr.Path)
}

func TestFetcher_Project(t *testing.T) {
	api := newFakeAPI()
	api.metadata["/1.0/instances?project=prod"] = []string{}

	f := NewFetcher("node-a", "prod", api, 1, zap.NewNop())
	res, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Instances)
	assert.Equal(t, []string{"GET /1.0/instances?project=prod"}, api.calls)
}

func TestFetcher_CustomVolumeSize(t *testing.T) {
	api := newFakeAPI()
	inst := webInstance()
	inst["expanded_devices"] = map[string]map[string]string{
		"data": {"type": "disk", "path": "/srv", "pool": "fast", "source": "web-data"},
		"logs": {"type": "disk", "path": "/var/log", "source": "/mnt/logs"},
	}
	api.metadata["/1.0/instances"] = []string{"/1.0/instances/web-01"}
	api.metadata["/1.0/instances/web-01"] = inst
	api.metadata["/1.0/instances/web-01/state"] = map[string]any{"status": "Running"}
	api.metadata["/1.0/storage-pools/fast/volumes/custom/web-data"] = map[string]any{
		"config": map[string]string{"size": "20GiB"},
	}

	f := NewFetcher("node-a", "", api, 1, zap.NewNop())
	res, err := f.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Instances, 1)
	assert.Equal(t, map[string]string{"data": "20GiB"}, res.Instances[0].VolumeSizes)
}

func TestFetcher_Cancelled(t *testing.T) {
	api := newFakeAPI()
	api.metadata["/1.0/instances"] = []string{"/1.0/instances/web-01"}
	api.metadata["/1.0/instances/web-01"] = webInstance()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := NewFetcher("node-a", "", api, 1, zap.NewNop())
	_, err := f.Fetch(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInstanceName(t *testing.T) {
	assert.Equal(t, "web-01", instanceName("/1.0/instances/web-01"))
	assert.Equal(t, "web-01", instanceName("/1.0/instances/web-01?project=prod"))
	assert.Equal(t, "a b", instanceName("/1.0/instances/a%20b"))
	assert.Equal(t, "", instanceName(""))
}
