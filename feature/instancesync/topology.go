package instancesync

import (
	"context"
	"errors"
	"fmt"

	"incus-sync/feature/hosts"
	"incus-sync/feature/inventory"
	"incus-sync/feature/inventory/models"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	clusterTypeSlug = "incus"
	clusterTypeName = "Incus"
)

// ClusterRef points at the cluster group an instance belongs to.
type ClusterRef struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// Topology resolves cluster groups with compare-and-create against the store.
// Concurrent resolutions of one name share a single store round trip; the
// store's unique index covers other processes.
type Topology struct {
	store   inventory.Store
	retries int
	logger  *zap.Logger
	group   singleflight.Group
}

// NewTopology creates a resolver retrying up to retries times after a conflict.
func NewTopology(store inventory.Store, retries int, logger *zap.Logger) *Topology {
	if retries < 0 {
		retries = 0
	}
	return &Topology{store: store, retries: retries, logger: logger}
}

// ClusterName derives the cluster group name for a host pass. Standalone
// hosts get "". Clustered hosts use the configured override, else a name
// built from the cluster certificate fingerprint shared by all members.
func ClusterName(h hosts.Host, clustered bool, fingerprint string) string {
	if !clustered {
		return ""
	}
	if h.ClusterName != "" {
		return h.ClusterName
	}
	if len(fingerprint) > 12 {
		fingerprint = fingerprint[:12]
	}
	if fingerprint == "" {
		return "incus-" + h.Name
	}
	return "incus-" + fingerprint
}

// Resolve returns the cluster group for clusterName. An empty name returns
// the host's default cluster, or nil when it has none.
func (t *Topology) Resolve(ctx context.Context, h hosts.Host, clusterName string) (*ClusterRef, error) {
	if clusterName == "" {
		return t.defaultCluster(ctx, h)
	}

	// The shared call outlives any one caller; each caller still stops
	// waiting when its own context ends.
	ch := t.group.DoChan(clusterName, func() (any, error) {
		return t.ensure(context.WithoutCancel(ctx), clusterName)
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, &TopologyError{Host: h.Name, Cluster: clusterName, Err: ctx.Err()}
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, &TopologyError{Host: h.Name, Cluster: clusterName, Err: res.Err}
	}
	if res.Shared {
		t.logger.Debug("Cluster resolution shared", zap.String("cluster", clusterName), zap.String("host", h.Name))
	}
	return res.Val.(*ClusterRef), nil
}

func (t *Topology) defaultCluster(ctx context.Context, h hosts.Host) (*ClusterRef, error) {
	if h.DefaultClusterID == nil {
		return nil, nil
	}
	c, err := t.store.GetCluster(ctx, *h.DefaultClusterID)
	if err != nil {
		return nil, &TopologyError{Host: h.Name, Err: err}
	}
	if c == nil {
		return nil, &TopologyError{Host: h.Name, Err: fmt.Errorf("default cluster %d does not exist", *h.DefaultClusterID)}
	}
	return &ClusterRef{ID: c.ID, Name: c.Name}, nil
}

func (t *Topology) ensure(ctx context.Context, name string) (*ClusterRef, error) {
	ct, err := t.store.EnsureClusterType(ctx, clusterTypeSlug, clusterTypeName)
	if err != nil {
		return nil, fmt.Errorf("ensure cluster type: %w", err)
	}

	for attempt := 0; attempt <= t.retries; attempt++ {
		existing, err := t.store.FindCluster(ctx, ct.ID, name)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return &ClusterRef{ID: existing.ID, Name: existing.Name}, nil
		}

		c := &models.Cluster{Name: name, TypeID: ct.ID, Description: "Incus cluster"}
		err = t.store.CreateCluster(ctx, c)
		if err == nil {
			t.logger.Info("Cluster created", zap.String("cluster", name), zap.Uint("id", c.ID))
			return &ClusterRef{ID: c.ID, Name: c.Name}, nil
		}
		if !errors.Is(err, inventory.ErrConflict) {
			return nil, err
		}
		t.logger.Debug("Cluster creation conflict, re-reading", zap.String("cluster", name), zap.Int("attempt", attempt+1))
	}
	return nil, fmt.Errorf("still conflicting after %d retries", t.retries)
}
