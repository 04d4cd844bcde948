package instancesync

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"incus-sync/feature/hosts"
	"incus-sync/feature/inventory"
	"incus-sync/feature/inventory/inventorytest"
	"incus-sync/feature/inventory/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// racingStore loses the first creates to a concurrent writer: the record is
// inserted behind its back and ErrConflict is returned.
type racingStore struct {
	*inventory.GormStore
	losses  int
	creates atomic.Int32
}

func (s *racingStore) CreateCluster(ctx context.Context, c *models.Cluster) error {
	s.creates.Add(1)
	if s.losses > 0 {
		s.losses--
		winner := *c
		if err := s.GormStore.CreateCluster(ctx, &winner); err != nil {
			return err
		}
		return inventory.ErrConflict
	}
	return s.GormStore.CreateCluster(ctx, c)
}

// conflictingStore never wins nor finds the record.
type conflictingStore struct {
	*inventory.GormStore
}

func (s *conflictingStore) CreateCluster(context.Context, *models.Cluster) error {
	return inventory.ErrConflict
}

// gatedStore holds cluster type creation until released and keeps the
// context it was called with.
type gatedStore struct {
	*inventory.GormStore
	once    sync.Once
	entered chan struct{}
	release chan struct{}
	ctx     context.Context
}

func (s *gatedStore) EnsureClusterType(ctx context.Context, slug, name string) (*models.ClusterType, error) {
	s.once.Do(func() {
		s.ctx = ctx
		close(s.entered)
	})
	<-s.release
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.GormStore.EnsureClusterType(ctx, slug, name)
}

func TestClusterName(t *testing.T) {
	tests := []struct {
		name      string
		host      hosts.Host
		clustered bool
		fp        string
		want      string
	}{
		{"standalone", hosts.Host{Name: "node-a"}, false, fingerprint, ""},
		{"standalone ignores override", hosts.Host{Name: "node-a", ClusterName: "prod"}, false, fingerprint, ""},
		{"override", hosts.Host{Name: "node-a", ClusterName: "prod"}, true, fingerprint, "prod"},
		{"fingerprint", hosts.Host{Name: "node-a"}, true, fingerprint, "incus-0123456789ab"},
		{"short fingerprint", hosts.Host{Name: "node-a"}, true, "abc", "incus-abc"},
		{"no fingerprint", hosts.Host{Name: "node-a"}, true, "", "incus-node-a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClusterName(tt.host, tt.clustered, tt.fp))
		})
	}
}

func TestTopology_Resolve(t *testing.T) {
	store, _, writes := inventorytest.NewStore(t)
	topo := NewTopology(store, 3, zap.NewNop())
	ctx := context.Background()

	ref, err := topo.Resolve(ctx, hosts.Host{Name: "node-a"}, "incus-0123456789ab")
	require.NoError(t, err)
	assert.Equal(t, "incus-0123456789ab", ref.Name)
	assert.NotZero(t, ref.ID)

	writes.Reset()
	again, err := topo.Resolve(ctx, hosts.Host{Name: "node-b"}, "incus-0123456789ab")
	require.NoError(t, err)
	assert.Equal(t, ref, again)
	assert.Zero(t, writes.Count())
}

func TestTopology_ResolveNoClusterName(t *testing.T) {
	store, _, _ := inventorytest.NewStore(t)
	topo := NewTopology(store, 3, zap.NewNop())

	ref, err := topo.Resolve(context.Background(), hosts.Host{Name: "node-a"}, "")
	require.NoError(t, err)
	assert.Nil(t, ref)
}

func TestTopology_ConcurrentResolveCreatesOnce(t *testing.T) {
	store, db, _ := inventorytest.NewStore(t)
	topo := NewTopology(store, 3, zap.NewNop())

	const workers = 16
	refs := make([]*ClusterRef, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ref, err := topo.Resolve(context.Background(), hosts.Host{Name: "node-a"}, "shared")
			assert.NoError(t, err)
			refs[i] = ref
		}()
	}
	wg.Wait()

	var count int64
	require.NoError(t, db.Model(&models.Cluster{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	for _, ref := range refs {
		require.NotNil(t, ref)
		assert.Equal(t, refs[0].ID, ref.ID)
	}
}

func TestTopology_CancelledCallerDoesNotFailOthers(t *testing.T) {
	base, db, _ := inventorytest.NewStore(t)
	store := &gatedStore{GormStore: base, entered: make(chan struct{}), release: make(chan struct{})}
	topo := NewTopology(store, 3, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := topo.Resolve(ctx, hosts.Host{Name: "node-a"}, "shared")
		first <- err
	}()
	<-store.entered

	type result struct {
		ref *ClusterRef
		err error
	}
	second := make(chan result, 1)
	go func() {
		ref, err := topo.Resolve(context.Background(), hosts.Host{Name: "node-b"}, "shared")
		second <- result{ref, err}
	}()

	cancel()
	select {
	case err := <-first:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled caller kept waiting on the shared resolution")
	}
	assert.NoError(t, store.ctx.Err())

	close(store.release)
	res := <-second
	require.NoError(t, res.err)
	assert.Equal(t, "shared", res.ref.Name)

	var count int64
	require.NoError(t, db.Model(&models.Cluster{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestTopology_ConflictRereads(t *testing.T) {
	base, db, _ := inventorytest.NewStore(t)
	store := &racingStore{GormStore: base, losses: 1}
	topo := NewTopology(store, 3, zap.NewNop())

	ref, err := topo.Resolve(context.Background(), hosts.Host{Name: "node-a"}, "shared")
	require.NoError(t, err)
	assert.Equal(t, "shared", ref.Name)
	assert.Equal(t, int32(1), store.creates.Load())

	var count int64
	require.NoError(t, db.Model(&models.Cluster{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestTopology_ConflictRetriesExhausted(t *testing.T) {
	base, _, _ := inventorytest.NewStore(t)
	topo := NewTopology(&conflictingStore{GormStore: base}, 2, zap.NewNop())

	ref, err := topo.Resolve(context.Background(), hosts.Host{Name: "node-a"}, "shared")
	assert.Nil(t, ref)
	var topoErr *TopologyError
	require.ErrorAs(t, err, &topoErr)
	assert.Equal(t, "node-a", topoErr.Host)
	assert.Equal(t, "shared", topoErr.Cluster)
	assert.ErrorContains(t, err, "still conflicting after 2 retries")
}

func TestTopology_DefaultCluster(t *testing.T) {
	store, _, _ := inventorytest.NewStore(t)
	ctx := context.Background()
	ct, err := store.EnsureClusterType(ctx, "incus", "Incus")
	require.NoError(t, err)
	lab := &models.Cluster{Name: "lab", TypeID: ct.ID}
	require.NoError(t, store.CreateCluster(ctx, lab))

	topo := NewTopology(store, 3, zap.NewNop())
	ref, err := topo.Resolve(ctx, hosts.Host{Name: "node-a", DefaultClusterID: &lab.ID}, "")
	require.NoError(t, err)
	assert.Equal(t, &ClusterRef{ID: lab.ID, Name: "lab"}, ref)

	missing := uint(99)
	_, err = topo.Resolve(ctx, hosts.Host{Name: "node-a", DefaultClusterID: &missing}, "")
	var topoErr *TopologyError
	assert.ErrorAs(t, err, &topoErr)
}
