package instancesync

import (
	"context"
	"errors"
	"testing"
	"time"

	"incus-sync/core/reconcile"
	"incus-sync/feature/inventory"
	"incus-sync/feature/inventory/inventorytest"
	"incus-sync/feature/inventory/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

func newReconciler(store inventory.Store, opts reconcile.Options) *Reconciler {
	r := NewReconciler(store, opts, zap.NewNop())
	r.now = func() time.Time { return fixedNow }
	return r
}

func canonicalWeb() CanonicalInstance {
	vcpus, memory, disk := 2, int64(512_000_000), int64(10_000_000_000)
	return CanonicalInstance{
		Key:       InstanceKey{Host: "node-a", Name: "web-01"},
		Status:    models.StatusActive,
		RawStatus: "Running",
		VCPUs:     &vcpus,
		Memory:    &memory,
		Disk:      &disk,
		Type:      "container",
		Profiles:  []string{"default", "web"},
		UUID:      "5f0c6d2e",
	}
}

func TestReconciler_Create(t *testing.T) {
	store, _, _ := inventorytest.NewStore(t)
	r := newReconciler(store, reconcile.Options{})
	ctx := context.Background()

	out, err := r.Reconcile(ctx, canonicalWeb(), &ClusterRef{ID: 7, Name: "prod"})
	require.NoError(t, err)
	assert.Equal(t, reconcile.OutcomeCreated, out.Outcome)
	assert.Nil(t, out.Before)
	assert.NotZero(t, out.Machine.ID)

	vm, err := store.FindVirtualMachine(ctx, "node-a", "web-01")
	require.NoError(t, err)
	assert.Equal(t, uint(7), *vm.ClusterID)
	assert.Equal(t, map[string]string{
		FieldUUID:     "5f0c6d2e",
		FieldType:     "container",
		FieldProfiles: "default, web",
		FieldStatus:   "Running",
		FieldLastSync: "2026-10-01T12:00:00Z",
	}, vm.CustomFields)
}

func TestReconciler_UnchangedIssuesNoWrite(t *testing.T) {
	store, _, writes := inventorytest.NewStore(t)
	r := newReconciler(store, reconcile.Options{})
	ctx := context.Background()

	_, err := r.Reconcile(ctx, canonicalWeb(), nil)
	require.NoError(t, err)
	writes.Reset()

	out, err := r.Reconcile(ctx, canonicalWeb(), nil)
	require.NoError(t, err)
	assert.Equal(t, reconcile.OutcomeUnchanged, out.Outcome)
	assert.Empty(t, out.Changes)
	assert.Empty(t, out.CustomChanges)
	assert.Zero(t, writes.Count())
}

func TestReconciler_UpdateTouchesOwnedFieldsOnly(t *testing.T) {
	store, db, _ := inventorytest.NewStore(t)
	ctx := context.Background()
	r := newReconciler(store, reconcile.Options{})

	_, err := r.Reconcile(ctx, canonicalWeb(), &ClusterRef{ID: 3, Name: "prod"})
	require.NoError(t, err)
	vm, err := store.FindVirtualMachine(ctx, "node-a", "web-01")
	require.NoError(t, err)

	// Operator edits.
	require.NoError(t, db.Model(&models.VirtualMachine{}).Where("id = ?", vm.ID).
		Updates(map[string]any{"description": "billing frontend", "comments": "owned by team web"}).Error)
	owner := "team-web"
	require.NoError(t, store.SetCustomFields(ctx, models.ObjectVirtualMachine, vm.ID, map[string]*string{"owner": &owner}))

	changed := canonicalWeb()
	vcpus := 4
	changed.VCPUs = &vcpus
	changed.Profiles = nil

	out, err := r.Reconcile(ctx, changed, nil)
	require.NoError(t, err)
	assert.Equal(t, reconcile.OutcomeUpdated, out.Outcome)
	assert.Equal(t, []string{"vcpus"}, out.Changes.Fields())
	assert.True(t, out.CustomChanges.Has(FieldProfiles))
	assert.True(t, out.CustomChanges.Has(FieldLastSync))
	assert.Equal(t, 4, *out.Machine.VCPUs)
	assert.Equal(t, 2, *out.Before.VCPUs)

	after, err := store.FindVirtualMachine(ctx, "node-a", "web-01")
	require.NoError(t, err)
	assert.Equal(t, 4, *after.VCPUs)
	assert.Equal(t, "billing frontend", after.Description)
	assert.Equal(t, "owned by team web", after.Comments)
	assert.Equal(t, uint(3), *after.ClusterID, "nil cluster keeps the stored assignment")
	assert.Equal(t, "team-web", after.CustomFields["owner"])
	assert.NotContains(t, after.CustomFields, FieldProfiles)
	assert.Equal(t, "2026-10-01T12:00:00Z", after.CustomFields[FieldLastSync])
}

func TestReconciler_ClearsLimitToNull(t *testing.T) {
	store, _, _ := inventorytest.NewStore(t)
	ctx := context.Background()
	r := newReconciler(store, reconcile.Options{})

	_, err := r.Reconcile(ctx, canonicalWeb(), nil)
	require.NoError(t, err)

	unlimited := canonicalWeb()
	unlimited.Memory = nil
	out, err := r.Reconcile(ctx, unlimited, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"memory"}, out.Changes.Fields())

	vm, err := store.FindVirtualMachine(ctx, "node-a", "web-01")
	require.NoError(t, err)
	assert.Nil(t, vm.Memory)
}

func TestReconciler_DryRun(t *testing.T) {
	store, _, writes := inventorytest.NewStore(t)
	ctx := context.Background()

	out, err := newReconciler(store, reconcile.Options{DryRun: true}).Reconcile(ctx, canonicalWeb(), nil)
	require.NoError(t, err)
	assert.Equal(t, reconcile.OutcomeCreated, out.Outcome)
	assert.Zero(t, writes.Count())

	_, err = newReconciler(store, reconcile.Options{}).Reconcile(ctx, canonicalWeb(), nil)
	require.NoError(t, err)
	writes.Reset()

	stopped := canonicalWeb()
	stopped.Status = models.StatusOffline
	out, err = newReconciler(store, reconcile.Options{DryRun: true}).Reconcile(ctx, stopped, nil)
	require.NoError(t, err)
	assert.Equal(t, reconcile.OutcomeUpdated, out.Outcome)
	assert.Equal(t, models.StatusOffline, out.Machine.Status)
	assert.Zero(t, writes.Count())
}

func tagSlugs(t *testing.T, store inventory.Store, vmID uint) []string {
	t.Helper()
	tags, err := store.ListMachineTags(context.Background(), vmID)
	require.NoError(t, err)
	slugs := make([]string, len(tags))
	for i, tag := range tags {
		slugs[i] = tag.Slug
	}
	return slugs
}

func TestReconciler_TypeChangeSwapsTypeTag(t *testing.T) {
	store, _, writes := inventorytest.NewStore(t)
	r := newReconciler(store, reconcile.Options{})
	ctx := context.Background()

	out, err := r.Reconcile(ctx, canonicalWeb(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{TagContainer, TagManaged}, out.Tags.Added)
	id := out.Machine.ID
	assert.Equal(t, []string{TagContainer, TagManaged}, tagSlugs(t, store, id))

	// Operator tag survives every pass.
	pinned, err := store.EnsureTag(ctx, "pinned", "Pinned", "ff9800")
	require.NoError(t, err)
	require.NoError(t, store.AddMachineTags(ctx, id, []uint{pinned.ID}))

	writes.Reset()
	out, err = r.Reconcile(ctx, canonicalWeb(), nil)
	require.NoError(t, err)
	assert.Equal(t, reconcile.OutcomeUnchanged, out.Outcome)
	assert.True(t, out.Tags.Empty())
	assert.Zero(t, writes.Count())

	vm := canonicalWeb()
	vm.Type = "virtual-machine"
	out, err = r.Reconcile(ctx, vm, nil)
	require.NoError(t, err)
	assert.Equal(t, reconcile.OutcomeUpdated, out.Outcome)
	assert.Equal(t, TagChanges{Added: []string{TagVM}, Removed: []string{TagContainer}}, out.Tags)
	assert.Equal(t, []string{TagManaged, TagVM, "pinned"}, tagSlugs(t, store, id))
	assert.Equal(t, "tag incus-vm added; tag incus-container removed", JournalText(out, nil))

	writes.Reset()
	out, err = r.Reconcile(ctx, vm, nil)
	require.NoError(t, err)
	assert.Equal(t, reconcile.OutcomeUnchanged, out.Outcome)
	assert.Zero(t, writes.Count())
}

func TestReconciler_DryRunLeavesTagsAlone(t *testing.T) {
	store, _, writes := inventorytest.NewStore(t)
	ctx := context.Background()

	first, err := newReconciler(store, reconcile.Options{}).Reconcile(ctx, canonicalWeb(), nil)
	require.NoError(t, err)
	writes.Reset()

	vm := canonicalWeb()
	vm.Type = "virtual-machine"
	out, err := newReconciler(store, reconcile.Options{DryRun: true}).Reconcile(ctx, vm, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{TagVM}, out.Tags.Added)
	assert.Zero(t, writes.Count())
	assert.Equal(t, []string{TagContainer, TagManaged}, tagSlugs(t, store, first.Machine.ID))
}

// lateStore reports the machine missing once, then loses the create to a
// concurrent writer.
type lateStore struct {
	*inventory.GormStore
	raced bool
}

func (s *lateStore) FindVirtualMachine(ctx context.Context, host, name string) (*models.VirtualMachine, error) {
	if !s.raced {
		return nil, nil
	}
	return s.GormStore.FindVirtualMachine(ctx, host, name)
}

func (s *lateStore) CreateVirtualMachine(ctx context.Context, vm *models.VirtualMachine) error {
	s.raced = true
	winner := *vm
	winner.Status = models.StatusOffline
	if err := s.GormStore.CreateVirtualMachine(ctx, &winner); err != nil {
		return err
	}
	return inventory.ErrConflict
}

func TestReconciler_CreateConflictFallsBackToUpdate(t *testing.T) {
	base, _, _ := inventorytest.NewStore(t)
	r := newReconciler(&lateStore{GormStore: base}, reconcile.Options{})

	out, err := r.Reconcile(context.Background(), canonicalWeb(), nil)
	require.NoError(t, err)
	assert.Equal(t, reconcile.OutcomeUpdated, out.Outcome)
	assert.Equal(t, models.StatusActive, out.Machine.Status)
}

// unreadableStore loses the create to a concurrent writer and then fails to
// read the winner back.
type unreadableStore struct {
	lateStore
}

func (s *unreadableStore) FindVirtualMachine(ctx context.Context, host, name string) (*models.VirtualMachine, error) {
	if !s.raced {
		return nil, nil
	}
	return nil, errors.New("connection reset by peer")
}

func TestReconciler_CreateConflictKeepsLookupError(t *testing.T) {
	base, _, _ := inventorytest.NewStore(t)
	r := newReconciler(&unreadableStore{lateStore{GormStore: base}}, reconcile.Options{})

	_, err := r.Reconcile(context.Background(), canonicalWeb(), nil)
	var recErr *ReconcileError
	require.ErrorAs(t, err, &recErr)
	assert.Equal(t, "lookup machine", recErr.Op)
	assert.ErrorIs(t, err, inventory.ErrConflict)
	assert.Contains(t, err.Error(), "connection reset by peer")
}

func setupMockStore(t *testing.T) (*inventory.GormStore, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{})
	require.NoError(t, err)
	return inventory.NewGormStore(db), mock
}

func TestReconciler_LookupErrorIsReconcileError(t *testing.T) {
	store, mock := setupMockStore(t)
	boom := errors.New("connection reset by peer")
	mock.ExpectQuery("SELECT .* FROM `virtual_machines`").WillReturnError(boom)

	_, err := newReconciler(store, reconcile.Options{}).Reconcile(context.Background(), canonicalWeb(), nil)

	var recErr *ReconcileError
	require.ErrorAs(t, err, &recErr)
	assert.Equal(t, "lookup machine", recErr.Op)
	assert.Equal(t, InstanceKey{Host: "node-a", Name: "web-01"}, recErr.Instance)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, FailureReconcile, classify(context.Background(), err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconciler_RejectedCreateIsReconcileError(t *testing.T) {
	store, mock := setupMockStore(t)
	mock.ExpectQuery("SELECT .* FROM `virtual_machines`").WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `virtual_machines`").WillReturnError(errors.New("Data too long for column 'name'"))
	mock.ExpectRollback()

	_, err := newReconciler(store, reconcile.Options{}).Reconcile(context.Background(), canonicalWeb(), nil)

	var recErr *ReconcileError
	require.ErrorAs(t, err, &recErr)
	assert.Equal(t, "create machine", recErr.Op)
	assert.ErrorContains(t, err, "Data too long")
	assert.NoError(t, mock.ExpectationsWereMet())
}
