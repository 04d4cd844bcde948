package instancesync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"incus-sync/core/reconcile"
	"incus-sync/feature/inventory"
	"incus-sync/feature/inventory/models"

	"go.uber.org/zap"
)

// ReconcileOutcome is the result of reconciling one machine record.
type ReconcileOutcome struct {
	Outcome reconcile.Outcome
	// Before is the stored snapshot, nil when the machine was created.
	Before *models.VirtualMachine
	// Machine is the record as it stands after the pass.
	Machine *models.VirtualMachine
	// Changes lists the owned columns that were written.
	Changes reconcile.Changes
	// CustomChanges lists the owned custom fields that were written.
	CustomChanges reconcile.Changes
	// Tags lists the sync-owned tags assigned or taken off.
	Tags TagChanges
}

// Reconciler upserts machine records with field-level writes.
type Reconciler struct {
	store  inventory.Store
	opts   reconcile.Options
	logger *zap.Logger
	now    func() time.Time
	// tagIDs caches the ensured sync tags by slug.
	tagIDs map[string]uint
}

// NewReconciler creates a reconciler.
func NewReconciler(store inventory.Store, opts reconcile.Options, logger *zap.Logger) *Reconciler {
	return &Reconciler{store: store, opts: opts, logger: logger, now: time.Now}
}

// Reconcile brings the machine record of inst in line with it. The record is
// looked up by (host, name) on a fresh read. Only owned columns, custom
// fields and sync-owned tags that differ are written; an identical record
// gets no write at all.
// A nil cluster leaves the stored cluster assignment alone.
func (r *Reconciler) Reconcile(ctx context.Context, inst CanonicalInstance, cluster *ClusterRef) (*ReconcileOutcome, error) {
	before, err := r.store.FindVirtualMachine(ctx, inst.Key.Host, inst.Key.Name)
	if err != nil {
		return nil, &ReconcileError{Instance: inst.Key, Op: "lookup machine", Err: err}
	}
	if before == nil {
		out, err := r.create(ctx, inst, cluster)
		if !errors.Is(err, inventory.ErrConflict) {
			return out, err
		}
		// Created concurrently by another writer: reconcile against it.
		before, err = r.store.FindVirtualMachine(ctx, inst.Key.Host, inst.Key.Name)
		if err != nil {
			return nil, &ReconcileError{Instance: inst.Key, Op: "lookup machine", Err: fmt.Errorf("%w: %w", inventory.ErrConflict, err)}
		}
		if before == nil {
			return nil, &ReconcileError{Instance: inst.Key, Op: "create machine", Err: inventory.ErrConflict}
		}
	}
	return r.update(ctx, inst, cluster, before)
}

func (r *Reconciler) create(ctx context.Context, inst CanonicalInstance, cluster *ClusterRef) (*ReconcileOutcome, error) {
	vm := &models.VirtualMachine{
		SourceHost: inst.Key.Host,
		Name:       inst.Key.Name,
		Status:     inst.Status,
		VCPUs:      inst.VCPUs,
		Memory:     inst.Memory,
		Disk:       inst.Disk,
	}
	if cluster != nil {
		id := cluster.ID
		vm.ClusterID = &id
	}

	custom := nonNil(machineCustomFields(inst))
	custom[FieldLastSync] = optional(r.now().UTC().Format(time.RFC3339))

	out := &ReconcileOutcome{
		Outcome:       reconcile.OutcomeCreated,
		Machine:       vm,
		Changes:       reconcile.DiffFields(nil, machineColumns(inst, cluster)),
		CustomChanges: customChanges(nil, custom),
		Tags:          TagChanges{Added: wantedTags(inst)},
	}
	if r.opts.DryRun {
		return out, nil
	}

	if err := r.store.CreateVirtualMachine(ctx, vm); err != nil {
		if errors.Is(err, inventory.ErrConflict) {
			return nil, err
		}
		return nil, &ReconcileError{Instance: inst.Key, Op: "create machine", Err: err}
	}
	if err := r.store.SetCustomFields(ctx, models.ObjectVirtualMachine, vm.ID, custom); err != nil {
		return nil, &ReconcileError{Instance: inst.Key, Op: "set custom fields", Err: err}
	}
	vm.CustomFields = make(map[string]string, len(custom))
	for k, v := range custom {
		vm.CustomFields[k] = *v
	}
	if err := r.applyTags(ctx, inst, vm.ID, out.Tags, nil); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Reconciler) update(ctx context.Context, inst CanonicalInstance, cluster *ClusterRef, before *models.VirtualMachine) (*ReconcileOutcome, error) {
	changes := reconcile.DiffFields(storedColumns(before), machineColumns(inst, cluster))
	custom := customChanges(before.CustomFields, machineCustomFields(inst))
	stored, err := r.store.ListMachineTags(ctx, before.ID)
	if err != nil {
		return nil, &ReconcileError{Instance: inst.Key, Op: "list tags", Err: err}
	}
	tags, untag := diffTags(inst, stored)

	after := *before
	out := &ReconcileOutcome{Outcome: reconcile.OutcomeUnchanged, Before: before, Machine: &after}
	if len(changes) == 0 && len(custom) == 0 && tags.Empty() {
		return out, nil
	}

	stamp := r.now().UTC().Format(time.RFC3339)
	custom = append(custom, reconcile.FieldChange{Field: FieldLastSync, From: before.CustomFields[FieldLastSync], To: stamp})

	out.Outcome = reconcile.OutcomeUpdated
	out.Changes = changes
	out.CustomChanges = custom
	out.Tags = tags
	applyColumns(&after, changes)
	after.CustomFields = mergeCustom(before.CustomFields, custom)

	if r.opts.DryRun {
		return out, nil
	}
	if len(changes) > 0 {
		if err := r.store.UpdateVirtualMachine(ctx, before.ID, changes.Values()); err != nil {
			return nil, &ReconcileError{Instance: inst.Key, Op: "update machine", Err: err}
		}
	}
	if err := r.store.SetCustomFields(ctx, models.ObjectVirtualMachine, before.ID, customValues(custom)); err != nil {
		return nil, &ReconcileError{Instance: inst.Key, Op: "set custom fields", Err: err}
	}
	if err := r.applyTags(ctx, inst, before.ID, tags, untag); err != nil {
		return nil, err
	}
	return out, nil
}

// applyTags assigns the added tags, creating them on first use, and takes
// off the tags in untag.
func (r *Reconciler) applyTags(ctx context.Context, inst CanonicalInstance, vmID uint, tags TagChanges, untag []uint) error {
	if len(tags.Added) > 0 {
		if err := r.ensureTags(ctx); err != nil {
			return &ReconcileError{Instance: inst.Key, Op: "ensure tags", Err: err}
		}
		ids := make([]uint, len(tags.Added))
		for i, slug := range tags.Added {
			ids[i] = r.tagIDs[slug]
		}
		if err := r.store.AddMachineTags(ctx, vmID, ids); err != nil {
			return &ReconcileError{Instance: inst.Key, Op: "add tags", Err: err}
		}
	}
	if err := r.store.RemoveMachineTags(ctx, vmID, untag); err != nil {
		return &ReconcileError{Instance: inst.Key, Op: "remove tags", Err: err}
	}
	return nil
}

func (r *Reconciler) ensureTags(ctx context.Context) error {
	if r.tagIDs != nil {
		return nil
	}
	ids := make(map[string]uint, len(syncTags))
	for _, def := range syncTags {
		tag, err := r.store.EnsureTag(ctx, def.slug, def.name, def.color)
		if err != nil {
			return fmt.Errorf("%s: %w", def.slug, err)
		}
		ids[def.slug] = tag.ID
	}
	r.tagIDs = ids
	return nil
}

func machineColumns(inst CanonicalInstance, cluster *ClusterRef) map[string]any {
	cols := map[string]any{
		"status": inst.Status,
		"vcpus":  inst.VCPUs,
		"memory": inst.Memory,
		"disk":   inst.Disk,
	}
	if cluster != nil {
		cols["cluster_id"] = cluster.ID
	}
	return cols
}

func storedColumns(vm *models.VirtualMachine) map[string]any {
	return map[string]any{
		"status":     vm.Status,
		"vcpus":      vm.VCPUs,
		"memory":     vm.Memory,
		"disk":       vm.Disk,
		"cluster_id": vm.ClusterID,
	}
}

func machineCustomFields(inst CanonicalInstance) map[string]*string {
	var created string
	if !inst.CreatedAt.IsZero() {
		created = inst.CreatedAt.Format(time.RFC3339)
	}
	return map[string]*string{
		FieldUUID:     optional(inst.UUID),
		FieldType:     optional(inst.Type),
		FieldImage:    optional(inst.Image),
		FieldCreated:  optional(created),
		FieldProfiles: optional(strings.Join(inst.Profiles, ", ")),
		FieldLocation: optional(inst.Location),
		FieldStatus:   optional(inst.RawStatus),
	}
}

func applyColumns(vm *models.VirtualMachine, changes reconcile.Changes) {
	for _, ch := range changes {
		switch ch.Field {
		case "status":
			vm.Status, _ = ch.To.(string)
		case "vcpus":
			vm.VCPUs = ptr[int](ch.To)
		case "memory":
			vm.Memory = ptr[int64](ch.To)
		case "disk":
			vm.Disk = ptr[int64](ch.To)
		case "cluster_id":
			vm.ClusterID = ptr[uint](ch.To)
		}
	}
}

func mergeCustom(stored map[string]string, changes reconcile.Changes) map[string]string {
	out := make(map[string]string, len(stored)+len(changes))
	for k, v := range stored {
		out[k] = v
	}
	for k, v := range customValues(changes) {
		if v == nil {
			delete(out, k)
			continue
		}
		out[k] = *v
	}
	return out
}

func ptr[T any](v any) *T {
	t, ok := v.(T)
	if !ok {
		return nil
	}
	return &t
}
