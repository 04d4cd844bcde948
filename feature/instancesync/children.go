package instancesync

import (
	"context"
	"sort"

	"incus-sync/core/reconcile"
	"incus-sync/feature/inventory"
	"incus-sync/feature/inventory/models"

	"go.uber.org/zap"
)

// ChildOutcome counts the child records written for one machine.
type ChildOutcome struct {
	Interfaces  Counts `json:"interfaces"`
	IPAddresses Counts `json:"ip_addresses"`
	Disks       Counts `json:"disks"`
	// PrimaryIPChanged is set when the primary IPv4 or IPv6 was rewritten.
	PrimaryIPChanged bool `json:"primary_ip_changed"`
}

// Changed reports whether any child record was written.
func (o *ChildOutcome) Changed() bool {
	return o.Interfaces.Written() > 0 || o.IPAddresses.Written() > 0 || o.Disks.Written() > 0 || o.PrimaryIPChanged
}

// ChildSyncer reconciles the interfaces, IP addresses and disks of a machine.
type ChildSyncer struct {
	store  inventory.Store
	opts   reconcile.Options
	logger *zap.Logger
}

// NewChildSyncer creates a child syncer. Store-only records are deleted only
// when opts.Prune is set.
func NewChildSyncer(store inventory.Store, opts reconcile.Options, logger *zap.Logger) *ChildSyncer {
	return &ChildSyncer{store: store, opts: opts, logger: logger}
}

type ifaceRef struct {
	id  uint
	src CanonicalInterface
}

// Sync reconciles the children of vm. On a store error it returns the
// counts reached so far together with a *ReconcileError.
func (c *ChildSyncer) Sync(ctx context.Context, key InstanceKey, vm *models.VirtualMachine, ifaces []CanonicalInterface, disks []CanonicalDisk) (*ChildOutcome, error) {
	out := &ChildOutcome{}

	refs, err := c.syncInterfaces(ctx, key, vm, ifaces, out)
	if err != nil {
		return out, err
	}
	if err := c.syncAddresses(ctx, key, vm, refs, out); err != nil {
		return out, err
	}
	if err := c.syncDisks(ctx, key, vm, disks, out); err != nil {
		return out, err
	}
	return out, nil
}

func (c *ChildSyncer) syncInterfaces(ctx context.Context, key InstanceKey, vm *models.VirtualMachine, ifaces []CanonicalInterface, out *ChildOutcome) ([]ifaceRef, error) {
	source := make(map[string]CanonicalInterface, len(ifaces))
	for _, iface := range ifaces {
		source[iface.Name] = iface
	}

	stored := map[string]models.VMInterface{}
	if vm.ID != 0 {
		list, err := c.store.ListInterfaces(ctx, vm.ID)
		if err != nil {
			return nil, &ReconcileError{Instance: key, Op: "list interfaces", Err: err}
		}
		for _, iface := range list {
			stored[iface.Name] = iface
		}
	}

	source = adoptByMAC(source, stored)

	plan := reconcile.BuildPlan(source, stored, func(s CanonicalInterface, t models.VMInterface) bool {
		return len(interfaceChanges(s, t)) > 0 || len(customChanges(t.CustomFields, interfaceCustomFields(s))) > 0
	})

	refs := make([]ifaceRef, 0, len(ifaces))
	for _, action := range plan.Actions {
		src, cur := source[action.Key], stored[action.Key]
		switch action.Type {
		case reconcile.ActionCreate:
			iface := &models.VMInterface{
				VirtualMachineID: vm.ID,
				Name:             src.Name,
				MACAddress:       src.MAC,
				MTU:              src.MTU,
				Enabled:          src.Enabled != nil && *src.Enabled,
			}
			if !c.opts.DryRun {
				if err := c.store.CreateInterface(ctx, iface); err != nil {
					out.Interfaces.Failed++
					return refs, &ReconcileError{Instance: key, Op: "create interface " + src.Name, Err: err}
				}
				if err := c.store.SetCustomFields(ctx, models.ObjectVMInterface, iface.ID, interfaceCustomFields(src)); err != nil {
					return refs, &ReconcileError{Instance: key, Op: "set interface custom fields", Err: err}
				}
			}
			out.Interfaces.Created++
			refs = append(refs, ifaceRef{id: iface.ID, src: src})

		case reconcile.ActionUpdate:
			cols := interfaceChanges(src, cur)
			custom := customChanges(cur.CustomFields, interfaceCustomFields(src))
			if !c.opts.DryRun {
				if len(cols) > 0 {
					if err := c.store.UpdateInterface(ctx, cur.ID, cols.Values()); err != nil {
						out.Interfaces.Failed++
						return refs, &ReconcileError{Instance: key, Op: "update interface " + src.Name, Err: err}
					}
				}
				if len(custom) > 0 {
					if err := c.store.SetCustomFields(ctx, models.ObjectVMInterface, cur.ID, customValues(custom)); err != nil {
						return refs, &ReconcileError{Instance: key, Op: "set interface custom fields", Err: err}
					}
				}
			}
			out.Interfaces.Updated++
			refs = append(refs, ifaceRef{id: cur.ID, src: src})

		case reconcile.ActionKeep:
			out.Interfaces.Unchanged++
			refs = append(refs, ifaceRef{id: cur.ID, src: src})

		case reconcile.ActionOrphan:
			if !c.opts.Prune {
				continue
			}
			if !c.opts.DryRun {
				if err := c.store.DeleteInterface(ctx, cur.ID); err != nil {
					out.Interfaces.Failed++
					return refs, &ReconcileError{Instance: key, Op: "delete interface " + cur.Name, Err: err}
				}
			}
			out.Interfaces.Removed++
			c.logger.Info("Stale interface removed", zap.Stringer("instance", key), zap.String("interface", cur.Name))
		}
	}
	return refs, nil
}

// syncAddresses creates missing addresses and points the primary IPs at the
// first global address of each family.
func (c *ChildSyncer) syncAddresses(ctx context.Context, key InstanceKey, vm *models.VirtualMachine, refs []ifaceRef, out *ChildOutcome) error {
	ids := make([]uint, 0, len(refs))
	for _, ref := range refs {
		if ref.id != 0 {
			ids = append(ids, ref.id)
		}
	}
	existing := map[uint]map[string]uint{}
	if len(ids) > 0 {
		list, err := c.store.ListIPAddresses(ctx, ids)
		if err != nil {
			return &ReconcileError{Instance: key, Op: "list ip addresses", Err: err}
		}
		for _, ip := range list {
			if ip.AssignedInterfaceID == nil {
				continue
			}
			if existing[*ip.AssignedInterfaceID] == nil {
				existing[*ip.AssignedInterfaceID] = map[string]uint{}
			}
			existing[*ip.AssignedInterfaceID][ip.Address] = ip.ID
		}
	}

	var primary4, primary6 *uint
	for _, ref := range refs {
		for _, ip := range ref.src.IPs {
			id, ok := existing[ref.id][ip.Address]
			if ok {
				out.IPAddresses.Unchanged++
			} else {
				ifaceID := ref.id
				rec := &models.IPAddress{
					Address:             ip.Address,
					Family:              ip.Family,
					Status:              models.StatusActive,
					AssignedInterfaceID: &ifaceID,
				}
				if !c.opts.DryRun {
					if err := c.store.CreateIPAddress(ctx, rec); err != nil {
						out.IPAddresses.Failed++
						return &ReconcileError{Instance: key, Op: "create ip address " + ip.Address, Err: err}
					}
				}
				out.IPAddresses.Created++
				id = rec.ID
			}

			if !ip.Global || id == 0 {
				continue
			}
			if ip.Family == 4 && primary4 == nil {
				primary4 = &id
			}
			if ip.Family == 6 && primary6 == nil {
				primary6 = &id
			}
		}
	}

	values := map[string]any{}
	if primary4 != nil && !reconcile.Equal(vm.PrimaryIP4ID, primary4) {
		values["primary_ip4_id"] = *primary4
	}
	if primary6 != nil && !reconcile.Equal(vm.PrimaryIP6ID, primary6) {
		values["primary_ip6_id"] = *primary6
	}
	if len(values) == 0 {
		return nil
	}
	if !c.opts.DryRun {
		if err := c.store.UpdateVirtualMachine(ctx, vm.ID, values); err != nil {
			return &ReconcileError{Instance: key, Op: "set primary ip", Err: err}
		}
	}
	vm.PrimaryIP4ID, vm.PrimaryIP6ID = firstNonNil(primary4, vm.PrimaryIP4ID), firstNonNil(primary6, vm.PrimaryIP6ID)
	out.PrimaryIPChanged = true
	return nil
}

func (c *ChildSyncer) syncDisks(ctx context.Context, key InstanceKey, vm *models.VirtualMachine, disks []CanonicalDisk, out *ChildOutcome) error {
	source := make(map[string]CanonicalDisk, len(disks))
	for _, d := range disks {
		source[d.Key] = d
	}

	stored := map[string]models.VirtualDisk{}
	if vm.ID != 0 {
		list, err := c.store.ListDisks(ctx, vm.ID)
		if err != nil {
			return &ReconcileError{Instance: key, Op: "list disks", Err: err}
		}
		for _, d := range list {
			stored[d.Key] = d
		}
	}

	plan := reconcile.BuildPlan(source, stored, func(s CanonicalDisk, t models.VirtualDisk) bool {
		return len(diskChanges(s, t)) > 0 || len(customChanges(t.CustomFields, diskCustomFields(s))) > 0
	})

	for _, action := range plan.Actions {
		src, cur := source[action.Key], stored[action.Key]
		switch action.Type {
		case reconcile.ActionCreate:
			disk := &models.VirtualDisk{VirtualMachineID: vm.ID, Key: src.Key, Name: src.Device, Size: src.Size}
			if !c.opts.DryRun {
				if err := c.store.CreateDisk(ctx, disk); err != nil {
					out.Disks.Failed++
					return &ReconcileError{Instance: key, Op: "create disk " + src.Key, Err: err}
				}
				if err := c.store.SetCustomFields(ctx, models.ObjectVirtualDisk, disk.ID, diskCustomFields(src)); err != nil {
					return &ReconcileError{Instance: key, Op: "set disk custom fields", Err: err}
				}
			}
			out.Disks.Created++

		case reconcile.ActionUpdate:
			cols := diskChanges(src, cur)
			custom := customChanges(cur.CustomFields, diskCustomFields(src))
			if !c.opts.DryRun {
				if len(cols) > 0 {
					if err := c.store.UpdateDisk(ctx, cur.ID, cols.Values()); err != nil {
						out.Disks.Failed++
						return &ReconcileError{Instance: key, Op: "update disk " + src.Key, Err: err}
					}
				}
				if len(custom) > 0 {
					if err := c.store.SetCustomFields(ctx, models.ObjectVirtualDisk, cur.ID, customValues(custom)); err != nil {
						return &ReconcileError{Instance: key, Op: "set disk custom fields", Err: err}
					}
				}
			}
			out.Disks.Updated++

		case reconcile.ActionKeep:
			out.Disks.Unchanged++

		case reconcile.ActionOrphan:
			if !c.opts.Prune {
				continue
			}
			if !c.opts.DryRun {
				if err := c.store.DeleteDisk(ctx, cur.ID); err != nil {
					out.Disks.Failed++
					return &ReconcileError{Instance: key, Op: "delete disk " + cur.Key, Err: err}
				}
			}
			out.Disks.Removed++
			c.logger.Info("Stale disk removed", zap.Stringer("instance", key), zap.String("disk", cur.Key))
		}
	}
	return nil
}

// adoptByMAC rekeys a source interface missing from the store onto the
// store-only record with the same MAC, so a NIC keeps one record whether it
// is named by the live guest state or by its device. Without live state the
// stored name is kept; with it the record is renamed.
func adoptByMAC(source map[string]CanonicalInterface, stored map[string]models.VMInterface) map[string]CanonicalInterface {
	byMAC := map[string]string{}
	for name, t := range stored {
		if _, ok := source[name]; ok || t.MACAddress == nil {
			continue
		}
		byMAC[*t.MACAddress] = name
	}
	if len(byMAC) == 0 {
		return source
	}

	names := make([]string, 0, len(source))
	for name := range source {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]CanonicalInterface, len(source))
	for _, name := range names {
		s := source[name]
		if _, ok := stored[name]; !ok && s.MAC != nil {
			if storedName, ok := byMAC[*s.MAC]; ok {
				delete(byMAC, *s.MAC)
				if s.Enabled == nil {
					s.Name = storedName
				}
				out[storedName] = s
				continue
			}
		}
		out[name] = s
	}
	return out
}

// interfaceChanges diffs the columns the live state reports. Values the
// instance does not report (stopped instances have no MTU) are left alone.
func interfaceChanges(s CanonicalInterface, t models.VMInterface) reconcile.Changes {
	want := map[string]any{"name": s.Name}
	if s.MAC != nil {
		want["mac_address"] = s.MAC
	}
	if s.MTU != nil {
		want["mtu"] = s.MTU
	}
	if s.Enabled != nil {
		want["enabled"] = s.Enabled
	}
	have := map[string]any{
		"name":        t.Name,
		"mac_address": t.MACAddress,
		"mtu":         t.MTU,
		"enabled":     t.Enabled,
	}
	return reconcile.DiffFields(have, want)
}

func interfaceCustomFields(s CanonicalInterface) map[string]*string {
	return present(map[string]string{
		FieldBridge:        s.Bridge,
		FieldHostInterface: s.HostInterface,
		FieldNICType:       s.NICType,
	})
}

func diskChanges(s CanonicalDisk, t models.VirtualDisk) reconcile.Changes {
	want := map[string]any{"name": s.Device}
	if s.Size != nil {
		want["size"] = s.Size
	}
	have := map[string]any{"name": t.Name, "size": t.Size}
	return reconcile.DiffFields(have, want)
}

func diskCustomFields(s CanonicalDisk) map[string]*string {
	return present(map[string]string{
		FieldMountPath:    s.MountPath,
		FieldStoragePool:  s.Pool,
		FieldVolumeSource: s.Source,
		FieldDiskRole:     s.Role,
	})
}

func firstNonNil(a, b *uint) *uint {
	if a != nil {
		return a
	}
	return b
}
