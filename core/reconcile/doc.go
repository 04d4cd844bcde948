// Package reconcile provides the generic diffing primitives of the sync engine.
//
// Two shapes of comparison are needed when mirroring hypervisor state into the
// inventory, and both live here so that feature code only supplies the domain values.
//
// # Field Diff
//
// DiffFields compares the desired values of the fields the engine owns against
// the stored values and returns only those that differ. Fields absent from the
// desired map are never reported, which keeps operator-owned columns out of every
// write. An empty Changes means the record must not be written at all.
//
// # Keyed Plan
//
// BuildPlan computes the symmetric difference between source records and store
// records keyed by their stable identity within a parent (interface name, disk
// mount path). Each key gets exactly one Action: create, update, keep, or orphan.
// Orphans are only acted upon when Options.Prune is set.
//
// # Usage Example
//
//	changes := reconcile.DiffFields(storedColumns, desiredColumns)
//	if len(changes) > 0 {
//	    db.Model(vm).Updates(changes.Values())
//	}
//
//	plan := reconcile.BuildPlan(canonicalByName, storedByName, interfaceDiffers)
//	for _, key := range plan.Keys(reconcile.ActionCreate) { ... }
package reconcile
