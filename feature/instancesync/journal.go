package instancesync

import (
	"context"
	"fmt"
	"strings"

	"incus-sync/core/reconcile"
	"incus-sync/core/utils"
	"incus-sync/feature/inventory"
	"incus-sync/feature/inventory/models"

	"go.uber.org/zap"
)

// Journal records a history entry on a machine when a pass changed
// something visible to operators.
type Journal struct {
	store  inventory.Store
	dryRun bool
	logger *zap.Logger
}

// NewJournal creates a journal emitter.
func NewJournal(store inventory.Store, dryRun bool, logger *zap.Logger) *Journal {
	return &Journal{store: store, dryRun: dryRun, logger: logger}
}

// Emit writes the entry for one reconciled instance, if any, and returns it.
// Unchanged machines and changes nobody would read about (custom fields,
// interface MTU) produce no entry.
func (j *Journal) Emit(ctx context.Context, key InstanceKey, out *ReconcileOutcome, children *ChildOutcome) (*models.JournalEntry, error) {
	text := JournalText(out, children)
	if text == "" {
		return nil, nil
	}

	entry := &models.JournalEntry{
		VirtualMachineID: out.Machine.ID,
		Kind:             journalKind(out),
		Comments:         text,
	}
	if j.dryRun {
		return entry, nil
	}
	if err := j.store.AddJournalEntry(ctx, entry); err != nil {
		return nil, &ReconcileError{Instance: key, Op: "add journal entry", Err: err}
	}
	j.logger.Debug("Journal entry recorded", zap.Stringer("instance", key), zap.String("text", text))
	return entry, nil
}

// JournalText renders the deterministic summary of a pass, or "" when no
// visible field changed.
func JournalText(out *ReconcileOutcome, children *ChildOutcome) string {
	if out == nil || (out.Outcome != reconcile.OutcomeCreated && out.Outcome != reconcile.OutcomeUpdated && !children.visible()) {
		return ""
	}

	var parts []string
	if out.Outcome == reconcile.OutcomeCreated {
		parts = append(parts, createdText(out.Machine))
	} else {
		for _, field := range []string{"status", "vcpus", "memory", "disk"} {
			if ch := out.Changes.Get(field); ch != nil {
				parts = append(parts, fmt.Sprintf("%s changed from %s to %s", fieldLabel(field), display(field, ch.From), display(field, ch.To)))
			}
		}
		for _, slug := range out.Tags.Added {
			parts = append(parts, "tag "+slug+" added")
		}
		for _, slug := range out.Tags.Removed {
			parts = append(parts, "tag "+slug+" removed")
		}
	}

	if children != nil {
		parts = appendCount(parts, children.Interfaces.Created, "interface", "interfaces", "added")
		parts = appendCount(parts, children.Interfaces.Removed, "interface", "interfaces", "removed")
		parts = appendCount(parts, children.IPAddresses.Created, "IP address", "IP addresses", "added")
		parts = appendCount(parts, children.Disks.Created, "disk", "disks", "added")
		parts = appendCount(parts, children.Disks.Removed, "disk", "disks", "removed")
	}
	return strings.Join(parts, "; ")
}

func (o *ChildOutcome) visible() bool {
	return o != nil && (o.Interfaces.Created+o.Interfaces.Removed+o.IPAddresses.Created+o.Disks.Created+o.Disks.Removed) > 0
}

func journalKind(out *ReconcileOutcome) string {
	if out.Outcome == reconcile.OutcomeCreated {
		return models.JournalSuccess
	}
	if ch := out.Changes.Get("status"); ch != nil && ch.To == models.StatusOffline {
		return models.JournalWarning
	}
	return models.JournalInfo
}

func createdText(vm *models.VirtualMachine) string {
	facts := []string{"status " + vm.Status}
	if vm.VCPUs != nil {
		facts = append(facts, fmt.Sprintf("%d vCPU", *vm.VCPUs))
	}
	if vm.Memory != nil {
		facts = append(facts, utils.FormatBytes(*vm.Memory)+" memory")
	}
	if vm.Disk != nil {
		facts = append(facts, utils.FormatBytes(*vm.Disk)+" disk")
	}
	return "created with " + strings.Join(facts, ", ")
}

func fieldLabel(field string) string {
	if field == "vcpus" {
		return "vCPUs"
	}
	return field
}

func display(field string, v any) string {
	if v == nil {
		return "none"
	}
	if n, ok := v.(int64); ok && (field == "memory" || field == "disk") {
		return utils.FormatBytes(n)
	}
	return fmt.Sprint(v)
}

func appendCount(parts []string, n int, one, many, verb string) []string {
	switch {
	case n == 1:
		return append(parts, fmt.Sprintf("1 %s %s", one, verb))
	case n > 1:
		return append(parts, fmt.Sprintf("%d %s %s", n, many, verb))
	}
	return parts
}
