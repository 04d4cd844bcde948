package instancesync

import (
	"slices"

	"incus-sync/feature/inventory/models"
)

// Tags owned by the sync. Any other tag on a machine belongs to operators.
const (
	TagManaged   = "incus-managed"
	TagContainer = "incus-container"
	TagVM        = "incus-vm"
)

var syncTags = []struct {
	slug, name, color string
}{
	{TagContainer, "Incus Container", "2196f3"},
	{TagVM, "Incus Virtual Machine", "9c27b0"},
	{TagManaged, "Managed by Incus Sync", "4caf50"},
}

// TypeTag returns the tag marking the instance type.
func TypeTag(instanceType string) string {
	if instanceType == "container" {
		return TagContainer
	}
	return TagVM
}

// TagChanges lists the sync-owned tags assigned to or taken off a machine.
type TagChanges struct {
	Added   []string `json:"added,omitempty"`
	Removed []string `json:"removed,omitempty"`
}

// Empty reports whether the tag set is already right.
func (c TagChanges) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0
}

func wantedTags(inst CanonicalInstance) []string {
	want := []string{TagManaged, TypeTag(inst.Type)}
	slices.Sort(want)
	return want
}

// diffTags compares the tags stored on a machine with the ones inst should
// carry. It returns the changes and the ids of the stored tags to take off.
func diffTags(inst CanonicalInstance, stored []models.Tag) (TagChanges, []uint) {
	want := wantedTags(inst)
	have := make(map[string]bool, len(stored))

	var (
		changes TagChanges
		remove  []uint
	)
	for _, t := range stored {
		have[t.Slug] = true
		if ownedTag(t.Slug) && !slices.Contains(want, t.Slug) {
			changes.Removed = append(changes.Removed, t.Slug)
			remove = append(remove, t.ID)
		}
	}
	for _, slug := range want {
		if !have[slug] {
			changes.Added = append(changes.Added, slug)
		}
	}
	return changes, remove
}

func ownedTag(slug string) bool {
	return slug == TagManaged || slug == TagContainer || slug == TagVM
}
