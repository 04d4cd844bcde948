package instancesync

import (
	"fmt"

	"incus-sync/core/reconcile"
)

// Custom fields written on machines.
const (
	FieldUUID     = "incus_uuid"
	FieldType     = "incus_type"
	FieldImage    = "incus_image"
	FieldCreated  = "incus_created"
	FieldProfiles = "incus_profiles"
	FieldLocation = "incus_location"
	FieldStatus   = "incus_status"
	FieldLastSync = "incus_last_sync"
)

// Custom fields written on interfaces and disks.
const (
	FieldBridge        = "incus_bridge"
	FieldHostInterface = "incus_host_interface"
	FieldNICType       = "incus_nic_type"
	FieldMountPath     = "incus_mount_path"
	FieldStoragePool   = "incus_storage_pool"
	FieldVolumeSource  = "incus_volume_source"
	FieldDiskRole      = "incus_disk_role"
)

// optional returns nil for an empty value so the field gets cleared.
func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// present keeps the non-empty values only, so absent data never clears a field.
func present(values map[string]string) map[string]*string {
	out := make(map[string]*string, len(values))
	for k, v := range values {
		if v != "" {
			out[k] = &v
		}
	}
	return out
}

// customChanges diffs desired custom field values against the stored ones.
// Fields not named in desired are ignored.
func customChanges(stored map[string]string, desired map[string]*string) reconcile.Changes {
	have := make(map[string]any, len(desired))
	want := make(map[string]any, len(desired))
	for k, v := range desired {
		want[k] = v
		if sv, ok := stored[k]; ok {
			have[k] = sv
		}
	}
	return reconcile.DiffFields(have, want)
}

// customValues turns custom field changes into store values; nil deletes.
func customValues(changes reconcile.Changes) map[string]*string {
	out := make(map[string]*string, len(changes))
	for _, ch := range changes {
		if ch.To == nil {
			out[ch.Field] = nil
			continue
		}
		s := fmt.Sprint(ch.To)
		out[ch.Field] = &s
	}
	return out
}

// nonNil keeps the set values only, for the initial write of a new record.
func nonNil(values map[string]*string) map[string]*string {
	out := make(map[string]*string, len(values))
	for k, v := range values {
		if v != nil {
			out[k] = v
		}
	}
	return out
}
