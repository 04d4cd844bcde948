// Package monitoring exposes Prometheus metrics for sync runs.
//
// NewRegistry creates the registry served at /metrics. NewSyncMonitor
// registers the sync metrics on it:
//
//   - incus_sync_host_run_duration_seconds{host,state}
//   - incus_sync_instances_total{host,outcome}
//   - incus_sync_children_total{host,kind,outcome}
//   - incus_sync_host_failures_total{host,kind}
//   - incus_sync_host_last_run_timestamp_seconds{host}
package monitoring
