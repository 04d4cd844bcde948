// Package instancesync reconciles Incus instances into the inventory.
//
// One host pass runs the pipeline:
//
//	connect -> handshake -> fetch -> Normalize -> Topology.Resolve
//	        -> Reconciler.Reconcile -> ChildSyncer.Sync -> Journal.Emit
//
// The Orchestrator runs passes over several hosts concurrently and
// aggregates one SyncResult per host into a RunResult. A failing host is
// reported with a failure kind (connection, fetch, topology, cancelled) and
// never stops its siblings; a failing instance is recorded and skipped.
//
// Writes are field-level: only owned columns and custom fields that differ
// from the stored values are written, so a pass without changes on the Incus
// side issues no write at all. Interfaces and disks the host no longer
// reports are kept unless pruning is enabled.
//
// # Routes
//
//   - POST /sync: sync every enabled host
//   - POST /sync/:host: sync one host
//   - GET /sync/last: latest run of this process
//   - GET /sync/reports, GET /sync/reports/*: archived runs
package instancesync
