// Package inventory is the asset inventory the sync engine writes into.
//
// The data model follows the NetBox virtualization schema: clusters and their
// types, virtual machines, VM interfaces, IP addresses, virtual disks, and
// append-only journal entries. Hypervisor specific attributes are stored as
// custom field values, one row per (object, field), so that writing one
// attribute never rewrites another.
//
// # Store
//
// Store is the contract used by the engine. GormStore implements it on MySQL
// or SQLite. Its guarantees:
//   - a virtual machine is unique by (source host, name)
//   - a cluster is unique by (type, name); a losing concurrent create gets ErrConflict
//   - updates only touch the columns passed in
//   - custom field writes are per field; nil deletes the field
//
// Columns that the engine does not own (description, comments) are left to
// operators and other integrations.
//
// # Testing
//
// The inventorytest package opens a migrated in-memory inventory and counts
// every write, which makes "no write on unchanged input" directly assertable.
package inventory
