// Package store provides SQLite-backed persistence for built IR references.
//
// The store is a cache keyed by (snapshot version, kind, lookup key). A
// lookup key is whatever the caller used to ask for the reference, usually
// the entity identity plus build options; the stored row carries the
// encoded reference (see internal/wire) and its content key.
//
// # Critical Patterns
//
// Write-once rows:
//   - UNIQUE(snapshot, kind, lookup) with ON CONFLICT DO NOTHING
//   - References are pure functions of the snapshot, so the first write wins
//     and later writes of the same lookup are equal by construction
//
// Snapshot scoping:
//   - Rows never outlive their meaning: a row is only valid for the snapshot
//     version it was built against
//   - PruneSnapshots drops every other version
//   - Open drops rows encoded under another IR version, which lookups would
//     only report as missing
//
// Deterministic query results:
//   - All listings use ORDER BY seq ASC, lookup COLLATE BINARY ASC
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
