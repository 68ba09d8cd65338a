// Package store provides SQLite-backed storage for local objects.
//
// The store keeps three tables:
//   - objects: one row per local object (entity, identifier, modification
//     time, archived system fields and canonical JSON attributes)
//   - links: resolved relationship links, to-one and to-many
//   - pending_links: references captured during hydration whose
//     destination object is not stored yet
//
// # Reference Resolution
//
// Hydrating a record yields pending references keyed by relationship
// name. ResolveReferences links each one whose destination is stored and
// parks the rest in pending_links. ResolvePending retries parked
// references after more objects arrive. A reference is matched by
// destination entity and record name; the record name of a record is the
// local identifier of its object.
//
// # Deterministic Results
//
// Listings order by local_id COLLATE BINARY, and to-many links keep their
// position, so reading the same database always yields the same objects
// in the same order.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
