// Package schema defines the read-only schema capability surface consumed by
// the reference builders, and an immutable in-memory implementation of it.
//
// The Schema interface is the whole contract: the builders and resolvers in
// internal/typeutils never see anything else. A production store wraps its
// own persistent schema behind Schema; tests and the CLI use Snapshot,
// assembled with SnapshotBuilder (directly or through internal/compiler).
//
// # Identity
//
// Snapshot identities are deterministic: types, pointers and modules get
// name-based (SHA-1, RFC 4122 version 5) UUIDs, and collection types get an
// identity derived from their canonical type expression. Loading the same
// definitions in two processes therefore produces equal references, which is
// what makes references usable as cross-process cache keys.
//
// # Pseudo types and pointers
//
// Any and AnyTuple are the shared generic placeholders. TupleIndirection and
// TypeIndirection are identity-less pseudo pointers constructed on demand;
// they never appear in a snapshot.
package schema
