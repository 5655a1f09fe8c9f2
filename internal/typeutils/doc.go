// Package typeutils converts between schema entities and IR references.
//
// Builders turn a schema.Type into an ir.TypeRef and a schema.Pointer into
// an ir.PtrRef. Resolvers go the other way when a later compiler phase needs
// a schema capability the IR does not carry. Classification predicates
// answer kind questions from a reference alone, without touching a schema.
//
//	[schema.Schema] --Builder--> [ir.TypeRef / ir.PtrRef] --Resolver--> [schema handle]
//
// Every function here is pure with respect to the schema snapshot it is
// given: nothing is mutated, nothing blocks, and building the same entity
// twice yields references with equal keys. A Builder memoizes within its own
// lifetime only; callers that want cross-call caching add their own (see
// internal/refcache).
//
// Round-trip contract: for any reference whose identity still resolves in a
// snapshot, resolving a freshly built reference yields a handle with the
// original identity; collection references yield a structurally equal
// collection type.
package typeutils
