// Package ir provides the immutable reference values consumed by the query
// compiler: type references and pointer references.
//
// This package contains value types only. All other internal packages
// import ir; ir imports nothing internal. References never point back into
// a live schema, so they can be retained after the schema changes, shared
// between goroutines without locking, and used as cache keys.
//
// Key design constraints:
//   - TypeRef and PtrRef are sealed interfaces; the variants in this package
//     are the complete set
//   - References are never mutated after construction
//   - Sets (children, descendants) are kept sorted by content key so that
//     build order never changes equality
//   - Equality and hashing go through Key(), a SHA-256 digest of RFC 8785
//     canonical JSON with domain separation
package ir
