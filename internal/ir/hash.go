package ir

import (
	"crypto/sha256"
	"encoding/hex"
)

// Domain prefixes for content-addressed reference keys.
// Version suffix enables future algorithm migration.
const (
	DomainTypeRef = "typeref/typeref/v1"
	DomainPtrRef  = "typeref/ptrref/v1"
)

// RefKey is the content-addressed key of a reference: hex SHA-256 over its
// canonical JSON. Equal references have equal keys regardless of the order
// in which they were built.
type RefKey string

// Short returns the first 12 hex digits, for logs and reports.
func (k RefKey) Short() string {
	if len(k) > 12 {
		return string(k[:12])
	}
	return string(k)
}

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) RefKey {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return RefKey(hex.EncodeToString(h.Sum(nil)))
}

func typeRefKey(r TypeRef) RefKey {
	return hashWithDomain(DomainTypeRef, MarshalCanonical(r))
}

func ptrRefKey(r PtrRef) RefKey {
	return hashWithDomain(DomainPtrRef, MarshalCanonical(r))
}

// EqualTypeRefs reports whether two type references are value-equal.
// Two nils are equal.
func EqualTypeRefs(a, b TypeRef) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Key() == b.Key()
}

// EqualPtrRefs reports whether two pointer references are value-equal.
func EqualPtrRefs(a, b PtrRef) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Key() == b.Key()
}
