package schema

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrNotFound is wrapped by every lookup failure. It signals a stale
// reference/snapshot pairing and must not be recovered from silently.
var ErrNotFound = errors.New("not found in schema")

// LookupKind names the entity a lookup was looking for.
type LookupKind string

const (
	LookupType    LookupKind = "type"
	LookupPointer LookupKind = "pointer"
	LookupModule  LookupKind = "module"
)

// LookupError reports an identity or name absent from the snapshot.
type LookupError struct {
	Kind LookupKind
	ID   uuid.UUID // zero for name lookups
	Name string    // empty for identity lookups
}

// Error implements the error interface.
func (e *LookupError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s %q not found in schema", e.Kind, e.Name)
	}
	return fmt.Sprintf("%s %s not found in schema", e.Kind, e.ID)
}

// Unwrap returns ErrNotFound.
func (e *LookupError) Unwrap() error {
	return ErrNotFound
}

// IsNotFound returns true if err is a lookup failure.
// Uses errors.Is to handle wrapped errors.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
