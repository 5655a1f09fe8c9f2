package typeutils

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/typeref/internal/ir"
	"github.com/roach88/typeref/internal/schema"
)

// Builder converts schema entities into IR references against one schema
// snapshot. References built by the same Builder are memoized per input
// identity, so shared subtrees are built once and returned as the same
// value.
//
// A Builder is not safe for concurrent use. Create one per goroutine, or use
// the package-level functions which create a fresh Builder per call.
type Builder struct {
	schema schema.Schema

	types map[typeKey]ir.TypeRef
	ptrs  map[ptrKey]ir.PtrRef

	// in-progress markers; re-entering one means the schema is cyclic
	buildingTypes map[typeKey]bool
	buildingPtrs  map[ptrKey]bool
}

type typeKey struct {
	id       uuid.UUID
	typeName string
	element  string
}

type ptrKey struct {
	id        uuid.UUID
	direction ir.Direction
	source    ir.RefKey
	target    ir.RefKey
	parent    ir.RefKey
}

// NewBuilder creates a Builder reading from s.
func NewBuilder(s schema.Schema) *Builder {
	return &Builder{
		schema:        s,
		types:         make(map[typeKey]ir.TypeRef),
		ptrs:          make(map[ptrKey]ir.PtrRef),
		buildingTypes: make(map[typeKey]bool),
		buildingPtrs:  make(map[ptrKey]bool),
	}
}

// Schema returns the snapshot the Builder reads from.
func (b *Builder) Schema() schema.Schema {
	return b.schema
}

// TypeRefOption configures TypeRef.
type TypeRefOption func(*typeRefOptions)

type typeRefOptions struct {
	typeName string
}

// WithTypeName overrides the display name of the built reference. Only the
// outermost reference is affected; nested references keep their own names.
func WithTypeName(name string) TypeRefOption {
	return func(o *typeRefOptions) {
		o.typeName = name
	}
}

// TypeToTypeRef builds the reference for t in s.
func TypeToTypeRef(s schema.Schema, t schema.Type, opts ...TypeRefOption) (ir.TypeRef, error) {
	return NewBuilder(s).TypeRef(t, opts...)
}

// PtrRefFromPointer builds the reference for req.Pointer in s.
func PtrRefFromPointer(s schema.Schema, req PtrRefRequest) (ir.PtrRef, error) {
	return NewBuilder(s).PtrRef(req)
}

// CycleError reports a schema whose references would contain themselves.
type CycleError struct {
	Name string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("reference cycle through %s", e.Name)
}
