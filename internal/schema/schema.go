package schema

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/typeref/internal/ir"
)

// Kind is the closed set of schema type kinds.
type Kind int

const (
	KindScalar Kind = iota + 1
	KindObject
	KindArray
	KindTuple
	KindAny
	KindAnyTuple
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	case KindTuple:
		return "tuple"
	case KindAny:
		return "anytype"
	case KindAnyTuple:
		return "anytuple"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// IsCollection reports whether k is an array or tuple kind.
func (k Kind) IsCollection() bool {
	return k == KindArray || k == KindTuple
}

// Type is a handle to a schema type. Views are object or scalar types for
// which Schema.IsView reports true.
type Type interface {
	ID() uuid.UUID
	Name() ir.QualName
	Kind() Kind
}

// Pointer is a handle to a schema pointer (property or link), or to one of
// the pseudo pointers TupleIndirection and TypeIndirection.
type Pointer interface {
	// ID returns uuid.Nil for pseudo pointers.
	ID() uuid.UUID
	Name() ir.QualName
	ShortName() ir.QualName
}

// Element is one collection subtype. Name is empty for arrays and
// positional tuples.
type Element struct {
	Name string
	Type Type
}

// Module is a schema module.
type Module struct {
	ID   uuid.UUID
	Name string
}

// Schema is the read-only capability surface the reference builders and
// resolvers consume. Implementations must be safe for concurrent readers and
// must not change while a conversion call is running.
type Schema interface {
	// TypeByID looks up a type. Unknown identities return a *LookupError.
	TypeByID(id uuid.UUID) (Type, error)
	// PointerByID looks up a pointer. Unknown identities return a *LookupError.
	PointerByID(id uuid.UUID) (Pointer, error)
	// ModuleByName looks up a module by its qualified name.
	ModuleByName(name string) (Module, error)

	IsVirtual(t Type) bool
	IsAbstract(t Type) bool
	IsView(t Type) bool

	// Children returns the concrete alternatives of a virtual type.
	Children(t Type) []Type
	// NearestCommonAncestor returns the closest type every input inherits from.
	NearestCommonAncestor(types []Type) (Type, error)
	// MaterialType returns the non-view type underlying t, or t itself.
	MaterialType(t Type) Type
	// TopmostConcreteBase returns, for a scalar derived from an abstract
	// scalar, its topmost concrete ancestor; otherwise t itself.
	TopmostConcreteBase(t Type) Type
	// Descendants returns every transitive subtype of an object type.
	Descendants(t Type) []Type
	// Subtypes returns the elements of a collection type in declared order.
	Subtypes(t Type) (elems []Element, named bool)

	// Cardinality returns the declared outbound cardinality, possibly unknown.
	Cardinality(p Pointer) ir.Cardinality
	// Singular reports whether p yields at most one value in direction dir.
	Singular(p Pointer, dir ir.Direction) bool
	Source(p Pointer) Type
	Target(p Pointer) Type
	// PointerOn finds the pointer named shortName on t, own or inherited.
	PointerOn(t Type, shortName string) (Pointer, bool)
	// MaterialPointer returns the non-view pointer underlying p, or p itself.
	MaterialPointer(p Pointer) Pointer
	// DerivedFrom returns the pointer a computed pointer derives from.
	DerivedFrom(p Pointer) (Pointer, bool)
	// NearestNonDerivedParent walks the derivation chain to its root.
	NearestNonDerivedParent(p Pointer) Pointer
	HasUserProperties(p Pointer) bool
	Required(p Pointer) bool

	// TupleType constructs or looks up a tuple type.
	TupleType(elems []Element, named bool) (Type, error)
	// ArrayType constructs or looks up an array type.
	ArrayType(elem Type) (Type, error)
}

// IsScalar reports whether t is a scalar type.
func IsScalar(t Type) bool {
	return t.Kind() == KindScalar
}
