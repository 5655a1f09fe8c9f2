package schema

import (
	"github.com/google/uuid"

	"github.com/roach88/typeref/internal/ir"
)

// Fixed identities of the generic placeholders.
var (
	AnyTypeID  = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	AnyTupleID = uuid.MustParse("00000000-0000-0000-0000-000000000002")
)

// pseudoType is a generic placeholder. Instances are shared singletons.
type pseudoType struct {
	id   uuid.UUID
	name ir.QualName
	kind Kind
}

func (p *pseudoType) ID() uuid.UUID     { return p.id }
func (p *pseudoType) Name() ir.QualName { return p.name }
func (p *pseudoType) Kind() Kind        { return p.kind }

var (
	// Any is the shared "anytype" placeholder instance.
	Any Type = &pseudoType{id: AnyTypeID, name: ir.QualName{Name: "anytype"}, kind: KindAny}

	// AnyTuple is the shared "anytuple" placeholder instance.
	AnyTuple Type = &pseudoType{id: AnyTupleID, name: ir.QualName{Name: "anytuple"}, kind: KindAnyTuple}
)

// Module names reserved for pseudo pointer names.
const (
	TupleModule = "__tuple__"
	TypeModule  = "__type__"
)

// TupleIndirection accesses a tuple element as if it were a pointer.
// It never has a persisted identity.
type TupleIndirection struct {
	// Element is the element name, or its stringified positional index.
	Element string
}

// NewTupleIndirection creates a tuple indirection keyed by element name.
func NewTupleIndirection(element string) *TupleIndirection {
	return &TupleIndirection{Element: element}
}

// ID implements Pointer. Always uuid.Nil.
func (p *TupleIndirection) ID() uuid.UUID { return uuid.Nil }

// Name implements Pointer.
func (p *TupleIndirection) Name() ir.QualName {
	return ir.QualName{Module: TupleModule, Name: p.Element}
}

// ShortName implements Pointer.
func (p *TupleIndirection) ShortName() ir.QualName { return p.Name() }

// TypeIndirection narrows a value's type along the inheritance lattice.
// It never has a persisted identity.
type TypeIndirection struct {
	Source      Type
	Target      Type
	Optional    bool
	Ancestral   bool
	Cardinality ir.Cardinality
}

// ID implements Pointer. Always uuid.Nil.
func (p *TypeIndirection) ID() uuid.UUID { return uuid.Nil }

// Name implements Pointer. The name is derived from the narrowed type.
func (p *TypeIndirection) Name() ir.QualName {
	target := "?"
	if p.Target != nil {
		target = p.Target.Name().String()
	}
	return ir.QualName{Module: TypeModule, Name: "[IS " + target + "]"}
}

// ShortName implements Pointer.
func (p *TypeIndirection) ShortName() ir.QualName { return p.Name() }
