package schema

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/roach88/typeref/internal/ir"
)

// collectionNamespace seeds the name-based identities of collection types.
var collectionNamespace = uuid.MustParse("6f0c9e52-6a7b-5d7e-9f1a-2c3b4d5e6f70")

// collectionType is an array or tuple type. Two collections with equal
// structure get equal identities.
type collectionType struct {
	id    uuid.UUID
	name  string
	kind  Kind
	elems []Element
	named bool
}

func (c *collectionType) ID() uuid.UUID     { return c.id }
func (c *collectionType) Name() ir.QualName { return ir.QualName{Name: c.name} }
func (c *collectionType) Kind() Kind        { return c.kind }

func newArrayType(elem Type) *collectionType {
	name := "array<" + elem.Name().String() + ">"
	return &collectionType{
		id:    collectionID(name),
		name:  name,
		kind:  KindArray,
		elems: []Element{{Type: elem}},
	}
}

func newTupleType(elems []Element, named bool) *collectionType {
	var sb strings.Builder
	sb.WriteString("tuple<")
	for i, e := range elems {
		if i > 0 {
			sb.WriteString(", ")
		}
		if named {
			sb.WriteString(e.Name)
			sb.WriteString(": ")
		}
		sb.WriteString(e.Type.Name().String())
	}
	sb.WriteString(">")

	// Positional elements are keyed by index. The keys stay out of the name
	// so identity only depends on the element types.
	stored := make([]Element, len(elems))
	copy(stored, elems)
	if !named {
		for i := range stored {
			stored[i].Name = strconv.Itoa(i)
		}
	}
	return &collectionType{
		id:    collectionID(sb.String()),
		name:  sb.String(),
		kind:  KindTuple,
		elems: stored,
		named: named,
	}
}

func collectionID(name string) uuid.UUID {
	return uuid.NewSHA1(collectionNamespace, []byte(name))
}
