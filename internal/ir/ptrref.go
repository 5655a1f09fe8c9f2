package ir

import (
	"cmp"
	"slices"

	"github.com/google/uuid"
)

// PtrRef is an immutable reference to a pointer (edge).
//
// This is a sealed interface - only types in this package implement it.
// Variants:
//   - *PointerRef: an ordinary schema pointer with a standing identity
//   - *TupleIndirectionRef: a tuple element accessed as a pseudo-edge
//   - *TypeIndirectionRef: a narrowing along the inheritance lattice
//
// Only *PointerRef carries an ID and module ID; the pseudo-edges have no
// schema identity.
type PtrRef interface {
	Canonical
	ptrRef() // Marker method - seals interface to this package

	// Base returns the fields shared by all variants.
	Base() *BasePtrRef

	// Key returns the content-addressed key of the reference.
	Key() RefKey
}

// BasePtrRef holds the fields shared by every pointer reference variant.
//
// DirSource/DirTarget follow the declared direction of the pointer and never
// change with traversal. OutSource/OutTarget follow the traversal direction
// and are swapped when Direction is Inbound.
type BasePtrRef struct {
	Name      QualName
	ShortName QualName

	DirSource TypeRef
	DirTarget TypeRef
	OutSource TypeRef
	OutTarget TypeRef

	Direction Direction

	// DirCardinality is the cardinality in the traversal direction.
	DirCardinality Cardinality
	// OutCardinality is the declared outbound cardinality of the pointer.
	OutCardinality Cardinality

	Required      bool
	HasProperties bool

	MaterialPtr    PtrRef
	DerivedFromPtr PtrRef
	Descendants    []PtrRef // sorted by Key
	ParentPtr      PtrRef
}

// Base implements PtrRef.
func (b *BasePtrRef) Base() *BasePtrRef { return b }

func (b *BasePtrRef) canonicalBase(kind string) objNode {
	obj := objNode{
		"kind":       strNode(kind),
		"name":       strNode(b.Name.String()),
		"shortname":  strNode(b.ShortName.String()),
		"direction":  strNode(b.Direction.String()),
		"required":   boolNode(b.Required),
		"properties": boolNode(b.HasProperties),
	}
	obj.set("dir_source", typeRefNode(b.DirSource))
	obj.set("dir_target", typeRefNode(b.DirTarget))
	obj.set("out_source", typeRefNode(b.OutSource))
	obj.set("out_target", typeRefNode(b.OutTarget))
	if b.DirCardinality.IsKnown() {
		obj["dir_cardinality"] = strNode(b.DirCardinality.String())
	}
	if b.OutCardinality.IsKnown() {
		obj["out_cardinality"] = strNode(b.OutCardinality.String())
	}
	obj.set("material_ptr", ptrRefNode(b.MaterialPtr))
	obj.set("derived_from_ptr", ptrRefNode(b.DerivedFromPtr))
	obj.set("parent_ptr", ptrRefNode(b.ParentPtr))
	if len(b.Descendants) > 0 {
		list := make(listNode, len(b.Descendants))
		for i, d := range b.Descendants {
			list[i] = d.canonical()
		}
		obj["descendants"] = list
	}
	return obj
}

// PointerRef references an ordinary schema pointer.
type PointerRef struct {
	BasePtrRef
	ID       uuid.UUID
	ModuleID uuid.UUID
}

func (*PointerRef) ptrRef() {}

// Key implements PtrRef.
func (r *PointerRef) Key() RefKey { return ptrRefKey(r) }

func (r *PointerRef) String() string { return r.ShortName.String() }

func (r *PointerRef) canonical() objNode {
	obj := r.canonicalBase("pointer")
	obj["id"] = strNode(r.ID.String())
	obj["module_id"] = strNode(r.ModuleID.String())
	return obj
}

// TupleIndirectionRef addresses a tuple element as a pseudo-edge.
// Element is the explicit element name, or the stringified positional
// index for unnamed elements.
type TupleIndirectionRef struct {
	BasePtrRef
	Element string
}

func (*TupleIndirectionRef) ptrRef() {}

// Key implements PtrRef.
func (r *TupleIndirectionRef) Key() RefKey { return ptrRefKey(r) }

func (r *TupleIndirectionRef) String() string { return "." + r.Element }

func (r *TupleIndirectionRef) canonical() objNode {
	obj := r.canonicalBase("tuple_indirection")
	obj["element"] = strNode(r.Element)
	return obj
}

// TypeIndirectionRef represents a type intersection (downcast).
type TypeIndirectionRef struct {
	BasePtrRef
	Optional  bool
	Ancestral bool
}

func (*TypeIndirectionRef) ptrRef() {}

// Key implements PtrRef.
func (r *TypeIndirectionRef) Key() RefKey { return ptrRefKey(r) }

func (r *TypeIndirectionRef) String() string { return r.Name.Name }

func (r *TypeIndirectionRef) canonical() objNode {
	obj := r.canonicalBase("type_indirection")
	obj["optional"] = boolNode(r.Optional)
	obj["ancestral"] = boolNode(r.Ancestral)
	return obj
}

// PtrRefSet sorts refs by Key and drops duplicates.
func PtrRefSet(refs []PtrRef) []PtrRef {
	if len(refs) == 0 {
		return nil
	}
	keys := make(map[RefKey]PtrRef, len(refs))
	for _, r := range refs {
		keys[r.Key()] = r
	}
	sorted := make([]RefKey, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	slices.SortFunc(sorted, cmp.Compare[RefKey])
	out := make([]PtrRef, len(sorted))
	for i, k := range sorted {
		out[i] = keys[k]
	}
	return out
}

func ptrRefNode(r PtrRef) node {
	if r == nil {
		return nil
	}
	return r.canonical()
}
