package ir

import (
	"slices"

	"github.com/google/uuid"
)

// TypeRef is an immutable reference to a schema type.
//
// This is a sealed interface - only types in this package implement it.
// Variants:
//   - *SchemaTypeRef: scalar, object and view types
//   - *CollectionTypeRef: arrays and tuples
//   - *AnyTypeRef, *AnyTupleRef: unresolved generic placeholders
//
// Every variant is safe to share between goroutines and to compare through
// Key().
type TypeRef interface {
	Canonical
	typeRef() // Marker method - seals interface to this package

	// TypeID returns the identity of the referenced type.
	TypeID() uuid.UUID

	// NameHint returns the display name carried by the reference.
	NameHint() string

	// Key returns the content-addressed key of the reference.
	Key() RefKey
}

// SchemaTypeRef references a scalar, object or view type.
//
// MaterialType is set iff the type is a view. BaseType is set iff the type
// is a concrete scalar whose topmost concrete ancestor below an abstract
// scalar differs from itself. Children and CommonParent are set together,
// only for virtual object types.
type SchemaTypeRef struct {
	ID       uuid.UUID
	ModuleID uuid.UUID
	Name     string

	// ElementName is set when the reference is a tuple element.
	ElementName string

	MaterialType TypeRef
	BaseType     TypeRef
	Children     []TypeRef // sorted by Key
	CommonParent TypeRef

	IsScalar   bool
	IsAbstract bool
	IsView     bool
}

func (*SchemaTypeRef) typeRef() {}

// TypeID implements TypeRef.
func (r *SchemaTypeRef) TypeID() uuid.UUID { return r.ID }

// NameHint implements TypeRef.
func (r *SchemaTypeRef) NameHint() string { return r.Name }

// Key implements TypeRef.
func (r *SchemaTypeRef) Key() RefKey { return typeRefKey(r) }

func (r *SchemaTypeRef) String() string { return r.Name }

func (r *SchemaTypeRef) canonical() objNode {
	obj := objNode{
		"kind":        strNode("type"),
		"id":          strNode(r.ID.String()),
		"module_id":   strNode(r.ModuleID.String()),
		"name":        strNode(r.Name),
		"is_scalar":   boolNode(r.IsScalar),
		"is_abstract": boolNode(r.IsAbstract),
		"is_view":     boolNode(r.IsView),
	}
	if r.ElementName != "" {
		obj["element_name"] = strNode(r.ElementName)
	}
	obj.set("material_type", typeRefNode(r.MaterialType))
	obj.set("base_type", typeRefNode(r.BaseType))
	obj.set("common_parent", typeRefNode(r.CommonParent))
	if len(r.Children) > 0 {
		obj["children"] = typeRefList(r.Children)
	}
	return obj
}

// CollectionTypeRef references an array or tuple type. Subtypes keep the
// declared element order; elements of named tuples carry ElementName.
type CollectionTypeRef struct {
	ID          uuid.UUID
	Name        string
	ElementName string
	Collection  CollectionKind
	Subtypes    []TypeRef
}

func (*CollectionTypeRef) typeRef() {}

// TypeID implements TypeRef.
func (r *CollectionTypeRef) TypeID() uuid.UUID { return r.ID }

// NameHint implements TypeRef.
func (r *CollectionTypeRef) NameHint() string { return r.Name }

// Key implements TypeRef.
func (r *CollectionTypeRef) Key() RefKey { return typeRefKey(r) }

func (r *CollectionTypeRef) String() string { return r.Name }

func (r *CollectionTypeRef) canonical() objNode {
	obj := objNode{
		"kind":       strNode("collection"),
		"id":         strNode(r.ID.String()),
		"name":       strNode(r.Name),
		"collection": strNode(string(r.Collection)),
		"subtypes":   typeRefList(r.Subtypes),
	}
	if r.ElementName != "" {
		obj["element_name"] = strNode(r.ElementName)
	}
	return obj
}

// AnyTypeRef references the unresolved "anytype" placeholder.
type AnyTypeRef struct {
	ID   uuid.UUID
	Name string
}

func (*AnyTypeRef) typeRef() {}

// TypeID implements TypeRef.
func (r *AnyTypeRef) TypeID() uuid.UUID { return r.ID }

// NameHint implements TypeRef.
func (r *AnyTypeRef) NameHint() string { return r.Name }

// Key implements TypeRef.
func (r *AnyTypeRef) Key() RefKey { return typeRefKey(r) }

func (r *AnyTypeRef) String() string { return r.Name }

func (r *AnyTypeRef) canonical() objNode {
	return objNode{
		"kind": strNode("any"),
		"id":   strNode(r.ID.String()),
		"name": strNode(r.Name),
	}
}

// AnyTupleRef references the unresolved "anytuple" placeholder.
type AnyTupleRef struct {
	ID   uuid.UUID
	Name string
}

func (*AnyTupleRef) typeRef() {}

// TypeID implements TypeRef.
func (r *AnyTupleRef) TypeID() uuid.UUID { return r.ID }

// NameHint implements TypeRef.
func (r *AnyTupleRef) NameHint() string { return r.Name }

// Key implements TypeRef.
func (r *AnyTupleRef) Key() RefKey { return typeRefKey(r) }

func (r *AnyTupleRef) String() string { return r.Name }

func (r *AnyTupleRef) canonical() objNode {
	return objNode{
		"kind": strNode("anytuple"),
		"id":   strNode(r.ID.String()),
		"name": strNode(r.Name),
	}
}

// ElementNameOf returns the tuple element name carried by r, or "".
// Placeholders never carry one.
func ElementNameOf(r TypeRef) string {
	switch v := r.(type) {
	case *SchemaTypeRef:
		return v.ElementName
	case *CollectionTypeRef:
		return v.ElementName
	default:
		return ""
	}
}

// TypeRefSet sorts refs by Key and drops duplicates.
// The input slice is not modified.
func TypeRefSet(refs []TypeRef) []TypeRef {
	if len(refs) == 0 {
		return nil
	}
	type keyed struct {
		key RefKey
		ref TypeRef
	}
	items := make([]keyed, 0, len(refs))
	for _, r := range refs {
		items = append(items, keyed{r.Key(), r})
	}
	slices.SortFunc(items, func(a, b keyed) int {
		switch {
		case a.key < b.key:
			return -1
		case a.key > b.key:
			return 1
		}
		return 0
	})
	out := make([]TypeRef, 0, len(items))
	for i, it := range items {
		if i > 0 && items[i-1].key == it.key {
			continue
		}
		out = append(out, it.ref)
	}
	return out
}

func typeRefNode(r TypeRef) node {
	if r == nil {
		return nil
	}
	return r.canonical()
}

func typeRefList(refs []TypeRef) listNode {
	list := make(listNode, len(refs))
	for i, r := range refs {
		list[i] = r.canonical()
	}
	return list
}
