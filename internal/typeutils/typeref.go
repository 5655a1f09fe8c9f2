package typeutils

import (
	"fmt"

	"github.com/roach88/typeref/internal/ir"
	"github.com/roach88/typeref/internal/schema"
)

// TypeRef builds the reference for t.
//
// Scalars, objects and views become *ir.SchemaTypeRef, arrays and tuples
// *ir.CollectionTypeRef, and the placeholders their dedicated variants.
// Nested references (material type, base type, virtual children, common
// parent, collection elements) are built recursively.
func (b *Builder) TypeRef(t schema.Type, opts ...TypeRefOption) (ir.TypeRef, error) {
	if t == nil {
		return nil, fmt.Errorf("build type ref: nil type")
	}
	var o typeRefOptions
	for _, opt := range opts {
		opt(&o)
	}
	return b.typeRef(t, o.typeName, "")
}

func (b *Builder) typeRef(t schema.Type, typeName, element string) (ir.TypeRef, error) {
	key := typeKey{id: t.ID(), typeName: typeName, element: element}
	if ref, ok := b.types[key]; ok {
		return ref, nil
	}
	if b.buildingTypes[key] {
		return nil, &CycleError{Name: t.Name().String()}
	}
	b.buildingTypes[key] = true
	defer delete(b.buildingTypes, key)

	name := typeName
	if name == "" {
		name = t.Name().String()
	}

	var (
		ref ir.TypeRef
		err error
	)
	switch t.Kind() {
	case schema.KindAnyTuple:
		ref = &ir.AnyTupleRef{ID: t.ID(), Name: name}
	case schema.KindAny:
		ref = &ir.AnyTypeRef{ID: t.ID(), Name: name}
	case schema.KindArray, schema.KindTuple:
		ref, err = b.collectionRef(t, name, element)
	default:
		ref, err = b.schemaTypeRef(t, name, element)
	}
	if err != nil {
		return nil, err
	}
	b.types[key] = ref
	return ref, nil
}

func (b *Builder) schemaTypeRef(t schema.Type, name, element string) (*ir.SchemaTypeRef, error) {
	s := b.schema

	module, err := s.ModuleByName(t.Name().Module)
	if err != nil {
		return nil, fmt.Errorf("build type ref for %s: %w", t.Name(), err)
	}

	ref := &ir.SchemaTypeRef{
		ID:          t.ID(),
		ModuleID:    module.ID,
		Name:        name,
		ElementName: element,
		IsScalar:    schema.IsScalar(t),
		IsAbstract:  s.IsAbstract(t),
		IsView:      s.IsView(t),
	}

	material := s.MaterialType(t)
	if material.ID() != t.ID() {
		if ref.MaterialType, err = b.typeRef(material, "", ""); err != nil {
			return nil, err
		}
	}

	if schema.IsScalar(material) && !s.IsAbstract(material) {
		if base := s.TopmostConcreteBase(material); base.ID() != material.ID() {
			if ref.BaseType, err = b.typeRef(base, "", ""); err != nil {
				return nil, err
			}
		}
	}

	if s.IsVirtual(t) {
		members := s.Children(t)
		children := make([]ir.TypeRef, 0, len(members))
		for _, c := range members {
			child, err := b.typeRef(c, "", "")
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		if len(children) > 0 {
			ancestor, err := s.NearestCommonAncestor(members)
			if err != nil {
				return nil, fmt.Errorf("build type ref for %s: %w", t.Name(), err)
			}
			if ref.CommonParent, err = b.typeRef(ancestor, "", ""); err != nil {
				return nil, err
			}
			ref.Children = ir.TypeRefSet(children)
		}
	}
	return ref, nil
}

func (b *Builder) collectionRef(t schema.Type, name, element string) (*ir.CollectionTypeRef, error) {
	elems, named := b.schema.Subtypes(t)
	collection := ir.CollectionArray
	if t.Kind() == schema.KindTuple {
		collection = ir.CollectionTuple
	}
	subtypes := make([]ir.TypeRef, 0, len(elems))
	for _, e := range elems {
		var elemName string
		if collection == ir.CollectionTuple && named {
			elemName = e.Name
		}
		st, err := b.typeRef(e.Type, "", elemName)
		if err != nil {
			return nil, err
		}
		subtypes = append(subtypes, st)
	}
	return &ir.CollectionTypeRef{
		ID:          t.ID(),
		Name:        name,
		ElementName: element,
		Collection:  collection,
		Subtypes:    subtypes,
	}, nil
}
