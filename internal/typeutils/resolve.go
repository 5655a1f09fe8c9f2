package typeutils

import (
	"fmt"
	"strconv"

	"github.com/roach88/typeref/internal/ir"
	"github.com/roach88/typeref/internal/schema"
)

// TypeRefToType resolves ref back to a handle in s.
//
// Placeholders resolve to the shared placeholder instances. Collections are
// reconstructed from their element references and need not have been
// registered in s. Everything else is looked up by identity and fails with
// an error matching schema.ErrNotFound when s no longer has it.
//
// Tuple elements without an element name are keyed by their positional
// index. A tuple with at least one named element resolves as a named tuple,
// so an element literally named like an index collides with that index and
// the later element wins.
func TypeRefToType(s schema.Schema, ref ir.TypeRef) (schema.Type, error) {
	switch r := ref.(type) {
	case nil:
		return nil, fmt.Errorf("resolve type ref: nil reference")
	case *ir.AnyTupleRef:
		return schema.AnyTuple, nil
	case *ir.AnyTypeRef:
		return schema.Any, nil
	case *ir.CollectionTypeRef:
		return resolveCollection(s, r)
	default:
		t, err := s.TypeByID(ref.TypeID())
		if err != nil {
			return nil, fmt.Errorf("resolve type ref %s: %w", ref.NameHint(), err)
		}
		return t, nil
	}
}

func resolveCollection(s schema.Schema, r *ir.CollectionTypeRef) (schema.Type, error) {
	switch r.Collection {
	case ir.CollectionArray:
		if len(r.Subtypes) != 1 {
			return nil, fmt.Errorf("resolve type ref %s: array has %d element types", r.Name, len(r.Subtypes))
		}
		elem, err := TypeRefToType(s, r.Subtypes[0])
		if err != nil {
			return nil, err
		}
		return s.ArrayType(elem)

	case ir.CollectionTuple:
		var (
			elems []schema.Element
			index = make(map[string]int, len(r.Subtypes))
			named bool
		)
		for i, st := range r.Subtypes {
			t, err := TypeRefToType(s, st)
			if err != nil {
				return nil, err
			}
			name := ir.ElementNameOf(st)
			if name != "" {
				named = true
			} else {
				name = strconv.Itoa(i)
			}
			if at, dup := index[name]; dup {
				elems[at].Type = t
				continue
			}
			index[name] = len(elems)
			elems = append(elems, schema.Element{Name: name, Type: t})
		}
		return s.TupleType(elems, named)
	}
	return nil, fmt.Errorf("resolve type ref %s: unknown collection %q", r.Name, r.Collection)
}

// PointerFromPtrRef resolves ref back to a pointer handle in s.
//
// Tuple indirections are rebuilt from their element name. Type indirections
// are rebuilt from their traversal-ordered endpoints, flags and declared
// cardinality. Ordinary pointers are looked up by identity.
func PointerFromPtrRef(s schema.Schema, ref ir.PtrRef) (schema.Pointer, error) {
	switch r := ref.(type) {
	case nil:
		return nil, fmt.Errorf("resolve pointer ref: nil reference")
	case *ir.TupleIndirectionRef:
		return schema.NewTupleIndirection(r.Element), nil
	case *ir.TypeIndirectionRef:
		source, err := TypeRefToType(s, r.OutSource)
		if err != nil {
			return nil, fmt.Errorf("resolve pointer ref %s: source: %w", r.Name, err)
		}
		target, err := TypeRefToType(s, r.OutTarget)
		if err != nil {
			return nil, fmt.Errorf("resolve pointer ref %s: target: %w", r.Name, err)
		}
		return &schema.TypeIndirection{
			Source:      source,
			Target:      target,
			Optional:    r.Optional,
			Ancestral:   r.Ancestral,
			Cardinality: r.OutCardinality,
		}, nil
	case *ir.PointerRef:
		p, err := s.PointerByID(r.ID)
		if err != nil {
			return nil, fmt.Errorf("resolve pointer ref %s: %w", r.Name, err)
		}
		return p, nil
	}
	return nil, fmt.Errorf("resolve pointer ref: unsupported %T", ref)
}
