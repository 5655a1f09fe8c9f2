package typeutils

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/typeref/internal/ir"
	"github.com/roach88/typeref/internal/schema"
)

// PtrRefRequest describes one traversal of a pointer.
//
// Source and Target are the pointer's declared endpoints and are carried
// verbatim as the declared-direction endpoints; the traversal endpoints are
// derived from them and Direction. Parent, when set, is the pointer
// reference this traversal is nested under.
type PtrRefRequest struct {
	Source    ir.TypeRef
	Target    ir.TypeRef
	Pointer   schema.Pointer
	Direction ir.Direction
	Parent    ir.PtrRef
}

// PtrRef builds the reference for req.Pointer traversed in req.Direction.
//
// Tuple and type indirections become their pseudo variants and never carry
// identity, material, derivation or descendants. Ordinary pointers also get
// their material pointer, the nearest non-derived parent of a computed
// pointer, and one reference per distinct material pointer of the same
// short name declared on descendants of the source type.
func (b *Builder) PtrRef(req PtrRefRequest) (ir.PtrRef, error) {
	if req.Pointer == nil {
		return nil, fmt.Errorf("build pointer ref: nil pointer")
	}
	if req.Source == nil || req.Target == nil {
		return nil, fmt.Errorf("build pointer ref for %s: source and target are required", req.Pointer.Name())
	}
	keys := endpointKeys{source: req.Source.Key(), target: req.Target.Key()}
	if req.Parent != nil {
		keys.parent = req.Parent.Key()
	}
	return b.ptrRef(req, keys)
}

// endpointKeys are the content keys of a request's endpoints and parent.
// Nested references reuse the outer request's endpoints, so the keys are
// hashed once per PtrRef call.
type endpointKeys struct {
	source, target, parent ir.RefKey
}

func (b *Builder) ptrRef(req PtrRefRequest, keys endpointKeys) (ir.PtrRef, error) {
	s := b.schema
	p := req.Pointer

	base := ir.BasePtrRef{
		Name:           p.Name(),
		ShortName:      p.ShortName(),
		DirSource:      req.Source,
		DirTarget:      req.Target,
		OutSource:      req.Source,
		OutTarget:      req.Target,
		Direction:      req.Direction,
		OutCardinality: s.Cardinality(p),
		Required:       s.Required(p),
		HasProperties:  s.HasUserProperties(p),
		ParentPtr:      req.Parent,
	}
	if req.Direction == ir.Inbound {
		base.OutSource, base.OutTarget = req.Target, req.Source
	}
	if base.OutCardinality.IsKnown() {
		base.DirCardinality = ir.CardinalityMany
		if s.Singular(p, req.Direction) {
			base.DirCardinality = ir.CardinalityOne
		}
	}

	switch ptr := p.(type) {
	case *schema.TupleIndirection:
		return &ir.TupleIndirectionRef{BasePtrRef: base, Element: ptr.Element}, nil
	case *schema.TypeIndirection:
		return &ir.TypeIndirectionRef{BasePtrRef: base, Optional: ptr.Optional, Ancestral: ptr.Ancestral}, nil
	}

	key := ptrKey{
		id:        p.ID(),
		direction: req.Direction,
		source:    keys.source,
		target:    keys.target,
		parent:    keys.parent,
	}
	if ref, ok := b.ptrs[key]; ok {
		return ref, nil
	}
	if b.buildingPtrs[key] {
		return nil, &CycleError{Name: p.Name().String()}
	}
	b.buildingPtrs[key] = true
	defer delete(b.buildingPtrs, key)

	module, err := s.ModuleByName(p.Name().Module)
	if err != nil {
		return nil, fmt.Errorf("build pointer ref for %s: %w", p.Name(), err)
	}

	// Nested references share the traversal endpoints of the outer one.
	nested := func(q schema.Pointer) (ir.PtrRef, error) {
		sub := req
		sub.Pointer = q
		return b.ptrRef(sub, keys)
	}

	material := s.MaterialPointer(p)
	if material.ID() != p.ID() {
		if base.MaterialPtr, err = nested(material); err != nil {
			return nil, err
		}
	}

	if _, ok := s.DerivedFrom(p); ok {
		if base.DerivedFromPtr, err = nested(s.NearestNonDerivedParent(p)); err != nil {
			return nil, err
		}
	}

	if src := s.Source(p); src != nil && src.Kind() == schema.KindObject {
		seen := map[uuid.UUID]bool{material.ID(): true}
		var descendants []ir.PtrRef
		for _, d := range s.Descendants(src) {
			dp, ok := s.PointerOn(d, p.ShortName().Name)
			if !ok {
				continue
			}
			dm := s.MaterialPointer(dp)
			if seen[dm.ID()] {
				continue
			}
			seen[dm.ID()] = true
			ref, err := nested(dm)
			if err != nil {
				return nil, err
			}
			descendants = append(descendants, ref)
		}
		base.Descendants = ir.PtrRefSet(descendants)
	}

	ref := &ir.PointerRef{BasePtrRef: base, ID: p.ID(), ModuleID: module.ID}
	b.ptrs[key] = ref
	return ref, nil
}
