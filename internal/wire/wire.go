// Package wire encodes IR references as JSON for cross-process reuse.
//
// The wire form is a versioned envelope around a tree of tagged nodes. It is
// not the canonical form used for keys (see ir.MarshalCanonical); it is the
// form a plan cache stores and ships. Decoding a payload yields a reference
// whose Key() equals the key of the reference that was encoded.
package wire

import (
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/roach88/typeref/internal/ir"
)

// ErrVersionMismatch is returned when a payload was written by a different
// reference format version.
var ErrVersionMismatch = errors.New("wire: reference format version mismatch")

// Node kinds.
const (
	kindType             = "type"
	kindCollection       = "collection"
	kindAny              = "any"
	kindAnyTuple         = "anytuple"
	kindPointer          = "pointer"
	kindTupleIndirection = "tuple_indirection"
	kindTypeIndirection  = "type_indirection"
)

type envelope struct {
	Version string    `json:"version"`
	Type    *typeNode `json:"type,omitempty"`
	Ptr     *ptrNode  `json:"ptr,omitempty"`
}

type typeNode struct {
	Kind        string     `json:"kind"`
	ID          uuid.UUID  `json:"id"`
	ModuleID    *uuid.UUID `json:"module_id,omitempty"`
	Name        string     `json:"name"`
	ElementName string     `json:"element_name,omitempty"`

	Collection string      `json:"collection,omitempty"`
	Subtypes   []*typeNode `json:"subtypes,omitempty"`

	MaterialType *typeNode   `json:"material_type,omitempty"`
	BaseType     *typeNode   `json:"base_type,omitempty"`
	Children     []*typeNode `json:"children,omitempty"`
	CommonParent *typeNode   `json:"common_parent,omitempty"`

	IsScalar   bool `json:"is_scalar,omitempty"`
	IsAbstract bool `json:"is_abstract,omitempty"`
	IsView     bool `json:"is_view,omitempty"`
}

type ptrNode struct {
	Kind     string     `json:"kind"`
	ID       *uuid.UUID `json:"id,omitempty"`
	ModuleID *uuid.UUID `json:"module_id,omitempty"`

	Name      ir.QualName `json:"name"`
	ShortName ir.QualName `json:"shortname"`

	DirSource *typeNode `json:"dir_source,omitempty"`
	DirTarget *typeNode `json:"dir_target,omitempty"`
	OutSource *typeNode `json:"out_source,omitempty"`
	OutTarget *typeNode `json:"out_target,omitempty"`

	Direction      string `json:"direction"`
	DirCardinality string `json:"dir_cardinality"`
	OutCardinality string `json:"out_cardinality"`

	Required      bool `json:"required,omitempty"`
	HasProperties bool `json:"properties,omitempty"`

	MaterialPtr    *ptrNode   `json:"material_ptr,omitempty"`
	DerivedFromPtr *ptrNode   `json:"derived_from_ptr,omitempty"`
	Descendants    []*ptrNode `json:"descendants,omitempty"`
	ParentPtr      *ptrNode   `json:"parent_ptr,omitempty"`

	Element   string `json:"element,omitempty"`
	Optional  bool   `json:"optional,omitempty"`
	Ancestral bool   `json:"ancestral,omitempty"`
}

// EncodeTypeRef encodes a type reference.
func EncodeTypeRef(ref ir.TypeRef) ([]byte, error) {
	if ref == nil {
		return nil, fmt.Errorf("encode type ref: nil reference")
	}
	data, err := json.Marshal(envelope{Version: ir.IRVersion, Type: fromTypeRef(ref)})
	if err != nil {
		return nil, fmt.Errorf("encode type ref %s: %w", ref.NameHint(), err)
	}
	return data, nil
}

// DecodeTypeRef decodes a payload written by EncodeTypeRef.
func DecodeTypeRef(data []byte) (ir.TypeRef, error) {
	env, err := decodeEnvelope(data)
	if err != nil {
		return nil, err
	}
	if env.Type == nil {
		return nil, fmt.Errorf("decode type ref: payload holds no type reference")
	}
	return env.Type.toTypeRef()
}

// EncodePtrRef encodes a pointer reference.
func EncodePtrRef(ref ir.PtrRef) ([]byte, error) {
	if ref == nil {
		return nil, fmt.Errorf("encode pointer ref: nil reference")
	}
	data, err := json.Marshal(envelope{Version: ir.IRVersion, Ptr: fromPtrRef(ref)})
	if err != nil {
		return nil, fmt.Errorf("encode pointer ref %s: %w", ref.Base().Name, err)
	}
	return data, nil
}

// DecodePtrRef decodes a payload written by EncodePtrRef.
func DecodePtrRef(data []byte) (ir.PtrRef, error) {
	env, err := decodeEnvelope(data)
	if err != nil {
		return nil, err
	}
	if env.Ptr == nil {
		return nil, fmt.Errorf("decode pointer ref: payload holds no pointer reference")
	}
	return env.Ptr.toPtrRef()
}

func decodeEnvelope(data []byte) (*envelope, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode reference: %w", err)
	}
	if env.Version != ir.IRVersion {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrVersionMismatch, env.Version, ir.IRVersion)
	}
	return &env, nil
}

func fromTypeRef(ref ir.TypeRef) *typeNode {
	switch r := ref.(type) {
	case nil:
		return nil
	case *ir.AnyTypeRef:
		return &typeNode{Kind: kindAny, ID: r.ID, Name: r.Name}
	case *ir.AnyTupleRef:
		return &typeNode{Kind: kindAnyTuple, ID: r.ID, Name: r.Name}
	case *ir.CollectionTypeRef:
		return &typeNode{
			Kind:        kindCollection,
			ID:          r.ID,
			Name:        r.Name,
			ElementName: r.ElementName,
			Collection:  string(r.Collection),
			Subtypes:    fromTypeRefs(r.Subtypes),
		}
	case *ir.SchemaTypeRef:
		moduleID := r.ModuleID
		return &typeNode{
			Kind:         kindType,
			ID:           r.ID,
			ModuleID:     &moduleID,
			Name:         r.Name,
			ElementName:  r.ElementName,
			MaterialType: fromTypeRef(r.MaterialType),
			BaseType:     fromTypeRef(r.BaseType),
			Children:     fromTypeRefs(r.Children),
			CommonParent: fromTypeRef(r.CommonParent),
			IsScalar:     r.IsScalar,
			IsAbstract:   r.IsAbstract,
			IsView:       r.IsView,
		}
	}
	panic(fmt.Sprintf("wire: unhandled type ref %T", ref))
}

func fromTypeRefs(refs []ir.TypeRef) []*typeNode {
	if len(refs) == 0 {
		return nil
	}
	out := make([]*typeNode, len(refs))
	for i, r := range refs {
		out[i] = fromTypeRef(r)
	}
	return out
}

func (n *typeNode) toTypeRef() (ir.TypeRef, error) {
	if n == nil {
		return nil, nil
	}
	switch n.Kind {
	case kindAny:
		return &ir.AnyTypeRef{ID: n.ID, Name: n.Name}, nil
	case kindAnyTuple:
		return &ir.AnyTupleRef{ID: n.ID, Name: n.Name}, nil
	case kindCollection:
		collection := ir.CollectionKind(n.Collection)
		if collection != ir.CollectionArray && collection != ir.CollectionTuple {
			return nil, fmt.Errorf("decode type ref %s: unknown collection %q", n.Name, n.Collection)
		}
		subtypes, err := toTypeRefs(n.Subtypes)
		if err != nil {
			return nil, err
		}
		return &ir.CollectionTypeRef{
			ID:          n.ID,
			Name:        n.Name,
			ElementName: n.ElementName,
			Collection:  collection,
			Subtypes:    subtypes,
		}, nil
	case kindType:
		if n.ModuleID == nil {
			return nil, fmt.Errorf("decode type ref %s: missing module_id", n.Name)
		}
		ref := &ir.SchemaTypeRef{
			ID:          n.ID,
			ModuleID:    *n.ModuleID,
			Name:        n.Name,
			ElementName: n.ElementName,
			IsScalar:    n.IsScalar,
			IsAbstract:  n.IsAbstract,
			IsView:      n.IsView,
		}
		var err error
		if ref.MaterialType, err = n.MaterialType.toTypeRef(); err != nil {
			return nil, err
		}
		if ref.BaseType, err = n.BaseType.toTypeRef(); err != nil {
			return nil, err
		}
		if ref.CommonParent, err = n.CommonParent.toTypeRef(); err != nil {
			return nil, err
		}
		if ref.Children, err = toTypeRefs(n.Children); err != nil {
			return nil, err
		}
		if (ref.CommonParent == nil) != (len(ref.Children) == 0) {
			return nil, fmt.Errorf("decode type ref %s: children and common_parent must be set together", n.Name)
		}
		return ref, nil
	}
	return nil, fmt.Errorf("decode type ref %s: unknown kind %q", n.Name, n.Kind)
}

func toTypeRefs(nodes []*typeNode) ([]ir.TypeRef, error) {
	if len(nodes) == 0 {
		return nil, nil
	}
	out := make([]ir.TypeRef, len(nodes))
	for i, n := range nodes {
		if n == nil {
			return nil, fmt.Errorf("decode type ref: null element at %d", i)
		}
		r, err := n.toTypeRef()
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

func fromPtrRef(ref ir.PtrRef) *ptrNode {
	if ref == nil {
		return nil
	}
	b := ref.Base()
	n := &ptrNode{
		Name:           b.Name,
		ShortName:      b.ShortName,
		DirSource:      fromTypeRef(b.DirSource),
		DirTarget:      fromTypeRef(b.DirTarget),
		OutSource:      fromTypeRef(b.OutSource),
		OutTarget:      fromTypeRef(b.OutTarget),
		Direction:      b.Direction.String(),
		DirCardinality: b.DirCardinality.String(),
		OutCardinality: b.OutCardinality.String(),
		Required:       b.Required,
		HasProperties:  b.HasProperties,
		MaterialPtr:    fromPtrRef(b.MaterialPtr),
		DerivedFromPtr: fromPtrRef(b.DerivedFromPtr),
		ParentPtr:      fromPtrRef(b.ParentPtr),
	}
	for _, d := range b.Descendants {
		n.Descendants = append(n.Descendants, fromPtrRef(d))
	}

	switch r := ref.(type) {
	case *ir.PointerRef:
		id, moduleID := r.ID, r.ModuleID
		n.Kind = kindPointer
		n.ID = &id
		n.ModuleID = &moduleID
	case *ir.TupleIndirectionRef:
		n.Kind = kindTupleIndirection
		n.Element = r.Element
	case *ir.TypeIndirectionRef:
		n.Kind = kindTypeIndirection
		n.Optional = r.Optional
		n.Ancestral = r.Ancestral
	default:
		panic(fmt.Sprintf("wire: unhandled pointer ref %T", ref))
	}
	return n
}

func (n *ptrNode) toPtrRef() (ir.PtrRef, error) {
	if n == nil {
		return nil, nil
	}
	base, err := n.toBase()
	if err != nil {
		return nil, err
	}

	switch n.Kind {
	case kindPointer:
		if n.ID == nil || n.ModuleID == nil {
			return nil, fmt.Errorf("decode pointer ref %s: missing id or module_id", n.Name)
		}
		return &ir.PointerRef{BasePtrRef: base, ID: *n.ID, ModuleID: *n.ModuleID}, nil
	case kindTupleIndirection:
		if n.ID != nil {
			return nil, fmt.Errorf("decode pointer ref %s: tuple indirection has an id", n.Name)
		}
		return &ir.TupleIndirectionRef{BasePtrRef: base, Element: n.Element}, nil
	case kindTypeIndirection:
		if n.ID != nil {
			return nil, fmt.Errorf("decode pointer ref %s: type indirection has an id", n.Name)
		}
		return &ir.TypeIndirectionRef{BasePtrRef: base, Optional: n.Optional, Ancestral: n.Ancestral}, nil
	}
	return nil, fmt.Errorf("decode pointer ref %s: unknown kind %q", n.Name, n.Kind)
}

func (n *ptrNode) toBase() (ir.BasePtrRef, error) {
	b := ir.BasePtrRef{
		Name:          n.Name,
		ShortName:     n.ShortName,
		Required:      n.Required,
		HasProperties: n.HasProperties,
	}
	var err error
	if b.Direction, err = ir.ParseDirection(n.Direction); err != nil {
		return b, fmt.Errorf("decode pointer ref %s: %w", n.Name, err)
	}
	if b.DirCardinality, err = ir.ParseCardinality(n.DirCardinality); err != nil {
		return b, fmt.Errorf("decode pointer ref %s: %w", n.Name, err)
	}
	if b.OutCardinality, err = ir.ParseCardinality(n.OutCardinality); err != nil {
		return b, fmt.Errorf("decode pointer ref %s: %w", n.Name, err)
	}

	for _, ep := range []struct {
		node *typeNode
		dst  *ir.TypeRef
	}{
		{n.DirSource, &b.DirSource},
		{n.DirTarget, &b.DirTarget},
		{n.OutSource, &b.OutSource},
		{n.OutTarget, &b.OutTarget},
	} {
		if *ep.dst, err = ep.node.toTypeRef(); err != nil {
			return b, err
		}
	}

	if b.MaterialPtr, err = n.MaterialPtr.toPtrRef(); err != nil {
		return b, err
	}
	if b.DerivedFromPtr, err = n.DerivedFromPtr.toPtrRef(); err != nil {
		return b, err
	}
	if b.ParentPtr, err = n.ParentPtr.toPtrRef(); err != nil {
		return b, err
	}
	for i, d := range n.Descendants {
		if d == nil {
			return b, fmt.Errorf("decode pointer ref %s: null descendant at %d", n.Name, i)
		}
		ref, err := d.toPtrRef()
		if err != nil {
			return b, err
		}
		b.Descendants = append(b.Descendants, ref)
	}
	return b, nil
}
