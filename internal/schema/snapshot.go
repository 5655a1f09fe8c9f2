package schema

import (
	"slices"
	"strconv"

	"github.com/google/uuid"

	"github.com/roach88/typeref/internal/ir"
)

// typeDef is a scalar or object type registered in a snapshot.
type typeDef struct {
	id       uuid.UUID
	name     ir.QualName
	kind     Kind
	abstract bool
	virtual  bool
	material *typeDef // set for views only

	bases    []*typeDef
	members  []*typeDef // union members of a virtual type
	subtypes []*typeDef // direct subtypes, registration order

	pointers     map[string]*pointerDef
	pointerOrder []string
}

func (t *typeDef) ID() uuid.UUID     { return t.id }
func (t *typeDef) Name() ir.QualName { return t.name }
func (t *typeDef) Kind() Kind        { return t.kind }

// pointerDef is a pointer registered in a snapshot.
type pointerDef struct {
	id        uuid.UUID
	name      ir.QualName
	shortName ir.QualName

	source *typeDef
	target Type

	cardinality ir.Cardinality
	required    bool
	exclusive   bool
	properties  bool

	material    *pointerDef // nil means self
	derivedFrom *pointerDef
}

func (p *pointerDef) ID() uuid.UUID          { return p.id }
func (p *pointerDef) Name() ir.QualName      { return p.name }
func (p *pointerDef) ShortName() ir.QualName { return p.shortName }

// Snapshot is an immutable in-memory schema. It implements Schema and is
// safe for concurrent use. Create one with SnapshotBuilder.
type Snapshot struct {
	version string

	modules     map[string]Module
	types       map[uuid.UUID]Type
	typeNames   map[string]*typeDef
	typeOrder   []*typeDef
	collections map[uuid.UUID]*collectionType
	pointers    map[uuid.UUID]*pointerDef
	ptrOrder    []*pointerDef
}

var _ Schema = (*Snapshot)(nil)

// Version returns the content hash of the snapshot definitions. Snapshots
// built from identical definitions have identical versions.
func (s *Snapshot) Version() string {
	return s.version
}

// TypeByID implements Schema.
func (s *Snapshot) TypeByID(id uuid.UUID) (Type, error) {
	if t, ok := s.types[id]; ok {
		return t, nil
	}
	switch id {
	case AnyTypeID:
		return Any, nil
	case AnyTupleID:
		return AnyTuple, nil
	}
	return nil, &LookupError{Kind: LookupType, ID: id}
}

// TypeByName looks up a registered scalar, object, union or view type.
func (s *Snapshot) TypeByName(name string) (Type, error) {
	if t, ok := s.typeNames[name]; ok {
		return t, nil
	}
	return nil, &LookupError{Kind: LookupType, Name: name}
}

// PointerByID implements Schema.
func (s *Snapshot) PointerByID(id uuid.UUID) (Pointer, error) {
	if p, ok := s.pointers[id]; ok {
		return p, nil
	}
	return nil, &LookupError{Kind: LookupPointer, ID: id}
}

// ModuleByName implements Schema.
func (s *Snapshot) ModuleByName(name string) (Module, error) {
	if m, ok := s.modules[name]; ok {
		return m, nil
	}
	return Module{}, &LookupError{Kind: LookupModule, Name: name}
}

// Types returns the registered non-collection types in registration order.
func (s *Snapshot) Types() []Type {
	out := make([]Type, len(s.typeOrder))
	for i, t := range s.typeOrder {
		out[i] = t
	}
	return out
}

// Pointers returns every registered pointer in registration order.
func (s *Snapshot) Pointers() []Pointer {
	out := make([]Pointer, len(s.ptrOrder))
	for i, p := range s.ptrOrder {
		out[i] = p
	}
	return out
}

// OwnPointers returns the pointers declared directly on t.
func (s *Snapshot) OwnPointers(t Type) []Pointer {
	def, ok := t.(*typeDef)
	if !ok {
		return nil
	}
	out := make([]Pointer, 0, len(def.pointerOrder))
	for _, name := range def.pointerOrder {
		out = append(out, def.pointers[name])
	}
	return out
}

// IsVirtual implements Schema.
func (s *Snapshot) IsVirtual(t Type) bool {
	def, ok := t.(*typeDef)
	return ok && def.virtual
}

// IsAbstract implements Schema. Virtual types are abstract.
func (s *Snapshot) IsAbstract(t Type) bool {
	def, ok := t.(*typeDef)
	return ok && (def.abstract || def.virtual)
}

// IsView implements Schema.
func (s *Snapshot) IsView(t Type) bool {
	def, ok := t.(*typeDef)
	return ok && def.material != nil
}

// Children implements Schema. For virtual types these are the union
// members; for other types the direct concrete subtypes.
func (s *Snapshot) Children(t Type) []Type {
	def, ok := t.(*typeDef)
	if !ok {
		return nil
	}
	var out []Type
	if def.virtual {
		for _, m := range def.members {
			out = append(out, m)
		}
		return out
	}
	for _, sub := range def.subtypes {
		if !sub.abstract {
			out = append(out, sub)
		}
	}
	return out
}

// NearestCommonAncestor implements Schema. The first type of the first
// input's ancestry that every other input also inherits from wins.
func (s *Snapshot) NearestCommonAncestor(types []Type) (Type, error) {
	if len(types) == 0 {
		return nil, &LookupError{Kind: LookupType, Name: "common ancestor of no types"}
	}
	lineages := make([][]*typeDef, len(types))
	for i, t := range types {
		def, ok := t.(*typeDef)
		if !ok {
			return nil, &LookupError{Kind: LookupType, Name: "common ancestor of " + t.Name().String()}
		}
		lineages[i] = ancestry(def)
	}
	for _, candidate := range lineages[0] {
		shared := true
		for _, other := range lineages[1:] {
			if !slices.Contains(other, candidate) {
				shared = false
				break
			}
		}
		if shared {
			return candidate, nil
		}
	}
	return nil, &LookupError{Kind: LookupType, Name: "common ancestor of " + types[0].Name().String()}
}

// MaterialType implements Schema.
func (s *Snapshot) MaterialType(t Type) Type {
	def, ok := t.(*typeDef)
	if !ok {
		return t
	}
	for def.material != nil {
		def = def.material
	}
	return def
}

// TopmostConcreteBase implements Schema.
func (s *Snapshot) TopmostConcreteBase(t Type) Type {
	def, ok := t.(*typeDef)
	if !ok || def.kind != KindScalar || def.abstract {
		return t
	}
	// The first concrete ancestor, breadth first, sitting directly below an
	// abstract one is below the nearest abstract ancestor.
	for _, cur := range ancestry(def) {
		if cur.abstract {
			continue
		}
		if slices.ContainsFunc(cur.bases, func(b *typeDef) bool { return b.abstract }) {
			return cur
		}
	}
	// No abstract ancestor at all.
	return t
}

// Descendants implements Schema. Views and virtual types are not
// descendants of anything.
func (s *Snapshot) Descendants(t Type) []Type {
	def, ok := t.(*typeDef)
	if !ok {
		return nil
	}
	seen := map[*typeDef]bool{def: true}
	var out []Type
	queue := slices.Clone(def.subtypes)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		out = append(out, cur)
		queue = append(queue, cur.subtypes...)
	}
	return out
}

// Subtypes implements Schema.
func (s *Snapshot) Subtypes(t Type) ([]Element, bool) {
	c, ok := t.(*collectionType)
	if !ok {
		return nil, false
	}
	return slices.Clone(c.elems), c.named
}

// Cardinality implements Schema.
func (s *Snapshot) Cardinality(p Pointer) ir.Cardinality {
	switch ptr := p.(type) {
	case *pointerDef:
		return ptr.cardinality
	case *TupleIndirection:
		return ir.CardinalityOne
	case *TypeIndirection:
		return ptr.Cardinality
	default:
		return ir.CardinalityUnknown
	}
}

// Singular implements Schema. Inbound, a pointer is singular only when
// exclusive; pseudo pointers are always singular inbound.
func (s *Snapshot) Singular(p Pointer, dir ir.Direction) bool {
	switch ptr := p.(type) {
	case *pointerDef:
		if dir == ir.Inbound {
			return ptr.exclusive
		}
		return ptr.cardinality == ir.CardinalityOne
	case *TupleIndirection:
		return true
	case *TypeIndirection:
		if dir == ir.Inbound {
			return true
		}
		return ptr.Cardinality == ir.CardinalityOne
	default:
		return false
	}
}

// Source implements Schema.
func (s *Snapshot) Source(p Pointer) Type {
	switch ptr := p.(type) {
	case *pointerDef:
		return ptr.source
	case *TypeIndirection:
		return ptr.Source
	default:
		return nil
	}
}

// Target implements Schema.
func (s *Snapshot) Target(p Pointer) Type {
	switch ptr := p.(type) {
	case *pointerDef:
		return ptr.target
	case *TypeIndirection:
		return ptr.Target
	default:
		return nil
	}
}

// PointerOn implements Schema. Own pointers shadow inherited ones; views
// inherit the pointers of their material type.
func (s *Snapshot) PointerOn(t Type, shortName string) (Pointer, bool) {
	def, ok := t.(*typeDef)
	if !ok {
		return nil, false
	}
	for _, anc := range ancestry(def) {
		if p, ok := anc.pointers[shortName]; ok {
			return p, true
		}
	}
	return nil, false
}

// MaterialPointer implements Schema.
func (s *Snapshot) MaterialPointer(p Pointer) Pointer {
	ptr, ok := p.(*pointerDef)
	if !ok {
		return p
	}
	for ptr.material != nil {
		ptr = ptr.material
	}
	return ptr
}

// DerivedFrom implements Schema.
func (s *Snapshot) DerivedFrom(p Pointer) (Pointer, bool) {
	ptr, ok := p.(*pointerDef)
	if !ok || ptr.derivedFrom == nil {
		return nil, false
	}
	return ptr.derivedFrom, true
}

// NearestNonDerivedParent implements Schema.
func (s *Snapshot) NearestNonDerivedParent(p Pointer) Pointer {
	ptr, ok := p.(*pointerDef)
	if !ok {
		return p
	}
	for ptr.derivedFrom != nil {
		ptr = ptr.derivedFrom
	}
	return ptr
}

// HasUserProperties implements Schema.
func (s *Snapshot) HasUserProperties(p Pointer) bool {
	ptr, ok := p.(*pointerDef)
	return ok && ptr.properties
}

// Required implements Schema.
func (s *Snapshot) Required(p Pointer) bool {
	ptr, ok := p.(*pointerDef)
	return ok && ptr.required
}

// TupleType implements Schema. A collection registered in the snapshot is
// returned as is; otherwise an equivalent ephemeral type is synthesized
// without modifying the snapshot.
func (s *Snapshot) TupleType(elems []Element, named bool) (Type, error) {
	for i, e := range elems {
		if e.Type == nil {
			return nil, &LookupError{Kind: LookupType, Name: "tuple element " + elemLabel(i, e)}
		}
	}
	return s.internCollection(newTupleType(elems, named)), nil
}

// ArrayType implements Schema.
func (s *Snapshot) ArrayType(elem Type) (Type, error) {
	if elem == nil {
		return nil, &LookupError{Kind: LookupType, Name: "array element"}
	}
	return s.internCollection(newArrayType(elem)), nil
}

func (s *Snapshot) internCollection(c *collectionType) Type {
	if existing, ok := s.collections[c.id]; ok {
		return existing
	}
	return c
}

// ancestry returns t followed by its ancestors, breadth first, bases in
// declaration order. A view's ancestry continues through its material type.
func ancestry(t *typeDef) []*typeDef {
	out := []*typeDef{t}
	seen := map[*typeDef]bool{t: true}
	for i := 0; i < len(out); i++ {
		cur := out[i]
		next := cur.bases
		if cur.material != nil {
			next = append([]*typeDef{cur.material}, next...)
		}
		for _, b := range next {
			if !seen[b] {
				seen[b] = true
				out = append(out, b)
			}
		}
	}
	return out
}

func elemLabel(i int, e Element) string {
	if e.Name != "" {
		return e.Name
	}
	return "#" + strconv.Itoa(i)
}
