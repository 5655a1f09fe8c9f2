package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/roach88/typeref/internal/ir"
)

// Namespaces for name-based identities.
var (
	typeNamespace    = uuid.MustParse("2b1f0a6e-4c1d-5a8e-8f3b-1d2c3e4f5a60")
	pointerNamespace = uuid.MustParse("3c2e1b7f-5d2e-5b9f-9a4c-2e3d4f5a6b71")
	moduleNamespace  = uuid.MustParse("4d3f2c80-6e3f-5ca0-ab5d-3f4e5a6b7c82")
)

// TypeID returns the identity a snapshot assigns to a qualified type name.
func TypeID(name string) uuid.UUID {
	return uuid.NewSHA1(typeNamespace, []byte(name))
}

// PointerID returns the identity a snapshot assigns to a pointer declared
// as shortName on the type named source.
func PointerID(source, shortName string) uuid.UUID {
	return uuid.NewSHA1(pointerNamespace, []byte(source+"."+shortName))
}

// ModuleID returns the identity a snapshot assigns to a module.
func ModuleID(name string) uuid.UUID {
	return uuid.NewSHA1(moduleNamespace, []byte(name))
}

// ScalarDef declares a scalar type. The first base is the parent used for
// abstract-ancestor resolution.
type ScalarDef struct {
	Abstract bool
	Bases    []string
}

// ObjectDef declares an object type.
type ObjectDef struct {
	Abstract bool
	Bases    []string
}

// UnionDef declares a virtual object type whose children are Members.
type UnionDef struct {
	Members []string
}

// ViewDef declares a view over Material. The view has the material's kind.
type ViewDef struct {
	Material string
}

// PointerDef declares a pointer. Target is a type expression (see
// ParseTypeExpr). Material and DerivedFrom name other pointers as
// "module::Type.pointer".
type PointerDef struct {
	Target      string
	Cardinality ir.Cardinality
	Required    bool
	Exclusive   bool
	Properties  bool
	Material    string
	DerivedFrom string
}

type typeSpec struct {
	name   string
	kind   Kind
	scalar ScalarDef
	object ObjectDef
	union  *UnionDef
	view   *ViewDef
}

type pointerSpec struct {
	source string
	short  string
	def    PointerDef
}

// SnapshotBuilder assembles an immutable Snapshot. Definitions may be added
// in any order; references between them are resolved by Build.
type SnapshotBuilder struct {
	modules     []string
	types       []typeSpec
	pointers    []pointerSpec
	collections []string
}

// NewSnapshotBuilder creates an empty builder.
func NewSnapshotBuilder() *SnapshotBuilder {
	return &SnapshotBuilder{}
}

// Module declares a module.
func (b *SnapshotBuilder) Module(name string) *SnapshotBuilder {
	b.modules = append(b.modules, name)
	return b
}

// Scalar declares a scalar type.
func (b *SnapshotBuilder) Scalar(name string, def ScalarDef) *SnapshotBuilder {
	b.types = append(b.types, typeSpec{name: name, kind: KindScalar, scalar: def})
	return b
}

// Object declares an object type.
func (b *SnapshotBuilder) Object(name string, def ObjectDef) *SnapshotBuilder {
	b.types = append(b.types, typeSpec{name: name, kind: KindObject, object: def})
	return b
}

// Union declares a virtual object type.
func (b *SnapshotBuilder) Union(name string, def UnionDef) *SnapshotBuilder {
	b.types = append(b.types, typeSpec{name: name, kind: KindObject, union: &def})
	return b
}

// View declares a view type.
func (b *SnapshotBuilder) View(name string, def ViewDef) *SnapshotBuilder {
	b.types = append(b.types, typeSpec{name: name, view: &def})
	return b
}

// Pointer declares a pointer named shortName on the type named source.
func (b *SnapshotBuilder) Pointer(source, shortName string, def PointerDef) *SnapshotBuilder {
	b.pointers = append(b.pointers, pointerSpec{source: source, short: shortName, def: def})
	return b
}

// Collection registers a standing collection type given as a type
// expression, e.g. "array<std::int64>".
func (b *SnapshotBuilder) Collection(expr string) *SnapshotBuilder {
	b.collections = append(b.collections, expr)
	return b
}

// Build resolves all references and freezes the snapshot. All problems are
// reported together.
func (b *SnapshotBuilder) Build() (*Snapshot, error) {
	s := &Snapshot{
		modules:     make(map[string]Module),
		types:       make(map[uuid.UUID]Type),
		typeNames:   make(map[string]*typeDef),
		collections: make(map[uuid.UUID]*collectionType),
		pointers:    make(map[uuid.UUID]*pointerDef),
	}
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	for _, m := range b.modules {
		if _, dup := s.modules[m]; dup {
			fail("duplicate module %q", m)
			continue
		}
		s.modules[m] = Module{ID: ModuleID(m), Name: m}
	}

	// Phase 1: register every named type.
	for _, decl := range b.types {
		name := ir.ParseQualName(decl.name)
		if name.Module == "" {
			fail("type %q: name must be module-qualified", decl.name)
			continue
		}
		if _, ok := s.modules[name.Module]; !ok {
			fail("type %q: %v", decl.name, &LookupError{Kind: LookupModule, Name: name.Module})
		}
		if _, dup := s.typeNames[decl.name]; dup {
			fail("duplicate type %q", decl.name)
			continue
		}
		def := &typeDef{
			id:       TypeID(decl.name),
			name:     name,
			kind:     decl.kind,
			abstract: decl.scalar.Abstract || decl.object.Abstract,
			virtual:  decl.union != nil,
			pointers: make(map[string]*pointerDef),
		}
		s.typeNames[decl.name] = def
		s.typeOrder = append(s.typeOrder, def)
		s.types[def.id] = def
	}

	// Phase 2: bases, union members, view materials.
	lookup := func(owner, name string) *typeDef {
		def, ok := s.typeNames[name]
		if !ok {
			fail("type %q: %v", owner, &LookupError{Kind: LookupType, Name: name})
		}
		return def
	}
	for _, decl := range b.types {
		def := s.typeNames[decl.name]
		if def == nil {
			continue
		}
		bases := decl.scalar.Bases
		if decl.kind == KindObject {
			bases = decl.object.Bases
		}
		for _, baseName := range bases {
			if base := lookup(decl.name, baseName); base != nil {
				if base.kind != def.kind {
					fail("type %q: base %q is a %s", decl.name, baseName, base.kind)
					continue
				}
				def.bases = append(def.bases, base)
			}
		}
		if decl.union != nil {
			if len(decl.union.Members) == 0 {
				fail("union %q: no members", decl.name)
			}
			for _, memberName := range decl.union.Members {
				if member := lookup(decl.name, memberName); member != nil {
					def.members = append(def.members, member)
				}
			}
		}
		if decl.view != nil {
			if material := lookup(decl.name, decl.view.Material); material != nil {
				def.material = material
			}
		}
	}
	if err := checkInheritanceCycles(s.typeOrder); err != nil {
		errs = append(errs, err)
		return nil, errors.Join(errs...)
	}
	// View kinds follow their material, which may itself be a view.
	for _, def := range s.typeOrder {
		if def.material != nil {
			def.kind = s.MaterialType(def).Kind()
		}
	}
	for _, def := range s.typeOrder {
		if def.material != nil || def.virtual {
			continue
		}
		for _, base := range def.bases {
			base.subtypes = append(base.subtypes, def)
		}
	}

	// Phase 3: pointers.
	byName := make(map[string]*pointerDef)
	for _, decl := range b.pointers {
		src, ok := s.typeNames[decl.source]
		if !ok {
			fail("pointer %s.%s: %v", decl.source, decl.short, &LookupError{Kind: LookupType, Name: decl.source})
			continue
		}
		if _, dup := src.pointers[decl.short]; dup {
			fail("duplicate pointer %s.%s", decl.source, decl.short)
			continue
		}
		target, err := ParseTypeExpr(s, decl.def.Target)
		if err != nil {
			fail("pointer %s.%s: target: %w", decl.source, decl.short, err)
			continue
		}
		p := &pointerDef{
			id:          PointerID(decl.source, decl.short),
			name:        ir.QualName{Module: src.name.Module, Name: src.name.Name + "." + decl.short},
			source:      src,
			target:      target,
			cardinality: decl.def.Cardinality,
			required:    decl.def.Required,
			exclusive:   decl.def.Exclusive,
			properties:  decl.def.Properties,
		}
		src.pointers[decl.short] = p
		src.pointerOrder = append(src.pointerOrder, decl.short)
		s.pointers[p.id] = p
		s.ptrOrder = append(s.ptrOrder, p)
		byName[p.name.String()] = p
	}
	for _, decl := range b.pointers {
		p := byName[decl.source+"."+decl.short]
		if p == nil {
			continue
		}
		if decl.def.Material != "" {
			if m, ok := byName[decl.def.Material]; ok && m != p {
				p.material = m
			} else {
				fail("pointer %s: material: %v", p.name, &LookupError{Kind: LookupPointer, Name: decl.def.Material})
			}
		}
		if decl.def.DerivedFrom != "" {
			if d, ok := byName[decl.def.DerivedFrom]; ok && d != p {
				p.derivedFrom = d
			} else {
				fail("pointer %s: derived_from: %v", p.name, &LookupError{Kind: LookupPointer, Name: decl.def.DerivedFrom})
			}
		}
	}
	if err := checkPointerChains(s.ptrOrder); err != nil {
		errs = append(errs, err)
	}
	for _, p := range s.ptrOrder {
		p.shortName = inheritedShortName(p)
	}

	for _, expr := range b.collections {
		t, err := ParseTypeExpr(s, expr)
		if err != nil {
			fail("collection %q: %w", expr, err)
			continue
		}
		c, ok := t.(*collectionType)
		if !ok {
			fail("collection %q: not a collection type", expr)
			continue
		}
		s.collections[c.id] = c
		s.types[c.id] = c
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	s.version = definitionsHash(s)
	return s, nil
}

// MustBuild is like Build but panics on error.
// Use only in tests or when definitions are known to be valid.
func (b *SnapshotBuilder) MustBuild() *Snapshot {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}

// inheritedShortName keeps the module of the topmost declaration of a
// pointer name, so an override of std::id is still std::id.
func inheritedShortName(p *pointerDef) ir.QualName {
	short := strings.TrimPrefix(p.name.Name, p.source.name.Name+".")
	lineage := ancestry(p.source)
	for i := len(lineage) - 1; i > 0; i-- {
		if _, ok := lineage[i].pointers[short]; ok {
			return ir.QualName{Module: lineage[i].name.Module, Name: short}
		}
	}
	return ir.QualName{Module: p.source.name.Module, Name: short}
}

func checkInheritanceCycles(types []*typeDef) error {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[*typeDef]int, len(types))
	var visit func(t *typeDef) error
	visit = func(t *typeDef) error {
		switch state[t] {
		case visiting:
			return fmt.Errorf("inheritance cycle through %s", t.name)
		case done:
			return nil
		}
		state[t] = visiting
		next := slices.Clone(t.bases)
		if t.material != nil {
			next = append(next, t.material)
		}
		for _, b := range next {
			if err := visit(b); err != nil {
				return err
			}
		}
		state[t] = done
		return nil
	}
	for _, t := range types {
		if err := visit(t); err != nil {
			return err
		}
	}
	return nil
}

func checkPointerChains(ptrs []*pointerDef) error {
	for _, p := range ptrs {
		for _, step := range []func(*pointerDef) *pointerDef{
			func(p *pointerDef) *pointerDef { return p.material },
			func(p *pointerDef) *pointerDef { return p.derivedFrom },
		} {
			seen := map[*pointerDef]bool{p: true}
			for cur := step(p); cur != nil; cur = step(cur) {
				if seen[cur] {
					return fmt.Errorf("pointer cycle through %s", p.name)
				}
				seen[cur] = true
			}
		}
	}
	return nil
}

// definitionsHash computes the snapshot version from every definition.
func definitionsHash(s *Snapshot) string {
	var lines []string
	for name := range s.modules {
		lines = append(lines, "module "+name)
	}
	for _, t := range s.typeOrder {
		line := fmt.Sprintf("%s %s abstract=%t virtual=%t", t.kind, t.name, t.abstract, t.virtual)
		for _, b := range t.bases {
			line += " base=" + b.name.String()
		}
		for _, m := range t.members {
			line += " member=" + m.name.String()
		}
		if t.material != nil {
			line += " material=" + t.material.name.String()
		}
		lines = append(lines, line)
	}
	for _, p := range s.ptrOrder {
		line := fmt.Sprintf("pointer %s short=%s target=%s card=%s required=%t exclusive=%t properties=%t",
			p.name, p.shortName, p.target.Name(), p.cardinality, p.required, p.exclusive, p.properties)
		if p.material != nil {
			line += " material=" + p.material.name.String()
		}
		if p.derivedFrom != nil {
			line += " derived_from=" + p.derivedFrom.name.String()
		}
		lines = append(lines, line)
	}
	for _, c := range s.collections {
		lines = append(lines, "collection "+c.name)
	}
	slices.Sort(lines)

	h := sha256.New()
	for _, l := range lines {
		h.Write([]byte(l))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
