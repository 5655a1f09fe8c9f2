package harness

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/typeref/internal/ir"
	"github.com/roach88/typeref/internal/schema"
	"github.com/roach88/typeref/internal/typeutils"
)

// typeObservation is what the harness observed about one type reference.
type typeObservation struct {
	kind         string
	name         string
	abstract     bool
	generic      bool
	base         string
	material     string
	children     []string // sorted by name
	commonParent string
	subtypes     []string
	elements     []string
	roundTrip    error
}

func observeType(s schema.Schema, want schema.Type, ref ir.TypeRef) typeObservation {
	o := typeObservation{
		kind:    typeKind(ref),
		name:    ref.NameHint(),
		generic: typeutils.IsGeneric(ref),
	}
	switch r := ref.(type) {
	case *ir.SchemaTypeRef:
		o.abstract = r.IsAbstract
		o.base = nameOf(r.BaseType)
		o.material = nameOf(r.MaterialType)
		o.commonParent = nameOf(r.CommonParent)
		for _, c := range r.Children {
			o.children = append(o.children, c.NameHint())
		}
		sort.Strings(o.children)
	case *ir.CollectionTypeRef:
		named := false
		for _, st := range r.Subtypes {
			o.subtypes = append(o.subtypes, st.NameHint())
			if el := ir.ElementNameOf(st); el != "" {
				named = true
			}
		}
		if named {
			for _, st := range r.Subtypes {
				o.elements = append(o.elements, ir.ElementNameOf(st))
			}
		}
	}

	got, err := typeutils.TypeRefToType(s, ref)
	switch {
	case err != nil:
		o.roundTrip = err
	case got.ID() != want.ID():
		o.roundTrip = fmt.Errorf("resolved to %s", got.Name())
	}
	return o
}

func typeKind(ref ir.TypeRef) string {
	switch {
	case typeutils.IsAny(ref):
		return KindAny
	case typeutils.IsAnyTuple(ref):
		return KindAnyTuple
	case typeutils.IsArray(ref):
		return KindArray
	case typeutils.IsTuple(ref):
		return KindTuple
	case typeutils.IsView(ref):
		return KindView
	case typeutils.IsScalar(ref):
		return KindScalar
	default:
		return KindObject
	}
}

// properties renders o in report order. Absent optional properties are
// omitted.
func (o typeObservation) properties() []string {
	props := []string{
		"kind: " + o.kind,
		"name: " + o.name,
	}
	if o.kind != KindArray && o.kind != KindTuple && o.kind != KindAny && o.kind != KindAnyTuple {
		props = append(props, fmt.Sprintf("abstract: %t", o.abstract))
	}
	props = append(props, fmt.Sprintf("generic: %t", o.generic))
	props = appendIf(props, "base", o.base)
	props = appendIf(props, "material", o.material)
	props = appendIf(props, "children", strings.Join(o.children, ", "))
	props = appendIf(props, "common_parent", o.commonParent)
	props = appendIf(props, "subtypes", strings.Join(o.subtypes, ", "))
	props = appendIf(props, "elements", strings.Join(o.elements, ", "))
	return append(props, "roundtrip: "+roundTripText(o.roundTrip))
}

// checkType compares o against e and returns one message per mismatch.
func checkType(o typeObservation, e TypeExpect) []string {
	var failures []string
	failures = checkString(failures, "kind", e.Kind, o.kind)
	failures = checkString(failures, "name", e.Name, o.name)
	failures = checkBool(failures, "abstract", e.Abstract, o.abstract)
	failures = checkBool(failures, "generic", e.Generic, o.generic)
	failures = checkString(failures, "base", e.Base, o.base)
	failures = checkString(failures, "material", e.Material, o.material)
	if e.Children != nil {
		want := append([]string(nil), e.Children...)
		sort.Strings(want)
		failures = checkList(failures, "children", want, o.children)
	}
	failures = checkString(failures, "common_parent", e.CommonParent, o.commonParent)
	if e.Subtypes != nil {
		failures = checkList(failures, "subtypes", e.Subtypes, o.subtypes)
	}
	if e.Elements != nil {
		failures = checkList(failures, "elements", e.Elements, o.elements)
	}
	failures = checkRoundTrip(failures, e.RoundTrip, o.roundTrip)
	return failures
}

// ptrObservation is what the harness observed about one pointer reference.
type ptrObservation struct {
	kind           string
	name           string
	source         string
	target         string
	cardinality    string
	outCardinality string
	required       bool
	computable     bool
	idPointer      bool
	material       string
	derivedFrom    string
	descendants    []string // sorted by name
	roundTrip      error
}

func observePtr(s schema.Schema, want schema.Pointer, ref ir.PtrRef) ptrObservation {
	b := ref.Base()
	o := ptrObservation{
		name:           b.Name.String(),
		source:         nameOf(b.OutSource),
		target:         nameOf(b.OutTarget),
		cardinality:    b.DirCardinality.String(),
		outCardinality: b.OutCardinality.String(),
		required:       b.Required,
		computable:     typeutils.IsComputablePtrRef(ref),
		idPointer:      typeutils.IsIDPtrRef(ref),
		material:       ptrNameOf(b.MaterialPtr),
		derivedFrom:    ptrNameOf(b.DerivedFromPtr),
	}
	switch ref.(type) {
	case *ir.TupleIndirectionRef:
		o.kind = "tuple_indirection"
	case *ir.TypeIndirectionRef:
		o.kind = "type_indirection"
	default:
		o.kind = "pointer"
	}
	for _, d := range b.Descendants {
		o.descendants = append(o.descendants, d.Base().Name.String())
	}
	sort.Strings(o.descendants)

	got, err := typeutils.PointerFromPtrRef(s, ref)
	switch {
	case err != nil:
		o.roundTrip = err
	case got.ID() != want.ID():
		o.roundTrip = fmt.Errorf("resolved to %s", got.Name())
	}
	return o
}

func (o ptrObservation) properties() []string {
	props := []string{
		"kind: " + o.kind,
		"name: " + o.name,
		"source: " + o.source,
		"target: " + o.target,
		"cardinality: " + o.cardinality,
		"out_cardinality: " + o.outCardinality,
		fmt.Sprintf("required: %t", o.required),
		fmt.Sprintf("computable: %t", o.computable),
		fmt.Sprintf("id_pointer: %t", o.idPointer),
	}
	props = appendIf(props, "material", o.material)
	props = appendIf(props, "derived_from", o.derivedFrom)
	props = appendIf(props, "descendants", strings.Join(o.descendants, ", "))
	return append(props, "roundtrip: "+roundTripText(o.roundTrip))
}

func checkPtr(o ptrObservation, e PointerExpect) []string {
	var failures []string
	failures = checkString(failures, "source", e.Source, o.source)
	failures = checkString(failures, "target", e.Target, o.target)
	failures = checkString(failures, "cardinality", e.Cardinality, o.cardinality)
	failures = checkString(failures, "out_cardinality", e.OutCardinality, o.outCardinality)
	failures = checkBool(failures, "required", e.Required, o.required)
	failures = checkBool(failures, "computable", e.Computable, o.computable)
	failures = checkBool(failures, "id_pointer", e.IDPointer, o.idPointer)
	failures = checkString(failures, "material", e.Material, o.material)
	failures = checkString(failures, "derived_from", e.DerivedFrom, o.derivedFrom)
	if e.Descendants != nil && *e.Descendants != len(o.descendants) {
		failures = append(failures, fmt.Sprintf("descendants: expected %d, got %d", *e.Descendants, len(o.descendants)))
	}
	failures = checkRoundTrip(failures, e.RoundTrip, o.roundTrip)
	return failures
}

func checkString(failures []string, field string, want *string, got string) []string {
	if want == nil || *want == got {
		return failures
	}
	return append(failures, fmt.Sprintf("%s: expected %q, got %q", field, *want, got))
}

func checkBool(failures []string, field string, want *bool, got bool) []string {
	if want == nil || *want == got {
		return failures
	}
	return append(failures, fmt.Sprintf("%s: expected %t, got %t", field, *want, got))
}

func checkList(failures []string, field string, want, got []string) []string {
	if strings.Join(want, "\x00") == strings.Join(got, "\x00") && len(want) == len(got) {
		return failures
	}
	return append(failures, fmt.Sprintf("%s: expected [%s], got [%s]",
		field, strings.Join(want, ", "), strings.Join(got, ", ")))
}

func checkRoundTrip(failures []string, want *bool, got error) []string {
	if want == nil || *want == (got == nil) {
		return failures
	}
	if got != nil {
		return append(failures, "roundtrip: "+got.Error())
	}
	return append(failures, "roundtrip: expected failure, resolved")
}

func roundTripText(err error) string {
	if err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}

func appendIf(props []string, key, value string) []string {
	if value == "" {
		return props
	}
	return append(props, key+": "+value)
}

func nameOf(r ir.TypeRef) string {
	if r == nil {
		return ""
	}
	return r.NameHint()
}

func ptrNameOf(r ir.PtrRef) string {
	if r == nil {
		return ""
	}
	return r.Base().Name.String()
}
