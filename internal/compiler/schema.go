package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/typeref/internal/ir"
	"github.com/roach88/typeref/internal/schema"
)

// CompileSchema parses a CUE value into a schema snapshot.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The value is the root of a schema definition:
//
//	modules: ["std", "default"]
//	scalars: "std::int64": {bases: ["std::anyint"]}
//	objects: "default::User": {
//		bases: ["std::Object"]
//		pointers: name: {target: "std::str", cardinality: "one", required: true}
//	}
//	unions: "default::Principal": {members: ["default::User", "default::Group"]}
//	views: "default::UserView": {material: "default::User"}
//	collections: ["array<std::int64>"]
//
// Pointer targets are type expressions (see schema.ParseTypeExpr).
func CompileSchema(v cue.Value) (*schema.Snapshot, error) {
	b, err := CompileDefinitions(v)
	if err != nil {
		return nil, err
	}
	s, err := b.Build()
	if err != nil {
		return nil, &CompileError{
			Field:   "schema",
			Message: err.Error(),
			Pos:     v.Pos(),
		}
	}
	return s, nil
}

// CompileDefinitions parses a CUE value into a SnapshotBuilder without
// building it, so callers can add definitions of their own.
func CompileDefinitions(v cue.Value) (*schema.SnapshotBuilder, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	b := schema.NewSnapshotBuilder()

	// Parse modules (required, at least one)
	modules, err := stringList(v, "modules")
	if err != nil {
		return nil, err
	}
	if len(modules) == 0 {
		return nil, &CompileError{
			Field:   "modules",
			Message: "at least one module is required",
			Pos:     v.Pos(),
		}
	}
	for _, m := range modules {
		b.Module(m)
	}

	if err := parseScalars(v, b); err != nil {
		return nil, err
	}
	if err := parseObjects(v, b); err != nil {
		return nil, err
	}
	if err := parseUnions(v, b); err != nil {
		return nil, err
	}
	if err := parseViews(v, b); err != nil {
		return nil, err
	}

	// Parse standing collections (optional)
	collections, err := stringList(v, "collections")
	if err != nil {
		return nil, err
	}
	for _, c := range collections {
		b.Collection(c)
	}

	return b, nil
}

// parseScalars extracts scalar definitions.
func parseScalars(v cue.Value, b *schema.SnapshotBuilder) error {
	return eachField(v, "scalars", func(name string, sv cue.Value) error {
		abstract, err := optionalBool(sv, "abstract")
		if err != nil {
			return err
		}
		bases, err := stringList(sv, "bases")
		if err != nil {
			return err
		}
		b.Scalar(name, schema.ScalarDef{Abstract: abstract, Bases: bases})
		return nil
	})
}

// parseObjects extracts object types and the pointers declared on them.
func parseObjects(v cue.Value, b *schema.SnapshotBuilder) error {
	return eachField(v, "objects", func(name string, ov cue.Value) error {
		abstract, err := optionalBool(ov, "abstract")
		if err != nil {
			return err
		}
		bases, err := stringList(ov, "bases")
		if err != nil {
			return err
		}
		b.Object(name, schema.ObjectDef{Abstract: abstract, Bases: bases})

		return eachField(ov, "pointers", func(short string, pv cue.Value) error {
			def, err := parsePointer(name+".pointers."+short, pv)
			if err != nil {
				return err
			}
			b.Pointer(name, short, def)
			return nil
		})
	})
}

// parsePointer parses a single pointer definition.
func parsePointer(field string, v cue.Value) (schema.PointerDef, error) {
	var def schema.PointerDef

	// Parse target (required)
	targetVal := v.LookupPath(cue.ParsePath("target"))
	if !targetVal.Exists() {
		return def, &CompileError{
			Field:   field + ".target",
			Message: "pointer target is required",
			Pos:     v.Pos(),
		}
	}
	target, err := targetVal.String()
	if err != nil {
		return def, formatCUEError(err)
	}
	def.Target = target

	// Cardinality is optional; absent means not yet inferred
	cardVal := v.LookupPath(cue.ParsePath("cardinality"))
	if cardVal.Exists() {
		s, err := cardVal.String()
		if err != nil {
			return def, formatCUEError(err)
		}
		card, err := ir.ParseCardinality(s)
		if err != nil {
			return def, &CompileError{
				Field:   field + ".cardinality",
				Message: err.Error(),
				Pos:     cardVal.Pos(),
			}
		}
		def.Cardinality = card
	}

	for _, flag := range []struct {
		name string
		dst  *bool
	}{
		{"required", &def.Required},
		{"exclusive", &def.Exclusive},
		{"properties", &def.Properties},
	} {
		if *flag.dst, err = optionalBool(v, flag.name); err != nil {
			return def, err
		}
	}

	if def.Material, err = optionalString(v, "material"); err != nil {
		return def, err
	}
	if def.DerivedFrom, err = optionalString(v, "derived_from"); err != nil {
		return def, err
	}
	return def, nil
}

// parseUnions extracts virtual object types.
func parseUnions(v cue.Value, b *schema.SnapshotBuilder) error {
	return eachField(v, "unions", func(name string, uv cue.Value) error {
		members, err := stringList(uv, "members")
		if err != nil {
			return err
		}
		if len(members) == 0 {
			return &CompileError{
				Field:   "unions." + name + ".members",
				Message: "at least one member is required",
				Pos:     uv.Pos(),
			}
		}
		b.Union(name, schema.UnionDef{Members: members})
		return nil
	})
}

// parseViews extracts view types.
func parseViews(v cue.Value, b *schema.SnapshotBuilder) error {
	return eachField(v, "views", func(name string, vv cue.Value) error {
		material, err := optionalString(vv, "material")
		if err != nil {
			return err
		}
		if material == "" {
			return &CompileError{
				Field:   "views." + name + ".material",
				Message: "view material type is required",
				Pos:     vv.Pos(),
			}
		}
		b.View(name, schema.ViewDef{Material: material})
		return nil
	})
}

// eachField calls fn for every regular field of the struct at path.
// A missing struct is not an error.
func eachField(v cue.Value, path string, fn func(label string, fv cue.Value) error) error {
	sv := v.LookupPath(cue.ParsePath(path))
	if !sv.Exists() {
		return nil
	}
	iter, err := sv.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		if err := fn(iter.Selector().Unquoted(), iter.Value()); err != nil {
			return err
		}
	}
	return nil
}

func stringList(v cue.Value, path string) ([]string, error) {
	lv := v.LookupPath(cue.ParsePath(path))
	if !lv.Exists() {
		return nil, nil
	}
	iter, err := lv.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

func optionalString(v cue.Value, path string) (string, error) {
	sv := v.LookupPath(cue.ParsePath(path))
	if !sv.Exists() {
		return "", nil
	}
	s, err := sv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalBool(v cue.Value, path string) (bool, error) {
	bv := v.LookupPath(cue.ParsePath(path))
	if !bv.Exists() {
		return false, nil
	}
	b, err := bv.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return &CompileError{Field: "cue", Message: firstErr.Error()}
}
