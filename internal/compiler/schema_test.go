package compiler

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/typeref/internal/ir"
	"github.com/roach88/typeref/internal/schema"
)

const fixtureDir = "../../testdata/schema"

func TestCompileSchemaBasic(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		modules: ["std", "default"]
		scalars: {
			"std::anyint": abstract: true
			"std::int64": bases: ["std::anyint"]
			"std::str": {}
		}
		objects: "default::User": {
			pointers: {
				name: {target: "std::str", cardinality: "one", required: true}
				tags: {target: "array<std::str>", cardinality: "many"}
			}
		}
		unions: "default::Anyone": members: ["default::User"]
		views: "default::UserView": material: "default::User"
	`)
	require.NoError(t, v.Err())

	s, err := CompileSchema(v)
	require.NoError(t, err)

	user, err := s.TypeByName("default::User")
	require.NoError(t, err)
	assert.Equal(t, schema.KindObject, user.Kind())
	assert.Equal(t, schema.TypeID("default::User"), user.ID())

	name, ok := s.PointerOn(user, "name")
	require.True(t, ok)
	assert.Equal(t, ir.CardinalityOne, s.Cardinality(name))
	assert.True(t, s.Required(name))

	tags, ok := s.PointerOn(user, "tags")
	require.True(t, ok)
	assert.Equal(t, schema.KindArray, s.Target(tags).Kind())

	anyint, err := s.TypeByName("std::anyint")
	require.NoError(t, err)
	assert.True(t, s.IsAbstract(anyint))

	view, err := s.TypeByName("default::UserView")
	require.NoError(t, err)
	assert.True(t, s.IsView(view))
	assert.Equal(t, user.ID(), s.MaterialType(view).ID())

	union, err := s.TypeByName("default::Anyone")
	require.NoError(t, err)
	assert.True(t, s.IsVirtual(union))
}

func TestCompileSchemaUnknownCardinalityByDefault(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		modules: ["default"]
		scalars: "default::str": {}
		objects: "default::Note": pointers: body: target: "default::str"
	`)
	require.NoError(t, v.Err())

	s, err := CompileSchema(v)
	require.NoError(t, err)

	p, err := s.PointerByID(schema.PointerID("default::Note", "body"))
	require.NoError(t, err)
	assert.Equal(t, ir.CardinalityUnknown, s.Cardinality(p))
}

func TestCompileSchemaErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
	}{
		{
			name:  "missing modules",
			src:   `scalars: "std::str": {}`,
			field: "modules",
		},
		{
			name: "missing target",
			src: `
				modules: ["default"]
				objects: "default::User": pointers: name: cardinality: "one"
			`,
			field: "default::User.pointers.name.target",
		},
		{
			name: "invalid cardinality",
			src: `
				modules: ["default"]
				scalars: "default::str": {}
				objects: "default::User": pointers: name: {target: "default::str", cardinality: "some"}
			`,
			field: "default::User.pointers.name.cardinality",
		},
		{
			name: "empty union",
			src: `
				modules: ["default"]
				unions: "default::Nothing": members: []
			`,
			field: "unions.default::Nothing.members",
		},
		{
			name: "view without material",
			src: `
				modules: ["default"]
				views: "default::V": {}
			`,
			field: "views.default::V.material",
		},
		{
			name: "unknown base",
			src: `
				modules: ["default"]
				objects: "default::User": bases: ["default::Missing"]
			`,
			field: "schema",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := cuecontext.New()
			v := ctx.CompileString(tt.src)
			require.NoError(t, v.Err())

			_, err := CompileSchema(v)
			require.Error(t, err)

			var compileErr *CompileError
			require.True(t, errors.As(err, &compileErr), "got %T: %v", err, err)
			assert.Equal(t, tt.field, compileErr.Field)
		})
	}
}

func TestCompileSchemaUnknownBaseIsNotFound(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		modules: ["default"]
		objects: "default::User": bases: ["default::Missing"]
	`)

	_, err := CompileSchema(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `type "default::Missing" not found in schema`)
}

func TestCompileSchemaWrongFieldType(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		modules: ["default"]
		scalars: "default::str": abstract: "yes"
	`)
	require.NoError(t, v.Err())

	_, err := CompileSchema(v)
	require.Error(t, err)

	var compileErr *CompileError
	require.True(t, errors.As(err, &compileErr))
	assert.Equal(t, "cue", compileErr.Field)
}

func TestCompileDefinitionsAllowsAdditions(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		modules: ["default"]
		scalars: "default::str": {}
	`)

	b, err := CompileDefinitions(v)
	require.NoError(t, err)
	b.Object("default::Extra", schema.ObjectDef{})

	s, err := b.Build()
	require.NoError(t, err)
	_, err = s.TypeByName("default::Extra")
	assert.NoError(t, err)
}

func TestLoadSchemaDirFixture(t *testing.T) {
	s, err := LoadSchemaDir(fixtureDir)
	require.NoError(t, err)

	for _, name := range []string{
		"std::int64", "default::myint", "default::User", "default::Principal", "default::UserView",
	} {
		_, err := s.TypeByName(name)
		assert.NoError(t, err, name)
	}

	_, err = s.PointerByID(schema.PointerID("default::Moderator", "friends"))
	assert.NoError(t, err)
}

func TestLoadSchemaDirDeterministicVersion(t *testing.T) {
	a, err := LoadSchemaDir(fixtureDir)
	require.NoError(t, err)
	b, err := LoadSchemaDir(fixtureDir)
	require.NoError(t, err)

	assert.Equal(t, a.Version(), b.Version())
}

func TestLoadSchemaDirErrors(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		_, err := LoadSchemaDir(filepath.Join(t.TempDir(), "nope"))
		require.Error(t, err)
		assert.True(t, os.IsNotExist(errors.Unwrap(err)))
	})

	t.Run("no cue files", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

		_, err := LoadSchemaDir(dir)
		require.ErrorIs(t, err, ErrNoCUEFiles)
	})

	t.Run("syntax error", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.cue"), []byte("package bad\nmodules: [\n"), 0644))

		_, err := LoadSchemaDir(dir)
		require.Error(t, err)
	})
}

func TestFindCUEFiles(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.MkdirAll(sub, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "types.cue"), []byte("package test"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "modules.cue"), []byte("package test"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notcue.txt"), []byte("not a cue file"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "nested.cue"), []byte("package test"), 0644))

	files, err := FindCUEFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "modules.cue"), filepath.Join(dir, "types.cue")}, files)
}

func TestLoadSchemaDirIgnoresNestedPackages(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.MkdirAll(sub, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "nested.cue"), []byte("package test"), 0644))

	_, err := LoadSchemaDir(dir)
	assert.ErrorIs(t, err, ErrNoCUEFiles)
}
