package typeutils

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/typeref/internal/ir"
	"github.com/roach88/typeref/internal/schema"
	"github.com/roach88/typeref/internal/testutil"
)

func TestTypeRef_SchemaTypeFields(t *testing.T) {
	s, b := fixture(t)

	ref := mustTypeRef(t, b, mustType(t, s, "std::int64"))

	st, ok := ref.(*ir.SchemaTypeRef)
	require.True(t, ok, "got %T", ref)
	assert.Equal(t, schema.TypeID("std::int64"), st.ID)
	assert.Equal(t, schema.ModuleID("std"), st.ModuleID)
	assert.Equal(t, "std::int64", st.Name)
	assert.True(t, st.IsScalar)
	assert.False(t, st.IsAbstract)
	assert.False(t, st.IsView)
	assert.Nil(t, st.MaterialType)
	assert.Nil(t, st.Children)
	assert.Nil(t, st.CommonParent)
}

func TestTypeRef_IdentityRoundTrip(t *testing.T) {
	s, b := fixture(t)

	for _, name := range []string{
		"std::int64", "std::anyint", "default::myint", "std::str",
		"std::BaseObject", "default::User", "default::Admin",
		"default::Principal", "default::UserView",
	} {
		t.Run(name, func(t *testing.T) {
			typ := mustType(t, s, name)
			ref := mustTypeRef(t, b, typ)

			got, err := TypeRefToType(s, ref)
			require.NoError(t, err)
			assert.Equal(t, typ.ID(), got.ID())
			assert.Equal(t, typ.Name(), got.Name())
		})
	}
}

func TestTypeRef_BaseType(t *testing.T) {
	s, b := fixture(t)

	tests := []struct {
		name string
		want string // "" means no base type
	}{
		{"default::myint", "std::int64"},
		{"std::int64", ""},    // topmost concrete ancestor is itself
		{"std::anyint", ""},   // abstract
		{"std::bool", ""},     // no abstract ancestor
		{"default::User", ""}, // not a scalar
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := mustTypeRef(t, b, mustType(t, s, tt.name)).(*ir.SchemaTypeRef)
			if tt.want == "" {
				assert.Nil(t, st.BaseType)
				return
			}
			require.NotNil(t, st.BaseType)
			assert.Equal(t, tt.want, st.BaseType.NameHint())
		})
	}
}

func TestTypeRef_AbstractScalar(t *testing.T) {
	s, b := fixture(t)

	st := mustTypeRef(t, b, mustType(t, s, "std::anyint")).(*ir.SchemaTypeRef)

	assert.True(t, st.IsAbstract)
	assert.True(t, st.IsScalar)
	assert.Nil(t, st.BaseType)
}

func TestTypeRef_View(t *testing.T) {
	s, b := fixture(t)

	view := mustTypeRef(t, b, mustType(t, s, "default::UserView")).(*ir.SchemaTypeRef)
	require.NotNil(t, view.MaterialType)
	assert.True(t, view.IsView)
	assert.Equal(t, "default::User", view.MaterialType.NameHint())
	assert.True(t, IsView(view))
	assert.True(t, IsObject(view))

	user := mustTypeRef(t, b, mustType(t, s, "default::User")).(*ir.SchemaTypeRef)
	assert.Nil(t, user.MaterialType)
	assert.True(t, ir.EqualTypeRefs(user, view.MaterialType))
}

func TestTypeRef_VirtualChildren(t *testing.T) {
	s, b := fixture(t)

	tests := []struct {
		name     string
		children []string
		parent   string
	}{
		{"default::Principal", []string{"default::User", "default::Group"}, "std::Object"},
		{"default::Staff", []string{"default::Admin", "default::Moderator"}, "default::User"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := mustTypeRef(t, b, mustType(t, s, tt.name)).(*ir.SchemaTypeRef)

			assert.True(t, st.IsAbstract)
			assert.ElementsMatch(t, tt.children, typeNames(st.Children))
			require.NotNil(t, st.CommonParent)
			assert.Equal(t, tt.parent, st.CommonParent.NameHint())
		})
	}
}

func TestTypeRef_VirtualChildrenSortedByKey(t *testing.T) {
	s, b := fixture(t)

	st := mustTypeRef(t, b, mustType(t, s, "default::Principal")).(*ir.SchemaTypeRef)

	require.Len(t, st.Children, 2)
	assert.Less(t, st.Children[0].Key(), st.Children[1].Key())
}

func TestTypeRef_NonVirtualHasNoChildren(t *testing.T) {
	s, b := fixture(t)

	// User has concrete subtypes, but only virtual types carry children.
	st := mustTypeRef(t, b, mustType(t, s, "default::User")).(*ir.SchemaTypeRef)

	assert.Nil(t, st.Children)
	assert.Nil(t, st.CommonParent)
}

func TestTypeRef_Array(t *testing.T) {
	s, b := fixture(t)
	typ := mustType(t, s, "array<std::int64>")

	ref := mustTypeRef(t, b, typ)

	c, ok := ref.(*ir.CollectionTypeRef)
	require.True(t, ok, "got %T", ref)
	assert.Equal(t, ir.CollectionArray, c.Collection)
	require.Len(t, c.Subtypes, 1)
	assert.Equal(t, "std::int64", c.Subtypes[0].NameHint())
	assert.Empty(t, ir.ElementNameOf(c.Subtypes[0]))
	assert.True(t, IsArray(ref))
	assert.True(t, IsCollection(ref))
	assert.False(t, IsObject(ref))

	got, err := TypeRefToType(s, ref)
	require.NoError(t, err)
	assert.Equal(t, typ.ID(), got.ID())
	assert.Equal(t, schema.KindArray, got.Kind())
}

func TestTypeRef_NamedTupleRoundTrip(t *testing.T) {
	s, b := fixture(t)
	typ := mustType(t, s, "tuple<a: std::int64, b: std::str>")

	ref := mustTypeRef(t, b, typ).(*ir.CollectionTypeRef)

	assert.Equal(t, ir.CollectionTuple, ref.Collection)
	require.Len(t, ref.Subtypes, 2)
	assert.Equal(t, "a", ir.ElementNameOf(ref.Subtypes[0]))
	assert.Equal(t, "b", ir.ElementNameOf(ref.Subtypes[1]))

	got, err := TypeRefToType(s, ref)
	require.NoError(t, err)
	assert.Equal(t, typ.ID(), got.ID())

	elems, named := s.Subtypes(got)
	assert.True(t, named)
	require.Len(t, elems, 2)
	assert.Equal(t, "a", elems[0].Name)
	assert.Equal(t, schema.TypeID("std::int64"), elems[0].Type.ID())
	assert.Equal(t, "b", elems[1].Name)
	assert.Equal(t, schema.TypeID("std::str"), elems[1].Type.ID())
}

func TestTypeRef_PositionalTupleRoundTrip(t *testing.T) {
	s, b := fixture(t)

	// The first tuple is registered in the fixture; the second is not.
	for _, expr := range []string{"tuple<std::int64, std::str>", "tuple<std::bool, std::uuid>"} {
		t.Run(expr, func(t *testing.T) {
			typ := mustType(t, s, expr)
			ref := mustTypeRef(t, b, typ).(*ir.CollectionTypeRef)

			for _, st := range ref.Subtypes {
				assert.Empty(t, ir.ElementNameOf(st))
			}

			got, err := TypeRefToType(s, ref)
			require.NoError(t, err)
			assert.Equal(t, typ.ID(), got.ID())

			elems, named := s.Subtypes(got)
			assert.False(t, named)
			require.Len(t, elems, 2)
			assert.Equal(t, "0", elems[0].Name)
			assert.Equal(t, "1", elems[1].Name)
		})
	}
}

func TestTypeRef_TupleIndexNameCollision(t *testing.T) {
	s, b := fixture(t)

	named := *mustTypeRef(t, b, mustType(t, s, "std::int64")).(*ir.SchemaTypeRef)
	named.ElementName = "1"
	positional := mustTypeRef(t, b, mustType(t, s, "std::str"))

	// Element 0 is named "1"; element 1 has no name and is keyed by its
	// index, which collides with it.
	ref := &ir.CollectionTypeRef{
		Name:       "tuple<1: std::int64, std::str>",
		Collection: ir.CollectionTuple,
		Subtypes:   []ir.TypeRef{&named, positional},
	}

	got, err := TypeRefToType(s, ref)
	require.NoError(t, err)

	elems, isNamed := s.Subtypes(got)
	assert.True(t, isNamed)
	require.Len(t, elems, 1)
	assert.Equal(t, "1", elems[0].Name)
	assert.Equal(t, schema.TypeID("std::str"), elems[0].Type.ID())
}

func TestTypeRef_NestedCollections(t *testing.T) {
	s, b := fixture(t)
	typ := mustType(t, s, "array<tuple<x: std::int64, y: array<std::str>>>")

	ref := mustTypeRef(t, b, typ)

	got, err := TypeRefToType(s, ref)
	require.NoError(t, err)
	assert.Equal(t, typ.ID(), got.ID())
	assert.Equal(t, typ.Name(), got.Name())
}

func TestTypeRef_Placeholders(t *testing.T) {
	s, b := fixture(t)

	anyRef := mustTypeRef(t, b, schema.Any)
	assert.IsType(t, &ir.AnyTypeRef{}, anyRef)
	assert.Equal(t, schema.AnyTypeID, anyRef.TypeID())
	assert.Equal(t, "anytype", anyRef.NameHint())

	tupleRef := mustTypeRef(t, b, schema.AnyTuple)
	assert.IsType(t, &ir.AnyTupleRef{}, tupleRef)
	assert.Equal(t, schema.AnyTupleID, tupleRef.TypeID())

	got, err := TypeRefToType(s, anyRef)
	require.NoError(t, err)
	assert.Same(t, schema.Any, got)

	got, err = TypeRefToType(s, tupleRef)
	require.NoError(t, err)
	assert.Same(t, schema.AnyTuple, got)
}

func TestTypeRef_Genericity(t *testing.T) {
	s, b := fixture(t)

	tests := []struct {
		expr    string
		generic bool
	}{
		{"anytype", true},
		{"anytuple", true},
		{"array<anytype>", true},
		{"tuple<std::int64, array<anytuple>>", true},
		{"tuple<a: std::str, b: tuple<std::int64, anytype>>", true},
		{"array<std::int64>", false},
		{"tuple<std::int64, std::str>", false},
		{"std::int64", false},
		{"default::User", false},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			ref := mustTypeRef(t, b, mustType(t, s, tt.expr))
			assert.Equal(t, tt.generic, IsGeneric(ref))
		})
	}
}

func TestTypeRef_WithTypeName(t *testing.T) {
	s, b := fixture(t)
	typ := mustType(t, s, "default::myint")

	plain := mustTypeRef(t, b, typ)
	named := mustTypeRef(t, b, typ, WithTypeName("Alias"))

	assert.Equal(t, "Alias", named.NameHint())
	assert.Equal(t, plain.TypeID(), named.TypeID())
	assert.NotEqual(t, plain.Key(), named.Key())

	// Nested references keep their own names.
	base := named.(*ir.SchemaTypeRef).BaseType
	require.NotNil(t, base)
	assert.Equal(t, "std::int64", base.NameHint())
}

func TestTypeRef_Memoized(t *testing.T) {
	s, b := fixture(t)
	typ := mustType(t, s, "default::Principal")

	first := mustTypeRef(t, b, typ)
	second := mustTypeRef(t, b, typ)

	assert.Same(t, first, second)

	// Children share instances with directly built references.
	user := mustTypeRef(t, b, mustType(t, s, "default::User"))
	var found bool
	for _, c := range first.(*ir.SchemaTypeRef).Children {
		if c == user {
			found = true
		}
	}
	assert.True(t, found, "child default::User should be the memoized instance")
}

func TestTypeRef_DeterministicAcrossBuilders(t *testing.T) {
	for _, expr := range []string{
		"default::Principal", "default::UserView", "default::myint",
		"tuple<a: std::int64, b: array<std::str>>",
	} {
		t.Run(expr, func(t *testing.T) {
			s1 := testutil.Snapshot()
			s2 := testutil.Snapshot()

			r1, err := TypeToTypeRef(s1, mustType(t, s1, expr))
			require.NoError(t, err)
			r2, err := TypeToTypeRef(s2, mustType(t, s2, expr))
			require.NoError(t, err)

			assert.Equal(t, r1.Key(), r2.Key())
			if diff := cmp.Diff(r1, r2); diff != "" {
				t.Errorf("refs differ (-first +second):\n%s", diff)
			}
		})
	}
}

func TestTypeRef_NilType(t *testing.T) {
	_, b := fixture(t)

	_, err := b.TypeRef(nil)
	assert.Error(t, err)
}

func TestTypeRef_CycleThroughVirtualBase(t *testing.T) {
	// Members inheriting from their own union make the union its own
	// common ancestor.
	s := testutil.SchemaBuilder().
		Union("default::Loop", schema.UnionDef{Members: []string{"default::Left", "default::Right"}}).
		Object("default::Left", schema.ObjectDef{Bases: []string{"default::Loop"}}).
		Object("default::Right", schema.ObjectDef{Bases: []string{"default::Loop"}}).
		MustBuild()

	_, err := TypeToTypeRef(s, mustType(t, s, "default::Loop"))

	var cycle *CycleError
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, "default::Loop", cycle.Name)
}
