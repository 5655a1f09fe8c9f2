package wire

import (
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/typeref/internal/ir"
	"github.com/roach88/typeref/internal/schema"
	"github.com/roach88/typeref/internal/testutil"
	"github.com/roach88/typeref/internal/typeutils"
)

func buildTypeRef(t *testing.T, s *schema.Snapshot, expr string) ir.TypeRef {
	t.Helper()
	typ, err := schema.ParseTypeExpr(s, expr)
	require.NoError(t, err)
	ref, err := typeutils.TypeToTypeRef(s, typ)
	require.NoError(t, err)
	return ref
}

func buildPtrRef(t *testing.T, s *schema.Snapshot, source, short string, dir ir.Direction) ir.PtrRef {
	t.Helper()
	p, err := s.PointerByID(schema.PointerID(source, short))
	require.NoError(t, err)

	b := typeutils.NewBuilder(s)
	src, err := b.TypeRef(s.Source(p))
	require.NoError(t, err)
	dst, err := b.TypeRef(s.Target(p))
	require.NoError(t, err)

	ref, err := b.PtrRef(typeutils.PtrRefRequest{Source: src, Target: dst, Pointer: p, Direction: dir})
	require.NoError(t, err)
	return ref
}

func TestTypeRefRoundTrip(t *testing.T) {
	s := testutil.Snapshot()

	for _, expr := range []string{
		"std::int64",
		"default::myint",
		"std::anyint",
		"default::User",
		"default::UserView",
		"default::Principal",
		"array<std::int64>",
		"tuple<std::int64, std::str>",
		"tuple<a: std::int64, b: array<std::str>>",
		"array<anytype>",
		"anytuple",
	} {
		t.Run(expr, func(t *testing.T) {
			ref := buildTypeRef(t, s, expr)

			data, err := EncodeTypeRef(ref)
			require.NoError(t, err)

			got, err := DecodeTypeRef(data)
			require.NoError(t, err)

			assert.Equal(t, ref.Key(), got.Key())
			if diff := cmp.Diff(ref, got); diff != "" {
				t.Errorf("decoded reference mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPtrRefRoundTrip(t *testing.T) {
	s := testutil.Snapshot()

	tests := []struct {
		source, short string
		dir           ir.Direction
	}{
		{"default::User", "friends", ir.Outbound},
		{"default::User", "friends", ir.Inbound},
		{"default::User", "display", ir.Outbound},
		{"default::Moderator", "friends", ir.Outbound},
		{"std::BaseObject", "id", ir.Outbound},
		{"default::User", "pair", ir.Outbound},
	}
	for _, tt := range tests {
		t.Run(tt.source+"."+tt.short+tt.dir.String(), func(t *testing.T) {
			ref := buildPtrRef(t, s, tt.source, tt.short, tt.dir)

			data, err := EncodePtrRef(ref)
			require.NoError(t, err)

			got, err := DecodePtrRef(data)
			require.NoError(t, err)

			assert.Equal(t, ref.Key(), got.Key())
			if diff := cmp.Diff(ref, got); diff != "" {
				t.Errorf("decoded reference mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPseudoPtrRefRoundTrip(t *testing.T) {
	s := testutil.Snapshot()
	b := typeutils.NewBuilder(s)

	tuple := buildTypeRef(t, s, "tuple<a: std::int64, b: std::str>")
	int64Ref := buildTypeRef(t, s, "std::int64")
	user := buildTypeRef(t, s, "default::User")
	admin := buildTypeRef(t, s, "default::Admin")

	tupleRef, err := b.PtrRef(typeutils.PtrRefRequest{
		Source: tuple, Target: int64Ref, Pointer: schema.NewTupleIndirection("a"),
	})
	require.NoError(t, err)

	userType, err := s.TypeByName("default::User")
	require.NoError(t, err)
	adminType, err := s.TypeByName("default::Admin")
	require.NoError(t, err)
	typeRef, err := b.PtrRef(typeutils.PtrRefRequest{
		Source: user,
		Target: admin,
		Pointer: &schema.TypeIndirection{
			Source: userType, Target: adminType, Optional: true, Cardinality: ir.CardinalityOne,
		},
		Parent: tupleRef,
	})
	require.NoError(t, err)

	for _, ref := range []ir.PtrRef{tupleRef, typeRef} {
		data, err := EncodePtrRef(ref)
		require.NoError(t, err)

		var raw struct {
			Ptr map[string]any `json:"ptr"`
		}
		require.NoError(t, json.Unmarshal(data, &raw))
		assert.NotContains(t, raw.Ptr, "id", "pseudo pointers carry no identity")
		assert.NotContains(t, raw.Ptr, "module_id")

		got, err := DecodePtrRef(data)
		require.NoError(t, err)
		assert.Equal(t, ref.Key(), got.Key())
		assert.IsType(t, ref, got)
	}
}

func TestDecodeVersionMismatch(t *testing.T) {
	s := testutil.Snapshot()
	data, err := EncodeTypeRef(buildTypeRef(t, s, "std::int64"))
	require.NoError(t, err)

	stale := strings.Replace(string(data), `"version":"`+ir.IRVersion+`"`, `"version":"0"`, 1)
	_, err = DecodeTypeRef([]byte(stale))
	require.ErrorIs(t, err, ErrVersionMismatch)
}

func TestDecodeWrongPayload(t *testing.T) {
	s := testutil.Snapshot()
	data, err := EncodeTypeRef(buildTypeRef(t, s, "std::int64"))
	require.NoError(t, err)

	_, err = DecodePtrRef(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no pointer reference")
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{"not json", `{`, "decode reference"},
		{"unknown type kind", `{"version":"1","type":{"kind":"blob","id":"00000000-0000-0000-0000-000000000000","name":"x"}}`, "unknown kind"},
		{"unknown collection", `{"version":"1","type":{"kind":"collection","id":"00000000-0000-0000-0000-000000000000","name":"x","collection":"set"}}`, "unknown collection"},
		{"type without module", `{"version":"1","type":{"kind":"type","id":"00000000-0000-0000-0000-000000000000","name":"x"}}`, "missing module_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeTypeRef([]byte(tt.payload))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDecodeRejectsIdentityOnPseudoPointer(t *testing.T) {
	payload := `{"version":"1","ptr":{"kind":"tuple_indirection","id":"00000000-0000-0000-0000-000000000001",` +
		`"name":{"module":"__tuple__","name":"a"},"shortname":{"module":"__tuple__","name":"a"},` +
		`"direction":">","dir_cardinality":"ONE","out_cardinality":"ONE","element":"a"}}`

	_, err := DecodePtrRef([]byte(payload))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has an id")
}

func TestEncodeNil(t *testing.T) {
	_, err := EncodeTypeRef(nil)
	assert.Error(t, err)
	_, err = EncodePtrRef(nil)
	assert.Error(t, err)
}
