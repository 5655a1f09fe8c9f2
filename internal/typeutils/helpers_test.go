package typeutils

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/typeref/internal/ir"
	"github.com/roach88/typeref/internal/schema"
	"github.com/roach88/typeref/internal/testutil"
)

func fixture(t *testing.T) (*schema.Snapshot, *Builder) {
	t.Helper()
	s := testutil.Snapshot()
	return s, NewBuilder(s)
}

func mustType(t *testing.T, s *schema.Snapshot, expr string) schema.Type {
	t.Helper()
	typ, err := schema.ParseTypeExpr(s, expr)
	require.NoError(t, err, "parse %q", expr)
	return typ
}

func mustTypeRef(t *testing.T, b *Builder, typ schema.Type, opts ...TypeRefOption) ir.TypeRef {
	t.Helper()
	ref, err := b.TypeRef(typ, opts...)
	require.NoError(t, err, "build type ref for %s", typ.Name())
	require.NotNil(t, ref)
	return ref
}

func mustPointer(t *testing.T, s *schema.Snapshot, source, short string) schema.Pointer {
	t.Helper()
	p, err := s.PointerByID(schema.PointerID(source, short))
	require.NoError(t, err, "pointer %s.%s", source, short)
	return p
}

// buildPtr builds the reference for source.short traversed in dir, with the
// pointer's declared endpoints.
func buildPtr(t *testing.T, s *schema.Snapshot, b *Builder, source, short string, dir ir.Direction) ir.PtrRef {
	t.Helper()
	p := mustPointer(t, s, source, short)
	ref, err := b.PtrRef(PtrRefRequest{
		Source:    mustTypeRef(t, b, s.Source(p)),
		Target:    mustTypeRef(t, b, s.Target(p)),
		Pointer:   p,
		Direction: dir,
	})
	require.NoError(t, err)
	return ref
}

func typeNames(refs []ir.TypeRef) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.NameHint()
	}
	return out
}

func ptrNames(refs []ir.PtrRef) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.Base().Name.String()
	}
	return out
}
