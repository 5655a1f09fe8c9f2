package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/typeref/internal/ir"
	"github.com/roach88/typeref/internal/schema"
	"github.com/roach88/typeref/internal/testutil"
	"github.com/roach88/typeref/internal/typeutils"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestTypeRef builds the reference of a fixture type expression.
func createTestTypeRef(t *testing.T, expr string) ir.TypeRef {
	t.Helper()
	snap := testutil.Snapshot()
	typ, err := schema.ParseTypeExpr(snap, expr)
	if err != nil {
		t.Fatalf("ParseTypeExpr(%q) failed: %v", expr, err)
	}
	ref, err := typeutils.TypeToTypeRef(snap, typ)
	if err != nil {
		t.Fatalf("TypeToTypeRef(%q) failed: %v", expr, err)
	}
	return ref
}

// createTestPtrRef builds the outbound reference of a fixture pointer.
func createTestPtrRef(t *testing.T, source, short string) ir.PtrRef {
	t.Helper()
	snap := testutil.Snapshot()
	p, err := snap.PointerByID(schema.PointerID(source, short))
	if err != nil {
		t.Fatalf("PointerByID(%s.%s) failed: %v", source, short, err)
	}
	b := typeutils.NewBuilder(snap)
	src, err := b.TypeRef(snap.Source(p))
	if err != nil {
		t.Fatal(err)
	}
	dst, err := b.TypeRef(snap.Target(p))
	if err != nil {
		t.Fatal(err)
	}
	ref, err := b.PtrRef(typeutils.PtrRefRequest{Source: src, Target: dst, Pointer: p})
	if err != nil {
		t.Fatalf("PtrRef(%s.%s) failed: %v", source, short, err)
	}
	return ref
}
