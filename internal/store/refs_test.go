package store

import (
	"context"
	"testing"

	"github.com/roach88/typeref/internal/ir"
)

func TestPutTypeRef_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	ref := createTestTypeRef(t, "tuple<a: std::int64, b: std::str>")

	inserted, err := s.PutTypeRef(ctx, "v1", "pair", ref)
	if err != nil {
		t.Fatalf("PutTypeRef() failed: %v", err)
	}
	if !inserted {
		t.Error("first PutTypeRef() should insert")
	}

	got, found, err := s.GetTypeRef(ctx, "v1", "pair")
	if err != nil {
		t.Fatalf("GetTypeRef() failed: %v", err)
	}
	if !found {
		t.Fatal("GetTypeRef() did not find stored ref")
	}
	if got.Key() != ref.Key() {
		t.Errorf("key = %s, want %s", got.Key(), ref.Key())
	}
}

func TestPutPtrRef_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	ref := createTestPtrRef(t, "default::User", "friends")

	if _, err := s.PutPtrRef(ctx, "v1", "friends>", ref); err != nil {
		t.Fatalf("PutPtrRef() failed: %v", err)
	}

	got, found, err := s.GetPtrRef(ctx, "v1", "friends>")
	if err != nil {
		t.Fatalf("GetPtrRef() failed: %v", err)
	}
	if !found {
		t.Fatal("GetPtrRef() did not find stored ref")
	}
	if !ir.EqualPtrRefs(got, ref) {
		t.Error("decoded pointer ref differs from stored one")
	}
}

func TestPutTypeRef_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	first := createTestTypeRef(t, "std::int64")
	second := createTestTypeRef(t, "std::str")

	if _, err := s.PutTypeRef(ctx, "v1", "x", first); err != nil {
		t.Fatalf("first PutTypeRef() failed: %v", err)
	}
	inserted, err := s.PutTypeRef(ctx, "v1", "x", second)
	if err != nil {
		t.Fatalf("second PutTypeRef() failed: %v", err)
	}
	if inserted {
		t.Error("second PutTypeRef() for the same lookup should not insert")
	}

	got, _, err := s.GetTypeRef(ctx, "v1", "x")
	if err != nil {
		t.Fatalf("GetTypeRef() failed: %v", err)
	}
	if got.Key() != first.Key() {
		t.Error("first write should win")
	}
}

func TestGetTypeRef_Missing(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	ref, found, err := s.GetTypeRef(ctx, "v1", "nothing")
	if err != nil {
		t.Fatalf("GetTypeRef() failed: %v", err)
	}
	if found || ref != nil {
		t.Errorf("GetTypeRef() = %v, %v; want nil, false", ref, found)
	}
}

func TestGetTypeRef_ScopedBySnapshotAndKind(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if _, err := s.PutTypeRef(ctx, "v1", "x", createTestTypeRef(t, "std::int64")); err != nil {
		t.Fatal(err)
	}

	if _, found, _ := s.GetTypeRef(ctx, "v2", "x"); found {
		t.Error("ref leaked across snapshots")
	}
	if _, found, _ := s.GetPtrRef(ctx, "v1", "x"); found {
		t.Error("type ref returned as pointer ref")
	}
}

func TestGetTypeRef_IgnoresOtherIRVersion(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if _, err := s.PutTypeRef(ctx, "v1", "x", createTestTypeRef(t, "std::int64")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.db.Exec(`UPDATE refs SET ir_version = '0'`); err != nil {
		t.Fatal(err)
	}

	_, found, err := s.GetTypeRef(ctx, "v1", "x")
	if err != nil {
		t.Fatalf("GetTypeRef() failed: %v", err)
	}
	if found {
		t.Error("row from another IR version should read as a miss")
	}
}

func TestGetTypeRef_CorruptKey(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if _, err := s.PutTypeRef(ctx, "v1", "x", createTestTypeRef(t, "std::int64")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.db.Exec(`UPDATE refs SET ref_key = 'bogus'`); err != nil {
		t.Fatal(err)
	}

	if _, _, err := s.GetTypeRef(ctx, "v1", "x"); err == nil {
		t.Error("expected key mismatch error")
	}
}

func TestListRefs_DeterministicOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	lookups := []string{"c", "a", "b"}
	for _, l := range lookups {
		if _, err := s.PutTypeRef(ctx, "v1", l, createTestTypeRef(t, "std::int64")); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.PutTypeRef(ctx, "v2", "other", createTestTypeRef(t, "std::str")); err != nil {
		t.Fatal(err)
	}

	records, err := s.ListRefs(ctx, "v1")
	if err != nil {
		t.Fatalf("ListRefs() failed: %v", err)
	}
	if len(records) != len(lookups) {
		t.Fatalf("ListRefs() returned %d records, want %d", len(records), len(lookups))
	}
	for i, r := range records {
		if r.Lookup != lookups[i] {
			t.Errorf("records[%d].Lookup = %q, want %q (insertion order)", i, r.Lookup, lookups[i])
		}
		if r.Kind != KindType {
			t.Errorf("records[%d].Kind = %q, want %q", i, r.Kind, KindType)
		}
		if i > 0 && r.Seq <= records[i-1].Seq {
			t.Errorf("records not ordered by seq")
		}
	}
}

func TestListRefs_EmptyNotNil(t *testing.T) {
	s := createTestStore(t)

	records, err := s.ListRefs(context.Background(), "v1")
	if err != nil {
		t.Fatalf("ListRefs() failed: %v", err)
	}
	if records == nil {
		t.Error("ListRefs() returned nil, want empty slice")
	}
}

func TestFindByKey(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	ref := createTestTypeRef(t, "std::int64")

	for _, snap := range []string{"v1", "v2"} {
		if _, err := s.PutTypeRef(ctx, snap, "int", ref); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.PutTypeRef(ctx, "v1", "str", createTestTypeRef(t, "std::str")); err != nil {
		t.Fatal(err)
	}

	records, err := s.FindByKey(ctx, ref.Key())
	if err != nil {
		t.Fatalf("FindByKey() failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("FindByKey() returned %d records, want 2", len(records))
	}
	if records[0].Snapshot != "v1" || records[1].Snapshot != "v2" {
		t.Errorf("unexpected snapshots %q, %q", records[0].Snapshot, records[1].Snapshot)
	}
}

func TestCountRefs(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if _, err := s.PutTypeRef(ctx, "v1", "int", createTestTypeRef(t, "std::int64")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.PutTypeRef(ctx, "v1", "str", createTestTypeRef(t, "std::str")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.PutPtrRef(ctx, "v1", "friends", createTestPtrRef(t, "default::User", "friends")); err != nil {
		t.Fatal(err)
	}

	counts, err := s.CountRefs(ctx, "v1")
	if err != nil {
		t.Fatalf("CountRefs() failed: %v", err)
	}
	if counts[KindType] != 2 || counts[KindPointer] != 1 {
		t.Errorf("CountRefs() = %v, want 2 types and 1 pointer", counts)
	}

	empty, err := s.CountRefs(ctx, "v2")
	if err != nil {
		t.Fatal(err)
	}
	if empty[KindType] != 0 || empty[KindPointer] != 0 {
		t.Errorf("CountRefs(v2) = %v, want zeros", empty)
	}
}

func TestPruneSnapshots(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, snap := range []string{"v1", "v2", "v3"} {
		if _, err := s.PutTypeRef(ctx, snap, "int", createTestTypeRef(t, "std::int64")); err != nil {
			t.Fatal(err)
		}
	}

	n, err := s.PruneSnapshots(ctx, "v3")
	if err != nil {
		t.Fatalf("PruneSnapshots() failed: %v", err)
	}
	if n != 2 {
		t.Errorf("PruneSnapshots() deleted %d rows, want 2", n)
	}
	if _, found, _ := s.GetTypeRef(ctx, "v3", "int"); !found {
		t.Error("kept snapshot was pruned")
	}
}
