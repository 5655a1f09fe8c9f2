package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/typeref/internal/ir"
	"github.com/roach88/typeref/internal/wire"
)

// Kind distinguishes stored type references from pointer references.
type Kind string

const (
	KindType    Kind = "type"
	KindPointer Kind = "pointer"
)

// Record is one stored reference.
type Record struct {
	Seq       int64
	Snapshot  string
	Kind      Kind
	Lookup    string
	Key       ir.RefKey
	Payload   []byte
	IRVersion string
}

// PutTypeRef stores ref under (snapshot, lookup).
// Uses ON CONFLICT DO NOTHING for idempotency - inserted is false when the
// lookup was already stored, in which case the existing row is kept.
func (s *Store) PutTypeRef(ctx context.Context, snapshot, lookup string, ref ir.TypeRef) (inserted bool, err error) {
	payload, err := wire.EncodeTypeRef(ref)
	if err != nil {
		return false, fmt.Errorf("put type ref: %w", err)
	}
	return s.put(ctx, Record{
		Snapshot: snapshot,
		Kind:     KindType,
		Lookup:   lookup,
		Key:      ref.Key(),
		Payload:  payload,
	})
}

// PutPtrRef stores ref under (snapshot, lookup). See PutTypeRef.
func (s *Store) PutPtrRef(ctx context.Context, snapshot, lookup string, ref ir.PtrRef) (inserted bool, err error) {
	payload, err := wire.EncodePtrRef(ref)
	if err != nil {
		return false, fmt.Errorf("put pointer ref: %w", err)
	}
	return s.put(ctx, Record{
		Snapshot: snapshot,
		Kind:     KindPointer,
		Lookup:   lookup,
		Key:      ref.Key(),
		Payload:  payload,
	})
}

func (s *Store) put(ctx context.Context, r Record) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO refs
		(snapshot, kind, lookup, ref_key, payload, ir_version)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(snapshot, kind, lookup) DO NOTHING
	`,
		r.Snapshot,
		string(r.Kind),
		r.Lookup,
		string(r.Key),
		r.Payload,
		ir.IRVersion,
	)
	if err != nil {
		return false, fmt.Errorf("put %s ref %q: %w", r.Kind, r.Lookup, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("put %s ref %q: rows affected: %w", r.Kind, r.Lookup, err)
	}
	return n > 0, nil
}

// GetTypeRef returns the type reference stored under (snapshot, lookup).
// found is false when nothing is stored or the stored row was written by a
// different reference format version.
func (s *Store) GetTypeRef(ctx context.Context, snapshot, lookup string) (ref ir.TypeRef, found bool, err error) {
	r, found, err := s.get(ctx, snapshot, KindType, lookup)
	if err != nil || !found {
		return nil, false, err
	}
	ref, err = wire.DecodeTypeRef(r.Payload)
	if err != nil {
		return nil, false, fmt.Errorf("get type ref %q: %w", lookup, err)
	}
	if ref.Key() != r.Key {
		return nil, false, fmt.Errorf("get type ref %q: stored key %s does not match payload", lookup, r.Key.Short())
	}
	return ref, true, nil
}

// GetPtrRef returns the pointer reference stored under (snapshot, lookup).
// See GetTypeRef.
func (s *Store) GetPtrRef(ctx context.Context, snapshot, lookup string) (ref ir.PtrRef, found bool, err error) {
	r, found, err := s.get(ctx, snapshot, KindPointer, lookup)
	if err != nil || !found {
		return nil, false, err
	}
	ref, err = wire.DecodePtrRef(r.Payload)
	if err != nil {
		return nil, false, fmt.Errorf("get pointer ref %q: %w", lookup, err)
	}
	if ref.Key() != r.Key {
		return nil, false, fmt.Errorf("get pointer ref %q: stored key %s does not match payload", lookup, r.Key.Short())
	}
	return ref, true, nil
}

func (s *Store) get(ctx context.Context, snapshot string, kind Kind, lookup string) (Record, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT seq, snapshot, kind, lookup, ref_key, payload, ir_version
		FROM refs
		WHERE snapshot = ? AND kind = ? AND lookup = ?
	`, snapshot, string(kind), lookup)

	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("get %s ref %q: %w", kind, lookup, err)
	}
	if r.IRVersion != ir.IRVersion {
		return Record{}, false, nil
	}
	return r, true, nil
}

// ListRefs returns every row stored for snapshot.
// Results are ordered deterministically: ORDER BY seq ASC, lookup COLLATE BINARY ASC.
//
// Returns an empty slice (not nil) if nothing is stored.
func (s *Store) ListRefs(ctx context.Context, snapshot string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, snapshot, kind, lookup, ref_key, payload, ir_version
		FROM refs
		WHERE snapshot = ?
		ORDER BY seq ASC, lookup COLLATE BINARY ASC
	`, snapshot)
	if err != nil {
		return nil, fmt.Errorf("query refs: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ref: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate refs: %w", err)
	}
	return records, nil
}

// FindByKey returns the lookups, across all snapshots, whose reference has
// the given content key. Ordered by seq.
func (s *Store) FindByKey(ctx context.Context, key ir.RefKey) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, snapshot, kind, lookup, ref_key, payload, ir_version
		FROM refs
		WHERE ref_key = ?
		ORDER BY seq ASC, lookup COLLATE BINARY ASC
	`, string(key))
	if err != nil {
		return nil, fmt.Errorf("query refs by key: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ref: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate refs: %w", err)
	}
	return records, nil
}

// CountRefs returns the number of rows stored for snapshot, per kind.
func (s *Store) CountRefs(ctx context.Context, snapshot string) (map[Kind]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, COUNT(*)
		FROM refs
		WHERE snapshot = ?
		GROUP BY kind
		ORDER BY kind
	`, snapshot)
	if err != nil {
		return nil, fmt.Errorf("count refs: %w", err)
	}
	defer rows.Close()

	counts := map[Kind]int{KindType: 0, KindPointer: 0}
	for rows.Next() {
		var (
			kind string
			n    int
		)
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[Kind(kind)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate counts: %w", err)
	}
	return counts, nil
}

// PruneSnapshots deletes every row not belonging to keep and returns the
// number of rows deleted.
func (s *Store) PruneSnapshots(ctx context.Context, keep string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM refs WHERE snapshot != ?`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: rows affected: %w", err)
	}
	return n, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var (
		r    Record
		kind string
		key  string
	)
	if err := row.Scan(&r.Seq, &r.Snapshot, &kind, &r.Lookup, &key, &r.Payload, &r.IRVersion); err != nil {
		return Record{}, err
	}
	r.Kind = Kind(kind)
	r.Key = ir.RefKey(key)
	return r, nil
}
