package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/typeref/internal/ir"
)

//go:embed schema.sql
var schemaSQL string

// migration upgrades a database from version-1 to version. Statements must
// be safe to re-run against a database created from schema.sql.
type migration struct {
	version int
	name    string
	stmt    string
}

// migrations are applied in order to databases whose user_version is below
// their version.
var migrations = []migration{
	{1, "index refs by key", `CREATE INDEX IF NOT EXISTS idx_refs_key ON refs(ref_key)`},
	{2, "index refs by ir version", `CREATE INDEX IF NOT EXISTS idx_refs_ir_version ON refs(ir_version)`},
}

var currentSchemaVersion = migrations[len(migrations)-1].version

// pragmas are set on every connection. The values are the ones SQLite
// reports back when queried.
var pragmas = []struct {
	name, value, reported string
}{
	{"journal_mode", "WAL", "wal"},
	{"synchronous", "NORMAL", "1"},
	{"busy_timeout", "5000", "5000"},
	{"foreign_keys", "ON", "1"},
}

// Store persists encoded IR references keyed by schema snapshot version.
// SQLite in WAL mode; a single connection serializes writers.
type Store struct {
	db *sql.DB

	// rows dropped on open because another IR version wrote them
	purged int64
}

// Open creates or opens the reference database at path, applies pragmas and
// migrations, and drops references written under another IR version. Safe to
// call on an existing database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite allows one writer; more connections only produce SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	purged, err := purgeStaleRefs(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, purged: purged}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying connection pool.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Purged returns how many stale references Open deleted.
func (s *Store) Purged() int64 {
	return s.purged
}

func applyPragmas(db *sql.DB) error {
	for _, p := range pragmas {
		stmt := fmt.Sprintf("PRAGMA %s = %s", p.name, p.value)
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute %q: %w", stmt, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// runMigrations applies every migration newer than user_version, each in its
// own transaction together with the version bump.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= version {
			continue
		}
		if err := applyMigration(db, m); err != nil {
			return err
		}
	}
	return nil
}

func applyMigration(db *sql.DB, m migration) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("migrate to v%d: %w", m.version, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(m.stmt); err != nil {
		return fmt.Errorf("migrate to v%d (%s): %w", m.version, m.name, err)
	}
	// PRAGMA does not take bind parameters.
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
		return fmt.Errorf("migrate to v%d: set user_version: %w", m.version, err)
	}
	return tx.Commit()
}

// purgeStaleRefs deletes rows whose payload was encoded by another IR
// version. Lookups already treat them as absent; keeping them only blocks
// re-insertion under the unique (snapshot, kind, lookup) constraint.
func purgeStaleRefs(db *sql.DB) (int64, error) {
	res, err := db.Exec(`DELETE FROM refs WHERE ir_version <> ?`, ir.IRVersion)
	if err != nil {
		return 0, fmt.Errorf("failed to purge stale references: %w", err)
	}
	return res.RowsAffected()
}

// verifyPragma checks that a pragma reports the expected value.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
