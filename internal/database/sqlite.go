// Package database implements the metadata index on SQLite. One row per
// capture event; all queries order newest first via the lexically-sortable
// captured_at column.
package database

import (
	"database/sql"
	"errors"
	"fmt"

	"snapkeep/internal/database/migrations"
	"snapkeep/internal/model"
	"snapkeep/internal/snap"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteIndex implements the snap.Index interface using SQLite.
type SQLiteIndex struct {
	db   *sql.DB
	path string
}

// NewSQLiteIndex opens (or creates) the index at path and brings its schema
// up to date. path can be ":memory:" for an in-memory index.
func NewSQLiteIndex(path string) (*SQLiteIndex, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating index schema: %w", err)
	}

	return &SQLiteIndex{db: db, path: path}, nil
}

// OpenConnection opens and configures a SQLite connection with the PRAGMAs
// the index relies on. Exported for tests and tools.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Wait for locks instead of failing immediately when a host embeds the
	// engine behind concurrent callers.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	return db, nil
}

const recordColumns = "id, path, blob_path, fingerprint, captured_at, size"

func scanRecord(row interface{ Scan(...any) error }) (*model.SnapshotRecord, error) {
	var rec model.SnapshotRecord
	err := row.Scan(&rec.ID, &rec.Path, &rec.BlobPath, &rec.Fingerprint, &rec.CapturedAt, &rec.Size)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *SQLiteIndex) queryRecords(query string, args ...any) ([]*model.SnapshotRecord, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying snapshots: %w", err)
	}
	defer rows.Close()

	var records []*model.SnapshotRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating snapshot rows: %w", err)
	}
	return records, nil
}

// InsertIfNew records a capture event unless the newest record for rec.Path
// already carries rec.Fingerprint. The check and insert run in one
// transaction so concurrent captures of the same path cannot double-insert.
func (s *SQLiteIndex) InsertIfNew(rec *model.SnapshotRecord) (bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	var latest string
	err = tx.QueryRow(
		"SELECT fingerprint FROM snapshots WHERE path = ? ORDER BY captured_at DESC, id DESC LIMIT 1",
		rec.Path,
	).Scan(&latest)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("checking latest snapshot: %w", err)
	}
	if err == nil && latest == rec.Fingerprint {
		// Unchanged content: no new record.
		return false, tx.Commit()
	}

	res, err := tx.Exec(
		"INSERT INTO snapshots (path, blob_path, fingerprint, captured_at, size) VALUES (?, ?, ?, ?, ?)",
		rec.Path, rec.BlobPath, rec.Fingerprint, rec.CapturedAt, rec.Size,
	)
	if err != nil {
		return false, fmt.Errorf("inserting snapshot: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return false, fmt.Errorf("reading inserted id: %w", err)
	}
	rec.ID = id

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing transaction: %w", err)
	}
	return true, nil
}

func (s *SQLiteIndex) SnapshotsForPath(path string) ([]*model.SnapshotRecord, error) {
	return s.queryRecords(
		"SELECT "+recordColumns+" FROM snapshots WHERE path = ? ORDER BY captured_at DESC, id DESC",
		path,
	)
}

func (s *SQLiteIndex) SnapshotByID(id int64) (*model.SnapshotRecord, error) {
	row := s.db.QueryRow("SELECT "+recordColumns+" FROM snapshots WHERE id = ?", id)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // not found
		}
		return nil, fmt.Errorf("finding snapshot by id: %w", err)
	}
	return rec, nil
}

func (s *SQLiteIndex) SnapshotsByFingerprintPrefix(prefix string) ([]*model.SnapshotRecord, error) {
	// LIKE is avoided so that _ and % in a prefix cannot act as wildcards.
	return s.queryRecords(
		"SELECT "+recordColumns+" FROM snapshots WHERE substr(fingerprint, 1, ?) = ? ORDER BY captured_at DESC, id DESC",
		len(prefix), prefix,
	)
}

func (s *SQLiteIndex) ListAll() ([]*model.SnapshotRecord, error) {
	return s.queryRecords(
		"SELECT " + recordColumns + " FROM snapshots ORDER BY captured_at DESC, id DESC",
	)
}

func (s *SQLiteIndex) ListByPathPrefix(dir string) ([]*model.SnapshotRecord, error) {
	return s.queryRecords(
		"SELECT "+recordColumns+" FROM snapshots WHERE path = ? OR path LIKE ? ORDER BY captured_at DESC, id DESC",
		dir, dir+"/%",
	)
}

// Search matches the substring anywhere in the path. SQLite LIKE is
// case-insensitive for ASCII, which is the documented behavior here.
func (s *SQLiteIndex) Search(substring string) ([]*model.SnapshotRecord, error) {
	return s.queryRecords(
		"SELECT "+recordColumns+" FROM snapshots WHERE path LIKE ? ORDER BY captured_at DESC, id DESC",
		"%"+substring+"%",
	)
}

func (s *SQLiteIndex) deleteWhere(query string, args ...any) (int64, error) {
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("deleting snapshots: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted rows: %w", err)
	}
	return n, nil
}

func (s *SQLiteIndex) DeleteByID(id int64) (int64, error) {
	return s.deleteWhere("DELETE FROM snapshots WHERE id = ?", id)
}

func (s *SQLiteIndex) DeleteByPath(path string) (int64, error) {
	return s.deleteWhere("DELETE FROM snapshots WHERE path = ?", path)
}

func (s *SQLiteIndex) DeleteByPathPrefix(dir string) (int64, error) {
	return s.deleteWhere("DELETE FROM snapshots WHERE path = ? OR path LIKE ?", dir, dir+"/%")
}

func (s *SQLiteIndex) DeleteAll() (int64, error) {
	return s.deleteWhere("DELETE FROM snapshots")
}

// LiveBlobNames returns the distinct blob file names still referenced by at
// least one record. blob_path stores a full path; only the base name is
// meaningful to the reclamation sweep.
func (s *SQLiteIndex) LiveBlobNames() (map[string]struct{}, error) {
	rows, err := s.db.Query("SELECT DISTINCT blob_path FROM snapshots")
	if err != nil {
		return nil, fmt.Errorf("querying live blobs: %w", err)
	}
	defer rows.Close()

	live := make(map[string]struct{})
	for rows.Next() {
		var blobPath string
		if err := rows.Scan(&blobPath); err != nil {
			return nil, fmt.Errorf("scanning blob path: %w", err)
		}
		live[baseName(blobPath)] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating blob paths: %w", err)
	}
	return live, nil
}

// baseName extracts the final path element without pulling in path/filepath
// semantics for records written on another OS.
func baseName(p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' || p[i] == '\\' {
			return p[i+1:]
		}
	}
	return p
}

func (s *SQLiteIndex) AddExclusion(pattern, kind string) error {
	if !model.ValidExclusionKind(kind) {
		return fmt.Errorf("unknown exclusion kind: %s", kind)
	}
	if _, err := s.db.Exec("INSERT INTO exclusions (pattern, kind) VALUES (?, ?)", pattern, kind); err != nil {
		return fmt.Errorf("inserting exclusion: %w", err)
	}
	return nil
}

func (s *SQLiteIndex) RemoveExclusion(pattern string) (int64, error) {
	res, err := s.db.Exec("DELETE FROM exclusions WHERE pattern = ?", pattern)
	if err != nil {
		return 0, fmt.Errorf("deleting exclusion: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted exclusions: %w", err)
	}
	return n, nil
}

func (s *SQLiteIndex) ListExclusions() ([]*model.Exclusion, error) {
	rows, err := s.db.Query("SELECT id, pattern, kind FROM exclusions ORDER BY kind, pattern")
	if err != nil {
		return nil, fmt.Errorf("querying exclusions: %w", err)
	}
	defer rows.Close()

	var exclusions []*model.Exclusion
	for rows.Next() {
		var ex model.Exclusion
		if err := rows.Scan(&ex.ID, &ex.Pattern, &ex.Kind); err != nil {
			return nil, fmt.Errorf("scanning exclusion row: %w", err)
		}
		exclusions = append(exclusions, &ex)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating exclusion rows: %w", err)
	}
	return exclusions, nil
}

// Path returns the index file path (or ":memory:").
func (s *SQLiteIndex) Path() string { return s.path }

// CheckMigrations verifies the index schema is up to date.
func (s *SQLiteIndex) CheckMigrations() error {
	return migrations.CheckStatus(s.db)
}

// Close closes the database connection.
func (s *SQLiteIndex) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check that SQLiteIndex implements snap.Index.
var _ snap.Index = (*SQLiteIndex)(nil)
