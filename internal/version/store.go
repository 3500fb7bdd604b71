package version

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a version id does not exist in the store.
var ErrNotFound = errors.New("version not found")

// Store provides persistence for index version metadata.
type Store interface {
	// Create registers a new version. It never changes which version is
	// active; a freshly created version starts inactive.
	Create(v Version) error
	// Activate marks the given version active and deactivates every other
	// version of the same machine, atomically.
	Activate(versionID string) (Version, error)
	// Delete removes a version. If it was the active one, the newest
	// remaining version of the machine (by created_at) is promoted.
	Delete(versionID string) error
	// GetActive returns the active version for a machine, or nil if the
	// machine has none.
	GetActive(machineID string) (*Version, error)
	// Get returns a version by id.
	Get(versionID string) (Version, error)
	// List returns all versions for a machine, newest first.
	List(machineID string) ([]Version, error)
	// OnChange registers a callback invoked with the machine id after any
	// write commits. Used for cache invalidation.
	OnChange(fn func(machineID string))
	// Close closes the underlying database.
	Close() error
}

// SQLiteStore implements Store backed by SQLite.
type SQLiteStore struct {
	db       *sql.DB
	onChange func(machineID string)
}

// Open creates or opens a SQLite database at the given path and initializes
// the schema.
func Open(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := Init(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) OnChange(fn func(machineID string)) {
	s.onChange = fn
}

func (s *SQLiteStore) notify(machineID string) {
	if s.onChange != nil {
		s.onChange(machineID)
	}
}

func (s *SQLiteStore) Create(v Version) error {
	_, err := s.db.Exec(
		`INSERT INTO index_versions
		 (version_id, machine_id, created_at, indexed_at, schema_version, storage_key, content_hash, total_chunks, total_errors, stats, is_active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`,
		v.VersionID, v.MachineID, v.CreatedAt, v.IndexedAt, v.SchemaVersion, v.StorageKey,
		v.ContentHash, v.TotalChunks, v.TotalErrors, statsOrEmpty(v.StatsJSON),
	)
	if err != nil {
		return fmt.Errorf("insert version: %w", err)
	}
	s.notify(v.MachineID)
	return nil
}

func (s *SQLiteStore) Activate(versionID string) (Version, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return Version{}, err
	}
	defer tx.Rollback()

	v, err := getTx(tx, versionID)
	if err != nil {
		return Version{}, err
	}

	if _, err := tx.Exec("UPDATE index_versions SET is_active = 0 WHERE machine_id = ?", v.MachineID); err != nil {
		return Version{}, err
	}
	if _, err := tx.Exec("UPDATE index_versions SET is_active = 1 WHERE version_id = ?", versionID); err != nil {
		return Version{}, err
	}
	if err := tx.Commit(); err != nil {
		return Version{}, err
	}
	v.IsActive = true
	s.notify(v.MachineID)
	return v, nil
}

func (s *SQLiteStore) Delete(versionID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	v, err := getTx(tx, versionID)
	if err != nil {
		return err
	}

	if _, err := tx.Exec("DELETE FROM index_versions WHERE version_id = ?", versionID); err != nil {
		return err
	}
	if v.IsActive {
		// Promote the newest remaining version, if any.
		var next string
		err := tx.QueryRow(
			`SELECT version_id FROM index_versions
			 WHERE machine_id = ?
			 ORDER BY created_at DESC, version_id DESC LIMIT 1`,
			v.MachineID,
		).Scan(&next)
		if err != nil && err != sql.ErrNoRows {
			return err
		}
		if err == nil {
			if _, err := tx.Exec("UPDATE index_versions SET is_active = 1 WHERE version_id = ?", next); err != nil {
				return err
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.notify(v.MachineID)
	return nil
}

func (s *SQLiteStore) GetActive(machineID string) (*Version, error) {
	row := s.db.QueryRow(
		selectCols+" WHERE machine_id = ? AND is_active = 1", machineID,
	)
	v, err := scanVersion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *SQLiteStore) Get(versionID string) (Version, error) {
	row := s.db.QueryRow(selectCols+" WHERE version_id = ?", versionID)
	v, err := scanVersion(row)
	if err == sql.ErrNoRows {
		return Version{}, ErrNotFound
	}
	return v, err
}

func (s *SQLiteStore) List(machineID string) ([]Version, error) {
	rows, err := s.db.Query(
		selectCols+" WHERE machine_id = ? ORDER BY created_at DESC, version_id DESC", machineID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const selectCols = `SELECT version_id, machine_id, created_at, indexed_at, schema_version,
	storage_key, content_hash, total_chunks, total_errors, stats, is_active
	FROM index_versions`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVersion(row rowScanner) (Version, error) {
	var v Version
	err := row.Scan(
		&v.VersionID, &v.MachineID, &v.CreatedAt, &v.IndexedAt, &v.SchemaVersion,
		&v.StorageKey, &v.ContentHash, &v.TotalChunks, &v.TotalErrors,
		&v.StatsJSON, &v.IsActive,
	)
	return v, err
}

func getTx(tx *sql.Tx, versionID string) (Version, error) {
	row := tx.QueryRow(selectCols+" WHERE version_id = ?", versionID)
	v, err := scanVersion(row)
	if err == sql.ErrNoRows {
		return Version{}, ErrNotFound
	}
	return v, err
}

func statsOrEmpty(s string) string {
	if s == "" {
		return "{}"
	}
	return s
}
