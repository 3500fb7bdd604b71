package version

import "database/sql"

const ddl = `
PRAGMA journal_mode=WAL;
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS index_versions (
    version_id     TEXT PRIMARY KEY,
    machine_id     TEXT NOT NULL,
    created_at     DATETIME NOT NULL,
    indexed_at     DATETIME NOT NULL,
    schema_version TEXT NOT NULL,
    storage_key    TEXT NOT NULL,
    content_hash   TEXT NOT NULL,
    total_chunks   INTEGER NOT NULL DEFAULT 0,
    total_errors   INTEGER NOT NULL DEFAULT 0,
    stats          TEXT NOT NULL DEFAULT '{}',
    is_active      INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_versions_machine
    ON index_versions(machine_id, created_at);

-- At most one active version per machine, enforced at the database level.
CREATE UNIQUE INDEX IF NOT EXISTS idx_versions_one_active
    ON index_versions(machine_id) WHERE is_active = 1;
`

// Init creates the schema tables if they don't exist.
func Init(db *sql.DB) error {
	_, err := db.Exec(ddl)
	return err
}
