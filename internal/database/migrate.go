// Package database owns the one thing internal/dao does not: standing up the
// schema. It opens a short-lived database/sql connection through lib/pq
// (kept deliberately separate from the pgxpool the DAO queries through,
// mirroring how many services split "migrate with the stdlib driver" from
// "query with pgx") and runs an idempotent CREATE TABLE.
package database

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS drs_objects (
	file_id              TEXT PRIMARY KEY,
	object_id            TEXT NOT NULL UNIQUE,
	s3_endpoint_alias    TEXT NOT NULL,
	decryption_secret_id TEXT NOT NULL,
	decrypted_sha256     TEXT NOT NULL,
	decrypted_size       BIGINT NOT NULL,
	creation_date        TIMESTAMPTZ NOT NULL,
	last_accessed        TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_drs_objects_last_accessed ON drs_objects (last_accessed);
`

// Migrate opens dsn with the lib/pq driver and applies the schema. It is
// meant to be run once at startup (via cmd/dcs migrate) ahead of the
// pgxpool-backed DAO taking over query traffic.
func Migrate(dsn string) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database for migration: %w", err)
	}

	return MigrateDB(db)
}

// MigrateDB applies the schema over an already-open *sql.DB, factored out of
// Migrate so tests can exercise it against a sqlmock connection instead of a
// live Postgres instance.
func MigrateDB(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	log.Println("[Database] schema migration applied")
	return nil
}
