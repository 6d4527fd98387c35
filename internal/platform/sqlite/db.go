package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection.
type DB struct {
	*sql.DB
}

// New opens a SQLite database. SQLite allows a single writer, so the pool
// is limited to one connection.
func New(dataSourceName string) (*DB, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return &DB{db}, nil
}

// RunMigrations creates the schema if it does not exist yet. Timestamps are
// stored as unix nanoseconds so range filters compare numerically.
func (db *DB) RunMigrations() error {
	migration := `
CREATE TABLE IF NOT EXISTS patient_case (
    id TEXT PRIMARY KEY,
    patient_ref TEXT NOT NULL DEFAULT '',
    summary_clinics TEXT NOT NULL DEFAULT '[]',
    summary_symptoms TEXT NOT NULL DEFAULT '[]',
    created_by TEXT NOT NULL DEFAULT '',
    updated_by TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_patient_case_created ON patient_case(created_at);

CREATE TABLE IF NOT EXISTS question_result (
    id TEXT PRIMARY KEY,
    case_id TEXT,
    position INTEGER NOT NULL DEFAULT 0,
    question_code INTEGER NOT NULL,
    question_key TEXT NOT NULL,
    question_title TEXT NOT NULL DEFAULT '',
    question TEXT NOT NULL DEFAULT '',
    clinic TEXT NOT NULL DEFAULT '[]',
    symptoms TEXT NOT NULL DEFAULT '[]',
    note TEXT NOT NULL DEFAULT '',
    is_refer_case INTEGER NOT NULL DEFAULT 0,
    type TEXT NOT NULL DEFAULT 'form',
    created_by TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL,
    FOREIGN KEY (case_id) REFERENCES patient_case(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_question_result_case ON question_result(case_id);
CREATE INDEX IF NOT EXISTS idx_question_result_type_created ON question_result(type, created_at);
`
	if _, err := db.Exec(migration); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Healthy reports whether the database answers.
func (db *DB) Healthy(ctx context.Context) error {
	return db.PingContext(ctx)
}

// IsForeignKeyViolation reports whether err is a foreign key failure.
func IsForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// IsUniqueViolation reports whether err is a unique constraint failure.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
