package history

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB stores the outcome of past sync sessions so `history` can report
// them after the fact.
type DB struct {
	db *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	instance := &DB{db: db}
	if err := instance.Migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return instance, nil
}

func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

func (d *DB) Migrate(ctx context.Context) error {
	_, err := d.db.ExecContext(ctx, schemaSQL)
	return err
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS sync_runs (
	id TEXT PRIMARY KEY,
	started INTEGER NOT NULL,
	finished INTEGER NOT NULL,
	status TEXT NOT NULL,
	succeeded INTEGER NOT NULL DEFAULT 0,
	failed INTEGER NOT NULL DEFAULT 0,
	skipped INTEGER NOT NULL DEFAULT 0,
	files_transferred INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS run_folders (
	run_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	local_path TEXT NOT NULL,
	target TEXT NOT NULL,
	status TEXT NOT NULL,
	error TEXT,
	files_transferred INTEGER NOT NULL DEFAULT 0,
	total_size TEXT,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (run_id, position),
	FOREIGN KEY (run_id) REFERENCES sync_runs(id)
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON sync_runs(started);
`
