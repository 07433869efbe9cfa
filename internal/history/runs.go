package history

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"nfsync/internal/sync"
)

// ErrNotFound is returned when a run ID does not exist.
var ErrNotFound = errors.New("run not found")

// Record persists a finished session and its per-folder outcomes.
func (d *DB) Record(ctx context.Context, summary sync.Summary) (err error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sync_runs (id, started, finished, status, succeeded, failed, skipped, files_transferred)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, summary.SessionID, summary.Started.UnixMilli(), summary.Finished.UnixMilli(),
		string(summary.Status), summary.Succeeded, summary.Failed, summary.Skipped, summary.FilesTransferred)
	if err != nil {
		_ = tx.Rollback()
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_folders (run_id, position, local_path, target, status, error, files_transferred, total_size, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	for i, result := range summary.Results {
		_, err := stmt.ExecContext(ctx, summary.SessionID, i,
			result.Folder.LocalPath, result.Folder.Target, string(result.Status),
			result.Error, result.FilesTransferred, result.TotalSize, result.Duration.Milliseconds())
		if err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// Recent returns the most recent runs, newest first.
func (d *DB) Recent(ctx context.Context, limit int) (runs []Run, err error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, started, finished, status, succeeded, failed, skipped, files_transferred
		FROM sync_runs ORDER BY started DESC, id LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

// Get returns a single run with its folder outcomes.
func (d *DB) Get(ctx context.Context, id string) (*Run, []FolderRecord, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT id, started, finished, status, succeeded, failed, skipped, files_transferred
		FROM sync_runs WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	folders, err := d.folders(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return &run, folders, nil
}

// LastRun returns the newest run, or nil when the history is empty.
func (d *DB) LastRun(ctx context.Context) (*Run, error) {
	runs, err := d.Recent(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}

// Prune keeps only the newest `keep` runs and drops the rest.
func (d *DB) Prune(ctx context.Context, keep int) error {
	if keep < 0 {
		keep = 0
	}
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		DELETE FROM run_folders WHERE run_id NOT IN (
			SELECT id FROM sync_runs ORDER BY started DESC, id LIMIT ?
		)
	`, keep)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	_, err = tx.ExecContext(ctx, `
		DELETE FROM sync_runs WHERE id NOT IN (
			SELECT id FROM sync_runs ORDER BY started DESC, id LIMIT ?
		)
	`, keep)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (d *DB) folders(ctx context.Context, runID string) (folders []FolderRecord, err error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT run_id, local_path, target, status, error, files_transferred, total_size, duration_ms
		FROM run_folders WHERE run_id = ? ORDER BY position
	`, runID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	for rows.Next() {
		var record FolderRecord
		var errText, totalSize sql.NullString
		var durationMS int64
		if err := rows.Scan(&record.RunID, &record.LocalPath, &record.Target, &record.Status,
			&errText, &record.FilesTransferred, &totalSize, &durationMS); err != nil {
			return nil, err
		}
		record.Error = errText.String
		record.TotalSize = totalSize.String
		record.Duration = time.Duration(durationMS) * time.Millisecond
		folders = append(folders, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return folders, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var run Run
	var started, finished int64
	if err := row.Scan(&run.ID, &started, &finished, &run.Status,
		&run.Succeeded, &run.Failed, &run.Skipped, &run.FilesTransferred); err != nil {
		return Run{}, err
	}
	run.Started = time.UnixMilli(started)
	run.Finished = time.UnixMilli(finished)
	return run, nil
}
