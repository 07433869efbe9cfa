package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"nfsync/internal/config"
	"nfsync/internal/sync"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleSummary(id string, started time.Time) sync.Summary {
	return sync.Summary{
		SessionID:        id,
		Status:           sync.StatusPartial,
		Started:          started,
		Finished:         started.Add(42 * time.Second),
		Succeeded:        1,
		Failed:           1,
		FilesTransferred: 7,
		Results: []sync.FolderResult{
			{
				Folder:           config.SyncFolder{LocalPath: "/home/user/docs", Target: "docs", Enabled: true},
				Status:           sync.FolderOK,
				FilesTransferred: 7,
				TotalSize:        "9.80M",
				Duration:         40 * time.Second,
			},
			{
				Folder:   config.SyncFolder{LocalPath: "/home/user/music", Target: "music", Enabled: true},
				Status:   sync.FolderFailed,
				Error:    "exit status 23",
				Duration: 2 * time.Second,
			},
		},
	}
}

func TestRecordAndGet(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	started := time.Now().Truncate(time.Millisecond)

	if err := db.Record(ctx, sampleSummary("run-1", started)); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	run, folders, err := db.Get(ctx, "run-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if run.Status != "partial" || run.Succeeded != 1 || run.Failed != 1 {
		t.Errorf("unexpected run: %+v", run)
	}
	if !run.Started.Equal(started) {
		t.Errorf("Started = %v, want %v", run.Started, started)
	}
	if len(folders) != 2 {
		t.Fatalf("expected 2 folder records, got %d", len(folders))
	}
	if folders[0].LocalPath != "/home/user/docs" || folders[0].TotalSize != "9.80M" {
		t.Errorf("unexpected first folder: %+v", folders[0])
	}
	if folders[1].Error != "exit status 23" || folders[1].Duration != 2*time.Second {
		t.Errorf("unexpected second folder: %+v", folders[1])
	}
}

func TestGet_NotFound(t *testing.T) {
	db := openTestDB(t)
	if _, _, err := db.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRecent_NewestFirst(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i, id := range []string{"run-a", "run-b", "run-c"} {
		if err := db.Record(ctx, sampleSummary(id, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("Record %s failed: %v", id, err)
		}
	}

	runs, err := db.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-c" || runs[1].ID != "run-b" {
		t.Errorf("unexpected order: %+v", runs)
	}

	last, err := db.LastRun(ctx)
	if err != nil {
		t.Fatalf("LastRun failed: %v", err)
	}
	if last == nil || last.ID != "run-c" {
		t.Errorf("LastRun = %+v, want run-c", last)
	}
}

func TestLastRun_Empty(t *testing.T) {
	db := openTestDB(t)
	last, err := db.LastRun(context.Background())
	if err != nil {
		t.Fatalf("LastRun failed: %v", err)
	}
	if last != nil {
		t.Errorf("expected nil, got %+v", last)
	}
}

func TestPrune(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i := 0; i < 5; i++ {
		id := string(rune('a'+i)) + "-run"
		if err := db.Record(ctx, sampleSummary(id, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	if err := db.Prune(ctx, 2); err != nil {
		t.Fatalf("Prune failed: %v", err)
	}

	runs, err := db.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs after prune, got %d", len(runs))
	}

	// Folder records of pruned runs are gone too.
	if _, _, err := db.Get(ctx, "a-run"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected pruned run to be gone, got %v", err)
	}
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := db.Record(ctx, sampleSummary("run-1", time.Now())); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	db, err = Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer db.Close()
	runs, err := db.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("expected 1 run after reopen, got %d", len(runs))
	}
}
