package sync

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"nfsync/internal/config"
)

// fakeProc scripts rsync invocations. Each call records its args and
// emits the configured output lines; paths listed in failFor return an
// error after emitting.
type fakeProc struct {
	mu      sync.Mutex
	calls   [][]string
	output  []string
	failFor map[string]error
	block   chan struct{} // when set, Run waits for ctx or release
	started chan string   // receives the source path of each call
}

func (f *fakeProc) Run(ctx context.Context, name string, args []string, onLine func(string)) error {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string{name}, args...))
	f.mu.Unlock()

	src := args[len(args)-2]
	if f.started != nil {
		f.started <- src
	}
	if f.block != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.block:
		}
	}

	for _, line := range f.output {
		onLine(line)
	}
	if err, ok := f.failFor[src]; ok {
		return err
	}
	return ctx.Err()
}

func (f *fakeProc) callArgs() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeMount struct {
	mounted bool
}

func (f *fakeMount) IsMounted(ctx context.Context) bool {
	return f.mounted
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Server = "nas.local"
	cfg.Share = "/export/backup"
	cfg.MountPoint = t.TempDir()
	cfg.SyncFolders = []config.SyncFolder{
		{LocalPath: "/home/user/docs", Target: "docs", Enabled: true},
		{LocalPath: "/home/user/pics", Target: "pics", Enabled: false},
		{LocalPath: "/home/user/music", Target: "music", Enabled: true},
	}
	return cfg
}

func newTestEngine(cfg *config.Config, proc ProcessRunner) *Engine {
	return NewEngine(cfg, EngineOptions{
		Proc:     proc,
		Mount:    &fakeMount{mounted: true},
		LookPath: func(string) error { return nil },
	})
}

func TestRun_SyncsEnabledFoldersInOrder(t *testing.T) {
	cfg := testConfig(t)
	proc := &fakeProc{output: []string{
		"sending incremental file list",
		"Number of regular files transferred: 12",
		"Total transferred file size: 4.21M bytes",
		"total size is 9.80M  speedup is 2.33",
	}}
	engine := newTestEngine(cfg, proc)

	summary, err := engine.Run(context.Background(), StartOptions{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.Status != StatusCompleted {
		t.Errorf("Status = %q, want %q", summary.Status, StatusCompleted)
	}
	if summary.Succeeded != 2 || summary.Failed != 0 || summary.Skipped != 0 {
		t.Errorf("counts = %d/%d/%d, want 2/0/0",
			summary.Succeeded, summary.Failed, summary.Skipped)
	}
	if summary.FilesTransferred != 24 {
		t.Errorf("FilesTransferred = %d, want 24", summary.FilesTransferred)
	}

	calls := proc.callArgs()
	if len(calls) != 2 {
		t.Fatalf("expected 2 rsync calls, got %d", len(calls))
	}
	// Disabled folders never enter the queue; order follows configuration.
	if src := calls[0][len(calls[0])-2]; src != "/home/user/docs/" {
		t.Errorf("first source = %q, want /home/user/docs/", src)
	}
	if src := calls[1][len(calls[1])-2]; src != "/home/user/music/" {
		t.Errorf("second source = %q, want /home/user/music/", src)
	}
	if dst := calls[0][len(calls[0])-1]; dst != filepath.Join(cfg.MountPoint, "docs") {
		t.Errorf("first target = %q", dst)
	}
}

func TestRun_ArgsCarryExcludesAndDelete(t *testing.T) {
	cfg := testConfig(t)
	cfg.DeleteExtraneous = true
	cfg.ExcludePatterns = []string{"*.iso"}
	proc := &fakeProc{}
	engine := newTestEngine(cfg, proc)

	if _, err := engine.Run(context.Background(), StartOptions{}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	args := strings.Join(proc.callArgs()[0], " ")
	for _, want := range []string{"rsync", "-avh", "--progress", "--stats", "--delete", "--exclude=.git/", "--exclude=*.iso"} {
		if !strings.Contains(args, want) {
			t.Errorf("args missing %q: %s", want, args)
		}
	}
	if strings.Contains(args, "--dry-run") {
		t.Errorf("unexpected --dry-run: %s", args)
	}
}

func TestRun_DryRun(t *testing.T) {
	cfg := testConfig(t)
	proc := &fakeProc{}
	engine := newTestEngine(cfg, proc)

	if _, err := engine.Run(context.Background(), StartOptions{DryRun: true}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	args := strings.Join(proc.callArgs()[0], " ")
	if !strings.Contains(args, "--dry-run") {
		t.Errorf("args missing --dry-run: %s", args)
	}
}

func TestRun_FolderFailureContinuesSession(t *testing.T) {
	cfg := testConfig(t)
	proc := &fakeProc{
		failFor: map[string]error{"/home/user/docs/": errors.New("exit status 23")},
		output:  []string{"rsync: some files could not be transferred"},
	}
	engine := newTestEngine(cfg, proc)

	summary, err := engine.Run(context.Background(), StartOptions{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.Status != StatusPartial {
		t.Errorf("Status = %q, want %q", summary.Status, StatusPartial)
	}
	if summary.Succeeded != 1 || summary.Failed != 1 {
		t.Errorf("counts = %d/%d, want 1 succeeded, 1 failed", summary.Succeeded, summary.Failed)
	}
	if len(proc.callArgs()) != 2 {
		t.Fatalf("expected the session to continue after a failure, got %d calls", len(proc.callArgs()))
	}
	failed := summary.Results[0]
	if failed.Status != FolderFailed || !strings.Contains(failed.Error, "exit status 23") {
		t.Errorf("unexpected failed result: %+v", failed)
	}
}

func TestRun_AllFoldersFailing(t *testing.T) {
	cfg := testConfig(t)
	proc := &fakeProc{failFor: map[string]error{
		"/home/user/docs/":  errors.New("exit status 12"),
		"/home/user/music/": errors.New("exit status 12"),
	}}
	engine := newTestEngine(cfg, proc)

	summary, err := engine.Run(context.Background(), StartOptions{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Status != StatusFailed {
		t.Errorf("Status = %q, want %q", summary.Status, StatusFailed)
	}
}

func TestRun_FolderFilter(t *testing.T) {
	cfg := testConfig(t)
	proc := &fakeProc{}
	engine := newTestEngine(cfg, proc)

	summary, err := engine.Run(context.Background(), StartOptions{
		Folders: []string{"/home/user/music"},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(summary.Results) != 1 || summary.Results[0].Folder.LocalPath != "/home/user/music" {
		t.Errorf("unexpected results: %+v", summary.Results)
	}

	// A filter matching only disabled folders is an error.
	if _, err := engine.Start(context.Background(), StartOptions{
		Folders: []string{"/home/user/pics"},
	}); !errors.Is(err, ErrNoFolders) {
		t.Errorf("expected ErrNoFolders, got %v", err)
	}
}

func TestStart_RequiresMount(t *testing.T) {
	cfg := testConfig(t)
	engine := NewEngine(cfg, EngineOptions{
		Proc:     &fakeProc{},
		Mount:    &fakeMount{mounted: false},
		LookPath: func(string) error { return nil },
	})

	if _, err := engine.Start(context.Background(), StartOptions{}); !errors.Is(err, ErrNotMounted) {
		t.Errorf("expected ErrNotMounted, got %v", err)
	}
}

func TestStart_RejectsSecondSession(t *testing.T) {
	cfg := testConfig(t)
	proc := &fakeProc{
		block:   make(chan struct{}),
		started: make(chan string, 4),
	}
	engine := newTestEngine(cfg, proc)

	sess, err := engine.Start(context.Background(), StartOptions{})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	<-proc.started

	if _, err := engine.Start(context.Background(), StartOptions{}); !errors.Is(err, ErrSessionActive) {
		t.Errorf("expected ErrSessionActive, got %v", err)
	}

	close(proc.block)
	sess.Wait()

	// Once finished, a new session may start.
	if engine.Active() != nil {
		t.Error("Active() should be nil after the session finished")
	}
}

func TestCancel_SkipsRemainingFolders(t *testing.T) {
	cfg := testConfig(t)
	proc := &fakeProc{
		block:   make(chan struct{}),
		started: make(chan string, 4),
	}
	engine := newTestEngine(cfg, proc)

	sess, err := engine.Start(context.Background(), StartOptions{})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Wait for the first folder to start, then cancel mid-transfer.
	<-proc.started
	sess.Cancel()

	summary := sess.Wait()
	if summary.Status != StatusCancelled {
		t.Errorf("Status = %q, want %q", summary.Status, StatusCancelled)
	}
	if summary.Failed != 1 {
		t.Errorf("Failed = %d, want 1 (the interrupted folder)", summary.Failed)
	}
	if summary.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1 (the never-started folder)", summary.Skipped)
	}
	if summary.Results[0].Error != "cancelled" {
		t.Errorf("interrupted folder error = %q, want cancelled", summary.Results[0].Error)
	}
	if len(proc.callArgs()) != 1 {
		t.Errorf("expected 1 rsync call, got %d", len(proc.callArgs()))
	}
}

func TestContextCancellation_ReportsCancelled(t *testing.T) {
	cfg := testConfig(t)
	proc := &fakeProc{
		block:   make(chan struct{}),
		started: make(chan string, 4),
	}
	engine := newTestEngine(cfg, proc)

	ctx, cancel := context.WithCancel(context.Background())
	sess, err := engine.Start(ctx, StartOptions{})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Cancel the parent context mid-transfer, the way an interrupt does,
	// without going through Session.Cancel.
	<-proc.started
	cancel()

	summary := sess.Wait()
	if summary.Status != StatusCancelled {
		t.Errorf("Status = %q, want %q", summary.Status, StatusCancelled)
	}
	if summary.Failed != 1 || summary.Skipped != 1 {
		t.Errorf("counts = %d failed/%d skipped, want 1/1", summary.Failed, summary.Skipped)
	}
	if summary.Results[0].Error != "cancelled" {
		t.Errorf("interrupted folder error = %q, want cancelled", summary.Results[0].Error)
	}
}

func TestRun_ObserverReceivesOutput(t *testing.T) {
	cfg := testConfig(t)
	cfg.SyncFolders = cfg.SyncFolders[:1]
	proc := &fakeProc{output: []string{"docs/report.txt", "total size is 1.2K  speedup is 1.00"}}
	engine := newTestEngine(cfg, proc)

	var mu sync.Mutex
	var lines []string
	summary, err := engine.Run(context.Background(), StartOptions{
		Observer: func(line string) {
			mu.Lock()
			lines = append(lines, line)
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(lines) != 2 || lines[0] != "docs/report.txt" {
		t.Errorf("unexpected observer lines: %v", lines)
	}
	if summary.Results[0].TotalSize != "1.2K" {
		t.Errorf("TotalSize = %q, want 1.2K", summary.Results[0].TotalSize)
	}
}

func TestRun_MissingRsync(t *testing.T) {
	cfg := testConfig(t)
	engine := NewEngine(cfg, EngineOptions{
		Proc:     &fakeProc{},
		Mount:    &fakeMount{mounted: true},
		LookPath: func(string) error { return errors.New("not found") },
	})
	if _, err := engine.Start(context.Background(), StartOptions{}); err == nil {
		t.Error("expected an error when rsync is missing")
	}
}

func TestRun_NoEnabledFolders(t *testing.T) {
	cfg := testConfig(t)
	cfg.SyncFolders = nil
	engine := newTestEngine(cfg, &fakeProc{})
	if _, err := engine.Start(context.Background(), StartOptions{}); !errors.Is(err, ErrNoFolders) {
		t.Errorf("expected ErrNoFolders, got %v", err)
	}
}

func TestSession_WaitReturnsPromptly(t *testing.T) {
	cfg := testConfig(t)
	engine := newTestEngine(cfg, &fakeProc{})
	sess, err := engine.Start(context.Background(), StartOptions{})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	done := make(chan Summary, 1)
	go func() { done <- sess.Wait() }()
	select {
	case summary := <-done:
		if summary.SessionID != sess.ID {
			t.Errorf("SessionID = %q, want %q", summary.SessionID, sess.ID)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not return")
	}
}
