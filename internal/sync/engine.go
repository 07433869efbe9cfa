package sync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"nfsync/internal/config"
	"nfsync/internal/logging"
	"nfsync/internal/sync/exclude"
	"nfsync/internal/utils"
)

var (
	// ErrSessionActive is returned when Start is called while another
	// session has not yet finished.
	ErrSessionActive = errors.New("a sync session is already running")

	// ErrNoFolders is returned when no enabled folder matches the request.
	ErrNoFolders = errors.New("no enabled folders to sync")

	// ErrNotMounted is returned when the share is not mounted.
	ErrNotMounted = errors.New("share is not mounted")
)

// MountChecker reports whether the configured share is mounted.
// *mount.Controller satisfies it.
type MountChecker interface {
	IsMounted(ctx context.Context) bool
}

// StartOptions controls a single session.
type StartOptions struct {
	// Folders restricts the session to enabled folders with these local
	// paths. Empty means all enabled folders.
	Folders []string

	// DryRun passes --dry-run to rsync; nothing is written.
	DryRun bool

	// Observer receives transfer output line by line. May be nil.
	Observer Observer
}

// Engine runs sync sessions against the mounted share. At most one
// session is active at a time.
type Engine struct {
	cfg      *config.Config
	proc     ProcessRunner
	mount    MountChecker
	logger   logging.Logger
	lookPath func(string) error

	mu     sync.Mutex
	active *Session
}

// EngineOptions configures optional collaborators.
type EngineOptions struct {
	Proc     ProcessRunner
	Mount    MountChecker
	Logger   logging.Logger
	LookPath func(string) error
}

// NewEngine creates an engine for the given configuration.
func NewEngine(cfg *config.Config, opts EngineOptions) *Engine {
	e := &Engine{
		cfg:      cfg,
		proc:     opts.Proc,
		mount:    opts.Mount,
		logger:   opts.Logger,
		lookPath: opts.LookPath,
	}
	if e.proc == nil {
		e.proc = NewExecProcessRunner()
	}
	if e.logger == nil {
		e.logger = &logging.NoOpLogger{}
	}
	if e.lookPath == nil {
		e.lookPath = LookPath
	}
	return e
}

// Active returns the in-flight session, or nil.
func (e *Engine) Active() *Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// Start begins a new session and returns immediately. Folders transfer
// sequentially in configuration order; a failing folder is recorded and
// the session moves on to the next one.
func (e *Engine) Start(ctx context.Context, opts StartOptions) (*Session, error) {
	queue, err := e.buildQueue(opts.Folders)
	if err != nil {
		return nil, err
	}

	if err := e.lookPath(utils.BinRsync); err != nil {
		return nil, fmt.Errorf("%s not found: %w", utils.BinRsync, err)
	}

	if e.mount != nil && !e.mount.IsMounted(ctx) {
		return nil, ErrNotMounted
	}

	e.mu.Lock()
	if e.active != nil {
		e.mu.Unlock()
		return nil, ErrSessionActive
	}

	runCtx, cancel := context.WithCancel(ctx)
	sess := &Session{
		ID:      uuid.New().String(),
		Started: time.Now(),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	e.active = sess
	e.mu.Unlock()

	logger := e.logger.WithTraceID(sess.ID)
	logger.Info("sync session started",
		logging.F("folders", len(queue)),
		logging.F("dry_run", opts.DryRun))

	go e.run(runCtx, sess, queue, opts, logger)
	return sess, nil
}

// Run starts a session and blocks until it finishes.
func (e *Engine) Run(ctx context.Context, opts StartOptions) (Summary, error) {
	sess, err := e.Start(ctx, opts)
	if err != nil {
		return Summary{}, err
	}
	return sess.Wait(), nil
}

func (e *Engine) buildQueue(filter []string) ([]config.SyncFolder, error) {
	enabled := e.cfg.EnabledFolders()
	if len(filter) == 0 {
		if len(enabled) == 0 {
			return nil, ErrNoFolders
		}
		return enabled, nil
	}

	wanted := make(map[string]bool, len(filter))
	for _, p := range filter {
		wanted[filepath.Clean(p)] = true
	}

	var queue []config.SyncFolder
	for _, folder := range enabled {
		if wanted[filepath.Clean(folder.LocalPath)] {
			queue = append(queue, folder)
		}
	}
	if len(queue) == 0 {
		return nil, ErrNoFolders
	}
	return queue, nil
}

func (e *Engine) run(ctx context.Context, sess *Session, queue []config.SyncFolder, opts StartOptions, logger logging.Logger) {
	defer func() {
		e.mu.Lock()
		e.active = nil
		e.mu.Unlock()
	}()

	matcher := exclude.New(e.cfg.ExcludePatterns)
	results := make([]FolderResult, 0, len(queue))

	for _, folder := range queue {
		if ctx.Err() != nil || sess.Cancelled() {
			results = append(results, FolderResult{
				Folder: folder,
				Status: FolderSkipped,
			})
			continue
		}
		results = append(results, e.syncFolder(ctx, folder, matcher, opts, logger))
	}

	// External context cancellation (interrupt) counts as cancelled just
	// like Session.Cancel.
	if ctx.Err() != nil {
		sess.markCancelled()
	}

	summary := summarize(sess, results)
	logger.Info("sync session finished",
		logging.F("status", string(summary.Status)),
		logging.F("succeeded", summary.Succeeded),
		logging.F("failed", summary.Failed),
		logging.F("skipped", summary.Skipped))
	sess.finish(summary)
}

func (e *Engine) syncFolder(ctx context.Context, folder config.SyncFolder, matcher *exclude.Matcher, opts StartOptions, logger logging.Logger) FolderResult {
	result := FolderResult{Folder: folder, Status: FolderOK}
	started := time.Now()

	target := filepath.Join(e.cfg.MountPoint, folder.Target)
	logger.Info("syncing folder",
		logging.F("local", folder.LocalPath),
		logging.F("target", target))

	if !opts.DryRun {
		if err := os.MkdirAll(target, 0755); err != nil {
			result.Status = FolderFailed
			result.Error = fmt.Sprintf("creating target directory: %v", err)
			result.Duration = time.Since(started)
			return result
		}
	}

	args := rsyncArgs(e.cfg, folder, target, matcher, opts.DryRun)

	folderCtx, cancel := context.WithTimeout(ctx, e.cfg.GetRsyncTimeout())
	defer cancel()

	var lastLine string
	err := e.proc.Run(folderCtx, utils.BinRsync, args, func(line string) {
		if strings.TrimSpace(line) != "" {
			lastLine = line
		}
		parseStatsLine(line, &result)
		if opts.Observer != nil {
			opts.Observer(line)
		}
	})
	result.Duration = time.Since(started)

	if err != nil {
		result.Status = FolderFailed
		switch {
		case ctx.Err() != nil:
			result.Error = "cancelled"
		case folderCtx.Err() == context.DeadlineExceeded:
			result.Error = fmt.Sprintf("timed out after %s", e.cfg.GetRsyncTimeout())
		case lastLine != "":
			result.Error = fmt.Sprintf("%v: %s", err, lastLine)
		default:
			result.Error = err.Error()
		}
		logger.Error("folder sync failed",
			logging.F("local", folder.LocalPath),
			logging.F("error", result.Error))
	}
	return result
}

// rsyncArgs builds the argument list for one folder transfer. The source
// path carries a trailing slash so the folder's contents land directly in
// the target directory.
func rsyncArgs(cfg *config.Config, folder config.SyncFolder, target string, matcher *exclude.Matcher, dryRun bool) []string {
	args := []string{"-avh", "--progress", "--stats"}
	if cfg.DeleteExtraneous {
		args = append(args, "--delete")
	}
	if dryRun {
		args = append(args, "--dry-run")
	}
	args = append(args, matcher.Args()...)
	args = append(args, strings.TrimSuffix(folder.LocalPath, "/")+"/", target)
	return args
}

func summarize(sess *Session, results []FolderResult) Summary {
	summary := Summary{
		SessionID: sess.ID,
		Started:   sess.Started,
		Finished:  time.Now(),
		Results:   results,
	}
	for _, r := range results {
		switch r.Status {
		case FolderOK:
			summary.Succeeded++
		case FolderFailed:
			summary.Failed++
		case FolderSkipped:
			summary.Skipped++
		}
		summary.FilesTransferred += r.FilesTransferred
	}

	switch {
	case sess.Cancelled():
		summary.Status = StatusCancelled
	case summary.Failed > 0 && summary.Succeeded == 0:
		summary.Status = StatusFailed
	case summary.Failed > 0:
		summary.Status = StatusPartial
	default:
		summary.Status = StatusCompleted
	}
	return summary
}
