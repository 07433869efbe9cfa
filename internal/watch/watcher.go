package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"nfsync/internal/config"
	"nfsync/internal/logging"
	"nfsync/internal/sync/exclude"
)

// Trigger describes why a sync was requested.
type Trigger struct {
	// Reason is "interval" for timer-driven syncs and "change" when
	// filesystem events fired.
	Reason string

	// Paths holds the changed paths for "change" triggers.
	Paths []string
}

// SyncFunc runs one sync in response to a trigger. Errors are logged and
// watching continues; returning an error never stops the watcher.
type SyncFunc func(ctx context.Context, trigger Trigger) error

// Options configures a Watcher.
type Options struct {
	// Interval between timer-driven syncs. Zero disables the timer and
	// leaves only change-driven syncs.
	Interval time.Duration

	// Debounce is how long to wait after the last filesystem event
	// before triggering. Defaults to 2s.
	Debounce time.Duration

	Logger logging.Logger
}

// Watcher monitors the enabled folders and periodically triggers syncs,
// either on an interval or after filesystem changes settle.
type Watcher struct {
	cfg      *config.Config
	onSync   SyncFunc
	logger   logging.Logger
	matcher  *exclude.Matcher
	roots    []string
	interval time.Duration
	debounce time.Duration
}

// New creates a watcher over the configuration's enabled folders.
func New(cfg *config.Config, onSync SyncFunc, opts Options) (*Watcher, error) {
	if onSync == nil {
		return nil, fmt.Errorf("watch: sync callback is required")
	}
	enabled := cfg.EnabledFolders()
	if len(enabled) == 0 {
		return nil, fmt.Errorf("watch: no enabled folders to watch")
	}

	w := &Watcher{
		cfg:      cfg,
		onSync:   onSync,
		logger:   opts.Logger,
		matcher:  exclude.New(cfg.ExcludePatterns),
		interval: opts.Interval,
		debounce: opts.Debounce,
	}
	if w.logger == nil {
		w.logger = &logging.NoOpLogger{}
	}
	if w.debounce <= 0 {
		w.debounce = 2 * time.Second
	}
	for _, folder := range enabled {
		w.roots = append(w.roots, folder.LocalPath)
	}
	return w, nil
}

// Run blocks until the context is cancelled, triggering syncs as events
// and intervals demand.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fsw.Close()

	for _, root := range w.roots {
		if err := w.addRecursive(fsw, root); err != nil {
			return fmt.Errorf("watching %s: %w", root, err)
		}
	}
	w.logger.Info("watching for changes",
		logging.F("folders", len(w.roots)),
		logging.F("interval", w.interval.String()),
		logging.F("debounce", w.debounce.String()))

	var tickerC <-chan time.Time
	if w.interval > 0 {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		tickerC = ticker.C
	}

	var (
		debounce  *time.Timer
		debounceC <-chan time.Time
		pending   []string
	)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			if event.Op.Has(fsnotify.Create) && isDir(event.Name) {
				// New subdirectories need their own watch.
				if err := w.addRecursive(fsw, event.Name); err != nil {
					w.logger.Warn("failed to watch new directory",
						logging.F("path", event.Name),
						logging.F("error", err.Error()))
				}
			}
			pending = append(pending, event.Name)
			if debounce == nil {
				debounce = time.NewTimer(w.debounce)
				debounceC = debounce.C
			} else {
				if !debounce.Stop() {
					select {
					case <-debounce.C:
					default:
					}
				}
				debounce.Reset(w.debounce)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", logging.F("error", err.Error()))

		case <-tickerC:
			w.fire(ctx, Trigger{Reason: "interval"})

		case <-debounceC:
			trigger := Trigger{Reason: "change", Paths: dedupe(pending)}
			pending = nil
			debounce = nil
			debounceC = nil
			w.fire(ctx, trigger)
		}
	}
}

func (w *Watcher) fire(ctx context.Context, trigger Trigger) {
	w.logger.Info("sync triggered",
		logging.F("reason", trigger.Reason),
		logging.F("changed", len(trigger.Paths)))
	if err := w.onSync(ctx, trigger); err != nil {
		w.logger.Warn("triggered sync failed", logging.F("error", err.Error()))
	}
}

// relevant filters out chmod noise and excluded paths.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	for _, root := range w.roots {
		rel, err := filepath.Rel(root, event.Name)
		if err != nil || rel == ".." || filepath.IsAbs(rel) {
			continue
		}
		return !w.matcher.IsExcluded(rel, isDir(event.Name))
	}
	return true
}

func (w *Watcher) addRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if rel, relErr := filepath.Rel(root, path); relErr == nil && rel != "." {
			if w.matcher.IsExcluded(rel, true) {
				return filepath.SkipDir
			}
		}
		return fsw.Add(path)
	})
}

func isDir(path string) bool {
	info, err := os.Lstat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

func dedupe(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	var out []string
	for _, p := range paths {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}
