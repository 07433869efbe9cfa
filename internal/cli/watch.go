package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"nfsync/internal/logging"
	"nfsync/internal/sync"
	"nfsync/internal/utils"
	"nfsync/internal/watch"
)

var watchFlags struct {
	interval int
	debounce time.Duration
	noTimer  bool
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch folders and sync on change or interval",
	Long: `Run until interrupted, syncing the enabled folders whenever their
contents change (after a settle delay) and on the configured interval.
A trigger that fires while a session is running is skipped.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().IntVar(&watchFlags.interval, "interval", 0, "Seconds between timer-driven syncs (default: sync_interval from config)")
	watchCmd.Flags().DurationVar(&watchFlags.debounce, "debounce", 2*time.Second, "How long to wait for changes to settle before syncing")
	watchCmd.Flags().BoolVar(&watchFlags.noTimer, "no-timer", false, "Disable timer-driven syncs, react to changes only")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	out := newOutput()
	cfg, err := loadConfig(out, "watch")
	if err != nil {
		return err
	}

	controller, err := newMountController(cfg, out)
	if err != nil {
		return out.WriteError("watch",
			utils.NewCLIError(utils.ErrCodeInternalError, err.Error()).Build())
	}

	if !controller.IsMounted(cmd.Context()) {
		if !cfg.AutoMount {
			return out.WriteError("watch",
				utils.NewCLIError(utils.ErrCodeNotMounted,
					"share is not mounted; run 'nfsync mount' or enable auto_mount").Build())
		}
		if mountErr := controller.Mount(cmd.Context()); mountErr != nil {
			return out.WriteError("watch", mountError(utils.ErrCodeMountFailed, mountErr))
		}
	}

	interval := cfg.GetSyncInterval()
	if watchFlags.interval > 0 {
		interval = time.Duration(watchFlags.interval) * time.Second
	}
	if watchFlags.noTimer {
		interval = 0
	}

	engine := sync.NewEngine(cfg, sync.EngineOptions{
		Mount:  controller,
		Logger: GetLogger(),
	})

	onSync := func(ctx context.Context, trigger watch.Trigger) error {
		summary, runErr := engine.Run(ctx, sync.StartOptions{DryRun: GetGlobalFlags().DryRun})
		if runErr != nil {
			if errors.Is(runErr, sync.ErrSessionActive) {
				GetLogger().Info("sync already running, skipping trigger",
					logging.F("reason", trigger.Reason))
				return nil
			}
			return runErr
		}

		// Each triggered session is recorded like a manual one.
		if writeErr := writeSummary(out, cfg, summary); writeErr != nil {
			GetLogger().Warn("triggered sync ended with errors",
				logging.F("status", string(summary.Status)))
		}
		return nil
	}

	watcher, err := watch.New(cfg, onSync, watch.Options{
		Interval: interval,
		Debounce: watchFlags.debounce,
		Logger:   GetLogger(),
	})
	if err != nil {
		return out.WriteError("watch",
			utils.NewCLIError(utils.ErrCodeInvalidArgument, err.Error()).Build())
	}

	GetLogger().Info("watch mode started",
		logging.F("interval", interval.String()),
		logging.F("debounce", watchFlags.debounce.String()))

	if err := watcher.Run(cmd.Context()); err != nil {
		return out.WriteError("watch",
			utils.NewCLIError(utils.ErrCodeInternalError, err.Error()).Build())
	}
	return nil
}
