package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"nfsync/internal/config"
	"nfsync/internal/logging"
	"nfsync/internal/mount"
	"nfsync/internal/sync"
	"nfsync/internal/types"
	"nfsync/internal/utils"
)

var syncFlags struct {
	folders []string
	delete  bool
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync enabled folders to the share",
	Long: `Run one sync session over the enabled folders, in configuration order.
A folder that fails is recorded and the session continues with the next
one. With auto_mount enabled, the share is mounted first if needed.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringArrayVar(&syncFlags.folders, "folder", nil, "Sync only this local path (repeatable)")
	syncCmd.Flags().BoolVar(&syncFlags.delete, "delete", false, "Delete files on the share that no longer exist locally")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	out := newOutput()
	cfg, err := loadConfig(out, "sync")
	if err != nil {
		return err
	}
	if syncFlags.delete {
		cfg.DeleteExtraneous = true
	}

	controller, err := newMountController(cfg, out)
	if err != nil {
		return out.WriteError("sync",
			utils.NewCLIError(utils.ErrCodeInternalError, err.Error()).Build())
	}

	if cfg.AutoMount && !controller.IsMounted(cmd.Context()) {
		GetLogger().Info("share not mounted, mounting first")
		if mountErr := controller.Mount(cmd.Context()); mountErr != nil {
			return out.WriteError("sync", mountError(utils.ErrCodeMountFailed, mountErr))
		}
	}

	summary, err := runSession(cmd.Context(), cfg, controller, sync.StartOptions{
		Folders: syncFlags.folders,
		DryRun:  GetGlobalFlags().DryRun,
	})
	if err != nil {
		return syncStartError(out, err)
	}

	return writeSummary(out, cfg, summary)
}

// runSession starts a session wired to the global logger and an observer
// that streams rsync output in table mode.
func runSession(ctx context.Context, cfg *config.Config, controller *mount.Controller, opts sync.StartOptions) (sync.Summary, error) {
	engine := sync.NewEngine(cfg, sync.EngineOptions{
		Mount:  controller,
		Logger: GetLogger(),
	})

	if tableOutput() && !GetGlobalFlags().Quiet {
		opts.Observer = func(line string) {
			fmt.Fprintln(os.Stdout, line)
		}
	}

	return engine.Run(ctx, opts)
}

func syncStartError(out *OutputWriter, err error) error {
	switch {
	case errors.Is(err, sync.ErrSessionActive):
		return out.WriteError("sync",
			utils.NewCLIError(utils.ErrCodeSyncActive, err.Error()).Build())
	case errors.Is(err, sync.ErrNotMounted):
		return out.WriteError("sync",
			utils.NewCLIError(utils.ErrCodeNotMounted,
				"share is not mounted; run 'nfsync mount' or enable auto_mount").Build())
	case errors.Is(err, sync.ErrNoFolders):
		return out.WriteError("sync",
			utils.NewCLIError(utils.ErrCodeInvalidArgument, err.Error()).Build())
	default:
		return out.WriteError("sync",
			utils.NewCLIError(utils.ErrCodeSyncFailed, err.Error()).Build())
	}
}

func writeSummary(out *OutputWriter, cfg *config.Config, summary sync.Summary) error {
	if db, histErr := openHistory(); histErr == nil {
		if recErr := db.Record(context.Background(), summary); recErr != nil {
			GetLogger().Warn("failed to record sync history",
				logging.F("error", recErr.Error()))
		}
		db.Close()
	}

	if !GetGlobalFlags().DryRun && summary.Succeeded > 0 {
		cfg.LastSync = summary.Finished.UTC().Format(time.RFC3339)
		if saveErr := cfg.Save(); saveErr != nil {
			GetLogger().Warn("failed to persist last sync time",
				logging.F("error", saveErr.Error()))
		}
	}

	switch summary.Status {
	case sync.StatusFailed:
		return out.WriteError("sync",
			utils.NewCLIError(utils.ErrCodeSyncFailed,
				fmt.Sprintf("all %d folders failed", summary.Failed)).
				WithContext("summary", summary).Build())
	case sync.StatusPartial:
		// The envelope still carries the per-folder results, but the
		// process must exit with the partial-failure code so scripted
		// callers can tell "some folders failed" from a clean run.
		partialErr := utils.NewCLIError(utils.ErrCodeSyncPartialFailure,
			fmt.Sprintf("%d of %d folders failed", summary.Failed, summary.Failed+summary.Succeeded)).
			Build()
		out.AddWarning(partialErr.Code, partialErr.Message, "warning")
		if writeErr := out.WriteSuccess("sync", summaryView{summary}); writeErr != nil {
			return writeErr
		}
		return utils.NewAppError(partialErr)
	case sync.StatusCancelled:
		return out.WriteError("sync",
			utils.NewCLIError(utils.ErrCodeCancelled, "sync session cancelled").
				WithContext("summary", summary).Build())
	}

	return out.WriteSuccess("sync", summaryView{summary})
}

// summaryView wraps a summary with a table rendering.
type summaryView struct {
	sync.Summary
}

func (v summaryView) AsTableRenderer() types.TableRenderer {
	t := &summaryTable{}
	for _, r := range v.Results {
		row := []string{
			r.Folder.LocalPath,
			string(r.Status),
			fmt.Sprintf("%d", r.FilesTransferred),
			r.TotalSize,
			r.Duration.Round(time.Millisecond).String(),
		}
		if r.Error != "" {
			row[1] = string(r.Status) + ": " + r.Error
		}
		t.rows = append(t.rows, row)
	}
	return t
}

type summaryTable struct {
	rows [][]string
}

func (t *summaryTable) Headers() []string {
	return []string{"Folder", "Status", "Files", "Size", "Duration"}
}
func (t *summaryTable) Rows() [][]string     { return t.rows }
func (t *summaryTable) EmptyMessage() string { return "No folders synced" }
