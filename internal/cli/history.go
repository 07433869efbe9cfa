package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"nfsync/internal/history"
	"nfsync/internal/types"
	"nfsync/internal/utils"
)

var historyFlags struct {
	limit int
	prune int
}

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show past sync sessions",
	Long: `List recent sync sessions, newest first. With a run ID, show that
session's per-folder outcomes. --prune keeps only the newest N runs.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyFlags.limit, "limit", 20, "Maximum number of runs to list")
	historyCmd.Flags().IntVar(&historyFlags.prune, "prune", -1, "Keep only the newest N runs and delete the rest")
	rootCmd.AddCommand(historyCmd)
}

type runList struct {
	Runs []history.Run `json:"runs"`
}

func (l *runList) AsTableRenderer() types.TableRenderer {
	t := &runTable{}
	for _, run := range l.Runs {
		t.rows = append(t.rows, []string{
			run.ID,
			formatTime(run.Started),
			run.Status,
			fmt.Sprintf("%d/%d/%d", run.Succeeded, run.Failed, run.Skipped),
			fmt.Sprintf("%d", run.FilesTransferred),
		})
	}
	return t
}

type runTable struct {
	rows [][]string
}

func (t *runTable) Headers() []string {
	return []string{"Run", "Started", "Status", "OK/Fail/Skip", "Files"}
}
func (t *runTable) Rows() [][]string     { return t.rows }
func (t *runTable) EmptyMessage() string { return "No sync history yet" }

type runDetail struct {
	Run     history.Run            `json:"run"`
	Folders []history.FolderRecord `json:"folders"`
}

func (d *runDetail) AsTableRenderer() types.TableRenderer {
	t := &summaryTable{}
	for _, f := range d.Folders {
		status := f.Status
		if f.Error != "" {
			status = f.Status + ": " + f.Error
		}
		t.rows = append(t.rows, []string{
			f.LocalPath,
			status,
			fmt.Sprintf("%d", f.FilesTransferred),
			f.TotalSize,
			f.Duration.String(),
		})
	}
	return t
}

func runHistory(cmd *cobra.Command, args []string) error {
	out := newOutput()

	db, err := openHistory()
	if err != nil {
		return out.WriteError("history",
			utils.NewCLIError(utils.ErrCodeInternalError, err.Error()).Build())
	}
	defer db.Close()

	if historyFlags.prune >= 0 {
		if err := db.Prune(cmd.Context(), historyFlags.prune); err != nil {
			return out.WriteError("history",
				utils.NewCLIError(utils.ErrCodeInternalError, err.Error()).Build())
		}
	}

	if len(args) == 1 {
		run, folders, err := db.Get(cmd.Context(), args[0])
		if errors.Is(err, history.ErrNotFound) {
			return out.WriteError("history",
				utils.NewCLIError(utils.ErrCodeInvalidArgument,
					fmt.Sprintf("no run with ID %s", args[0])).Build())
		}
		if err != nil {
			return out.WriteError("history",
				utils.NewCLIError(utils.ErrCodeInternalError, err.Error()).Build())
		}
		return out.WriteSuccess("history", &runDetail{Run: *run, Folders: folders})
	}

	runs, err := db.Recent(cmd.Context(), historyFlags.limit)
	if err != nil {
		return out.WriteError("history",
			utils.NewCLIError(utils.ErrCodeInternalError, err.Error()).Build())
	}
	return out.WriteSuccess("history", &runList{Runs: runs})
}
