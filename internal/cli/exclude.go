package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"nfsync/internal/sync/exclude"
	"nfsync/internal/types"
	"nfsync/internal/utils"
)

var excludeCmd = &cobra.Command{
	Use:   "exclude",
	Short: "Manage rsync exclude patterns",
	Long: `Commands for managing the patterns excluded from every sync. Built-in
defaults cover VCS metadata, editor swap files and similar noise; patterns
added here apply on top of them.`,
}

var excludeAddCmd = &cobra.Command{
	Use:   "add <pattern>",
	Short: "Add an exclude pattern",
	Args:  cobra.ExactArgs(1),
	RunE:  runExcludeAdd,
}

var excludeRemoveCmd = &cobra.Command{
	Use:   "remove <pattern>",
	Short: "Remove a configured exclude pattern",
	Args:  cobra.ExactArgs(1),
	RunE:  runExcludeRemove,
}

var excludeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List exclude patterns",
	RunE:  runExcludeList,
}

func init() {
	rootCmd.AddCommand(excludeCmd)
	excludeCmd.AddCommand(excludeAddCmd)
	excludeCmd.AddCommand(excludeRemoveCmd)
	excludeCmd.AddCommand(excludeListCmd)
}

type excludeListResult struct {
	Defaults   []string `json:"defaults"`
	Configured []string `json:"configured"`
}

func (l *excludeListResult) AsTableRenderer() types.TableRenderer {
	t := &excludeTable{}
	for _, p := range l.Defaults {
		t.rows = append(t.rows, []string{p, "default"})
	}
	for _, p := range l.Configured {
		t.rows = append(t.rows, []string{p, "configured"})
	}
	return t
}

type excludeTable struct {
	rows [][]string
}

func (t *excludeTable) Headers() []string    { return []string{"Pattern", "Source"} }
func (t *excludeTable) Rows() [][]string     { return t.rows }
func (t *excludeTable) EmptyMessage() string { return "No exclude patterns" }

func runExcludeAdd(cmd *cobra.Command, args []string) error {
	out := newOutput()
	cfg, err := loadConfig(out, "exclude.add")
	if err != nil {
		return err
	}

	pattern := strings.TrimSpace(args[0])
	if pattern == "" {
		return out.WriteError("exclude.add",
			utils.NewCLIError(utils.ErrCodeInvalidArgument, "pattern must not be empty").Build())
	}
	for _, existing := range cfg.ExcludePatterns {
		if existing == pattern {
			return out.WriteError("exclude.add",
				utils.NewCLIError(utils.ErrCodeInvalidArgument,
					fmt.Sprintf("pattern %q already configured", pattern)).Build())
		}
	}

	cfg.ExcludePatterns = append(cfg.ExcludePatterns, pattern)
	if err := saveConfig(cfg, out, "exclude.add"); err != nil {
		return err
	}
	return out.WriteSuccess("exclude.add", excludeResult(cfg.ExcludePatterns))
}

func runExcludeRemove(cmd *cobra.Command, args []string) error {
	out := newOutput()
	cfg, err := loadConfig(out, "exclude.remove")
	if err != nil {
		return err
	}

	pattern := args[0]
	kept := cfg.ExcludePatterns[:0]
	found := false
	for _, existing := range cfg.ExcludePatterns {
		if existing == pattern {
			found = true
			continue
		}
		kept = append(kept, existing)
	}
	if !found {
		return out.WriteError("exclude.remove",
			utils.NewCLIError(utils.ErrCodeInvalidArgument,
				fmt.Sprintf("pattern %q is not configured", pattern)).Build())
	}

	cfg.ExcludePatterns = kept
	if err := saveConfig(cfg, out, "exclude.remove"); err != nil {
		return err
	}
	return out.WriteSuccess("exclude.remove", excludeResult(cfg.ExcludePatterns))
}

func runExcludeList(cmd *cobra.Command, args []string) error {
	out := newOutput()
	cfg, err := loadConfig(out, "exclude.list")
	if err != nil {
		return err
	}
	return out.WriteSuccess("exclude.list", excludeResult(cfg.ExcludePatterns))
}

func excludeResult(configured []string) *excludeListResult {
	return &excludeListResult{
		Defaults:   exclude.DefaultPatterns(),
		Configured: configured,
	}
}
