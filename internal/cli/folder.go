package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"nfsync/internal/config"
	"nfsync/internal/types"
	"nfsync/internal/utils"
)

var folderCmd = &cobra.Command{
	Use:   "folder",
	Short: "Manage synced folders",
	Long:  "Commands for adding, removing and toggling the folders synced to the share",
}

var folderAddCmd = &cobra.Command{
	Use:   "add <local-path> [target]",
	Short: "Add a folder to sync",
	Long: `Add a local folder to the sync list. The target is the subdirectory
under the mount point that receives the copy; it defaults to the folder's
base name. New folders start enabled.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runFolderAdd,
}

var folderRemoveCmd = &cobra.Command{
	Use:   "remove <local-path>",
	Short: "Remove a folder from the sync list",
	Args:  cobra.ExactArgs(1),
	RunE:  runFolderRemove,
}

var folderListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured folders",
	RunE:  runFolderList,
}

var folderEnableCmd = &cobra.Command{
	Use:   "enable <local-path>",
	Short: "Enable a folder",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setFolderEnabled(args[0], true) },
}

var folderDisableCmd = &cobra.Command{
	Use:   "disable <local-path>",
	Short: "Disable a folder without removing it",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setFolderEnabled(args[0], false) },
}

func init() {
	rootCmd.AddCommand(folderCmd)
	folderCmd.AddCommand(folderAddCmd)
	folderCmd.AddCommand(folderRemoveCmd)
	folderCmd.AddCommand(folderListCmd)
	folderCmd.AddCommand(folderEnableCmd)
	folderCmd.AddCommand(folderDisableCmd)
}

type folderList struct {
	Folders []config.SyncFolder `json:"folders"`
}

func (l *folderList) AsTableRenderer() types.TableRenderer {
	t := &folderTable{}
	for _, f := range l.Folders {
		t.rows = append(t.rows, []string{f.LocalPath, f.Target, boolWord(f.Enabled)})
	}
	return t
}

type folderTable struct {
	rows [][]string
}

func (t *folderTable) Headers() []string { return []string{"Local path", "Target", "Enabled"} }
func (t *folderTable) Rows() [][]string  { return t.rows }
func (t *folderTable) EmptyMessage() string {
	return "No folders configured. Add one with 'nfsync folder add <path>'."
}

func runFolderAdd(cmd *cobra.Command, args []string) error {
	out := newOutput()
	cfg, err := loadConfig(out, "folder.add")
	if err != nil {
		return err
	}

	localPath := args[0]
	target := ""
	if len(args) == 2 {
		target = args[1]
	} else {
		target = filepath.Base(filepath.Clean(localPath))
	}

	if info, statErr := os.Stat(localPath); statErr != nil || !info.IsDir() {
		out.AddWarning(utils.ErrCodeInvalidPath,
			fmt.Sprintf("%s does not exist or is not a directory", localPath), "warning")
	}

	if err := cfg.AddFolder(localPath, target); err != nil {
		return out.WriteError("folder.add",
			utils.NewCLIError(utils.ErrCodeInvalidArgument, err.Error()).Build())
	}
	if err := saveConfig(cfg, out, "folder.add"); err != nil {
		return err
	}

	return out.WriteSuccess("folder.add", &folderList{Folders: cfg.SyncFolders})
}

func runFolderRemove(cmd *cobra.Command, args []string) error {
	out := newOutput()
	cfg, err := loadConfig(out, "folder.remove")
	if err != nil {
		return err
	}

	if err := cfg.RemoveFolder(args[0]); err != nil {
		return out.WriteError("folder.remove",
			utils.NewCLIError(utils.ErrCodeInvalidArgument, err.Error()).Build())
	}
	if err := saveConfig(cfg, out, "folder.remove"); err != nil {
		return err
	}

	return out.WriteSuccess("folder.remove", &folderList{Folders: cfg.SyncFolders})
}

func runFolderList(cmd *cobra.Command, args []string) error {
	out := newOutput()
	cfg, err := loadConfig(out, "folder.list")
	if err != nil {
		return err
	}
	return out.WriteSuccess("folder.list", &folderList{Folders: cfg.SyncFolders})
}

func setFolderEnabled(localPath string, enabled bool) error {
	out := newOutput()
	command := "folder.enable"
	if !enabled {
		command = "folder.disable"
	}

	cfg, err := loadConfig(out, command)
	if err != nil {
		return err
	}
	if err := cfg.SetFolderEnabled(localPath, enabled); err != nil {
		return out.WriteError(command,
			utils.NewCLIError(utils.ErrCodeInvalidArgument, err.Error()).Build())
	}
	if err := saveConfig(cfg, out, command); err != nil {
		return err
	}
	return out.WriteSuccess(command, &folderList{Folders: cfg.SyncFolders})
}
