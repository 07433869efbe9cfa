package cli

import (
	"path/filepath"
	"time"

	"nfsync/internal/config"
	"nfsync/internal/creds"
	"nfsync/internal/history"
	"nfsync/internal/mount"
	"nfsync/internal/types"
	"nfsync/internal/utils"
)

func newOutput() *OutputWriter {
	flags := GetGlobalFlags()
	return NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)
}

func loadConfig(out *OutputWriter, command string) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, out.WriteError(command,
			utils.NewCLIError(utils.ErrCodeConfigInvalid, err.Error()).Build())
	}
	return cfg, nil
}

func saveConfig(cfg *config.Config, out *OutputWriter, command string) error {
	if err := cfg.Save(); err != nil {
		return out.WriteError(command,
			utils.NewCLIError(utils.ErrCodeConfigInvalid, err.Error()).Build())
	}
	return nil
}

func newCredsManager(out *OutputWriter) (*creds.Manager, error) {
	dir, err := config.GetConfigDir()
	if err != nil {
		return nil, err
	}
	manager := creds.NewManager(dir)
	if out != nil {
		if warning := manager.StorageWarning(); warning != "" {
			out.AddWarning(utils.ErrCodeKeyringUnavailable, warning, "warning")
		}
	}
	return manager, nil
}

func newMountController(cfg *config.Config, out *OutputWriter) (*mount.Controller, error) {
	manager, err := newCredsManager(out)
	if err != nil {
		return nil, err
	}
	return mount.NewController(cfg, mount.Options{
		Source:  manager,
		Logger:  GetLogger(),
		UseSudo: mount.NeedsSudo(),
	}), nil
}

func historyPath() (string, error) {
	dir, err := config.GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}

func openHistory() (*history.DB, error) {
	path, err := historyPath()
	if err != nil {
		return nil, err
	}
	return history.Open(path)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func boolWord(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func tableOutput() bool {
	return GetGlobalFlags().OutputFormat == types.OutputFormatTable
}
