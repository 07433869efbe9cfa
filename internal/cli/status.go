package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"nfsync/internal/creds"
	"nfsync/internal/types"
	"nfsync/internal/utils"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show share and sync state",
	Long:  "Display the configured share, its mount state, folder counts and the last sync outcome",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

type statusReport struct {
	Server      string `json:"server"`
	Share       string `json:"share"`
	Protocol    string `json:"protocol"`
	MountPoint  string `json:"mount_point"`
	Mounted     bool   `json:"mounted"`
	Folders     int    `json:"folders"`
	Enabled     int    `json:"enabled_folders"`
	Credentials string `json:"credentials"`
	LastSync    string `json:"last_sync,omitempty"`
	LastStatus  string `json:"last_run_status,omitempty"`
}

func (r *statusReport) AsTableRenderer() types.TableRenderer {
	share := r.Server
	if share != "" {
		share = fmt.Sprintf("%s:%s", r.Server, r.Share)
	}
	return &kvTable{pairs: [][2]string{
		{"Share", share},
		{"Protocol", r.Protocol},
		{"Mount point", r.MountPoint},
		{"Mounted", boolWord(r.Mounted)},
		{"Folders", fmt.Sprintf("%d (%d enabled)", r.Folders, r.Enabled)},
		{"Credentials", r.Credentials},
		{"Last sync", r.LastSync},
		{"Last run", r.LastStatus},
	}}
}

func runStatus(cmd *cobra.Command, args []string) error {
	out := newOutput()
	cfg, err := loadConfig(out, "status")
	if err != nil {
		return err
	}

	report := &statusReport{
		Server:     cfg.Server,
		Share:      cfg.Share,
		Protocol:   string(cfg.Protocol),
		MountPoint: cfg.MountPoint,
		Folders:    len(cfg.SyncFolders),
		Enabled:    len(cfg.EnabledFolders()),
		LastSync:   "never",
	}
	if cfg.LastSync != "" {
		if t, parseErr := time.Parse(time.RFC3339, cfg.LastSync); parseErr == nil {
			report.LastSync = formatTime(t)
		} else {
			report.LastSync = cfg.LastSync
		}
	}

	if cfg.Server != "" && cfg.Share != "" {
		controller, ctrlErr := newMountController(cfg, out)
		if ctrlErr != nil {
			return out.WriteError("status",
				utils.NewCLIError(utils.ErrCodeInternalError, ctrlErr.Error()).Build())
		}
		report.Mounted = controller.IsMounted(cmd.Context())
	}

	manager, mgrErr := newCredsManager(nil)
	if mgrErr == nil {
		if _, credErr := manager.Get(creds.MountCredential); credErr == nil {
			report.Credentials = "stored (" + manager.StorageName() + ")"
		} else {
			report.Credentials = "not set"
		}
	} else {
		report.Credentials = "unavailable"
	}

	if db, histErr := openHistory(); histErr == nil {
		defer db.Close()
		if last, lastErr := db.LastRun(cmd.Context()); lastErr == nil && last != nil {
			report.LastStatus = fmt.Sprintf("%s (%s ok, %s failed)",
				last.Status,
				strconv.Itoa(last.Succeeded),
				strconv.Itoa(last.Failed))
		}
	}

	return out.WriteSuccess("status", report)
}
