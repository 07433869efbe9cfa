package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"nfsync/internal/types"
	"nfsync/internal/utils"
)

var mountCmd = &cobra.Command{
	Use:   "mount",
	Short: "Mount the configured share",
	Long:  "Mount the configured NFS/CIFS share on the mount point. Mounting an already mounted share is a no-op.",
	RunE:  runMount,
}

var umountCmd = &cobra.Command{
	Use:     "umount",
	Aliases: []string{"unmount"},
	Short:   "Unmount the share",
	RunE:    runUmount,
}

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check that the server exports the configured share",
	Long:  "Query the server's export list with showmount and verify the configured share is present (NFS only)",
	RunE:  runProbe,
}

func init() {
	rootCmd.AddCommand(mountCmd)
	rootCmd.AddCommand(umountCmd)
	rootCmd.AddCommand(probeCmd)
}

type mountResult struct {
	Action     string `json:"action"`
	SharePath  string `json:"share_path"`
	MountPoint string `json:"mount_point"`
	Mounted    bool   `json:"mounted"`
}

func (r *mountResult) AsTableRenderer() types.TableRenderer {
	return &kvTable{pairs: [][2]string{
		{"Action", r.Action},
		{"Share", r.SharePath},
		{"Mount point", r.MountPoint},
		{"Mounted", boolWord(r.Mounted)},
	}}
}

func runMount(cmd *cobra.Command, args []string) error {
	out := newOutput()
	cfg, err := loadConfig(out, "mount")
	if err != nil {
		return err
	}

	controller, err := newMountController(cfg, out)
	if err != nil {
		return out.WriteError("mount",
			utils.NewCLIError(utils.ErrCodeInternalError, err.Error()).Build())
	}

	if GetGlobalFlags().DryRun {
		return out.WriteSuccess("mount", &mountResult{
			Action:     "mount (dry run)",
			SharePath:  cfg.SharePath(),
			MountPoint: cfg.MountPoint,
			Mounted:    controller.IsMounted(cmd.Context()),
		})
	}

	if err := controller.Mount(cmd.Context()); err != nil {
		return out.WriteError("mount", mountError(utils.ErrCodeMountFailed, err))
	}

	return out.WriteSuccess("mount", &mountResult{
		Action:     "mount",
		SharePath:  cfg.SharePath(),
		MountPoint: cfg.MountPoint,
		Mounted:    true,
	})
}

func runUmount(cmd *cobra.Command, args []string) error {
	out := newOutput()
	cfg, err := loadConfig(out, "umount")
	if err != nil {
		return err
	}

	controller, err := newMountController(cfg, out)
	if err != nil {
		return out.WriteError("umount",
			utils.NewCLIError(utils.ErrCodeInternalError, err.Error()).Build())
	}

	if GetGlobalFlags().DryRun {
		return out.WriteSuccess("umount", &mountResult{
			Action:     "umount (dry run)",
			SharePath:  cfg.SharePath(),
			MountPoint: cfg.MountPoint,
			Mounted:    controller.IsMounted(cmd.Context()),
		})
	}

	if err := controller.Unmount(cmd.Context()); err != nil {
		return out.WriteError("umount", mountError(utils.ErrCodeUmountFailed, err))
	}

	return out.WriteSuccess("umount", &mountResult{
		Action:     "umount",
		SharePath:  cfg.SharePath(),
		MountPoint: cfg.MountPoint,
		Mounted:    false,
	})
}

func runProbe(cmd *cobra.Command, args []string) error {
	out := newOutput()
	cfg, err := loadConfig(out, "probe")
	if err != nil {
		return err
	}

	controller, err := newMountController(cfg, out)
	if err != nil {
		return out.WriteError("probe",
			utils.NewCLIError(utils.ErrCodeInternalError, err.Error()).Build())
	}

	if err := controller.Probe(cmd.Context()); err != nil {
		return out.WriteError("probe", mountError(utils.ErrCodeShareUnreachable, err))
	}

	return out.WriteSuccess("probe", &probeResult{
		Server:   cfg.Server,
		Share:    cfg.Share,
		Exported: true,
	})
}

type probeResult struct {
	Server   string `json:"server"`
	Share    string `json:"share"`
	Exported bool   `json:"exported"`
}

func (r *probeResult) AsTableRenderer() types.TableRenderer {
	return &kvTable{pairs: [][2]string{
		{"Server", r.Server},
		{"Share", r.Share},
		{"Exported", boolWord(r.Exported)},
	}}
}

// mountError picks a more specific error code when the message makes the
// cause obvious.
func mountError(fallback string, err error) types.CLIError {
	code := fallback
	msg := err.Error()
	switch {
	case strings.Contains(msg, "not found"):
		code = utils.ErrCodeBinaryMissing
	case strings.Contains(msg, "incomplete"):
		code = utils.ErrCodeConfigInvalid
	case strings.Contains(msg, "credential"):
		code = utils.ErrCodeCredentialsMissing
	}
	return utils.NewCLIError(code, msg).Build()
}
