package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"nfsync/internal/config"
	"nfsync/internal/types"
	"nfsync/internal/utils"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
	Long:  "Commands for inspecting and changing the nfsync configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long:  "Set a configuration value. Use 'config show' to see available keys",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset configuration to defaults",
	Long:  "Reset all settings to their defaults. Folders and exclude patterns are removed too.",
	RunE:  runConfigReset,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configResetCmd)
}

type configView struct {
	*config.Config
}

func (v configView) AsTableRenderer() types.TableRenderer {
	return &kvTable{pairs: [][2]string{
		{"server", v.Server},
		{"share", v.Share},
		{"protocol", string(v.Protocol)},
		{"mount_point", v.MountPoint},
		{"mount_options", strings.Join(v.MountOptions, ",")},
		{"auto_mount", boolWord(v.AutoMount)},
		{"sync_interval", strconv.Itoa(v.SyncInterval)},
		{"rsync_timeout", strconv.Itoa(v.RsyncTimeout)},
		{"delete_extraneous", boolWord(v.DeleteExtraneous)},
		{"log_level", v.LogLevel},
		{"last_sync", v.LastSync},
	}}
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	out := newOutput()
	cfg, err := loadConfig(out, "config.show")
	if err != nil {
		return err
	}
	return out.WriteSuccess("config.show", configView{cfg})
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	out := newOutput()
	cfg, err := loadConfig(out, "config.set")
	if err != nil {
		return err
	}

	key := strings.ToLower(args[0])
	value := args[1]

	switch key {
	case "server":
		cfg.Server = value
	case "share":
		cfg.Share = value
	case "protocol":
		cfg.Protocol = config.Protocol(strings.ToLower(value))
	case "mount_point":
		cfg.MountPoint = value
	case "mount_options":
		cfg.MountOptions = splitOptions(value)
	case "auto_mount":
		b, parseErr := strconv.ParseBool(value)
		if parseErr != nil {
			return invalidValue(out, key, value)
		}
		cfg.AutoMount = b
	case "sync_interval":
		n, parseErr := strconv.Atoi(value)
		if parseErr != nil {
			return invalidValue(out, key, value)
		}
		cfg.SyncInterval = n
	case "rsync_timeout":
		n, parseErr := strconv.Atoi(value)
		if parseErr != nil {
			return invalidValue(out, key, value)
		}
		cfg.RsyncTimeout = n
	case "delete_extraneous":
		b, parseErr := strconv.ParseBool(value)
		if parseErr != nil {
			return invalidValue(out, key, value)
		}
		cfg.DeleteExtraneous = b
	case "log_level":
		cfg.LogLevel = strings.ToLower(value)
	default:
		return out.WriteError("config.set",
			utils.NewCLIError(utils.ErrCodeInvalidArgument,
				fmt.Sprintf("unknown configuration key: %s", key)).
				WithDetail("use 'config show' to see available keys").Build())
	}

	if err := cfg.Validate(); err != nil {
		return out.WriteError("config.set",
			utils.NewCLIError(utils.ErrCodeConfigInvalid, err.Error()).Build())
	}
	if err := saveConfig(cfg, out, "config.set"); err != nil {
		return err
	}
	return out.WriteSuccess("config.set", configView{cfg})
}

func runConfigReset(cmd *cobra.Command, args []string) error {
	out := newOutput()

	cfg := config.DefaultConfig()
	if err := saveConfig(cfg, out, "config.reset"); err != nil {
		return err
	}
	return out.WriteSuccess("config.reset", configView{cfg})
}

func invalidValue(out *OutputWriter, key, value string) error {
	return out.WriteError("config.set",
		utils.NewCLIError(utils.ErrCodeInvalidArgument,
			fmt.Sprintf("invalid value for %s: %s", key, value)).Build())
}

func splitOptions(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	options := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			options = append(options, trimmed)
		}
	}
	return options
}
