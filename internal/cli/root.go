package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"nfsync/internal/config"
	"nfsync/internal/logging"
	"nfsync/internal/types"
	"nfsync/internal/utils"
	"nfsync/pkg/version"
)

var (
	globalFlags types.GlobalFlags
	logger      logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "nfsync",
	Short: "Sync local folders to an NFS or CIFS share",
	Long: `nfsync mounts a network share and keeps configured local folders
synchronized onto it with rsync.

Folders are configured once and then synced on demand, on an interval,
or whenever their contents change. All commands support JSON output for
automation and scripting.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := validateGlobalFlags(); err != nil {
			return err
		}

		logConfig := logging.LogConfig{
			Level:           configuredLogLevel(),
			OutputFile:      globalFlags.LogFile,
			EnableConsole:   !globalFlags.Quiet,
			EnableDebug:     globalFlags.Debug,
			RedactSensitive: true,
			EnableColor:     true,
			EnableTimestamp: true,
		}
		if globalFlags.Verbose {
			logConfig.Level = logging.DEBUG
		}
		if globalFlags.OutputFormat == types.OutputFormatJSON && !globalFlags.Verbose && !globalFlags.Debug {
			logConfig.EnableConsole = false
		}

		var err error
		logger, err = logging.NewLogger(logConfig)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar((*string)(&globalFlags.OutputFormat), "output", "table", "Output format (json, table)")
	rootCmd.PersistentFlags().BoolVarP(&globalFlags.Quiet, "quiet", "q", false, "Suppress non-essential output")
	rootCmd.PersistentFlags().BoolVarP(&globalFlags.Verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&globalFlags.Debug, "debug", false, "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&globalFlags.Config, "config", "", "Path to configuration directory")
	rootCmd.PersistentFlags().StringVar(&globalFlags.LogFile, "log-file", "", "Path to log file")
	rootCmd.PersistentFlags().BoolVar(&globalFlags.DryRun, "dry-run", false, "Show what would be done without making changes")
	rootCmd.PersistentFlags().BoolVarP(&globalFlags.Yes, "yes", "y", false, "Answer yes to all prompts")
	rootCmd.PersistentFlags().BoolVar(&globalFlags.JSON, "json", false, "Output in JSON format (alias for --output json)")

	rootCmd.AddCommand(versionCmd)
}

// configuredLogLevel reads log_level from the config file; flags still
// override it. A broken config falls back to INFO so commands like
// 'config reset' stay usable.
func configuredLogLevel() logging.LogLevel {
	cfg, err := config.Load()
	if err != nil {
		return logging.INFO
	}
	return logging.ParseLevel(cfg.LogLevel)
}

func validateGlobalFlags() error {
	if globalFlags.JSON {
		globalFlags.OutputFormat = types.OutputFormatJSON
	}
	if globalFlags.OutputFormat != types.OutputFormatJSON && globalFlags.OutputFormat != types.OutputFormatTable {
		return fmt.Errorf("invalid output format: %s", globalFlags.OutputFormat)
	}
	if globalFlags.Config != "" {
		// The config package resolves its directory from the environment.
		os.Setenv("NFSYNC_CONFIG_DIR", globalFlags.Config)
	}
	return nil
}

// Execute runs the root command and exits with the code mapped to the
// command's error, if any. Interrupts cancel the command context so an
// in-flight sync stops at the next folder boundary.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		var appErr *utils.AppError
		if errors.As(err, &appErr) {
			os.Exit(utils.GetExitCode(appErr.CLIError.Code))
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(utils.ExitUnknown)
	}
}

// GetGlobalFlags returns the global flags
func GetGlobalFlags() types.GlobalFlags {
	return globalFlags
}

// GetLogger returns the global logger
func GetLogger() logging.Logger {
	if logger == nil {
		return &logging.NoOpLogger{}
	}
	return logger
}
