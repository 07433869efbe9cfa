package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"nfsync/internal/utils"
)

const (
	// ConfigFileName is the name of the config file
	ConfigFileName = "config.json"
	// EnvPrefix is the prefix for environment variables
	EnvPrefix = "NFSYNC_"
)

// Protocol identifies the network filesystem used for the share
type Protocol string

const (
	ProtocolNFS  Protocol = "nfs"
	ProtocolCIFS Protocol = "cifs"
)

// SyncFolder is one local directory synced to a subdirectory of the share
type SyncFolder struct {
	// LocalPath is the source directory on this machine
	LocalPath string `json:"local_path"`
	// Target is the subdirectory under the mount point that receives the copy
	Target string `json:"target"`
	// Enabled folders are included in sync sessions; disabled ones are kept
	// in the config but skipped
	Enabled bool `json:"enabled"`
}

// Config holds application configuration, persisted as a single JSON document
type Config struct {
	// Server is the NFS/CIFS server address
	Server string `json:"server"`

	// Share is the exported path on the server
	Share string `json:"share"`

	// Protocol selects the mount type (nfs, cifs)
	Protocol Protocol `json:"protocol"`

	// MountPoint is the local directory the share is mounted on
	MountPoint string `json:"mount_point"`

	// MountOptions are extra -o options passed to mount
	MountOptions []string `json:"mount_options,omitempty"`

	// SyncFolders is the ordered list of folder pairs to sync
	SyncFolders []SyncFolder `json:"sync_folders"`

	// ExcludePatterns are passed to rsync as --exclude flags
	ExcludePatterns []string `json:"exclude_patterns"`

	// AutoMount mounts the share before syncing if it is not mounted
	AutoMount bool `json:"auto_mount"`

	// SyncInterval is the watch-mode period in seconds
	SyncInterval int `json:"sync_interval"`

	// RsyncTimeout is the per-folder rsync timeout in seconds
	RsyncTimeout int `json:"rsync_timeout"`

	// DeleteExtraneous passes --delete to rsync
	DeleteExtraneous bool `json:"delete_extraneous"`

	// LastSync is the RFC 3339 time of the last completed sync session
	LastSync string `json:"last_sync,omitempty"`

	// LogLevel sets the logging verbosity (quiet, normal, verbose, debug)
	LogLevel string `json:"log_level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Protocol:        ProtocolNFS,
		MountPoint:      "/mnt/nfsync",
		SyncFolders:     []SyncFolder{},
		ExcludePatterns: []string{},
		AutoMount:       false,
		SyncInterval:    3600, // 1 hour
		RsyncTimeout:    utils.DefaultRsyncTimeoutSeconds,
		LogLevel:        "normal",
	}
}

// Load loads configuration with precedence: env vars > config file > defaults
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if err := cfg.loadFromFile(); err != nil {
		// Config file not existing is not an error
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile loads configuration from the config file
func (c *Config) loadFromFile() error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, c)
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv() {
	if v := os.Getenv(EnvPrefix + "SERVER"); v != "" {
		c.Server = v
	}
	if v := os.Getenv(EnvPrefix + "SHARE"); v != "" {
		c.Share = v
	}
	if v := os.Getenv(EnvPrefix + "PROTOCOL"); v != "" {
		c.Protocol = Protocol(v)
	}
	if v := os.Getenv(EnvPrefix + "MOUNT_POINT"); v != "" {
		c.MountPoint = v
	}
	if v := os.Getenv(EnvPrefix + "SYNC_INTERVAL"); v != "" {
		if interval, err := strconv.Atoi(v); err == nil {
			c.SyncInterval = interval
		}
	}
	if v := os.Getenv(EnvPrefix + "RSYNC_TIMEOUT"); v != "" {
		if timeout, err := strconv.Atoi(v); err == nil {
			c.RsyncTimeout = timeout
		}
	}
	if v := os.Getenv(EnvPrefix + "AUTO_MOUNT"); v != "" {
		c.AutoMount = parseBool(v)
	}
	if v := os.Getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Save writes the full configuration atomically: the document is written to
// a temp file in the same directory, synced, then renamed over the target so
// a crash mid-write never truncates the previous config.
func (c *Config) Save() error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	tmp, err := os.CreateTemp(configDir, ConfigFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp config file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp config file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0600); err != nil {
		return fmt.Errorf("failed to set config permissions: %w", err)
	}

	if err := os.Rename(tmpPath, configPath); err != nil {
		return fmt.Errorf("failed to replace config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Protocol != ProtocolNFS && c.Protocol != ProtocolCIFS {
		return fmt.Errorf("invalid protocol: %s (must be 'nfs' or 'cifs')", c.Protocol)
	}

	if c.MountPoint == "" {
		return fmt.Errorf("mount point must not be empty")
	}
	if !filepath.IsAbs(c.MountPoint) {
		return fmt.Errorf("mount point must be absolute, got: %s", c.MountPoint)
	}

	if c.SyncInterval < 10 {
		return fmt.Errorf("sync interval must be at least 10 seconds, got: %d", c.SyncInterval)
	}

	if c.RsyncTimeout < 1 || c.RsyncTimeout > 86400 {
		return fmt.Errorf("rsync timeout must be between 1 and 86400 seconds, got: %d", c.RsyncTimeout)
	}

	seen := make(map[string]struct{}, len(c.SyncFolders))
	for _, f := range c.SyncFolders {
		if f.LocalPath == "" || f.Target == "" {
			return fmt.Errorf("sync folder must have both local path and target")
		}
		if !filepath.IsAbs(f.LocalPath) {
			return fmt.Errorf("sync folder local path must be absolute, got: %s", f.LocalPath)
		}
		if _, ok := seen[f.LocalPath]; ok {
			return fmt.Errorf("duplicate sync folder: %s", f.LocalPath)
		}
		seen[f.LocalPath] = struct{}{}
	}

	validLogLevels := []string{"quiet", "normal", "verbose", "debug"}
	isValid := false
	for _, level := range validLogLevels {
		if c.LogLevel == level {
			isValid = true
			break
		}
	}
	if !isValid {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	return nil
}

// EnabledFolders returns the folders included in a sync session, in order
func (c *Config) EnabledFolders() []SyncFolder {
	var enabled []SyncFolder
	for _, f := range c.SyncFolders {
		if f.Enabled {
			enabled = append(enabled, f)
		}
	}
	return enabled
}

// AddFolder appends a folder pair. The local path must not already be listed.
func (c *Config) AddFolder(localPath, target string) error {
	abs, err := filepath.Abs(localPath)
	if err != nil {
		return fmt.Errorf("invalid local path: %w", err)
	}
	for _, f := range c.SyncFolders {
		if f.LocalPath == abs {
			return fmt.Errorf("folder already configured: %s", abs)
		}
	}
	c.SyncFolders = append(c.SyncFolders, SyncFolder{
		LocalPath: abs,
		Target:    strings.TrimPrefix(target, "/"),
		Enabled:   true,
	})
	return nil
}

// RemoveFolder deletes the folder pair with the given local path
func (c *Config) RemoveFolder(localPath string) error {
	abs, err := filepath.Abs(localPath)
	if err != nil {
		return fmt.Errorf("invalid local path: %w", err)
	}
	for i, f := range c.SyncFolders {
		if f.LocalPath == abs {
			c.SyncFolders = append(c.SyncFolders[:i], c.SyncFolders[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("folder not configured: %s", abs)
}

// SetFolderEnabled flips the enabled flag on the folder with the given local path
func (c *Config) SetFolderEnabled(localPath string, enabled bool) error {
	abs, err := filepath.Abs(localPath)
	if err != nil {
		return fmt.Errorf("invalid local path: %w", err)
	}
	for i := range c.SyncFolders {
		if c.SyncFolders[i].LocalPath == abs {
			c.SyncFolders[i].Enabled = enabled
			return nil
		}
	}
	return fmt.Errorf("folder not configured: %s", abs)
}

// SharePath returns the source argument passed to mount:
// server:/share for NFS, //server/share for CIFS.
func (c *Config) SharePath() string {
	switch c.Protocol {
	case ProtocolCIFS:
		return "//" + c.Server + "/" + strings.TrimPrefix(c.Share, "/")
	default:
		return c.Server + ":" + c.Share
	}
}

// GetSyncInterval returns the watch-mode period as a duration
func (c *Config) GetSyncInterval() time.Duration {
	return time.Duration(c.SyncInterval) * time.Second
}

// GetRsyncTimeout returns the per-folder rsync timeout as a duration
func (c *Config) GetRsyncTimeout() time.Duration {
	return time.Duration(c.RsyncTimeout) * time.Second
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, ConfigFileName), nil
}

// GetConfigDir returns the path to the config directory
func GetConfigDir() (string, error) {
	if dir := os.Getenv(EnvPrefix + "CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "nfsync"), nil
}

// parseBool parses a boolean value from a string
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}
