package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Protocol != ProtocolNFS {
		t.Errorf("Expected default protocol 'nfs', got '%s'", cfg.Protocol)
	}

	if cfg.MountPoint != "/mnt/nfsync" {
		t.Errorf("Expected default mount point '/mnt/nfsync', got '%s'", cfg.MountPoint)
	}

	if cfg.SyncInterval != 3600 {
		t.Errorf("Expected sync interval 3600, got %d", cfg.SyncInterval)
	}

	if cfg.RsyncTimeout != 300 {
		t.Errorf("Expected rsync timeout 300, got %d", cfg.RsyncTimeout)
	}

	if cfg.LogLevel != "normal" {
		t.Errorf("Expected log level 'normal', got '%s'", cfg.LogLevel)
	}

	if len(cfg.SyncFolders) != 0 {
		t.Errorf("Expected no default sync folders, got %d", len(cfg.SyncFolders))
	}
}

func TestConfigValidation(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.Server = "192.168.1.100"
		cfg.Share = "/volume1/backup"
		return cfg
	}

	tests := []struct {
		name      string
		mutate    func(*Config)
		wantError bool
		errorMsg  string
	}{
		{
			name:      "valid default config",
			mutate:    func(c *Config) {},
			wantError: false,
		},
		{
			name:      "invalid protocol",
			mutate:    func(c *Config) { c.Protocol = Protocol("smb") },
			wantError: true,
			errorMsg:  "invalid protocol",
		},
		{
			name:      "empty mount point",
			mutate:    func(c *Config) { c.MountPoint = "" },
			wantError: true,
			errorMsg:  "mount point must not be empty",
		},
		{
			name:      "relative mount point",
			mutate:    func(c *Config) { c.MountPoint = "mnt/backup" },
			wantError: true,
			errorMsg:  "mount point must be absolute",
		},
		{
			name:      "sync interval too low",
			mutate:    func(c *Config) { c.SyncInterval = 5 },
			wantError: true,
			errorMsg:  "sync interval must be at least 10 seconds",
		},
		{
			name:      "rsync timeout too high",
			mutate:    func(c *Config) { c.RsyncTimeout = 100000 },
			wantError: true,
			errorMsg:  "rsync timeout must be between 1 and 86400",
		},
		{
			name: "folder missing target",
			mutate: func(c *Config) {
				c.SyncFolders = []SyncFolder{{LocalPath: "/home/user/docs", Target: "", Enabled: true}}
			},
			wantError: true,
			errorMsg:  "sync folder must have both local path and target",
		},
		{
			name: "relative folder path",
			mutate: func(c *Config) {
				c.SyncFolders = []SyncFolder{{LocalPath: "docs", Target: "backup/docs", Enabled: true}}
			},
			wantError: true,
			errorMsg:  "local path must be absolute",
		},
		{
			name: "duplicate folder",
			mutate: func(c *Config) {
				c.SyncFolders = []SyncFolder{
					{LocalPath: "/home/user/docs", Target: "a", Enabled: true},
					{LocalPath: "/home/user/docs", Target: "b", Enabled: false},
				}
			},
			wantError: true,
			errorMsg:  "duplicate sync folder",
		},
		{
			name:      "invalid log level",
			mutate:    func(c *Config) { c.LogLevel = "loud" },
			wantError: true,
			errorMsg:  "invalid log level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantError {
				if err == nil {
					t.Fatal("Expected validation error, got nil")
				}
				if !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error containing %q, got %q", tt.errorMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("Unexpected validation error: %v", err)
			}
		})
	}
}

func TestSaveLoadRoundtrip(t *testing.T) {
	t.Setenv(EnvPrefix+"CONFIG_DIR", t.TempDir())

	cfg := DefaultConfig()
	cfg.Server = "nas.local"
	cfg.Share = "/volume1/backup"
	cfg.Protocol = ProtocolCIFS
	cfg.MountPoint = "/mnt/backup"
	cfg.ExcludePatterns = []string{"*.tmp", ".cache/"}
	cfg.SyncFolders = []SyncFolder{
		{LocalPath: "/home/user/docs", Target: "docs", Enabled: true},
		{LocalPath: "/home/user/pics", Target: "pictures", Enabled: false},
	}

	if err := cfg.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if !reflect.DeepEqual(cfg, loaded) {
		t.Errorf("Roundtrip mismatch:\nsaved:  %+v\nloaded: %+v", cfg, loaded)
	}
}

func TestSaveReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvPrefix+"CONFIG_DIR", dir)

	cfg := DefaultConfig()
	cfg.Server = "first"
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	cfg.Server = "second"
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// No temp files may be left behind
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Name() != ConfigFileName {
			t.Errorf("Unexpected file left in config dir: %s", e.Name())
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, ConfigFileName))
	if err != nil {
		t.Fatal(err)
	}
	var onDisk Config
	if err := json.Unmarshal(data, &onDisk); err != nil {
		t.Fatalf("Config on disk is not valid JSON: %v", err)
	}
	if onDisk.Server != "second" {
		t.Errorf("Expected server 'second' on disk, got '%s'", onDisk.Server)
	}
}

func TestLoadReturnsDefaultsWhenMissing(t *testing.T) {
	t.Setenv(EnvPrefix+"CONFIG_DIR", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Errorf("Expected defaults when config file is missing, got %+v", cfg)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv(EnvPrefix+"CONFIG_DIR", t.TempDir())
	t.Setenv(EnvPrefix+"SERVER", "override.local")
	t.Setenv(EnvPrefix+"PROTOCOL", "cifs")
	t.Setenv(EnvPrefix+"SYNC_INTERVAL", "120")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server != "override.local" {
		t.Errorf("Expected env server override, got '%s'", cfg.Server)
	}
	if cfg.Protocol != ProtocolCIFS {
		t.Errorf("Expected env protocol override, got '%s'", cfg.Protocol)
	}
	if cfg.SyncInterval != 120 {
		t.Errorf("Expected env interval override, got %d", cfg.SyncInterval)
	}
}

func TestEnabledFolders(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SyncFolders = []SyncFolder{
		{LocalPath: "/a", Target: "a", Enabled: true},
		{LocalPath: "/b", Target: "b", Enabled: false},
		{LocalPath: "/c", Target: "c", Enabled: true},
	}

	enabled := cfg.EnabledFolders()
	if len(enabled) != 2 {
		t.Fatalf("Expected 2 enabled folders, got %d", len(enabled))
	}
	if enabled[0].LocalPath != "/a" || enabled[1].LocalPath != "/c" {
		t.Errorf("Enabled folders out of order: %+v", enabled)
	}
}

func TestFolderHelpers(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.AddFolder("/home/user/docs", "/docs"); err != nil {
		t.Fatalf("AddFolder() error = %v", err)
	}
	if cfg.SyncFolders[0].Target != "docs" {
		t.Errorf("Expected leading slash stripped from target, got '%s'", cfg.SyncFolders[0].Target)
	}
	if !cfg.SyncFolders[0].Enabled {
		t.Error("Expected new folder to be enabled")
	}

	if err := cfg.AddFolder("/home/user/docs", "other"); err == nil {
		t.Error("Expected error adding duplicate folder")
	}

	if err := cfg.SetFolderEnabled("/home/user/docs", false); err != nil {
		t.Fatalf("SetFolderEnabled() error = %v", err)
	}
	if cfg.SyncFolders[0].Enabled {
		t.Error("Expected folder to be disabled")
	}

	if err := cfg.RemoveFolder("/home/user/docs"); err != nil {
		t.Fatalf("RemoveFolder() error = %v", err)
	}
	if len(cfg.SyncFolders) != 0 {
		t.Errorf("Expected empty folder list, got %d entries", len(cfg.SyncFolders))
	}

	if err := cfg.RemoveFolder("/home/user/docs"); err == nil {
		t.Error("Expected error removing unknown folder")
	}
}

func TestSharePath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server = "nas.local"
	cfg.Share = "/volume1/backup"

	if got := cfg.SharePath(); got != "nas.local:/volume1/backup" {
		t.Errorf("NFS share path = %s", got)
	}

	cfg.Protocol = ProtocolCIFS
	if got := cfg.SharePath(); got != "//nas.local/volume1/backup" {
		t.Errorf("CIFS share path = %s", got)
	}
}
