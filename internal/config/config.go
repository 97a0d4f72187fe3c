// ABOUTME: fitsync configuration: data dir, remote backend, sync and logging settings.
// ABOUTME: Stored as JSON at the XDG config path; getters apply defaults.

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/harperreed/fitsync/internal/storage"
)

// Remote backends.
const (
	BackendCharm = "charm"
	BackendMongo = "mongo"
	BackendNone  = "none"
)

const (
	DefaultCharmDB       = "fitsync"
	DefaultMongoDatabase = "fitsync"
	DefaultSyncInterval  = 15 * time.Minute
	DefaultProbeAddress  = "1.1.1.1:443"
	DefaultProbeInterval = 30 * time.Second
	DefaultMetricsAddr   = "127.0.0.1:9464"
)

// Config stores fitsync configuration.
type Config struct {
	// DataDir holds fitsync.db. Supports ~ expansion. Defaults to ~/.local/share/fitsync.
	DataDir string `json:"data_dir,omitempty"`

	// Backend selects the remote store: "charm" (default), "mongo" or "none".
	Backend string `json:"backend,omitempty"`

	CharmHost string `json:"charm_host,omitempty"`
	CharmDB   string `json:"charm_db,omitempty"`

	MongoURI      string `json:"mongo_uri,omitempty"`
	MongoDatabase string `json:"mongo_database,omitempty"`

	// Durations use Go syntax, e.g. "15m".
	SyncInterval  string `json:"sync_interval,omitempty"`
	ProbeAddress  string `json:"probe_address,omitempty"`
	ProbeInterval string `json:"probe_interval,omitempty"`
	MetricsAddr   string `json:"metrics_addr,omitempty"`

	LogFile  string `json:"log_file,omitempty"`
	LogLevel string `json:"log_level,omitempty"`
	LogJSON  bool   `json:"log_json,omitempty"`

	// UserID is the signed-in user. Empty means signed out.
	UserID string `json:"user_id,omitempty"`
	// Timezone is an IANA name used for streaks and morning workouts.
	Timezone string `json:"timezone,omitempty"`
}

// GetDataDir returns the configured data directory with ~ expanded,
// defaulting to the standard XDG data directory.
func (c *Config) GetDataDir() string {
	if c.DataDir == "" {
		return storage.DataDir()
	}
	return ExpandPath(c.DataDir)
}

// GetDBPath returns the local store path inside the data directory.
func (c *Config) GetDBPath() string {
	return filepath.Join(c.GetDataDir(), "fitsync.db")
}

// GetBackend returns the configured remote backend, defaulting to "charm".
func (c *Config) GetBackend() string {
	if c.Backend == "" {
		return BackendCharm
	}
	return strings.ToLower(c.Backend)
}

func (c *Config) GetCharmDB() string {
	if c.CharmDB == "" {
		return DefaultCharmDB
	}
	return c.CharmDB
}

func (c *Config) GetMongoDatabase() string {
	if c.MongoDatabase == "" {
		return DefaultMongoDatabase
	}
	return c.MongoDatabase
}

func (c *Config) GetSyncInterval() time.Duration {
	return parseDuration(c.SyncInterval, DefaultSyncInterval)
}

func (c *Config) GetProbeAddress() string {
	if c.ProbeAddress == "" {
		return DefaultProbeAddress
	}
	return c.ProbeAddress
}

func (c *Config) GetProbeInterval() time.Duration {
	return parseDuration(c.ProbeInterval, DefaultProbeInterval)
}

func (c *Config) GetMetricsAddr() string {
	if c.MetricsAddr == "" {
		return DefaultMetricsAddr
	}
	return c.MetricsAddr
}

// GetLogFile returns the expanded log file path. Empty means stderr only.
func (c *Config) GetLogFile() string {
	return ExpandPath(c.LogFile)
}

func (c *Config) GetLogLevel() string {
	if c.LogLevel == "" {
		return "info"
	}
	return c.LogLevel
}

// GetLocation resolves Timezone, falling back to the local zone.
func (c *Config) GetLocation() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Validate reports settings that cannot be used.
func (c *Config) Validate() error {
	switch c.GetBackend() {
	case BackendCharm, BackendNone:
	case BackendMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("backend %q requires mongo_uri", BackendMongo)
		}
	default:
		return fmt.Errorf("unknown backend: %q", c.Backend)
	}
	for name, v := range map[string]string{"sync_interval": c.SyncInterval, "probe_interval": c.ProbeInterval} {
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid %s: %q", name, v)
		}
	}
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
		}
	}
	return nil
}

func parseDuration(v string, def time.Duration) time.Duration {
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// OpenStore opens the local SQLite store in the data directory.
func (c *Config) OpenStore() (*storage.Store, error) {
	return storage.Open(c.GetDBPath())
}

// GetConfigPath returns the config file path.
func GetConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, _ := os.UserHomeDir()
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "fitsync", "config.json")
}

// Load reads config from disk.
func Load() (*Config, error) {
	path := GetConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// Save writes config to disk.
func (c *Config) Save() error {
	path := GetConfigPath()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
