package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"
)

// StabilityConfig configures the file stability gate.
type StabilityConfig struct {
	Checks   int     `mapstructure:"checks"`
	Interval float64 `mapstructure:"interval"` // seconds
}

// HashConfig configures digest computation.
type HashConfig struct {
	Algorithm  string `mapstructure:"algorithm"`
	ChunkSize  int    `mapstructure:"chunk_size"`
	MaxRetries int    `mapstructure:"max_retries"`
}

// DownloadConfig configures the HTTP download helper.
type DownloadConfig struct {
	Timeout int `mapstructure:"timeout"` // seconds
}

// ManifestConfig configures the audit sink.
type ManifestConfig struct {
	Path string `mapstructure:"path"`
}

// IndexConfig configures the digest index store.
type IndexConfig struct {
	Path string `mapstructure:"path"`
}

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"` // e.g. "10MB"
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Daily      bool   `mapstructure:"daily"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level        string            `mapstructure:"level"`
	ConsoleLevel string            `mapstructure:"console_level"`
	Path         string            `mapstructure:"path"`
	Rotation     RotationConfig    `mapstructure:"rotation"`
	Components   map[string]string `mapstructure:"components"`
}

// Config represents the application configuration.
type Config struct {
	WatchDir    string          `mapstructure:"watch_dir"`
	DownloadDir string          `mapstructure:"download_dir"`
	Manifest    ManifestConfig  `mapstructure:"manifest"`
	Stability   StabilityConfig `mapstructure:"stability"`
	Hash        HashConfig      `mapstructure:"hash"`
	Download    DownloadConfig  `mapstructure:"download"`
	Index       IndexConfig     `mapstructure:"index"`
	Logging     LoggingConfig   `mapstructure:"logging"`
}

// StabilityInterval returns the poll interval as a duration.
func (c *Config) StabilityInterval() time.Duration {
	return time.Duration(c.Stability.Interval * float64(time.Second))
}

// DownloadTimeout returns the HTTP timeout as a duration.
func (c *Config) DownloadTimeout() time.Duration {
	return time.Duration(c.Download.Timeout) * time.Second
}

// RotationMaxBytes parses the rotation size threshold ("10MB") into bytes.
func (c *Config) RotationMaxBytes() (int64, error) {
	if c.Logging.Rotation.MaxSize == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(c.Logging.Rotation.MaxSize)
	if err != nil {
		return 0, fmt.Errorf("parsing rotation max_size: %w", err)
	}
	return int64(n), nil
}

// Load loads configuration from file and environment variables.
// Config file locations (in order of precedence):
//   - $XDG_CONFIG_HOME/sfim/config.yaml
//   - $HOME/.config/sfim/config.yaml
//
// Environment variables are prefixed with SFIM_ (e.g., SFIM_WATCH_DIR,
// SFIM_STABILITY_CHECKS).
func Load() (*Config, error) {
	return load("")
}

// LoadFile loads configuration from an explicit file instead of the
// search paths. Unlike Load, a missing file is an error here, since
// the caller asked for it by name.
func LoadFile(path string) (*Config, error) {
	return load(path)
}

func load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			v.AddConfigPath(filepath.Join(xdgConfigHome, "sfim"))
		}

		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		v.AddConfigPath(filepath.Join(homeDir, ".config", "sfim"))
	}

	v.SetEnvPrefix("SFIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (ignore if not found on the search paths)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers every configuration default on the viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("watch_dir", DefaultWatchDir)
	v.SetDefault("download_dir", DefaultDownloadDir)
	v.SetDefault("manifest.path", DefaultManifestPath)

	v.SetDefault("stability.checks", DefaultStabilityChecks)
	v.SetDefault("stability.interval", DefaultStabilityInterval)

	v.SetDefault("hash.algorithm", DefaultHashAlgorithm)
	v.SetDefault("hash.chunk_size", DefaultChunkSize)
	v.SetDefault("hash.max_retries", DefaultMaxRetries)

	v.SetDefault("download.timeout", DefaultDownloadTimeout)

	v.SetDefault("index.path", DefaultIndexPath())

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console_level", "info")
	v.SetDefault("logging.path", DefaultLogFile)
	v.SetDefault("logging.rotation.max_size", "10MB")
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.daily", true)
	v.SetDefault("logging.components", map[string]string{
		"watcher":   "info",
		"router":    "info",
		"stability": "info",
		"hasher":    "info",
		"manifest":  "info",
		"fetch":     "info",
	})
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "sfim"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "sfim"), nil
}

// DataDir returns $XDG_DATA_HOME/sfim/ for the index and lock files.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "sfim")
}

// StateDir returns $XDG_STATE_HOME/sfim/ for log files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, "sfim")
}

// DefaultIndexPath returns the default Badger index directory.
func DefaultIndexPath() string {
	return filepath.Join(DataDir(), "index")
}

// DefaultLockPath returns the path of the single-instance lock file.
func DefaultLockPath() string {
	return filepath.Join(DataDir(), "sfim.lock")
}

// DefaultPIDPath returns the path of the agent PID file.
func DefaultPIDPath() string {
	return filepath.Join(StateDir(), "sfim.pid")
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return nil
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	if err := os.MkdirAll(DataDir(), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	return nil
}

// EnsureDirs creates every runtime directory the agent needs: the watch
// and download trees, and the parents of the manifest and log files.
func (c *Config) EnsureDirs() error {
	dirs := []string{
		c.WatchDir,
		c.DownloadDir,
		filepath.Dir(c.Manifest.Path),
		filepath.Dir(c.Logging.Path),
	}
	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}
	return nil
}

// WriteDefault writes a commented default config file if none exists.
// Returns nil if a config file already exists.
func WriteDefault() error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}

	configDir, err := ConfigDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(configDir, "config.yaml")

	if _, err := os.Stat(configPath); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to check config file: %w", err)
	}

	defaultConfig := fmt.Sprintf(`# Secure File Integrity Monitor Configuration

# Directory tree to observe
watch_dir: %s

# Destination for downloaded files
download_dir: %s

# Append-only audit manifest
manifest:
  path: %s

# Stability detection: a file is hashed once its size holds steady
stability:
  # Consecutive identical non-zero size polls required
  checks: %d
  # Poll interval in seconds
  interval: %g

# Digest computation
hash:
  # sha256, sha512, or sha1
  algorithm: %s
  # Streaming read size in bytes
  chunk_size: %d
  # Attempts per file before giving up
  max_retries: %d

# HTTP download helper
download:
  # Request timeout in seconds
  timeout: %d

# Digest index (empty means use default: $XDG_DATA_HOME/sfim/index)
index:
  path: %s

# Logging configuration
logging:
  # Log level: debug, info, warn, error
  level: info
  # Console level ("" disables console output)
  console_level: info
  # Log file path
  path: %s
  # Log rotation settings
  rotation:
    max_size: 10MB
    max_age: 30       # days
    max_backups: 5
    daily: true
  # Per-component log levels
  components:
    watcher: info
    router: info
    stability: info
    hasher: info
    manifest: info
    fetch: info
`, DefaultWatchDir, DefaultDownloadDir, DefaultManifestPath,
		DefaultStabilityChecks, DefaultStabilityInterval,
		DefaultHashAlgorithm, DefaultChunkSize, DefaultMaxRetries,
		DefaultDownloadTimeout, DefaultIndexPath(), DefaultLogFile)

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("failed to write default config: %w", err)
	}

	return nil
}

// ExpandPath expands ~ in a path to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}
