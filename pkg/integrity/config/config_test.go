package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	// Use a temp directory that doesn't have a config file
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.WatchDir != DefaultWatchDir {
		t.Errorf("WatchDir = %q, want %q", cfg.WatchDir, DefaultWatchDir)
	}

	if cfg.DownloadDir != DefaultDownloadDir {
		t.Errorf("DownloadDir = %q, want %q", cfg.DownloadDir, DefaultDownloadDir)
	}

	if cfg.Manifest.Path != DefaultManifestPath {
		t.Errorf("Manifest.Path = %q, want %q", cfg.Manifest.Path, DefaultManifestPath)
	}

	if cfg.Stability.Checks != DefaultStabilityChecks {
		t.Errorf("Stability.Checks = %d, want %d", cfg.Stability.Checks, DefaultStabilityChecks)
	}

	if cfg.Stability.Interval != DefaultStabilityInterval {
		t.Errorf("Stability.Interval = %v, want %v", cfg.Stability.Interval, DefaultStabilityInterval)
	}

	if cfg.Hash.ChunkSize != DefaultChunkSize {
		t.Errorf("Hash.ChunkSize = %d, want %d", cfg.Hash.ChunkSize, DefaultChunkSize)
	}

	if cfg.Hash.MaxRetries != DefaultMaxRetries {
		t.Errorf("Hash.MaxRetries = %d, want %d", cfg.Hash.MaxRetries, DefaultMaxRetries)
	}

	if cfg.Hash.Algorithm != DefaultHashAlgorithm {
		t.Errorf("Hash.Algorithm = %q, want %q", cfg.Hash.Algorithm, DefaultHashAlgorithm)
	}

	if cfg.Download.Timeout != DefaultDownloadTimeout {
		t.Errorf("Download.Timeout = %d, want %d", cfg.Download.Timeout, DefaultDownloadTimeout)
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
}

func TestLoad_FromFile(t *testing.T) {
	tempDir := t.TempDir()
	configDir := filepath.Join(tempDir, ".config", "sfim")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}

	configContent := `
watch_dir: /srv/incoming
download_dir: /srv/downloads
manifest:
  path: /var/log/sfim/manifest.log
stability:
  checks: 5
  interval: 0.25
hash:
  algorithm: sha512
  chunk_size: 32768
  max_retries: 4
download:
  timeout: 10
`
	configPath := filepath.Join(configDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.WatchDir != "/srv/incoming" {
		t.Errorf("WatchDir = %q, want %q", cfg.WatchDir, "/srv/incoming")
	}

	if cfg.Manifest.Path != "/var/log/sfim/manifest.log" {
		t.Errorf("Manifest.Path = %q, want %q", cfg.Manifest.Path, "/var/log/sfim/manifest.log")
	}

	if cfg.Stability.Checks != 5 {
		t.Errorf("Stability.Checks = %d, want %d", cfg.Stability.Checks, 5)
	}

	if got := cfg.StabilityInterval(); got != 250*time.Millisecond {
		t.Errorf("StabilityInterval() = %v, want %v", got, 250*time.Millisecond)
	}

	if cfg.Hash.Algorithm != "sha512" {
		t.Errorf("Hash.Algorithm = %q, want %q", cfg.Hash.Algorithm, "sha512")
	}

	if cfg.Hash.ChunkSize != 32768 {
		t.Errorf("Hash.ChunkSize = %d, want %d", cfg.Hash.ChunkSize, 32768)
	}

	if got := cfg.DownloadTimeout(); got != 10*time.Second {
		t.Errorf("DownloadTimeout() = %v, want %v", got, 10*time.Second)
	}
}

func TestLoadFile_Explicit(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", "")

	configPath := filepath.Join(tempDir, "custom.yaml")
	configContent := "watch_dir: /data/inbox\n"
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if cfg.WatchDir != "/data/inbox" {
		t.Errorf("WatchDir = %q, want %q", cfg.WatchDir, "/data/inbox")
	}

	// Unset keys still fall back to defaults
	if cfg.Stability.Checks != DefaultStabilityChecks {
		t.Errorf("Stability.Checks = %d, want %d", cfg.Stability.Checks, DefaultStabilityChecks)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)

	if _, err := LoadFile(filepath.Join(tempDir, "absent.yaml")); err == nil {
		t.Error("LoadFile() should fail for an explicitly named missing file")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("SFIM_WATCH_DIR", "/data/watched")
	t.Setenv("SFIM_STABILITY_CHECKS", "7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.WatchDir != "/data/watched" {
		t.Errorf("WatchDir = %q, want %q", cfg.WatchDir, "/data/watched")
	}

	if cfg.Stability.Checks != 7 {
		t.Errorf("Stability.Checks = %d, want %d", cfg.Stability.Checks, 7)
	}
}

func TestRotationMaxBytes(t *testing.T) {
	cfg := &Config{}
	cfg.Logging.Rotation.MaxSize = "10MB"

	n, err := cfg.RotationMaxBytes()
	if err != nil {
		t.Fatalf("RotationMaxBytes() error = %v", err)
	}
	if n != 10*1000*1000 {
		t.Errorf("RotationMaxBytes() = %d, want %d", n, 10*1000*1000)
	}

	cfg.Logging.Rotation.MaxSize = "not-a-size"
	if _, err := cfg.RotationMaxBytes(); err == nil {
		t.Error("RotationMaxBytes() expected error for invalid size")
	}
}

func TestEnsureDirs(t *testing.T) {
	tempDir := t.TempDir()

	cfg := &Config{
		WatchDir:    filepath.Join(tempDir, "monitored"),
		DownloadDir: filepath.Join(tempDir, "downloads"),
	}
	cfg.Manifest.Path = filepath.Join(tempDir, "logs", "hash_manifest.log")
	cfg.Logging.Path = filepath.Join(tempDir, "logs", "integrity.log")

	if err := cfg.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs() error = %v", err)
	}

	for _, dir := range []string{
		cfg.WatchDir,
		cfg.DownloadDir,
		filepath.Join(tempDir, "logs"),
	} {
		if _, err := os.Stat(dir); err != nil {
			t.Errorf("directory %s not created: %v", dir, err)
		}
	}
}

func TestWriteDefault(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", "")

	if err := WriteDefault(); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	configPath := filepath.Join(tempDir, ".config", "sfim", "config.yaml")
	if _, err := os.Stat(configPath); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	// Second call must not clobber an existing file
	if err := os.WriteFile(configPath, []byte("watch_dir: /custom"), 0o644); err != nil {
		t.Fatalf("failed to overwrite config: %v", err)
	}
	if err := WriteDefault(); err != nil {
		t.Fatalf("WriteDefault() second call error = %v", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("reading config: %v", err)
	}
	if string(data) != "watch_dir: /custom" {
		t.Error("WriteDefault() clobbered existing config file")
	}
}
