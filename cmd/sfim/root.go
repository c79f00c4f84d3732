package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/habib-here/Secure-File-Integrity-Monitor/pkg/integrity/config"
	"github.com/habib-here/Secure-File-Integrity-Monitor/pkg/integrity/logging"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "sfim",
		Short: "Monitor directories and record file integrity",
		Long: `sfim watches a directory tree, waits for new and changed files to
settle, and records their digests in an append-only manifest. A Badger
index keeps the latest digest per file so drift can be verified later.

Examples:
  sfim watch                        # Monitor the configured directory
  sfim watch -w /srv/incoming       # Monitor a specific directory
  sfim verify                       # Re-hash indexed files, report drift
  sfim download https://host/f.bin  # Fetch a file and record its digest
  sfim history --limit 50           # Show recent manifest records
  sfim tail                         # Follow the manifest live
  sfim status                       # Agent, index, and disk overview
  sfim config show                  # Show configuration`,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/sfim/config.yaml)")
	rootCmd.PersistentFlags().StringP("watch-dir", "w", "", "directory to monitor")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output")

	// Bind flags to viper
	_ = viper.BindPFlag("watch_dir", rootCmd.PersistentFlags().Lookup("watch-dir"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig enables environment lookups for the bound flags.
func initConfig() {
	viper.SetEnvPrefix("SFIM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
}

// loadConfig resolves the effective configuration: file and environment
// sources first, then the --watch-dir flag on top.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if cfgFile != "" {
		cfg, err = config.LoadFile(cfgFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if dir := viper.GetString("watch_dir"); dir != "" {
		cfg.WatchDir = dir
	}

	return cfg, nil
}

// setupLogging initializes file logging from cfg. consoleLevel is the
// command's preference for stderr output; --verbose raises it to debug
// and --quiet silences it.
func setupLogging(cfg *config.Config, consoleLevel string) error {
	switch {
	case getQuiet():
		consoleLevel = ""
	case getVerbose():
		consoleLevel = "debug"
	}

	return logging.Init(logging.Config{
		Level:        cfg.Logging.Level,
		Path:         cfg.Logging.Path,
		Rotation:     parseRotationConfig(cfg),
		Components:   cfg.Logging.Components,
		ConsoleLevel: consoleLevel,
	})
}

// parseRotationConfig maps the configured rotation settings onto the
// logging package, falling back to defaults for missing or malformed
// values.
func parseRotationConfig(cfg *config.Config) logging.RotationConfig {
	rotation := logging.DefaultRotationConfig()
	if maxBytes, err := cfg.RotationMaxBytes(); err == nil && maxBytes > 0 {
		rotation.MaxSize = maxBytes
	}
	if cfg.Logging.Rotation.MaxAge > 0 {
		rotation.MaxAge = cfg.Logging.Rotation.MaxAge
	}
	if cfg.Logging.Rotation.MaxBackups > 0 {
		rotation.MaxBackups = cfg.Logging.Rotation.MaxBackups
	}
	rotation.Daily = cfg.Logging.Rotation.Daily
	return rotation
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// getVerbose returns true if verbose mode is enabled.
func getVerbose() bool {
	return viper.GetBool("verbose")
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...interface{}) {
	if getVerbose() && !getQuiet() {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message if quiet mode is not enabled.
func printInfo(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Printf(format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
