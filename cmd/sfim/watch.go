package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/habib-here/Secure-File-Integrity-Monitor/pkg/agent"
	"github.com/habib-here/Secure-File-Integrity-Monitor/pkg/integrity/logging"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Monitor the watch directory and record file integrity",
	Long: `Watch the configured directory tree for file creations, modifications,
and deletions. New and changed files are hashed once their size settles,
and every event is appended to the manifest.

A directory argument overrides the configured watch directory.

The agent holds an exclusive lock while running, so only one instance
can monitor at a time. Stop it with Ctrl-C or SIGTERM.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if len(args) == 1 {
		cfg.WatchDir = args[0]
	}

	if err := cfg.EnsureDirs(); err != nil {
		return fmt.Errorf("failed to prepare directories: %w", err)
	}

	if err := setupLogging(cfg, cfg.Logging.ConsoleLevel); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer func() { _ = logging.Close() }()

	a, err := agent.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to start agent: %w", err)
	}
	defer func() { _ = a.Close() }()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		sig := <-sigChan
		printInfo("Received %s, shutting down...", sig)
		cancel()
	}()

	printInfo("Monitoring %s (press Ctrl-C to stop)", cfg.WatchDir)
	printVerbose("Manifest: %s", cfg.Manifest.Path)
	printVerbose("Index: %s", cfg.Index.Path)

	if err := a.Run(ctx); err != nil {
		if errors.Is(err, agent.ErrAlreadyRunning) {
			return fmt.Errorf("another sfim instance is already monitoring (remove %s if stale)", a.LockPath)
		}
		return fmt.Errorf("monitoring failed: %w", err)
	}

	printInfo("Monitoring stopped.")
	return nil
}
