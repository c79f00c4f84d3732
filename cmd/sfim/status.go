package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/habib-here/Secure-File-Integrity-Monitor/pkg/agent"
	"github.com/habib-here/Secure-File-Integrity-Monitor/pkg/agent/index"
	"github.com/habib-here/Secure-File-Integrity-Monitor/pkg/integrity/config"
	"github.com/habib-here/Secure-File-Integrity-Monitor/pkg/integrity/manifest"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show agent and storage status",
	Long:  `Show whether the monitoring agent is running, plus manifest, index, and disk usage at a glance.`,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := setupLogging(cfg, ""); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	pidPath := config.DefaultPIDPath()
	running := agent.IsAgentRunning(pidPath)
	if running {
		pid, _ := agent.ReadPIDFile(pidPath)
		printInfo("Agent status: running (pid %d)", pid)
	} else {
		printInfo("Agent status: not running")
	}

	printInfo("  Watch dir:  %s", cfg.WatchDir)
	printInfo("  Algorithm:  %s", cfg.Hash.Algorithm)
	printInfo("  Stability:  %d checks at %gs", cfg.Stability.Checks, cfg.Stability.Interval)

	records, err := manifest.ReadRecords(cfg.Manifest.Path)
	if err != nil {
		printInfo("  Manifest:   unreadable (%v)", err)
	} else {
		printInfo("  Manifest:   %s (%d records, %s)",
			cfg.Manifest.Path, len(records), manifestSize(cfg.Manifest.Path))
		if len(records) > 0 {
			last := records[len(records)-1]
			printInfo("  Last event: %s %s (%s)", last.Kind, last.Name, humanize.Time(last.Time))
		}
	}

	count, err := indexCount(cfg.Index.Path)
	switch {
	case err == nil:
		printInfo("  Index:      %d files tracked", count)
	case running:
		printInfo("  Index:      locked by the running agent")
	default:
		printInfo("  Index:      unavailable (%v)", err)
	}

	if free, total, ok := diskFree(cfg.WatchDir); ok {
		printInfo("  Disk free:  %s of %s", humanize.IBytes(free), humanize.IBytes(total))
	}

	return nil
}

func manifestSize(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return "0 B"
	}
	return humanize.IBytes(uint64(info.Size()))
}

func indexCount(path string) (int64, error) {
	ix, err := index.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = ix.Close() }()
	return ix.Count()
}
