package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/habib-here/Secure-File-Integrity-Monitor/cmd/sfim/tui"
)

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Follow the manifest live",
	Long: `Open a live view of the manifest that refreshes as the agent records
new events. Scroll with the arrow keys; press f to toggle following
the newest records, q to quit.`,
	RunE: runTail,
}

var tailLimit int

func init() {
	tailCmd.Flags().IntVarP(&tailLimit, "limit", "l", 200, "maximum number of records kept on screen")

	rootCmd.AddCommand(tailCmd)
}

func runTail(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := setupLogging(cfg, ""); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	return tui.Run(tui.Options{
		ManifestPath: cfg.Manifest.Path,
		Limit:        tailLimit,
	})
}
