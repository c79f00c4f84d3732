package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/habib-here/Secure-File-Integrity-Monitor/pkg/integrity/manifest"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View recorded integrity events",
	Long: `View the manifest of recorded integrity events.

Every file creation, modification, deletion, and download the agent
observed is listed with its timestamp and digest, newest first.`,
	RunE: runHistory,
}

var (
	historyLimit int
	historyKind  string
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of records to show")
	historyCmd.Flags().StringVarP(&historyKind, "kind", "k", "", "filter by event kind (created, modified, deleted, downloaded)")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := setupLogging(cfg, ""); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	records, err := manifest.ReadRecords(cfg.Manifest.Path)
	if err != nil {
		return fmt.Errorf("failed to read manifest: %w", err)
	}

	if historyKind != "" {
		want := strings.ToUpper(strings.TrimSpace(historyKind))
		filtered := records[:0]
		for _, r := range records {
			if string(r.Kind) == want {
				filtered = append(filtered, r)
			}
		}
		records = filtered
	}

	total := len(records)
	if total == 0 {
		printInfo("No manifest records found.")
		printInfo("Run 'sfim watch' to start monitoring.")
		return nil
	}

	if historyLimit > 0 && total > historyLimit {
		records = records[total-historyLimit:]
	}

	// Newest first.
	rows := make([][]string, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		digest := r.Digest
		if r.HasDigest() {
			digest = shortDigest(r.Digest)
		}
		rows = append(rows, []string{
			r.Time.Format("2006-01-02 15:04:05"),
			string(r.Kind),
			digest,
			r.Name,
		})
	}

	fmt.Println(renderTable(
		[]string{"Time", "Event", "Digest", "File"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
	))
	fmt.Printf("Showing %d of %d records. Use --limit to see more.\n", len(records), total)

	return nil
}
