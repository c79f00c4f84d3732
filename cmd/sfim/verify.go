package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charlievieth/fastwalk"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/habib-here/Secure-File-Integrity-Monitor/pkg/agent/index"
	"github.com/habib-here/Secure-File-Integrity-Monitor/pkg/integrity/config"
	"github.com/habib-here/Secure-File-Integrity-Monitor/pkg/integrity/hashing"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [path] [digest]",
	Short: "Re-hash indexed files and report drift",
	Long: `Walk the watch directory, re-hash every indexed file, and compare the
result against the recorded digest. Files that changed without the agent
seeing it are reported as drifted; indexed files that no longer exist on
disk are reported as missing, and files on disk the agent never hashed
as untracked.

With a path argument, checks just that file against its index entry.
With a path and a digest, checks the file against the given digest
instead of the index.

Exits non-zero when any drifted or missing files are found.`,
	Args: cobra.MaximumNArgs(2),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

// verifyState classifies a single finding.
type verifyState string

const (
	stateDrift     verifyState = "DRIFT"
	stateMissing   verifyState = "MISSING"
	stateUntracked verifyState = "UNTRACKED"
	stateError     verifyState = "ERROR"
)

type verifyFinding struct {
	State  verifyState
	Path   string
	Detail string
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := setupLogging(cfg, "warn"); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	algorithm, err := hashing.ParseAlgorithm(cfg.Hash.Algorithm)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	hasher := &hashing.Hasher{Algorithm: algorithm, ChunkSize: cfg.Hash.ChunkSize}

	if len(args) > 0 {
		return verifyOne(cfg, hasher, args)
	}

	ix, err := index.Open(cfg.Index.Path)
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer func() { _ = ix.Close() }()

	entries, err := ix.All()
	if err != nil {
		return fmt.Errorf("failed to read index: %w", err)
	}

	root, err := filepath.Abs(cfg.WatchDir)
	if err != nil {
		return fmt.Errorf("failed to resolve watch directory: %w", err)
	}

	printVerbose("Verifying %d indexed files against %s", len(entries), root)

	// Entries not consumed by the walk are checked afterwards: either
	// missing from the tree or recorded outside it (downloads).
	remaining := make(map[string]*index.Entry, len(entries))
	for _, entry := range entries {
		remaining[entry.Path] = entry
	}

	var (
		mu       sync.Mutex
		findings []verifyFinding
		verified atomic.Int64
	)
	addFinding := func(state verifyState, path, detail string) {
		mu.Lock()
		findings = append(findings, verifyFinding{State: state, Path: path, Detail: detail})
		mu.Unlock()
	}

	conf := fastwalk.Config{
		Follow: false, // Don't follow symlinks.
	}
	walkErr := fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			addFinding(stateError, path, err.Error())
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		mu.Lock()
		entry, tracked := remaining[path]
		if tracked {
			delete(remaining, path)
		}
		mu.Unlock()

		if !tracked {
			addFinding(stateUntracked, path, "never hashed")
			return nil
		}
		if hasher.Verify(path, entry.Digest) {
			verified.Add(1)
		} else {
			addFinding(stateDrift, path, "recorded "+shortDigest(entry.Digest))
		}
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("failed to walk %s: %w", root, walkErr)
	}

	// Leftover entries are gone from the tree, or live elsewhere.
	for path, entry := range remaining {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			addFinding(stateMissing, path, "recorded "+humanize.Time(time.Unix(entry.RecordedAt, 0)))
			continue
		}
		if hasher.Verify(path, entry.Digest) {
			verified.Add(1)
		} else {
			addFinding(stateDrift, path, "recorded "+shortDigest(entry.Digest))
		}
	}

	printReport(findings, verified.Load())

	drifted := countState(findings, stateDrift)
	missing := countState(findings, stateMissing)
	if drifted > 0 || missing > 0 {
		return fmt.Errorf("integrity check failed: %d drifted, %d missing", drifted, missing)
	}
	return nil
}

// verifyOne checks a single file, against the given digest when one is
// supplied and against its index entry otherwise.
func verifyOne(cfg *config.Config, hasher *hashing.Hasher, args []string) error {
	path, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", args[0], err)
	}

	var want string
	if len(args) == 2 {
		want = args[1]
	} else {
		ix, err := index.Open(cfg.Index.Path)
		if err != nil {
			return fmt.Errorf("failed to open index: %w", err)
		}
		defer func() { _ = ix.Close() }()

		entry, err := ix.Get(path)
		if errors.Is(err, index.ErrNotFound) {
			return fmt.Errorf("%s is not in the index; run 'sfim watch' or pass an explicit digest", path)
		}
		if err != nil {
			return fmt.Errorf("failed to read index: %w", err)
		}
		want = entry.Digest
	}

	got, err := hasher.Digest(path)
	if err != nil {
		return fmt.Errorf("failed to hash %s: %w", path, err)
	}

	if !strings.EqualFold(got, want) {
		printInfo("DRIFT  %s", path)
		printInfo("  expected: %s", want)
		printInfo("  actual:   %s", got)
		return fmt.Errorf("integrity check failed: %s does not match", path)
	}

	printInfo("OK  %s  %s", path, shortDigest(got))
	return nil
}

func printReport(findings []verifyFinding, verified int64) {
	sort.Slice(findings, func(i, j int) bool {
		if findings[i].State != findings[j].State {
			return findings[i].State < findings[j].State
		}
		return findings[i].Path < findings[j].Path
	})

	if len(findings) > 0 && !getQuiet() {
		rows := make([][]string, 0, len(findings))
		for _, f := range findings {
			rows = append(rows, []string{string(f.State), f.Path, f.Detail})
		}
		fmt.Println(renderTable(
			[]string{"State", "File", "Detail"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft},
		))
	}

	printInfo("%d verified, %d drifted, %d missing, %d untracked",
		verified,
		countState(findings, stateDrift),
		countState(findings, stateMissing),
		countState(findings, stateUntracked),
	)
}

func countState(findings []verifyFinding, state verifyState) int {
	n := 0
	for _, f := range findings {
		if f.State == state {
			n++
		}
	}
	return n
}

// shortDigest abbreviates a hex digest for table display.
func shortDigest(digest string) string {
	if len(digest) <= 12 {
		return digest
	}
	return digest[:12] + "..."
}
