// Package stability decides when a freshly written file has settled.
//
// A file counts as stable once its size holds steady for a configured
// number of consecutive polls. Zero-byte files never stabilize; they
// are either placeholders still being written or not worth recording.
package stability

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/habib-here/Secure-File-Integrity-Monitor/pkg/integrity/errclass"
	"github.com/habib-here/Secure-File-Integrity-Monitor/pkg/integrity/logging"
)

// Defaults applied when a Gate field is zero.
const (
	DefaultChecks   = 3
	DefaultInterval = 500 * time.Millisecond
)

// pollFactor bounds the total poll budget relative to Checks, so a file
// that never settles releases its worker instead of pinning it.
const pollFactor = 3

// Result is the outcome of waiting for a file to settle.
type Result int

const (
	// Stable means the size held for the required streak.
	Stable Result = iota
	// Vanished means the file disappeared while waiting.
	Vanished
	// TimedOut means the poll budget ran out before the size settled.
	TimedOut
	// Errored means the wait was cancelled or the file could not be
	// inspected.
	Errored
)

func (r Result) String() string {
	switch r {
	case Stable:
		return "stable"
	case Vanished:
		return "vanished"
	case TimedOut:
		return "timed_out"
	case Errored:
		return "errored"
	default:
		return "unknown"
	}
}

// Gate polls a path until its size stops changing.
// The zero value uses DefaultChecks and DefaultInterval.
type Gate struct {
	Checks   int
	Interval time.Duration
}

// Wait blocks until path is stable, vanishes, errors, or the poll
// budget of pollFactor times Checks runs out. Cancelling ctx aborts
// the wait with Errored.
func (g *Gate) Wait(ctx context.Context, path string) Result {
	checks := g.Checks
	if checks <= 0 {
		checks = DefaultChecks
	}
	interval := g.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	log := logging.Get("stability")

	var (
		streak int
		prev   int64 = -1
	)

	maxPolls := checks * pollFactor
	for poll := 0; poll < maxPolls; poll++ {
		if ctx.Err() != nil {
			return Errored
		}

		info, err := os.Stat(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return Vanished
		case errors.Is(err, fs.ErrPermission):
			// Permission churn mid-copy consumes the poll but keeps
			// the streak.
			if !sleep(ctx, interval) {
				return Errored
			}
			continue
		case err != nil:
			log.Warn("stat failed",
				"path", path,
				"class", errclass.Classify(err),
				"error", err)
			return Errored
		}

		size := info.Size()
		if size == prev && size > 0 {
			streak++
			if streak >= checks {
				log.Debug("size settled",
					"path", path,
					"size", size,
					"polls", poll+1)
				return Stable
			}
		} else {
			streak = 0
		}
		prev = size

		log.Debug("size sampled",
			"path", path,
			"size", size,
			"streak", streak)

		if !sleep(ctx, interval) {
			return Errored
		}
	}

	return TimedOut
}

// sleep waits for d or until ctx is cancelled. It reports whether the
// full duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
