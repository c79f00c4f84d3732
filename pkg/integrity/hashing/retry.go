package hashing

import (
	"context"
	"os"
	"time"

	"github.com/habib-here/Secure-File-Integrity-Monitor/pkg/integrity/errclass"
	"github.com/habib-here/Secure-File-Integrity-Monitor/pkg/integrity/logging"
)

// Retry defaults applied when a Policy field is zero.
const (
	DefaultMaxAttempts  = 3
	DefaultBaseDelay    = 500 * time.Millisecond
	DefaultMissingDelay = 500 * time.Millisecond
)

// DigestResult reports the outcome of a retried digest computation.
// Attempts counts how many attempts were actually consumed.
type DigestResult struct {
	Digest   string
	OK       bool
	Attempts int
}

// Policy wraps a Hasher with bounded retries for files that are still
// settling when the first read lands. A missing path waits MissingDelay
// and consumes an attempt; any other failure backs off linearly at
// BaseDelay times the attempt number, with no sleep after the final
// attempt.
type Policy struct {
	Hasher       *Hasher
	MaxAttempts  int
	BaseDelay    time.Duration
	MissingDelay time.Duration
}

// DigestWithRetry computes the digest of path under the retry policy.
// Cancelling ctx aborts between attempts and mid-sleep; the result then
// reports the attempts consumed so far with OK false.
func (p *Policy) DigestWithRetry(ctx context.Context, path string) DigestResult {
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	baseDelay := p.BaseDelay
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}
	missingDelay := p.MissingDelay
	if missingDelay <= 0 {
		missingDelay = DefaultMissingDelay
	}

	log := logging.Get("hasher")

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return DigestResult{Attempts: attempt - 1}
		}

		if _, err := os.Stat(path); err != nil {
			// The writer may not have created the file yet; wait out
			// one attempt before looking again.
			log.Warn("path not ready",
				"path", path,
				"attempt", attempt,
				"class", errclass.Classify(err))
			if !sleep(ctx, missingDelay) {
				return DigestResult{Attempts: attempt}
			}
			continue
		}

		digest, err := p.Hasher.Digest(path)
		if err == nil {
			return DigestResult{Digest: digest, OK: true, Attempts: attempt}
		}

		log.Warn("digest attempt failed",
			"path", path,
			"attempt", attempt,
			"class", errclass.Classify(err),
			"error", err)

		if attempt < maxAttempts {
			if !sleep(ctx, baseDelay*time.Duration(attempt)) {
				return DigestResult{Attempts: attempt}
			}
		}
	}

	return DigestResult{Attempts: maxAttempts}
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
