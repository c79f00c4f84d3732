// Package coordinator serializes event handling per path.
//
// Watchers deliver bursts of events for the same file while it is being
// written. The coordinator admits at most one in-flight pass per path
// and debounces rapid modification bursts, so each settled write is
// digested once instead of once per kernel event.
package coordinator

import (
	"sync"
	"time"
)

// Defaults applied when an Options field is zero.
const (
	DefaultDebounceWindow = time.Second
	DefaultPruneThreshold = 1000
	DefaultPruneMaxAge    = 60 * time.Second
)

// Options tunes admission behavior. The zero value selects defaults.
type Options struct {
	DebounceWindow time.Duration
	PruneThreshold int
	PruneMaxAge    time.Duration
}

// Coordinator tracks in-flight paths and recent modification stamps.
type Coordinator struct {
	mu           sync.Mutex
	processing   map[string]struct{}
	lastAccepted map[string]time.Time

	debounce   time.Duration
	pruneAbove int
	pruneAge   time.Duration
}

// New returns a Coordinator with default tuning.
func New() *Coordinator {
	return NewWithOptions(Options{})
}

// NewWithOptions returns a Coordinator with the given tuning.
func NewWithOptions(opts Options) *Coordinator {
	if opts.DebounceWindow <= 0 {
		opts.DebounceWindow = DefaultDebounceWindow
	}
	if opts.PruneThreshold <= 0 {
		opts.PruneThreshold = DefaultPruneThreshold
	}
	if opts.PruneMaxAge <= 0 {
		opts.PruneMaxAge = DefaultPruneMaxAge
	}
	return &Coordinator{
		processing:   make(map[string]struct{}),
		lastAccepted: make(map[string]time.Time),
		debounce:     opts.DebounceWindow,
		pruneAbove:   opts.PruneThreshold,
		pruneAge:     opts.PruneMaxAge,
	}
}

// AdmitCreate claims path for a creation pass. It reports false when
// another pass already holds the path. Creations are not debounced;
// a genuinely new file always deserves a pass.
func (c *Coordinator) AdmitCreate(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, busy := c.processing[path]; busy {
		return false
	}
	c.processing[path] = struct{}{}
	return true
}

// AdmitModify claims path for a modification pass, debouncing bursts.
// The acceptance stamp is recorded before the in-flight check, so a
// burst arriving while a pass runs stays debounced after that pass
// releases.
func (c *Coordinator) AdmitModify(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if last, ok := c.lastAccepted[path]; ok && now.Sub(last) < c.debounce {
		return false
	}
	c.lastAccepted[path] = now

	if _, busy := c.processing[path]; busy {
		return false
	}
	c.processing[path] = struct{}{}
	return true
}

// Release frees path for future passes and prunes stale stamps once
// the debounce map outgrows the threshold.
func (c *Coordinator) Release(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.processing, path)
	c.prune()
}

// InFlight returns the number of paths currently claimed by a pass.
func (c *Coordinator) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.processing)
}

// prune drops stamps older than pruneAge. Caller holds mu.
func (c *Coordinator) prune() {
	if len(c.lastAccepted) <= c.pruneAbove {
		return
	}
	cutoff := time.Now().Add(-c.pruneAge)
	for path, stamp := range c.lastAccepted {
		if stamp.Before(cutoff) {
			delete(c.lastAccepted, path)
		}
	}
}
