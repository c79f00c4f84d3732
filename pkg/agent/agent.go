// Package agent wires the watcher, router, and storage layers into the
// long-running monitoring process.
package agent

import (
	"context"
	"fmt"

	"github.com/habib-here/Secure-File-Integrity-Monitor/pkg/agent/coordinator"
	"github.com/habib-here/Secure-File-Integrity-Monitor/pkg/agent/index"
	"github.com/habib-here/Secure-File-Integrity-Monitor/pkg/agent/router"
	"github.com/habib-here/Secure-File-Integrity-Monitor/pkg/agent/watcher"
	"github.com/habib-here/Secure-File-Integrity-Monitor/pkg/integrity/config"
	"github.com/habib-here/Secure-File-Integrity-Monitor/pkg/integrity/hashing"
	"github.com/habib-here/Secure-File-Integrity-Monitor/pkg/integrity/logging"
	"github.com/habib-here/Secure-File-Integrity-Monitor/pkg/integrity/manifest"
	"github.com/habib-here/Secure-File-Integrity-Monitor/pkg/integrity/stability"
)

// Agent runs the integrity pipeline against the configured watch
// directory.
type Agent struct {
	// LockPath and PIDPath may be overridden before Run; they default
	// to the shared locations under the user's data and state dirs.
	LockPath string
	PIDPath  string

	cfg *config.Config
	man *manifest.Manifest
	ix  *index.Index
	w   *watcher.Watcher
	r   *router.Router

	lock releaser
}

// New assembles an Agent from cfg. The index database is opened here,
// so a second agent pointed at the same index fails fast.
func New(cfg *config.Config) (*Agent, error) {
	algorithm, err := hashing.ParseAlgorithm(cfg.Hash.Algorithm)
	if err != nil {
		return nil, err
	}

	man, err := manifest.New(cfg.Manifest.Path)
	if err != nil {
		return nil, err
	}

	ix, err := index.Open(cfg.Index.Path)
	if err != nil {
		return nil, fmt.Errorf("opening index: %w", err)
	}

	hasher := &hashing.Hasher{
		Algorithm: algorithm,
		ChunkSize: cfg.Hash.ChunkSize,
	}

	r, err := router.New(router.Config{
		Gate: &stability.Gate{
			Checks:   cfg.Stability.Checks,
			Interval: cfg.StabilityInterval(),
		},
		Retry: &hashing.Policy{
			Hasher:      hasher,
			MaxAttempts: cfg.Hash.MaxRetries,
		},
		Coordinator: coordinator.New(),
		Manifest:    man,
		Index:       ix,
	})
	if err != nil {
		ix.Close()
		return nil, err
	}

	w, err := watcher.New()
	if err != nil {
		ix.Close()
		return nil, err
	}

	return &Agent{
		LockPath: config.DefaultLockPath(),
		PIDPath:  config.DefaultPIDPath(),
		cfg:      cfg,
		man:      man,
		ix:       ix,
		w:        w,
		r:        r,
	}, nil
}

// Run acquires the single-instance lock, registers watches, and
// processes events until ctx is cancelled. In-flight passes drain
// before Run returns, so the manifest never loses an admitted event to
// shutdown.
func (a *Agent) Run(ctx context.Context) error {
	log := logging.Get("agent")

	if err := a.acquireLock(); err != nil {
		return err
	}
	defer a.releaseLock()

	if err := a.w.Watch(a.cfg.WatchDir); err != nil {
		return fmt.Errorf("watching %s: %w", a.cfg.WatchDir, err)
	}

	// The PID file lands only once watches are live, so its presence
	// means the tree is actually covered.
	if err := WritePIDFile(a.PIDPath); err != nil {
		log.Warn("pid file write failed", "path", a.PIDPath, "error", err)
	} else {
		defer RemovePIDFile(a.PIDPath)
	}

	log.Info("monitoring started",
		"dir", a.cfg.WatchDir,
		"watched_dirs", a.w.WatchedDirs(),
		"algorithm", a.cfg.Hash.Algorithm,
		"stability_checks", a.cfg.Stability.Checks,
		"manifest", a.man.Path())

	a.w.Run(ctx, func(ev watcher.Event) {
		a.r.Handle(ctx, ev)
	})

	log.Info("draining in-flight passes")
	a.r.Wait()
	log.Info("monitoring stopped", "dir", a.cfg.WatchDir)

	return nil
}

// Close releases watcher and index resources.
func (a *Agent) Close() error {
	err := a.w.Close()
	if cerr := a.ix.Close(); err == nil {
		err = cerr
	}
	return err
}
