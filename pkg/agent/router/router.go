// Package router drives the integrity pipeline for watcher events.
//
// Creations and modifications are admitted through the coordinator,
// then processed asynchronously: wait for the file to settle, digest
// it, append the manifest line, and refresh the index. Deletions are
// recorded synchronously since there is nothing left to hash.
package router

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/habib-here/Secure-File-Integrity-Monitor/pkg/agent/coordinator"
	"github.com/habib-here/Secure-File-Integrity-Monitor/pkg/agent/index"
	"github.com/habib-here/Secure-File-Integrity-Monitor/pkg/agent/watcher"
	"github.com/habib-here/Secure-File-Integrity-Monitor/pkg/integrity/hashing"
	"github.com/habib-here/Secure-File-Integrity-Monitor/pkg/integrity/logging"
	"github.com/habib-here/Secure-File-Integrity-Monitor/pkg/integrity/manifest"
	"github.com/habib-here/Secure-File-Integrity-Monitor/pkg/integrity/stability"
)

// Config assembles the pipeline stages. Manifest is required; a nil
// Index disables index updates, and nil tuning stages fall back to
// their defaults.
type Config struct {
	Gate        *stability.Gate
	Retry       *hashing.Policy
	Coordinator *coordinator.Coordinator
	Manifest    *manifest.Manifest
	Index       *index.Index
}

// Router turns filesystem events into manifest and index records.
type Router struct {
	gate  *stability.Gate
	retry *hashing.Policy
	coord *coordinator.Coordinator
	man   *manifest.Manifest
	ix    *index.Index
	wg    sync.WaitGroup
}

// New creates a Router from cfg.
func New(cfg Config) (*Router, error) {
	if cfg.Manifest == nil {
		return nil, errors.New("router requires a manifest")
	}
	if cfg.Gate == nil {
		cfg.Gate = &stability.Gate{}
	}
	if cfg.Retry == nil {
		cfg.Retry = &hashing.Policy{Hasher: &hashing.Hasher{}}
	}
	if cfg.Coordinator == nil {
		cfg.Coordinator = coordinator.New()
	}

	return &Router{
		gate:  cfg.Gate,
		retry: cfg.Retry,
		coord: cfg.Coordinator,
		man:   cfg.Manifest,
		ix:    cfg.Index,
	}, nil
}

// Handle dispatches one watcher event. Directory events carry no
// content to digest and are dropped. Create and modify passes run in
// their own goroutines; call Wait to drain them.
func (r *Router) Handle(ctx context.Context, ev watcher.Event) {
	log := logging.Get("router")

	if ev.IsDir {
		log.Debug("directory event ignored", "path", ev.Path, "kind", ev.Kind)
		return
	}

	switch ev.Kind {
	case watcher.Created:
		if !r.coord.AdmitCreate(ev.Path) {
			log.Debug("create pass already in flight", "path", ev.Path)
			return
		}
		log.Info("file created", "path", ev.Path)
		r.wg.Add(1)
		go r.process(ctx, ev.Path, manifest.KindCreated)

	case watcher.Modified:
		if !r.coord.AdmitModify(ev.Path) {
			log.Debug("modification debounced", "path", ev.Path)
			return
		}
		log.Info("file modified", "path", ev.Path)
		r.wg.Add(1)
		go r.process(ctx, ev.Path, manifest.KindModified)

	case watcher.Deleted:
		log.Info("file deleted", "path", ev.Path)
		r.handleDelete(ev.Path)
	}
}

// Wait blocks until every in-flight pass has finished.
func (r *Router) Wait() {
	r.wg.Wait()
}

// process runs one admitted create or modify pass to completion.
func (r *Router) process(ctx context.Context, path string, kind manifest.EventKind) {
	defer r.wg.Done()
	defer r.coord.Release(path)

	log := logging.Get("router")

	switch res := r.gate.Wait(ctx, path); res {
	case stability.Stable:
	case stability.Vanished:
		log.Info("file vanished before settling", "path", path)
		return
	default:
		log.Warn("file never settled", "path", path, "result", res)
		return
	}

	digest := r.retry.DigestWithRetry(ctx, path)
	if !digest.OK {
		log.Warn("digest failed", "path", path, "attempts", digest.Attempts)
		return
	}

	r.man.Append(path, digest.Digest, kind)
	r.updateIndex(path, digest.Digest)

	log.Info("integrity recorded",
		"path", path,
		"kind", kind,
		"digest", digest.Digest,
		"attempts", digest.Attempts)
}

// handleDelete records a deletion with the digest sentinel and drops
// the stale index entry.
func (r *Router) handleDelete(path string) {
	r.man.Append(path, "", manifest.KindDeleted)

	if r.ix != nil {
		if err := r.ix.Delete(path); err != nil {
			logging.Get("router").Warn("index delete failed", "path", path, "error", err)
		}
	}
}

// updateIndex refreshes the index entry for path. Index trouble is
// advisory: the manifest line already landed, and the next event will
// retry the entry.
func (r *Router) updateIndex(path, digest string) {
	if r.ix == nil {
		return
	}

	log := logging.Get("router")

	info, err := os.Stat(path)
	if err != nil {
		log.Warn("index stat failed", "path", path, "error", err)
		return
	}

	entry := &index.Entry{
		Path:    path,
		Digest:  digest,
		Size:    info.Size(),
		ModTime: info.ModTime().Unix(),
	}
	if err := r.ix.Put(entry); err != nil {
		log.Warn("index update failed", "path", path, "error", err)
	}
}
