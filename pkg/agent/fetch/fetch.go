// Package fetch downloads remote files into the download directory and
// records their digests alongside watched-file events.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/habib-here/Secure-File-Integrity-Monitor/pkg/agent/index"
	"github.com/habib-here/Secure-File-Integrity-Monitor/pkg/integrity/hashing"
	"github.com/habib-here/Secure-File-Integrity-Monitor/pkg/integrity/logging"
	"github.com/habib-here/Secure-File-Integrity-Monitor/pkg/integrity/manifest"
)

// DefaultTimeout bounds a whole download when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// userAgent identifies the agent to remote servers.
const userAgent = "SecureFileMonitor/1.0"

// Result describes one completed download.
type Result struct {
	Path   string
	Digest string
	Size   int64
}

// Config assembles a Fetcher. Dir is required; a nil Manifest or Index
// disables the corresponding recording.
type Config struct {
	Dir      string
	Timeout  time.Duration
	Hasher   *hashing.Hasher
	Manifest *manifest.Manifest
	Index    *index.Index
}

// Fetcher downloads files over HTTP and records their integrity.
type Fetcher struct {
	client *http.Client
	dir    string
	retry  *hashing.Policy
	man    *manifest.Manifest
	ix     *index.Index
}

// New creates a Fetcher from cfg.
func New(cfg Config) (*Fetcher, error) {
	if cfg.Dir == "" {
		return nil, errors.New("fetch requires a download directory")
	}
	if cfg.Hasher == nil {
		cfg.Hasher = &hashing.Hasher{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Fetcher{
		client: &http.Client{Timeout: timeout},
		dir:    cfg.Dir,
		retry:  &hashing.Policy{Hasher: cfg.Hasher},
		man:    cfg.Manifest,
		ix:     cfg.Index,
	}, nil
}

// Download fetches rawURL into the download directory, digests the
// saved file, and records it as downloaded. The body streams through a
// temporary .part file so an aborted transfer never leaves a partial
// file under the final name.
func (f *Fetcher) Download(ctx context.Context, rawURL string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetching %s: unexpected status %s", rawURL, resp.Status)
	}

	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating download directory: %w", err)
	}

	dest := filepath.Join(f.dir, filenameFor(rawURL))
	size, err := f.save(dest, resp.Body)
	if err != nil {
		return nil, err
	}

	res := f.retry.DigestWithRetry(ctx, dest)
	if !res.OK {
		return nil, fmt.Errorf("digesting %s: failed after %d attempts", dest, res.Attempts)
	}
	digest := res.Digest

	if f.man != nil {
		f.man.Append(dest, digest, manifest.KindDownloaded)
	}
	if f.ix != nil {
		entry := &index.Entry{
			Path:    dest,
			Digest:  digest,
			Size:    size,
			ModTime: time.Now().Unix(),
		}
		if err := f.ix.Put(entry); err != nil {
			logging.Get("fetch").Warn("index update failed", "path", dest, "error", err)
		}
	}

	logging.Get("fetch").Info("download recorded",
		"url", rawURL,
		"path", dest,
		"size", size,
		"digest", digest)

	return &Result{Path: dest, Digest: digest, Size: size}, nil
}

// save streams body into dest via a .part sibling and renames it into
// place once complete.
func (f *Fetcher) save(dest string, body io.Reader) (int64, error) {
	tmp := dest + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", tmp, err)
	}

	size, err := io.Copy(out, body)
	if err != nil {
		out.Close()
		os.Remove(tmp)
		return 0, fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("closing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("renaming %s: %w", tmp, err)
	}

	return size, nil
}

// filenameFor derives a local name from the URL path, falling back to
// a generated name when the URL has no usable basename.
func filenameFor(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil {
		name := path.Base(u.Path)
		if name != "" && name != "." && name != "/" {
			return name
		}
	}
	return "download-" + uuid.NewString()
}
