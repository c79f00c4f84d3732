// Package manifest maintains the append-only audit log of integrity
// events. Each event is one pipe-delimited line, so the log stays
// greppable and survives partial writes better than a structured file
// rewritten in place.
package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/habib-here/Secure-File-Integrity-Monitor/pkg/integrity/logging"
)

// Sentinel replaces the digest field when no digest exists for the
// event, such as a deletion.
const Sentinel = "N/A"

// kindWidth pads the kind field so digests line up across lines.
const kindWidth = 12

// EventKind labels the lifecycle event a manifest line records.
type EventKind string

const (
	KindCreated    EventKind = "CREATED"
	KindModified   EventKind = "MODIFIED"
	KindDeleted    EventKind = "DELETED"
	KindDownloaded EventKind = "DOWNLOADED"
)

// Manifest appends integrity events to a single log file.
type Manifest struct {
	path string
	mu   sync.Mutex
}

// New creates a Manifest writing to the given path.
// The parent directory is not created until EnsureDir or the first
// Append.
func New(path string) (*Manifest, error) {
	if path == "" {
		return nil, errors.New("manifest path cannot be empty")
	}
	return &Manifest{path: path}, nil
}

// Path returns the manifest file location.
func (m *Manifest) Path() string {
	return m.path
}

// EnsureDir creates the manifest's parent directory if it does not
// exist.
func (m *Manifest) EnsureDir() error {
	return os.MkdirAll(filepath.Dir(m.path), 0o755)
}

// Append records one event. The digest field carries Sentinel when
// digest is empty. Append never fails the calling pipeline: write
// errors are logged and swallowed, since a missed audit line must not
// stall event processing.
func (m *Manifest) Append(path, digest string, kind EventKind) {
	if digest == "" {
		digest = Sentinel
	}

	line := fmt.Sprintf("%s | %-*s | %s | %s\n",
		time.Now().Format(time.RFC3339),
		kindWidth, kind,
		digest,
		filepath.Base(path))

	m.mu.Lock()
	defer m.mu.Unlock()

	log := logging.Get("manifest")
	if err := m.writeLine(line); err != nil {
		log.Error("append failed",
			"path", m.path,
			"kind", kind,
			"error", err)
		return
	}

	log.Debug("event recorded",
		"kind", kind,
		"name", filepath.Base(path))
}

// writeLine appends one line, creating the parent directory on demand
// so a manifest under a not-yet-created log directory still records.
func (m *Manifest) writeLine(line string) error {
	f, err := m.open()
	if errors.Is(err, fs.ErrNotExist) {
		if mkErr := m.EnsureDir(); mkErr != nil {
			return fmt.Errorf("creating manifest directory: %w", mkErr)
		}
		f, err = m.open()
	}
	if err != nil {
		return fmt.Errorf("opening manifest: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("writing manifest line: %w", err)
	}
	return nil
}

func (m *Manifest) open() (*os.File, error) {
	return os.OpenFile(m.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
}
