package agent

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/gofrs/flock"
)

// ErrAlreadyRunning is returned when another agent holds the instance
// lock.
var ErrAlreadyRunning = errors.New("another agent instance is already running")

// releaser lets tests substitute the file lock.
type releaser interface {
	Unlock() error
}

// acquireLock takes the single-instance flock without blocking.
func (a *Agent) acquireLock() error {
	if err := os.MkdirAll(filepath.Dir(a.LockPath), 0o755); err != nil {
		return fmt.Errorf("creating lock directory: %w", err)
	}

	lock := flock.New(a.LockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquiring instance lock: %w", err)
	}
	if !locked {
		return ErrAlreadyRunning
	}

	a.lock = lock
	return nil
}

// releaseLock drops the instance lock if held.
func (a *Agent) releaseLock() {
	if a.lock != nil {
		_ = a.lock.Unlock()
		a.lock = nil
	}
}

// WritePIDFile writes the current process ID to path.
func WritePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

// ReadPIDFile reads a PID from path.
func ReadPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, err
	}

	return pid, nil
}

// RemovePIDFile removes the PID file.
func RemovePIDFile(path string) error {
	return os.Remove(path)
}

// IsAgentRunning reports whether the process named by the PID file is
// alive. A stale file left by a crashed agent reads as not running.
func IsAgentRunning(pidPath string) bool {
	pid, err := ReadPIDFile(pidPath)
	if err != nil {
		return false
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// Signal 0 probes for existence without touching the process
	return process.Signal(syscall.Signal(0)) == nil
}
