// Package errclass classifies I/O failures into the monitor's error
// taxonomy. Classification feeds logging and retry decisions; it never
// changes what the caller does with the underlying error.
package errclass

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"syscall"
)

// Kind is the failure class of an I/O error.
type Kind int

const (
	// Unclassified covers errors no other class matches.
	Unclassified Kind = iota

	// NotFound means the path does not exist or vanished.
	NotFound

	// PermissionDenied means the path exists but access was refused.
	PermissionDenied

	// TransientIO covers contention and interruption errors worth retrying.
	TransientIO

	// Timeout means a deadline elapsed before the operation completed.
	Timeout
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case PermissionDenied:
		return "permission_denied"
	case TransientIO:
		return "transient_io"
	case Timeout:
		return "timeout"
	default:
		return "unclassified"
	}
}

// Classify maps an error to its failure class.
func Classify(err error) Kind {
	if err == nil {
		return Unclassified
	}

	switch {
	case errors.Is(err, fs.ErrNotExist):
		return NotFound
	case errors.Is(err, fs.ErrPermission):
		return PermissionDenied
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		return Timeout
	case errors.Is(err, io.ErrUnexpectedEOF):
		return TransientIO
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.EIO, syscall.EAGAIN, syscall.EINTR, syscall.EBUSY:
			return TransientIO
		}
	}

	return Unclassified
}
