package hashing

import (
	"strings"

	"github.com/habib-here/Secure-File-Integrity-Monitor/pkg/integrity/errclass"
	"github.com/habib-here/Secure-File-Integrity-Monitor/pkg/integrity/logging"
)

// Verify recomputes the digest of path and compares it to expectedHex,
// ignoring hex case. A computation failure counts as a mismatch, so a
// false return does not distinguish changed content from an unreadable
// file; callers wanting the distinction use Digest directly.
func (h *Hasher) Verify(path, expectedHex string) bool {
	if expectedHex == "" {
		return false
	}

	actual, err := h.Digest(path)
	if err != nil {
		logging.Get("hasher").Warn("verification digest failed",
			"path", path,
			"class", errclass.Classify(err))
		return false
	}

	return strings.EqualFold(actual, expectedHex)
}
