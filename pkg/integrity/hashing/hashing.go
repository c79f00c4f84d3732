// Package hashing computes streaming file digests with bounded retries.
//
// Files are read in fixed-size chunks feeding an incremental digest, so
// memory stays bounded regardless of file size. Every failure surfaces
// as a classified error; callers that only need presence/absence treat
// any error as "no digest".
package hashing

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
)

// DefaultChunkSize is the streaming read size when none is configured.
const DefaultChunkSize = 64 * 1024

// ErrUnknownAlgorithm is returned for an unsupported algorithm name.
var ErrUnknownAlgorithm = errors.New("unknown hash algorithm")

// Algorithm names a supported digest algorithm.
type Algorithm string

// Supported algorithms. SHA256 is the default.
const (
	SHA256 Algorithm = "sha256"
	SHA512 Algorithm = "sha512"
	SHA1   Algorithm = "sha1"
)

// ParseAlgorithm validates an algorithm name from configuration.
// The empty string maps to SHA256.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(s) {
	case "", "sha256":
		return SHA256, nil
	case "sha512":
		return SHA512, nil
	case "sha1":
		return SHA1, nil
	default:
		return SHA256, fmt.Errorf("%w: %s", ErrUnknownAlgorithm, s)
	}
}

// newHash returns a fresh digest accumulator for the algorithm.
func (a Algorithm) newHash() (hash.Hash, error) {
	switch a {
	case SHA256, "":
		return sha256.New(), nil
	case SHA512:
		return sha512.New(), nil
	case SHA1:
		return sha1.New(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownAlgorithm, a)
	}
}

// Hasher computes file digests by streaming fixed-size chunks.
// The zero value uses SHA256 and DefaultChunkSize.
type Hasher struct {
	Algorithm Algorithm
	ChunkSize int
}

// Digest returns the lowercase hex digest of the file at path.
// The digest is empty whenever the error is non-nil: a missing path,
// permission refusal, or the file vanishing mid-read all return the
// underlying classified error rather than a partial digest.
func (h *Hasher) Digest(path string) (string, error) {
	digest, err := h.Algorithm.newHash()
	if err != nil {
		return "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	chunk := h.ChunkSize
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}

	buf := make([]byte, chunk)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			digest.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", path, err)
		}
	}

	return hex.EncodeToString(digest.Sum(nil)), nil
}
