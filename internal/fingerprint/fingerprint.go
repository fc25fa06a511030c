package fingerprint

// Package fingerprint computes content digests for evidence artifacts.
// SHA-256 is the digest used across the whole system: registration records
// it once, verification recomputes it for comparison.

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"regexp"
)

// Size is the length of a hex-encoded digest string.
const Size = sha256.Size * 2

var digestPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Sum streams r through SHA-256 and returns the lowercase hex digest.
// The reader is consumed fully; memory usage is constant regardless of
// input size. If the stream cannot be read to the end no digest is
// returned, only the I/O error.
func Sum(r io.Reader) (string, error) {
	if r == nil {
		return "", fmt.Errorf("fingerprint: nil reader")
	}
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("fingerprint: read content: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Valid reports whether s looks like a digest produced by Sum.
func Valid(s string) bool {
	return digestPattern.MatchString(s)
}

// Hasher accumulates a digest incrementally. Registration tees the upload
// stream through a Hasher so the artifact is fingerprinted in the same
// pass that stores it.
type Hasher struct {
	h hash.Hash
}

// NewHasher returns a Hasher ready to receive content bytes.
func NewHasher() *Hasher {
	return &Hasher{h: sha256.New()}
}

// Write feeds content bytes into the digest.
func (hs *Hasher) Write(p []byte) (int, error) {
	return hs.h.Write(p)
}

// Digest returns the lowercase hex digest of everything written so far.
func (hs *Hasher) Digest() string {
	return hex.EncodeToString(hs.h.Sum(nil))
}
