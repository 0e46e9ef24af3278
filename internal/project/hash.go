package project

import (
	"crypto/sha256"
)

// Digest is a fixed 256-bit hash, layout-compatible with source.File.Hash.
type Digest [32]byte

// HashBytes digests raw file content.
func HashBytes(content []byte) Digest {
	return sha256.Sum256(content)
}

// Combine builds an aggregate digest H(content || extra1 || extra2 ...).
// Callers must pass the extras in a deterministic order; the driver uses this
// to key cache entries on the input file plus the signature and safety
// configuration that shaped the run.
func Combine(content Digest, extras ...Digest) Digest {
	h := sha256.New()
	_, _ = h.Write(content[:])
	for _, d := range extras {
		_, _ = h.Write(d[:])
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

// IsZero reports whether the digest is the zero value.
func (d Digest) IsZero() bool {
	var z Digest
	return d == z
}
