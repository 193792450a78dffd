// Package checksum computes the content digests recorded in snapshots and
// used to name snapshot files.
package checksum

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
)

// ErrUnknownAlgorithm is returned for algorithm names outside the supported set.
var ErrUnknownAlgorithm = errors.New("unknown checksum algorithm")

// Algorithm identifies a digest function. The set is closed.
type Algorithm int

const (
	SHA256 Algorithm = iota + 1
	MD5
)

// Default is used when a repository is initialized without an explicit choice.
const Default = SHA256

// Parse maps an algorithm name ("sha256", "md5") to an Algorithm.
func Parse(name string) (Algorithm, error) {
	switch name {
	case "sha256":
		return SHA256, nil
	case "md5":
		return MD5, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
}

// FromDigest infers the algorithm that produced a hex digest from its length.
func FromDigest(digest string) (Algorithm, error) {
	switch len(digest) {
	case hex.EncodedLen(sha256.Size):
		return SHA256, nil
	case hex.EncodedLen(md5.Size):
		return MD5, nil
	default:
		return 0, fmt.Errorf("%w: digest of length %d", ErrUnknownAlgorithm, len(digest))
	}
}

func (a Algorithm) String() string {
	switch a {
	case SHA256:
		return "sha256"
	case MD5:
		return "md5"
	default:
		return fmt.Sprintf("Algorithm(%d)", int(a))
	}
}

// Valid reports whether a is one of the supported algorithms.
func (a Algorithm) Valid() bool {
	return a == SHA256 || a == MD5
}

// New returns a fresh hash.Hash for the algorithm.
func (a Algorithm) New() hash.Hash {
	switch a {
	case SHA256:
		return sha256.New()
	case MD5:
		return md5.New()
	default:
		panic(fmt.Sprintf("checksum: invalid algorithm %d", int(a)))
	}
}

// Compute returns the lowercase hex digest of data.
func Compute(a Algorithm, data []byte) string {
	h := a.New()
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ComputeReader streams r through the digest and returns the hex digest and
// the number of bytes read.
func ComputeReader(a Algorithm, r io.Reader) (string, int64, error) {
	h := a.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", n, fmt.Errorf("reading content: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// ComputeFile returns the hex digest of the file at path.
func ComputeFile(a Algorithm, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	digest, _, err := ComputeReader(a, f)
	if err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return digest, nil
}
