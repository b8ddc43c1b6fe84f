package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// FileSha256 is the hex-encoded SHA-256 checksum of a file's raw bytes.
// It is the identity used for image deduplication.
type FileSha256 struct {
	Hash string
}

// Sha256Hasher computes content hashes of local image files.
type Sha256Hasher struct{}

// NewSha256Hasher creates a new Sha256Hasher.
func NewSha256Hasher() *Sha256Hasher {
	return &Sha256Hasher{}
}

// ComputeFromFile computes the checksum of the file at path.
func (h *Sha256Hasher) ComputeFromFile(path string) (*FileSha256, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	return h.ComputeFromReader(f)
}

// ComputeFromReader computes the checksum of everything read from r.
func (h *Sha256Hasher) ComputeFromReader(r io.Reader) (*FileSha256, error) {
	hasher := sha256.New()

	if _, err := io.Copy(hasher, r); err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	hashBytes := hasher.Sum(nil)

	return &FileSha256{
		Hash: hex.EncodeToString(hashBytes),
	}, nil
}
