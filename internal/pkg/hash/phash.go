package hash

import (
	"fmt"
	"image"

	"github.com/corona10/goimagehash"
)

// ImageHash is a 64-bit DCT-based perceptual hash of an image. Unlike the
// byte-level checksum, it survives re-encoding and resizing, so it is used to
// flag near-duplicates at index time.
type ImageHash struct {
	Hash   uint64
	Width  int
	Height int
}

// PerceptualHasher provides image hashing functionality.
type PerceptualHasher struct{}

// NewPerceptualHasher creates a new PerceptualHasher.
func NewPerceptualHasher() *PerceptualHasher {
	return &PerceptualHasher{}
}

// ComputePHash computes the DCT-based perceptual hash of an image.
func (ph *PerceptualHasher) ComputePHash(img image.Image) (*ImageHash, error) {
	hash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return nil, fmt.Errorf("failed to compute pHash: %w", err)
	}
	return &ImageHash{
		Hash:   hash.GetHash(),
		Width:  img.Bounds().Dx(),
		Height: img.Bounds().Dy(),
	}, nil
}

// HammingDistance calculates the Hamming distance between two hashes.
// Returns the number of different bits (0 = identical images).
func HammingDistance(hash1, hash2 uint64) int {
	xor := hash1 ^ hash2
	count := 0
	for xor != 0 {
		count++
		xor &= xor - 1
	}
	return count
}

// IsNearDuplicate checks if two hashes are within a threshold.
// Typical thresholds:
//   - 0: Identical
//   - 1-5: Very similar (likely same image with minor edits)
//   - 6-10: Somewhat similar
//   - 11+: Different images
func IsNearDuplicate(h1, h2 uint64, threshold int) bool {
	return HammingDistance(h1, h2) <= threshold
}

// String returns a hex string representation of the hash.
func (h *ImageHash) String() string {
	return fmt.Sprintf("%016x", h.Hash)
}
