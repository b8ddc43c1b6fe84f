package hash

import (
	"bytes"
	"image"
	"image/color"
	"testing"
)

// createGradientImage creates a gradient test image.
func createGradientImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			gray := uint8((x + y) * 255 / (width + height))
			img.Set(x, y, color.RGBA{gray, gray, gray, 255})
		}
	}
	return img
}

func TestPerceptualHasher_ComputePHash(t *testing.T) {
	ph := NewPerceptualHasher()
	img := createGradientImage(100, 100)

	hash, err := ph.ComputePHash(img)
	if err != nil {
		t.Fatalf("ComputePHash failed: %v", err)
	}

	if hash.Hash == 0 {
		t.Error("Expected non-zero hash")
	}
	if hash.Width != 100 || hash.Height != 100 {
		t.Errorf("Expected 100x100, got %dx%d", hash.Width, hash.Height)
	}
}

func TestHammingDistance(t *testing.T) {
	tests := []struct {
		name     string
		hash1    uint64
		hash2    uint64
		expected int
	}{
		{
			name:     "identical",
			hash1:    0xFFFFFFFFFFFFFFFF,
			hash2:    0xFFFFFFFFFFFFFFFF,
			expected: 0,
		},
		{
			name:     "one bit different",
			hash1:    0xFFFFFFFFFFFFFFFE,
			hash2:    0xFFFFFFFFFFFFFFFF,
			expected: 1,
		},
		{
			name:     "completely different",
			hash1:    0x0000000000000000,
			hash2:    0xFFFFFFFFFFFFFFFF,
			expected: 64,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := HammingDistance(tt.hash1, tt.hash2)
			if result != tt.expected {
				t.Errorf("HammingDistance(%x, %x) = %d; want %d", tt.hash1, tt.hash2, result, tt.expected)
			}
		})
	}
}

func TestIsNearDuplicate(t *testing.T) {
	h1 := uint64(0xFFFFFFFFFFFFFFFF)
	h2 := uint64(0xFFFFFFFFFFFFFFF0) // 4 bits different

	if !IsNearDuplicate(h1, h2, 5) {
		t.Error("Expected hashes to be near-duplicates with threshold 5")
	}
	if IsNearDuplicate(h1, h2, 3) {
		t.Error("Expected hashes to NOT be near-duplicates with threshold 3")
	}
}

func TestSha256Hasher_ComputeFromReader(t *testing.T) {
	h := NewSha256Hasher()

	sum, err := h.ComputeFromReader(bytes.NewReader([]byte("abc")))
	if err != nil {
		t.Fatalf("ComputeFromReader failed: %v", err)
	}

	// Known SHA-256 vector for "abc".
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if sum.Hash != want {
		t.Errorf("ComputeFromReader = %s; want %s", sum.Hash, want)
	}
}

func TestSha256Hasher_SameBytesSameHash(t *testing.T) {
	h := NewSha256Hasher()

	a, err := h.ComputeFromReader(bytes.NewReader([]byte("picture-bytes")))
	if err != nil {
		t.Fatalf("ComputeFromReader failed: %v", err)
	}
	b, err := h.ComputeFromReader(bytes.NewReader([]byte("picture-bytes")))
	if err != nil {
		t.Fatalf("ComputeFromReader failed: %v", err)
	}

	if a.Hash != b.Hash {
		t.Errorf("identical content produced different hashes: %s vs %s", a.Hash, b.Hash)
	}
}
