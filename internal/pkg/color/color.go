// Package color derives a single dominant color per image and compares
// colors perceptually. Colors are kept in CIE Lab on the standard scale
// (L 0..100), which is what gets persisted with each indexed image.
package color

import (
	"image"

	"github.com/lucasb-eyer/go-colorful"
)

// Lab is a color in the CIE L*a*b* space, standard scale (L in 0..100).
type Lab struct {
	L float64
	A float64
	B float64
}

// FromRGB converts an 8-bit sRGB triple to Lab.
func FromRGB(r, g, b uint8) Lab {
	c := colorful.Color{
		R: float64(r) / 255.0,
		G: float64(g) / 255.0,
		B: float64(b) / 255.0,
	}
	l, a, bb := c.Lab()
	return Lab{L: l * 100.0, A: a * 100.0, B: bb * 100.0}
}

// DeltaE returns the CIEDE2000 difference between two colors on the standard
// 0..100 scale. go-colorful keeps Lab channels (and therefore distances)
// scaled down by 100, so the result is scaled back up.
func DeltaE(x, y Lab) float64 {
	cx := colorful.Lab(x.L/100.0, x.A/100.0, x.B/100.0)
	cy := colorful.Lab(y.L/100.0, y.A/100.0, y.B/100.0)
	return cx.DistanceCIEDE2000(cy) * 100.0
}

// minAlpha is the cutoff below which a pixel is considered transparent and
// ignored when sampling.
const minAlpha = 125

// Extractor derives the dominant color of an image by coarse quantization:
// pixels are sampled on a stride, reduced to 4 bits per channel, and the most
// populous bucket is averaged back into a representative color.
type Extractor struct {
	// Quality is the sampling stride. 1 inspects every pixel; larger values
	// trade accuracy for speed.
	Quality int
}

// NewExtractor creates an Extractor with the given sampling stride.
func NewExtractor(quality int) *Extractor {
	if quality < 1 {
		quality = 1
	}
	return &Extractor{Quality: quality}
}

type bucket struct {
	count      int
	sumR, sumG float64
	sumB       float64
}

// Dominant returns the dominant color of img in Lab.
func (e *Extractor) Dominant(img image.Image) Lab {
	bounds := img.Bounds()
	stride := e.Quality
	if stride < 1 {
		stride = 1
	}

	buckets := make(map[uint16]*bucket)
	for y := bounds.Min.Y; y < bounds.Max.Y; y += stride {
		for x := bounds.Min.X; x < bounds.Max.X; x += stride {
			r16, g16, b16, a16 := img.At(x, y).RGBA()
			if a16>>8 < minAlpha {
				continue
			}
			r, g, b := uint8(r16>>8), uint8(g16>>8), uint8(b16>>8)

			key := uint16(r>>4)<<8 | uint16(g>>4)<<4 | uint16(b>>4)
			bk := buckets[key]
			if bk == nil {
				bk = &bucket{}
				buckets[key] = bk
			}
			bk.count++
			bk.sumR += float64(r)
			bk.sumG += float64(g)
			bk.sumB += float64(b)
		}
	}

	var best *bucket
	for _, bk := range buckets {
		if best == nil || bk.count > best.count {
			best = bk
		}
	}
	if best == nil {
		// Fully transparent or empty image.
		return FromRGB(0, 0, 0)
	}

	n := float64(best.count)
	return FromRGB(
		uint8(best.sumR/n),
		uint8(best.sumG/n),
		uint8(best.sumB/n),
	)
}
