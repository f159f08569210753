package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"sort"

	"github.com/nfnt/resize"

	"visit-audit/internal/models"
	"visit-audit/internal/ooxml"
)

const (
	// NeutralSharpness is reported when an image cannot be decoded; the
	// run continues instead of aborting the batch.
	NeutralSharpness = 50.0

	// BlurThreshold classifies isBlurry = sharpness < BlurThreshold.
	BlurThreshold = 60.0

	// sharpnessMaxSide bounds the image used for the Laplacian pass.
	sharpnessMaxSide = 256

	// hashBits is the block-mean hash grid size: hashBits² bits total.
	hashBits = 12
)

// Analyzer computes a blur score and a perceptual hash for each extracted
// image. Both steps degrade per image on decode failure.
type Analyzer struct{}

func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Analyze consumes one image record. The record's raw bytes are not
// retained in the returned result.
func (a *Analyzer) Analyze(rec models.ImageRecord) models.ImageAnalysisResult {
	result := models.ImageAnalysisResult{
		ID:         rec.ID,
		Position:   rec.Position,
		Row:        rec.Row,
		Column:     rec.Column,
		MimeType:   ooxml.SniffMimeType(rec.Data),
		Size:       rec.Size,
		Duplicates: []models.DuplicateRef{},
	}

	img, err := decodeImage(rec.Data)
	if err != nil {
		result.Sharpness = NeutralSharpness
		result.IsBlurry = NeutralSharpness < BlurThreshold
		return result
	}

	result.Sharpness = Sharpness(img)
	result.IsBlurry = result.Sharpness < BlurThreshold
	result.Hash = BlockMeanHash(img)
	return result
}

func decodeImage(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image data")
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// Sharpness scores focus on a 0–100 scale: the image is downscaled so its
// shorter side is at most 256px, converted to luma, convolved with a 3×3
// Laplacian, and the mean squared response over interior pixels divided by
// 10 is clamped to [0,100].
func Sharpness(img image.Image) float64 {
	img = shrinkShortSide(img, sharpnessMaxSide)
	gray, w, h := lumaPlane(img)
	if w < 3 || h < 3 {
		return NeutralSharpness
	}

	var sum float64
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			response := gray[(y-1)*w+x] + gray[(y+1)*w+x] +
				gray[y*w+x-1] + gray[y*w+x+1] - 4*gray[y*w+x]
			sum += response * response
		}
	}
	variance := sum / float64((w-2)*(h-2))
	score := variance / 10
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

// BlockMeanHash computes a block-mean value hash over the full-resolution
// image: a 12×12 grid of mean luma values, each bit set when its block
// mean exceeds the median. Returned as a hex string (144 bits, 36 chars).
func BlockMeanHash(img image.Image) string {
	gray, w, h := lumaPlane(img)
	if w == 0 || h == 0 {
		return ""
	}

	means := make([]float64, 0, hashBits*hashBits)
	for by := 0; by < hashBits; by++ {
		y0 := by * h / hashBits
		y1 := (by + 1) * h / hashBits
		if y1 <= y0 {
			y1 = y0 + 1
		}
		for bx := 0; bx < hashBits; bx++ {
			x0 := bx * w / hashBits
			x1 := (bx + 1) * w / hashBits
			if x1 <= x0 {
				x1 = x0 + 1
			}
			var sum float64
			count := 0
			for y := y0; y < y1 && y < h; y++ {
				for x := x0; x < x1 && x < w; x++ {
					sum += gray[y*w+x]
					count++
				}
			}
			if count == 0 {
				means = append(means, 0)
				continue
			}
			means = append(means, sum/float64(count))
		}
	}

	median := medianOf(means)
	var hexDigits []byte
	nibble := byte(0)
	for i, m := range means {
		nibble <<= 1
		if m > median {
			nibble |= 1
		}
		if i%4 == 3 {
			hexDigits = append(hexDigits, hexChar(nibble))
			nibble = 0
		}
	}
	return string(hexDigits)
}

func hexChar(n byte) byte {
	const digits = "0123456789abcdef"
	return digits[n&0xf]
}

func medianOf(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// lumaPlane flattens an image to row-major luma values
// (0.299R + 0.587G + 0.114B).
func lumaPlane(img image.Image) ([]float64, int, int) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	gray := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			gray[y*w+x] = 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
		}
	}
	return gray, w, h
}

func shrinkShortSide(img image.Image, maxShort int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	short := w
	if h < short {
		short = h
	}
	if short <= maxShort || short == 0 {
		return img
	}
	scale := float64(maxShort) / float64(short)
	return resize.Resize(uint(float64(w)*scale), uint(float64(h)*scale), img, resize.Bilinear)
}
