package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visit-audit/internal/models"
)

// checkerImage is a high-frequency pattern, maximally sharp.
func checkerImage(w, h int) image.Image {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

func flatImage(w, h int, v uint8) image.Image {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

// gradientImage ramps brightness left to right, giving the hash structure.
func gradientImage(w, h int) image.Image {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(x * 255 / w)})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestSharpnessExtremes(t *testing.T) {
	assert.Equal(t, 100.0, Sharpness(checkerImage(64, 64)))
	assert.Equal(t, 0.0, Sharpness(flatImage(64, 64, 128)))
}

func TestSharpnessTinyImageIsNeutral(t *testing.T) {
	assert.Equal(t, NeutralSharpness, Sharpness(flatImage(2, 2, 0)))
}

func TestBlockMeanHash(t *testing.T) {
	hash := BlockMeanHash(gradientImage(120, 120))
	assert.Len(t, hash, 36)

	// Same content hashes identically regardless of resolution.
	assert.Equal(t, hash, BlockMeanHash(gradientImage(120, 120)))

	// A flat image has no block above the median.
	assert.Equal(t, "000000000000000000000000000000000000", BlockMeanHash(flatImage(60, 60, 99)))
}

func TestBlockMeanHashDistinguishes(t *testing.T) {
	a := BlockMeanHash(gradientImage(120, 120))
	b := BlockMeanHash(checkerImage(120, 120))
	assert.NotEqual(t, a, b)
}

func TestAnalyze(t *testing.T) {
	rec := models.ImageRecord{
		ID:       "B5",
		Name:     "image1.png",
		Data:     encodePNG(t, checkerImage(64, 64)),
		Position: "B5",
		Row:      5,
		Column:   "B",
	}
	rec.Size = len(rec.Data)

	result := NewAnalyzer().Analyze(rec)
	assert.Equal(t, "B5", result.ID)
	assert.Equal(t, "image/png", result.MimeType)
	assert.False(t, result.IsBlurry)
	assert.Len(t, result.Hash, 36)
	assert.NotNil(t, result.Duplicates)
	assert.Empty(t, result.Duplicates)
}

func TestAnalyzeBlurry(t *testing.T) {
	rec := models.ImageRecord{ID: "A1", Data: encodePNG(t, flatImage(64, 64, 50))}
	result := NewAnalyzer().Analyze(rec)
	assert.True(t, result.IsBlurry)
	assert.Equal(t, 0.0, result.Sharpness)
}

func TestAnalyzeUndecodable(t *testing.T) {
	rec := models.ImageRecord{ID: "A1", Data: []byte("definitely not an image")}
	result := NewAnalyzer().Analyze(rec)

	// Decode failure degrades the single image instead of failing the run.
	assert.Equal(t, NeutralSharpness, result.Sharpness)
	assert.True(t, result.IsBlurry)
	assert.Empty(t, result.Hash)
	assert.NotNil(t, result.Duplicates)
}
