package imaging

import (
	"github.com/nfnt/resize"

	"visit-audit/internal/models"
)

// Thresholds gate the duplicate-detection pipeline. Perceptual hashing
// alone produces false positives on visually distinct but structurally
// similar photos (store fronts, shelf layouts), so near matches are
// confirmed in the pixel domain.
type Thresholds struct {
	// Hamming distance at or below Hamming is a hash-level match.
	Hamming int
	// NearMargin widens the band: distances in (Hamming, Hamming+NearMargin]
	// are candidates that need a structural confirmation too.
	NearMargin int
	// MAD is the maximum mean absolute grayscale difference on the
	// comparison square.
	MAD float64
	// SSIMGood is the minimum structural similarity for near-band pairs.
	SSIMGood float64
}

// DefaultThresholds returns the tuned production gate.
func DefaultThresholds() Thresholds {
	return Thresholds{Hamming: 12, NearMargin: 4, MAD: 10, SSIMGood: 0.7}
}

// compareSide is the square the pixel-domain checks are computed on.
const compareSide = 64

// PixelFetch resolves an image id back to its raw bytes for the
// pixel-domain confirmation stages.
type PixelFetch func(id string) []byte

// Detector pairwise-compares analyzed images and fills their duplicate
// lists symmetrically.
type Detector struct {
	thresholds Thresholds
}

func NewDetector(thresholds Thresholds) *Detector {
	return &Detector{thresholds: thresholds}
}

// Detect compares every pair of images with non-empty, equal-length hashes
// and records confirmed duplicates on both sides, de-duplicated. Returns
// the number of duplicate groups (connected components of size ≥ 2).
func (d *Detector) Detect(results []models.ImageAnalysisResult, fetch PixelFetch) int {
	grayCache := make(map[string][]float64, len(results))
	grayOf := func(id string) []float64 {
		if g, ok := grayCache[id]; ok {
			return g
		}
		var g []float64
		if data := fetch(id); data != nil {
			if img, err := decodeImage(data); err == nil {
				small := resize.Resize(compareSide, compareSide, img, resize.Bilinear)
				g, _, _ = lumaPlane(small)
			}
		}
		grayCache[id] = g
		return g
	}

	parent := make([]int, len(results))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}

	for i := 0; i < len(results); i++ {
		for j := i + 1; j < len(results); j++ {
			a, b := &results[i], &results[j]
			if a.Hash == "" || b.Hash == "" || len(a.Hash) != len(b.Hash) {
				continue
			}
			if !d.confirmPair(a, b, grayOf) {
				continue
			}
			addDuplicate(a, b)
			addDuplicate(b, a)
			parent[find(i)] = find(j)
		}
	}

	groupSizes := make(map[int]int)
	for i := range results {
		groupSizes[find(i)]++
	}
	groups := 0
	for _, size := range groupSizes {
		if size > 1 {
			groups++
		}
	}
	return groups
}

// confirmPair is the staged gate: hash distance short-circuits far pairs,
// MAD gates in-threshold pairs, and near-band pairs additionally need a
// coarse structural similarity.
func (d *Detector) confirmPair(a, b *models.ImageAnalysisResult, grayOf func(string) []float64) bool {
	distance := HammingDistance(a.Hash, b.Hash)
	if distance < 0 || distance > d.thresholds.Hamming+d.thresholds.NearMargin {
		return false
	}

	ga, gb := grayOf(a.ID), grayOf(b.ID)
	if len(ga) == 0 || len(gb) == 0 || len(ga) != len(gb) {
		return false
	}
	if MeanAbsDiff(ga, gb) > d.thresholds.MAD {
		return false
	}
	if distance <= d.thresholds.Hamming {
		return true
	}
	return SSIM(ga, gb) >= d.thresholds.SSIMGood
}

func addDuplicate(target, other *models.ImageAnalysisResult) {
	for _, ref := range target.Duplicates {
		if ref.ID == other.ID {
			return
		}
	}
	target.Duplicates = append(target.Duplicates, models.DuplicateRef{
		ID:       other.ID,
		Position: other.Position,
	})
}

// HammingDistance counts differing bits between two equal-length hex
// hashes. Returns -1 when the hashes cannot be compared.
func HammingDistance(a, b string) int {
	if len(a) != len(b) || len(a) == 0 {
		return -1
	}
	distance := 0
	for i := 0; i < len(a); i++ {
		na, oka := hexNibble(a[i])
		nb, okb := hexNibble(b[i])
		if !oka || !okb {
			return -1
		}
		x := na ^ nb
		for x != 0 {
			distance += int(x & 1)
			x >>= 1
		}
	}
	return distance
}

func hexNibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// MeanAbsDiff is the average per-pixel absolute brightness difference
// between two same-size grayscale buffers.
func MeanAbsDiff(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 255
	}
	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		if diff < 0 {
			diff = -diff
		}
		sum += diff
	}
	return sum / float64(len(a))
}

// SSIM computes a simplified structural similarity over a single global
// window (no sliding windows).
func SSIM(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	n := float64(len(a))
	var meanA, meanB float64
	for i := range a {
		meanA += a[i]
		meanB += b[i]
	}
	meanA /= n
	meanB /= n

	var varA, varB, cov float64
	for i := range a {
		da, db := a[i]-meanA, b[i]-meanB
		varA += da * da
		varB += db * db
		cov += da * db
	}
	varA /= n
	varB /= n
	cov /= n

	const (
		c1 = (0.01 * 255) * (0.01 * 255)
		c2 = (0.03 * 255) * (0.03 * 255)
	)
	return ((2*meanA*meanB + c1) * (2*cov + c2)) /
		((meanA*meanA + meanB*meanB + c1) * (varA + varB + c2))
}
