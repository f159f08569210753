package ooxml

import (
	"fmt"
	"strings"

	"visit-audit/internal/models"
)

// RecordLayout describes one known table layout whose records embed a
// fixed number of images in fixed columns.
type RecordLayout struct {
	Name string

	// HeaderKeywords must all appear somewhere in the header row for the
	// layout to be detected.
	HeaderKeywords []string

	// ImageColumns are the column letters expected to hold each record's
	// images, in slot order.
	ImageColumns []string

	ImagesPerRecord int

	// DataStartRow is the 1-based sheet row of the first record.
	DataStartRow int
}

// LayoutClassifier matches header keywords against known record layouts so
// a cell-image position can be estimated when no formula placement exists.
// It is strictly a fallback; formula-based positions always win.
type LayoutClassifier struct {
	layouts  []RecordLayout
	detected *RecordLayout
}

func NewLayoutClassifier(layouts []RecordLayout) *LayoutClassifier {
	return &LayoutClassifier{layouts: layouts}
}

// Detect scores each known layout against the header row and remembers the
// first layout whose keywords are all present. Returns false when no
// layout matches.
func (lc *LayoutClassifier) Detect(header []string) bool {
	joined := strings.ToLower(strings.Join(header, " "))
	for i := range lc.layouts {
		l := &lc.layouts[i]
		if len(l.HeaderKeywords) == 0 {
			continue
		}
		matched := true
		for _, kw := range l.HeaderKeywords {
			if !strings.Contains(joined, strings.ToLower(kw)) {
				matched = false
				break
			}
		}
		if matched {
			lc.detected = l
			return true
		}
	}
	return false
}

// Detected returns the matched layout, if any.
func (lc *LayoutClassifier) Detected() *RecordLayout {
	return lc.detected
}

// Estimate derives a position for the image at imageIndex from the
// detected layout's per-record image count and data start row. Estimates
// that land outside the layout's expected columns or above the data start
// row are implausible and discarded.
func (lc *LayoutClassifier) Estimate(imageIndex, totalImages int) (models.ImagePosition, bool) {
	l := lc.detected
	if l == nil || l.ImagesPerRecord <= 0 || imageIndex < 0 || imageIndex >= totalImages {
		return models.ImagePosition{}, false
	}
	record := imageIndex / l.ImagesPerRecord
	slot := imageIndex % l.ImagesPerRecord
	if slot >= len(l.ImageColumns) {
		return models.ImagePosition{}, false
	}
	row := l.DataStartRow + record
	if row < l.DataStartRow {
		return models.ImagePosition{}, false
	}
	column := l.ImageColumns[slot]
	if ColumnLetterToIndex(column) < 0 {
		return models.ImagePosition{}, false
	}
	return models.ImagePosition{
		Position: fmt.Sprintf("%s%d", column, row),
		Row:      row,
		Column:   column,
		Type:     "estimated",
	}, true
}
