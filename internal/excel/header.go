package excel

import (
	"regexp"
	"strings"

	"visit-audit/internal/models"
)

// headerScanRows caps how deep the locator looks for a header row.
const headerScanRows = 5

// minHeaderCells is the least non-empty cells a row needs to qualify.
const minHeaderCells = 3

// defaultHeaderKeywords are domain-typical header fragments that earn a
// candidate row its keyword bonus.
var defaultHeaderKeywords = []string{
	"时间", "名称", "地址", "类型", "时长", "日期", "人",
	"time", "name", "address", "type", "duration", "date",
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// CleanCell normalizes a raw header or data cell: trims, strips newlines
// and collapses internal whitespace.
func CleanCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// HeaderLocator scores the first few rows of a sheet as header candidates.
type HeaderLocator struct {
	Keywords []string
}

func NewHeaderLocator() *HeaderLocator {
	return &HeaderLocator{Keywords: defaultHeaderKeywords}
}

// Locate scans rows 0..min(5, rowCount)-1 and picks the best-scoring
// candidate among rows with at least three non-empty cells; ties go to the
// earliest row. Score: 0.1 per non-empty cell, 10 per required field found
// (exact, substring or similarity > 0.8), plus a 5-point bonus when any
// cleaned cell contains a domain keyword. ok=false means no row qualifies.
func (l *HeaderLocator) Locate(rows [][]string, tpl *models.ValidationTemplate) (header []string, rowIndex int, ok bool) {
	limit := headerScanRows
	if len(rows) < limit {
		limit = len(rows)
	}

	bestScore := 0.0
	bestIndex := -1
	for i := 0; i < limit; i++ {
		cleaned := make([]string, len(rows[i]))
		nonEmpty := 0
		for j, cell := range rows[i] {
			cleaned[j] = CleanCell(cell)
			if cleaned[j] != "" {
				nonEmpty++
			}
		}
		if nonEmpty < minHeaderCells {
			continue
		}

		score := 0.1 * float64(nonEmpty)
		score += 10 * float64(l.requiredHits(cleaned, tpl))
		if l.hasKeyword(cleaned) {
			score += 5
		}
		if score > bestScore {
			bestScore = score
			bestIndex = i
		}
	}

	if bestIndex < 0 {
		return nil, -1, false
	}
	return rows[bestIndex], bestIndex, true
}

func (l *HeaderLocator) requiredHits(cleaned []string, tpl *models.ValidationTemplate) int {
	hits := 0
	for _, field := range tpl.RequiredFields {
		want := CleanCell(field)
		for _, cell := range cleaned {
			if cell == "" {
				continue
			}
			if cell == want || strings.Contains(cell, want) || strings.Contains(want, cell) ||
				Similarity(cell, want) > similarityThreshold {
				hits++
				break
			}
		}
	}
	return hits
}

func (l *HeaderLocator) hasKeyword(cleaned []string) bool {
	keywords := l.Keywords
	if len(keywords) == 0 {
		keywords = defaultHeaderKeywords
	}
	for _, cell := range cleaned {
		if cell == "" {
			continue
		}
		lower := strings.ToLower(cell)
		for _, kw := range keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				return true
			}
		}
	}
	return false
}
