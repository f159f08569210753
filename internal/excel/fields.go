package excel

import (
	"strings"

	"visit-audit/internal/models"
)

// similarityThreshold is the edit-distance similarity above which two
// labels are considered the same field.
const similarityThreshold = 0.8

// FieldMapping resolves canonical field names (and raw/cleaned header
// labels) to zero-based column indexes.
type FieldMapping struct {
	columns map[string]int
}

// ColumnOf returns the column index for a canonical field name or header
// label; ok=false when the name never resolved.
func (m *FieldMapping) ColumnOf(name string) (int, bool) {
	idx, ok := m.columns[name]
	return idx, ok
}

// MapFields builds the column lookup for a chosen header row. Every header
// cell is indexed under both its raw and cleaned form, then each required
// field is resolved in order through four strategies: exact match against
// cleaned headers, synonym lookup via the template's field mappings,
// substring containment either direction, and edit-distance similarity.
// Resolution is deterministic and a column claimed by one canonical field
// is never handed to another.
func MapFields(header []string, tpl *models.ValidationTemplate) (*FieldMapping, []string) {
	columns := make(map[string]int, len(header)*2)
	cleaned := make([]string, len(header))
	for i, cell := range header {
		cleaned[i] = CleanCell(cell)
		if cell != "" {
			if _, exists := columns[cell]; !exists {
				columns[cell] = i
			}
		}
		if cleaned[i] != "" {
			if _, exists := columns[cleaned[i]]; !exists {
				columns[cleaned[i]] = i
			}
		}
	}

	// Cleaned synonym label → canonical field.
	synonyms := make(map[string]string, len(tpl.FieldMappings))
	for raw, canonical := range tpl.FieldMappings {
		synonyms[CleanCell(raw)] = canonical
	}

	used := make(map[int]bool, len(tpl.RequiredFields))
	var missing []string
	for _, field := range tpl.RequiredFields {
		idx, ok := resolveField(field, cleaned, synonyms, used)
		if !ok {
			missing = append(missing, field)
			continue
		}
		columns[field] = idx
		used[idx] = true
	}

	return &FieldMapping{columns: columns}, missing
}

func resolveField(field string, cleaned []string, synonyms map[string]string, used map[int]bool) (int, bool) {
	want := CleanCell(field)

	// 1. exact
	for i, cell := range cleaned {
		if !used[i] && cell != "" && cell == want {
			return i, true
		}
	}
	// 2. synonym
	for i, cell := range cleaned {
		if !used[i] && cell != "" && synonyms[cell] == field {
			return i, true
		}
	}
	// 3. substring, either direction
	for i, cell := range cleaned {
		if !used[i] && cell != "" && (strings.Contains(cell, want) || strings.Contains(want, cell)) {
			return i, true
		}
	}
	// 4. edit-distance similarity
	for i, cell := range cleaned {
		if !used[i] && cell != "" && Similarity(cell, want) > similarityThreshold {
			return i, true
		}
	}
	return 0, false
}

// Similarity maps Levenshtein distance onto [0,1]: 1 for identical
// strings, trending to 0 as the edit distance approaches the longer
// string's length.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	ra, rb := []rune(a), []rune(b)
	longer := len(ra)
	if len(rb) > longer {
		longer = len(rb)
	}
	if longer == 0 {
		return 1
	}
	return 1 - float64(levenshtein(ra, rb))/float64(longer)
}

func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
