package ooxml

import (
	"fmt"
	"strings"
)

// ColumnIndexToLetter converts a zero-based column index to its spreadsheet
// letters (0 → "A", 25 → "Z", 26 → "AA"). Base-26 with no zero digit.
func ColumnIndexToLetter(index int) string {
	if index < 0 {
		return ""
	}
	result := ""
	for index >= 0 {
		result = string(rune('A'+(index%26))) + result
		index = index/26 - 1
	}
	return result
}

// ColumnLetterToIndex converts spreadsheet column letters to a zero-based
// index ("A" → 0, "AA" → 26). Returns -1 for input that is not letters.
func ColumnLetterToIndex(letters string) int {
	letters = strings.ToUpper(strings.TrimSpace(letters))
	if letters == "" {
		return -1
	}
	index := 0
	for _, r := range letters {
		if r < 'A' || r > 'Z' {
			return -1
		}
		index = index*26 + int(r-'A') + 1
	}
	return index - 1
}

// SplitCellRef splits a cell reference like "B12" into its zero-based
// column index and 1-based row number.
func SplitCellRef(ref string) (col int, row int, err error) {
	ref = strings.TrimSpace(ref)
	i := 0
	for i < len(ref) && ((ref[i] >= 'A' && ref[i] <= 'Z') || (ref[i] >= 'a' && ref[i] <= 'z')) {
		i++
	}
	if i == 0 || i == len(ref) {
		return 0, 0, fmt.Errorf("invalid cell reference %q", ref)
	}
	col = ColumnLetterToIndex(ref[:i])
	for _, r := range ref[i:] {
		if r < '0' || r > '9' {
			return 0, 0, fmt.Errorf("invalid cell reference %q", ref)
		}
		row = row*10 + int(r-'0')
	}
	if col < 0 || row < 1 {
		return 0, 0, fmt.Errorf("invalid cell reference %q", ref)
	}
	return col, row, nil
}
