package ooxml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnIndexToLetter(t *testing.T) {
	cases := map[int]string{
		0:  "A",
		1:  "B",
		25: "Z",
		26: "AA",
		51: "AZ",
		52: "BA",
		77: "BZ",
	}
	for index, want := range cases {
		assert.Equal(t, want, ColumnIndexToLetter(index), "index %d", index)
	}
	assert.Equal(t, "", ColumnIndexToLetter(-1))
}

func TestColumnLetterToIndex(t *testing.T) {
	cases := map[string]int{
		"A":  0,
		"Z":  25,
		"AA": 26,
		"AZ": 51,
		"BA": 52,
		"a":  0,
		"":   -1,
		"A1": -1,
	}
	for letters, want := range cases {
		assert.Equal(t, want, ColumnLetterToIndex(letters), "letters %q", letters)
	}
}

func TestColumnRoundTrip(t *testing.T) {
	for i := 0; i < 800; i++ {
		assert.Equal(t, i, ColumnLetterToIndex(ColumnIndexToLetter(i)))
	}
}

func TestSplitCellRef(t *testing.T) {
	col, row, err := SplitCellRef("B12")
	require.NoError(t, err)
	assert.Equal(t, 1, col)
	assert.Equal(t, 12, row)

	col, row, err = SplitCellRef("AA1")
	require.NoError(t, err)
	assert.Equal(t, 26, col)
	assert.Equal(t, 1, row)

	for _, bad := range []string{"", "12", "B", "B0", "B1x"} {
		_, _, err := SplitCellRef(bad)
		assert.Error(t, err, "ref %q", bad)
	}
}
