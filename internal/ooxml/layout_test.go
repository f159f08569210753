package ooxml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var shelfLayout = RecordLayout{
	Name:            "shelf-check",
	HeaderKeywords:  []string{"名称", "照片"},
	ImageColumns:    []string{"G", "H"},
	ImagesPerRecord: 2,
	DataStartRow:    3,
}

func TestLayoutClassifierDetect(t *testing.T) {
	lc := NewLayoutClassifier([]RecordLayout{shelfLayout})

	assert.False(t, lc.Detect([]string{"时间", "地址"}))
	assert.Nil(t, lc.Detected())

	assert.True(t, lc.Detect([]string{"客户名称", "陈列照片"}))
	require.NotNil(t, lc.Detected())
	assert.Equal(t, "shelf-check", lc.Detected().Name)
}

func TestLayoutClassifierEstimate(t *testing.T) {
	lc := NewLayoutClassifier([]RecordLayout{shelfLayout})
	require.True(t, lc.Detect([]string{"客户名称", "陈列照片"}))

	// Two images per record: index 0,1 land on row 3; index 2,3 on row 4.
	pos, ok := lc.Estimate(0, 4)
	require.True(t, ok)
	assert.Equal(t, "G3", pos.Position)

	pos, ok = lc.Estimate(3, 4)
	require.True(t, ok)
	assert.Equal(t, "H4", pos.Position)
	assert.Equal(t, "estimated", pos.Type)

	_, ok = lc.Estimate(4, 4)
	assert.False(t, ok)
	_, ok = lc.Estimate(-1, 4)
	assert.False(t, ok)
}

func TestLayoutClassifierEstimateUndetected(t *testing.T) {
	lc := NewLayoutClassifier([]RecordLayout{shelfLayout})
	_, ok := lc.Estimate(0, 1)
	assert.False(t, ok)
}
