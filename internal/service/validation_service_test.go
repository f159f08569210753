package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"visit-audit/internal/models"
)

var visitHeader = []interface{}{"拜访时间", "客户名称", "客户地址", "拜访时长"}

func visitTemplate() *models.ValidationTemplate {
	return &models.ValidationTemplate{
		RequiredFields: []string{"拜访时间", "客户名称", "客户地址", "拜访时长"},
		SheetNames:     []string{"拜访记录"},
		ValidationRules: []models.Rule{
			{Field: "客户名称", Type: models.RuleRequired, Message: "客户名称不能为空"},
			{Field: "拜访时长", Type: models.RuleDuration, Message: "拜访时长不足",
				Params: models.RuleParams{MinMinutes: 15}},
		},
	}
}

func buildReport(t *testing.T, sheet string, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", sheet))
	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cell, value))
		}
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestValidateCleanReport(t *testing.T) {
	data := buildReport(t, "拜访记录", [][]interface{}{
		visitHeader,
		{"2024.12.1", "康美药店", "朝阳区建国路12号", 45},
		{"2024.12.2", "仁和诊所", "海淀区中关村大街8号", 30},
	})

	outcome, err := NewEngine().Validate(context.Background(), ValidateRequest{
		FileBytes: data,
		Template:  visitTemplate(),
	}, nil)
	require.NoError(t, err)
	require.NotNil(t, outcome.Result)
	assert.Nil(t, outcome.NeedSheetSelection)

	result := outcome.Result
	assert.True(t, result.IsValid)
	assert.True(t, result.HeaderValidation.IsValid)
	assert.Empty(t, result.Errors)
	assert.Equal(t, models.Summary{TotalRows: 2, ValidRows: 2, ErrorCount: 0}, result.Summary)
}

func TestValidateCollectsRowErrors(t *testing.T) {
	data := buildReport(t, "拜访记录", [][]interface{}{
		visitHeader,
		{"2024.12.1", "", "朝阳区建国路12号", 45},
		{"2024.12.2", "仁和诊所", "海淀区中关村大街8号", 5},
		{"2024.12.3", "同仁堂药房", "西城区前门大街1号", 40},
	})

	outcome, err := NewEngine().Validate(context.Background(), ValidateRequest{
		FileBytes: data,
		Template:  visitTemplate(),
	}, nil)
	require.NoError(t, err)

	result := outcome.Result
	require.NotNil(t, result)
	assert.False(t, result.IsValid)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, 2, result.Errors[0].Row)
	assert.Equal(t, "required", result.Errors[0].ErrorType)
	assert.Equal(t, 3, result.Errors[1].Row)
	assert.Equal(t, models.Summary{TotalRows: 3, ValidRows: 1, ErrorCount: 2}, result.Summary)
}

func TestValidateTitleRowAboveHeader(t *testing.T) {
	data := buildReport(t, "拜访记录", [][]interface{}{
		{"12月拜访检查表"},
		visitHeader,
		{"2024.12.1", "康美药店", "朝阳区建国路12号", 45},
	})

	outcome, err := NewEngine().Validate(context.Background(), ValidateRequest{
		FileBytes: data,
		Template:  visitTemplate(),
	}, nil)
	require.NoError(t, err)
	require.NotNil(t, outcome.Result)
	assert.True(t, outcome.Result.IsValid)
	assert.Equal(t, 1, outcome.Result.Summary.TotalRows)
}

func TestValidateNeedsSheetSelection(t *testing.T) {
	data := buildReport(t, "完全无关的表", [][]interface{}{visitHeader})

	outcome, err := NewEngine().Validate(context.Background(), ValidateRequest{
		FileBytes: data,
		Template:  visitTemplate(),
	}, nil)
	require.NoError(t, err)
	assert.Nil(t, outcome.Result)
	require.NotNil(t, outcome.NeedSheetSelection)
	require.Len(t, outcome.NeedSheetSelection.AvailableSheets, 1)
	assert.Equal(t, "完全无关的表", outcome.NeedSheetSelection.AvailableSheets[0].Name)
}

func TestValidateSelectedSheetMissing(t *testing.T) {
	data := buildReport(t, "拜访记录", [][]interface{}{visitHeader})

	_, err := NewEngine().Validate(context.Background(), ValidateRequest{
		FileBytes:     data,
		SelectedSheet: "不存在",
		Template:      visitTemplate(),
	}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "不存在")
}

func TestValidateHeaderFailure(t *testing.T) {
	data := buildReport(t, "拜访记录", [][]interface{}{
		{"列一", "列二", "列三"},
		{"值", "值", "值"},
	})

	outcome, err := NewEngine().Validate(context.Background(), ValidateRequest{
		FileBytes: data,
		Template:  visitTemplate(),
	}, nil)
	require.NoError(t, err)

	result := outcome.Result
	require.NotNil(t, result)
	assert.False(t, result.IsValid)
	assert.False(t, result.HeaderValidation.IsValid)
	assert.NotEmpty(t, result.HeaderValidation.MissingFields)
	assert.Empty(t, result.Errors)
	assert.Equal(t, models.Summary{}, result.Summary)
}

func TestValidateRowLimit(t *testing.T) {
	rows := [][]interface{}{visitHeader}
	for i := 0; i < 8; i++ {
		rows = append(rows, []interface{}{"2024.12.1", "客户", "地址", 45})
	}
	data := buildReport(t, "拜访记录", rows)

	_, err := NewEngine(WithMaxRows(5)).Validate(context.Background(), ValidateRequest{
		FileBytes: data,
		Template:  visitTemplate(),
	}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row limit")
}

func TestValidateNilTemplate(t *testing.T) {
	data := buildReport(t, "拜访记录", [][]interface{}{visitHeader})
	_, err := NewEngine().Validate(context.Background(), ValidateRequest{FileBytes: data}, nil)
	assert.Error(t, err)
}

func TestValidateCanceledContext(t *testing.T) {
	data := buildReport(t, "拜访记录", [][]interface{}{
		visitHeader,
		{"2024.12.1", "康美药店", "朝阳区建国路12号", 45},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewEngine().Validate(ctx, ValidateRequest{
		FileBytes: data,
		Template:  visitTemplate(),
	}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestValidateProgressMonotonic(t *testing.T) {
	data := buildReport(t, "拜访记录", [][]interface{}{
		visitHeader,
		{"2024.12.1", "康美药店", "朝阳区建国路12号", 45},
	})

	var seen []int
	_, err := NewEngine().Validate(context.Background(), ValidateRequest{
		FileBytes: data,
		Template:  visitTemplate(),
	}, func(progress int, _ string) {
		seen = append(seen, progress)
	})
	require.NoError(t, err)
	require.NotEmpty(t, seen)
	for i := 1; i < len(seen); i++ {
		assert.GreaterOrEqual(t, seen[i], seen[i-1])
	}
	assert.Equal(t, 100, seen[len(seen)-1])
}

func visitPhoto(t *testing.T, seed uint8) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 80, 80))
	for y := 0; y < 80; y++ {
		for x := 0; x < 80; x++ {
			if (x/4+y/4)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 255 - seed})
			} else {
				img.SetGray(x, y, color.Gray{Y: seed})
			}
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestValidateWithImages(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", "拜访记录"))
	rows := [][]interface{}{
		visitHeader,
		{"2024.12.1", "康美药店", "朝阳区建国路12号", 45},
		{"2024.12.2", "仁和诊所", "海淀区中关村大街8号", 30},
	}
	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue("拜访记录", cell, value))
		}
	}

	// Two identical photos and one different photo.
	same := visitPhoto(t, 0)
	for i, pic := range [][]byte{same, same, visitPhoto(t, 90)} {
		cell, err := excelize.CoordinatesToCellName(5, i+2)
		require.NoError(t, err)
		require.NoError(t, f.AddPictureFromBytes("拜访记录", cell, &excelize.Picture{
			Extension: ".png",
			File:      pic,
		}))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	outcome, err := NewEngine(WithImagePause(0)).Validate(context.Background(), ValidateRequest{
		FileBytes:     buf.Bytes(),
		Template:      visitTemplate(),
		IncludeImages: true,
	}, nil)
	require.NoError(t, err)

	result := outcome.Result
	require.NotNil(t, result)
	iv := result.ImageValidation
	require.NotNil(t, iv)
	assert.Equal(t, 3, iv.TotalImages)
	assert.Equal(t, 1, iv.DuplicateGroups)

	duplicates := 0
	for _, r := range iv.Results {
		duplicates += len(r.Duplicates)
	}
	assert.Equal(t, 2, duplicates)
}
