package main

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

func main() {
	// Create new Excel file
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "拜访记录"
	_, err := f.NewSheet(sheetName)
	if err != nil {
		fmt.Printf("Error creating sheet: %v\n", err)
		return
	}
	f.DeleteSheet("Sheet1")

	// Title row above the header, the locator has to skip it
	f.SetCellValue(sheetName, "A1", "2024年12月 拜访检查表")
	f.MergeCell(sheetName, "A1", "H1")

	// Set headers
	headers := []string{
		"拜访时间", "客户名称", "客户地址", "医疗机构级别",
		"拜访时长", "拜访类型", "陪同人员", "拜访照片",
	}
	for i, header := range headers {
		cell := fmt.Sprintf("%s2", getColumnName(i))
		f.SetCellValue(sheetName, cell, header)
	}

	// Set header style
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	f.SetCellStyle(sheetName, "A2", fmt.Sprintf("%s2", getColumnName(len(headers)-1)), headerStyle)

	// Rows 3-8 cover the interesting cases: a clean visit, a date with a
	// time component, a sub-minimum duration, a prohibited term, a
	// repeated customer on the same day, and a revisit inside 7 days.
	testData := [][]interface{}{
		{"2024.12.1", "康美药店", "朝阳区建国路12号", "二级医院", 45, "常规拜访", "张三", ""},
		{"2024-12-02 09:30", "仁和诊所", "海淀区中关村大街8号", "一级医院", 30, "常规拜访", "李四", ""},
		{"2024.12.3", "同仁堂药房", "西城区前门大街1号", "零售药店", 10, "常规拜访", "王五", ""},
		{"2024.12.3", "测试药店", "东城区东单北大街3号", "二级医院", 40, "常规拜访", "赵六", ""},
		{"2024.12.1", "康美药店", "朝阳区建国路12号", "二级医院", 50, "复访", "张三", ""},
		{"2024.12.5", "康美药店", "朝阳区建国路12号", "二级医院", 35, "复访", "张三", ""},
	}
	for i, row := range testData {
		for j, value := range row {
			cell := fmt.Sprintf("%s%d", getColumnName(j), i+3)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	// Embed one photo per data row in the photo column. Two rows share
	// the same picture so duplicate detection has something to find.
	for i := 0; i < len(testData); i++ {
		seed := uint8(40 * i)
		if i == 4 {
			seed = 0 // same picture as row 3
		}
		pic := solidPNG(80, 60, seed)
		cell := fmt.Sprintf("%s%d", getColumnName(7), i+3)
		if err := f.AddPictureFromBytes(sheetName, cell, &excelize.Picture{
			Extension: ".png",
			File:      pic,
			Format:    &excelize.GraphicOptions{AutoFit: true},
		}); err != nil {
			fmt.Printf("Error embedding picture: %v\n", err)
			return
		}
	}

	// Column widths
	f.SetColWidth(sheetName, "A", "A", 18)
	f.SetColWidth(sheetName, "B", "C", 24)
	f.SetColWidth(sheetName, "D", "H", 14)

	// Save file
	outputPath := filepath.Join(".", "test_visit_report.xlsx")
	if err := f.SaveAs(outputPath); err != nil {
		fmt.Printf("Error saving file: %v\n", err)
		return
	}

	fmt.Printf("Test Excel file created: %s\n", outputPath)
	fmt.Printf("Rows: %d data rows, header on row 2\n", len(testData))
}

// solidPNG renders a flat-color PNG with a small gradient so the
// sharpness pass sees some signal.
func solidPNG(w, h int, seed uint8) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{
				R: seed + uint8(x%32)*4,
				G: 255 - seed,
				B: seed/2 + uint8(y%32)*4,
				A: 255,
			})
		}
	}
	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}

// getColumnName converts a zero-based index to an Excel column letter
func getColumnName(index int) string {
	name, _ := excelize.ColumnNumberToName(index + 1)
	return name
}
