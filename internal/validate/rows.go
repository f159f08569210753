package validate

import (
	"context"
	"fmt"
	"strings"

	"visit-audit/internal/excel"
	"visit-audit/internal/models"
	"visit-audit/internal/ooxml"
)

// DefaultChunkSize bounds how many rows are validated between yields.
const DefaultChunkSize = 1000

// RowRecord is one parsed data row. Field values keep their original cell
// text; RowNumber is the 1-based sheet row, so errors match what a human
// sees in the file.
type RowRecord struct {
	Fields    map[string]string
	RowNumber int
}

// ParseRows converts the data rows after the header into records, skipping
// rows that are entirely empty.
func ParseRows(rows [][]string, headerIndex int, mapping *excel.FieldMapping, tpl *models.ValidationTemplate) []RowRecord {
	names := templateFields(tpl)
	var records []RowRecord
	for i := headerIndex + 1; i < len(rows); i++ {
		row := rows[i]
		empty := true
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				empty = false
				break
			}
		}
		if empty {
			continue
		}
		fields := make(map[string]string, len(names))
		for _, field := range names {
			if col, ok := mapping.ColumnOf(field); ok && col < len(row) {
				fields[field] = row[col]
			}
		}
		records = append(records, RowRecord{
			Fields:    fields,
			RowNumber: i + 1,
		})
	}
	return records
}

// templateFields collects every field name the template's rules can read.
// Rules may target headers that resolve through the field mapping without
// being required fields themselves.
func templateFields(tpl *models.ValidationTemplate) []string {
	seen := make(map[string]bool, len(tpl.RequiredFields))
	var names []string
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for _, field := range tpl.RequiredFields {
		add(field)
	}
	for _, rule := range tpl.ValidationRules {
		add(rule.Field)
		add(rule.Params.GroupBy)
		add(rule.Params.CountBy)
		add(rule.Params.AddressField)
		for _, field := range rule.Params.DateFields {
			add(field)
		}
	}
	return names
}

// RowValidator applies the single-row rules chunk by chunk so the caller
// can report progress and deliver cancellation between chunks.
type RowValidator struct {
	ChunkSize int
}

func NewRowValidator() *RowValidator {
	return &RowValidator{ChunkSize: DefaultChunkSize}
}

// Validate runs every single-row rule over the records. onChunk, when set,
// is called after each chunk with (processed, total); it doubles as the
// cooperative yield point. A canceled context stops the loop early.
func (v *RowValidator) Validate(ctx context.Context, records []RowRecord, mapping *excel.FieldMapping, tpl *models.ValidationTemplate, onChunk func(processed, total int)) ([]models.ValidationError, error) {
	chunk := v.ChunkSize
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}

	var errs []models.ValidationError
	total := len(records)
	for start := 0; start < total; start += chunk {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := start + chunk
		if end > total {
			end = total
		}
		for _, rec := range records[start:end] {
			for _, rule := range tpl.ValidationRules {
				if rule.Type.CrossRow() {
					continue
				}
				col, ok := mapping.ColumnOf(rule.Field)
				if !ok {
					continue
				}
				if e, failed := checkRow(rec, rule, col); failed {
					errs = append(errs, e)
				}
			}
		}
		if onChunk != nil {
			onChunk(end, total)
		}
	}
	return errs, nil
}

func checkRow(rec RowRecord, rule models.Rule, col int) (models.ValidationError, bool) {
	value := rec.Fields[rule.Field]
	trimmed := strings.TrimSpace(value)

	fail := func(message string) (models.ValidationError, bool) {
		return models.ValidationError{
			Row:       rec.RowNumber,
			Column:    ooxml.ColumnIndexToLetter(col),
			Field:     rule.Field,
			Value:     value,
			Message:   message,
			ErrorType: string(rule.Type),
		}, true
	}
	pass := func() (models.ValidationError, bool) {
		return models.ValidationError{}, false
	}

	switch rule.Type {
	case models.RuleRequired:
		if trimmed == "" {
			return fail(rule.Message)
		}

	case models.RuleDateFormat:
		if trimmed == "" {
			return pass()
		}
		if _, ok := excel.ParseCellDate(trimmed); !ok {
			return fail(rule.Message)
		}
		if !rule.Params.AllowTimeComponent && excel.HasTimeOfDay(trimmed) {
			return fail(rule.Message)
		}

	case models.RuleMedicalLevel:
		if trimmed == "" {
			return pass()
		}
		if !matchesLevel(trimmed, rule.Params) {
			return fail(rule.Message)
		}

	case models.RuleDuration:
		minutes, ok := excel.ParseNumeric(trimmed)
		if !ok || minutes < rule.Params.MinMinutes {
			return fail(rule.Message)
		}

	case models.RuleTimeRange:
		hour, ok := excel.ExtractHour(trimmed)
		if !ok {
			return pass()
		}
		if hour < rule.Params.StartHour || hour > rule.Params.EndHour {
			return fail(rule.Message)
		}

	case models.RuleMinValue:
		n, ok := excel.ParseNumeric(trimmed)
		if !ok || n < rule.Params.MinValue {
			return fail(rule.Message)
		}

	case models.RuleProhibitedContent:
		for _, term := range rule.Params.ProhibitedTerms {
			if term != "" && strings.Contains(value, term) {
				return fail(fmt.Sprintf("%s: %s", rule.Message, term))
			}
		}
	}
	return pass()
}

func matchesLevel(value string, params models.RuleParams) bool {
	for _, level := range params.AllowedLevels {
		if level != "" && strings.Contains(value, level) {
			return true
		}
	}
	for _, suffix := range params.AllowedSuffixes {
		if suffix != "" && strings.HasSuffix(value, suffix) {
			return true
		}
	}
	return false
}
