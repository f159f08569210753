package validate

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"visit-audit/internal/excel"
	"visit-audit/internal/models"
	"visit-audit/internal/ooxml"
)

// CrossValidator applies the rules that need a global view of every parsed
// row: uniqueness, per-day frequency caps and minimum date intervals. It
// runs after single-row validation, over the full record set, and carries
// no state between runs.
type CrossValidator struct {
	tpl     *models.ValidationTemplate
	mapping *excel.FieldMapping
}

func NewCrossValidator(tpl *models.ValidationTemplate, mapping *excel.FieldMapping) *CrossValidator {
	return &CrossValidator{tpl: tpl, mapping: mapping}
}

// Validate evaluates every cross-row rule of the template.
func (v *CrossValidator) Validate(records []RowRecord) []models.ValidationError {
	var errs []models.ValidationError
	for _, rule := range v.tpl.ValidationRules {
		switch rule.Type {
		case models.RuleUnique:
			if strings.EqualFold(rule.Params.Scope, "day") {
				errs = append(errs, v.checkUniquePerDay(records, rule)...)
			} else {
				errs = append(errs, v.checkUniqueGlobal(records, rule)...)
			}
		case models.RuleFrequency:
			errs = append(errs, v.checkFrequency(records, rule)...)
		case models.RuleDateInterval:
			errs = append(errs, v.checkDateInterval(records, rule)...)
		}
	}
	return errs
}

// checkUniquePerDay flags repeat occurrences of a (value, address) pair
// within one calendar day. The first occurrence is kept; only repeats
// error, each referencing the first occurrence's row.
func (v *CrossValidator) checkUniquePerDay(records []RowRecord, rule models.Rule) []models.ValidationError {
	type seenKey struct{ date, composite string }
	first := make(map[seenKey]int)
	addressField := v.addressField(rule.Params)

	var errs []models.ValidationError
	for _, rec := range records {
		value := normalizeKey(rec.Fields[rule.Field])
		if value == "" {
			continue
		}
		date, ok := v.recordDate(rec, rule.Params)
		if !ok {
			continue
		}
		key := seenKey{
			date:      excel.DateKey(date),
			composite: value + "|" + normalizeKey(rec.Fields[addressField]),
		}
		if firstRow, dup := first[key]; dup {
			errs = append(errs, v.crossError(rec, rule, rule.Field,
				fmt.Sprintf("%s (duplicate of row %d)", rule.Message, firstRow)))
			continue
		}
		first[key] = rec.RowNumber
	}
	return errs
}

// checkUniqueGlobal is two-pass: any value occurring more than once
// anywhere flags every occurrence, including the first.
func (v *CrossValidator) checkUniqueGlobal(records []RowRecord, rule models.Rule) []models.ValidationError {
	counts := make(map[string]int)
	for _, rec := range records {
		if value := normalizeKey(rec.Fields[rule.Field]); value != "" {
			counts[value]++
		}
	}

	var errs []models.ValidationError
	for _, rec := range records {
		value := normalizeKey(rec.Fields[rule.Field])
		if value == "" || counts[value] <= 1 {
			continue
		}
		errs = append(errs, v.crossError(rec, rule, rule.Field, rule.Message))
	}
	return errs
}

// checkFrequency caps occurrences per group per day. With CountBy set it
// counts distinct values of that field; only the row that pushes the
// running count over MaxPerDay is flagged, never the rows within the cap.
func (v *CrossValidator) checkFrequency(records []RowRecord, rule models.Rule) []models.ValidationError {
	if rule.Params.MaxPerDay <= 0 || rule.Params.GroupBy == "" {
		return nil
	}
	countBy := rule.Params.CountBy
	errorField := rule.Field
	if countBy != "" {
		errorField = countBy
	}

	type groupKey struct{ group, date string }
	rowCounts := make(map[groupKey]int)
	distinct := make(map[groupKey]map[string]bool)

	var errs []models.ValidationError
	for _, rec := range records {
		group := normalizeKey(rec.Fields[rule.Params.GroupBy])
		if group == "" {
			continue
		}
		date, ok := v.recordDate(rec, rule.Params)
		if !ok {
			continue
		}
		key := groupKey{group: group, date: excel.DateKey(date)}

		if countBy != "" {
			counted := normalizeKey(rec.Fields[countBy])
			if counted == "" {
				continue
			}
			set := distinct[key]
			if set == nil {
				set = make(map[string]bool)
				distinct[key] = set
			}
			if set[counted] {
				continue
			}
			set[counted] = true
			if len(set) > rule.Params.MaxPerDay {
				errs = append(errs, v.crossError(rec, rule, errorField, rule.Message))
			}
			continue
		}

		rowCounts[key]++
		if rowCounts[key] > rule.Params.MaxPerDay {
			errs = append(errs, v.crossError(rec, rule, errorField, rule.Message))
		}
	}
	return errs
}

// checkDateInterval enforces a minimum gap in days between repeat visits
// to the same target, regardless of who performed them. Visits are grouped
// by the rule field plus the GroupBy field, sorted by date; each adjacent
// pair closer than Days errors on the later visit.
func (v *CrossValidator) checkDateInterval(records []RowRecord, rule models.Rule) []models.ValidationError {
	if rule.Params.Days <= 0 {
		return nil
	}

	type visit struct {
		rec  RowRecord
		date time.Time
	}
	groups := make(map[string][]visit)
	var order []string
	for _, rec := range records {
		value := normalizeKey(rec.Fields[rule.Field])
		if value == "" {
			continue
		}
		date, ok := v.recordDate(rec, rule.Params)
		if !ok {
			continue
		}
		key := value + "|" + normalizeKey(rec.Fields[rule.Params.GroupBy])
		if _, exists := groups[key]; !exists {
			order = append(order, key)
		}
		// The gap is measured in calendar days; a time of day carried by a
		// datetime cell must not shrink it.
		groups[key] = append(groups[key], visit{rec: rec, date: calendarDay(date)})
	}

	var errs []models.ValidationError
	for _, key := range order {
		visits := groups[key]
		sort.SliceStable(visits, func(i, j int) bool {
			return visits[i].date.Before(visits[j].date)
		})
		for i := 1; i < len(visits); i++ {
			gap := int(visits[i].date.Sub(visits[i-1].date).Hours() / 24)
			if gap < rule.Params.Days {
				errs = append(errs, v.crossError(visits[i].rec, rule, rule.Field,
					fmt.Sprintf("%s (previous visit at row %d)", rule.Message, visits[i-1].rec.RowNumber)))
			}
		}
	}
	return errs
}

// recordDate extracts the calendar date of a record from the configured
// candidate date fields, first non-empty wins. Unparseable values mean the
// record is skipped for the rule, not an error.
func (v *CrossValidator) recordDate(rec RowRecord, params models.RuleParams) (time.Time, bool) {
	candidates := params.DateFields
	if len(candidates) == 0 {
		candidates = v.defaultDateFields()
	}
	for _, field := range candidates {
		value := strings.TrimSpace(rec.Fields[field])
		if value == "" {
			continue
		}
		return excel.ParseCellDate(value)
	}
	return time.Time{}, false
}

func (v *CrossValidator) defaultDateFields() []string {
	var fields []string
	for _, field := range v.tpl.RequiredFields {
		lower := strings.ToLower(field)
		if strings.Contains(field, "时间") || strings.Contains(field, "日期") ||
			strings.Contains(lower, "date") || strings.Contains(lower, "time") {
			fields = append(fields, field)
		}
	}
	return fields
}

func (v *CrossValidator) addressField(params models.RuleParams) string {
	if params.AddressField != "" {
		return params.AddressField
	}
	for _, field := range v.tpl.RequiredFields {
		if strings.Contains(field, "地址") || strings.Contains(strings.ToLower(field), "address") {
			return field
		}
	}
	return ""
}

func (v *CrossValidator) crossError(rec RowRecord, rule models.Rule, field, message string) models.ValidationError {
	column := ""
	if col, ok := v.mapping.ColumnOf(field); ok {
		column = ooxml.ColumnIndexToLetter(col)
	}
	return models.ValidationError{
		Row:       rec.RowNumber,
		Column:    column,
		Field:     field,
		Value:     rec.Fields[field],
		Message:   message,
		ErrorType: string(rule.Type),
	}
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func calendarDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
