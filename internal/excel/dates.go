package excel

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// serialEpoch is the Excel serial-date epoch. 1899-12-30 absorbs the
// historical Lotus leap-year bug, so serial → date is epoch + (serial−1)
// days.
var serialEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// maxSerial keeps absurd numerics (phone numbers, ids) from being read as
// dates; 2958465 is 9999-12-31.
const maxSerial = 2958465

var dateFormats = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006/01/02",
	"2006/1/2",
	"01/02/2006",
	"01-02-06",
	"02-01-2006",
	"Jan 02, 2006",
	"02 Jan 2006",
}

var dottedDateRe = regexp.MustCompile(`^(\d{4})\.(\d{1,2})\.(\d{1,2})$`)

// timeOfDayRe matches an embedded H:MM substring with either a half-width
// or full-width colon.
var timeOfDayRe = regexp.MustCompile(`(\d{1,2})[:：](\d{2})`)

// ParseCellDate turns a cell value into a calendar date. It accepts Excel
// serial numbers, ISO dates with or without a time component, dot-separated
// dates and a list of free-form fallbacks. ok=false means the value does
// not hold a date; callers skip the row for that rule rather than erroring.
func ParseCellDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	if serial, err := strconv.ParseFloat(value, 64); err == nil {
		if serial < 1 || serial > maxSerial {
			return time.Time{}, false
		}
		days := int(serial)
		return serialEpoch.AddDate(0, 0, days-1), true
	}

	if m := dottedDateRe.FindStringSubmatch(value); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if month >= 1 && month <= 12 && day >= 1 && day <= 31 {
			return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
		}
		return time.Time{}, false
	}

	for _, format := range dateFormats {
		if t, err := time.Parse(format, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DateKey renders a parsed date as its calendar-day key.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// HasTimeOfDay reports whether the value embeds an H:MM substring.
func HasTimeOfDay(value string) bool {
	return timeOfDayRe.MatchString(value)
}

// ExtractHour pulls the hour out of the first H:MM substring. ok=false
// when no time-of-day pattern is present.
func ExtractHour(value string) (int, bool) {
	m := timeOfDayRe.FindStringSubmatch(value)
	if m == nil {
		return 0, false
	}
	hour, err := strconv.Atoi(m[1])
	if err != nil || hour > 23 {
		return 0, false
	}
	return hour, true
}

// ParseNumeric reads a cell as a number, tolerating thousand separators
// and a lone dash meaning zero, the way exported ledgers write them.
func ParseNumeric(value string) (float64, bool) {
	value = strings.TrimSpace(value)
	if value == "" || value == "-" {
		return 0, value == "-"
	}
	value = strings.ReplaceAll(value, ",", "")
	n, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
