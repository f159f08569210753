package models

// RuleType enumerates the validation rule types a template may declare.
type RuleType string

const (
	RuleRequired          RuleType = "required"
	RuleDateFormat        RuleType = "dateFormat"
	RuleMedicalLevel      RuleType = "medicalLevel"
	RuleDuration          RuleType = "duration"
	RuleTimeRange         RuleType = "timeRange"
	RuleMinValue          RuleType = "minValue"
	RuleProhibitedContent RuleType = "prohibitedContent"
	RuleUnique            RuleType = "unique"
	RuleFrequency         RuleType = "frequency"
	RuleDateInterval      RuleType = "dateInterval"
)

// CrossRow reports whether the rule needs a global view of all rows
// (uniqueness, frequency caps, date intervals) rather than a single row.
func (t RuleType) CrossRow() bool {
	return t == RuleUnique || t == RuleFrequency || t == RuleDateInterval
}

// RuleParams carries the type-specific configuration of a Rule. Only the
// fields relevant to the rule's type are read; the rest stay zero.
type RuleParams struct {
	// dateFormat
	AllowTimeComponent bool `json:"allow_time_component,omitempty"`

	// medicalLevel
	AllowedLevels   []string `json:"allowed_levels,omitempty"`
	AllowedSuffixes []string `json:"allowed_suffixes,omitempty"`

	// duration
	MinMinutes float64 `json:"min_minutes,omitempty"`

	// timeRange
	StartHour int `json:"start_hour,omitempty"`
	EndHour   int `json:"end_hour,omitempty"`

	// minValue
	MinValue float64 `json:"min_value,omitempty"`

	// prohibitedContent
	ProhibitedTerms []string `json:"prohibited_terms,omitempty"`

	// unique: "day", "global", "task" or empty (empty behaves as global)
	Scope string `json:"scope,omitempty"`

	// frequency
	MaxPerDay int    `json:"max_per_day,omitempty"`
	CountBy   string `json:"count_by,omitempty"`

	// dateInterval
	Days int `json:"days,omitempty"`

	// frequency + dateInterval
	GroupBy string `json:"group_by,omitempty"`

	// cross-row rules: candidate fields holding the calendar date, first
	// non-empty wins; and the field treated as the address component of
	// composite keys. Both fall back to conventional names when empty.
	DateFields   []string `json:"date_fields,omitempty"`
	AddressField string   `json:"address_field,omitempty"`
}

// Rule is one declarative validation rule from a template.
type Rule struct {
	Field   string     `json:"field"`
	Type    RuleType   `json:"type"`
	Message string     `json:"message"`
	Params  RuleParams `json:"params"`
}

// ValidationTemplate describes how one kind of visit report is validated.
// It is supplied whole by the caller per run; the engine hard-codes nothing.
type ValidationTemplate struct {
	// RequiredFields are canonical field names, in declaration order.
	RequiredFields []string `json:"required_fields"`

	// FieldMappings maps a raw header label (or a synonym of one) to the
	// canonical field name it represents.
	FieldMappings map[string]string `json:"field_mappings"`

	// ValidationRules are applied in order.
	ValidationRules []Rule `json:"validation_rules"`

	// SheetNames are preferred worksheet name hints, most preferred first.
	SheetNames []string `json:"sheet_names"`
}
