package models

// ValidationError is one rule violation on one cell, addressed the way a
// human sees the original file (1-based row, spreadsheet column letter).
type ValidationError struct {
	Row       int    `json:"row"`
	Column    string `json:"column"`
	Field     string `json:"field"`
	Value     string `json:"value"`
	Message   string `json:"message"`
	ErrorType string `json:"error_type"`
}

// HeaderValidation reports whether the header row resolved every required
// field of the template.
type HeaderValidation struct {
	IsValid       bool     `json:"is_valid"`
	MissingFields []string `json:"missing_fields"`
}

// Summary carries the per-run counters.
type Summary struct {
	TotalRows  int `json:"total_rows"`
	ValidRows  int `json:"valid_rows"`
	ErrorCount int `json:"error_count"`
}

// SheetInfo describes one worksheet for sheet selection.
type SheetInfo struct {
	Name    string `json:"name"`
	HasData bool   `json:"has_data"`
}

// Result is the terminal outcome of a completed validation run.
type Result struct {
	IsValid          bool              `json:"is_valid"`
	HeaderValidation HeaderValidation  `json:"header_validation"`
	Errors           []ValidationError `json:"errors"`
	Summary          Summary           `json:"summary"`
	ImageValidation  *ImageValidation  `json:"image_validation,omitempty"`
}

// SheetSelection is the terminal outcome asking the caller to pick a sheet:
// no sheet was specified and no template hint matched.
type SheetSelection struct {
	AvailableSheets []SheetInfo `json:"available_sheets"`
}

// Outcome is the single terminal message of a validation run. Exactly one
// of the two fields is set; unrecoverable failures travel as Go errors.
type Outcome struct {
	NeedSheetSelection *SheetSelection `json:"need_sheet_selection,omitempty"`
	Result             *Result         `json:"result,omitempty"`
}
