package models

import "time"

// Session statuses.
const (
	SessionUploaded   = "uploaded"
	SessionQueued     = "queued"
	SessionProcessing = "processing"
	SessionCompleted  = "completed"
	SessionFailed     = "failed"
	SessionCanceled   = "canceled"

	// SessionNeedsSheet means the run stopped asking the caller to pick a
	// worksheet; re-start with selected_sheet set.
	SessionNeedsSheet = "needs_sheet_selection"
)

// ValidationSession is one uploaded workbook awaiting or holding a
// validation outcome.
type ValidationSession struct {
	ID            int       `db:"id" json:"id"`
	SessionCode   string    `db:"session_code" json:"session_code"`
	TaskName      string    `db:"task_name" json:"task_name"`
	Filename      string    `db:"filename" json:"filename"`
	FilePath      string    `db:"file_path" json:"file_path"`
	SelectedSheet string    `db:"selected_sheet" json:"selected_sheet"`
	IncludeImages bool      `db:"include_images" json:"include_images"`
	TemplateJSON  string    `db:"template_json" json:"-"`
	Status        string    `db:"status" json:"status"`
	TotalRows     int       `db:"total_rows" json:"total_rows"`
	ErrorCount    int       `db:"error_count" json:"error_count"`
	ResultJSON    string    `db:"result_json" json:"-"`
	ErrorMessage  string    `db:"error_message" json:"error_message"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}
