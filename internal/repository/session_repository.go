package repository

import (
	"visit-audit/internal/models"

	"github.com/jmoiron/sqlx"
)

type SessionRepository struct {
	db *sqlx.DB
}

func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(session *models.ValidationSession) error {
	query := `INSERT INTO validation_sessions (session_code, task_name, filename, file_path,
	          selected_sheet, include_images, template_json, status)
	          VALUES (:session_code, :task_name, :filename, :file_path,
	          :selected_sheet, :include_images, :template_json, :status)`
	result, err := r.db.NamedExec(query, session)
	if err != nil {
		return err
	}
	id, _ := result.LastInsertId()
	session.ID = int(id)
	return nil
}

func (r *SessionRepository) GetByID(id int) (*models.ValidationSession, error) {
	var session models.ValidationSession
	query := "SELECT * FROM validation_sessions WHERE id = ? LIMIT 1"
	if err := r.db.Get(&session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) GetByCode(code string) (*models.ValidationSession, error) {
	var session models.ValidationSession
	query := "SELECT * FROM validation_sessions WHERE session_code = ? LIMIT 1"
	if err := r.db.Get(&session, query, code); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) List(limit, offset int) ([]models.ValidationSession, int, error) {
	var sessions []models.ValidationSession
	var total int

	if err := r.db.Get(&total, "SELECT COUNT(*) FROM validation_sessions"); err != nil {
		return nil, 0, err
	}

	query := "SELECT * FROM validation_sessions ORDER BY created_at DESC LIMIT ? OFFSET ?"
	if err := r.db.Select(&sessions, query, limit, offset); err != nil {
		return nil, 0, err
	}
	return sessions, total, nil
}

func (r *SessionRepository) UpdateStatus(id int, status string) error {
	_, err := r.db.Exec("UPDATE validation_sessions SET status = ?, updated_at = NOW() WHERE id = ?", status, id)
	return err
}

func (r *SessionRepository) UpdateSelectedSheet(id int, sheet string) error {
	_, err := r.db.Exec("UPDATE validation_sessions SET selected_sheet = ?, updated_at = NOW() WHERE id = ?", sheet, id)
	return err
}

// SaveResult persists the terminal outcome JSON alongside the summary
// counters in one statement.
func (r *SessionRepository) SaveResult(id int, status, resultJSON string, totalRows, errorCount int) error {
	query := `UPDATE validation_sessions
	          SET status = ?, result_json = ?, total_rows = ?, error_count = ?, updated_at = NOW()
	          WHERE id = ?`
	_, err := r.db.Exec(query, status, resultJSON, totalRows, errorCount, id)
	return err
}

func (r *SessionRepository) MarkFailed(id int, message string) error {
	query := "UPDATE validation_sessions SET status = ?, error_message = ?, updated_at = NOW() WHERE id = ?"
	_, err := r.db.Exec(query, models.SessionFailed, message, id)
	return err
}
