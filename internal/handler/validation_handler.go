package handler

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"visit-audit/internal/config"
	"visit-audit/internal/excel"
	"visit-audit/internal/models"
	"visit-audit/internal/repository"
	"visit-audit/internal/utils"
	"visit-audit/internal/worker"
)

type ValidationHandler struct {
	sessionRepo *repository.SessionRepository
	asynqClient *asynq.Client
	redis       *redis.Client
	cfg         *config.Config
}

func NewValidationHandler(
	sessionRepo *repository.SessionRepository,
	asynqClient *asynq.Client,
	redisClient *redis.Client,
	cfg *config.Config,
) *ValidationHandler {
	return &ValidationHandler{
		sessionRepo: sessionRepo,
		asynqClient: asynqClient,
		redis:       redisClient,
		cfg:         cfg,
	}
}

// Create accepts the workbook upload plus its validation template and
// stores a new session. The file is parked on disk until the worker runs.
func (h *ValidationHandler) Create(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "File is required", err)
	}

	ext := filepath.Ext(file.Filename)
	if ext != ".xlsx" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Only .xlsx files are allowed", nil)
	}
	if file.Size > int64(h.cfg.UploadMaxSize) {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "File size exceeds maximum limit", nil)
	}

	templateJSON := c.FormValue("template")
	var tpl models.ValidationTemplate
	if err := json.Unmarshal([]byte(templateJSON), &tpl); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Template must be valid JSON", err)
	}
	if len(tpl.RequiredFields) == 0 {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Template must declare required fields", nil)
	}

	sessionCode := fmt.Sprintf("VAL-%s", uuid.New().String()[:8])
	if err := os.MkdirAll(h.cfg.UploadPath, 0o755); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to prepare upload storage", err)
	}
	filePath := filepath.Join(h.cfg.UploadPath, fmt.Sprintf("%s%s", sessionCode, ext))
	if err := c.SaveFile(file, filePath); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to save file", err)
	}

	session := &models.ValidationSession{
		SessionCode:   sessionCode,
		TaskName:      c.FormValue("task_name"),
		Filename:      file.Filename,
		FilePath:      filePath,
		SelectedSheet: c.FormValue("selected_sheet"),
		IncludeImages: c.FormValue("include_images") == "true",
		TemplateJSON:  templateJSON,
		Status:        models.SessionUploaded,
	}
	if err := h.sessionRepo.Create(session); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create validation session", err)
	}

	return utils.SuccessResponse(c, "File uploaded successfully", session)
}

// Start enqueues the validation task for the worker.
func (h *ValidationHandler) Start(c *fiber.Ctx) error {
	session, err := h.sessionByParam(c)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Session not found", err)
	}
	if session.Status == models.SessionProcessing || session.Status == models.SessionQueued {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Session is already being processed", nil)
	}

	payload, _ := json.Marshal(worker.ValidationTaskPayload{
		SessionID:   session.ID,
		SessionCode: session.SessionCode,
	})
	if _, err := h.asynqClient.Enqueue(asynq.NewTask(worker.TaskValidationRun, payload)); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to enqueue validation", err)
	}
	if err := h.sessionRepo.UpdateStatus(session.ID, models.SessionQueued); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update session", err)
	}

	return utils.SuccessResponse(c, "Validation queued", fiber.Map{"session_id": session.ID})
}

// Get returns the session and, when the run finished, its outcome.
func (h *ValidationHandler) Get(c *fiber.Ctx) error {
	session, err := h.sessionByParam(c)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Session not found", err)
	}

	var outcome *models.Outcome
	if session.ResultJSON != "" {
		outcome = &models.Outcome{}
		if err := json.Unmarshal([]byte(session.ResultJSON), outcome); err != nil {
			outcome = nil
		}
	}
	return utils.SuccessResponse(c, "Session retrieved successfully", fiber.Map{
		"session": session,
		"outcome": outcome,
	})
}

// List pages through sessions, newest first.
func (h *ValidationHandler) List(c *fiber.Ctx) error {
	params := utils.GetPaginationParams(c)
	offset := utils.GetOffset(params.Page, params.Limit)

	sessions, total, err := h.sessionRepo.List(params.Limit, offset)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to retrieve sessions", err)
	}
	pagination := utils.CalculatePagination(params.Page, params.Limit, int64(total))
	return utils.PaginatedResponseBuilder(c, "Sessions retrieved successfully", fiber.Map{
		"sessions": sessions,
	}, pagination)
}

// Progress reads the worker's latest progress update from Redis.
func (h *ValidationHandler) Progress(c *fiber.Ctx) error {
	session, err := h.sessionByParam(c)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Session not found", err)
	}

	raw, err := h.redis.Get(c.Context(), worker.ProgressKey(session.ID)).Result()
	if err != nil {
		return utils.SuccessResponse(c, "No progress yet", fiber.Map{
			"status":   session.Status,
			"progress": 0,
		})
	}
	update := map[string]interface{}{}
	if err := json.Unmarshal([]byte(raw), &update); err != nil {
		update = map[string]interface{}{}
	}
	update["status"] = session.Status
	return utils.SuccessResponse(c, "Progress retrieved", update)
}

// Cancel requests cooperative cancellation. The worker polls the cancel
// key at chunk and image boundaries and stops silently.
func (h *ValidationHandler) Cancel(c *fiber.Ctx) error {
	session, err := h.sessionByParam(c)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Session not found", err)
	}
	switch session.Status {
	case models.SessionCompleted, models.SessionFailed, models.SessionCanceled:
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Session is already finished", nil)
	}

	h.redis.Set(c.Context(), worker.CancelKey(session.ID), "1", 0)
	if session.Status != models.SessionProcessing {
		h.sessionRepo.UpdateStatus(session.ID, models.SessionCanceled)
	}
	return utils.SuccessResponse(c, "Cancellation requested", fiber.Map{"session_id": session.ID})
}

// Sheets lists the workbook's worksheets so the caller can answer a
// needs-sheet-selection outcome.
func (h *ValidationHandler) Sheets(c *fiber.Ctx) error {
	session, err := h.sessionByParam(c)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Session not found", err)
	}

	data, err := os.ReadFile(session.FilePath)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Uploaded file is no longer readable", err)
	}
	wb, err := excel.OpenWorkbook(data)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Failed to open Excel file", err)
	}
	defer wb.Close()

	return utils.SuccessResponse(c, "Sheets retrieved", fiber.Map{
		"sheets": wb.SheetInfos(),
	})
}

// SelectSheet records the caller's worksheet choice; the caller re-starts
// the run afterwards.
func (h *ValidationHandler) SelectSheet(c *fiber.Ctx) error {
	session, err := h.sessionByParam(c)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Session not found", err)
	}

	var body struct {
		Sheet string `json:"sheet"`
	}
	if err := c.BodyParser(&body); err != nil || body.Sheet == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Sheet name is required", err)
	}
	if err := h.sessionRepo.UpdateSelectedSheet(session.ID, body.Sheet); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update session", err)
	}
	return utils.SuccessResponse(c, "Sheet selected", fiber.Map{"sheet": body.Sheet})
}

func (h *ValidationHandler) sessionByParam(c *fiber.Ctx) (*models.ValidationSession, error) {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return nil, fmt.Errorf("invalid session id: %w", err)
	}
	return h.sessionRepo.GetByID(id)
}
