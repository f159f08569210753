package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"visit-audit/internal/config"
	"visit-audit/internal/models"
	"visit-audit/internal/repository"
	"visit-audit/internal/service"
	"visit-audit/internal/utils"
)

// TaskValidationRun is the asynq task type for one validation run.
const TaskValidationRun = "validation:run"

// ValidationTaskPayload identifies the session to validate.
type ValidationTaskPayload struct {
	SessionID   int    `json:"session_id"`
	SessionCode string `json:"session_code"`
}

// ProgressKey is the Redis key progress updates are published under.
func ProgressKey(sessionID int) string {
	return fmt.Sprintf("validation:progress:%d", sessionID)
}

// CancelKey is the Redis key the cancel endpoint sets and the worker polls
// at chunk and image boundaries.
func CancelKey(sessionID int) string {
	return fmt.Sprintf("validation:cancel:%d", sessionID)
}

type ValidationTaskHandler struct {
	redis       *redis.Client
	cfg         *config.Config
	sessionRepo *repository.SessionRepository
	engine      *service.Engine
}

func NewValidationTaskHandler(db *sqlx.DB, redisClient *redis.Client, cfg *config.Config) *ValidationTaskHandler {
	engine := service.NewEngine(
		service.WithChunkSize(cfg.ChunkSize),
		service.WithMaxRows(cfg.MaxRows),
		service.WithImagePause(time.Duration(cfg.ImagePauseMs)*time.Millisecond),
	)
	return &ValidationTaskHandler{
		redis:       redisClient,
		cfg:         cfg,
		sessionRepo: repository.NewSessionRepository(db),
		engine:      engine,
	}
}

func (h *ValidationTaskHandler) Handle(ctx context.Context, task *asynq.Task) error {
	log := utils.GetLogger()

	var payload ValidationTaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	session, err := h.sessionRepo.GetByID(payload.SessionID)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}

	switch session.Status {
	case models.SessionCanceled, models.SessionCompleted, models.SessionFailed:
		log.Infof("Session %s is already %s, skipping", payload.SessionCode, session.Status)
		return nil
	}

	if err := h.sessionRepo.UpdateStatus(session.ID, models.SessionProcessing); err != nil {
		return fmt.Errorf("failed to update session status: %w", err)
	}
	h.redis.Del(ctx, CancelKey(session.ID))

	fileBytes, err := os.ReadFile(session.FilePath)
	if err != nil {
		h.sessionRepo.MarkFailed(session.ID, "uploaded file is no longer readable")
		return fmt.Errorf("failed to read uploaded file: %w", err)
	}

	var tpl models.ValidationTemplate
	if err := json.Unmarshal([]byte(session.TemplateJSON), &tpl); err != nil {
		h.sessionRepo.MarkFailed(session.ID, "validation template is not valid JSON")
		return fmt.Errorf("failed to unmarshal template: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Progress callbacks double as the cancellation poll: they fire at
	// chunk and image boundaries, the engine's cooperative yield points.
	progress := func(pct int, message string) {
		if h.redis.Exists(ctx, CancelKey(session.ID)).Val() > 0 {
			cancel()
			return
		}
		update, _ := json.Marshal(map[string]interface{}{
			"progress": pct,
			"message":  message,
		})
		h.redis.Set(ctx, ProgressKey(session.ID), update, time.Hour)
	}

	outcome, err := h.engine.Validate(runCtx, service.ValidateRequest{
		FileBytes:     fileBytes,
		TaskName:      session.TaskName,
		SelectedSheet: session.SelectedSheet,
		Template:      &tpl,
		IncludeImages: session.IncludeImages,
	}, progress)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			// Cancellation is silent: no result, no progress, no failure.
			log.Infof("Session %s canceled", payload.SessionCode)
			h.sessionRepo.UpdateStatus(session.ID, models.SessionCanceled)
			return nil
		}
		log.Errorf("Validation failed for session %s: %v", payload.SessionCode, err)
		h.sessionRepo.MarkFailed(session.ID, err.Error())
		return err
	}

	outcomeJSON, err := json.Marshal(outcome)
	if err != nil {
		h.sessionRepo.MarkFailed(session.ID, "failed to serialize result")
		return fmt.Errorf("failed to marshal outcome: %w", err)
	}

	if outcome.NeedSheetSelection != nil {
		log.Infof("Session %s needs sheet selection", payload.SessionCode)
		return h.sessionRepo.SaveResult(session.ID, models.SessionNeedsSheet, string(outcomeJSON), 0, 0)
	}

	result := outcome.Result
	log.Infof("Session %s completed: %d rows, %d errors",
		payload.SessionCode, result.Summary.TotalRows, result.Summary.ErrorCount)
	return h.sessionRepo.SaveResult(session.ID, models.SessionCompleted, string(outcomeJSON),
		result.Summary.TotalRows, result.Summary.ErrorCount)
}
