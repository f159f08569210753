package worker

import (
	"github.com/hibiken/asynq"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"visit-audit/internal/config"
)

func RegisterHandlers(mux *asynq.ServeMux, db *sqlx.DB, redisClient *redis.Client, cfg *config.Config) {
	handler := NewValidationTaskHandler(db, redisClient, cfg)
	mux.HandleFunc(TaskValidationRun, handler.Handle)
}
