package router

import (
	"visit-audit/internal/config"
	"visit-audit/internal/handler"
	"visit-audit/internal/repository"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

func SetupAPIRoutes(
	router fiber.Router,
	db *sqlx.DB,
	redis *redis.Client,
	cfg *config.Config,
) {
	// Initialize repositories
	sessionRepo := repository.NewSessionRepository(db)

	// Initialize Asynq client (optional - only if Redis is available)
	var asynqClient *asynq.Client
	if redis != nil {
		asynqClient = asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.AsynqRedisAddr,
			Password: cfg.AsynqRedisPassword,
			DB:       cfg.AsynqRedisDB,
		})
	}

	// Initialize handlers
	validationHandler := handler.NewValidationHandler(sessionRepo, asynqClient, redis, cfg)

	// Validation session routes
	validations := router.Group("/validations")
	validations.Get("/", validationHandler.List)
	validations.Post("/", validationHandler.Create)
	validations.Get("/:id", validationHandler.Get)
	validations.Post("/:id/start", validationHandler.Start)
	validations.Get("/:id/progress", validationHandler.Progress)
	validations.Post("/:id/cancel", validationHandler.Cancel)
	validations.Get("/:id/sheets", validationHandler.Sheets)
	validations.Post("/:id/sheet", validationHandler.SelectSheet)
}
