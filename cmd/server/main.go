package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/degree-audit-backend/internal/audit"
	"github.com/stemsi/degree-audit-backend/internal/config"
	"github.com/stemsi/degree-audit-backend/internal/database"
	"github.com/stemsi/degree-audit-backend/internal/handler"
	"github.com/stemsi/degree-audit-backend/internal/logger"
	"github.com/stemsi/degree-audit-backend/internal/repository"
	"github.com/stemsi/degree-audit-backend/internal/router"
	"github.com/stemsi/degree-audit-backend/internal/service"
	"github.com/stemsi/degree-audit-backend/internal/validator"
	"github.com/stemsi/degree-audit-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Str("requirements", cfg.RequirementsSource).
		Msg("Starting Degree Audit Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Load Engine Configuration ─────────────────────────────────────
	engineCfg, err := config.LoadAuditConfig(cfg.AuditConfigPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load audit config")
	}
	engine, err := audit.NewEngine(engineCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build audit engine")
	}

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	degreeRepo := repository.NewDegreeRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	var source service.RecordSource
	if cfg.RequirementsSource == config.RequirementsFromPostgres {
		source = service.NewRepositorySource(degreeRepo)
	} else {
		source = service.NewFileSource(cfg.RequirementsSource)
	}

	authService := service.NewAuthService(cfg)
	degreeService := service.NewDegreeService(source, log)
	auditService := service.NewAuditService(engine, degreeService, auditRepo, service.NewRedisAuditStore(rdb), cfg, log)

	// Load the requirement table BEFORE accepting traffic. A failed load is
	// not fatal: audits answer 503 until an admin reload succeeds.
	if _, err := degreeService.Reload(ctx); err != nil {
		log.Warn().Err(err).Msg("Requirement table not loaded")
	}

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Audit:  handler.NewAuditHandler(auditService, log),
		Degree: handler.NewDegreeHandler(degreeService, log),
		Health: handler.NewHealthHandler(
			func(ctx context.Context) database.Status { return database.Check(ctx, pool, rdb) },
			degreeService.Snapshot,
			func(ctx context.Context) (int64, error) {
				return rdb.LLen(ctx, config.WorkerKey.PersistAuditsQueue).Result()
			},
		),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	workerDone := make(chan struct{})

	persistWorker := worker.NewAuditPersistWorker(auditRepo, rdb, log)
	go func() {
		persistWorker.Start(workerCtx)
		close(workerDone)
	}()

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (10s timeout; uploads can be slow).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop the persist worker and wait for the queue to drain.
	workerCancel()
	select {
	case <-workerDone:
	case <-time.After(15 * time.Second):
		log.Warn().Msg("Persist worker did not drain in time")
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
