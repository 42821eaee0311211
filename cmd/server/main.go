package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opsis/opsis-backend/internal/config"
	"github.com/opsis/opsis-backend/internal/database"
	"github.com/opsis/opsis-backend/internal/handler"
	"github.com/opsis/opsis-backend/internal/logger"
	"github.com/opsis/opsis-backend/internal/metrics"
	"github.com/opsis/opsis-backend/internal/middleware"
	"github.com/opsis/opsis-backend/internal/model"
	"github.com/opsis/opsis-backend/internal/nlp"
	"github.com/opsis/opsis-backend/internal/repository"
	"github.com/opsis/opsis-backend/internal/router"
	"github.com/opsis/opsis-backend/internal/service"
	"github.com/opsis/opsis-backend/internal/speech"
	"github.com/opsis/opsis-backend/internal/validator"
	"github.com/opsis/opsis-backend/internal/voice"
	ws "github.com/opsis/opsis-backend/internal/websocket"
	"github.com/opsis/opsis-backend/internal/worker"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting OPSIS Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	m := metrics.New()

	// ─── Initialize Repositories ───────────────────────────────────────
	userRepo := repository.NewUserRepository(pool)
	sessionRepo := repository.NewSessionRepository(rdb)
	examRepo := repository.NewExamRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)
	auditQueue := repository.NewAuditQueue(rdb)
	eventRepo := repository.NewEventRepository(rdb)

	// ─── Initialize Services ──────────────────────────────────────────
	authService, err := service.NewAuthService(cfg, sessionRepo, userRepo)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid authentication configuration")
	}
	auditService := service.NewAuditService(auditRepo, auditQueue, m, log)
	userService := service.NewUserService(userRepo, auditService, model.Role(cfg.DefaultExternalRole))
	examService := service.NewExamService(examRepo, auditService, eventRepo, log)
	questionService := service.NewQuestionService(questionRepo, examRepo, auditService)
	analysisService := service.NewAnalysisService(nlp.NewAnalyzer(), attemptRepo, cfg.AnalysisConcurrency, m, log)
	attemptService := service.NewAttemptService(
		attemptRepo, examRepo, questionRepo, analysisService, auditService, eventRepo, cfg.AttemptGrace, log,
	)
	monitorService := service.NewMonitorService(examRepo, questionRepo, attemptRepo)
	speechService := service.NewSpeechService(
		speech.NewEngine(cfg.SpeechEngineURL, cfg.SpeechTimeout, m, log),
		voice.NewInterpreter(log),
		log,
	)

	// ─── Realtime ─────────────────────────────────────────────────────
	registry := ws.NewRegistry(examService, m, log)
	relay := ws.NewRelay(eventRepo, registry, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:     handler.NewAuthHandler(authService, userService, log),
		Exam:     handler.NewExamHandler(examService, log),
		Question: handler.NewQuestionHandler(questionService, log),
		Attempt:  handler.NewAttemptHandler(attemptService, log),
		Audit:    handler.NewAuditHandler(auditService, log),
		NLP:      handler.NewNLPHandler(analysisService),
		Speech:   handler.NewSpeechHandler(speechService, log),
		Monitor:  handler.NewMonitorHandler(monitorService, eventRepo, log),
		WS:       handler.NewWSHandler(registry, m, log, cfg.AllowedOrigins, cfg.WSMessageRate, cfg.WSMessageBurst),
		System: handler.NewSystemHandler(map[string]handler.HealthCheck{
			"postgres": pool.Ping,
			"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		}, auditQueue.Len, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	workers, workerCtx := errgroup.WithContext(workerCtx)

	loginLimiter := middleware.NewRateLimiter(cfg.AuthRateLimit)
	workers.Go(func() error {
		worker.NewAuditWorker(auditQueue, auditRepo, log).Start(workerCtx)
		return nil
	})
	workers.Go(func() error {
		relay.Run(workerCtx)
		return nil
	})
	workers.Go(func() error {
		loginLimiter.Run(workerCtx.Done())
		return nil
	})

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(router.Deps{
		Verifier:   authService,
		Resolver:   userService,
		LoginLimit: loginLimiter,
		Metrics:    m,
		Config:     cfg,
		Log:        log,
	}, handlers)

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

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Hijacked websocket connections are not covered by Shutdown.
	registry.CloseAll()

	// 3. Stop background workers; the audit worker flushes its batch on exit.
	workerCancel()
	if err := workers.Wait(); err != nil {
		log.Error().Err(err).Msg("Worker shutdown error")
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
