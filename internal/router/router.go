package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/opsis/opsis-backend/internal/config"
	"github.com/opsis/opsis-backend/internal/handler"
	"github.com/opsis/opsis-backend/internal/metrics"
	"github.com/opsis/opsis-backend/internal/middleware"
	"github.com/opsis/opsis-backend/internal/response"
	"github.com/rs/zerolog"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth     *handler.AuthHandler
	Exam     *handler.ExamHandler
	Question *handler.QuestionHandler
	Attempt  *handler.AttemptHandler
	Audit    *handler.AuditHandler
	NLP      *handler.NLPHandler
	Speech   *handler.SpeechHandler
	Monitor  *handler.MonitorHandler
	WS       *handler.WSHandler
	System   *handler.SystemHandler
}

// Deps are the cross-cutting collaborators of the route table.
type Deps struct {
	Verifier   middleware.TokenVerifier
	Resolver   middleware.IdentityResolver
	LoginLimit *middleware.RateLimiter
	Metrics    *metrics.Metrics
	Config     *config.Config
	Log        zerolog.Logger
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(deps Deps, handlers *Handlers) *gin.Engine {
	cfg := deps.Config
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.Metrics(deps.Metrics))
	router.Use(middleware.BrotliWithConfig(middleware.BrotliConfig{
		Quality:       middleware.DefaultBrotliConfig.Quality,
		MinLength:     middleware.DefaultBrotliConfig.MinLength,
		ExcludedPaths: []string{"/metrics", "/ws"},
	}))

	// ─── 0. Operations (No Auth) ───────────────────────────────────────
	router.GET("/health", handlers.System.Health)
	router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	authenticate := middleware.Authenticate(deps.Verifier, deps.Resolver, deps.Log)

	// ─── 1. Auth Group ─────────────────────────────────────────────────
	auth := router.Group("/api/auth")
	auth.Use(middleware.NoStore())
	{
		auth.POST("/login", deps.LoginLimit.Middleware(), handlers.Auth.Login)
		auth.POST("/logout", authenticate, handlers.Auth.Logout)
		auth.GET("/user", authenticate, handlers.Auth.Me)
		auth.PUT("/user", authenticate, handlers.Auth.UpdateProfile)
	}

	// ─── 2. Authenticated API ──────────────────────────────────────────
	api := router.Group("/api")
	api.Use(authenticate)
	{
		// Exams. Reads are policy-filtered in the service.
		api.GET("/exams", handlers.Exam.ListExams)
		api.GET("/exams/:id", handlers.Exam.GetExam)
		api.POST("/exams", middleware.RequireInstructor(), handlers.Exam.CreateExam)
		api.PUT("/exams/:id", middleware.RequireInstructor(), handlers.Exam.UpdateExam)
		api.GET("/exams/:id/questions", handlers.Question.ListExamQuestions)
		api.POST("/exams/:id/start", handlers.Attempt.StartAttempt)
		api.GET("/exams/:id/attempts", middleware.RequireInstructor(), handlers.Attempt.ListExamAttempts)
		api.GET("/exams/:id/monitor", middleware.RequireInstructor(), handlers.Monitor.MonitorExamSSE)

		// Questions
		api.GET("/questions/:id", handlers.Question.GetQuestion)
		api.POST("/questions", middleware.RequireInstructor(), handlers.Question.CreateQuestion)
		api.PUT("/questions/:id", middleware.RequireInstructor(), handlers.Question.UpdateQuestion)

		// Attempts
		api.GET("/attempts/:id", handlers.Attempt.GetAttempt)
		api.PUT("/attempts/:id", handlers.Attempt.UpdateAttempt)
		api.POST("/attempts/:id/grade", middleware.RequireInstructor(), handlers.Attempt.GradeAttempt)
		api.GET("/user/attempts", handlers.Attempt.ListMyAttempts)
		api.GET("/user/stats", handlers.Attempt.MyStats)

		// Text analysis
		api.POST("/nlp/analyze-text", handlers.NLP.AnalyzeText)
		api.POST("/nlp/check-plagiarism", handlers.NLP.CheckPlagiarism)
		api.POST("/nlp/grade-essay", middleware.RequireInstructor(), handlers.NLP.GradeEssay)

		// Speech
		api.POST("/speech/process-command", handlers.Speech.ProcessCommand)
		api.POST("/speech/recognize", handlers.Speech.Recognize)
		api.POST("/speech/synthesize", handlers.Speech.Synthesize)
		api.GET("/speech/voices", middleware.CacheControl(300), handlers.Speech.Voices)
	}

	// ─── 3. Admin ──────────────────────────────────────────────────────
	admin := router.Group("/api")
	admin.Use(authenticate, middleware.RequireAdmin())
	{
		admin.GET("/audit", handlers.Audit.ListAudit)
		admin.GET("/ws/stats", handlers.WS.Stats)
	}

	// ─── 4. WebSocket (token via header or ?token=) ────────────────────
	router.GET("/ws", authenticate, handlers.WS.Connect)

	return router
}
