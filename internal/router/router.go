package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-quiz/internal/config"
	"github.com/stemsi/exstem-quiz/internal/handler"
	"github.com/stemsi/exstem-quiz/internal/middleware"
	"github.com/stemsi/exstem-quiz/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Results *handler.ResultsHandler
}

// SetupRouter configures the Gin engine and the results API routes.
func SetupRouter(handlers *Handlers, cfg *config.Config, log zerolog.Logger) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "X-Request-ID", handler.IdempotencyHeader}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.RequestLogger(log))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.Use(middleware.NoStore())

	// ─── 1. Writes (body limit, rate limited) ──────────────────────────
	submit := []gin.HandlerFunc{middleware.BodyLimit(cfg.MaxBodyBytes)}
	if cfg.SubmitRatePerMinute > 0 {
		limiter := middleware.NewRateLimiter(cfg.SubmitRatePerMinute, time.Minute)
		submit = append(submit, limiter.Middleware())
	}
	api.POST("/submit-exam", append(submit, handlers.Results.SubmitExam)...)

	// XLSX is already zip-compressed.
	api.GET("/all-results/export", handlers.Results.ExportResults)

	// ─── 2. Reads (brotli) ─────────────────────────────────────────────
	reads := api.Group("")
	reads.Use(middleware.Brotli())
	{
		reads.GET("/student-results/:schoolId", handlers.Results.StudentResults)
		reads.GET("/all-results", handlers.Results.AllResults)
		reads.GET("/exam-details/:examSessionId", handlers.Results.ExamDetails)
		reads.GET("/test", handlers.Results.Test)
	}

	return router
}
