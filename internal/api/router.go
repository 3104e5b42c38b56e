package api

import (
	"context"
	"net/http"
	"time"

	"github.com/erp-bulk-import-api/internal/config"
	"github.com/erp-bulk-import-api/internal/models"
	"github.com/erp-bulk-import-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// HealthCheck reports whether a dependency is reachable
type HealthCheck func(ctx context.Context) error

// NewRouter creates and configures the Gin router
func NewRouter(services *service.Services, cfg *config.Config, log zerolog.Logger, checks ...HealthCheck) *gin.Engine {
	// Set Gin mode
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Middleware
	router.Use(recoveryMiddleware(log))
	router.Use(loggingMiddleware(log))
	router.Use(corsMiddleware())

	// Handlers
	importHandler := NewImportHandler(services, cfg, log)
	runHandler := NewRunHandler(services, log)
	templateHandler := NewTemplateHandler(services, log)

	// Health check
	router.GET("/health", healthCheck(checks, log))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1
	v1 := router.Group("/v1")
	{
		imports := v1.Group("/imports")
		{
			imports.POST("", importHandler.CreateImport)

			imports.GET("/modules", templateHandler.ListModules)
			imports.GET("/stats", statsHandler(services, log))
			imports.GET("/templates/:module", templateHandler.DownloadTemplate)

			imports.GET("/runs", runHandler.ListRuns)
			imports.GET("/runs/:run_id", runHandler.GetRun)
			imports.GET("/runs/:run_id/failures", runHandler.GetRunFailures)
		}
	}

	return router
}

// healthCheck returns the health status
func healthCheck(checks []HealthCheck, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, code := "healthy", http.StatusOK
		for _, check := range checks {
			if err := check(c.Request.Context()); err != nil {
				log.Warn().Err(err).Msg("Health check failed")
				status, code = "unhealthy", http.StatusServiceUnavailable
				break
			}
		}

		c.JSON(code, gin.H{
			"status":    status,
			"timestamp": time.Now().Format(time.RFC3339),
			"service":   "erp-bulk-import-api",
		})
	}
}

// statsHandler returns the stored record count of every module
func statsHandler(services *service.Services, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		counts := make(gin.H, len(models.Modules))
		for _, m := range models.Modules {
			n, err := services.Import.GetCount(ctx, m)
			if err != nil {
				log.Error().Err(err).Str("module", m.String()).Msg("Failed to count records")
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count records"})
				return
			}
			counts[m.String()] = n
		}

		c.JSON(http.StatusOK, gin.H{
			"database":  counts,
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}

// recoveryMiddleware handles panics
func recoveryMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().Interface("error", err).Msg("Panic recovered")
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// loggingMiddleware logs requests
func loggingMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		event := log.Info()
		if statusCode >= 400 {
			event = log.Warn()
		}
		if statusCode >= 500 {
			event = log.Error()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", statusCode).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("Request completed")
	}
}

// corsMiddleware handles CORS
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Idempotency-Key")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Import-Run-Id")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
