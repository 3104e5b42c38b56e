package api

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/erp-bulk-import-api/internal/models"
	"github.com/erp-bulk-import-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	defaultRunLimit = 20
	maxRunLimit     = 100
)

// RunHandler serves import run history
type RunHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewRunHandler creates a new RunHandler
func NewRunHandler(services *service.Services, log zerolog.Logger) *RunHandler {
	return &RunHandler{
		services: services,
		log:      log.With().Str("handler", "runs").Logger(),
	}
}

// ListRuns handles GET /v1/imports/runs
func (h *RunHandler) ListRuns(c *gin.Context) {
	limit := defaultRunLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxRunLimit)
	}

	runs, err := h.services.History.ListRuns(c.Request.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list runs")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs"})
		return
	}
	if runs == nil {
		runs = []*models.ImportRun{}
	}

	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}

// GetRun handles GET /v1/imports/runs/:run_id
func (h *RunHandler) GetRun(c *gin.Context) {
	runID := c.Param("run_id")

	run, err := h.services.History.GetRun(c.Request.Context(), runID)
	if err != nil {
		h.log.Error().Err(err).Str("run_id", runID).Msg("Failed to get run")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get run"})
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}

	c.JSON(http.StatusOK, run)
}

// GetRunFailures handles GET /v1/imports/runs/:run_id/failures
func (h *RunHandler) GetRunFailures(c *gin.Context) {
	ctx := c.Request.Context()
	runID := c.Param("run_id")

	run, err := h.services.History.GetRun(ctx, runID)
	if err != nil {
		h.log.Error().Err(err).Str("run_id", runID).Msg("Failed to get run")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get run"})
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}

	failures, err := h.services.History.GetRunFailures(ctx, runID)
	if err != nil {
		h.log.Error().Err(err).Str("run_id", runID).Msg("Failed to get run failures")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get failures"})
		return
	}

	// Determine format from query param
	format := c.Query("format")
	if format == "" {
		format = "json"
	}

	switch format {
	case "csv":
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=failures_%s.csv", runID))
		writer := csv.NewWriter(c.Writer)
		writer.Write([]string{"row", "kind", "reasons"})
		for _, f := range failures {
			writer.Write([]string{strconv.Itoa(f.Row), string(f.Kind), strings.Join(f.Reasons, "; ")})
		}
		writer.Flush()
	case "json":
		if failures == nil {
			failures = []models.RowFailure{}
		}
		c.JSON(http.StatusOK, gin.H{
			"run_id":        runID,
			"failure_count": len(failures),
			"failures":      failures,
		})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be json or csv"})
	}
}
