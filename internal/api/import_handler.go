package api

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/erp-bulk-import-api/internal/config"
	"github.com/erp-bulk-import-api/internal/models"
	"github.com/erp-bulk-import-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// ImportHandler handles import endpoints
type ImportHandler struct {
	services *service.Services
	cfg      *config.Config
	log      zerolog.Logger
}

// NewImportHandler creates a new ImportHandler
func NewImportHandler(services *service.Services, cfg *config.Config, log zerolog.Logger) *ImportHandler {
	return &ImportHandler{
		services: services,
		cfg:      cfg,
		log:      log.With().Str("handler", "import").Logger(),
	}
}

// CreateImport handles POST /v1/imports
// Accepts a multipart upload with fields file, module, dry_run and async
func (h *ImportHandler) CreateImport(c *gin.Context) {
	ctx := c.Request.Context()

	// Get idempotency key from header
	idempotencyKey := c.GetHeader("Idempotency-Key")

	// Check for existing run with same idempotency key
	if idempotencyKey != "" {
		existing, err := h.services.History.GetRunByIdempotencyKey(ctx, idempotencyKey)
		if err != nil {
			h.log.Error().Err(err).Msg("Failed to check idempotency key")
		}
		if existing != nil {
			h.log.Info().Str("run_id", existing.ID).Str("status", string(existing.Status)).Msg("Replaying existing run for idempotency key")
			h.replayRun(c, existing)
			return
		}
	}

	moduleParam := formValue(c, "module")
	if moduleParam == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "module parameter is required", "kind": "missing_module"})
		return
	}
	module, err := models.ParseModule(moduleParam)
	if err != nil {
		writeImportError(c, errors.Wrapf(err, "%q", moduleParam))
		return
	}

	dryRun, err := boolValue(c, "dry_run")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "dry_run must be a boolean"})
		return
	}
	async, err := boolValue(c, "async")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "async must be a boolean"})
		return
	}

	// Handle file upload
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file upload is required"})
		return
	}
	defer file.Close()

	// Validate file size
	if header.Size > h.cfg.Import.MaxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": fmt.Sprintf("file too large, max size is %d MB", h.cfg.Import.MaxUploadSize/(1024*1024)),
		})
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, h.cfg.Import.MaxUploadSize))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read upload")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read file"})
		return
	}

	req := &models.ImportRequest{
		Module:         module,
		FileName:       header.Filename,
		DryRun:         dryRun,
		IdempotencyKey: idempotencyKey,
	}

	if async {
		run, err := h.services.Import.CreateImportRun(ctx, req, data)
		if err != nil {
			writeImportError(c, err)
			return
		}

		h.log.Info().
			Str("run_id", run.ID).
			Str("module", module.String()).
			Str("file", header.Filename).
			Int64("size_bytes", header.Size).
			Msg("Import run created")

		c.JSON(http.StatusAccepted, gin.H{
			"run_id":  run.ID,
			"status":  run.Status,
			"module":  run.Module,
			"message": "Import run created and queued for processing",
		})
		return
	}

	report, run, err := h.services.Import.Import(ctx, req, data)
	if run != nil {
		c.Header("X-Import-Run-Id", run.ID)
	}
	if err != nil {
		writeImportError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// replayRun answers a repeated idempotency key with what the first request got:
// the report of a completed run, the fatal error of an aborted one, or the
// queued run while it has not finished
func (h *ImportHandler) replayRun(c *gin.Context, run *models.ImportRun) {
	c.Header("X-Import-Run-Id", run.ID)

	switch run.Status {
	case models.RunStatusCompleted:
		report, err := h.services.History.GetRunReport(c.Request.Context(), run)
		if err != nil {
			h.log.Error().Err(err).Str("run_id", run.ID).Msg("Failed to rebuild run report")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load import report"})
			return
		}
		c.JSON(http.StatusOK, report)
	case models.RunStatusAborted:
		if run.ErrorKind == "" || run.ErrorKind == service.ErrorKindInternal {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to import file"})
			return
		}
		writeFatal(c, run.ErrorMessage, run.ErrorKind)
	default:
		c.JSON(http.StatusAccepted, gin.H{
			"run_id":  run.ID,
			"status":  run.Status,
			"module":  run.Module,
			"message": "Import run already queued for processing",
		})
	}
}

// writeImportError maps fatal import errors to 400 and anything else to 500
func writeImportError(c *gin.Context, err error) {
	if kind, ok := service.FatalKind(err); ok {
		writeFatal(c, err.Error(), kind)
		return
	}
	c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to import file"})
}

func writeFatal(c *gin.Context, message, kind string) {
	body := gin.H{"error": message, "kind": kind}
	if kind == service.ErrorKindUnsupportedModule {
		body["modules"] = models.Modules
	}
	c.JSON(http.StatusBadRequest, body)
}

// formValue reads a multipart field, falling back to the query string
func formValue(c *gin.Context, key string) string {
	if v := c.PostForm(key); v != "" {
		return v
	}
	return c.Query(key)
}

func boolValue(c *gin.Context, key string) (bool, error) {
	v := formValue(c, key)
	if v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}
