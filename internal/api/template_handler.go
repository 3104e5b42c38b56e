package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/erp-bulk-import-api/internal/models"
	"github.com/erp-bulk-import-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

var templateContentTypes = map[string]string{
	"csv":  "text/csv",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// TemplateHandler serves the module catalogue and upload templates
type TemplateHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewTemplateHandler creates a new TemplateHandler
func NewTemplateHandler(services *service.Services, log zerolog.Logger) *TemplateHandler {
	return &TemplateHandler{
		services: services,
		log:      log.With().Str("handler", "template").Logger(),
	}
}

// ListModules handles GET /v1/imports/modules
func (h *TemplateHandler) ListModules(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"modules": h.services.Template.Catalogue()})
}

// DownloadTemplate handles GET /v1/imports/templates/:module?format=csv|xlsx
func (h *TemplateHandler) DownloadTemplate(c *gin.Context) {
	module, err := models.ParseModule(c.Param("module"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown module", "modules": models.Modules})
		return
	}

	format := strings.ToLower(c.DefaultQuery("format", "csv"))
	contentType, ok := templateContentTypes[format]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be csv or xlsx"})
		return
	}

	// Buffer so a failure can still be reported as JSON
	var buf bytes.Buffer
	if err := h.services.Template.WriteTemplate(&buf, module, format); err != nil {
		if errors.Is(err, service.ErrUnsupportedTemplateFormat) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.log.Error().Err(err).Str("module", module.String()).Msg("Failed to write template")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build template"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s_template.%s", module, format))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}
