package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/grayson-dev/gcis-api/internal/models"
	"github.com/grayson-dev/gcis-api/internal/service"
	appErrors "github.com/grayson-dev/gcis-api/pkg/errors"
	"github.com/grayson-dev/gcis-api/pkg/response"
)

type changeSummaryService interface {
	Summary(ctx context.Context, termSlug string, userID int64) (*models.ChangeSummary, *models.Term, error)
}

type changeExportService interface {
	Export(ctx context.Context, termSlug string, userID int64, format string) (*service.ExportResult, error)
}

// ChangeHandler exposes the reconciliation report and its export.
type ChangeHandler struct {
	changes changeSummaryService
	export  changeExportService
}

// NewChangeHandler constructs a change handler.
func NewChangeHandler(changes changeSummaryService, export changeExportService) *ChangeHandler {
	return &ChangeHandler{changes: changes, export: export}
}

// Summary godoc
// @Summary Change summary for a term
// @Description Reconciles local schedules against the CAMS mirror, scoped to the caller's subjects
// @Tags Changes
// @Produce json
// @Security BearerAuth
// @Param term path string true "Term slug, e.g. fall2024"
// @Success 200 {object} response.Envelope
// @Router /changes/{term} [get]
func (h *ChangeHandler) Summary(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	summary, term, err := h.changes.Summary(c.Request.Context(), c.Param("term"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil, map[string]interface{}{
		"term":          term.Label(),
		"total_changes": summary.TotalChanges,
	})
}

// Export godoc
// @Summary Export change summary
// @Tags Changes
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param term path string true "Term slug, e.g. fall2024"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Router /changes/{term}/export [get]
func (h *ChangeHandler) Export(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	format := c.DefaultQuery("format", service.FormatCSV)
	result, err := h.export.Export(c.Request.Context(), c.Param("term"), claims.UserID, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Content)
}
