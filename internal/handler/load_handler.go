package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/grayson-dev/gcis-api/internal/service"
	appErrors "github.com/grayson-dev/gcis-api/pkg/errors"
	"github.com/grayson-dev/gcis-api/pkg/response"
)

type loadRunner interface {
	Run(ctx context.Context, opts service.LoadOptions) (*service.LoadReport, error)
}

type summaryInvalidator interface {
	Invalidate(ctx context.Context)
}

// LoadHandler triggers the CAMS load pipeline.
type LoadHandler struct {
	service loadRunner
	changes summaryInvalidator
	enabled bool
}

// NewLoadHandler constructs a load handler.
func NewLoadHandler(svc loadRunner, changes summaryInvalidator, enabled bool) *LoadHandler {
	return &LoadHandler{service: svc, changes: changes, enabled: enabled}
}

type loadRequest struct {
	Reset     bool `json:"reset"`
	SeedLocal bool `json:"seed_local"`
}

// Run godoc
// @Summary Run the CAMS load pipeline
// @Description Extracts reference and schedule data from CAMS and rebuilds the mirror
// @Tags Load
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body loadRequest false "Load options"
// @Success 200 {object} response.Envelope
// @Router /load [post]
func (h *LoadHandler) Run(c *gin.Context) {
	if !h.enabled {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "load pipeline is disabled"))
		return
	}
	if claims := claimsFromContext(c); claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req loadRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid load payload"))
			return
		}
	}
	report, err := h.service.Run(c.Request.Context(), service.LoadOptions{Reset: req.Reset, SeedLocal: req.SeedLocal})
	if err != nil {
		response.Error(c, err)
		return
	}
	h.changes.Invalidate(c.Request.Context())
	response.JSON(c, http.StatusOK, report, nil)
}
