package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/grayson-dev/gcis-api/internal/models"
	appErrors "github.com/grayson-dev/gcis-api/pkg/errors"
	"github.com/grayson-dev/gcis-api/pkg/response"
)

type profileService interface {
	Get(ctx context.Context, userID int64) (*models.Profile, error)
	SetSubjects(ctx context.Context, userID int64, subjects []string) (*models.Profile, error)
}

// ProfileHandler exposes the caller's subject preference endpoints.
type ProfileHandler struct {
	service profileService
}

// NewProfileHandler constructs a profile handler.
func NewProfileHandler(svc profileService) *ProfileHandler {
	return &ProfileHandler{service: svc}
}

type subjectsRequest struct {
	Subjects []string `json:"subjects"`
}

// Get godoc
// @Summary Get subject preferences
// @Tags Profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /profile/subjects [get]
func (h *ProfileHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	profile, err := h.service.Get(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// Put godoc
// @Summary Replace subject preferences
// @Tags Profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body subjectsRequest true "Subject codes"
// @Success 200 {object} response.Envelope
// @Router /profile/subjects [put]
func (h *ProfileHandler) Put(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req subjectsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subjects payload"))
		return
	}
	profile, err := h.service.SetSubjects(c.Request.Context(), claims.UserID, req.Subjects)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}
