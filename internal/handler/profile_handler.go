package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/financial-coach-api/internal/dto"
	"github.com/noah-isme/financial-coach-api/internal/service"
	appErrors "github.com/noah-isme/financial-coach-api/pkg/errors"
	"github.com/noah-isme/financial-coach-api/pkg/export"
	"github.com/noah-isme/financial-coach-api/pkg/response"
)

type profileService interface {
	Get(ctx context.Context, userID string) (*dto.UserProfileResponse, error)
	Exists(ctx context.Context, userID string) (bool, error)
	Create(ctx context.Context, userID string, req dto.UserProfileRequest) (*dto.UserProfileResponse, error)
	Update(ctx context.Context, userID string, req dto.UserProfileRequest) (*dto.UserProfileResponse, error)
	Delete(ctx context.Context, userID string) error
}

type profileExporter interface {
	Export(ctx context.Context, userID string, format export.Format) (*service.ProfileExport, error)
}

// ProfileHandler serves the financial profile of the authenticated user.
type ProfileHandler struct {
	profiles profileService
	exports  profileExporter
}

// NewProfileHandler constructs a ProfileHandler.
func NewProfileHandler(profiles profileService, exports profileExporter) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, exports: exports}
}

// Get godoc
// @Summary Get profile
// @Tags Profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /api/profile [get]
func (h *ProfileHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	profile, err := h.profiles.Get(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile)
}

// Exists godoc
// @Summary Check profile existence
// @Tags Profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /api/profile/exists [get]
func (h *ProfileHandler) Exists(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	exists, err := h.profiles.Exists(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.ProfileExistsResponse{Exists: exists})
}

// Create godoc
// @Summary Create profile
// @Tags Profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.UserProfileRequest true "Profile payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /api/profile [post]
func (h *ProfileHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.UserProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid profile payload"))
		return
	}
	profile, err := h.profiles.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, profile)
}

// Update godoc
// @Summary Update profile
// @Description Only the provided fields are changed
// @Tags Profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.UserProfileRequest true "Profile fields"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /api/profile [put]
func (h *ProfileHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.UserProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid profile payload"))
		return
	}
	profile, err := h.profiles.Update(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile)
}

// Delete godoc
// @Summary Delete profile
// @Tags Profile
// @Security BearerAuth
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /api/profile [delete]
func (h *ProfileHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.profiles.Delete(c.Request.Context(), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Export godoc
// @Summary Export profile
// @Tags Profile
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /api/profile/export [get]
func (h *ProfileHandler) Export(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	format := export.Format(c.DefaultQuery("format", string(export.FormatCSV)))
	file, err := h.exports.Export(c.Request.Context(), claims.UserID, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
