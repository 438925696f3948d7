package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-adp-billing/internal/dto"
	"github.com/noah-isme/sma-adp-billing/internal/models"
	appErrors "github.com/noah-isme/sma-adp-billing/pkg/errors"
	"github.com/noah-isme/sma-adp-billing/pkg/response"
)

type discountSettingsService interface {
	Get(ctx context.Context) (*models.GlobalDiscountSettings, error)
	Update(ctx context.Context, req dto.UpdateDiscountSettingsRequest, actor *models.JWTClaims) (*models.GlobalDiscountSettings, error)
}

// SettingsHandler exposes the global discount settings.
type SettingsHandler struct {
	service discountSettingsService
}

// NewSettingsHandler builds a new handler.
func NewSettingsHandler(service discountSettingsService) *SettingsHandler {
	return &SettingsHandler{service: service}
}

// Get godoc
// @Summary Get global discount settings
// @Tags Billing
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /billing/settings [get]
func (h *SettingsHandler) Get(c *gin.Context) {
	settings, err := h.service.Get(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, map[string]interface{}{"configured": settings.Configured()})
}

// Update godoc
// @Summary Replace global discount settings
// @Tags Billing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.UpdateDiscountSettingsRequest true "Settings payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /billing/settings [put]
func (h *SettingsHandler) Update(c *gin.Context) {
	var req dto.UpdateDiscountSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid settings payload"))
		return
	}
	settings, err := h.service.Update(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, map[string]interface{}{"configured": settings.Configured()})
}
