package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-adp-billing/internal/dto"
	"github.com/noah-isme/sma-adp-billing/internal/middleware"
	"github.com/noah-isme/sma-adp-billing/internal/models"
	appErrors "github.com/noah-isme/sma-adp-billing/pkg/errors"
)

type settingsServiceMock struct {
	settings *models.GlobalDiscountSettings
	err      error
	gotReq   dto.UpdateDiscountSettingsRequest
	gotActor *models.JWTClaims
}

func (m *settingsServiceMock) Get(ctx context.Context) (*models.GlobalDiscountSettings, error) {
	return m.settings, m.err
}

func (m *settingsServiceMock) Update(ctx context.Context, req dto.UpdateDiscountSettingsRequest, actor *models.JWTClaims) (*models.GlobalDiscountSettings, error) {
	m.gotReq, m.gotActor = req, actor
	if m.err != nil {
		return nil, m.err
	}
	return m.settings, nil
}

func TestSettingsHandlerGet(t *testing.T) {
	deadline := time.Date(2025, 10, 31, 0, 0, 0, 0, time.UTC)
	svc := &settingsServiceMock{settings: &models.GlobalDiscountSettings{ScholarshipDeadline: &deadline}}
	handler := NewSettingsHandler(svc)

	c, w := newTestContext(http.MethodGet, "/billing/settings", nil)
	handler.Get(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decodeEnvelope(t, w)["meta"].(map[string]interface{})["configured"])
}

func TestSettingsHandlerUpdatePassesActor(t *testing.T) {
	svc := &settingsServiceMock{settings: &models.GlobalDiscountSettings{}}
	handler := NewSettingsHandler(svc)

	body, _ := json.Marshal(dto.UpdateDiscountSettingsRequest{ScholarshipDeadline: "2025-10-31", ReductionPercentage: "10"})
	c, w := newTestContext(http.MethodPut, "/billing/settings", body)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})
	handler.Update(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.gotActor)
	assert.Equal(t, "admin", svc.gotActor.UserID)
	assert.Equal(t, "10", svc.gotReq.ReductionPercentage)
}

func TestSettingsHandlerUpdateErrors(t *testing.T) {
	handler := NewSettingsHandler(&settingsServiceMock{})
	c, w := newTestContext(http.MethodPut, "/billing/settings", []byte("{"))
	handler.Update(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	handler = NewSettingsHandler(&settingsServiceMock{err: appErrors.Clone(appErrors.ErrValidation, "reduction_percentage must be between 0 and 100")})
	body, _ := json.Marshal(dto.UpdateDiscountSettingsRequest{ReductionPercentage: "150"})
	c, w = newTestContext(http.MethodPut, "/billing/settings", body)
	handler.Update(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "between 0 and 100")
}
