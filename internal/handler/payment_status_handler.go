package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/sma-adp-billing/internal/dto"
	"github.com/noah-isme/sma-adp-billing/internal/models"
	appErrors "github.com/noah-isme/sma-adp-billing/pkg/errors"
	"github.com/noah-isme/sma-adp-billing/pkg/response"
)

type paymentStatusService interface {
	StatusForStudent(ctx context.Context, studentID, schoolYearID string) (*models.PaymentStatus, error)
	StatusForClass(ctx context.Context, classID, schoolYearID string) (*models.ClassPaymentStatus, error)
	QuoteFinalPayment(ctx context.Context, studentID, schoolYearID string, amount decimal.Decimal, paymentDate time.Time) (*models.PaymentQuote, error)
}

// PaymentStatusHandler exposes billing snapshots and payment quotes.
type PaymentStatusHandler struct {
	service   paymentStatusService
	validator *validator.Validate
}

// NewPaymentStatusHandler builds a new handler.
func NewPaymentStatusHandler(service paymentStatusService, validate *validator.Validate) *PaymentStatusHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &PaymentStatusHandler{service: service, validator: validate}
}

// StudentStatus godoc
// @Summary Payment status of a student
// @Description Per-tranche breakdown, totals and global discount figures for one school year
// @Tags Billing
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Param school_year_id query string true "School year ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /billing/students/{id}/status [get]
func (h *PaymentStatusHandler) StudentStatus(c *gin.Context) {
	schoolYearID, ok := requireSchoolYear(c)
	if !ok {
		return
	}
	status, err := h.service.StatusForStudent(c.Request.Context(), c.Param("id"), schoolYearID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, map[string]interface{}{"accounting_path": status.AccountingPath})
}

// ClassStatus godoc
// @Summary Payment status of a class
// @Tags Billing
// @Produce json
// @Security BearerAuth
// @Param id path string true "Class ID"
// @Param school_year_id query string true "School year ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /billing/classes/{id}/status [get]
func (h *PaymentStatusHandler) ClassStatus(c *gin.Context) {
	schoolYearID, ok := requireSchoolYear(c)
	if !ok {
		return
	}
	result, err := h.service.StatusForClass(c.Request.Context(), c.Param("id"), schoolYearID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, map[string]interface{}{"count": len(result.Students)})
}

// Quote godoc
// @Summary Quote a payment
// @Description Prices a prospective payment, applying the global discount when eligible, and plans its allocation
// @Tags Billing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Param payload body dto.PaymentQuoteRequest true "Quote payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /billing/students/{id}/quote [post]
func (h *PaymentStatusHandler) Quote(c *gin.Context) {
	var req dto.PaymentQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid quote payload"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid quote payload"))
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "amount must be a decimal number"))
		return
	}
	var paymentDate time.Time
	if req.PaymentDate != "" {
		paymentDate, err = time.Parse(models.DateLayout, req.PaymentDate)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "payment_date must be a YYYY-MM-DD date"))
			return
		}
	}

	quote, err := h.service.QuoteFinalPayment(c.Request.Context(), c.Param("id"), req.SchoolYearID, amount, paymentDate)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, quote, nil)
}

func requireSchoolYear(c *gin.Context) (string, bool) {
	schoolYearID := strings.TrimSpace(c.Query("school_year_id"))
	if schoolYearID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "school_year_id is required"))
		return "", false
	}
	return schoolYearID, true
}
