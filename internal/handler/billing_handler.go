package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-api/internal/dto"
	"github.com/noah-isme/academy-api/internal/middleware"
	"github.com/noah-isme/academy-api/internal/models"
	appErrors "github.com/noah-isme/academy-api/pkg/errors"
	"github.com/noah-isme/academy-api/pkg/response"
)

type billingService interface {
	CreateRate(ctx context.Context, principal *models.Principal, req dto.CreateRateRequest) (*models.TuitionRate, error)
	EndRate(ctx context.Context, principal *models.Principal, id string, req dto.EndRateRequest) (*models.TuitionRate, error)
	ListRates(ctx context.Context, principal *models.Principal, studentID string) ([]models.TuitionRate, error)
	GetEffectiveRate(ctx context.Context, principal *models.Principal, studentID, asOf string) (*models.TuitionRate, error)
	RecordPayment(ctx context.Context, principal *models.Principal, req dto.RecordPaymentRequest) (*models.TuitionPayment, error)
	AdjustAmount(ctx context.Context, principal *models.Principal, req dto.AdjustAmountRequest) (*models.TuitionPayment, error)
	ListPayments(ctx context.Context, principal *models.Principal, query dto.PaymentQuery) ([]models.LedgerRow, error)
	MonthlySummary(ctx context.Context, principal *models.Principal, year, month int) (*models.BillingSummary, bool, error)
}

type exportJobService interface {
	CreateJob(ctx context.Context, principal *models.Principal, req dto.ExportRequest) (*dto.ExportJobResponse, error)
	GetStatus(ctx context.Context, principal *models.Principal, id string) (*dto.ExportStatusResponse, error)
}

// BillingHandler serves tuition rates, the payment ledger and ledger exports.
type BillingHandler struct {
	billing billingService
	exports exportJobService
}

// NewBillingHandler constructs BillingHandler.
func NewBillingHandler(billing billingService, exports exportJobService) *BillingHandler {
	return &BillingHandler{billing: billing, exports: exports}
}

// ListRates godoc
// @Summary List tuition rates of a student
// @Tags Billing
// @Produce json
// @Param student_id query string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /billing/rates [get]
func (h *BillingHandler) ListRates(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	rates, err := h.billing.ListRates(c.Request.Context(), principal, c.Query("student_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rates, nil)
}

// CreateRate godoc
// @Summary Define a tuition rate
// @Tags Billing
// @Accept json
// @Produce json
// @Param payload body dto.CreateRateRequest true "Rate"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /billing/rates [post]
func (h *BillingHandler) CreateRate(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateRateRequest
	if !bindJSON(c, &req) {
		return
	}
	rate, err := h.billing.CreateRate(c.Request.Context(), principal, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, rate)
}

// EndRate godoc
// @Summary Close a tuition rate
// @Tags Billing
// @Accept json
// @Produce json
// @Param id path string true "Rate ID"
// @Param payload body dto.EndRateRequest true "End date"
// @Success 200 {object} response.Envelope
// @Router /billing/rates/{id}/end [post]
func (h *BillingHandler) EndRate(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	var req dto.EndRateRequest
	if !bindJSON(c, &req) {
		return
	}
	rate, err := h.billing.EndRate(c.Request.Context(), principal, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rate, nil)
}

// EffectiveRate godoc
// @Summary Rate in force on a date
// @Tags Billing
// @Produce json
// @Param student_id query string true "Student ID"
// @Param as_of query string false "Date (YYYY-MM-DD), defaults to today"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /billing/rates/effective [get]
func (h *BillingHandler) EffectiveRate(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	rate, err := h.billing.GetEffectiveRate(c.Request.Context(), principal, c.Query("student_id"), c.Query("as_of"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rate, nil)
}

// ListPayments godoc
// @Summary Monthly payment ledger
// @Tags Billing
// @Produce json
// @Param year query int false "Year"
// @Param month query int false "Month"
// @Param student_id query string false "Student ID"
// @Param status query string false "paid, partial or unpaid"
// @Success 200 {object} response.Envelope
// @Router /billing/payments [get]
func (h *BillingHandler) ListPayments(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	var query dto.PaymentQuery
	if !bindQuery(c, &query) {
		return
	}
	rows, err := h.billing.ListPayments(c.Request.Context(), principal, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// RecordPayment godoc
// @Summary Record a payment delta
// @Description Adds a signed delta to the period's paid amount; the status is re-derived
// @Tags Billing
// @Accept json
// @Produce json
// @Param payload body dto.RecordPaymentRequest true "Payment"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /billing/payments [post]
func (h *BillingHandler) RecordPayment(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	var req dto.RecordPaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	payment, err := h.billing.RecordPayment(c.Request.Context(), principal, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payment, nil)
}

// AdjustAmount godoc
// @Summary Override the amount due for a period
// @Tags Billing
// @Accept json
// @Produce json
// @Param payload body dto.AdjustAmountRequest true "Amount"
// @Success 200 {object} response.Envelope
// @Router /billing/payments/amount [put]
func (h *BillingHandler) AdjustAmount(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	var req dto.AdjustAmountRequest
	if !bindJSON(c, &req) {
		return
	}
	payment, err := h.billing.AdjustAmount(c.Request.Context(), principal, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payment, nil)
}

// Summary godoc
// @Summary Monthly billing summary
// @Tags Billing
// @Produce json
// @Param year query int false "Year"
// @Param month query int false "Month"
// @Success 200 {object} response.Envelope
// @Router /billing/summary [get]
func (h *BillingHandler) Summary(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	year, err := optionalInt(c, "year")
	if err != nil {
		response.Error(c, err)
		return
	}
	month, err := optionalInt(c, "month")
	if err != nil {
		response.Error(c, err)
		return
	}
	summary, hit, err := h.billing.MonthlySummary(c.Request.Context(), principal, year, month)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, summary, nil, middleware.ExtractMeta(c))
}

// CreateExport godoc
// @Summary Request a ledger export
// @Tags Billing
// @Accept json
// @Produce json
// @Param payload body dto.ExportRequest true "Export"
// @Success 202 {object} response.Envelope
// @Router /billing/exports [post]
func (h *BillingHandler) CreateExport(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	var req dto.ExportRequest
	if !bindJSON(c, &req) {
		return
	}
	job, err := h.exports.CreateJob(c.Request.Context(), principal, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// ExportStatus godoc
// @Summary Ledger export status
// @Tags Billing
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /billing/exports/{id} [get]
func (h *BillingHandler) ExportStatus(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	status, err := h.exports.GetStatus(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

func optionalInt(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s must be a number", key))
	}
	return v, nil
}
