package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-api/internal/dto"
	"github.com/noah-isme/academy-api/internal/models"
	"github.com/noah-isme/academy-api/pkg/response"
)

type dailyRecordService interface {
	List(ctx context.Context, principal *models.Principal, query dto.DailyRecordQuery) ([]models.DailyRecordDetail, error)
	Create(ctx context.Context, principal *models.Principal, req dto.DailyRecordRequest) (*models.DailyRecord, error)
	Update(ctx context.Context, principal *models.Principal, id string, req dto.DailyRecordRequest) (*models.DailyRecord, error)
	Delete(ctx context.Context, principal *models.Principal, id string) error
}

// DailyRecordHandler serves per-student daily records.
type DailyRecordHandler struct {
	service dailyRecordService
}

// NewDailyRecordHandler constructs the handler.
func NewDailyRecordHandler(svc dailyRecordService) *DailyRecordHandler {
	return &DailyRecordHandler{service: svc}
}

// List godoc
// @Summary List daily records
// @Tags Daily Records
// @Produce json
// @Param student_id query string false "Student"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /daily-records [get]
func (h *DailyRecordHandler) List(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	var query dto.DailyRecordQuery
	if !bindQuery(c, &query) {
		return
	}
	records, err := h.service.List(c.Request.Context(), principal, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// Create godoc
// @Summary Write daily record
// @Description Requires write_daily_reports for teachers
// @Tags Daily Records
// @Accept json
// @Produce json
// @Param payload body dto.DailyRecordRequest true "Record"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /daily-records [post]
func (h *DailyRecordHandler) Create(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	var req dto.DailyRecordRequest
	if !bindJSON(c, &req) {
		return
	}
	record, err := h.service.Create(c.Request.Context(), principal, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// Update godoc
// @Summary Update daily record
// @Tags Daily Records
// @Accept json
// @Produce json
// @Param id path string true "Record ID"
// @Param payload body dto.DailyRecordRequest true "Record"
// @Success 200 {object} response.Envelope
// @Router /daily-records/{id} [put]
func (h *DailyRecordHandler) Update(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	var req dto.DailyRecordRequest
	if !bindJSON(c, &req) {
		return
	}
	record, err := h.service.Update(c.Request.Context(), principal, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Delete godoc
// @Summary Delete daily record
// @Tags Daily Records
// @Produce json
// @Param id path string true "Record ID"
// @Success 200 {object} response.Envelope
// @Router /daily-records/{id} [delete]
func (h *DailyRecordHandler) Delete(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), principal, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c)
}
