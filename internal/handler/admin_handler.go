package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-api/internal/dto"
	"github.com/noah-isme/academy-api/internal/models"
	"github.com/noah-isme/academy-api/pkg/response"
)

type directorAccounts interface {
	ListDirectors(ctx context.Context, principal *models.Principal, search string, active *bool, page, pageSize int) ([]models.User, *models.Pagination, error)
	SetDirectorStatus(ctx context.Context, principal *models.Principal, directorID string, active bool) (*models.User, error)
}

type metricsSnapshotter interface {
	Snapshot() models.SystemMetrics
}

// AdminHandler serves platform administration endpoints.
type AdminHandler struct {
	accounts directorAccounts
	metrics  metricsSnapshotter
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(accounts directorAccounts, metrics metricsSnapshotter) *AdminHandler {
	return &AdminHandler{accounts: accounts, metrics: metrics}
}

// ListDirectors godoc
// @Summary List directors
// @Tags Admin
// @Produce json
// @Param search query string false "Search by name, email or academy"
// @Param active query bool false "Filter by active state"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/directors [get]
func (h *AdminHandler) ListDirectors(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	page, size := pageParams(c)
	directors, pagination, err := h.accounts.ListDirectors(c.Request.Context(), principal, search(c), optionalBool(c.Query("active")), page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, directors, pagination)
}

// SetDirectorStatus godoc
// @Summary Activate or deactivate a director
// @Description Deactivating a director also blocks their teachers
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Director ID"
// @Param payload body dto.AccountStatusRequest true "Status"
// @Success 200 {object} response.Envelope
// @Router /admin/directors/{id}/status [patch]
func (h *AdminHandler) SetDirectorStatus(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	var req dto.AccountStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Active == nil {
		response.Error(c, validationRequired("active"))
		return
	}
	director, err := h.accounts.SetDirectorStatus(c.Request.Context(), principal, c.Param("id"), *req.Active)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, director, nil)
}

// Metrics godoc
// @Summary System metrics snapshot
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/metrics [get]
func (h *AdminHandler) Metrics(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.metrics.Snapshot(), nil)
}
