package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-api/internal/models"
	"github.com/noah-isme/academy-api/pkg/response"
)

type verificationService interface {
	Issue(ctx context.Context, principal *models.Principal) (*models.VerificationCode, error)
	Current(ctx context.Context, principal *models.Principal) (*models.VerificationCode, error)
}

// VerificationHandler lets directors manage their teacher onboarding code.
type VerificationHandler struct {
	codes verificationService
}

// NewVerificationHandler constructs VerificationHandler.
func NewVerificationHandler(codes verificationService) *VerificationHandler {
	return &VerificationHandler{codes: codes}
}

// Current godoc
// @Summary Current onboarding code
// @Tags Verification
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /verification-code [get]
func (h *VerificationHandler) Current(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	code, err := h.codes.Current(c.Request.Context(), principal)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, code, nil)
}

// Issue godoc
// @Summary Issue a new onboarding code
// @Description Replaces the director's previous code
// @Tags Verification
// @Produce json
// @Success 201 {object} response.Envelope
// @Router /verification-code [post]
func (h *VerificationHandler) Issue(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	code, err := h.codes.Issue(c.Request.Context(), principal)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, code)
}
