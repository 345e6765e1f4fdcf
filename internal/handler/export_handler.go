package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-api/internal/service"
	"github.com/noah-isme/academy-api/pkg/export"
	"github.com/noah-isme/academy-api/pkg/response"
)

type downloadResolver interface {
	ResolveDownload(ctx context.Context, token string) (*service.ExportDownload, error)
}

// ExportHandler streams finished ledger exports behind signed tokens.
type ExportHandler struct {
	downloads downloadResolver
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(downloads downloadResolver) *ExportHandler {
	return &ExportHandler{downloads: downloads}
}

// Download godoc
// @Summary Download a ledger export
// @Tags Billing
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /exports/download/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	download, err := h.downloads.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	info, err := download.File.Stat()
	if err != nil {
		response.Error(c, err)
		return
	}
	contentType := "application/octet-stream"
	if renderer, err := export.RendererFor(export.Format(download.Format)); err == nil {
		contentType = renderer.ContentType()
	}
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), contentType, download.File, map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename="%s"`, download.Filename),
	})
}
