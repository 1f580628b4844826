package handler

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/s-ciobanu-r/jora-webapp/service"
)

type ExtractHandler struct {
	extract *service.ExtractService
}

func NewExtractHandler(extract *service.ExtractService) *ExtractHandler {
	return &ExtractHandler{extract: extract}
}

type extractRequest struct {
	FileURL string `json:"file_url" binding:"required"`
}

// Extract asks the vision provider to read vehicle fields from an uploaded
// document. Extraction is best-effort prefill: provider trouble yields
// null fields with low confidence, never a failed request for readable
// provider output.
func (h *ExtractHandler) Extract(c *gin.Context) {
	var req extractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	u, err := url.Parse(req.FileURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file URL"})
		return
	}

	result, err := h.extract.Extract(c.Request.Context(), req.FileURL)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "extraction failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Extraction failed"})
		return
	}

	c.JSON(http.StatusOK, result)
}
