package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/s-ciobanu-r/jora-webapp/middleware"
	"github.com/s-ciobanu-r/jora-webapp/service"
)

// maxDraftBody bounds autosave payloads. A draft is a small form; anything
// past this is not one.
const maxDraftBody = 256 << 10

type DraftHandler struct {
	repo service.DraftRepo
}

func NewDraftHandler(repo service.DraftRepo) *DraftHandler {
	return &DraftHandler{repo: repo}
}

type draftUpsertRequest struct {
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

// Upsert creates or updates the caller's draft. Browsers flushing a final
// autosave on unload send the same JSON with a text/plain content type, so
// the body is decoded by hand instead of through content-type negotiation.
func (h *DraftHandler) Upsert(c *gin.Context) {
	userID := middleware.GetUserID(c)

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxDraftBody+1))
	if err != nil || len(body) > maxDraftBody {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	var req draftUpsertRequest
	if err := json.Unmarshal(body, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if len(req.Payload) == 0 || strings.TrimSpace(string(req.Payload)) == "null" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Payload required"})
		return
	}

	rec, err := h.repo.Upsert(c.Request.Context(), userID, req.ID, string(req.Payload))
	if errors.Is(err, service.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Draft not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save draft"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":         rec.ID,
		"updated_at": rec.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// Get returns the caller's draft for resuming an interrupted session.
func (h *DraftHandler) Get(c *gin.Context) {
	userID := middleware.GetUserID(c)
	id := c.Param("id")

	rec, err := h.repo.Get(c.Request.Context(), userID, id)
	if errors.Is(err, service.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Draft not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load draft"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":         rec.ID,
		"payload":    json.RawMessage(rec.Payload),
		"status":     rec.Status,
		"updated_at": rec.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}
