package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/s-ciobanu-r/jora-webapp/middleware"
	"github.com/s-ciobanu-r/jora-webapp/model"
	"github.com/s-ciobanu-r/jora-webapp/service"
	"github.com/s-ciobanu-r/jora-webapp/validation"
)

// minIdempotencyKeyLen rejects keys too short to plausibly be unique per
// draft lifetime. The wizard client sends uuids.
const minIdempotencyKeyLen = 8

type FinalizeHandler struct {
	engine      *service.EngineService
	idempotency *service.IdempotencyStore
}

func NewFinalizeHandler(engine *service.EngineService, idem *service.IdempotencyStore) *FinalizeHandler {
	return &FinalizeHandler{engine: engine, idempotency: idem}
}

type finalizeRequest struct {
	model.ContractDraft
	IdempotencyKey string `json:"idempotency_key" binding:"required"`
}

// Finalize runs the irreversible contract creation at most once per
// (caller, idempotency key). A duplicate submit gets the stored response
// byte for byte; the engine is never called twice for the same key.
func (h *FinalizeHandler) Finalize(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req finalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if len(req.IdempotencyKey) < minIdempotencyKeyLen {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid idempotency key"})
		return
	}

	stored, ok, err := h.idempotency.Lookup(c.Request.Context(), userID, req.IdempotencyKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check idempotency"})
		return
	}
	if ok {
		slog.InfoContext(c.Request.Context(), "replaying stored finalize response",
			"idempotency_key", req.IdempotencyKey,
		)
		c.Data(http.StatusOK, "application/json", []byte(stored))
		return
	}

	if result := validation.FullDraft(req.ContractDraft); !result.Valid {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": result.Errors})
		return
	}

	response, err := h.engine.Finalize(c.Request.Context(), userID, req.ContractDraft, req.IdempotencyKey)
	if err != nil {
		var engErr *service.EngineError
		if errors.As(err, &engErr) {
			slog.ErrorContext(c.Request.Context(), "engine rejected finalize",
				"status", engErr.StatusCode,
				"idempotency_key", req.IdempotencyKey,
			)
		} else {
			slog.ErrorContext(c.Request.Context(), "engine call failed", "error", err)
		}
		// Nothing stored: the key stays unused so a retry runs the action.
		c.JSON(http.StatusBadGateway, gin.H{"error": "Contract creation failed"})
		return
	}

	if err := h.idempotency.Store(c.Request.Context(), userID, req.IdempotencyKey, string(response)); err != nil {
		// The action already ran; losing the record only costs replay.
		slog.ErrorContext(c.Request.Context(), "failed to store finalize response", "error", err)
	}

	c.Data(http.StatusOK, "application/json", response)
}
