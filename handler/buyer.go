package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/s-ciobanu-r/jora-webapp/middleware"
	"github.com/s-ciobanu-r/jora-webapp/service"
)

type BuyerHandler struct {
	buyers *service.BuyerService
}

func NewBuyerHandler(buyers *service.BuyerService) *BuyerHandler {
	return &BuyerHandler{buyers: buyers}
}

// Search returns the caller's saved buyers matching the query.
func (h *BuyerHandler) Search(c *gin.Context) {
	userID := middleware.GetUserID(c)

	buyers, err := h.buyers.Search(c.Request.Context(), userID, c.Query("q"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search buyers"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"buyers": buyers})
}
