package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/langchou/parkmeter/internal/models"
)

// Upload 闸口识别结果上报，自动判定入场或出场
// POST /api/upload
func (h *Handler) Upload(c *gin.Context) {
	var event models.GateEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	result, err := h.gate.Handle(c.Request.Context(), &event)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
