package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/langchou/parkmeter/internal/models"
)

// ListSessions 获取场内车辆
func (h *Handler) ListSessions(c *gin.Context) {
	sessions, err := h.tracker.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  sessions,
		"count": len(sessions),
	})
}

// GetSession 获取车牌当前会话
func (h *Handler) GetSession(c *gin.Context) {
	session, err := h.tracker.Lookup(c.Request.Context(), c.Param("plate"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if session == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": session})
}

// maxPage 页码上限，保证 offset 不溢出
const maxPage = 1 << 20

// ListParkings 获取已完成的停车记录
func (h *Handler) ListParkings(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	if page > maxPage {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid page"})
		return
	}

	if h.parkingLog == nil {
		c.JSON(http.StatusOK, gin.H{
			"data":       []*models.ParkingRecord{},
			"pagination": gin.H{"page": page, "per_page": perPage, "total": 0},
		})
		return
	}

	offset := (page - 1) * perPage

	parkings, err := h.parkingLog.List(c.Request.Context(), perPage, offset)
	if err != nil {
		h.logger.Error("Failed to list parkings", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to list parkings"})
		return
	}

	total, _ := h.parkingLog.Count(c.Request.Context())

	c.JSON(http.StatusOK, gin.H{
		"data": parkings,
		"pagination": gin.H{
			"page":     page,
			"per_page": perPage,
			"total":    total,
		},
	})
}
