package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/langchou/parkmeter/internal/models"
)

// ListFees 获取全部费率
func (h *Handler) ListFees(c *gin.Context) {
	schedules, err := h.rateService.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": schedules})
}

// GetFee 获取单个车型费率
func (h *Handler) GetFee(c *gin.Context) {
	schedule, err := h.rateService.Get(c.Request.Context(), models.VehicleClass(c.Param("type")))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": schedule})
}

// UpdateFees 批量更新费率
// PUT /api/fees
// 请求体为数组，任一条无效则全部不更新
func (h *Handler) UpdateFees(c *gin.Context) {
	var body []models.RateSchedule
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	schedules := make([]*models.RateSchedule, len(body))
	for i := range body {
		schedules[i] = &body[i]
	}
	h.updateFees(c, schedules)
}

// UpdateFee 更新单个车型费率
// POST /api/fees
func (h *Handler) UpdateFee(c *gin.Context) {
	var schedule models.RateSchedule
	if err := c.ShouldBindJSON(&schedule); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	h.updateFees(c, []*models.RateSchedule{&schedule})
}

func (h *Handler) updateFees(c *gin.Context, schedules []*models.RateSchedule) {
	if err := h.rateService.Update(c.Request.Context(), schedules); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Parking fees updated successfully",
		"data":    schedules,
	})
}
