package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/langchou/parkmeter/internal/service"
	"github.com/langchou/parkmeter/pkg/ws"
)

// Handler HTTP 处理器
type Handler struct {
	logger      *zap.Logger
	gate        *service.Gate
	tracker     *service.Tracker
	rateService *service.RateService
	parkingLog  service.ParkingLog
	wsHub       *ws.Hub
	upgrader    websocket.Upgrader
}

// NewHandler 创建处理器，parkingLog 可为 nil
func NewHandler(
	logger *zap.Logger,
	gate *service.Gate,
	tracker *service.Tracker,
	rateService *service.RateService,
	parkingLog service.ParkingLog,
	wsHub *ws.Hub,
) *Handler {
	return &Handler{
		logger:      logger,
		gate:        gate,
		tracker:     tracker,
		rateService: rateService,
		parkingLog:  parkingLog,
		wsHub:       wsHub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 开发环境允许所有来源
			},
		},
	}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r *gin.Engine, metricsPath string) {
	api := r.Group("/api")
	{
		// 闸口
		api.POST("/upload", h.Upload)

		// 费率
		api.GET("/fees", h.ListFees)
		api.GET("/fees/:type", h.GetFee)
		api.PUT("/fees", h.UpdateFees)
		api.POST("/fees", h.UpdateFee)

		// 场内车辆
		api.GET("/sessions", h.ListSessions)
		api.GET("/sessions/:plate", h.GetSession)

		// 停车记录
		api.GET("/parkings", h.ListParkings)
	}

	// 旧版路径
	r.POST("/upload", h.Upload)
	r.GET("/fees", h.ListFees)
	r.PUT("/fees", h.UpdateFees)
	r.POST("/fees", h.UpdateFee)

	// WebSocket
	r.GET("/ws", h.HandleWebSocket)

	// 健康检查
	r.GET("/health", h.HealthCheck)

	if metricsPath != "" {
		r.GET(metricsPath, gin.WrapH(promhttp.Handler()))
	}
}

// HandleWebSocket WebSocket 处理
func (h *Handler) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade websocket", zap.Error(err))
		return
	}

	client := ws.NewClient(h.wsHub, conn)
	client.Register()

	// 启动读写协程
	go client.ReadPump()
	go client.WritePump()
}

// HealthCheck 健康检查
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"ws_clients": h.wsHub.ClientCount(),
	})
}

// statusFor 业务错误分类对应的 HTTP 状态码
func statusFor(err error) int {
	switch service.KindOf(err) {
	case service.KindMissingPlate,
		service.KindUnrecognizedVehicleType,
		service.KindInvalidTimestamp,
		service.KindInvalidSchedule:
		return http.StatusBadRequest
	case service.KindScheduleNotFound:
		return http.StatusNotFound
	case service.KindPlateAlreadyInside, service.KindPlateNotInside:
		return http.StatusConflict
	case service.KindStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError 输出错误响应
func (h *Handler) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.Error(err),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
		)
	}

	var e *service.Error
	if errors.As(err, &e) {
		c.JSON(status, gin.H{"error": e.Message, "kind": e.Kind})
		return
	}
	c.JSON(status, gin.H{"error": "Internal server error"})
}
