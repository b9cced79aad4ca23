package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/langchou/parkmeter/internal/metrics"
	"github.com/langchou/parkmeter/internal/models"
)

// Gate 闸口事件处理：根据车牌状态判定入场或出场
type Gate struct {
	logger  *zap.Logger
	tracker *Tracker
	rates   RateStore
	now     func() time.Time

	mu          sync.RWMutex
	subscribers []chan *models.GateResult
}

// NewGate 创建闸口处理器
func NewGate(logger *zap.Logger, tracker *Tracker, rates RateStore) *Gate {
	return &Gate{
		logger:  logger,
		tracker: tracker,
		rates:   rates,
		now:     time.Now,
	}
}

// SetClock 替换时钟 (事件未携带时间戳时使用)
func (g *Gate) SetClock(now func() time.Time) {
	g.now = now
}

// Subscribe 订阅闸口结果
func (g *Gate) Subscribe() <-chan *models.GateResult {
	g.mu.Lock()
	defer g.mu.Unlock()

	ch := make(chan *models.GateResult, 64)
	g.subscribers = append(g.subscribers, ch)
	return ch
}

// Handle 处理一次闸口识别事件
func (g *Gate) Handle(ctx context.Context, event *models.GateEvent) (*models.GateResult, error) {
	start := time.Now()
	defer func() { metrics.ProcessingLatency.Observe(time.Since(start).Seconds()) }()

	result, err := g.handle(ctx, event)
	if err != nil {
		metrics.GateEvents.WithLabelValues(string(KindOf(err))).Inc()
		g.logger.Warn("Failed to handle gate event",
			zap.Error(err),
			zap.String("plate", event.Plate),
			zap.String("type", event.Type),
		)
		return nil, err
	}

	metrics.GateEvents.WithLabelValues(result.Status).Inc()
	g.logger.Info("Gate event handled",
		zap.String("plate", result.Plate),
		zap.String("status", result.Status),
		zap.String("class", result.VehicleClass.String()),
	)
	g.publish(result)
	return result, nil
}

func (g *Gate) handle(ctx context.Context, event *models.GateEvent) (*models.GateResult, error) {
	class, err := Classify(event.Type)
	if err != nil {
		return nil, err
	}

	at, err := g.eventTime(event)
	if err != nil {
		return nil, err
	}

	var result *models.GateResult
	err = g.tracker.withPlate(ctx, event.Plate, func(current *models.Session) error {
		if current == nil {
			session, err := g.tracker.enter(ctx, current, event.Plate, class, at)
			if err != nil {
				return err
			}
			result = &models.GateResult{
				Plate:        session.Plate,
				Status:       models.StatusEntered,
				VehicleClass: session.VehicleClass,
				EntryTime:    session.EntryTime,
			}
			return nil
		}

		// 按会话车型读取当前费率
		schedule, err := g.rates.GetSchedule(ctx, current.VehicleClass)
		if err != nil {
			return storeError("get rate schedule", err)
		}
		fr, err := g.tracker.exit(ctx, current, event.Plate, at, schedule)
		if err != nil {
			return err
		}
		result = &models.GateResult{
			Plate:        fr.Plate,
			Status:       models.StatusExited,
			VehicleClass: current.VehicleClass,
			Fee:          &fr.Fee,
			EntryTime:    fr.EntryTime,
			ExitTime:     &fr.ExitTime,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// eventTime 解析事件时间，缺省为当前时间
func (g *Gate) eventTime(event *models.GateEvent) (time.Time, error) {
	raw := event.RawTimestamp()
	if raw == "" {
		return g.now().UTC(), nil
	}
	at, err := raw.Parse()
	if err != nil {
		return time.Time{}, newError(KindInvalidTimestamp, "cannot parse event timestamp", err)
	}
	return at, nil
}

// publish 非阻塞地推送结果，慢订阅者丢弃消息
func (g *Gate) publish(result *models.GateResult) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, ch := range g.subscribers {
		select {
		case ch <- result:
		default:
			g.logger.Warn("Gate subscriber buffer full, dropping result", zap.String("plate", result.Plate))
		}
	}
}
