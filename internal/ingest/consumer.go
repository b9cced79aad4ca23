package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/langchou/parkmeter/internal/metrics"
	"github.com/langchou/parkmeter/internal/models"
	"github.com/langchou/parkmeter/internal/service"
)

// Handler 闸口事件处理接口
type Handler interface {
	Handle(ctx context.Context, event *models.GateEvent) (*models.GateResult, error)
}

// Consumer 从队列消费闸口识别事件
type Consumer struct {
	logger  *zap.Logger
	handler Handler
	workers int
}

// NewConsumer 创建消费者
func NewConsumer(logger *zap.Logger, handler Handler, workers int) *Consumer {
	if workers < 1 {
		workers = 1
	}
	return &Consumer{logger: logger, handler: handler, workers: workers}
}

// Run 启动 worker 处理消息，ctx 取消或通道关闭时返回
func (c *Consumer) Run(ctx context.Context, msgs <-chan amqp.Delivery) error {
	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			c.work(ctx, id, msgs)
		}(i)
	}
	wg.Wait()
	return ctx.Err()
}

func (c *Consumer) work(ctx context.Context, id int, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-msgs:
			if !ok {
				return
			}
			if !m.Timestamp.IsZero() {
				metrics.QueueingLatency.Observe(time.Since(m.Timestamp).Seconds())
			}

			ack, err := c.Process(ctx, m.Body)
			if err != nil {
				c.logger.Error("Failed to process gate event", zap.Error(err), zap.Int("worker", id))
			}
			if ack {
				m.Ack(false)
			} else {
				m.Nack(false, true)
			}
		}
	}
}

// Process 处理单条消息，返回是否确认
// 仅存储不可用时重新入队，其余错误确认后丢弃。
func (c *Consumer) Process(ctx context.Context, body []byte) (bool, error) {
	var event models.GateEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return true, fmt.Errorf("decode gate event: %w", err)
	}

	res, err := c.handler.Handle(ctx, &event)
	if err != nil {
		return service.KindOf(err) != service.KindStoreUnavailable, err
	}

	c.logger.Debug("Gate event consumed", zap.String("plate", res.Plate), zap.String("status", res.Status))
	return true, nil
}
