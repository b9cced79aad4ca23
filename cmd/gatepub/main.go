package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/langchou/parkmeter/internal/config"
	"github.com/langchou/parkmeter/internal/ingest"
	"github.com/langchou/parkmeter/internal/models"
)

// 从标准输入逐行读取闸口事件 (JSON) 并发布到 RabbitMQ 队列
// 用法: echo '{"plate":"AB-123","type":"Sedan"}' | gatepub
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Debug)
	defer logger.Sync()

	if cfg.RMQURL == "" {
		logger.Fatal("RMQ_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	queue, err := ingest.Dial(cfg.RMQURL, cfg.GateQueueName, cfg.Prefetch)
	if err != nil {
		logger.Fatal("Failed to connect gate queue", zap.Error(err))
	}
	defer queue.Close()

	scanner := bufio.NewScanner(os.Stdin)
	var published int
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		body, err := normalize(line)
		if err != nil {
			logger.Warn("Skipping malformed event", zap.Error(err), zap.String("line", line))
			continue
		}

		pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = queue.Publish(pubCtx, body)
		cancel()
		if err != nil {
			logger.Fatal("Failed to publish gate event", zap.Error(err))
		}
		published++
	}
	if err := scanner.Err(); err != nil {
		logger.Error("Failed to read stdin", zap.Error(err))
	}

	logger.Info("Gate events published",
		zap.Int("count", published),
		zap.String("queue", cfg.GateQueueName),
	)
}

// normalize 校验事件格式，缺少时间戳时补当前时间
func normalize(line string) ([]byte, error) {
	var event models.GateEvent
	if err := json.Unmarshal([]byte(line), &event); err != nil {
		return nil, err
	}
	if event.RawTimestamp() == "" {
		event.Timestamp = models.Timestamp(time.Now().UTC().Format(time.RFC3339Nano))
	}
	return json.Marshal(&event)
}

// initLogger 初始化日志
func initLogger(debug bool) *zap.Logger {
	var config zap.Config
	if debug {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
	}

	logger, _ := config.Build()
	return logger
}
