package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/langchou/parkmeter/internal/api/handlers"
	"github.com/langchou/parkmeter/internal/config"
	"github.com/langchou/parkmeter/internal/ingest"
	"github.com/langchou/parkmeter/internal/metrics"
	"github.com/langchou/parkmeter/internal/models"
	"github.com/langchou/parkmeter/internal/repository"
	"github.com/langchou/parkmeter/internal/service"
	"github.com/langchou/parkmeter/internal/state"
	"github.com/langchou/parkmeter/pkg/ws"
)

// stores 选定的存储后端
type stores struct {
	sessions service.SessionStore
	rates    service.RateStore
	history  service.ParkingLog
	locker   state.Locker
	closers  []func()
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	logger := initLogger(cfg.Debug)
	defer logger.Sync()

	logger.Info("Starting Parkmeter",
		zap.String("port", cfg.ServerPort),
		zap.String("store", cfg.StoreDriver),
		zap.String("sessions", cfg.SessionBackend),
		zap.String("lock", cfg.LockBackend),
	)

	// 收到退出信号时取消
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open stores", zap.Error(err))
	}
	defer st.close()

	tracker := service.NewTracker(logger, st.sessions, st.history, st.locker)
	gate := service.NewGate(logger, tracker, st.rates)
	rateService := service.NewRateService(logger, st.rates)

	// 恢复场内车辆数
	open, err := tracker.List(ctx)
	if err != nil {
		logger.Fatal("Failed to list open sessions", zap.Error(err))
	}
	metrics.Occupancy.Set(float64(len(open)))
	logger.Info("Open sessions restored", zap.Int("count", len(open)))

	// 创建 WebSocket Hub
	wsHub := ws.NewHub(logger)
	wsHub.SetInitDataProvider(func() interface{} {
		listCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		sessions, err := tracker.List(listCtx)
		if err != nil {
			logger.Warn("Failed to list sessions for websocket init", zap.Error(err))
			return []*models.Session{}
		}
		return sessions
	})

	// 创建 HTTP 处理器
	handler := handlers.NewHandler(logger, gate, tracker, rateService, st.history, wsHub)

	// 设置 Gin 模式
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	// 注册路由
	handler.RegisterRoutes(router, cfg.MetricsPath)

	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		wsHub.Run(gctx)
		return nil
	})

	// 订阅闸口结果并广播到 WebSocket
	results := gate.Subscribe()
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case res := <-results:
				wsHub.BroadcastMessage(ws.MsgTypeGateEvent, res)
			}
		}
	})

	g.Go(func() error {
		logger.Info("Server started", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		// 优雅关闭
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server forced to shutdown", zap.Error(err))
		}
		return nil
	})

	if cfg.RMQURL != "" {
		queue, err := ingest.Dial(cfg.RMQURL, cfg.GateQueueName, cfg.Prefetch)
		if err != nil {
			logger.Fatal("Failed to connect gate queue", zap.Error(err))
		}
		defer queue.Close()

		msgs, err := queue.Consume("parkmeter")
		if err != nil {
			logger.Fatal("Failed to consume gate queue", zap.Error(err))
		}

		consumer := ingest.NewConsumer(logger, gate, cfg.GateWorkers)
		g.Go(func() error {
			logger.Info("Gate queue consumer started",
				zap.String("queue", cfg.GateQueueName),
				zap.Int("workers", cfg.GateWorkers),
			)
			consumer.Run(gctx, msgs)
			if gctx.Err() == nil {
				return errors.New("gate queue delivery channel closed")
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
	}

	logger.Info("Server exited")
}

// openStores 按配置打开存储、会话和锁后端
func openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*stores, error) {
	st := &stores{}

	switch cfg.StoreDriver {
	case config.StorePostgres:
		db, err := repository.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, db.Close)

		// 执行数据库迁移
		if err := db.Migrate(ctx); err != nil {
			st.close()
			return nil, err
		}
		st.sessions = repository.NewSessionRepository(db)
		st.rates = repository.NewFeeRepository(db)
		st.history = repository.NewParkingRepository(db)

	case config.StoreSQLite:
		db, err := repository.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, func() { db.Close() })

		if err := db.Migrate(ctx); err != nil {
			st.close()
			return nil, err
		}
		st.sessions = repository.NewSQLiteSessionRepository(db)
		st.rates = repository.NewSQLiteFeeRepository(db)
		st.history = repository.NewSQLiteParkingRepository(db)

	default:
		logger.Warn("Using in-memory store, data is lost on restart")
		st.sessions = repository.NewMemorySessionRepository()
		st.rates = repository.NewMemoryFeeRepository()
		st.history = repository.NewMemoryParkingRepository()
	}
	logger.Info("Store ready", zap.String("driver", cfg.StoreDriver))

	var rds *redis.Client
	if cfg.UsesRedis() {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			st.close()
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		rds = redis.NewClient(opts)
		st.closers = append(st.closers, func() { rds.Close() })

		if err := rds.Ping(ctx).Err(); err != nil {
			st.close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
	}

	if cfg.SessionBackend == config.BackendRedis {
		st.sessions = repository.NewRedisSessionRepository(rds)
	}

	switch cfg.LockBackend {
	case config.BackendRedis:
		st.locker = state.NewRedisLocker(logger, rds, cfg.LockTTL, cfg.LockRetries)
	default:
		st.locker = state.NewLocalLocker()
	}

	return st, nil
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

// corsMiddleware CORS 中间件
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
