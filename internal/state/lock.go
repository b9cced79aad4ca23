package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var ErrLockNotObtained = errors.New("plate lock not obtained")

// Locker 按车牌加锁，保证同一车牌的读-判-写串行执行
type Locker interface {
	Lock(ctx context.Context, plate string) (unlock func(), err error)
}

// LocalLocker 进程内车牌锁
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*plateLock
}

type plateLock struct {
	ch   chan struct{}
	refs int
}

// NewLocalLocker 创建进程内锁
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*plateLock)}
}

// Lock 获取车牌锁，ctx 取消时放弃等待
func (l *LocalLocker) Lock(ctx context.Context, plate string) (func(), error) {
	l.mu.Lock()
	pl, ok := l.locks[plate]
	if !ok {
		pl = &plateLock{ch: make(chan struct{}, 1)}
		l.locks[plate] = pl
	}
	pl.refs++
	l.mu.Unlock()

	select {
	case pl.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(plate, pl)
		return nil, fmt.Errorf("%w: %v", ErrLockNotObtained, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-pl.ch
			l.release(plate, pl)
		})
	}, nil
}

// release 引用归零时删除锁
func (l *LocalLocker) release(plate string, pl *plateLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pl.refs--
	if pl.refs == 0 {
		delete(l.locks, plate)
	}
}

// Len 当前持有或等待中的车牌数量
func (l *LocalLocker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

// RedisLocker 基于 Redis 的分布式车牌锁 (多实例部署)
type RedisLocker struct {
	logger *zap.Logger
	client *redislock.Client
	ttl    time.Duration
	opts   *redislock.Options
}

// NewRedisLocker 创建分布式锁
func NewRedisLocker(logger *zap.Logger, rds *redis.Client, ttl time.Duration, retries int) *RedisLocker {
	return &RedisLocker{
		logger: logger,
		client: redislock.New(rds),
		ttl:    ttl,
		opts: &redislock.Options{
			RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), retries),
		},
	}
}

// Lock 获取分布式车牌锁
func (l *RedisLocker) Lock(ctx context.Context, plate string) (func(), error) {
	lock, err := l.client.Obtain(ctx, "lock:plate:"+plate, l.ttl, l.opts)
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			return nil, ErrLockNotObtained
		}
		return nil, fmt.Errorf("obtain plate lock: %w", err)
	}

	return func() {
		if err := lock.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			l.logger.Warn("Failed to release plate lock", zap.Error(err), zap.String("plate", plate))
		}
	}, nil
}
