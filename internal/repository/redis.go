package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/langchou/parkmeter/internal/models"
)

const (
	redisSessionPrefix = "session:"
	redisSessionIndex  = "sessions"
)

// RedisSessionRepository 基于 Redis 哈希的会话仓库 (多实例共享)
type RedisSessionRepository struct {
	rds *redis.Client
}

// NewRedisSessionRepository 创建 Redis 会话仓库
func NewRedisSessionRepository(rds *redis.Client) *RedisSessionRepository {
	return &RedisSessionRepository{rds: rds}
}

// Get 获取会话
func (r *RedisSessionRepository) Get(ctx context.Context, plate string) (*models.Session, error) {
	fields, err := r.rds.HGetAll(ctx, redisSessionPrefix+plate).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch session from redis: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return sessionFromHash(fields)
}

// Put 写入会话
func (r *RedisSessionRepository) Put(ctx context.Context, session *models.Session) error {
	fields := map[string]interface{}{
		"id":         session.ID,
		"plate":      session.Plate,
		"type":       string(session.VehicleClass),
		"entry_time": formatTime(session.EntryTime),
	}
	_, err := r.rds.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, redisSessionPrefix+session.Plate, fields)
		pipe.SAdd(ctx, redisSessionIndex, session.Plate)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save session to redis: %w", err)
	}
	return nil
}

// Delete 删除会话
func (r *RedisSessionRepository) Delete(ctx context.Context, plate string) error {
	_, err := r.rds.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, redisSessionPrefix+plate)
		pipe.SRem(ctx, redisSessionIndex, plate)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete session from redis: %w", err)
	}
	return nil
}

// List 获取所有场内会话
func (r *RedisSessionRepository) List(ctx context.Context) ([]*models.Session, error) {
	plates, err := r.rds.SMembers(ctx, redisSessionIndex).Result()
	if err != nil {
		return nil, fmt.Errorf("list session plates: %w", err)
	}

	cmds := make([]*redis.MapStringStringCmd, len(plates))
	_, err = r.rds.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, plate := range plates {
			cmds[i] = pipe.HGetAll(ctx, redisSessionPrefix+plate)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch sessions from redis: %w", err)
	}

	sessions := make([]*models.Session, 0, len(plates))
	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		s, err := sessionFromHash(fields)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].EntryTime.Before(sessions[j].EntryTime)
	})
	return sessions, nil
}

func sessionFromHash(fields map[string]string) (*models.Session, error) {
	entry, err := time.Parse(time.RFC3339Nano, fields["entry_time"])
	if err != nil {
		return nil, fmt.Errorf("parse session entry time: %w", err)
	}
	return &models.Session{
		ID:           fields["id"],
		Plate:        fields["plate"],
		VehicleClass: models.VehicleClass(fields["type"]),
		EntryTime:    entry,
	}, nil
}
