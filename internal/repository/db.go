package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/langchou/parkmeter/internal/models"
)

// DB 数据库连接池封装
type DB struct {
	Pool *pgxpool.Pool
}

// New 创建数据库连接
func New(ctx context.Context, databaseURL string) (*DB, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	// 连接池配置
	config.MaxConns = 10
	config.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// 测试连接
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close 关闭连接池
func (db *DB) Close() {
	db.Pool.Close()
}

// Migrate 执行数据库迁移
func (db *DB) Migrate(ctx context.Context) error {
	migrations := []string{
		migrationCreateSessions,
		migrationCreateFees,
		migrationCreateParkings,
	}

	for _, m := range migrations {
		if _, err := db.Pool.Exec(ctx, m); err != nil {
			return fmt.Errorf("execute migration: %w", err)
		}
	}

	return db.seedFees(ctx)
}

// seedFees 费率表为空时写入默认费率
func (db *DB) seedFees(ctx context.Context) error {
	var count int64
	if err := db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM fees`).Scan(&count); err != nil {
		return fmt.Errorf("count fees: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, s := range models.DefaultRateSchedules() {
		_, err := db.Pool.Exec(ctx, `
			INSERT INTO fees (type, weekday_rate, friday_rate, saturday_rate, sunday_rate)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (type) DO NOTHING
		`, string(s.VehicleClass), s.WeekdayRate, s.FridayRate, s.SaturdayRate, s.SundayRate)
		if err != nil {
			return fmt.Errorf("seed fees: %w", err)
		}
	}
	return nil
}

// 数据库迁移 SQL
const migrationCreateSessions = `
CREATE TABLE IF NOT EXISTS sessions (
    id VARCHAR(64) PRIMARY KEY,
    plate VARCHAR(32) NOT NULL UNIQUE,
    type VARCHAR(20) NOT NULL,
    entry_time TIMESTAMP WITH TIME ZONE NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_entry_time ON sessions(entry_time);
`

const migrationCreateFees = `
CREATE TABLE IF NOT EXISTS fees (
    type VARCHAR(20) PRIMARY KEY,
    weekday_rate DOUBLE PRECISION NOT NULL CHECK (weekday_rate >= 0),
    friday_rate DOUBLE PRECISION NOT NULL CHECK (friday_rate >= 0),
    saturday_rate DOUBLE PRECISION NOT NULL CHECK (saturday_rate >= 0),
    sunday_rate DOUBLE PRECISION NOT NULL CHECK (sunday_rate >= 0),
    updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);
`

// 已完成停车记录，session_id 唯一以支持重试
const migrationCreateParkings = `
CREATE TABLE IF NOT EXISTS parkings (
    id BIGSERIAL PRIMARY KEY,
    session_id VARCHAR(64) NOT NULL UNIQUE,
    plate VARCHAR(32) NOT NULL,
    type VARCHAR(20) NOT NULL,
    entry_time TIMESTAMP WITH TIME ZONE NOT NULL,
    exit_time TIMESTAMP WITH TIME ZONE NOT NULL,
    duration_min DOUBLE PRECISION DEFAULT 0,
    fee DOUBLE PRECISION NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_parkings_plate ON parkings(plate);
CREATE INDEX IF NOT EXISTS idx_parkings_exit_time ON parkings(exit_time);
`
