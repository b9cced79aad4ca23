package service

import (
	"context"

	"github.com/langchou/parkmeter/internal/models"
)

// SessionStore 场内会话存储
type SessionStore interface {
	// Get 不存在时返回 nil, nil
	Get(ctx context.Context, plate string) (*models.Session, error)
	Put(ctx context.Context, session *models.Session) error
	Delete(ctx context.Context, plate string) error
	List(ctx context.Context) ([]*models.Session, error)
}

// RateStore 费率存储
type RateStore interface {
	// GetSchedule 不存在时返回 nil, nil
	GetSchedule(ctx context.Context, class models.VehicleClass) (*models.RateSchedule, error)
	ListSchedules(ctx context.Context) ([]*models.RateSchedule, error)
	UpdateSchedules(ctx context.Context, schedules []*models.RateSchedule) error
}

// ParkingLog 停车历史
type ParkingLog interface {
	// Record 以会话 ID 去重, 重复写入无副作用
	Record(ctx context.Context, record *models.ParkingRecord) error
	List(ctx context.Context, limit, offset int) ([]*models.ParkingRecord, error)
	Count(ctx context.Context) (int64, error)
}
