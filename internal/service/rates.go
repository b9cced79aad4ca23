package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/langchou/parkmeter/internal/models"
)

// RateService 费率管理
type RateService struct {
	logger *zap.Logger
	rates  RateStore
}

// NewRateService 创建费率服务
func NewRateService(logger *zap.Logger, rates RateStore) *RateService {
	return &RateService{logger: logger, rates: rates}
}

// List 获取全部费率
func (s *RateService) List(ctx context.Context) ([]*models.RateSchedule, error) {
	schedules, err := s.rates.ListSchedules(ctx)
	if err != nil {
		return nil, storeError("list rate schedules", err)
	}
	return schedules, nil
}

// Get 获取单个车型费率
func (s *RateService) Get(ctx context.Context, class models.VehicleClass) (*models.RateSchedule, error) {
	schedule, err := s.rates.GetSchedule(ctx, class)
	if err != nil {
		return nil, storeError("get rate schedule", err)
	}
	if schedule == nil {
		return nil, newError(KindScheduleNotFound, "no rate schedule for "+class.String(), nil)
	}
	return schedule, nil
}

// Update 批量更新费率，任一条无效则全部拒绝
func (s *RateService) Update(ctx context.Context, schedules []*models.RateSchedule) error {
	if len(schedules) == 0 {
		return newError(KindInvalidSchedule, "no rate schedules given", nil)
	}

	now := time.Now().UTC()
	for _, schedule := range schedules {
		if schedule == nil {
			return newError(KindInvalidSchedule, "empty rate schedule entry", nil)
		}
		if _, err := models.ParseVehicleClass(string(schedule.VehicleClass)); err != nil {
			return newError(KindUnrecognizedVehicleType, "cannot update rates", err)
		}
		if err := schedule.Validate(); err != nil {
			return newError(KindInvalidSchedule, "cannot update "+schedule.VehicleClass.String()+" rates", err)
		}
		schedule.UpdatedAt = now
	}

	if err := s.rates.UpdateSchedules(ctx, schedules); err != nil {
		return storeError("update rate schedules", err)
	}

	for _, schedule := range schedules {
		s.logger.Info("Rate schedule updated",
			zap.String("class", schedule.VehicleClass.String()),
			zap.Float64("weekday_rate", schedule.WeekdayRate),
			zap.Float64("friday_rate", schedule.FridayRate),
			zap.Float64("saturday_rate", schedule.SaturdayRate),
			zap.Float64("sunday_rate", schedule.SundayRate),
		)
	}
	return nil
}
