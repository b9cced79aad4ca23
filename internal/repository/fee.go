package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/langchou/parkmeter/internal/models"
)

// FeeRepository 费率仓库
type FeeRepository struct {
	db *DB
}

// NewFeeRepository 创建费率仓库
func NewFeeRepository(db *DB) *FeeRepository {
	return &FeeRepository{db: db}
}

const selectFees = `SELECT type, weekday_rate, friday_rate, saturday_rate, sunday_rate, updated_at FROM fees`

// GetSchedule 获取车型费率
func (r *FeeRepository) GetSchedule(ctx context.Context, class models.VehicleClass) (*models.RateSchedule, error) {
	s := &models.RateSchedule{}
	err := r.db.Pool.QueryRow(ctx, selectFees+` WHERE type = $1`, string(class)).Scan(
		&s.VehicleClass,
		&s.WeekdayRate,
		&s.FridayRate,
		&s.SaturdayRate,
		&s.SundayRate,
		&s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get fees by type: %w", err)
	}
	return s, nil
}

// ListSchedules 获取全部费率
func (r *FeeRepository) ListSchedules(ctx context.Context) ([]*models.RateSchedule, error) {
	rows, err := r.db.Pool.Query(ctx, selectFees+` ORDER BY type`)
	if err != nil {
		return nil, fmt.Errorf("list fees: %w", err)
	}
	defer rows.Close()

	var schedules []*models.RateSchedule
	for rows.Next() {
		s := &models.RateSchedule{}
		err := rows.Scan(
			&s.VehicleClass,
			&s.WeekdayRate,
			&s.FridayRate,
			&s.SaturdayRate,
			&s.SundayRate,
			&s.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan fees: %w", err)
		}
		schedules = append(schedules, s)
	}

	return schedules, rows.Err()
}

// UpdateSchedules 在一个事务中更新多条费率
func (r *FeeRepository) UpdateSchedules(ctx context.Context, schedules []*models.RateSchedule) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO fees (type, weekday_rate, friday_rate, saturday_rate, sunday_rate, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (type) DO UPDATE SET
			weekday_rate = EXCLUDED.weekday_rate,
			friday_rate = EXCLUDED.friday_rate,
			saturday_rate = EXCLUDED.saturday_rate,
			sunday_rate = EXCLUDED.sunday_rate,
			updated_at = EXCLUDED.updated_at
	`
	for _, s := range schedules {
		_, err := tx.Exec(ctx, query,
			string(s.VehicleClass),
			s.WeekdayRate,
			s.FridayRate,
			s.SaturdayRate,
			s.SundayRate,
			s.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("upsert fees: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit fees: %w", err)
	}
	return nil
}
