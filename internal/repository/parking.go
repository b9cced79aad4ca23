package repository

import (
	"context"
	"fmt"

	"github.com/langchou/parkmeter/internal/models"
)

// ParkingRepository 停车历史仓库
type ParkingRepository struct {
	db *DB
}

// NewParkingRepository 创建停车仓库
func NewParkingRepository(db *DB) *ParkingRepository {
	return &ParkingRepository{db: db}
}

// Record 写入停车记录，同一会话重复写入时忽略
func (r *ParkingRepository) Record(ctx context.Context, record *models.ParkingRecord) error {
	query := `
		INSERT INTO parkings (session_id, plate, type, entry_time, exit_time, duration_min, fee)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (session_id) DO NOTHING
	`
	_, err := r.db.Pool.Exec(ctx, query,
		record.SessionID,
		record.Plate,
		string(record.VehicleClass),
		record.EntryTime,
		record.ExitTime,
		record.DurationMin,
		record.Fee,
	)
	if err != nil {
		return fmt.Errorf("insert parking: %w", err)
	}
	return nil
}

// List 分页获取停车记录 (按出场时间倒序)
func (r *ParkingRepository) List(ctx context.Context, limit, offset int) ([]*models.ParkingRecord, error) {
	query := `
		SELECT session_id, plate, type, entry_time, exit_time, duration_min, fee
		FROM parkings
		ORDER BY exit_time DESC, id DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list parkings: %w", err)
	}
	defer rows.Close()

	var records []*models.ParkingRecord
	for rows.Next() {
		rec := &models.ParkingRecord{}
		err := rows.Scan(
			&rec.SessionID,
			&rec.Plate,
			&rec.VehicleClass,
			&rec.EntryTime,
			&rec.ExitTime,
			&rec.DurationMin,
			&rec.Fee,
		)
		if err != nil {
			return nil, fmt.Errorf("scan parking: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// Count 停车记录总数
func (r *ParkingRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM parkings`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count parkings: %w", err)
	}
	return count, nil
}
