package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/langchou/parkmeter/internal/models"
)

// SessionRepository 场内会话仓库
type SessionRepository struct {
	db *DB
}

// NewSessionRepository 创建会话仓库
func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Get 通过车牌获取会话
func (r *SessionRepository) Get(ctx context.Context, plate string) (*models.Session, error) {
	query := `SELECT id, plate, type, entry_time FROM sessions WHERE plate = $1`
	s := &models.Session{}
	err := r.db.Pool.QueryRow(ctx, query, plate).Scan(
		&s.ID,
		&s.Plate,
		&s.VehicleClass,
		&s.EntryTime,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session by plate: %w", err)
	}
	s.EntryTime = s.EntryTime.UTC()
	return s, nil
}

// Put 写入会话
func (r *SessionRepository) Put(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (id, plate, type, entry_time)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.Pool.Exec(ctx, query,
		session.ID,
		session.Plate,
		string(session.VehicleClass),
		session.EntryTime,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// Delete 删除会话
func (r *SessionRepository) Delete(ctx context.Context, plate string) error {
	if _, err := r.db.Pool.Exec(ctx, `DELETE FROM sessions WHERE plate = $1`, plate); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// List 获取所有场内会话
func (r *SessionRepository) List(ctx context.Context) ([]*models.Session, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT id, plate, type, entry_time FROM sessions ORDER BY entry_time`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		s := &models.Session{}
		if err := rows.Scan(&s.ID, &s.Plate, &s.VehicleClass, &s.EntryTime); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		s.EntryTime = s.EntryTime.UTC()
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}
