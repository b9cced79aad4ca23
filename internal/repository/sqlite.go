package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/langchou/parkmeter/internal/models"
)

// SQLiteDB 单文件数据库 (单实例部署)
type SQLiteDB struct {
	db *sql.DB
}

// OpenSQLite 打开 sqlite 数据库
func OpenSQLite(ctx context.Context, path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// sqlite 单写者
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return &SQLiteDB{db: db}, nil
}

// Close 关闭数据库
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// Migrate 建表并写入默认费率
func (s *SQLiteDB) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			plate TEXT NOT NULL UNIQUE,
			type TEXT NOT NULL,
			entry_time TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS fees (
			type TEXT PRIMARY KEY,
			weekday_rate REAL NOT NULL,
			friday_rate REAL NOT NULL,
			saturday_rate REAL NOT NULL,
			sunday_rate REAL NOT NULL,
			updated_at TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS parkings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL UNIQUE,
			plate TEXT NOT NULL,
			type TEXT NOT NULL,
			entry_time TEXT NOT NULL,
			exit_time TEXT NOT NULL,
			duration_min REAL NOT NULL DEFAULT 0,
			fee REAL NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute migration: %w", err)
		}
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM fees`).Scan(&count); err != nil {
		return fmt.Errorf("count fees: %w", err)
	}
	if count > 0 {
		return nil
	}
	for _, f := range models.DefaultRateSchedules() {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO fees (type, weekday_rate, friday_rate, saturday_rate, sunday_rate) VALUES (?, ?, ?, ?, ?)`,
			string(f.VehicleClass), f.WeekdayRate, f.FridayRate, f.SaturdayRate, f.SundayRate,
		)
		if err != nil {
			return fmt.Errorf("seed fees: %w", err)
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

// SQLiteSessionRepository sqlite 会话仓库
type SQLiteSessionRepository struct {
	db *SQLiteDB
}

// NewSQLiteSessionRepository 创建会话仓库
func NewSQLiteSessionRepository(db *SQLiteDB) *SQLiteSessionRepository {
	return &SQLiteSessionRepository{db: db}
}

// Get 通过车牌获取会话
func (r *SQLiteSessionRepository) Get(ctx context.Context, plate string) (*models.Session, error) {
	var (
		s     models.Session
		class string
		entry string
	)
	err := r.db.db.QueryRowContext(ctx,
		`SELECT id, plate, type, entry_time FROM sessions WHERE plate = ?`, plate,
	).Scan(&s.ID, &s.Plate, &class, &entry)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session by plate: %w", err)
	}
	s.VehicleClass = models.VehicleClass(class)
	if s.EntryTime, err = parseTime(entry); err != nil {
		return nil, fmt.Errorf("parse session entry time: %w", err)
	}
	return &s, nil
}

// Put 写入会话
func (r *SQLiteSessionRepository) Put(ctx context.Context, session *models.Session) error {
	_, err := r.db.db.ExecContext(ctx,
		`INSERT INTO sessions (id, plate, type, entry_time) VALUES (?, ?, ?, ?)`,
		session.ID, session.Plate, string(session.VehicleClass), formatTime(session.EntryTime),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// Delete 删除会话
func (r *SQLiteSessionRepository) Delete(ctx context.Context, plate string) error {
	if _, err := r.db.db.ExecContext(ctx, `DELETE FROM sessions WHERE plate = ?`, plate); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// List 获取所有场内会话
func (r *SQLiteSessionRepository) List(ctx context.Context) ([]*models.Session, error) {
	rows, err := r.db.db.QueryContext(ctx, `SELECT id, plate, type, entry_time FROM sessions ORDER BY entry_time`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		var (
			s     models.Session
			class string
			entry string
		)
		if err := rows.Scan(&s.ID, &s.Plate, &class, &entry); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		s.VehicleClass = models.VehicleClass(class)
		if s.EntryTime, err = parseTime(entry); err != nil {
			return nil, fmt.Errorf("parse session entry time: %w", err)
		}
		sessions = append(sessions, &s)
	}
	return sessions, rows.Err()
}

// SQLiteFeeRepository sqlite 费率仓库
type SQLiteFeeRepository struct {
	db *SQLiteDB
}

// NewSQLiteFeeRepository 创建费率仓库
func NewSQLiteFeeRepository(db *SQLiteDB) *SQLiteFeeRepository {
	return &SQLiteFeeRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row rowScanner) (*models.RateSchedule, error) {
	var (
		s       models.RateSchedule
		class   string
		updated string
	)
	if err := row.Scan(&class, &s.WeekdayRate, &s.FridayRate, &s.SaturdayRate, &s.SundayRate, &updated); err != nil {
		return nil, err
	}
	s.VehicleClass = models.VehicleClass(class)
	var err error
	if s.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, fmt.Errorf("parse fees updated_at: %w", err)
	}
	return &s, nil
}

// GetSchedule 获取车型费率
func (r *SQLiteFeeRepository) GetSchedule(ctx context.Context, class models.VehicleClass) (*models.RateSchedule, error) {
	row := r.db.db.QueryRowContext(ctx,
		`SELECT type, weekday_rate, friday_rate, saturday_rate, sunday_rate, updated_at FROM fees WHERE type = ?`,
		string(class),
	)
	s, err := scanSchedule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get fees by type: %w", err)
	}
	return s, nil
}

// ListSchedules 获取全部费率
func (r *SQLiteFeeRepository) ListSchedules(ctx context.Context) ([]*models.RateSchedule, error) {
	rows, err := r.db.db.QueryContext(ctx,
		`SELECT type, weekday_rate, friday_rate, saturday_rate, sunday_rate, updated_at FROM fees ORDER BY type`,
	)
	if err != nil {
		return nil, fmt.Errorf("list fees: %w", err)
	}
	defer rows.Close()

	var schedules []*models.RateSchedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fees: %w", err)
		}
		schedules = append(schedules, s)
	}
	return schedules, rows.Err()
}

// UpdateSchedules 在一个事务中更新多条费率
func (r *SQLiteFeeRepository) UpdateSchedules(ctx context.Context, schedules []*models.RateSchedule) error {
	tx, err := r.db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, s := range schedules {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO fees (type, weekday_rate, friday_rate, saturday_rate, sunday_rate, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (type) DO UPDATE SET
				weekday_rate = excluded.weekday_rate,
				friday_rate = excluded.friday_rate,
				saturday_rate = excluded.saturday_rate,
				sunday_rate = excluded.sunday_rate,
				updated_at = excluded.updated_at`,
			string(s.VehicleClass), s.WeekdayRate, s.FridayRate, s.SaturdayRate, s.SundayRate, formatTime(s.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("upsert fees: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit fees: %w", err)
	}
	return nil
}

// SQLiteParkingRepository sqlite 停车历史
type SQLiteParkingRepository struct {
	db *SQLiteDB
}

// NewSQLiteParkingRepository 创建停车历史仓库
func NewSQLiteParkingRepository(db *SQLiteDB) *SQLiteParkingRepository {
	return &SQLiteParkingRepository{db: db}
}

// Record 写入停车记录，同一会话重复写入时忽略
func (r *SQLiteParkingRepository) Record(ctx context.Context, record *models.ParkingRecord) error {
	_, err := r.db.db.ExecContext(ctx, `
		INSERT INTO parkings (session_id, plate, type, entry_time, exit_time, duration_min, fee)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (session_id) DO NOTHING`,
		record.SessionID,
		record.Plate,
		string(record.VehicleClass),
		formatTime(record.EntryTime),
		formatTime(record.ExitTime),
		record.DurationMin,
		record.Fee,
	)
	if err != nil {
		return fmt.Errorf("insert parking: %w", err)
	}
	return nil
}

// List 分页获取停车记录 (按写入顺序倒序)
func (r *SQLiteParkingRepository) List(ctx context.Context, limit, offset int) ([]*models.ParkingRecord, error) {
	rows, err := r.db.db.QueryContext(ctx, `
		SELECT session_id, plate, type, entry_time, exit_time, duration_min, fee
		FROM parkings ORDER BY id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list parkings: %w", err)
	}
	defer rows.Close()

	var records []*models.ParkingRecord
	for rows.Next() {
		var (
			rec         models.ParkingRecord
			class       string
			entry, exit string
		)
		if err := rows.Scan(&rec.SessionID, &rec.Plate, &class, &entry, &exit, &rec.DurationMin, &rec.Fee); err != nil {
			return nil, fmt.Errorf("scan parking: %w", err)
		}
		rec.VehicleClass = models.VehicleClass(class)
		if rec.EntryTime, err = parseTime(entry); err != nil {
			return nil, fmt.Errorf("parse parking entry time: %w", err)
		}
		if rec.ExitTime, err = parseTime(exit); err != nil {
			return nil, fmt.Errorf("parse parking exit time: %w", err)
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// Count 停车记录总数
func (r *SQLiteParkingRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM parkings`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count parkings: %w", err)
	}
	return count, nil
}
