package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/langchou/parkmeter/internal/models"
)

// MemorySessionRepository 内存会话仓库 (单实例/测试)
type MemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]models.Session
}

// NewMemorySessionRepository 创建内存会话仓库
func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{sessions: make(map[string]models.Session)}
}

// Get 获取会话
func (r *MemorySessionRepository) Get(ctx context.Context, plate string) (*models.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[plate]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

// Put 写入会话
func (r *MemorySessionRepository) Put(ctx context.Context, session *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.Plate] = *session
	return nil
}

// Delete 删除会话
func (r *MemorySessionRepository) Delete(ctx context.Context, plate string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, plate)
	return nil
}

// List 按入场时间列出会话
func (r *MemorySessionRepository) List(ctx context.Context) ([]*models.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]*models.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		s := s
		sessions = append(sessions, &s)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].EntryTime.Before(sessions[j].EntryTime)
	})
	return sessions, nil
}

// MemoryFeeRepository 内存费率仓库
type MemoryFeeRepository struct {
	mu        sync.RWMutex
	schedules map[models.VehicleClass]models.RateSchedule
}

// NewMemoryFeeRepository 创建内存费率仓库并写入默认费率
func NewMemoryFeeRepository() *MemoryFeeRepository {
	r := &MemoryFeeRepository{schedules: make(map[models.VehicleClass]models.RateSchedule)}
	for _, s := range models.DefaultRateSchedules() {
		r.schedules[s.VehicleClass] = s
	}
	return r
}

// GetSchedule 获取车型费率
func (r *MemoryFeeRepository) GetSchedule(ctx context.Context, class models.VehicleClass) (*models.RateSchedule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schedules[class]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

// ListSchedules 列出全部费率
func (r *MemoryFeeRepository) ListSchedules(ctx context.Context) ([]*models.RateSchedule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var schedules []*models.RateSchedule
	for _, class := range models.VehicleClasses {
		if s, ok := r.schedules[class]; ok {
			s := s
			schedules = append(schedules, &s)
		}
	}
	return schedules, nil
}

// UpdateSchedules 更新费率
func (r *MemoryFeeRepository) UpdateSchedules(ctx context.Context, schedules []*models.RateSchedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range schedules {
		r.schedules[s.VehicleClass] = *s
	}
	return nil
}

// MemoryParkingRepository 内存停车历史
type MemoryParkingRepository struct {
	mu      sync.RWMutex
	records []models.ParkingRecord
	seen    map[string]bool
}

// NewMemoryParkingRepository 创建内存停车历史
func NewMemoryParkingRepository() *MemoryParkingRepository {
	return &MemoryParkingRepository{seen: make(map[string]bool)}
}

// Record 写入停车记录，会话 ID 重复时忽略
func (r *MemoryParkingRepository) Record(ctx context.Context, record *models.ParkingRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seen[record.SessionID] {
		return nil
	}
	r.seen[record.SessionID] = true
	r.records = append(r.records, *record)
	return nil
}

// List 按写入顺序倒序分页
func (r *MemoryParkingRepository) List(ctx context.Context, limit, offset int) ([]*models.ParkingRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var records []*models.ParkingRecord
	if offset < 0 || offset >= len(r.records) {
		return records, nil
	}
	for i := len(r.records) - 1 - offset; i >= 0 && len(records) < limit; i-- {
		rec := r.records[i]
		records = append(records, &rec)
	}
	return records, nil
}

// Count 记录总数
func (r *MemoryParkingRepository) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.records)), nil
}
