package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/langchou/parkmeter/internal/fee"
	"github.com/langchou/parkmeter/internal/metrics"
	"github.com/langchou/parkmeter/internal/models"
	"github.com/langchou/parkmeter/internal/state"
)

// Tracker 车辆进出场会话跟踪
type Tracker struct {
	logger   *zap.Logger
	sessions SessionStore
	history  ParkingLog
	locker   state.Locker

	onStateChange func(plate, from, to string)
}

// NewTracker 创建会话跟踪器，history 可为 nil
func NewTracker(logger *zap.Logger, sessions SessionStore, history ParkingLog, locker state.Locker) *Tracker {
	t := &Tracker{
		logger:   logger,
		sessions: sessions,
		history:  history,
		locker:   locker,
	}
	t.onStateChange = t.logStateChange
	return t
}

// RecordEntry 记录入场
func (t *Tracker) RecordEntry(ctx context.Context, plate string, class models.VehicleClass, entryTime time.Time) (*models.Session, error) {
	var session *models.Session
	err := t.withPlate(ctx, plate, func(current *models.Session) error {
		var err error
		session, err = t.enter(ctx, current, plate, class, entryTime)
		return err
	})
	return session, err
}

// RecordExit 记录出场并计费
func (t *Tracker) RecordExit(ctx context.Context, plate string, exitTime time.Time, schedule *models.RateSchedule) (*models.FeeResult, error) {
	var result *models.FeeResult
	err := t.withPlate(ctx, plate, func(current *models.Session) error {
		var err error
		result, err = t.exit(ctx, current, plate, exitTime, schedule)
		return err
	})
	return result, err
}

// Lookup 查询车牌当前会话，不在场内返回 nil
func (t *Tracker) Lookup(ctx context.Context, plate string) (*models.Session, error) {
	if plate == "" {
		return nil, ErrMissingPlate
	}
	session, err := t.sessions.Get(ctx, plate)
	if err != nil {
		return nil, storeError("get session", err)
	}
	return session, nil
}

// List 列出所有场内会话
func (t *Tracker) List(ctx context.Context) ([]*models.Session, error) {
	sessions, err := t.sessions.List(ctx)
	if err != nil {
		return nil, storeError("list sessions", err)
	}
	return sessions, nil
}

// withPlate 在车牌锁内读取当前会话并执行 fn
func (t *Tracker) withPlate(ctx context.Context, plate string, fn func(current *models.Session) error) error {
	if plate == "" {
		return ErrMissingPlate
	}

	unlock, err := t.locker.Lock(ctx, plate)
	if err != nil {
		return storeError("lock plate", err)
	}
	defer unlock()

	current, err := t.sessions.Get(ctx, plate)
	if err != nil {
		return storeError("get session", err)
	}

	return fn(current)
}

// enter 入场状态转换，调用方需持有车牌锁
func (t *Tracker) enter(ctx context.Context, current *models.Session, plate string, class models.VehicleClass, entryTime time.Time) (*models.Session, error) {
	m := state.NewMachine(plate, current != nil, t.onStateChange)
	if !m.Can(state.EventEnter) {
		return nil, newError(KindPlateAlreadyInside, "plate "+plate+" entered at "+current.EntryTime.Format(time.RFC3339), nil)
	}

	session := &models.Session{
		ID:           newSessionID(),
		Plate:        plate,
		VehicleClass: class,
		EntryTime:    entryTime.UTC(),
	}
	if err := t.sessions.Put(ctx, session); err != nil {
		return nil, storeError("put session", err)
	}

	if err := m.Trigger(ctx, state.EventEnter); err != nil {
		t.logger.Warn("Failed to trigger enter event", zap.Error(err), zap.String("plate", plate))
	}
	metrics.Occupancy.Inc()
	return session, nil
}

// exit 出场状态转换，调用方需持有车牌锁
// 先写历史再删会话：删除失败时车辆仍在场内，重试安全。
func (t *Tracker) exit(ctx context.Context, current *models.Session, plate string, exitTime time.Time, schedule *models.RateSchedule) (*models.FeeResult, error) {
	m := state.NewMachine(plate, current != nil, t.onStateChange)
	if !m.Can(state.EventExit) {
		return nil, newError(KindPlateNotInside, "plate "+plate+" has no open session", nil)
	}
	if schedule == nil {
		return nil, newError(KindScheduleNotFound, "no rate schedule for "+current.VehicleClass.String(), nil)
	}

	exitTime = exitTime.UTC()
	amount := fee.Compute(current.EntryTime, exitTime, fee.Expand(schedule))

	if t.history != nil {
		record := &models.ParkingRecord{
			SessionID:    current.ID,
			Plate:        current.Plate,
			VehicleClass: current.VehicleClass,
			EntryTime:    current.EntryTime,
			ExitTime:     exitTime,
			DurationMin:  exitTime.Sub(current.EntryTime).Minutes(),
			Fee:          amount,
		}
		if err := t.history.Record(ctx, record); err != nil {
			return nil, storeError("record parking", err)
		}
	}

	if err := t.sessions.Delete(ctx, current.Plate); err != nil {
		return nil, storeError("delete session", err)
	}

	if err := m.Trigger(ctx, state.EventExit); err != nil {
		t.logger.Warn("Failed to trigger exit event", zap.Error(err), zap.String("plate", current.Plate))
	}
	metrics.Occupancy.Dec()
	metrics.Fees.WithLabelValues(current.VehicleClass.String()).Observe(amount)

	return &models.FeeResult{
		Plate:     current.Plate,
		Fee:       amount,
		EntryTime: current.EntryTime,
		ExitTime:  exitTime,
	}, nil
}

// logStateChange 状态变化日志
func (t *Tracker) logStateChange(plate, from, to string) {
	t.logger.Debug("Plate state changed", zap.String("plate", plate), zap.String("from", from), zap.String("to", to))
}

// newSessionID 生成会话 ID
func newSessionID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
