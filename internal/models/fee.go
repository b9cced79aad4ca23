package models

import (
	"errors"
	"time"
)

// RateSchedule 每小时费率 (按星期)
type RateSchedule struct {
	VehicleClass VehicleClass `json:"type" db:"type"`
	WeekdayRate  float64      `json:"weekday_rate" db:"weekday_rate"` // 周一至周四
	FridayRate   float64      `json:"friday_rate" db:"friday_rate"`
	SaturdayRate float64      `json:"saturday_rate" db:"saturday_rate"`
	SundayRate   float64      `json:"sunday_rate" db:"sunday_rate"`
	UpdatedAt    time.Time    `json:"updated_at" db:"updated_at"`
}

var ErrNegativeRate = errors.New("rates must be non-negative")

// Validate 校验费率非负
func (s *RateSchedule) Validate() error {
	if s.WeekdayRate < 0 || s.FridayRate < 0 || s.SaturdayRate < 0 || s.SundayRate < 0 {
		return ErrNegativeRate
	}
	return nil
}

// DefaultRateSchedules 空表时写入的默认费率
func DefaultRateSchedules() []RateSchedule {
	return []RateSchedule{
		{VehicleClass: ClassMotorcycle, WeekdayRate: 0.5, FridayRate: 1.5, SaturdayRate: 2, SundayRate: 0},
		{VehicleClass: ClassCar, WeekdayRate: 1, FridayRate: 2, SaturdayRate: 4, SundayRate: 0},
		{VehicleClass: ClassTruck, WeekdayRate: 2, FridayRate: 3.5, SaturdayRate: 5, SundayRate: 0},
	}
}
