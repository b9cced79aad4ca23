package models

import "time"

// Session 场内车辆 (未出场)
type Session struct {
	ID           string       `json:"id" db:"id"`
	Plate        string       `json:"plate" db:"plate"`
	VehicleClass VehicleClass `json:"type" db:"type"`
	EntryTime    time.Time    `json:"entry_time" db:"entry_time"`
}

// ParkingRecord 已完成的停车记录
type ParkingRecord struct {
	SessionID    string       `json:"session_id" db:"session_id"`
	Plate        string       `json:"plate" db:"plate"`
	VehicleClass VehicleClass `json:"type" db:"type"`
	EntryTime    time.Time    `json:"entry_time" db:"entry_time"`
	ExitTime     time.Time    `json:"exit_time" db:"exit_time"`
	DurationMin  float64      `json:"duration_min" db:"duration_min"`
	Fee          float64      `json:"fee" db:"fee"`
}

// FeeResult 出场计费结果
type FeeResult struct {
	Plate     string    `json:"plate"`
	Fee       float64   `json:"fee"`
	EntryTime time.Time `json:"entry_time"`
	ExitTime  time.Time `json:"exit_time"`
}
