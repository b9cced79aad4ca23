package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// 闸口结果状态
const (
	StatusEntered = "entered"
	StatusExited  = "exited"
)

// Timestamp 原始时间戳 (ISO-8601 字符串、毫秒字符串或 JSON 数字)
type Timestamp string

// UnmarshalJSON 同时接受字符串和数字
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Timestamp(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("timestamp must be a string or number: %w", err)
	}
	*t = Timestamp(n.String())
	return nil
}

// 可接受的时间格式，无时区时按 UTC 处理
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// 毫秒时间戳的有效范围: 1970-01-01 至 9999-12-31
var maxUnixMilli = time.Date(9999, time.December, 31, 23, 59, 59, 999e6, time.UTC).UnixMilli()

func fromUnixMilli(ms int64) (time.Time, error) {
	if ms < 0 || ms > maxUnixMilli {
		return time.Time{}, fmt.Errorf("epoch millis %d out of range", ms)
	}
	return time.UnixMilli(ms).UTC(), nil
}

// Parse 解析时间戳，纯数字视为 Unix 毫秒
func (t Timestamp) Parse() (time.Time, error) {
	raw := strings.TrimSpace(string(t))
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return fromUnixMilli(ms)
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		if math.IsNaN(f) || f < 0 || f > float64(maxUnixMilli) {
			return time.Time{}, fmt.Errorf("epoch millis %q out of range", raw)
		}
		return fromUnixMilli(int64(f))
	}

	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp %q", raw)
}

// GateEvent 闸口识别事件 (摄像头/OCR)
type GateEvent struct {
	Plate     string    `json:"plate"`
	Type      string    `json:"type"`                // 原始车型, 如 Sedan / Bus
	Timestamp Timestamp `json:"timestamp,omitempty"`
	EntryTime Timestamp `json:"entryTime,omitempty"` // 旧版字段名
}

// RawTimestamp 返回事件时间，优先 timestamp 字段
func (e *GateEvent) RawTimestamp() Timestamp {
	if e.Timestamp != "" {
		return e.Timestamp
	}
	return e.EntryTime
}

// GateResult 闸口处理结果
type GateResult struct {
	Plate        string       `json:"plate"`
	Status       string       `json:"status"`
	VehicleClass VehicleClass `json:"type"`
	Fee          *float64     `json:"fee,omitempty"`
	EntryTime    time.Time    `json:"entry_time"`
	ExitTime     *time.Time   `json:"exit_time,omitempty"`
}
