package state

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"
)

// 车牌状态常量
const (
	StateOutside = "outside"
	StateInside  = "inside"
)

// 事件常量
const (
	EventEnter = "enter"
	EventExit  = "exit"
)

// Machine 单个车牌的进出场状态机
// 状态由会话存储决定，每次处理事件时按存储内容重建。
type Machine struct {
	plate         string
	fsm           *fsm.FSM
	onStateChange func(plate, from, to string)
}

// NewMachine 创建状态机
func NewMachine(plate string, inside bool, onStateChange func(plate, from, to string)) *Machine {
	initialState := StateOutside
	if inside {
		initialState = StateInside
	}

	m := &Machine{
		plate:         plate,
		onStateChange: onStateChange,
	}

	m.fsm = fsm.NewFSM(
		initialState,
		fsm.Events{
			{Name: EventEnter, Src: []string{StateOutside}, Dst: StateInside},
			{Name: EventExit, Src: []string{StateInside}, Dst: StateOutside},
		},
		fsm.Callbacks{
			"after_event": func(ctx context.Context, e *fsm.Event) {
				if m.onStateChange != nil && e.Src != e.Dst {
					m.onStateChange(m.plate, e.Src, e.Dst)
				}
			},
		},
	)

	return m
}

// Current 获取当前状态
func (m *Machine) Current() string {
	return m.fsm.Current()
}

// Inside 是否在场内
func (m *Machine) Inside() bool {
	return m.fsm.Current() == StateInside
}

// Can 检查事件是否可触发
func (m *Machine) Can(event string) bool {
	return m.fsm.Can(event)
}

// Trigger 触发事件
func (m *Machine) Trigger(ctx context.Context, event string) error {
	if err := m.fsm.Event(ctx, event); err != nil {
		return fmt.Errorf("trigger event %s: %w", event, err)
	}
	return nil
}
