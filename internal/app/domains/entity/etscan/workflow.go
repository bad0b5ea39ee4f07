package etscan

import (
	"errors"
	"fmt"
)

// WorkflowState 扫描流程状态，同一时刻只有一个有效状态
type WorkflowState string

const (
	StateIdle           WorkflowState = "idle"
	StateValidating     WorkflowState = "validating"
	StateSubmitted      WorkflowState = "submitted"
	StateAwaitingResult WorkflowState = "awaiting-result"
	StateSucceeded      WorkflowState = "succeeded"
	StateFailed         WorkflowState = "failed"
)

// ErrInvalidTransition 非法状态迁移
var ErrInvalidTransition = errors.New("invalid workflow transition")

// transitions 合法迁移表
// reset（任意状态 → idle）与校验失败回滚（validating → 上一个状态）单独处理
var transitions = map[WorkflowState][]WorkflowState{
	StateIdle:           {StateValidating},
	StateValidating:     {StateSubmitted},
	StateSubmitted:      {StateAwaitingResult, StateValidating},
	StateAwaitingResult: {StateSucceeded, StateFailed, StateValidating},
	StateSucceeded:      {StateValidating},
	StateFailed:         {StateValidating},
}

// CanTransition 判断 from → to 是否合法
func CanTransition(from, to WorkflowState) bool {
	if to == StateIdle {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsInFlight 是否有分析请求在途
func (s WorkflowState) IsInFlight() bool {
	return s == StateSubmitted || s == StateAwaitingResult
}

// IsSettled 是否已得出结论
func (s WorkflowState) IsSettled() bool {
	return s == StateSucceeded || s == StateFailed
}

// Valid 是否为已知状态
func (s WorkflowState) Valid() bool {
	_, ok := transitions[s]
	return ok
}

func transitionError(from, to WorkflowState) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}
