package etscan

import (
	"errors"
	"time"

	"go.uber.org/atomic"
)

// 错误定义
var (
	ErrInvalidSessionID = errors.New("session ID cannot be empty")
	ErrNilCandidate     = errors.New("upload candidate cannot be nil")
	ErrNilResult        = errors.New("analysis result cannot be nil")
	ErrStaleToken       = errors.New("request token superseded")
)

// Session 扫描会话聚合根
// 一个会话同一时刻只有一个有效分析请求，由 token 标识
type Session struct {
	ID          string
	State       WorkflowState
	Candidate   *UploadCandidate
	Result      *AnalysisResult
	Failure     *FailureInfo
	Notice      *Notice
	SubmittedAt time.Time // 最近一次被接受的提交时间
	CreatedAt   time.Time
	UpdatedAt   time.Time

	token     atomic.Uint64
	prevState WorkflowState // 进入 validating 前的状态，校验失败时回滚
}

// NewSession 创建空闲会话（工厂方法）
func NewSession(id string, now time.Time) (*Session, error) {
	if id == "" {
		return nil, ErrInvalidSessionID
	}
	return &Session{
		ID:        id,
		State:     StateIdle,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Token 当前请求令牌
func (s *Session) Token() uint64 {
	return s.token.Load()
}

// IsCurrent 判断 token 是否仍是当前有效请求
func (s *Session) IsCurrent(token uint64) bool {
	return token != 0 && s.token.Load() == token
}

// BeginValidation 开始校验新的候选文件
func (s *Session) BeginValidation(now time.Time) error {
	if !CanTransition(s.State, StateValidating) {
		return transitionError(s.State, StateValidating)
	}
	s.prevState = s.State
	s.State = StateValidating
	s.UpdatedAt = now
	return nil
}

// RejectCandidate 校验失败：回滚到校验前的状态，保留已有结果，挂上提示
func (s *Session) RejectCandidate(notice *Notice, now time.Time) error {
	if s.State != StateValidating {
		return transitionError(s.State, s.prevState)
	}
	s.State = s.prevState
	s.Notice = notice
	s.UpdatedAt = now
	return nil
}

// AcceptCandidate 校验通过：清空上次结果与错误，签发新的请求令牌
// 旧令牌随即失效，迟到的响应会被丢弃
func (s *Session) AcceptCandidate(candidate *UploadCandidate, now time.Time) (uint64, error) {
	if candidate == nil {
		return 0, ErrNilCandidate
	}
	if !CanTransition(s.State, StateSubmitted) {
		return 0, transitionError(s.State, StateSubmitted)
	}
	s.Candidate = candidate
	s.Result = nil
	s.Failure = nil
	s.Notice = nil
	s.State = StateSubmitted
	s.SubmittedAt = now
	s.UpdatedAt = now
	return s.token.Inc(), nil
}

// MarkAwaiting 请求已发出，等待结果
func (s *Session) MarkAwaiting(token uint64, now time.Time) error {
	if !s.IsCurrent(token) {
		return ErrStaleToken
	}
	if !CanTransition(s.State, StateAwaitingResult) {
		return transitionError(s.State, StateAwaitingResult)
	}
	s.State = StateAwaitingResult
	s.UpdatedAt = now
	return nil
}

// Succeed 记录分析结果
func (s *Session) Succeed(token uint64, result *AnalysisResult, now time.Time) error {
	if result == nil {
		return ErrNilResult
	}
	if !s.IsCurrent(token) {
		return ErrStaleToken
	}
	if !CanTransition(s.State, StateSucceeded) {
		return transitionError(s.State, StateSucceeded)
	}
	s.State = StateSucceeded
	s.Result = result
	s.Failure = nil
	s.UpdatedAt = now
	return nil
}

// Fail 记录失败信息，nil 时使用兜底文案
func (s *Session) Fail(token uint64, failure *FailureInfo, now time.Time) error {
	if !s.IsCurrent(token) {
		return ErrStaleToken
	}
	if !CanTransition(s.State, StateFailed) {
		return transitionError(s.State, StateFailed)
	}
	if failure == nil || failure.Message == "" {
		code := ""
		if failure != nil {
			code = failure.Code
		}
		failure = NewFailure("", code)
	}
	s.State = StateFailed
	s.Failure = failure
	s.Result = nil
	s.UpdatedAt = now
	return nil
}

// Reset 回到 idle，清空结果、错误与候选文件，使在途请求失效
// 幂等：重复调用结果一致
func (s *Session) Reset(now time.Time) {
	if s.State.IsInFlight() {
		s.token.Inc()
	}
	s.State = StateIdle
	s.Candidate = nil
	s.Result = nil
	s.Failure = nil
	s.Notice = nil
	s.SubmittedAt = time.Time{}
	s.UpdatedAt = now
}

// ActiveNotice 返回 now 时刻仍可见的提示，过期后自动清除
func (s *Session) ActiveNotice(now time.Time) *Notice {
	if s.Notice.Active(now) {
		return s.Notice
	}
	s.Notice = nil
	return nil
}

// Snapshot 会话只读快照
type Snapshot struct {
	ID          string
	State       WorkflowState
	Token       uint64
	HasPreview  bool
	Filename    string
	Result      *AnalysisResult
	Failure     *FailureInfo
	Notice      *Notice
	SubmittedAt time.Time
	UpdatedAt   time.Time
}

// Snapshot 生成快照，供锁外读取
func (s *Session) Snapshot(now time.Time) Snapshot {
	snap := Snapshot{
		ID:          s.ID,
		State:       s.State,
		Token:       s.Token(),
		Result:      s.Result,
		Failure:     s.Failure,
		Notice:      s.ActiveNotice(now),
		SubmittedAt: s.SubmittedAt,
		UpdatedAt:   s.UpdatedAt,
	}
	if s.Candidate != nil {
		snap.HasPreview = s.Candidate.PreviewURI != ""
		snap.Filename = s.Candidate.Filename
	}
	return snap
}
