package svscan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/domains/entity/etscan"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/domains/modules/mdanalysis"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/domains/modules/mdintake"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/domains/modules/mdnotify"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/domains/modules/mdprogress"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/domains/modules/mdreport"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/domains/repo/rpscan"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/pkg/errorx"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/pkg/idgen"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/pkg/logger"
)

const publishTimeout = 2 * time.Second

// ErrServiceClosed 服务已关闭
var ErrServiceClosed = errors.New("scan service closed")

// Modules 扫描服务依赖的模块
type Modules struct {
	Intake   *mdintake.IntakeModule
	Previews *mdintake.PreviewRegistry
	Analysis *mdanalysis.AnalysisModule
	Progress *mdprogress.ProgressModule
	Notifier mdnotify.Notifier
	Report   *mdreport.ReportModule
	Repo     rpscan.ScanRepository
	Logger   logger.Logger
}

// sessionEntry 会话及其在途请求
type sessionEntry struct {
	mu      sync.Mutex
	session *etscan.Session
	cancel  context.CancelFunc // 在途请求的中止句柄
	evicted bool               // 已被 Sweep 清理，持有旧引用的调用方需视为不存在
}

// ScanService 扫描服务，负责单会话分析流程编排
// 每个会话同一时刻只有一个有效分析请求，新提交或重置会中止旧请求
type ScanService struct {
	intake   *mdintake.IntakeModule
	previews *mdintake.PreviewRegistry
	analysis *mdanalysis.AnalysisModule
	progress *mdprogress.ProgressModule
	notifier mdnotify.Notifier
	report   *mdreport.ReportModule
	repo     rpscan.ScanRepository
	logger   logger.Logger

	mu       sync.RWMutex
	sessions map[string]*sessionEntry

	baseCtx    context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup
	now        func() time.Time
}

// NewScanService 创建扫描服务实例
func NewScanService(m Modules) *ScanService {
	if m.Logger == nil {
		m.Logger = logger.NewNop()
	}
	if m.Previews == nil {
		m.Previews = mdintake.NewPreviewRegistry()
	}
	if m.Notifier == nil {
		m.Notifier = mdnotify.NewMemoryNotifier()
	}
	if m.Repo == nil {
		m.Repo = rpscan.NewMemoryScanRepository()
	}
	if m.Report == nil {
		m.Report = mdreport.NewReportModule(nil, "")
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &ScanService{
		intake:     m.Intake,
		previews:   m.Previews,
		analysis:   m.Analysis,
		progress:   m.Progress,
		notifier:   m.Notifier,
		report:     m.Report,
		repo:       m.Repo,
		logger:     m.Logger,
		sessions:   make(map[string]*sessionEntry),
		baseCtx:    ctx,
		baseCancel: cancel,
		now:        time.Now,
	}
}

// CreateSession 创建空闲会话
func (s *ScanService) CreateSession(ctx context.Context) (etscan.Snapshot, error) {
	now := s.now()
	session, err := etscan.NewSession(uuid.New().String(), now)
	if err != nil {
		return etscan.Snapshot{}, fmt.Errorf("create session entity failed: %w", err)
	}

	s.mu.Lock()
	s.sessions[session.ID] = &sessionEntry{session: session}
	s.mu.Unlock()

	s.logger.Infof(logger.WithSessionID(ctx, session.ID), "session created")
	return session.Snapshot(now), nil
}

// Get 查询会话快照
func (s *ScanService) Get(_ context.Context, sessionID string) (etscan.Snapshot, error) {
	entry, err := s.lockEntry(sessionID)
	if err != nil {
		return etscan.Snapshot{}, err
	}
	defer entry.mu.Unlock()
	return entry.session.Snapshot(s.now()), nil
}

// SubmitResult 提交结果
type SubmitResult struct {
	Snapshot etscan.Snapshot
	Settled  bool // smart wait 期间已得出结论
}

// Submit 提交新文件（完整业务流程）
// 1. 进入 validating
// 2. 校验失败：回滚状态并挂上限时提示，不发起网络请求
// 3. 校验通过：清空旧结果，替换预览，签发新令牌并中止旧请求
// 4. 后台发起分析请求
// 5. Smart Wait（wait > 0 时等待结算）
func (s *ScanService) Submit(ctx context.Context, sessionID string, upload *mdintake.Upload, wait time.Duration, rejectWhileBusy bool) (*SubmitResult, error) {
	if s.baseCtx.Err() != nil {
		return nil, ErrServiceClosed
	}
	entry, err := s.entry(sessionID)
	if err != nil {
		return nil, err
	}
	return s.submit(logger.WithSessionID(ctx, sessionID), entry, upload, wait, rejectWhileBusy)
}

func (s *ScanService) submit(ctx context.Context, entry *sessionEntry, upload *mdintake.Upload, wait time.Duration, rejectWhileBusy bool) (*SubmitResult, error) {
	entry.mu.Lock()
	if entry.evicted {
		entry.mu.Unlock()
		return nil, errorx.ErrSessionNotFound
	}
	session := entry.session
	sessionID := session.ID
	if rejectWhileBusy && session.State.IsInFlight() {
		entry.mu.Unlock()
		return nil, errorx.ErrSessionBusy
	}

	// 1. 进入 validating
	now := s.now()
	if err := session.BeginValidation(now); err != nil {
		entry.mu.Unlock()
		return nil, err
	}

	// 2. 校验失败：只有 RejectionError 挂提示，读取失败等内部错误直接回滚
	candidate, err := s.intake.Accept(upload)
	if err != nil {
		var rej *mdintake.RejectionError
		if !errors.As(err, &rej) {
			_ = session.RejectCandidate(nil, now)
			entry.mu.Unlock()
			s.logger.Errorf(ctx, "accept upload failed: %v", err)
			return nil, err
		}
		notice := s.intake.NewNotice(err, now)
		_ = session.RejectCandidate(notice, now)
		snap := session.Snapshot(now)
		entry.mu.Unlock()

		s.logger.Infof(ctx, "upload rejected: code=%s, message=%s", notice.Code, notice.Message)
		return &SubmitResult{Snapshot: snap}, err
	}

	// 3. 校验通过
	token, err := session.AcceptCandidate(candidate, now)
	if err != nil {
		entry.mu.Unlock()
		return nil, err
	}
	if s.previews.Put(sessionID, candidate.PreviewURI) {
		s.logger.Debugf(ctx, "superseded preview released")
	}
	if entry.cancel != nil {
		entry.cancel()
	}
	callCtx, cancel := context.WithCancel(logger.WithSessionID(s.baseCtx, sessionID))
	done := make(chan struct{})
	entry.cancel = cancel
	snap := session.Snapshot(now)
	entry.mu.Unlock()

	s.publish(sessionID, etscan.StateSubmitted, token, "")
	s.logger.Infof(ctx, "upload accepted: file=%s, size=%d, token=%d", candidate.Filename, candidate.Size, token)

	// 4. 后台发起分析请求
	s.wg.Add(1)
	go s.run(callCtx, cancel, entry, token, candidate, done)

	// 5. Smart Wait
	if wait <= 0 {
		return &SubmitResult{Snapshot: snap}, nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
	case <-ctx.Done():
	}

	entry.mu.Lock()
	snap = entry.session.Snapshot(s.now())
	entry.mu.Unlock()
	settled := snap.Token == token && snap.State.IsSettled()
	return &SubmitResult{Snapshot: snap, Settled: settled}, nil
}

// run 执行一次分析请求，结算时令牌已失效则丢弃结果
func (s *ScanService) run(ctx context.Context, cancel context.CancelFunc, entry *sessionEntry, token uint64, candidate *etscan.UploadCandidate, done chan struct{}) {
	defer s.wg.Done()
	defer close(done)
	defer cancel()

	sessionID := entry.session.ID

	entry.mu.Lock()
	if err := entry.session.MarkAwaiting(token, s.now()); err != nil {
		entry.mu.Unlock()
		s.logger.Debugf(ctx, "skip superseded request: token=%d, err=%v", token, err)
		return
	}
	entry.mu.Unlock()
	s.publish(sessionID, etscan.StateAwaitingResult, token, "")

	result, failure := s.analysis.Analyze(ctx, candidate)

	entry.mu.Lock()
	now := s.now()
	if !entry.session.IsCurrent(token) {
		entry.mu.Unlock()
		s.logger.Infof(ctx, "discard superseded response: token=%d", token)
		return
	}

	var (
		record *etscan.ScanRecord
		state  etscan.WorkflowState
		scanID string
	)
	if result != nil {
		// 记录 ID 始终本地生成，分析服务的 ID 只保留在 BackendScanID
		result.ScanID = idgen.GenerateScanID()
		scanID = result.ScanID
		if err := entry.session.Succeed(token, result, now); err != nil {
			failure = etscan.NewFailure("", errorx.CodeUnknown)
			result = nil
		} else {
			state = etscan.StateSucceeded
			record, _ = etscan.NewScanRecord(scanID, sessionID, candidate.Filename, result, now)
		}
	}
	if result == nil {
		if err := entry.session.Fail(token, failure, now); err != nil {
			entry.mu.Unlock()
			s.logger.Warnf(ctx, "settle failed: token=%d, err=%v", token, err)
			return
		}
		state = etscan.StateFailed
		scanID = ""
	}
	// 原始字节不再需要，只保留预览
	candidate.Data = nil
	entry.mu.Unlock()

	if record != nil {
		if err := s.repo.Create(s.baseCtx, record); err != nil {
			// 保存失败只记录日志，不影响本次结果展示
			s.logger.Errorf(ctx, "persist scan record failed: scan_id=%s, err=%v", record.ID, err)
		}
	}
	s.publish(sessionID, state, token, scanID)
}

// Reset 回到 idle，中止在途请求并释放预览（幂等）
func (s *ScanService) Reset(ctx context.Context, sessionID string) (etscan.Snapshot, error) {
	entry, err := s.lockEntry(sessionID)
	if err != nil {
		return etscan.Snapshot{}, err
	}

	wasIdle := entry.session.State == etscan.StateIdle
	if entry.cancel != nil {
		entry.cancel()
		entry.cancel = nil
	}
	now := s.now()
	entry.session.Reset(now)
	s.previews.Release(sessionID)
	snap := entry.session.Snapshot(now)
	entry.mu.Unlock()

	if !wasIdle {
		s.publish(sessionID, etscan.StateIdle, snap.Token, "")
		s.logger.Infof(logger.WithSessionID(ctx, sessionID), "session reset")
	}
	return snap, nil
}

// Progress 查询阶段进度
func (s *ScanService) Progress(_ context.Context, sessionID string) (mdprogress.Progress, error) {
	entry, err := s.lockEntry(sessionID)
	if err != nil {
		return mdprogress.Progress{}, err
	}
	state, submittedAt := entry.session.State, entry.session.SubmittedAt
	entry.mu.Unlock()
	return s.progress.Snapshot(state, submittedAt, s.now()), nil
}

// Preview 读取当前预览 data URI
func (s *ScanService) Preview(_ context.Context, sessionID string) (string, error) {
	if _, err := s.entry(sessionID); err != nil {
		return "", err
	}
	uri, ok := s.previews.Get(sessionID)
	if !ok {
		return "", errorx.ErrNoCandidate
	}
	return uri, nil
}

// Watch 长轮询：等待下一次状态变化，超时返回当前快照
func (s *ScanService) Watch(ctx context.Context, sessionID string, timeout time.Duration) (etscan.Snapshot, bool, error) {
	if _, err := s.entry(sessionID); err != nil {
		return etscan.Snapshot{}, false, err
	}

	_, err := s.notifier.Await(ctx, sessionID, timeout)
	changed := err == nil
	if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
		s.logger.Warnf(logger.WithSessionID(ctx, sessionID), "await state event failed: %v", err)
	}

	snap, getErr := s.Get(ctx, sessionID)
	return snap, changed, getErr
}

// Sweep 清理长时间无变化的空闲会话，返回清理数量
// 在途会话不会被清理；判定与清理在同一把会话锁内完成
func (s *ScanService) Sweep(maxIdle time.Duration) int {
	now := s.now()
	swept := 0

	s.mu.Lock()
	for id, entry := range s.sessions {
		entry.mu.Lock()
		if !entry.session.State.IsInFlight() && now.Sub(entry.session.UpdatedAt) > maxIdle {
			entry.evicted = true
			delete(s.sessions, id)
			s.previews.Release(id)
			swept++
		}
		entry.mu.Unlock()
	}
	s.mu.Unlock()

	if swept == 0 {
		return 0
	}
	s.logger.Infof(context.Background(), "swept idle sessions: count=%d", swept)
	return swept
}

// Count 当前会话数量
func (s *ScanService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// History 分页查询扫描历史
func (s *ScanService) History(ctx context.Context, page, limit int) ([]*etscan.ScanRecord, int64, error) {
	return s.repo.List(ctx, page, limit)
}

// GetScan 查询单条扫描记录
func (s *ScanService) GetScan(ctx context.Context, scanID string) (*etscan.ScanRecord, error) {
	return s.repo.GetByID(ctx, scanID)
}

// RequestReport 投递报告导出任务
func (s *ScanService) RequestReport(ctx context.Context, scanID string) (string, error) {
	if !s.report.Enabled() {
		return "", errorx.ErrReportDisabled
	}
	if _, err := s.repo.GetByID(ctx, scanID); err != nil {
		return "", err
	}

	requestID, err := s.report.Enqueue(ctx, scanID)
	if err != nil {
		return "", fmt.Errorf("enqueue report job failed: %w", err)
	}
	s.logger.Infof(logger.WithScanID(ctx, scanID), "report job enqueued: request_id=%s", requestID)
	return requestID, nil
}

// Close 中止所有在途请求并等待退出
func (s *ScanService) Close() {
	s.baseCancel()
	s.wg.Wait()
}

func (s *ScanService) entry(sessionID string) (*sessionEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.sessions[sessionID]
	if !ok {
		return nil, errorx.ErrSessionNotFound
	}
	return entry, nil
}

// lockEntry 查找会话并持有会话锁，已清理的会话视为不存在
func (s *ScanService) lockEntry(sessionID string) (*sessionEntry, error) {
	entry, err := s.entry(sessionID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	if entry.evicted {
		entry.mu.Unlock()
		return nil, errorx.ErrSessionNotFound
	}
	return entry, nil
}

func (s *ScanService) publish(sessionID string, state etscan.WorkflowState, token uint64, scanID string) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	event := &mdnotify.StateEvent{
		SessionID: sessionID,
		State:     state,
		Token:     token,
		ScanID:    scanID,
		At:        s.now(),
	}
	if err := s.notifier.Publish(ctx, event); err != nil {
		// 通知失败只记录日志，不影响流程
		s.logger.Warnf(logger.WithSessionID(ctx, sessionID), "publish state event failed: state=%s, err=%v", state, err)
	}
}
