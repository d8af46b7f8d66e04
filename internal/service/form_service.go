package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"k8s.io/utils/clock"

	"github.com/DEV-OpenSCI/desci-form/config"
	"github.com/DEV-OpenSCI/desci-form/internal/dto"
	"github.com/DEV-OpenSCI/desci-form/internal/form"
	"github.com/DEV-OpenSCI/desci-form/internal/model"
	"github.com/DEV-OpenSCI/desci-form/internal/repository"
	"github.com/DEV-OpenSCI/desci-form/pkg/logger"
	"github.com/DEV-OpenSCI/desci-form/pkg/metrics"
)

// ErrFormBusy 同一会话已有前进/提交请求在处理中
var ErrFormBusy = errors.New("操作进行中，请勿重复提交")

// FormService 表单会话：每个会话独占一个步骤控制器
type FormService interface {
	// Start 开始或重新开始填写；test=true 时以示例数据预填
	Start(ctx context.Context, sessionID string, test bool) (*dto.FormResponse, error)
	// Get 当前状态与草稿；进程重启后从快照恢复
	Get(ctx context.Context, sessionID string) (*dto.FormResponse, error)

	SetField(ctx context.Context, sessionID, path string, value interface{}) (*dto.FormResponse, error)
	AppendMember(ctx context.Context, sessionID string) (int, error)
	RemoveMember(ctx context.Context, sessionID string, index int) error
	AppendBudgetItem(ctx context.Context, sessionID string) (int, error)
	RemoveBudgetItem(ctx context.Context, sessionID string, index int) error

	// Next/GoTo 校验失败时返回错误树，步骤不变
	Next(ctx context.Context, sessionID string) (*dto.FormResponse, *form.ErrorTree, error)
	Prev(ctx context.Context, sessionID string) (*dto.FormResponse, error)
	GoTo(ctx context.Context, sessionID string, index int) (*dto.FormResponse, *form.ErrorTree, error)
	// Submit 整份校验后提交；校验失败返回错误树与跳回首个错误步骤后的状态
	Submit(ctx context.Context, sessionID string) (*dto.SubmitResponse, *form.ErrorTree, error)

	UploadResume(ctx context.Context, sessionID string, index int, file UploadFile) (*dto.ResumeUploadResponse, error)
	ParseDocument(ctx context.Context, sessionID string, file UploadFile, docType, language string) (*dto.ParseDocumentResponse, error)

	// Snapshot 草稿副本与状态（导出使用）
	Snapshot(ctx context.Context, sessionID string) (*model.ApplicationDraft, form.State, error)
	// Discard 丢弃会话的控制器与草稿快照（登出时调用）
	Discard(ctx context.Context, sessionID string) error
	// Close 停止所有控制器（进程退出时调用）
	Close()
}

// formSession 单个会话的控制器及其填写码
type formSession struct {
	ctrl     *form.Controller
	access   *model.AccessSession
	inflight atomic.Bool
}

type formService struct {
	cfg        *config.FormConfig
	repo       *repository.Repository
	validator  *form.Validator
	fillCode   FillCodeService
	submission SubmissionService
	upload     UploadService
	options    OptionService
	clock      clock.WithTicker
	logger     *zap.Logger

	mu       sync.Mutex
	sessions map[string]*formSession
}

// NewFormService 创建 FormService 实例；clk 为 nil 时使用真实时钟
func NewFormService(
	cfg *config.FormConfig,
	repo *repository.Repository,
	validator *form.Validator,
	fillCode FillCodeService,
	submission SubmissionService,
	upload UploadService,
	options OptionService,
	clk clock.WithTicker,
	logger *zap.Logger,
) FormService {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &formService{
		cfg:        cfg,
		repo:       repo,
		validator:  validator,
		fillCode:   fillCode,
		submission: submission,
		upload:     upload,
		options:    options,
		clock:      clk,
		logger:     logger,
		sessions:   make(map[string]*formSession),
	}
}

// ── 会话注册表 ──

// session 取得会话控制器；不存在时校验填写码并从快照恢复
func (s *formService) session(ctx context.Context, sessionID string) (*formSession, error) {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if ok {
		return sess, nil
	}

	access, err := s.fillCode.Current(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	opts := []form.ControllerOption{}
	snap, err := s.repo.Session.GetDraft(ctx, sessionID)
	switch {
	case err == nil && snap.Draft != nil:
		opts = append(opts, form.WithDraft(snap.Draft), form.AtStep(form.Step(snap.CurrentIndex)))
	case err != nil && !errors.Is(err, repository.ErrSessionNotFound):
		s.logger.Warn("读取草稿快照失败，使用空白草稿", zap.String("session_id", sessionID), zap.Error(err))
	}

	created := s.newSession(sessionID, access, opts...)

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[sessionID]; ok {
		created.ctrl.Close()
		return existing, nil
	}
	s.sessions[sessionID] = created
	metrics.SetActiveSessions(len(s.sessions))
	return created, nil
}

func (s *formService) newSession(sessionID string, access *model.AccessSession, extra ...form.ControllerOption) *formSession {
	sess := &formSession{access: access}
	submitter := form.SubmitterFunc(func(ctx context.Context, d *model.ApplicationDraft) (string, error) {
		return s.submission.Submit(ctx, sessionID, access, d)
	})

	opts := []form.ControllerOption{
		form.WithClock(s.clock),
		form.WithCountdown(s.cfg.CountdownSeconds, s.cfg.CountdownPeriod),
		form.OnExpire(func() { s.expire(sessionID, sess) }),
	}
	opts = append(opts, extra...)
	sess.ctrl = form.NewController(s.validator.ForLocale(access.PreferredLocale()), submitter, opts...)
	return sess
}

// expire 倒计时归零：清除填写码与草稿，释放控制器
func (s *formService) expire(sessionID string, sess *formSession) {
	ctx := context.Background()
	log := logger.WithSession(s.logger, sessionID)
	if err := s.fillCode.Clear(ctx, sessionID); err != nil {
		log.Warn("倒计时结束清除填写码失败", zap.Error(err))
	}
	if err := s.repo.Session.DeleteDraft(ctx, sessionID); err != nil {
		log.Warn("倒计时结束清除草稿失败", zap.Error(err))
	}
	s.drop(sessionID, sess)
	log.Info("提交后倒计时结束，会话已清除")
}

// drop 移除注册表中的会话；sess 非空时仅当仍是同一会话才移除
func (s *formService) drop(sessionID string, sess *formSession) {
	s.mu.Lock()
	cur, ok := s.sessions[sessionID]
	if !ok || (sess != nil && cur != sess) {
		s.mu.Unlock()
		return
	}
	delete(s.sessions, sessionID)
	metrics.SetActiveSessions(len(s.sessions))
	s.mu.Unlock()
	cur.ctrl.Close()
}

// persist 保存草稿快照，失败只记录日志
func (s *formService) persist(ctx context.Context, sessionID string, sess *formSession) {
	snap := &model.DraftSnapshot{
		Draft:        sess.ctrl.Draft(),
		CurrentIndex: int(sess.ctrl.State().CurrentIndex),
		UpdatedAt:    s.clock.Now(),
	}
	if err := s.repo.Session.SaveDraft(ctx, sessionID, snap); err != nil {
		s.logger.Warn("保存草稿快照失败", zap.String("session_id", sessionID), zap.Error(err))
	}
}

func (s *formService) respond(sess *formSession) *dto.FormResponse {
	return &dto.FormResponse{
		State:  sess.ctrl.State(),
		Draft:  sess.ctrl.Draft(),
		Totals: sess.ctrl.Totals(),
	}
}

// ── 生命周期 ──

func (s *formService) Start(ctx context.Context, sessionID string, test bool) (*dto.FormResponse, error) {
	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	sess.ctrl.Reset()
	if test {
		if err := sess.ctrl.Replace(form.ExampleDraft(s.clock.Now())); err != nil {
			return nil, err
		}
	}
	s.options.Warm(ctx, sess.access)
	s.persist(ctx, sessionID, sess)

	logger.WithSession(s.logger, sessionID).Info("开始填写申请", zap.Bool("test", test))
	return s.respond(sess), nil
}

func (s *formService) Get(ctx context.Context, sessionID string) (*dto.FormResponse, error) {
	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.respond(sess), nil
}

func (s *formService) Snapshot(ctx context.Context, sessionID string) (*model.ApplicationDraft, form.State, error) {
	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, form.State{}, err
	}
	return sess.ctrl.Draft(), sess.ctrl.State(), nil
}

func (s *formService) Discard(ctx context.Context, sessionID string) error {
	s.drop(sessionID, nil)
	return s.repo.Session.DeleteDraft(ctx, sessionID)
}

func (s *formService) Close() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*formSession)
	metrics.SetActiveSessions(0)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.ctrl.Close()
	}
}

// ── 草稿编辑 ──

func (s *formService) SetField(ctx context.Context, sessionID, path string, value interface{}) (*dto.FormResponse, error) {
	p, err := form.ParsePath(path)
	if err != nil {
		return nil, err
	}
	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.ctrl.Set(p, value); err != nil {
		return nil, err
	}
	s.persist(ctx, sessionID, sess)
	return s.respond(sess), nil
}

func (s *formService) AppendMember(ctx context.Context, sessionID string) (int, error) {
	return s.appendTo(ctx, sessionID, (*form.Controller).AppendMember)
}

func (s *formService) AppendBudgetItem(ctx context.Context, sessionID string) (int, error) {
	return s.appendTo(ctx, sessionID, (*form.Controller).AppendBudgetItem)
}

func (s *formService) appendTo(ctx context.Context, sessionID string, fn func(*form.Controller) (int, error)) (int, error) {
	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	i, err := fn(sess.ctrl)
	if err != nil {
		return 0, err
	}
	s.persist(ctx, sessionID, sess)
	return i, nil
}

func (s *formService) RemoveMember(ctx context.Context, sessionID string, index int) error {
	return s.removeFrom(ctx, sessionID, index, (*form.Controller).RemoveMember)
}

func (s *formService) RemoveBudgetItem(ctx context.Context, sessionID string, index int) error {
	return s.removeFrom(ctx, sessionID, index, (*form.Controller).RemoveBudgetItem)
}

func (s *formService) removeFrom(ctx context.Context, sessionID string, index int, fn func(*form.Controller, int) error) error {
	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := fn(sess.ctrl, index); err != nil {
		return err
	}
	s.persist(ctx, sessionID, sess)
	return nil
}

// ── 步骤导航 ──

func (s *formService) Next(ctx context.Context, sessionID string) (*dto.FormResponse, *form.ErrorTree, error) {
	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if !sess.inflight.CompareAndSwap(false, true) {
		return nil, nil, ErrFormBusy
	}
	defer sess.inflight.Store(false)

	errs, err := sess.ctrl.GoNext()
	metrics.RecordStep("next", stepResult(errs, err))
	if err != nil {
		return nil, nil, err
	}
	s.persist(ctx, sessionID, sess)
	return s.respond(sess), errs, nil
}

func (s *formService) Prev(ctx context.Context, sessionID string) (*dto.FormResponse, error) {
	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	err = sess.ctrl.GoPrev()
	metrics.RecordStep("prev", stepResult(nil, err))
	if err != nil {
		return nil, err
	}
	s.persist(ctx, sessionID, sess)
	return s.respond(sess), nil
}

func (s *formService) GoTo(ctx context.Context, sessionID string, index int) (*dto.FormResponse, *form.ErrorTree, error) {
	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if !sess.inflight.CompareAndSwap(false, true) {
		return nil, nil, ErrFormBusy
	}
	defer sess.inflight.Store(false)

	errs, err := sess.ctrl.GoTo(form.Step(index))
	metrics.RecordStep("goto", stepResult(errs, err))
	if err != nil {
		return nil, nil, err
	}
	s.persist(ctx, sessionID, sess)
	return s.respond(sess), errs, nil
}

// ── 提交 ──

func (s *formService) Submit(ctx context.Context, sessionID string) (*dto.SubmitResponse, *form.ErrorTree, error) {
	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if !sess.inflight.CompareAndSwap(false, true) {
		return nil, nil, ErrFormBusy
	}
	defer sess.inflight.Store(false)

	log := logger.WithSession(s.logger, sessionID)
	start := time.Now()
	errs, err := sess.ctrl.Submit(ctx)
	switch {
	case err != nil:
		log.Warn("提交失败", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return nil, nil, err
	case errs != nil:
		metrics.RecordSubmission("invalid")
		s.persist(ctx, sessionID, sess)
		return &dto.SubmitResponse{State: sess.ctrl.State()}, errs, nil
	}

	// 已提交的草稿不再恢复，避免重启后重复提交
	if err := s.repo.Session.DeleteDraft(ctx, sessionID); err != nil {
		log.Warn("提交后清除草稿快照失败", zap.Error(err))
	}
	state := sess.ctrl.State()
	return &dto.SubmitResponse{
		ApplicationNo: state.ApplicationNo,
		Countdown:     state.Countdown,
		State:         state,
	}, nil, nil
}

// ── 上传与解析 ──

func (s *formService) UploadResume(ctx context.Context, sessionID string, index int, file UploadFile) (*dto.ResumeUploadResponse, error) {
	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	p := form.MemberPath(index, "resumeRef")
	if _, err := form.Get(sess.ctrl.Draft(), p); err != nil {
		return nil, err
	}

	key, err := s.upload.UploadResume(ctx, sess.access, file)
	if err != nil {
		return nil, err
	}
	if err := sess.ctrl.Set(p, key); err != nil {
		return nil, err
	}
	s.persist(ctx, sessionID, sess)
	return &dto.ResumeUploadResponse{MemberIndex: index, ResumeRef: key}, nil
}

func (s *formService) ParseDocument(ctx context.Context, sessionID string, file UploadFile, docType, language string) (*dto.ParseDocumentResponse, error) {
	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	content, err := s.upload.ParseDocument(ctx, sess.access, file, docType, language)
	if err != nil {
		return nil, err
	}
	p := form.ScalarPath(form.RootBackground)
	if docType == ParseTypeIntroduction {
		p = form.ScalarPath(form.RootProjectSummary)
	}
	if err := sess.ctrl.Set(p, content); err != nil {
		return nil, err
	}
	s.persist(ctx, sessionID, sess)
	return &dto.ParseDocumentResponse{Field: p.String(), Content: content}, nil
}

func stepResult(errs *form.ErrorTree, err error) string {
	switch {
	case err != nil:
		return "rejected"
	case errs != nil:
		return "invalid"
	default:
		return "ok"
	}
}
