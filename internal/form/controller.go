package form

import (
	"context"
	"errors"
	"sync"
	"time"

	"k8s.io/utils/clock"

	"github.com/DEV-OpenSCI/desci-form/internal/model"
	apperrors "github.com/DEV-OpenSCI/desci-form/pkg/errors"
)

// Step 表单步骤
type Step int

const (
	StepBasicInfo Step = iota
	StepTeam
	StepProjectIntro
	StepBudget
	StepContact
)

// StepCount 步骤总数
const StepCount = 5

// LastStep 最后一步，只有在此步骤才能提交
const LastStep = StepContact

var stepNames = [StepCount]string{"basicInfo", "team", "projectIntro", "budget", "contact"}

func (s Step) String() string {
	if s < 0 || int(s) >= StepCount {
		return "unknown"
	}
	return stepNames[s]
}

// Valid 是否为合法步骤
func (s Step) Valid() bool { return s >= 0 && int(s) < StepCount }

// Phase 控制器所处的阶段
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseValidating
	PhaseSubmitting
	PhaseSubmitted
	PhaseSubmitFailed
)

var phaseNames = map[Phase]string{
	PhaseIdle:         "idle",
	PhaseValidating:   "validating",
	PhaseSubmitting:   "submitting",
	PhaseSubmitted:    "submitted",
	PhaseSubmitFailed: "submitFailed",
}

func (p Phase) String() string {
	if n, ok := phaseNames[p]; ok {
		return n
	}
	return "unknown"
}

// MarshalText 以名称序列化
func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

var (
	ErrNotLastStep      = errors.New("只能在最后一步提交")
	ErrBusy             = errors.New("正在提交，请稍候")
	ErrAlreadySubmitted = errors.New("申请已提交")
)

// Submitter 提交网关
type Submitter interface {
	Submit(ctx context.Context, draft *model.ApplicationDraft) (string, error)
}

// SubmitterFunc 函数适配器
type SubmitterFunc func(ctx context.Context, draft *model.ApplicationDraft) (string, error)

func (f SubmitterFunc) Submit(ctx context.Context, draft *model.ApplicationDraft) (string, error) {
	return f(ctx, draft)
}

// State 控制器状态快照
type State struct {
	CurrentIndex  Step   `json:"currentIndex"`
	Step          string `json:"step"`
	Phase         Phase  `json:"phase"`
	Validating    bool   `json:"validating"`
	Submitting    bool   `json:"submitting"`
	SubmitError   string `json:"submitError,omitempty"`
	ApplicationNo string `json:"applicationNo,omitempty"`
	ErrorCount    int    `json:"errorCount"`
	FirstInvalid  string `json:"firstInvalid,omitempty"`
	Countdown     int    `json:"countdown"`
	Expired       bool   `json:"expired"`
}

// Controller 单次申请的步骤控制器，独占草稿。
// 所有方法并发安全；网关调用期间不持锁。
type Controller struct {
	mu sync.Mutex

	validator *Validator
	submitter Submitter
	clock     clock.WithTicker
	ticks     int
	period    time.Duration
	onExpire  func()
	observer  func(State)

	draft         *model.ApplicationDraft
	current       Step
	phase         Phase
	submitError   string
	applicationNo string
	errorCount    int
	firstInvalid  Path
	remaining     int
	expired       bool
	closed        bool
	cd            *countdown
}

// ControllerOption 控制器选项
type ControllerOption func(*Controller)

// WithClock 替换时钟（测试使用 FakeClock）
func WithClock(clk clock.WithTicker) ControllerOption {
	return func(c *Controller) { c.clock = clk }
}

// WithCountdown 倒计时次数与间隔，默认 10 × 1s
func WithCountdown(ticks int, period time.Duration) ControllerOption {
	return func(c *Controller) {
		if ticks > 0 {
			c.ticks = ticks
		}
		if period > 0 {
			c.period = period
		}
	}
}

// OnExpire 倒计时归零时调用（用于清除填写码），在控制器锁外执行
func OnExpire(fn func()) ControllerOption {
	return func(c *Controller) { c.onExpire = fn }
}

// WithObserver 每次阶段变化时回调；持锁调用，回调内不得再调用控制器
func WithObserver(fn func(State)) ControllerOption {
	return func(c *Controller) { c.observer = fn }
}

// WithDraft 以已有草稿（如会话快照）初始化
func WithDraft(d *model.ApplicationDraft) ControllerOption {
	return func(c *Controller) {
		if d != nil {
			c.draft = d.Clone()
		}
	}
}

// AtStep 从指定步骤开始（恢复快照时使用）
func AtStep(step Step) ControllerOption {
	return func(c *Controller) {
		if step.Valid() {
			c.current = step
		}
	}
}

// NewController 创建控制器
func NewController(v *Validator, s Submitter, opts ...ControllerOption) *Controller {
	c := &Controller{
		validator: v,
		submitter: s,
		clock:     clock.RealClock{},
		ticks:     10,
		period:    time.Second,
		draft:     NewDraft(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State 当前状态快照
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

func (c *Controller) snapshot() State {
	s := State{
		CurrentIndex:  c.current,
		Step:          c.current.String(),
		Phase:         c.phase,
		Validating:    c.phase == PhaseValidating,
		Submitting:    c.phase == PhaseSubmitting,
		SubmitError:   c.submitError,
		ApplicationNo: c.applicationNo,
		ErrorCount:    c.errorCount,
		Countdown:     c.remaining,
		Expired:       c.expired,
	}
	if !c.firstInvalid.IsZero() {
		s.FirstInvalid = c.firstInvalid.String()
	}
	return s
}

func (c *Controller) setPhase(p Phase) {
	c.phase = p
	if c.observer != nil {
		c.observer(c.snapshot())
	}
}

// Draft 草稿副本
func (c *Controller) Draft() *model.ApplicationDraft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft.Clone()
}

// Totals 经费合计，每次按当前条目重新计算
func (c *Controller) Totals() model.BudgetTotals {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft.Totals()
}

// Edit 在锁内修改草稿；提交中或已提交时拒绝
func (c *Controller) Edit(fn func(d *model.ApplicationDraft) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.editable(); err != nil {
		return err
	}
	return fn(c.draft)
}

func (c *Controller) editable() error {
	switch c.phase {
	case PhaseSubmitting:
		return ErrBusy
	case PhaseSubmitted:
		return ErrAlreadySubmitted
	}
	return nil
}

// Set 更新单个字段
func (c *Controller) Set(p Path, value interface{}) error {
	return c.Edit(func(d *model.ApplicationDraft) error { return Set(d, p, value) })
}

// AppendMember 追加成员
func (c *Controller) AppendMember() (int, error) {
	var i int
	err := c.Edit(func(d *model.ApplicationDraft) error {
		i = AppendMember(d)
		return nil
	})
	return i, err
}

// RemoveMember 删除成员
func (c *Controller) RemoveMember(i int) error {
	return c.Edit(func(d *model.ApplicationDraft) error { return RemoveMember(d, i) })
}

// AppendBudgetItem 追加经费条目
func (c *Controller) AppendBudgetItem() (int, error) {
	var i int
	err := c.Edit(func(d *model.ApplicationDraft) error {
		i = AppendBudgetItem(d)
		return nil
	})
	return i, err
}

// RemoveBudgetItem 删除经费条目
func (c *Controller) RemoveBudgetItem(i int) error {
	return c.Edit(func(d *model.ApplicationDraft) error { return RemoveBudgetItem(d, i) })
}

// Replace 整体替换草稿（测试模式示例数据、CLI 读入的草稿）
func (c *Controller) Replace(d *model.ApplicationDraft) error {
	return c.Edit(func(cur *model.ApplicationDraft) error {
		*cur = *d.Clone()
		return nil
	})
}

// GoNext 校验当前步骤，通过则前进一步（最多到最后一步）
func (c *Controller) GoNext() (*ErrorTree, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.goNextLocked()
}

func (c *Controller) goNextLocked() (*ErrorTree, error) {
	if err := c.editable(); err != nil {
		return nil, err
	}

	c.setPhase(PhaseValidating)
	errs := c.validator.ValidateSection(c.current, c.draft)
	if errs != nil {
		c.errorCount = errs.Count()
		c.firstInvalid, _ = errs.FirstInvalid()
		c.setPhase(PhaseIdle)
		return errs, nil
	}

	c.errorCount = 0
	c.firstInvalid = Path{}
	if c.current < LastStep {
		c.current++
	}
	c.setPhase(PhaseIdle)
	return nil, nil
}

// GoPrev 无条件后退一步（最少到第一步），不做校验
func (c *Controller) GoPrev() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.editable(); err != nil {
		return err
	}
	if c.current > StepBasicInfo {
		c.current--
	}
	return nil
}

// GoTo 跳转：向后任意跳转；向前只允许下一步且需校验；其余忽略
func (c *Controller) GoTo(target Step) (*ErrorTree, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.editable(); err != nil {
		return nil, err
	}

	switch {
	case target >= StepBasicInfo && target < c.current:
		c.current = target
		return nil, nil
	case target == c.current+1 && target.Valid():
		return c.goNextLocked()
	}
	return nil, nil
}

// Submit 校验整份草稿并调用提交网关。
// 校验失败返回错误树，并跳回首个错误字段所在步骤；网关失败返回其错误。
func (c *Controller) Submit(ctx context.Context) (*ErrorTree, error) {
	c.mu.Lock()
	if err := c.editable(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if c.current != LastStep {
		c.mu.Unlock()
		return nil, ErrNotLastStep
	}

	c.submitError = ""
	c.setPhase(PhaseSubmitting)
	if errs := c.validator.ValidateAll(c.draft); errs != nil {
		c.errorCount = errs.Count()
		c.firstInvalid, _ = errs.FirstInvalid()
		c.current = c.firstInvalid.Step()
		c.setPhase(PhaseIdle)
		c.mu.Unlock()
		return errs, nil
	}
	c.errorCount = 0
	c.firstInvalid = Path{}
	draft := c.draft.Clone()
	c.mu.Unlock()

	appNo, err := c.submitter.Submit(ctx, draft)
	if err == nil && appNo == "" {
		err = apperrors.Integrity(submitFailedMessage(c.validator.Locale()))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.submitError = apperrors.Message(err, submitFailedMessage(c.validator.Locale()))
		c.setPhase(PhaseSubmitFailed)
		return nil, err
	}

	c.applicationNo = appNo
	c.remaining = c.ticks
	c.expired = false
	c.setPhase(PhaseSubmitted)
	c.cd = startCountdown(c.clock, c.ticks, c.period, c.tick, c.expire)
	return nil, nil
}

func (c *Controller) tick(remaining int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseSubmitted {
		return
	}
	c.remaining = remaining
}

func (c *Controller) expire() {
	c.mu.Lock()
	if c.closed || c.phase != PhaseSubmitted || c.expired {
		c.mu.Unlock()
		return
	}
	c.expired = true
	c.remaining = 0
	c.cd = nil
	fn := c.onExpire
	c.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Reset 重新开始：停止倒计时，恢复初始草稿与状态
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cd.stop()
	c.cd = nil
	c.draft = NewDraft()
	c.current = StepBasicInfo
	c.submitError = ""
	c.applicationNo = ""
	c.errorCount = 0
	c.firstInvalid = Path{}
	c.remaining = 0
	c.expired = false
	c.setPhase(PhaseIdle)
}

// Close 释放控制器：停止倒计时，不触发过期回调
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.cd.stop()
	c.cd = nil
}

func submitFailedMessage(locale string) string {
	if locale == "en" {
		return "Submission failed, please try again later"
	}
	return "提交失败，请稍后重试"
}
