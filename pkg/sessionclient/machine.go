package sessionclient

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrNoActiveSession = errors.New("no active learning session")
	ErrEmptyReport     = errors.New("progress report is required")
)

type Option func(*Machine)

func WithLogger(log *zap.Logger) Option {
	return func(m *Machine) { m.log = log }
}

func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// Machine 会话状态的唯一持有者，所有变更经 Reduce 完成
type Machine struct {
	api   API
	store Store
	log   *zap.Logger
	now   func() time.Time

	mu      sync.Mutex
	state   State
	subs    map[int]chan State
	nextSub int
}

func NewMachine(api API, store Store, opts ...Option) *Machine {
	m := &Machine{
		api:   api,
		store: store,
		log:   zap.NewNop(),
		now:   time.Now,
		state: InitialState(),
		subs:  make(map[int]chan State),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) Now() time.Time {
	return m.now()
}

// Subscribe 订阅状态变化，只保证收到最新状态；调用返回的函数取消订阅
func (m *Machine) Subscribe() (<-chan State, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSub
	m.nextSub++
	ch := make(chan State, 1)
	m.subs[id] = ch

	return ch, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if _, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(ch)
		}
	}
}

func (m *Machine) dispatch(actions ...Action) {
	m.update(func(State) []Action { return actions })
}

// update 在同一把锁内根据当前状态决定要执行的动作
func (m *Machine) update(decide func(State) []Action) {
	m.mu.Lock()
	defer m.mu.Unlock()

	actions := decide(m.state)
	if len(actions) == 0 {
		return
	}
	for _, a := range actions {
		m.state = Reduce(m.state, a)
	}
	for _, ch := range m.subs {
		select {
		case <-ch:
		default:
		}
		ch <- m.state
	}
}

// StartSession 失败只记录日志，状态保持不变
func (m *Machine) StartSession(ctx context.Context, startReport string) {
	m.start(ctx, StartRequest{StartReport: optionalString(startReport)})
}

func (m *Machine) StartLessonSession(ctx context.Context, startReport string, lessonID uint) {
	m.start(ctx, StartRequest{StartReport: optionalString(startReport), LessonID: &lessonID})
}

func (m *Machine) start(ctx context.Context, req StartRequest) {
	m.dispatch(SetLoading(true))
	defer m.dispatch(SetLoading(false))

	resp, err := m.api.Start(ctx, req)
	if err != nil {
		m.log.Warn("Failed to start learning session", zap.Error(err))
		return
	}

	session := &CurrentSession{ID: resp.SessionID, StartedAt: resp.StartedAt}
	m.dispatch(
		SetCurrentSession(session),
		SetStatus(StatusActive),
		ShowStartModal(false),
		SetTimeElapsed(nonNegative(m.now().Sub(session.StartedAt))),
	)
	m.persist(session)
}

// EndSession 报告长度由结束表单校验，这里只要求非空；失败时返回错误供界面提示
func (m *Machine) EndSession(ctx context.Context, endTime *time.Time, progressReport string) error {
	current := m.State().CurrentSession
	if current == nil {
		return ErrNoActiveSession
	}
	if strings.TrimSpace(progressReport) == "" {
		return ErrEmptyReport
	}

	m.dispatch(SetLoading(true))
	defer m.dispatch(SetLoading(false))

	end := m.now()
	if endTime != nil {
		end = *endTime
	}

	_, err := m.api.End(ctx, EndRequest{
		SessionID:      current.ID,
		EndTime:        end,
		ProgressReport: progressReport,
	})
	if err != nil {
		m.log.Error("Failed to end learning session", zap.String("sessionID", current.ID), zap.Error(err))
		return err
	}

	m.dispatch(ResetSession())
	m.clearStore()
	return nil
}

// CheckSessionStatus 以服务端状态为准，本地缓存与之冲突时丢弃
func (m *Machine) CheckSessionStatus(ctx context.Context) error {
	resp, err := m.api.Status(ctx)
	if err != nil {
		m.log.Warn("Failed to check learning session status", zap.Error(err))
		return err
	}

	if resp.CurrentSession == nil || resp.Status == StatusNotStarted {
		m.clearStore()
		m.dispatch(
			SetCurrentSession(nil),
			SetStatus(StatusNotStarted),
			SetTimeElapsed(0),
			ShowEndModal(false),
			ShowStartModal(true),
		)
		return nil
	}

	remote := &CurrentSession{ID: resp.CurrentSession.ID, StartedAt: resp.CurrentSession.StartedAt}
	if local := m.State().CurrentSession; local != nil && local.ID != remote.ID {
		m.log.Info("Discarding stale local session",
			zap.String("local", local.ID),
			zap.String("server", remote.ID),
		)
		m.clearStore()
	}

	elapsed := nonNegative(m.now().Sub(remote.StartedAt))
	actions := []Action{
		SetCurrentSession(remote),
		SetStatus(StatusActive),
		ShowStartModal(false),
		SetTimeElapsed(elapsed),
	}
	if resp.Status == StatusPendingEnd || elapsed >= SessionLimit {
		actions = append(actions, SetStatus(StatusPendingEnd), ShowEndModal(true))
	}
	m.dispatch(actions...)
	m.persist(remote)
	return nil
}

// Hydrate 先用本地缓存恢复界面，再以服务端状态校正
func (m *Machine) Hydrate(ctx context.Context) error {
	cached, err := m.store.Load()
	if err != nil {
		m.log.Warn("Failed to load cached learning session", zap.Error(err))
	}
	if cached != nil {
		m.dispatch(SetCurrentSession(cached), SetStatus(StatusActive))
	}
	return m.CheckSessionStatus(ctx)
}

// UpdateTimeElapsed 进行中的会话满 24 小时转为待结束
func (m *Machine) UpdateTimeElapsed(elapsed time.Duration) {
	m.update(func(s State) []Action {
		return elapsedActions(s, elapsed)
	})
}

// Tick 按当前时钟重新计算已用时长，仅在 ACTIVE 时生效
func (m *Machine) Tick() {
	m.update(func(s State) []Action {
		if s.Status != StatusActive || s.CurrentSession == nil {
			return nil
		}
		return elapsedActions(s, nonNegative(m.now().Sub(s.CurrentSession.StartedAt)))
	})
}

func elapsedActions(s State, elapsed time.Duration) []Action {
	actions := []Action{SetTimeElapsed(elapsed)}
	if elapsed >= SessionLimit && s.Status == StatusActive {
		actions = append(actions, SetStatus(StatusPendingEnd), ShowEndModal(true))
	}
	return actions
}

func (m *Machine) DismissModal(kind ModalKind) {
	m.dispatch(DismissModal(kind))
}

// OpenEndModal 用户主动结束学习
func (m *Machine) OpenEndModal() {
	m.update(func(s State) []Action {
		if s.CurrentSession == nil || (s.Status != StatusActive && s.Status != StatusPendingEnd) {
			return nil
		}
		return []Action{DismissModal(ModalStart), ShowEndModal(true)}
	})
}

// ClearSession 丢弃本地会话，不通知服务端
func (m *Machine) ClearSession() {
	m.dispatch(ResetSession())
	m.clearStore()
	m.dispatch(SetStatus(StatusNotStarted))
}

func (m *Machine) persist(session *CurrentSession) {
	if err := m.store.Save(session); err != nil {
		m.log.Warn("Failed to cache learning session", zap.Error(err))
	}
}

func (m *Machine) clearStore() {
	if err := m.store.Clear(); err != nil {
		m.log.Warn("Failed to clear cached learning session", zap.Error(err))
	}
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func nonNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
