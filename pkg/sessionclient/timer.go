package sessionclient

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	DefaultTickInterval = time.Second
	nearingLimit        = 23 * time.Hour
)

// Timer 会话处于 ACTIVE 时每秒刷新已用时长，离开 ACTIVE 即停止计时
type Timer struct {
	machine  *Machine
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	resume chan struct{}
}

func NewTimer(machine *Machine) *Timer {
	return &Timer{machine: machine, interval: DefaultTickInterval}
}

// WithInterval 仅用于测试
func (t *Timer) WithInterval(d time.Duration) *Timer {
	t.interval = d
	return t
}

func (t *Timer) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	updates, unsubscribe := t.machine.Subscribe()
	t.cancel = cancel
	t.done = make(chan struct{})
	t.resume = make(chan struct{}, 1)

	go t.run(ctx, updates, unsubscribe, t.done, t.resume)
}

// Resume 页面重新可见时立即校正时长
func (t *Timer) Resume() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.resume == nil {
		return
	}
	select {
	case t.resume <- struct{}{}:
	default:
	}
}

func (t *Timer) Stop() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done, t.resume = nil, nil, nil
	t.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancel != nil
}

func (t *Timer) run(ctx context.Context, updates <-chan State, unsubscribe func(), done chan struct{}, resume <-chan struct{}) {
	defer close(done)
	defer unsubscribe()

	var ticker *time.Ticker
	var tick <-chan time.Time
	defer func() {
		if ticker != nil {
			ticker.Stop()
		}
	}()

	follow := func(s State) {
		active := s.Status == StatusActive && s.CurrentSession != nil
		switch {
		case active && ticker == nil:
			ticker = time.NewTicker(t.interval)
			tick = ticker.C
			t.machine.Tick()
		case !active && ticker != nil:
			ticker.Stop()
			ticker, tick = nil, nil
		}
	}

	follow(t.machine.State())
	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-updates:
			if !ok {
				return
			}
			follow(s)
		case <-tick:
			t.machine.Tick()
		case <-resume:
			t.machine.Tick()
			follow(t.machine.State())
		}
	}
}

// FormatElapsed 不足一小时显示 MM:SS
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

func IsNearingLimit(d time.Duration) bool {
	return d >= nearingLimit
}

func IsOverLimit(d time.Duration) bool {
	return d >= SessionLimit
}
