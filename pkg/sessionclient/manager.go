package sessionclient

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const DefaultPollInterval = 5 * time.Minute

// Manager 挂载期间负责计时、定期同步以及超时确认
type Manager struct {
	Machine      *Machine
	Timer        *Timer
	PollInterval time.Duration
	Log          *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewManager(machine *Machine, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		Machine:      machine,
		Timer:        NewTimer(machine),
		PollInterval: DefaultPollInterval,
		Log:          log,
	}
}

// Mount 同步失败不阻止挂载，后续轮询会再次校正
func (mg *Manager) Mount(ctx context.Context) {
	mg.mu.Lock()
	if mg.cancel != nil {
		mg.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	mg.cancel = cancel
	mg.mu.Unlock()

	if err := mg.Machine.Hydrate(ctx); err != nil {
		mg.Log.Warn("Session hydration failed", zap.Error(err))
	}

	mg.Timer.Start(ctx)

	updates, unsubscribe := mg.Machine.Subscribe()
	mg.wg.Add(1)
	go func() {
		defer mg.wg.Done()
		defer unsubscribe()
		mg.loop(ctx, updates)
	}()
}

func (mg *Manager) Unmount() {
	mg.mu.Lock()
	cancel := mg.cancel
	mg.cancel = nil
	mg.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	mg.Timer.Stop()
	mg.wg.Wait()
}

func (mg *Manager) loop(ctx context.Context, updates <-chan State) {
	poll := time.NewTicker(mg.PollInterval)
	defer poll.Stop()

	// 本地计时首次判定超时后向服务端确认一次
	var checkedSession string

	for {
		select {
		case <-ctx.Done():
			return
		case <-poll.C:
			if mg.Machine.State().Status == StatusActive {
				_ = mg.Machine.CheckSessionStatus(ctx)
			}
		case s, ok := <-updates:
			if !ok {
				return
			}
			if s.Status != StatusPendingEnd || s.CurrentSession == nil || !IsOverLimit(s.TimeElapsed) {
				continue
			}
			if checkedSession == s.CurrentSession.ID {
				continue
			}
			checkedSession = s.CurrentSession.ID
			_ = mg.Machine.CheckSessionStatus(ctx)
		}
	}
}
