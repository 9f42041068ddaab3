package sessionclient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_PollsWhileActive(t *testing.T) {
	clock := newTestClock()
	api := &fakeAPI{status: &StatusResponse{
		Status:         StatusActive,
		CurrentSession: &RemoteSession{ID: "s1", StartedAt: clock.Now()},
	}}
	m := NewMachine(api, &memoryStore{}, WithClock(clock.Now))

	mg := NewManager(m, nil)
	mg.PollInterval = 10 * time.Millisecond
	mg.Mount(context.Background())
	defer mg.Unmount()

	assert.Equal(t, StatusActive, m.State().Status)
	assert.True(t, mg.Timer.Running())
	assert.Eventually(t, func() bool { return api.checkCount() >= 3 }, time.Second, 5*time.Millisecond)
}

func TestManager_NoPollingWhenNotStarted(t *testing.T) {
	api := &fakeAPI{status: &StatusResponse{Status: StatusNotStarted}}
	m, _, _ := newTestMachine(api)

	mg := NewManager(m, nil)
	mg.PollInterval = 5 * time.Millisecond
	mg.Mount(context.Background())

	time.Sleep(50 * time.Millisecond)
	mg.Unmount()

	assert.Equal(t, 1, api.checkCount())
	assert.True(t, StartModalVisible(m.State()))
	assert.False(t, mg.Timer.Running())
}

func TestManager_UnmountStopsEverything(t *testing.T) {
	clock := newTestClock()
	api := &fakeAPI{status: &StatusResponse{
		Status:         StatusActive,
		CurrentSession: &RemoteSession{ID: "s1", StartedAt: clock.Now()},
	}}
	m := NewMachine(api, &memoryStore{}, WithClock(clock.Now))

	mg := NewManager(m, nil)
	mg.PollInterval = 5 * time.Millisecond
	mg.Mount(context.Background())
	mg.Unmount()
	mg.Unmount()

	count := api.checkCount()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, count, api.checkCount())

	// 可以再次挂载
	mg.Mount(context.Background())
	defer mg.Unmount()
	require.Eventually(t, func() bool { return api.checkCount() > count }, time.Second, 5*time.Millisecond)
}

func TestManager_ConfirmsLocalTimeoutWithServer(t *testing.T) {
	clock := newTestClock()
	api := &fakeAPI{status: &StatusResponse{
		Status:         StatusActive,
		CurrentSession: &RemoteSession{ID: "s1", StartedAt: clock.Now()},
	}}
	m := NewMachine(api, &memoryStore{}, WithClock(clock.Now))

	mg := NewManager(m, nil)
	mg.PollInterval = time.Hour
	mg.Mount(context.Background())
	defer mg.Unmount()
	require.Equal(t, 1, api.checkCount())

	// 服务端已经关闭了这个会话
	api.setStatus(&StatusResponse{Status: StatusNotStarted})
	clock.Advance(SessionLimit)
	m.Tick()

	require.Eventually(t, func() bool { return api.checkCount() == 2 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return StartModalVisible(m.State()) }, time.Second, 5*time.Millisecond)
	assert.Nil(t, m.State().CurrentSession)
}

func TestManager_TimeoutCheckOncePerSession(t *testing.T) {
	clock := newTestClock()
	api := &fakeAPI{status: &StatusResponse{
		Status:         StatusActive,
		CurrentSession: &RemoteSession{ID: "s1", StartedAt: clock.Now()},
	}}
	m := NewMachine(api, &memoryStore{}, WithClock(clock.Now))

	mg := NewManager(m, nil)
	mg.PollInterval = time.Hour
	mg.Mount(context.Background())
	defer mg.Unmount()

	api.setStatus(&StatusResponse{
		Status:         StatusPendingEnd,
		CurrentSession: &RemoteSession{ID: "s1", StartedAt: clock.Now()},
	})
	clock.Advance(SessionLimit)
	m.Tick()
	require.Eventually(t, func() bool { return api.checkCount() == 2 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return EndModalVisible(m.State()) }, time.Second, 5*time.Millisecond)

	// 延长后继续计时不再触发同步
	ExtendSession(m)
	m.UpdateTimeElapsed(SessionLimit + time.Hour)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 2, api.checkCount())
	assert.Equal(t, StatusPendingEnd, m.State().Status)
}
