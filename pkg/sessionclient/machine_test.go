package sessionclient

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mu        sync.Mutex
	startResp *StartResponse
	startErr  error
	endErr    error
	status    *StatusResponse
	statusErr error

	starts []StartRequest
	ends   []EndRequest
	checks int
}

func (f *fakeAPI) Start(_ context.Context, req StartRequest) (*StartResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts = append(f.starts, req)
	return f.startResp, f.startErr
}

func (f *fakeAPI) End(_ context.Context, req EndRequest) (*EndResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ends = append(f.ends, req)
	if f.endErr != nil {
		return nil, f.endErr
	}
	return &EndResponse{}, nil
}

func (f *fakeAPI) Status(context.Context) (*StatusResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checks++
	return f.status, f.statusErr
}

func (f *fakeAPI) setStatus(s *StatusResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = s
}

func (f *fakeAPI) checkCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.checks
}

type memoryStore struct {
	mu      sync.Mutex
	session *CurrentSession
}

func (m *memoryStore) Load() (*CurrentSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session, nil
}

func (m *memoryStore) Save(s *CurrentSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.session = &cp
	return nil
}

func (m *memoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	return nil
}

func (m *memoryStore) get() *CurrentSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestMachine(api *fakeAPI) (*Machine, *memoryStore, *testClock) {
	store := &memoryStore{}
	clock := newTestClock()
	return NewMachine(api, store, WithClock(clock.Now)), store, clock
}

func TestMachine_StartSession(t *testing.T) {
	clock := newTestClock()
	api := &fakeAPI{startResp: &StartResponse{SessionID: "s1", StartedAt: clock.Now()}}
	store := &memoryStore{}
	m := NewMachine(api, store, WithClock(clock.Now))

	m.StartSession(context.Background(), "  Goal: generics  ")

	s := m.State()
	assert.Equal(t, StatusActive, s.Status)
	require.NotNil(t, s.CurrentSession)
	assert.Equal(t, "s1", s.CurrentSession.ID)
	assert.False(t, s.ShowStartModal)
	assert.False(t, s.IsLoading)
	assert.Equal(t, "s1", store.get().ID)

	require.Len(t, api.starts, 1)
	require.NotNil(t, api.starts[0].StartReport)
	assert.Equal(t, "Goal: generics", *api.starts[0].StartReport)
}

func TestMachine_StartSessionWithoutReport(t *testing.T) {
	api := &fakeAPI{startResp: &StartResponse{SessionID: "s1"}}
	m, _, _ := newTestMachine(api)

	m.StartLessonSession(context.Background(), "   ", 12)

	require.Len(t, api.starts, 1)
	assert.Nil(t, api.starts[0].StartReport)
	require.NotNil(t, api.starts[0].LessonID)
	assert.Equal(t, uint(12), *api.starts[0].LessonID)
}

func TestMachine_StartSessionFailureLeavesState(t *testing.T) {
	api := &fakeAPI{startErr: errors.New("network down")}
	m, store, _ := newTestMachine(api)
	m.dispatch(ShowStartModal(true))
	before := m.State()

	m.StartSession(context.Background(), "")

	assert.Equal(t, before, m.State())
	assert.Nil(t, store.get())
}

func TestMachine_EndSession(t *testing.T) {
	api := &fakeAPI{startResp: &StartResponse{SessionID: "s1"}}
	m, store, clock := newTestMachine(api)
	ctx := context.Background()

	assert.ErrorIs(t, m.EndSession(ctx, nil, "report"), ErrNoActiveSession)

	api.startResp.StartedAt = clock.Now()
	m.StartSession(ctx, "")
	assert.ErrorIs(t, m.EndSession(ctx, nil, "   "), ErrEmptyReport)

	clock.Advance(time.Hour)
	require.NoError(t, m.EndSession(ctx, nil, "short is fine here"))

	s := m.State()
	assert.Equal(t, StatusCompleted, s.Status)
	assert.Nil(t, s.CurrentSession)
	assert.Nil(t, store.get())
	require.Len(t, api.ends, 1)
	assert.Equal(t, "s1", api.ends[0].SessionID)
	assert.True(t, api.ends[0].EndTime.Equal(clock.Now()))
}

func TestMachine_EndSessionFailureKeepsSession(t *testing.T) {
	clock := newTestClock()
	api := &fakeAPI{startResp: &StartResponse{SessionID: "s1", StartedAt: clock.Now()}, endErr: &APIError{StatusCode: 409}}
	m := NewMachine(api, &memoryStore{}, WithClock(clock.Now))
	ctx := context.Background()

	m.StartSession(ctx, "")
	err := m.EndSession(ctx, nil, "Finished the chapter on interfaces.")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 409, apiErr.StatusCode)
	assert.Equal(t, StatusActive, m.State().Status)
	assert.False(t, m.State().IsLoading)
}

func TestMachine_CheckSessionStatusNotStarted(t *testing.T) {
	api := &fakeAPI{status: &StatusResponse{Status: StatusNotStarted}}
	m, store, _ := newTestMachine(api)
	require.NoError(t, store.Save(&CurrentSession{ID: "stale"}))
	m.dispatch(SetCurrentSession(&CurrentSession{ID: "stale"}), SetStatus(StatusActive))

	require.NoError(t, m.CheckSessionStatus(context.Background()))

	s := m.State()
	assert.Equal(t, StatusNotStarted, s.Status)
	assert.Nil(t, s.CurrentSession)
	assert.True(t, s.ShowStartModal)
	assert.Nil(t, store.get())
}

func TestMachine_CheckSessionStatusCompletedReturnsToNotStarted(t *testing.T) {
	api := &fakeAPI{status: &StatusResponse{Status: StatusNotStarted}}
	m, _, _ := newTestMachine(api)
	m.dispatch(ResetSession())
	require.Equal(t, StatusCompleted, m.State().Status)

	require.NoError(t, m.CheckSessionStatus(context.Background()))
	assert.Equal(t, StatusNotStarted, m.State().Status)
}

func TestMachine_CheckSessionStatusAdoptsServerSession(t *testing.T) {
	clock := newTestClock()
	remote := &RemoteSession{ID: "server", StartedAt: clock.Now().Add(-2 * time.Hour)}
	api := &fakeAPI{status: &StatusResponse{Status: StatusActive, CurrentSession: remote}}
	store := &memoryStore{}
	require.NoError(t, store.Save(&CurrentSession{ID: "local"}))
	m := NewMachine(api, store, WithClock(clock.Now))
	m.dispatch(SetCurrentSession(&CurrentSession{ID: "local"}), SetStatus(StatusActive))

	require.NoError(t, m.CheckSessionStatus(context.Background()))

	s := m.State()
	assert.Equal(t, StatusActive, s.Status)
	assert.Equal(t, "server", s.CurrentSession.ID)
	assert.Equal(t, 2*time.Hour, s.TimeElapsed)
	assert.False(t, s.ShowEndModal)
	assert.Equal(t, "server", store.get().ID)
}

func TestMachine_CheckSessionStatusPendingEnd(t *testing.T) {
	clock := newTestClock()
	remote := &RemoteSession{ID: "s1", StartedAt: clock.Now().Add(-25 * time.Hour)}
	api := &fakeAPI{status: &StatusResponse{Status: StatusPendingEnd, CurrentSession: remote}}
	m := NewMachine(api, &memoryStore{}, WithClock(clock.Now))

	require.NoError(t, m.CheckSessionStatus(context.Background()))

	s := m.State()
	assert.Equal(t, StatusPendingEnd, s.Status)
	assert.True(t, s.ShowEndModal)
	assert.True(t, EndModalVisible(s))
}

func TestMachine_CheckSessionStatusErrorKeepsState(t *testing.T) {
	api := &fakeAPI{statusErr: errors.New("offline")}
	m, _, _ := newTestMachine(api)
	m.dispatch(SetCurrentSession(&CurrentSession{ID: "s1"}), SetStatus(StatusActive))

	assert.Error(t, m.CheckSessionStatus(context.Background()))
	assert.Equal(t, StatusActive, m.State().Status)
}

func TestMachine_HydrateUsesServerTruth(t *testing.T) {
	api := &fakeAPI{status: &StatusResponse{Status: StatusNotStarted}}
	m, store, _ := newTestMachine(api)
	require.NoError(t, store.Save(&CurrentSession{ID: "cached"}))

	require.NoError(t, m.Hydrate(context.Background()))
	assert.Equal(t, StatusNotStarted, m.State().Status)
	assert.Nil(t, store.get())
}

func TestMachine_UpdateTimeElapsedFlipsToPendingEnd(t *testing.T) {
	m, _, _ := newTestMachine(&fakeAPI{})
	m.dispatch(SetCurrentSession(&CurrentSession{ID: "s1"}), SetStatus(StatusActive))

	m.UpdateTimeElapsed(23 * time.Hour)
	assert.Equal(t, StatusActive, m.State().Status)

	m.UpdateTimeElapsed(SessionLimit)
	s := m.State()
	assert.Equal(t, StatusPendingEnd, s.Status)
	assert.True(t, s.ShowEndModal)
}

func TestMachine_OpenEndModalAndClear(t *testing.T) {
	m, store, _ := newTestMachine(&fakeAPI{})

	m.OpenEndModal()
	assert.False(t, m.State().ShowEndModal)

	m.dispatch(SetCurrentSession(&CurrentSession{ID: "s1"}), SetStatus(StatusActive), ShowStartModal(true))
	require.NoError(t, store.Save(&CurrentSession{ID: "s1"}))
	m.OpenEndModal()
	s := m.State()
	assert.True(t, s.ShowEndModal)
	assert.False(t, s.ShowStartModal)

	m.ClearSession()
	s = m.State()
	assert.Equal(t, StatusNotStarted, s.Status)
	assert.Nil(t, s.CurrentSession)
	assert.Nil(t, store.get())
}

func TestMachine_SubscribeReceivesLatest(t *testing.T) {
	m, _, _ := newTestMachine(&fakeAPI{})
	updates, cancel := m.Subscribe()

	m.dispatch(SetTimeElapsed(time.Second))
	m.dispatch(SetTimeElapsed(2 * time.Second))

	s := <-updates
	assert.Equal(t, 2*time.Second, s.TimeElapsed)

	cancel()
	_, ok := <-updates
	assert.False(t, ok)
	cancel()
}
