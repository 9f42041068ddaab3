package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"lms_backend/internal/config"
	"lms_backend/internal/model"
	"lms_backend/internal/testutil"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "app-test-secret-with-at-least-32-chars"

type testServer struct {
	app *App
	db  *gorm.DB
}

func newTestServer(t *testing.T, opts ...func(*config.Config)) *testServer {
	t.Helper()

	cfg := &config.Config{
		Server:  config.ServerConfig{Port: "0", Mode: gin.TestMode},
		JWT:     config.JWTConfig{Secret: testSecret, ExpireTime: time.Hour},
		Storage: config.StorageConfig{Type: util.StorageLocal, LocalPath: t.TempDir()},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	db := testutil.DB(t)
	return &testServer{app: newApp(cfg, db, nil), db: db}
}

func (s *testServer) token(t *testing.T, user *model.User) string {
	t.Helper()
	token, err := util.GenerateJWT(user, testSecret, time.Hour)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.app.Router.ServeHTTP(w, req)
	return w
}

func idPath(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body util.ErrorResponse
	decode(t, w, &body)
	return body.Error
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSessionEndpointsRequireAuth(t *testing.T) {
	s := newTestServer(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/session/start"},
		{http.MethodPut, "/api/session/end"},
		{http.MethodGet, "/api/session/status"},
		{http.MethodPost, "/api/progress/1/start"},
	} {
		w := s.do(t, tc.method, tc.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, tc.path)
	}

	w := s.do(t, http.MethodGet, "/api/session/status", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDeletedUserTokenRejected(t *testing.T) {
	s := newTestServer(t)
	user := testutil.CreateUser(t, s.db, "learner@example.com", model.Learner)
	token := s.token(t, user)
	require.NoError(t, s.db.Model(user).Update("is_deleted", true).Error)

	w := s.do(t, http.MethodPost, "/api/session/start", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t)
	user := testutil.CreateUser(t, s.db, "learner@example.com", model.Learner)
	lesson := testutil.CreateLesson(t, s.db, "Pointers")
	token := s.token(t, user)

	w := s.do(t, http.MethodGet, "/api/session/status", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var status model.SessionStatusResult
	decode(t, w, &status)
	assert.Equal(t, model.SessionNotStarted, status.Status)
	assert.Nil(t, status.CurrentSession)
	assert.Contains(t, w.Body.String(), `"currentSession":null`)

	// 空请求体也可以开始
	w = s.do(t, http.MethodPost, "/api/session/start", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var first model.StartSessionResult
	decode(t, w, &first)
	assert.NotEmpty(t, first.SessionID)

	w = s.do(t, http.MethodPost, "/api/session/start", token, map[string]interface{}{
		"startReport": "Goal: pointers",
		"lessonId":    lesson.ID,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var second model.StartSessionResult
	decode(t, w, &second)
	assert.NotEqual(t, first.SessionID, second.SessionID)

	w = s.do(t, http.MethodGet, "/api/session/status", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &status)
	assert.Equal(t, model.SessionActive, status.Status)
	require.NotNil(t, status.CurrentSession)
	assert.Equal(t, second.SessionID, status.CurrentSession.ID)
	require.NotNil(t, status.CurrentSession.LessonID)
	assert.Equal(t, lesson.ID, *status.CurrentSession.LessonID)

	// 被强制关闭的会话不能再结束
	w = s.do(t, http.MethodPut, "/api/session/end", token, map[string]interface{}{
		"sessionId":      first.SessionID,
		"progressReport": "This report is long enough to pass.",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPut, "/api/session/end", token, map[string]interface{}{
		"sessionId":      second.SessionID,
		"progressReport": "too short",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "progressReport must be at least 20 characters", errorMessage(t, w))

	w = s.do(t, http.MethodPut, "/api/session/end", token, map[string]interface{}{
		"sessionId":      second.SessionID,
		"progressReport": "Learned how pointers and addresses work.",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var ended struct {
		Session          model.LearningSession  `json:"session"`
		LearningDuration model.LearningDuration `json:"learningDuration"`
	}
	decode(t, w, &ended)
	assert.NotNil(t, ended.Session.EndedAt)
	assert.NotEmpty(t, ended.LearningDuration.Formatted)

	w = s.do(t, http.MethodGet, "/api/session/status", token, nil)
	decode(t, w, &status)
	assert.Equal(t, model.SessionNotStarted, status.Status)

	var progress model.UserProgress
	require.NoError(t, s.db.Where("user_id = ? AND lesson_id = ?", user.ID, lesson.ID).First(&progress).Error)
	assert.Equal(t, model.ProgressCompleted, progress.Status)
}

func TestEndSessionOwnership(t *testing.T) {
	s := newTestServer(t)
	owner := testutil.CreateUser(t, s.db, "owner@example.com", model.Learner)
	other := testutil.CreateUser(t, s.db, "other@example.com", model.Learner)

	w := s.do(t, http.MethodPost, "/api/session/start", s.token(t, owner), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var started model.StartSessionResult
	decode(t, w, &started)

	w = s.do(t, http.MethodPut, "/api/session/end", s.token(t, other), map[string]interface{}{
		"sessionId":      started.SessionID,
		"progressReport": "Trying to close somebody else's session.",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPut, "/api/session/end", s.token(t, other), map[string]interface{}{
		"sessionId":      "does-not-exist",
		"progressReport": "Trying to close a session that is missing.",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPut, "/api/session/end", s.token(t, other), map[string]interface{}{
		"progressReport": "Missing the session identifier entirely.",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "sessionId is required", errorMessage(t, w))
}

func TestStartSessionUnknownLesson(t *testing.T) {
	s := newTestServer(t)
	user := testutil.CreateUser(t, s.db, "learner@example.com", model.Learner)

	w := s.do(t, http.MethodPost, "/api/session/start", s.token(t, user), map[string]interface{}{"lessonId": 777})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProgressEndpoints(t *testing.T) {
	s := newTestServer(t)
	user := testutil.CreateUser(t, s.db, "learner@example.com", model.Learner)
	lesson := testutil.CreateLesson(t, s.db, "Slices")
	token := s.token(t, user)

	w := s.do(t, http.MethodPost, "/api/progress/abc/start", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/progress/9999/start", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	path := "/api/progress/" + idPath(lesson.ID)
	w = s.do(t, http.MethodPost, path+"/start", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res struct {
		UserProgress model.UserProgress `json:"userProgress"`
	}
	decode(t, w, &res)
	assert.Equal(t, model.ProgressInProgress, res.UserProgress.Status)
	require.NotNil(t, res.UserProgress.StartedAt)
	startedAt := *res.UserProgress.StartedAt

	w = s.do(t, http.MethodPost, path+"/complete", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res.UserProgress = model.UserProgress{}
	decode(t, w, &res)
	assert.Equal(t, model.ProgressCompleted, res.UserProgress.Status)
	assert.NotNil(t, res.UserProgress.CompletedAt)
	require.NotNil(t, res.UserProgress.StartedAt)
	assert.True(t, startedAt.Equal(*res.UserProgress.StartedAt))

	var count int64
	require.NoError(t, s.db.Model(&model.UserProgress{}).
		Where("user_id = ? AND lesson_id = ?", user.ID, lesson.ID).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)

	w = s.do(t, http.MethodPost, path+"/start", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &res)
	assert.Equal(t, model.ProgressCompleted, res.UserProgress.Status)
}

func TestLoginAndProfile(t *testing.T) {
	s := newTestServer(t)
	testutil.CreateUser(t, s.db, "learner@example.com", model.Learner)

	w := s.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"email":    "learner@example.com",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"email":    "learner@example.com",
		"password": testutil.DefaultPassword,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login struct {
		Token        string     `json:"token"`
		User         model.User `json:"user"`
		IsFirstLogin bool       `json:"isFirstLogin"`
	}
	decode(t, w, &login)
	assert.NotEmpty(t, login.Token)
	assert.NotContains(t, w.Body.String(), "passwordHash")

	w = s.do(t, http.MethodGet, "/api/profile", login.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var profile struct {
		User model.User `json:"user"`
	}
	decode(t, w, &profile)
	assert.Equal(t, "learner@example.com", profile.User.Email)
}

func TestAdminRoleChecks(t *testing.T) {
	s := newTestServer(t)
	learner := testutil.CreateUser(t, s.db, "learner@example.com", model.Learner)
	instructor := testutil.CreateUser(t, s.db, "instructor@example.com", model.Instructor)
	admin := testutil.CreateUser(t, s.db, "admin@example.com", model.Admin)

	course := map[string]interface{}{"title": "Concurrency"}

	w := s.do(t, http.MethodPost, "/api/admin/courses", s.token(t, learner), course)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/api/admin/courses", s.token(t, instructor), course)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/admin/users", s.token(t, instructor), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, "/api/admin/users", s.token(t, admin), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/admin/progress", s.token(t, admin), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminCreateUser(t *testing.T) {
	s := newTestServer(t)
	admin := testutil.CreateUser(t, s.db, "admin@example.com", model.Admin)
	token := s.token(t, admin)

	w := s.do(t, http.MethodPost, "/api/admin/users", token, map[string]string{
		"name":  "New Learner",
		"email": "new@example.com",
		"role":  "LEARNER",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		User              model.User `json:"user"`
		TemporaryPassword string     `json:"temporaryPassword"`
	}
	decode(t, w, &created)
	assert.Len(t, created.TemporaryPassword, util.TempPasswordLength)

	w = s.do(t, http.MethodPost, "/api/admin/users", token, map[string]string{
		"name":  "Duplicate",
		"email": "new@example.com",
		"role":  "LEARNER",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodDelete, "/api/admin/users/"+idPath(admin.ID), token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// 新用户首次登录后修改密码
	w = s.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"email":    "new@example.com",
		"password": created.TemporaryPassword,
	})
	require.Equal(t, http.StatusOK, w.Code)
	var login struct {
		Token        string `json:"token"`
		IsFirstLogin bool   `json:"isFirstLogin"`
	}
	decode(t, w, &login)
	assert.True(t, login.IsFirstLogin)

	w = s.do(t, http.MethodPost, "/api/auth/reset-password", login.Token, map[string]string{
		"currentPassword": created.TemporaryPassword,
		"newPassword":     "brand-new-password",
	})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestLearnerCannotSeeDraftLesson(t *testing.T) {
	s := newTestServer(t)
	learner := testutil.CreateUser(t, s.db, "learner@example.com", model.Learner)
	lesson := testutil.CreateLesson(t, s.db, "Draft")
	require.NoError(t, s.db.Model(lesson).Update("is_published", false).Error)

	w := s.do(t, http.MethodGet, "/api/lessons/"+idPath(lesson.ID), s.token(t, learner), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminProgressViews(t *testing.T) {
	s := newTestServer(t)
	instructor := testutil.CreateUser(t, s.db, "instructor@example.com", model.Instructor)
	learner := testutil.CreateUser(t, s.db, "learner@example.com", model.Learner)
	lesson := testutil.CreateLesson(t, s.db, "Maps")
	learnerToken := s.token(t, learner)

	w := s.do(t, http.MethodPost, "/api/progress/"+idPath(lesson.ID)+"/complete", learnerToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = s.do(t, http.MethodPost, "/api/session/start", learnerToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/admin/progress", learnerToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	token := s.token(t, instructor)
	w = s.do(t, http.MethodGet, "/api/admin/progress", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var overview struct {
		Learners []struct {
			UserID    uint  `json:"userId"`
			Completed int64 `json:"completed"`
		} `json:"learners"`
	}
	decode(t, w, &overview)
	require.Len(t, overview.Learners, 1)
	assert.Equal(t, learner.ID, overview.Learners[0].UserID)
	assert.Equal(t, int64(1), overview.Learners[0].Completed)

	w = s.do(t, http.MethodGet, "/api/admin/progress/"+idPath(learner.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var detail struct {
		User     model.User              `json:"user"`
		Progress []model.UserProgress    `json:"progress"`
		Sessions []model.LearningSession `json:"sessions"`
	}
	decode(t, w, &detail)
	assert.Equal(t, learner.Email, detail.User.Email)
	assert.Len(t, detail.Progress, 1)
	assert.Len(t, detail.Sessions, 1)

	w = s.do(t, http.MethodGet, "/api/admin/progress/9999", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUnknownRouteReturnsJSON404(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "resource not found", errorMessage(t, w))
}

func TestRateLimitedRouter(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) {
		cfg.RateLimit = config.RateLimitConfig{MaxRequests: 1, WindowMinutes: 60}
	})
	user := testutil.CreateUser(t, s.db, "learner@example.com", model.Learner)
	token := s.token(t, user)

	w := s.do(t, http.MethodGet, "/api/session/status", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/session/status", token, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "too many requests", errorMessage(t, w))
}

func TestDemotedAdminTokenLosesAccess(t *testing.T) {
	s := newTestServer(t)
	admin := testutil.CreateUser(t, s.db, "admin@example.com", model.Admin)
	other := testutil.CreateUser(t, s.db, "other-admin@example.com", model.Admin)
	oldToken := s.token(t, other)

	w := s.do(t, http.MethodPut, "/api/admin/users/"+idPath(other.ID), s.token(t, admin), map[string]interface{}{
		"role": "LEARNER",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/admin/users", oldToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// 学员接口仍可访问
	w = s.do(t, http.MethodGet, "/api/session/status", oldToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
