package sessionclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// API 会话接口，HTTPAPI 为默认实现
type API interface {
	Start(ctx context.Context, req StartRequest) (*StartResponse, error)
	End(ctx context.Context, req EndRequest) (*EndResponse, error)
	Status(ctx context.Context) (*StatusResponse, error)
}

type StartRequest struct {
	StartReport *string `json:"startReport,omitempty"`
	LessonID    *uint   `json:"lessonId,omitempty"`
}

type StartResponse struct {
	SessionID string    `json:"sessionId"`
	StartedAt time.Time `json:"startedAt"`
}

type EndRequest struct {
	SessionID      string    `json:"sessionId"`
	EndTime        time.Time `json:"endTime"`
	ProgressReport string    `json:"progressReport"`
}

type LearningDuration struct {
	Milliseconds int64  `json:"milliseconds"`
	Formatted    string `json:"formatted"`
}

type EndResponse struct {
	Session          json.RawMessage  `json:"session"`
	LearningDuration LearningDuration `json:"learningDuration"`
}

type RemoteSession struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"startedAt"`
	LessonID  *uint     `json:"lessonId"`
	Elapsed   int64     `json:"elapsed"`
}

type StatusResponse struct {
	Status         Status         `json:"status"`
	CurrentSession *RemoteSession `json:"currentSession"`
}

// APIError 服务端返回的错误
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("session api: %d %s", e.StatusCode, e.Message)
}

type errorBody struct {
	Error string `json:"error"`
}

type HTTPAPI struct {
	client *resty.Client
}

// NewHTTPAPI baseURL 形如 http://host:8080/api
func NewHTTPAPI(baseURL, token string, timeout time.Duration) *HTTPAPI {
	client := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(token).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &HTTPAPI{client: client}
}

// NewHTTPAPIWithClient 使用已配置的 resty 客户端
func NewHTTPAPIWithClient(client *resty.Client) *HTTPAPI {
	return &HTTPAPI{client: client}
}

func (a *HTTPAPI) Start(ctx context.Context, req StartRequest) (*StartResponse, error) {
	var out StartResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		SetError(&errorBody{}).
		Post("/session/start")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *HTTPAPI) End(ctx context.Context, req EndRequest) (*EndResponse, error) {
	var out EndResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		SetError(&errorBody{}).
		Put("/session/end")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *HTTPAPI) Status(ctx context.Context) (*StatusResponse, error) {
	var out StatusResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&errorBody{}).
		Get("/session/status")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

func checkResponse(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if !resp.IsError() {
		return nil
	}
	apiErr := &APIError{StatusCode: resp.StatusCode(), Message: resp.Status()}
	if body, ok := resp.Error().(*errorBody); ok && body.Error != "" {
		apiErr.Message = body.Error
	}
	return apiErr
}
