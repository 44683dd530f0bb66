package backend

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/rpggio/orgchat/internal/domain/chat"
	"github.com/rpggio/orgchat/internal/domain/datalog"
)

// HeaderRequestID carries the correlation id of every backend request.
const HeaderRequestID = "X-Request-ID"

const defaultTimeout = 60 * time.Second

// Config configures the backend client.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client talks to the agent backend. Requests are never retried.
type Client struct {
	http   *resty.Client
	logger *slog.Logger
}

// New creates a backend client.
func New(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	rc := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetLogger(restyLogger{logger: logger})

	rc.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		if req.Header.Get(HeaderRequestID) != "" {
			return nil
		}
		id, ok := RequestIDFromContext(req.Context())
		if !ok {
			id = uuid.NewString()
		}
		req.SetHeader(HeaderRequestID, id)
		return nil
	})
	rc.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		logger.Debug("backend response",
			"method", resp.Request.Method,
			"url", resp.Request.URL,
			"status", resp.StatusCode(),
			"request_id", resp.Request.Header.Get(HeaderRequestID),
			"duration", resp.Time(),
		)
		return nil
	})

	return &Client{http: rc, logger: logger}
}

// Authenticate exchanges credentials for a backend session.
func (c *Client) Authenticate(ctx context.Context, req AuthRequest) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, OpAuthenticate, http.MethodPost, "/salesforce/auth", nil, req, &out); err != nil {
		return nil, err
	}
	if out.SessionID == "" {
		return nil, &APIError{Op: OpAuthenticate, StatusCode: http.StatusOK, Detail: "backend returned no session id"}
	}
	return &out, nil
}

// SendMessage posts a user message and returns the updated transcript.
func (c *Client) SendMessage(ctx context.Context, sessionID, message string) (*chat.Reply, error) {
	var out SendResponse
	body := SendRequest{SessionID: sessionID, Message: message}
	if err := c.do(ctx, OpSendMessage, http.MethodPost, "/chat/send", nil, body, &out); err != nil {
		return nil, err
	}
	return out.Reply(), nil
}

// History returns the full transcript of a session.
func (c *Client) History(ctx context.Context, sessionID string) ([]chat.Message, error) {
	var out HistoryResponse
	params := map[string]string{"session_id": sessionID}
	if err := c.do(ctx, OpHistory, http.MethodGet, "/chat/history/{session_id}", params, nil, &out); err != nil {
		return nil, err
	}
	if out.History == nil {
		return []chat.Message{}, nil
	}
	return out.History, nil
}

// DataLog returns the retrieval log of a session.
func (c *Client) DataLog(ctx context.Context, sessionID string) ([]datalog.Entry, error) {
	var out DataLogResponse
	params := map[string]string{"session_id": sessionID}
	if err := c.do(ctx, OpDataLog, http.MethodGet, "/sessions/{session_id}/retrieved_data_log", params, nil, &out); err != nil {
		return nil, err
	}
	if out.Log == nil {
		return []datalog.Entry{}, nil
	}
	return out.Log, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, params map[string]string, body, result any) error {
	var errBody ErrorResponse
	req := c.http.R().
		SetContext(ctx).
		SetResult(result).
		SetError(&errBody)
	if params != nil {
		req.SetPathParams(params)
	}
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if resp != nil && resp.StatusCode() >= http.StatusBadRequest {
		return &APIError{Op: op, StatusCode: resp.StatusCode(), Detail: errBody.Detail}
	}
	if err != nil {
		c.logger.Warn("backend request failed", "op", op, "error", err)
		return &NetworkError{Op: op, Err: err}
	}
	if !resp.IsSuccess() {
		return &APIError{Op: op, StatusCode: resp.StatusCode()}
	}
	return nil
}

type restyLogger struct {
	logger *slog.Logger
}

func (l restyLogger) Errorf(format string, v ...any) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l restyLogger) Warnf(format string, v ...any) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l restyLogger) Debugf(format string, v ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
