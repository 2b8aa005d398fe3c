package throttle

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/jaxron/axonet/pkg/client/logger"
	"github.com/jaxron/axonet/pkg/client/middleware"
	"github.com/shashank2401/cf-visualizer/internal/codeforces"
	"github.com/shashank2401/cf-visualizer/internal/ratelimit"
)

// maxErrorBody caps how much of a failed response is read for its comment.
const maxErrorBody = 1 << 20

// Middleware converts non-2xx API responses into typed errors. It sits
// outside the circuit breaker so that not-found and throttled replies reach
// the caller without counting as breaker failures. It never retries.
type Middleware struct {
	logger logger.Logger
	now    func() time.Time
}

// New creates a new Middleware instance.
func New() *Middleware {
	return &Middleware{
		logger: &logger.NoOpLogger{},
		now:    time.Now,
	}
}

// Process applies the status translation to an HTTP request.
func (m *Middleware) Process(
	ctx context.Context, httpClient *http.Client, req *http.Request, next middleware.NextFunc,
) (*http.Response, error) {
	resp, err := next(ctx, httpClient, req)
	if err != nil {
		return nil, err
	}

	if codeforces.IsSuccess(resp.StatusCode) {
		return resp, nil
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	failure := codeforces.StatusFailure(resp, body, codeforces.RequestHandle(req), m.now())

	m.logger.WithFields(
		logger.Int("status", resp.StatusCode),
		logger.String("url", req.URL.String()),
		logger.String("error", failure.Error()),
	).Debug("Request returned non-success status")

	return nil, failure
}

// SetLogger sets the logger for the middleware.
func (m *Middleware) SetLogger(l logger.Logger) {
	m.logger = l
}

// ServerErrors converts 5xx responses into errors so the circuit breaker
// wrapping it counts them. Every other response, including a 5xx that
// carries a throttle comment, is passed through for Middleware to translate.
type ServerErrors struct {
	logger logger.Logger
	now    func() time.Time
}

// NewServerErrors creates a new ServerErrors instance.
func NewServerErrors() *ServerErrors {
	return &ServerErrors{
		logger: &logger.NoOpLogger{},
		now:    time.Now,
	}
}

// Process fails the request when the server answered with a 5xx status.
func (m *ServerErrors) Process(
	ctx context.Context, httpClient *http.Client, req *http.Request, next middleware.NextFunc,
) (*http.Response, error) {
	resp, err := next(ctx, httpClient, req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < http.StatusInternalServerError {
		return resp, nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()

	failure := codeforces.StatusFailure(resp, body, codeforces.RequestHandle(req), m.now())
	if errors.Is(failure, ratelimit.ErrTooManyRequests) {
		resp.Body = io.NopCloser(bytes.NewReader(body))
		return resp, nil
	}

	m.logger.WithFields(
		logger.Int("status", resp.StatusCode),
		logger.String("url", req.URL.String()),
	).Warn("Server error")

	return nil, failure
}

// SetLogger sets the logger for the middleware.
func (m *ServerErrors) SetLogger(l logger.Logger) {
	m.logger = l
}
