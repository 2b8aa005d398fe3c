package client

import (
	"time"

	"github.com/bytedance/sonic"
	"github.com/jaxron/axonet/middleware/circuitbreaker"
	"github.com/jaxron/axonet/pkg/client"
	"github.com/jaxron/axonet/pkg/client/middleware"
	"github.com/shashank2401/cf-visualizer/internal/codeforces"
	"github.com/shashank2401/cf-visualizer/internal/setup/client/interceptor/throttle"
	"github.com/shashank2401/cf-visualizer/internal/setup/config"
	"github.com/shashank2401/cf-visualizer/internal/setup/telemetry/logger"
	"go.uber.org/zap"
)

// NewHTTPClient constructs an HTTP client with a middleware chain for the API.
// The chain never retries; throttled requests are returned to the caller.
func NewHTTPClient(cfg *config.Config, zapLogger *zap.Logger) *client.Client {
	// Build middleware chain - order matters! The first entry is outermost:
	// non-2xx translation wraps the breaker, which only sees transport
	// failures and 5xx replies.
	middlewares := []middleware.Middleware{
		throttle.New(),
		circuitbreaker.New(
			cfg.CircuitBreaker.MaxRequests,
			time.Duration(cfg.CircuitBreaker.Interval)*time.Millisecond,
			time.Duration(cfg.CircuitBreaker.Timeout)*time.Millisecond,
		),
		throttle.NewServerErrors(),
	}

	return client.NewClient(
		client.WithMarshalFunc(sonic.Marshal),
		client.WithUnmarshalFunc(sonic.Unmarshal),
		client.WithLogger(logger.New(zapLogger)),
		client.WithTimeout(time.Duration(cfg.API.RequestTimeout)*time.Millisecond),
		client.WithMiddleware(middlewares...),
	)
}

// NewCodeforcesClient constructs the API client used by the fetchers.
func NewCodeforcesClient(cfg *config.Config, zapLogger *zap.Logger) *codeforces.Client {
	return codeforces.NewClient(
		NewHTTPClient(cfg, zapLogger),
		cfg.API.BaseURL,
		cfg.API.SubmissionCount,
		zapLogger,
	)
}
