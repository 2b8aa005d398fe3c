// Package codeforces is a read-only client for the user.info, user.rating and
// user.status methods of the Codeforces API, plus the normalizers that turn
// its responses into stable records.
package codeforces

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jaxron/axonet/pkg/client"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	// DefaultBaseURL is the public API root.
	DefaultBaseURL = "https://codeforces.com/api"
	// DefaultSubmissionCount bounds user.status to the most recent submissions.
	DefaultSubmissionCount = 2000
)

// Client issues API calls through an axonet client.
type Client struct {
	http            *client.Client
	baseURL         string
	submissionCount int
	tracer          trace.Tracer
	logger          *zap.Logger
}

// NewClient creates a Client. Zero values fall back to the defaults.
func NewClient(httpClient *client.Client, baseURL string, submissionCount int, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	if submissionCount <= 0 {
		submissionCount = DefaultSubmissionCount
	}

	return &Client{
		http:            httpClient,
		baseURL:         strings.TrimRight(baseURL, "/"),
		submissionCount: submissionCount,
		tracer:          otel.Tracer("github.com/shashank2401/cf-visualizer/internal/codeforces"),
		logger:          logger.Named("codeforces"),
	}
}

// UserInfo fetches several users in one request.
func (c *Client) UserInfo(ctx context.Context, handles []string) ([]UserProfile, error) {
	joined := strings.Join(handles, ";")

	raw, err := call[[]RawUser](ctx, c, "user.info", joined, "handles", joined)
	if err != nil {
		return nil, err
	}

	users := NormalizeUsers(raw)
	if len(users) == 0 {
		return nil, &NotFoundError{Handle: joined}
	}

	return users, nil
}

// User fetches a single user.
func (c *Client) User(ctx context.Context, handle string) (UserProfile, error) {
	raw, err := call[[]RawUser](ctx, c, "user.info", handle, "handles", handle)
	if err != nil {
		return UserProfile{}, err
	}

	return NormalizeUser(raw, handle)
}

// UserRating fetches the rated contest history of a user, oldest first.
func (c *Client) UserRating(ctx context.Context, handle string) ([]RatingHistoryEntry, error) {
	raw, err := call[[]RawRatingChange](ctx, c, "user.rating", handle, "handle", handle)
	if err != nil {
		return nil, err
	}

	return NormalizeRatingHistory(raw), nil
}

// UserStatus fetches the most recent submissions of a user, newest first.
func (c *Client) UserStatus(ctx context.Context, handle string) ([]Submission, error) {
	raw, err := call[[]RawSubmission](ctx, c, "user.status", handle,
		"handle", handle,
		"from", "1",
		"count", strconv.Itoa(c.submissionCount),
	)
	if err != nil {
		return nil, err
	}

	return NormalizeSubmissions(raw), nil
}

// call performs a GET on method with the given key/value query pairs and
// decodes the result field of the envelope.
func call[T any](ctx context.Context, c *Client, method, handle string, query ...string) (T, error) {
	var zero T

	ctx, span := c.tracer.Start(ctx, "codeforces."+method, trace.WithAttributes(
		attribute.String("codeforces.method", method),
		attribute.String("codeforces.handle", handle),
	))
	defer span.End()

	req := c.http.NewRequest().
		Method(http.MethodGet).
		URL(c.baseURL + "/" + method)
	for i := 0; i+1 < len(query); i += 2 {
		req = req.Query(query[i], query[i+1])
	}

	start := time.Now()

	resp, err := req.Do(ctx)
	if err != nil {
		err = classifyTransportError(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Debug("Request failed",
			zap.String("method", method),
			zap.String("handle", handle),
			zap.Error(err))

		return zero, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return zero, fmt.Errorf("%w: failed to read response body: %w", ErrNetwork, err)
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if !IsSuccess(resp.StatusCode) {
		err := StatusFailure(resp, body, handle, time.Now())
		span.SetStatus(codes.Error, err.Error())

		return zero, err
	}

	parsed, err := ParseResponse[T](body)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return zero, err
	}

	if parsed.Failed() {
		err := ClassifyFailure(parsed.Comment, handle)
		span.SetStatus(codes.Error, err.Error())

		return zero, err
	}

	c.logger.Debug("Request completed",
		zap.String("method", method),
		zap.String("handle", handle),
		zap.Duration("duration", time.Since(start)))

	return parsed.Result, nil
}

// classifyTransportError keeps typed errors produced by the middleware chain
// and files everything else under ErrNetwork.
func classifyTransportError(err error) error {
	var (
		throttled *ThrottledError
		status    *StatusError
		notFound  *NotFoundError
		apiErr    *APIError
	)

	switch {
	case errors.As(err, &throttled), errors.As(err, &status), errors.As(err, &notFound), errors.As(err, &apiErr):
		return err
	case errors.Is(err, ErrNetwork):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}
}
