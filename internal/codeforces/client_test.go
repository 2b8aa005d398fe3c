package codeforces_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jaxron/axonet/pkg/client"
	"github.com/shashank2401/cf-visualizer/internal/codeforces"
	"github.com/shashank2401/cf-visualizer/internal/setup/client/interceptor/throttle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *codeforces.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	httpClient := client.NewClient(
		client.WithTimeout(5*time.Second),
		client.WithMiddleware(throttle.New()),
	)

	return codeforces.NewClient(httpClient, server.URL, 0, zap.NewNop())
}

func writeBody(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestClientUserInfo(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/user.info", r.URL.Path)
		assert.Equal(t, "tourist;petr", r.URL.Query().Get("handles"))
		writeBody(w, http.StatusOK, `{"status":"OK","result":[
			{"handle":"tourist","rating":3800,"maxRating":4000,"rank":"legendary grandmaster","titlePhoto":"https://t.jpg"},
			{"handle":"Petr"}
		]}`)
	})

	users, err := c.UserInfo(context.Background(), []string{"tourist", "petr"})
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, 3800, users[0].Rating)
	assert.Zero(t, users[1].Rating)
	assert.Empty(t, users[1].Avatar)
}

func TestClientUserNotFound(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "failed with 400", status: http.StatusBadRequest, body: `{"status":"FAILED","comment":"handles: User with handle ghost not found"}`},
		{name: "failed with 200", status: http.StatusOK, body: `{"status":"FAILED","comment":"handles: User with handle ghost not found"}`},
		{name: "empty result", status: http.StatusOK, body: `{"status":"OK","result":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				writeBody(w, tt.status, tt.body)
			})

			_, err := c.User(context.Background(), "ghost")
			var notFound *codeforces.NotFoundError
			require.ErrorAs(t, err, &notFound)
			assert.Equal(t, "ghost", notFound.Handle)
		})
	}
}

func TestClientThrottled(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "120")
		writeBody(w, http.StatusTooManyRequests, `{"status":"FAILED","comment":"Call limit exceeded"}`)
	})

	_, err := c.UserRating(context.Background(), "tourist")
	var throttled *codeforces.ThrottledError
	require.ErrorAs(t, err, &throttled)
	assert.Equal(t, 120*time.Second, throttled.RetryAfter)
}

func TestClientCallLimitComment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
	}{
		{name: "failed with 200", status: http.StatusOK},
		{name: "failed with 400", status: http.StatusBadRequest},
		{name: "failed with 503", status: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				writeBody(w, tt.status, `{"status":"FAILED","comment":"Call limit exceeded"}`)
			})

			_, err := c.UserRating(context.Background(), "tourist")
			var throttled *codeforces.ThrottledError
			require.ErrorAs(t, err, &throttled)
			assert.Zero(t, throttled.RetryAfter)

			var apiErr *codeforces.APIError
			assert.False(t, errors.As(err, &apiErr))
		})
	}
}

func TestClientServerError(t *testing.T) {
	t.Parallel()

	t.Run("status text", func(t *testing.T) {
		t.Parallel()

		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			writeBody(w, http.StatusServiceUnavailable, `<html>down</html>`)
		})

		_, err := c.UserRating(context.Background(), "tourist")
		var statusErr *codeforces.StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusServiceUnavailable, statusErr.Code)
		assert.Contains(t, err.Error(), "Service Unavailable")
		assert.True(t, errors.Is(err, codeforces.ErrNetwork))
	})

	t.Run("parsed comment", func(t *testing.T) {
		t.Parallel()

		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			writeBody(w, http.StatusBadRequest, `{"status":"FAILED","comment":"handle: Field should not be empty"}`)
		})

		_, err := c.UserRating(context.Background(), "x")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "handle: Field should not be empty")
	})
}

func TestClientUserStatusQuery(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/user.status", r.URL.Path)
		assert.Equal(t, "tourist", r.URL.Query().Get("handle"))
		assert.Equal(t, "1", r.URL.Query().Get("from"))
		assert.Equal(t, "2000", r.URL.Query().Get("count"))
		writeBody(w, http.StatusOK, `{"status":"OK","result":[
			{"id":2,"creationTimeSeconds":1700000100,"verdict":"OK","programmingLanguage":"C++17","problem":{"contestId":1,"index":"A","rating":800,"tags":["math"]}},
			{"id":1,"creationTimeSeconds":1700000000,"verdict":"WRONG_ANSWER","programmingLanguage":"C++17","problem":{"contestId":1,"index":"A","rating":800,"tags":["math"]}}
		]}`)
	})

	subs, err := c.UserStatus(context.Background(), "tourist")
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, codeforces.VerdictOK, subs[0].Verdict)
	assert.Equal(t, []string{"math"}, subs[0].Problem.Tags)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClientMalformedBody(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeBody(w, http.StatusOK, `not json`)
	})

	_, err := c.UserRating(context.Background(), "tourist")
	var parseErr *codeforces.ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestClientCancelled(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeBody(w, http.StatusOK, `{"status":"OK","result":[]}`)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.UserRating(ctx, "tourist")
	require.Error(t, err)
	assert.True(t, errors.Is(err, codeforces.ErrNetwork))
}
