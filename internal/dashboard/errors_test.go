package dashboard_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shashank2401/cf-visualizer/internal/codeforces"
	"github.com/shashank2401/cf-visualizer/internal/dashboard"
	"github.com/shashank2401/cf-visualizer/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCombineErrors(t *testing.T) {
	t.Parallel()

	network := fmt.Errorf("%w: connection refused", codeforces.ErrNetwork)

	tests := []struct {
		name     string
		failures []dashboard.LoadError
		want     string
	}{
		{
			name: "not found reported once",
			failures: []dashboard.LoadError{
				{Handle: "ghost", Entity: dashboard.EntityUser, Err: &codeforces.NotFoundError{Handle: "ghost"}},
				{Handle: "ghost", Entity: dashboard.EntityContests, Err: &codeforces.NotFoundError{Handle: "ghost"}},
				{},
			},
			want: "User 'ghost' not found.",
		},
		{
			name: "entity prefixes",
			failures: []dashboard.LoadError{
				{Handle: "alice", Entity: dashboard.EntitySubmissions, Err: network},
				{Handle: "bob", Entity: dashboard.EntityContests, Err: &codeforces.APIError{Comment: "Internal error."}},
				{Handle: "carol", Entity: dashboard.EntityUser, Err: network},
			},
			want: "Submissions for alice: network error: connection refused. " +
				"Contests for bob: Internal error. " +
				"Error for carol: network error: connection refused.",
		},
		{
			name: "identical messages collapse",
			failures: []dashboard.LoadError{
				{Handle: "alice", Entity: dashboard.EntitySubmissions, Err: network},
				{Handle: "alice", Entity: dashboard.EntitySubmissions, Err: network},
			},
			want: "Submissions for alice: network error: connection refused.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := dashboard.CombineErrors(tt.failures)
			require.Error(t, err)
			assert.Equal(t, tt.want, err.Error())
		})
	}
}

func TestCombineErrorsNothingFailed(t *testing.T) {
	t.Parallel()

	require.NoError(t, dashboard.CombineErrors(nil))
	require.NoError(t, dashboard.CombineErrors(make([]dashboard.LoadError, 3)))
}

func TestCombineErrorsRateLimitWins(t *testing.T) {
	t.Parallel()

	err := dashboard.CombineErrors([]dashboard.LoadError{
		{Handle: "ghost", Entity: dashboard.EntityUser, Err: &codeforces.NotFoundError{Handle: "ghost"}},
		{Handle: "alice", Entity: dashboard.EntityContests, Err: &ratelimit.WaitError{Wait: 30 * time.Second}},
		{Handle: "alice", Entity: dashboard.EntitySubmissions, Err: &ratelimit.WaitError{Wait: 110 * time.Second}},
	})

	var wait *ratelimit.WaitError
	require.ErrorAs(t, err, &wait)
	assert.Equal(t, int64(110), wait.Seconds())
	assert.Equal(t, "Too many requests. Please wait 110 seconds.", err.Error())
}

func TestCombineErrorsBareThrottleUsesDefault(t *testing.T) {
	t.Parallel()

	err := dashboard.CombineErrors([]dashboard.LoadError{
		{Handle: "alice", Entity: dashboard.EntityUser, Err: &codeforces.ThrottledError{}},
	})

	var wait *ratelimit.WaitError
	require.ErrorAs(t, err, &wait)
	assert.Equal(t, ratelimit.DefaultRetryAfter, wait.Wait)
}

func TestCombinedErrorUnwraps(t *testing.T) {
	t.Parallel()

	err := dashboard.CombineErrors([]dashboard.LoadError{
		{Handle: "ghost", Entity: dashboard.EntityUser, Err: &codeforces.NotFoundError{Handle: "ghost"}},
		{Handle: "alice", Entity: dashboard.EntitySubmissions, Err: codeforces.ErrNetwork},
	})

	require.ErrorIs(t, err, codeforces.ErrNotFound)
	require.ErrorIs(t, err, codeforces.ErrNetwork)
	assert.False(t, errors.Is(err, ratelimit.ErrTooManyRequests))
}
