package fetcher

import (
	"context"
	"slices"
	"strings"

	"github.com/shashank2401/cf-visualizer/internal/cache"
	"github.com/shashank2401/cf-visualizer/internal/codeforces"
	"github.com/shashank2401/cf-visualizer/internal/ratelimit"
	"go.uber.org/zap"
)

// Cache key prefixes per entity.
const (
	UserInfoPrefix      = "user-data:"
	BatchUserInfoPrefix = "batch-user:"
	RatingHistoryPrefix = "contests:"
	SubmissionsPrefix   = "submissions:"
)

// API is the subset of the Codeforces client the coordinators use.
type API interface {
	User(ctx context.Context, handle string) (codeforces.UserProfile, error)
	UserInfo(ctx context.Context, handles []string) ([]codeforces.UserProfile, error)
	UserRating(ctx context.Context, handle string) ([]codeforces.RatingHistoryEntry, error)
	UserStatus(ctx context.Context, handle string) ([]codeforces.Submission, error)
}

// NewUserInfo creates the single-handle user-info coordinator.
func NewUserInfo(
	api API, store *cache.Store, guard *ratelimit.Guard, logger *zap.Logger,
) *Coordinator[codeforces.UserProfile] {
	return New(Config[codeforces.UserProfile]{
		Name:        "user_info",
		CachePrefix: UserInfoPrefix,
		Store:       store,
		Guard:       guard,
		Fetch:       api.User,
		Logger:      logger,
	})
}

// NewBatchUserInfo creates a coordinator that loads several handles with a
// single request. Its input is a semicolon-separated handle list.
func NewBatchUserInfo(
	api API, store *cache.Store, guard *ratelimit.Guard, logger *zap.Logger,
) *Coordinator[[]codeforces.UserProfile] {
	return New(Config[[]codeforces.UserProfile]{
		Name:        "batch_user_info",
		CachePrefix: BatchUserInfoPrefix,
		Store:       store,
		Guard:       guard,
		Key:         BatchKey,
		Fetch: func(ctx context.Context, key string) ([]codeforces.UserProfile, error) {
			return api.UserInfo(ctx, strings.Split(key, ";"))
		},
		Logger: logger,
	})
}

// NewRatingHistory creates the rating-history coordinator.
func NewRatingHistory(
	api API, store *cache.Store, guard *ratelimit.Guard, logger *zap.Logger,
) *Coordinator[[]codeforces.RatingHistoryEntry] {
	return New(Config[[]codeforces.RatingHistoryEntry]{
		Name:        "rating_history",
		CachePrefix: RatingHistoryPrefix,
		Store:       store,
		Guard:       guard,
		Fetch:       api.UserRating,
		Logger:      logger,
	})
}

// NewSubmissions creates the submission-history coordinator.
func NewSubmissions(
	api API, store *cache.Store, guard *ratelimit.Guard, logger *zap.Logger,
) *Coordinator[[]codeforces.Submission] {
	return New(Config[[]codeforces.Submission]{
		Name:        "submissions",
		CachePrefix: SubmissionsPrefix,
		Store:       store,
		Guard:       guard,
		Fetch:       api.UserStatus,
		Logger:      logger,
	})
}

// BatchKey normalizes a semicolon-separated handle list: handles are folded,
// blanks and duplicates are dropped and first-seen order is kept.
func BatchKey(input string) string {
	var handles []string
	for _, part := range strings.Split(input, ";") {
		key := codeforces.HandleKey(part)
		if key == "" || slices.Contains(handles, key) {
			continue
		}

		handles = append(handles, key)
	}

	return strings.Join(handles, ";")
}
