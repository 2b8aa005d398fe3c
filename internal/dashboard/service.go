// Package dashboard assembles profile and comparison reports from the
// fetch coordinators and the stats aggregates.
package dashboard

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shashank2401/cf-visualizer/internal/cache"
	"github.com/shashank2401/cf-visualizer/internal/codeforces"
	"github.com/shashank2401/cf-visualizer/internal/fetcher"
	"github.com/shashank2401/cf-visualizer/internal/ratelimit"
	"github.com/shashank2401/cf-visualizer/internal/stats"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// ErrMissingHandle is returned when a required handle is blank.
var ErrMissingHandle = errors.New("a handle is required")

// Options tune the aggregates.
type Options struct {
	Location     *time.Location
	TopLanguages int
	TopTags      int
	Now          func() time.Time
}

// DefaultOptions mirrors the dashboard defaults.
func DefaultOptions() Options {
	return Options{
		Location:     stats.Location(stats.DefaultOffsetMinutes),
		TopLanguages: 6,
		TopTags:      8,
		Now:          time.Now,
	}
}

// slot holds the coordinators behind one handle input.
type slot struct {
	user        *fetcher.Coordinator[codeforces.UserProfile]
	ratings     *fetcher.Coordinator[[]codeforces.RatingHistoryEntry]
	submissions *fetcher.Coordinator[[]codeforces.Submission]
}

func newSlot(api fetcher.API, persistent, session *cache.Store, guard *ratelimit.Guard, logger *zap.Logger) *slot {
	return &slot{
		user:        fetcher.NewUserInfo(api, persistent, guard, logger),
		ratings:     fetcher.NewRatingHistory(api, session, guard, logger),
		submissions: fetcher.NewSubmissions(api, session, guard, logger),
	}
}

func (s *slot) close() {
	s.user.Close()
	s.ratings.Close()
	s.submissions.Close()
}

// Service builds reports. It keeps its coordinators between calls, so a
// new handle cancels whatever the previous handle still had in flight.
type Service struct {
	primary   *slot
	secondary *slot
	batch     *fetcher.Coordinator[[]codeforces.UserProfile]
	opts      Options
	logger    *zap.Logger
}

// NewService creates a Service. User info goes to the persistent store,
// rating history and submissions to the session store.
func NewService(
	api fetcher.API, persistent, session *cache.Store, guard *ratelimit.Guard, opts Options, logger *zap.Logger,
) *Service {
	defaults := DefaultOptions()
	if opts.Location == nil {
		opts.Location = defaults.Location
	}

	if opts.Now == nil {
		opts.Now = defaults.Now
	}

	return &Service{
		primary:   newSlot(api, persistent, session, guard, logger),
		secondary: newSlot(api, persistent, session, guard, logger),
		batch:     fetcher.NewBatchUserInfo(api, persistent, guard, logger),
		opts:      opts,
		logger:    logger.Named("dashboard"),
	}
}

// Close cancels all in-flight requests.
func (s *Service) Close() {
	s.primary.close()
	s.secondary.close()
	s.batch.Close()
}

// loaded is the raw data of one handle.
type loaded struct {
	profile     codeforces.UserProfile
	history     []codeforces.RatingHistoryEntry
	submissions []codeforces.Submission
	hasProfile  bool
	hasHistory  bool
	hasSubs     bool
}

func (l *loaded) complete() bool {
	return l.hasProfile && l.hasHistory && l.hasSubs
}

// Profile loads one handle and builds its report.
func (s *Service) Profile(ctx context.Context, handle string) (*ProfileReport, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return nil, ErrMissingHandle
	}

	var (
		data     loaded
		failures = make([]LoadError, 3)
	)

	p := pool.New().WithContext(ctx)
	s.loadUser(p, s.primary, handle, &data, &failures[0])
	s.loadHistory(p, s.primary, handle, &data, &failures[1])
	s.loadSubmissions(p, s.primary, handle, &data, &failures[2])
	_ = p.Wait()

	if err := CombineErrors(failures); err != nil {
		return nil, err
	}

	if !data.complete() {
		return nil, codeforces.ErrIncompleteData
	}

	return s.buildProfile(&data), nil
}

// Compare loads two handles and builds the comparison report. Both users'
// profiles are fetched with one batched request.
func (s *Service) Compare(ctx context.Context, handle1, handle2 string) (*CompareReport, error) {
	handle1, handle2 = strings.TrimSpace(handle1), strings.TrimSpace(handle2)
	if handle1 == "" || handle2 == "" {
		return nil, ErrMissingHandle
	}

	var (
		d1, d2   loaded
		failures = make([]LoadError, 6)
		same     = codeforces.HandleKey(handle1) == codeforces.HandleKey(handle2)
	)

	p := pool.New().WithContext(ctx)
	p.Go(func(ctx context.Context) error {
		users, err := s.batch.Load(ctx, handle1+";"+handle2)
		if err != nil {
			failures[0] = LoadError{Handle: handle1, Entity: EntityUser, Err: err}
			if !same && !errors.Is(err, codeforces.ErrNotFound) {
				failures[1] = LoadError{Handle: handle2, Entity: EntityUser, Err: err}
			}

			return nil
		}

		d1.profile, d1.hasProfile = findUser(users, handle1)
		d2.profile, d2.hasProfile = findUser(users, handle2)

		return nil
	})
	s.loadHistory(p, s.primary, handle1, &d1, &failures[2])
	s.loadSubmissions(p, s.primary, handle1, &d1, &failures[4])

	// One handle spelled twice is loaded once and shared by both sides
	if !same {
		s.loadHistory(p, s.secondary, handle2, &d2, &failures[3])
		s.loadSubmissions(p, s.secondary, handle2, &d2, &failures[5])
	}
	_ = p.Wait()

	if same {
		d2.history, d2.hasHistory = d1.history, d1.hasHistory
		d2.submissions, d2.hasSubs = d1.submissions, d1.hasSubs
	}

	if err := CombineErrors(failures); err != nil {
		return nil, err
	}

	if !d1.complete() || !d2.complete() {
		return nil, codeforces.ErrIncompleteData
	}

	return s.buildComparison(&d1, &d2), nil
}

func (s *Service) loadUser(p *pool.ContextPool, sl *slot, handle string, into *loaded, failure *LoadError) {
	p.Go(func(ctx context.Context) error {
		profile, err := sl.user.Load(ctx, handle)
		if err != nil {
			*failure = LoadError{Handle: handle, Entity: EntityUser, Err: err}
			return nil
		}

		into.profile, into.hasProfile = profile, true

		return nil
	})
}

func (s *Service) loadHistory(p *pool.ContextPool, sl *slot, handle string, into *loaded, failure *LoadError) {
	p.Go(func(ctx context.Context) error {
		history, err := sl.ratings.Load(ctx, handle)
		if err != nil {
			*failure = LoadError{Handle: handle, Entity: EntityContests, Err: err}
			return nil
		}

		into.history, into.hasHistory = history, true

		return nil
	})
}

func (s *Service) loadSubmissions(p *pool.ContextPool, sl *slot, handle string, into *loaded, failure *LoadError) {
	p.Go(func(ctx context.Context) error {
		subs, err := sl.submissions.Load(ctx, handle)
		if err != nil {
			*failure = LoadError{Handle: handle, Entity: EntitySubmissions, Err: err}
			return nil
		}

		into.submissions, into.hasSubs = subs, true

		return nil
	})
}

func findUser(users []codeforces.UserProfile, handle string) (codeforces.UserProfile, bool) {
	key := codeforces.HandleKey(handle)
	for _, u := range users {
		if codeforces.HandleKey(u.Handle) == key {
			return u, true
		}
	}

	return codeforces.UserProfile{}, false
}

func (s *Service) buildProfile(d *loaded) *ProfileReport {
	subs := d.submissions

	report := &ProfileReport{
		Profile:         d.profile,
		Tier:            stats.RatingTier(d.profile.Rating),
		Facts:           stats.Facts(d.history, subs),
		RatingHistogram: stats.RatingHistogram(subs),
		Tags:            stats.TagHistogram(subs, s.opts.TopTags),
		Languages:       stats.LanguageHistogram(subs, s.opts.TopLanguages),
		Verdicts:        stats.VerdictHistogram(subs),
		Activity:        stats.ActivitySeries(subs, s.opts.Location),
		LongestStreak:   stats.LongestStreak(subs, s.opts.Location),
		CurrentStreak:   stats.CurrentStreak(subs, s.opts.Now(), s.opts.Location),
		History:         d.history,
	}

	s.logger.Debug("Built profile report",
		zap.String("handle", d.profile.Handle),
		zap.Int("submissions", len(subs)),
		zap.Int("contests", len(d.history)))

	return report
}

func (s *Service) buildComparison(d1, d2 *loaded) *CompareReport {
	f1 := stats.Facts(d1.history, d1.submissions)
	f2 := stats.Facts(d2.history, d2.submissions)

	report := &CompareReport{
		User1:         d1.profile,
		User2:         d2.profile,
		Comparison:    stats.CompareFacts(d1.profile, d2.profile, f1, f2),
		Ratings:       stats.MergeByKey(stats.RatingHistogram(d1.submissions), stats.RatingHistogram(d2.submissions)),
		Tags:          stats.MergeTags(stats.TagCounts(d1.submissions), stats.TagCounts(d2.submissions)),
		Duels:         stats.Duels(d1.history, d2.history),
		RatingHistory: stats.MergeRatingHistories(d1.history, d2.history),
	}

	s.logger.Debug("Built comparison report",
		zap.String("handle1", d1.profile.Handle),
		zap.String("handle2", d2.profile.Handle),
		zap.Int("shared_contests", len(report.Duels.Contests)))

	return report
}
