package dashboard

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/shashank2401/cf-visualizer/internal/codeforces"
	"github.com/shashank2401/cf-visualizer/internal/ratelimit"
)

// Entity names the data set a load failure belongs to.
type Entity string

const (
	EntityUser        Entity = "user"
	EntitySubmissions Entity = "submissions"
	EntityContests    Entity = "contests"
)

// prefix returns the message prefix used for entity failures.
func (e Entity) prefix(handle string) string {
	switch e {
	case EntitySubmissions:
		return "Submissions for " + handle
	case EntityContests:
		return "Contests for " + handle
	default:
		return "Error for " + handle
	}
}

// LoadError is a failed load of one entity for one handle.
type LoadError struct {
	Handle string
	Entity Entity
	Err    error
}

// CombinedError joins the distinct messages of several load failures.
type CombinedError struct {
	Messages []string
	errs     []error
}

func (e *CombinedError) Error() string {
	return strings.Join(e.Messages, ". ") + "."
}

func (e *CombinedError) Unwrap() []error {
	return e.errs
}

// CombineErrors reduces per-entity failures to one error. A rate-limit
// failure wins outright and reports the longest remaining wait. Not-found
// failures name the handle once, other failures are prefixed with the
// handle and entity, and repeated messages are dropped. It returns nil when
// nothing failed.
func CombineErrors(failures []LoadError) error {
	var (
		messages []string
		errs     []error
		wait     *ratelimit.WaitError
	)

	for _, f := range failures {
		if f.Err == nil {
			continue
		}

		var w *ratelimit.WaitError
		if errors.As(f.Err, &w) {
			if wait == nil || w.Wait > wait.Wait {
				wait = w
			}

			continue
		}

		if errors.Is(f.Err, ratelimit.ErrTooManyRequests) {
			if wait == nil {
				wait = &ratelimit.WaitError{Wait: ratelimit.DefaultRetryAfter}
			}

			continue
		}

		var msg string

		var notFound *codeforces.NotFoundError
		if errors.As(f.Err, &notFound) {
			msg = notFound.Error()
		} else {
			msg = fmt.Sprintf("%s: %s", f.Entity.prefix(f.Handle), strings.TrimSuffix(f.Err.Error(), "."))
		}

		errs = append(errs, f.Err)
		if !slices.Contains(messages, msg) {
			messages = append(messages, msg)
		}
	}

	if wait != nil {
		return wait
	}

	if len(messages) == 0 {
		return nil
	}

	return &CombinedError{Messages: messages, errs: errs}
}
