package fetcher

import (
	"errors"

	"github.com/shashank2401/cf-visualizer/internal/codeforces"
)

const (
	failureNotFound = "not_found"
	failureAPI      = "api"
)

// outcome is what gets cached for a key: the normalized data, or a failure
// that is known to repeat within the TTL.
type outcome[T any] struct {
	Data    *T       `json:"data,omitempty"`
	Failure *failure `json:"failure,omitempty"`
}

type failure struct {
	Kind    string `json:"kind"`
	Handle  string `json:"handle,omitempty"`
	Message string `json:"message"`
}

// failureFor returns the cacheable form of err. Transient failures such as
// network errors and throttling return nil and are never cached.
func failureFor(err error) *failure {
	var notFound *codeforces.NotFoundError
	if errors.As(err, &notFound) {
		return &failure{Kind: failureNotFound, Handle: notFound.Handle, Message: notFound.Error()}
	}

	var apiErr *codeforces.APIError
	if errors.As(err, &apiErr) {
		return &failure{Kind: failureAPI, Message: apiErr.Comment}
	}

	return nil
}

func (f *failure) err() error {
	switch f.Kind {
	case failureNotFound:
		return &codeforces.NotFoundError{Handle: f.Handle}
	default:
		return &codeforces.APIError{Comment: f.Message}
	}
}
