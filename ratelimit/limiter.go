package ratelimit

import (
	"context"
	"errors"
	"time"
)

// ErrCapacityExceeded is returned when the limiter cannot track any
// more keys.
var ErrCapacityExceeded = errors.New("ratelimit: limiter key capacity exceeded")

// Decision is the outcome of one Allow call. Limit, Remaining, and
// ResetAt feed the RateLimit-* response headers.
type Decision struct {
	// Allowed reports whether the request fits the budget.
	Allowed bool

	// Limit is the window budget the decision was made against.
	Limit int

	// Remaining is the budget left in the current window.
	Remaining int

	// ResetAt is when the current window ends.
	ResetAt time.Time
}

// Limiter decides whether a keyed request fits its budget of limit
// requests per window. A non-positive limit disables limiting for the
// call.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error)
}
