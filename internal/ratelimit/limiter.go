// Package ratelimit bounds how often one client identity may hit the public
// write endpoints.  The algorithm is a fixed-window counter: the first
// request of a window opens it with count 1, further requests increment the
// count while it is below the limit, and requests at the limit are denied
// without incrementing.  A burst straddling a window boundary may admit up to
// twice the limit; this is an anti-spam guard, not a security boundary.
package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Count      int           // requests counted in the current window
	Remaining  int           // requests left in the current window
	RetryAfter time.Duration // time until the window resets
}

// Limiter decides whether identity may perform one more request.
type Limiter interface {
	Allow(ctx context.Context, identity string, limit int, window time.Duration) Decision
}

func decide(allowed bool, count, limit int, resetIn time.Duration) Decision {
	rem := limit - count
	if rem < 0 {
		rem = 0
	}
	if resetIn < 0 {
		resetIn = 0
	}
	return Decision{Allowed: allowed, Count: count, Remaining: rem, RetryAfter: resetIn}
}
