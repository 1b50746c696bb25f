// Package ratelimit throttles repeated login attempts with a fixed-window
// counter, either in process memory or shared through Redis.
package ratelimit

import (
	"context"
	"time"
)

// Limiter decides whether another attempt for key is allowed at now. When it
// is not, retryAfter tells how long until the window resets.
type Limiter interface {
	Allow(ctx context.Context, key string, now time.Time) (allowed bool, retryAfter time.Duration, err error)
}
