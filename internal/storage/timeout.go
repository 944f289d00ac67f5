package storage

import (
	"context"
	"time"
)

// DefaultTimeout bounds a single store call when no timeout is configured
const DefaultTimeout = 5 * time.Second

// WithTimeout bounds a store call. A non-positive d uses DefaultTimeout.
func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultTimeout
	}
	return context.WithTimeout(ctx, d)
}

// Detached returns a bounded context that ignores the parent's cancellation.
// Rollbacks run on it so a client hanging up cannot strand a half-applied change.
func Detached(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return WithTimeout(context.WithoutCancel(ctx), d)
}
