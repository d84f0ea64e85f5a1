package auth

import "context"

// Limiter decides whether another password attempt for key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

// AllowAll is the default Limiter.
type AllowAll struct{}

func (AllowAll) Allow(context.Context, string) bool { return true }
