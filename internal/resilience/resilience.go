// Package resilience bounds calls to storage and third-party services. Every
// attempt gets its own deadline; idempotent reads are retried once.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/hongminglow/custody-be/internal/apperr"
)

// DefaultBackoff is the pause before the single retry of a read.
const DefaultBackoff = 100 * time.Millisecond

// Policy bounds one dependency.
type Policy struct {
	Name    string
	Timeout time.Duration
	Backoff time.Duration
}

// Read runs an idempotent call, retrying once on dependency failures.
func Read[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	backoff := p.Backoff
	if backoff <= 0 {
		backoff = DefaultBackoff
	}
	var out T
	err := retry.Do(ctx, retry.WithMaxRetries(1, retry.NewConstant(backoff)), func(ctx context.Context) error {
		v, err := attempt(ctx, p, fn)
		if err != nil {
			if transient(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, apperr.FromContext(err, p.Name)
	}
	return out, nil
}

// Write runs a call once. Mutations are never retried automatically.
func Write[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	return attempt(ctx, p, fn)
}

// Exec is Write for calls without a result.
func Exec(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	_, err := attempt(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

func attempt[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}
	v, err := fn(ctx)
	if err != nil {
		return v, apperr.FromContext(err, p.Name)
	}
	return v, nil
}

func transient(err error) bool {
	return errors.Is(err, apperr.ErrDependency) || errors.Is(err, apperr.ErrDependencyTimeout)
}
