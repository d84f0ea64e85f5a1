// Package workpool bounds how many CPU-heavy jobs (password hashing, key
// generation) run at once so a burst of signups cannot starve other requests.
package workpool

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"

	"github.com/hongminglow/custody-be/internal/apperr"
)

// Pool runs functions with at most size of them in flight.
type Pool struct {
	sem *semaphore.Weighted
}

// New returns a pool admitting size concurrent jobs. size < 1 is treated as 1.
func New(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size))}
}

// Do waits for a free slot, then runs fn. If ctx ends while waiting, fn is not run.
func (p *Pool) Do(ctx context.Context, fn func() error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("worker pool: %w", apperr.FromContext(err, "worker pool"))
	}
	defer p.sem.Release(1)
	return fn()
}

// Run is Do for functions that produce a value.
func Run[T any](ctx context.Context, p *Pool, fn func() (T, error)) (T, error) {
	var out T
	err := p.Do(ctx, func() error {
		var err error
		out, err = fn()
		return err
	})
	return out, err
}
