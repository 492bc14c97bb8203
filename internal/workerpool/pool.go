// Package workerpool bounds the number of concurrent blocking provider calls
// an adapter issues.
package workerpool

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/semaphore"
)

// ErrPoolClosed is returned when work is submitted after Close
var ErrPoolClosed = errors.New("worker pool is closed")

// DefaultSize is the pool size used when none is configured
const DefaultSize = 5

// Pool runs functions with at most size of them in flight
type Pool struct {
	sem    *semaphore.Weighted
	size   int
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// New creates a pool of the given size
func New(size int) *Pool {
	if size <= 0 {
		size = DefaultSize
	}
	return &Pool{
		sem:  semaphore.NewWeighted(int64(size)),
		size: size,
	}
}

// Size returns the maximum number of concurrent calls
func (p *Pool) Size() int {
	return p.size
}

func (p *Pool) enter() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	p.wg.Add(1)
	return nil
}

// Do runs fn on the pool and waits for its result
func (p *Pool) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := p.enter(); err != nil {
		return err
	}
	defer p.wg.Done()

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)
	return fn(ctx)
}

// ForEach calls fn for every index in [0, n) with bounded concurrency and
// returns the joined errors of all calls
func (p *Pool) ForEach(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	if err := p.enter(); err != nil {
		return err
	}
	defer p.wg.Done()

	var (
		mu   sync.Mutex
		errs []error
		wg   sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		if err := p.sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
			break
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer p.sem.Release(1)
			if err := fn(ctx, i); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	return errors.Join(errs...)
}

// Close rejects new work and waits for in-flight calls. It is safe to call
// more than once.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.wg.Wait()
	return nil
}
