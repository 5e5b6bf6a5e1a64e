package resilience

import (
	"context"
	"sync"
)

// Flight deduplicates concurrent calls for the same key. Late callers share the result
// of the call already in progress.
type Flight[T any] struct {
	mu    sync.Mutex
	calls map[string]*flightCall[T]
}

type flightCall[T any] struct {
	done chan struct{}
	val  T
	err  error
	dups int
}

// Do runs fn once per key for all concurrent callers. fn runs on a context that keeps the
// first caller's values but not its cancellation, so one caller giving up never fails the
// others. Each caller stops waiting when its own ctx is done.
func (g *Flight[T]) Do(ctx context.Context, key string, fn func(context.Context) (T, error)) (T, error, bool) {
	g.mu.Lock()
	if g.calls == nil {
		g.calls = make(map[string]*flightCall[T])
	}

	c, shared := g.calls[key]
	if shared {
		c.dups++
	} else {
		c = &flightCall[T]{done: make(chan struct{})}
		g.calls[key] = c
		go g.run(context.WithoutCancel(ctx), key, c, fn)
	}
	g.mu.Unlock()

	select {
	case <-c.done:
		if !shared {
			g.mu.Lock()
			shared = c.dups > 0
			g.mu.Unlock()
		}
		return c.val, c.err, shared
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err(), shared
	}
}

func (g *Flight[T]) run(ctx context.Context, key string, c *flightCall[T], fn func(context.Context) (T, error)) {
	defer func() {
		g.mu.Lock()
		delete(g.calls, key)
		g.mu.Unlock()
		close(c.done)
	}()
	c.val, c.err = fn(ctx)
}
