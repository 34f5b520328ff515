package transcription

import (
	"context"
	"sync"
)

// Lazy holds a single-owner resource that is loaded on first use. While a
// load is in flight other callers wait for it instead of starting their own.
// A failed load is not cached; the next caller tries again.
type Lazy[T any] struct {
	load func(ctx context.Context) (T, error)

	mu           sync.Mutex
	value        T
	ready        bool
	initializing bool
	done         chan struct{}
}

func NewLazy[T any](load func(ctx context.Context) (T, error)) *Lazy[T] {
	return &Lazy[T]{load: load}
}

// Acquire returns the loaded value, loading it or waiting for a concurrent load.
func (l *Lazy[T]) Acquire(ctx context.Context) (T, error) {
	for {
		l.mu.Lock()
		if l.ready {
			v := l.value
			l.mu.Unlock()
			return v, nil
		}
		if l.initializing {
			done := l.done
			l.mu.Unlock()
			select {
			case <-done:
				continue
			case <-ctx.Done():
				var zero T
				return zero, ctx.Err()
			}
		}
		l.initializing = true
		l.done = make(chan struct{})
		l.mu.Unlock()

		v, err := l.load(ctx)

		l.mu.Lock()
		l.initializing = false
		if err == nil {
			l.value = v
			l.ready = true
		}
		close(l.done)
		l.mu.Unlock()

		return v, err
	}
}

// Peek returns the value without loading it.
func (l *Lazy[T]) Peek() (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.value, l.ready
}
