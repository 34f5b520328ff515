package process

import (
	"context"
	"sync"
)

// Call records one invocation seen by a FakeInvoker.
type Call struct {
	Name string
	Args []string
}

// FakeInvoker is an in-memory Invoker for tests. RunFunc decides the
// outcome of each call; every call is recorded.
type FakeInvoker struct {
	RunFunc func(ctx context.Context, name string, args ...string) (*Result, error)

	mu    sync.Mutex
	calls []Call
}

func (f *FakeInvoker) Run(ctx context.Context, name string, args ...string) (*Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Name: name, Args: append([]string(nil), args...)})
	f.mu.Unlock()

	if f.RunFunc == nil {
		return &Result{}, nil
	}
	return f.RunFunc(ctx, name, args...)
}

func (f *FakeInvoker) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}
