//go:build test
// +build test

package cmdtrace

import (
	"context"
	"sync"
)

// Recorder wraps an Executor and remembers every command line it saw.
type Recorder struct {
	Inner Executor

	mu    sync.Mutex
	calls [][]string
}

func (r *Recorder) Trace(ctx context.Context, name string, args ...string) (Result, error) {
	r.mu.Lock()
	r.calls = append(r.calls, append([]string{name}, args...))
	r.mu.Unlock()
	return r.Inner.Trace(ctx, name, args...)
}

func (r *Recorder) Calls() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.calls...)
}

// Subcommands returns the first argument of every recorded call.
func (r *Recorder) Subcommands() []string {
	var subs []string
	for _, c := range r.Calls() {
		if len(c) > 1 {
			subs = append(subs, c[1])
		}
	}
	return subs
}

// Func adapts a function to Executor.
type Func func(ctx context.Context, name string, args ...string) (Result, error)

func (f Func) Trace(ctx context.Context, name string, args ...string) (Result, error) {
	return f(ctx, name, args...)
}
