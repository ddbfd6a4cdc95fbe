package disposal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
)

type Hook func(ctx context.Context) error

// Observer is told about every hook invocation.
type Observer func(name string, duration time.Duration, err error)

type Failure struct {
	Name string
	Err  error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("dispose %s: %v", f.Name, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

type entry struct {
	name string
	hook Hook
}

// Registry keeps disposal hooks in registration order, one per name.
type Registry struct {
	mu      sync.Mutex
	entries []entry
	names   map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		names: make(map[string]struct{}),
	}
}

// Register appends hook for name. A name already present is left untouched.
func (r *Registry) Register(name string, hook Hook) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.names[name]; exists {
		return false
	}
	r.names[name] = struct{}{}
	r.entries = append(r.entries, entry{name: name, hook: hook})
	return true
}

func (r *Registry) Has(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, exists := r.names[name]
	return exists
}

func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.name
	}
	return names
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.entries)
}

// Dispose runs and removes the hook registered for name, if any.
func (r *Registry) Dispose(ctx context.Context, name string, observe Observer) error {
	r.mu.Lock()
	idx := -1
	for i, e := range r.entries {
		if e.name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		r.mu.Unlock()
		return nil
	}
	e := r.entries[idx]
	r.entries = append(r.entries[:idx], r.entries[idx+1:]...)
	delete(r.names, name)
	r.mu.Unlock()

	return r.invoke(ctx, e, observe)
}

// DisposeAll runs every hook in reverse registration order. Each entry is
// removed before its hook runs, so a hook that disposes again cannot fire
// twice. Failures are collected and do not stop the remaining hooks. A done
// ctx is reported once but never leaves an entry behind: the remaining hooks
// still run and see the done ctx.
func (r *Registry) DisposeAll(ctx context.Context, observe Observer) error {
	var errs error
	interrupted := false

	for {
		e, ok := r.pop()
		if !ok {
			break
		}
		if err := ctx.Err(); err != nil && !interrupted {
			interrupted = true
			errs = multierr.Append(errs, fmt.Errorf("disposal interrupted: %w", err))
		}
		errs = multierr.Append(errs, r.invoke(ctx, e, observe))
	}

	return errs
}

func (r *Registry) pop() (entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.entries)
	if n == 0 {
		return entry{}, false
	}
	e := r.entries[n-1]
	r.entries = r.entries[:n-1]
	delete(r.names, e.name)
	return e, true
}

func (r *Registry) invoke(ctx context.Context, e entry, observe Observer) (err error) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
		if err != nil {
			err = &Failure{Name: e.name, Err: err}
		}
		if observe != nil {
			observe(e.name, time.Since(start), err)
		}
	}()

	return e.hook(ctx)
}

// Failures unpacks an error returned by Dispose or DisposeAll.
func Failures(err error) []*Failure {
	var failures []*Failure
	for _, e := range multierr.Errors(err) {
		if f, ok := e.(*Failure); ok {
			failures = append(failures, f)
		}
	}
	return failures
}
