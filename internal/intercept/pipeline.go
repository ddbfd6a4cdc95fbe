package intercept

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var ErrNilInstance = errors.New("hook returned a nil instance")

type Phase int

const (
	// EarlyReference runs when a dependent asks for a component that is still
	// being injected.
	EarlyReference Phase = iota
	AfterInjection
	BeforeDestruction
)

func (p Phase) String() string {
	switch p {
	case EarlyReference:
		return "early-reference"
	case AfterInjection:
		return "after-injection"
	case BeforeDestruction:
		return "before-destruction"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

type Func func(ctx context.Context, name string, instance any) (any, error)

// Hook takes part in every phase it has a func for.
type Hook struct {
	Name              string
	EarlyReference    Func
	AfterInjection    Func
	BeforeDestruction Func
}

func (h Hook) handler(phase Phase) Func {
	switch phase {
	case EarlyReference:
		return h.EarlyReference
	case AfterInjection:
		return h.AfterInjection
	case BeforeDestruction:
		return h.BeforeDestruction
	default:
		return nil
	}
}

type HookError struct {
	Hook      string
	Phase     Phase
	Component string
	Err       error
}

func (e *HookError) Error() string {
	hook := e.Hook
	if hook == "" {
		hook = "<anonymous>"
	}
	return fmt.Sprintf("hook %s failed in %s phase for %s: %v", hook, e.Phase, e.Component, e.Err)
}

func (e *HookError) Unwrap() error {
	return e.Err
}

type Pipeline struct {
	mu    sync.RWMutex
	hooks []Hook
}

func New() *Pipeline {
	return &Pipeline{}
}

func (p *Pipeline) Add(hook Hook) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.hooks = append(p.hooks, hook)
}

func (p *Pipeline) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return len(p.hooks)
}

func (p *Pipeline) Has(phase Phase) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, h := range p.hooks {
		if h.handler(phase) != nil {
			return true
		}
	}
	return false
}

// Apply threads instance through every hook registered for phase, in
// registration order. The first failing hook aborts the fold.
func (p *Pipeline) Apply(ctx context.Context, phase Phase, name string, instance any) (any, error) {
	p.mu.RLock()
	hooks := make([]Hook, len(p.hooks))
	copy(hooks, p.hooks)
	p.mu.RUnlock()

	current := instance
	for _, h := range hooks {
		fn := h.handler(phase)
		if fn == nil {
			continue
		}

		next, err := fn(ctx, name, current)
		if err != nil {
			return nil, &HookError{Hook: h.Name, Phase: phase, Component: name, Err: err}
		}
		if next == nil {
			return nil, &HookError{Hook: h.Name, Phase: phase, Component: name, Err: ErrNilInstance}
		}
		current = next
	}

	return current, nil
}
