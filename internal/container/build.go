package container

import (
	"context"
	"sync"

	"github.com/danpasecinic/thimble/internal/scope"
)

// frame is one component under construction. Frames are immutable and link
// to the component that asked for them, so a context can be handed to other
// goroutines without sharing mutable state.
type frame struct {
	name   string
	scope  scope.Scope
	parent *frame
}

type buildKey struct {
	c *Container
}

func (c *Container) frameFrom(ctx context.Context) *frame {
	f, _ := ctx.Value(buildKey{c}).(*frame)
	return f
}

func (c *Container) withFrame(ctx context.Context, f *frame) context.Context {
	return context.WithValue(ctx, buildKey{c}, f)
}

type tokenKey struct{}

// BuildToken identifies the component build a context belongs to. Every phase
// of one build sees the same token and distinct builds see distinct tokens.
// Contexts outside a build yield nil.
func BuildToken(ctx context.Context) any {
	if f, ok := ctx.Value(tokenKey{}).(*frame); ok {
		return f
	}
	return nil
}

func (c *Container) enter(ctx context.Context, f *frame) context.Context {
	return context.WithValue(c.withFrame(ctx, f), tokenKey{}, f)
}

func (f *frame) push(name string, s scope.Scope) *frame {
	return &frame{name: name, scope: s, parent: f}
}

func (f *frame) find(name string) *frame {
	for ; f != nil; f = f.parent {
		if f.name == name {
			return f
		}
	}
	return nil
}

func (f *frame) descends(ancestor *frame) bool {
	for ; f != nil; f = f.parent {
		if f == ancestor {
			return true
		}
	}
	return false
}

// uncachedUntil reports whether any frame from f up to and including stop
// belongs to an uncached component.
func (f *frame) uncachedUntil(stop *frame) bool {
	for ; f != nil; f = f.parent {
		if !f.scope.Cached() {
			return true
		}
		if f == stop {
			break
		}
	}
	return false
}

// chain returns the names under construction, outermost first.
func (f *frame) chain() []string {
	var names []string
	for ; f != nil; f = f.parent {
		names = append(names, f.name)
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return names
}

// path returns the chain followed by next.
func (f *frame) path(next string) []string {
	return append(f.chain(), next)
}

type inflight struct {
	owner *frame
	done  chan struct{}
}

type waiter struct {
	at   *frame
	name string
}

// buildLocks serializes construction per name. Builds of distinct names run
// concurrently; a build that would wait on a name whose owner is, directly or
// through other builds, waiting on this one is told so instead of blocking.
type buildLocks struct {
	mu       sync.Mutex
	inflight map[string]*inflight
	waiting  map[*waiter]struct{}
}

func newBuildLocks() *buildLocks {
	return &buildLocks{
		inflight: make(map[string]*inflight),
		waiting:  make(map[*waiter]struct{}),
	}
}

// cycle describes a wait that would never end: the name's owner is blocked
// on the requesting build.
type cycle struct {
	owner     *frame
	prototype bool
}

// acquire takes the lock for f.name on behalf of the build ending in f. It
// returns a release func, or a non-nil cycle when waiting would deadlock.
func (l *buildLocks) acquire(ctx context.Context, f *frame) (func(), *cycle, error) {
	for {
		l.mu.Lock()
		held, busy := l.inflight[f.name]
		if !busy {
			entry := &inflight{owner: f, done: make(chan struct{})}
			l.inflight[f.name] = entry
			l.mu.Unlock()
			return func() { l.release(f.name, entry) }, nil, nil
		}
		if found, prototype := l.closes(f.parent, f.name); found {
			l.mu.Unlock()
			return nil, &cycle{owner: held.owner, prototype: prototype}, nil
		}
		w := &waiter{at: f, name: f.name}
		l.waiting[w] = struct{}{}
		l.mu.Unlock()

		var err error
		select {
		case <-held.done:
		case <-ctx.Done():
			err = ctx.Err()
		}

		l.mu.Lock()
		delete(l.waiting, w)
		l.mu.Unlock()
		if err != nil {
			return nil, nil, err
		}
	}
}

func (l *buildLocks) release(name string, entry *inflight) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.inflight[name] == entry {
		delete(l.inflight, name)
	}
	for w := range l.waiting {
		if w.name == name {
			delete(l.waiting, w)
		}
	}
	close(entry.done)
}

// closes reports whether the build ending in tip waiting for name would close
// a wait cycle, and whether an uncached component takes part in it. Callers
// hold l.mu.
func (l *buildLocks) closes(tip *frame, name string) (bool, bool) {
	visited := make(map[string]bool)

	var visit func(target string) (bool, bool)
	visit = func(target string) (bool, bool) {
		if visited[target] {
			return false, false
		}
		visited[target] = true

		held, ok := l.inflight[target]
		if !ok {
			return false, false
		}
		for w := range l.waiting {
			if !w.at.descends(held.owner) {
				continue
			}
			prototype := w.at.parent.uncachedUntil(held.owner)
			if mine := tip.find(w.name); mine != nil {
				return true, prototype || tip.uncachedUntil(mine)
			}
			if found, p := visit(w.name); found {
				return true, prototype || p
			}
		}
		return false, false
	}

	return visit(name)
}
