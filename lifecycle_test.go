package thimble_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/danpasecinic/thimble"
)

type recorder struct {
	mu    sync.Mutex
	order []string
}

func (r *recorder) add(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = append(r.order, name)
}

func (r *recorder) get() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

type resource struct {
	name string
	rec  *recorder
	fail error
}

func (r *resource) Dispose(context.Context) error {
	r.rec.add(r.name)
	return r.fail
}

type closerResource struct {
	closed atomic.Bool
}

func (c *closerResource) Close() error {
	c.closed.Store(true)
	return nil
}

type awareService struct {
	name     string
	resolver thimble.Resolver
	inits    int
}

func (s *awareService) SetComponentName(name string) { s.name = name }

func (s *awareService) SetResolver(r thimble.Resolver) { s.resolver = r }

func (s *awareService) Init(context.Context) error {
	s.inits++
	return nil
}

func defineResource(t *testing.T, c *thimble.Container, name string, rec *recorder, fail error, deps ...string) {
	t.Helper()

	err := thimble.Define(c, name, func(context.Context, thimble.Resolver) (*resource, error) {
		return &resource{name: name, rec: rec, fail: fail}, nil
	}, thimble.WithDependencies(deps...), thimble.WithInjector(
		func(context.Context, any, string, any) error { return nil },
	))
	if err != nil {
		t.Fatalf("failed to define %s: %v", name, err)
	}
}

func assertOrder(t *testing.T, got, want []string) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("expected order %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
}

func TestContainer_StartStop(t *testing.T) {
	t.Parallel()

	c := thimble.New()
	ctx := context.Background()
	rec := &recorder{}

	defineResource(t, c, "config", rec, nil)
	defineResource(t, c, "database", rec, nil, "config")
	defineResource(t, c, "server", rec, nil, "database")

	if err := c.Start(ctx); err != nil {
		t.Fatalf("failed to start: %v", err)
	}
	if c.State() != thimble.StateRunning {
		t.Errorf("expected running, got %s", c.State())
	}

	if err := c.Stop(ctx); err != nil {
		t.Fatalf("failed to stop: %v", err)
	}
	if c.State() != thimble.StateStopped {
		t.Errorf("expected stopped, got %s", c.State())
	}

	assertOrder(t, rec.get(), []string{"server", "database", "config"})
}

func TestContainer_DisposalFollowsCompletion(t *testing.T) {
	t.Parallel()

	c := thimble.New()
	ctx := context.Background()
	rec := &recorder{}

	// Defined out of dependency order: completion order is x, y, z.
	defineResource(t, c, "z", rec, nil, "y")
	defineResource(t, c, "y", rec, nil, "x")
	defineResource(t, c, "x", rec, nil)

	if _, err := c.Resolve(ctx, "z"); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if err := c.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	assertOrder(t, rec.get(), []string{"z", "y", "x"})
}

func TestContainer_StopAggregatesFailures(t *testing.T) {
	t.Parallel()

	c := thimble.New()
	ctx := context.Background()
	rec := &recorder{}

	defineResource(t, c, "x", rec, errors.New("x broke"))
	defineResource(t, c, "y", rec, nil)
	defineResource(t, c, "z", rec, errors.New("z broke"))

	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	err := c.Stop(ctx)
	if !thimble.IsShutdownFailed(err) {
		t.Fatalf("expected shutdown failure, got %v", err)
	}
	if !thimble.IsDisposalFailure(err) {
		t.Errorf("expected disposal failure, got %v", err)
	}
	if !errors.Is(err, thimble.ErrDisposal) {
		t.Error("expected errors.Is to match ErrDisposal")
	}

	var e *thimble.Error
	if errors.As(errors.Unwrap(err), &e) && e.Service != "z,x" {
		t.Errorf("expected failing components z,x, got %q", e.Service)
	}

	assertOrder(t, rec.get(), []string{"z", "y", "x"})
}

func TestContainer_StartError(t *testing.T) {
	t.Parallel()

	c := thimble.New()
	_ = thimble.Define(c, "broken", func(context.Context, thimble.Resolver) (*Config, error) {
		return nil, errors.New("boom")
	})

	err := c.Start(context.Background())
	if !thimble.IsStartupFailed(err) {
		t.Fatalf("expected startup failure, got %v", err)
	}
	if !thimble.IsConstructionFailure(err) {
		t.Errorf("expected the construction failure to be classified, got %v", err)
	}
	if c.State() != thimble.StateNew {
		t.Errorf("expected state to reset to new, got %s", c.State())
	}
}

func TestContainer_DoubleStart(t *testing.T) {
	t.Parallel()

	c := thimble.New()
	ctx := context.Background()

	if err := c.Start(ctx); err != nil {
		t.Fatalf("first start failed: %v", err)
	}
	if err := c.Start(ctx); !thimble.IsStartupFailed(err) {
		t.Errorf("expected second start to fail, got %v", err)
	}
}

func TestContainer_StopWithoutStart(t *testing.T) {
	t.Parallel()

	c := thimble.New()
	if err := c.Stop(context.Background()); err != nil {
		t.Errorf("expected stop without start to succeed, got %v", err)
	}
}

func TestContainer_ResolveAfterStop(t *testing.T) {
	t.Parallel()

	c := thimble.New()
	ctx := context.Background()
	_ = thimble.DefineValue(c, "config", &Config{})

	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := c.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	_, err := c.Resolve(ctx, "config")
	if !thimble.IsContainerClosed(err) {
		t.Errorf("expected container closed, got %v", err)
	}
}

func TestContainer_RestartAfterCancelledStop(t *testing.T) {
	t.Parallel()

	c := thimble.New()
	var built []*closerResource
	err := thimble.Define(c, "conn", func(context.Context, thimble.Resolver) (*closerResource, error) {
		r := &closerResource{}
		built = append(built, r)
		return r, nil
	})
	if err != nil {
		t.Fatalf("Define failed: %v", err)
	}

	ctx := context.Background()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := c.Stop(cancelled); !errors.Is(err, context.Canceled) {
		t.Errorf("expected the cancellation to be reported, got %v", err)
	}
	if pending := c.DisposalOrder(); len(pending) != 0 {
		t.Fatalf("expected no pending disposals after stop, got %v", pending)
	}
	if !built[0].closed.Load() {
		t.Error("expected the first instance to be closed despite the cancelled context")
	}

	if err := c.Start(ctx); err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	if len(built) != 2 {
		t.Fatalf("expected restart to build a new instance, got %d builds", len(built))
	}
	if err := c.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if !built[1].closed.Load() {
		t.Error("expected the rebuilt instance to be closed")
	}
}

func TestContainer_StopDuringBuild(t *testing.T) {
	t.Parallel()

	c := thimble.New()
	entered := make(chan struct{})
	proceed := make(chan struct{})
	res := &closerResource{}
	err := thimble.Define(c, "slow", func(context.Context, thimble.Resolver) (*closerResource, error) {
		close(entered)
		<-proceed
		return res, nil
	})
	if err != nil {
		t.Fatalf("Define failed: %v", err)
	}

	ctx := context.Background()
	done := make(chan error, 1)
	go func() {
		_, err := c.Resolve(ctx, "slow")
		done <- err
	}()

	<-entered
	if err := c.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	close(proceed)

	select {
	case err := <-done:
		if !thimble.IsContainerClosed(err) {
			t.Errorf("expected the in-flight build to fail as closed, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight build did not return")
	}
	if pending := c.DisposalOrder(); len(pending) != 0 {
		t.Errorf("expected nothing registered after stop, got %v", pending)
	}
	if c.Tier("slow") != "absent" {
		t.Errorf("expected slow to be absent, got %s", c.Tier("slow"))
	}
}

func TestContainer_LazyDefinition(t *testing.T) {
	t.Parallel()

	c := thimble.New()
	ctx := context.Background()

	var built atomic.Int32
	_ = thimble.Define(c, "expensive", func(context.Context, thimble.Resolver) (*Config, error) {
		built.Add(1)
		return &Config{}, nil
	}, thimble.WithLazy())

	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if built.Load() != 0 {
		t.Fatal("expected lazy component not to be built on start")
	}

	_ = thimble.MustGet[*Config](ctx, c, "expensive")
	if built.Load() != 1 {
		t.Errorf("expected one build on first use, got %d", built.Load())
	}
}

func TestContainer_PrototypesAreNotPreInstantiated(t *testing.T) {
	t.Parallel()

	c := thimble.New()
	var built atomic.Int32
	_ = thimble.Define(c, "request", func(context.Context, thimble.Resolver) (*Config, error) {
		built.Add(1)
		return &Config{}, nil
	}, thimble.WithScope(thimble.Prototype))

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if built.Load() != 0 {
		t.Errorf("expected prototype not to be built, got %d", built.Load())
	}
}

func TestContainer_PrototypesAreNotDisposed(t *testing.T) {
	t.Parallel()

	c := thimble.New()
	ctx := context.Background()
	rec := &recorder{}

	_ = thimble.Define(c, "session", func(context.Context, thimble.Resolver) (*resource, error) {
		return &resource{name: "session", rec: rec}, nil
	}, thimble.WithScope(thimble.Prototype))

	_ = thimble.MustGet[*resource](ctx, c, "session")
	if err := c.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if len(rec.get()) != 0 {
		t.Errorf("expected no disposal for prototypes, got %v", rec.get())
	}
}

func TestContainer_DisposalCapabilities(t *testing.T) {
	t.Parallel()

	c := thimble.New()
	ctx := context.Background()

	closer := &closerResource{}
	_ = thimble.DefineValue(c, "closer", closer)

	var disposed atomic.Bool
	_ = thimble.DefineValue(c, "config", &Config{}, thimble.WithDispose(func(context.Context, any) error {
		disposed.Store(true)
		return nil
	}))

	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := c.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if !closer.closed.Load() {
		t.Error("expected io.Closer to be closed")
	}
	if !disposed.Load() {
		t.Error("expected dispose func to run")
	}
}

func TestContainer_DestroySingleton(t *testing.T) {
	t.Parallel()

	c := thimble.New()
	ctx := context.Background()
	rec := &recorder{}
	defineResource(t, c, "pool", rec, nil)

	first := thimble.MustGet[*resource](ctx, c, "pool")
	if err := c.DestroySingleton(ctx, "pool"); err != nil {
		t.Fatalf("DestroySingleton failed: %v", err)
	}
	assertOrder(t, rec.get(), []string{"pool"})

	second := thimble.MustGet[*resource](ctx, c, "pool")
	if first == second {
		t.Error("expected a new instance after destroy")
	}

	if err := c.DestroySingleton(ctx, "missing"); !thimble.IsUnknownComponent(err) {
		t.Errorf("expected unknown component, got %v", err)
	}
}

func TestContainer_AwareAndInit(t *testing.T) {
	t.Parallel()

	c := thimble.New()
	ctx := context.Background()

	_ = thimble.Define(c, "aware", func(context.Context, thimble.Resolver) (*awareService, error) {
		return &awareService{}, nil
	})

	svc := thimble.MustGet[*awareService](ctx, c, "aware")
	if svc.name != "aware" {
		t.Errorf("expected component name aware, got %q", svc.name)
	}
	if svc.resolver == nil || !svc.resolver.Has("aware") {
		t.Error("expected the resolver to be set")
	}
	if svc.inits != 1 {
		t.Errorf("expected Init to run once, got %d", svc.inits)
	}
}

func TestContainer_InitFailure(t *testing.T) {
	t.Parallel()

	c := thimble.New()
	_ = thimble.DefineValue(c, "config", &Config{}, thimble.WithInit(func(context.Context, any) error {
		return errors.New("bad config")
	}))

	_, err := c.Resolve(context.Background(), "config")
	if !thimble.IsInitializationFailure(err) {
		t.Errorf("expected initialization failure, got %v", err)
	}
}

func TestContainer_Run(t *testing.T) {
	t.Parallel()

	c := thimble.New()
	rec := &recorder{}
	defineResource(t, c, "worker", rec, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- c.Run(ctx)
	}()

	deadline := time.After(2 * time.Second)
	for c.State() != thimble.StateRunning {
		select {
		case <-deadline:
			t.Fatal("container did not start")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}

	assertOrder(t, rec.get(), []string{"worker"})
}
