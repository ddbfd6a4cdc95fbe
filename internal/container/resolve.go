package container

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/danpasecinic/thimble/internal/cache"
	"github.com/danpasecinic/thimble/internal/disposal"
	"github.com/danpasecinic/thimble/internal/intercept"
	"github.com/danpasecinic/thimble/internal/reflect"
)

// Resolve returns the instance for name, building it and its dependencies
// when needed. Cached components are built once; prototypes on every call.
//
// The context carries the chain of components under construction, which is
// how cycles are recognised. Recipes should pass the context they receive to
// nested Resolve calls. A nested call on a fresh context that asks for a
// component already being built up the same chain waits until ctx is done.
func (c *Container) Resolve(ctx context.Context, name string) (any, error) {
	start := time.Now()
	instance, err := c.resolve(contextOrBackground(ctx), name)
	notify(c.observers(&c.onResolve), name, time.Since(start), err)
	return instance, err
}

func (c *Container) resolve(ctx context.Context, requested string) (any, error) {
	name := c.canonical(requested)
	at := c.frameFrom(ctx)

	def, ok := c.definition(name)
	if !ok {
		return nil, newBuildError(ErrUnknownComponent, name, at.path(name), nil)
	}

	if !def.Scope.Cached() {
		return c.resolvePrototype(ctx, at, def)
	}
	return c.resolveSingleton(ctx, at, def)
}

func (c *Container) resolveSingleton(ctx context.Context, at *frame, def *Definition) (any, error) {
	name := def.Name

	if mine := at.find(name); mine != nil {
		return c.reenter(at, name, at.uncachedUntil(mine))
	}
	if instance, ok := c.cache.Finished(name); ok {
		return instance, nil
	}

	f := at.push(name, def.Scope)
	release, cyc, err := c.locks.acquire(ctx, f)
	if err != nil {
		return nil, newBuildError(ErrConstruction, name, f.chain(),
			fmt.Errorf("waiting for %s: %w", name, err))
	}
	if cyc != nil {
		c.logger.Debug("build wait cycle", "component", name, "owner", cyc.owner.chain())
		return c.reenter(at, name, cyc.prototype)
	}
	defer release()

	if instance, ok := c.cache.Finished(name); ok {
		return instance, nil
	}
	return c.create(ctx, f, def)
}

func (c *Container) resolvePrototype(ctx context.Context, at *frame, def *Definition) (any, error) {
	if at.find(def.Name) != nil {
		return nil, newBuildError(ErrUnresolvableCycle, def.Name, at.path(def.Name),
			fmt.Errorf("a prototype takes part in the cycle"))
	}
	return c.create(ctx, at.push(def.Name, def.Scope), def)
}

// reenter hands out the early reference of a singleton that is already under
// construction, either further up this chain or by a build that is waiting on
// this one. The cycle cannot be broken when a prototype takes part in it or
// when the singleton's recipe has not returned yet.
func (c *Container) reenter(at *frame, name string, prototype bool) (any, error) {
	if prototype {
		return nil, newBuildError(ErrUnresolvableCycle, name, at.path(name),
			fmt.Errorf("a prototype takes part in the cycle"))
	}

	instance, ok, err := c.cache.Lookup(name)
	if err != nil {
		return nil, newBuildError(ErrInterception, name, at.path(name), err)
	}
	if !ok {
		return nil, newBuildError(ErrUnresolvableCycle, name, at.path(name),
			fmt.Errorf("%s was requested while its recipe was running", name))
	}
	return instance, nil
}

func (c *Container) create(ctx context.Context, f *frame, def *Definition) (any, error) {
	if err := c.checkOpen(); err != nil {
		return nil, newBuildError(ErrContainerClosed, def.Name, f.chain(), nil)
	}

	start := time.Now()
	instance, err := c.build(c.enter(ctx, f), f, def)
	duration := time.Since(start)

	if err != nil {
		c.logger.Debug("component build failed", "component", def.Name, "error", err)
	} else {
		c.logger.Debug("component built",
			"component", def.Name,
			"scope", def.Scope.String(),
			"duration", duration,
		)
	}
	notify(c.observers(&c.onCreate), def.Name, duration, err)
	return instance, err
}

// build runs the full creation sequence for def. For cached components the
// early reference factory is registered right after construction and every
// unfinished trace is discarded on failure.
func (c *Container) build(ctx context.Context, f *frame, def *Definition) (any, error) {
	name := def.Name
	cached := def.Scope.Cached()

	raw, err := c.construct(ctx, f, def)
	if err != nil {
		return nil, err
	}

	fail := func(err error) (any, error) {
		if cached {
			c.cache.Discard(name)
		}
		return nil, err
	}

	if cached {
		c.cache.RegisterFactory(name, c.earlyReference(ctx, name, raw))
	}

	if err := c.populate(ctx, f, def, raw); err != nil {
		return fail(err)
	}
	if err := c.initialize(ctx, f, def, raw); err != nil {
		return fail(err)
	}

	candidate, err := c.pipeline.Apply(ctx, intercept.AfterInjection, name, raw)
	if err != nil {
		return fail(newBuildError(ErrInterception, name, f.chain(), err))
	}
	if !cached {
		return candidate, nil
	}

	if early, tier := c.cache.Peek(name); tier == cache.TierEarly {
		switch {
		case reflect.Same(candidate, raw):
			candidate = early
		case !reflect.Same(candidate, early):
			return fail(newBuildError(ErrInterception, name, f.chain(), ErrEarlyReferenceDiverged))
		}
	}

	final, err := c.promote(name, def, raw, candidate)
	if err != nil {
		return fail(newBuildError(ErrContainerClosed, name, f.chain(), nil))
	}
	return final, nil
}

// promote finishes name and records its disposal. Stop flips the state under
// the write lock, so an instance is either promoted and registered before
// disposal starts or not promoted at all.
func (c *Container) promote(name string, def *Definition, raw, candidate any) (any, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.state == StateStopping || c.state == StateStopped {
		return nil, ErrContainerClosed
	}
	final, _ := c.cache.Promote(name, candidate)
	c.registerDisposal(name, def, raw, final)
	return final, nil
}

func (c *Container) construct(ctx context.Context, f *frame, def *Definition) (raw any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			raw, err = nil, newBuildError(ErrConstruction, def.Name, f.chain(),
				fmt.Errorf("recipe panicked: %v", rec))
		}
	}()

	raw, err = def.Recipe(ctx, c)
	if err != nil {
		var be *BuildError
		if errors.As(err, &be) {
			return nil, fmt.Errorf("recipe for %s: %w", def.Name, err)
		}
		return nil, newBuildError(ErrConstruction, def.Name, f.chain(), err)
	}
	if reflect.IsNil(raw) {
		return nil, newBuildError(ErrConstruction, def.Name, f.chain(),
			fmt.Errorf("recipe returned nil"))
	}
	return raw, nil
}

// earlyReference folds the EarlyReference phase over raw the first time a
// dependent asks for the component while it is still being built.
func (c *Container) earlyReference(ctx context.Context, name string, raw any) cache.Factory {
	return func() (any, error) {
		c.logger.Debug("exposing early reference", "component", name)
		return c.pipeline.Apply(ctx, intercept.EarlyReference, name, raw)
	}
}

func (c *Container) populate(ctx context.Context, f *frame, def *Definition, raw any) error {
	inject := def.Inject
	if inject == nil {
		inject = c.injector
	}

	for _, dep := range def.Dependencies {
		value, err := c.Resolve(ctx, dep)
		if err != nil {
			return fmt.Errorf("resolve dependency %s of %s: %w", dep, def.Name, err)
		}
		if err := inject(ctx, raw, dep, value); err != nil {
			return newBuildError(ErrInjection, def.Name, f.chain(),
				fmt.Errorf("dependency %s: %w", dep, err))
		}
	}
	return nil
}

func (c *Container) initialize(ctx context.Context, f *frame, def *Definition, raw any) error {
	if aware, ok := raw.(NameAware); ok {
		aware.SetComponentName(def.Name)
	}
	if aware, ok := raw.(ResolverAware); ok {
		aware.SetResolver(c)
	}

	if initializer, ok := raw.(Initializer); ok {
		if err := initializer.Init(ctx); err != nil {
			return newBuildError(ErrInitialization, def.Name, f.chain(), err)
		}
	}
	if def.Init != nil {
		if err := def.Init(ctx, raw); err != nil {
			return newBuildError(ErrInitialization, def.Name, f.chain(), err)
		}
	}
	return nil
}

// registerDisposal records how to destroy a finished component. Nothing is
// registered when the component has no way to be disposed and no
// interceptor observes destruction.
func (c *Container) registerDisposal(name string, def *Definition, raw, final any) {
	_, finalDisposes := disposerOf(final)
	_, rawDisposes := disposerOf(raw)
	if def.Dispose == nil && !finalDisposes && !rawDisposes && !c.pipeline.Has(intercept.BeforeDestruction) {
		return
	}

	c.disposals.Register(name, disposal.Hook(func(ctx context.Context) error {
		target, err := c.pipeline.Apply(ctx, intercept.BeforeDestruction, name, final)
		if err != nil {
			return err
		}
		if def.Dispose != nil {
			return def.Dispose(ctx, target)
		}
		if dispose, ok := disposerOf(target); ok {
			return dispose(ctx)
		}
		if dispose, ok := disposerOf(raw); ok {
			return dispose(ctx)
		}
		return nil
	}))
}

func disposerOf(v any) (func(context.Context) error, bool) {
	switch d := v.(type) {
	case Disposer:
		return d.Dispose, true
	case io.Closer:
		return func(context.Context) error { return d.Close() }, true
	}
	return nil, false
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
