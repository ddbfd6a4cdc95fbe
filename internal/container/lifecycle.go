package container

import (
	"context"
	"fmt"
	"time"

	"github.com/danpasecinic/thimble/internal/disposal"
)

// Start pre-instantiates every cached, non-lazy component in definition
// order.
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateNew && c.state != StateStopped {
		c.mu.Unlock()
		return fmt.Errorf("container already started")
	}
	c.state = StateStarting
	c.mu.Unlock()

	if err := c.startComponents(ctx); err != nil {
		c.setState(StateNew)
		return err
	}

	c.setState(StateRunning)
	c.logger.Info("container started", "components", c.Size())
	return nil
}

func (c *Container) startComponents(ctx context.Context) error {
	for _, name := range c.Names() {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("startup interrupted: %w", err)
		}

		def, ok := c.definition(name)
		if !ok || !def.Scope.Cached() || def.Lazy {
			continue
		}
		if _, err := c.Resolve(ctx, name); err != nil {
			return fmt.Errorf("failed to resolve %s during startup: %w", name, err)
		}
	}
	return nil
}

// Stop disposes every registered component in reverse registration order and
// clears the cache. Failures are aggregated; every hook still runs. Builds
// still in flight when Stop begins fail instead of finishing.
func (c *Container) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateStopping || c.state == StateStopped {
		c.mu.Unlock()
		return nil
	}
	c.state = StateStopping
	c.mu.Unlock()

	c.logger.Info("stopping container", "disposals", c.disposals.Len())

	err := c.disposals.DisposeAll(ctx, c.observeDisposal)
	c.cache.Clear()

	c.setState(StateStopped)
	return disposalError(err)
}

// DestroySingleton disposes one cached component and evicts it. The next
// Resolve builds it again.
func (c *Container) DestroySingleton(ctx context.Context, name string) error {
	name = c.canonical(name)
	if !c.Has(name) {
		return newBuildError(ErrUnknownComponent, name, nil, nil)
	}

	err := c.disposals.Dispose(ctx, name, c.observeDisposal)
	if _, ok := c.cache.Evict(name); ok {
		c.logger.Debug("component destroyed", "component", name)
	}
	return disposalError(err)
}

func (c *Container) observeDisposal(name string, duration time.Duration, err error) {
	if err != nil {
		c.logger.Warn("component disposal failed", "component", name, "error", err)
	} else {
		c.logger.Debug("component disposed", "component", name, "duration", duration)
	}
	notify(c.observers(&c.onDispose), name, duration, err)
}

func (c *Container) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

func disposalError(err error) error {
	if err == nil {
		return nil
	}

	failures := disposal.Failures(err)
	names := make([]string, 0, len(failures))
	for _, f := range failures {
		names = append(names, f.Name)
	}
	if len(names) == 0 {
		return fmt.Errorf("%w: %w", ErrDisposal, err)
	}
	return &DisposalError{Components: names, Cause: err}
}
