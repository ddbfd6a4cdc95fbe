package thimble

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/danpasecinic/thimble/internal/container"
)

type Container struct {
	internal *container.Container
	config   *containerConfig
}

type containerConfig struct {
	id        string
	logger    *slog.Logger
	injector  Injector
	onResolve []ResolveHook
	onCreate  []CreateHook
	onDispose []DisposeHook
	onDefine  []DefineHook
}

// New creates an empty container.
func New(opts ...Option) *Container {
	cfg := &containerConfig{
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	internalCfg := &container.Config{
		ID:       cfg.id,
		Logger:   cfg.logger,
		Injector: container.Injector(cfg.injector),
	}
	for _, hook := range cfg.onResolve {
		internalCfg.OnResolve = append(internalCfg.OnResolve, container.Observer(hook))
	}
	for _, hook := range cfg.onCreate {
		internalCfg.OnCreate = append(internalCfg.OnCreate, container.Observer(hook))
	}
	for _, hook := range cfg.onDispose {
		internalCfg.OnDispose = append(internalCfg.OnDispose, container.Observer(hook))
	}

	c := &Container{
		internal: container.New(internalCfg),
		config:   cfg,
	}
	for _, hook := range cfg.onDefine {
		c.OnDefine(hook)
	}
	return c
}

func (c *Container) ID() string {
	return c.internal.ID()
}

// Resolve returns the instance registered under name, building it first if
// needed.
func (c *Container) Resolve(ctx context.Context, name string) (any, error) {
	instance, err := c.internal.Resolve(ctx, name)
	if err != nil {
		return nil, wrapError(name, err)
	}
	return instance, nil
}

func (c *Container) Has(name string) bool {
	return c.internal.Has(name)
}

// Names returns every defined component in definition order.
func (c *Container) Names() []string {
	return c.internal.Names()
}

func (c *Container) Size() int {
	return c.internal.Size()
}

// Alias makes alias resolve to the component defined as name.
func (c *Container) Alias(alias, name string) error {
	return wrapError(alias, c.internal.Alias(alias, name))
}

func (c *Container) Aliases(name string) []string {
	return c.internal.Aliases(name)
}

func (c *Container) Validate() error {
	if err := c.internal.Validate(); err != nil {
		return errValidationFailed(err)
	}
	return nil
}

func (c *Container) State() State {
	return c.internal.State()
}

// Start instantiates every non-lazy singleton in definition order.
func (c *Container) Start(ctx context.Context) error {
	if err := c.internal.Start(ctx); err != nil {
		return errStartupFailed(wrapError("", err))
	}
	return nil
}

// Stop disposes every finished singleton in reverse registration order.
// All disposal hooks run even when some fail.
func (c *Container) Stop(ctx context.Context) error {
	if err := c.internal.Stop(ctx); err != nil {
		return errShutdownFailed(wrapError("", err))
	}
	return nil
}

// DestroySingleton disposes and evicts one singleton. The next Resolve
// builds a new instance.
func (c *Container) DestroySingleton(ctx context.Context, name string) error {
	return wrapError(name, c.internal.DestroySingleton(ctx, name))
}

func (c *Container) Run(ctx context.Context) error {
	if err := c.Start(ctx); err != nil {
		return err
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-ctx.Done():
	case <-quit:
	}

	signal.Stop(quit)
	close(quit)

	return c.Stop(context.Background())
}

func (c *Container) OnResolve(hook ResolveHook) {
	c.internal.AddOnResolve(container.Observer(hook))
}

func (c *Container) OnCreate(hook CreateHook) {
	c.internal.AddOnCreate(container.Observer(hook))
}

func (c *Container) OnDispose(hook DisposeHook) {
	c.internal.AddOnDispose(container.Observer(hook))
}

func (c *Container) OnDefine(hook DefineHook) {
	c.internal.AddOnDefine(func(def container.Definition) {
		hook(definitionFrom(def))
	})
}

// DisposalOrder lists the components that will be disposed on Stop, in the
// order their hooks run.
func (c *Container) DisposalOrder() []string {
	return c.internal.DisposalOrder()
}

// Tier reports the cache tier of a cached component: absent, factory,
// materializing, early or finished.
func (c *Container) Tier(name string) string {
	return c.internal.Tier(name).String()
}
