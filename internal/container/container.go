package container

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/danpasecinic/thimble/internal/cache"
	"github.com/danpasecinic/thimble/internal/disposal"
	"github.com/danpasecinic/thimble/internal/graph"
	"github.com/danpasecinic/thimble/internal/intercept"
)

type State int

const (
	StateNew State = iota
	StateStarting
	StateRunning
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Observer is called after a component is resolved, created or disposed.
type Observer func(name string, duration time.Duration, err error)

type Config struct {
	ID        string
	Logger    *slog.Logger
	Injector  Injector
	OnResolve []Observer
	OnCreate  []Observer
	OnDispose []Observer
	OnDefine  []func(def Definition)
}

type Container struct {
	id     string
	mu     sync.RWMutex
	logger *slog.Logger
	state  State

	definitions map[string]*Definition
	order       []string
	aliases     map[string]string
	graph       *graph.Graph

	cache     *cache.Cache
	pipeline  *intercept.Pipeline
	disposals *disposal.Registry
	injector  Injector

	locks *buildLocks

	onResolve []Observer
	onCreate  []Observer
	onDispose []Observer
	onDefine  []func(def Definition)
}

func New(cfg *Config) *Container {
	if cfg == nil {
		cfg = &Config{}
	}

	id := cfg.ID
	if id == "" {
		id = uuid.NewString()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	injector := cfg.Injector
	if injector == nil {
		injector = FieldInjector
	}

	return &Container{
		id:          id,
		logger:      logger.With("container", id),
		definitions: make(map[string]*Definition),
		aliases:     make(map[string]string),
		graph:       graph.New(),
		cache:       cache.New(),
		pipeline:    intercept.New(),
		disposals:   disposal.NewRegistry(),
		locks:       newBuildLocks(),
		injector:    injector,
		onResolve:   cfg.OnResolve,
		onCreate:    cfg.OnCreate,
		onDispose:   cfg.OnDispose,
		onDefine:    cfg.OnDefine,
	}
}

func (c *Container) ID() string {
	return c.id
}

func (c *Container) Logger() *slog.Logger {
	return c.logger
}

// Define adds a component definition. Names and aliases share one namespace.
func (c *Container) Define(def Definition) error {
	d := def.clone()
	if err := d.validate(); err != nil {
		return newBuildError(ErrInvalidDefinition, def.Name, nil, err)
	}

	c.mu.Lock()
	if _, exists := c.definitions[d.Name]; exists {
		c.mu.Unlock()
		return newBuildError(ErrDuplicateComponent, d.Name, nil, nil)
	}
	if target, exists := c.aliases[d.Name]; exists {
		c.mu.Unlock()
		return newBuildError(ErrDuplicateComponent, d.Name, nil, fmt.Errorf("name is an alias for %s", target))
	}
	c.definitions[d.Name] = d
	c.order = append(c.order, d.Name)
	c.graph.Add(d.Name, d.Dependencies, d.Scope)
	hooks := c.onDefine
	c.mu.Unlock()

	c.logger.Debug("component defined",
		"component", d.Name,
		"scope", d.Scope.String(),
		"dependencies", d.Dependencies,
	)

	for _, hook := range hooks {
		hook(*d.clone())
	}
	return nil
}

// Alias makes alias resolve to name. name does not have to be defined yet.
func (c *Container) Alias(alias, name string) error {
	if alias == "" || name == "" {
		return newBuildError(ErrInvalidDefinition, alias, nil, fmt.Errorf("alias and target must be non-empty"))
	}
	if alias == name {
		return newBuildError(ErrInvalidDefinition, alias, nil, fmt.Errorf("alias refers to itself"))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.definitions[alias]; exists {
		return newBuildError(ErrDuplicateComponent, alias, nil, fmt.Errorf("alias shadows a component"))
	}
	if existing, exists := c.aliases[alias]; exists && existing != name {
		return newBuildError(ErrDuplicateComponent, alias, nil, fmt.Errorf("alias already refers to %s", existing))
	}

	for next, ok := name, true; ok; next, ok = c.aliases[next] {
		if next == alias {
			return newBuildError(ErrInvalidDefinition, alias, nil, fmt.Errorf("alias chain through %s loops", name))
		}
	}

	c.aliases[alias] = name
	c.graph.Alias(alias, name)
	return nil
}

// Aliases returns the aliases that resolve to name.
func (c *Container) Aliases(name string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var result []string
	for alias := range c.aliases {
		if c.canonicalUnsafe(alias) == name {
			result = append(result, alias)
		}
	}
	slices.Sort(result)
	return result
}

func (c *Container) canonical(name string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.canonicalUnsafe(name)
}

func (c *Container) canonicalUnsafe(name string) string {
	for i := 0; i <= len(c.aliases); i++ {
		target, ok := c.aliases[name]
		if !ok {
			return name
		}
		name = target
	}
	return name
}

func (c *Container) definition(name string) (*Definition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	d, ok := c.definitions[name]
	return d, ok
}

// Definition returns a copy of the definition for name or one of its aliases.
func (c *Container) Definition(name string) (Definition, bool) {
	d, ok := c.definition(c.canonical(name))
	if !ok {
		return Definition{}, false
	}
	return *d.clone(), true
}

func (c *Container) Has(name string) bool {
	_, ok := c.definition(c.canonical(name))
	return ok
}

// Names returns component names in definition order.
func (c *Container) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, len(c.order))
	copy(names, c.order)
	return names
}

func (c *Container) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.definitions)
}

// Validate checks the definition table without building anything: every
// dependency must be defined and no cycle may pass through a prototype.
func (c *Container) Validate() error {
	g := c.graph.Snapshot()

	var errs error
	for _, name := range g.Missing() {
		errs = multierr.Append(errs, newBuildError(ErrUnknownComponent, name, nil, nil))
	}
	for _, path := range g.UnresolvableCycles() {
		errs = multierr.Append(errs, newBuildError(ErrUnresolvableCycle, path[0], path, nil))
	}
	return errs
}

func (c *Container) Graph() *graph.Graph {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.graph.Snapshot()
}

func (c *Container) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.state
}

// Intercept appends a hook to the interception pipeline. Hooks only affect
// components built after they are added.
func (c *Container) Intercept(hook intercept.Hook) {
	c.pipeline.Add(hook)
	c.logger.Debug("interceptor added", "interceptor", hook.Name, "position", c.pipeline.Len()-1)
}

func (c *Container) Interceptors() int {
	return c.pipeline.Len()
}

// Tier reports which cache tier currently holds name.
func (c *Container) Tier(name string) cache.Tier {
	return c.cache.Tier(c.canonical(name))
}

func (c *Container) Tiers() map[string]cache.Tier {
	return c.cache.Snapshot()
}

// Instance returns a finished instance without building anything.
func (c *Container) Instance(name string) (any, bool) {
	return c.cache.Finished(c.canonical(name))
}

// Instances returns every finished instance keyed by name.
func (c *Container) Instances() map[string]any {
	result := make(map[string]any)
	for _, name := range c.cache.Names(cache.TierFinished) {
		if v, ok := c.cache.Finished(name); ok {
			result[name] = v
		}
	}
	return result
}

// DisposalOrder lists the components with a pending disposal hook in the
// order they will be disposed.
func (c *Container) DisposalOrder() []string {
	names := c.disposals.Names()
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return names
}

func (c *Container) AddOnResolve(o Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onResolve = append(c.onResolve, o)
}

func (c *Container) AddOnCreate(o Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onCreate = append(c.onCreate, o)
}

func (c *Container) AddOnDispose(o Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onDispose = append(c.onDispose, o)
}

func (c *Container) AddOnDefine(hook func(def Definition)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onDefine = append(c.onDefine, hook)
}

func (c *Container) observers(kind *[]Observer) []Observer {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return *kind
}

func notify(observers []Observer, name string, duration time.Duration, err error) {
	for _, o := range observers {
		o(name, duration, err)
	}
}

func (c *Container) checkOpen() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.state == StateStopping || c.state == StateStopped {
		return ErrContainerClosed
	}
	return nil
}

var _ Resolver = (*Container)(nil)
