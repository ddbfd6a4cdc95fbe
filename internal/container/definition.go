package container

import (
	"context"
	"fmt"

	"github.com/danpasecinic/thimble/internal/reflect"
	"github.com/danpasecinic/thimble/internal/scope"
)

// Resolver is what recipes and ResolverAware components see of the container.
type Resolver interface {
	Resolve(ctx context.Context, name string) (any, error)
	Has(name string) bool
}

// Recipe constructs the raw instance of a component.
type Recipe func(ctx context.Context, r Resolver) (any, error)

// Injector sets one resolved dependency on a raw instance.
type Injector func(ctx context.Context, instance any, dependency string, value any) error

// LifecycleFunc is an init or dispose step bound to a definition.
type LifecycleFunc func(ctx context.Context, instance any) error

// DefaultTagKey is the struct tag read by FieldInjector.
const DefaultTagKey = "thimble"

// FieldInjector assigns dependencies to struct fields tagged with
// DefaultTagKey, falling back to an exported field with the same name.
func FieldInjector(_ context.Context, instance any, dependency string, value any) error {
	return reflect.AssignDependency(instance, DefaultTagKey, dependency, value)
}

type Definition struct {
	Name         string
	Recipe       Recipe
	Dependencies []string
	Scope        scope.Scope
	Inject       Injector
	Init         LifecycleFunc
	Dispose      LifecycleFunc
	Lazy         bool
}

func (d *Definition) validate() error {
	if d.Name == "" {
		return fmt.Errorf("component name is empty")
	}
	if d.Recipe == nil {
		return fmt.Errorf("component %s has no recipe", d.Name)
	}
	if !d.Scope.Valid() {
		return fmt.Errorf("component %s has invalid scope %s", d.Name, d.Scope)
	}
	for i, dep := range d.Dependencies {
		if dep == "" {
			return fmt.Errorf("component %s has an empty dependency at position %d", d.Name, i)
		}
	}
	return nil
}

func (d *Definition) clone() *Definition {
	cp := *d
	cp.Dependencies = make([]string, len(d.Dependencies))
	copy(cp.Dependencies, d.Dependencies)
	return &cp
}

// NameAware components are told their name before initialization.
type NameAware interface {
	SetComponentName(name string)
}

// ResolverAware components receive the container before initialization.
type ResolverAware interface {
	SetResolver(r Resolver)
}

// Initializer runs after dependencies are injected and before the
// post-injection interceptors.
type Initializer interface {
	Init(ctx context.Context) error
}

// Disposer is called when a cached component is destroyed.
type Disposer interface {
	Dispose(ctx context.Context) error
}
