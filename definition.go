package thimble

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/danpasecinic/thimble/internal/container"
)

// Recipe constructs the raw instance of a component. Nested resolutions must
// use the context the recipe receives.
type Recipe = container.Recipe

// Injector sets one resolved dependency on a raw instance.
type Injector = container.Injector

// LifecycleFunc is an init or dispose step bound to a definition.
type LifecycleFunc = container.LifecycleFunc

// Definition describes how to build one named component.
type Definition struct {
	Name         string        `validate:"required"`
	Recipe       Recipe        `validate:"required"`
	Dependencies []string      `validate:"dive,required"`
	Scope        Scope         `validate:"scope"`
	Inject       Injector      `validate:"-"`
	Init         LifecycleFunc `validate:"-"`
	Dispose      LifecycleFunc `validate:"-"`
	Lazy         bool
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("scope", func(fl validator.FieldLevel) bool {
		s, ok := fl.Field().Interface().(Scope)
		return ok && s.Valid()
	})
	return v
}

// Validate checks the definition without registering it.
func (d Definition) Validate() error {
	if err := validate.Struct(d); err != nil {
		return newError(ErrCodeInvalidDefinition, formatValidationError(err), nil).WithService(d.Name)
	}
	return nil
}

func formatValidationError(err error) string {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}

	var msgs []string
	for _, e := range validationErrors {
		field := strings.ToLower(e.Field())
		switch e.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "scope":
			msgs = append(msgs, fmt.Sprintf("%s must be singleton or prototype", field))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", field))
		}
	}
	return strings.Join(msgs, "; ")
}

func (d Definition) internal() container.Definition {
	return container.Definition{
		Name:         d.Name,
		Recipe:       d.Recipe,
		Dependencies: d.Dependencies,
		Scope:        d.Scope,
		Inject:       d.Inject,
		Init:         d.Init,
		Dispose:      d.Dispose,
		Lazy:         d.Lazy,
	}
}

func definitionFrom(d container.Definition) Definition {
	return Definition{
		Name:         d.Name,
		Recipe:       d.Recipe,
		Dependencies: d.Dependencies,
		Scope:        d.Scope,
		Inject:       d.Inject,
		Init:         d.Init,
		Dispose:      d.Dispose,
		Lazy:         d.Lazy,
	}
}

// Define registers a definition. The container keeps its own copy.
func (c *Container) Define(def Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	return wrapError(def.Name, c.internal.Define(def.internal()))
}

// Definition returns the definition registered under name or an alias.
func (c *Container) Definition(name string) (Definition, bool) {
	d, ok := c.internal.Definition(name)
	if !ok {
		return Definition{}, false
	}
	return definitionFrom(d), true
}

type DefinitionOption func(*Definition)

func WithDependencies(deps ...string) DefinitionOption {
	return func(d *Definition) {
		d.Dependencies = append(d.Dependencies, deps...)
	}
}

func WithScope(s Scope) DefinitionOption {
	return func(d *Definition) {
		d.Scope = s
	}
}

func WithInjector(injector Injector) DefinitionOption {
	return func(d *Definition) {
		d.Inject = injector
	}
}

func WithInit(fn LifecycleFunc) DefinitionOption {
	return func(d *Definition) {
		d.Init = fn
	}
}

func WithDispose(fn LifecycleFunc) DefinitionOption {
	return func(d *Definition) {
		d.Dispose = fn
	}
}

// WithLazy keeps Start from building the component.
func WithLazy() DefinitionOption {
	return func(d *Definition) {
		d.Lazy = true
	}
}

// Define registers a typed recipe under name.
func Define[T any](c *Container, name string, recipe func(ctx context.Context, r Resolver) (T, error), opts ...DefinitionOption) error {
	var untyped Recipe
	if recipe != nil {
		untyped = func(ctx context.Context, r container.Resolver) (any, error) {
			return recipe(ctx, r)
		}
	}
	return c.Define(newDefinition(name, untyped, opts))
}

// DefineValue registers an existing value as a singleton.
func DefineValue[T any](c *Container, name string, value T, opts ...DefinitionOption) error {
	return Define(c, name, func(context.Context, Resolver) (T, error) {
		return value, nil
	}, opts...)
}

func MustDefine[T any](c *Container, name string, recipe func(ctx context.Context, r Resolver) (T, error), opts ...DefinitionOption) {
	if err := Define(c, name, recipe, opts...); err != nil {
		panic(err)
	}
}

func newDefinition(name string, recipe Recipe, opts []DefinitionOption) Definition {
	def := Definition{Name: name, Recipe: recipe}
	for _, opt := range opts {
		opt(&def)
	}
	return def
}
