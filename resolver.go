package thimble

import (
	"context"

	"github.com/danpasecinic/thimble/internal/container"
	"github.com/danpasecinic/thimble/internal/reflect"
)

// Resolver is what recipes see of the container.
type Resolver = container.Resolver

// Get resolves name and asserts its type.
func Get[T any](ctx context.Context, r Resolver, name string) (T, error) {
	var zero T

	instance, err := r.Resolve(ctx, name)
	if err != nil {
		return zero, err
	}

	typed, ok := instance.(T)
	if !ok {
		return zero, errTypeMismatch(name, reflect.TypeName[T](), instance)
	}
	return typed, nil
}

func MustGet[T any](ctx context.Context, r Resolver, name string) T {
	v, err := Get[T](ctx, r, name)
	if err != nil {
		panic(err)
	}
	return v
}

func TryGet[T any](ctx context.Context, r Resolver, name string) (T, bool) {
	v, err := Get[T](ctx, r, name)
	return v, err == nil
}

type Optional[T any] struct {
	value   T
	present bool
}

func (o Optional[T]) Get() (T, bool) {
	return o.value, o.present
}

func (o Optional[T]) Value() T {
	return o.value
}

func (o Optional[T]) Present() bool {
	return o.present
}

func (o Optional[T]) OrElse(defaultValue T) T {
	if o.present {
		return o.value
	}
	return defaultValue
}

func (o Optional[T]) OrElseFunc(fn func() T) T {
	if o.present {
		return o.value
	}
	return fn()
}

func Some[T any](value T) Optional[T] {
	return Optional[T]{value: value, present: true}
}

func None[T any]() Optional[T] {
	return Optional[T]{}
}

// GetOptional resolves name when it is defined. Build failures of a defined
// component are still returned.
func GetOptional[T any](ctx context.Context, r Resolver, name string) (Optional[T], error) {
	if !r.Has(name) {
		return None[T](), nil
	}

	v, err := Get[T](ctx, r, name)
	if err != nil {
		return None[T](), err
	}
	return Some(v), nil
}
