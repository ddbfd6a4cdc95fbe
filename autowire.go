package thimble

import (
	"context"
	"fmt"
	reflectPkg "reflect"

	"github.com/danpasecinic/thimble/internal/container"
	"github.com/danpasecinic/thimble/internal/reflect"
)

// TagKey is the struct tag read by FieldInjector and DefineStruct:
//
//	type UserService struct {
//	    Repo  *UserRepository `thimble:"userRepository"`
//	    Log   *Logger         `thimble:""`            // dependency "log"
//	    Cache *Cache          `thimble:",optional"`   // injected when defined
//	}
const TagKey = container.DefaultTagKey

// FieldInjector is the default injector. It assigns a dependency to the
// field tagged with its name or, failing that, to the exported field whose
// name matches it.
func FieldInjector(ctx context.Context, instance any, dependency string, value any) error {
	return container.FieldInjector(ctx, instance, dependency, value)
}

// Struct returns a recipe that allocates a zero *S. Its fields are filled by
// the injector once the instance is registered for early reference, so
// struct components may depend on each other in cycles.
func Struct[T any]() Recipe {
	return func(context.Context, container.Resolver) (any, error) {
		t := reflectPkg.TypeOf((*T)(nil)).Elem()
		if t.Kind() != reflectPkg.Ptr || t.Elem().Kind() != reflectPkg.Struct {
			return nil, fmt.Errorf("Struct requires a pointer to a struct, got %s", t)
		}
		return reflectPkg.New(t.Elem()).Interface(), nil
	}
}

// DefineStruct defines name as a *S whose required tagged fields are its
// dependencies. Optional fields are filled during initialization when the
// component they name is defined.
func DefineStruct[T any](c *Container, name string, opts ...DefinitionOption) error {
	t := reflectPkg.TypeOf((*T)(nil)).Elem()
	if t.Kind() != reflectPkg.Ptr || t.Elem().Kind() != reflectPkg.Struct {
		return newError(
			ErrCodeInvalidDefinition,
			fmt.Sprintf("DefineStruct requires a pointer to a struct, got %s", t),
			nil,
		).WithService(name)
	}

	fields, err := reflect.TaggedFields(t, TagKey)
	if err != nil {
		return newError(ErrCodeInvalidDefinition, "cannot read struct tags", err).WithService(name)
	}

	var deps, optional []string
	for _, f := range fields {
		if f.Optional {
			optional = append(optional, f.Dependency)
		} else {
			deps = append(deps, f.Dependency)
		}
	}

	def := newDefinition(name, Struct[T](), append([]DefinitionOption{WithDependencies(deps...)}, opts...))
	if len(optional) > 0 {
		def.Init = injectOptional(c, optional, def.Init)
	}
	return c.Define(def)
}

func MustDefineStruct[T any](c *Container, name string, opts ...DefinitionOption) {
	if err := DefineStruct[T](c, name, opts...); err != nil {
		panic(err)
	}
}

func injectOptional(c *Container, deps []string, next LifecycleFunc) LifecycleFunc {
	return func(ctx context.Context, instance any) error {
		for _, dep := range deps {
			if !c.Has(dep) {
				continue
			}
			value, err := c.internal.Resolve(ctx, dep)
			if err != nil {
				return fmt.Errorf("optional dependency %s: %w", dep, err)
			}
			if err := reflect.AssignDependency(instance, TagKey, dep, value); err != nil {
				return err
			}
		}
		if next != nil {
			return next(ctx, instance)
		}
		return nil
	}
}

var errorType = reflectPkg.TypeOf((*error)(nil)).Elem()

// DefineFunc defines name using constructor, a function whose parameters are
// the components named by params, in order. The constructor may return an
// error as its second result. Parameters are resolved while the recipe runs,
// so they cannot take part in a dependency cycle.
func DefineFunc[T any](c *Container, name string, constructor any, params []string, opts ...DefinitionOption) error {
	if constructor == nil {
		return newError(ErrCodeInvalidDefinition, "constructor is nil", nil).WithService(name)
	}

	fnVal := reflectPkg.ValueOf(constructor)
	fnType := fnVal.Type()
	want := reflectPkg.TypeOf((*T)(nil)).Elem()

	switch {
	case fnType.Kind() != reflectPkg.Func:
		return newError(ErrCodeInvalidDefinition, fmt.Sprintf("constructor is %s, not a func", fnType), nil).WithService(name)
	case fnType.NumIn() != len(params):
		return newError(ErrCodeInvalidDefinition,
			fmt.Sprintf("constructor takes %d parameters, %d names given", fnType.NumIn(), len(params)), nil).WithService(name)
	case fnType.NumOut() == 0 || fnType.NumOut() > 2:
		return newError(ErrCodeInvalidDefinition, "constructor must return a value and optionally an error", nil).WithService(name)
	case !fnType.Out(0).AssignableTo(want):
		return newError(ErrCodeInvalidDefinition, fmt.Sprintf("constructor returns %s, expected %s", fnType.Out(0), want), nil).WithService(name)
	case fnType.NumOut() == 2 && !fnType.Out(1).Implements(errorType):
		return newError(ErrCodeInvalidDefinition, "second constructor result must be an error", nil).WithService(name)
	}

	recipe := func(ctx context.Context, r container.Resolver) (any, error) {
		args := make([]reflectPkg.Value, len(params))
		for i, p := range params {
			instance, err := r.Resolve(ctx, p)
			if err != nil {
				return nil, fmt.Errorf("parameter %d (%s): %w", i, p, err)
			}

			in := fnType.In(i)
			if instance == nil {
				args[i] = reflectPkg.Zero(in)
				continue
			}
			v := reflectPkg.ValueOf(instance)
			if !v.Type().AssignableTo(in) {
				return nil, fmt.Errorf("parameter %d (%s): cannot use %s as %s", i, p, v.Type(), in)
			}
			args[i] = v
		}

		results := fnVal.Call(args)
		if len(results) == 2 && !results[1].IsNil() {
			return nil, results[1].Interface().(error)
		}
		return results[0].Interface(), nil
	}

	return c.Define(newDefinition(name, recipe, opts))
}

func MustDefineFunc[T any](c *Container, name string, constructor any, params []string, opts ...DefinitionOption) {
	if err := DefineFunc[T](c, name, constructor, params, opts...); err != nil {
		panic(err)
	}
}
