package thimble

import (
	"context"
	"sync"

	"github.com/danpasecinic/thimble/internal/container"
	"github.com/danpasecinic/thimble/internal/intercept"
	"github.com/danpasecinic/thimble/internal/reflect"
)

// InterceptFunc receives an instance and returns the instance to use from
// then on. Returning a different object substitutes it.
type InterceptFunc = intercept.Func

// Interceptor takes part in the phases whose func is set. Interceptors run in
// the order they were added; each sees the previous one's result.
type Interceptor struct {
	Name string

	// EarlyReference produces the view handed to dependents that ask for a
	// singleton while it is still being built.
	EarlyReference InterceptFunc

	AfterInjection    InterceptFunc
	BeforeDestruction InterceptFunc
}

// Intercept appends interceptors to the pipeline. Components that are
// already finished are not revisited.
func (c *Container) Intercept(interceptors ...Interceptor) {
	for _, i := range interceptors {
		c.internal.Intercept(intercept.Hook{
			Name:              i.Name,
			EarlyReference:    i.EarlyReference,
			AfterInjection:    i.AfterInjection,
			BeforeDestruction: i.BeforeDestruction,
		})
	}
}

type Decorator[T any] func(ctx context.Context, r Resolver, base T) (T, error)

// Decorate wraps the component called name after injection. Instances of
// other types pass through untouched.
func Decorate[T any](c *Container, name string, decorator Decorator[T]) {
	c.Intercept(decoratorInterceptor(c, name, decorator))
}

func decoratorInterceptor[T any](c *Container, name string, decorator Decorator[T]) Interceptor {
	return Interceptor{
		Name: "decorate:" + name,
		AfterInjection: func(ctx context.Context, component string, instance any) (any, error) {
			if component != name {
				return instance, nil
			}
			typed, ok := instance.(T)
			if !ok {
				return nil, errTypeMismatch(name, reflect.TypeName[T](), instance)
			}
			return decorator(ctx, c, typed)
		},
	}
}

// ProxyInterceptor wraps matching components in a proxy. One proxy is made
// per build and handed out both as the early reference and after injection,
// so components in a dependency cycle and the final cache entry agree on one
// object. When an earlier AfterInjection hook already replaced the instance
// of a component whose early reference was taken, the proxy still wraps the
// instance it first saw; register proxies before such hooks.
func ProxyInterceptor(name string, match func(component string) bool, wrap func(component string, target any) (any, error)) Interceptor {
	type entry struct {
		build  any
		target any
		proxy  any
	}

	var mu sync.Mutex
	proxies := make(map[string]entry)

	proxyFor := func(ctx context.Context, component string, instance any) (any, error) {
		if !match(component) {
			return instance, nil
		}
		build := container.BuildToken(ctx)

		mu.Lock()
		defer mu.Unlock()

		if e, ok := proxies[component]; ok {
			if build != nil && e.build == build {
				return e.proxy, nil
			}
			if build == nil && reflect.Same(e.target, instance) {
				return e.proxy, nil
			}
		}

		p, err := wrap(component, instance)
		if err != nil {
			return nil, err
		}
		proxies[component] = entry{build: build, target: instance, proxy: p}
		return p, nil
	}

	return Interceptor{
		Name:           name,
		EarlyReference: proxyFor,
		AfterInjection: proxyFor,
		BeforeDestruction: func(ctx context.Context, component string, instance any) (any, error) {
			mu.Lock()
			delete(proxies, component)
			mu.Unlock()
			return instance, nil
		},
	}
}
