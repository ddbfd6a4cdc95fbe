// Package thimbletest wraps a container for use in tests: failures are
// reported through testing.TB and the container is stopped on cleanup.
package thimbletest

import (
	"context"
	"fmt"
	"slices"

	"github.com/danpasecinic/thimble"
)

type TB interface {
	Helper()
	Fatal(args ...any)
	Fatalf(format string, args ...any)
	Cleanup(f func())
}

type TestContainer struct {
	*thimble.Container
	tb TB
}

func New(tb TB, opts ...thimble.Option) *TestContainer {
	tb.Helper()

	c := thimble.New(opts...)
	tc := &TestContainer{
		Container: c,
		tb:        tb,
	}

	tb.Cleanup(func() {
		if err := c.Stop(context.Background()); err != nil {
			tb.Fatalf("failed to stop container: %v", err)
		}
	})

	return tc
}

func (tc *TestContainer) RequireStart(ctx context.Context) {
	tc.tb.Helper()

	if err := tc.Start(ctx); err != nil {
		tc.tb.Fatalf("failed to start container: %v", err)
	}
}

func (tc *TestContainer) RequireStop(ctx context.Context) {
	tc.tb.Helper()

	if err := tc.Stop(ctx); err != nil {
		tc.tb.Fatalf("failed to stop container: %v", err)
	}
}

func (tc *TestContainer) RequireValidate() {
	tc.tb.Helper()

	if err := tc.Validate(); err != nil {
		tc.tb.Fatalf("container validation failed: %v", err)
	}
}

// Substitute makes name resolve to value. The original recipe still runs and
// its instance is replaced after injection, so dependents built afterwards
// receive value.
func Substitute[T any](tc *TestContainer, name string, value T) {
	tc.tb.Helper()

	if !tc.Has(name) {
		tc.tb.Fatalf("cannot substitute %s: not defined", name)
	}

	tc.Intercept(thimble.Interceptor{
		Name: "substitute:" + name,
		AfterInjection: func(_ context.Context, component string, instance any) (any, error) {
			if component != name {
				return instance, nil
			}
			return value, nil
		},
	})
}

func MustDefine[T any](tc *TestContainer, name string, recipe func(ctx context.Context, r thimble.Resolver) (T, error), opts ...thimble.DefinitionOption) {
	tc.tb.Helper()

	if err := thimble.Define(tc.Container, name, recipe, opts...); err != nil {
		tc.tb.Fatalf("failed to define %s: %v", name, err)
	}
}

func MustDefineValue[T any](tc *TestContainer, name string, value T, opts ...thimble.DefinitionOption) {
	tc.tb.Helper()

	if err := thimble.DefineValue(tc.Container, name, value, opts...); err != nil {
		tc.tb.Fatalf("failed to define value %s: %v", name, err)
	}
}

func MustDefineStruct[T any](tc *TestContainer, name string, opts ...thimble.DefinitionOption) {
	tc.tb.Helper()

	if err := thimble.DefineStruct[T](tc.Container, name, opts...); err != nil {
		tc.tb.Fatalf("failed to define struct %s: %v", name, err)
	}
}

func MustGet[T any](tc *TestContainer, name string) T {
	tc.tb.Helper()

	v, err := thimble.Get[T](context.Background(), tc.Container, name)
	if err != nil {
		tc.tb.Fatalf("failed to resolve %s: %v", name, err)
	}
	return v
}

func AssertHas(tc *TestContainer, name string) {
	tc.tb.Helper()

	if !tc.Has(name) {
		tc.tb.Fatalf("expected container to have %s", name)
	}
}

func AssertNotHas(tc *TestContainer, name string) {
	tc.tb.Helper()

	if tc.Has(name) {
		tc.tb.Fatalf("expected container to not have %s", name)
	}
}

// AssertTier fails unless name currently sits in the given cache tier.
func AssertTier(tc *TestContainer, name, tier string) {
	tc.tb.Helper()

	if got := tc.Tier(name); got != tier {
		tc.tb.Fatalf("expected %s to be %s, got %s", name, tier, got)
	}
}

// AssertSame fails unless both names resolve to the same instance.
func AssertSame(tc *TestContainer, a, b string) {
	tc.tb.Helper()

	ctx := context.Background()
	va, err := tc.Resolve(ctx, a)
	if err != nil {
		tc.tb.Fatalf("failed to resolve %s: %v", a, err)
	}
	vb, err := tc.Resolve(ctx, b)
	if err != nil {
		tc.tb.Fatalf("failed to resolve %s: %v", b, err)
	}
	if fmt.Sprintf("%p", va) != fmt.Sprintf("%p", vb) {
		tc.tb.Fatalf("expected %s and %s to be the same instance", a, b)
	}
}

func AssertDisposalOrder(tc *TestContainer, want ...string) {
	tc.tb.Helper()

	if got := tc.DisposalOrder(); !slices.Equal(got, want) {
		tc.tb.Fatalf("expected disposal order %v, got %v", want, got)
	}
}
