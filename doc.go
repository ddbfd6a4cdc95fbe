// Package thimble is a name-keyed component container with singleton and
// prototype scopes, circular references between singletons, an interception
// pipeline and ordered teardown.
//
// # Quick Start
//
// Define components and resolve them by name:
//
//	c := thimble.New()
//
//	thimble.DefineValue(c, "config", &Config{Port: 8080})
//
//	thimble.Define(c, "server", func(ctx context.Context, r thimble.Resolver) (*Server, error) {
//	    cfg, err := thimble.Get[*Config](ctx, r, "config")
//	    if err != nil {
//	        return nil, err
//	    }
//	    return &Server{config: cfg}, nil
//	})
//
//	srv, err := thimble.Get[*Server](ctx, c, "server")
//
// Recipes that resolve other components must pass on the context they
// receive; the container keeps the current build path in it.
//
// # Dependencies and Injection
//
// Dependencies declared on a definition are resolved after the recipe returns
// and handed to the injector one at a time. Because the raw instance already
// exists at that point, singletons may depend on each other in a cycle:
//
//	type Husband struct {
//	    Wife *Wife `thimble:"wife"`
//	}
//	type Wife struct {
//	    Husband *Husband `thimble:"husband"`
//	}
//
//	thimble.DefineStruct[*Husband](c, "husband")
//	thimble.DefineStruct[*Wife](c, "wife")
//
// The default injector assigns to the field tagged with the dependency name.
// A field tagged `thimble:",optional"` is filled only when the component it
// names is defined.
//
// DefineFunc wires constructor parameters instead. Those are resolved while
// the recipe runs, so they cannot take part in a cycle:
//
//	thimble.DefineFunc[*UserService](c, "users", NewUserService, []string{"db", "log"})
//
// # Scopes
//
// Singleton (the default) components are built once per container.
// Prototype components are built on every resolution and never cached:
//
//	thimble.Define(c, "request", newRequest, thimble.WithScope(thimble.Prototype))
//
// A cycle that passes through a prototype cannot be broken and fails with
// an UNRESOLVABLE_CYCLE error whose Stack holds the path.
//
// # Interceptors
//
// Interceptors run in the order they were added and may substitute the
// instance in three phases: when a singleton under construction is handed
// out early, after injection, and before destruction.
//
//	c.Intercept(thimble.Interceptor{
//	    Name: "audit",
//	    AfterInjection: func(ctx context.Context, name string, v any) (any, error) {
//	        return v, nil
//	    },
//	})
//
//	thimble.Decorate(c, "log", func(ctx context.Context, r thimble.Resolver, l *Logger) (*Logger, error) {
//	    return l.Named("app"), nil
//	})
//
// A component that was handed out early must end up as the same object: the
// early view is kept when the post-injection phase returns the raw instance,
// and a post-injection result that is neither fails with
// ErrEarlyReferenceDiverged. ProxyInterceptor returns the same proxy from
// both phases.
//
// # Lifecycle
//
// Components may implement NameAware, ResolverAware and Initializer, or set
// WithInit on their definition. Singletons that implement Disposer or
// io.Closer, or that set WithDispose, are disposed in reverse order of
// completion:
//
//	c.Start(ctx)  // builds every singleton not marked WithLazy
//	c.Stop(ctx)   // disposes all of them, reporting every failure
//	c.Run(ctx)    // Start + wait for signal + Stop
//
// # Modules
//
//	var Storage = thimble.NewModule("storage").
//	    Define(thimble.Definition{Name: "db", Recipe: openDB})
//	thimble.ModuleDefineStruct[*UserRepository](Storage, "users")
//
//	c.Apply(Storage)
//
// # Debugging
//
//	c.PrintGraph()     // one line per component
//	c.PrintGraphDOT()  // Graphviz, unresolvable cycles in red
//	c.PrintTable()     // scope, cache tier and disposal rank
package thimble
