package thimble

import "log/slog"

type Option func(*containerConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(cfg *containerConfig) {
		cfg.logger = logger
	}
}

// WithID sets the container id attached to every log record. A random UUID
// is used otherwise.
func WithID(id string) Option {
	return func(cfg *containerConfig) {
		cfg.id = id
	}
}

// WithDefaultInjector replaces FieldInjector for definitions that do not
// carry their own injector.
func WithDefaultInjector(injector Injector) Option {
	return func(cfg *containerConfig) {
		cfg.injector = injector
	}
}

func WithResolveObserver(hook ResolveHook) Option {
	return func(cfg *containerConfig) {
		cfg.onResolve = append(cfg.onResolve, hook)
	}
}

func WithCreateObserver(hook CreateHook) Option {
	return func(cfg *containerConfig) {
		cfg.onCreate = append(cfg.onCreate, hook)
	}
}

func WithDisposeObserver(hook DisposeHook) Option {
	return func(cfg *containerConfig) {
		cfg.onDispose = append(cfg.onDispose, hook)
	}
}

func WithDefineObserver(hook DefineHook) Option {
	return func(cfg *containerConfig) {
		cfg.onDefine = append(cfg.onDefine, hook)
	}
}
