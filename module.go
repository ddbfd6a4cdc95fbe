package thimble

import (
	"context"
)

// Module groups definitions, aliases and interceptors so they can be applied
// to a container together.
type Module struct {
	name         string
	definitions  []func(c *Container) error
	aliases      []aliasEntry
	interceptors []func(c *Container) Interceptor
	submodules   []*Module
}

type aliasEntry struct {
	alias string
	name  string
}

func NewModule(name string) *Module {
	return &Module{
		name: name,
	}
}

func (m *Module) Name() string {
	return m.name
}

func (m *Module) Define(def Definition) *Module {
	m.definitions = append(m.definitions, func(c *Container) error {
		return c.Define(def)
	})
	return m
}

func (m *Module) Alias(alias, name string) *Module {
	m.aliases = append(m.aliases, aliasEntry{alias: alias, name: name})
	return m
}

func (m *Module) Intercept(i Interceptor) *Module {
	m.interceptors = append(m.interceptors, func(*Container) Interceptor {
		return i
	})
	return m
}

func (m *Module) Include(submodule *Module) *Module {
	m.submodules = append(m.submodules, submodule)
	return m
}

// apply registers submodules first, then interceptors so they see every
// component the module defines, then definitions and aliases.
func (m *Module) apply(c *Container) error {
	for _, sub := range m.submodules {
		if err := sub.apply(c); err != nil {
			return err
		}
	}

	for _, i := range m.interceptors {
		c.Intercept(i(c))
	}

	for _, register := range m.definitions {
		if err := register(c); err != nil {
			return err
		}
	}

	for _, a := range m.aliases {
		if err := c.Alias(a.alias, a.name); err != nil {
			return err
		}
	}

	return nil
}

func (c *Container) Apply(modules ...*Module) error {
	for _, m := range modules {
		if err := m.apply(c); err != nil {
			return errModuleApplyFailed(m.name, err)
		}
	}
	return nil
}

func errModuleApplyFailed(moduleName string, cause error) *Error {
	return newError(
		ErrCodeModuleApplyFailed,
		"failed to apply module "+moduleName,
		cause,
	)
}

func ModuleDefine[T any](m *Module, name string, recipe func(ctx context.Context, r Resolver) (T, error), opts ...DefinitionOption) *Module {
	m.definitions = append(m.definitions, func(c *Container) error {
		return Define(c, name, recipe, opts...)
	})
	return m
}

func ModuleDefineValue[T any](m *Module, name string, value T, opts ...DefinitionOption) *Module {
	m.definitions = append(m.definitions, func(c *Container) error {
		return DefineValue(c, name, value, opts...)
	})
	return m
}

func ModuleDefineStruct[T any](m *Module, name string, opts ...DefinitionOption) *Module {
	m.definitions = append(m.definitions, func(c *Container) error {
		return DefineStruct[T](c, name, opts...)
	})
	return m
}

func ModuleDecorate[T any](m *Module, name string, decorator Decorator[T]) *Module {
	m.interceptors = append(m.interceptors, func(c *Container) Interceptor {
		return decoratorInterceptor(c, name, decorator)
	})
	return m
}
