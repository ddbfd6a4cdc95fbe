package thimble

import "github.com/danpasecinic/thimble/internal/container"

// NameAware components are told the name they were defined under before
// initialization.
type NameAware = container.NameAware

// ResolverAware components receive the container before initialization.
type ResolverAware = container.ResolverAware

// Initializer runs once dependencies are injected, before post-injection
// interceptors.
type Initializer = container.Initializer

// Disposer is called when a singleton is destroyed. Components implementing
// io.Closer are closed instead.
type Disposer = container.Disposer

type State = container.State

const (
	StateNew      = container.StateNew
	StateStarting = container.StateStarting
	StateRunning  = container.StateRunning
	StateStopping = container.StateStopping
	StateStopped  = container.StateStopped
)
