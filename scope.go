package thimble

import "github.com/danpasecinic/thimble/internal/scope"

type Scope = scope.Scope

const (
	Singleton = scope.Singleton
	Prototype = scope.Prototype
)

// ParseScope accepts "singleton", "prototype" or the empty string, which
// means singleton.
func ParseScope(value string) (Scope, error) {
	return scope.Parse(value)
}
