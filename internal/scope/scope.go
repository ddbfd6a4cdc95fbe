package scope

import (
	"fmt"
	"strings"
)

type Scope int

const (
	Singleton Scope = iota
	Prototype
)

func (s Scope) String() string {
	switch s {
	case Singleton:
		return "singleton"
	case Prototype:
		return "prototype"
	default:
		return "unknown"
	}
}

func (s Scope) Valid() bool {
	return s == Singleton || s == Prototype
}

// Cached reports whether instances of the scope live in the instance cache.
func (s Scope) Cached() bool {
	return s == Singleton
}

func Parse(value string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "singleton":
		return Singleton, nil
	case "prototype":
		return Prototype, nil
	default:
		return Singleton, fmt.Errorf("unknown scope %q", value)
	}
}
