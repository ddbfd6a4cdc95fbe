package thimble

import (
	"time"
)

type ResolveHook func(name string, duration time.Duration, err error)

type CreateHook func(name string, duration time.Duration, err error)

type DisposeHook func(name string, duration time.Duration, err error)

type DefineHook func(def Definition)
