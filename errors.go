package thimble

import (
	"errors"
	"fmt"
	"strings"

	"github.com/danpasecinic/thimble/internal/container"
)

type ErrorCode uint16

const (
	ErrCodeUnknown ErrorCode = iota
	ErrCodeUnknownComponent
	ErrCodeUnresolvableCycle
	ErrCodeConstructionFailure
	ErrCodeInjectionFailure
	ErrCodeInitializationFailure
	ErrCodeInterceptionFailure
	ErrCodeDisposalFailure
	ErrCodeDuplicateComponent
	ErrCodeInvalidDefinition
	ErrCodeValidationFailed
	ErrCodeContainerClosed
	ErrCodeStartupFailed
	ErrCodeShutdownFailed
	ErrCodeHealthCheckFailed
	ErrCodeModuleApplyFailed
)

var codeNames = map[ErrorCode]string{
	ErrCodeUnknown:               "UNKNOWN",
	ErrCodeUnknownComponent:      "UNKNOWN_COMPONENT",
	ErrCodeUnresolvableCycle:     "UNRESOLVABLE_CYCLE",
	ErrCodeConstructionFailure:   "CONSTRUCTION_FAILURE",
	ErrCodeInjectionFailure:      "INJECTION_FAILURE",
	ErrCodeInitializationFailure: "INITIALIZATION_FAILURE",
	ErrCodeInterceptionFailure:   "INTERCEPTION_FAILURE",
	ErrCodeDisposalFailure:       "DISPOSAL_FAILURE",
	ErrCodeDuplicateComponent:    "DUPLICATE_COMPONENT",
	ErrCodeInvalidDefinition:     "INVALID_DEFINITION",
	ErrCodeValidationFailed:      "VALIDATION_FAILED",
	ErrCodeContainerClosed:       "CONTAINER_CLOSED",
	ErrCodeStartupFailed:         "STARTUP_FAILED",
	ErrCodeShutdownFailed:        "SHUTDOWN_FAILED",
	ErrCodeHealthCheckFailed:     "HEALTH_CHECK_FAILED",
	ErrCodeModuleApplyFailed:     "MODULE_APPLY_FAILED",
}

var kindCodes = map[error]ErrorCode{
	container.ErrUnknownComponent:   ErrCodeUnknownComponent,
	container.ErrUnresolvableCycle:  ErrCodeUnresolvableCycle,
	container.ErrConstruction:       ErrCodeConstructionFailure,
	container.ErrInjection:          ErrCodeInjectionFailure,
	container.ErrInitialization:     ErrCodeInitializationFailure,
	container.ErrInterception:       ErrCodeInterceptionFailure,
	container.ErrDisposal:           ErrCodeDisposalFailure,
	container.ErrDuplicateComponent: ErrCodeDuplicateComponent,
	container.ErrInvalidDefinition:  ErrCodeInvalidDefinition,
	container.ErrContainerClosed:    ErrCodeContainerClosed,
}

// Sentinel kinds, usable with errors.Is on any error returned by the
// container.
var (
	ErrUnknownComponent       = container.ErrUnknownComponent
	ErrUnresolvableCycle      = container.ErrUnresolvableCycle
	ErrConstruction           = container.ErrConstruction
	ErrInjection              = container.ErrInjection
	ErrInitialization         = container.ErrInitialization
	ErrInterception           = container.ErrInterception
	ErrDisposal               = container.ErrDisposal
	ErrDuplicateComponent     = container.ErrDuplicateComponent
	ErrInvalidDefinition      = container.ErrInvalidDefinition
	ErrContainerClosed        = container.ErrContainerClosed
	ErrEarlyReferenceDiverged = container.ErrEarlyReferenceDiverged
)

func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", c)
}

type Error struct {
	Code    ErrorCode
	Message string
	Service string
	Cause   error
	Stack   []string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s]", e.Code))

	if e.Service != "" {
		b.WriteString(fmt.Sprintf(" component=%q:", e.Service))
	}

	b.WriteString(" ")
	b.WriteString(e.Message)

	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}

	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

func (e *Error) WithService(service string) *Error {
	e.Service = service
	return e
}

func (e *Error) WithStack(stack []string) *Error {
	e.Stack = stack
	return e
}

func newError(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// wrapError classifies an engine error by the first BuildError or
// DisposalError in its chain.
func wrapError(name string, err error) error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		return e
	}

	var be *container.BuildError
	if errors.As(err, &be) {
		code := kindCodes[be.Kind]
		e := newError(code, messageFor(code, be.Name), err).WithService(be.Name)
		if len(be.Path) > 0 {
			e.WithStack(be.Path)
		}
		return e
	}

	var de *container.DisposalError
	if errors.As(err, &de) {
		return newError(ErrCodeDisposalFailure, messageFor(ErrCodeDisposalFailure, ""), err).
			WithService(strings.Join(de.Components, ","))
	}

	return newError(ErrCodeUnknown, messageFor(ErrCodeUnknown, name), err).WithService(name)
}

func messageFor(code ErrorCode, name string) string {
	switch code {
	case ErrCodeUnknownComponent:
		return fmt.Sprintf("no definition for %s", name)
	case ErrCodeUnresolvableCycle:
		return fmt.Sprintf("dependency cycle through %s cannot be broken", name)
	case ErrCodeConstructionFailure:
		return fmt.Sprintf("recipe for %s failed", name)
	case ErrCodeInjectionFailure:
		return fmt.Sprintf("failed to inject dependencies into %s", name)
	case ErrCodeInitializationFailure:
		return fmt.Sprintf("failed to initialize %s", name)
	case ErrCodeInterceptionFailure:
		return fmt.Sprintf("interceptor failed for %s", name)
	case ErrCodeDisposalFailure:
		return "one or more components failed to dispose"
	case ErrCodeDuplicateComponent:
		return fmt.Sprintf("%s is already defined", name)
	case ErrCodeInvalidDefinition:
		return fmt.Sprintf("invalid definition %s", name)
	case ErrCodeContainerClosed:
		return fmt.Sprintf("cannot build %s after shutdown", name)
	default:
		if name == "" {
			return "container error"
		}
		return fmt.Sprintf("failed to resolve %s", name)
	}
}

func errValidationFailed(cause error) *Error {
	return newError(ErrCodeValidationFailed, "container validation failed", cause)
}

func errStartupFailed(cause error) *Error {
	return newError(ErrCodeStartupFailed, "failed to start container", cause)
}

func errShutdownFailed(cause error) *Error {
	return newError(ErrCodeShutdownFailed, "failed to stop container", cause)
}

func errHealthCheckFailed(name string, cause error) *Error {
	return newError(
		ErrCodeHealthCheckFailed,
		fmt.Sprintf("health check failed for %s", name),
		cause,
	).WithService(name)
}

func errTypeMismatch(name string, want string, got any) *Error {
	return newError(
		ErrCodeUnknown,
		fmt.Sprintf("component %s is %T, not %s", name, got, want),
		nil,
	).WithService(name)
}

// hasCode reports whether any Error in err's tree carries code.
func hasCode(err error, code ErrorCode) bool {
	return errors.Is(err, &Error{Code: code})
}

func IsUnknownComponent(err error) bool {
	return hasCode(err, ErrCodeUnknownComponent)
}

func IsUnresolvableCycle(err error) bool {
	return hasCode(err, ErrCodeUnresolvableCycle)
}

func IsConstructionFailure(err error) bool {
	return hasCode(err, ErrCodeConstructionFailure)
}

func IsInjectionFailure(err error) bool {
	return hasCode(err, ErrCodeInjectionFailure)
}

func IsInitializationFailure(err error) bool {
	return hasCode(err, ErrCodeInitializationFailure)
}

func IsInterceptionFailure(err error) bool {
	return hasCode(err, ErrCodeInterceptionFailure)
}

func IsDisposalFailure(err error) bool {
	return hasCode(err, ErrCodeDisposalFailure)
}

func IsDuplicateComponent(err error) bool {
	return hasCode(err, ErrCodeDuplicateComponent)
}

func IsInvalidDefinition(err error) bool {
	return hasCode(err, ErrCodeInvalidDefinition)
}

func IsContainerClosed(err error) bool {
	return hasCode(err, ErrCodeContainerClosed)
}

func IsValidationFailed(err error) bool {
	return hasCode(err, ErrCodeValidationFailed)
}

func IsModuleApplyFailed(err error) bool {
	return hasCode(err, ErrCodeModuleApplyFailed)
}

func IsStartupFailed(err error) bool {
	return hasCode(err, ErrCodeStartupFailed)
}

func IsShutdownFailed(err error) bool {
	return hasCode(err, ErrCodeShutdownFailed)
}

func IsHealthCheckFailed(err error) bool {
	return hasCode(err, ErrCodeHealthCheckFailed)
}
