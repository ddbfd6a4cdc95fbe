package container

import (
	"errors"
	"strconv"
	"strings"
)

var (
	ErrUnknownComponent   = errors.New("unknown component")
	ErrDuplicateComponent = errors.New("duplicate component")
	ErrInvalidDefinition  = errors.New("invalid definition")
	ErrUnresolvableCycle  = errors.New("unresolvable dependency cycle")
	ErrConstruction       = errors.New("construction failed")
	ErrInjection          = errors.New("injection failed")
	ErrInitialization     = errors.New("initialization failed")
	ErrInterception       = errors.New("interception failed")
	ErrDisposal           = errors.New("disposal failed")
	ErrContainerClosed    = errors.New("container is stopped")

	// ErrEarlyReferenceDiverged is the cause of an interception failure when
	// the post-injection instance is neither the raw instance nor the early
	// reference already handed to dependents.
	ErrEarlyReferenceDiverged = errors.New("post-injection instance diverged from the exposed early reference")
)

// BuildError reports a failure while building or destroying a component.
// Kind is one of the sentinel errors above; Path is the dependency chain
// that led to Name, ending with Name.
type BuildError struct {
	Kind  error
	Name  string
	Path  []string
	Cause error
}

func (e *BuildError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Name != "" {
		b.WriteString(" ")
		b.WriteString(strconv.Quote(e.Name))
	}
	if len(e.Path) > 1 {
		b.WriteString(" [")
		b.WriteString(strings.Join(e.Path, " -> "))
		b.WriteString("]")
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *BuildError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// DisposalError aggregates the disposal hooks that failed during one
// shutdown or destroy call.
type DisposalError struct {
	Components []string
	Cause      error
}

func (e *DisposalError) Error() string {
	return ErrDisposal.Error() + " for " + strings.Join(e.Components, ", ") + ": " + e.Cause.Error()
}

func (e *DisposalError) Unwrap() []error {
	return []error{ErrDisposal, e.Cause}
}

// Kind returns the sentinel kind of the first BuildError or DisposalError in
// err's chain, or nil.
func Kind(err error) error {
	var be *BuildError
	if errors.As(err, &be) {
		return be.Kind
	}
	var de *DisposalError
	if errors.As(err, &de) {
		return ErrDisposal
	}
	return nil
}

func newBuildError(kind error, name string, path []string, cause error) *BuildError {
	return &BuildError{
		Kind:  kind,
		Name:  name,
		Path:  path,
		Cause: cause,
	}
}
