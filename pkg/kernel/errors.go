package kernel

import "fmt"

// ErrorKind discriminates the error taxonomy spec.md §7 assigns
// distinct propagation policies to.
type ErrorKind int

const (
	// ErrDecode: a wire message was malformed or carried an unsupported
	// data type. Fatal to the current transport connection.
	ErrDecode ErrorKind = iota
	// ErrMissingBinding: a Function or RHS could not be evaluated
	// because a variable was never bound. Non-fatal; the affected
	// candidate is filtered.
	ErrMissingBinding
	// ErrUnknownID: a referenced Cst or Mdl id does not exist in the
	// System. Fatal — indicates a consistency bug.
	ErrUnknownID
	// ErrPlannerExhaustion: backward or forward chaining produced no
	// plan. Non-fatal; the loop emits a no_action sentinel.
	ErrPlannerExhaustion
)

// KernelError wraps one of the taxonomy's kinds with a message.
type KernelError struct {
	Kind ErrorKind
	Msg  string
}

func (e *KernelError) Error() string { return e.Msg }

// Fatal reports whether this error is not recovered locally (spec.md
// §7): ErrDecode ends the transport connection and ErrUnknownID aborts
// with a diagnostic.
func (e *KernelError) Fatal() bool {
	return e.Kind == ErrDecode || e.Kind == ErrUnknownID
}

func newError(kind ErrorKind, format string, args ...any) *KernelError {
	return &KernelError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func errMissingBinding(name string) *KernelError {
	return newError(ErrMissingBinding, "binding %q was never resolved", name)
}

func errUnknownID(kind, id string) *KernelError {
	return newError(ErrUnknownID, "unknown %s id %q", kind, id)
}

func errPlannerExhaustion() *KernelError {
	return newError(ErrPlannerExhaustion, "no plan found within depth/time bounds")
}

// NewDecodeError constructs an ErrDecode KernelError for a collaborator
// (e.g. pkg/transport) that found a malformed wire message or an
// unsupported data type (spec.md §7).
func NewDecodeError(format string, args ...any) *KernelError {
	return newError(ErrDecode, format, args...)
}
