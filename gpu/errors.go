package gpu

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies why acquiring a device or running a dispatch failed.
// None of them are retried.
type Kind int

const (
	// KindAdapterAcquisition: no compatible adapter was found.
	KindAdapterAcquisition Kind = iota + 1
	// KindDeviceCreation: the adapter refused to create a device.
	KindDeviceCreation
	// KindCompile: invalid program text or missing entry point.
	KindCompile
	// KindBinding: supplied buffers do not match the program's binding layout.
	KindBinding
	// KindExecution: the device faulted, timed out, or the read-back map failed.
	KindExecution
)

func (k Kind) String() string {
	switch k {
	case KindAdapterAcquisition:
		return "adapter acquisition error"
	case KindDeviceCreation:
		return "device creation error"
	case KindCompile:
		return "compile error"
	case KindBinding:
		return "binding error"
	case KindExecution:
		return "execution error"
	default:
		return fmt.Sprintf("error kind %d", int(k))
	}
}

// Error is returned by every operation in this package.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same Kind that carries no cause, which is what the
// Err* sentinels are.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrAdapterAcquisition = &Error{Kind: KindAdapterAcquisition}
	ErrDeviceCreation     = &Error{Kind: KindDeviceCreation}
	ErrCompile            = &Error{Kind: KindCompile}
	ErrBinding            = &Error{Kind: KindBinding}
	ErrExecution          = &Error{Kind: KindExecution}
)

// KindOf returns the Kind of err, or 0 if err did not come from this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func errorf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Err: errors.Errorf(format, args...)}
}

func wrapf(kind Kind, cause error, format string, args ...any) error {
	return &Error{Kind: kind, Err: errors.Wrapf(cause, format, args...)}
}
