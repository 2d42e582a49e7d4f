// Package diag defines nimbuild's coded diagnostic error, used wherever
// a failure doesn't already have a dedicated typed error (pkg/driver's
// CycleError, pkg/rule's AmbiguousError/NotFoundError, pkg/phase's
// DeadlockError) but still needs a stable code callers can switch on
// instead of matching an error string.
package diag

import (
	"fmt"

	"golang.org/x/xerrors"
)

// Code identifies a class of diagnostic nimbuild can explain to the user
// with a localized message rather than a raw Go error string.
type Code int

const (
	_ Code = iota
	DepdbReadError
	InstallPathUnresolved
	UnknownTargetType
)

func (c Code) String() string {
	switch c {
	case DepdbReadError:
		return "depdb-read-error"
	case InstallPathUnresolved:
		return "install-path-unresolved"
	case UnknownTargetType:
		return "unknown-target-type"
	default:
		return "unknown"
	}
}

// ComplexError is an error carrying a diagnostic Code, the same shape as
// the teacher's commands.ComplexError (adapted from
// https://medium.com/yakka/better-go-error-handling-with-xerrors-1987650e0c79):
// a message, a code, and an xerrors.Frame so %+v prints a stack.
type ComplexError struct {
	Message string
	Code    Code
	frame   xerrors.Frame
}

// New constructs a ComplexError for code, capturing the caller's frame.
func New(code Code, format string, args ...interface{}) ComplexError {
	return ComplexError{
		Message: fmt.Sprintf(format, args...),
		Code:    code,
		frame:   xerrors.Caller(1),
	}
}

func (ce ComplexError) FormatError(p xerrors.Printer) error {
	p.Printf("%s: %s", ce.Code, ce.Message)
	ce.frame.Format(p)
	return nil
}

func (ce ComplexError) Format(f fmt.State, c rune) {
	xerrors.FormatError(ce, f, c)
}

func (ce ComplexError) Error() string {
	return fmt.Sprint(ce)
}

// HasCode reports whether err is a ComplexError (at any wrap depth) with
// the given code.
func HasCode(err error, code Code) bool {
	var ce ComplexError
	if xerrors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}
