package value

import (
	"context"
	"errors"
)

// Exception types raised by the runtime itself.
const (
	TypeError         = "Error"
	TypeCanceled      = "Canceled"
	TypeTimeout       = "Timeout"
	TypeUnassignedOut = "UnassignedOut"
	TypeInvalidOp     = "InvalidOperation"
	TypeNotFound      = "MissingMethod"
	TypeMissingAspect = "MissingAspect"
	TypeStackOverflow = "StackOverflow"
)

// Exception is a thrown IR-level exception. Catch clauses match on Type.
type Exception struct {
	Data    Value
	Type    string
	Message string
}

// NewException creates an exception of the given type.
func NewException(typ, msg string) *Exception {
	return &Exception{Type: typ, Message: msg}
}

func (e *Exception) Error() string {
	if e.Message == "" {
		return e.Type
	}
	return e.Type + "(" + e.Message + ")"
}

// Is matches another *Exception with the same Type and Message.
func (e *Exception) Is(target error) bool {
	t, ok := target.(*Exception)
	return ok && t.Type == e.Type && t.Message == e.Message
}

// ExceptionType maps any error to the type name catch clauses match against.
func ExceptionType(err error) string {
	var ex *Exception
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ex):
		return ex.Type
	case errors.Is(err, context.Canceled):
		return TypeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return TypeTimeout
	}
	return TypeError
}

// Catches reports whether a catch clause for typ handles err.
// The empty type catches everything.
func Catches(typ string, err error) bool {
	return typ == "" || typ == ExceptionType(err)
}
