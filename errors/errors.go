package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseLoad     Phase = "load"     // artifact loading
	PhaseDecode   Phase = "decode"   // artifact bytes to IR
	PhaseEncode   Phase = "encode"   // IR to artifact bytes
	PhaseConfig   Phase = "config"   // weaving configuration
	PhaseValidate Phase = "validate" // IR invariant checks
	PhaseClassify Phase = "classify" // method shape classification
	PhaseMarshal  Phase = "marshal"  // argument marshalling plan
	PhaseWeave    Phase = "weave"    // CFG rewriting
	PhaseRuntime  Phase = "runtime"  // execution of woven IR
)

// Kind categorizes the error
type Kind string

const (
	KindClassification       Kind = "classification"
	KindUnsupportedParamMode Kind = "unsupported_parameter_mode"
	KindMalformedControlFlow Kind = "malformed_control_flow"
	KindAlreadyWoven         Kind = "already_woven"
	KindInvalidData          Kind = "invalid_data"
	KindNotFound             Kind = "not_found"
	KindInvalidInput         Kind = "invalid_input"
	KindUnsupported          Kind = "unsupported"
)

// Error is the structured error type used throughout the weaver
type Error struct {
	Cause     error
	Phase     Phase
	Kind      Kind
	Method    string
	Invariant string
	Detail    string
	Path      []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Method != "" {
		b.WriteString(" in ")
		b.WriteString(e.Method)
	}

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, ", "))
	}

	if e.Invariant != "" {
		b.WriteString(": violates \"")
		b.WriteString(e.Invariant)
		b.WriteByte('"')
	}

	if e.Detail != "" {
		if e.Invariant != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Fatal reports whether the error must abort a whole weaving run.
func (e *Error) Fatal() bool {
	return e.Kind == KindMalformedControlFlow
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Method sets the identity of the offending method
func (b *Builder) Method(name string) *Builder {
	b.err.Method = name
	return b
}

// Invariant names the violated invariant
func (b *Builder) Invariant(inv string) *Builder {
	b.err.Invariant = inv
	return b
}

// Path sets the location inside the method
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// IsFatal reports whether err (or anything it wraps) is a fatal weaving error.
func IsFatal(err error) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Fatal()
	}
	return false
}

// KindOf returns the Kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Convenience constructors for common error patterns

// Classification creates an error for an ambiguous or unsupported method shape
func Classification(method, detail string) *Error {
	return &Error{
		Phase:  PhaseClassify,
		Kind:   KindClassification,
		Method: method,
		Detail: detail,
	}
}

// UnsupportedMode creates an error for a parameter passing mode the marshaller cannot represent
func UnsupportedMode(method, param, mode string) *Error {
	return &Error{
		Phase:  PhaseMarshal,
		Kind:   KindUnsupportedParamMode,
		Method: method,
		Path:   []string{"param " + param},
		Detail: fmt.Sprintf("passing mode %s cannot be marshalled", mode),
	}
}

// Malformed creates a malformed control flow error
func Malformed(method, invariant string, path []string, detail string) *Error {
	return &Error{
		Phase:     PhaseValidate,
		Kind:      KindMalformedControlFlow,
		Method:    method,
		Invariant: invariant,
		Path:      path,
		Detail:    detail,
	}
}

// AlreadyWoven creates an error for a method that carries weaving output
func AlreadyWoven(method string) *Error {
	return &Error{
		Phase:  PhaseWeave,
		Kind:   KindAlreadyWoven,
		Method: method,
		Detail: "method already contains woven advice; weaving is applied exactly once",
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Load creates an artifact loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}

// MethodFailure is a local weaving failure recorded for one method.
type MethodFailure struct {
	Err    error
	Method string
}

// FailuresError aggregates local failures of a weaving run
type FailuresError struct {
	Failures []MethodFailure
}

func (e *FailuresError) Error() string {
	if len(e.Failures) == 0 {
		return "[weave] no failures recorded"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("weaving failed for %d method(s):\n", len(e.Failures)))
	for _, f := range e.Failures {
		b.WriteString("  - ")
		b.WriteString(f.Method)
		b.WriteString(": ")
		b.WriteString(f.Err.Error())
		b.WriteByte('\n')
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Is reports whether target matches this error type
func (e *FailuresError) Is(target error) bool {
	_, ok := target.(*FailuresError)
	return ok
}

// Unwrap exposes the individual failures to errors.Is/As
func (e *FailuresError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}
