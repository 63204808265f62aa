// Package errors provides structured error types for the weaver.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the identity of the offending method, the invariant that
// was violated, a location path inside the method, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseValidate, errors.KindMalformedControlFlow).
//		Method("Calc.Divide").
//		Invariant("out parameter assigned on every exit").
//		Path("block 3", "instr 2").
//		Detail("parameter %q not assigned before ret", "rem").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Classification("Gen.Items", "yield suspension with non-sequence return")
//	err := errors.UnsupportedMode("Gen.Items", "count", "out")
//
// Malformed control flow is fatal for a whole weaving run; every other kind is
// local to the method it names. Use IsFatal to tell them apart.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
