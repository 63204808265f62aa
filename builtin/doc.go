// Package builtin provides ready-made aspects.
//
// Trace implements every boundary hook and records the sequence of hook
// calls, which makes it the reference for advice ordering. Proceed is an
// interceptor that runs the intercepted body unchanged.
package builtin
