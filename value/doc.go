// Package value defines the runtime values that flow through woven methods.
//
// Value is a small tagged union with explicit cases for the primitive
// categories the IR works with (integers, floating point, characters, text,
// sequences) plus an opaque Object escape hatch for user-defined data.
// Thrown exceptions, futures and lazily produced sequences are values too,
// so they can sit on the operand stack, in locals and in argument slots.
//
// Cell is an assignable variable. Parameters passed by reference share the
// caller's Cell; Out parameters start with an unassigned Cell.
//
// Future is a single-assignment result with completion callbacks; it is the
// resumption primitive for await-kind suspension. Iterator is the consumer
// side of a generator.
package value
