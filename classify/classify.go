// Package classify tags a Method IR with the shape that decides its weaving
// strategy.
package classify

import (
	"fmt"

	"github.com/wippyai/weaver/errors"
	"github.com/wippyai/weaver/ir"
)

// Shape is the control shape of a method.
type Shape uint8

const (
	Plain Shape = iota + 1
	Generator
	Continuation
)

func (s Shape) String() string {
	switch s {
	case Plain:
		return "plain"
	case Generator:
		return "generator"
	case Continuation:
		return "continuation"
	}
	return fmt.Sprintf("shape(%d)", s)
}

// Suspends reports whether methods of this shape contain suspension points.
func (s Shape) Suspends() bool { return s == Generator || s == Continuation }

// Classify returns the shape of m.
//
// A method without suspend instructions is Plain. Yield-only methods must
// return seq<T> and are Generators; await-only methods must return a future
// and are Continuations. Mixing both kinds, or a return type that does not
// match the suspension kind, is a classification error: the weaver refuses
// rather than guesses.
func Classify(m *ir.Method) (Shape, error) {
	yield, await := m.Suspends()

	switch {
	case !yield && !await:
		return Plain, nil
	case yield && await:
		return 0, errors.Classification(m.Name, "method mixes yield and await suspensions")
	case yield:
		if m.Return.Kind != ir.Sequence || m.Return.Elem == nil {
			return 0, errors.Classification(m.Name,
				fmt.Sprintf("yield suspensions require a seq<T> return type, got %s", m.Return))
		}
		return Generator, nil
	default:
		if m.Return.Kind != ir.Future {
			return 0, errors.Classification(m.Name,
				fmt.Sprintf("await suspensions require a future return type, got %s", m.Return))
		}
		return Continuation, nil
	}
}

// ResultType returns the type of the value a method of shape s hands to its
// Ret instruction: void for generators, the future's element for
// continuations and the declared return type otherwise.
func ResultType(m *ir.Method, s Shape) ir.Type {
	switch s {
	case Generator:
		return ir.Type{}
	case Continuation:
		return m.Return.ElemType()
	}
	return m.Return
}
