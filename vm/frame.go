package vm

import (
	"github.com/wippyai/weaver/value"
)

type pendingKind uint8

const (
	pendingLeave pendingKind = iota + 1
	pendingRaise
)

// pending records what to do when the finally block of region finishes.
type pending struct {
	err    error
	rest   []int
	region int
	target uint32
	from   uint32
	kind   pendingKind
}

// frame is the saved state of one activation. Generator and continuation
// frames outlive the call that created them.
type frame struct {
	c       *compiled
	this    value.Value
	params  []*value.Cell
	locals  []*value.Cell
	stack   []value.Value
	pending []pending
	depth   int
	block   uint32
	pc      int
}

func newFrame(c *compiled, this value.Value, params []*value.Cell, depth int) *frame {
	locals := make([]*value.Cell, len(c.m.Locals))
	for i := range locals {
		locals[i] = value.NewCell(value.None())
	}
	return &frame{
		c:      c,
		this:   this,
		params: params,
		locals: locals,
		stack:  make([]value.Value, 0, 8),
		depth:  depth,
	}
}

func (f *frame) push(v value.Value) {
	f.stack = append(f.stack, v)
}

func (f *frame) pop() (value.Value, error) {
	if len(f.stack) == 0 {
		return value.None(), value.NewException(value.TypeInvalidOp, "operand stack underflow")
	}
	v := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return v, nil
}

func (f *frame) popN(n int) ([]value.Value, error) {
	if len(f.stack) < n {
		return nil, value.NewException(value.TypeInvalidOp, "operand stack underflow")
	}
	vals := append([]value.Value(nil), f.stack[len(f.stack)-n:]...)
	f.stack = f.stack[:len(f.stack)-n]
	return vals, nil
}

func (f *frame) jump(block uint32) {
	f.block = block
	f.pc = 0
}

// unwinding reports whether the frame is running a finally block on behalf
// of an exception, directly or from a finally nested inside one.
func (f *frame) unwinding() bool {
	for _, p := range f.pending {
		if p.kind == pendingRaise {
			return true
		}
	}
	return false
}
