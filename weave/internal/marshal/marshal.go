// Package marshal plans how a method's parameters move in and out of the
// uniform Arguments container.
//
// ByValue and In parameters are copied into their slot at entry. ByRef
// parameters copy the aliased value in and, once the body is done, copy the
// slot back out to the alias. Out slots start unset; the body's assignment is
// synced into the slot after the body and written back to the alias on exit.
package marshal

import (
	"github.com/wippyai/weaver/classify"
	"github.com/wippyai/weaver/errors"
	"github.com/wippyai/weaver/ir"
)

// Plan records which marshalling steps a method needs.
type Plan struct {
	// apply copies slots into the parameters after entry advice ran.
	apply bool
	// sync copies aliased parameters back into their slots once the body
	// finished, before exception dispatch.
	sync bool
	// writeBack copies slots to the caller's aliases on exit.
	writeBack bool
}

// Build plans marshalling for m. Passing modes the container cannot carry
// for the given shape fail with unsupported_parameter_mode: aliased
// parameters of generators and continuations would outlive the caller's
// variable.
func Build(m *ir.Method, shape classify.Shape) (*Plan, error) {
	p := &Plan{}
	for _, prm := range m.Params {
		switch prm.Mode {
		case ir.ByValue, ir.In:
			p.apply = true
		case ir.ByRef, ir.Out:
			if shape.Suspends() {
				return nil, errors.UnsupportedMode(m.Name, prm.Name, prm.Mode.String()+" on a "+shape.String()+" method")
			}
			if prm.Mode == ir.ByRef {
				p.apply = true
			}
			p.sync = true
			p.writeBack = true
		default:
			return nil, errors.UnsupportedMode(m.Name, prm.Name, prm.Mode.String())
		}
	}
	return p, nil
}

// ApplyOps returns the instructions that apply the slots after entry.
func (p *Plan) ApplyOps(ctx uint32) []ir.Instruction {
	if !p.apply {
		return nil
	}
	return []ir.Instruction{ir.Ctx(ir.OpArgsApply, ctx)}
}

// SyncOps returns the instructions that sync aliased results into slots.
func (p *Plan) SyncOps(ctx uint32) []ir.Instruction {
	if !p.sync {
		return nil
	}
	return []ir.Instruction{ir.Ctx(ir.OpArgsSync, ctx)}
}

// WriteBackOps returns the instructions that write slots to the aliases.
func (p *Plan) WriteBackOps(ctx uint32) []ir.Instruction {
	if !p.writeBack {
		return nil
	}
	return []ir.Instruction{ir.Ctx(ir.OpArgsWriteBack, ctx)}
}
