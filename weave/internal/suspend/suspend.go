// Package suspend rewrites suspension points so yield and await both pass
// through the same advice.
//
// Every suspend instruction becomes
//
//	yield.set ctx              ; ctx.YieldValue = operand
//	advice OnYield             ; innermost aspect first
//	yield.get ctx              ; advice may have replaced the operand
//	suspend <kind>
//	[dup; yield.set ctx]       ; await only: record the resumed value
//	advice OnResume            ; outermost aspect first
//
// The rewrite is local to each block, so block indices do not move.
package suspend

import "github.com/wippyai/weaver/ir"

// Rewrite expands every suspend in m. yield and resume list the indices
// into m.Aspects whose OnYield and OnResume hooks are bound, outermost
// first. It returns the number of suspension points rewritten.
func Rewrite(m *ir.Method, ctx uint32, yield, resume []uint32) int {
	count := 0
	for bi := range m.Blocks {
		blk := &m.Blocks[bi]
		var out []ir.Instruction
		for i, in := range blk.Instrs {
			if in.Op != ir.OpSuspend {
				if out != nil {
					out = append(out, in)
				}
				continue
			}
			if out == nil {
				out = append(make([]ir.Instruction, 0, len(blk.Instrs)+8), blk.Instrs[:i]...)
			}
			out = append(out, Expand(in, ctx, yield, resume)...)
			count++
		}
		if out != nil {
			blk.Instrs = out
		}
	}
	return count
}

// Expand returns the woven replacement of a single suspend instruction.
func Expand(in ir.Instruction, ctx uint32, yield, resume []uint32) []ir.Instruction {
	out := []ir.Instruction{ir.Ctx(ir.OpSetYield, ctx)}
	for k := len(yield) - 1; k >= 0; k-- {
		out = append(out, advice(ctx, yield[k], ir.HookYield))
	}
	out = append(out, ir.Ctx(ir.OpLoadYield, ctx), in)
	if imm, _ := in.Imm.(ir.SuspendImm); imm.Kind == ir.SuspendAwait {
		out = append(out, ir.Dup(), ir.Ctx(ir.OpSetYield, ctx))
	}
	for _, a := range resume {
		out = append(out, advice(ctx, a, ir.HookResume))
	}
	return out
}

func advice(ctx, aspect uint32, h ir.Hook) ir.Instruction {
	return ir.Instruction{Op: ir.OpAdvice, Imm: ir.AdviceImm{Local: ctx, Aspect: aspect, Hook: h}}
}
