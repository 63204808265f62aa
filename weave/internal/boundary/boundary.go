// Package boundary wraps a method body in boundary advice.
//
// All bound aspects share one execution context. For aspects a0 (outermost)
// .. a[n-1] the method is laid out as
//
//	P        ctx.new; br E0
//	E0       advice a0.entry; br E1
//	...
//	E[n-1]   advice a[n-1].entry; args.apply; br body
//	body     original blocks; every ret becomes [ret.set;] leave S[n-1]
//	S[n-1]   args.sync; advice a[n-1].success; leave S[n-2]
//	H[n-1]   exc.set; args.sync; advice a[n-1].exception; exc.rethrow; leave S[n-2]
//	...
//	S0       advice a0.success; leave D
//	H0       exc.set; args.sync; advice a0.exception; exc.rethrow; leave D
//	X        args.sync; br T0
//	T0       advice a[n-1].exit; leave K0
//	...
//	T[m-1]   advice a0.exit; leave K[m-1]
//	W        args.writeback; endfinally
//	K[m-1]   endfinally
//	...
//	K0       endfinally
//	D        [ret.get;] ret
//
// Each catch region Ck protects E[k+1] through S[k] with handler H[k], so an
// aspect's catch covers its own body and success advice and everything nested
// inside it, but not its own entry advice. A finally region F protects E0
// through H0 and runs X through K0. Inside it every exit advice Ti is the
// try of its own region Ri whose finally holds the remaining exits and the
// write-back, so an exit advice that throws still lets the outer exits and
// the write-back run. Without exit hooks X is args.sync; args.writeback;
// endfinally. An exception handler that clears ctx.Exception resumes at the
// next outer aspect's success block.
package boundary

import (
	"github.com/wippyai/weaver/ir"
	"github.com/wippyai/weaver/weave/internal/marshal"
)

// Layer is one bound aspect: its index in Method.Aspects and its hooks.
type Layer struct {
	Aspect uint32
	Hooks  ir.HookSet
}

// Weave rewrites m in place. ctx is the local holding the execution context
// and hasResult tells whether ret carries a value.
func Weave(m *ir.Method, plan *marshal.Plan, layers []Layer, ctx uint32, hasResult bool) {
	n := uint32(len(layers))
	if n == 0 {
		return
	}
	body := m.Blocks
	off := n + 1

	// Block indices of the trailing blocks.
	next := off + uint32(len(body))
	success := make([]uint32, n)
	handler := make([]uint32, n)
	for k := int(n) - 1; k >= 0; k-- {
		success[k] = next
		next++
		if layers[k].Hooks.Has(ir.HookException) {
			handler[k] = next
			next++
		}
	}
	var exits []int
	for k := int(n) - 1; k >= 0; k-- {
		if layers[k].Hooks.Has(ir.HookExit) {
			exits = append(exits, k)
		}
	}
	nexit := uint32(len(exits))
	// X, T0..T[m-1], W, K[m-1]..K0 when there are exit hooks.
	exit := next
	tryAt := func(i int) uint32 { return exit + 1 + uint32(i) }
	writeBack := exit + 1 + nexit
	endAt := func(i int) uint32 { return writeBack + nexit - uint32(i) }
	done := exit + 1
	if nexit > 0 {
		done = endAt(0) + 1
	}

	// continueAt is where control goes after layer k's success or recovery.
	continueAt := func(k int) uint32 {
		if k == 0 {
			return done
		}
		return success[k-1]
	}
	adv := func(k int, h ir.Hook) ir.Instruction {
		return ir.Instruction{Op: ir.OpAdvice, Imm: ir.AdviceImm{Local: ctx, Aspect: layers[k].Aspect, Hook: h}}
	}

	blocks := make([]ir.Block, 0, done+1)

	blocks = append(blocks, ir.Block{Instrs: []ir.Instruction{
		{Op: ir.OpContextNew, Imm: ir.ContextImm{Local: ctx}},
		ir.Br(1),
	}})

	for k := 0; k < int(n); k++ {
		instrs := []ir.Instruction{adv(k, ir.HookEntry)}
		target := uint32(k) + 2
		if k == int(n)-1 {
			instrs = append(instrs, plan.ApplyOps(ctx)...)
			target = off
		}
		blocks = append(blocks, ir.Block{Instrs: append(instrs, ir.Br(target))})
	}

	for _, b := range body {
		blocks = append(blocks, ir.Block{Instrs: relocate(b.Instrs, off, ctx, success[n-1], hasResult)})
	}

	for k := int(n) - 1; k >= 0; k-- {
		var s []ir.Instruction
		if k == int(n)-1 {
			s = append(s, plan.SyncOps(ctx)...)
		}
		if layers[k].Hooks.Has(ir.HookSuccess) {
			s = append(s, adv(k, ir.HookSuccess))
		}
		blocks = append(blocks, ir.Block{Instrs: append(s, ir.Leave(continueAt(k)))})

		if layers[k].Hooks.Has(ir.HookException) {
			h := []ir.Instruction{ir.Ctx(ir.OpSetException, ctx)}
			h = append(h, plan.SyncOps(ctx)...)
			h = append(h,
				adv(k, ir.HookException),
				ir.Ctx(ir.OpRethrowIfSet, ctx),
				ir.Leave(continueAt(k)),
			)
			blocks = append(blocks, ir.Block{Instrs: h})
		}
	}

	x := append([]ir.Instruction(nil), plan.SyncOps(ctx)...)
	if nexit == 0 {
		x = append(x, plan.WriteBackOps(ctx)...)
		blocks = append(blocks, ir.Block{Instrs: append(x, ir.EndFinally())})
	} else {
		blocks = append(blocks, ir.Block{Instrs: append(x, ir.Br(tryAt(0)))})
		for i, k := range exits {
			blocks = append(blocks, ir.Block{Instrs: []ir.Instruction{adv(k, ir.HookExit), ir.Leave(endAt(i))}})
		}
		w := append([]ir.Instruction(nil), plan.WriteBackOps(ctx)...)
		blocks = append(blocks, ir.Block{Instrs: append(w, ir.EndFinally())})
		for i := int(nexit) - 1; i >= 0; i-- {
			blocks = append(blocks, ir.Block{Instrs: []ir.Instruction{ir.EndFinally()}})
		}
	}

	var d []ir.Instruction
	if hasResult {
		d = append(d, ir.Ctx(ir.OpLoadReturn, ctx))
	}
	blocks = append(blocks, ir.Block{Instrs: append(d, ir.Ret())})

	regions := make([]ir.ExceptionRegion, 0, len(m.Regions)+int(n)+len(exits)+1)
	for _, r := range m.Regions {
		regions = append(regions, shiftRegion(r, off))
	}
	for k := int(n) - 1; k >= 0; k-- {
		if !layers[k].Hooks.Has(ir.HookException) {
			continue
		}
		regions = append(regions, ir.ExceptionRegion{
			Try:     ir.Range(uint32(k)+2, handler[k]),
			Catches: []ir.CatchClause{{Handler: ir.Range(handler[k], handler[k]+1)}},
		})
	}
	for i := len(exits) - 1; i >= 0; i-- {
		rest := ir.Range(writeBack, writeBack+1)
		if i < len(exits)-1 {
			rest = ir.Range(tryAt(i+1), endAt(i+1)+1)
		}
		regions = append(regions, ir.ExceptionRegion{Try: ir.Range(tryAt(i), tryAt(i)+1), Finally: &rest})
	}
	fin := ir.Range(exit, done)
	regions = append(regions, ir.ExceptionRegion{Try: ir.Range(1, exit), Finally: &fin})

	m.Blocks = blocks
	m.Regions = regions
}

// relocate shifts branch targets by off and turns every ret into a leave to
// the innermost success block.
func relocate(instrs []ir.Instruction, off, ctx, success uint32, hasResult bool) []ir.Instruction {
	out := make([]ir.Instruction, 0, len(instrs)+1)
	for _, in := range instrs {
		switch imm := in.Imm.(type) {
		case ir.BranchImm:
			in.Imm = ir.BranchImm{Target: imm.Target + off}
		case ir.CondBranchImm:
			in.Imm = ir.CondBranchImm{Then: imm.Then + off, Else: imm.Else + off}
		}
		if in.Op == ir.OpRet {
			if hasResult {
				out = append(out, ir.Ctx(ir.OpSetReturn, ctx))
			}
			out = append(out, ir.Leave(success))
			continue
		}
		out = append(out, in)
	}
	return out
}

func shiftRegion(r ir.ExceptionRegion, off uint32) ir.ExceptionRegion {
	c := ir.ExceptionRegion{Try: r.Try.Shift(off)}
	for _, cc := range r.Catches {
		c.Catches = append(c.Catches, ir.CatchClause{Type: cc.Type, Handler: cc.Handler.Shift(off)})
	}
	if r.Finally != nil {
		f := r.Finally.Shift(off)
		c.Finally = &f
	}
	return c
}
