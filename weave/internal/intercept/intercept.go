// Package intercept replaces a method body with a call into interception
// advice.
//
// The body moves to a hidden method named <name>$original. The public
// method, and one hidden <name>$intercept<k> per further aspect, become
//
//	ctx.new ctx interception
//	intercept ctx aspect -> target [async]
//	args.writeback ctx
//	[ret.get ctx]
//	ret
//
// Layer k targets layer k+1 and the last layer targets the original body,
// so the first declared aspect is outermost.
package intercept

import (
	"github.com/wippyai/weaver/ir"
	"github.com/wippyai/weaver/weave/internal/marshal"
)

// Layer is one interception aspect.
type Layer struct {
	Aspect string
	Async  bool
}

// Weave builds one wrapper per layer around a hidden copy of m. wrappers[0]
// is the public method. m itself is not modified.
func Weave(m *ir.Method, plan *marshal.Plan, layers []Layer) (wrappers []*ir.Method, original *ir.Method) {
	original = m.Clone()
	original.Name = ir.OriginalName(m.Name)
	original.Hidden = true

	wrappers = make([]*ir.Method, len(layers))
	for k, l := range layers {
		name := m.Name
		if k > 0 {
			name = ir.InterceptName(m.Name, k)
		}
		target := original.Name
		if k < len(layers)-1 {
			target = ir.InterceptName(m.Name, k+1)
		}
		wrappers[k] = wrapper(m, plan, name, l, target)
		wrappers[k].Hidden = k > 0
	}
	return wrappers, original
}

func wrapper(m *ir.Method, plan *marshal.Plan, name string, l Layer, target string) *ir.Method {
	w := &ir.Method{
		Name:    name,
		Params:  append([]ir.Param(nil), m.Params...),
		Return:  m.Return,
		Static:  m.Static,
		Aspects: []string{l.Aspect},
	}
	ctx := w.AddLocal(ir.T(ir.Object))

	instrs := []ir.Instruction{
		{Op: ir.OpContextNew, Imm: ir.ContextImm{Local: ctx, Interception: true}},
		{Op: ir.OpIntercept, Imm: ir.InterceptImm{Local: ctx, Aspect: 0, Target: target, Async: l.Async}},
	}
	instrs = append(instrs, plan.WriteBackOps(ctx)...)
	if !m.Return.IsVoid() {
		instrs = append(instrs, ir.Ctx(ir.OpLoadReturn, ctx))
	}
	instrs = append(instrs, ir.Ret())
	w.Blocks = []ir.Block{{Instrs: instrs}}
	return w
}
