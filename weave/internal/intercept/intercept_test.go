package intercept

import (
	"testing"

	"github.com/wippyai/weaver/classify"
	"github.com/wippyai/weaver/ir"
	"github.com/wippyai/weaver/value"
	"github.com/wippyai/weaver/weave/internal/marshal"
)

func target() *ir.Method {
	b := ir.NewBuilder("Calc.Div").Static().
		Param("a", ir.T(ir.Int), ir.ByValue).
		Param("r", ir.T(ir.Int), ir.Out).
		Returns(ir.T(ir.Int))
	b.Block(ir.Const(value.Int(0)), ir.StoreParam(1), ir.LoadParam(0), ir.Ret())
	return b.Method()
}

func TestWeave_Chain(t *testing.T) {
	m := target()
	plan, err := marshal.Build(m, classify.Plain)
	if err != nil {
		t.Fatal(err)
	}
	wrappers, original := Weave(m, plan, []Layer{{Aspect: "outer"}, {Aspect: "inner"}})
	public, hidden := wrappers[0], append(wrappers[1:], original)

	if public.Name != "Calc.Div" || public.Hidden {
		t.Errorf("public = %s hidden=%v", public.Name, public.Hidden)
	}
	if len(hidden) != 2 || hidden[0].Name != "Calc.Div$intercept1" || hidden[1].Name != "Calc.Div$original" {
		t.Fatalf("hidden = %v", names(hidden))
	}
	for _, h := range hidden {
		if !h.Hidden {
			t.Errorf("%s not marked hidden", h.Name)
		}
	}

	imm := public.Blocks[0].Instrs[1].Imm.(ir.InterceptImm)
	if imm.Target != "Calc.Div$intercept1" || public.Aspects[0] != "outer" {
		t.Errorf("outer layer = %+v aspects=%v", imm, public.Aspects)
	}
	imm = hidden[0].Blocks[0].Instrs[1].Imm.(ir.InterceptImm)
	if imm.Target != "Calc.Div$original" || hidden[0].Aspects[0] != "inner" {
		t.Errorf("inner layer = %+v aspects=%v", imm, hidden[0].Aspects)
	}

	if len(m.Blocks[0].Instrs) != 4 || m.Name != "Calc.Div" {
		t.Error("input method modified")
	}
	for _, w := range append([]*ir.Method{public}, hidden...) {
		if err := ir.Validate(w); err != nil {
			t.Errorf("%s invalid: %v", w.Name, err)
		}
	}
}

func TestWeave_VoidNoWriteBack(t *testing.T) {
	b := ir.NewBuilder("Log").Param("msg", ir.T(ir.String), ir.ByValue)
	b.Block(ir.Ret())
	m := b.Method()
	plan, _ := marshal.Build(m, classify.Plain)

	wrappers, _ := Weave(m, plan, []Layer{{Aspect: "x"}})
	ops := wrappers[0].Blocks[0].Instrs
	if len(ops) != 3 || ops[2].Op != ir.OpRet {
		t.Errorf("wrapper = %v", ops)
	}
}

func names(ms []*ir.Method) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.Name
	}
	return out
}
