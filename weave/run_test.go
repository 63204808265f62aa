package weave

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wippyai/weaver/aspect"
	"github.com/wippyai/weaver/builtin"
	"github.com/wippyai/weaver/ir"
	"github.com/wippyai/weaver/value"
	"github.com/wippyai/weaver/vm"
)

var errBoom = stderrors.New("boom")

type journal struct {
	mu    sync.Mutex
	lines []string
}

func (j *journal) add(s string) {
	j.mu.Lock()
	j.lines = append(j.lines, s)
	j.mu.Unlock()
}

func (j *journal) String() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return strings.Join(j.lines, " ")
}

type hookFunc func(args *aspect.MethodExecutionArgs) error

// recorder implements every boundary hook, journals each call and optionally
// runs a per-hook function.
type recorder struct {
	name string
	j    *journal
	fns  map[ir.Hook]hookFunc
}

func newRecorder(name string, j *journal) *recorder {
	return &recorder{name: name, j: j, fns: make(map[ir.Hook]hookFunc)}
}

func (p *recorder) on(h ir.Hook, fn hookFunc) *recorder {
	p.fns[h] = fn
	return p
}

func (p *recorder) hook(h ir.Hook, args *aspect.MethodExecutionArgs) error {
	p.j.add(p.name + "." + h.String())
	if fn := p.fns[h]; fn != nil {
		return fn(args)
	}
	return nil
}

func (p *recorder) OnEntry(_ context.Context, a *aspect.MethodExecutionArgs) error {
	return p.hook(ir.HookEntry, a)
}

func (p *recorder) OnSuccess(_ context.Context, a *aspect.MethodExecutionArgs) error {
	return p.hook(ir.HookSuccess, a)
}

func (p *recorder) OnException(_ context.Context, a *aspect.MethodExecutionArgs) error {
	return p.hook(ir.HookException, a)
}

func (p *recorder) OnExit(_ context.Context, a *aspect.MethodExecutionArgs) error {
	return p.hook(ir.HookExit, a)
}

func (p *recorder) OnYield(_ context.Context, a *aspect.MethodExecutionArgs) error {
	return p.hook(ir.HookYield, a)
}

func (p *recorder) OnResume(_ context.Context, a *aspect.MethodExecutionArgs) error {
	return p.hook(ir.HookResume, a)
}

type interceptFunc func(ctx context.Context, args *aspect.MethodInterceptionArgs) error

func (f interceptFunc) OnInvoke(ctx context.Context, args *aspect.MethodInterceptionArgs) error {
	return f(ctx, args)
}

func bindAll(reg *aspect.Registry, names ...string) []Binding {
	out := make([]Binding, len(names))
	for i, n := range names {
		hooks, _ := reg.Hooks(n)
		out[i] = Binding{Aspect: n, Hooks: hooks}
	}
	return out
}

func failHost(context.Context, []value.Value) (value.Value, error) {
	return value.None(), errBoom
}

// weaveRun weaves methods with bindings and loads the result into a machine.
func weaveRun(t *testing.T, reg *aspect.Registry, bindings map[string][]Binding, methods []*ir.Method, opts ...vm.Option) *vm.Machine {
	t.Helper()
	mod := &ir.Module{Methods: methods}
	report, err := New(Config{Strict: true}).WeaveModule(mod, bindings)
	if err != nil {
		t.Fatalf("WeaveModule: %v", err)
	}
	if len(report.Woven) != len(bindings) {
		t.Fatalf("woven %v, want %d methods", report.Woven, len(bindings))
	}
	opts = append([]vm.Option{vm.WithAspects(reg), vm.WithHost("fail", failHost)}, opts...)
	machine, err := vm.New(mod, opts...)
	if err != nil {
		t.Fatalf("vm.New: %v", err)
	}
	return machine
}

func boomVoid() *ir.Method {
	b := ir.NewBuilder("Calc.Boom").Static()
	b.Block(ir.Call("fail", 0), ir.Pop(), ir.Ret())
	return b.Method()
}

func boomInt() *ir.Method {
	b := ir.NewBuilder("Calc.BoomInt").Static().Returns(ir.T(ir.Int))
	b.Block(ir.Call("fail", 0), ir.Ret())
	return b.Method()
}

func constMethod(name string, v int64) *ir.Method {
	b := ir.NewBuilder(name).Static().Returns(ir.T(ir.Int))
	b.Block(ir.Const(value.Int(v)), ir.Ret())
	return b.Method()
}

func TestWoven_ThrowingVoidMethod(t *testing.T) {
	j := &journal{}
	reg := aspect.NewRegistry().MustRegister("A", newRecorder("A", j))
	machine := weaveRun(t, reg, map[string][]Binding{"Calc.Boom": bindAll(reg, "A")}, []*ir.Method{boomVoid()})

	_, err := machine.Call(context.Background(), "Calc.Boom")
	if err != errBoom {
		t.Fatalf("err = %v, want the original exception unchanged", err)
	}
	if got, want := j.String(), "A.entry A.exception A.exit"; got != want {
		t.Errorf("trace = %q, want %q", got, want)
	}
}

func TestWoven_EntryChangesArguments(t *testing.T) {
	b := ir.NewBuilder("Text.Pair").Static().
		Param("n", ir.T(ir.Int), ir.ByValue).
		Param("s", ir.T(ir.String), ir.ByValue).
		Returns(ir.T(ir.Sequence))
	b.Block(ir.LoadParam(0), ir.LoadParam(1), ir.Call("text.upper", 1), ir.MakeSeq(2), ir.Ret())

	j := &journal{}
	reg := aspect.NewRegistry().MustRegister("A", newRecorder("A", j).on(ir.HookEntry, func(a *aspect.MethodExecutionArgs) error {
		n, _ := a.Arguments.Get(0).AsInt()
		a.Arguments.Set(0, value.Int(n+1))
		return nil
	}))
	machine := weaveRun(t, reg, map[string][]Binding{"Text.Pair": bindAll(reg, "A")}, []*ir.Method{b.Method()})

	got, err := machine.Call(context.Background(), "Text.Pair", value.Int(1), value.String("x"))
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	want := value.Seq(value.Int(2), value.String("X"))
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestWoven_NestingOrder(t *testing.T) {
	j := &journal{}
	reg := aspect.NewRegistry().
		MustRegister("A", newRecorder("A", j)).
		MustRegister("B", newRecorder("B", j))
	machine := weaveRun(t, reg, map[string][]Binding{"Calc.One": bindAll(reg, "A", "B")}, []*ir.Method{constMethod("Calc.One", 1)})

	got, err := machine.Call(context.Background(), "Calc.One")
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if n, _ := got.AsInt(); n != 1 {
		t.Errorf("result = %v", got)
	}
	if got, want := j.String(), "A.entry B.entry B.success A.success B.exit A.exit"; got != want {
		t.Errorf("trace = %q, want %q", got, want)
	}
}

func TestWoven_ExitOncePerEnteredAspect(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(a, b *recorder)
		want    string
		wantErr bool
	}{
		{
			name: "inner entry throws",
			setup: func(_, b *recorder) {
				b.on(ir.HookEntry, func(*aspect.MethodExecutionArgs) error { return errBoom })
			},
			want:    "A.entry B.entry A.exception B.exit A.exit",
			wantErr: true,
		},
		{
			name: "outer entry throws",
			setup: func(a, _ *recorder) {
				a.on(ir.HookEntry, func(*aspect.MethodExecutionArgs) error { return errBoom })
			},
			want:    "A.entry A.exit",
			wantErr: true,
		},
		{
			name: "inner success throws",
			setup: func(_, b *recorder) {
				b.on(ir.HookSuccess, func(*aspect.MethodExecutionArgs) error { return errBoom })
			},
			want:    "A.entry B.entry B.success B.exception A.exception B.exit A.exit",
			wantErr: true,
		},
		{
			name: "inner exit throws",
			setup: func(_, b *recorder) {
				b.on(ir.HookExit, func(*aspect.MethodExecutionArgs) error { return errBoom })
			},
			want:    "A.entry B.entry B.success A.success B.exit A.exit",
			wantErr: true,
		},
		{
			name: "both exits throw",
			setup: func(a, b *recorder) {
				a.on(ir.HookExit, func(*aspect.MethodExecutionArgs) error { return errBoom })
				b.on(ir.HookExit, func(*aspect.MethodExecutionArgs) error { return errBoom })
			},
			want:    "A.entry B.entry B.success A.success B.exit A.exit",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := &journal{}
			a, b := newRecorder("A", j), newRecorder("B", j)
			tt.setup(a, b)
			reg := aspect.NewRegistry().MustRegister("A", a).MustRegister("B", b)
			machine := weaveRun(t, reg, map[string][]Binding{"Calc.One": bindAll(reg, "A", "B")}, []*ir.Method{constMethod("Calc.One", 1)})

			_, err := machine.Call(context.Background(), "Calc.One")
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got := j.String(); got != tt.want {
				t.Errorf("trace = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWoven_Recovery(t *testing.T) {
	recoverFn := func(a *aspect.MethodExecutionArgs) error {
		a.Exception = nil
		a.ReturnValue = value.Int(99)
		return nil
	}

	t.Run("single aspect", func(t *testing.T) {
		j := &journal{}
		reg := aspect.NewRegistry().MustRegister("A", newRecorder("A", j).on(ir.HookException, recoverFn))
		machine := weaveRun(t, reg, map[string][]Binding{"Calc.BoomInt": bindAll(reg, "A")}, []*ir.Method{boomInt()})

		got, err := machine.Call(context.Background(), "Calc.BoomInt")
		if err != nil {
			t.Fatalf("Call: %v", err)
		}
		if n, _ := got.AsInt(); n != 99 {
			t.Errorf("result = %v, want 99", got)
		}
		if got, want := j.String(), "A.entry A.exception A.exit"; got != want {
			t.Errorf("trace = %q, want %q", got, want)
		}
	})

	t.Run("inner aspect recovers", func(t *testing.T) {
		j := &journal{}
		reg := aspect.NewRegistry().
			MustRegister("A", newRecorder("A", j)).
			MustRegister("B", newRecorder("B", j).on(ir.HookException, recoverFn))
		machine := weaveRun(t, reg, map[string][]Binding{"Calc.BoomInt": bindAll(reg, "A", "B")}, []*ir.Method{boomInt()})

		got, err := machine.Call(context.Background(), "Calc.BoomInt")
		if err != nil {
			t.Fatalf("Call: %v", err)
		}
		if n, _ := got.AsInt(); n != 99 {
			t.Errorf("result = %v, want 99", got)
		}
		if got, want := j.String(), "A.entry B.entry B.exception A.success B.exit A.exit"; got != want {
			t.Errorf("trace = %q, want %q", got, want)
		}
	})
}

func TestWoven_ByRefRoundTrip(t *testing.T) {
	b := ir.NewBuilder("Ref.Inc").Static().Param("x", ir.T(ir.Int), ir.ByRef)
	b.Block(ir.LoadParam(0), ir.Const(value.Int(1)), ir.Simple(ir.OpAdd), ir.StoreParam(0), ir.Ret())

	var atExit string
	j := &journal{}
	reg := aspect.NewRegistry().MustRegister("A", newRecorder("A", j).
		on(ir.HookEntry, func(a *aspect.MethodExecutionArgs) error {
			a.Arguments.Set(0, value.Int(10))
			return nil
		}).
		on(ir.HookExit, func(a *aspect.MethodExecutionArgs) error {
			atExit = a.Arguments.String()
			return nil
		}))
	machine := weaveRun(t, reg, map[string][]Binding{"Ref.Inc": bindAll(reg, "A")}, []*ir.Method{b.Method()})

	cell := value.NewCell(value.Int(1))
	if _, err := machine.Invoke(context.Background(), "Ref.Inc", value.None(), []*value.Cell{cell}); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if n, _ := cell.Load().AsInt(); n != 11 {
		t.Errorf("caller variable = %v, want 11", cell.Load())
	}
	if atExit != "(11)" {
		t.Errorf("arguments at exit = %s, want (11)", atExit)
	}
}

func TestWoven_ExitThrowsStillWritesBack(t *testing.T) {
	b := ir.NewBuilder("Ref.Inc").Static().Param("x", ir.T(ir.Int), ir.ByRef)
	b.Block(ir.LoadParam(0), ir.Const(value.Int(1)), ir.Simple(ir.OpAdd), ir.StoreParam(0), ir.Ret())

	var atOuterExit string
	j := &journal{}
	reg := aspect.NewRegistry().
		MustRegister("A", newRecorder("A", j).on(ir.HookExit, func(a *aspect.MethodExecutionArgs) error {
			atOuterExit = a.Arguments.String()
			return nil
		})).
		MustRegister("B", newRecorder("B", j).on(ir.HookExit, func(*aspect.MethodExecutionArgs) error {
			return errBoom
		}))
	machine := weaveRun(t, reg, map[string][]Binding{"Ref.Inc": bindAll(reg, "A", "B")}, []*ir.Method{b.Method()})

	cell := value.NewCell(value.Int(1))
	_, err := machine.Invoke(context.Background(), "Ref.Inc", value.None(), []*value.Cell{cell})
	if err != errBoom {
		t.Fatalf("err = %v, want the exit hook's error", err)
	}
	if got, want := j.String(), "A.entry B.entry B.success A.success B.exit A.exit"; got != want {
		t.Errorf("trace = %q, want %q", got, want)
	}
	if atOuterExit != "(2)" {
		t.Errorf("arguments at outer exit = %s, want (2)", atOuterExit)
	}
	if n, _ := cell.Load().AsInt(); n != 2 {
		t.Errorf("caller variable = %v, want 2", cell.Load())
	}
}

func splitMethod() *ir.Method {
	b := ir.NewBuilder("Ref.Split").Static().Param("q", ir.T(ir.Int), ir.Out)
	b.Block(ir.Const(value.Int(3)), ir.StoreParam(0), ir.Ret())
	return b.Method()
}

func TestWoven_OutParameter(t *testing.T) {
	var before, after string
	j := &journal{}
	reg := aspect.NewRegistry().MustRegister("A", newRecorder("A", j).
		on(ir.HookEntry, func(a *aspect.MethodExecutionArgs) error {
			before = fmt.Sprint(a.Arguments.IsSet(0))
			return nil
		}).
		on(ir.HookSuccess, func(a *aspect.MethodExecutionArgs) error {
			after = a.Arguments.String()
			a.Arguments.Set(0, value.Int(5))
			return nil
		}))
	machine := weaveRun(t, reg, map[string][]Binding{"Ref.Split": bindAll(reg, "A")}, []*ir.Method{splitMethod()})

	out := value.Unassigned()
	if _, err := machine.Invoke(context.Background(), "Ref.Split", value.None(), []*value.Cell{out}); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if before != "false" {
		t.Errorf("out slot set before the body")
	}
	if after != "(3)" {
		t.Errorf("arguments after the body = %s, want (3)", after)
	}
	if n, _ := out.Load().AsInt(); n != 5 {
		t.Errorf("caller variable = %v, want the advice's 5", out.Load())
	}
}

func TestWoven_HeapArguments(t *testing.T) {
	const n = aspect.InlineSlots + 2
	b := ir.NewBuilder("Calc.Sum").Static().Returns(ir.T(ir.Int))
	instrs := []ir.Instruction{ir.LoadParam(0)}
	for i := 0; i < n; i++ {
		b.Param(fmt.Sprintf("p%d", i), ir.T(ir.Int), ir.ByValue)
		if i > 0 {
			instrs = append(instrs, ir.LoadParam(uint32(i)), ir.Simple(ir.OpAdd))
		}
	}
	b.Block(append(instrs, ir.Ret())...)

	var inline bool
	j := &journal{}
	reg := aspect.NewRegistry().MustRegister("A", newRecorder("A", j).on(ir.HookEntry, func(a *aspect.MethodExecutionArgs) error {
		inline = a.Arguments.Inline()
		a.Arguments.Set(n-1, value.Int(100))
		return nil
	}))
	machine := weaveRun(t, reg, map[string][]Binding{"Calc.Sum": bindAll(reg, "A")}, []*ir.Method{b.Method()})

	args := make([]value.Value, n)
	for i := range args {
		args[i] = value.Int(1)
	}
	got, err := machine.Call(context.Background(), "Calc.Sum", args...)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if inline {
		t.Error("arguments stayed inline")
	}
	if sum, _ := got.AsInt(); sum != n-1+100 {
		t.Errorf("sum = %v, want %d", got, n-1+100)
	}
}

func countGenerator() *ir.Method {
	b := ir.NewBuilder("Gen.Count").Static().Param("n", ir.T(ir.Int), ir.ByValue).Returns(ir.SequenceOf(ir.T(ir.Int)))
	i := b.Local(ir.T(ir.Int))
	b.Block(ir.Const(value.Int(0)), ir.StoreLocal(i), ir.Br(1))
	b.Block(ir.LoadLocal(i), ir.LoadParam(0), ir.Simple(ir.OpLt), ir.BrIf(2, 3))
	b.Block(
		ir.LoadLocal(i), ir.Yield(),
		ir.LoadLocal(i), ir.Const(value.Int(1)), ir.Simple(ir.OpAdd), ir.StoreLocal(i),
		ir.Br(1),
	)
	b.Block(ir.Ret())
	return b.Method()
}

func TestWoven_Generator(t *testing.T) {
	tests := []struct {
		n     int64
		trace string
	}{
		{0, "A.entry A.success A.exit"},
		{2, "A.entry A.yield A.resume A.yield A.resume A.success A.exit"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.n), func(t *testing.T) {
			j := &journal{}
			reg := aspect.NewRegistry().MustRegister("A", newRecorder("A", j))
			machine := weaveRun(t, reg, map[string][]Binding{"Gen.Count": bindAll(reg, "A")}, []*ir.Method{countGenerator()})
			ctx := context.Background()

			v, err := machine.Call(ctx, "Gen.Count", value.Int(tt.n))
			if err != nil {
				t.Fatalf("Call: %v", err)
			}
			if got := j.String(); got != "" {
				t.Fatalf("advice ran before the first Next: %q", got)
			}
			it, _ := v.AsIterator()
			items, err := value.Collect(ctx, it)
			if err != nil {
				t.Fatalf("Collect: %v", err)
			}
			if int64(len(items)) != tt.n {
				t.Errorf("got %d items, want %d", len(items), tt.n)
			}
			if got := j.String(); got != tt.trace {
				t.Errorf("trace = %q, want %q", got, tt.trace)
			}
		})
	}
}

func TestWoven_GeneratorThrowsAfterYield(t *testing.T) {
	b := ir.NewBuilder("Gen.Fail").Static().Returns(ir.SequenceOf(ir.T(ir.Int)))
	b.Block(ir.Const(value.Int(1)), ir.Yield(), ir.Call("fail", 0), ir.Pop(), ir.Ret())

	j := &journal{}
	reg := aspect.NewRegistry().MustRegister("A", newRecorder("A", j))
	machine := weaveRun(t, reg, map[string][]Binding{"Gen.Fail": bindAll(reg, "A")}, []*ir.Method{b.Method()})
	ctx := context.Background()

	v, err := machine.Call(ctx, "Gen.Fail")
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	it, _ := v.AsIterator()
	if _, err := value.Collect(ctx, it); !stderrors.Is(err, errBoom) {
		t.Fatalf("Collect err = %v, want boom", err)
	}
	if got, want := j.String(), "A.entry A.yield A.resume A.exception A.exit"; got != want {
		t.Errorf("trace = %q, want %q", got, want)
	}
}

func TestWoven_GeneratorAbandoned(t *testing.T) {
	j := &journal{}
	reg := aspect.NewRegistry().MustRegister("A", newRecorder("A", j))
	machine := weaveRun(t, reg, map[string][]Binding{"Gen.Count": bindAll(reg, "A")}, []*ir.Method{countGenerator()})
	ctx := context.Background()

	v, _ := machine.Call(ctx, "Gen.Count", value.Int(5))
	it, _ := v.AsIterator()
	if _, ok, err := it.Next(ctx); !ok || err != nil {
		t.Fatalf("Next: ok=%v err=%v", ok, err)
	}
	if err := it.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got, want := j.String(), "A.entry A.yield A.exit"; got != want {
		t.Errorf("trace = %q, want %q", got, want)
	}
}

func gatedContinuation() *ir.Method {
	b := ir.NewBuilder("Async.Later").Static().Param("x", ir.T(ir.Int), ir.ByValue).Returns(ir.FutureOf(ir.T(ir.Int)))
	b.Block(ir.Call("gate", 0), ir.Await(), ir.LoadParam(0), ir.Simple(ir.OpAdd), ir.Ret())
	return b.Method()
}

func gateHost(gate *value.Future) vm.Option {
	return vm.WithHost("gate", func(context.Context, []value.Value) (value.Value, error) {
		return value.FutureOf(gate), nil
	})
}

func TestWoven_Continuation(t *testing.T) {
	var resumed value.Value
	j := &journal{}
	reg := aspect.NewRegistry().MustRegister("A", newRecorder("A", j).on(ir.HookResume, func(a *aspect.MethodExecutionArgs) error {
		resumed = a.YieldValue
		return nil
	}))
	gate := value.NewFuture()
	machine := weaveRun(t, reg, map[string][]Binding{"Async.Later": bindAll(reg, "A")},
		[]*ir.Method{gatedContinuation()}, gateHost(gate))

	v, err := machine.Call(context.Background(), "Async.Later", value.Int(41))
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got, want := j.String(), "A.entry A.yield"; got != want {
		t.Errorf("trace before completion = %q, want %q", got, want)
	}

	go gate.Resolve(value.Int(1))

	fut, _ := v.AsFuture()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	got, err := fut.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if n, _ := got.AsInt(); n != 42 {
		t.Errorf("result = %v, want 42", got)
	}
	if got, want := j.String(), "A.entry A.yield A.resume A.success A.exit"; got != want {
		t.Errorf("trace = %q, want %q", got, want)
	}
	if n, _ := resumed.AsInt(); n != 1 {
		t.Errorf("YieldValue at resume = %v, want the awaited 1", resumed)
	}
}

func TestWoven_ContinuationCanceled(t *testing.T) {
	j := &journal{}
	reg := aspect.NewRegistry().MustRegister("A", newRecorder("A", j))
	machine := weaveRun(t, reg, map[string][]Binding{"Async.Later": bindAll(reg, "A")},
		[]*ir.Method{gatedContinuation()}, gateHost(value.NewFuture()))

	ctx, cancel := context.WithCancel(context.Background())
	v, err := machine.Call(ctx, "Async.Later", value.Int(1))
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	cancel()

	fut, _ := v.AsFuture()
	wait, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if _, err := fut.Wait(wait); !stderrors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if got, want := j.String(), "A.entry A.yield A.exception A.exit"; got != want {
		t.Errorf("trace = %q, want %q", got, want)
	}
}

func subMethod() *ir.Method {
	b := ir.NewBuilder("Calc.Sub").Static().
		Param("a", ir.T(ir.Int), ir.ByValue).
		Param("b", ir.T(ir.Int), ir.ByValue).
		Returns(ir.T(ir.Int))
	b.Block(ir.LoadParam(0), ir.LoadParam(1), ir.Simple(ir.OpSub), ir.Ret())
	return b.Method()
}

func TestIntercepted_Proceed(t *testing.T) {
	reg, _ := builtin.Registry(nil)
	machine := weaveRun(t, reg, map[string][]Binding{"Calc.Sub": bindAll(reg, "proceed")}, []*ir.Method{subMethod()})

	got, err := machine.Call(context.Background(), "Calc.Sub", value.Int(10), value.Int(3))
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if n, _ := got.AsInt(); n != 7 {
		t.Errorf("result = %v, want the unwoven 7", got)
	}
}

func TestIntercepted_InvokeSnapshot(t *testing.T) {
	var argsAfter string
	reg := aspect.NewRegistry().MustRegister("swap", interceptFunc(func(ctx context.Context, a *aspect.MethodInterceptionArgs) error {
		snap := aspect.ArgumentsOf(a.Arguments.Get(1), a.Arguments.Get(0))
		v, err := a.Invoke(ctx, snap)
		if err != nil {
			return err
		}
		argsAfter = a.Arguments.String()
		a.ReturnValue = v
		return nil
	}))
	machine := weaveRun(t, reg, map[string][]Binding{"Calc.Sub": bindAll(reg, "swap")}, []*ir.Method{subMethod()})

	got, err := machine.Call(context.Background(), "Calc.Sub", value.Int(10), value.Int(3))
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if n, _ := got.AsInt(); n != -7 {
		t.Errorf("result = %v, want -7", got)
	}
	if argsAfter != "(10, 3)" {
		t.Errorf("Arguments after Invoke = %s, want (10, 3)", argsAfter)
	}
}

func TestIntercepted_NeverProceeds(t *testing.T) {
	reg := aspect.NewRegistry().MustRegister("stub", interceptFunc(func(_ context.Context, a *aspect.MethodInterceptionArgs) error {
		a.ReturnValue = value.Int(7)
		return nil
	}))
	machine := weaveRun(t, reg, map[string][]Binding{
		"Calc.BoomInt": bindAll(reg, "stub"),
		"Ref.Split":    bindAll(reg, "stub"),
	}, []*ir.Method{boomInt(), splitMethod()})
	ctx := context.Background()

	got, err := machine.Call(ctx, "Calc.BoomInt")
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if n, _ := got.AsInt(); n != 7 {
		t.Errorf("result = %v, want 7", got)
	}

	_, err = machine.Invoke(ctx, "Ref.Split", value.None(), []*value.Cell{value.Unassigned()})
	if value.ExceptionType(err) != value.TypeUnassignedOut {
		t.Errorf("err = %v, want UnassignedOut", err)
	}
}

func TestIntercepted_OutThroughProceed(t *testing.T) {
	reg, _ := builtin.Registry(nil)
	machine := weaveRun(t, reg, map[string][]Binding{"Ref.Split": bindAll(reg, "proceed")}, []*ir.Method{splitMethod()})

	out := value.Unassigned()
	if _, err := machine.Invoke(context.Background(), "Ref.Split", value.None(), []*value.Cell{out}); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if n, _ := out.Load().AsInt(); n != 3 {
		t.Errorf("out = %v, want 3", out.Load())
	}
}

func TestIntercepted_WithBoundary(t *testing.T) {
	reg, tr := builtin.Registry(nil)
	machine := weaveRun(t, reg, map[string][]Binding{"Calc.Sub": bindAll(reg, "trace", "proceed")}, []*ir.Method{subMethod()})

	got, err := machine.Call(context.Background(), "Calc.Sub", value.Int(5), value.Int(2))
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if n, _ := got.AsInt(); n != 3 {
		t.Errorf("result = %v, want 3", got)
	}
	if got, want := strings.Join(tr.Hooks(), " "), "trace.entry trace.success trace.exit"; got != want {
		t.Errorf("trace = %q, want %q", got, want)
	}
	if ev := tr.Events()[0]; ev.Method != "Calc.Sub" {
		t.Errorf("advice saw method %q, want the public name", ev.Method)
	}
}

func TestIntercepted_BindingOrder(t *testing.T) {
	stub := interceptFunc(func(_ context.Context, a *aspect.MethodInterceptionArgs) error {
		a.ReturnValue = value.Int(7)
		return nil
	})
	pass := interceptFunc(func(ctx context.Context, a *aspect.MethodInterceptionArgs) error {
		return a.Proceed(ctx)
	})
	tests := []struct {
		name     string
		bindings []string
		want     int64
		trace    string
	}{
		{"boundary around a stub", []string{"A", "stub"}, 7, "A.entry A.success A.exit"},
		{"stub around a boundary", []string{"stub", "A"}, 7, ""},
		{"boundary on both sides", []string{"A", "pass", "B"}, 3, "A.entry B.entry B.success B.exit A.success A.exit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := &journal{}
			reg := aspect.NewRegistry().
				MustRegister("A", newRecorder("A", j)).
				MustRegister("B", newRecorder("B", j)).
				MustRegister("stub", stub).
				MustRegister("pass", pass)
			machine := weaveRun(t, reg, map[string][]Binding{"Calc.Sub": bindAll(reg, tt.bindings...)}, []*ir.Method{subMethod()})

			got, err := machine.Call(context.Background(), "Calc.Sub", value.Int(5), value.Int(2))
			if err != nil {
				t.Fatalf("Call: %v", err)
			}
			if n, _ := got.AsInt(); n != tt.want {
				t.Errorf("result = %v, want %d", got, tt.want)
			}
			if got := j.String(); got != tt.trace {
				t.Errorf("trace = %q, want %q", got, tt.trace)
			}
		})
	}
}

func TestIntercepted_GeneratorStaysLazy(t *testing.T) {
	b := ir.NewBuilder("Gen.One").Static().Returns(ir.SequenceOf(ir.T(ir.Int)))
	b.Block(ir.Call("tick", 0), ir.Pop(), ir.Const(value.Int(1)), ir.Yield(), ir.Ret())

	var ticks int
	tick := vm.WithHost("tick", func(context.Context, []value.Value) (value.Value, error) {
		ticks++
		return value.None(), nil
	})
	reg, _ := builtin.Registry(nil)
	machine := weaveRun(t, reg, map[string][]Binding{"Gen.One": bindAll(reg, "proceed")}, []*ir.Method{b.Method()}, tick)
	ctx := context.Background()

	v, err := machine.Call(ctx, "Gen.One")
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	it, ok := v.AsIterator()
	if !ok {
		t.Fatalf("result = %v, want an iterator", v)
	}
	if ticks != 0 {
		t.Fatal("generator body ran before the first Next")
	}
	items, err := value.Collect(ctx, it)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(items) != 1 || ticks != 1 {
		t.Errorf("items = %v ticks = %d, want one item and one tick", items, ticks)
	}
}

func TestIntercepted_Continuation(t *testing.T) {
	reg, _ := builtin.Registry(nil)
	gate := value.NewFuture()
	machine := weaveRun(t, reg, map[string][]Binding{"Async.Later": bindAll(reg, "proceed")},
		[]*ir.Method{gatedContinuation()}, gateHost(gate))

	v, err := machine.Call(context.Background(), "Async.Later", value.Int(41))
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	fut, ok := v.AsFuture()
	if !ok {
		t.Fatalf("result = %v, want a future", v)
	}
	gate.Resolve(value.Int(1))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	got, err := fut.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if n, _ := got.AsInt(); n != 42 {
		t.Errorf("result = %v, want 42", got)
	}
}
