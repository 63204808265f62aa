package aspect

import (
	"context"
	"errors"
	"testing"

	"github.com/wippyai/weaver/ir"
	"github.com/wippyai/weaver/value"
)

func TestArguments_InlineAndHeap(t *testing.T) {
	for _, n := range []int{0, 2, InlineSlots, InlineSlots + 3} {
		a := NewArguments(n)
		if a.Count() != n {
			t.Fatalf("Count = %d, want %d", a.Count(), n)
		}
		if a.Inline() != (n <= InlineSlots) {
			t.Errorf("n=%d: Inline = %v", n, a.Inline())
		}
		for i := 0; i < n; i++ {
			if a.IsSet(i) {
				t.Fatalf("n=%d: slot %d set on creation", n, i)
			}
			a.Set(i, value.Int(int64(i*10)))
		}
		for i, v := range a.All() {
			if !v.Equal(value.Int(int64(i * 10))) {
				t.Errorf("n=%d: slot %d = %v", n, i, v)
			}
		}
		if n > 0 {
			a.Unset(n - 1)
			if _, ok := a.Lookup(n - 1); ok {
				t.Errorf("n=%d: Unset left slot set", n)
			}
		}
	}
}

func TestArguments_Clone(t *testing.T) {
	for _, n := range []int{3, InlineSlots + 1} {
		a := NewArguments(n)
		a.Set(0, value.String("x"))
		c := a.Clone()
		c.Set(0, value.String("y"))
		c.Unset(1)
		if !a.Get(0).Equal(value.String("x")) {
			t.Errorf("n=%d: clone shares storage", n)
		}
	}
}

func TestArguments_OutOfRange(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	NewArguments(1).Get(1)
}

func TestArguments_String(t *testing.T) {
	a := NewArguments(2)
	a.Set(0, value.Int(1))
	if got := a.String(); got != "(1, <unset>)" {
		t.Errorf("String = %q", got)
	}
}

type entryExit struct{}

func (entryExit) OnEntry(context.Context, *MethodExecutionArgs) error { return nil }
func (entryExit) OnExit(context.Context, *MethodExecutionArgs) error  { return nil }

type interceptor struct{}

func (interceptor) OnInvoke(context.Context, *MethodInterceptionArgs) error { return nil }

func TestHooksOf(t *testing.T) {
	if got := HooksOf(entryExit{}); got != ir.Hooks(ir.HookEntry, ir.HookExit) {
		t.Errorf("HooksOf(entryExit) = %v", got)
	}
	if got := HooksOf(interceptor{}); got != ir.Hooks(ir.HookInvoke) {
		t.Errorf("HooksOf(interceptor) = %v", got)
	}
	if HooksOf(struct{}{}) != 0 {
		t.Error("empty struct has hooks")
	}
}

func swapTarget(calls *int) Target {
	return TargetFunc(func(_ context.Context, args *Arguments) (value.Value, error) {
		*calls++
		a, b := args.Get(0), args.Get(1)
		args.Set(1, a)
		return value.Seq(a, b), nil
	})
}

func TestInterception_InvokeUsesSnapshot(t *testing.T) {
	var calls int
	args := ArgumentsOf(value.Int(1), value.Int(2))
	ia := NewInterceptionArgs(&MethodInfo{Name: "f"}, value.None(), args, swapTarget(&calls))

	permuted := ArgumentsOf(value.Int(2), value.Int(1))
	got, err := ia.Invoke(context.Background(), permuted)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(value.Seq(value.Int(2), value.Int(1))) {
		t.Errorf("Invoke = %v", got)
	}
	if !args.Get(1).Equal(value.Int(2)) || !permuted.Get(1).Equal(value.Int(1)) {
		t.Error("Invoke mutated an argument container")
	}
	if !ia.ReturnValue.IsNone() {
		t.Error("Invoke set ReturnValue")
	}
}

func TestInterception_ProceedUsesContextArguments(t *testing.T) {
	var calls int
	args := ArgumentsOf(value.Int(1), value.Int(2))
	ia := NewInterceptionArgs(&MethodInfo{Name: "f"}, value.None(), args, swapTarget(&calls))

	args.Set(0, value.Int(5))
	if err := ia.Proceed(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !ia.ReturnValue.Equal(value.Seq(value.Int(5), value.Int(2))) {
		t.Errorf("ReturnValue = %v", ia.ReturnValue)
	}
	if !args.Get(1).Equal(value.Int(5)) {
		t.Errorf("slot 1 = %v, want write-through from body", args.Get(1))
	}
}

func TestInterception_ProceedError(t *testing.T) {
	boom := errors.New("boom")
	ia := NewInterceptionArgs(&MethodInfo{}, value.None(), NewArguments(0),
		TargetFunc(func(context.Context, *Arguments) (value.Value, error) { return value.None(), boom }))
	ia.ReturnValue = value.Int(9)
	if err := ia.Proceed(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("Proceed err = %v", err)
	}
	if !ia.ReturnValue.Equal(value.Int(9)) {
		t.Error("failed Proceed overwrote ReturnValue")
	}
}

func TestInterception_ProceedAsync(t *testing.T) {
	pending := value.NewFuture()
	ia := NewInterceptionArgs(&MethodInfo{}, value.None(), NewArguments(0),
		TargetFunc(func(context.Context, *Arguments) (value.Value, error) { return value.FutureOf(pending), nil }))

	f := ia.ProceedAsync(context.Background())
	if f.IsDone() {
		t.Fatal("future settled before the body completed")
	}
	pending.Resolve(value.String("done"))
	v, err := f.Wait(context.Background())
	if err != nil || !v.Equal(value.String("done")) {
		t.Fatalf("Wait = %v, %v", v, err)
	}
	if !ia.ReturnValue.Equal(value.String("done")) {
		t.Errorf("ReturnValue = %v", ia.ReturnValue)
	}

	sync := ia.InvokeAsync(context.Background(), NewArguments(0))
	if sync != pending {
		t.Error("InvokeAsync should pass the body's future through")
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	if err := r.Register("log", entryExit{}); err != nil {
		t.Fatal(err)
	}
	if err := r.Register("log", entryExit{}); err == nil {
		t.Error("duplicate registration accepted")
	}
	if err := r.Register("none", struct{}{}); err == nil {
		t.Error("hookless aspect accepted")
	}
	hooks, ok := r.Hooks("log")
	if !ok || !hooks.Has(ir.HookExit) {
		t.Errorf("Hooks = %v, %v", hooks, ok)
	}
	if names := r.Names(); len(names) != 1 || names[0] != "log" {
		t.Errorf("Names = %v", names)
	}
}
