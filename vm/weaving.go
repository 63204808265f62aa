package vm

import (
	"context"
	"fmt"

	"github.com/wippyai/weaver/aspect"
	"github.com/wippyai/weaver/ir"
	"github.com/wippyai/weaver/value"
)

// execState is the execution context of one woven activation. It lives in
// the ctx local as an Object.
type execState struct {
	exec    *aspect.MethodExecutionArgs
	icpt    *aspect.MethodInterceptionArgs
	args    *aspect.Arguments
	aspects []any
	entered []bool
	// started is set once the innermost entry advice completed and the
	// body is about to run.
	started bool
	synced  bool
}

func (vm *Machine) state(f *frame, local uint32) (*execState, error) {
	o, _ := f.locals[local].Load().AsObject()
	st, ok := o.(*execState)
	if !ok {
		return nil, value.NewException(value.TypeInvalidOp, "execution context used before ctx.new")
	}
	return st, nil
}

func (vm *Machine) weaving(ctx context.Context, f *frame, in ir.Instruction) error {
	if in.Op == ir.OpContextNew {
		return vm.contextNew(f, in.Imm.(ir.ContextImm))
	}
	var local uint32
	switch imm := in.Imm.(type) {
	case ir.LocalImm:
		local = imm.Index
	case ir.AdviceImm:
		local = imm.Local
	case ir.InterceptImm:
		local = imm.Local
	}
	st, err := vm.state(f, local)
	if err != nil {
		return err
	}

	switch in.Op {
	case ir.OpArgsApply:
		vm.argsApply(f, st)
	case ir.OpArgsSync:
		vm.argsSync(f, st)
	case ir.OpArgsWriteBack:
		return vm.argsWriteBack(f, st)
	case ir.OpAdvice:
		return vm.advice(ctx, st, in.Imm.(ir.AdviceImm))
	case ir.OpSetReturn:
		v, err := f.pop()
		if err != nil {
			return err
		}
		st.exec.ReturnValue = v
	case ir.OpLoadReturn:
		if st.icpt != nil {
			f.push(st.icpt.ReturnValue)
		} else {
			f.push(st.exec.ReturnValue)
		}
	case ir.OpSetException:
		v, err := f.pop()
		if err != nil {
			return err
		}
		st.exec.Exception = toError(v)
	case ir.OpRethrowIfSet:
		if st.exec.Exception != nil {
			return st.exec.Exception
		}
	case ir.OpSetYield:
		v, err := f.pop()
		if err != nil {
			return err
		}
		st.exec.YieldValue = v
	case ir.OpLoadYield:
		f.push(st.exec.YieldValue)
	case ir.OpIntercept:
		return vm.intercept(ctx, f, st, in.Imm.(ir.InterceptImm))
	default:
		return value.NewException(value.TypeInvalidOp, fmt.Sprintf("unknown opcode %s", in.Op))
	}
	return nil
}

// contextNew captures the parameters into a fresh Arguments container and
// resolves the method's aspects.
func (vm *Machine) contextNew(f *frame, imm ir.ContextImm) error {
	m := f.c.m
	st := &execState{
		args:    aspect.NewArguments(len(m.Params)),
		aspects: make([]any, len(m.Aspects)),
		entered: make([]bool, len(m.Aspects)),
	}
	for i, name := range m.Aspects {
		a, ok := vm.aspects.Lookup(name)
		if !ok {
			return value.NewException(value.TypeMissingAspect, name)
		}
		st.aspects[i] = a
	}
	for i, p := range m.Params {
		if p.Mode == ir.Out {
			continue
		}
		st.args.Set(i, f.params[i].Load())
	}
	if imm.Interception {
		st.icpt = aspect.NewInterceptionArgs(f.c.info, f.this, st.args, nil)
	} else {
		st.exec = aspect.NewExecutionArgs(f.c.info, f.this, st.args)
	}
	f.locals[imm.Local].Store(value.Object(st))
	return nil
}

// argsApply copies the slots entry advice may have changed into the
// parameters the body reads.
func (vm *Machine) argsApply(f *frame, st *execState) {
	for i, p := range f.c.m.Params {
		v, ok := st.args.Lookup(i)
		if !ok {
			continue
		}
		switch p.Mode {
		case ir.ByValue, ir.ByRef:
			f.params[i].Store(v)
		case ir.In:
			// The caller's variable is read-only; rebind to a private cell.
			f.params[i] = value.NewCell(v)
		}
	}
	st.started = true
}

// argsSync copies aliased parameter results into their slots, once per
// activation and only after the body started.
func (vm *Machine) argsSync(f *frame, st *execState) {
	if !st.started || st.synced {
		return
	}
	st.synced = true
	for i, p := range f.c.m.Params {
		if p.Mode != ir.ByRef && p.Mode != ir.Out {
			continue
		}
		if f.params[i].Assigned() {
			st.args.Set(i, f.params[i].Load())
		} else {
			st.args.Unset(i)
		}
	}
}

// argsWriteBack stores the slots of aliased parameters into the caller's
// variables. An out slot left unset is an error unless an exception is
// already propagating.
func (vm *Machine) argsWriteBack(f *frame, st *execState) error {
	for i, p := range f.c.m.Params {
		if p.Mode != ir.ByRef && p.Mode != ir.Out {
			continue
		}
		v, ok := st.args.Lookup(i)
		if ok {
			f.params[i].Store(v)
			continue
		}
		if p.Mode == ir.Out && !f.unwinding() {
			return value.NewException(value.TypeUnassignedOut, fmt.Sprintf("%s: out parameter %s", f.c.info.Name, p.Name))
		}
	}
	return nil
}

func (vm *Machine) advice(ctx context.Context, st *execState, imm ir.AdviceImm) error {
	k := int(imm.Aspect)
	if k >= len(st.aspects) || st.exec == nil {
		return value.NewException(value.TypeInvalidOp, fmt.Sprintf("advice for unknown aspect %d", k))
	}
	switch imm.Hook {
	case ir.HookEntry:
		st.entered[k] = true
		if err := aspect.Dispatch(ctx, st.aspects[k], imm.Hook, st.exec); err != nil {
			return err
		}
		if k == len(st.aspects)-1 {
			st.started = true
		}
		return nil
	case ir.HookExit:
		if !st.entered[k] {
			return nil
		}
	}
	return aspect.Dispatch(ctx, st.aspects[k], imm.Hook, st.exec)
}

// intercept hands the call to the interception aspect. The target runs
// with fresh cells built from the slots so an aspect can invoke it any
// number of times.
func (vm *Machine) intercept(ctx context.Context, f *frame, st *execState, imm ir.InterceptImm) error {
	c, ok := vm.methods[imm.Target]
	if !ok {
		return value.NewException(value.TypeNotFound, imm.Target)
	}
	if st.icpt == nil || len(st.aspects) == 0 {
		return value.NewException(value.TypeInvalidOp, "intercept without an interception context")
	}
	depth := f.depth + 1
	this := f.this
	params := c.m.Params

	target := aspect.TargetFunc(func(ctx context.Context, args *aspect.Arguments) (value.Value, error) {
		cells := make([]*value.Cell, len(params))
		for i, p := range params {
			v, ok := args.Lookup(i)
			if p.Mode == ir.Out || !ok {
				cells[i] = value.Unassigned()
				continue
			}
			cells[i] = value.NewCell(v)
		}
		r, err := vm.invoke(ctx, c, this, cells, depth)
		for i, p := range params {
			if (p.Mode == ir.ByRef || p.Mode == ir.Out) && cells[i].Assigned() {
				args.Set(i, cells[i].Load())
			}
		}
		return r, err
	})
	st.icpt = aspect.NewInterceptionArgs(f.c.info, f.this, st.args, target)

	a := st.aspects[imm.Aspect]
	if ai, ok := a.(aspect.AsyncInterceptor); ok && imm.Async {
		fut, err := ai.OnInvokeAsync(ctx, st.icpt)
		if err != nil {
			return err
		}
		st.icpt.ReturnValue = value.FutureOf(fut)
	} else if i, ok := a.(aspect.Interceptor); ok {
		if err := i.OnInvoke(ctx, st.icpt); err != nil {
			return err
		}
	} else if ai, ok := a.(aspect.AsyncInterceptor); ok {
		fut, err := ai.OnInvokeAsync(ctx, st.icpt)
		if err != nil {
			return err
		}
		v, err := fut.Wait(ctx)
		if err != nil {
			return err
		}
		st.icpt.ReturnValue = v
	} else {
		return value.NewException(value.TypeInvalidOp, f.c.m.Aspects[imm.Aspect]+" does not intercept")
	}

	for i, p := range f.c.m.Params {
		if p.Mode == ir.Out && !st.args.IsSet(i) {
			return value.NewException(value.TypeUnassignedOut, fmt.Sprintf("%s: out parameter %s", f.c.info.Name, p.Name))
		}
	}
	return nil
}
