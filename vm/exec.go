package vm

import (
	"context"
	"fmt"

	"github.com/wippyai/weaver/ir"
	"github.com/wippyai/weaver/value"
)

type outcome uint8

const (
	outReturn outcome = iota + 1
	outYield
	outAwait
)

// run executes f from its saved position until it returns, suspends or
// fails with an exception no region handles.
func (vm *Machine) run(ctx context.Context, f *frame) (outcome, value.Value, error) {
	blocks := f.c.m.Blocks
	for {
		in := blocks[f.block].Instrs[f.pc]
		f.pc++

		out, v, err := vm.step(ctx, f, in)
		if err != nil {
			if u, ok := err.(*unhandled); ok {
				return 0, value.None(), u.err
			}
			if !vm.raise(f, err) {
				return 0, value.None(), err
			}
			continue
		}
		if out != 0 {
			return out, v, nil
		}
	}
}

// step executes one instruction. A non-zero outcome leaves the run loop.
func (vm *Machine) step(ctx context.Context, f *frame, in ir.Instruction) (outcome, value.Value, error) {
	switch in.Op {
	case ir.OpNop:

	case ir.OpConst:
		f.push(in.Imm.(ir.ConstImm).Value)

	case ir.OpLoadLocal:
		f.push(f.locals[in.Imm.(ir.LocalImm).Index].Load())

	case ir.OpStoreLocal:
		v, err := f.pop()
		if err != nil {
			return 0, v, err
		}
		f.locals[in.Imm.(ir.LocalImm).Index].Store(v)

	case ir.OpLoadParam:
		f.push(f.params[in.Imm.(ir.ParamImm).Index].Load())

	case ir.OpStoreParam:
		v, err := f.pop()
		if err != nil {
			return 0, v, err
		}
		f.params[in.Imm.(ir.ParamImm).Index].Store(v)

	case ir.OpLoadThis:
		f.push(f.this)

	case ir.OpLocalRef:
		f.push(value.Object(f.locals[in.Imm.(ir.LocalImm).Index]))

	case ir.OpParamRef:
		f.push(value.Object(f.params[in.Imm.(ir.ParamImm).Index]))

	case ir.OpPop:
		if _, err := f.pop(); err != nil {
			return 0, value.None(), err
		}

	case ir.OpDup:
		v, err := f.pop()
		if err != nil {
			return 0, v, err
		}
		f.push(v)
		f.push(v)

	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpLt, ir.OpEq:
		operands, err := f.popN(2)
		if err != nil {
			return 0, value.None(), err
		}
		r, err := binary(in.Op, deref(operands[0]), deref(operands[1]))
		if err != nil {
			return 0, value.None(), err
		}
		f.push(r)

	case ir.OpNot:
		v, err := f.pop()
		if err != nil {
			return 0, v, err
		}
		f.push(value.Bool(!deref(v).Truthy()))

	case ir.OpMakeSeq:
		items, err := f.popN(int(in.Imm.(ir.CountImm).N))
		if err != nil {
			return 0, value.None(), err
		}
		f.push(value.Seq(items...))

	case ir.OpCall:
		imm := in.Imm.(ir.CallImm)
		vals, err := f.popN(int(imm.Argc))
		if err != nil {
			return 0, value.None(), err
		}
		r, err := vm.call(ctx, f, imm.Method, vals)
		if err != nil {
			return 0, value.None(), err
		}
		f.push(r)

	case ir.OpNewException:
		msg, err := f.pop()
		if err != nil {
			return 0, msg, err
		}
		text, ok := msg.AsString()
		if !ok && !msg.IsNone() {
			text = msg.String()
		}
		f.push(value.Error(value.NewException(in.Imm.(ir.NewExceptionImm).Type, text)))

	case ir.OpSuspend:
		v, err := f.pop()
		if err != nil {
			return 0, v, err
		}
		if in.Imm.(ir.SuspendImm).Kind == ir.SuspendYield {
			return outYield, v, nil
		}
		if err := ctx.Err(); err != nil {
			return 0, value.None(), err
		}
		fut, ok := v.AsFuture()
		if !ok {
			// Awaiting a plain value completes immediately with it.
			f.push(v)
			return 0, value.None(), nil
		}
		if fut.IsDone() {
			r, err := fut.Result()
			if err != nil {
				return 0, value.None(), err
			}
			f.push(r)
			return 0, value.None(), nil
		}
		return outAwait, v, nil

	case ir.OpBr:
		target := in.Imm.(ir.BranchImm).Target
		if target <= f.block {
			if err := ctx.Err(); err != nil {
				return 0, value.None(), err
			}
		}
		f.jump(target)

	case ir.OpBrIf:
		cond, err := f.pop()
		if err != nil {
			return 0, cond, err
		}
		imm := in.Imm.(ir.CondBranchImm)
		target := imm.Else
		if deref(cond).Truthy() {
			target = imm.Then
		}
		if target <= f.block {
			if err := ctx.Err(); err != nil {
				return 0, value.None(), err
			}
		}
		f.jump(target)

	case ir.OpRet:
		if !f.c.hasResult {
			return outReturn, value.None(), nil
		}
		v, err := f.pop()
		if err != nil {
			return 0, v, err
		}
		return outReturn, v, nil

	case ir.OpThrow:
		v, err := f.pop()
		if err != nil {
			return 0, v, err
		}
		return 0, value.None(), toError(v)

	case ir.OpLeave:
		vm.leave(f, in.Imm.(ir.BranchImm).Target)

	case ir.OpEndFinally:
		if err := vm.endFinally(f); err != nil {
			return 0, value.None(), &unhandled{err}
		}

	default:
		if in.Op.IsWeaving() {
			return 0, value.None(), vm.weaving(ctx, f, in)
		}
		return 0, value.None(), value.NewException(value.TypeInvalidOp, fmt.Sprintf("unknown opcode %s", in.Op))
	}
	return 0, value.None(), nil
}

// unhandled carries an exception that finished unwinding through the last
// finally block of the frame. It must not be dispatched again.
type unhandled struct{ err error }

func (u *unhandled) Error() string { return u.err.Error() }
func (u *unhandled) Unwrap() error { return u.err }

// toError converts a thrown operand into an error.
func toError(v value.Value) error {
	if err, ok := v.AsError(); ok {
		return err
	}
	ex := value.NewException(value.TypeError, v.String())
	ex.Data = v
	return ex
}

func (vm *Machine) call(ctx context.Context, f *frame, name string, vals []value.Value) (value.Value, error) {
	if c, ok := vm.methods[name]; ok {
		if len(vals) != len(c.m.Params) {
			return value.None(), value.NewException(value.TypeInvalidOp,
				fmt.Sprintf("%s expects %d arguments, got %d", name, len(c.m.Params), len(vals)))
		}
		return vm.invoke(ctx, c, value.None(), argCells(c.m.Params, vals), f.depth+1)
	}
	if h, ok := vm.hosts[name]; ok {
		args := make([]value.Value, len(vals))
		for i, v := range vals {
			args[i] = deref(v)
		}
		return h(ctx, args)
	}
	return value.None(), value.NewException(value.TypeNotFound, name)
}
