package vm

import (
	"fmt"

	"github.com/wippyai/weaver/ir"
	"github.com/wippyai/weaver/value"
)

func binary(op ir.Op, a, b value.Value) (value.Value, error) {
	switch op {
	case ir.OpEq:
		return value.Bool(a.Equal(b)), nil
	case ir.OpAdd:
		if x, ok := a.AsString(); ok {
			if y, ok := b.AsString(); ok {
				return value.String(x + y), nil
			}
		}
		if x, ok := a.AsSeq(); ok {
			if y, ok := b.AsSeq(); ok {
				out := make([]value.Value, 0, len(x)+len(y))
				return value.Seq(append(append(out, x...), y...)...), nil
			}
		}
	case ir.OpLt:
		if x, ok := a.AsString(); ok {
			if y, ok := b.AsString(); ok {
				return value.Bool(x < y), nil
			}
		}
	}

	if isFloat(a) || isFloat(b) {
		x, ok1 := a.AsFloat()
		y, ok2 := b.AsFloat()
		if ok1 && ok2 {
			switch op {
			case ir.OpAdd:
				return value.Float(x + y), nil
			case ir.OpSub:
				return value.Float(x - y), nil
			case ir.OpMul:
				return value.Float(x * y), nil
			case ir.OpLt:
				return value.Bool(x < y), nil
			}
		}
	} else {
		x, ok1 := a.AsInt()
		y, ok2 := b.AsInt()
		if ok1 && ok2 {
			switch op {
			case ir.OpAdd:
				return value.Int(x + y), nil
			case ir.OpSub:
				return value.Int(x - y), nil
			case ir.OpMul:
				return value.Int(x * y), nil
			case ir.OpLt:
				return value.Bool(x < y), nil
			}
		}
	}
	return value.None(), value.NewException(value.TypeInvalidOp,
		fmt.Sprintf("%s: unsupported operands %s and %s", op, a.Kind(), b.Kind()))
}

func isFloat(v value.Value) bool { return v.Kind() == value.KindFloat }
