package vm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wippyai/weaver/value"
)

// builtinHosts returns the host functions every machine starts with.
//
//	future.resolved(v)        a completed future holding v
//	future.failed(type, msg)  a future failed with an exception
//	future.delay(ms, v)       a future completing with v after ms milliseconds
//	text.upper(s)             s in upper case
//	seq.len(s)                the length of a sequence or text
func builtinHosts() map[string]HostFunc {
	return map[string]HostFunc{
		"future.resolved": hostResolved,
		"future.failed":   hostFailed,
		"future.delay":    hostDelay,
		"text.upper":      hostUpper,
		"seq.len":         hostLen,
	}
}

func arity(name string, args []value.Value, n int) error {
	if len(args) != n {
		return value.NewException(value.TypeInvalidOp, fmt.Sprintf("%s expects %d arguments, got %d", name, n, len(args)))
	}
	return nil
}

func hostResolved(_ context.Context, args []value.Value) (value.Value, error) {
	if err := arity("future.resolved", args, 1); err != nil {
		return value.None(), err
	}
	return value.FutureOf(value.Resolved(args[0])), nil
}

func hostFailed(_ context.Context, args []value.Value) (value.Value, error) {
	if err := arity("future.failed", args, 2); err != nil {
		return value.None(), err
	}
	typ, _ := args[0].AsString()
	msg, _ := args[1].AsString()
	return value.FutureOf(value.Failed(value.NewException(typ, msg))), nil
}

func hostDelay(_ context.Context, args []value.Value) (value.Value, error) {
	if err := arity("future.delay", args, 2); err != nil {
		return value.None(), err
	}
	ms, ok := args[0].AsInt()
	if !ok || ms < 0 {
		return value.None(), value.NewException(value.TypeInvalidOp, "future.delay: invalid duration "+args[0].String())
	}
	fut := value.NewFuture()
	v := args[1]
	time.AfterFunc(time.Duration(ms)*time.Millisecond, func() { fut.Resolve(v) })
	return value.FutureOf(fut), nil
}

func hostUpper(_ context.Context, args []value.Value) (value.Value, error) {
	if err := arity("text.upper", args, 1); err != nil {
		return value.None(), err
	}
	s, ok := args[0].AsString()
	if !ok {
		return value.None(), value.NewException(value.TypeInvalidOp, "text.upper: not text: "+args[0].String())
	}
	return value.String(strings.ToUpper(s)), nil
}

func hostLen(_ context.Context, args []value.Value) (value.Value, error) {
	if err := arity("seq.len", args, 1); err != nil {
		return value.None(), err
	}
	if items, ok := args[0].AsSeq(); ok {
		return value.Int(int64(len(items))), nil
	}
	if s, ok := args[0].AsString(); ok {
		return value.Int(int64(len(s))), nil
	}
	return value.None(), value.NewException(value.TypeInvalidOp, "seq.len: not a sequence: "+args[0].String())
}
