package vm

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/weaver/value"
)

// drive runs a continuation frame until it returns, fails, or awaits a
// future that has not completed. In the last case it resumes from the
// future's completion callback, possibly on another goroutine.
func (vm *Machine) drive(ctx context.Context, f *frame, result *value.Future) {
	out, v, err := vm.run(ctx, f)
	if err != nil {
		result.Reject(err)
		return
	}
	switch out {
	case outReturn:
		result.Resolve(v)
	case outAwait:
		awaited, _ := v.AsFuture()
		vm.await(ctx, f, result, awaited)
	default:
		result.Reject(value.NewException(value.TypeInvalidOp, "yield inside a continuation"))
	}
}

func (vm *Machine) await(ctx context.Context, f *frame, result, awaited *value.Future) {
	var once sync.Once
	resume := func(r value.Value, err error) {
		once.Do(func() {
			if err != nil {
				vm.log.Debug("continuation resumed with exception", zap.String("method", f.c.m.Name), zap.Error(err))
				if !vm.raise(f, err) {
					result.Reject(err)
					return
				}
			} else {
				f.push(r)
			}
			vm.drive(ctx, f, result)
		})
	}

	stop := context.AfterFunc(ctx, func() { resume(value.None(), ctx.Err()) })
	awaited.OnComplete(func(r value.Value, err error) {
		stop()
		resume(r, err)
	})
}
