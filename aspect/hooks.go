package aspect

import (
	"context"

	"github.com/wippyai/weaver/ir"
	"github.com/wippyai/weaver/value"
)

// EntryHandler runs before the body.
type EntryHandler interface {
	OnEntry(ctx context.Context, args *MethodExecutionArgs) error
}

// SuccessHandler runs after the body completed normally.
type SuccessHandler interface {
	OnSuccess(ctx context.Context, args *MethodExecutionArgs) error
}

// ExceptionHandler runs when the body failed. args.Exception holds the
// failure.
type ExceptionHandler interface {
	OnException(ctx context.Context, args *MethodExecutionArgs) error
}

// ExitHandler runs exactly once after OnEntry, on every path.
type ExitHandler interface {
	OnExit(ctx context.Context, args *MethodExecutionArgs) error
}

// YieldHandler runs before each suspension with args.YieldValue set.
type YieldHandler interface {
	OnYield(ctx context.Context, args *MethodExecutionArgs) error
}

// ResumeHandler runs after each resumption.
type ResumeHandler interface {
	OnResume(ctx context.Context, args *MethodExecutionArgs) error
}

// Interceptor replaces the body of synchronous methods.
type Interceptor interface {
	OnInvoke(ctx context.Context, args *MethodInterceptionArgs) error
}

// AsyncInterceptor replaces the body of continuation methods. The returned
// future becomes the method's result.
type AsyncInterceptor interface {
	OnInvokeAsync(ctx context.Context, args *MethodInterceptionArgs) (*value.Future, error)
}

// HooksOf returns the hooks a implements.
func HooksOf(a any) ir.HookSet {
	var s ir.HookSet
	if _, ok := a.(EntryHandler); ok {
		s = s.With(ir.HookEntry)
	}
	if _, ok := a.(SuccessHandler); ok {
		s = s.With(ir.HookSuccess)
	}
	if _, ok := a.(ExceptionHandler); ok {
		s = s.With(ir.HookException)
	}
	if _, ok := a.(ExitHandler); ok {
		s = s.With(ir.HookExit)
	}
	if _, ok := a.(YieldHandler); ok {
		s = s.With(ir.HookYield)
	}
	if _, ok := a.(ResumeHandler); ok {
		s = s.With(ir.HookResume)
	}
	if _, ok := a.(Interceptor); ok {
		s = s.With(ir.HookInvoke)
	}
	if _, ok := a.(AsyncInterceptor); ok {
		s = s.With(ir.HookInvokeAsync)
	}
	return s
}

// Dispatch runs boundary hook h of a when a implements it.
func Dispatch(ctx context.Context, a any, h ir.Hook, args *MethodExecutionArgs) error {
	switch h {
	case ir.HookEntry:
		if x, ok := a.(EntryHandler); ok {
			return x.OnEntry(ctx, args)
		}
	case ir.HookSuccess:
		if x, ok := a.(SuccessHandler); ok {
			return x.OnSuccess(ctx, args)
		}
	case ir.HookException:
		if x, ok := a.(ExceptionHandler); ok {
			return x.OnException(ctx, args)
		}
	case ir.HookExit:
		if x, ok := a.(ExitHandler); ok {
			return x.OnExit(ctx, args)
		}
	case ir.HookYield:
		if x, ok := a.(YieldHandler); ok {
			return x.OnYield(ctx, args)
		}
	case ir.HookResume:
		if x, ok := a.(ResumeHandler); ok {
			return x.OnResume(ctx, args)
		}
	}
	return nil
}
