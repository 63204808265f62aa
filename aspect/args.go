package aspect

import (
	"context"

	"github.com/wippyai/weaver/ir"
	"github.com/wippyai/weaver/value"
)

// MethodInfo identifies the woven method.
type MethodInfo struct {
	Name   string
	Params []ir.Param
	Return ir.Type
	Static bool
}

// NewMethodInfo describes m under its public name.
func NewMethodInfo(m *ir.Method) *MethodInfo {
	return &MethodInfo{
		Name:   ir.PublicName(m.Name),
		Params: m.Params,
		Return: m.Return,
		Static: m.Static,
	}
}

// MethodExecutionArgs is the record boundary hooks receive.
type MethodExecutionArgs struct {
	method *MethodInfo

	// Instance is the receiver, None for static methods.
	Instance  value.Value
	Arguments *Arguments
	// ReturnValue is what the method returns once the success path completes.
	ReturnValue value.Value
	// Exception is the pending exception while exception hooks run. Setting
	// it to nil in OnException recovers and the method returns ReturnValue.
	Exception error
	// YieldValue is the value most recently yielded or awaited.
	YieldValue value.Value
}

// NewExecutionArgs creates the record for one invocation.
func NewExecutionArgs(m *MethodInfo, instance value.Value, args *Arguments) *MethodExecutionArgs {
	return &MethodExecutionArgs{method: m, Instance: instance, Arguments: args}
}

// Method returns the identity of the woven method.
func (a *MethodExecutionArgs) Method() *MethodInfo { return a.method }

// Target runs an intercepted body. Call executes it with args bound to the
// parameters and copies aliased parameter results back into args.
type Target interface {
	Call(ctx context.Context, args *Arguments) (value.Value, error)
}

// TargetFunc adapts a function to Target.
type TargetFunc func(ctx context.Context, args *Arguments) (value.Value, error)

func (f TargetFunc) Call(ctx context.Context, args *Arguments) (value.Value, error) {
	return f(ctx, args)
}

// MethodInterceptionArgs is the record interception hooks receive.
type MethodInterceptionArgs struct {
	method *MethodInfo
	target Target

	Instance    value.Value
	Arguments   *Arguments
	ReturnValue value.Value
}

// NewInterceptionArgs creates the record for one intercepted invocation.
func NewInterceptionArgs(m *MethodInfo, instance value.Value, args *Arguments, target Target) *MethodInterceptionArgs {
	return &MethodInterceptionArgs{method: m, target: target, Instance: instance, Arguments: args}
}

// Method returns the identity of the intercepted method.
func (a *MethodInterceptionArgs) Method() *MethodInfo { return a.method }

// Invoke runs the intercepted body on a snapshot of args and returns its
// result. Neither a.Arguments nor a.ReturnValue change.
func (a *MethodInterceptionArgs) Invoke(ctx context.Context, args *Arguments) (value.Value, error) {
	return a.target.Call(ctx, args.Clone())
}

// Proceed runs the intercepted body on a.Arguments. By-reference and out
// results land in the slots and the result becomes a.ReturnValue.
func (a *MethodInterceptionArgs) Proceed(ctx context.Context) error {
	v, err := a.target.Call(ctx, a.Arguments)
	if err != nil {
		return err
	}
	a.ReturnValue = v
	return nil
}

// InvokeAsync is Invoke for bodies that complete asynchronously. The body
// runs up to its first suspension before InvokeAsync returns.
func (a *MethodInterceptionArgs) InvokeAsync(ctx context.Context, args *Arguments) *value.Future {
	return asFuture(a.target.Call(ctx, args.Clone()))
}

// ProceedAsync is Proceed for bodies that complete asynchronously.
// a.ReturnValue is assigned when the returned future settles.
func (a *MethodInterceptionArgs) ProceedAsync(ctx context.Context) *value.Future {
	inner := asFuture(a.target.Call(ctx, a.Arguments))
	out := value.NewFuture()
	inner.OnComplete(func(v value.Value, err error) {
		if err == nil {
			a.ReturnValue = v
		}
		out.Settle(v, err)
	})
	return out
}

func asFuture(v value.Value, err error) *value.Future {
	if err != nil {
		return value.Failed(err)
	}
	if f, ok := v.AsFuture(); ok {
		return f
	}
	return value.Resolved(v)
}
