// Package aspect defines the contract between woven methods and the aspects
// bound to them.
//
// An aspect is any value implementing one or more of the hook interfaces.
// Boundary hooks (EntryHandler, SuccessHandler, ExceptionHandler, ExitHandler,
// YieldHandler, ResumeHandler) run around an unmodified body and receive a
// *MethodExecutionArgs. Interception hooks (Interceptor, AsyncInterceptor)
// replace the body and receive a *MethodInterceptionArgs through which they
// may run it zero or more times.
//
// Every hook receives the per-invocation record by pointer and may mutate
// it: argument slots, the return value, the pending exception and the most
// recent yielded or awaited value. Records are never shared between
// invocations. Hooks that keep state across invocations must synchronize it
// themselves.
//
// HooksOf derives the set of hooks an aspect implements; the weaver emits
// calls only for those.
package aspect
