package builtin

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/weaver/aspect"
	"github.com/wippyai/weaver/value"
)

// Proceed intercepts a method and runs its body unchanged.
type Proceed struct {
	log *zap.Logger
}

// NewProceed creates a pass-through interceptor. A nil logger disables
// logging.
func NewProceed(log *zap.Logger) *Proceed {
	if log == nil {
		log = zap.NewNop()
	}
	return &Proceed{log: log}
}

func (p *Proceed) OnInvoke(ctx context.Context, args *aspect.MethodInterceptionArgs) error {
	p.log.Debug("proceed", zap.String("method", args.Method().Name), zap.Stringer("arguments", args.Arguments))
	return args.Proceed(ctx)
}

func (p *Proceed) OnInvokeAsync(ctx context.Context, args *aspect.MethodInterceptionArgs) (*value.Future, error) {
	p.log.Debug("proceed async", zap.String("method", args.Method().Name), zap.Stringer("arguments", args.Arguments))
	return args.ProceedAsync(ctx), nil
}

// Registry returns a registry holding a Trace named "trace" and a Proceed
// named "proceed". The trace is returned so callers can inspect it.
func Registry(log *zap.Logger) (*aspect.Registry, *Trace) {
	tr := NewTrace("trace", log)
	r := aspect.NewRegistry()
	r.MustRegister(tr.Name(), tr)
	r.MustRegister("proceed", NewProceed(log))
	return r, tr
}
