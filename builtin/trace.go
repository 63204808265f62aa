package builtin

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/weaver/aspect"
	"github.com/wippyai/weaver/ir"
)

// Event is one recorded hook call.
type Event struct {
	Aspect string
	Method string
	Hook   ir.Hook
	Detail string
}

func (e Event) String() string {
	s := e.Aspect + "." + e.Hook.String()
	if e.Detail != "" {
		s += "(" + e.Detail + ")"
	}
	return s
}

// Trace records boundary hook calls. It is safe for concurrent use.
type Trace struct {
	name   string
	log    *zap.Logger
	events []Event
	mu     sync.Mutex
}

// NewTrace creates a trace aspect. A nil logger disables logging.
func NewTrace(name string, log *zap.Logger) *Trace {
	if log == nil {
		log = zap.NewNop()
	}
	return &Trace{name: name, log: log.With(zap.String("aspect", name))}
}

// Name returns the aspect name events are recorded under.
func (t *Trace) Name() string { return t.name }

func (t *Trace) record(h ir.Hook, args *aspect.MethodExecutionArgs, detail string) {
	e := Event{Aspect: t.name, Method: args.Method().Name, Hook: h, Detail: detail}
	t.mu.Lock()
	t.events = append(t.events, e)
	t.mu.Unlock()
	t.log.Debug("advice",
		zap.String("method", e.Method),
		zap.Stringer("hook", h),
		zap.Stringer("arguments", args.Arguments),
		zap.String("detail", detail),
	)
}

func (t *Trace) OnEntry(_ context.Context, args *aspect.MethodExecutionArgs) error {
	t.record(ir.HookEntry, args, "")
	return nil
}

func (t *Trace) OnSuccess(_ context.Context, args *aspect.MethodExecutionArgs) error {
	t.record(ir.HookSuccess, args, "")
	return nil
}

func (t *Trace) OnException(_ context.Context, args *aspect.MethodExecutionArgs) error {
	detail := ""
	if args.Exception != nil {
		detail = args.Exception.Error()
	}
	t.record(ir.HookException, args, detail)
	return nil
}

func (t *Trace) OnExit(_ context.Context, args *aspect.MethodExecutionArgs) error {
	t.record(ir.HookExit, args, "")
	return nil
}

func (t *Trace) OnYield(_ context.Context, args *aspect.MethodExecutionArgs) error {
	t.record(ir.HookYield, args, args.YieldValue.String())
	return nil
}

func (t *Trace) OnResume(_ context.Context, args *aspect.MethodExecutionArgs) error {
	t.record(ir.HookResume, args, "")
	return nil
}

// Events returns a copy of the recorded events.
func (t *Trace) Events() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Event(nil), t.events...)
}

// Hooks returns the recorded events as "aspect.hook" strings without
// details.
func (t *Trace) Hooks() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.events))
	for i, e := range t.events {
		out[i] = e.Aspect + "." + e.Hook.String()
	}
	return out
}

// String joins the recorded events.
func (t *Trace) String() string {
	events := t.Events()
	parts := make([]string, len(events))
	for i, e := range events {
		parts[i] = e.String()
	}
	return strings.Join(parts, " ")
}

// Reset discards the recorded events.
func (t *Trace) Reset() {
	t.mu.Lock()
	t.events = nil
	t.mu.Unlock()
}
