package vm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/weaver/aspect"
	"github.com/wippyai/weaver/classify"
	"github.com/wippyai/weaver/errors"
	"github.com/wippyai/weaver/ir"
	"github.com/wippyai/weaver/value"
)

// DefaultMaxDepth bounds nested calls.
const DefaultMaxDepth = 512

// HostFunc is a native function callable from IR by name.
type HostFunc func(ctx context.Context, args []value.Value) (value.Value, error)

// Machine runs the methods of one module.
type Machine struct {
	methods  map[string]*compiled
	hosts    map[string]HostFunc
	aspects  *aspect.Registry
	log      *zap.Logger
	maxDepth int
}

type compiled struct {
	m         *ir.Method
	info      *aspect.MethodInfo
	shape     classify.Shape
	hasResult bool
}

// Option configures a Machine.
type Option func(*Machine)

// WithAspects sets the registry woven methods resolve their aspects from.
func WithAspects(r *aspect.Registry) Option {
	return func(vm *Machine) { vm.aspects = r }
}

// WithHost registers a host function, replacing a built-in of the same name.
func WithHost(name string, fn HostFunc) Option {
	return func(vm *Machine) { vm.hosts[name] = fn }
}

// WithLogger overrides the package logger.
func WithLogger(l *zap.Logger) Option {
	return func(vm *Machine) { vm.log = l }
}

// WithMaxDepth bounds nested calls.
func WithMaxDepth(n int) Option {
	return func(vm *Machine) { vm.maxDepth = n }
}

// New prepares mod for execution. Every method must validate and classify.
func New(mod *ir.Module, opts ...Option) (*Machine, error) {
	vm := &Machine{
		methods:  make(map[string]*compiled, len(mod.Methods)),
		hosts:    builtinHosts(),
		aspects:  aspect.NewRegistry(),
		log:      Logger(),
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(vm)
	}
	for _, m := range mod.Methods {
		if _, dup := vm.methods[m.Name]; dup {
			return nil, errors.InvalidInput(errors.PhaseRuntime, fmt.Sprintf("duplicate method %q", m.Name))
		}
		if err := ir.Validate(m); err != nil {
			return nil, err
		}
		shape, err := classify.Classify(m)
		if err != nil {
			return nil, err
		}
		vm.methods[m.Name] = &compiled{
			m:         m,
			info:      aspect.NewMethodInfo(m),
			shape:     shape,
			hasResult: !classify.ResultType(m, shape).IsVoid(),
		}
	}
	return vm, nil
}

// Shape returns the classification of the named method.
func (vm *Machine) Shape(name string) (classify.Shape, bool) {
	c, ok := vm.methods[name]
	if !ok {
		return 0, false
	}
	return c.shape, true
}

// Invoke calls a method. args holds one cell per parameter: aliased
// parameters (in, ref, out) share the caller's cell, by-value parameters
// copy it. Generators return an iterator value and continuations a future
// value; neither has run to completion when Invoke returns.
func (vm *Machine) Invoke(ctx context.Context, name string, this value.Value, args []*value.Cell) (value.Value, error) {
	c, ok := vm.methods[name]
	if !ok {
		return value.None(), value.NewException(value.TypeNotFound, name)
	}
	if len(args) != len(c.m.Params) {
		return value.None(), value.NewException(value.TypeInvalidOp,
			fmt.Sprintf("%s expects %d arguments, got %d", name, len(c.m.Params), len(args)))
	}
	return vm.invoke(ctx, c, this, args, 0)
}

// Call invokes a static method with by-value arguments.
func (vm *Machine) Call(ctx context.Context, name string, args ...value.Value) (value.Value, error) {
	return vm.Invoke(ctx, name, value.None(), value.Cells(args...))
}

func (vm *Machine) invoke(ctx context.Context, c *compiled, this value.Value, args []*value.Cell, depth int) (value.Value, error) {
	if depth >= vm.maxDepth {
		return value.None(), value.NewException(value.TypeStackOverflow, c.m.Name)
	}
	f := newFrame(c, this, bindParams(c.m.Params, args), depth)

	switch c.shape {
	case classify.Generator:
		return value.IteratorOf(&generator{vm: vm, f: f}), nil
	case classify.Continuation:
		fut := value.NewFuture()
		vm.drive(ctx, f, fut)
		return value.FutureOf(fut), nil
	}

	out, v, err := vm.run(ctx, f)
	if err != nil {
		return value.None(), err
	}
	if out != outReturn {
		return value.None(), value.NewException(value.TypeInvalidOp, "suspension in a plain method")
	}
	return v, nil
}

// bindParams turns the caller's cells into the callee's parameter cells.
func bindParams(params []ir.Param, args []*value.Cell) []*value.Cell {
	cells := make([]*value.Cell, len(params))
	for i, p := range params {
		arg := args[i]
		if arg == nil {
			arg = value.Unassigned()
		}
		if p.Mode.Aliased() {
			cells[i] = arg
			continue
		}
		cells[i] = value.NewCell(arg.Load())
	}
	return cells
}

// argCells converts call operands into cells. Operands produced by
// local.ref or param.ref are passed through as the referenced cell.
func argCells(params []ir.Param, vals []value.Value) []*value.Cell {
	cells := make([]*value.Cell, len(vals))
	for i, v := range vals {
		if ref, ok := asRef(v); ok {
			cells[i] = ref
			continue
		}
		if i < len(params) && params[i].Mode == ir.Out {
			cells[i] = value.Unassigned()
			continue
		}
		cells[i] = value.NewCell(v)
	}
	return cells
}

func asRef(v value.Value) (*value.Cell, bool) {
	o, ok := v.AsObject()
	if !ok {
		return nil, false
	}
	c, ok := o.(*value.Cell)
	return c, ok
}

func deref(v value.Value) value.Value {
	if c, ok := asRef(v); ok {
		return c.Load()
	}
	return v
}
