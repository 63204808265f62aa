package weave

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/wippyai/weaver/classify"
	"github.com/wippyai/weaver/errors"
	"github.com/wippyai/weaver/ir"
	"github.com/wippyai/weaver/weave/internal/boundary"
	"github.com/wippyai/weaver/weave/internal/intercept"
	"github.com/wippyai/weaver/weave/internal/marshal"
	"github.com/wippyai/weaver/weave/internal/suspend"
)

// Config controls a weaving run.
type Config struct {
	// Strict makes local per-method failures abort the run.
	Strict bool
}

// Binding attaches one aspect to a method. Bindings of a method are ordered;
// the first is outermost.
type Binding struct {
	Aspect string
	Hooks  ir.HookSet
}

// Result is the outcome of weaving one method.
type Result struct {
	// Method is the public method. It is the input itself when nothing was
	// bound.
	Method *ir.Method
	// Hidden are methods created by interception weaving.
	Hidden []*ir.Method
	Shape  classify.Shape
	// Suspensions counts the rewritten suspension points.
	Suspensions int
}

// Weaver rewrites methods according to their bindings.
type Weaver struct {
	log *zap.Logger
	cfg Config
}

// New creates a Weaver.
func New(cfg Config) *Weaver {
	return &Weaver{cfg: cfg, log: Logger()}
}

// WeaveMethod weaves bindings into m and returns the rewritten method. m is
// not modified. Zero bindings return m unchanged.
func (w *Weaver) WeaveMethod(m *ir.Method, bindings []Binding) (*Result, error) {
	if len(bindings) == 0 {
		return &Result{Method: m}, nil
	}
	if m.Woven() {
		return nil, errors.AlreadyWoven(m.Name)
	}
	if err := ir.Validate(m); err != nil {
		return nil, err
	}
	shape, err := classify.Classify(m)
	if err != nil {
		return nil, err
	}
	plan, err := marshal.Build(m, shape)
	if err != nil {
		return nil, err
	}
	if err := checkBindings(m.Name, bindings); err != nil {
		return nil, err
	}

	out := m.Clone()
	res := &Result{Shape: shape}

	// groups[j] holds the boundary bindings declared between interceptors
	// j-1 and j. They wrap wrapper j; the last group wraps the body itself.
	var icpt []intercept.Layer
	groups := [][]Binding{nil}
	nboundary := 0
	for _, b := range bindings {
		if b.Hooks.Interception() {
			icpt = append(icpt, intercept.Layer{Aspect: b.Aspect, Async: shape == classify.Continuation})
			groups = append(groups, nil)
		}
		if b.Hooks.Boundary() {
			groups[len(groups)-1] = append(groups[len(groups)-1], b)
			nboundary++
		}
	}
	if shape.Suspends() {
		for j := range icpt {
			if len(groups[j]) > 0 {
				return nil, errors.New(errors.PhaseWeave, errors.KindUnsupported).
					Method(m.Name).Path("binding " + groups[j][0].Aspect).
					Detail("boundary aspect outside interceptor %q on a %s method", icpt[j].Aspect, shape).Build()
			}
		}
	}

	hasResult := !classify.ResultType(m, shape).IsVoid()
	if inner := groups[len(icpt)]; len(inner) > 0 {
		res.Suspensions = weaveBoundary(out, plan, inner, shape, hasResult)
	}
	if len(icpt) > 0 {
		wrappers, original := intercept.Weave(out, plan, icpt)
		for j, wm := range wrappers {
			if len(groups[j]) > 0 {
				weaveBoundary(wm, plan, groups[j], shape, hasResult)
			}
		}
		out = wrappers[0]
		res.Hidden = append(wrappers[1:], original)
	}
	res.Method = out

	for _, wm := range append([]*ir.Method{out}, res.Hidden...) {
		if err := ir.Validate(wm); err != nil {
			return nil, errors.Wrap(errors.PhaseWeave, errors.KindInvalidData, err,
				fmt.Sprintf("woven output of %s failed validation", m.Name))
		}
	}

	w.log.Debug("method woven",
		zap.String("method", m.Name),
		zap.Stringer("shape", shape),
		zap.Int("boundary", nboundary),
		zap.Int("interception", len(icpt)),
		zap.Int("suspensions", res.Suspensions),
		zap.Int("blocks", len(out.Blocks)),
	)
	return res, nil
}

// weaveBoundary wraps the body of m in one boundary layer per binding, the
// first outermost, and returns the number of rewritten suspension points.
func weaveBoundary(m *ir.Method, plan *marshal.Plan, bindings []Binding, shape classify.Shape, hasResult bool) int {
	var layers []boundary.Layer
	var yields, resumes []uint32
	for _, b := range bindings {
		idx := uint32(len(m.Aspects))
		m.Aspects = append(m.Aspects, b.Aspect)
		layers = append(layers, boundary.Layer{Aspect: idx, Hooks: b.Hooks})
		if b.Hooks.Has(ir.HookYield) {
			yields = append(yields, idx)
		}
		if b.Hooks.Has(ir.HookResume) {
			resumes = append(resumes, idx)
		}
	}
	ctx := m.AddLocal(ir.T(ir.Object))
	n := 0
	if shape.Suspends() {
		n = suspend.Rewrite(m, ctx, yields, resumes)
	}
	boundary.Weave(m, plan, layers, ctx, hasResult)
	return n
}

func checkBindings(method string, bindings []Binding) error {
	for i, b := range bindings {
		if b.Aspect == "" {
			return errors.New(errors.PhaseWeave, errors.KindInvalidInput).
				Method(method).Path(fmt.Sprintf("binding %d", i)).
				Detail("binding has no aspect name").Build()
		}
		if !b.Hooks.Boundary() && !b.Hooks.Interception() {
			return errors.New(errors.PhaseWeave, errors.KindInvalidInput).
				Method(method).Path(fmt.Sprintf("binding %d", i)).
				Detail("aspect %q binds no hooks", b.Aspect).Build()
		}
	}
	return nil
}

// Report summarizes a module weaving run.
type Report struct {
	// Woven lists the public methods that were rewritten, in module order.
	Woven []string
	// Failures are local errors of methods left untouched.
	Failures []errors.MethodFailure
}

// Err returns the local failures as one error, or nil.
func (r *Report) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	return &errors.FailuresError{Failures: r.Failures}
}

// WeaveModule weaves every bound method of mod in place. Hidden methods are
// inserted right after the public method they belong to.
//
// A fatal error leaves mod untouched. Local failures are collected in the
// report and the affected methods stay as they were; with Config.Strict the
// first one aborts the run and mod is left untouched.
func (w *Weaver) WeaveModule(mod *ir.Module, bindings map[string][]Binding) (*Report, error) {
	report := &Report{}
	fail := func(method string, err error) error {
		report.Failures = append(report.Failures, errors.MethodFailure{Method: method, Err: err})
		w.log.Warn("method not woven", zap.String("method", method), zap.Error(err))
		if w.cfg.Strict {
			return report.Err()
		}
		return nil
	}

	names := make([]string, 0, len(bindings))
	for name := range bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if mod.Method(name) == nil {
			if err := fail(name, errors.NotFound(errors.PhaseWeave, "method", name)); err != nil {
				return report, err
			}
		}
	}

	results := make(map[string]*Result)
	for _, m := range mod.Methods {
		bs := bindings[m.Name]
		if len(bs) == 0 {
			continue
		}
		if mod.Method(ir.OriginalName(m.Name)) != nil {
			if err := fail(m.Name, errors.AlreadyWoven(m.Name)); err != nil {
				return report, err
			}
			continue
		}
		res, err := w.WeaveMethod(m, bs)
		if err != nil {
			if errors.IsFatal(err) {
				w.log.Error("weaving aborted", zap.String("method", m.Name), zap.Error(err))
				return report, err
			}
			if err := fail(m.Name, err); err != nil {
				return report, err
			}
			continue
		}
		results[m.Name] = res
		report.Woven = append(report.Woven, m.Name)
	}

	methods := make([]*ir.Method, 0, len(mod.Methods))
	for _, m := range mod.Methods {
		res, ok := results[m.Name]
		if !ok {
			methods = append(methods, m)
			continue
		}
		methods = append(methods, res.Method)
		methods = append(methods, res.Hidden...)
	}
	mod.Methods = methods

	w.log.Info("module woven",
		zap.Int("methods", len(mod.Methods)),
		zap.Int("woven", len(report.Woven)),
		zap.Int("failures", len(report.Failures)),
	)
	return report, nil
}
