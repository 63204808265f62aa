// Package weave is the weaving driver. It splices aspect advice into Method
// IR at build time.
//
// For every target method the driver validates the IR, classifies its shape
// (plain, generator, continuation), plans argument marshalling and then
// rewrites the control-flow graph:
//
//   - Boundary bindings wrap the unmodified body. All boundary aspects of a
//     method share one execution context; the first declared aspect is
//     outermost. Suspension points of generators and continuations are routed
//     through OnYield and OnResume.
//   - Interception bindings move the body into a hidden method and replace
//     the public body with a call into the interceptor. Boundary bindings
//     declared before an interceptor wrap its wrapper, those declared after
//     it wrap the hidden body. On generators and continuations a boundary
//     binding may not precede an interceptor.
//
// Malformed input IR is fatal for a whole run. Classification and marshalling
// failures are local to one method and collected in the Report, unless
// Config.Strict is set.
//
// Basic usage:
//
//	w := weave.New(weave.Config{})
//	report, err := w.WeaveModule(mod, map[string][]weave.Binding{
//		"Calc.Divide": {{Aspect: "trace", Hooks: ir.BoundaryHooks}},
//	})
package weave
