// Package weaver is an aspect-oriented weaving engine for a stack-based
// method IR.
//
// Weaving rewrites compiled method bodies so that aspect advice runs at the
// method boundary (entry, success, exception, exit, and around every
// suspension point of generators and continuations) or replaces the call
// entirely (interception). The rewritten IR is ordinary IR: it runs on any
// interpreter that implements the weaving opcodes, and this module ships one.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	weaver/
//	├── ir/          Method IR: blocks, instructions, exception regions, validation
//	├── value/       Runtime values, cells, futures and iterators
//	├── classify/    Method shape classification (ordinary, generator, continuation)
//	├── aspect/      Aspect contract, argument container, hook dispatch, registry
//	├── weave/       Weaving driver plus boundary, suspension, marshal and
//	│                interception rewriters under weave/internal
//	├── vm/          Interpreter for woven and unwoven IR
//	├── builtin/     Ready-made aspects: trace and proceed
//	├── artifact/    Binary container format for modules (CBOR constants)
//	├── config/      TOML weaving configuration
//	├── errors/      Structured error types for debugging
//	└── cmd/weave/   Command line front end with an interactive TUI
//
// # Quick Start
//
// Weave a method and run it:
//
//	reg, trace := builtin.Registry(nil)
//	w := weave.New(weave.Config{Strict: true})
//	_, err := w.WeaveModule(mod, map[string][]weave.Binding{
//		"Calc.Add": {{Aspect: "trace", Hooks: ir.BoundaryHooks}},
//	})
//	if err != nil {
//		return err
//	}
//	machine, err := vm.New(mod, vm.WithAspects(reg))
//	if err != nil {
//		return err
//	}
//	sum, err := machine.Call(ctx, "Calc.Add", value.Int(2), value.Int(3))
//	fmt.Println(sum, trace.Hooks())
//
// # Error Handling
//
// Weaving errors are *errors.Error values carrying the phase, the kind, the
// offending method and the violated invariant. Malformed control flow aborts
// a whole run; every other failure is local to one method and is collected in
// the weave.Report. Exceptions raised while running woven code are
// *value.Exception values or whatever error an aspect returned.
package weaver
