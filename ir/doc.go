// Package ir defines the Method IR: a stack-machine control-flow graph that
// the weaver reads, rewrites and hands back.
//
// A Method is an ordered list of basic blocks. Every block ends in exactly one
// terminator (Br, BrIf, Ret, Throw, Leave, EndFinally); there is no
// fall-through between blocks. Exception handling uses block-range regions in
// the style of structured exception tables: a protected Try range, an ordered
// list of typed catch handlers and an optional finally range. Regions are
// listed innermost first.
//
// Suspension is explicit. A Suspend instruction carries its kind: a yield
// hands a value to the consumer of a lazily produced sequence, an await waits
// on a future and resumes with its result.
//
// Besides the instructions a front end emits, the package defines the
// weaving-only opcodes (ContextNew, ArgsApply, Advice, Intercept, ...) that the
// weaver inserts. Validate checks the structural invariants the weaver relies
// on, including definite assignment of Out parameters on every return path.
package ir
