package ir

import "fmt"

// Op is an instruction opcode.
type Op byte

// Front-end opcodes.
const (
	OpNop          Op = iota
	OpConst           // -> v                  ConstImm
	OpLoadLocal       // -> v                  LocalImm
	OpStoreLocal      // v ->                  LocalImm
	OpLoadParam       // -> v                  ParamImm
	OpStoreParam      // v ->                  ParamImm
	OpLoadThis        // -> this
	OpLocalRef        // -> ref                LocalImm
	OpParamRef        // -> ref                ParamImm
	OpPop             // v ->
	OpDup             // v -> v v
	OpAdd             // a b -> a+b (numbers, text, sequences)
	OpSub             // a b -> a-b
	OpMul             // a b -> a*b
	OpLt              // a b -> a<b
	OpEq              // a b -> a==b
	OpNot             // v -> !v
	OpMakeSeq         // v1..vn -> seq         CountImm
	OpCall            // a1..an -> r           CallImm
	OpNewException    // msg -> exception      NewExceptionImm
	OpSuspend         // v -> [result]         SuspendImm

	OpBr         // BranchImm
	OpBrIf       // cond ->                    CondBranchImm
	OpRet        // [v] ->
	OpThrow      // exception ->
	OpLeave      // BranchImm; exits protected regions running their finally blocks
	OpEndFinally // ends a finally block
)

// Weaving-only opcodes. They operate on the execution context held in a
// method local and leave the operand stack untouched unless noted.
const (
	OpContextNew    Op = iota + 0x40 // ContextImm
	OpArgsApply                      // LocalImm
	OpArgsSync                       // LocalImm
	OpArgsWriteBack                  // LocalImm
	OpAdvice                         // AdviceImm
	OpSetReturn                      // v ->           LocalImm
	OpLoadReturn                     // -> v           LocalImm
	OpSetException                   // exception ->   LocalImm
	OpRethrowIfSet                   // LocalImm
	OpSetYield                       // v ->           LocalImm
	OpLoadYield                      // -> v           LocalImm
	OpIntercept                      // InterceptImm
)

var opNames = map[Op]string{
	OpNop:           "nop",
	OpConst:         "const",
	OpLoadLocal:     "local.get",
	OpStoreLocal:    "local.set",
	OpLoadParam:     "param.get",
	OpStoreParam:    "param.set",
	OpLoadThis:      "this",
	OpLocalRef:      "local.ref",
	OpParamRef:      "param.ref",
	OpPop:           "pop",
	OpDup:           "dup",
	OpAdd:           "add",
	OpSub:           "sub",
	OpMul:           "mul",
	OpLt:            "lt",
	OpEq:            "eq",
	OpNot:           "not",
	OpMakeSeq:       "seq.make",
	OpCall:          "call",
	OpNewException:  "exception.new",
	OpSuspend:       "suspend",
	OpBr:            "br",
	OpBrIf:          "br_if",
	OpRet:           "ret",
	OpThrow:         "throw",
	OpLeave:         "leave",
	OpEndFinally:    "endfinally",
	OpContextNew:    "ctx.new",
	OpArgsApply:     "args.apply",
	OpArgsSync:      "args.sync",
	OpArgsWriteBack: "args.writeback",
	OpAdvice:        "advice",
	OpSetReturn:     "ret.set",
	OpLoadReturn:    "ret.get",
	OpSetException:  "exc.set",
	OpRethrowIfSet:  "exc.rethrow",
	OpSetYield:      "yield.set",
	OpLoadYield:     "yield.get",
	OpIntercept:     "intercept",
}

func (op Op) String() string {
	if n, ok := opNames[op]; ok {
		return n
	}
	return fmt.Sprintf("op(0x%02x)", byte(op))
}

// Known reports whether op is a defined opcode.
func (op Op) Known() bool {
	_, ok := opNames[op]
	return ok
}

// IsTerminator reports whether op ends a basic block.
func (op Op) IsTerminator() bool {
	switch op {
	case OpBr, OpBrIf, OpRet, OpThrow, OpLeave, OpEndFinally:
		return true
	}
	return false
}

// IsWeaving reports whether op is only ever emitted by the weaver.
func (op Op) IsWeaving() bool {
	return op >= OpContextNew && op <= OpIntercept
}

// SuspendKind distinguishes the two suspension flavours.
type SuspendKind uint8

const (
	SuspendYield SuspendKind = iota + 1
	SuspendAwait
)

func (k SuspendKind) String() string {
	switch k {
	case SuspendYield:
		return "yield"
	case SuspendAwait:
		return "await"
	}
	return fmt.Sprintf("suspend(%d)", k)
}
