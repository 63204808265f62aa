package ir

import "github.com/wippyai/weaver/value"

// Instruction is a single IR instruction. Imm holds the opcode's immediate,
// one of the *Imm types below, or nil.
type Instruction struct {
	Imm any
	Op  Op
}

// ConstImm holds the value pushed by const.
type ConstImm struct {
	Value value.Value
}

// LocalImm holds a local index.
type LocalImm struct {
	Index uint32
}

// ParamImm holds a parameter index.
type ParamImm struct {
	Index uint32
}

// CountImm holds an element count.
type CountImm struct {
	N uint32
}

// CallImm names the callee and how many operands it pops. Operands produced
// by local.ref or param.ref bind to the callee's aliased parameters.
type CallImm struct {
	Method string
	Argc   uint32
}

// BranchImm holds the target block of br and leave.
type BranchImm struct {
	Target uint32
}

// CondBranchImm holds both targets of br_if.
type CondBranchImm struct {
	Then uint32
	Else uint32
}

// NewExceptionImm holds the type of the exception being created.
type NewExceptionImm struct {
	Type string
}

// SuspendImm holds the suspension kind.
type SuspendImm struct {
	Kind SuspendKind
}

// ContextImm creates the execution context in Local.
type ContextImm struct {
	Local        uint32
	Interception bool
}

// AdviceImm calls one boundary hook of Aspect, an index into Method.Aspects.
type AdviceImm struct {
	Local  uint32
	Aspect uint32
	Hook   Hook
}

// InterceptImm hands control of the call to Aspect's interception hook.
// Target is the hidden method that holds the intercepted body.
type InterceptImm struct {
	Target string
	Local  uint32
	Aspect uint32
	Async  bool
}

// Convenience constructors.

func Nop() Instruction {
	return Instruction{Op: OpNop}
}

func Const(v value.Value) Instruction {
	return Instruction{Op: OpConst, Imm: ConstImm{Value: v}}
}

func LoadLocal(i uint32) Instruction {
	return Instruction{Op: OpLoadLocal, Imm: LocalImm{Index: i}}
}

func StoreLocal(i uint32) Instruction {
	return Instruction{Op: OpStoreLocal, Imm: LocalImm{Index: i}}
}

func LoadParam(i uint32) Instruction {
	return Instruction{Op: OpLoadParam, Imm: ParamImm{Index: i}}
}

func StoreParam(i uint32) Instruction {
	return Instruction{Op: OpStoreParam, Imm: ParamImm{Index: i}}
}

func LocalRef(i uint32) Instruction {
	return Instruction{Op: OpLocalRef, Imm: LocalImm{Index: i}}
}

func ParamRef(i uint32) Instruction {
	return Instruction{Op: OpParamRef, Imm: ParamImm{Index: i}}
}

func LoadThis() Instruction {
	return Instruction{Op: OpLoadThis}
}

func Pop() Instruction {
	return Instruction{Op: OpPop}
}

func Dup() Instruction {
	return Instruction{Op: OpDup}
}

func MakeSeq(n uint32) Instruction {
	return Instruction{Op: OpMakeSeq, Imm: CountImm{N: n}}
}

func Call(m string, argc uint32) Instruction {
	return Instruction{Op: OpCall, Imm: CallImm{Method: m, Argc: argc}}
}

func NewException(typ string) Instruction {
	return Instruction{Op: OpNewException, Imm: NewExceptionImm{Type: typ}}
}

func Yield() Instruction {
	return Instruction{Op: OpSuspend, Imm: SuspendImm{Kind: SuspendYield}}
}

func Await() Instruction {
	return Instruction{Op: OpSuspend, Imm: SuspendImm{Kind: SuspendAwait}}
}

func Br(target uint32) Instruction {
	return Instruction{Op: OpBr, Imm: BranchImm{Target: target}}
}

func BrIf(then, els uint32) Instruction {
	return Instruction{Op: OpBrIf, Imm: CondBranchImm{Then: then, Else: els}}
}

func Ret() Instruction {
	return Instruction{Op: OpRet}
}

func Throw() Instruction {
	return Instruction{Op: OpThrow}
}

func Leave(target uint32) Instruction {
	return Instruction{Op: OpLeave, Imm: BranchImm{Target: target}}
}

func EndFinally() Instruction {
	return Instruction{Op: OpEndFinally}
}

// Simple returns an instruction with no immediate.
func Simple(op Op) Instruction { return Instruction{Op: op} }

// Ctx returns a weaving opcode whose immediate is the context local.
func Ctx(op Op, local uint32) Instruction { return Instruction{Op: op, Imm: LocalImm{Index: local}} }

// Successors returns the blocks control can reach directly from a
// terminator. Throw, Ret and EndFinally have none.
func (in Instruction) Successors() []uint32 {
	switch imm := in.Imm.(type) {
	case BranchImm:
		if in.Op == OpBr || in.Op == OpLeave {
			return []uint32{imm.Target}
		}
	case CondBranchImm:
		if in.Op == OpBrIf {
			return []uint32{imm.Then, imm.Else}
		}
	}
	return nil
}
