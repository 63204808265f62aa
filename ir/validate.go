package ir

import (
	"fmt"

	"github.com/wippyai/weaver/errors"
)

// Invariants checked by Validate.
const (
	InvTerminator  = "every block ends in exactly one terminator"
	InvTarget      = "branch targets name existing blocks"
	InvOperand     = "instructions carry well-formed immediates"
	InvRegion      = "exception regions are well formed and properly nested"
	InvRetInRegion = "ret does not occur inside a protected region"
	InvEndFinally  = "endfinally only occurs inside a finally block"
	InvSuspend     = "suspend does not occur inside a finally block"
	InvReadOnly    = "in parameters are never stored to"
	InvOutAssigned = "out parameters are assigned on every return path"
)

// Validate checks the structural invariants the weaver relies on. Any
// violation is reported as a malformed_control_flow error naming the method,
// the invariant and the offending location.
func Validate(m *Method) error {
	v := &validator{m: m}
	if len(m.Blocks) == 0 {
		return v.fail(InvTerminator, nil, "method has no blocks")
	}
	if err := v.blocks(); err != nil {
		return err
	}
	if err := v.regions(); err != nil {
		return err
	}
	if err := v.placement(); err != nil {
		return err
	}
	return v.outAssigned()
}

type validator struct {
	m *Method
}

func (v *validator) fail(inv string, path []string, detail string) error {
	return errors.Malformed(v.m.Name, inv, path, detail)
}

func at(block, instr int) []string {
	if instr < 0 {
		return []string{fmt.Sprintf("block %d", block)}
	}
	return []string{fmt.Sprintf("block %d", block), fmt.Sprintf("instr %d", instr)}
}

func (v *validator) blocks() error {
	for bi, b := range v.m.Blocks {
		if len(b.Instrs) == 0 {
			return v.fail(InvTerminator, at(bi, -1), "empty block")
		}
		for ii, in := range b.Instrs {
			last := ii == len(b.Instrs)-1
			if in.Op.IsTerminator() != last {
				if last {
					return v.fail(InvTerminator, at(bi, ii), fmt.Sprintf("block ends with non-terminator %s", in.Op))
				}
				return v.fail(InvTerminator, at(bi, ii), fmt.Sprintf("terminator %s in the middle of a block", in.Op))
			}
			if err := v.instr(bi, ii, in); err != nil {
				return err
			}
		}
	}
	return nil
}

func (v *validator) instr(bi, ii int, in Instruction) error {
	bad := func(detail string) error {
		return v.fail(InvOperand, at(bi, ii), fmt.Sprintf("%s: %s", in.Op, detail))
	}
	local := func(idx uint32) error {
		if int(idx) >= len(v.m.Locals) {
			return bad(fmt.Sprintf("local %d out of range (%d locals)", idx, len(v.m.Locals)))
		}
		return nil
	}
	target := func(t uint32) error {
		if int(t) >= len(v.m.Blocks) {
			return v.fail(InvTarget, at(bi, ii), fmt.Sprintf("%s to block %d of %d", in.Op, t, len(v.m.Blocks)))
		}
		return nil
	}
	ctxLocal := func() error {
		imm, ok := in.Imm.(LocalImm)
		if !ok {
			return bad("expected context local immediate")
		}
		return local(imm.Index)
	}

	switch in.Op {
	case OpNop, OpLoadThis, OpPop, OpDup, OpAdd, OpSub, OpMul, OpLt, OpEq, OpNot,
		OpRet, OpThrow, OpEndFinally:
		if in.Imm != nil {
			return bad("unexpected immediate")
		}
	case OpConst:
		if _, ok := in.Imm.(ConstImm); !ok {
			return bad("expected constant")
		}
	case OpLoadLocal, OpStoreLocal, OpLocalRef:
		imm, ok := in.Imm.(LocalImm)
		if !ok {
			return bad("expected local index")
		}
		return local(imm.Index)
	case OpLoadParam, OpStoreParam, OpParamRef:
		imm, ok := in.Imm.(ParamImm)
		if !ok {
			return bad("expected parameter index")
		}
		if int(imm.Index) >= len(v.m.Params) {
			return bad(fmt.Sprintf("parameter %d out of range (%d params)", imm.Index, len(v.m.Params)))
		}
		p := v.m.Params[imm.Index]
		if p.Mode == In && in.Op != OpLoadParam {
			return v.fail(InvReadOnly, at(bi, ii), fmt.Sprintf("%s on in parameter %q", in.Op, p.Name))
		}
	case OpMakeSeq:
		if _, ok := in.Imm.(CountImm); !ok {
			return bad("expected element count")
		}
	case OpCall:
		imm, ok := in.Imm.(CallImm)
		if !ok || imm.Method == "" {
			return bad("expected callee")
		}
	case OpNewException:
		if _, ok := in.Imm.(NewExceptionImm); !ok {
			return bad("expected exception type")
		}
	case OpSuspend:
		imm, ok := in.Imm.(SuspendImm)
		if !ok || (imm.Kind != SuspendYield && imm.Kind != SuspendAwait) {
			return bad("expected yield or await kind")
		}
	case OpBr, OpLeave:
		imm, ok := in.Imm.(BranchImm)
		if !ok {
			return bad("expected branch target")
		}
		return target(imm.Target)
	case OpBrIf:
		imm, ok := in.Imm.(CondBranchImm)
		if !ok {
			return bad("expected branch targets")
		}
		if err := target(imm.Then); err != nil {
			return err
		}
		return target(imm.Else)
	case OpContextNew:
		imm, ok := in.Imm.(ContextImm)
		if !ok {
			return bad("expected context immediate")
		}
		return local(imm.Local)
	case OpArgsApply, OpArgsSync, OpArgsWriteBack, OpSetReturn, OpLoadReturn,
		OpSetException, OpRethrowIfSet, OpSetYield, OpLoadYield:
		return ctxLocal()
	case OpAdvice:
		imm, ok := in.Imm.(AdviceImm)
		if !ok {
			return bad("expected advice immediate")
		}
		if int(imm.Aspect) >= len(v.m.Aspects) {
			return bad(fmt.Sprintf("aspect %d out of range", imm.Aspect))
		}
		if !BoundaryHooks.Has(imm.Hook) {
			return bad(fmt.Sprintf("%s is not a boundary hook", imm.Hook))
		}
		return local(imm.Local)
	case OpIntercept:
		imm, ok := in.Imm.(InterceptImm)
		if !ok || imm.Target == "" {
			return bad("expected interception immediate")
		}
		if int(imm.Aspect) >= len(v.m.Aspects) {
			return bad(fmt.Sprintf("aspect %d out of range", imm.Aspect))
		}
		return local(imm.Local)
	default:
		return bad("unknown opcode")
	}
	return nil
}

func (v *validator) regions() error {
	n := uint32(len(v.m.Blocks))
	path := func(i int) []string { return []string{fmt.Sprintf("region %d", i)} }

	for i := range v.m.Regions {
		r := &v.m.Regions[i]
		parts := regionParts(r)
		for _, p := range parts {
			if p.Empty() || p.End > n {
				return v.fail(InvRegion, path(i), fmt.Sprintf("range %s invalid for %d blocks", formatRange(p), n))
			}
		}
		if len(r.Catches) == 0 && r.Finally == nil {
			return v.fail(InvRegion, path(i), "region has neither catch nor finally")
		}
		for a := 0; a < len(parts); a++ {
			for b := a + 1; b < len(parts); b++ {
				if parts[a].Overlaps(parts[b]) {
					return v.fail(InvRegion, path(i), fmt.Sprintf("ranges %s and %s overlap", formatRange(parts[a]), formatRange(parts[b])))
				}
			}
		}
	}

	for i := range v.m.Regions {
		for j := i + 1; j < len(v.m.Regions); j++ {
			for _, p := range regionParts(&v.m.Regions[i]) {
				for _, q := range regionParts(&v.m.Regions[j]) {
					if !p.Overlaps(q) || p.Within(q) {
						continue
					}
					detail := fmt.Sprintf("range %s of region %d partially overlaps %s of region %d", formatRange(p), i, formatRange(q), j)
					if q.Within(p) {
						detail = fmt.Sprintf("region %d encloses region %d but is listed first", i, j)
					}
					return v.fail(InvRegion, path(i), detail)
				}
			}
		}
	}
	return nil
}

func regionParts(r *ExceptionRegion) []BlockRange {
	parts := make([]BlockRange, 0, len(r.Catches)+2)
	parts = append(parts, r.Try)
	for _, c := range r.Catches {
		parts = append(parts, c.Handler)
	}
	if r.Finally != nil {
		parts = append(parts, *r.Finally)
	}
	return parts
}

func (v *validator) placement() error {
	for bi, b := range v.m.Blocks {
		blk := uint32(bi)
		var covered, inFinally bool
		for i := range v.m.Regions {
			r := &v.m.Regions[i]
			covered = covered || r.Covers(blk)
			inFinally = inFinally || r.InFinally(blk)
		}
		for ii, in := range b.Instrs {
			switch in.Op {
			case OpRet:
				if covered {
					return v.fail(InvRetInRegion, at(bi, ii), "use leave to exit the region before returning")
				}
			case OpEndFinally:
				if !inFinally {
					return v.fail(InvEndFinally, at(bi, ii), "block is not part of a finally range")
				}
			case OpSuspend:
				if inFinally {
					return v.fail(InvSuspend, at(bi, ii), "finally blocks run to completion")
				}
			}
		}
	}
	return nil
}
