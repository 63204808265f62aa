package ir

import "fmt"

// outAssigned runs a forward must-assign dataflow over Out parameters and
// reports the first reachable ret where one of them may still be unassigned.
//
// Passing an Out parameter by reference (param.ref) counts as assigning it.
// A method carries no view of its callees, so the callee's mode for that
// argument is unknown here. A callee taking it ByRef or In leaves the
// caller's variable unassigned; once woven, the method's write-back raises
// UnassignedOut for it.
//
// Leave edges carry the assignments made by the finally blocks they run.
// State at a catch or finally entry is the intersection of the states at the
// start of every protected block, since a throw can happen anywhere in them.
func (v *validator) outAssigned() error {
	m := v.m
	var outs []uint32
	for i, p := range m.Params {
		if p.Mode == Out {
			outs = append(outs, uint32(i))
		}
	}
	if len(outs) == 0 {
		return nil
	}

	n := len(m.Blocks)
	in := make([]*BitSet, n)
	in[0] = NewBitSet(len(m.Params))

	merge := func(dst int, state *BitSet) bool {
		if in[dst] == nil {
			in[dst] = state.Clone()
			return true
		}
		before := in[dst].Clone()
		in[dst].Intersect(state)
		return !before.Equal(in[dst])
	}

	for changed := true; changed; {
		changed = false
		for b := 0; b < n; b++ {
			if in[b] == nil {
				continue
			}
			out := transferAssign(outs, in[b], m.Blocks[b].Instrs)
			term, _ := m.Blocks[b].Terminator()
			if term.Op == OpLeave {
				out = throughFinally(m, outs, uint32(b), term.Imm.(BranchImm).Target, out)
			}
			for _, s := range term.Successors() {
				if merge(int(s), out) {
					changed = true
				}
			}
		}
		for i := range m.Regions {
			r := &m.Regions[i]
			var entries []uint32
			for _, c := range r.Catches {
				entries = append(entries, c.Handler.Start)
			}
			protected := []BlockRange{r.Try}
			if r.Finally != nil {
				entries = append(entries, r.Finally.Start)
				for _, c := range r.Catches {
					protected = append(protected, c.Handler)
				}
			}
			for _, rng := range protected {
				for t := rng.Start; t < rng.End; t++ {
					if in[t] == nil {
						continue
					}
					for _, e := range entries {
						if merge(int(e), in[t]) {
							changed = true
						}
					}
				}
			}
		}
	}

	for b := 0; b < n; b++ {
		if in[b] == nil {
			continue
		}
		term, _ := m.Blocks[b].Terminator()
		if term.Op != OpRet {
			continue
		}
		out := transferAssign(outs, in[b], m.Blocks[b].Instrs)
		for _, p := range outs {
			if !out.Has(p) {
				return v.fail(InvOutAssigned, at(b, len(m.Blocks[b].Instrs)-1),
					fmt.Sprintf("out parameter %q may be unassigned at ret", m.Params[p].Name))
			}
		}
	}
	return nil
}

func transferAssign(outs []uint32, state *BitSet, instrs []Instruction) *BitSet {
	out := state.Clone()
	for _, in := range instrs {
		switch in.Op {
		case OpStoreParam, OpParamRef:
			if imm, ok := in.Imm.(ParamImm); ok {
				out.Set(imm.Index)
			}
		case OpArgsWriteBack:
			// Write-back assigns every out alias or raises UnassignedOut.
			for _, p := range outs {
				out.Set(p)
			}
		}
	}
	return out
}

// throughFinally applies the finally blocks a leave from block from to
// block to runs on its way out.
func throughFinally(m *Method, outs []uint32, from, to uint32, state *BitSet) *BitSet {
	out := state
	for i := range m.Regions {
		r := &m.Regions[i]
		if r.Finally == nil || r.Try.Contains(to) {
			continue
		}
		if !r.Try.Contains(from) && !r.InHandler(from) {
			continue
		}
		for b := r.Finally.Start; b < r.Finally.End; b++ {
			out = transferAssign(outs, out, m.Blocks[b].Instrs)
		}
	}
	return out
}
