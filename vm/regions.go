package vm

import (
	"errors"

	"github.com/wippyai/weaver/value"
)

// errAbandoned unwinds a generator frame whose consumer stopped early.
// Catch clauses never match it, so only finally blocks run.
var errAbandoned = errors.New("vm: sequence abandoned")

// raise transfers control to the handler for err. It reports false when no
// region of the frame handles it.
func (vm *Machine) raise(f *frame, err error) bool {
	regions := f.c.m.Regions
	// An exception escaping a finally block replaces whatever that block
	// was completing.
	for len(f.pending) > 0 && regions[f.pending[len(f.pending)-1].region].InFinally(f.block) {
		f.pending = f.pending[:len(f.pending)-1]
	}
	return vm.dispatch(f, err, f.block, 0)
}

// dispatch searches regions[start:] for a handler of err thrown in block
// from, innermost first. A finally block on the way runs first and resumes
// the search when it ends.
func (vm *Machine) dispatch(f *frame, err error, from uint32, start int) bool {
	regions := f.c.m.Regions
	for i := start; i < len(regions); i++ {
		r := &regions[i]
		inTry := r.Try.Contains(from)
		if inTry && err != errAbandoned {
			for _, c := range r.Catches {
				if value.Catches(c.Type, err) {
					f.stack = f.stack[:0]
					f.push(value.Error(err))
					f.jump(c.Handler.Start)
					return true
				}
			}
		}
		if r.Finally != nil && (inTry || r.InHandler(from)) {
			f.pending = append(f.pending, pending{kind: pendingRaise, region: i, err: err, from: from})
			f.stack = f.stack[:0]
			f.jump(r.Finally.Start)
			return true
		}
	}
	return false
}

// leave exits every region between block from and target, running their
// finally blocks innermost first.
func (vm *Machine) leave(f *frame, target uint32) {
	from := f.block
	var exits []int
	for i := range f.c.m.Regions {
		r := &f.c.m.Regions[i]
		if r.Finally == nil {
			continue
		}
		if !r.Try.Contains(from) && !r.InHandler(from) {
			continue
		}
		if r.Try.Contains(target) || r.InHandler(target) {
			continue
		}
		exits = append(exits, i)
	}
	f.stack = f.stack[:0]
	vm.continueLeave(f, target, exits)
}

func (vm *Machine) continueLeave(f *frame, target uint32, exits []int) {
	if len(exits) == 0 {
		f.jump(target)
		return
	}
	r := &f.c.m.Regions[exits[0]]
	f.pending = append(f.pending, pending{kind: pendingLeave, region: exits[0], target: target, rest: exits[1:]})
	f.jump(r.Finally.Start)
}

// endFinally completes the innermost running finally block. It returns a
// non-nil error when an exception it was unwinding for is not handled.
func (vm *Machine) endFinally(f *frame) error {
	if len(f.pending) == 0 {
		return value.NewException(value.TypeInvalidOp, "endfinally outside a finally block")
	}
	p := f.pending[len(f.pending)-1]
	f.pending = f.pending[:len(f.pending)-1]
	f.stack = f.stack[:0]

	switch p.kind {
	case pendingLeave:
		vm.continueLeave(f, p.target, p.rest)
	case pendingRaise:
		if !vm.dispatch(f, p.err, p.from, p.region+1) {
			return p.err
		}
	}
	return nil
}
