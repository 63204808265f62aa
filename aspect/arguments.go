package aspect

import (
	"fmt"
	"iter"
	"strings"

	"github.com/wippyai/weaver/value"
)

// InlineSlots is the number of arguments stored without a heap allocation.
const InlineSlots = 8

type slot struct {
	v   value.Value
	set bool
}

// Arguments is the ordered, fixed-length argument container of one
// invocation, one slot per parameter regardless of passing mode. Slots of Out
// parameters start unset.
//
// Up to InlineSlots slots live inside the struct; larger arities use a heap
// slice with identical behaviour.
type Arguments struct {
	heap   []slot
	inline [InlineSlots]slot
	n      int
}

// NewArguments returns a container with n unset slots.
func NewArguments(n int) *Arguments {
	a := &Arguments{n: n}
	if n > InlineSlots {
		a.heap = make([]slot, n)
	}
	return a
}

// ArgumentsOf returns a container whose slots are all set to vals.
func ArgumentsOf(vals ...value.Value) *Arguments {
	a := NewArguments(len(vals))
	for i, v := range vals {
		a.Set(i, v)
	}
	return a
}

func (a *Arguments) slots() []slot {
	if a.heap != nil {
		return a.heap
	}
	return a.inline[:a.n]
}

func (a *Arguments) at(i int) *slot {
	if i < 0 || i >= a.n {
		panic(fmt.Sprintf("aspect: argument index %d out of range [0,%d)", i, a.n))
	}
	return &a.slots()[i]
}

// Count returns the number of slots.
func (a *Arguments) Count() int { return a.n }

// Inline reports whether the slots are stored inline.
func (a *Arguments) Inline() bool { return a.heap == nil }

// Get returns slot i, None when unset.
func (a *Arguments) Get(i int) value.Value { return a.at(i).v }

// Lookup returns slot i and whether it is set.
func (a *Arguments) Lookup(i int) (value.Value, bool) {
	s := a.at(i)
	return s.v, s.set
}

// Set assigns slot i.
func (a *Arguments) Set(i int, v value.Value) {
	s := a.at(i)
	s.v, s.set = v, true
}

// IsSet reports whether slot i has been assigned.
func (a *Arguments) IsSet(i int) bool { return a.at(i).set }

// Unset clears slot i.
func (a *Arguments) Unset(i int) {
	*a.at(i) = slot{}
}

// All iterates the slots in parameter order. Unset slots yield None.
func (a *Arguments) All() iter.Seq2[int, value.Value] {
	return func(yield func(int, value.Value) bool) {
		for i, s := range a.slots() {
			if !yield(i, s.v) {
				return
			}
		}
	}
}

// Values returns a copy of the slot values.
func (a *Arguments) Values() []value.Value {
	out := make([]value.Value, a.n)
	for i, s := range a.slots() {
		out[i] = s.v
	}
	return out
}

// Clone returns an independent snapshot.
func (a *Arguments) Clone() *Arguments {
	c := &Arguments{n: a.n, inline: a.inline}
	if a.heap != nil {
		c.heap = append([]slot(nil), a.heap...)
	}
	return c
}

func (a *Arguments) String() string {
	parts := make([]string, a.n)
	for i, s := range a.slots() {
		if s.set {
			parts[i] = s.v.String()
		} else {
			parts[i] = "<unset>"
		}
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
