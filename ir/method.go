package ir

import (
	"strconv"
	"strings"
)

// Block is a basic block. The last instruction is its only terminator.
type Block struct {
	Instrs []Instruction
}

// Terminator returns the block's last instruction.
func (b *Block) Terminator() (Instruction, bool) {
	if len(b.Instrs) == 0 {
		return Instruction{}, false
	}
	return b.Instrs[len(b.Instrs)-1], true
}

// BlockRange is a half-open range [Start, End) of block indices.
type BlockRange struct {
	Start uint32
	End   uint32
}

// Contains reports whether block b lies in the range.
func (r BlockRange) Contains(b uint32) bool { return b >= r.Start && b < r.End }

// Within reports whether r lies entirely inside o.
func (r BlockRange) Within(o BlockRange) bool { return r.Start >= o.Start && r.End <= o.End }

// Overlaps reports whether the ranges share at least one block.
func (r BlockRange) Overlaps(o BlockRange) bool { return r.Start < o.End && o.Start < r.End }

// Empty reports whether the range holds no blocks.
func (r BlockRange) Empty() bool { return r.End <= r.Start }

// Shift returns the range moved by delta blocks.
func (r BlockRange) Shift(delta uint32) BlockRange {
	return BlockRange{Start: r.Start + delta, End: r.End + delta}
}

// CatchClause handles exceptions whose type matches Type. An empty Type
// catches everything. The handler starts with the exception on the stack.
type CatchClause struct {
	Type    string
	Handler BlockRange
}

// ExceptionRegion is a protected block range with its handlers.
type ExceptionRegion struct {
	Finally *BlockRange
	Catches []CatchClause
	Try     BlockRange
}

// InHandler reports whether block b lies in one of the region's catch
// handlers.
func (r *ExceptionRegion) InHandler(b uint32) bool {
	for _, c := range r.Catches {
		if c.Handler.Contains(b) {
			return true
		}
	}
	return false
}

// InFinally reports whether block b lies in the region's finally block.
func (r *ExceptionRegion) InFinally(b uint32) bool {
	return r.Finally != nil && r.Finally.Contains(b)
}

// Covers reports whether b lies anywhere in the region.
func (r *ExceptionRegion) Covers(b uint32) bool {
	return r.Try.Contains(b) || r.InHandler(b) || r.InFinally(b)
}

// Method is one compiled method body.
type Method struct {
	Name    string
	Params  []Param
	Return  Type
	Locals  []Type
	Blocks  []Block
	Regions []ExceptionRegion
	// Aspects are the aspect names referenced by advice and intercept
	// immediates. Only woven methods carry them.
	Aspects []string
	Static  bool
	Hidden  bool
}

// Suspends returns the suspension kinds present in the body.
func (m *Method) Suspends() (yield, await bool) {
	for _, b := range m.Blocks {
		for _, in := range b.Instrs {
			if in.Op != OpSuspend {
				continue
			}
			imm, _ := in.Imm.(SuspendImm)
			switch imm.Kind {
			case SuspendYield:
				yield = true
			case SuspendAwait:
				await = true
			}
		}
	}
	return yield, await
}

// Woven reports whether the method already carries weaving output.
func (m *Method) Woven() bool {
	if len(m.Aspects) > 0 {
		return true
	}
	for _, b := range m.Blocks {
		for _, in := range b.Instrs {
			if in.Op.IsWeaving() {
				return true
			}
		}
	}
	return false
}

// AddLocal appends a local of type t and returns its index.
func (m *Method) AddLocal(t Type) uint32 {
	m.Locals = append(m.Locals, t)
	return uint32(len(m.Locals) - 1)
}

// Param returns the index of the named parameter.
func (m *Method) Param(name string) (int, bool) {
	for i, p := range m.Params {
		if p.Name == name {
			return i, true
		}
	}
	return -1, false
}

// Clone returns a deep copy of the method.
func (m *Method) Clone() *Method {
	c := *m
	c.Params = append([]Param(nil), m.Params...)
	c.Locals = append([]Type(nil), m.Locals...)
	c.Aspects = append([]string(nil), m.Aspects...)
	c.Blocks = make([]Block, len(m.Blocks))
	for i, b := range m.Blocks {
		c.Blocks[i].Instrs = append([]Instruction(nil), b.Instrs...)
	}
	c.Regions = make([]ExceptionRegion, len(m.Regions))
	for i, r := range m.Regions {
		c.Regions[i] = r.clone()
	}
	if m.Regions == nil {
		c.Regions = nil
	}
	return &c
}

func (r ExceptionRegion) clone() ExceptionRegion {
	c := r
	c.Catches = append([]CatchClause(nil), r.Catches...)
	if r.Finally != nil {
		f := *r.Finally
		c.Finally = &f
	}
	return c
}

// Hidden method name suffixes produced by interception weaving.
const (
	OriginalSuffix  = "$original"
	InterceptSuffix = "$intercept"
)

// OriginalName returns the name of the hidden method holding the body of name.
func OriginalName(name string) string { return name + OriginalSuffix }

// InterceptName returns the name of the k-th hidden interception layer.
func InterceptName(name string, k int) string {
	return name + InterceptSuffix + strconv.Itoa(k)
}

// PublicName strips hidden-method suffixes.
func PublicName(name string) string {
	if i := strings.IndexByte(name, '$'); i >= 0 {
		return name[:i]
	}
	return name
}

// Module is an ordered collection of methods.
type Module struct {
	Methods []*Method
}

// Method looks up a method by name.
func (mod *Module) Method(name string) *Method {
	for _, m := range mod.Methods {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Replace swaps the method with the same name, or appends m.
func (mod *Module) Replace(m *Method) {
	for i, old := range mod.Methods {
		if old.Name == m.Name {
			mod.Methods[i] = m
			return
		}
	}
	mod.Methods = append(mod.Methods, m)
}

// Clone deep-copies the module.
func (mod *Module) Clone() *Module {
	c := &Module{Methods: make([]*Method, len(mod.Methods))}
	for i, m := range mod.Methods {
		c.Methods[i] = m.Clone()
	}
	return c
}
