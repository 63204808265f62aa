package ir

// Builder assembles a Method block by block.
type Builder struct {
	m *Method
}

// NewBuilder starts a method with the given name.
func NewBuilder(name string) *Builder {
	return &Builder{m: &Method{Name: name}}
}

// Static marks the method as having no receiver.
func (b *Builder) Static() *Builder {
	b.m.Static = true
	return b
}

// Param appends a parameter.
func (b *Builder) Param(name string, t Type, mode PassingMode) *Builder {
	b.m.Params = append(b.m.Params, Param{Name: name, Type: t, Mode: mode})
	return b
}

// Returns sets the declared return type.
func (b *Builder) Returns(t Type) *Builder {
	b.m.Return = t
	return b
}

// Local declares a local and returns its index.
func (b *Builder) Local(t Type) uint32 {
	return b.m.AddLocal(t)
}

// Block appends a block and returns its index.
func (b *Builder) Block(instrs ...Instruction) uint32 {
	b.m.Blocks = append(b.m.Blocks, Block{Instrs: instrs})
	return uint32(len(b.m.Blocks) - 1)
}

// Append adds instructions to an existing block.
func (b *Builder) Append(block uint32, instrs ...Instruction) {
	b.m.Blocks[block].Instrs = append(b.m.Blocks[block].Instrs, instrs...)
}

// Region appends an exception region. Regions must be added innermost first.
func (b *Builder) Region(r ExceptionRegion) *Builder {
	b.m.Regions = append(b.m.Regions, r)
	return b
}

// TryCatch appends a region with a single catch clause.
func (b *Builder) TryCatch(try BlockRange, typ string, handler BlockRange) *Builder {
	return b.Region(ExceptionRegion{Try: try, Catches: []CatchClause{{Type: typ, Handler: handler}}})
}

// TryFinally appends a region with only a finally block.
func (b *Builder) TryFinally(try, finally BlockRange) *Builder {
	return b.Region(ExceptionRegion{Try: try, Finally: &finally})
}

// Method returns the assembled method.
func (b *Builder) Method() *Method {
	return b.m
}

// Range is shorthand for BlockRange{start, end}.
func Range(start, end uint32) BlockRange {
	return BlockRange{Start: start, End: end}
}
