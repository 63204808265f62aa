package value

// Cell is an assignable variable. By-reference parameters share the caller's
// Cell, so a Store through either side is visible to both.
type Cell struct {
	v        Value
	assigned bool
}

// NewCell returns an assigned cell holding v.
func NewCell(v Value) *Cell {
	return &Cell{v: v, assigned: true}
}

// Unassigned returns an empty cell, the initial state of an Out parameter.
func Unassigned() *Cell {
	return &Cell{}
}

// Load returns the current value, None when unassigned.
func (c *Cell) Load() Value {
	return c.v
}

// Store assigns v.
func (c *Cell) Store(v Value) {
	c.v = v
	c.assigned = true
}

// Assigned reports whether the cell has been stored to.
func (c *Cell) Assigned() bool {
	return c.assigned
}

// Reset returns the cell to the unassigned state.
func (c *Cell) Reset() {
	c.v = Value{}
	c.assigned = false
}

// Cells wraps each value in a fresh assigned cell.
func Cells(vals ...Value) []*Cell {
	out := make([]*Cell, len(vals))
	for i, v := range vals {
		out[i] = NewCell(v)
	}
	return out
}
