package toplevel

// Cloner is implemented by values that can produce an independent copy.
type Cloner[T any] interface {
	Clone() T
}

// Cell holds a mutable pending value and the last committed value.
// Current is absent until the first Commit and present forever after.
type Cell[T Cloner[T]] struct {
	pending   T
	current   T
	committed bool
}

// NewCell returns a cell whose pending slot starts at initial.
func NewCell[T Cloner[T]](initial T) *Cell[T] {
	return &Cell[T]{pending: initial}
}

// Pending returns the mutable pending slot.
func (c *Cell[T]) Pending() *T {
	return &c.pending
}

// Current returns the committed value, if any.
func (c *Cell[T]) Current() (T, bool) {
	return c.current, c.committed
}

// Commit copies pending into current and returns the new current value.
// first is true only for the first commit.
func (c *Cell[T]) Commit() (value T, first bool) {
	first = !c.committed
	c.current = c.pending.Clone()
	c.committed = true
	return c.current.Clone(), first
}
