package value

import "context"

// Iterator is the consumer side of a lazily produced sequence.
//
// Next advances and returns the next element; ok is false once the sequence
// has ended. Close abandons a sequence before its end and releases anything
// the producer still holds. Close after the end is a no-op.
type Iterator interface {
	Next(ctx context.Context) (v Value, ok bool, err error)
	Close(ctx context.Context) error
}

// Collect drains it into a slice. The iterator is closed on error.
func Collect(ctx context.Context, it Iterator) ([]Value, error) {
	var out []Value
	for {
		v, ok, err := it.Next(ctx)
		if err != nil {
			_ = it.Close(ctx)
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, v)
	}
}

// SliceIterator iterates over a fixed slice.
type SliceIterator struct {
	items []Value
	pos   int
}

// FromSlice returns an iterator over items.
func FromSlice(items []Value) *SliceIterator {
	return &SliceIterator{items: items}
}

func (s *SliceIterator) Next(context.Context) (Value, bool, error) {
	if s.pos >= len(s.items) {
		return Value{}, false, nil
	}
	v := s.items[s.pos]
	s.pos++
	return v, true, nil
}

func (s *SliceIterator) Close(context.Context) error {
	s.pos = len(s.items)
	return nil
}
