package utils

import "fmt"

// Bounded is a sequence with a hard upper length.
// Append refuses to grow it past the limit instead of truncating.
type Bounded[T any] struct {
	items []T
	limit int
}

// NewBounded returns an empty sequence that holds at most limit items.
func NewBounded[T any](limit int) *Bounded[T] {
	return &Bounded[T]{items: make([]T, 0, limit), limit: limit}
}

// Append adds v, failing when the sequence is full.
func (b *Bounded[T]) Append(v T) error {
	if len(b.items) >= b.limit {
		return fmt.Errorf("bounded sequence full: limit %d", b.limit)
	}
	b.items = append(b.items, v)
	return nil
}

// Len returns the number of items.
func (b *Bounded[T]) Len() int { return len(b.items) }

// Cap returns the limit the sequence was created with.
func (b *Bounded[T]) Cap() int { return b.limit }

// At returns item i.
func (b *Bounded[T]) At(i int) T { return b.items[i] }

// Items returns a copy of the items.
func (b *Bounded[T]) Items() []T {
	out := make([]T, len(b.items))
	copy(out, b.items)
	return out
}
