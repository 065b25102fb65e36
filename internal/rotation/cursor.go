package rotation

import "sync"

// Cursor is a round-robin cursor over an ordered list.
// It is safe for concurrent use.
type Cursor[T any] struct {
	mu       sync.Mutex
	items    []T
	position int
}

// NewCursor creates a cursor positioned at the first item.
func NewCursor[T any](items []T) *Cursor[T] {
	c := &Cursor[T]{}
	c.Reset(items)
	return c
}

// Next returns the item at the current position and advances the cursor,
// wrapping at the end. It returns false when the cursor is empty.
func (c *Cursor[T]) Next() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	if len(c.items) == 0 {
		return zero, false
	}
	item := c.items[c.position]
	c.position = (c.position + 1) % len(c.items)
	return item, true
}

// Reset replaces the items and rewinds the cursor.
func (c *Cursor[T]) Reset(items []T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = append([]T(nil), items...)
	c.position = 0
}

// Len returns the number of items.
func (c *Cursor[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
