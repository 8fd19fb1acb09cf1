// Package store provides a generic, thread-safe, in-memory table used by the
// blog list twin. Items keep their insertion order so listings are
// deterministic, and IDs are generated from a per-table counter that never goes back.
package store

import (
	"fmt"
	"sync"
)

// Table is a thread-safe, insertion-ordered collection of T keyed by ID.
type Table[T any] struct {
	mu      sync.RWMutex
	items   map[string]T
	order   []string
	prefix  string
	counter uint64
}

// New creates an empty table whose IDs start with prefix (e.g. "user", "blog").
func New[T any](prefix string) *Table[T] {
	return &Table[T]{
		items:  make(map[string]T),
		prefix: prefix,
	}
}

// Insert allocates the next ID, builds the item with it, and stores it.
func (t *Table[T]) Insert(build func(id string) T) T {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counter++
	id := fmt.Sprintf("%s_%06d", t.prefix, t.counter)
	item := build(id)
	t.items[id] = item
	t.order = append(t.order, id)
	return item
}

// Get returns the item with the given ID.
func (t *Table[T]) Get(id string) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	item, ok := t.items[id]
	return item, ok
}

// Update applies fn to the stored item under the write lock. It returns the
// updated item and false if the ID does not exist.
func (t *Table[T]) Update(id string, fn func(*T)) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	item, ok := t.items[id]
	if !ok {
		var zero T
		return zero, false
	}
	fn(&item)
	t.items[id] = item
	return item, true
}

// Delete removes an item. Returns true if it existed.
func (t *Table[T]) Delete(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.items[id]; !ok {
		return false
	}
	delete(t.items, id)
	for i, oid := range t.order {
		if oid == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return true
}

// List returns all items in insertion order.
func (t *Table[T]) List() []T {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]T, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.items[id])
	}
	return out
}

// Find returns the first item, in insertion order, matching pred.
func (t *Table[T]) Find(pred func(T) bool) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, id := range t.order {
		if item := t.items[id]; pred(item) {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// Count returns the number of items.
func (t *Table[T]) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.items)
}

// Reset empties the table. ID allocation continues from where it was, so an
// ID handed out before the reset never names a different item after it.
func (t *Table[T]) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = make(map[string]T)
	t.order = nil
}
