package ids

import (
	"reflect"

	"github.com/arthur-debert/assetyaml/assetyaml/overrides"
	"github.com/arthur-debert/assetyaml/assetyaml/shadow"
)

// List is an ordered collection whose items carry stable ItemIDs. Index based
// mutations keep the side table aligned with the items.
//
// The zero List is empty and ready to use. Lists must be used through a
// pointer: copying one shares its identity.
type List[T any] struct {
	shadow.Slot
	items []T
}

// NewList creates a list holding items.
func NewList[T any](items ...T) *List[T] {
	return &List[T]{items: append([]T(nil), items...)}
}

// Len returns the number of items.
func (l *List[T]) Len() int { return len(l.items) }

// At returns the item at index i.
func (l *List[T]) At(i int) T { return l.items[i] }

// Items returns the underlying items. The slice must not be resized by callers.
func (l *List[T]) Items() []T { return l.items }

// Set replaces the item at index i; its id is unchanged.
func (l *List[T]) Set(i int, v T) { l.items[i] = v }

// Append adds items at the end. The new items have no id until one is
// assigned or generated.
func (l *List[T]) Append(items ...T) { l.items = append(l.items, items...) }

// Insert adds v at index i, shifting the ids of the following items.
func (l *List[T]) Insert(i int, v T) {
	l.items = append(l.items, v)
	copy(l.items[i+1:], l.items[i:])
	l.items[i] = v
	if table, ok := TryGetIdentifiers(l); ok {
		table.shift(i, 1)
	}
}

// RemoveAt removes the item at index i. When tombstone is set its id is kept as
// deleted so a later merge does not resurrect it; otherwise the override of
// the item is dropped with its id.
func (l *List[T]) RemoveAt(i int, tombstone bool) {
	l.items = append(l.items[:i], l.items[i+1:]...)
	if table, ok := TryGetIdentifiers(l); ok {
		if id, ok := table.DeleteAndShift(i, tombstone); ok && !tombstone {
			overrides.Remove(l, id)
		}
	}
}

// CollectionKind implements Collection.
func (l *List[T]) CollectionKind() Kind { return Sequence }

// KeyType implements Collection.
func (l *List[T]) KeyType() reflect.Type { return reflect.TypeFor[int]() }

// ElemType implements Collection.
func (l *List[T]) ElemType() reflect.Type { return reflect.TypeFor[T]() }

// Keys implements Collection.
func (l *List[T]) Keys() []any {
	keys := make([]any, len(l.items))
	for i := range l.items {
		keys[i] = i
	}
	return keys
}

// Entries implements Collection.
func (l *List[T]) Entries() []Entry {
	entries := make([]Entry, len(l.items))
	for i := range l.items {
		entries[i] = Entry{Key: i, Value: reflect.ValueOf(&l.items[i]).Elem()}
	}
	return entries
}

// AppendEntry implements Collection.
func (l *List[T]) AppendEntry(_ any, value reflect.Value) {
	var v T
	if value.IsValid() {
		reflect.ValueOf(&v).Elem().Set(value)
	}
	l.items = append(l.items, v)
}

// RemoveKey implements Collection.
func (l *List[T]) RemoveKey(key any) {
	if i, ok := key.(int); ok && i >= 0 && i < len(l.items) {
		l.RemoveAt(i, false)
	}
}

// Clear implements Collection.
func (l *List[T]) Clear() { l.items = nil }
