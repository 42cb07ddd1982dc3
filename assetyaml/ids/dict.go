package ids

import (
	"reflect"

	"github.com/arthur-debert/assetyaml/assetyaml/overrides"
	"github.com/arthur-debert/assetyaml/assetyaml/shadow"
)

// Dict is an insertion-ordered dictionary whose items carry stable ItemIDs,
// keyed by the dictionary key.
//
// The zero Dict is empty and ready to use. Dicts must be used through a
// pointer: copying one shares its identity.
type Dict[K comparable, V any] struct {
	shadow.Slot
	keys   []K
	values []V
	index  map[K]int
}

// NewDict creates an empty dictionary.
func NewDict[K comparable, V any]() *Dict[K, V] {
	return &Dict[K, V]{}
}

// Len returns the number of items.
func (d *Dict[K, V]) Len() int { return len(d.keys) }

// Get returns the value stored under k.
func (d *Dict[K, V]) Get(k K) (V, bool) {
	if i, ok := d.index[k]; ok {
		return d.values[i], true
	}
	var zero V
	return zero, false
}

// Set stores v under k. A new key is appended to the iteration order.
func (d *Dict[K, V]) Set(k K, v V) {
	if d.index == nil {
		d.index = make(map[K]int)
	}
	if i, ok := d.index[k]; ok {
		d.values[i] = v
		return
	}
	d.index[k] = len(d.keys)
	d.keys = append(d.keys, k)
	d.values = append(d.values, v)
}

// Delete removes k. When tombstone is set the id of k is kept as deleted,
// otherwise its override is dropped too.
func (d *Dict[K, V]) Delete(k K, tombstone bool) bool {
	i, ok := d.index[k]
	if !ok {
		return false
	}
	d.keys = append(d.keys[:i], d.keys[i+1:]...)
	d.values = append(d.values[:i], d.values[i+1:]...)
	delete(d.index, k)
	for j := i; j < len(d.keys); j++ {
		d.index[d.keys[j]] = j
	}
	if table, ok := TryGetIdentifiers(d); ok {
		if id, ok := table.Delete(k, tombstone); ok && !tombstone {
			overrides.Remove(d, id)
		}
	}
	return true
}

// OrderedKeys returns the keys in insertion order.
func (d *Dict[K, V]) OrderedKeys() []K {
	return append([]K(nil), d.keys...)
}

// CollectionKind implements Collection.
func (d *Dict[K, V]) CollectionKind() Kind { return Mapping }

// KeyType implements Collection.
func (d *Dict[K, V]) KeyType() reflect.Type { return reflect.TypeFor[K]() }

// ElemType implements Collection.
func (d *Dict[K, V]) ElemType() reflect.Type { return reflect.TypeFor[V]() }

// Keys implements Collection.
func (d *Dict[K, V]) Keys() []any {
	keys := make([]any, len(d.keys))
	for i, k := range d.keys {
		keys[i] = k
	}
	return keys
}

// Entries implements Collection.
func (d *Dict[K, V]) Entries() []Entry {
	entries := make([]Entry, len(d.keys))
	for i, k := range d.keys {
		entries[i] = Entry{Key: k, Value: reflect.ValueOf(&d.values[i]).Elem()}
	}
	return entries
}

// AppendEntry implements Collection.
func (d *Dict[K, V]) AppendEntry(key any, value reflect.Value) {
	var v V
	if value.IsValid() {
		reflect.ValueOf(&v).Elem().Set(value)
	}
	d.Set(key.(K), v)
}

// RemoveKey implements Collection.
func (d *Dict[K, V]) RemoveKey(key any) {
	if k, ok := key.(K); ok {
		d.Delete(k, false)
	}
}

// Clear implements Collection.
func (d *Dict[K, V]) Clear() {
	d.keys, d.values, d.index = nil, nil, nil
}
