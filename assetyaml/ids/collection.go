package ids

import (
	"reflect"

	"github.com/arthur-debert/assetyaml/assetyaml/shadow"
)

// Kind distinguishes sequence collections from mapping collections.
type Kind int

const (
	// Sequence collections are keyed by their int index.
	Sequence Kind = iota
	// Mapping collections are keyed by their natural key.
	Mapping
)

// Entry is one live item of a collection. Value is addressable, so callers
// walking the graph can rewrite it in place.
type Entry struct {
	Key   any
	Value reflect.Value
}

// Collection is the reflective view shared by List and Dict. The serializer,
// the graph walker and the id generator only use this interface.
type Collection interface {
	shadow.Carrier
	CollectionKind() Kind
	Len() int
	KeyType() reflect.Type
	ElemType() reflect.Type
	// Keys returns the live keys in collection order.
	Keys() []any
	// Entries returns the live items in collection order.
	Entries() []Entry
	// AppendEntry adds an item. For sequences key is ignored and the item is
	// appended; for mappings an existing key is overwritten in place.
	AppendEntry(key any, value reflect.Value)
	// RemoveKey removes the item under key, dropping its id without a
	// tombstone.
	RemoveKey(key any)
	// Clear removes every item without touching the side table.
	Clear()
}

// CollectionType is the reflect.Type of the Collection interface.
var CollectionType = reflect.TypeFor[Collection]()

// AsCollection returns v as a Collection when its type implements it. v may be
// a pointer to a List/Dict or an addressable List/Dict value.
func AsCollection(v reflect.Value) (Collection, bool) {
	if !v.IsValid() {
		return nil, false
	}
	if v.Kind() == reflect.Pointer {
		if v.IsNil() || !v.CanInterface() {
			return nil, false
		}
		c, ok := v.Interface().(Collection)
		return c, ok
	}
	if v.CanAddr() && v.Addr().CanInterface() {
		c, ok := v.Addr().Interface().(Collection)
		return c, ok
	}
	return nil, false
}

// IsCollectionType reports whether t (or *t) implements Collection.
func IsCollectionType(t reflect.Type) bool {
	if t.Implements(CollectionType) {
		return true
	}
	return t.Kind() != reflect.Pointer && reflect.PointerTo(t).Implements(CollectionType)
}
