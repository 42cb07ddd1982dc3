// Package graph traverses object graphs of assets: it generates missing
// collection item ids, deep-clones graphs with their metadata, strips
// unloadable placeholders and rewrites asset references.
//
// Traversal follows exported struct members (as described by the descriptor
// package), pointers, interfaces, slices, arrays, maps and identifiable
// collections. Every pointer is visited once, so cyclic graphs terminate.
package graph

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/arthur-debert/assetyaml/assetyaml/descriptor"
	"github.com/arthur-debert/assetyaml/assetyaml/ids"
)

// SkipChildren may be returned by a WalkFunc to stop descending into the
// visited value.
var SkipChildren = errors.New("skip children")

// Visit describes a value reached by Walk.
type Visit struct {
	Path  Path
	Value reflect.Value
	// Member is the struct member holding Value, nil for roots and items.
	Member *descriptor.Member
	// Collection is set when Value is an identifiable collection.
	Collection ids.Collection
	// NonIdentifiable is set when the member holding a collection opts out
	// of item identity.
	NonIdentifiable bool
	// Item is set when Value is an item of an identifiable collection.
	Item bool
}

// WalkFunc is called for every value reached by Walk, before its children.
type WalkFunc func(v Visit) error

// Walk traverses the graph reachable from root in document order. Values
// held by maps and non-pointer values held by interfaces are not addressable;
// use WalkForUpdate to change them.
func Walk(root any, fn WalkFunc) error {
	w := &walker{fn: fn, seen: make(map[pointerKey]bool)}
	return w.walk(reflect.ValueOf(root), "", nil, false)
}

// WalkForUpdate is Walk for callbacks that modify the visited values. Map
// values and non-pointer values held by interfaces are visited as addressable
// copies, which are stored back once their children have been walked.
func WalkForUpdate(root any, fn WalkFunc) error {
	w := &walker{fn: fn, seen: make(map[pointerKey]bool), update: true}
	return w.walk(reflect.ValueOf(root), "", nil, false)
}

type pointerKey struct {
	ptr uintptr
	typ reflect.Type
}

type walker struct {
	fn     WalkFunc
	seen   map[pointerKey]bool
	update bool
}

func (w *walker) walk(v reflect.Value, path Path, member *descriptor.Member, item bool) error {
	if !v.IsValid() {
		return nil
	}

	visit := Visit{Path: path, Value: v, Member: member, Item: item}
	if c, ok := ids.AsCollection(v); ok {
		visit.Collection = c
		visit.NonIdentifiable = member != nil && member.NonIdentifiable
	}

	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return nil
		}
		key := pointerKey{v.Pointer(), v.Type()}
		if w.seen[key] {
			return nil
		}
		w.seen[key] = true
	case reflect.Interface:
		if v.IsNil() {
			return nil
		}
	case reflect.Struct:
		if visit.Collection != nil && v.CanAddr() {
			key := pointerKey{v.Addr().Pointer(), v.Addr().Type()}
			if w.seen[key] {
				return nil
			}
			w.seen[key] = true
		}
	}

	if err := w.fn(visit); err != nil {
		if errors.Is(err, SkipChildren) {
			return nil
		}
		return err
	}

	if v.Type() == unloadableType {
		return nil
	}
	if visit.Collection != nil {
		return w.walkCollection(visit.Collection, path, visit.NonIdentifiable)
	}

	switch v.Kind() {
	case reflect.Pointer:
		return w.walk(v.Elem(), path, member, item)

	case reflect.Interface:
		elem := v.Elem()
		if !w.update || !v.CanSet() || elem.Kind() == reflect.Pointer || isLeafKind(elem.Kind()) {
			return w.walk(elem, path, member, item)
		}
		held := reflect.New(elem.Type()).Elem()
		held.Set(elem)
		if err := w.walk(held, path, member, item); err != nil {
			return err
		}
		v.Set(held)

	case reflect.Struct:
		d, err := descriptor.Describe(v.Type())
		if err != nil {
			return err
		}
		for i := range d.Members {
			m := &d.Members[i]
			field, ok := m.Lookup(v)
			if !ok {
				continue
			}
			if err := w.walk(field, path.Member(m.Name), m, false); err != nil {
				return err
			}
		}

	case reflect.Slice, reflect.Array:
		if isLeafKind(v.Type().Elem().Kind()) {
			return nil
		}
		for i := 0; i < v.Len(); i++ {
			if err := w.walk(v.Index(i), path.Key(fmt.Sprint(i)), nil, false); err != nil {
				return err
			}
		}

	case reflect.Map:
		if isLeafKind(v.Type().Elem().Kind()) {
			return nil
		}
		if !w.update {
			iter := v.MapRange()
			for iter.Next() {
				if err := w.walk(iter.Value(), path.Key(fmt.Sprint(iter.Key().Interface())), nil, false); err != nil {
					return err
				}
			}
			return nil
		}
		for _, k := range v.MapKeys() {
			held := reflect.New(v.Type().Elem()).Elem()
			held.Set(v.MapIndex(k))
			if err := w.walk(held, path.Key(fmt.Sprint(k.Interface())), nil, false); err != nil {
				return err
			}
			v.SetMapIndex(k, held)
		}
	}
	return nil
}

func (w *walker) walkCollection(c ids.Collection, path Path, nonIdentifiable bool) error {
	var table *ids.CollectionItemIdentifiers
	if !nonIdentifiable {
		table, _ = ids.TryGetIdentifiers(c)
	}
	for _, e := range c.Entries() {
		itemPath := path.Key(fmt.Sprint(e.Key))
		if table != nil {
			if id, ok := table.TryGet(e.Key); ok {
				itemPath = path.Item(id)
			}
		}
		if err := w.walk(e.Value, itemPath, nil, true); err != nil {
			return err
		}
	}
	return nil
}

func isLeafKind(k reflect.Kind) bool {
	switch k {
	case reflect.Pointer, reflect.Interface, reflect.Struct, reflect.Slice, reflect.Array, reflect.Map:
		return false
	}
	return true
}
