package graph

import (
	"reflect"

	"github.com/arthur-debert/assetyaml/assetyaml/ids"
	"github.com/arthur-debert/assetyaml/assetyaml/placeholder"
	"github.com/arthur-debert/assetyaml/assetyaml/shadow"
)

// HasUnloadable reports whether any unloadable placeholder is reachable from
// root.
func HasUnloadable(root any) bool {
	found := false
	err := Walk(root, func(v Visit) error {
		if isUnloadable(v.Value) || placeholder.Count(carrierOf(v)) > 0 {
			found = true
		}
		return nil
	})
	logWalkError("find unloadable", err)
	return found
}

// RemoveUnloadable clears every unloadable placeholder reachable from root:
// interface slots holding one are set to nil, collection items holding one are
// removed and side records are dropped. It returns the number of placeholders
// removed.
func RemoveUnloadable(root any) int {
	type pending struct {
		coll ids.Collection
		keys []any
	}
	var (
		removed     int
		collections []pending
	)
	err := WalkForUpdate(root, func(v Visit) error {
		if v.Collection != nil {
			var keys []any
			for _, e := range v.Collection.Entries() {
				if isUnloadable(e.Value) {
					keys = append(keys, e.Key)
					continue
				}
				if _, ok := placeholder.Lookup(v.Collection, placeholder.Key{Item: e.Key}); ok {
					keys = append(keys, e.Key)
				}
			}
			placeholder.DetachAll(v.Collection)
			removed += len(keys)
			if len(keys) > 0 {
				collections = append(collections, pending{v.Collection, keys})
			}
			return nil
		}
		if isUnloadable(v.Value) && v.Value.Kind() == reflect.Interface && v.Value.CanSet() && !v.Item {
			v.Value.Set(reflect.Zero(v.Value.Type()))
			removed++
			return SkipChildren
		}
		if owner := carrierOf(v); owner != nil {
			removed += placeholder.DetachAll(owner)
		}
		return nil
	})
	logWalkError("remove unloadable", err)

	for _, p := range collections {
		// Remove from the end so list indices stay valid
		for i := len(p.keys) - 1; i >= 0; i-- {
			p.coll.RemoveKey(p.keys[i])
		}
	}
	return removed
}

func isUnloadable(v reflect.Value) bool {
	for v.IsValid() && v.Kind() == reflect.Interface {
		if v.IsNil() {
			return false
		}
		v = v.Elem()
	}
	return v.IsValid() && v.Type() == unloadableType && !v.IsNil()
}

func carrierOf(v Visit) shadow.Carrier {
	val := v.Value
	if val.Kind() == reflect.Pointer {
		if val.IsNil() || !val.CanInterface() {
			return nil
		}
		c, _ := val.Interface().(shadow.Carrier)
		return c
	}
	if val.Kind() == reflect.Struct && val.CanAddr() && val.Addr().CanInterface() {
		c, _ := val.Addr().Interface().(shadow.Carrier)
		return c
	}
	return nil
}
