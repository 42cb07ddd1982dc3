package graph

import (
	"reflect"

	"github.com/arthur-debert/assetyaml/assetyaml/ids"
	"github.com/arthur-debert/assetyaml/types"
	"github.com/google/uuid"
)

// FixupItemIDs repairs the id tables of the identifiable collections reachable
// from root (see ids.CollectionItemIdentifiers.Fixup) and returns the number
// of repairs. Items that lost their id are left without one for
// GenerateMissingItemIDs.
func FixupItemIDs(root any) (int, error) {
	fixed := 0
	err := Walk(root, func(v Visit) error {
		if v.Collection == nil || v.NonIdentifiable {
			return nil
		}
		if table, ok := ids.TryGetIdentifiers(v.Collection); ok {
			fixed += table.Fixup(v.Collection.Keys())
		}
		return nil
	})
	return fixed, err
}

// ObjectIDSetter is implemented by identifiable objects whose id can be
// replaced.
type ObjectIDSetter interface {
	types.Identifiable
	SetObjectID(id uuid.UUID)
}

// Duplicate is an identifiable object whose id is already used by another
// object of the same graph.
type Duplicate struct {
	ID uuid.UUID
	// Path of the object, and First of the object that kept the id.
	Path  Path
	First Path
}

// FixupDuplicateObjects gives a new id to every identifiable object reachable
// from root whose id is used by an object met earlier. It returns the number
// of objects renumbered and the duplicates it could not renumber because they
// do not implement ObjectIDSetter. An object reached through several pointers
// is one object.
func FixupDuplicateObjects(root any) (int, []Duplicate, error) {
	seen := make(map[uuid.UUID]Path)
	var left []Duplicate
	fixed := 0
	err := Walk(root, func(v Visit) error {
		if v.Value.Kind() != reflect.Pointer || v.Value.IsNil() || !v.Value.CanInterface() {
			return nil
		}
		obj, ok := v.Value.Interface().(types.Identifiable)
		if !ok {
			return nil
		}
		id := obj.ObjectID()
		if id == uuid.Nil {
			return nil
		}
		first, dup := seen[id]
		if !dup {
			seen[id] = v.Path
			return nil
		}
		setter, ok := obj.(ObjectIDSetter)
		if !ok {
			left = append(left, Duplicate{ID: id, Path: v.Path, First: first})
			return nil
		}
		fresh := uuid.New()
		for _, taken := seen[fresh]; taken; _, taken = seen[fresh] {
			fresh = uuid.New()
		}
		setter.SetObjectID(fresh)
		seen[fresh] = v.Path
		fixed++
		return nil
	})
	return fixed, left, err
}
