package graph

import (
	"log/slog"
	"reflect"

	"github.com/arthur-debert/assetyaml/types"
)

var referenceType = reflect.TypeFor[types.AssetReference]()

// ReferenceFunc returns the replacement for ref and whether it changed.
type ReferenceFunc func(ref types.AssetReference) (types.AssetReference, bool)

// RewriteReferences applies fn to every AssetReference reachable from root,
// including those held by map values, and returns the number of references
// changed.
func RewriteReferences(root any, fn ReferenceFunc) int {
	changed := 0
	err := WalkForUpdate(root, func(v Visit) error {
		if v.Value.Type() != referenceType {
			return nil
		}
		if !v.Value.CanSet() {
			return SkipChildren
		}
		ref := v.Value.Interface().(types.AssetReference)
		if updated, ok := fn(ref); ok {
			v.Value.Set(reflect.ValueOf(updated))
			changed++
		}
		return SkipChildren
	})
	logWalkError("rewrite references", err)
	return changed
}

// CollectReferences returns every AssetReference reachable from root in
// document order.
func CollectReferences(root any) []types.AssetReference {
	var refs []types.AssetReference
	err := Walk(root, func(v Visit) error {
		if v.Value.Type() != referenceType {
			return nil
		}
		refs = append(refs, v.Value.Interface().(types.AssetReference))
		return SkipChildren
	})
	logWalkError("collect references", err)
	return refs
}

// logWalkError reports a traversal that stopped early. The result of the
// operation covers the part of the graph walked so far.
func logWalkError(op string, err error) {
	if err != nil {
		slog.Default().Warn("graph walk stopped", "operation", op, "error", err)
	}
}
