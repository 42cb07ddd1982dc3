// Package asset defines asset roots, the items that place them at a location
// inside a package, and packages themselves.
package asset

import (
	"github.com/arthur-debert/assetyaml/assetyaml/graph"
	"github.com/arthur-debert/assetyaml/assetyaml/ids"
	"github.com/arthur-debert/assetyaml/assetyaml/shadow"
	"github.com/arthur-debert/assetyaml/types"
	"github.com/google/uuid"
)

// Asset is the root object of an asset document.
type Asset interface {
	types.Identifiable
	AssetID() types.AssetID
	SetAssetID(id types.AssetID)
}

// Base carries the members shared by every asset. Concrete asset types embed
// it first:
//
//	type Material struct {
//	    asset.Base
//	    Layers *ids.List[*Layer]
//	}
type Base struct {
	shadow.Slot
	ID        types.AssetID         `asset:"Id"`
	Archetype *types.AssetReference `asset:",omitempty"`
	Tags      *ids.List[string]     `asset:",omitempty"`
}

// AssetID implements Asset.
func (b *Base) AssetID() types.AssetID { return b.ID }

// SetAssetID implements Asset.
func (b *Base) SetAssetID(id types.AssetID) { b.ID = id }

// ObjectID implements types.Identifiable.
func (b *Base) ObjectID() uuid.UUID { return uuid.UUID(b.ID) }

// Cloner is implemented by assets whose state is not held in exported fields
// and which therefore cannot be copied by graph.Clone.
type Cloner interface {
	CloneAsset() Asset
}

// ReferenceHolder is implemented by assets that keep references outside Go
// fields of type types.AssetReference.
type ReferenceHolder interface {
	References() []types.AssetReference
	RewriteReferences(fn graph.ReferenceFunc) int
}

// ItemIDFixer is implemented by assets that repair and complete their
// collection item ids themselves.
type ItemIDFixer interface {
	FixupItemIDs(gen graph.IDGenerator) int
}

// FixupItemIDs repairs the collection item id tables of a, then gives an id
// to every item that has none. It returns the number of ids changed.
func FixupItemIDs(a Asset) (int, error) {
	if a == nil {
		return 0, nil
	}
	if f, ok := a.(ItemIDFixer); ok {
		return f.FixupItemIDs(types.NewItemID), nil
	}
	fixed, err := graph.FixupItemIDs(a)
	if err != nil {
		return fixed, err
	}
	generated, err := graph.GenerateMissingItemIDs(a)
	return fixed + generated, err
}

// Clone deep-copies a, keeping collection item ids, overrides and unloadable
// records.
func Clone(a Asset) Asset {
	if a == nil {
		return nil
	}
	if c, ok := a.(Cloner); ok {
		return c.CloneAsset()
	}
	return graph.Clone(a)
}

// References returns every asset reference held by a, in document order.
func References(a Asset) []types.AssetReference {
	if a == nil {
		return nil
	}
	if h, ok := a.(ReferenceHolder); ok {
		return h.References()
	}
	return graph.CollectReferences(a)
}

// RewriteReferences applies fn to every reference held by a and returns the
// number changed.
func RewriteReferences(a Asset, fn graph.ReferenceFunc) int {
	if a == nil {
		return 0
	}
	if h, ok := a.(ReferenceHolder); ok {
		return h.RewriteReferences(fn)
	}
	return graph.RewriteReferences(a, fn)
}
