package asset

import (
	"github.com/arthur-debert/assetyaml/types"
)

// Item places an asset at a location. Locations are slash separated paths
// without extension, unique inside a package.
type Item struct {
	Location string
	Asset    Asset
	// Dirty is set when the asset changed since it was loaded.
	Dirty bool

	pkg *Package
}

// NewItem creates an item for a at location.
func NewItem(location string, a Asset) *Item {
	return &Item{Location: location, Asset: a}
}

// ID returns the asset id, empty when the item holds no asset.
func (i *Item) ID() types.AssetID {
	if i.Asset == nil {
		return types.EmptyAssetID
	}
	return i.Asset.AssetID()
}

// Reference returns a reference to the item.
func (i *Item) Reference() types.AssetReference {
	return types.AssetReference{ID: i.ID(), Location: i.Location}
}

// Package returns the package holding the item, nil when detached.
func (i *Item) Package() *Package { return i.pkg }

// Clone returns a detached copy of the item with a deep copy of its asset.
func (i *Item) Clone() *Item {
	return &Item{Location: i.Location, Asset: Clone(i.Asset), Dirty: i.Dirty}
}

// String implements fmt.Stringer.
func (i *Item) String() string {
	return i.Location + " (" + i.ID().String() + ")"
}
