package asset

import (
	"errors"
	"fmt"

	"github.com/arthur-debert/assetyaml/types"
)

var (
	// ErrDuplicateID is returned when a package already holds an asset with
	// the same id.
	ErrDuplicateID = errors.New("asset id already in package")
	// ErrDuplicateLocation is returned when a package already holds an asset
	// at the same location.
	ErrDuplicateLocation = errors.New("asset location already in package")
	// ErrAttached is returned when adding an item that belongs to another
	// package.
	ErrAttached = errors.New("item belongs to another package")
)

// Package is a named set of asset items indexed by id and location. The zero
// Package is empty and ready to use.
type Package struct {
	Name string
	// TemporaryAssets holds items produced while loading or upgrading that
	// are not yet part of the package.
	TemporaryAssets []*Item

	items      []*Item
	byID       map[types.AssetID]*Item
	byLocation map[string]*Item
}

// NewPackage creates an empty package.
func NewPackage(name string) *Package {
	return &Package{
		Name:       name,
		byID:       make(map[types.AssetID]*Item),
		byLocation: make(map[string]*Item),
	}
}

// Add inserts item. It fails when the id or the location is taken.
func (p *Package) Add(item *Item) error {
	if item.pkg != nil && item.pkg != p {
		return fmt.Errorf("%s: %w", item.Location, ErrAttached)
	}
	id := item.ID()
	if !id.IsEmpty() {
		if _, ok := p.byID[id]; ok {
			return fmt.Errorf("%s: %w: %s", item.Location, ErrDuplicateID, id)
		}
	}
	if _, ok := p.byLocation[item.Location]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateLocation, item.Location)
	}
	if p.byID == nil {
		p.byID = make(map[types.AssetID]*Item)
	}
	if p.byLocation == nil {
		p.byLocation = make(map[string]*Item)
	}
	if !id.IsEmpty() {
		p.byID[id] = item
	}
	p.byLocation[item.Location] = item
	p.items = append(p.items, item)
	item.pkg = p
	return nil
}

// Remove detaches item and reports whether it was in the package.
func (p *Package) Remove(item *Item) bool {
	for i, it := range p.items {
		if it != item {
			continue
		}
		p.items = append(p.items[:i], p.items[i+1:]...)
		if p.byID[item.ID()] == item {
			delete(p.byID, item.ID())
		}
		if p.byLocation[item.Location] == item {
			delete(p.byLocation, item.Location)
		}
		item.pkg = nil
		return true
	}
	return false
}

// Find returns the item with the given asset id.
func (p *Package) Find(id types.AssetID) (*Item, bool) {
	item, ok := p.byID[id]
	return item, ok
}

// FindByLocation returns the item at location.
func (p *Package) FindByLocation(location string) (*Item, bool) {
	item, ok := p.byLocation[location]
	return item, ok
}

// ContainsID reports whether an item with the given id is in the package.
func (p *Package) ContainsID(id types.AssetID) bool {
	_, ok := p.byID[id]
	return ok
}

// ContainsLocation reports whether an item sits at location.
func (p *Package) ContainsLocation(location string) bool {
	_, ok := p.byLocation[location]
	return ok
}

// Items returns the items in insertion order.
func (p *Package) Items() []*Item { return p.items }

// Len returns the number of items.
func (p *Package) Len() int { return len(p.items) }

// Locations returns every location in insertion order.
func (p *Package) Locations() []string {
	out := make([]string, len(p.items))
	for i, item := range p.items {
		out[i] = item.Location
	}
	return out
}

// Dirty returns the items marked dirty.
func (p *Package) Dirty() []*Item {
	var out []*Item
	for _, item := range p.items {
		if item.Dirty {
			out = append(out, item)
		}
	}
	return out
}

// Reindex rebuilds the id and location indexes after assets were renamed or
// given new ids in place.
func (p *Package) Reindex() error {
	p.byID = make(map[types.AssetID]*Item, len(p.items))
	p.byLocation = make(map[string]*Item, len(p.items))
	for _, item := range p.items {
		if id := item.ID(); !id.IsEmpty() {
			if _, ok := p.byID[id]; ok {
				return fmt.Errorf("%s: %w: %s", item.Location, ErrDuplicateID, id)
			}
			p.byID[id] = item
		}
		if _, ok := p.byLocation[item.Location]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateLocation, item.Location)
		}
		p.byLocation[item.Location] = item
	}
	return nil
}
