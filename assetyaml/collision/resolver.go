// Package collision makes a batch of asset items safe to add to a package:
// every output item gets an id and a location no other item uses, and
// references between the items follow the renames.
package collision

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/arthur-debert/assetyaml/assetyaml/asset"
	"github.com/arthur-debert/assetyaml/types"
	"golang.org/x/text/cases"
)

// Resolver decides which ids and locations are free. It remembers every id
// and location it hands out, so one Resolver serves one Clean run.
type Resolver struct {
	// AlwaysCreateNewID gives every input a fresh id, even when its id is
	// not used yet.
	AlwaysCreateNewID bool
	// CaseInsensitive compares locations after Unicode case folding.
	CaseInsensitive bool

	containsID       func(types.AssetID) bool
	containsLocation func(string) bool
	ids              map[types.AssetID]bool
	locations        map[string]bool
	fold             cases.Caser
}

// NewResolver creates a resolver that treats the ids and locations reported
// by the given functions as taken. Either function may be nil.
func NewResolver(containsLocation func(string) bool, containsID func(types.AssetID) bool) *Resolver {
	return &Resolver{
		containsID:       containsID,
		containsLocation: containsLocation,
		ids:              make(map[types.AssetID]bool),
		locations:        make(map[string]bool),
		fold:             cases.Fold(),
	}
}

// FromPackage creates a resolver that treats the ids and locations of pkg as
// taken.
func FromPackage(pkg *asset.Package) *Resolver {
	if pkg == nil {
		return NewResolver(nil, nil)
	}
	r := NewResolver(nil, pkg.ContainsID)
	r.containsLocation = func(location string) bool {
		if !r.CaseInsensitive {
			return pkg.ContainsLocation(location)
		}
		key := r.fold.String(location)
		for _, l := range pkg.Locations() {
			if r.fold.String(l) == key {
				return true
			}
		}
		return false
	}
	return r
}

func (r *Resolver) locationKey(location string) string {
	if r.CaseInsensitive {
		return r.fold.String(location)
	}
	return location
}

// ContainsID reports whether id is taken.
func (r *Resolver) ContainsID(id types.AssetID) bool {
	if r.ids[id] {
		return true
	}
	return r.containsID != nil && r.containsID(id)
}

// ContainsLocation reports whether location is taken.
func (r *Resolver) ContainsLocation(location string) bool {
	if r.locations[r.locationKey(location)] {
		return true
	}
	return r.containsLocation != nil && r.containsLocation(location)
}

// RegisterID claims id and reports whether it could be kept. When it cannot,
// the caller must assign a new id and register that one instead.
func (r *Resolver) RegisterID(id types.AssetID) bool {
	if id.IsEmpty() || r.AlwaysCreateNewID || r.ContainsID(id) {
		return false
	}
	r.ids[id] = true
	return true
}

// NewID returns a fresh id and claims it.
func (r *Resolver) NewID() types.AssetID {
	id := types.NewAssetID()
	for r.ContainsID(id) {
		id = types.NewAssetID()
	}
	r.ids[id] = true
	return id
}

var suffixPattern = regexp.MustCompile(`^(.*) \((\d+)\)$`)

// RegisterLocation claims location, or the first free variant of it when it
// is taken, and returns the location claimed. Variants number from 2 on the
// location stripped of any existing " (n)" suffix: "wood", "wood (2)",
// "wood (3)".
func (r *Resolver) RegisterLocation(location string) string {
	if !r.ContainsLocation(location) {
		r.locations[r.locationKey(location)] = true
		return location
	}
	base := location
	if m := suffixPattern.FindStringSubmatch(location); m != nil {
		base = m[1]
	}
	for n := 2; ; n++ {
		candidate := base + " (" + strconv.Itoa(n) + ")"
		if !r.ContainsLocation(candidate) {
			r.locations[r.locationKey(candidate)] = true
			return candidate
		}
	}
}

// String implements fmt.Stringer.
func (r *Resolver) String() string {
	return fmt.Sprintf("resolver(%d ids, %d locations, alwaysNew=%t)", len(r.ids), len(r.locations), r.AlwaysCreateNewID)
}
