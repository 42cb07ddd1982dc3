package collision

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/arthur-debert/assetyaml/assetyaml/asset"
	"github.com/arthur-debert/assetyaml/assetyaml/graph"
	"github.com/arthur-debert/assetyaml/types"
)

var (
	// ErrNilResolver is returned when Clean is called without a resolver.
	ErrNilResolver = errors.New("collision resolver is nil")
	// ErrNilItem is returned for a nil input item.
	ErrNilItem = errors.New("asset item is nil")
	// ErrNilAsset is returned for an input item without an asset.
	ErrNilAsset = errors.New("asset item has no asset")
	// ErrMissingLocation is returned for an input item without a location.
	ErrMissingLocation = errors.New("asset item has no location")
)

// PreconditionError reports an input that Clean cannot work with.
type PreconditionError struct {
	Index int
	Err   error
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("input %d: %v", e.Index, e.Err)
}

func (e *PreconditionError) Unwrap() error {
	return e.Err
}

// Options configures Clean.
type Options struct {
	// CloneInput works on deep copies and leaves the inputs untouched.
	CloneInput bool
	// RemoveUnloadableObjects strips unloadable placeholders from the
	// outputs.
	RemoveUnloadableObjects bool
	Logger                  *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// Clean returns one output per input, in input order, such that no two
// outputs and nothing the resolver already knows share an id or a location.
//
// For each input id the first input that may keep it does; every other input
// with that id gets a new one. With Resolver.AlwaysCreateNewID, or when the id
// is already taken, all of them do. Taken locations get a " (n)" suffix.
// References held by the outputs are then pointed at the outputs they meant:
// a reference to a renumbered id follows the first output that had it, and
// its location is set to that output's final location.
//
// pkg may be nil; it only names the target package in log output, the
// resolver decides what is taken.
func Clean(pkg *asset.Package, inputs []*asset.Item, resolver *Resolver, opts Options) ([]*asset.Item, error) {
	if resolver == nil {
		return nil, ErrNilResolver
	}
	for i, item := range inputs {
		switch {
		case item == nil:
			return nil, &PreconditionError{Index: i, Err: ErrNilItem}
		case item.Asset == nil:
			return nil, &PreconditionError{Index: i, Err: ErrNilAsset}
		case item.Location == "":
			return nil, &PreconditionError{Index: i, Err: ErrMissingLocation}
		}
	}

	log := opts.logger()
	if pkg != nil {
		log = log.With("package", pkg.Name)
	}

	outputs := make([]*asset.Item, len(inputs))
	changed := make([]bool, len(inputs))
	for i, item := range inputs {
		if opts.CloneInput {
			item = item.Clone()
		}
		if opts.RemoveUnloadableObjects {
			if n := graph.RemoveUnloadable(item.Asset); n > 0 {
				log.Debug("removed unloadable objects", "location", item.Location, "count", n)
				changed[i] = true
			}
		}
		outputs[i] = item
	}

	// Ids, in input order
	idRemap := make(map[types.AssetID]types.AssetID)
	for i, item := range outputs {
		old := item.ID()
		if resolver.RegisterID(old) {
			if _, ok := idRemap[old]; !ok {
				idRemap[old] = old
			}
			continue
		}
		id := resolver.NewID()
		item.Asset.SetAssetID(id)
		changed[i] = true
		if _, ok := idRemap[old]; !ok && !old.IsEmpty() {
			idRemap[old] = id
		}
		log.Debug("assigned new asset id", "location", item.Location, "old", old.String(), "new", id.String())
	}

	// Locations, in input order
	locationRemap := make(map[string]string)
	for i, item := range outputs {
		old := item.Location
		item.Location = resolver.RegisterLocation(old)
		if item.Location != old {
			changed[i] = true
			log.Debug("relocated asset", "id", item.ID().String(), "old", old, "new", item.Location)
		}
		if _, ok := locationRemap[old]; !ok {
			locationRemap[old] = item.Location
		}
	}

	byID := make(map[types.AssetID]*asset.Item, len(outputs))
	for _, item := range outputs {
		byID[item.ID()] = item
	}

	fix := func(ref types.AssetReference) (types.AssetReference, bool) {
		if ref.ID.IsEmpty() {
			location, ok := locationRemap[ref.Location]
			if !ok || location == ref.Location {
				return ref, false
			}
			return types.AssetReference{Location: location}, true
		}
		id := ref.ID
		if mapped, ok := idRemap[id]; ok {
			id = mapped
		}
		target, ok := byID[id]
		if !ok {
			return ref, false
		}
		updated := target.Reference()
		return updated, updated != ref
	}

	rewritten := 0
	for i, item := range outputs {
		if n := asset.RewriteReferences(item.Asset, fix); n > 0 {
			rewritten += n
			changed[i] = true
		}
		if changed[i] {
			item.Dirty = true
		}
	}

	log.Debug("cleaned assets", "count", len(outputs), "references", rewritten)
	return outputs, nil
}
