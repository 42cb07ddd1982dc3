package collision

import (
	"fmt"
	"log/slog"

	"github.com/arthur-debert/assetyaml/assetyaml/asset"
	"github.com/arthur-debert/assetyaml/assetyaml/graph"
)

// ValidateOptions configures ValidateAssets.
type ValidateOptions struct {
	AlwaysCreateNewID       bool
	CaseInsensitive         bool
	RemoveUnloadableObjects bool
	Logger                  *slog.Logger
}

// ValidateAssets moves the temporary assets of pkg into it, cleaning them
// against the assets it already holds. Then, for every asset in pkg, it
// repairs collection item ids and gives an item id to every collection item
// that has none, and renumbers identifiable objects whose id is used twice in
// the asset. Items that changed are marked dirty.
func ValidateAssets(pkg *asset.Package, opts ValidateOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if len(pkg.TemporaryAssets) > 0 {
		resolver := FromPackage(pkg)
		resolver.AlwaysCreateNewID = opts.AlwaysCreateNewID
		resolver.CaseInsensitive = opts.CaseInsensitive
		outputs, err := Clean(pkg, pkg.TemporaryAssets, resolver, Options{
			RemoveUnloadableObjects: opts.RemoveUnloadableObjects,
			Logger:                  logger,
		})
		if err != nil {
			return fmt.Errorf("failed to clean temporary assets: %w", err)
		}
		pkg.TemporaryAssets = nil
		for _, item := range outputs {
			if err := pkg.Add(item); err != nil {
				return err
			}
			item.Dirty = true
		}
	}

	for _, item := range pkg.Items() {
		n, err := asset.FixupItemIDs(item.Asset)
		if err != nil {
			return fmt.Errorf("%s: failed to fix item ids: %w", item.Location, err)
		}
		if n > 0 {
			logger.Debug("fixed item ids", "location", item.Location, "count", n)
			item.Dirty = true
		}

		renumbered, left, err := graph.FixupDuplicateObjects(item.Asset)
		if err != nil {
			return fmt.Errorf("%s: failed to check object ids: %w", item.Location, err)
		}
		if renumbered > 0 {
			logger.Debug("renumbered duplicate objects", "location", item.Location, "count", renumbered)
			item.Dirty = true
		}
		for _, d := range left {
			logger.Warn("duplicate object id",
				"location", item.Location,
				"id", d.ID.String(),
				"path", d.Path.String(),
				"first", d.First.String())
		}
	}
	return nil
}
