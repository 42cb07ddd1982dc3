package graph

import (
	"github.com/arthur-debert/assetyaml/assetyaml/ids"
	"github.com/arthur-debert/assetyaml/types"
)

// IDGenerator produces fresh item ids.
type IDGenerator func() types.ItemID

// GenerateMissingItemIDs gives an id to every live item of every identifiable
// collection reachable from root that has none yet. It returns the number of
// ids generated; a second call on an unchanged graph returns 0.
func GenerateMissingItemIDs(root any) (int, error) {
	return GenerateMissingItemIDsWith(root, types.NewItemID)
}

// GenerateMissingItemIDsWith is GenerateMissingItemIDs with a custom id
// source. Ids already used or tombstoned in a collection are never handed out
// again for that collection.
func GenerateMissingItemIDsWith(root any, gen IDGenerator) (int, error) {
	if !ids.Enabled() {
		return 0, nil
	}
	generated := 0
	err := Walk(root, func(v Visit) error {
		if v.Collection == nil || v.NonIdentifiable {
			return nil
		}
		generated += EnsureItemIDs(v.Collection, gen)
		return nil
	})
	return generated, err
}

// EnsureItemIDs gives an id to every live item of c that has none and returns
// how many were generated.
func EnsureItemIDs(c ids.Collection, gen IDGenerator) int {
	if c.Len() == 0 {
		if _, ok := ids.TryGetIdentifiers(c); !ok {
			return 0
		}
	}
	table := ids.GetOrCreateIdentifiers(c)
	missing := table.FindMissingKeys(c.Keys())
	for _, key := range missing {
		id := gen()
		for id.IsEmpty() || table.Contains(id) {
			id = gen()
		}
		table.Set(key, id)
	}
	return len(missing)
}
