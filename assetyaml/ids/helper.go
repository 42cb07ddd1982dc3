// Package ids tracks stable per-item identities of identifiable collections.
//
// Identity lives in a side table (CollectionItemIdentifiers) attached to the
// collection instance through the shadow registry, so collections keep plain
// value semantics and two equal collections never share ids.
package ids

import (
	"github.com/arthur-debert/assetyaml/assetyaml/shadow"
)

type identifiersKey struct{}

// TryGetIdentifiers returns the side table of c without creating one.
func TryGetIdentifiers(c shadow.Carrier) (*CollectionItemIdentifiers, bool) {
	v, ok := shadow.Default.Lookup(c, identifiersKey{})
	if !ok {
		return nil, false
	}
	return v.(*CollectionItemIdentifiers), true
}

// GetOrCreateIdentifiers returns the side table of c, registering an empty one
// on first use. When tracking is disabled the returned table is detached.
func GetOrCreateIdentifiers(c shadow.Carrier) *CollectionItemIdentifiers {
	v := shadow.Default.LoadOrStore(c, identifiersKey{}, func() any {
		return NewCollectionItemIdentifiers()
	})
	return v.(*CollectionItemIdentifiers)
}

// SetIdentifiers replaces the side table of c.
func SetIdentifiers(c shadow.Carrier, table *CollectionItemIdentifiers) {
	shadow.Default.Store(c, identifiersKey{}, table)
}

// RemoveIdentifiers drops the side table of c.
func RemoveIdentifiers(c shadow.Carrier) {
	shadow.Default.Delete(c, identifiersKey{})
}

// Enabled reports whether identity tracking is on.
func Enabled() bool { return shadow.Default.Enabled() }
