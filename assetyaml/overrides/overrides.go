// Package overrides records archetype override flags for object members and
// collection items.
//
// Flags are attached to their owner through the shadow registry. Object members
// are keyed by their serialized member name; collection items by their ItemID.
// A key without a recorded flag is Base.
package overrides

import (
	"maps"
	"slices"
	"strings"

	"github.com/arthur-debert/assetyaml/assetyaml/shadow"
	"github.com/arthur-debert/assetyaml/types"
)

type overridesKey struct{}

// Set is the override flags of one owner.
type Set map[any]types.OverrideType

// CloneShadow implements shadow.Cloner.
func (s Set) CloneShadow() any { return maps.Clone(s) }

// Get returns the override of key on owner, Base when unset.
func Get(owner shadow.Carrier, key any) types.OverrideType {
	v, ok := shadow.Default.Lookup(owner, overridesKey{})
	if !ok {
		return types.OverrideBase
	}
	return v.(Set)[key]
}

// SetOverride records the override of key on owner. Setting Base removes the
// entry.
func SetOverride(owner shadow.Carrier, key any, o types.OverrideType) {
	if o == types.OverrideBase {
		Remove(owner, key)
		return
	}
	set := shadow.Default.LoadOrStore(owner, overridesKey{}, func() any { return Set{} }).(Set)
	set[key] = o
}

// Remove clears the override of key on owner.
func Remove(owner shadow.Carrier, key any) {
	v, ok := shadow.Default.Lookup(owner, overridesKey{})
	if !ok {
		return
	}
	set := v.(Set)
	delete(set, key)
	if len(set) == 0 {
		shadow.Default.Delete(owner, overridesKey{})
	}
}

// All returns a copy of every override recorded on owner.
func All(owner shadow.Carrier) Set {
	v, ok := shadow.Default.Lookup(owner, overridesKey{})
	if !ok {
		return nil
	}
	return maps.Clone(v.(Set))
}

// Clear removes every override recorded on owner.
func Clear(owner shadow.Carrier) {
	shadow.Default.Delete(owner, overridesKey{})
}

// Describe renders the overrides of owner as "key=Flags" pairs sorted by key,
// for logs and CLI output.
func Describe(owner shadow.Carrier) string {
	set := All(owner)
	if len(set) == 0 {
		return ""
	}
	parts := make([]string, 0, len(set))
	for k, o := range set {
		parts = append(parts, keyString(k)+"="+o.String())
	}
	slices.Sort(parts)
	return strings.Join(parts, " ")
}

func keyString(k any) string {
	switch k := k.(type) {
	case string:
		return k
	case types.ItemID:
		return k.String()
	}
	return "?"
}
