// Package placeholder holds the unloadable stand-in used when part of a
// document cannot be mapped onto Go types.
package placeholder

import (
	"maps"

	"github.com/arthur-debert/assetyaml/assetyaml/shadow"
	"github.com/arthur-debert/assetyaml/types"
	"gopkg.in/yaml.v3"
)

// Unloadable keeps the original document subtree of a value whose type tag is
// unknown or whose content does not fit its declared type. Emitting it again
// reproduces the original text.
type Unloadable struct {
	// Tag is the type tag found in the document, if any.
	Tag string
	// Node is the original subtree, override glyphs stripped.
	Node *yaml.Node
	// Overrides are the key overrides found inside Node.
	Overrides map[*yaml.Node]types.OverrideType
	// Reason describes why the value could not be loaded.
	Reason string
}

func (u *Unloadable) String() string {
	if u.Tag != "" {
		return "unloadable " + u.Tag + ": " + u.Reason
	}
	return "unloadable value: " + u.Reason
}

// Key names the slot an Unloadable replaces on its owner: a member name for
// objects, an item key for collections.
type Key struct {
	Member string
	Item   any
}

type recordsKey struct{}

// Records are the unloadable values attached to one owner.
type Records map[Key]*Unloadable

// CloneShadow implements shadow.Cloner.
func (r Records) CloneShadow() any { return maps.Clone(r) }

// Attach records u as the content of slot k on owner. It is used when the slot
// has a concrete type that cannot hold an *Unloadable.
func Attach(owner shadow.Carrier, k Key, u *Unloadable) {
	recs := shadow.Default.LoadOrStore(owner, recordsKey{}, func() any { return Records{} }).(Records)
	recs[k] = u
}

// Lookup returns the Unloadable recorded for slot k.
func Lookup(owner shadow.Carrier, k Key) (*Unloadable, bool) {
	v, ok := shadow.Default.Lookup(owner, recordsKey{})
	if !ok {
		return nil, false
	}
	u, ok := v.(Records)[k]
	return u, ok
}

// Detach forgets the Unloadable recorded for slot k.
func Detach(owner shadow.Carrier, k Key) {
	v, ok := shadow.Default.Lookup(owner, recordsKey{})
	if !ok {
		return
	}
	recs := v.(Records)
	delete(recs, k)
	if len(recs) == 0 {
		shadow.Default.Delete(owner, recordsKey{})
	}
}

// DetachAll forgets every Unloadable of owner and returns how many there were.
func DetachAll(owner shadow.Carrier) int {
	v, ok := shadow.Default.Lookup(owner, recordsKey{})
	if !ok {
		return 0
	}
	shadow.Default.Delete(owner, recordsKey{})
	return len(v.(Records))
}

// Count returns the number of Unloadable records attached to owner.
func Count(owner shadow.Carrier) int {
	v, ok := shadow.Default.Lookup(owner, recordsKey{})
	if !ok {
		return 0
	}
	return len(v.(Records))
}
