package ids

import (
	"errors"
	"fmt"
	"slices"

	"github.com/arthur-debert/assetyaml/types"
)

// ErrDuplicateKey is returned by Add when the key already has an id.
var ErrDuplicateKey = errors.New("key already has an item id")

// CollectionItemIdentifiers maps the keys of one collection instance (list
// index or dictionary key) to ItemIDs, and remembers ids of deleted items.
//
// An id is never both active and deleted.
type CollectionItemIdentifiers struct {
	keyToID map[any]types.ItemID
	idToKey map[types.ItemID]any
	deleted map[types.ItemID]struct{}
}

// NewCollectionItemIdentifiers creates an empty table.
func NewCollectionItemIdentifiers() *CollectionItemIdentifiers {
	return &CollectionItemIdentifiers{
		keyToID: make(map[any]types.ItemID),
		idToKey: make(map[types.ItemID]any),
		deleted: make(map[types.ItemID]struct{}),
	}
}

// KeyCount returns the number of keys that have an id.
func (c *CollectionItemIdentifiers) KeyCount() int { return len(c.keyToID) }

// DeletedCount returns the number of tombstoned ids.
func (c *CollectionItemIdentifiers) DeletedCount() int { return len(c.deleted) }

// TryGet returns the id of key.
func (c *CollectionItemIdentifiers) TryGet(key any) (types.ItemID, bool) {
	id, ok := c.keyToID[key]
	return id, ok
}

// Get returns the id of key, or the empty id.
func (c *CollectionItemIdentifiers) Get(key any) types.ItemID {
	return c.keyToID[key]
}

// ContainsKey reports whether key has an id.
func (c *CollectionItemIdentifiers) ContainsKey(key any) bool {
	_, ok := c.keyToID[key]
	return ok
}

// TryGetKey returns the key currently holding id.
func (c *CollectionItemIdentifiers) TryGetKey(id types.ItemID) (any, bool) {
	key, ok := c.idToKey[id]
	return key, ok
}

// Set assigns id to key, replacing any previous id of key. Assigning a
// tombstoned id restores it.
func (c *CollectionItemIdentifiers) Set(key any, id types.ItemID) {
	if previous, ok := c.keyToID[key]; ok {
		delete(c.idToKey, previous)
	}
	if otherKey, ok := c.idToKey[id]; ok {
		delete(c.keyToID, otherKey)
	}
	delete(c.deleted, id)
	c.keyToID[key] = id
	c.idToKey[id] = key
}

// Add assigns id to a key that has none yet.
func (c *CollectionItemIdentifiers) Add(key any, id types.ItemID) error {
	if _, ok := c.keyToID[key]; ok {
		return fmt.Errorf("%w: %v", ErrDuplicateKey, key)
	}
	c.Set(key, id)
	return nil
}

// Insert shifts the ids of list indices >= index up by one and assigns id to index.
func (c *CollectionItemIdentifiers) Insert(index int, id types.ItemID) {
	c.shift(index, 1)
	c.Set(index, id)
}

// Delete removes the id of key. When markAsDeleted is set the id is kept as a
// tombstone.
func (c *CollectionItemIdentifiers) Delete(key any, markAsDeleted bool) (types.ItemID, bool) {
	id, ok := c.keyToID[key]
	if !ok {
		return types.EmptyItemID, false
	}
	delete(c.keyToID, key)
	delete(c.idToKey, id)
	if markAsDeleted {
		c.deleted[id] = struct{}{}
	}
	return id, true
}

// DeleteAndShift removes the id of a list index and shifts the following ids
// down by one.
func (c *CollectionItemIdentifiers) DeleteAndShift(index int, markAsDeleted bool) (types.ItemID, bool) {
	id, ok := c.Delete(index, markAsDeleted)
	c.shift(index+1, -1)
	return id, ok
}

// MarkAsDeleted tombstones id. If a key still holds id, that key loses it.
func (c *CollectionItemIdentifiers) MarkAsDeleted(id types.ItemID) {
	if key, ok := c.idToKey[id]; ok {
		delete(c.keyToID, key)
		delete(c.idToKey, id)
	}
	c.deleted[id] = struct{}{}
}

// UnmarkAsDeleted removes id from the tombstones.
func (c *CollectionItemIdentifiers) UnmarkAsDeleted(id types.ItemID) {
	delete(c.deleted, id)
}

// IsDeleted reports whether id is tombstoned.
func (c *CollectionItemIdentifiers) IsDeleted(id types.ItemID) bool {
	_, ok := c.deleted[id]
	return ok
}

// DeletedItems returns the tombstoned ids in ascending order.
func (c *CollectionItemIdentifiers) DeletedItems() []types.ItemID {
	out := make([]types.ItemID, 0, len(c.deleted))
	for id := range c.deleted {
		out = append(out, id)
	}
	slices.SortFunc(out, types.ItemID.Compare)
	return out
}

// Keys returns the keys that have an id, in no particular order.
func (c *CollectionItemIdentifiers) Keys() []any {
	out := make([]any, 0, len(c.keyToID))
	for k := range c.keyToID {
		out = append(out, k)
	}
	return out
}

// Contains reports whether id is used by a key or tombstoned.
func (c *CollectionItemIdentifiers) Contains(id types.ItemID) bool {
	if _, ok := c.idToKey[id]; ok {
		return true
	}
	return c.IsDeleted(id)
}

// Clear removes every id and tombstone.
func (c *CollectionItemIdentifiers) Clear() {
	clear(c.keyToID)
	clear(c.idToKey)
	clear(c.deleted)
}

// CloneInto copies every id and tombstone into target, replacing its content.
func (c *CollectionItemIdentifiers) CloneInto(target *CollectionItemIdentifiers) {
	target.Clear()
	for k, id := range c.keyToID {
		target.keyToID[k] = id
		target.idToKey[id] = k
	}
	for id := range c.deleted {
		target.deleted[id] = struct{}{}
	}
}

// Clone returns a copy of the table.
func (c *CollectionItemIdentifiers) Clone() *CollectionItemIdentifiers {
	out := NewCollectionItemIdentifiers()
	c.CloneInto(out)
	return out
}

// CloneShadow implements shadow.Cloner.
func (c *CollectionItemIdentifiers) CloneShadow() any { return c.Clone() }

// FindMissingKeys returns the keys among liveKeys that have no id, preserving
// the order of liveKeys.
func (c *CollectionItemIdentifiers) FindMissingKeys(liveKeys []any) []any {
	var missing []any
	for _, k := range liveKeys {
		if _, ok := c.keyToID[k]; !ok {
			missing = append(missing, k)
		}
	}
	return missing
}

// Validate checks the table invariants. For lists every key must be an index
// in [0, length).
func (c *CollectionItemIdentifiers) Validate(isList bool, length int) error {
	for k, id := range c.keyToID {
		if c.IsDeleted(id) {
			return fmt.Errorf("item id %s is both active and deleted", id)
		}
		if key, ok := c.idToKey[id]; !ok || key != k {
			return fmt.Errorf("item id %s is assigned to more than one key", id)
		}
		if isList {
			i, ok := k.(int)
			if !ok || i < 0 || i >= length {
				return fmt.Errorf("list key %v out of range [0,%d)", k, length)
			}
		}
	}
	return nil
}

// Fixup repairs a table that was left out of step with its collection, for
// example by resizing the items behind its back. Ids of keys missing from
// liveKeys are dropped, an id held by several keys stays with the first of
// them in liveKeys order, and active ids leave the tombstones. It returns the
// number of repairs; keys that lost their id need a new one.
func (c *CollectionItemIdentifiers) Fixup(liveKeys []any) int {
	fixed := 0
	live := make(map[any]bool, len(liveKeys))
	for _, k := range liveKeys {
		live[k] = true
	}
	for k := range c.keyToID {
		if !live[k] {
			delete(c.keyToID, k)
			fixed++
		}
	}

	owners := make(map[types.ItemID]any, len(c.keyToID))
	for _, k := range liveKeys {
		id, ok := c.keyToID[k]
		if !ok {
			continue
		}
		if _, taken := owners[id]; taken {
			delete(c.keyToID, k)
			fixed++
			continue
		}
		owners[id] = k
		if c.IsDeleted(id) {
			delete(c.deleted, id)
			fixed++
		}
	}
	c.idToKey = owners
	return fixed
}

// shift moves the ids of integer keys >= from by delta.
func (c *CollectionItemIdentifiers) shift(from, delta int) {
	type move struct {
		key int
		id  types.ItemID
	}
	var moves []move
	for k, id := range c.keyToID {
		if i, ok := k.(int); ok && i >= from {
			moves = append(moves, move{i, id})
		}
	}
	for _, m := range moves {
		delete(c.keyToID, m.key)
	}
	for _, m := range moves {
		c.keyToID[m.key+delta] = m.id
		c.idToKey[m.id] = m.key + delta
	}
}
