// Package shadow is the process-wide side-table that attaches metadata
// (collection item ids, override flags, unloadable records) to object
// instances without changing their value or extending their lifetime.
//
// Owners embed a Slot. The slot lazily receives a small token; the registry
// keys its entries by a weak pointer to that token and removes an entry once
// the token, and therefore its owner, has been garbage collected. Two owners
// with equal contents are still distinct entries.
//
// The registry is safe for concurrent use by independent documents. Metadata
// values themselves are not synchronized: a given owner must only be mutated
// by one goroutine at a time.
package shadow

import (
	"runtime"
	"sync"
	"sync/atomic"
	"weak"
)

// token is the identity allocated for one owner. It must stay at least 16
// bytes: smaller pointer-free objects go through the tiny allocator, share a
// block with other allocations and never get their cleanup run.
type token struct {
	seq uint64
	_   [16]byte
}

// Slot is embedded (by value) in types that can carry shadow metadata.
// A Slot must not be copied after first use; copies share the identity.
type Slot struct {
	tok *token
}

// Carrier is implemented by any type embedding a Slot.
type Carrier interface {
	shadowSlot() *Slot
}

func (s *Slot) shadowSlot() *Slot { return s }

// Reset detaches the slot from its registry entry. Used when cloning values
// whose Slot was copied along with the rest of the struct.
func (s *Slot) Reset() { s.tok = nil }

// Handle is an opaque, comparable name for one owner instance.
type Handle = weak.Pointer[token]

// Registry maps owner handles to their attached values.
type Registry struct {
	mu      sync.Mutex
	entries map[Handle]map[any]any
	seq     uint64
	enabled atomic.Bool
}

// Default is the process-wide registry.
var Default = NewRegistry()

// NewRegistry creates an empty, enabled registry.
func NewRegistry() *Registry {
	r := &Registry{entries: make(map[Handle]map[any]any)}
	r.enabled.Store(true)
	return r
}

// SetEnabled toggles identity tracking. While disabled every lookup misses and
// nothing is stored.
func (r *Registry) SetEnabled(enabled bool) { r.enabled.Store(enabled) }

// Enabled reports whether identity tracking is on.
func (r *Registry) Enabled() bool { return r.enabled.Load() }

// Len returns the number of live entries. Entries of collected owners are
// removed asynchronously by the runtime cleanup.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Lookup returns the value stored under key for owner. It never allocates an
// entry.
func (r *Registry) Lookup(owner Carrier, key any) (any, bool) {
	if owner == nil || !r.Enabled() {
		return nil, false
	}
	slot := owner.shadowSlot()
	r.mu.Lock()
	defer r.mu.Unlock()
	if slot.tok == nil {
		return nil, false
	}
	values, ok := r.entries[weak.Make(slot.tok)]
	if !ok {
		return nil, false
	}
	v, ok := values[key]
	return v, ok
}

// LoadOrStore returns the value stored under key for owner, creating it with
// create when absent. When the registry is disabled the created value is
// returned without being stored.
func (r *Registry) LoadOrStore(owner Carrier, key any, create func() any) any {
	if owner == nil || !r.Enabled() {
		return create()
	}
	slot := owner.shadowSlot()
	r.mu.Lock()
	defer r.mu.Unlock()
	values := r.entryLocked(slot)
	if v, ok := values[key]; ok {
		return v
	}
	v := create()
	values[key] = v
	return v
}

// Store sets the value under key for owner.
func (r *Registry) Store(owner Carrier, key, value any) {
	if owner == nil || !r.Enabled() {
		return
	}
	slot := owner.shadowSlot()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entryLocked(slot)[key] = value
}

// Delete removes the value under key for owner.
func (r *Registry) Delete(owner Carrier, key any) {
	if owner == nil {
		return
	}
	slot := owner.shadowSlot()
	r.mu.Lock()
	defer r.mu.Unlock()
	if slot.tok == nil {
		return
	}
	h := weak.Make(slot.tok)
	if values, ok := r.entries[h]; ok {
		delete(values, key)
		if len(values) == 0 {
			delete(r.entries, h)
		}
	}
}

// Keys returns the metadata keys attached to owner.
func (r *Registry) Keys(owner Carrier) []any {
	if owner == nil || !r.Enabled() {
		return nil
	}
	slot := owner.shadowSlot()
	r.mu.Lock()
	defer r.mu.Unlock()
	if slot.tok == nil {
		return nil
	}
	values := r.entries[weak.Make(slot.tok)]
	keys := make([]any, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	return keys
}

// Cloner is implemented by metadata values that must not be shared between an
// owner and its clone.
type Cloner interface {
	CloneShadow() any
}

// CopyTo attaches a copy of every value of src to dst. Values implementing
// Cloner are cloned, others are shared.
func (r *Registry) CopyTo(dst, src Carrier) {
	if dst == nil || src == nil || !r.Enabled() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	srcSlot := src.shadowSlot()
	if srcSlot.tok == nil {
		return
	}
	values, ok := r.entries[weak.Make(srcSlot.tok)]
	if !ok || len(values) == 0 {
		return
	}
	target := r.entryLocked(dst.shadowSlot())
	for k, v := range values {
		if c, ok := v.(Cloner); ok {
			v = c.CloneShadow()
		}
		target[k] = v
	}
}

// entryLocked returns the value map for slot, allocating the token and the
// entry on first use. r.mu must be held.
func (r *Registry) entryLocked(slot *Slot) map[any]any {
	if slot.tok == nil {
		r.seq++
		slot.tok = &token{seq: r.seq}
	}
	h := weak.Make(slot.tok)
	values, ok := r.entries[h]
	if !ok {
		values = make(map[any]any)
		r.entries[h] = values
		runtime.AddCleanup(slot.tok, r.release, h)
	}
	return values
}

func (r *Registry) release(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, h)
}
