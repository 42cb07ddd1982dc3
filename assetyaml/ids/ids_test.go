package ids

import (
	"errors"
	"reflect"
	"testing"

	"github.com/arthur-debert/assetyaml/assetyaml/overrides"
	"github.com/arthur-debert/assetyaml/types"
	"github.com/google/go-cmp/cmp"
)

func id(n int) types.ItemID { return types.ItemIDFromInt(n) }

func TestIdentifiersBijection(t *testing.T) {
	c := NewCollectionItemIdentifiers()
	c.Set("a", id(1))
	c.Set("b", id(2))

	t.Run("reassigning an id moves it", func(t *testing.T) {
		c.Set("c", id(1))
		if c.ContainsKey("a") {
			t.Error("old key kept the id")
		}
		if key, _ := c.TryGetKey(id(1)); key != "c" {
			t.Errorf("TryGetKey = %v, want c", key)
		}
	})

	t.Run("add refuses a key with an id", func(t *testing.T) {
		if err := c.Add("b", id(3)); !errors.Is(err, ErrDuplicateKey) {
			t.Errorf("expected ErrDuplicateKey, got %v", err)
		}
	})

	t.Run("tombstones", func(t *testing.T) {
		deleted, ok := c.Delete("b", true)
		if !ok || deleted != id(2) {
			t.Fatalf("Delete = %s, %t", deleted, ok)
		}
		if !c.IsDeleted(id(2)) || !c.Contains(id(2)) {
			t.Error("tombstone not recorded")
		}
		c.Set("d", id(2))
		if c.IsDeleted(id(2)) {
			t.Error("reassigned id is still tombstoned")
		}
		c.MarkAsDeleted(id(2))
		if c.ContainsKey("d") {
			t.Error("tombstoned id still held by a key")
		}
	})

	if err := c.Validate(false, 0); err != nil {
		t.Errorf("invariants broken: %v", err)
	}
}

func TestIdentifiersListShift(t *testing.T) {
	c := NewCollectionItemIdentifiers()
	for i := 0; i < 3; i++ {
		c.Set(i, id(i+1))
	}

	c.Insert(1, id(9))
	want := map[int]types.ItemID{0: id(1), 1: id(9), 2: id(2), 3: id(3)}
	for k, v := range want {
		if got := c.Get(k); got != v {
			t.Errorf("after insert, index %d = %s, want %s", k, got, v)
		}
	}

	c.DeleteAndShift(0, true)
	want = map[int]types.ItemID{0: id(9), 1: id(2), 2: id(3)}
	for k, v := range want {
		if got := c.Get(k); got != v {
			t.Errorf("after delete, index %d = %s, want %s", k, got, v)
		}
	}
	if err := c.Validate(true, 3); err != nil {
		t.Errorf("invariants broken: %v", err)
	}
	if diff := cmp.Diff([]types.ItemID{id(1)}, c.DeletedItems()); diff != "" {
		t.Errorf("deleted items (-want +got):\n%s", diff)
	}
	if err := c.Validate(true, 2); err == nil {
		t.Error("expected out of range index to fail validation")
	}
}

func TestFindMissingKeys(t *testing.T) {
	c := NewCollectionItemIdentifiers()
	c.Set(1, id(1))
	missing := c.FindMissingKeys([]any{0, 1, 2})
	if diff := cmp.Diff([]any{0, 2}, missing); diff != "" {
		t.Errorf("missing keys (-want +got):\n%s", diff)
	}
}

func TestIdentifiersFixup(t *testing.T) {
	c := NewCollectionItemIdentifiers()
	c.keyToID[0] = id(1)
	c.keyToID[1] = id(1)
	c.keyToID[5] = id(2)
	c.idToKey[id(1)] = 1
	c.idToKey[id(2)] = 5
	c.deleted[id(1)] = struct{}{}

	if err := c.Validate(true, 3); err == nil {
		t.Fatal("broken table passed validation")
	}
	if n := c.Fixup([]any{0, 1, 2}); n != 3 {
		t.Errorf("Fixup = %d, want 3", n)
	}
	if err := c.Validate(true, 3); err != nil {
		t.Errorf("invariants broken after fixup: %v", err)
	}
	if c.Get(0) != id(1) || c.ContainsKey(1) || c.IsDeleted(id(1)) || c.Contains(id(2)) {
		t.Errorf("unexpected table: 0=%s 1=%t", c.Get(0), c.ContainsKey(1))
	}
	if n := c.Fixup([]any{0, 1, 2}); n != 0 {
		t.Errorf("second Fixup = %d, want 0", n)
	}
}

func TestIdentifiersClone(t *testing.T) {
	c := NewCollectionItemIdentifiers()
	c.Set("a", id(1))
	c.MarkAsDeleted(id(2))

	clone := c.Clone()
	clone.Set("b", id(3))
	if c.ContainsKey("b") {
		t.Error("clone shares state with the original")
	}
	if clone.Get("a") != id(1) || !clone.IsDeleted(id(2)) {
		t.Error("clone lost ids")
	}
}

func TestListKeepsIDsAligned(t *testing.T) {
	l := NewList("a", "b", "c")
	table := GetOrCreateIdentifiers(l)
	for i := range l.Len() {
		table.Set(i, id(i+1))
	}

	l.Insert(0, "z")
	l.RemoveAt(2, true)

	if diff := cmp.Diff([]string{"z", "a", "c"}, l.Items()); diff != "" {
		t.Errorf("items (-want +got):\n%s", diff)
	}
	got, ok := TryGetIdentifiers(l)
	if !ok {
		t.Fatal("side table lost")
	}
	if got.Get(1) != id(1) || got.Get(2) != id(3) || got.ContainsKey(0) {
		t.Errorf("ids out of line with items")
	}
	if !got.IsDeleted(id(2)) {
		t.Error("removed item not tombstoned")
	}
}

func TestRemovalDropsOverrideUnlessTombstoned(t *testing.T) {
	l := NewList("a", "b", "c")
	table := GetOrCreateIdentifiers(l)
	for i := range l.Len() {
		table.Set(i, id(i+1))
		overrides.SetOverride(l, id(i+1), types.OverrideNew)
	}

	l.RemoveAt(0, false)
	if o := overrides.Get(l, id(1)); o != types.OverrideBase {
		t.Errorf("override of removed item = %s", o)
	}
	l.Append("d")
	table.Set(2, id(1))
	if o := overrides.Get(l, id(1)); o != types.OverrideBase {
		t.Errorf("reused id brought the override back: %s", o)
	}

	l.RemoveAt(0, true)
	if o := overrides.Get(l, id(2)); o != types.OverrideNew {
		t.Errorf("tombstoned item lost its override: %s", o)
	}

	d := NewDict[string, int]()
	d.Set("k", 1)
	GetOrCreateIdentifiers(d).Set("k", id(5))
	overrides.SetOverride(d, id(5), types.OverrideSealed)
	d.Delete("k", false)
	if o := overrides.Get(d, id(5)); o != types.OverrideBase {
		t.Errorf("override of deleted dictionary item = %s", o)
	}
}

func TestEqualListsHaveDistinctIdentity(t *testing.T) {
	a := NewList(1, 2)
	b := NewList(1, 2)
	GetOrCreateIdentifiers(a).Set(0, id(1))

	if _, ok := TryGetIdentifiers(b); ok {
		t.Error("equal list shares the side table")
	}
	RemoveIdentifiers(a)
	if _, ok := TryGetIdentifiers(a); ok {
		t.Error("side table not removed")
	}
}

func TestDictOrderAndTombstones(t *testing.T) {
	d := NewDict[string, int]()
	d.Set("b", 1)
	d.Set("a", 2)
	d.Set("b", 3)
	GetOrCreateIdentifiers(d).Set("a", id(7))

	if diff := cmp.Diff([]string{"b", "a"}, d.OrderedKeys()); diff != "" {
		t.Errorf("order (-want +got):\n%s", diff)
	}
	if v, _ := d.Get("b"); v != 3 {
		t.Errorf("Get(b) = %d", v)
	}

	if !d.Delete("a", true) {
		t.Fatal("Delete(a) = false")
	}
	table, _ := TryGetIdentifiers(d)
	if !table.IsDeleted(id(7)) || d.Len() != 1 {
		t.Error("delete did not tombstone the id")
	}
}

func TestAsCollection(t *testing.T) {
	type holder struct {
		Items List[string]
	}
	var h holder
	c, ok := AsCollection(reflect.ValueOf(&h).Elem().Field(0))
	if !ok || c.CollectionKind() != Sequence {
		t.Fatal("addressable list not recognized")
	}
	if !IsCollectionType(reflect.TypeFor[List[string]]()) || !IsCollectionType(reflect.TypeFor[*Dict[string, int]]()) {
		t.Error("collection types not recognized")
	}
	if IsCollectionType(reflect.TypeFor[[]string]()) {
		t.Error("slice recognized as a collection")
	}
}
