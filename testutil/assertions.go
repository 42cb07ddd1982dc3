package testutil

import (
	"testing"

	"github.com/arthur-debert/assetyaml/assetyaml/asset"
	"github.com/arthur-debert/assetyaml/assetyaml/yamldoc"
	"github.com/google/go-cmp/cmp"
)

// AssertItemCount checks that the slice contains the expected number of items
func AssertItemCount(t *testing.T, items []*asset.Item, expected int, context ...string) {
	t.Helper()
	if len(items) != expected {
		ctx := ""
		if len(context) > 0 {
			ctx = " " + context[0]
		}
		t.Errorf("expected %d items%s, got %d", expected, ctx, len(items))
	}
}

// AssertLocationExists verifies that pkg holds an item at location
func AssertLocationExists(t *testing.T, pkg *asset.Package, location string) *asset.Item {
	t.Helper()
	item, ok := pkg.FindByLocation(location)
	if !ok {
		t.Errorf("no item at %q, locations %v", location, pkg.Locations())
	}
	return item
}

// AssertUniqueIDs verifies that no two items share an asset id
func AssertUniqueIDs(t *testing.T, items []*asset.Item) {
	t.Helper()
	seen := make(map[string]string)
	for _, item := range items {
		id := item.ID().String()
		if other, ok := seen[id]; ok {
			t.Errorf("id %s used by %q and %q", id, other, item.Location)
			continue
		}
		seen[id] = item.Location
	}
}

// AssertUniqueLocations verifies that no two items share a location
func AssertUniqueLocations(t *testing.T, items []*asset.Item) {
	t.Helper()
	seen := make(map[string]bool)
	for _, item := range items {
		if seen[item.Location] {
			t.Errorf("location %q used twice", item.Location)
		}
		seen[item.Location] = true
	}
}

// AssertReferencesResolve verifies that every reference held by an item of
// pkg names an item of pkg, and names it at its current location.
func AssertReferencesResolve(t *testing.T, pkg *asset.Package) {
	t.Helper()
	for _, item := range pkg.Items() {
		for _, ref := range asset.References(item.Asset) {
			if ref.ID.IsEmpty() {
				continue
			}
			target, ok := pkg.Find(ref.ID)
			if !ok {
				t.Errorf("%s references unknown id %s", item, ref.ID)
				continue
			}
			if ref.Location != "" && ref.Location != target.Location {
				t.Errorf("%s references %s at %q, item is at %q", item, ref.ID, ref.Location, target.Location)
			}
		}
	}
}

// AssertDirty checks the dirty flag of item
func AssertDirty(t *testing.T, item *asset.Item, expected bool) {
	t.Helper()
	if item.Dirty != expected {
		t.Errorf("%s dirty = %t, want %t", item, item.Dirty, expected)
	}
}

// AssertCanonical verifies that data is already in canonical form
func AssertCanonical(t *testing.T, data []byte) {
	t.Helper()
	doc, err := yamldoc.Parse(data)
	if err != nil {
		t.Fatalf("failed to parse document: %v", err)
	}
	if diff := cmp.Diff(string(doc.Bytes()), string(data)); diff != "" {
		t.Errorf("document is not canonical (-canonical +got):\n%s", diff)
	}
}
