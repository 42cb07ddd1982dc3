// Package testutil_test demonstrates the assertion helpers in action
package testutil_test

import (
	"context"
	"testing"

	"github.com/arthur-debert/assetyaml/assetyaml/asset"
	"github.com/arthur-debert/assetyaml/assetyaml/collision"
	"github.com/arthur-debert/assetyaml/testutil"
)

// TestAssertionHelpersDemo shows how assertion helpers simplify tests
func TestAssertionHelpersDemo(t *testing.T) {
	_, pkg, data := testutil.LoadPackage(t)

	t.Run("loaded package", func(t *testing.T) {
		testutil.AssertItemCount(t, pkg.Items(), 3, "after load")
		testutil.AssertItemCount(t, pkg.Dirty(), 0, "dirty after load")
		testutil.AssertLocationExists(t, pkg, "textures/grain")
		testutil.AssertUniqueIDs(t, pkg.Items())
	})

	t.Run("validated package", func(t *testing.T) {
		if err := collision.ValidateAssets(pkg, collision.ValidateOptions{}); err != nil {
			t.Fatal(err)
		}

		testutil.AssertItemCount(t, pkg.Items(), 4, "after validation")
		testutil.AssertUniqueIDs(t, pkg.Items())
		testutil.AssertUniqueLocations(t, pkg.Items())
		testutil.AssertReferencesResolve(t, pkg)

		copied := testutil.AssertLocationExists(t, pkg, "materials/wood_copy")
		testutil.AssertDirty(t, copied, true)
		testutil.AssertDirty(t, data.Wood, false)
	})
}

// TestSaveWritesCanonicalDocuments saves a cleaned package and reloads it
func TestSaveWritesCanonicalDocuments(t *testing.T) {
	s, pkg, data := testutil.LoadPackage(t)
	if err := collision.ValidateAssets(pkg, collision.ValidateOptions{}); err != nil {
		t.Fatal(err)
	}

	written, err := s.Save(context.Background(), pkg)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if written != 1 {
		t.Errorf("expected 1 document written, got %d", written)
	}
	testutil.AssertItemCount(t, pkg.Dirty(), 0, "dirty after save")

	encoded, err := s.Encode(data.WoodCopy)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertCanonical(t, encoded)

	reloaded, _, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if len(reloaded.TemporaryAssets) != 0 {
		t.Errorf("duplicates remain after save: %v", reloaded.TemporaryAssets)
	}
	testutil.AssertItemCount(t, reloaded.Items(), 4, "after reload")
	testutil.AssertReferencesResolve(t, reloaded)
	if copied, ok := reloaded.Find(data.WoodCopy.ID()); !ok || copied.Location != "materials/wood_copy" {
		t.Errorf("renumbered copy not found by its new id %s", data.WoodCopy.ID())
	}
}

// TestCaseInsensitiveLocations moves a duplicate onto a location that only
// differs in case from an existing one
func TestCaseInsensitiveLocations(t *testing.T) {
	_, pkg, data := testutil.LoadPackage(t)

	clash := data.Grain.Clone()
	clash.Location = "Textures/Grain"
	pkg.TemporaryAssets = []*asset.Item{clash}

	if err := collision.ValidateAssets(pkg, collision.ValidateOptions{CaseInsensitive: true}); err != nil {
		t.Fatal(err)
	}
	testutil.AssertLocationExists(t, pkg, "Textures/Grain (2)")
	testutil.AssertUniqueIDs(t, pkg.Items())
}
