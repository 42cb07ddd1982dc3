package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadPackage(t *testing.T) {
	_, pkg, data := LoadPackage(t)

	if pkg.Len() != 3 {
		t.Errorf("expected 3 items, got %d", pkg.Len())
	}
	if len(pkg.TemporaryAssets) != 1 || pkg.TemporaryAssets[0] != data.WoodCopy {
		t.Errorf("expected wood_copy to wait in TemporaryAssets, got %v", pkg.TemporaryAssets)
	}

	if data.Base.ID() != BaseID || data.Wood.ID() != WoodID || data.Grain.ID() != GrainID {
		t.Error("fixture ids do not match")
	}
	if data.WoodCopy.ID() != WoodID {
		t.Errorf("wood_copy id = %s, want %s", data.WoodCopy.ID(), WoodID)
	}

	if tag := Document(t, data.Grain).Tag(); tag != "!Texture" {
		t.Errorf("grain tag = %q", tag)
	}
	AssertReferencesResolve(t, pkg)

	// The fixture files are canonical
	err := filepath.WalkDir(FixtureDir(), func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		contents, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		AssertCanonical(t, contents)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}
