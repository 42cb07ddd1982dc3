package testutil

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/arthur-debert/assetyaml/assetyaml/asset"
	"github.com/arthur-debert/assetyaml/assetyaml/store"
	"github.com/arthur-debert/assetyaml/types"
)

// Asset ids of the fixture package.
var (
	BaseID  = mustParseID("6ba7b810-9dad-11d1-80b4-00c04fd430c1")
	WoodID  = mustParseID("6ba7b810-9dad-11d1-80b4-00c04fd430c2")
	GrainID = mustParseID("6ba7b810-9dad-11d1-80b4-00c04fd430c3")
)

// PackageData provides typed access to the fixture package
type PackageData struct {
	Dir string // Copy of testdata/package the store works on

	Base  *asset.Item // materials/base - referenced as Parent by both woods
	Wood  *asset.Item // materials/wood - has a tombstoned layer
	Grain *asset.Item // textures/grain - referenced from the Layers of both woods

	// WoodCopy repeats the id of Wood at materials/wood_copy. It is loaded
	// after Wood and therefore waits in TemporaryAssets.
	WoodCopy *asset.Item

	ByLocation map[string]*asset.Item
}

// FixtureDir returns the directory holding the fixture package.
func FixtureDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "testdata", "package")
}

// LoadPackage copies the fixture package to a temporary directory, opens a
// dynamic store on it and loads it.
func LoadPackage(t *testing.T) (*store.Store, *asset.Package, *PackageData) {
	t.Helper()

	dir := t.TempDir()
	if err := os.CopyFS(dir, os.DirFS(FixtureDir())); err != nil {
		t.Fatalf("failed to copy fixture: %v", err)
	}

	s, err := store.Open(dir, store.Options{Dynamic: true})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	pkg, diags, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("failed to load fixture: %v", err)
	}
	for _, d := range diags {
		t.Logf("fixture diagnostic: %s", d)
	}

	data := &PackageData{
		Dir:        dir,
		ByLocation: make(map[string]*asset.Item),
	}
	for _, item := range pkg.Items() {
		data.ByLocation[item.Location] = item
	}
	for _, item := range pkg.TemporaryAssets {
		data.ByLocation[item.Location] = item
	}

	data.Base = data.ByLocation["materials/base"]
	data.Wood = data.ByLocation["materials/wood"]
	data.WoodCopy = data.ByLocation["materials/wood_copy"]
	data.Grain = data.ByLocation["textures/grain"]
	if data.Base == nil || data.Wood == nil || data.WoodCopy == nil || data.Grain == nil {
		t.Fatalf("fixture incomplete, locations %v", pkg.Locations())
	}

	return s, pkg, data
}

// Document returns the document of a dynamic item.
func Document(t *testing.T, item *asset.Item) *asset.Dynamic {
	t.Helper()
	d, ok := item.Asset.(*asset.Dynamic)
	if !ok {
		t.Fatalf("%s is %T, not a dynamic asset", item, item.Asset)
	}
	return d
}

func mustParseID(s string) types.AssetID {
	id, err := types.ParseAssetID(s)
	if err != nil {
		panic(err)
	}
	return id
}
