package collision

import (
	"errors"
	"testing"

	"github.com/arthur-debert/assetyaml/assetyaml/asset"
	"github.com/arthur-debert/assetyaml/assetyaml/ids"
	"github.com/arthur-debert/assetyaml/testutil"
	"github.com/arthur-debert/assetyaml/types"
	"github.com/google/go-cmp/cmp"
)

type prefab struct {
	asset.Base
	Target types.AssetReference
	Parts  *ids.List[string]               `asset:",omitempty"`
	Links  map[string]types.AssetReference `asset:",omitempty"`
	Slots  []types.AssetReference          `asset:",omitempty"`
}

var originalID = types.AssetIDFromInt(1)

// copies returns n items sharing one id and one location, each referencing
// that id at a stale location.
func copies(n int) []*asset.Item {
	items := make([]*asset.Item, n)
	for i := range items {
		p := &prefab{Target: types.AssetReference{ID: originalID, Location: "bad"}}
		p.ID = originalID
		items[i] = asset.NewItem("0", p)
	}
	return items
}

func target(t *testing.T, item *asset.Item) types.AssetReference {
	t.Helper()
	p, ok := item.Asset.(*prefab)
	if !ok {
		t.Fatalf("asset is %T", item.Asset)
	}
	return p.Target
}

func assertUnique(t *testing.T, outputs []*asset.Item, want int) {
	t.Helper()
	if len(outputs) != want {
		t.Fatalf("got %d outputs, want %d", len(outputs), want)
	}
	testutil.AssertUniqueIDs(t, outputs)
	testutil.AssertUniqueLocations(t, outputs)
}

func TestCleanFirstKeepsID(t *testing.T) {
	outputs, err := Clean(nil, copies(10), NewResolver(nil, nil), Options{})
	if err != nil {
		t.Fatal(err)
	}
	assertUnique(t, outputs, 10)

	if outputs[0].ID() != originalID {
		t.Errorf("first output id = %s, want %s", outputs[0].ID(), originalID)
	}
	if outputs[0].Location != "0" || outputs[1].Location != "0 (2)" || outputs[9].Location != "0 (10)" {
		t.Errorf("unexpected locations %q %q %q", outputs[0].Location, outputs[1].Location, outputs[9].Location)
	}
	want := types.AssetReference{ID: originalID, Location: "0"}
	for i, item := range outputs {
		if got := target(t, item); got != want {
			t.Errorf("output %d references %v, want %v", i, got, want)
		}
	}
}

func TestCleanRewritesReferencesInMapsAndSlices(t *testing.T) {
	inputs := copies(3)
	stale := types.AssetReference{ID: originalID, Location: "bad"}
	for _, item := range inputs {
		p := item.Asset.(*prefab)
		p.Links = map[string]types.AssetReference{"k": stale}
		p.Slots = []types.AssetReference{stale}
	}

	outputs, err := Clean(nil, inputs, NewResolver(nil, nil), Options{})
	if err != nil {
		t.Fatal(err)
	}
	assertUnique(t, outputs, 3)

	want := types.AssetReference{ID: originalID, Location: "0"}
	for i, item := range outputs {
		p := item.Asset.(*prefab)
		if got := p.Links["k"]; got != want {
			t.Errorf("output %d map reference = %v, want %v", i, got, want)
		}
		if got := p.Slots[0]; got != want {
			t.Errorf("output %d slice reference = %v, want %v", i, got, want)
		}
	}
}

func TestCleanAlwaysCreatesNewIDs(t *testing.T) {
	resolver := NewResolver(nil, nil)
	resolver.AlwaysCreateNewID = true
	outputs, err := Clean(nil, copies(10), resolver, Options{})
	if err != nil {
		t.Fatal(err)
	}
	assertUnique(t, outputs, 10)

	for i, item := range outputs {
		if item.ID() == originalID {
			t.Errorf("output %d kept the original id", i)
		}
		if got := target(t, item); got != outputs[0].Reference() {
			t.Errorf("output %d references %v, want %v", i, got, outputs[0].Reference())
		}
	}
	if outputs[0].Location != "0" {
		t.Errorf("first location = %q", outputs[0].Location)
	}
}

func TestCleanAgainstExistingPackage(t *testing.T) {
	pkg := asset.NewPackage("main")
	existing := &prefab{}
	existing.ID = originalID
	if err := pkg.Add(asset.NewItem("0", existing)); err != nil {
		t.Fatal(err)
	}

	outputs, err := Clean(pkg, copies(10), FromPackage(pkg), Options{})
	if err != nil {
		t.Fatal(err)
	}
	assertUnique(t, outputs, 10)

	for i, item := range outputs {
		if item.ID() == originalID {
			t.Errorf("output %d kept the id owned by the package", i)
		}
		if item.Location == "0" {
			t.Errorf("output %d kept the location owned by the package", i)
		}
		if got := target(t, item); got != outputs[0].Reference() {
			t.Errorf("output %d references %v, want %v", i, got, outputs[0].Reference())
		}
	}
	if outputs[0].Location != "0 (2)" {
		t.Errorf("first location = %q, want %q", outputs[0].Location, "0 (2)")
	}
}

func TestCleanCloneInput(t *testing.T) {
	inputs := copies(2)
	outputs, err := Clean(nil, inputs, NewResolver(nil, nil), Options{CloneInput: true})
	if err != nil {
		t.Fatal(err)
	}
	if outputs[1] == inputs[1] {
		t.Fatal("output is the input item")
	}
	if inputs[1].ID() != originalID || inputs[1].Location != "0" {
		t.Errorf("input changed: %s", inputs[1])
	}
	if target(t, inputs[1]).Location != "bad" {
		t.Error("input reference changed")
	}
	if !outputs[1].Dirty || !outputs[0].Dirty {
		t.Error("changed outputs should be dirty")
	}
}

func TestCleanReferenceFixup(t *testing.T) {
	external := types.AssetReference{ID: types.AssetIDFromInt(99), Location: "elsewhere"}

	a := &prefab{Target: types.AssetReference{Location: "shared"}}
	a.ID = types.AssetIDFromInt(1)
	b := &prefab{Target: external}
	b.ID = types.AssetIDFromInt(2)
	c := &prefab{Target: types.AssetReference{ID: types.AssetIDFromInt(2), Location: "old"}}
	c.ID = types.AssetIDFromInt(3)

	resolver := NewResolver(func(l string) bool { return l == "shared" }, nil)
	outputs, err := Clean(nil, []*asset.Item{
		asset.NewItem("shared", a),
		asset.NewItem("b", b),
		asset.NewItem("c", c),
	}, resolver, Options{})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		item *asset.Item
		want types.AssetReference
	}{
		{"location only reference follows the relocation", outputs[0], types.AssetReference{Location: "shared (2)"}},
		{"reference outside the batch is unchanged", outputs[1], external},
		{"reference to an unchanged item gets its location", outputs[2], types.AssetReference{ID: types.AssetIDFromInt(2), Location: "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, target(t, tt.item)); diff != "" {
				t.Errorf("reference (-want +got):\n%s", diff)
			}
		})
	}
	if outputs[1].Dirty {
		t.Error("untouched output marked dirty")
	}
}

func TestCleanPreconditions(t *testing.T) {
	if _, err := Clean(nil, copies(1), nil, Options{}); !errors.Is(err, ErrNilResolver) {
		t.Errorf("expected ErrNilResolver, got %v", err)
	}

	tests := []struct {
		name  string
		items []*asset.Item
		want  error
	}{
		{"nil item", []*asset.Item{copies(1)[0], nil}, ErrNilItem},
		{"nil asset", []*asset.Item{asset.NewItem("x", nil)}, ErrNilAsset},
		{"missing location", []*asset.Item{asset.NewItem("", &prefab{})}, ErrMissingLocation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Clean(nil, tt.items, NewResolver(nil, nil), Options{})
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			var pe *PreconditionError
			if !errors.As(err, &pe) || pe.Index != len(tt.items)-1 {
				t.Errorf("expected PreconditionError at %d, got %v", len(tt.items)-1, err)
			}
		})
	}
}

func TestRegisterLocation(t *testing.T) {
	tests := []struct {
		name            string
		taken           []string
		caseInsensitive bool
		location        string
		want            string
	}{
		{"free", nil, false, "wood", "wood"},
		{"taken", []string{"wood"}, false, "wood", "wood (2)"},
		{"skips claimed suffixes", []string{"wood", "wood (2)"}, false, "wood", "wood (3)"},
		{"strips existing suffix", []string{"wood", "wood (2)"}, false, "wood (2)", "wood (3)"},
		{"case sensitive by default", []string{"Wood"}, false, "wood", "wood"},
		{"case folding", []string{"Wood"}, true, "wood", "wood (2)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(nil, nil)
			r.CaseInsensitive = tt.caseInsensitive
			for _, l := range tt.taken {
				r.RegisterLocation(l)
			}
			if got := r.RegisterLocation(tt.location); got != tt.want {
				t.Errorf("RegisterLocation(%q) = %q, want %q", tt.location, got, tt.want)
			}
			if !r.ContainsLocation(tt.want) {
				t.Errorf("%q not claimed", tt.want)
			}
		})
	}
}

func TestFromPackageCaseInsensitive(t *testing.T) {
	pkg := asset.NewPackage("main")
	p := &prefab{}
	p.ID = types.AssetIDFromInt(5)
	if err := pkg.Add(asset.NewItem("Materials/Wood", p)); err != nil {
		t.Fatal(err)
	}
	r := FromPackage(pkg)
	if r.ContainsLocation("materials/wood") {
		t.Error("exact comparison matched a different case")
	}
	r.CaseInsensitive = true
	if !r.ContainsLocation("materials/wood") {
		t.Error("folded comparison missed")
	}
	if r.RegisterID(types.AssetIDFromInt(5)) {
		t.Error("id owned by the package was kept")
	}
}

func TestValidateAssets(t *testing.T) {
	pkg := asset.NewPackage("main")
	existing := &prefab{}
	existing.ID = originalID
	if err := pkg.Add(asset.NewItem("0", existing)); err != nil {
		t.Fatal(err)
	}

	incoming := &prefab{Parts: ids.NewList("a", "b")}
	incoming.ID = originalID
	pkg.TemporaryAssets = append(pkg.TemporaryAssets, asset.NewItem("0", incoming))

	if err := ValidateAssets(pkg, ValidateOptions{RemoveUnloadableObjects: true}); err != nil {
		t.Fatal(err)
	}
	if len(pkg.TemporaryAssets) != 0 {
		t.Error("temporary assets not consumed")
	}
	if pkg.Len() != 2 {
		t.Fatalf("Len = %d, want 2", pkg.Len())
	}
	added, ok := pkg.FindByLocation("0 (2)")
	if !ok {
		t.Fatalf("cleaned asset not found, locations %v", pkg.Locations())
	}
	if added.ID() == originalID || !added.Dirty {
		t.Errorf("unexpected added item %s dirty=%t", added, added.Dirty)
	}
	table, ok := ids.TryGetIdentifiers(incoming.Parts)
	if !ok || table.KeyCount() != 2 {
		t.Error("missing item ids not generated")
	}
}
