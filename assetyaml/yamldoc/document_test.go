package yamldoc

import (
	"errors"
	"strings"
	"testing"

	"github.com/arthur-debert/assetyaml/types"
	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"
)

const sample = `!Sample
Id: 0d1f3b2c-0000-0000-0000-000000000001
Name*: Hello
Title!: "123"
Strings:
    01000000010000000100000001000000: aaa
    02000000020000000200000002000000*: bbb
    03000000030000000300000003000000: ~(Deleted)
Dict:
    01000000010000000100000001000000*!~Key1: one
    02000000020000000200000002000000~: ~(Deleted)
Plain:
    - a
    - b
Empty: {}
None: []
Items:
    -   Name: x
        Value: 1
    - !Other
        Name: y
Text: |-
    line one
    line two
`

func mustParse(t *testing.T, text string) *Document {
	t.Helper()
	d, err := Parse([]byte(text))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	return d
}

func TestRoundTripIsByteIdentical(t *testing.T) {
	d := mustParse(t, sample)
	if diff := cmp.Diff(sample, d.String()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestOverridesAreStrippedFromKeys(t *testing.T) {
	d := mustParse(t, sample)
	root := d.Root().(*Mapping)

	if root.Tag() != "!Sample" {
		t.Errorf("root tag = %q", root.Tag())
	}
	want := []string{"Id", "Name", "Title", "Strings", "Dict", "Plain", "Empty", "None", "Items", "Text"}
	if diff := cmp.Diff(want, root.Keys()); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}

	tests := []struct {
		path []string
		key  string
		want types.OverrideType
	}{
		{nil, "Name", types.OverrideNew},
		{nil, "Title", types.OverrideSealed},
		{nil, "Id", types.OverrideBase},
		{[]string{"Strings"}, "02000000020000000200000002000000", types.OverrideNew},
		{[]string{"Dict"}, "01000000010000000100000001000000~Key1", types.OverrideNew | types.OverrideSealed},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			m := root
			if tt.path != nil {
				m = d.Lookup(tt.path...).(*Mapping)
			}
			if got := m.Override(tt.key); got != tt.want {
				t.Errorf("override = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRemoveChildDropsOverride(t *testing.T) {
	d := mustParse(t, sample)
	root := d.Root().(*Mapping)

	if !root.RemoveChild("Name") {
		t.Fatal("Name should be present")
	}
	if root.RemoveChild("Name") {
		t.Error("second removal should report absence")
	}
	if root.Override("Name") != types.OverrideBase {
		t.Error("override should be gone")
	}
	out := d.String()
	if strings.Contains(out, "Name*") || strings.Contains(out, "Hello") {
		t.Errorf("removed child still serialized:\n%s", out)
	}
	if !strings.Contains(out, "Title!: \"123\"") {
		t.Errorf("sibling override lost:\n%s", out)
	}
}

func TestMissingChildrenAreNil(t *testing.T) {
	d := mustParse(t, sample)
	root := d.Root().(*Mapping)

	if root.Get("Nope") != nil {
		t.Error("Get of a missing key should be nil")
	}
	if d.Lookup("Strings", "Nope") != nil {
		t.Error("Lookup of a missing key should be nil")
	}
	if d.Lookup("Plain", "7") != nil {
		t.Error("Lookup past the end of a sequence should be nil")
	}
	if got := d.Lookup("Plain", "1").(*Scalar).Value(); got != "b" {
		t.Errorf("Plain[1] = %q", got)
	}
	if got := d.Lookup("Items", "1").Tag(); got != "!Other" {
		t.Errorf("Items[1] tag = %q", got)
	}
}

func TestEditsAreSerialized(t *testing.T) {
	d := mustParse(t, "!Sample\nName: a\nEmpty: {}\n")
	root := d.Root().(*Mapping)

	root.SetString("Name", "123")
	root.Get("Empty").(*Mapping).SetString("Key", "value")
	root.SetOverride("Empty", types.OverrideSealed)
	root.SetString("Added", "x")

	want := "!Sample\nName: \"123\"\nEmpty!:\n    Key: value\nAdded: x\n"
	if diff := cmp.Diff(want, d.String()); diff != "" {
		t.Errorf("edited document mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeBuiltTree(t *testing.T) {
	name := NewString("Name")
	root := &yaml.Node{Kind: yaml.MappingNode, Tag: "!Thing", Content: []*yaml.Node{
		name, NewString("multi\nline\n"),
		NewString("Ref"), NewReference("abc", "!Thing"),
		NewString("Quoted"), NewString("ref!! not a reference"),
		NewString("List"), {Kind: yaml.SequenceNode, Content: []*yaml.Node{
			{Kind: yaml.MappingNode, Content: []*yaml.Node{NewString("A"), NewPlain("1"), NewString("B"), NewPlain("true")}},
			NewDeleted(),
		}},
	}}
	overrides := map[*yaml.Node]types.OverrideType{name: types.OverrideNew | types.OverrideSealed}

	want := `!Thing
Name*!: |
    multi
    line
Ref: !Thing ref!! abc
Quoted: "ref!! not a reference"
List:
    -   A: 1
        B: true
    - ~(Deleted)
`
	got := string(Marshal(root, overrides))
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("encoding mismatch (-want +got):\n%s", diff)
	}

	back := mustParse(t, got)
	ref, ok := ReferenceID(back.Lookup("Ref").YAML())
	if !ok || ref != "abc" {
		t.Errorf("reference = %q, %v", ref, ok)
	}
	if _, ok := ReferenceID(back.Lookup("Quoted").YAML()); ok {
		t.Error("quoted text must not read as a reference")
	}
	if !IsDeleted(back.Lookup("List", "1").YAML()) {
		t.Error("tombstone not recognized")
	}
	if got := back.Lookup("Name").(*Scalar).Value(); got != "multi\nline\n" {
		t.Errorf("literal block read back as %q", got)
	}
}

func TestParseItemKey(t *testing.T) {
	tests := []struct {
		in      string
		want    ItemKey
		wantErr bool
	}{
		{in: "01000000010000000100000001000000", want: ItemKey{ID: types.ItemIDFromInt(1)}},
		{in: "01000000010000000100000001000000~Key1", want: ItemKey{ID: types.ItemIDFromInt(1), Key: "Key1", Mapping: true}},
		{in: "01000000010000000100000001000000~", want: ItemKey{ID: types.ItemIDFromInt(1), Mapping: true}},
		{in: "0100~Key1", wantErr: true},
		{in: "zz000000010000000100000001000000", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseItemKey(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedItemKey) {
					t.Errorf("expected ErrMalformedItemKey, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
			if got.String() != tt.in {
				t.Errorf("String() = %q, want %q", got.String(), tt.in)
			}
		})
	}
}

func TestScalarStyleFor(t *testing.T) {
	tests := []struct {
		in   string
		want yaml.Style
	}{
		{"hello", 0},
		{"123", yaml.DoubleQuotedStyle},
		{"true", yaml.DoubleQuotedStyle},
		{"", yaml.DoubleQuotedStyle},
		{"ref!! abc", yaml.DoubleQuotedStyle},
		{DeletedToken, yaml.DoubleQuotedStyle},
		{"two\nlines", yaml.LiteralStyle},
	}
	for _, tt := range tests {
		if got := ScalarStyleFor(tt.in); got != tt.want {
			t.Errorf("ScalarStyleFor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if ScalarStyleFor("a: b") == 0 {
		t.Error("a mapping indicator must not be written plain")
	}
}
