package types

import (
	"testing"
)

func TestItemID(t *testing.T) {
	t.Run("deterministic ids", func(t *testing.T) {
		if got := ItemIDFromInt(1).String(); got != "01000000010000000100000001000000" {
			t.Errorf("ItemIDFromInt(1) = %s", got)
		}
		if got := ItemIDFromInt(-1).String(); got != "ffffffffffffffffffffffffffffffff" {
			t.Errorf("ItemIDFromInt(-1) = %s", got)
		}
	})

	t.Run("new ids are never empty", func(t *testing.T) {
		seen := make(map[ItemID]bool)
		for i := 0; i < 100; i++ {
			id := NewItemID()
			if id.IsEmpty() {
				t.Fatal("NewItemID returned the empty id")
			}
			if seen[id] {
				t.Fatalf("NewItemID repeated %s", id)
			}
			seen[id] = true
		}
	})

	t.Run("parse", func(t *testing.T) {
		tests := []struct {
			input   string
			want    ItemID
			wantErr bool
		}{
			{"02000000020000000200000002000000", ItemIDFromInt(2), false},
			{"0200000002000000020000000200000", EmptyItemID, true},
			{"0200000002000000020000000200000g", EmptyItemID, true},
			{"", EmptyItemID, true},
		}
		for _, tt := range tests {
			got, err := ParseItemID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseItemID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
				continue
			}
			if got != tt.want {
				t.Errorf("ParseItemID(%q) = %s, want %s", tt.input, got, tt.want)
			}
		}
	})

	t.Run("ordering", func(t *testing.T) {
		if ItemIDFromInt(1).Compare(ItemIDFromInt(2)) != -1 {
			t.Error("expected 1 < 2")
		}
		if ItemIDFromInt(3).Compare(ItemIDFromInt(3)) != 0 {
			t.Error("expected equal ids to compare 0")
		}
	})

	t.Run("prefix", func(t *testing.T) {
		if !IsItemIDPrefix("01000000010000000100000001000000~wood") {
			t.Error("item key not recognized")
		}
		if IsItemIDPrefix("Layers") {
			t.Error("member name recognized as item key")
		}
	})
}

func TestAssetReference(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    AssetReference
		wantErr bool
	}{
		{
			name:  "id and location",
			input: "05000000-0500-0000-0500-000005000000:materials/wood",
			want:  AssetReference{ID: AssetIDFromInt(5), Location: "materials/wood"},
		},
		{
			name:  "bare location",
			input: "materials/wood",
			want:  AssetReference{Location: "materials/wood"},
		},
		{
			name:    "malformed id",
			input:   "x:y",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAssetReference(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}

	if !(AssetReference{}).IsEmpty() {
		t.Error("zero reference should be empty")
	}
}

func TestOverrideKeys(t *testing.T) {
	item := "01000000010000000100000001000000"

	tests := []struct {
		name      string
		key       string
		override  OverrideType
		formatted string
	}{
		{"plain member", "Name", OverrideBase, "Name"},
		{"new member", "Name", OverrideNew, "Name*"},
		{"sealed member", "Name", OverrideSealed, "Name!"},
		{"new and sealed member", "Name", OverrideNew | OverrideSealed, "Name*!"},
		{"list item", item, OverrideNew, item + "*"},
		{"dictionary item", item + "~wood", OverrideSealed, item + "!~wood"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatOverrideKey(tt.key, tt.override); got != tt.formatted {
				t.Errorf("FormatOverrideKey = %q, want %q", got, tt.formatted)
			}
			key, o := ParseOverrideKey(tt.formatted)
			if key != tt.key || o != tt.override {
				t.Errorf("ParseOverrideKey(%q) = %q, %s", tt.formatted, key, o)
			}
		})
	}

	t.Run("unknown glyph order is part of the key", func(t *testing.T) {
		key, o := ParseOverrideKey("Name!*")
		if key != "Name!*" || o != OverrideBase {
			t.Errorf("got %q, %s", key, o)
		}
	})

	t.Run("parse type names", func(t *testing.T) {
		o, ok := ParseOverrideType("New|sealed")
		if !ok || o != OverrideNew|OverrideSealed {
			t.Errorf("got %s, %t", o, ok)
		}
		if _, ok := ParseOverrideType("frozen"); ok {
			t.Error("unknown name accepted")
		}
		if o.String() != "New|Sealed" {
			t.Errorf("String = %q", o.String())
		}
	})
}
