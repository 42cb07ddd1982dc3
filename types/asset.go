package types

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// AssetID identifies an asset across packages.
type AssetID uuid.UUID

// EmptyAssetID is the zero AssetID.
var EmptyAssetID AssetID

// NewAssetID returns a fresh random AssetID.
func NewAssetID() AssetID {
	return AssetID(uuid.New())
}

// AssetIDFromInt builds a deterministic AssetID using the same byte layout as
// ItemIDFromInt. Intended for tests and fixtures.
func AssetIDFromInt(n int) AssetID {
	return AssetID(ItemIDFromInt(n))
}

// ParseAssetID parses the canonical 8-4-4-4-12 form.
func ParseAssetID(s string) (AssetID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return EmptyAssetID, fmt.Errorf("invalid asset id %q: %w", s, err)
	}
	return AssetID(u), nil
}

// String returns the canonical lowercase 8-4-4-4-12 form.
func (id AssetID) String() string {
	return uuid.UUID(id).String()
}

// IsEmpty reports whether id is the zero AssetID.
func (id AssetID) IsEmpty() bool {
	return id == EmptyAssetID
}

// MarshalText implements encoding.TextMarshaler.
func (id AssetID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *AssetID) UnmarshalText(text []byte) error {
	parsed, err := ParseAssetID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// AssetReference points at another asset by identity and location.
// Its text form is "<id>:<location>".
type AssetReference struct {
	ID       AssetID
	Location string
}

// String returns the "<id>:<location>" representation.
func (r AssetReference) String() string {
	return r.ID.String() + ":" + r.Location
}

// IsEmpty reports whether the reference names neither an id nor a location.
func (r AssetReference) IsEmpty() bool {
	return r.ID.IsEmpty() && r.Location == ""
}

// ParseAssetReference parses "<id>:<location>". A bare location (no id part)
// is accepted and yields an empty ID.
func ParseAssetReference(s string) (AssetReference, error) {
	idPart, location, found := strings.Cut(s, ":")
	if !found {
		return AssetReference{Location: s}, nil
	}
	id, err := ParseAssetID(idPart)
	if err != nil {
		return AssetReference{}, fmt.Errorf("invalid asset reference %q: %w", s, err)
	}
	return AssetReference{ID: id, Location: location}, nil
}

// MarshalText implements encoding.TextMarshaler.
func (r AssetReference) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *AssetReference) UnmarshalText(text []byte) error {
	parsed, err := ParseAssetReference(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Identifiable is implemented by objects that carry a stable identity and can
// therefore be serialized once and referenced elsewhere with a ref!! token.
type Identifiable interface {
	ObjectID() uuid.UUID
}
