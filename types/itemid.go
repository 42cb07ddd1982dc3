package types

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// ItemID is the stable identity of one item of an identifiable collection.
// It is independent of the item's position (list index) or key (dictionary key)
// and survives clone, rename and move of the item it names.
type ItemID [16]byte

// EmptyItemID is the reserved zero id. It is never produced by NewItemID.
var EmptyItemID ItemID

// NewItemID returns a fresh random, non-zero ItemID.
func NewItemID() ItemID {
	for {
		id := ItemID(uuid.New())
		if !id.IsEmpty() {
			return id
		}
	}
}

// ItemIDFromInt builds a deterministic ItemID by repeating n, encoded as a
// little-endian int32, four times. ItemIDFromInt(1) renders as
// 01000000010000000100000001000000. Intended for tests and fixtures.
func ItemIDFromInt(n int) ItemID {
	var id ItemID
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint32(id[i*4:], uint32(int32(n)))
	}
	return id
}

// ParseItemID parses the 32 hex character form produced by String.
func ParseItemID(s string) (ItemID, error) {
	var id ItemID
	if len(s) != 32 {
		return EmptyItemID, fmt.Errorf("invalid item id %q: expected 32 hex characters, got %d", s, len(s))
	}
	if _, err := hex.Decode(id[:], []byte(s)); err != nil {
		return EmptyItemID, fmt.Errorf("invalid item id %q: %w", s, err)
	}
	return id, nil
}

// String returns the lowercase hex encoding of the 16 bytes, without separators.
func (id ItemID) String() string {
	return hex.EncodeToString(id[:])
}

// IsEmpty reports whether id is the reserved zero id.
func (id ItemID) IsEmpty() bool {
	return id == EmptyItemID
}

// Compare orders ids byte-wise. It returns -1, 0 or +1.
func (id ItemID) Compare(other ItemID) int {
	return bytes.Compare(id[:], other[:])
}

// MarshalText implements encoding.TextMarshaler.
func (id ItemID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ItemID) UnmarshalText(text []byte) error {
	parsed, err := ParseItemID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// IsItemIDPrefix reports whether s starts with a well-formed 32 character hex id.
func IsItemIDPrefix(s string) bool {
	if len(s) < 32 {
		return false
	}
	for i := 0; i < 32; i++ {
		c := s[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F') {
			return false
		}
	}
	return true
}
