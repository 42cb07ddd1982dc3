package yamldoc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/arthur-debert/assetyaml/types"
	"gopkg.in/yaml.v3"
)

// Reserved scalar tokens. Plain scalars carrying them are never read as
// strings; strings that look like them are written quoted.
const (
	DeletedToken    = "~(Deleted)"
	ReferencePrefix = "ref!! "
)

// ErrMalformedItemKey is returned when a collection key does not start with
// a valid item id.
var ErrMalformedItemKey = errors.New("malformed item key")

// ItemKey is a parsed identifiable collection key: "<hex>" for sequence items,
// "<hex>~<key>" for mapping items.
type ItemKey struct {
	ID types.ItemID
	// Key is the natural key of a mapping item, empty for sequence items and
	// mapping tombstones.
	Key string
	// Mapping is set when the key carried a '~' separator.
	Mapping bool
}

// String implements fmt.Stringer.
func (k ItemKey) String() string {
	if k.Mapping {
		return k.ID.String() + "~" + k.Key
	}
	return k.ID.String()
}

// ParseItemKey splits an identifiable collection key.
func ParseItemKey(s string) (ItemKey, error) {
	head, key, mapping := strings.Cut(s, "~")
	id, err := types.ParseItemID(head)
	if err != nil {
		return ItemKey{}, fmt.Errorf("%w %q: %v", ErrMalformedItemKey, s, err)
	}
	return ItemKey{ID: id, Key: key, Mapping: mapping}, nil
}

// IsDeleted reports whether n is the tombstone token.
func IsDeleted(n *yaml.Node) bool {
	return n != nil && n.Kind == yaml.ScalarNode && isPlain(n) && n.Value == DeletedToken
}

// ReferenceID returns the id text of a back-reference scalar.
func ReferenceID(n *yaml.Node) (string, bool) {
	if n == nil || n.Kind != yaml.ScalarNode || !isPlain(n) {
		return "", false
	}
	return strings.CutPrefix(n.Value, ReferencePrefix)
}

// NewReference builds a back-reference scalar, tagged when tag is non-empty.
func NewReference(id, tag string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: ReferencePrefix + id}
}

// NewDeleted builds a tombstone scalar.
func NewDeleted() *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: DeletedToken}
}

// NewString builds a string scalar with the style needed to read it back
// unchanged.
func NewString(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s, Style: ScalarStyleFor(s)}
}

// NewKey builds a string scalar for a mapping key, quoted when the text ends
// in characters that would otherwise be read back as override glyphs.
func NewKey(s string) *yaml.Node {
	n := NewString(s)
	QuoteKey(n)
	return n
}

// QuoteKey makes a plain scalar key double-quoted when reading it back would
// strip override glyphs from it.
func QuoteKey(n *yaml.Node) {
	if n.Kind != yaml.ScalarNode || !isPlain(n) {
		return
	}
	if bare, _ := types.ParseOverrideKey(n.Value); bare != n.Value {
		n.Style = yaml.DoubleQuotedStyle
	}
}

// NewPlain builds an untagged plain scalar, for numbers, booleans and null.
func NewPlain(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: s}
}

// ScalarStyleFor returns the style a string needs so that YAML reads it back
// as the same string: plain when possible, a literal block for multi-line
// text, quoted otherwise.
func ScalarStyleFor(s string) yaml.Style {
	if s == "" || s == DeletedToken || strings.HasPrefix(s, ReferencePrefix) {
		return yaml.DoubleQuotedStyle
	}
	out, err := yaml.Marshal(s)
	if err != nil || len(out) == 0 {
		return yaml.DoubleQuotedStyle
	}
	switch out[0] {
	case '"':
		return yaml.DoubleQuotedStyle
	case '\'':
		return yaml.SingleQuotedStyle
	case '|', '>':
		if s[0] == ' ' || s[0] == '\n' || strings.Contains(s, "\r") {
			return yaml.DoubleQuotedStyle
		}
		return yaml.LiteralStyle
	}
	return 0
}

func isPlain(n *yaml.Node) bool {
	return n.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle|yaml.LiteralStyle|yaml.FoldedStyle) == 0
}
