// Package yamldoc is an editable, order-preserving model of an asset
// document.
//
// A Document wraps a parsed yaml.Node tree. Override glyphs on mapping keys
// ("Name*:", "0100...!~Key:") are stripped when parsing and kept in a side
// map, so keys read back bare and RemoveChild drops the child and its
// override together. Writing a Document back out reproduces the canonical
// text it was read from.
package yamldoc

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/arthur-debert/assetyaml/types"
	"gopkg.in/yaml.v3"
)

// Document is a parsed asset document.
type Document struct {
	root      *yaml.Node
	overrides map[*yaml.Node]types.OverrideType
}

// Parse reads a document from data. Empty input yields an empty document.
func Parse(data []byte) (*Document, error) {
	var n yaml.Node
	if err := yaml.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	d := &Document{overrides: make(map[*yaml.Node]types.OverrideType)}
	if n.Kind != 0 {
		d.root = &n
		d.stripOverrides(&n)
	}
	return d, nil
}

// Load reads a document from r.
func Load(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return Parse(data)
}

// New wraps a node tree built in memory. Key overrides may be nil.
func New(n *yaml.Node, overrides map[*yaml.Node]types.OverrideType) *Document {
	if overrides == nil {
		overrides = make(map[*yaml.Node]types.OverrideType)
	}
	return &Document{root: n, overrides: overrides}
}

func (d *Document) stripOverrides(n *yaml.Node) {
	if n.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(n.Content); i += 2 {
			k := n.Content[i]
			if k.Kind != yaml.ScalarNode || !isPlain(k) {
				continue
			}
			bare, o := types.ParseOverrideKey(k.Value)
			if o != types.OverrideBase {
				k.Value = bare
				d.overrides[k] = o
			}
		}
	}
	for _, c := range n.Content {
		d.stripOverrides(c)
	}
}

// Node returns the content node of the document, nil when empty.
func (d *Document) Node() *yaml.Node {
	if d.root != nil && d.root.Kind == yaml.DocumentNode {
		if len(d.root.Content) == 0 {
			return nil
		}
		return d.root.Content[0]
	}
	return d.root
}

// Root returns the wrapped content node, nil when empty.
func (d *Document) Root() Node {
	return d.wrap(d.Node())
}

// KeyOverride returns the override recorded for a mapping key node.
func (d *Document) KeyOverride(key *yaml.Node) types.OverrideType {
	return d.overrides[key]
}

// SetKeyOverride records the override of a mapping key node.
func (d *Document) SetKeyOverride(key *yaml.Node, o types.OverrideType) {
	if o == types.OverrideBase {
		delete(d.overrides, key)
		return
	}
	d.overrides[key] = o
}

// SubtreeOverrides returns the key overrides recorded inside n.
func (d *Document) SubtreeOverrides(n *yaml.Node) map[*yaml.Node]types.OverrideType {
	out := make(map[*yaml.Node]types.OverrideType)
	var visit func(*yaml.Node)
	visit = func(n *yaml.Node) {
		if o, ok := d.overrides[n]; ok {
			out[n] = o
		}
		for _, c := range n.Content {
			visit(c)
		}
	}
	if n != nil {
		visit(n)
	}
	return out
}

// Graft records the key overrides of a subtree taken from another document.
func (d *Document) Graft(overrides map[*yaml.Node]types.OverrideType) {
	for k, o := range overrides {
		d.overrides[k] = o
	}
}

// Encode writes the document in canonical layout.
func (d *Document) Encode(w io.Writer) error {
	return Encode(w, d.root, d.overrides)
}

// Bytes returns the canonical text of the document.
func (d *Document) Bytes() []byte {
	return Marshal(d.root, d.overrides)
}

// String implements fmt.Stringer.
func (d *Document) String() string {
	return string(d.Bytes())
}

// Lookup follows a path of mapping keys and sequence indices from the root.
// It returns nil when any step is missing.
func (d *Document) Lookup(path ...string) Node {
	cur := d.Root()
	for _, step := range path {
		switch n := cur.(type) {
		case *Mapping:
			cur = n.Get(step)
		case *Sequence:
			i, err := strconv.Atoi(step)
			if err != nil {
				return nil
			}
			cur = n.At(i)
		default:
			return nil
		}
		if cur == nil {
			return nil
		}
	}
	return cur
}

// Equal reports whether two documents have the same canonical text.
func Equal(a, b *Document) bool {
	return bytes.Equal(a.Bytes(), b.Bytes())
}
