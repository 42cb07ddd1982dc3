package asset

import (
	"errors"
	"strings"

	"github.com/arthur-debert/assetyaml/assetyaml/graph"
	"github.com/arthur-debert/assetyaml/assetyaml/yamldoc"
	"github.com/arthur-debert/assetyaml/types"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// IDMember is the member holding the asset id in a document.
const IDMember = "Id"

// ErrNotMapping is returned when a document root is not a mapping.
var ErrNotMapping = errors.New("asset document root is not a mapping")

// Dynamic is an asset held as a document rather than as a Go value. It lets
// tools handle assets whose types are not linked into the program: the id is
// read from the root Id member and references are the scalars of the form
// "<id>:<location>".
type Dynamic struct {
	doc *yamldoc.Document
}

// NewDynamic wraps doc.
func NewDynamic(doc *yamldoc.Document) (*Dynamic, error) {
	if _, ok := doc.Root().(*yamldoc.Mapping); !ok {
		return nil, ErrNotMapping
	}
	return &Dynamic{doc: doc}, nil
}

// ParseDynamic parses data as a dynamic asset.
func ParseDynamic(data []byte) (*Dynamic, error) {
	doc, err := yamldoc.Parse(data)
	if err != nil {
		return nil, err
	}
	return NewDynamic(doc)
}

// Document returns the underlying document.
func (d *Dynamic) Document() *yamldoc.Document { return d.doc }

// Tag returns the type tag of the root, empty when untagged.
func (d *Dynamic) Tag() string { return d.root().Tag() }

func (d *Dynamic) root() *yamldoc.Mapping {
	m, _ := d.doc.Root().(*yamldoc.Mapping)
	return m
}

// AssetID implements Asset. It returns the empty id when Id is missing or
// malformed.
func (d *Dynamic) AssetID() types.AssetID {
	s, ok := d.root().Get(IDMember).(*yamldoc.Scalar)
	if !ok {
		return types.EmptyAssetID
	}
	id, err := types.ParseAssetID(s.Value())
	if err != nil {
		return types.EmptyAssetID
	}
	return id
}

// SetAssetID implements Asset.
func (d *Dynamic) SetAssetID(id types.AssetID) {
	if s, ok := d.root().Get(IDMember).(*yamldoc.Scalar); ok {
		s.SetValue(id.String())
		return
	}
	d.root().SetString(IDMember, id.String())
}

// ObjectID implements types.Identifiable.
func (d *Dynamic) ObjectID() uuid.UUID { return uuid.UUID(d.AssetID()) }

// CloneAsset implements Cloner.
func (d *Dynamic) CloneAsset() Asset {
	overrides := make(map[*yaml.Node]types.OverrideType)
	root := cloneNode(d.doc.Node(), d.doc, overrides)
	return &Dynamic{doc: yamldoc.New(root, overrides)}
}

func cloneNode(n *yaml.Node, doc *yamldoc.Document, overrides map[*yaml.Node]types.OverrideType) *yaml.Node {
	if n == nil {
		return nil
	}
	out := *n
	out.Alias = nil
	if n.Alias != nil {
		out.Alias = cloneNode(n.Alias, doc, overrides)
	}
	out.Content = make([]*yaml.Node, len(n.Content))
	for i, c := range n.Content {
		out.Content[i] = cloneNode(c, doc, overrides)
	}
	if o := doc.KeyOverride(n); o != types.OverrideBase {
		overrides[&out] = o
	}
	return &out
}

// References implements ReferenceHolder.
func (d *Dynamic) References() []types.AssetReference {
	var refs []types.AssetReference
	d.scalars(func(n *yaml.Node) {
		if ref, ok := parseReference(n.Value); ok {
			refs = append(refs, ref)
		}
	})
	return refs
}

// RewriteReferences implements ReferenceHolder.
func (d *Dynamic) RewriteReferences(fn graph.ReferenceFunc) int {
	changed := 0
	d.scalars(func(n *yaml.Node) {
		ref, ok := parseReference(n.Value)
		if !ok {
			return
		}
		if updated, ok := fn(ref); ok {
			n.Value = updated.String()
			n.Tag = "!!str"
			n.Style = yamldoc.ScalarStyleFor(n.Value)
			changed++
		}
	})
	return changed
}

// FixupItemIDs implements ItemIDFixer for the id-keyed mappings of the
// document, those with at least one "<hex>" or "<hex>~<key>" key. In such a
// mapping an id repeated by a later live item is replaced, a tombstone of a
// live or already tombstoned id is dropped and, when the mapping holds
// dictionary items, a plain key added by hand becomes "<new hex>~<key>".
// It returns the number of keys changed or removed.
func (d *Dynamic) FixupItemIDs(gen graph.IDGenerator) int {
	changed := 0
	var visit func(n *yaml.Node)
	visit = func(n *yaml.Node) {
		switch n.Kind {
		case yaml.MappingNode:
			changed += d.fixupMapping(n, gen)
			for i := 1; i < len(n.Content); i += 2 {
				visit(n.Content[i])
			}
		case yaml.SequenceNode:
			for _, c := range n.Content {
				visit(c)
			}
		}
	}
	if root := d.doc.Node(); root != nil {
		visit(root)
	}
	return changed
}

func (d *Dynamic) fixupMapping(n *yaml.Node, gen graph.IDGenerator) int {
	type entry struct {
		key, value *yaml.Node
		item       yamldoc.ItemKey
		parsed     bool
	}
	entries := make([]entry, 0, len(n.Content)/2)
	identified, mapping := false, false
	for i := 0; i+1 < len(n.Content); i += 2 {
		e := entry{key: n.Content[i], value: n.Content[i+1]}
		if e.key.Kind == yaml.ScalarNode {
			if ik, err := yamldoc.ParseItemKey(e.key.Value); err == nil {
				e.item, e.parsed = ik, true
				identified = true
				mapping = mapping || ik.Mapping
			}
		}
		entries = append(entries, e)
	}
	if !identified {
		return 0
	}

	used := make(map[types.ItemID]bool)
	var renumber []*entry
	for i := range entries {
		e := &entries[i]
		switch {
		case !e.parsed:
			if mapping && e.key.Kind == yaml.ScalarNode {
				renumber = append(renumber, e)
			}
		case yamldoc.IsDeleted(e.value):
		case used[e.item.ID]:
			renumber = append(renumber, e)
		default:
			used[e.item.ID] = true
		}
	}

	changed := 0
	content := n.Content[:0]
	tombstones := make(map[types.ItemID]bool)
	for _, e := range entries {
		if e.parsed && yamldoc.IsDeleted(e.value) {
			if used[e.item.ID] || tombstones[e.item.ID] {
				d.doc.SetKeyOverride(e.key, types.OverrideBase)
				changed++
				continue
			}
			tombstones[e.item.ID] = true
		}
		content = append(content, e.key, e.value)
	}
	n.Content = content

	for _, e := range renumber {
		id := gen()
		for id.IsEmpty() || used[id] || tombstones[id] {
			id = gen()
		}
		used[id] = true
		if e.parsed {
			e.item.ID = id
			e.key.Value = e.item.String()
		} else {
			e.key.Value = id.String() + "~" + e.key.Value
		}
		changed++
	}
	return changed
}

// scalars calls fn for every value scalar of the document except the root id.
func (d *Dynamic) scalars(fn func(n *yaml.Node)) {
	root := d.doc.Node()
	var idNode *yaml.Node
	if s, ok := d.root().Get(IDMember).(*yamldoc.Scalar); ok {
		idNode = s.YAML()
	}
	var visit func(n *yaml.Node)
	visit = func(n *yaml.Node) {
		switch n.Kind {
		case yaml.MappingNode:
			for i := 1; i < len(n.Content); i += 2 {
				visit(n.Content[i])
			}
		case yaml.SequenceNode:
			for _, c := range n.Content {
				visit(c)
			}
		case yaml.ScalarNode:
			if n != idNode {
				fn(n)
			}
		}
	}
	visit(root)
}

func parseReference(s string) (types.AssetReference, bool) {
	if !strings.Contains(s, ":") {
		return types.AssetReference{}, false
	}
	ref, err := types.ParseAssetReference(s)
	if err != nil || ref.ID.IsEmpty() {
		return types.AssetReference{}, false
	}
	return ref, true
}
