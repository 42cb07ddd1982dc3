package yamldoc

import (
	"github.com/arthur-debert/assetyaml/types"
	"gopkg.in/yaml.v3"
)

// Node is a Mapping, Sequence or Scalar of a Document.
type Node interface {
	// YAML returns the underlying node.
	YAML() *yaml.Node
	// Tag returns the explicit type tag, empty when untagged.
	Tag() string
}

func (d *Document) wrap(n *yaml.Node) Node {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case yaml.MappingNode:
		return &Mapping{doc: d, n: n}
	case yaml.SequenceNode:
		return &Sequence{doc: d, n: n}
	case yaml.AliasNode:
		return d.wrap(n.Alias)
	}
	return &Scalar{n: n}
}

func explicitTag(n *yaml.Node) string {
	if showTag(n) {
		return n.Tag
	}
	return ""
}

// Child is one key/value pair of a Mapping.
type Child struct {
	Key      string
	Value    Node
	Override types.OverrideType
}

// Mapping is an ordered mapping node.
type Mapping struct {
	doc *Document
	n   *yaml.Node
}

// YAML implements Node.
func (m *Mapping) YAML() *yaml.Node { return m.n }

// Tag implements Node.
func (m *Mapping) Tag() string { return explicitTag(m.n) }

// Len returns the number of children.
func (m *Mapping) Len() int { return len(m.n.Content) / 2 }

// Children returns the pairs in document order.
func (m *Mapping) Children() []Child {
	out := make([]Child, 0, m.Len())
	for i := 0; i+1 < len(m.n.Content); i += 2 {
		k := m.n.Content[i]
		out = append(out, Child{
			Key:      k.Value,
			Value:    m.doc.wrap(m.n.Content[i+1]),
			Override: m.doc.overrides[k],
		})
	}
	return out
}

// Keys returns the bare keys in document order.
func (m *Mapping) Keys() []string {
	out := make([]string, 0, m.Len())
	for i := 0; i+1 < len(m.n.Content); i += 2 {
		out = append(out, m.n.Content[i].Value)
	}
	return out
}

func (m *Mapping) index(key string) int {
	for i := 0; i+1 < len(m.n.Content); i += 2 {
		if m.n.Content[i].Value == key {
			return i
		}
	}
	return -1
}

// Get returns the child under key, nil when absent.
func (m *Mapping) Get(key string) Node {
	i := m.index(key)
	if i < 0 {
		return nil
	}
	return m.doc.wrap(m.n.Content[i+1])
}

// Has reports whether key is present.
func (m *Mapping) Has(key string) bool { return m.index(key) >= 0 }

// Set replaces the value under key, appending the key when absent.
func (m *Mapping) Set(key string, value *yaml.Node) {
	if i := m.index(key); i >= 0 {
		m.n.Content[i+1] = value
		return
	}
	m.n.Content = append(m.n.Content, NewKey(key), value)
	m.n.Style &^= yaml.FlowStyle
}

// SetString stores a string scalar under key.
func (m *Mapping) SetString(key, value string) {
	m.Set(key, NewString(value))
}

// RemoveChild removes key and its override. It reports whether key was
// present.
func (m *Mapping) RemoveChild(key string) bool {
	i := m.index(key)
	if i < 0 {
		return false
	}
	delete(m.doc.overrides, m.n.Content[i])
	for k := range m.doc.SubtreeOverrides(m.n.Content[i+1]) {
		delete(m.doc.overrides, k)
	}
	m.n.Content = append(m.n.Content[:i], m.n.Content[i+2:]...)
	return true
}

// Override returns the override of key, Base when unset or absent.
func (m *Mapping) Override(key string) types.OverrideType {
	i := m.index(key)
	if i < 0 {
		return types.OverrideBase
	}
	return m.doc.overrides[m.n.Content[i]]
}

// SetOverride records the override of key. It reports false when key is
// absent.
func (m *Mapping) SetOverride(key string, o types.OverrideType) bool {
	i := m.index(key)
	if i < 0 {
		return false
	}
	m.doc.SetKeyOverride(m.n.Content[i], o)
	return true
}

// Sequence is a sequence node.
type Sequence struct {
	doc *Document
	n   *yaml.Node
}

// YAML implements Node.
func (s *Sequence) YAML() *yaml.Node { return s.n }

// Tag implements Node.
func (s *Sequence) Tag() string { return explicitTag(s.n) }

// Len returns the number of items.
func (s *Sequence) Len() int { return len(s.n.Content) }

// At returns item i, nil when out of range.
func (s *Sequence) At(i int) Node {
	if i < 0 || i >= len(s.n.Content) {
		return nil
	}
	return s.doc.wrap(s.n.Content[i])
}

// Items returns every item in order.
func (s *Sequence) Items() []Node {
	out := make([]Node, len(s.n.Content))
	for i, c := range s.n.Content {
		out[i] = s.doc.wrap(c)
	}
	return out
}

// Append adds an item at the end.
func (s *Sequence) Append(value *yaml.Node) {
	s.n.Content = append(s.n.Content, value)
	s.n.Style &^= yaml.FlowStyle
}

// RemoveAt removes item i and the overrides recorded inside it.
func (s *Sequence) RemoveAt(i int) bool {
	if i < 0 || i >= len(s.n.Content) {
		return false
	}
	for k := range s.doc.SubtreeOverrides(s.n.Content[i]) {
		delete(s.doc.overrides, k)
	}
	s.n.Content = append(s.n.Content[:i], s.n.Content[i+1:]...)
	return true
}

// Scalar is a scalar node.
type Scalar struct {
	n *yaml.Node
}

// YAML implements Node.
func (s *Scalar) YAML() *yaml.Node { return s.n }

// Tag implements Node.
func (s *Scalar) Tag() string { return explicitTag(s.n) }

// Value returns the scalar text.
func (s *Scalar) Value() string { return s.n.Value }

// IsNull reports whether the scalar is a YAML null.
func (s *Scalar) IsNull() bool {
	return s.n.Tag == "!!null" || (isPlain(s.n) && (s.n.Value == "null" || s.n.Value == "~" || s.n.Value == ""))
}

// SetValue replaces the scalar text, choosing a style that keeps it a string.
func (s *Scalar) SetValue(v string) {
	s.n.Value = v
	s.n.Tag = "!!str"
	s.n.Style = ScalarStyleFor(v)
}
