package graph

import (
	"strings"

	"github.com/arthur-debert/assetyaml/types"
)

// Path addresses a position inside an object graph, such as
// "Children[01000000010000000100000001000000].Target". Members are joined with
// dots; collection items use their ItemID when they have one, their key or
// index otherwise.
type Path string

// Member returns p extended with a member name.
func (p Path) Member(name string) Path {
	if p == "" {
		return Path(name)
	}
	return p + "." + Path(name)
}

// Item returns p extended with an identified collection item.
func (p Path) Item(id types.ItemID) Path {
	return p + "[" + Path(id.String()) + "]"
}

// Key returns p extended with a plain index or key.
func (p Path) Key(key string) Path {
	return p + "[" + Path(key) + "]"
}

// String implements fmt.Stringer.
func (p Path) String() string { return string(p) }

// HasPrefix reports whether p is prefix or lies below it.
func (p Path) HasPrefix(prefix Path) bool {
	if prefix == "" || p == prefix {
		return true
	}
	if !strings.HasPrefix(string(p), string(prefix)) {
		return false
	}
	next := p[len(prefix)]
	return next == '.' || next == '['
}
