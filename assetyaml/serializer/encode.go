package serializer

import (
	"bytes"
	"fmt"
	"io"
	"maps"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/arthur-debert/assetyaml/assetyaml/descriptor"
	"github.com/arthur-debert/assetyaml/assetyaml/graph"
	"github.com/arthur-debert/assetyaml/assetyaml/ids"
	"github.com/arthur-debert/assetyaml/assetyaml/overrides"
	"github.com/arthur-debert/assetyaml/assetyaml/placeholder"
	"github.com/arthur-debert/assetyaml/assetyaml/yamldoc"
	"github.com/arthur-debert/assetyaml/types"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Serialize writes v to w. Identifiable collection items that have no id yet
// receive one, which is stored on the collection.
func Serialize(w io.Writer, v any, opts Options) error {
	doc, err := ToDocument(v, opts)
	if err != nil {
		return err
	}
	return doc.Encode(w)
}

// Marshal returns the document text of v.
func Marshal(v any, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := Serialize(&buf, v, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ToDocument converts v into an editable document.
func ToDocument(v any, opts Options) (*yamldoc.Document, error) {
	s := &encodeState{
		opts:      opts,
		overrides: make(map[*yaml.Node]types.OverrideType),
		expanded:  make(map[uuid.UUID]bool),
		stack:     make(map[uintptr]bool),
	}
	n, err := s.encode(reflect.ValueOf(v), "", nil, true)
	if err != nil {
		return nil, err
	}
	return yamldoc.New(n, s.overrides), nil
}

type encodeState struct {
	opts      Options
	overrides map[*yaml.Node]types.OverrideType
	expanded  map[uuid.UUID]bool
	stack     map[uintptr]bool
}

func (s *encodeState) setOverride(key *yaml.Node, o types.OverrideType) {
	if o != types.OverrideBase {
		s.overrides[key] = o
	}
}

func nullNode() *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
}

func (s *encodeState) tagOf(t reflect.Type) string {
	tag, _ := s.opts.types().TagOf(t)
	return tag
}

// encode converts v. tagged requests the type tag of the concrete value; it is
// set for the root and for values held by interfaces.
func (s *encodeState) encode(v reflect.Value, path graph.Path, member *descriptor.Member, tagged bool) (*yaml.Node, error) {
	if !v.IsValid() {
		return nullNode(), nil
	}
	if v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nullNode(), nil
		}
		v = v.Elem()
		tagged = true
	}
	if v.Type() == unloadableType {
		if v.IsNil() {
			return nullNode(), nil
		}
		return s.graft(v.Interface().(*placeholder.Unloadable)), nil
	}

	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nullNode(), nil
		}
		if id, ok := objectID(v); ok {
			_, listed := s.opts.References[path]
			if listed || s.expanded[id] {
				tag := ""
				if tagged {
					tag = s.tagOf(v.Type())
				}
				return yamldoc.NewReference(id.String(), tag), nil
			}
			s.expanded[id] = true
		}
		if c, ok := ids.AsCollection(v); ok {
			return s.encodeCollection(c, path, member, s.tagIf(tagged, v.Type()))
		}
		ptr := v.Pointer()
		if s.stack[ptr] {
			return nil, &CycleError{Path: path, Type: v.Type().String()}
		}
		s.stack[ptr] = true
		defer delete(s.stack, ptr)
		v = v.Elem()
	}

	if c, ok := ids.AsCollection(v); ok {
		return s.encodeCollection(c, path, member, s.tagIf(tagged, v.Type()))
	}

	text, isText, err := marshalText(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if isText {
		n := yamldoc.NewString(text)
		if tagged {
			n.Tag = s.tagOf(v.Type())
		}
		return n, nil
	}

	switch v.Kind() {
	case reflect.Struct:
		return s.encodeStruct(v, path, s.tagIf(tagged, v.Type()))
	case reflect.Slice, reflect.Array:
		return s.encodeSequence(v, path, s.tagIf(tagged && v.Type().Name() != "", v.Type()))
	case reflect.Map:
		return s.encodeMap(v, path, s.tagIf(tagged && v.Type().Name() != "", v.Type()))
	case reflect.String:
		n := yamldoc.NewString(v.String())
		if tagged && v.Type().PkgPath() != "" {
			n.Tag = s.tagOf(v.Type())
		}
		return n, nil
	case reflect.Bool:
		return yamldoc.NewPlain(strconv.FormatBool(v.Bool())), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return yamldoc.NewPlain(strconv.FormatInt(v.Int(), 10)), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return yamldoc.NewPlain(strconv.FormatUint(v.Uint(), 10)), nil
	case reflect.Float32, reflect.Float64:
		return yamldoc.NewPlain(formatFloat(v.Float(), v.Type().Bits())), nil
	}
	return nil, fmt.Errorf("%s: unsupported type %s", path, v.Type())
}

func (s *encodeState) tagIf(tagged bool, t reflect.Type) string {
	if !tagged {
		return ""
	}
	return s.tagOf(t)
}

func (s *encodeState) graft(u *placeholder.Unloadable) *yaml.Node {
	maps.Copy(s.overrides, u.Overrides)
	if u.Node == nil {
		return nullNode()
	}
	return u.Node
}

func (s *encodeState) encodeStruct(v reflect.Value, path graph.Path, tag string) (*yaml.Node, error) {
	d, err := descriptor.Describe(v.Type())
	if err != nil {
		return nil, err
	}
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: tag}
	carrier := carrierOf(v)

	for i := range d.Members {
		m := &d.Members[i]
		field, ok := m.Lookup(v)
		if !ok {
			continue
		}

		var child *yaml.Node
		if carrier != nil && field.IsZero() {
			if u, ok := placeholder.Lookup(carrier, placeholder.Key{Member: m.Name}); ok {
				child = s.graft(u)
			}
		}
		if child == nil {
			if m.OmitEmpty && isEmptyValue(field) {
				continue
			}
			child, err = s.encode(field, path.Member(m.Name), m, false)
			if err != nil {
				return nil, err
			}
		}

		key := yamldoc.NewString(m.Name)
		if carrier != nil {
			s.setOverride(key, overrides.Get(carrier, m.Name))
		}
		n.Content = append(n.Content, key, child)
	}
	return n, nil
}

func (s *encodeState) encodeCollection(c ids.Collection, path graph.Path, member *descriptor.Member, tag string) (*yaml.Node, error) {
	identifiable := ids.Enabled() && (member == nil || !member.NonIdentifiable)
	if !identifiable {
		return s.encodePlainCollection(c, path, tag)
	}

	if n := graph.EnsureItemIDs(c, s.opts.generator()); n > 0 {
		s.opts.logger().Debug("generated item ids", "path", path.String(), "count", n)
	}
	table := ids.GetOrCreateIdentifiers(c)
	mapping := c.CollectionKind() == ids.Mapping

	n := &yaml.Node{Kind: yaml.MappingNode, Tag: tag}
	for _, e := range c.Entries() {
		id := table.Get(e.Key)
		label := id.String()
		if mapping {
			natural, err := keyText(reflect.ValueOf(e.Key))
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			label += "~" + natural
		}
		key := yamldoc.NewPlain(label)
		s.setOverride(key, overrides.Get(c, id))

		var value *yaml.Node
		if e.Value.IsZero() {
			if u, ok := placeholder.Lookup(c, placeholder.Key{Item: e.Key}); ok {
				value = s.graft(u)
			}
		}
		if value == nil {
			var err error
			value, err = s.encode(e.Value, path.Item(id), nil, false)
			if err != nil {
				return nil, err
			}
		}
		n.Content = append(n.Content, key, value)
	}

	for _, id := range table.DeletedItems() {
		label := id.String()
		if mapping {
			label += "~"
		}
		key := yamldoc.NewPlain(label)
		s.setOverride(key, overrides.Get(c, id))
		n.Content = append(n.Content, key, yamldoc.NewDeleted())
	}
	return n, nil
}

func (s *encodeState) encodePlainCollection(c ids.Collection, path graph.Path, tag string) (*yaml.Node, error) {
	entries := c.Entries()
	if c.CollectionKind() == ids.Sequence {
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: tag}
		for i, e := range entries {
			item, err := s.encode(e.Value, path.Key(strconv.Itoa(i)), nil, false)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, item)
		}
		return n, nil
	}

	n := &yaml.Node{Kind: yaml.MappingNode, Tag: tag}
	for _, e := range entries {
		text, err := keyText(reflect.ValueOf(e.Key))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		value, err := s.encode(e.Value, path.Key(text), nil, false)
		if err != nil {
			return nil, err
		}
		n.Content = append(n.Content, yamldoc.NewKey(text), value)
	}
	return n, nil
}

func (s *encodeState) encodeSequence(v reflect.Value, path graph.Path, tag string) (*yaml.Node, error) {
	n := &yaml.Node{Kind: yaml.SequenceNode, Tag: tag}
	for i := 0; i < v.Len(); i++ {
		item, err := s.encode(v.Index(i), path.Key(strconv.Itoa(i)), nil, false)
		if err != nil {
			return nil, err
		}
		n.Content = append(n.Content, item)
	}
	return n, nil
}

func (s *encodeState) encodeMap(v reflect.Value, path graph.Path, tag string) (*yaml.Node, error) {
	type pair struct {
		text  string
		key   reflect.Value
		value reflect.Value
	}
	pairs := make([]pair, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		text, err := keyText(iter.Key())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		pairs = append(pairs, pair{text, iter.Key(), iter.Value()})
	}
	slices.SortFunc(pairs, func(a, b pair) int { return strings.Compare(a.text, b.text) })

	n := &yaml.Node{Kind: yaml.MappingNode, Tag: tag}
	for _, p := range pairs {
		key, err := s.encode(p.key, path, nil, false)
		if err != nil {
			return nil, err
		}
		yamldoc.QuoteKey(key)
		value, err := s.encode(p.value, path.Key(p.text), nil, false)
		if err != nil {
			return nil, err
		}
		n.Content = append(n.Content, key, value)
	}
	return n, nil
}
