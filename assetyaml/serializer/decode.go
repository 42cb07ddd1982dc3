package serializer

import (
	"encoding"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"

	"github.com/arthur-debert/assetyaml/assetyaml/descriptor"
	"github.com/arthur-debert/assetyaml/assetyaml/graph"
	"github.com/arthur-debert/assetyaml/assetyaml/ids"
	"github.com/arthur-debert/assetyaml/assetyaml/overrides"
	"github.com/arthur-debert/assetyaml/assetyaml/placeholder"
	"github.com/arthur-debert/assetyaml/assetyaml/shadow"
	"github.com/arthur-debert/assetyaml/assetyaml/yamldoc"
	"github.com/arthur-debert/assetyaml/types"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

var (
	// ErrEmptyDocument is returned when there is nothing to load.
	ErrEmptyDocument = errors.New("empty document")
	// ErrInvalidTarget is returned when the decode target is not a non-nil
	// pointer.
	ErrInvalidTarget = errors.New("target must be a non-nil pointer")
)

// Deserialize reads a document whose root tag names a registered type and
// returns a pointer to the loaded value in Result.Value.
func Deserialize(r io.Reader, opts Options) (*Result, error) {
	doc, err := yamldoc.Load(r)
	if err != nil {
		return nil, err
	}
	return FromDocument(doc, nil, opts)
}

// DeserializeInto reads a document into target, which must be a non-nil
// pointer.
func DeserializeInto(r io.Reader, target any, opts Options) (*Result, error) {
	doc, err := yamldoc.Load(r)
	if err != nil {
		return nil, err
	}
	return FromDocument(doc, target, opts)
}

// Unmarshal reads data into target.
func Unmarshal(data []byte, target any, opts Options) (*Result, error) {
	doc, err := yamldoc.Parse(data)
	if err != nil {
		return nil, err
	}
	return FromDocument(doc, target, opts)
}

// FromDocument loads doc. With a nil target the root type is taken from the
// root tag; an unknown root tag yields a *placeholder.Unloadable.
//
// Loading runs in two passes: the first builds every object and records the
// back-references it meets, the second points them at the objects they name,
// so a reference may appear before the object it refers to.
func FromDocument(doc *yamldoc.Document, target any, opts Options) (*Result, error) {
	root := doc.Node()
	if root == nil {
		return nil, ErrEmptyDocument
	}
	s := &decodeState{
		opts:    opts,
		doc:     doc,
		objects: make(map[uuid.UUID]reflect.Value),
		result:  &Result{References: make(References)},
	}

	if target != nil {
		rv := reflect.ValueOf(target)
		if rv.Kind() != reflect.Pointer || rv.IsNil() {
			return nil, ErrInvalidTarget
		}
		s.decode(rv.Elem(), root, "", slot{})
		s.register(rv)
		s.result.Value = target
	} else {
		t, ok := s.opts.types().Lookup(root.Tag)
		if !descriptor.IsCustomTag(root.Tag) || !ok {
			s.result.Value = s.placeholder(root, "", CodeUnknownTag, SeverityWarning,
				fmt.Sprintf("unknown root type tag %q", root.Tag))
		} else {
			rv := reflect.New(t)
			s.decode(rv.Elem(), root, "", slot{})
			s.register(rv)
			s.result.Value = rv.Interface()
		}
	}

	s.resolve()
	s.opts.logger().Debug("document loaded",
		"objects", len(s.objects),
		"references", len(s.patches),
		"diagnostics", len(s.result.Diagnostics),
		"dirty", s.result.Dirty)

	if s.opts.Strict && s.result.HasErrors() {
		return s.result, &LoadError{Diagnostics: s.result.Diagnostics}
	}
	return s.result, nil
}

type decodeState struct {
	opts    Options
	doc     *yamldoc.Document
	objects map[uuid.UUID]reflect.Value
	patches []patch
	// stores copy values decoded into temporaries back to their map entry
	// or interface once the references inside them have been patched.
	stores  []func()
	result  *Result
}

// slot describes where a decoded value lives, so content that cannot be
// loaded can be attached to its owner.
type slot struct {
	owner  shadow.Carrier
	key    placeholder.Key
	member *descriptor.Member
	// replaced is set when the value was replaced by an Unloadable.
	replaced *bool
}

type patch struct {
	id     uuid.UUID
	path   graph.Path
	node   *yaml.Node
	assign func(obj reflect.Value) bool
}

func (s *decodeState) report(sev Severity, code, msg string, path graph.Path, n *yaml.Node) {
	d := Diagnostic{Severity: sev, Code: code, Message: msg, Path: path}
	if n != nil {
		d.Line, d.Column = n.Line, n.Column
	}
	s.result.Diagnostics = append(s.result.Diagnostics, d)
}

func (s *decodeState) placeholder(n *yaml.Node, path graph.Path, code string, sev Severity, msg string) *placeholder.Unloadable {
	s.report(sev, code, msg, path, n)
	u := &placeholder.Unloadable{
		Node:      n,
		Overrides: s.doc.SubtreeOverrides(n),
		Reason:    msg,
	}
	if descriptor.IsCustomTag(n.Tag) {
		u.Tag = n.Tag
	}
	return u
}

// unloadable keeps n as an Unloadable in place of v: inside v itself when v is
// an interface that can hold it, on the owner of the slot otherwise.
func (s *decodeState) unloadable(v reflect.Value, n *yaml.Node, path graph.Path, sl slot, code string, sev Severity, msg string) {
	u := s.placeholder(n, path, code, sev, msg)
	if v.Kind() == reflect.Interface && unloadableType.AssignableTo(v.Type()) {
		v.Set(reflect.ValueOf(u))
		return
	}
	if sl.replaced != nil {
		*sl.replaced = true
	}
	v.SetZero()
	if sl.owner == nil {
		s.result.Dirty = true
		return
	}
	placeholder.Attach(sl.owner, sl.key, u)
}

func (s *decodeState) mismatch(v reflect.Value, n *yaml.Node, path graph.Path, sl slot, format string, args ...any) {
	s.unloadable(v, n, path, sl, CodeTypeMismatch, SeverityWarning, fmt.Sprintf(format, args...))
}

// register remembers v when it is a pointer to an identifiable object.
func (s *decodeState) register(v reflect.Value) {
	id, ok := objectID(v)
	if !ok {
		return
	}
	if _, dup := s.objects[id]; dup {
		return
	}
	s.objects[id] = v
}

func (s *decodeState) decode(v reflect.Value, n *yaml.Node, path graph.Path, sl slot) {
	if n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}

	if text, ok := yamldoc.ReferenceID(n); ok {
		s.reference(v, n, text, path, sl, func(obj reflect.Value) bool {
			if !obj.Type().AssignableTo(v.Type()) {
				return false
			}
			v.Set(obj)
			return true
		})
		return
	}
	if yamldoc.IsDeleted(n) {
		s.mismatch(v, n, path, sl, "tombstone outside an identifiable collection")
		return
	}
	if isNull(n) {
		v.SetZero()
		return
	}

	tag := ""
	if descriptor.IsCustomTag(n.Tag) {
		tag = n.Tag
	}

	if v.Kind() == reflect.Interface {
		s.decodeInterface(v, n, tag, path, sl)
		return
	}

	if tag != "" && tag != descriptor.FullTag(v.Type()) {
		t, ok := s.opts.types().Lookup(tag)
		if !ok {
			s.unloadable(v, n, path, sl, CodeUnknownTag, SeverityWarning, fmt.Sprintf("unknown type tag %q", tag))
			return
		}
		if t != baseOf(v.Type()) {
			s.mismatch(v, n, path, sl, "tag %s does not fit %s", tag, v.Type())
			return
		}
	}

	if v.Kind() == reflect.Pointer {
		p := v
		if p.IsNil() {
			p = reflect.New(v.Type().Elem())
		}
		replaced := false
		inner := sl
		inner.replaced = &replaced
		s.decode(p.Elem(), n, path, inner)
		if replaced {
			v.SetZero()
			return
		}
		v.Set(p)
		return
	}

	if c, ok := ids.AsCollection(v); ok {
		s.decodeCollection(v, c, n, path, sl)
		return
	}

	if isTextUnmarshaler(v.Type()) && v.CanAddr() {
		if n.Kind != yaml.ScalarNode {
			s.mismatch(v, n, path, sl, "expected a scalar for %s", v.Type())
			return
		}
		if err := v.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(n.Value)); err != nil {
			s.mismatch(v, n, path, sl, "%v", err)
		}
		return
	}

	switch v.Kind() {
	case reflect.Struct:
		s.decodeStruct(v, n, path, sl)
	case reflect.Slice:
		s.decodeSlice(v, n, path, sl)
	case reflect.Array:
		s.decodeArray(v, n, path, sl)
	case reflect.Map:
		s.decodeMap(v, n, path, sl)
	default:
		s.decodeScalar(v, n, path, sl)
	}
}

func baseOf(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Tag == "!!null"
}

func (s *decodeState) reference(v reflect.Value, n *yaml.Node, text string, path graph.Path, sl slot, assign func(reflect.Value) bool) {
	if v.Kind() != reflect.Pointer && v.Kind() != reflect.Interface {
		s.mismatch(v, n, path, sl, "reference into %s", v.Type())
		return
	}
	id, err := uuid.Parse(text)
	if err != nil {
		s.unloadable(v, n, path, sl, CodeUnresolvedReference, SeverityError, fmt.Sprintf("malformed reference %q", text))
		return
	}
	s.result.References[path] = id
	s.patches = append(s.patches, patch{id: id, path: path, node: n, assign: assign})
}

func (s *decodeState) resolve() {
	for _, p := range s.patches {
		obj, ok := s.objects[p.id]
		if !ok {
			s.report(SeverityError, CodeUnresolvedReference, fmt.Sprintf("no object with id %s", p.id), p.path, p.node)
			s.result.Dirty = true
			continue
		}
		if !p.assign(obj) {
			s.report(SeverityWarning, CodeTypeMismatch, fmt.Sprintf("object %s is a %s", p.id, obj.Type()), p.path, p.node)
			s.result.Dirty = true
		}
	}
	for _, store := range s.stores {
		store()
	}
}

// storeAfterResolve runs store again after references are patched when
// decoding added any since mark.
func (s *decodeState) storeAfterResolve(mark int, store func()) {
	if len(s.patches) > mark {
		s.stores = append(s.stores, store)
	}
}

func (s *decodeState) decodeInterface(v reflect.Value, n *yaml.Node, tag string, path graph.Path, sl slot) {
	if tag == "" {
		if v.NumMethod() != 0 {
			s.mismatch(v, n, path, sl, "untagged value for %s", v.Type())
			return
		}
		var generic any
		if err := n.Decode(&generic); err != nil {
			s.mismatch(v, n, path, sl, "%v", err)
			return
		}
		if generic == nil {
			v.SetZero()
			return
		}
		v.Set(reflect.ValueOf(generic))
		return
	}

	t, ok := s.opts.types().Lookup(tag)
	if !ok {
		s.unloadable(v, n, path, sl, CodeUnknownTag, SeverityWarning, fmt.Sprintf("unknown type tag %q", tag))
		return
	}
	ptr := reflect.New(t)
	value := ptr
	if !ptr.Type().AssignableTo(v.Type()) {
		if !t.AssignableTo(v.Type()) {
			s.mismatch(v, n, path, sl, "%s does not implement %s", tag, v.Type())
			return
		}
		value = ptr.Elem()
	}
	replaced := false
	inner := sl
	inner.replaced = &replaced
	mark := len(s.patches)
	s.decode(ptr.Elem(), n, path, inner)
	if replaced {
		v.SetZero()
		return
	}
	v.Set(value)
	if value.Kind() != reflect.Pointer {
		s.storeAfterResolve(mark, func() { v.Set(ptr.Elem()) })
	}
}

func (s *decodeState) decodeStruct(v reflect.Value, n *yaml.Node, path graph.Path, sl slot) {
	if n.Kind != yaml.MappingNode {
		s.mismatch(v, n, path, sl, "expected a mapping for %s", v.Type())
		return
	}
	d, err := descriptor.Describe(v.Type())
	if err != nil {
		s.mismatch(v, n, path, sl, "%v", err)
		return
	}

	carrier := carrierOf(v)
	seen := make(map[string]bool, len(d.Members))
	for i := 0; i+1 < len(n.Content); i += 2 {
		keyNode, valueNode := n.Content[i], n.Content[i+1]
		name := keyNode.Value
		m, ok := d.Member(name)
		if !ok {
			s.report(SeverityWarning, CodeUnknownMember, fmt.Sprintf("%s has no member %q", v.Type(), name), path.Member(name), keyNode)
			s.result.Dirty = true
			continue
		}
		seen[name] = true
		s.decode(m.Field(v), valueNode, path.Member(name), slot{owner: carrier, key: placeholder.Key{Member: name}, member: &m})

		if o := s.doc.KeyOverride(keyNode); o != types.OverrideBase {
			if carrier == nil {
				s.result.Dirty = true
				continue
			}
			overrides.SetOverride(carrier, name, o)
		}
	}

	for _, m := range d.Members {
		if m.Required && !seen[m.Name] {
			s.report(SeverityError, CodeMissingMember, fmt.Sprintf("%s requires member %q", v.Type(), m.Name), path.Member(m.Name), n)
		}
	}

	if v.CanAddr() {
		s.register(v.Addr())
	}
}

type itemNode struct {
	key   yamldoc.ItemKey
	node  *yaml.Node
	value *yaml.Node
	// natural is the parsed key of a mapping item.
	natural reflect.Value
}

func (s *decodeState) decodeCollection(v reflect.Value, c ids.Collection, n *yaml.Node, path graph.Path, sl slot) {
	mapping := c.CollectionKind() == ids.Mapping
	identifiable := sl.member == nil || !sl.member.NonIdentifiable

	switch {
	case n.Kind == yaml.SequenceNode && !mapping:
		s.decodeCollectionSequence(c, n, path)
	case n.Kind == yaml.MappingNode && mapping && !identifiable:
		s.decodeCollectionMapping(v, c, n, path, sl)
	case n.Kind == yaml.MappingNode:
		s.decodeIdentifiable(v, c, n, path, sl)
	default:
		s.mismatch(v, n, path, sl, "unexpected %s for %s", kindName(n.Kind), v.Type())
	}
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.MappingNode:
		return "mapping"
	case yaml.SequenceNode:
		return "sequence"
	}
	return "scalar"
}

func (s *decodeState) decodeCollectionSequence(c ids.Collection, n *yaml.Node, path graph.Path) {
	c.Clear()
	ids.RemoveIdentifiers(c)
	for range n.Content {
		c.AppendEntry(nil, reflect.Value{})
	}
	for i, e := range c.Entries() {
		s.decode(e.Value, n.Content[i], path.Key(strconv.Itoa(i)), slot{owner: c, key: placeholder.Key{Item: e.Key}})
	}
}

func (s *decodeState) decodeCollectionMapping(v reflect.Value, c ids.Collection, n *yaml.Node, path graph.Path, sl slot) {
	keys := make([]reflect.Value, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, err := parseKey(n.Content[i].Value, c.KeyType())
		if err != nil {
			s.mismatch(v, n, path, sl, "key %q: %v", n.Content[i].Value, err)
			return
		}
		keys = append(keys, k)
	}
	c.Clear()
	ids.RemoveIdentifiers(c)
	for _, k := range keys {
		c.AppendEntry(k.Interface(), reflect.Value{})
	}
	for i, e := range c.Entries() {
		text := n.Content[2*i].Value
		s.decode(e.Value, n.Content[2*i+1], path.Key(text), slot{owner: c, key: placeholder.Key{Item: e.Key}})
	}
}

// decodeIdentifiable reads the "<hex>" / "<hex>~<key>" form. Every key is
// validated before the collection is touched; a bad key keeps the whole
// collection as an Unloadable.
func (s *decodeState) decodeIdentifiable(v reflect.Value, c ids.Collection, n *yaml.Node, path graph.Path, sl slot) {
	mapping := c.CollectionKind() == ids.Mapping
	var live []itemNode
	var deleted []itemNode
	seenIDs := make(map[types.ItemID]bool)
	seenKeys := make(map[any]bool)

	for i := 0; i+1 < len(n.Content); i += 2 {
		keyNode, valueNode := n.Content[i], n.Content[i+1]
		ik, err := yamldoc.ParseItemKey(keyNode.Value)
		if err == nil && ik.Mapping != mapping {
			err = fmt.Errorf("%w %q", yamldoc.ErrMalformedItemKey, keyNode.Value)
		}
		if err == nil && seenIDs[ik.ID] {
			err = fmt.Errorf("duplicate item id %s", ik.ID)
		}
		if err != nil {
			s.unloadable(v, n, path, sl, CodeMalformedItemID, SeverityError, err.Error())
			return
		}
		seenIDs[ik.ID] = true

		item := itemNode{key: ik, node: keyNode, value: valueNode}
		if yamldoc.IsDeleted(valueNode) {
			deleted = append(deleted, item)
			continue
		}
		if mapping {
			k, err := parseKey(ik.Key, c.KeyType())
			if err != nil {
				s.mismatch(v, n, path, sl, "key %q: %v", ik.Key, err)
				return
			}
			if seenKeys[k.Interface()] {
				s.unloadable(v, n, path, sl, CodeMalformedItemID, SeverityError, fmt.Sprintf("duplicate key %q", ik.Key))
				return
			}
			seenKeys[k.Interface()] = true
			item.natural = k
		}
		live = append(live, item)
	}

	c.Clear()
	table := ids.NewCollectionItemIdentifiers()
	for _, item := range live {
		if mapping {
			c.AppendEntry(item.natural.Interface(), reflect.Value{})
		} else {
			c.AppendEntry(nil, reflect.Value{})
		}
	}
	for i, e := range c.Entries() {
		table.Set(e.Key, live[i].key.ID)
	}
	for _, item := range deleted {
		table.MarkAsDeleted(item.key.ID)
	}
	ids.SetIdentifiers(c, table)

	for i, e := range c.Entries() {
		item := live[i]
		s.decode(e.Value, item.value, path.Item(item.key.ID), slot{owner: c, key: placeholder.Key{Item: e.Key}})
		overrides.SetOverride(c, item.key.ID, s.doc.KeyOverride(item.node))
	}
	for _, item := range deleted {
		overrides.SetOverride(c, item.key.ID, s.doc.KeyOverride(item.node))
	}
}

func (s *decodeState) decodeSlice(v reflect.Value, n *yaml.Node, path graph.Path, sl slot) {
	if n.Kind != yaml.SequenceNode {
		s.mismatch(v, n, path, sl, "expected a sequence for %s", v.Type())
		return
	}
	out := reflect.MakeSlice(v.Type(), len(n.Content), len(n.Content))
	v.Set(out)
	for i, item := range n.Content {
		s.decode(v.Index(i), item, path.Key(strconv.Itoa(i)), slot{})
	}
}

func (s *decodeState) decodeArray(v reflect.Value, n *yaml.Node, path graph.Path, sl slot) {
	if n.Kind != yaml.SequenceNode || len(n.Content) != v.Len() {
		s.mismatch(v, n, path, sl, "expected a sequence of %d items for %s", v.Len(), v.Type())
		return
	}
	for i, item := range n.Content {
		s.decode(v.Index(i), item, path.Key(strconv.Itoa(i)), slot{})
	}
}

func (s *decodeState) decodeMap(v reflect.Value, n *yaml.Node, path graph.Path, sl slot) {
	if n.Kind != yaml.MappingNode {
		s.mismatch(v, n, path, sl, "expected a mapping for %s", v.Type())
		return
	}
	t := v.Type()
	out := reflect.MakeMapWithSize(t, len(n.Content)/2)
	v.Set(out)
	for i := 0; i+1 < len(n.Content); i += 2 {
		keyNode, valueNode := n.Content[i], n.Content[i+1]
		k, err := parseKey(keyNode.Value, t.Key())
		if err != nil {
			s.report(SeverityWarning, CodeTypeMismatch, fmt.Sprintf("key %q: %v", keyNode.Value, err), path, keyNode)
			s.result.Dirty = true
			continue
		}
		itemPath := path.Key(keyNode.Value)
		if text, ok := yamldoc.ReferenceID(valueNode); ok {
			out.SetMapIndex(k, reflect.Zero(t.Elem()))
			s.reference(reflect.New(t.Elem()).Elem(), valueNode, text, itemPath, slot{}, func(obj reflect.Value) bool {
				if !obj.Type().AssignableTo(t.Elem()) {
					return false
				}
				out.SetMapIndex(k, obj)
				return true
			})
			continue
		}
		elem := reflect.New(t.Elem()).Elem()
		mark := len(s.patches)
		s.decode(elem, valueNode, itemPath, slot{})
		out.SetMapIndex(k, elem)
		s.storeAfterResolve(mark, func() { out.SetMapIndex(k, elem) })
	}
}

func (s *decodeState) decodeScalar(v reflect.Value, n *yaml.Node, path graph.Path, sl slot) {
	if n.Kind != yaml.ScalarNode {
		s.mismatch(v, n, path, sl, "expected a scalar for %s", v.Type())
		return
	}
	src := n
	if descriptor.IsCustomTag(n.Tag) {
		plain := *n
		plain.Tag = ""
		src = &plain
	}
	tmp := reflect.New(v.Type())
	if err := src.Decode(tmp.Interface()); err != nil {
		s.mismatch(v, n, path, sl, "%v", err)
		return
	}
	v.Set(tmp.Elem())
}
