package graph

import (
	"reflect"

	"github.com/arthur-debert/assetyaml/assetyaml/ids"
	"github.com/arthur-debert/assetyaml/assetyaml/placeholder"
	"github.com/arthur-debert/assetyaml/assetyaml/shadow"
)

var (
	slotType       = reflect.TypeFor[shadow.Slot]()
	carrierType    = reflect.TypeFor[shadow.Carrier]()
	unloadableType = reflect.TypeFor[*placeholder.Unloadable]()
)

// Clone deep-copies v. Shared pointers stay shared inside the copy and cycles
// are preserved. Collection item ids, overrides and unloadable records are
// copied onto the cloned owners. Unexported fields other than embedded structs
// are left zero. Unloadable placeholders are shared, they are never mutated.
func Clone[T any](v T) T {
	c := &cloner{memo: make(map[pointerKey]reflect.Value)}
	out, _ := c.clone(reflect.ValueOf(&v).Elem()).Interface().(T)
	return out
}

type cloner struct {
	memo map[pointerKey]reflect.Value
}

func (c *cloner) clone(src reflect.Value) reflect.Value {
	t := src.Type()
	switch src.Kind() {
	case reflect.Interface:
		out := reflect.New(t).Elem()
		if !src.IsNil() {
			out.Set(c.clone(src.Elem()))
		}
		return out

	case reflect.Pointer:
		if src.IsNil() || t == unloadableType {
			return src
		}
		key := pointerKey{src.Pointer(), t}
		if done, ok := c.memo[key]; ok {
			return done
		}
		out := reflect.New(t.Elem())
		c.memo[key] = out
		if srcColl, ok := src.Interface().(ids.Collection); ok {
			c.cloneCollection(out.Interface().(ids.Collection), srcColl)
			return out
		}
		if t.Elem().Kind() == reflect.Struct {
			c.cloneInto(out.Elem(), src.Elem())
		} else {
			out.Elem().Set(c.clone(src.Elem()))
		}
		return out

	case reflect.Struct:
		out := reflect.New(t).Elem()
		c.cloneInto(out, src)
		return out

	case reflect.Slice:
		if src.IsNil() {
			return src
		}
		out := reflect.MakeSlice(t, src.Len(), src.Len())
		for i := 0; i < src.Len(); i++ {
			out.Index(i).Set(c.clone(src.Index(i)))
		}
		return out

	case reflect.Array:
		out := reflect.New(t).Elem()
		for i := 0; i < src.Len(); i++ {
			out.Index(i).Set(c.clone(src.Index(i)))
		}
		return out

	case reflect.Map:
		if src.IsNil() {
			return src
		}
		out := reflect.MakeMapWithSize(t, src.Len())
		iter := src.MapRange()
		for iter.Next() {
			out.SetMapIndex(c.clone(iter.Key()), c.clone(iter.Value()))
		}
		return out
	}
	return src
}

// cloneInto copies the fields of src into the addressable struct dst.
func (c *cloner) cloneInto(dst, src reflect.Value) {
	t := src.Type()

	// Collections held by value
	if dstColl, ok := ids.AsCollection(dst); ok {
		tmp := reflect.New(t).Elem()
		tmp.Set(src)
		srcColl, _ := ids.AsCollection(tmp)
		c.cloneCollection(dstColl, srcColl)
		return
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Type == slotType {
			continue
		}
		switch {
		case field.IsExported():
			dst.Field(i).Set(c.clone(src.Field(i)))
		case field.Anonymous && field.Type.Kind() == reflect.Struct:
			c.cloneInto(dst.Field(i), src.Field(i))
		}
	}

	if src.CanAddr() && reflect.PointerTo(t).Implements(carrierType) && src.Addr().CanInterface() {
		shadow.Default.CopyTo(dst.Addr().Interface().(shadow.Carrier), src.Addr().Interface().(shadow.Carrier))
	}
}

func (c *cloner) cloneCollection(dst, src ids.Collection) {
	for _, e := range src.Entries() {
		dst.AppendEntry(e.Key, c.clone(e.Value))
	}
	shadow.Default.CopyTo(dst, src)
}
