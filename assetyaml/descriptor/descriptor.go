// Package descriptor describes the serializable members of Go struct types and
// maps type tags to types.
//
// Members come from exported fields. The `asset` struct tag renames a member
// and sets options:
//
//	Items *ids.List[string] `asset:"Items,nonidentifiable"`
//	Name  string            `asset:",omitempty"`
//	Skip  int               `asset:"-"`
//
// Options are omitempty, nonidentifiable (collection items carry no ItemID) and
// required (a document missing the member produces a diagnostic). Fields of
// embedded structs are flattened, base fields first.
package descriptor

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/arthur-debert/assetyaml/assetyaml/shadow"
)

// TagName is the struct tag key read by Describe.
const TagName = "asset"

// Member describes one serializable field.
type Member struct {
	Name            string
	Index           []int
	Type            reflect.Type
	OmitEmpty       bool
	NonIdentifiable bool
	Required        bool
}

// Field returns the member's field of the struct value v, allocating nil
// embedded pointers on the way when v is settable.
func (m Member) Field(v reflect.Value) reflect.Value {
	for i, x := range m.Index {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				if !v.CanSet() {
					return reflect.Value{}
				}
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v
}

// Lookup returns the member's field of v without allocating. It reports false
// when a nil embedded pointer lies on the way.
func (m Member) Lookup(v reflect.Value) (reflect.Value, bool) {
	for i, x := range m.Index {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				return reflect.Value{}, false
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v, true
}

// Descriptor lists the members of a struct type in declaration order.
type Descriptor struct {
	Type    reflect.Type
	Members []Member
	byName  map[string]int
}

// Member returns the member serialized under name.
func (d *Descriptor) Member(name string) (Member, bool) {
	i, ok := d.byName[name]
	if !ok {
		return Member{}, false
	}
	return d.Members[i], true
}

// IsCarrier reports whether pointers to the type can hold shadow metadata.
func (d *Descriptor) IsCarrier() bool {
	return reflect.PointerTo(d.Type).Implements(carrierType)
}

var (
	cache       sync.Map // reflect.Type -> *Descriptor
	carrierType = reflect.TypeFor[shadow.Carrier]()
	slotType    = reflect.TypeFor[shadow.Slot]()
)

// Describe returns the descriptor of a struct type (or pointer to struct).
// Results are cached.
func Describe(t reflect.Type) (*Descriptor, error) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("expected struct type, got %s", t.Kind())
	}
	if d, ok := cache.Load(t); ok {
		return d.(*Descriptor), nil
	}

	d := &Descriptor{Type: t, byName: make(map[string]int)}
	if err := collect(d, t, nil); err != nil {
		return nil, err
	}
	actual, _ := cache.LoadOrStore(t, d)
	return actual.(*Descriptor), nil
}

// MustDescribe is Describe for types known to be structs.
func MustDescribe(t reflect.Type) *Descriptor {
	d, err := Describe(t)
	if err != nil {
		panic(err)
	}
	return d
}

func collect(d *Descriptor, t reflect.Type, index []int) error {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Type == slotType {
			continue
		}

		tag := field.Tag.Get(TagName)
		if tag == "-" {
			continue
		}

		fieldIndex := append(append([]int(nil), index...), i)

		// Flatten embedded structs that carry no explicit name
		if field.Anonymous && tag == "" {
			ft := field.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				if err := collect(d, ft, fieldIndex); err != nil {
					return err
				}
				continue
			}
		}

		if !field.IsExported() {
			continue
		}

		m := Member{Name: field.Name, Index: fieldIndex, Type: field.Type}
		if tag != "" {
			parts := strings.Split(tag, ",")
			if name := strings.TrimSpace(parts[0]); name != "" {
				m.Name = name
			}
			for _, opt := range parts[1:] {
				switch strings.TrimSpace(opt) {
				case "omitempty":
					m.OmitEmpty = true
				case "nonidentifiable":
					m.NonIdentifiable = true
				case "required":
					m.Required = true
				case "":
				default:
					return fmt.Errorf("%s.%s: unknown %s tag option %q", t.Name(), field.Name, TagName, opt)
				}
			}
		}

		if _, dup := d.byName[m.Name]; dup {
			return fmt.Errorf("%s: duplicate member name %q", d.Type.Name(), m.Name)
		}
		d.byName[m.Name] = len(d.Members)
		d.Members = append(d.Members, m)
	}
	return nil
}
