package serializer

import (
	"encoding"
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/arthur-debert/assetyaml/assetyaml/placeholder"
	"github.com/arthur-debert/assetyaml/assetyaml/shadow"
	"github.com/arthur-debert/assetyaml/types"
	"github.com/google/uuid"
)

var (
	textMarshalerType   = reflect.TypeFor[encoding.TextMarshaler]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
	unloadableType      = reflect.TypeFor[*placeholder.Unloadable]()
)

// marshalText returns the text form of v when its type is a TextMarshaler.
func marshalText(v reflect.Value) (string, bool, error) {
	if v.Type().Implements(textMarshalerType) {
		if v.Kind() == reflect.Pointer && v.IsNil() {
			return "", false, nil
		}
		text, err := v.Interface().(encoding.TextMarshaler).MarshalText()
		return string(text), true, err
	}
	if v.CanAddr() && reflect.PointerTo(v.Type()).Implements(textMarshalerType) {
		text, err := v.Addr().Interface().(encoding.TextMarshaler).MarshalText()
		return string(text), true, err
	}
	return "", false, nil
}

func isTextUnmarshaler(t reflect.Type) bool {
	return reflect.PointerTo(t).Implements(textUnmarshalerType)
}

// keyText renders a natural collection or map key.
func keyText(v reflect.Value) (string, error) {
	if text, ok, err := marshalText(v); ok || err != nil {
		return text, err
	}
	switch v.Kind() {
	case reflect.String:
		return v.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10), nil
	case reflect.Bool:
		return strconv.FormatBool(v.Bool()), nil
	case reflect.Float32, reflect.Float64:
		return formatFloat(v.Float(), v.Type().Bits()), nil
	case reflect.Interface:
		if !v.IsNil() {
			return keyText(v.Elem())
		}
	}
	return "", fmt.Errorf("unsupported key type %s", v.Type())
}

// parseKey converts key text back into a value of type t.
func parseKey(text string, t reflect.Type) (reflect.Value, error) {
	v := reflect.New(t).Elem()
	if isTextUnmarshaler(t) {
		err := v.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(text))
		return v, err
	}
	switch t.Kind() {
	case reflect.String:
		v.SetString(text)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(text, 10, t.Bits())
		if err != nil {
			return v, err
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(text, 10, t.Bits())
		if err != nil {
			return v, err
		}
		v.SetUint(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return v, err
		}
		v.SetBool(b)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(text, t.Bits())
		if err != nil {
			return v, err
		}
		v.SetFloat(f)
	case reflect.Interface:
		if t.NumMethod() != 0 {
			return v, fmt.Errorf("unsupported key type %s", t)
		}
		v.Set(reflect.ValueOf(text))
	default:
		return v, fmt.Errorf("unsupported key type %s", t)
	}
	return v, nil
}

func formatFloat(f float64, bits int) string {
	switch {
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	case math.IsNaN(f):
		return ".nan"
	}
	return strconv.FormatFloat(f, 'g', -1, bits)
}

// objectID returns the identity of a referenceable object.
func objectID(v reflect.Value) (uuid.UUID, bool) {
	if v.Kind() != reflect.Pointer || v.IsNil() || !v.CanInterface() {
		return uuid.Nil, false
	}
	obj, ok := v.Interface().(types.Identifiable)
	if !ok {
		return uuid.Nil, false
	}
	id := obj.ObjectID()
	return id, id != uuid.Nil
}

// carrierOf returns the shadow carrier of an addressable struct value.
func carrierOf(v reflect.Value) shadow.Carrier {
	if !v.CanAddr() || !v.Addr().CanInterface() {
		return nil
	}
	c, _ := v.Addr().Interface().(shadow.Carrier)
	return c
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Slice, reflect.Map, reflect.String:
		return v.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return v.IsNil()
	}
	return v.IsZero()
}
