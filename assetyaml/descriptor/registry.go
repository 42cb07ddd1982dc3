package descriptor

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// ErrTagConflict is returned when a tag is already bound to another type.
var ErrTagConflict = errors.New("type tag already registered")

// TypeRegistry maps type tags to Go types and back.
//
// Every registered type answers to its fully qualified tag
// ("!<pkgpath>.<Name>"). A type registered with an alias also answers to the
// short tag "!<alias>", which is the form it is written with.
type TypeRegistry struct {
	mu     sync.RWMutex
	byTag  map[string]reflect.Type
	byType map[reflect.Type]string
}

// NewTypeRegistry creates an empty registry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{
		byTag:  make(map[string]reflect.Type),
		byType: make(map[reflect.Type]string),
	}
}

// DefaultTypes is the registry used when options leave it unset.
var DefaultTypes = NewTypeRegistry()

// FullTag returns the fully qualified tag of t.
func FullTag(t reflect.Type) string {
	t = baseType(t)
	if t.PkgPath() == "" {
		return "!" + t.String()
	}
	return "!" + t.PkgPath() + "." + t.Name()
}

// Register binds t under its full tag and, when alias is non-empty, under
// "!"+alias. Pointer types are registered by their element type.
func (r *TypeRegistry) Register(t reflect.Type, alias string) error {
	t = baseType(t)
	alias = strings.TrimPrefix(alias, "!")

	r.mu.Lock()
	defer r.mu.Unlock()

	full := FullTag(t)
	if err := r.bindLocked(full, t); err != nil {
		return err
	}
	preferred := full
	if alias != "" {
		short := "!" + alias
		if err := r.bindLocked(short, t); err != nil {
			return err
		}
		preferred = short
	}
	r.byType[t] = preferred
	return nil
}

func (r *TypeRegistry) bindLocked(tag string, t reflect.Type) error {
	if existing, ok := r.byTag[tag]; ok && existing != t {
		return fmt.Errorf("%w: %s is bound to %s", ErrTagConflict, tag, existing)
	}
	r.byTag[tag] = t
	return nil
}

// Register adds T to r. It panics on conflicts; intended for init functions.
func Register[T any](r *TypeRegistry, alias string) {
	if err := r.Register(reflect.TypeFor[T](), alias); err != nil {
		panic(err)
	}
}

// Lookup resolves a tag (short or fully qualified) to its type.
func (r *TypeRegistry) Lookup(tag string) (reflect.Type, bool) {
	if !strings.HasPrefix(tag, "!") {
		tag = "!" + tag
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byTag[tag]
	return t, ok
}

// TagOf returns the tag t is written with: its alias when it has one, the full
// tag otherwise. The boolean reports whether t is registered.
func (r *TypeRegistry) TagOf(t reflect.Type) (string, bool) {
	t = baseType(t)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if tag, ok := r.byType[t]; ok {
		return tag, true
	}
	return FullTag(t), false
}

// Tags returns every tag bound in r.
func (r *TypeRegistry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.byTag))
	for tag := range r.byTag {
		tags = append(tags, tag)
	}
	return tags
}

func baseType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// IsCustomTag reports whether tag is an application tag rather than a YAML
// core tag such as "!!str".
func IsCustomTag(tag string) bool {
	return strings.HasPrefix(tag, "!") && !strings.HasPrefix(tag, "!!")
}
