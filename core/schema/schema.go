// Package schema declares wire schemas for Bot API entities and converts
// between wire objects and typed Go structs.
//
// An entity is a struct whose wire fields carry a `tg` tag:
//
//	type Contact struct {
//		PhoneNumber string  `tg:"phone_number"`
//		LastName    *string `tg:"last_name,optional"`
//	}
//
// Untagged anonymous struct fields are flattened into the embedding
// entity, which is how common fields are shared between entities.
// Optional fields must be nil-able so that an absent key stays distinct
// from a present zero value.
package schema

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

const tagName = "tg"

// Kind is a bit set of the wire types a field accepts.
type Kind uint8

const (
	KindInt Kind = 1 << iota
	KindFloat
	KindString
	KindBool
	KindObject
	KindArray
	KindAny
)

var kindNames = []struct {
	kind Kind
	name string
}{
	{KindInt, "int"},
	{KindFloat, "float"},
	{KindString, "string"},
	{KindBool, "bool"},
	{KindObject, "object"},
	{KindArray, "array"},
	{KindAny, "any"},
}

// Has reports whether k includes any kind in o.
func (k Kind) Has(o Kind) bool { return k&o != 0 }

func (k Kind) String() string {
	var names []string
	for _, kn := range kindNames {
		if k&kn.kind != 0 {
			names = append(names, kn.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// Field describes one wire field of an entity.
type Field struct {
	Name     string // Go field name
	External string // wire key
	Types    Kind
	Optional bool
	Elem     *Schema // nested entity for object fields and arrays of objects

	index []int
	codec *codec
}

// Schema is the ordered field list of one entity kind. It is immutable
// once returned by For or Of.
type Schema struct {
	Name   string
	Fields []Field

	typ        reflect.Type
	byExternal map[string]int
}

// Type returns the Go struct type the schema was built from.
func (s *Schema) Type() reflect.Type { return s.typ }

// Field returns the field with the given wire key.
func (s *Schema) Field(external string) (Field, bool) {
	i, ok := s.byExternal[external]
	if !ok {
		return Field{}, false
	}
	return s.Fields[i], true
}

var (
	numberType = reflect.TypeFor[Number]()
	anyType    = reflect.TypeFor[any]()
)

var registry = struct {
	mu       sync.Mutex
	building map[reflect.Type]*Schema
	done     sync.Map // reflect.Type -> *Schema
}{
	building: make(map[reflect.Type]*Schema),
}

// For returns the schema of entity type T, building it on first use.
func For[T any]() (*Schema, error) {
	return Of(reflect.TypeFor[T]())
}

// MustFor is like For but panics on a malformed entity declaration.
func MustFor[T any]() *Schema {
	s, err := For[T]()
	if err != nil {
		panic(err)
	}
	return s
}

// Of returns the schema of the struct type t (or pointer to it), building
// and caching it on first use. Nested entity types are resolved here.
func Of(t reflect.Type) (*Schema, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if s, ok := registry.done.Load(t); ok {
		return s.(*Schema), nil
	}

	registry.mu.Lock()
	defer registry.mu.Unlock()

	if s, ok := registry.done.Load(t); ok {
		return s.(*Schema), nil
	}

	s, err := buildLocked(t)
	if err != nil {
		clear(registry.building)
		return nil, err
	}
	for bt, bs := range registry.building {
		registry.done.Store(bt, bs)
	}
	clear(registry.building)
	return s, nil
}

// buildLocked builds the schema of t. Schemas under construction are
// visible through registry.building so self-referencing entities resolve
// to the same *Schema.
func buildLocked(t reflect.Type) (*Schema, error) {
	if s, ok := registry.done.Load(t); ok {
		return s.(*Schema), nil
	}
	if s, ok := registry.building[t]; ok {
		return s, nil
	}
	if t.Kind() != reflect.Struct {
		return nil, &FieldError{Entity: t.String(), Err: fmt.Errorf("%w: %s is not a struct", ErrUnknownType, t)}
	}

	s := &Schema{
		Name:       t.Name(),
		typ:        t,
		byExternal: make(map[string]int),
	}
	registry.building[t] = s

	if err := s.collect(t, nil); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Schema) collect(t reflect.Type, prefix []int) error {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag, tagged := sf.Tag.Lookup(tagName)
		index := append(append([]int(nil), prefix...), i)

		if sf.Anonymous && !tagged {
			if sf.Type.Kind() != reflect.Struct {
				return &FieldError{Entity: s.Name, Field: sf.Name, Err: fmt.Errorf("%w: embedded %s must be a struct", ErrUnknownType, sf.Type)}
			}
			if err := s.collect(sf.Type, index); err != nil {
				return err
			}
			continue
		}
		if !tagged || tag == "-" {
			continue
		}
		if !sf.IsExported() {
			return &FieldError{Entity: s.Name, Field: sf.Name, Err: fmt.Errorf("%w: field is not exported", ErrInvalidTag)}
		}

		external, optional, err := parseTag(tag)
		if err != nil {
			return &FieldError{Entity: s.Name, Field: sf.Name, Err: err}
		}
		if _, dup := s.byExternal[external]; dup {
			return &FieldError{Entity: s.Name, Field: sf.Name, External: external, Err: ErrDuplicateField}
		}

		c, err := codecFor(sf.Type)
		if err != nil {
			return &FieldError{Entity: s.Name, Field: sf.Name, External: external, Err: err}
		}
		if optional && !nilable(sf.Type) {
			return &FieldError{Entity: s.Name, Field: sf.Name, External: external,
				Err: fmt.Errorf("%w: optional field of type %s must be a pointer, slice or interface", ErrInvalidTag, sf.Type)}
		}

		s.byExternal[external] = len(s.Fields)
		s.Fields = append(s.Fields, Field{
			Name:     sf.Name,
			External: external,
			Types:    c.kind,
			Optional: optional,
			Elem:     c.entity(),
			index:    index,
			codec:    c,
		})
	}
	return nil
}

func parseTag(tag string) (external string, optional bool, err error) {
	parts := strings.Split(tag, ",")
	external = strings.TrimSpace(parts[0])
	if external == "" {
		return "", false, fmt.Errorf("%w: empty wire name in %q", ErrInvalidTag, tag)
	}
	for _, opt := range parts[1:] {
		switch strings.TrimSpace(opt) {
		case "optional":
			optional = true
		default:
			return "", false, fmt.Errorf("%w: unknown option %q", ErrInvalidTag, opt)
		}
	}
	return external, optional, nil
}

func nilable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Interface:
		return true
	}
	return false
}
