package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
)

// Object is a decoded wire object. Numbers are expected as json.Number
// (see ParseObject) but any Go numeric type is accepted.
type Object = map[string]any

// Decode builds a T from a wire object.
func Decode[T any](obj Object) (*T, error) {
	v := new(T)
	if err := DecodeInto(obj, v); err != nil {
		return nil, err
	}
	return v, nil
}

// DecodeInto fills the entity pointed to by dst from a wire object.
// Wire keys without a matching field are ignored.
func DecodeInto(obj Object, dst any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("schema: decode target must be a non-nil pointer, got %T", dst)
	}
	s, err := Of(rv.Type())
	if err != nil {
		return err
	}
	return s.decode(obj, rv.Elem())
}

// DecodeList builds a []T from a wire array of objects.
func DecodeList[T any](raw any) ([]T, error) {
	arr, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("schema: decode list: %w", mismatch(KindArray, raw))
	}
	s, err := For[T]()
	if err != nil {
		return nil, err
	}
	out := make([]T, len(arr))
	for i, e := range arr {
		obj, ok := e.(Object)
		if !ok {
			return nil, fmt.Errorf("schema: decode list element %d: %w", i, mismatch(KindObject, e))
		}
		if err := s.decode(obj, reflect.ValueOf(&out[i]).Elem()); err != nil {
			return nil, elementErr(i, err)
		}
	}
	return out, nil
}

// Encode converts an entity (or pointer to one) to its wire object.
// Unset optional fields are left out.
func Encode(v any) (Object, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, fmt.Errorf("schema: encode nil %T", v)
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil, fmt.Errorf("schema: encode nil value")
	}
	s, err := Of(rv.Type())
	if err != nil {
		return nil, err
	}
	return s.encode(rv)
}

// ParseObject decodes a JSON object keeping numbers as json.Number so the
// int/float distinction of the wire survives.
func ParseObject(data []byte) (Object, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var obj Object
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("schema: parse json: %w", err)
	}
	if obj == nil {
		return nil, fmt.Errorf("schema: parse json: expected object, got null")
	}
	return obj, nil
}

// Unmarshal decodes JSON data into the entity pointed to by dst.
func Unmarshal(data []byte, dst any) error {
	obj, err := ParseObject(data)
	if err != nil {
		return err
	}
	return DecodeInto(obj, dst)
}

// Marshal encodes an entity as JSON.
func Marshal(v any) ([]byte, error) {
	obj, err := Encode(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(obj)
}

func (s *Schema) decode(obj Object, dst reflect.Value) error {
	for i := range s.Fields {
		f := &s.Fields[i]
		raw, ok := obj[f.External]
		if !ok || raw == nil {
			if f.Optional {
				continue
			}
			return &FieldError{Entity: s.Name, Field: f.Name, External: f.External, Err: ErrMissingField}
		}
		if err := f.codec.decode(raw, dst.FieldByIndex(f.index)); err != nil {
			return s.fieldErr(f, err)
		}
	}
	return nil
}

func (s *Schema) encode(src reflect.Value) (Object, error) {
	obj := make(Object, len(s.Fields))
	for i := range s.Fields {
		f := &s.Fields[i]
		fv := src.FieldByIndex(f.index)
		if fv.Kind() == reflect.Slice && fv.IsNil() && !f.Optional {
			obj[f.External] = []any{}
			continue
		}
		if f.Optional && fv.IsNil() {
			continue
		}
		w, err := f.codec.encode(fv)
		if err != nil {
			return nil, s.fieldErr(f, err)
		}
		obj[f.External] = w
	}
	return obj, nil
}

// fieldErr attributes err to field f, extending the path of errors raised
// by nested entities.
func (s *Schema) fieldErr(f *Field, err error) error {
	var fe *FieldError
	if errors.As(err, &fe) {
		return prependPath(err, f.External)
	}
	return &FieldError{Entity: s.Name, Field: f.Name, External: f.External, Err: err}
}
