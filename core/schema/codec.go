package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
)

// codec converts one Go value type to and from its wire form.
type codec struct {
	kind   Kind
	ptr    bool
	typ    reflect.Type // pointer stripped
	schema *Schema      // Object
	elem   *codec       // Array
}

func codecFor(t reflect.Type) (*codec, error) {
	c := &codec{}
	if t.Kind() == reflect.Pointer {
		c.ptr = true
		t = t.Elem()
	}
	c.typ = t

	switch {
	case t == numberType:
		c.kind = KindInt | KindFloat
	case t == anyType:
		if c.ptr {
			return nil, fmt.Errorf("%w: pointer to interface", ErrUnknownType)
		}
		c.kind = KindAny
	default:
		switch t.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			c.kind = KindInt
		case reflect.Float32, reflect.Float64:
			c.kind = KindFloat
		case reflect.String:
			c.kind = KindString
		case reflect.Bool:
			c.kind = KindBool
		case reflect.Struct:
			s, err := buildLocked(t)
			if err != nil {
				return nil, err
			}
			c.kind = KindObject
			c.schema = s
		case reflect.Slice:
			if c.ptr {
				return nil, fmt.Errorf("%w: pointer to slice", ErrUnknownType)
			}
			elem, err := codecFor(t.Elem())
			if err != nil {
				return nil, err
			}
			c.kind = KindArray
			c.elem = elem
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnknownType, t)
		}
	}
	return c, nil
}

// entity returns the innermost nested entity schema, if any.
func (c *codec) entity() *Schema {
	for c != nil {
		if c.schema != nil {
			return c.schema
		}
		c = c.elem
	}
	return nil
}

func (c *codec) decode(raw any, dst reflect.Value) error {
	if !c.ptr {
		return c.decodeValue(raw, dst)
	}
	if raw == nil {
		return nil
	}
	p := reflect.New(c.typ)
	if err := c.decodeValue(raw, p.Elem()); err != nil {
		return err
	}
	dst.Set(p)
	return nil
}

func (c *codec) decodeValue(raw any, dst reflect.Value) error {
	switch c.kind {
	case KindAny:
		if raw != nil {
			dst.Set(reflect.ValueOf(raw))
		}
	case KindInt | KindFloat:
		n, ok := numberFromWire(raw)
		if !ok {
			return mismatch(c.kind, raw)
		}
		dst.Set(reflect.ValueOf(n))
	case KindInt:
		n, ok := numberFromWire(raw)
		if !ok || n.IsFloat() || dst.OverflowInt(n.Int64()) {
			return mismatch(c.kind, raw)
		}
		dst.SetInt(n.Int64())
	case KindFloat:
		n, ok := numberFromWire(raw)
		if !ok {
			return mismatch(c.kind, raw)
		}
		dst.SetFloat(n.Float64())
	case KindString:
		s, ok := raw.(string)
		if !ok {
			return mismatch(c.kind, raw)
		}
		dst.SetString(s)
	case KindBool:
		b, ok := raw.(bool)
		if !ok {
			return mismatch(c.kind, raw)
		}
		dst.SetBool(b)
	case KindObject:
		obj, ok := raw.(Object)
		if !ok {
			return mismatch(c.kind, raw)
		}
		return c.schema.decode(obj, dst)
	case KindArray:
		arr, ok := raw.([]any)
		if !ok {
			return mismatch(c.kind, raw)
		}
		out := reflect.MakeSlice(c.typ, len(arr), len(arr))
		for i, e := range arr {
			if e == nil && !c.elem.ptr {
				return fmt.Errorf("element %d: %w", i, mismatch(c.elem.kind, e))
			}
			if err := c.elem.decode(e, out.Index(i)); err != nil {
				return elementErr(i, err)
			}
		}
		dst.Set(out)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownType, c.kind)
	}
	return nil
}

func (c *codec) encode(v reflect.Value) (any, error) {
	if c.ptr {
		if v.IsNil() {
			return nil, ErrMissingField
		}
		v = v.Elem()
	}

	switch c.kind {
	case KindAny:
		if v.IsNil() {
			return nil, ErrMissingField
		}
		return v.Interface(), nil
	case KindInt | KindFloat:
		return v.Interface().(Number).wire(), nil
	case KindInt:
		return v.Int(), nil
	case KindFloat:
		return v.Float(), nil
	case KindString:
		return v.String(), nil
	case KindBool:
		return v.Bool(), nil
	case KindObject:
		return c.schema.encode(v)
	case KindArray:
		out := make([]any, v.Len())
		for i := range out {
			e, err := c.elem.encode(v.Index(i))
			if err != nil {
				return nil, elementErr(i, err)
			}
			out[i] = e
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownType, c.kind)
}

func elementErr(i int, err error) error {
	var fe *FieldError
	if errors.As(err, &fe) {
		return prependPath(err, fmt.Sprintf("[%d]", i))
	}
	return fmt.Errorf("element %d: %w", i, err)
}

func wireTypeName(raw any) string {
	switch raw.(type) {
	case nil:
		return "null"
	case json.Number, float64, float32, int, int64, int32, Number:
		return "number"
	case string:
		return "string"
	case bool:
		return "bool"
	case Object:
		return "object"
	case []any:
		return "array"
	}
	return fmt.Sprintf("%T", raw)
}
