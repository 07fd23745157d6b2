package schema

import (
	"encoding/json"
	"math"
	"strconv"
)

// Number is a wire number declared as "int or float". Decoding selects the
// integer form when the value has no fractional component and the float
// form otherwise.
type Number struct {
	i     int64
	f     float64
	float bool
}

// IntNumber returns an integral Number.
func IntNumber(i int64) Number { return Number{i: i} }

// FloatNumber returns a floating Number.
func FloatNumber(f float64) Number { return Number{f: f, float: true} }

// IsFloat reports whether n holds the floating form.
func (n Number) IsFloat() bool { return n.float }

// Int64 returns n as an integer, truncating a floating value.
func (n Number) Int64() int64 {
	if n.float {
		return int64(n.f)
	}
	return n.i
}

// Float64 returns n as a float.
func (n Number) Float64() float64 {
	if n.float {
		return n.f
	}
	return float64(n.i)
}

func (n Number) String() string {
	if n.float {
		return strconv.FormatFloat(n.f, 'g', -1, 64)
	}
	return strconv.FormatInt(n.i, 10)
}

func (n Number) wire() any {
	if n.float {
		return n.f
	}
	return n.i
}

// numberFromFloat classifies f as integral or floating.
func numberFromFloat(f float64) Number {
	if f == math.Trunc(f) && f >= float64(math.MinInt64) && f < -float64(math.MinInt64) {
		return IntNumber(int64(f))
	}
	return FloatNumber(f)
}

// numberFromWire converts any numeric wire value into a Number.
func numberFromWire(raw any) (Number, bool) {
	switch v := raw.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return IntNumber(i), true
		}
		f, err := v.Float64()
		if err != nil {
			return Number{}, false
		}
		return numberFromFloat(f), true
	case float64:
		return numberFromFloat(v), true
	case float32:
		return numberFromFloat(float64(v)), true
	case int:
		return IntNumber(int64(v)), true
	case int64:
		return IntNumber(v), true
	case int32:
		return IntNumber(int64(v)), true
	case Number:
		return v, true
	}
	return Number{}, false
}
