package record

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"
)

// ToFloat64 converts numeric values (and numeric strings) to float64.
func ToFloat64(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int8:
		return float64(val), true
	case int16:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint8:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	case bool:
		if val {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// Float64 returns the named field as a float64.
func (r *Record) Float64(name string) (float64, error) {
	v, ok := r.Get(name)
	if !ok {
		return 0, fmt.Errorf("missing field %q", name)
	}
	f, ok := ToFloat64(v)
	if !ok {
		return 0, fmt.Errorf("field %q: %v (%T) is not numeric", name, v, v)
	}
	return f, nil
}

// Int returns the named field as an int. Floats must be integral.
func (r *Record) Int(name string) (int, error) {
	f, err := r.Float64(name)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("field %q: %v is not an integer", name, f)
	}
	return int(f), nil
}

// ValuesEqual compares two field values. Numbers compare by value regardless
// of their Go type, so 1 (int) equals 1.0 (float64).
func ValuesEqual(a, b any) bool {
	if fa, ok := numeric(a); ok {
		if fb, ok := numeric(b); ok {
			return fa == fb
		}
		return false
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	return reflect.DeepEqual(a, b)
}

// Compare orders two field values: nil first, then numbers by value, then
// everything else by its string form.
func Compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	fa, aNum := numeric(a)
	fb, bNum := numeric(b)
	switch {
	case aNum && bNum:
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	case aNum:
		return -1
	case bNum:
		return 1
	}
	sa, sb := fmt.Sprint(a), fmt.Sprint(b)
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	}
	return 0
}

// numeric is ToFloat64 without the string and bool coercions.
func numeric(v any) (float64, bool) {
	switch v.(type) {
	case string, bool:
		return 0, false
	}
	return ToFloat64(v)
}
