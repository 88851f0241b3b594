// Package grid expands a parameter specification into the ordered list of
// experiments covering its full Cartesian product.
package grid

import (
	"fmt"
	"reflect"

	"github.com/GoSim-25-26J-441/gridrun/pkg/record"
	"gonum.org/v1/gonum/mat"
)

// Spec is an ordered set of named parameters, each holding a single value or
// a sequence of candidate values.
type Spec struct {
	names  []string
	values map[string]any
}

// NewSpec returns an empty specification.
func NewSpec() *Spec {
	return &Spec{values: make(map[string]any)}
}

// SpecOf builds a specification from alternating name/value pairs.
func SpecOf(kv ...any) (*Spec, error) {
	if len(kv)%2 != 0 {
		return nil, fmt.Errorf("odd number of arguments: %d", len(kv))
	}
	s := NewSpec()
	for i := 0; i < len(kv); i += 2 {
		name, ok := kv[i].(string)
		if !ok {
			return nil, fmt.Errorf("parameter name %v is %T, not string", kv[i], kv[i])
		}
		if err := s.Add(name, kv[i+1]); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add declares a parameter. Names must be unique and non-empty.
func (s *Spec) Add(name string, value any) error {
	if name == "" {
		return fmt.Errorf("parameter name cannot be empty")
	}
	if _, exists := s.values[name]; exists {
		return fmt.Errorf("duplicate parameter: %s", name)
	}
	s.names = append(s.names, name)
	s.values[name] = value
	return nil
}

// Names returns the parameter names in declaration order.
func (s *Spec) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Value returns the raw value declared for name.
func (s *Spec) Value(name string) (any, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Len returns the number of parameters.
func (s *Spec) Len() int {
	return len(s.names)
}

// Size returns the number of experiments the specification expands to.
func (s *Spec) Size() int {
	total := 1
	for _, name := range s.names {
		total *= len(AsValues(s.values[name]))
	}
	return total
}

// Experiments expands the specification. See Expand.
func (s *Spec) Experiments() []*record.Record {
	return Expand(s)
}

// AsValues normalises one parameter value into its ordered candidate values.
// []any is returned unchanged; other slices, arrays and gonum vectors are
// converted element by element; strings, byte slices and every other value
// become a single candidate.
func AsValues(v any) []any {
	switch val := v.(type) {
	case []any:
		return val
	case string, []byte:
		return []any{val}
	case mat.Vector:
		out := make([]any, val.Len())
		for i := range out {
			out[i] = val.AtVec(i)
		}
		return out
	case nil:
		return []any{nil}
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out
	}
	return []any{v}
}

// Expand returns one record per point of the Cartesian product of the
// normalised parameter values. The last declared parameter varies fastest,
// and every record carries the parameters in declaration order. Equal
// candidate values are not deduplicated.
func Expand(s *Spec) []*record.Record {
	dims := make([][]any, len(s.names))
	total := 1
	for i, name := range s.names {
		dims[i] = AsValues(s.values[name])
		total *= len(dims[i])
	}

	experiments := make([]*record.Record, total)
	for i := range experiments {
		experiments[i] = record.New()
	}
	if total == 0 {
		return experiments
	}

	// Fill columns in declaration order so every record keeps the spec's key order.
	repeat := make([]int, len(dims))
	r := 1
	for dim := len(dims) - 1; dim >= 0; dim-- {
		repeat[dim] = r
		r *= len(dims[dim])
	}
	for dim, vals := range dims {
		name := s.names[dim]
		cycle := len(vals)
		for i := 0; i < total; i++ {
			experiments[i].Set(name, vals[(i/repeat[dim])%cycle])
		}
	}

	return experiments
}
