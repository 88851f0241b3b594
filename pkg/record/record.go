// Package record provides the ordered name/value record that flows from the
// parameter grid through experiment functions into result sinks.
package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"sort"
	"strings"
)

// Record is an ordered mapping from field name to value. Key order is the
// order in which fields were first set and determines column order downstream.
// The zero value is an empty record ready to use.
type Record struct {
	keys   []string
	values map[string]any
}

// New returns an empty record.
func New() *Record {
	return &Record{values: make(map[string]any)}
}

// Of builds a record from alternating name/value pairs.
// It panics if a name is not a string or a value is missing.
func Of(kv ...any) *Record {
	if len(kv)%2 != 0 {
		panic("record.Of: odd number of arguments")
	}
	r := New()
	for i := 0; i < len(kv); i += 2 {
		name, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("record.Of: key %v is %T, not string", kv[i], kv[i]))
		}
		r.Set(name, kv[i+1])
	}
	return r
}

// FromMap builds a record from a map. Keys are sorted since maps carry no order.
func FromMap(m map[string]any) *Record {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	r := New()
	for _, k := range keys {
		r.Set(k, m[k])
	}
	return r
}

// Set stores value under name. A new name is appended after the existing ones;
// an existing name keeps its position.
func (r *Record) Set(name string, value any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, exists := r.values[name]; !exists {
		r.keys = append(r.keys, name)
	}
	r.values[name] = value
}

// Get returns the value stored under name.
func (r *Record) Get(name string) (any, bool) {
	if r == nil || r.values == nil {
		return nil, false
	}
	v, ok := r.values[name]
	return v, ok
}

// Has reports whether name is present.
func (r *Record) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Delete removes name from the record.
func (r *Record) Delete(name string) {
	if r == nil || r.values == nil {
		return
	}
	if _, ok := r.values[name]; !ok {
		return
	}
	delete(r.values, name)
	for i, k := range r.keys {
		if k == name {
			r.keys = append(r.keys[:i:i], r.keys[i+1:]...)
			break
		}
	}
}

// Len returns the number of fields.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

// Keys returns a copy of the field names in order.
func (r *Record) Keys() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// All iterates fields in order.
func (r *Record) All() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		if r == nil {
			return
		}
		for _, k := range r.keys {
			if !yield(k, r.values[k]) {
				return
			}
		}
	}
}

// Clone returns a shallow copy: field values are shared, the field set is not.
func (r *Record) Clone() *Record {
	out := &Record{
		keys:   make([]string, 0, r.Len()),
		values: make(map[string]any, r.Len()),
	}
	for k, v := range r.All() {
		out.Set(k, v)
	}
	return out
}

// Merge copies every field of other into r. Values from other replace values
// already present under the same name; new names are appended in other's order.
func (r *Record) Merge(other *Record) {
	for k, v := range other.All() {
		r.Set(k, v)
	}
}

// Map returns the fields as an unordered map.
func (r *Record) Map() map[string]any {
	out := make(map[string]any, r.Len())
	for k, v := range r.All() {
		out[k] = v
	}
	return out
}

// Equal reports whether both records hold the same names in the same order
// with values that compare equal.
func (r *Record) Equal(other *Record) bool {
	if r.Len() != other.Len() {
		return false
	}
	for i, k := range r.keys {
		if other.keys[i] != k {
			return false
		}
		if !ValuesEqual(r.values[k], other.values[k]) {
			return false
		}
	}
	return true
}

// String renders the record as {name=value ...} in field order.
func (r *Record) String() string {
	var b strings.Builder
	b.WriteByte('{')
	i := 0
	for k, v := range r.All() {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%v", k, v)
		i++
	}
	b.WriteByte('}')
	return b.String()
}

// LogValue renders the record as a slog group so failing parameters are
// logged as structured fields.
func (r *Record) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, r.Len())
	for k, v := range r.All() {
		attrs = append(attrs, slog.Any(k, v))
	}
	return slog.GroupValue(attrs...)
}

// MarshalJSON encodes the record as a JSON object preserving field order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	i := 0
	for k, v := range r.All() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
		i++
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keeping the order of its members.
// Numbers decode as float64, as with encoding/json into any.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("record: expected JSON object, got %v", tok)
	}

	*r = Record{values: make(map[string]any)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("record: expected object key, got %v", tok)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("record: field %s: %w", key, err)
		}
		r.Set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
