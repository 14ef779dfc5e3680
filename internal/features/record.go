package features

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// Record holds one finite value per schema field, stored in schema order.
// The zero Record is empty and belongs to no schema.
type Record struct {
	schema *Schema
	values []float64
}

// NewRecord builds a record from values keyed by field name. values must contain
// exactly the schema's fields, each finite.
func (s *Schema) NewRecord(values map[string]float64) (Record, error) {
	if len(values) != len(s.fields) {
		return Record{}, fmt.Errorf("expected %d fields, got %d", len(s.fields), len(values))
	}
	vec := make([]float64, len(s.fields))
	for i, f := range s.fields {
		v, ok := values[f.Name]
		if !ok {
			return Record{}, fmt.Errorf("missing field %q", f.Name)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Record{}, fmt.Errorf("field %q is not finite", f.Name)
		}
		vec[i] = v
	}
	return Record{schema: s, values: vec}, nil
}

// Schema returns the schema the record was built against.
func (r Record) Schema() *Schema {
	return r.schema
}

// Len returns the number of values.
func (r Record) Len() int {
	return len(r.values)
}

// Get returns the value for name.
func (r Record) Get(name string) (float64, bool) {
	if r.schema == nil {
		return 0, false
	}
	i := r.schema.Index(name)
	if i < 0 {
		return 0, false
	}
	return r.values[i], true
}

// Values returns a copy of the feature vector in schema order.
func (r Record) Values() []float64 {
	out := make([]float64, len(r.values))
	copy(out, r.values)
	return out
}

// Map returns the record as a name -> value map.
func (r Record) Map() map[string]float64 {
	out := make(map[string]float64, len(r.values))
	for i, v := range r.values {
		out[r.schema.fields[i].Name] = v
	}
	return out
}

// MarshalJSON writes the record as an object with keys in schema order.
func (r Record) MarshalJSON() ([]byte, error) {
	if r.schema == nil {
		return []byte("{}"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, v := range r.values {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(r.schema.fields[i].Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
