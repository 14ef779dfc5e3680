// Package features defines the ordered feature schema the habitability model was
// trained on, and the validated records built against it.
//
// Field order is significant: the scaler and classifier consume vectors positionally,
// so every vector in the service is produced by Record.Values, which stores values
// in schema order from the moment the record is created.
package features

import (
	"fmt"
	"strings"
)

// Field describes one numeric input of the model.
type Field struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Schema is an immutable, ordered list of fields.
type Schema struct {
	fields []Field
	index  map[string]int
}

// NewSchema builds a schema from fields in model order. Names must be unique and non-empty.
func NewSchema(fields ...Field) (*Schema, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("schema must have at least one field")
	}
	s := &Schema{
		fields: make([]Field, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		if strings.TrimSpace(f.Name) == "" {
			return nil, fmt.Errorf("field %d has an empty name", i)
		}
		if _, dup := s.index[f.Name]; dup {
			return nil, fmt.Errorf("duplicate field %q", f.Name)
		}
		s.fields[i] = f
		s.index[f.Name] = i
	}
	return s, nil
}

var habitability = mustSchema(
	Field{"pl_orbper", "Orbital period (days)"},
	Field{"pl_rade", "Planet radius (Earth radii)"},
	Field{"pl_bmasse", "Planet mass (Earth masses)"},
	Field{"pl_eqt", "Equilibrium temperature (K)"},
	Field{"st_teff", "Stellar effective temperature (K)"},
	Field{"st_rad", "Stellar radius (Solar radii)"},
	Field{"st_mass", "Stellar mass (Solar masses)"},
	Field{"sy_dist", "Distance to system (parsec)"},
	Field{"sy_snum", "Number of stars in system"},
	Field{"sy_pnum", "Number of planets in system"},
)

// Default returns the 10-field exoplanet habitability schema.
func Default() *Schema {
	return habitability
}

func mustSchema(fields ...Field) *Schema {
	s, err := NewSchema(fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Len returns the number of fields.
func (s *Schema) Len() int {
	return len(s.fields)
}

// Fields returns a copy of the fields in model order.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Names returns the field names in model order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

// Descriptions maps each field name to its description.
func (s *Schema) Descriptions() map[string]string {
	out := make(map[string]string, len(s.fields))
	for _, f := range s.fields {
		out[f.Name] = f.Description
	}
	return out
}

// Index returns the position of name, or -1 if the schema has no such field.
func (s *Schema) Index(name string) int {
	if i, ok := s.index[name]; ok {
		return i
	}
	return -1
}

// Equal reports whether names lists exactly this schema's fields in the same order.
func (s *Schema) Equal(names []string) bool {
	if len(names) != len(s.fields) {
		return false
	}
	for i, n := range names {
		if s.fields[i].Name != n {
			return false
		}
	}
	return true
}
