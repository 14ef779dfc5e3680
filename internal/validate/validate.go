// Package validate turns untrusted, loosely typed request payloads into
// features.Record values. Every problem in a payload is reported at once rather
// than stopping at the first bad field.
package validate

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"

	"exohab/internal/features"
)

// Validator checks raw records against a schema. It holds no mutable state and is
// safe for concurrent use.
type Validator struct {
	schema *features.Schema
}

// New returns a validator for schema. A nil schema selects features.Default().
func New(schema *features.Schema) *Validator {
	if schema == nil {
		schema = features.Default()
	}
	return &Validator{schema: schema}
}

// Schema returns the schema records are validated against.
func (v *Validator) Schema() *features.Schema {
	return v.schema
}

// Validate converts raw into a record holding exactly the schema's fields.
// raw must be a map[string]any (the shape encoding/json produces for objects);
// fields not in the schema are ignored. On failure the error is a *Error.
func (v *Validator) Validate(raw any) (features.Record, error) {
	obj, ok := raw.(map[string]any)
	if !ok || obj == nil {
		return features.Record{}, &Error{Shape: true}
	}

	var verr Error
	values := make(map[string]float64, v.schema.Len())
	for _, name := range v.schema.Names() {
		value, present := obj[name]
		if !present {
			verr.Missing = append(verr.Missing, name)
			verr.Fields = append(verr.Fields, FieldIssue{Field: name, Reason: ReasonMissing})
			continue
		}
		f, numeric := toFloat(value)
		var issue FieldIssue
		switch {
		case !numeric:
			issue = FieldIssue{Field: name, Reason: ReasonNotNumeric}
		case math.IsNaN(f) || math.IsInf(f, 0):
			issue = FieldIssue{Field: name, Reason: ReasonNotFinite}
		default:
			values[name] = f
			continue
		}
		verr.Invalid = append(verr.Invalid, issue)
		verr.Fields = append(verr.Fields, issue)
	}

	if len(verr.Missing) > 0 || len(verr.Invalid) > 0 {
		return features.Record{}, &verr
	}
	return v.schema.NewRecord(values)
}

// toFloat accepts Go numeric kinds and json.Number. Booleans, strings, nil and
// containers are not numeric.
func toFloat(value any) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := strconv.ParseFloat(string(n), 64)
		if err != nil {
			// Out-of-range literals parse to ±Inf and are reported as non-finite.
			if errors.Is(err, strconv.ErrRange) {
				return f, true
			}
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
