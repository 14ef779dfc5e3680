package validate

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"exohab/internal/features"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func earthLike() map[string]any {
	return map[string]any{
		"pl_orbper": 365.25,
		"pl_rade":   1.0,
		"pl_bmasse": 1.0,
		"pl_eqt":    288,
		"st_teff":   5778,
		"st_rad":    1.0,
		"st_mass":   1.0,
		"sy_dist":   10.0,
		"sy_snum":   1,
		"sy_pnum":   1,
	}
}

func TestValidate_ValidRecord(t *testing.T) {
	v := New(nil)

	rec, err := v.Validate(earthLike())
	require.NoError(t, err)

	assert.Equal(t, features.Default().Names(), keysInOrder(rec))
	assert.Equal(t, []float64{365.25, 1, 1, 288, 5778, 1, 1, 10, 1, 1}, rec.Values())
}

func TestValidate_ExtraFieldsDropped(t *testing.T) {
	raw := earthLike()
	raw["pl_name"] = "Kepler-442 b"
	raw["disc_year"] = 2015

	rec, err := New(nil).Validate(raw)
	require.NoError(t, err)

	assert.Equal(t, 10, rec.Len())
	_, ok := rec.Get("pl_name")
	assert.False(t, ok)
	assert.Len(t, rec.Map(), 10)
}

func TestValidate_Shape(t *testing.T) {
	v := New(nil)
	inputs := []any{
		nil,
		[]any{earthLike()},
		"pl_orbper",
		42.0,
		true,
		map[string]any(nil),
		map[string]float64{"pl_orbper": 1},
	}

	for _, in := range inputs {
		_, err := v.Validate(in)
		require.Error(t, err, "input %#v", in)
		assert.True(t, errors.Is(err, ErrShape))
		assert.False(t, errors.Is(err, ErrMissingFields))
		assert.Equal(t, "Input must be a JSON object", err.Error())

		var verr *Error
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, KindShape, verr.Kind())
	}
}

func TestValidate_ReportsEveryMissingField(t *testing.T) {
	raw := earthLike()
	delete(raw, "pl_rade")
	delete(raw, "st_mass")
	delete(raw, "sy_pnum")

	_, err := New(nil).Validate(raw)
	require.Error(t, err)

	assert.True(t, errors.Is(err, ErrMissingFields))
	assert.False(t, errors.Is(err, ErrInvalidValue))
	assert.Equal(t, "Missing required features: pl_rade, st_mass, sy_pnum", err.Error())

	var verr *Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"pl_rade", "st_mass", "sy_pnum"}, verr.Missing)
	assert.Equal(t, KindMissing, verr.Kind())
}

func TestValidate_EmptyObjectListsAllFields(t *testing.T) {
	_, err := New(nil).Validate(map[string]any{})
	require.Error(t, err)

	var verr *Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, features.Default().Names(), verr.Missing)
}

func TestValidate_InvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		value  any
		reason string
	}{
		{"string", "365", ReasonNotNumeric},
		{"bool true", true, ReasonNotNumeric},
		{"bool false", false, ReasonNotNumeric},
		{"null", nil, ReasonNotNumeric},
		{"list", []any{1.0}, ReasonNotNumeric},
		{"object", map[string]any{"v": 1.0}, ReasonNotNumeric},
		{"NaN", math.NaN(), ReasonNotFinite},
		{"+Inf", math.Inf(1), ReasonNotFinite},
		{"-Inf", math.Inf(-1), ReasonNotFinite},
		{"json overflow", json.Number("1e400"), ReasonNotFinite},
		{"json garbage", json.Number("abc"), ReasonNotNumeric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := earthLike()
			raw["pl_eqt"] = tt.value

			_, err := New(nil).Validate(raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidValue))

			var verr *Error
			require.True(t, errors.As(err, &verr))
			assert.Empty(t, verr.Missing)
			require.Len(t, verr.Invalid, 1)
			assert.Equal(t, FieldIssue{Field: "pl_eqt", Reason: tt.reason}, verr.Invalid[0])
			assert.Equal(t, "Invalid values for: pl_eqt ("+tt.reason+")", err.Error())
		})
	}
}

func TestValidate_NumericKinds(t *testing.T) {
	raw := earthLike()
	raw["pl_orbper"] = float32(12.5)
	raw["pl_rade"] = int64(2)
	raw["pl_bmasse"] = uint8(3)
	raw["pl_eqt"] = json.Number("300.5")
	raw["sy_snum"] = int32(2)

	rec, err := New(nil).Validate(raw)
	require.NoError(t, err)

	assert.Equal(t, []float64{12.5, 2, 3, 300.5, 5778, 1, 1, 10, 2, 1}, rec.Values())
}

func TestValidate_MixedErrorsInSchemaOrder(t *testing.T) {
	raw := earthLike()
	delete(raw, "st_teff")
	delete(raw, "pl_rade")
	raw["sy_dist"] = "far"
	raw["pl_orbper"] = math.Inf(1)

	_, err := New(nil).Validate(raw)
	require.Error(t, err)

	assert.True(t, errors.Is(err, ErrMissingFields))
	assert.True(t, errors.Is(err, ErrInvalidValue))

	var verr *Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, KindMixed, verr.Kind())
	assert.Equal(t, []string{"pl_rade", "st_teff"}, verr.Missing)
	assert.Equal(t, []FieldIssue{
		{Field: "pl_orbper", Reason: ReasonNotFinite},
		{Field: "sy_dist", Reason: ReasonNotNumeric},
	}, verr.Invalid)
	assert.Equal(t, []FieldIssue{
		{Field: "pl_orbper", Reason: ReasonNotFinite},
		{Field: "pl_rade", Reason: ReasonMissing},
		{Field: "st_teff", Reason: ReasonMissing},
		{Field: "sy_dist", Reason: ReasonNotNumeric},
	}, verr.Fields)
	assert.Equal(t,
		"Invalid or missing features: pl_orbper (invalid value), pl_rade (missing), st_teff (missing), sy_dist (must be numeric)",
		err.Error())
}

func TestValidate_Deterministic(t *testing.T) {
	raw := earthLike()
	raw["pl_eqt"] = "hot"
	delete(raw, "st_rad")

	v := New(nil)
	_, err1 := v.Validate(raw)
	_, err2 := v.Validate(raw)
	assert.Equal(t, err1.Error(), err2.Error())
}

func TestValidate_CustomSchema(t *testing.T) {
	schema, err := features.NewSchema(
		features.Field{Name: "b", Description: "second"},
		features.Field{Name: "a", Description: "first"},
	)
	require.NoError(t, err)

	v := New(schema)
	assert.Same(t, schema, v.Schema())

	rec, err := v.Validate(map[string]any{"a": 1.0, "b": 2.0})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 1}, rec.Values())

	_, err = v.Validate(map[string]any{})
	require.Error(t, err)
	assert.True(t, strings.HasSuffix(err.Error(), "b, a"))
}

func keysInOrder(rec features.Record) []string {
	var names []string
	for _, n := range rec.Schema().Names() {
		if _, ok := rec.Get(n); ok {
			names = append(names, n)
		}
	}
	return names
}
