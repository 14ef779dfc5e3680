package validate

import (
	"errors"
	"strings"
)

// Categories of validation failure. A *Error matches one or more of these with errors.Is.
var (
	ErrShape         = errors.New("input must be a JSON object")
	ErrMissingFields = errors.New("missing required features")
	ErrInvalidValue  = errors.New("invalid feature values")
)

// Per-field reasons reported for present but unusable values.
const (
	ReasonNotNumeric = "must be numeric"
	ReasonNotFinite  = "invalid value"
	ReasonMissing    = "missing"
)

// Error kinds, used as metric labels.
const (
	KindShape   = "shape"
	KindMissing = "missing"
	KindInvalid = "invalid"
	KindMixed   = "mixed"
)

// FieldIssue names one rejected field and the reason.
type FieldIssue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Error reports every problem found in a raw record. Missing and Invalid are in
// schema order; a field appears in at most one of them. Fields merges both, in
// schema order, with missing fields carrying ReasonMissing.
type Error struct {
	Shape   bool
	Missing []string
	Invalid []FieldIssue
	Fields  []FieldIssue
}

func (e *Error) Error() string {
	if e.Shape {
		return "Input must be a JSON object"
	}

	switch {
	case len(e.Missing) > 0 && len(e.Invalid) > 0:
		return "Invalid or missing features: " + joinIssues(e.Fields)
	case len(e.Missing) > 0:
		return "Missing required features: " + strings.Join(e.Missing, ", ")
	default:
		return "Invalid values for: " + joinIssues(e.Invalid)
	}
}

func joinIssues(issues []FieldIssue) string {
	items := make([]string, len(issues))
	for i, issue := range issues {
		items[i] = issue.Field + " (" + issue.Reason + ")"
	}
	return strings.Join(items, ", ")
}

// Unwrap exposes the failure categories to errors.Is.
func (e *Error) Unwrap() []error {
	var errs []error
	if e.Shape {
		errs = append(errs, ErrShape)
	}
	if len(e.Missing) > 0 {
		errs = append(errs, ErrMissingFields)
	}
	if len(e.Invalid) > 0 {
		errs = append(errs, ErrInvalidValue)
	}
	return errs
}

// Kind summarises the error as one of the Kind constants.
func (e *Error) Kind() string {
	switch {
	case e.Shape:
		return KindShape
	case len(e.Missing) > 0 && len(e.Invalid) > 0:
		return KindMixed
	case len(e.Missing) > 0:
		return KindMissing
	default:
		return KindInvalid
	}
}
