// Package ml provides the pre-trained collaborators behind habitability predictions:
// a fitted feature scaler and a binary classifier, plus the readiness gate that
// records whether both were loaded at startup.
//
// Artifacts are loaded once and never mutated, so every Scaler and Classifier in
// this package is safe for concurrent read-only use.
package ml

import (
	"errors"
	"fmt"
)

// ErrShape is returned when a vector does not have the length an artifact was fitted on.
var ErrShape = errors.New("feature vector shape mismatch")

// Scaler applies a fixed, pre-fitted transform to a feature vector in schema order.
type Scaler interface {
	Transform(x []float64) ([]float64, error)
}

// Classifier labels a scaled feature vector as 0 or 1 and returns the probability of class 1.
type Classifier interface {
	Classify(x []float64) (label int, probability float64, err error)
}

// ScalerFunc adapts a function to the Scaler interface.
type ScalerFunc func(x []float64) ([]float64, error)

// Transform calls f(x).
func (f ScalerFunc) Transform(x []float64) ([]float64, error) {
	return f(x)
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(x []float64) (int, float64, error)

// Classify calls f(x).
func (f ClassifierFunc) Classify(x []float64) (int, float64, error) {
	return f(x)
}

// IdentityScaler passes vectors through unchanged.
type IdentityScaler struct{}

// Transform returns a copy of x.
func (IdentityScaler) Transform(x []float64) ([]float64, error) {
	out := make([]float64, len(x))
	copy(out, x)
	return out, nil
}

func shapeError(want, got int) error {
	return fmt.Errorf("%w: expected %d features, got %d", ErrShape, want, got)
}
