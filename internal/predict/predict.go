// Package predict turns validated planet records into habitability predictions.
//
// A Service wraps the collaborators loaded at startup. It holds no mutable state,
// so one Service is shared by all request handlers.
package predict

import (
	"fmt"
	"math"
	"time"

	"exohab/internal/common"
	"exohab/internal/features"
	"exohab/internal/ml"
	"exohab/internal/validate"

	"github.com/rs/zerolog/log"
)

// Confidence tiers and classification labels.
const (
	ConfidenceHigh   = "High"
	ConfidenceMedium = "Medium"

	LabelHabitable    = "Habitable"
	LabelNotHabitable = "Not Habitable"
)

// Fixed confidence cutoffs on the class-1 probability.
const (
	highUpper = 0.8
	highLower = 0.2
)

// MetricsInterface defines the metrics recorded by the service
type MetricsInterface interface {
	PredictionInc(classification string)
	PredictionFailureInc()
	ValidationErrorInc(kind string)
	NotReadyInc()
	BatchRequestInc()
	BatchRejectedInc()
	LatencyObserve(seconds float64)
	ProbabilityObserve(p float64)
	BatchSizeObserve(n float64)
}

// Prediction is the presentation form of one classification.
type Prediction struct {
	IsHabitable             int     `json:"is_habitable"`
	HabitabilityProbability float64 `json:"habitability_probability"`
	Confidence              string  `json:"confidence"`
	Classification          string  `json:"classification"`
}

// Result pairs a prediction with the validated input it was computed from.
type Result struct {
	Prediction Prediction      `json:"prediction"`
	Input      features.Record `json:"input_data"`

	// Probability is the unrounded class-1 probability.
	Probability float64 `json:"-"`
}

// Service runs validation, scaling and classification.
type Service struct {
	bundle     *ml.Bundle
	validator  *validate.Validator
	batchLimit int
	workers    int
	metrics    MetricsInterface
}

// Option configures a Service.
type Option func(*Service)

// WithBatchLimit sets the maximum number of items accepted by PredictBatch.
func WithBatchLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchLimit = n
		}
	}
}

// WithWorkers sets how many batch items are processed concurrently.
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(m MetricsInterface) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithValidator replaces the validator built from the bundle's schema. A validator
// whose field order differs from the bundle's is refused.
func WithValidator(v *validate.Validator) Option {
	return func(s *Service) {
		if v != nil {
			s.validator = v
		}
	}
}

// New creates a Service over bundle.
func New(bundle *ml.Bundle, opts ...Option) *Service {
	s := &Service{
		bundle:     bundle,
		batchLimit: common.DefaultBatchLimit,
		workers:    common.DefaultBatchWorkers,
	}
	for _, opt := range opts {
		opt(s)
	}

	schema := bundle.Schema()
	switch {
	case s.validator == nil:
		s.validator = validate.New(schema)
	case !sameOrder(s.validator.Schema(), schema):
		log.Error().
			Strs("validator_fields", s.validator.Schema().Names()).
			Strs("model_fields", schema.Names()).
			Msg("validator schema does not match model schema, validating against the model schema")
		s.validator = validate.New(schema)
	}
	return s
}

// sameOrder reports whether a and b list the same fields in the same order.
func sameOrder(a, b *features.Schema) bool {
	if a == b {
		return true
	}
	return a != nil && b != nil && b.Equal(a.Names())
}

// Ready reports whether predictions can be served.
func (s *Service) Ready() bool {
	return s.bundle.Ready()
}

// Schema returns the schema inputs are validated against.
func (s *Service) Schema() *features.Schema {
	return s.validator.Schema()
}

// CheckReady returns ErrNotReady, and counts the refusal, when the bundle is not loaded.
// Callers that must refuse before reading a request use it directly.
func (s *Service) CheckReady() error {
	if s.Ready() {
		return nil
	}
	if s.metrics != nil {
		s.metrics.NotReadyInc()
	}
	return ErrNotReady
}

// BatchLimit returns the maximum batch size.
func (s *Service) BatchLimit() int {
	return s.batchLimit
}

// PredictRaw validates raw and predicts on it. It is the single-prediction entry point.
func (s *Service) PredictRaw(raw any) (Result, error) {
	if err := s.CheckReady(); err != nil {
		return Result{}, err
	}
	rec, err := s.validate(raw)
	if err != nil {
		return Result{}, err
	}
	return s.predict(rec)
}

// Predict classifies an already validated record.
func (s *Service) Predict(rec features.Record) (Result, error) {
	if err := s.CheckReady(); err != nil {
		return Result{}, err
	}
	return s.predict(rec)
}

func (s *Service) validate(raw any) (features.Record, error) {
	rec, err := s.validator.Validate(raw)
	if err != nil && s.metrics != nil {
		kind := validate.KindShape
		if verr, ok := err.(*validate.Error); ok {
			kind = verr.Kind()
		}
		s.metrics.ValidationErrorInc(kind)
	}
	return rec, err
}

func (s *Service) predict(rec features.Record) (res Result, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = &FailedError{Err: fmt.Errorf("panic: %v", r)}
		}
		if err != nil {
			s.failed(err)
			return
		}
		if s.metrics != nil {
			s.metrics.LatencyObserve(time.Since(start).Seconds())
			s.metrics.PredictionInc(res.Prediction.Classification)
			s.metrics.ProbabilityObserve(res.Probability)
		}
	}()

	if want := s.bundle.Schema(); !sameOrder(rec.Schema(), want) {
		return Result{}, &FailedError{Err: fmt.Errorf("%w: record is not in model field order %v", ml.ErrShape, want.Names())}
	}

	scaled, err := s.bundle.Scaler().Transform(rec.Values())
	if err != nil {
		return Result{}, &FailedError{Err: err}
	}
	label, p, err := s.bundle.Classifier().Classify(scaled)
	if err != nil {
		return Result{}, &FailedError{Err: err}
	}
	if math.IsNaN(p) || p < 0 || p > 1 {
		return Result{}, &FailedError{Err: fmt.Errorf("probability %v outside [0, 1]", p)}
	}
	if label != 0 && label != 1 {
		return Result{}, &FailedError{Err: fmt.Errorf("unexpected label %d", label)}
	}

	return Result{
		Prediction:  present(label, p),
		Input:       rec,
		Probability: p,
	}, nil
}

func (s *Service) failed(err error) {
	log.Error().Err(err).Msg("prediction failed")
	if s.metrics != nil {
		s.metrics.PredictionFailureInc()
	}
}

func present(label int, p float64) Prediction {
	out := Prediction{
		IsHabitable:             label,
		HabitabilityProbability: round4(p),
		Confidence:              Confidence(p),
		Classification:          LabelNotHabitable,
	}
	if label == 1 {
		out.Classification = LabelHabitable
	}
	return out
}

// Confidence maps an unrounded probability to its tier.
func Confidence(p float64) string {
	if p > highUpper || p < highLower {
		return ConfidenceHigh
	}
	return ConfidenceMedium
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
