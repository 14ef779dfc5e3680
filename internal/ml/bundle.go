package ml

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"exohab/internal/common"
	"exohab/internal/features"

	"github.com/rs/zerolog/log"
)

// Artifact names used in readiness reports.
const (
	ArtifactModel  = "model"
	ArtifactScaler = "scaler"
)

// Health statuses.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// LoadOptions locates the artifacts loaded at startup.
type LoadOptions struct {
	ModelPath  string
	ScalerPath string
	Format     string // common.ModelFormatJSON or common.ModelFormatONNX
	ONNX       ONNXConfig
	Schema     *features.Schema
}

// Readiness is the report served by the health endpoint.
type Readiness struct {
	Status       string            `json:"status"`
	ModelLoaded  bool              `json:"model_loaded"`
	ScalerLoaded bool              `json:"scaler_loaded"`
	Errors       map[string]string `json:"errors,omitempty"`
}

// ModelInfo describes the loaded artifacts.
type ModelInfo struct {
	Model    ArtifactInfo   `json:"model"`
	Scaler   ArtifactInfo   `json:"scaler"`
	Metadata *ModelMetadata `json:"metadata,omitempty"`
	LoadedAt time.Time      `json:"loaded_at"`
}

// Bundle holds the scaler and classifier loaded at startup together with the
// reason either is missing. It is never modified after construction.
type Bundle struct {
	schema     *features.Schema
	scaler     Scaler
	classifier Classifier
	scalerErr  error
	modelErr   error
	info       ModelInfo
}

// NewBundle wraps already constructed collaborators fitted on the default schema.
// A nil collaborator is reported as not loaded.
func NewBundle(scaler Scaler, classifier Classifier) *Bundle {
	return NewBundleFor(features.Default(), scaler, classifier)
}

// NewBundleFor is NewBundle for collaborators fitted on schema.
func NewBundleFor(schema *features.Schema, scaler Scaler, classifier Classifier) *Bundle {
	if schema == nil {
		schema = features.Default()
	}
	b := &Bundle{
		schema:     schema,
		scaler:     scaler,
		classifier: classifier,
		info:       ModelInfo{LoadedAt: time.Now()},
	}
	if scaler == nil {
		b.scalerErr = errors.New("scaler not provided")
	}
	if classifier == nil {
		b.modelErr = errors.New("model not provided")
	}
	return b
}

// Load reads both artifacts. Failures are recorded rather than returned so the
// service can start and report itself unhealthy.
func Load(opts LoadOptions) *Bundle {
	if opts.Schema == nil {
		opts.Schema = features.Default()
	}
	b := &Bundle{schema: opts.Schema, info: ModelInfo{LoadedAt: time.Now()}}

	scaler, scalerInfo, err := LoadScaler(opts.ScalerPath, opts.Schema)
	b.info.Scaler = scalerInfo
	if err != nil {
		b.scalerErr = err
		log.Error().Err(err).Str("scaler_path", opts.ScalerPath).Msg("scaler not loaded")
	} else {
		b.scaler = scaler
		log.Info().Str("scaler_path", opts.ScalerPath).Str("version", scalerInfo.Version).Msg("scaler loaded")
	}

	md, err := loadModelMetadata(opts.ModelPath)
	switch {
	case err == nil:
		b.info.Metadata = md
	case !errors.Is(err, os.ErrNotExist):
		log.Warn().Err(err).Msg("failed to load model metadata, continuing without it")
	}

	classifier, modelInfo, err := loadClassifier(opts)
	b.info.Model = modelInfo
	if err == nil && md != nil && len(md.Features) > 0 && !opts.Schema.Equal(md.Features) {
		err = fmt.Errorf("model metadata features %v do not match schema order %v", md.Features, opts.Schema.Names())
		if c, ok := classifier.(io.Closer); ok {
			c.Close()
		}
	}
	if err != nil {
		b.modelErr = err
		log.Error().Err(err).Str("model_path", opts.ModelPath).Msg("model not loaded")
	} else {
		b.classifier = classifier
		log.Info().Str("model_path", opts.ModelPath).Str("kind", modelInfo.Kind).Msg("model loaded")
	}

	return b
}

func loadClassifier(opts LoadOptions) (Classifier, ArtifactInfo, error) {
	if opts.Format != common.ModelFormatONNX {
		return LoadClassifier(opts.ModelPath, opts.Schema)
	}

	info := ArtifactInfo{Path: opts.ModelPath, Kind: KindONNX}
	stat, err := os.Stat(opts.ModelPath)
	if err != nil {
		return nil, info, fmt.Errorf("artifact not found: %w", err)
	}
	info.ModTime = stat.ModTime()

	c, err := LoadONNXClassifier(opts.ModelPath, opts.Schema.Len(), opts.ONNX)
	if err != nil {
		return nil, info, err
	}
	return c, info, nil
}

// Ready reports whether both collaborators are available.
func (b *Bundle) Ready() bool {
	return b != nil && b.scaler != nil && b.classifier != nil
}

// Status builds the readiness report.
func (b *Bundle) Status() Readiness {
	if b == nil {
		return Readiness{Status: StatusUnhealthy}
	}
	r := Readiness{
		Status:       StatusUnhealthy,
		ModelLoaded:  b.classifier != nil,
		ScalerLoaded: b.scaler != nil,
	}
	if b.Ready() {
		r.Status = StatusHealthy
		return r
	}
	r.Errors = make(map[string]string)
	if b.modelErr != nil {
		r.Errors[ArtifactModel] = b.modelErr.Error()
	}
	if b.scalerErr != nil {
		r.Errors[ArtifactScaler] = b.scalerErr.Error()
	}
	return r
}

// Schema returns the feature order the artifacts were fitted on.
func (b *Bundle) Schema() *features.Schema {
	if b == nil || b.schema == nil {
		return features.Default()
	}
	return b.schema
}

// Scaler returns the loaded scaler, or nil.
func (b *Bundle) Scaler() Scaler {
	return b.scaler
}

// Classifier returns the loaded classifier, or nil.
func (b *Bundle) Classifier() Classifier {
	return b.classifier
}

// Info describes the loaded artifacts.
func (b *Bundle) Info() ModelInfo {
	return b.info
}

// ModelAge returns the time since the model artifact was last modified, or zero if unknown.
func (b *Bundle) ModelAge() time.Duration {
	if b.info.Model.ModTime.IsZero() {
		return 0
	}
	return time.Since(b.info.Model.ModTime)
}

// Close releases collaborators that hold native resources.
func (b *Bundle) Close() error {
	if b == nil {
		return nil
	}
	if c, ok := b.classifier.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
