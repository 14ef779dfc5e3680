package ml

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"exohab/internal/features"
)

// Artifact kinds understood by the JSON loader.
const (
	KindStandardScaler     = "standard_scaler"
	KindLogisticRegression = "logistic_regression"
	KindRandomForest       = "random_forest"
	KindONNX               = "onnx"
)

// ArtifactInfo describes a loaded artifact.
type ArtifactInfo struct {
	Path     string    `json:"path"`
	Kind     string    `json:"kind"`
	Version  string    `json:"version,omitempty"`
	Features []string  `json:"features,omitempty"`
	ModTime  time.Time `json:"modified_at"`
}

// artifactFile is the JSON envelope shared by all artifact kinds. Only the fields
// relevant to Kind are populated.
type artifactFile struct {
	Kind     string   `json:"kind"`
	Version  string   `json:"version"`
	Features []string `json:"features"`

	// standard_scaler
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`

	// logistic_regression
	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`

	// random_forest
	Trees []treeFile `json:"trees"`
}

type treeFile struct {
	ChildrenLeft  []int       `json:"children_left"`
	ChildrenRight []int       `json:"children_right"`
	Feature       []int       `json:"feature"`
	Threshold     []float64   `json:"threshold"`
	Value         [][]float64 `json:"value"`
}

// LoadScaler reads a standard_scaler artifact fitted on schema.
func LoadScaler(path string, schema *features.Schema) (Scaler, ArtifactInfo, error) {
	af, info, err := readArtifact(path, schema)
	if err != nil {
		return nil, info, err
	}
	if af.Kind != KindStandardScaler {
		return nil, info, fmt.Errorf("%s: unsupported scaler kind %q", path, af.Kind)
	}
	s, err := NewStandardScaler(af.Mean, af.Scale)
	if err != nil {
		return nil, info, fmt.Errorf("%s: %w", path, err)
	}
	if len(s.Mean) != schema.Len() {
		return nil, info, fmt.Errorf("%s: %w", path, shapeError(schema.Len(), len(s.Mean)))
	}
	return s, info, nil
}

// LoadClassifier reads a logistic_regression or random_forest artifact fitted on schema.
func LoadClassifier(path string, schema *features.Schema) (Classifier, ArtifactInfo, error) {
	af, info, err := readArtifact(path, schema)
	if err != nil {
		return nil, info, err
	}

	switch af.Kind {
	case KindLogisticRegression:
		m, err := NewLogisticRegression(af.Coef, af.Intercept)
		if err != nil {
			return nil, info, fmt.Errorf("%s: %w", path, err)
		}
		if len(m.Coef) != schema.Len() {
			return nil, info, fmt.Errorf("%s: %w", path, shapeError(schema.Len(), len(m.Coef)))
		}
		return m, info, nil
	case KindRandomForest:
		trees := make([]Tree, len(af.Trees))
		for i, t := range af.Trees {
			trees[i] = Tree{
				ChildrenLeft:  t.ChildrenLeft,
				ChildrenRight: t.ChildrenRight,
				Feature:       t.Feature,
				Threshold:     t.Threshold,
				Value:         t.Value,
			}
		}
		m, err := NewRandomForest(trees, schema.Len())
		if err != nil {
			return nil, info, fmt.Errorf("%s: %w", path, err)
		}
		return m, info, nil
	default:
		return nil, info, fmt.Errorf("%s: unsupported classifier kind %q", path, af.Kind)
	}
}

func readArtifact(path string, schema *features.Schema) (*artifactFile, ArtifactInfo, error) {
	info := ArtifactInfo{Path: path}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, info, fmt.Errorf("artifact not found: %w", err)
	}
	info.ModTime = stat.ModTime()

	file, err := os.Open(path)
	if err != nil {
		return nil, info, fmt.Errorf("open artifact: %w", err)
	}
	defer file.Close()

	var af artifactFile
	if err := json.NewDecoder(file).Decode(&af); err != nil {
		return nil, info, fmt.Errorf("decode artifact %s: %w", path, err)
	}
	info.Kind = af.Kind
	info.Version = af.Version
	info.Features = af.Features

	if len(af.Features) > 0 && !schema.Equal(af.Features) {
		return nil, info, fmt.Errorf("%s: artifact features %v do not match schema order %v",
			path, af.Features, schema.Names())
	}
	return &af, info, nil
}

// StandardScaler standardises each feature as (x - mean) / scale.
type StandardScaler struct {
	Mean  []float64
	Scale []float64
}

// NewStandardScaler validates fitted parameters. A nil mean means the scaler was
// fitted without centering.
func NewStandardScaler(mean, scale []float64) (*StandardScaler, error) {
	if len(scale) == 0 {
		return nil, fmt.Errorf("scaler has no scale parameters")
	}
	if mean == nil {
		mean = make([]float64, len(scale))
	}
	if len(mean) != len(scale) {
		return nil, fmt.Errorf("scaler mean has %d entries, scale has %d", len(mean), len(scale))
	}
	for i := range scale {
		if !finite(mean[i]) || !finite(scale[i]) || scale[i] == 0 {
			return nil, fmt.Errorf("scaler parameter %d is not usable (mean=%v scale=%v)", i, mean[i], scale[i])
		}
	}
	return &StandardScaler{Mean: mean, Scale: scale}, nil
}

// Transform standardises x.
func (s *StandardScaler) Transform(x []float64) ([]float64, error) {
	if len(x) != len(s.Mean) {
		return nil, shapeError(len(s.Mean), len(x))
	}
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = (v - s.Mean[i]) / s.Scale[i]
		if !finite(out[i]) {
			return nil, fmt.Errorf("scaled feature %d is not finite", i)
		}
	}
	return out, nil
}

// LogisticRegression is a fitted binary logistic model.
type LogisticRegression struct {
	Coef      []float64
	Intercept float64
}

// NewLogisticRegression validates fitted weights.
func NewLogisticRegression(coef []float64, intercept float64) (*LogisticRegression, error) {
	if len(coef) == 0 {
		return nil, fmt.Errorf("logistic regression has no coefficients")
	}
	for i, w := range coef {
		if !finite(w) {
			return nil, fmt.Errorf("coefficient %d is not finite", i)
		}
	}
	if !finite(intercept) {
		return nil, fmt.Errorf("intercept is not finite")
	}
	return &LogisticRegression{Coef: coef, Intercept: intercept}, nil
}

// Classify returns label 1 when the decision value is positive, with sigmoid probability.
func (m *LogisticRegression) Classify(x []float64) (int, float64, error) {
	if len(x) != len(m.Coef) {
		return 0, 0, shapeError(len(m.Coef), len(x))
	}
	z := m.Intercept
	for i, v := range x {
		z += m.Coef[i] * v
	}
	if math.IsNaN(z) {
		return 0, 0, fmt.Errorf("decision value is NaN")
	}
	label := 0
	if z > 0 {
		label = 1
	}
	return label, sigmoid(z), nil
}

// Tree is one fitted decision tree in array layout: node i is a leaf when
// ChildrenLeft[i] == -1, otherwise samples with x[Feature[i]] <= Threshold[i] go left.
// Value[i] holds per-class weights for node i.
type Tree struct {
	ChildrenLeft  []int
	ChildrenRight []int
	Feature       []int
	Threshold     []float64
	Value         [][]float64
}

// RandomForest averages per-tree class probabilities.
type RandomForest struct {
	Trees     []Tree
	nFeatures int
}

// NewRandomForest validates tree structure for nFeatures inputs. Children must
// have larger indices than their parent so traversal always terminates.
func NewRandomForest(trees []Tree, nFeatures int) (*RandomForest, error) {
	if len(trees) == 0 {
		return nil, fmt.Errorf("random forest has no trees")
	}
	for ti, t := range trees {
		n := len(t.ChildrenLeft)
		if n == 0 {
			return nil, fmt.Errorf("tree %d has no nodes", ti)
		}
		if len(t.ChildrenRight) != n || len(t.Feature) != n || len(t.Threshold) != n || len(t.Value) != n {
			return nil, fmt.Errorf("tree %d has inconsistent array lengths", ti)
		}
		for i := 0; i < n; i++ {
			left, right := t.ChildrenLeft[i], t.ChildrenRight[i]
			if left == -1 {
				if len(t.Value[i]) != 2 {
					return nil, fmt.Errorf("tree %d leaf %d has %d class values, expected 2", ti, i, len(t.Value[i]))
				}
				if t.Value[i][0]+t.Value[i][1] <= 0 {
					return nil, fmt.Errorf("tree %d leaf %d has no weight", ti, i)
				}
				continue
			}
			if left <= i || right <= i || left >= n || right >= n {
				return nil, fmt.Errorf("tree %d node %d has invalid children (%d, %d)", ti, i, left, right)
			}
			if t.Feature[i] < 0 || t.Feature[i] >= nFeatures {
				return nil, fmt.Errorf("tree %d node %d splits on feature %d of %d", ti, i, t.Feature[i], nFeatures)
			}
		}
	}
	return &RandomForest{Trees: trees, nFeatures: nFeatures}, nil
}

// Classify returns the argmax class (ties go to 0) and the mean class-1 probability.
func (m *RandomForest) Classify(x []float64) (int, float64, error) {
	if len(x) != m.nFeatures {
		return 0, 0, shapeError(m.nFeatures, len(x))
	}
	var sum float64
	for _, t := range m.Trees {
		node := 0
		for t.ChildrenLeft[node] != -1 {
			if x[t.Feature[node]] <= t.Threshold[node] {
				node = t.ChildrenLeft[node]
			} else {
				node = t.ChildrenRight[node]
			}
		}
		v := t.Value[node]
		sum += v[1] / (v[0] + v[1])
	}
	p := sum / float64(len(m.Trees))
	label := 0
	if p > 0.5 {
		label = 1
	}
	return label, p, nil
}

// sigmoid converts a score to a probability
func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
