package ml

import (
	"fmt"
	"math"
	"sync"

	"github.com/rs/zerolog/log"
	ort "github.com/yalue/onnxruntime_go"
)

// ONNXConfig selects the runtime library and tensor names of an exported classifier.
// The model takes a float32 [1, N] input and produces an int64 label and a
// float32 [1, 2] probability tensor (skl2onnx with zipmap disabled).
type ONNXConfig struct {
	LibraryPath       string
	InputName         string
	LabelOutput       string
	ProbabilityOutput string
}

var (
	ortOnce sync.Once
	ortErr  error
)

func initONNXRuntime(libraryPath string) error {
	ortOnce.Do(func() {
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		ortErr = ort.InitializeEnvironment()
		if ortErr == nil {
			log.Info().Str("library", libraryPath).Msg("onnxruntime initialized")
		}
	})
	return ortErr
}

// ONNXClassifier runs an ONNX session per Classify call with freshly allocated tensors.
type ONNXClassifier struct {
	session   *ort.DynamicAdvancedSession
	nFeatures int
}

// LoadONNXClassifier opens the model at path for nFeatures inputs.
func LoadONNXClassifier(path string, nFeatures int, cfg ONNXConfig) (*ONNXClassifier, error) {
	if err := initONNXRuntime(cfg.LibraryPath); err != nil {
		return nil, fmt.Errorf("initialize onnxruntime: %w", err)
	}
	session, err := ort.NewDynamicAdvancedSession(path,
		[]string{cfg.InputName},
		[]string{cfg.LabelOutput, cfg.ProbabilityOutput},
		nil)
	if err != nil {
		return nil, fmt.Errorf("create onnx session for %s: %w", path, err)
	}
	return &ONNXClassifier{session: session, nFeatures: nFeatures}, nil
}

// Classify runs the session on one scaled vector.
func (c *ONNXClassifier) Classify(x []float64) (int, float64, error) {
	if len(x) != c.nFeatures {
		return 0, 0, shapeError(c.nFeatures, len(x))
	}

	data := make([]float32, len(x))
	for i, v := range x {
		data[i] = float32(v)
	}
	input, err := ort.NewTensor(ort.NewShape(1, int64(len(x))), data)
	if err != nil {
		return 0, 0, fmt.Errorf("create input tensor: %w", err)
	}
	defer input.Destroy()

	label, err := ort.NewEmptyTensor[int64](ort.NewShape(1))
	if err != nil {
		return 0, 0, fmt.Errorf("create label tensor: %w", err)
	}
	defer label.Destroy()

	probs, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 2))
	if err != nil {
		return 0, 0, fmt.Errorf("create probability tensor: %w", err)
	}
	defer probs.Destroy()

	if err := c.session.Run([]ort.Value{input}, []ort.Value{label, probs}); err != nil {
		return 0, 0, fmt.Errorf("onnx inference failed: %w", err)
	}

	p := float64(probs.GetData()[1])
	if math.IsNaN(p) || p < 0 || p > 1 {
		return 0, 0, fmt.Errorf("invalid class-1 probability %v", p)
	}
	l := int(label.GetData()[0])
	if l != 0 && l != 1 {
		return 0, 0, fmt.Errorf("unexpected label %d", l)
	}
	return l, p, nil
}

// Close releases the session.
func (c *ONNXClassifier) Close() error {
	if c == nil || c.session == nil {
		return nil
	}
	err := c.session.Destroy()
	c.session = nil
	return err
}
