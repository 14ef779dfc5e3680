package cfg

import (
	"strings"
	"testing"
	"time"
)

// createValidSettings creates a valid Settings struct for testing
func createValidSettings() *Settings {
	return &Settings{
		Host:        "0.0.0.0",
		Port:        5000,
		ModelPath:   "models/habitability_model.json",
		ScalerPath:  "models/scaler.json",
		ModelFormat: "json",
		ONNX: ONNXSettings{
			InputName:         "float_input",
			LabelOutput:       "output_label",
			ProbabilityOutput: "output_probability",
		},
		BatchLimit:      100,
		BatchWorkers:    1,
		MaxBodyBytes:    1 << 20,
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		HistoryLimit:    50,
		LogLevel:        "info",
		LogFormat:       "json",
	}
}

func TestValidateSettings_ValidConfig(t *testing.T) {
	settings := createValidSettings()

	err := validateSettings(settings)
	if err != nil {
		t.Errorf("Expected valid config to pass, got error: %v", err)
	}
}

func TestValidateSettings_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *Settings)
		wantErr string
	}{
		{"empty host", func(s *Settings) { s.Host = "" }, "host cannot be empty"},
		{"port too low", func(s *Settings) { s.Port = 1023 }, "port must be between"},
		{"port too high", func(s *Settings) { s.Port = 65536 }, "port must be between"},
		{"empty model path", func(s *Settings) { s.ModelPath = "" }, "model path cannot be empty"},
		{"empty scaler path", func(s *Settings) { s.ScalerPath = "" }, "scaler path cannot be empty"},
		{"unknown format", func(s *Settings) { s.ModelFormat = "joblib" }, "model format must be"},
		{"onnx without output names", func(s *Settings) {
			s.ModelFormat = "onnx"
			s.ONNX.ProbabilityOutput = ""
		}, "ONNX input and output names are required"},
		{"zero batch limit", func(s *Settings) { s.BatchLimit = 0 }, "batch limit must be between"},
		{"batch limit too large", func(s *Settings) { s.BatchLimit = 10001 }, "batch limit must be between"},
		{"zero workers", func(s *Settings) { s.BatchWorkers = 0 }, "batch workers must be between"},
		{"too many workers", func(s *Settings) { s.BatchWorkers = 65 }, "batch workers must be between"},
		{"tiny body limit", func(s *Settings) { s.MaxBodyBytes = 100 }, "max body bytes must be between"},
		{"short request timeout", func(s *Settings) { s.RequestTimeout = 500 * time.Millisecond }, "request timeout must be between"},
		{"long shutdown timeout", func(s *Settings) { s.ShutdownTimeout = 2 * time.Minute }, "shutdown timeout must be between"},
		{"zero history limit", func(s *Settings) { s.HistoryLimit = 0 }, "history limit must be between"},
		{"bad log level", func(s *Settings) { s.LogLevel = "trace" }, "log level must be one of"},
		{"bad log format", func(s *Settings) { s.LogFormat = "xml" }, "log format must be json or console"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := createValidSettings()
			tt.mutate(settings)

			err := validateSettings(settings)
			if err == nil {
				t.Fatalf("Expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateSettings_Boundaries(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *Settings)
	}{
		{"min port", func(s *Settings) { s.Port = 1024 }},
		{"max port", func(s *Settings) { s.Port = 65535 }},
		{"single item batches", func(s *Settings) { s.BatchLimit = 1 }},
		{"max batch limit", func(s *Settings) { s.BatchLimit = 10000 }},
		{"max workers", func(s *Settings) { s.BatchWorkers = 64 }},
		{"min body", func(s *Settings) { s.MaxBodyBytes = 1 << 10 }},
		{"onnx with names", func(s *Settings) { s.ModelFormat = "onnx" }},
		{"console logging", func(s *Settings) { s.LogFormat = "console" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := createValidSettings()
			tt.mutate(settings)

			if err := validateSettings(settings); err != nil {
				t.Errorf("Expected boundary value to pass, got error: %v", err)
			}
		})
	}
}
