package cfg

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		wantErr  bool
		validate func(t *testing.T, settings Settings)
	}{
		{
			name:    "defaults",
			envVars: map[string]string{},
			wantErr: false,
			validate: func(t *testing.T, settings Settings) {
				if settings.Addr() != "0.0.0.0:5000" {
					t.Errorf("expected default addr 0.0.0.0:5000, got %s", settings.Addr())
				}
				if settings.ModelPath != "models/habitability_model.json" {
					t.Errorf("expected default ModelPath, got %s", settings.ModelPath)
				}
				if settings.ScalerPath != "models/scaler.json" {
					t.Errorf("expected default ScalerPath, got %s", settings.ScalerPath)
				}
				if settings.ModelFormat != "json" {
					t.Errorf("expected default ModelFormat json, got %s", settings.ModelFormat)
				}
				if settings.BatchLimit != 100 {
					t.Errorf("expected default BatchLimit 100, got %d", settings.BatchLimit)
				}
				if settings.BatchWorkers != 1 {
					t.Errorf("expected default BatchWorkers 1, got %d", settings.BatchWorkers)
				}
				if settings.MaxBodyBytes != 1<<20 {
					t.Errorf("expected default MaxBodyBytes 1MiB, got %d", settings.MaxBodyBytes)
				}
				if settings.RequestTimeout != 30*time.Second {
					t.Errorf("expected default RequestTimeout 30s, got %v", settings.RequestTimeout)
				}
				if settings.HistoryEnabled() {
					t.Error("expected history to be disabled without DATA_PATH")
				}
				if settings.ONNX.InputName != "float_input" {
					t.Errorf("expected default ONNX input name, got %s", settings.ONNX.InputName)
				}
			},
		},
		{
			name: "custom settings",
			envVars: map[string]string{
				"PORT":            "8081",
				"MODEL_PATH":      "/srv/model.onnx",
				"MODEL_FORMAT":    "ONNX",
				"DATA_PATH":       "/var/lib/exohab",
				"BATCH_LIMIT":     "250",
				"BATCH_WORKERS":   "8",
				"REQUEST_TIMEOUT": "5s",
				"LOG_LEVEL":       "DEBUG",
				"LOG_FORMAT":      "console",
			},
			wantErr: false,
			validate: func(t *testing.T, settings Settings) {
				if settings.Port != 8081 {
					t.Errorf("expected Port 8081, got %d", settings.Port)
				}
				if settings.ModelFormat != "onnx" {
					t.Errorf("expected ModelFormat onnx, got %s", settings.ModelFormat)
				}
				if !settings.HistoryEnabled() || settings.DataPath != "/var/lib/exohab" {
					t.Errorf("expected history enabled at /var/lib/exohab, got %q", settings.DataPath)
				}
				if settings.BatchLimit != 250 || settings.BatchWorkers != 8 {
					t.Errorf("expected batch 250/8, got %d/%d", settings.BatchLimit, settings.BatchWorkers)
				}
				if settings.RequestTimeout != 5*time.Second {
					t.Errorf("expected RequestTimeout 5s, got %v", settings.RequestTimeout)
				}
				if settings.LogLevel != "debug" || settings.LogFormat != "console" {
					t.Errorf("expected debug/console logging, got %s/%s", settings.LogLevel, settings.LogFormat)
				}
			},
		},
		{
			name:     "unparseable values fall back to defaults",
			envVars:  map[string]string{"PORT": "abc", "REQUEST_TIMEOUT": "soon"},
			wantErr:  false,
			validate: func(t *testing.T, settings Settings) {
				if settings.Port != 5000 {
					t.Errorf("expected default Port, got %d", settings.Port)
				}
				if settings.RequestTimeout != 30*time.Second {
					t.Errorf("expected default RequestTimeout, got %v", settings.RequestTimeout)
				}
			},
		},
		{
			name:    "privileged port",
			envVars: map[string]string{"PORT": "80"},
			wantErr: true,
		},
		{
			name:    "unknown model format",
			envVars: map[string]string{"MODEL_FORMAT": "pickle"},
			wantErr: true,
		},
		{
			name:    "batch limit too large",
			envVars: map[string]string{"BATCH_LIMIT": "20000"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clear all environment variables first
			clearTestEnv(t)

			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			settings, err := loadFromEnv()
			if (err != nil) != tt.wantErr {
				t.Fatalf("loadFromEnv() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && tt.validate != nil {
				tt.validate(t, settings)
			}
		})
	}
}

func TestLoadFromYAML(t *testing.T) {
	tests := []struct {
		name        string
		yamlContent string
		envVars     map[string]string
		wantErr     bool
		validate    func(t *testing.T, settings Settings)
	}{
		{
			name: "full config",
			yamlContent: `
server:
  host: 127.0.0.1
  port: 8080
  maxBodyBytes: 2048
  requestTimeout: 10s
  shutdownTimeout: 3s
model:
  path: artifacts/rf.json
  scalerPath: artifacts/scaler.json
  format: json
batch:
  limit: 50
  workers: 4
history:
  dataPath: ./data
  limit: 20
log:
  level: warn
  format: console
`,
			wantErr: false,
			validate: func(t *testing.T, settings Settings) {
				if settings.Addr() != "127.0.0.1:8080" {
					t.Errorf("expected addr 127.0.0.1:8080, got %s", settings.Addr())
				}
				if settings.ModelPath != "artifacts/rf.json" {
					t.Errorf("expected ModelPath from file, got %s", settings.ModelPath)
				}
				if settings.MaxBodyBytes != 2048 {
					t.Errorf("expected MaxBodyBytes 2048, got %d", settings.MaxBodyBytes)
				}
				if settings.ShutdownTimeout != 3*time.Second {
					t.Errorf("expected ShutdownTimeout 3s, got %v", settings.ShutdownTimeout)
				}
				if settings.BatchLimit != 50 || settings.BatchWorkers != 4 {
					t.Errorf("expected batch 50/4, got %d/%d", settings.BatchLimit, settings.BatchWorkers)
				}
				if settings.DataPath != "./data" || settings.HistoryLimit != 20 {
					t.Errorf("expected history ./data/20, got %s/%d", settings.DataPath, settings.HistoryLimit)
				}
				if settings.LogLevel != "warn" {
					t.Errorf("expected LogLevel warn, got %s", settings.LogLevel)
				}
			},
		},
		{
			name: "env overrides file",
			yamlContent: `
server:
  port: 8080
batch:
  limit: 50
`,
			envVars: map[string]string{"PORT": "9000", "BATCH_LIMIT": "10"},
			wantErr: false,
			validate: func(t *testing.T, settings Settings) {
				if settings.Port != 9000 {
					t.Errorf("expected env Port 9000, got %d", settings.Port)
				}
				if settings.BatchLimit != 10 {
					t.Errorf("expected env BatchLimit 10, got %d", settings.BatchLimit)
				}
			},
		},
		{
			name:        "empty file uses defaults",
			yamlContent: "{}\n",
			wantErr:     false,
			validate: func(t *testing.T, settings Settings) {
				if settings.Port != 5000 || settings.BatchLimit != 100 {
					t.Errorf("expected defaults, got port %d limit %d", settings.Port, settings.BatchLimit)
				}
				if settings.RequestTimeout != 30*time.Second {
					t.Errorf("expected default RequestTimeout, got %v", settings.RequestTimeout)
				}
			},
		},
		{
			name: "onnx model",
			yamlContent: `
model:
  path: model.onnx
  format: onnx
  onnx:
    libraryPath: /usr/lib/libonnxruntime.so
    inputName: input
`,
			wantErr: false,
			validate: func(t *testing.T, settings Settings) {
				if settings.ONNX.LibraryPath != "/usr/lib/libonnxruntime.so" {
					t.Errorf("expected ONNX library path from file, got %s", settings.ONNX.LibraryPath)
				}
				if settings.ONNX.InputName != "input" {
					t.Errorf("expected ONNX input name 'input', got %s", settings.ONNX.InputName)
				}
				if settings.ONNX.ProbabilityOutput != "output_probability" {
					t.Errorf("expected default probability output, got %s", settings.ONNX.ProbabilityOutput)
				}
			},
		},
		{
			name:        "invalid yaml",
			yamlContent: "server: [unterminated",
			wantErr:     true,
		},
		{
			name: "invalid values",
			yamlContent: `
batch:
  workers: 1000
`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearTestEnv(t)
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			configPath := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(configPath, []byte(tt.yamlContent), 0o644); err != nil {
				t.Fatalf("failed to write config file: %v", err)
			}

			settings, err := loadFromYAML(configPath)
			if (err != nil) != tt.wantErr {
				t.Fatalf("loadFromYAML() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && tt.validate != nil {
				tt.validate(t, settings)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("uses CONFIG_FILE when set", func(t *testing.T) {
		clearTestEnv(t)
		configPath := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(configPath, []byte("server:\n  port: 7070\n"), 0o644); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}
		t.Setenv("CONFIG_FILE", configPath)

		settings, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if settings.Port != 7070 {
			t.Errorf("expected Port 7070 from file, got %d", settings.Port)
		}
	})

	t.Run("missing config file", func(t *testing.T) {
		clearTestEnv(t)
		t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

		_, err := Load()
		if err == nil || !strings.Contains(err.Error(), "failed to read config file") {
			t.Errorf("expected read error, got %v", err)
		}
	})

	t.Run("falls back to environment", func(t *testing.T) {
		clearTestEnv(t)
		t.Setenv("PORT", "6060")

		settings, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if settings.Port != 6060 {
			t.Errorf("expected Port 6060 from env, got %d", settings.Port)
		}
	})
}

// clearTestEnv clears potentially conflicting environment variables
func clearTestEnv(t *testing.T) {
	envVars := []string{
		"CONFIG_FILE", "HOST", "PORT", "MODEL_PATH", "SCALER_PATH", "MODEL_FORMAT",
		"ONNX_LIBRARY_PATH", "ONNX_INPUT_NAME", "ONNX_LABEL_OUTPUT", "ONNX_PROBABILITY_OUTPUT",
		"DATA_PATH", "BATCH_LIMIT", "BATCH_WORKERS", "MAX_BODY_BYTES", "REQUEST_TIMEOUT",
		"SHUTDOWN_TIMEOUT", "HISTORY_LIMIT", "LOG_LEVEL", "LOG_FORMAT",
	}

	for _, env := range envVars {
		if val := os.Getenv(env); val != "" {
			t.Setenv(env, "")
		}
	}
}
