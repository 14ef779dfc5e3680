package cfg

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"exohab/internal/common"

	"gopkg.in/yaml.v3"
)

type Settings struct {
	Host            string
	Port            int
	ModelPath       string
	ScalerPath      string
	ModelFormat     string
	ONNX            ONNXSettings
	DataPath        string
	BatchLimit      int
	BatchWorkers    int
	MaxBodyBytes    int64
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	HistoryLimit    int
	LogLevel        string
	LogFormat       string
}

type ONNXSettings struct {
	LibraryPath       string `yaml:"libraryPath"`
	InputName         string `yaml:"inputName"`
	LabelOutput       string `yaml:"labelOutput"`
	ProbabilityOutput string `yaml:"probabilityOutput"`
}

type ConfigFile struct {
	Server struct {
		Host            string `yaml:"host"`
		Port            int    `yaml:"port"`
		MaxBodyBytes    int64  `yaml:"maxBodyBytes"`
		RequestTimeout  string `yaml:"requestTimeout"`
		ShutdownTimeout string `yaml:"shutdownTimeout"`
	} `yaml:"server"`

	Model struct {
		Path       string       `yaml:"path"`
		ScalerPath string       `yaml:"scalerPath"`
		Format     string       `yaml:"format"`
		ONNX       ONNXSettings `yaml:"onnx"`
	} `yaml:"model"`

	Batch struct {
		Limit   int `yaml:"limit"`
		Workers int `yaml:"workers"`
	} `yaml:"batch"`

	History struct {
		DataPath string `yaml:"dataPath"`
		Limit    int    `yaml:"limit"`
	} `yaml:"history"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

func Load() (Settings, error) {
	// Try to load from YAML file first
	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}

	// Fallback to environment variables
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	requestTimeout, err := time.ParseDuration(config.Server.RequestTimeout)
	if err != nil {
		requestTimeout = common.DefaultRequestTimeout
	}
	shutdownTimeout, err := time.ParseDuration(config.Server.ShutdownTimeout)
	if err != nil {
		shutdownTimeout = common.DefaultShutdownTimeout
	}

	// Environment variables override the file
	settings := Settings{
		Host:         getEnvOrDefault(common.EnvHost, orString(config.Server.Host, common.DefaultHost)),
		Port:         getIntFromEnvOrConfig(common.EnvPort, config.Server.Port, common.DefaultPort),
		ModelPath:    getEnvOrDefault(common.EnvModelPath, orString(config.Model.Path, common.DefaultModelPath)),
		ScalerPath:   getEnvOrDefault(common.EnvScalerPath, orString(config.Model.ScalerPath, common.DefaultScalerPath)),
		ModelFormat:  strings.ToLower(getEnvOrDefault(common.EnvModelFormat, orString(config.Model.Format, common.DefaultModelFormat))),
		DataPath:     getEnvOrDefault(common.EnvDataPath, config.History.DataPath),
		BatchLimit:   getIntFromEnvOrConfig(common.EnvBatchLimit, config.Batch.Limit, common.DefaultBatchLimit),
		BatchWorkers: getIntFromEnvOrConfig(common.EnvBatchWorkers, config.Batch.Workers, common.DefaultBatchWorkers),
		MaxBodyBytes: getInt64FromEnvOrConfig(common.EnvMaxBodyBytes, config.Server.MaxBodyBytes, common.DefaultMaxBodyBytes),
		ONNX: ONNXSettings{
			LibraryPath:       getEnvOrDefault(common.EnvONNXLibrary, config.Model.ONNX.LibraryPath),
			InputName:         getEnvOrDefault(common.EnvONNXInputName, orString(config.Model.ONNX.InputName, common.DefaultONNXInputName)),
			LabelOutput:       getEnvOrDefault(common.EnvONNXLabelOutput, orString(config.Model.ONNX.LabelOutput, common.DefaultONNXLabelOutput)),
			ProbabilityOutput: getEnvOrDefault(common.EnvONNXProbOutput, orString(config.Model.ONNX.ProbabilityOutput, common.DefaultONNXProbOutput)),
		},
		RequestTimeout:  getDurationOrDefault(common.EnvRequestTimeout, requestTimeout),
		ShutdownTimeout: getDurationOrDefault(common.EnvShutdownTimeout, shutdownTimeout),
		HistoryLimit:    getIntFromEnvOrConfig(common.EnvHistoryLimit, config.History.Limit, common.DefaultHistoryLimit),
		LogLevel:        strings.ToLower(getEnvOrDefault(common.EnvLogLevel, orString(config.Log.Level, common.DefaultLogLevel))),
		LogFormat:       strings.ToLower(getEnvOrDefault(common.EnvLogFormat, orString(config.Log.Format, common.DefaultLogFormat))),
	}

	// Validate configuration
	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		Host:        getEnvOrDefault(common.EnvHost, common.DefaultHost),
		Port:        getIntOrDefault(common.EnvPort, common.DefaultPort),
		ModelPath:   getEnvOrDefault(common.EnvModelPath, common.DefaultModelPath),
		ScalerPath:  getEnvOrDefault(common.EnvScalerPath, common.DefaultScalerPath),
		ModelFormat: strings.ToLower(getEnvOrDefault(common.EnvModelFormat, common.DefaultModelFormat)),
		ONNX: ONNXSettings{
			LibraryPath:       os.Getenv(common.EnvONNXLibrary), // optional
			InputName:         getEnvOrDefault(common.EnvONNXInputName, common.DefaultONNXInputName),
			LabelOutput:       getEnvOrDefault(common.EnvONNXLabelOutput, common.DefaultONNXLabelOutput),
			ProbabilityOutput: getEnvOrDefault(common.EnvONNXProbOutput, common.DefaultONNXProbOutput),
		},
		DataPath:        os.Getenv(common.EnvDataPath), // optional
		BatchLimit:      getIntOrDefault(common.EnvBatchLimit, common.DefaultBatchLimit),
		BatchWorkers:    getIntOrDefault(common.EnvBatchWorkers, common.DefaultBatchWorkers),
		MaxBodyBytes:    getInt64OrDefault(common.EnvMaxBodyBytes, common.DefaultMaxBodyBytes),
		RequestTimeout:  getDurationOrDefault(common.EnvRequestTimeout, common.DefaultRequestTimeout),
		ShutdownTimeout: getDurationOrDefault(common.EnvShutdownTimeout, common.DefaultShutdownTimeout),
		HistoryLimit:    getIntOrDefault(common.EnvHistoryLimit, common.DefaultHistoryLimit),
		LogLevel:        strings.ToLower(getEnvOrDefault(common.EnvLogLevel, common.DefaultLogLevel)),
		LogFormat:       strings.ToLower(getEnvOrDefault(common.EnvLogFormat, common.DefaultLogFormat)),
	}

	// Validate configuration
	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

// Addr returns the listen address.
func (s *Settings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// HistoryEnabled reports whether predictions are persisted.
func (s *Settings) HistoryEnabled() bool {
	return s.DataPath != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getInt64OrDefault(key string, defaultValue int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if configValue != 0 {
		defaultValue = configValue
	}
	return getIntOrDefault(key, defaultValue)
}

func getInt64FromEnvOrConfig(key string, configValue, defaultValue int64) int64 {
	if configValue != 0 {
		defaultValue = configValue
	}
	return getInt64OrDefault(key, defaultValue)
}

func orString(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

// validateSettings performs comprehensive validation of configuration values
func validateSettings(settings *Settings) error {
	if settings.Host == "" {
		return fmt.Errorf("host cannot be empty")
	}
	if settings.Port < common.MinPort || settings.Port > common.MaxPort {
		return fmt.Errorf("port must be between %d and %d, got %d", common.MinPort, common.MaxPort, settings.Port)
	}

	// Validate artifacts
	if settings.ModelPath == "" {
		return fmt.Errorf("model path cannot be empty")
	}
	if settings.ScalerPath == "" {
		return fmt.Errorf("scaler path cannot be empty")
	}
	switch settings.ModelFormat {
	case common.ModelFormatJSON:
	case common.ModelFormatONNX:
		if settings.ONNX.InputName == "" || settings.ONNX.LabelOutput == "" || settings.ONNX.ProbabilityOutput == "" {
			return fmt.Errorf("ONNX input and output names are required when model format is onnx")
		}
	default:
		return fmt.Errorf("model format must be %q or %q, got %q", common.ModelFormatJSON, common.ModelFormatONNX, settings.ModelFormat)
	}

	// Validate batch settings
	if settings.BatchLimit <= 0 || settings.BatchLimit > common.MaxBatchLimit {
		return fmt.Errorf("batch limit must be between 1 and %d, got %d", common.MaxBatchLimit, settings.BatchLimit)
	}
	if settings.BatchWorkers <= 0 || settings.BatchWorkers > common.MaxBatchWorkers {
		return fmt.Errorf("batch workers must be between 1 and %d, got %d", common.MaxBatchWorkers, settings.BatchWorkers)
	}

	// Validate request limits
	if settings.MaxBodyBytes < common.MinMaxBodyBytes || settings.MaxBodyBytes > common.MaxMaxBodyBytes {
		return fmt.Errorf("max body bytes must be between %d and %d, got %d", common.MinMaxBodyBytes, common.MaxMaxBodyBytes, settings.MaxBodyBytes)
	}
	if settings.RequestTimeout < time.Second || settings.RequestTimeout > 5*time.Minute {
		return fmt.Errorf("request timeout must be between 1s and 5m, got %v", settings.RequestTimeout)
	}
	if settings.ShutdownTimeout < time.Second || settings.ShutdownTimeout > time.Minute {
		return fmt.Errorf("shutdown timeout must be between 1s and 1m, got %v", settings.ShutdownTimeout)
	}
	if settings.HistoryLimit <= 0 || settings.HistoryLimit > common.MaxHistoryLimit {
		return fmt.Errorf("history limit must be between 1 and %d, got %d", common.MaxHistoryLimit, settings.HistoryLimit)
	}

	// Validate logging
	switch settings.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log level must be one of debug, info, warn, error, got %q", settings.LogLevel)
	}
	switch settings.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("log format must be json or console, got %q", settings.LogFormat)
	}

	return nil
}
