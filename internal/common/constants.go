package common

import "time"

// Environment variable keys
const (
	EnvConfigFile      = "CONFIG_FILE"
	EnvHost            = "HOST"
	EnvPort            = "PORT"
	EnvModelPath       = "MODEL_PATH"
	EnvScalerPath      = "SCALER_PATH"
	EnvModelFormat     = "MODEL_FORMAT"
	EnvONNXLibrary     = "ONNX_LIBRARY_PATH"
	EnvONNXInputName   = "ONNX_INPUT_NAME"
	EnvONNXLabelOutput = "ONNX_LABEL_OUTPUT"
	EnvONNXProbOutput  = "ONNX_PROBABILITY_OUTPUT"
	EnvDataPath        = "DATA_PATH"
	EnvBatchLimit      = "BATCH_LIMIT"
	EnvBatchWorkers    = "BATCH_WORKERS"
	EnvMaxBodyBytes    = "MAX_BODY_BYTES"
	EnvRequestTimeout  = "REQUEST_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
	EnvHistoryLimit    = "HISTORY_LIMIT"
	EnvLogLevel        = "LOG_LEVEL"
	EnvLogFormat       = "LOG_FORMAT"
)

// Model artifact formats
const (
	ModelFormatJSON = "json"
	ModelFormatONNX = "onnx"
)

// Configuration defaults
const (
	DefaultHost            = "0.0.0.0"
	DefaultPort            = 5000
	DefaultModelPath       = "models/habitability_model.json"
	DefaultScalerPath      = "models/scaler.json"
	DefaultModelFormat     = ModelFormatJSON
	DefaultONNXInputName   = "float_input"
	DefaultONNXLabelOutput = "output_label"
	DefaultONNXProbOutput  = "output_probability"
	DefaultBatchLimit      = 100
	DefaultBatchWorkers    = 1
	DefaultMaxBodyBytes    = 1 << 20 // 1 MiB
	DefaultHistoryLimit    = 50
	DefaultRequestTimeout  = 30 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "json"
)

// Validation constants
const (
	MinPort         = 1024
	MaxPort         = 65535
	MaxBatchLimit   = 10000
	MaxBatchWorkers = 64
	MaxHistoryLimit = 1000
	MinMaxBodyBytes = 1 << 10
	MaxMaxBodyBytes = 64 << 20
)

// Common error messages
const (
	ErrMsgNotReady   = "Model not loaded. Please check server configuration."
	ErrMsgNoJSON     = "No JSON data provided"
	ErrMsgBatchShape = "Invalid input. Expected {'items': [...]}"
	ErrMsgNotFound   = "Endpoint not found. Visit /api for API documentation."
	ErrMsgNoHistory  = "Prediction history is disabled. Set DATA_PATH to enable it."
)
