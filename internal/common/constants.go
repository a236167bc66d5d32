package common

// Feature names in the order the model is trained on
const (
	FeatureStudyHours = "study_hours"
	FeatureAttendance = "attendance"
)

// Environment variable keys
const (
	EnvDatasetSource = "DATASET_SOURCE"
	EnvDataPath      = "DATA_PATH"
	EnvListenPort    = "LISTEN_PORT"
	EnvMetricsPort   = "METRICS_PORT"
	EnvLearningRate  = "LEARNING_RATE"
	EnvIterations    = "TRAIN_ITERATIONS"
	EnvRESTTimeout   = "REST_TIMEOUT"
	EnvTrainOnBoot   = "TRAIN_ON_BOOT"
)

// Configuration defaults
const (
	DefaultDatasetSource = "data/students.csv"
	DefaultDataPath      = "data"
	DefaultListenPort    = 8080
	DefaultMetricsPort   = 9090
	DefaultLearningRate  = 0.1
	DefaultIterations    = 1000
)

// Input bounds for prediction features
const (
	MinStudyHours = 0.0
	MaxAttendance = 100.0
	MinAttendance = 0.0
)

// Validation constants
const (
	MinLearningRate = 1e-6
	MaxLearningRate = 10.0
	MinIterations   = 1
	MaxIterations   = 1_000_000
	MinPort         = 1024
	MaxPort         = 65535
)
