package cfg

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"student-predictor/internal/common"
)

type Settings struct {
	DatasetSource string
	DataPath      string
	ListenPort    int
	MetricsPort   int
	LearningRate  float64
	Iterations    int
	RESTTimeout   time.Duration
	TrainOnBoot   bool
}

type ConfigFile struct {
	Dataset struct {
		Source      string `yaml:"source"`
		RESTTimeout string `yaml:"restTimeout"`
	} `yaml:"dataset"`

	Trainer struct {
		LearningRate float64 `yaml:"learningRate"`
		Iterations   int     `yaml:"iterations"`
		TrainOnBoot  *bool   `yaml:"trainOnBoot"`
	} `yaml:"trainer"`

	System struct {
		DataPath    string `yaml:"dataPath"`
		ListenPort  int    `yaml:"listenPort"`
		MetricsPort int    `yaml:"metricsPort"`
	} `yaml:"system"`
}

func Load() (Settings, error) {
	// Try to load from YAML file first
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
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

	restTimeout, err := time.ParseDuration(config.Dataset.RESTTimeout)
	if err != nil {
		restTimeout = 5 * time.Second
	}

	trainOnBoot := true
	if config.Trainer.TrainOnBoot != nil {
		trainOnBoot = *config.Trainer.TrainOnBoot
	}

	settings := Settings{
		DatasetSource: getEnvOrDefault(common.EnvDatasetSource, config.Dataset.Source),
		DataPath:      getEnvOrDefault(common.EnvDataPath, config.System.DataPath),
		ListenPort:    getIntFromEnvOrConfig(common.EnvListenPort, config.System.ListenPort),
		MetricsPort:   getIntFromEnvOrConfig(common.EnvMetricsPort, config.System.MetricsPort),
		LearningRate:  getFloatFromEnvOrConfig(common.EnvLearningRate, config.Trainer.LearningRate),
		Iterations:    getIntFromEnvOrConfig(common.EnvIterations, config.Trainer.Iterations),
		RESTTimeout:   restTimeout,
		TrainOnBoot:   getBoolFromEnvOrConfig(common.EnvTrainOnBoot, trainOnBoot),
	}

	applyDefaults(&settings)

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		DatasetSource: getEnvOrDefault(common.EnvDatasetSource, common.DefaultDatasetSource),
		DataPath:      getEnvOrDefault(common.EnvDataPath, common.DefaultDataPath),
		ListenPort:    getIntOrDefault(common.EnvListenPort, common.DefaultListenPort),
		MetricsPort:   getIntOrDefault(common.EnvMetricsPort, common.DefaultMetricsPort),
		LearningRate:  getFloatOrDefault(common.EnvLearningRate, common.DefaultLearningRate),
		Iterations:    getIntOrDefault(common.EnvIterations, common.DefaultIterations),
		RESTTimeout:   getDurationOrDefault(common.EnvRESTTimeout, 5*time.Second),
		TrainOnBoot:   getBoolOrDefault(common.EnvTrainOnBoot, true),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func applyDefaults(s *Settings) {
	if s.DatasetSource == "" {
		s.DatasetSource = common.DefaultDatasetSource
	}
	if s.DataPath == "" {
		s.DataPath = common.DefaultDataPath
	}
	if s.ListenPort == 0 {
		s.ListenPort = common.DefaultListenPort
	}
	if s.MetricsPort == 0 {
		s.MetricsPort = common.DefaultMetricsPort
	}
	if s.LearningRate == 0 {
		s.LearningRate = common.DefaultLearningRate
	}
	if s.Iterations == 0 {
		s.Iterations = common.DefaultIterations
	}
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

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	return configValue
}

func getFloatFromEnvOrConfig(key string, configValue float64) float64 {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseFloat(env, 64); err == nil {
			return val
		}
	}
	return configValue
}

func getBoolFromEnvOrConfig(key string, configValue bool) bool {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseBool(env); err == nil {
			return val
		}
	}
	return configValue
}

// validateSettings performs validation of configuration values
func validateSettings(settings *Settings) error {
	if settings.DatasetSource == "" {
		return fmt.Errorf("dataset source cannot be empty")
	}
	if settings.DataPath == "" {
		return fmt.Errorf("data path cannot be empty")
	}

	if settings.ListenPort < common.MinPort || settings.ListenPort > common.MaxPort {
		return fmt.Errorf("listen port must be between %d and %d, got %d",
			common.MinPort, common.MaxPort, settings.ListenPort)
	}
	if settings.MetricsPort < common.MinPort || settings.MetricsPort > common.MaxPort {
		return fmt.Errorf("metrics port must be between %d and %d, got %d",
			common.MinPort, common.MaxPort, settings.MetricsPort)
	}
	if settings.ListenPort == settings.MetricsPort {
		return fmt.Errorf("listen port and metrics port must differ, both are %d", settings.ListenPort)
	}

	if settings.LearningRate < common.MinLearningRate || settings.LearningRate > common.MaxLearningRate {
		return fmt.Errorf("learning rate must be between %g and %g, got %g",
			common.MinLearningRate, common.MaxLearningRate, settings.LearningRate)
	}
	if settings.Iterations < common.MinIterations || settings.Iterations > common.MaxIterations {
		return fmt.Errorf("iterations must be between %d and %d, got %d",
			common.MinIterations, common.MaxIterations, settings.Iterations)
	}

	if settings.RESTTimeout < time.Second || settings.RESTTimeout > time.Minute {
		return fmt.Errorf("REST timeout must be between 1s and 1m, got %v", settings.RESTTimeout)
	}

	return nil
}
