// Package ml implements the pass/fail logistic regression pipeline: training,
// the in-process model registry and inference with confidence scoring.
package ml

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoActiveModel is returned when inference or metadata access is
	// attempted before any model has been activated.
	ErrNoActiveModel = errors.New("no active model")

	// ErrDegenerateDataset is returned when training data is empty or
	// contains only one class. Logistic regression is meaningless then.
	ErrDegenerateDataset = errors.New("degenerate dataset: need at least one pass and one fail example")
)

// InvalidInputError reports a prediction input outside the valid domain.
type InvalidInputError struct {
	Field string
	Value float64
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s=%g out of range", e.Field, e.Value)
}

// TrainedModel is an immutable fitted classifier. A training run always
// produces a new instance; nothing mutates an existing one after Train
// returns, which is what makes the registry's atomic swap safe.
type TrainedModel struct {
	Version      string    `json:"version"`
	Weights      []float64 `json:"weights"`
	Bias         float64   `json:"bias"`
	FeatureMeans []float64 `json:"feature_means"`
	FeatureStds  []float64 `json:"feature_stds"`
	Accuracy     float64   `json:"accuracy"`
	FeatureNames []string  `json:"feature_names"`
	CreatedAt    time.Time `json:"created_at"`
}

// Result is a single prediction outcome. Probability is the sigmoid output,
// Passed is the 0.5-threshold decision, and Confidence scales the distance
// from the decision boundary into [0,1].
type Result struct {
	Probability float64 `json:"probability"`
	Passed      bool    `json:"passed"`
	Confidence  float64 `json:"confidence"`
}
