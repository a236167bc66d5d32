package ml

import (
	"time"

	"gonum.org/v1/gonum/floats"

	"student-predictor/internal/common"
)

// MetricsInterface defines the metrics methods needed by the predictor.
type MetricsInterface interface {
	PredictionsInc()
	PredictionFailuresInc()
	PredictionLatencyObserve(float64)
	PredictionScoreObserve(float64)
}

// Predictor computes pass/fail predictions from the registry's active model.
// It holds no mutable state of its own; predictions are a pure function of
// (model, input) and may run fully in parallel.
type Predictor struct {
	registry *Registry
	metrics  MetricsInterface
}

func NewPredictor(registry *Registry, metrics MetricsInterface) *Predictor {
	return &Predictor{registry: registry, metrics: metrics}
}

// Predict applies the active model to a single (study hours, attendance)
// pair. Inputs outside the valid domain fail with *InvalidInputError and a
// missing model fails with ErrNoActiveModel. Predict has no side effects;
// persisting the outcome is the caller's explicit step.
func (p *Predictor) Predict(studyHours, attendance float64) (Result, error) {
	start := time.Now()

	if studyHours < common.MinStudyHours {
		p.countFailure()
		return Result{}, &InvalidInputError{Field: common.FeatureStudyHours, Value: studyHours}
	}
	if attendance < common.MinAttendance || attendance > common.MaxAttendance {
		p.countFailure()
		return Result{}, &InvalidInputError{Field: common.FeatureAttendance, Value: attendance}
	}

	model, err := p.registry.Current()
	if err != nil {
		p.countFailure()
		return Result{}, err
	}

	// Reapply the training-time normalization exactly; the statistics are
	// the model's, never recomputed here.
	normalized := []float64{
		(studyHours - model.FeatureMeans[0]) / model.FeatureStds[0],
		(attendance - model.FeatureMeans[1]) / model.FeatureStds[1],
	}

	probability := sigmoid(floats.Dot(model.Weights, normalized) + model.Bias)
	result := Result{
		Probability: probability,
		Passed:      probability >= 0.5,
		Confidence:  confidence(probability),
	}

	if p.metrics != nil {
		p.metrics.PredictionsInc()
		p.metrics.PredictionScoreObserve(probability)
		p.metrics.PredictionLatencyObserve(time.Since(start).Seconds())
	}

	return result, nil
}

func (p *Predictor) countFailure() {
	if p.metrics != nil {
		p.metrics.PredictionFailuresInc()
	}
}

// confidence maps distance from the 0.5 decision boundary into [0,1]:
// 0 exactly at the boundary, 1 at certainty.
func confidence(probability float64) float64 {
	c := 2 * abs(probability-0.5)
	if c > 1 {
		return 1
	}
	if c < 0 {
		return 0
	}
	return c
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
