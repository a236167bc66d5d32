// Package service orchestrates the core operations exposed to the API
// layer: predicting with write-behind persistence, recording weekly trends,
// reading active model metadata and retraining.
package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"student-predictor/internal/cfg"
	"student-predictor/internal/dataset"
	"student-predictor/internal/metrics"
	"student-predictor/internal/ml"
	"student-predictor/internal/storage"
)

// ErrTrainingInProgress is returned when a retrain is requested while
// another training run is still in flight. At most one trainer may race to
// activate the registry.
var ErrTrainingInProgress = errors.New("training already in progress")

// Prediction is the outcome of a Predict call: the model's result plus the
// persistence status. A failed store write never invalidates the prediction;
// it is reported as a partial success instead.
type Prediction struct {
	ml.Result
	Persisted    bool
	PersistError error
}

// ModelInfo is the active model's metadata as exposed to the API layer.
type ModelInfo struct {
	Version      string    `json:"version"`
	Accuracy     float64   `json:"accuracy"`
	FeatureNames []string  `json:"feature_names"`
	CreatedAt    time.Time `json:"created_at"`
}

// Feed receives every accepted prediction record for live broadcasting.
type Feed interface {
	Publish(rec storage.PredictionRecord)
}

// Service wires the predictor, the registry, the loader and the stores.
type Service struct {
	config    cfg.Settings
	loader    *dataset.Loader
	trainer   *ml.Trainer
	registry  *ml.Registry
	predictor *ml.Predictor
	store     *storage.Store
	metrics   *metrics.Wrapper
	feed      Feed

	trainMu sync.Mutex
}

func New(c cfg.Settings, store *storage.Store, mw *metrics.Wrapper) *Service {
	registry := ml.NewRegistry()
	return &Service{
		config:    c,
		loader:    dataset.NewLoader(c.RESTTimeout),
		trainer:   ml.NewTrainer(ml.TrainerConfig{LearningRate: c.LearningRate, Iterations: c.Iterations}),
		registry:  registry,
		predictor: ml.NewPredictor(registry, mw),
		store:     store,
		metrics:   mw,
	}
}

// SetFeed attaches a live prediction feed. Optional.
func (s *Service) SetFeed(f Feed) {
	s.feed = f
}

// Registry exposes the model registry, mainly for tests and bootstrapping.
func (s *Service) Registry() *ml.Registry {
	return s.registry
}

// Predict computes a prediction and persists it write-behind. The computed
// result is returned even when the store write fails; the failure is
// surfaced distinctly through Persisted and PersistError.
func (s *Service) Predict(ctx context.Context, name string, studyHours, attendance float64) (Prediction, error) {
	result, err := s.predictor.Predict(studyHours, attendance)
	if err != nil {
		return Prediction{}, err
	}

	rec := storage.PredictionRecord{
		Name:          name,
		StudyHours:    studyHours,
		Attendance:    attendance,
		PredictedPass: result.Passed,
		Confidence:    result.Confidence,
	}

	p := Prediction{Result: result, Persisted: true}
	if err := s.store.SavePrediction(&rec); err != nil {
		p.Persisted = false
		p.PersistError = err
		s.metrics.PersistenceFailuresInc()
		log.Error().Err(err).Str("name", name).Msg("prediction computed but not persisted")
		return p, nil
	}

	if s.feed != nil {
		s.feed.Publish(rec)
	}
	return p, nil
}

// RecordTrend combines a prediction with a weekly trend write. Unlike
// Predict, the trend row is the point of the call, so a store failure fails
// the operation.
func (s *Service) RecordTrend(ctx context.Context, studentName string, week int, studyHours, attendance float64) (ml.Result, error) {
	if week < 1 {
		return ml.Result{}, &ml.InvalidInputError{Field: "week", Value: float64(week)}
	}

	result, err := s.predictor.Predict(studyHours, attendance)
	if err != nil {
		return ml.Result{}, err
	}

	rec := storage.TrendRecord{
		StudentName:   studentName,
		Week:          week,
		StudyHours:    studyHours,
		Attendance:    attendance,
		PredictedPass: result.Passed,
		Confidence:    result.Confidence,
	}
	if err := s.store.SaveTrend(&rec); err != nil {
		s.metrics.PersistenceFailuresInc()
		return ml.Result{}, err
	}

	s.metrics.TrendRecordsInc()
	return result, nil
}

// ModelInfo returns the active model's metadata, or ml.ErrNoActiveModel.
func (s *Service) ModelInfo() (ModelInfo, error) {
	model, err := s.registry.Current()
	if err != nil {
		return ModelInfo{}, err
	}
	s.metrics.ModelAgeSet(time.Since(model.CreatedAt).Seconds())
	return ModelInfo{
		Version:      model.Version,
		Accuracy:     model.Accuracy,
		FeatureNames: model.FeatureNames,
		CreatedAt:    model.CreatedAt,
	}, nil
}

// Retrain loads the dataset, fits a new model, activates it and appends a
// model version audit row. An empty source falls back to the configured
// dataset. Only one training run may be in flight at a time; concurrent
// callers fail fast with ErrTrainingInProgress.
func (s *Service) Retrain(ctx context.Context, source string) (ModelInfo, error) {
	if !s.trainMu.TryLock() {
		return ModelInfo{}, ErrTrainingInProgress
	}
	defer s.trainMu.Unlock()

	if source == "" {
		source = s.config.DatasetSource
	}

	start := time.Now()
	records, rejected, err := s.loader.Load(source)
	if err != nil {
		s.metrics.TrainingFailuresInc()
		return ModelInfo{}, err
	}
	s.metrics.DatasetRowsRejectedAdd(rejected)

	model, err := s.trainer.Train(records)
	if err != nil {
		s.metrics.TrainingFailuresInc()
		return ModelInfo{}, err
	}

	s.registry.Activate(model)
	s.metrics.TrainingRunsInc()
	s.metrics.TrainingDurationObserve(time.Since(start).Seconds())
	s.metrics.ModelAccuracySet(model.Accuracy)
	s.metrics.ModelAgeSet(0)

	audit := storage.ModelVersionRecord{
		Version:      model.Version,
		Accuracy:     model.Accuracy,
		FeaturesUsed: strings.Join(model.FeatureNames, ","),
		CreatedAt:    model.CreatedAt,
	}
	if err := s.store.SaveModelVersion(&audit); err != nil {
		// The model is live; a lost audit row should not take it down.
		s.metrics.PersistenceFailuresInc()
		log.Error().Err(err).Str("version", model.Version).Msg("model activated but audit row not persisted")
	}

	return ModelInfo{
		Version:      model.Version,
		Accuracy:     model.Accuracy,
		FeatureNames: model.FeatureNames,
		CreatedAt:    model.CreatedAt,
	}, nil
}

// Store exposes the persistence layer for read-side handlers.
func (s *Service) Store() *storage.Store {
	return s.store
}
