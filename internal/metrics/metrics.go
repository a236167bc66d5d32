// Package metrics provides Prometheus metrics collection for the prediction
// service: counters, gauges and histograms covering inference, training,
// persistence and the live feed, exposed via the metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the prediction service.
type Metrics struct {
	// Inference metrics
	Predictions       prometheus.Counter   // Total number of predictions served
	PredictionErrors  prometheus.Counter   // Total number of rejected or failed predictions
	PredictionLatency prometheus.Histogram // End-to-end prediction latency in seconds
	PredictionScores  prometheus.Histogram // Distribution of predicted pass probabilities
	TrendRecords      prometheus.Counter   // Total number of trend snapshots recorded

	// Training metrics
	TrainingRuns     prometheus.Counter   // Total number of completed training runs
	TrainingFailures prometheus.Counter   // Total number of failed training runs
	TrainingDuration prometheus.Histogram // Training run duration in seconds
	ModelAccuracy    prometheus.Gauge     // In-sample accuracy of the active model
	ModelAge         prometheus.Gauge     // Age of the active model in seconds

	// Persistence and feed metrics
	PersistenceFailures prometheus.Counter // Total number of failed store writes
	DatasetRowsRejected prometheus.Counter // Total number of training rows rejected during load
	FeedClients         prometheus.Gauge   // Number of connected live feed clients
}

// New creates and registers all metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
// This allows isolated metric collection in tests without affecting the
// global Prometheus registry.
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		Predictions: factory.NewCounter(prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Total number of predictions served",
		}),
		PredictionErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "prediction_errors_total",
			Help: "Total number of rejected or failed predictions",
		}),
		PredictionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prediction_latency_seconds",
			Help:    "End-to-end prediction latency in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		}),
		PredictionScores: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prediction_scores",
			Help:    "Distribution of predicted pass probabilities",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		TrendRecords: factory.NewCounter(prometheus.CounterOpts{
			Name: "trend_records_total",
			Help: "Total number of trend snapshots recorded",
		}),
		TrainingRuns: factory.NewCounter(prometheus.CounterOpts{
			Name: "training_runs_total",
			Help: "Total number of completed training runs",
		}),
		TrainingFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "training_failures_total",
			Help: "Total number of failed training runs",
		}),
		TrainingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "training_duration_seconds",
			Help:    "Training run duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		ModelAccuracy: factory.NewGauge(prometheus.GaugeOpts{
			Name: "model_accuracy",
			Help: "In-sample accuracy of the active model",
		}),
		ModelAge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "model_age_seconds",
			Help: "Age of the active model in seconds",
		}),
		PersistenceFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "persistence_failures_total",
			Help: "Total number of failed store writes",
		}),
		DatasetRowsRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "dataset_rows_rejected_total",
			Help: "Total number of training rows rejected during load",
		}),
		FeedClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "feed_clients",
			Help: "Number of connected live feed clients",
		}),
	}
}
