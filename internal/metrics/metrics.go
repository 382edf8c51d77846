// Package metrics defines the Prometheus metrics for training and prediction.
//
// Usage:
//
//	metrics.RecordPrediction("Introvert", 2*time.Millisecond)
//	metrics.RecordTraining(0.93, 18526, 400*time.Millisecond)
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Prediction Metrics

	// PredictionsTotal counts served predictions by predicted label.
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "personality_predictions_total",
			Help: "Total number of predictions served",
		},
		[]string{"label"},
	)

	// PredictionErrors counts rejected prediction requests by reason.
	PredictionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "personality_prediction_errors_total",
			Help: "Total number of prediction requests that did not produce a result",
		},
		[]string{"reason"},
	)

	// PredictionDuration tracks the latency of a single prediction.
	PredictionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "personality_prediction_duration_seconds",
			Help:    "Duration of a single prediction in seconds",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		},
	)

	// Training Metrics

	// ModelAccuracy is the held-out accuracy of the currently loaded model.
	ModelAccuracy = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "personality_model_accuracy",
			Help: "Held-out accuracy of the loaded model",
		},
	)

	// TrainingRows is the number of rows in the loaded dataset.
	TrainingRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "personality_training_rows",
			Help: "Number of rows in the dataset the model was trained on",
		},
	)

	// TrainingDuration tracks how long preparing and fitting took.
	TrainingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "personality_training_duration_seconds",
			Help:    "Duration of data preparation plus model fitting in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)

	// TrainingFailures counts failed pipeline runs by stage.
	TrainingFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "personality_training_failures_total",
			Help: "Total number of failed training pipeline runs",
		},
		[]string{"stage"},
	)
)

// RecordPrediction records a successful prediction.
func RecordPrediction(label string, d time.Duration) {
	PredictionsTotal.WithLabelValues(label).Inc()
	PredictionDuration.Observe(d.Seconds())
}

// RecordPredictionError records a request that did not produce a prediction.
func RecordPredictionError(reason string) {
	PredictionErrors.WithLabelValues(reason).Inc()
}

// RecordTraining records a completed training run.
func RecordTraining(accuracy float64, rows int, d time.Duration) {
	ModelAccuracy.Set(accuracy)
	TrainingRows.Set(float64(rows))
	TrainingDuration.Observe(d.Seconds())
}

// RecordTrainingFailure records a pipeline failure at the given stage.
func RecordTrainingFailure(stage string) {
	TrainingFailures.WithLabelValues(stage).Inc()
}
