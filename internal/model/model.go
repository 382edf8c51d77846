// Package model fits and applies a binary logistic-regression classifier.
package model

import (
	"fmt"
	"math"

	"github.com/TobiSchelling/personality-predictor/internal/dataset"
)

// Algorithm is the display name of the classifier.
const Algorithm = "Logistic Regression"

// Config controls the train/test split and the solver.
type Config struct {
	// Seed drives the train/test shuffle. Same table and seed, same model.
	Seed int64
	// TestSize is the held-out fraction, in (0, 1).
	TestSize float64
	// C is the inverse L2 regularization strength.
	C float64
	// MaxIter bounds the Newton iterations.
	MaxIter int
	// Tolerance stops the solver once no parameter moves more than this.
	Tolerance float64
}

// DefaultConfig returns an 80/20 split with seed 42 and C = 1.
func DefaultConfig() Config {
	return Config{
		Seed:      42,
		TestSize:  0.2,
		C:         1.0,
		MaxIter:   100,
		Tolerance: 1e-8,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TestSize == 0 {
		c.TestSize = d.TestSize
	}
	if c.C <= 0 {
		c.C = d.C
	}
	if c.MaxIter <= 0 {
		c.MaxIter = d.MaxIter
	}
	if c.Tolerance <= 0 {
		c.Tolerance = d.Tolerance
	}
	return c
}

// TrainingError reports that no usable model could be fitted.
type TrainingError struct {
	Reason string
	Err    error
}

func (e *TrainingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("training model: %s: %v", e.Reason, e.Err)
	}
	return "training model: " + e.Reason
}

func (e *TrainingError) Unwrap() error {
	return e.Err
}

// Model is a fitted logistic regression. Features records the column
// order the coefficients were fitted against.
type Model struct {
	SchemaVersion string
	Features      []string
	Coef          []float64
	Intercept     float64
	Iterations    int
	Converged     bool
	TrainRows     int
	TestRows      int
}

// Train splits the prepared table, fits a model on the training rows and
// returns it with its accuracy on the held-out rows.
func Train(t *dataset.Table, cfg Config) (*Model, float64, error) {
	cfg = cfg.withDefaults()

	split, err := SplitData(t.Features, t.Labels, cfg.TestSize, cfg.Seed)
	if err != nil {
		return nil, 0, &TrainingError{Reason: "splitting data", Err: err}
	}

	m, err := Fit(split.TrainX, split.TrainY, cfg)
	if err != nil {
		return nil, 0, err
	}
	m.SchemaVersion = t.Schema.Version
	m.Features = t.Schema.Names()
	m.TestRows = len(split.TestY)

	acc, err := Accuracy(m, split.TestX, split.TestY)
	if err != nil {
		return nil, 0, &TrainingError{Reason: "scoring held-out rows", Err: err}
	}
	return m, acc, nil
}

// Fit fits a model on x and y. The split settings in cfg are ignored.
func Fit(x [][]float64, y []int, cfg Config) (*Model, error) {
	cfg = cfg.withDefaults()

	if len(x) == 0 {
		return nil, &TrainingError{Reason: "no training rows"}
	}
	if len(x) != len(y) {
		return nil, &TrainingError{Reason: fmt.Sprintf("feature rows (%d) and labels (%d) differ", len(x), len(y))}
	}
	width := len(x[0])
	if width == 0 {
		return nil, &TrainingError{Reason: "no features"}
	}
	var counts [2]int
	for i, row := range x {
		if len(row) != width {
			return nil, &TrainingError{Reason: fmt.Sprintf("row %d has %d features, want %d", i, len(row), width)}
		}
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, &TrainingError{Reason: fmt.Sprintf("row %d has a non-finite feature", i)}
			}
		}
		if y[i] != 0 && y[i] != 1 {
			return nil, &TrainingError{Reason: fmt.Sprintf("row %d has label %d, want 0 or 1", i, y[i])}
		}
		counts[y[i]]++
	}
	if counts[0] == 0 || counts[1] == 0 {
		return nil, &TrainingError{Reason: "training labels contain a single class"}
	}

	theta, iters, converged, err := fitNewton(x, y, cfg.C, cfg.MaxIter, cfg.Tolerance)
	if err != nil {
		return nil, &TrainingError{Reason: "solving for coefficients", Err: err}
	}
	for _, v := range theta {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &TrainingError{Reason: "coefficients diverged"}
		}
	}

	return &Model{
		Coef:       theta[:width],
		Intercept:  theta[width],
		Iterations: iters,
		Converged:  converged,
		TrainRows:  len(x),
	}, nil
}

// DecisionFunction returns the signed distance w·x + b.
func (m *Model) DecisionFunction(x []float64) (float64, error) {
	if len(x) != len(m.Coef) {
		return 0, fmt.Errorf("got %d features, model expects %d", len(x), len(m.Coef))
	}
	z := m.Intercept
	for j, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("feature %d is not finite", j)
		}
		z += m.Coef[j] * v
	}
	return z, nil
}

// PredictProba returns [P(label 0), P(label 1)].
func (m *Model) PredictProba(x []float64) ([2]float64, error) {
	z, err := m.DecisionFunction(x)
	if err != nil {
		return [2]float64{}, err
	}
	p1 := sigmoid(z)
	return [2]float64{1 - p1, p1}, nil
}

// Predict returns the label with the larger probability; ties go to 0.
func (m *Model) Predict(x []float64) (int, error) {
	probs, err := m.PredictProba(x)
	if err != nil {
		return 0, err
	}
	return argmax(probs), nil
}

// Accuracy returns the fraction of rows whose predicted label matches y.
func Accuracy(m *Model, x [][]float64, y []int) (float64, error) {
	if len(x) == 0 {
		return 0, fmt.Errorf("no rows to score")
	}
	if len(x) != len(y) {
		return 0, fmt.Errorf("feature rows (%d) and labels (%d) differ", len(x), len(y))
	}
	var correct int
	for i, row := range x {
		label, err := m.Predict(row)
		if err != nil {
			return 0, fmt.Errorf("row %d: %w", i, err)
		}
		if label == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(x)), nil
}

func argmax(probs [2]float64) int {
	if probs[1] > probs[0] {
		return 1
	}
	return 0
}
