// Package pipeline prepares the dataset, trains the model and builds the
// prediction context, recording each run.
package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/TobiSchelling/personality-predictor/internal/config"
	"github.com/TobiSchelling/personality-predictor/internal/database"
	"github.com/TobiSchelling/personality-predictor/internal/dataset"
	"github.com/TobiSchelling/personality-predictor/internal/metrics"
	"github.com/TobiSchelling/personality-predictor/internal/model"
	"github.com/TobiSchelling/personality-predictor/internal/predict"
)

// Step names, also used as the stage label on failure metrics.
const (
	StepPrepare = "Prepare"
	StepTrain   = "Train"
	StepRecord  = "Record"
)

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Options identifies one training configuration.
type Options struct {
	DatasetPath string
	Dataset     dataset.Options
	Model       model.Config
}

// FromConfig builds pipeline options from the loaded configuration.
func FromConfig(cfg *config.Config) Options {
	return Options{
		DatasetPath: cfg.Data.Dataset,
		Dataset:     cfg.DatasetOptions(),
		Model:       cfg.ModelConfig(),
	}
}

// Key identifies the options for caching: same key, same model.
func (o Options) Key() string {
	return fmt.Sprintf("%s|seed=%d|test_size=%s|c=%s",
		o.DatasetPath, o.Model.Seed,
		strconv.FormatFloat(o.Model.TestSize, 'g', -1, 64),
		strconv.FormatFloat(o.Model.C, 'g', -1, 64),
	)
}

// Result holds the results of a full pipeline run.
type Result struct {
	Key      string
	Steps    []StepResult
	Context  *predict.Context
	Model    *model.Model
	Table    *dataset.Table
	Imputer  *dataset.Imputer
	Accuracy float64
	SHA256   string
	RunID    string
	Duration time.Duration
	// Err is the first error from Prepare or Train. Record failures are
	// reported in Steps only.
	Err error
}

// Ready reports whether a prediction context is available.
func (r *Result) Ready() bool {
	return r != nil && r.Err == nil && r.Context != nil
}

// Pipeline runs the three steps for one set of options.
type Pipeline struct {
	opts   Options
	db     *database.DB
	logger *zap.Logger
}

// New creates a new pipeline. db may be nil, in which case runs are not recorded.
func New(opts Options, db *database.DB, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{opts: opts, db: db, logger: logger}
}

// Run executes prepare, train and record.
func (p *Pipeline) Run(ctx context.Context) *Result {
	r := &Result{Key: p.opts.Key()}
	start := time.Now()

	step := p.runPrepare(ctx, r)
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		return p.fail(r, StepPrepare, step.Err)
	}

	step = p.runTrain(ctx, r)
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		return p.fail(r, StepTrain, step.Err)
	}
	r.Duration = time.Since(start)
	metrics.RecordTraining(r.Accuracy, r.Table.Len(), r.Duration)

	if p.db != nil {
		r.Steps = append(r.Steps, p.runRecord(r))
	}
	return r
}

func (p *Pipeline) fail(r *Result, stage string, err error) *Result {
	r.Err = err
	metrics.RecordTrainingFailure(stage)
	p.logger.Error("pipeline failed", zap.String("step", stage), zap.Error(err))
	return r
}

func (p *Pipeline) runPrepare(ctx context.Context, r *Result) StepResult {
	p.logger.Info("step 1/3: preparing dataset", zap.String("path", p.opts.DatasetPath))
	if err := ctx.Err(); err != nil {
		return StepResult{Name: StepPrepare, Err: err}
	}

	table, im, err := dataset.Load(p.opts.DatasetPath, p.opts.Dataset)
	if err != nil {
		return StepResult{Name: StepPrepare, Err: err}
	}
	r.Table = table
	r.Imputer = im
	r.SHA256 = table.SHA256

	counts := table.ClassCounts()
	return StepResult{
		Name: StepPrepare,
		Summary: fmt.Sprintf("Loaded %d rows (%d %s, %d %s)", table.Len(),
			counts[dataset.LabelExtrovert], dataset.Extrovert,
			counts[dataset.LabelIntrovert], dataset.Introvert),
	}
}

func (p *Pipeline) runTrain(ctx context.Context, r *Result) StepResult {
	p.logger.Info("step 2/3: training model",
		zap.Int64("seed", p.opts.Model.Seed),
		zap.Float64("test_size", p.opts.Model.TestSize),
		zap.Float64("c", p.opts.Model.C),
	)
	if err := ctx.Err(); err != nil {
		return StepResult{Name: StepTrain, Err: err}
	}

	m, acc, err := model.Train(r.Table, p.opts.Model)
	if err != nil {
		return StepResult{Name: StepTrain, Err: err}
	}
	pc, err := predict.NewContext(r.Table.Schema, m, r.Imputer, acc, r.Table.Len())
	if err != nil {
		return StepResult{Name: StepTrain, Err: err}
	}
	r.Model = m
	r.Accuracy = acc
	r.Context = pc

	if !m.Converged {
		p.logger.Warn("solver did not converge", zap.Int("iterations", m.Iterations))
	}
	return StepResult{
		Name: StepTrain,
		Summary: fmt.Sprintf("Fitted on %d rows in %d iterations, held-out accuracy %.2f%% on %d rows",
			m.TrainRows, m.Iterations, acc*100, m.TestRows),
	}
}

func (p *Pipeline) runRecord(r *Result) StepResult {
	p.logger.Info("step 3/3: recording training run", zap.String("db", p.db.Path()))
	run := &database.TrainingRun{
		DatasetPath:   p.opts.DatasetPath,
		DatasetSHA256: r.SHA256,
		SchemaVersion: r.Model.SchemaVersion,
		Seed:          p.opts.Model.Seed,
		TestSize:      p.opts.Model.TestSize,
		C:             p.opts.Model.C,
		TrainRows:     r.Model.TrainRows,
		TestRows:      r.Model.TestRows,
		Accuracy:      r.Accuracy,
		Coefficients:  r.Context.Coefficients(),
		Intercept:     r.Model.Intercept,
		Iterations:    r.Model.Iterations,
		Converged:     r.Model.Converged,
		DurationMS:    r.Duration.Milliseconds(),
	}
	if _, err := p.db.InsertTrainingRun(run); err != nil {
		metrics.RecordTrainingFailure(StepRecord)
		p.logger.Warn("recording training run failed", zap.Error(err))
		return StepResult{Name: StepRecord, Err: err}
	}
	r.RunID = run.RunID
	return StepResult{Name: StepRecord, Summary: "Recorded run " + run.RunID}
}
