package database

// TrainingRun records one fit of the model against a dataset.
type TrainingRun struct {
	ID            int64
	RunID         string
	DatasetPath   string
	DatasetSHA256 string
	SchemaVersion string
	Seed          int64
	TestSize      float64
	C             float64
	TrainRows     int
	TestRows      int
	Accuracy      float64
	Coefficients  map[string]float64
	Intercept     float64
	Iterations    int
	Converged     bool
	DurationMS    int64
	CreatedAt     *string
}

// Stats contains aggregate database statistics.
type Stats struct {
	TotalRuns        int
	DistinctDatasets int
	BestAccuracy     *float64
	LastRunAt        *string
}
