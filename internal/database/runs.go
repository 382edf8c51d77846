package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

const runColumns = `id, run_id, dataset_path, dataset_sha256, schema_version, seed, test_size, c,
	train_rows, test_rows, accuracy, coefficients, intercept, iterations, converged, duration_ms, created_at`

// InsertTrainingRun stores a training run. A RunID is generated when empty.
func (db *DB) InsertTrainingRun(run *TrainingRun) (int64, error) {
	if run.RunID == "" {
		run.RunID = uuid.NewString()
	}
	coefs, err := json.Marshal(run.Coefficients)
	if err != nil {
		return 0, fmt.Errorf("encoding coefficients: %w", err)
	}

	result, err := db.conn.Exec(
		`INSERT INTO training_runs
		(run_id, dataset_path, dataset_sha256, schema_version, seed, test_size, c,
		 train_rows, test_rows, accuracy, coefficients, intercept, iterations, converged, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.DatasetPath, run.DatasetSHA256, run.SchemaVersion, run.Seed, run.TestSize, run.C,
		run.TrainRows, run.TestRows, run.Accuracy, string(coefs), run.Intercept,
		run.Iterations, boolToInt(run.Converged), run.DurationMS,
	)
	if err != nil {
		return 0, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	run.ID = id
	return id, nil
}

// GetTrainingRuns returns the most recent runs, newest first.
// A limit of zero or less returns every run.
func (db *DB) GetTrainingRuns(limit int) ([]TrainingRun, error) {
	query := "SELECT " + runColumns + " FROM training_runs ORDER BY id DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []TrainingRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// GetLatestTrainingRun returns the newest run, or nil when none exist.
func (db *DB) GetLatestTrainingRun() (*TrainingRun, error) {
	row := db.conn.QueryRow("SELECT " + runColumns + " FROM training_runs ORDER BY id DESC LIMIT 1")
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

// GetTrainingRun returns the run with the given RunID, or nil.
func (db *DB) GetTrainingRun(runID string) (*TrainingRun, error) {
	row := db.conn.QueryRow("SELECT "+runColumns+" FROM training_runs WHERE run_id = ?", runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

// GetStats returns aggregate database statistics.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}

	if err := db.conn.QueryRow("SELECT COUNT(*), COUNT(DISTINCT dataset_sha256) FROM training_runs").
		Scan(&s.TotalRuns, &s.DistinctDatasets); err != nil {
		return nil, err
	}

	var best sql.NullFloat64
	var last sql.NullString
	if err := db.conn.QueryRow("SELECT MAX(accuracy), MAX(created_at) FROM training_runs").
		Scan(&best, &last); err != nil {
		return nil, err
	}
	if best.Valid {
		s.BestAccuracy = &best.Float64
	}
	if last.Valid {
		s.LastRunAt = &last.String
	}
	return s, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*TrainingRun, error) {
	var r TrainingRun
	var coefs string
	var converged int
	if err := row.Scan(&r.ID, &r.RunID, &r.DatasetPath, &r.DatasetSHA256, &r.SchemaVersion,
		&r.Seed, &r.TestSize, &r.C, &r.TrainRows, &r.TestRows, &r.Accuracy,
		&coefs, &r.Intercept, &r.Iterations, &converged, &r.DurationMS, &r.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(coefs), &r.Coefficients); err != nil {
		return nil, fmt.Errorf("decoding coefficients for run %s: %w", r.RunID, err)
	}
	r.Converged = converged != 0
	return &r, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
