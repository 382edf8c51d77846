package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/TobiSchelling/personality-predictor/internal/config"
	"github.com/TobiSchelling/personality-predictor/internal/database"
	"github.com/TobiSchelling/personality-predictor/internal/dataset"
	"github.com/TobiSchelling/personality-predictor/internal/logging"
	"github.com/TobiSchelling/personality-predictor/internal/pipeline"
	"github.com/TobiSchelling/personality-predictor/internal/predict"
	"github.com/TobiSchelling/personality-predictor/internal/server"
)

var version = "dev"

var (
	verbose     bool
	configPath  string
	datasetPath string
	cfg         *config.Config
	logger      = zap.NewNop()
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "personality",
	Short:   "Predict Extrovert or Introvert from behavioral answers",
	Long:    "personality trains a logistic-regression model on a behavioral survey dataset and serves a form that predicts Extrovert or Introvert.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		switch {
		case errors.Is(err, config.ErrNoConfig):
			cfg, err = config.Default()
		case err != nil:
			return err
		default:
			cfg, err = config.Load(path)
		}
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if datasetPath != "" {
			cfg.Data.Dataset = datasetPath
		}

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		logger, err = logging.New(level)
		if err != nil {
			return err
		}
		zap.ReplaceGlobals(logger)
		logger.Debug("config loaded", zap.String("path", path), zap.String("dataset", cfg.Data.Dataset))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().StringVarP(&datasetPath, "dataset", "d", "", "Path to the training CSV (overrides config)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(sampleDataCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("personality", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/personality/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to point at your dataset and tune the model.")
		return nil
	},
}

// --- serve command ---

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the prediction web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if serveHost != "" {
			cfg.Server.Host = serveHost
		}
		if servePort != 0 {
			cfg.Server.Port = servePort
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cache := pipeline.NewCache(db, logger)
		opts := pipeline.FromConfig(cfg)

		// Train up front so the first visitor does not wait. A failure is
		// kept by the cache and shown on every page.
		if res := cache.Get(ctx, opts); res.Ready() {
			logger.Info("model ready",
				zap.Float64("accuracy", res.Accuracy),
				zap.Int("rows", res.Table.Len()),
			)
		}

		srv, err := server.New(cache, opts, logger)
		if err != nil {
			return err
		}

		fmt.Printf("Starting server at http://%s\n", cfg.Addr())
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(ctx, cfg.Addr(), srv, logger)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind (overrides config)")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (overrides config)")
}

// --- train command ---

var noRecord bool

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Prepare the dataset, train the model and report held-out accuracy",
	RunE: func(cmd *cobra.Command, args []string) error {
		var db *database.DB
		if !noRecord {
			var err error
			if db, err = openDB(); err != nil {
				return err
			}
			defer db.Close()
		}

		result := pipeline.New(pipeline.FromConfig(cfg), db, logger).Run(cmd.Context())

		for i, step := range result.Steps {
			fmt.Printf("\nStep %d/%d: %s\n", i+1, len(result.Steps), step.Name)
			if step.Err != nil {
				fmt.Printf("  Error: %v\n", step.Err)
			} else {
				fmt.Printf("  %s\n", step.Summary)
			}
		}
		if !result.Ready() {
			return result.Err
		}

		fmt.Printf("\nModel Accuracy: %.1f%%\n", result.Accuracy*100)
		fmt.Println("\nCoefficients:")
		coefs := result.Context.Coefficients()
		for _, name := range result.Context.Schema().Names() {
			fmt.Printf("  %-26s %+.4f\n", name, coefs[name])
		}
		fmt.Printf("  %-26s %+.4f\n", "(intercept)", result.Context.Intercept())

		fmt.Println("\nNumeric fill values:")
		im := result.Context.Imputer()
		for _, name := range result.Context.Schema().Names() {
			if mean, ok := im.Mean(name); ok {
				fmt.Printf("  %-26s %.4f\n", name, mean)
			}
		}
		return nil
	},
}

func init() {
	trainCmd.Flags().BoolVar(&noRecord, "no-record", false, "Do not store the run in the database")
}

// --- predict command ---

var (
	predictJSON   bool
	predictValues = map[string]*string{}
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict a personality from answers given as flags",
	Example: `  personality predict --time-spent-alone 8 --stage-fear Yes --drained-after-socializing Yes
  personality predict --friends-circle-size 15 --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		result := pipeline.New(pipeline.FromConfig(cfg), nil, logger).Run(cmd.Context())
		if !result.Ready() {
			return result.Err
		}
		pc := result.Context

		values := make(map[string]string, len(predictValues))
		for name, v := range predictValues {
			values[name] = *v
		}
		obs, err := predict.ParseValues(pc.Schema(), values)
		if err == nil {
			err = predict.Validate(obs)
		}
		if err != nil {
			return err
		}

		p, err := predict.Predict(pc, obs)
		if err != nil {
			return err
		}

		if predictJSON {
			out, err := json.MarshalIndent(predictionOutput{
				Personality: p.Personality(),
				Label:       p.Label,
				Confidence:  p.Confidence(),
				Probabilities: map[string]float64{
					dataset.Extrovert: p.Probabilities[dataset.LabelExtrovert],
					dataset.Introvert: p.Probabilities[dataset.LabelIntrovert],
				},
				Accuracy: pc.Accuracy(),
				Input:    obs,
			}, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		}

		fmt.Printf("Personality: %s\n", p.Personality())
		fmt.Printf("Confidence:  %.1f%%\n", p.Confidence()*100)
		fmt.Printf("  Extrovert Probability: %.1f%%\n", p.Probabilities[dataset.LabelExtrovert]*100)
		fmt.Printf("  Introvert Probability: %.1f%%\n", p.Probabilities[dataset.LabelIntrovert]*100)
		fmt.Printf("Model accuracy: %.1f%% (%s)\n", pc.Accuracy()*100, pc.Algorithm())
		return nil
	},
}

type predictionOutput struct {
	Personality   string              `json:"personality"`
	Label         int                 `json:"label"`
	Confidence    float64             `json:"confidence"`
	Probabilities map[string]float64  `json:"probabilities"`
	Accuracy      float64             `json:"model_accuracy"`
	Input         predict.Observation `json:"input"`
}

func init() {
	predictCmd.Flags().BoolVar(&predictJSON, "json", false, "Print the prediction as JSON")

	schema := dataset.DefaultSchema()
	defaults := predict.DefaultObservation(schema).Values()
	for _, f := range schema.Fields {
		v := new(string)
		predictValues[f.Name] = v
		usage := f.Prompt
		if f.IsCategorical() {
			usage += " (Yes or No)"
		} else {
			usage += fmt.Sprintf(" (%g to %g)", f.Min, f.Max)
		}
		predictCmd.Flags().StringVar(v, flagName(f.Name), defaults[f.Name], usage)
	}
}

// flagName turns a column name like Time_spent_Alone into time-spent-alone.
func flagName(column string) string {
	return strings.ToLower(strings.ReplaceAll(column, "_", "-"))
}

// --- status command ---

var (
	statusLimit int
	statusRun   string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and training history",
	Example: `  personality status -n 5
  personality status --run 3f2a9c1e-...`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if statusRun != "" {
			run, err := db.GetTrainingRun(statusRun)
			if err != nil {
				return fmt.Errorf("getting run: %w", err)
			}
			if run == nil {
				return fmt.Errorf("no training run with ID %q", statusRun)
			}
			fmt.Println("Run:")
			printRun(run)
			fmt.Println("  Coefficients:")
			for _, name := range dataset.DefaultSchema().Names() {
				if v, ok := run.Coefficients[name]; ok {
					fmt.Printf("    %-26s %+.4f\n", name, v)
				}
			}
			fmt.Printf("    %-26s %+.4f\n", "(intercept)", run.Intercept)
			return nil
		}

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Println("Config:")
		fmt.Printf("  Dataset: %s\n", cfg.Data.Dataset)
		fmt.Printf("  Seed: %d  Test size: %g  C: %g\n", cfg.Model.Seed, cfg.Model.TestSize, cfg.Model.C)
		fmt.Printf("  Database: %s\n", db.Path())

		fmt.Println("\nTraining runs:")
		fmt.Printf("  Total: %d\n", stats.TotalRuns)
		fmt.Printf("  Distinct datasets: %d\n", stats.DistinctDatasets)
		if stats.BestAccuracy != nil {
			fmt.Printf("  Best accuracy: %.1f%%\n", *stats.BestAccuracy*100)
		}
		if stats.LastRunAt != nil {
			fmt.Printf("  Last run: %s\n", *stats.LastRunAt)
		}

		latest, err := db.GetLatestTrainingRun()
		if err != nil {
			return fmt.Errorf("getting latest run: %w", err)
		}
		if latest == nil {
			fmt.Println("\nNo training runs yet. Run 'personality train' to create one.")
			return nil
		}
		fmt.Println("\nLatest run:")
		printRun(latest)

		runs, err := db.GetTrainingRuns(statusLimit)
		if err != nil {
			return fmt.Errorf("listing runs: %w", err)
		}
		fmt.Printf("\nRecent runs (%d):\n", len(runs))
		for _, r := range runs {
			at := ""
			if r.CreatedAt != nil {
				at = *r.CreatedAt
			}
			fmt.Printf("  %s  %.8s  seed=%d  c=%g  accuracy=%.1f%%  %s\n",
				at, r.RunID, r.Seed, r.C, r.Accuracy*100, r.DatasetPath)
		}
		return nil
	},
}

func printRun(run *database.TrainingRun) {
	fmt.Printf("  ID: %s\n", run.RunID)
	if run.CreatedAt != nil {
		fmt.Printf("  At: %s\n", *run.CreatedAt)
	}
	fmt.Printf("  Dataset: %s (sha256 %.12s)\n", run.DatasetPath, run.DatasetSHA256)
	fmt.Printf("  Seed: %d  Test size: %g  C: %g\n", run.Seed, run.TestSize, run.C)
	fmt.Printf("  Rows: %d train / %d test\n", run.TrainRows, run.TestRows)
	fmt.Printf("  Accuracy: %.1f%%\n", run.Accuracy*100)
	fmt.Printf("  Solver: %d iterations, converged=%t, %dms\n", run.Iterations, run.Converged, run.DurationMS)
}

func init() {
	statusCmd.Flags().IntVarP(&statusLimit, "limit", "n", 10, "Number of recent runs to list")
	statusCmd.Flags().StringVar(&statusRun, "run", "", "Show one training run in full")
}

// --- sample-data command ---

var (
	sampleRows  int
	sampleSeed  int64
	sampleOut   string
	sampleForce bool
)

var sampleDataCmd = &cobra.Command{
	Use:   "sample-data",
	Short: "Write a synthetic dataset in the training CSV format",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := sampleOut
		if out == "" {
			out = cfg.Data.Dataset
		}
		if _, err := os.Stat(out); err == nil && !sampleForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", out)
		}
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}

		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("creating %s: %w", out, err)
		}
		if err := dataset.WriteSynthetic(f, sampleRows, sampleSeed); err != nil {
			f.Close()
			return fmt.Errorf("writing sample data: %w", err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Printf("Wrote %d rows to %s\n", sampleRows, out)
		return nil
	},
}

func init() {
	sampleDataCmd.Flags().IntVar(&sampleRows, "rows", 1000, "Number of rows to generate")
	sampleDataCmd.Flags().Int64Var(&sampleSeed, "seed", 42, "Random seed")
	sampleDataCmd.Flags().StringVarP(&sampleOut, "out", "o", "", "Output path (defaults to the configured dataset)")
	sampleDataCmd.Flags().BoolVar(&sampleForce, "force", false, "Overwrite an existing file")
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return database.OpenInDir(dataDir)
}
