package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}

	if cfg.Data.Dataset != "Data/train.csv" {
		t.Errorf("expected dataset 'Data/train.csv', got %q", cfg.Data.Dataset)
	}
	if cfg.Data.IDColumn != "id" {
		t.Errorf("expected id column 'id', got %q", cfg.Data.IDColumn)
	}
	if cfg.Model.Seed != 42 {
		t.Errorf("expected seed 42, got %d", cfg.Model.Seed)
	}
	if cfg.Model.TestSize != 0.2 {
		t.Errorf("expected test size 0.2, got %v", cfg.Model.TestSize)
	}
	if cfg.Server.Port != 8501 {
		t.Errorf("expected port 8501, got %d", cfg.Server.Port)
	}
}

func TestParseMinimalConfig(t *testing.T) {
	data := []byte(`
model:
  seed: 7
server:
  port: 9000
`)
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("failed to parse minimal config: %v", err)
	}

	if cfg.Model.Seed != 7 {
		t.Errorf("expected seed 7, got %d", cfg.Model.Seed)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	// Defaults should still be set for unspecified fields
	if cfg.Model.C != 1.0 {
		t.Errorf("expected default c 1.0, got %v", cfg.Model.C)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("expected default host, got %q", cfg.Server.Host)
	}
	if cfg.Addr() != "127.0.0.1:9000" {
		t.Errorf("expected addr 127.0.0.1:9000, got %q", cfg.Addr())
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("PERSONALITY_DATASET", "/data/people.csv")
	t.Setenv("PERSONALITY_SEED", "99")
	t.Setenv("PERSONALITY_PORT", "8080")

	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse config: %v", err)
	}
	if cfg.Data.Dataset != "/data/people.csv" {
		t.Errorf("expected dataset from env, got %q", cfg.Data.Dataset)
	}
	if cfg.Model.Seed != 99 {
		t.Errorf("expected seed 99 from env, got %d", cfg.Model.Seed)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected port 8080 from env, got %d", cfg.Server.Port)
	}
}

func TestParseRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"test size": "model:\n  test_size: 1.5\n",
		"c":         "model:\n  c: -1\n",
		"port":      "server:\n  port: 70000\n",
		"level":     "logging:\n  level: loud\n",
		"dataset":   "data:\n  dataset: \"\"\n",
		"yaml":      "model: [",
	}
	for name, data := range cases {
		if _, err := parse([]byte(data)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, DefaultConfigYAML, 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected level 'info', got %q", cfg.Logging.Level)
	}
}

func TestResolveExplicitConfigPath(t *testing.T) {
	if _, err := ResolveConfigPath(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing explicit config")
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, DefaultConfigYAML, 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	got, err := ResolveConfigPath(path)
	if err != nil || got != path {
		t.Errorf("expected %q, got %q (err %v)", path, got, err)
	}
}

func TestModelAndDatasetOptions(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatalf("failed to load defaults: %v", err)
	}
	cfg.Data.IDColumn = "row"

	mc := cfg.ModelConfig()
	if mc.Seed != 42 || mc.TestSize != 0.2 || mc.MaxIter != 100 {
		t.Errorf("unexpected model config %+v", mc)
	}
	if opts := cfg.DatasetOptions(); opts.IDColumn != "row" || opts.Schema.Len() != 7 {
		t.Errorf("unexpected dataset options %+v", opts)
	}
}

func TestGetDataDir(t *testing.T) {
	cfg := &Config{}
	defaultDir := cfg.GetDataDir()
	if !strings.HasSuffix(defaultDir, filepath.Join("share", "personality")) {
		t.Errorf("unexpected default data dir %q", defaultDir)
	}

	cfg.Output.DataDir = "/custom/path"
	if cfg.GetDataDir() != "/custom/path" {
		t.Errorf("expected '/custom/path', got %q", cfg.GetDataDir())
	}
}
