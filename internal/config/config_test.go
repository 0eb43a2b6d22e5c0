package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "rxnspace-config-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	path := filepath.Join(dir, "rxnspace.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Output.Filename != "reaction_space.csv" {
		t.Errorf("default filename = %q", cfg.Output.Filename)
	}
	if cfg.Storage.Backend != "local" || cfg.Storage.Dir != "./" {
		t.Errorf("default storage = %+v", cfg.Storage)
	}
	if cfg.Space.Separator != "." {
		t.Errorf("default separator = %q", cfg.Space.Separator)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
space:
  dataset: suzuki
  separator: "|"
  workers: 8
  components:
    - path: halides.csv
      id_column: smiles
    - path: boronic_acids.csv.zst
      feature_columns: [mw, logp]
output:
  format: parquet
  filename: suzuki.parquet
  compression: zstd
catalog:
  strict: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Space.Dataset != "suzuki" || cfg.Space.Separator != "|" || cfg.Space.Workers != 8 {
		t.Errorf("space = %+v", cfg.Space)
	}
	if len(cfg.Space.Components) != 2 {
		t.Fatalf("components = %+v", cfg.Space.Components)
	}
	if cfg.Space.Components[0].IDColumn != "smiles" {
		t.Errorf("id_column = %q", cfg.Space.Components[0].IDColumn)
	}
	if got := cfg.Space.Components[1].FeatureColumns; len(got) != 2 || got[1] != "logp" {
		t.Errorf("feature_columns = %v", got)
	}
	if cfg.Output.Format != "parquet" || cfg.Output.Compression != "zstd" {
		t.Errorf("output = %+v", cfg.Output)
	}
	if !cfg.Catalog.Strict {
		t.Error("catalog.strict should be true")
	}
	// untouched sections keep defaults
	if cfg.Space.LoadWorkers != 4 || cfg.Storage.Dir != "./" {
		t.Errorf("defaults lost: load_workers=%d storage.dir=%q", cfg.Space.LoadWorkers, cfg.Storage.Dir)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, "space:\n  seperator: \"|\"\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for misspelled field")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/rxnspace.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, "output:\n  filename: from_file.csv\n")

	t.Setenv("RXN_OUTPUT_FILENAME", "from_env.csv")
	t.Setenv("RXN_COMPONENTS", "a.csv, b.csv,,c.csv")
	t.Setenv("RXN_WORKERS", "3")
	t.Setenv("RXN_ALLOW_OVERWRITE", "true")
	t.Setenv("RXN_MAX_ENTRIES", "not-a-number")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Output.Filename != "from_env.csv" {
		t.Errorf("filename = %q, env should win", cfg.Output.Filename)
	}
	if len(cfg.Space.Components) != 3 || cfg.Space.Components[1].Path != "b.csv" {
		t.Errorf("components = %+v", cfg.Space.Components)
	}
	if cfg.Space.Workers != 3 {
		t.Errorf("workers = %d", cfg.Space.Workers)
	}
	if !cfg.Storage.AllowOverwrite {
		t.Error("allow_overwrite should be true")
	}
	if cfg.Space.MaxEntries != 0 {
		t.Errorf("invalid int should keep default, got %d", cfg.Space.MaxEntries)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"empty separator", func(c *Config) { c.Space.Separator = "" }, "separator"},
		{"zero workers", func(c *Config) { c.Space.Workers = 0 }, "space.workers"},
		{"negative max entries", func(c *Config) { c.Space.MaxEntries = -1 }, "max_entries"},
		{"component without path", func(c *Config) { c.Space.Components = []ComponentConfig{{Name: "x"}} }, "path required"},
		{"gcs source without bucket", func(c *Config) { c.Source.Type = "gcs" }, "source.bucket"},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "ftp" }, "storage.backend"},
		{"unknown format", func(c *Config) { c.Output.Format = "xlsx" }, "output.format"},
		{"checkpoint without dir", func(c *Config) { c.Checkpoint.Enabled = true; c.Checkpoint.Dir = "" }, "checkpoint.dir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should mention %q", err, tt.wantErr)
			}
		})
	}
}
