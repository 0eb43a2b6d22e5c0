// Package config loads rxnspace configuration from an optional YAML file
// overlaid with RXN_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Space      SpaceConfig      `yaml:"space"`
	Source     SourceConfig     `yaml:"source"`
	Storage    StorageConfig    `yaml:"storage"`
	Output     OutputConfig     `yaml:"output"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Provenance ProvenanceConfig `yaml:"provenance"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type SpaceConfig struct {
	Dataset        string            `yaml:"dataset"`
	Components     []ComponentConfig `yaml:"components"`
	Separator      string            `yaml:"separator"`
	AllowSeparator bool              `yaml:"allow_separator_in_identifiers"`
	Workers        int               `yaml:"workers"`
	LoadWorkers    int               `yaml:"load_workers"`
	MaxEntries     int               `yaml:"max_entries"`
}

// ComponentConfig declares one component file. Only Path is required.
type ComponentConfig struct {
	Path           string   `yaml:"path"`
	Name           string   `yaml:"name"`
	IDColumn       string   `yaml:"id_column"`
	FeatureColumns []string `yaml:"feature_columns"`
}

type SourceConfig struct {
	Type     string `yaml:"type"` // local | gcs | s3
	Dir      string `yaml:"dir"`
	Bucket   string `yaml:"bucket"`
	Prefix   string `yaml:"prefix"`
	Endpoint string `yaml:"endpoint"`
	Region   string `yaml:"region"`
}

type StorageConfig struct {
	Backend        string `yaml:"backend"` // local | gcs | s3 | mem
	Dir            string `yaml:"dir"`
	Bucket         string `yaml:"bucket"`
	Prefix         string `yaml:"prefix"`
	Endpoint       string `yaml:"endpoint"`
	Region         string `yaml:"region"`
	AllowOverwrite bool   `yaml:"allow_overwrite"`
}

type OutputConfig struct {
	Format      string `yaml:"format"` // csv | parquet
	Filename    string `yaml:"filename"`
	Compression string `yaml:"compression"`
	IndexLabel  string `yaml:"index_label"`
}

type CatalogConfig struct {
	PostgresDSN string `yaml:"postgres_dsn"`
	Namespace   string `yaml:"namespace"`
	Strict      bool   `yaml:"strict"`
}

type ProvenanceConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	BackupDir string `yaml:"backup_dir"`
	Strict    bool   `yaml:"strict"`
}

type CheckpointConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

type LoggingConfig struct {
	Format string `yaml:"format"`
	Level  string `yaml:"level"`
}

// Default returns the configuration used when nothing is set: read components
// from and write reaction_space.csv into the current directory.
func Default() Config {
	return Config{
		Space: SpaceConfig{
			Separator:   ".",
			Workers:     1,
			LoadWorkers: 4,
		},
		Source: SourceConfig{
			Type: "local",
			Dir:  "./",
		},
		Storage: StorageConfig{
			Backend: "local",
			Dir:     "./",
		},
		Output: OutputConfig{
			Format:      "csv",
			Filename:    "reaction_space.csv",
			Compression: "none",
		},
		Catalog: CatalogConfig{
			Namespace: "default",
		},
		Provenance: ProvenanceConfig{
			BackupDir: "./provenance",
		},
		Checkpoint: CheckpointConfig{
			Dir: "./state",
		},
		Metrics: MetricsConfig{
			Address: ":9090",
		},
		Logging: LoggingConfig{
			Format: "text",
			Level:  "info",
		},
	}
}

// Load reads the YAML file at path (if any) over the defaults, then applies
// environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		log.Printf("[config] loading %s", path)
		f, err := os.Open(path)
		if err != nil {
			return cfg, fmt.Errorf("open config: %w", err)
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

// applyEnv overlays RXN_* environment variables.
func applyEnv(cfg *Config) {
	cfg.Space.Dataset = getenvDefault("RXN_DATASET", cfg.Space.Dataset)
	if v := os.Getenv("RXN_COMPONENTS"); v != "" {
		cfg.Space.Components = ParseComponents(strings.Split(v, ","))
	}
	cfg.Space.Separator = getenvDefault("RXN_SEPARATOR", cfg.Space.Separator)
	cfg.Space.AllowSeparator = getenvBool("RXN_ALLOW_SEPARATOR", cfg.Space.AllowSeparator)
	cfg.Space.Workers = getenvInt("RXN_WORKERS", cfg.Space.Workers)
	cfg.Space.LoadWorkers = getenvInt("RXN_LOAD_WORKERS", cfg.Space.LoadWorkers)
	cfg.Space.MaxEntries = getenvInt("RXN_MAX_ENTRIES", cfg.Space.MaxEntries)

	cfg.Source.Type = getenvDefault("RXN_SOURCE_TYPE", cfg.Source.Type)
	cfg.Source.Dir = getenvDefault("RXN_SOURCE_DIR", cfg.Source.Dir)
	cfg.Source.Bucket = getenvDefault("RXN_SOURCE_BUCKET", cfg.Source.Bucket)
	cfg.Source.Prefix = getenvDefault("RXN_SOURCE_PREFIX", cfg.Source.Prefix)
	cfg.Source.Endpoint = getenvDefault("RXN_SOURCE_ENDPOINT", cfg.Source.Endpoint)
	cfg.Source.Region = getenvDefault("RXN_SOURCE_REGION", cfg.Source.Region)

	cfg.Storage.Backend = getenvDefault("RXN_STORAGE_BACKEND", cfg.Storage.Backend)
	cfg.Storage.Dir = getenvDefault("RXN_STORAGE_DIR", cfg.Storage.Dir)
	cfg.Storage.Bucket = getenvDefault("RXN_STORAGE_BUCKET", cfg.Storage.Bucket)
	cfg.Storage.Prefix = getenvDefault("RXN_STORAGE_PREFIX", cfg.Storage.Prefix)
	cfg.Storage.Endpoint = getenvDefault("RXN_STORAGE_ENDPOINT", cfg.Storage.Endpoint)
	cfg.Storage.Region = getenvDefault("RXN_STORAGE_REGION", cfg.Storage.Region)
	cfg.Storage.AllowOverwrite = getenvBool("RXN_ALLOW_OVERWRITE", cfg.Storage.AllowOverwrite)

	cfg.Output.Format = getenvDefault("RXN_OUTPUT_FORMAT", cfg.Output.Format)
	cfg.Output.Filename = getenvDefault("RXN_OUTPUT_FILENAME", cfg.Output.Filename)
	cfg.Output.Compression = getenvDefault("RXN_OUTPUT_COMPRESSION", cfg.Output.Compression)
	cfg.Output.IndexLabel = getenvDefault("RXN_OUTPUT_INDEX_LABEL", cfg.Output.IndexLabel)

	cfg.Catalog.PostgresDSN = getenvDefault("RXN_CATALOG_DSN", cfg.Catalog.PostgresDSN)
	cfg.Catalog.Namespace = getenvDefault("RXN_CATALOG_NAMESPACE", cfg.Catalog.Namespace)
	cfg.Catalog.Strict = getenvBool("RXN_CATALOG_STRICT", cfg.Catalog.Strict)

	cfg.Provenance.Enabled = getenvBool("RXN_PROVENANCE_ENABLED", cfg.Provenance.Enabled)
	cfg.Provenance.Endpoint = getenvDefault("RXN_PROVENANCE_ENDPOINT", cfg.Provenance.Endpoint)
	cfg.Provenance.BackupDir = getenvDefault("RXN_PROVENANCE_BACKUP_DIR", cfg.Provenance.BackupDir)
	cfg.Provenance.Strict = getenvBool("RXN_PROVENANCE_STRICT", cfg.Provenance.Strict)

	cfg.Checkpoint.Enabled = getenvBool("RXN_CHECKPOINT_ENABLED", cfg.Checkpoint.Enabled)
	cfg.Checkpoint.Dir = getenvDefault("RXN_CHECKPOINT_DIR", cfg.Checkpoint.Dir)

	cfg.Metrics.Enabled = getenvBool("RXN_METRICS_ENABLED", cfg.Metrics.Enabled)
	cfg.Metrics.Address = getenvDefault("RXN_METRICS_ADDR", cfg.Metrics.Address)

	cfg.Logging.Format = getenvDefault("RXN_LOG_FORMAT", cfg.Logging.Format)
	cfg.Logging.Level = getenvDefault("RXN_LOG_LEVEL", cfg.Logging.Level)
}

// ParseComponents turns plain file names into component declarations.
func ParseComponents(paths []string) []ComponentConfig {
	var out []ComponentConfig
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, ComponentConfig{Path: p})
	}
	return out
}

// Validate checks the configuration for errors that would surface late.
func (c Config) Validate() error {
	var errs []error

	if c.Space.Separator == "" {
		errs = append(errs, errors.New("space.separator must not be empty"))
	}
	if c.Space.Workers < 1 {
		errs = append(errs, fmt.Errorf("space.workers must be >= 1, got %d", c.Space.Workers))
	}
	if c.Space.LoadWorkers < 1 {
		errs = append(errs, fmt.Errorf("space.load_workers must be >= 1, got %d", c.Space.LoadWorkers))
	}
	if c.Space.MaxEntries < 0 {
		errs = append(errs, fmt.Errorf("space.max_entries must be >= 0, got %d", c.Space.MaxEntries))
	}
	for i, comp := range c.Space.Components {
		if comp.Path == "" {
			errs = append(errs, fmt.Errorf("space.components[%d].path required", i))
		}
	}

	switch c.Source.Type {
	case "local":
	case "gcs", "s3":
		if c.Source.Bucket == "" {
			errs = append(errs, fmt.Errorf("source.bucket required for %s source", c.Source.Type))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown source.type %q", c.Source.Type))
	}

	switch c.Storage.Backend {
	case "local", "mem":
	case "gcs", "s3":
		if c.Storage.Bucket == "" {
			errs = append(errs, fmt.Errorf("storage.bucket required for %s backend", c.Storage.Backend))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.backend %q", c.Storage.Backend))
	}

	if c.Output.Filename == "" {
		errs = append(errs, errors.New("output.filename required"))
	}
	switch c.Output.Format {
	case "csv", "parquet":
	default:
		errs = append(errs, fmt.Errorf("unknown output.format %q", c.Output.Format))
	}

	if c.Checkpoint.Enabled && c.Checkpoint.Dir == "" {
		errs = append(errs, errors.New("checkpoint.dir required when checkpointing is enabled"))
	}

	return errors.Join(errs...)
}

func getenvDefault(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getenvBool(key string, def bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		log.Printf("[config] ignoring %s=%q: %v", key, val, err)
		return def
	}
	return parsed
}

func getenvInt(key string, def int) int {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		log.Printf("[config] ignoring %s=%q: %v", key, val, err)
		return def
	}
	return parsed
}
