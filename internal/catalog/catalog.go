package catalog

import (
	"context"
	"log"
	"time"
)

// CatalogConfig configures the lineage catalog.
type CatalogConfig struct {
	PostgresDSN string
	Namespace   string // logical owner of the datasets, e.g. "chem-lab"
}

// Writer records build lineage and quality results.
type Writer interface {
	// EnsureDataset registers or retrieves a dataset entry and returns its ID.
	EnsureDataset(ctx context.Context, info DatasetInfo) (int64, error)

	// RecordBuild writes a lineage record for a published reaction space.
	RecordBuild(ctx context.Context, rec BuildRecord) error

	// RecordQuality writes a validation result for a build.
	RecordQuality(ctx context.Context, rec QualityRecord) error

	// LastBuild returns the most recent build of a dataset, or nil.
	LastBuild(ctx context.Context, datasetID int64) (*BuildRecord, error)

	Close() error
}

// DatasetInfo identifies a dataset in the catalog.
type DatasetInfo struct {
	Namespace   string
	Dataset     string
	SchemaHash  string // fingerprint of the output column list
	Description string
}

// BuildRecord is the lineage of one published reaction space.
type BuildRecord struct {
	DatasetID       int64
	BuildID         string
	InputHash       string // fingerprint of component checksums and settings
	Components      []ComponentRecord
	RowCount        int64
	ByteSize        int64
	Checksum        string
	PrevChecksum    string
	StoragePath     string
	StorageURI      string
	ProducerVersion string
	ProducerGitSHA  string
	SourceType      string
	SourceLocation  string
	CreatedAt       time.Time
}

// ComponentRecord describes one input of a build.
type ComponentRecord struct {
	Index    int    `json:"index"`
	Name     string `json:"name"`
	Checksum string `json:"checksum"`
	Records  int    `json:"records"`
	Width    int    `json:"width"`
}

// QualityRecord is a validation result.
type QualityRecord struct {
	DatasetID    int64
	BuildID      string
	Passed       bool
	ErrorMessage string
}

// NewWriter returns a PostgreSQL writer when a DSN is configured and a no-op
// writer otherwise.
func NewWriter(ctx context.Context, cfg CatalogConfig) (Writer, error) {
	if cfg.PostgresDSN == "" {
		log.Println("[catalog] no DSN configured, lineage will not be recorded")
		return NoopWriter{}, nil
	}
	return NewPostgresWriter(ctx, cfg)
}

// NoopWriter discards all records.
type NoopWriter struct{}

func (NoopWriter) EnsureDataset(context.Context, DatasetInfo) (int64, error) { return 0, nil }
func (NoopWriter) RecordBuild(context.Context, BuildRecord) error { return nil }
func (NoopWriter) RecordQuality(context.Context, QualityRecord) error { return nil }
func (NoopWriter) LastBuild(context.Context, int64) (*BuildRecord, error) { return nil, nil }
func (NoopWriter) Close() error { return nil }
