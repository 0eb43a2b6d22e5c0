package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned by Head and Read when the key does not exist.
var ErrNotFound = errors.New("storage: object not found")

// OutputRef describes where a reaction space is published.
type OutputRef struct {
	Dataset  string // optional grouping directory, e.g. "suzuki_screen"
	Filename string // "reaction_space.csv"
}

// Path returns the storage path for the encoded reaction space.
func (r OutputRef) Path(prefix string) string {
	if r.Dataset == "" {
		return prefix + r.Filename
	}
	return fmt.Sprintf("%s%s/%s", prefix, strings.Trim(r.Dataset, "/"), r.Filename)
}

// ManifestPath returns the storage path for the output's manifest.
func (r OutputRef) ManifestPath(prefix string) string {
	return r.Path(prefix) + ".manifest.json"
}

// Manifest describes a published reaction space and the inputs it was built from.
type Manifest struct {
	Dataset    string          `json:"dataset,omitempty"`
	Output     OutputInfo      `json:"output"`
	Components []ComponentInfo `json:"components"`
	Separator  string          `json:"separator"`
	Producer   ProducerInfo    `json:"producer"`
	BuildID    string          `json:"build_id"`
	CreatedAt  time.Time       `json:"created_at"`

	// InputHash fingerprints the inputs and settings the output was built from.
	InputHash string `json:"input_hash,omitempty"`
}

// OutputInfo describes the encoded reaction space file.
type OutputInfo struct {
	File     string   `json:"file"`
	Format   string   `json:"format"`
	Checksum string   `json:"checksum"`
	RowCount int64    `json:"row_count"`
	ByteSize int64    `json:"byte_size"`
	Columns  []string `json:"columns"`
}

// ComponentInfo describes one input component table.
type ComponentInfo struct {
	Index    int    `json:"index"`
	Name     string `json:"name"`
	Source   string `json:"source"`
	Checksum string `json:"checksum"`
	Records  int    `json:"records"`
	Width    int    `json:"width"`
}

// ProducerInfo describes the software that produced the output.
type ProducerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	GitSHA  string `json:"git_sha,omitempty"`
}

// MarshalJSON returns the manifest as JSON bytes.
func (m *Manifest) MarshalJSON() ([]byte, error) {
	type Alias Manifest
	return json.MarshalIndent((*Alias)(m), "", "  ")
}

// ResultStore abstracts writing encoded reaction spaces to storage.
type ResultStore interface {
	// WriteOutput writes encoded bytes to the output path.
	WriteOutput(ctx context.Context, ref OutputRef, data []byte) error

	// WriteManifest writes a manifest file next to the output.
	WriteManifest(ctx context.Context, ref OutputRef, manifest *Manifest) error

	// Exists checks if an output already exists.
	Exists(ctx context.Context, ref OutputRef) (bool, error)

	// URI returns the canonical URI for the given key.
	// For local: file:///path, GCS: gs://bucket/path, S3: s3://bucket/path
	URI(key string) string

	// Close releases any resources.
	Close() error
}

// AtomicStore extends ResultStore with atomic publish capabilities.
// This is the preferred interface for production use.
type AtomicStore interface {
	ResultStore

	// WriteOutputTemp writes encoded bytes to a temporary location.
	// Returns the temp key that can be passed to Finalize.
	WriteOutputTemp(ctx context.Context, ref OutputRef, data []byte) (tempKey string, err error)

	// WriteManifestTemp writes a manifest to a temporary location.
	WriteManifestTemp(ctx context.Context, ref OutputRef, manifest *Manifest) (tempKey string, err error)

	// Finalize moves temp files to their canonical location, output first
	// then manifest. For object stores this is copy+delete; for the local
	// filesystem it's rename. On failure the published keys are rolled back.
	Finalize(ctx context.Context, ref OutputRef, tempKeys []string) error

	// Abort removes temporary files without publishing.
	Abort(ctx context.Context, tempKeys []string) error

	// Head returns metadata about a stored object.
	Head(ctx context.Context, key string) (*ObjectInfo, error)

	// Read returns the contents of a stored object.
	Read(ctx context.Context, key string) ([]byte, error)

	// List returns all keys with the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// ObjectInfo contains metadata about a stored object.
type ObjectInfo struct {
	Key     string
	Size    int64
	ETag    string // MD5 for S3/GCS, empty for local
	ModTime time.Time
}

// PublishResult contains the result of a publish operation.
type PublishResult struct {
	OutputKey   string
	ManifestKey string
	OutputURI   string
	Checksum    string
	ByteSize    int64
}

// StorageConfig configures the storage backend.
type StorageConfig struct {
	Backend string // "local" | "gcs" | "s3" | "mem"

	// Local filesystem
	LocalDir string

	// GCS or S3 (also works for B2, R2, MinIO)
	Bucket   string
	Endpoint string // custom endpoint for B2/MinIO/R2
	Region   string

	// Common
	Prefix string // path prefix within bucket or local dir
}

// NewAtomicStore creates a storage backend based on configuration.
// All supported backends implement AtomicStore.
func NewAtomicStore(ctx context.Context, cfg StorageConfig) (AtomicStore, error) {
	switch cfg.Backend {
	case "", "local":
		dir := cfg.LocalDir
		if dir == "" {
			dir = "./"
		}
		return NewLocalStore(dir, cfg.Prefix)
	case "gcs":
		if cfg.Bucket == "" {
			return nil, fmt.Errorf("bucket required for gcs backend")
		}
		return NewGCSStore(ctx, cfg.Bucket, cfg.Prefix)
	case "s3":
		if cfg.Bucket == "" {
			return nil, fmt.Errorf("bucket required for s3 backend")
		}
		return NewS3Store(ctx, cfg.Bucket, cfg.Prefix, cfg.Endpoint, cfg.Region)
	case "mem":
		return NewMemStore(cfg.Prefix), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}

// SweepTemp removes temp objects left next to ref's output and manifest by an
// interrupted publish. It returns the number of keys removed.
func SweepTemp(ctx context.Context, store AtomicStore, ref OutputRef, prefix string) (int, error) {
	base := ref.Path(prefix)
	keys, err := store.List(ctx, base)
	if err != nil {
		return 0, err
	}

	var stale []string
	for _, key := range keys {
		rest := strings.TrimPrefix(key, base)
		if strings.HasPrefix(rest, ".tmp.") || strings.HasPrefix(rest, ".manifest.json.tmp.") {
			stale = append(stale, key)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}
	if err := store.Abort(ctx, stale); err != nil {
		return 0, fmt.Errorf("remove stale temp keys: %w", err)
	}
	return len(stale), nil
}

// AsAtomic attempts to cast a ResultStore to AtomicStore.
// Returns nil if the store doesn't support atomic operations.
func AsAtomic(store ResultStore) AtomicStore {
	if atomic, ok := store.(AtomicStore); ok {
		return atomic
	}
	return nil
}
