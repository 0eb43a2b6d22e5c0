package source

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ComponentSource opens component tables by name.
type ComponentSource interface {
	// Open returns the decoded contents of the named component file.
	// A missing file returns an error wrapping ErrNotFound.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// Location describes where names are resolved, for logs and manifests.
	Location() string
	Close() error
}

// SourceConfig selects and configures a component source backend.
type SourceConfig struct {
	Type      string // local | gcs | s3
	LocalPath string
	Bucket    string
	Prefix    string
	Endpoint  string
	Region    string
}

var (
	ErrInvalidSourceType = errors.New("source: invalid source type")
	ErrNotFound          = errors.New("source: component file not found")
)

// NewComponentSource constructs a source based on the configured type.
func NewComponentSource(ctx context.Context, cfg SourceConfig) (ComponentSource, error) {
	switch cfg.Type {
	case "", "local":
		path := cfg.LocalPath
		if path == "" {
			path = "./"
		}
		return NewLocalSource(path)
	case "gcs":
		return NewGCSSource(ctx, cfg.Bucket, cfg.Prefix)
	case "s3":
		return NewS3Source(ctx, cfg.Bucket, cfg.Prefix, cfg.Endpoint, cfg.Region)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidSourceType, cfg.Type)
	}
}
