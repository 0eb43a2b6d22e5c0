package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// LocalSource reads component files from the local filesystem.
type LocalSource struct {
	basePath string
}

// NewLocalSource creates a new local filesystem source.
func NewLocalSource(basePath string) (*LocalSource, error) {
	// Verify path exists
	info, err := os.Stat(basePath)
	if err != nil {
		return nil, fmt.Errorf("invalid local path %s: %w", basePath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("local path %s is not a directory", basePath)
	}

	return &LocalSource{basePath: basePath}, nil
}

// Open implements ComponentSource.Open. Absolute names bypass the base path.
func (s *LocalSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := name
	if !filepath.IsAbs(name) {
		path = filepath.Join(s.basePath, name)
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: the file %s was not found in %s", ErrNotFound, name, s.basePath)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return Decode(name, f)
}

// Location implements ComponentSource.Location.
func (s *LocalSource) Location() string { return s.basePath }

// Close releases resources.
func (s *LocalSource) Close() error { return nil }
