package source

import (
	"context"
	"fmt"
	"io"
	"path"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
)

// BlobSource reads component files from a gocloud.dev bucket.
type BlobSource struct {
	bucket   *blob.Bucket
	prefix   string
	location string
}

// NewBlobSource wraps an open bucket. The source owns the bucket and closes
// it on Close.
func NewBlobSource(bucket *blob.Bucket, prefix, location string) *BlobSource {
	return &BlobSource{bucket: bucket, prefix: prefix, location: location}
}

// Open implements ComponentSource.Open.
func (s *BlobSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	key := path.Join(s.prefix, name)
	reader, err := s.bucket.NewReader(ctx, key, nil)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, fmt.Errorf("%w: the file %s was not found in %s", ErrNotFound, name, s.Location())
		}
		return nil, fmt.Errorf("open object %s: %w", key, err)
	}
	return Decode(name, reader)
}

// Location implements ComponentSource.Location.
func (s *BlobSource) Location() string {
	if s.prefix == "" {
		return s.location
	}
	return s.location + "/" + s.prefix
}

// Close releases resources.
func (s *BlobSource) Close() error {
	if s.bucket != nil {
		return s.bucket.Close()
	}
	return nil
}
