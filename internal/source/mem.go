package source

import (
	"context"
	"fmt"

	"gocloud.dev/blob/memblob"
)

// NewMemSource creates an in-memory source holding the given files.
func NewMemSource(ctx context.Context, files map[string][]byte) (*BlobSource, error) {
	bucket := memblob.OpenBucket(nil)
	for name, data := range files {
		if err := bucket.WriteAll(ctx, name, data, nil); err != nil {
			bucket.Close()
			return nil, fmt.Errorf("write %s: %w", name, err)
		}
	}
	return NewBlobSource(bucket, "", "mem://"), nil
}
