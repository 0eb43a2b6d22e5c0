package source

import (
	"context"
	"fmt"
	"log"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/gcsblob" // GCS driver
)

// NewGCSSource creates a source reading from Google Cloud Storage.
// Uses Application Default Credentials (ADC) for authentication.
func NewGCSSource(ctx context.Context, bucketName, prefix string) (*BlobSource, error) {
	// URL format: gs://bucket-name
	location := fmt.Sprintf("gs://%s", bucketName)
	bucket, err := blob.OpenBucket(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("open GCS bucket %s: %w", bucketName, err)
	}

	log.Printf("[source:gcs] reading components from %s/%s", location, prefix)
	return NewBlobSource(bucket, prefix, location), nil
}
