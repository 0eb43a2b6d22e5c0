package source

import (
	"context"
	"fmt"
	"log"
	"net/url"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/s3blob" // S3 driver
)

// NewS3Source creates a source reading from S3-compatible storage.
// Works with AWS S3, Backblaze B2, Cloudflare R2, and MinIO.
// endpoint can be empty for AWS S3, or a custom URL for B2/R2/MinIO.
func NewS3Source(ctx context.Context, bucketName, prefix, endpoint, region string) (*BlobSource, error) {
	location := fmt.Sprintf("s3://%s", bucketName)
	bucket, err := blob.OpenBucket(ctx, BucketURL(bucketName, endpoint, region))
	if err != nil {
		return nil, fmt.Errorf("open S3 bucket %s: %w", bucketName, err)
	}

	log.Printf("[source:s3] reading components from %s/%s", location, prefix)
	return NewBlobSource(bucket, prefix, location), nil
}

// BucketURL builds a gocloud.dev S3 URL.
// For AWS: s3://bucket-name?region=us-east-1
// For custom endpoint: s3://bucket-name?endpoint=https://s3.us-west-000.backblazeb2.com&region=us-west-000
func BucketURL(bucketName, endpoint, region string) string {
	bucketURL := fmt.Sprintf("s3://%s", bucketName)

	params := url.Values{}
	if region != "" {
		params.Set("region", region)
	}
	if endpoint != "" {
		params.Set("endpoint", endpoint)
		// For custom endpoints, we often need to disable host-style addressing
		params.Set("s3ForcePathStyle", "true")
	}
	if len(params) > 0 {
		bucketURL = bucketURL + "?" + params.Encode()
	}
	return bucketURL
}
