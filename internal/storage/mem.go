package storage

import "gocloud.dev/blob/memblob"

// NewMemStore creates an in-memory store, used for dry runs and tests.
func NewMemStore(prefix string) *BlobStore {
	return NewBlobStore(memblob.OpenBucket(nil), "mem://", prefix)
}
