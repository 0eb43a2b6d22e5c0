package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
)

// BlobStore writes reaction spaces to a gocloud.dev bucket (GCS, S3 or memory).
type BlobStore struct {
	bucket *blob.Bucket
	base   string // URI prefix for the bucket, e.g. gs://name
	prefix string
}

// NewBlobStore wraps an open bucket. The store owns the bucket and closes it
// on Close.
func NewBlobStore(bucket *blob.Bucket, base, prefix string) *BlobStore {
	return &BlobStore{bucket: bucket, base: base, prefix: prefix}
}

func (s *BlobStore) put(ctx context.Context, key string, data []byte) error {
	w, err := s.bucket.NewWriter(ctx, key, nil)
	if err != nil {
		return fmt.Errorf("create writer for %s: %w", key, err)
	}

	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("write data to %s: %w", key, err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("close writer for %s: %w", key, err)
	}
	return nil
}

// WriteOutput writes encoded bytes to the bucket.
func (s *BlobStore) WriteOutput(ctx context.Context, ref OutputRef, data []byte) error {
	return s.put(ctx, ref.Path(s.prefix), data)
}

// WriteManifest writes a manifest file to the bucket.
func (s *BlobStore) WriteManifest(ctx context.Context, ref OutputRef, manifest *Manifest) error {
	data, err := manifest.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return s.put(ctx, ref.ManifestPath(s.prefix), data)
}

// Exists checks if an output already exists in the bucket.
func (s *BlobStore) Exists(ctx context.Context, ref OutputRef) (bool, error) {
	return s.bucket.Exists(ctx, ref.Path(s.prefix))
}

// URI returns the canonical URI for the given key.
func (s *BlobStore) URI(key string) string {
	return fmt.Sprintf("%s/%s", s.base, key)
}

// Close releases the bucket connection.
func (s *BlobStore) Close() error {
	if s.bucket != nil {
		return s.bucket.Close()
	}
	return nil
}

// --- AtomicStore implementation ---

// WriteOutputTemp writes encoded bytes to a temporary key.
func (s *BlobStore) WriteOutputTemp(ctx context.Context, ref OutputRef, data []byte) (string, error) {
	tempKey := ref.Path(s.prefix) + ".tmp." + uuid.New().String()
	if err := s.put(ctx, tempKey, data); err != nil {
		return "", err
	}
	return tempKey, nil
}

// WriteManifestTemp writes a manifest to a temporary key.
func (s *BlobStore) WriteManifestTemp(ctx context.Context, ref OutputRef, manifest *Manifest) (string, error) {
	data, err := manifest.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("marshal manifest: %w", err)
	}

	tempKey := ref.ManifestPath(s.prefix) + ".tmp." + uuid.New().String()
	if err := s.put(ctx, tempKey, data); err != nil {
		return "", err
	}
	return tempKey, nil
}

// Finalize moves temp objects to their canonical keys.
// Uses copy + delete pattern. Objects already at the final keys are copied
// aside first and restored if any copy fails.
func (s *BlobStore) Finalize(ctx context.Context, ref OutputRef, tempKeys []string) error {
	finalKeys := []string{
		ref.Path(s.prefix),
		ref.ManifestPath(s.prefix),
	}

	if len(tempKeys) != len(finalKeys) {
		return fmt.Errorf("expected %d temp keys, got %d", len(finalKeys), len(tempKeys))
	}

	backups := make([]string, len(finalKeys))
	for i, finalKey := range finalKeys {
		exists, err := s.bucket.Exists(ctx, finalKey)
		if err != nil {
			s.Abort(ctx, tempKeys)
			s.Abort(ctx, backups)
			return fmt.Errorf("check %s: %w", finalKey, err)
		}
		if !exists {
			continue
		}
		backup := finalKey + ".bak." + uuid.New().String()
		if err := s.copyObject(ctx, finalKey, backup); err != nil {
			s.Abort(ctx, tempKeys)
			s.Abort(ctx, backups)
			return fmt.Errorf("back up %s: %w", finalKey, err)
		}
		backups[i] = backup
	}

	// Copy all temp files to final locations
	for i, tempKey := range tempKeys {
		finalKey := finalKeys[i]

		if err := s.copyObject(ctx, tempKey, finalKey); err != nil {
			// Rollback: restore or delete anything already copied
			for j := 0; j <= i; j++ {
				if backups[j] != "" {
					s.copyObject(ctx, backups[j], finalKeys[j])
				} else {
					s.bucket.Delete(ctx, finalKeys[j])
				}
			}
			s.Abort(ctx, tempKeys)
			s.Abort(ctx, backups)
			return fmt.Errorf("finalize %s -> %s: %w", tempKey, finalKey, err)
		}
	}

	// Delete temp files and backups after successful copy
	s.Abort(ctx, tempKeys) // ignore errors
	s.Abort(ctx, backups)

	return nil
}

// copyObject copies an object within the bucket.
func (s *BlobStore) copyObject(ctx context.Context, srcKey, dstKey string) error {
	r, err := s.bucket.NewReader(ctx, srcKey, nil)
	if err != nil {
		return fmt.Errorf("open source %s: %w", srcKey, err)
	}
	defer r.Close()

	w, err := s.bucket.NewWriter(ctx, dstKey, nil)
	if err != nil {
		return fmt.Errorf("create destination %s: %w", dstKey, err)
	}

	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("copy to %s: %w", dstKey, err)
	}

	return w.Close()
}

// Abort removes temporary objects without publishing.
func (s *BlobStore) Abort(ctx context.Context, tempKeys []string) error {
	var lastErr error
	for _, key := range tempKeys {
		if key == "" {
			continue
		}
		if err := s.bucket.Delete(ctx, key); err != nil && gcerrors.Code(err) != gcerrors.NotFound {
			lastErr = err
		}
	}
	return lastErr
}

// Head returns metadata about a stored object.
func (s *BlobStore) Head(ctx context.Context, key string) (*ObjectInfo, error) {
	attrs, err := s.bucket.Attributes(ctx, key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("get attributes for %s: %w", key, err)
	}

	return &ObjectInfo{
		Key:     key,
		Size:    attrs.Size,
		ETag:    attrs.ETag,
		ModTime: attrs.ModTime,
	}, nil
}

// Read returns the contents of a stored object.
func (s *BlobStore) Read(ctx context.Context, key string) ([]byte, error) {
	data, err := s.bucket.ReadAll(ctx, key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

// List returns all keys with the given prefix.
func (s *BlobStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string

	iter := s.bucket.List(&blob.ListOptions{
		Prefix: prefix,
	})

	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}
		if obj.IsDir {
			continue
		}
		keys = append(keys, obj.Key)
	}

	return keys, nil
}

// Verify BlobStore implements AtomicStore.
var _ AtomicStore = (*BlobStore)(nil)
