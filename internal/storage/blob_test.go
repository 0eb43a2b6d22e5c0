package storage

import (
	"context"
	"errors"
	"testing"

	"gocloud.dev/blob/memblob"
)

func TestBlobStoreAtomicPublish(t *testing.T) {
	ctx := context.Background()
	bucket := memblob.OpenBucket(nil)
	store := NewBlobStore(bucket, "mem://test", "spaces/")
	defer store.Close()

	ref := OutputRef{Dataset: "screen", Filename: "reaction_space.parquet"}
	data := []byte("fake parquet bytes")

	tempOutput, err := store.WriteOutputTemp(ctx, ref, data)
	if err != nil {
		t.Fatalf("WriteOutputTemp failed: %v", err)
	}
	tempManifest, err := store.WriteManifestTemp(ctx, ref, testManifest(data))
	if err != nil {
		t.Fatalf("WriteManifestTemp failed: %v", err)
	}

	if exists, _ := store.Exists(ctx, ref); exists {
		t.Error("output should not exist before Finalize")
	}

	if err := store.Finalize(ctx, ref, []string{tempOutput, tempManifest}); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	got, err := bucket.ReadAll(ctx, ref.Path("spaces/"))
	if err != nil {
		t.Fatalf("read published output: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("published data = %q", got)
	}

	keys, err := store.List(ctx, "spaces/")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("expected output and manifest only, got %v", keys)
	}

	info, err := store.Head(ctx, ref.Path("spaces/"))
	if err != nil {
		t.Fatalf("Head failed: %v", err)
	}
	if info.Size != int64(len(data)) {
		t.Errorf("Head size = %d, want %d", info.Size, len(data))
	}

	if got := store.URI(ref.Path("spaces/")); got != "mem://test/spaces/screen/reaction_space.parquet" {
		t.Errorf("URI = %q", got)
	}
}

func TestBlobStoreAbortAndHeadMissing(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore("")
	defer store.Close()

	ref := OutputRef{Filename: "reaction_space.csv"}
	tempOutput, err := store.WriteOutputTemp(ctx, ref, []byte("x"))
	if err != nil {
		t.Fatalf("WriteOutputTemp failed: %v", err)
	}

	if err := store.Abort(ctx, []string{tempOutput, "never-written"}); err != nil {
		t.Fatalf("Abort failed: %v", err)
	}

	if _, err := store.Head(ctx, tempOutput); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after Abort, got %v", err)
	}
}

func TestBlobStoreDirectWrite(t *testing.T) {
	ctx := context.Background()
	bucket := memblob.OpenBucket(nil)
	store := NewBlobStore(bucket, "mem://test", "")
	defer store.Close()

	ref := OutputRef{Filename: "reaction_space.csv"}
	if err := store.WriteOutput(ctx, ref, []byte("a,b\n")); err != nil {
		t.Fatalf("WriteOutput failed: %v", err)
	}
	if err := store.WriteManifest(ctx, ref, testManifest(nil)); err != nil {
		t.Fatalf("WriteManifest failed: %v", err)
	}

	exists, err := store.Exists(ctx, ref)
	if err != nil || !exists {
		t.Fatalf("Exists = %v, %v", exists, err)
	}
	if ok, _ := bucket.Exists(ctx, ref.ManifestPath("")); !ok {
		t.Error("manifest should exist")
	}
}

func TestBlobStoreFinalizeRestoresPreviousOutput(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore("")
	defer store.Close()

	ref := OutputRef{Filename: "reaction_space.csv"}
	previous := []byte("previous output")

	tempOutput, _ := store.WriteOutputTemp(ctx, ref, previous)
	tempManifest, _ := store.WriteManifestTemp(ctx, ref, testManifest(previous))
	if err := store.Finalize(ctx, ref, []string{tempOutput, tempManifest}); err != nil {
		t.Fatalf("first Finalize failed: %v", err)
	}

	tempOutput, _ = store.WriteOutputTemp(ctx, ref, []byte("replacement"))
	if err := store.Finalize(ctx, ref, []string{tempOutput, "never-written"}); err == nil {
		t.Fatal("expected Finalize to fail")
	}

	data, err := store.Read(ctx, ref.Path(""))
	if err != nil {
		t.Fatalf("previous output should survive a failed Finalize: %v", err)
	}
	if string(data) != string(previous) {
		t.Errorf("output = %q, want %q", data, previous)
	}
	if _, err := store.Head(ctx, ref.ManifestPath("")); err != nil {
		t.Errorf("previous manifest should survive: %v", err)
	}

	keys, err := store.List(ctx, "")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("expected only output and manifest, got %v", keys)
	}
}

func TestSweepTempBlob(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore("spaces/")
	defer store.Close()

	ref := OutputRef{Filename: "reaction_space.parquet"}
	if _, err := store.WriteOutputTemp(ctx, ref, []byte("interrupted")); err != nil {
		t.Fatalf("WriteOutputTemp failed: %v", err)
	}
	if _, err := store.WriteManifestTemp(ctx, ref, testManifest(nil)); err != nil {
		t.Fatalf("WriteManifestTemp failed: %v", err)
	}

	n, err := SweepTemp(ctx, store, ref, "spaces/")
	if err != nil {
		t.Fatalf("SweepTemp failed: %v", err)
	}
	if n != 2 {
		t.Errorf("swept %d keys, want 2", n)
	}

	keys, err := store.List(ctx, "spaces/")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("expected no keys left, got %v", keys)
	}

	if _, err := store.Read(ctx, ref.Path("spaces/")); !errors.Is(err, ErrNotFound) {
		t.Errorf("Read on missing key: expected ErrNotFound, got %v", err)
	}
}
