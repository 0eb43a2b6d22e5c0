package checkpoint

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

func TestFileManagerRoundTrip(t *testing.T) {
	dir, err := os.MkdirTemp("", "checkpoint-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	mgr, err := NewManager(Config{Enabled: true, Dir: dir})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	ctx := context.Background()
	if _, err := mgr.Load(ctx, "suzuki"); !errors.Is(err, ErrNoCheckpoint) {
		t.Fatalf("expected ErrNoCheckpoint, got %v", err)
	}

	cp := &Checkpoint{
		Dataset:        "suzuki",
		BuildID:        "build-1",
		InputHash:      "sha256:input",
		OutputKey:      "suzuki/reaction_space.csv",
		OutputChecksum: "sha256:output",
		RowCount:       6,
		UpdatedAt:      time.Now().UTC(),
	}
	if err := mgr.Save(ctx, cp); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := mgr.Load(ctx, "suzuki")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.InputHash != cp.InputHash || got.RowCount != 6 || got.BuildID != "build-1" {
		t.Errorf("loaded checkpoint = %+v", got)
	}

	// datasets are independent
	if _, err := mgr.Load(ctx, "buchwald"); !errors.Is(err, ErrNoCheckpoint) {
		t.Errorf("other dataset should have no checkpoint, got %v", err)
	}
}

func TestNoopManager(t *testing.T) {
	mgr, err := NewManager(Config{Enabled: false})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	ctx := context.Background()
	if err := mgr.Save(ctx, &Checkpoint{Dataset: "x"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := mgr.Load(ctx, "x"); !errors.Is(err, ErrNoCheckpoint) {
		t.Fatalf("expected ErrNoCheckpoint, got %v", err)
	}
}
