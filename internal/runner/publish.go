package runner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/withObsrvr/rxnspace/internal/catalog"
	"github.com/withObsrvr/rxnspace/internal/checkpoint"
	"github.com/withObsrvr/rxnspace/internal/space"
	"github.com/withObsrvr/rxnspace/internal/storage"
	"github.com/withObsrvr/rxnspace/internal/tables"
)

// publish writes the encoded output and its manifest. Atomic stores stage
// both under temp keys and finalize them together.
func (r *Runner) publish(ctx context.Context, ref storage.OutputRef, manifest *storage.Manifest, out *tables.Output) (*storage.PublishResult, error) {
	prefix := r.cfg.Storage.Prefix
	key := ref.Path(prefix)

	if atomicStore := storage.AsAtomic(r.store); atomicStore != nil {
		if n, err := storage.SweepTemp(ctx, atomicStore, ref, prefix); err != nil {
			r.log.Warn("failed to remove stale temp files", "key", key, "error", err)
		} else if n > 0 {
			r.log.Info("removed stale temp files", "key", key, "count", n)
		}
		if err := writeAtomic(ctx, atomicStore, ref, out.Data, manifest); err != nil {
			return nil, fmt.Errorf("atomic write: %w", err)
		}
		info, err := atomicStore.Head(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("verify published output: %w", err)
		}
		if info.Size != out.ByteSize {
			return nil, fmt.Errorf("verify published output: size %d, expected %d", info.Size, out.ByteSize)
		}
	} else {
		// Fallback: direct write (non-atomic)
		if err := r.store.WriteOutput(ctx, ref, out.Data); err != nil {
			return nil, fmt.Errorf("write output: %w", err)
		}
		if err := r.store.WriteManifest(ctx, ref, manifest); err != nil {
			return nil, fmt.Errorf("write manifest: %w", err)
		}
	}

	return &storage.PublishResult{
		OutputKey:   key,
		ManifestKey: ref.ManifestPath(prefix),
		OutputURI:   r.store.URI(key),
		Checksum:    out.Checksum,
		ByteSize:    out.ByteSize,
	}, nil
}

// writeAtomic writes output and manifest atomically using temp keys.
// If any step fails, all temp keys are cleaned up.
func writeAtomic(ctx context.Context, store storage.AtomicStore, ref storage.OutputRef, data []byte, manifest *storage.Manifest) error {
	var tempKeys []string

	tempOutput, err := store.WriteOutputTemp(ctx, ref, data)
	if err != nil {
		return fmt.Errorf("write output temp: %w", err)
	}
	tempKeys = append(tempKeys, tempOutput)

	tempManifest, err := store.WriteManifestTemp(ctx, ref, manifest)
	if err != nil {
		store.Abort(ctx, tempKeys)
		return fmt.Errorf("write manifest temp: %w", err)
	}
	tempKeys = append(tempKeys, tempManifest)

	// Finalize handles its own cleanup on failure
	if err := store.Finalize(ctx, ref, tempKeys); err != nil {
		return fmt.Errorf("finalize: %w", err)
	}
	return nil
}

// ensureDataset registers the dataset with the catalog once per runner.
func (r *Runner) ensureDataset(ctx context.Context, schema space.Schema) error {
	if r.datasetID > 0 {
		return nil
	}
	id, err := r.catalog.EnsureDataset(ctx, catalog.DatasetInfo{
		Namespace:   r.cfg.Catalog.Namespace,
		Dataset:     datasetName(r.cfg),
		SchemaHash:  tables.Fingerprint(schema.Columns...),
		Description: fmt.Sprintf("reaction space over %d components", len(r.cfg.Space.Components)),
	})
	if err != nil {
		return err
	}
	r.datasetID = id
	return nil
}

// recordCatalog writes lineage and quality for a published build. Failures
// abort the build only in strict mode; the output is already published.
func (r *Runner) recordCatalog(ctx context.Context, log *slog.Logger, res *Result) error {
	if err := r.ensureDataset(ctx, res.Schema); err != nil {
		return r.catalogFailure(log, "ensure dataset", err)
	}
	if r.datasetID == 0 {
		return nil // No catalog configured
	}

	var prevChecksum string
	if last, err := r.catalog.LastBuild(ctx, r.datasetID); err != nil {
		log.Warn("failed to get last build", "error", err)
	} else if last != nil {
		prevChecksum = last.Checksum
	}

	if err := r.catalog.RecordBuild(ctx, buildRecord(r, res, prevChecksum)); err != nil {
		return r.catalogFailure(log, "record build", err)
	}
	if err := RecordQualityResult(ctx, r.catalog, r.datasetID, res.BuildID, res.Validation); err != nil {
		return r.catalogFailure(log, "record quality", err)
	}

	log.Debug("recorded lineage", "dataset_id", r.datasetID, "prev_checksum", prevChecksum)
	return nil
}

func (r *Runner) catalogFailure(log *slog.Logger, op string, err error) error {
	err = r.stageError("catalog", err)
	if r.cfg.Catalog.Strict {
		return fmt.Errorf("catalog %s (strict mode): %w", op, err)
	}
	log.Warn("catalog "+op+" failed", "error", err)
	return nil
}

// emitProvenance emits the audit event for a published build.
func (r *Runner) emitProvenance(ctx context.Context, log *slog.Logger, res *Result) error {
	evt := provenanceEvent(r.cfg, res)
	if err := r.emitter.EmitBuild(ctx, evt); err != nil {
		err = r.stageError("provenance", err)
		if r.cfg.Provenance.Strict {
			return fmt.Errorf("emit provenance event (strict mode): %w", err)
		}
		// The output is already committed - log and continue
		log.Warn("failed to emit provenance event", "error", err)
		return nil
	}
	if evt.EventID != "" {
		log.Debug("emitted provenance event",
			"event_id", evt.EventID,
			"event_hash", shortHash(evt.Chain.EventHash),
		)
	}
	return nil
}

// saveCheckpoint records the build so an unchanged re-run can be skipped.
func (r *Runner) saveCheckpoint(ctx context.Context, log *slog.Logger, res *Result) {
	if r.checkpoint == nil {
		return
	}
	cp := &checkpoint.Checkpoint{
		Dataset:        r.cfg.Space.Dataset,
		BuildID:        res.BuildID,
		InputHash:      res.InputHash,
		OutputKey:      res.Publish.OutputKey,
		OutputChecksum: res.Output.Checksum,
		RowCount:       res.Output.RowCount,
		UpdatedAt:      time.Now().UTC(),
	}
	if err := r.checkpoint.Save(ctx, cp); err != nil {
		log.Warn("failed to save checkpoint", "error", err)
	}
}

func shortHash(h string) string {
	h = strings.TrimPrefix(h, "sha256:")
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
