// Package runner orchestrates one reaction space build: load the components,
// build the product, encode, validate and publish it, then record lineage.
package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/withObsrvr/rxnspace/internal/catalog"
	"github.com/withObsrvr/rxnspace/internal/checkpoint"
	"github.com/withObsrvr/rxnspace/internal/config"
	"github.com/withObsrvr/rxnspace/internal/logging"
	"github.com/withObsrvr/rxnspace/internal/metrics"
	"github.com/withObsrvr/rxnspace/internal/provenance"
	"github.com/withObsrvr/rxnspace/internal/source"
	"github.com/withObsrvr/rxnspace/internal/space"
	"github.com/withObsrvr/rxnspace/internal/storage"
	"github.com/withObsrvr/rxnspace/internal/tables"
)

// Runner builds and publishes a reaction space.
type Runner struct {
	cfg        config.Config
	src        source.ComponentSource
	store      storage.ResultStore
	catalog    catalog.Writer
	emitter    provenance.Emitter
	checkpoint checkpoint.Manager
	datasetID  int64        // cached dataset ID from catalog
	log        *slog.Logger // structured logger
}

// Option customizes a Runner.
type Option func(*Runner)

// WithCatalog sets the lineage catalog. The default records nothing.
func WithCatalog(w catalog.Writer) Option {
	return func(r *Runner) { r.catalog = w }
}

// WithEmitter sets the provenance emitter. The default is built from cfg.Provenance.
func WithEmitter(e provenance.Emitter) Option {
	return func(r *Runner) { r.emitter = e }
}

// WithCheckpoint sets the checkpoint manager. The default is built from cfg.Checkpoint.
func WithCheckpoint(m checkpoint.Manager) Option {
	return func(r *Runner) { r.checkpoint = m }
}

// New creates a Runner over an existing source and store.
func New(cfg config.Config, src source.ComponentSource, store storage.ResultStore, opts ...Option) *Runner {
	r := &Runner{
		cfg:     cfg,
		src:     src,
		store:   store,
		catalog: catalog.NoopWriter{},
		log:     logging.Component("runner"),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.emitter == nil {
		r.emitter = provenance.NewEmitter(cfg.Provenance)
	}
	if r.checkpoint == nil {
		cpMgr, err := checkpoint.NewManager(checkpoint.Config{
			Enabled: cfg.Checkpoint.Enabled,
			Dir:     cfg.Checkpoint.Dir,
		})
		if err != nil {
			r.log.Warn("failed to create checkpoint manager", "error", err)
		} else {
			r.checkpoint = cpMgr
		}
	}
	return r
}

// Open creates the source, store and catalog described by cfg and returns a
// Runner that owns them.
func Open(ctx context.Context, cfg config.Config) (*Runner, error) {
	src, err := source.NewComponentSource(ctx, source.SourceConfig{
		Type:      cfg.Source.Type,
		LocalPath: cfg.Source.Dir,
		Bucket:    cfg.Source.Bucket,
		Prefix:    cfg.Source.Prefix,
		Endpoint:  cfg.Source.Endpoint,
		Region:    cfg.Source.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create source: %w", err)
	}

	store, err := storage.NewAtomicStore(ctx, storage.StorageConfig{
		Backend:  cfg.Storage.Backend,
		LocalDir: cfg.Storage.Dir,
		Bucket:   cfg.Storage.Bucket,
		Endpoint: cfg.Storage.Endpoint,
		Region:   cfg.Storage.Region,
		Prefix:   cfg.Storage.Prefix,
	})
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("create storage: %w", err)
	}

	cat, err := catalog.NewWriter(ctx, catalog.CatalogConfig{
		PostgresDSN: cfg.Catalog.PostgresDSN,
		Namespace:   cfg.Catalog.Namespace,
	})
	if err != nil {
		if cfg.Catalog.Strict {
			store.Close()
			src.Close()
			return nil, fmt.Errorf("connect catalog (strict mode): %w", err)
		}
		slog.Warn("catalog unavailable, lineage will not be recorded", "error", err)
		cat = catalog.NoopWriter{}
	}

	return New(cfg, src, store, WithCatalog(cat)), nil
}

// Close releases every collaborator.
func (r *Runner) Close() error {
	return errors.Join(
		r.emitter.Close(),
		r.catalog.Close(),
		r.store.Close(),
		r.src.Close(),
	)
}

// Run performs one build. It returns ErrSpaceExists when the published
// output already reflects the current inputs.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	if logging.CorrelationID(ctx) == "" {
		ctx = logging.WithCorrelationID(ctx, logging.GenerateCorrelationID())
	}

	res := &Result{
		BuildID: uuid.New().String(),
		Dataset: r.cfg.Space.Dataset,
	}
	log := logging.BuildLogger(ctx, res.Dataset, res.BuildID)
	labels := r.labels()

	log.Info("starting build",
		"components", len(r.cfg.Space.Components),
		"format", r.cfg.Output.Format,
		"source", r.src.Location(),
	)

	err := r.run(ctx, log, res)
	m := metrics.Get()

	switch {
	case err == nil:
		res.Duration = time.Since(start)
		if m != nil {
			m.IncBuildsCompleted(labels)
		}
		log.Info("build complete",
			"entries", res.Entries,
			"width", res.Schema.Width(),
			"bytes", res.Output.ByteSize,
			"checksum", res.Output.Checksum,
			"uri", res.Publish.OutputURI,
			"duration", res.Duration.String(),
		)
		return res, nil

	case errors.Is(err, ErrSpaceExists):
		if m != nil {
			m.IncBuildsSkipped(labels)
		}
		log.Info("skipping build (inputs unchanged)")
		return nil, err

	default:
		if m != nil {
			m.IncBuildsFailed(labels)
		}
		return nil, err
	}
}

// run is the build lifecycle.
//
// The order of operations is critical and must not be changed:
//  1. Load components and fingerprint the inputs
//  2. Check idempotency (skip if already published from these inputs)
//  3. Build the reaction space in memory
//  4. Encode and validate
//  5. Write to storage (temp -> finalize if supported)
//  6. Record lineage and quality in catalog
//  7. Emit provenance event (references immutable storage)
//  8. Update checkpoint
func (r *Runner) run(ctx context.Context, log *slog.Logger, res *Result) error {
	labels := r.labels()
	m := metrics.Get()

	if len(r.cfg.Space.Components) == 0 {
		return r.stageError("build", fmt.Errorf("build space: %w", space.ErrNoComponents))
	}

	// Step 1: Load
	stepStart := time.Now()
	loaded, err := r.loadComponents(ctx)
	if err != nil {
		return r.stageError("load", fmt.Errorf("load components: %w", err))
	}
	if m != nil {
		m.ObserveLoadDuration(labels, time.Since(stepStart).Seconds())
		for _, lc := range loaded {
			m.ObserveComponentRecords(labels, float64(lc.Table.Len()))
		}
	}
	res.Components = loaded
	res.InputHash = inputHash(r.cfg, loaded)
	log.Debug("loaded components", "count", len(loaded), "input_hash", res.InputHash)

	// Step 2: Idempotency
	ref := outputRef(r.cfg)
	if err := r.checkExisting(ctx, log, ref, res.InputHash); err != nil {
		return err
	}

	// Step 3: Build
	stepStart = time.Now()
	s, err := newBuilder(r.cfg.Space).Build(ctx, componentTables(loaded))
	if err != nil {
		return r.stageError("build", fmt.Errorf("build space: %w", err))
	}
	res.Schema = s.Schema
	res.Entries = s.Len()
	if m != nil {
		m.ObserveBuildDuration(labels, time.Since(stepStart).Seconds())
		m.ObserveSpaceEntries(labels, float64(s.Len()))
		m.SetSpaceWidth(labels, float64(s.Width()))
	}

	// Step 4: Encode and validate
	stepStart = time.Now()
	out, err := tables.Encode(s, outputConfig(r.cfg))
	if err != nil {
		return r.stageError("encode", err)
	}
	res.Output = out
	if m != nil {
		m.ObserveEncodeDuration(labels, time.Since(stepStart).Seconds())
		m.ObserveOutputBytes(labels, float64(out.ByteSize))
	}

	res.Validation = ValidateSpace(loaded, s, out)
	for _, w := range res.Validation.Warnings {
		log.Warn("validation warning", "warning", w)
	}
	if !res.Validation.Passed {
		if err := r.ensureDataset(ctx, s.Schema); err == nil {
			if err := RecordQualityResult(ctx, r.catalog, r.datasetID, res.BuildID, res.Validation); err != nil {
				log.Warn("failed to record quality", "error", err)
			}
		}
		return r.stageError("validate", fmt.Errorf("%w: %s", ErrValidation, res.Validation.Summary()))
	}

	// Step 5: Publish
	stepStart = time.Now()
	pub, err := r.publish(ctx, ref, buildManifest(r.cfg, res.BuildID, res.InputHash, loaded, out), out)
	if err != nil {
		return r.stageError("publish", err)
	}
	res.Publish = *pub
	if m != nil {
		m.ObservePublishDuration(labels, time.Since(stepStart).Seconds())
	}
	log.Debug("published output", "key", pub.OutputKey, "manifest", pub.ManifestKey)

	// Step 6: Catalog
	if err := r.recordCatalog(ctx, log, res); err != nil {
		return err
	}

	// Step 7: Provenance
	// This MUST be after storage and catalog are committed
	if err := r.emitProvenance(ctx, log, res); err != nil {
		return err
	}

	// Step 8: Checkpoint
	// Only checkpoint after everything else succeeded
	r.saveCheckpoint(ctx, log, res)

	return nil
}

// Schema loads the configured components and returns the schema a build
// would produce, without enumerating the product.
func (r *Runner) Schema(ctx context.Context) (space.Schema, []LoadedComponent, error) {
	if len(r.cfg.Space.Components) == 0 {
		return space.Schema{}, nil, space.ErrNoComponents
	}
	loaded, err := r.loadComponents(ctx)
	if err != nil {
		return space.Schema{}, nil, fmt.Errorf("load components: %w", err)
	}
	return space.DeriveSchema(componentTables(loaded)), loaded, nil
}

// checkExisting refuses to replace a published output unless overwrite is
// enabled. An output published from identical inputs is reported as a skip.
func (r *Runner) checkExisting(ctx context.Context, log *slog.Logger, ref storage.OutputRef, hash string) error {
	if r.cfg.Storage.AllowOverwrite {
		return nil
	}

	exists, err := r.store.Exists(ctx, ref)
	if err != nil {
		log.Warn("existence check failed", "error", err)
		return nil
	}
	if !exists {
		return nil
	}

	key := ref.Path(r.cfg.Storage.Prefix)
	if r.upToDate(ctx, log, ref, hash) {
		return ErrSpaceExists
	}
	return fmt.Errorf("%w: %s (enable overwrite to replace it)", ErrOutputExists, r.store.URI(key))
}

// upToDate reports whether the object at ref was published from inputs
// fingerprinted as hash and still holds the bytes that build wrote.
func (r *Runner) upToDate(ctx context.Context, log *slog.Logger, ref storage.OutputRef, hash string) bool {
	atomicStore := storage.AsAtomic(r.store)
	if atomicStore == nil {
		return false
	}

	key := ref.Path(r.cfg.Storage.Prefix)
	want := r.publishedChecksum(ctx, log, atomicStore, ref, hash)
	if want == "" {
		return false
	}

	data, err := atomicStore.Read(ctx, key)
	if err != nil {
		log.Warn("failed to read published output", "key", key, "error", err)
		return false
	}
	if !tables.VerifyChecksum(data, want) {
		log.Warn("published output does not match its recorded checksum", "key", key)
		return false
	}
	return true
}

// publishedChecksum returns the checksum recorded for ref by a build from
// inputs fingerprinted as hash, or "" when there is none. The checkpoint is
// consulted first, then the manifest next to the output.
func (r *Runner) publishedChecksum(ctx context.Context, log *slog.Logger, store storage.AtomicStore, ref storage.OutputRef, hash string) string {
	key := ref.Path(r.cfg.Storage.Prefix)

	if r.checkpoint != nil {
		cp, err := r.checkpoint.Load(ctx, r.cfg.Space.Dataset)
		if err != nil && !errors.Is(err, checkpoint.ErrNoCheckpoint) {
			log.Warn("failed to load checkpoint", "error", err)
		}
		if cp != nil && cp.InputHash == hash && cp.OutputKey == key {
			return cp.OutputChecksum
		}
	}

	raw, err := store.Read(ctx, ref.ManifestPath(r.cfg.Storage.Prefix))
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Warn("failed to read manifest", "error", err)
		}
		return ""
	}
	var manifest storage.Manifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		log.Warn("failed to parse manifest", "error", err)
		return ""
	}
	if manifest.InputHash != hash {
		return ""
	}
	return manifest.Output.Checksum
}

// stageError counts a failure of one pipeline stage and returns err.
func (r *Runner) stageError(stage string, err error) error {
	if m := metrics.Get(); m != nil {
		l := r.labels()
		l.Stage = stage
		m.IncStageErrors(l)
	}
	return err
}

// labels returns the standard metric labels for this runner.
func (r *Runner) labels() metrics.Labels {
	return metrics.Labels{
		Dataset: datasetName(r.cfg),
		Format:  r.cfg.Output.Format,
		Backend: r.cfg.Storage.Backend,
	}
}

func datasetName(cfg config.Config) string {
	if cfg.Space.Dataset == "" {
		return "default"
	}
	return cfg.Space.Dataset
}
