package catalog

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// PostgresWriter implements Writer using PostgreSQL.
type PostgresWriter struct {
	pool         *pgxpool.Pool
	cfg          CatalogConfig
	mu           sync.RWMutex
	datasetCache map[string]int64 // cache dataset IDs
}

// NewPostgresWriter creates a new PostgreSQL catalog writer.
func NewPostgresWriter(ctx context.Context, cfg CatalogConfig) (*PostgresWriter, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("parse DSN: %w", err)
	}

	// Configure connection pool
	poolCfg.MaxConns = 5
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	w := &PostgresWriter{
		pool:         pool,
		cfg:          cfg,
		datasetCache: make(map[string]int64),
	}

	if err := w.initSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	log.Println("[catalog] connected to PostgreSQL catalog")
	return w, nil
}

// initSchema creates the _meta_* tables if they don't exist.
func (w *PostgresWriter) initSchema(ctx context.Context) error {
	_, err := w.pool.Exec(ctx, schemaSQL)
	if err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// EnsureDataset registers or retrieves a dataset entry.
func (w *PostgresWriter) EnsureDataset(ctx context.Context, info DatasetInfo) (int64, error) {
	if info.Namespace == "" {
		info.Namespace = w.cfg.Namespace
	}

	cacheKey := info.Namespace + "/" + info.Dataset
	w.mu.RLock()
	if id, ok := w.datasetCache[cacheKey]; ok {
		w.mu.RUnlock()
		return id, nil
	}
	w.mu.RUnlock()

	query := `
		INSERT INTO _meta_datasets (namespace, dataset, schema_hash, description)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (namespace, dataset)
		DO UPDATE SET schema_hash = EXCLUDED.schema_hash, updated_at = NOW()
		RETURNING id
	`

	var id int64
	err := w.pool.QueryRow(ctx, query,
		info.Namespace,
		info.Dataset,
		info.SchemaHash,
		info.Description,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("ensure dataset: %w", err)
	}

	w.mu.Lock()
	w.datasetCache[cacheKey] = id
	w.mu.Unlock()

	return id, nil
}

// RecordBuild writes a lineage record for a published reaction space.
func (w *PostgresWriter) RecordBuild(ctx context.Context, rec BuildRecord) error {
	if rec.DatasetID == 0 {
		return fmt.Errorf("DatasetID is required (call EnsureDataset first)")
	}

	components, err := json.Marshal(rec.Components)
	if err != nil {
		return fmt.Errorf("marshal components: %w", err)
	}

	query := `
		INSERT INTO _meta_lineage (
			dataset_id, build_id, input_hash, components, row_count, byte_size,
			checksum, prev_checksum, storage_path, storage_uri,
			producer_version, producer_git_sha, source_type, source_location
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (dataset_id, build_id)
		DO UPDATE SET
			row_count = EXCLUDED.row_count,
			byte_size = EXCLUDED.byte_size,
			checksum = EXCLUDED.checksum,
			created_at = NOW()
	`

	_, err = w.pool.Exec(ctx, query,
		rec.DatasetID,
		rec.BuildID,
		rec.InputHash,
		components,
		rec.RowCount,
		rec.ByteSize,
		rec.Checksum,
		nullable(rec.PrevChecksum),
		rec.StoragePath,
		nullable(rec.StorageURI),
		rec.ProducerVersion,
		rec.ProducerGitSHA,
		rec.SourceType,
		rec.SourceLocation,
	)
	if err != nil {
		return fmt.Errorf("record build: %w", err)
	}

	log.Printf("[catalog] recorded lineage for build %s (%d rows)", rec.BuildID, rec.RowCount)
	return nil
}

// RecordQuality records a validation result.
func (w *PostgresWriter) RecordQuality(ctx context.Context, rec QualityRecord) error {
	query := `
		INSERT INTO _meta_quality (dataset_id, build_id, passed, error_message)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (dataset_id, build_id)
		DO UPDATE SET
			passed = EXCLUDED.passed,
			error_message = EXCLUDED.error_message,
			created_at = NOW()
	`

	_, err := w.pool.Exec(ctx, query,
		rec.DatasetID,
		rec.BuildID,
		rec.Passed,
		nullable(rec.ErrorMessage),
	)
	if err != nil {
		return fmt.Errorf("insert quality: %w", err)
	}
	return nil
}

// LastBuild returns the most recent lineage record for a dataset.
func (w *PostgresWriter) LastBuild(ctx context.Context, datasetID int64) (*BuildRecord, error) {
	query := `
		SELECT build_id, input_hash, components, row_count, byte_size, checksum,
		       COALESCE(prev_checksum, ''), storage_path, COALESCE(storage_uri, ''),
		       producer_version, COALESCE(producer_git_sha, ''),
		       COALESCE(source_type, ''), COALESCE(source_location, ''), created_at
		FROM _meta_lineage
		WHERE dataset_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	rec := BuildRecord{DatasetID: datasetID}
	var components []byte

	err := w.pool.QueryRow(ctx, query, datasetID).Scan(
		&rec.BuildID, &rec.InputHash, &components, &rec.RowCount, &rec.ByteSize,
		&rec.Checksum, &rec.PrevChecksum, &rec.StoragePath, &rec.StorageURI,
		&rec.ProducerVersion, &rec.ProducerGitSHA,
		&rec.SourceType, &rec.SourceLocation, &rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // No previous build
		}
		return nil, fmt.Errorf("get last build: %w", err)
	}

	if err := json.Unmarshal(components, &rec.Components); err != nil {
		return nil, fmt.Errorf("decode components: %w", err)
	}
	return &rec, nil
}

// Close releases database connections.
func (w *PostgresWriter) Close() error {
	w.pool.Close()
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
