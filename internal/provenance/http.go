package provenance

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/withObsrvr/rxnspace/internal/config"
)

// HTTPEmitter sends events to an HTTP endpoint, keeping a local backup.
type HTTPEmitter struct {
	cfg          config.ProvenanceConfig
	client       *http.Client
	chainTracker *ChainTracker
	backup       *FileBackup
	retries      int
	retryDelay   time.Duration
}

// NewHTTPEmitter creates a new HTTP emitter.
func NewHTTPEmitter(cfg config.ProvenanceConfig) (*HTTPEmitter, error) {
	chainTracker, err := NewChainTracker(cfg.BackupDir)
	if err != nil {
		return nil, fmt.Errorf("create chain tracker: %w", err)
	}

	backup, err := NewFileBackup(cfg.BackupDir)
	if err != nil {
		return nil, fmt.Errorf("create file backup: %w", err)
	}

	return &HTTPEmitter{
		cfg: cfg,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		chainTracker: chainTracker,
		backup:       backup,
		retries:      3,
		retryDelay:   time.Second,
	}, nil
}

// Emit sends an event to the configured endpoint.
func (e *HTTPEmitter) Emit(ctx context.Context, evt *Event) error {
	chainKey := evt.Space.ChainKey()

	// 1. Get previous hash for chain
	prevHash, err := e.chainTracker.GetHead(chainKey)
	if err != nil && !errors.Is(err, ErrNoChainHead) {
		return fmt.Errorf("get chain head: %w", err)
	}

	// 2. Stamp and hash
	stamp(evt)
	evt.SetChainHashes(prevHash)

	log.Printf("[provenance] emitting event for %s build=%s", chainKey, evt.Space.BuildID)
	if prevHash == "" {
		log.Printf("[provenance] prev_hash=null (first in chain)")
	} else {
		log.Printf("[provenance] prev_hash=%s", prevHash)
	}
	log.Printf("[provenance] event_hash=%s", evt.Chain.EventHash)

	// 3. Backup to local file (always, before HTTP)
	if err := e.backup.Save(evt); err != nil {
		log.Printf("[provenance] warning: backup failed: %v", err)
	}

	// 4. POST with retry
	if err := e.postWithRetry(ctx, evt); err != nil {
		return fmt.Errorf("provenance emit failed: %w", err)
	}

	// 5. Update chain head
	if err := e.chainTracker.SetHead(chainKey, evt.Chain.EventHash); err != nil {
		log.Printf("[provenance] warning: failed to update chain head: %v", err)
	}

	return nil
}

func (e *HTTPEmitter) postWithRetry(ctx context.Context, evt *Event) error {
	var lastErr error
	delay := e.retryDelay

	for attempt := 1; attempt <= e.retries; attempt++ {
		err := e.post(ctx, evt)
		if err == nil {
			return nil
		}

		lastErr = err
		if attempt < e.retries {
			log.Printf("[provenance] attempt %d/%d failed: %v, retrying in %v", attempt, e.retries, err, delay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("all %d attempts failed: %w", e.retries, lastErr)
}

func (e *HTTPEmitter) post(ctx context.Context, evt *Event) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		log.Printf("[provenance] POST %s -> %s", e.cfg.Endpoint, resp.Status)
		return nil
	}

	respBody, _ := io.ReadAll(resp.Body)
	return fmt.Errorf("http %d: %s", resp.StatusCode, string(respBody))
}

// Close releases resources.
func (e *HTTPEmitter) Close() error {
	return nil
}
