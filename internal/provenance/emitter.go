// Package provenance emits hash-chained audit events for published reaction
// spaces.
package provenance

import (
	"context"
	"log"
	"time"

	"github.com/withObsrvr/rxnspace/internal/config"
)

const (
	eventVersion = "1.0"
	eventType    = "reaction_space_build"
)

// Emitter is the interface for provenance event emission. EmitBuild fills in
// the event ID, timestamp and chain hashes on evt.
type Emitter interface {
	EmitBuild(ctx context.Context, evt *Event) error
	Close() error
}

// NewEmitter creates an appropriate emitter based on configuration.
func NewEmitter(cfg config.ProvenanceConfig) Emitter {
	if !cfg.Enabled {
		log.Println("[provenance] disabled, using no-op emitter")
		return &noopEmitter{}
	}

	if cfg.Endpoint != "" {
		emitter, err := NewHTTPEmitter(cfg)
		if err != nil {
			log.Printf("[provenance] failed to create HTTP emitter: %v, falling back to file-only", err)
			return createFileOnlyEmitter(cfg)
		}
		log.Printf("[provenance] using HTTP emitter -> %s", cfg.Endpoint)
		return &httpEmitterWrapper{emitter: emitter}
	}

	return createFileOnlyEmitter(cfg)
}

func createFileOnlyEmitter(cfg config.ProvenanceConfig) Emitter {
	emitter, err := NewFileOnlyEmitter(cfg.BackupDir)
	if err != nil {
		log.Printf("[provenance] failed to create file emitter: %v, using no-op", err)
		return &noopEmitter{}
	}
	log.Printf("[provenance] using file-only emitter -> %s", cfg.BackupDir)
	return &fileOnlyEmitterWrapper{emitter: emitter}
}

// stamp sets the fields every emitted event carries.
func stamp(evt *Event) {
	evt.Version = eventVersion
	evt.EventType = eventType
	evt.EventID = GenerateEventID()
	evt.Timestamp = time.Now().UTC()
}

type httpEmitterWrapper struct {
	emitter *HTTPEmitter
}

func (w *httpEmitterWrapper) EmitBuild(ctx context.Context, evt *Event) error {
	return w.emitter.Emit(ctx, evt)
}

func (w *httpEmitterWrapper) Close() error {
	return w.emitter.Close()
}

type fileOnlyEmitterWrapper struct {
	emitter *FileOnlyEmitter
}

func (w *fileOnlyEmitterWrapper) EmitBuild(_ context.Context, evt *Event) error {
	return w.emitter.Emit(evt)
}

func (w *fileOnlyEmitterWrapper) Close() error {
	return w.emitter.Close()
}

// noopEmitter discards all events.
type noopEmitter struct{}

func (n *noopEmitter) EmitBuild(_ context.Context, _ *Event) error {
	return nil
}

func (n *noopEmitter) Close() error {
	return nil
}
