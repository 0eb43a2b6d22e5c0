package provenance

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// FileBackup saves events to local files for backup/audit.
type FileBackup struct {
	dir string
}

// NewFileBackup creates a new file backup handler.
func NewFileBackup(dir string) (*FileBackup, error) {
	if dir == "" {
		dir = "./provenance"
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}

	return &FileBackup{dir: dir}, nil
}

// Path returns the backup file for an event: {dataset}_{build_id}.json
func (f *FileBackup) Path(evt *Event) string {
	dataset := evt.Space.Dataset
	if dataset == "" {
		dataset = "default"
	}
	dataset = strings.ReplaceAll(dataset, "/", "_")
	return filepath.Join(f.dir, fmt.Sprintf("%s_%s.json", dataset, evt.Space.BuildID))
}

// Save writes an event to a local JSON file.
func (f *FileBackup) Save(evt *Event) error {
	path := f.Path(evt)

	data, err := json.MarshalIndent(evt, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}

	log.Printf("[provenance] backed up to %s", path)
	return nil
}

// FileOnlyEmitter writes events to files only (no HTTP).
// Used when no provenance endpoint is configured.
type FileOnlyEmitter struct {
	chainTracker *ChainTracker
	backup       *FileBackup
}

// NewFileOnlyEmitter creates an emitter that only writes to local files.
func NewFileOnlyEmitter(backupDir string) (*FileOnlyEmitter, error) {
	chainTracker, err := NewChainTracker(backupDir)
	if err != nil {
		return nil, fmt.Errorf("create chain tracker: %w", err)
	}

	backup, err := NewFileBackup(backupDir)
	if err != nil {
		return nil, fmt.Errorf("create file backup: %w", err)
	}

	return &FileOnlyEmitter{
		chainTracker: chainTracker,
		backup:       backup,
	}, nil
}

// Emit writes an event to a local file only.
func (e *FileOnlyEmitter) Emit(evt *Event) error {
	chainKey := evt.Space.ChainKey()

	prevHash, _ := e.chainTracker.GetHead(chainKey)

	stamp(evt)
	evt.SetChainHashes(prevHash)

	log.Printf("[provenance] file-only emit for %s build=%s event_hash=%s",
		chainKey, evt.Space.BuildID, evt.Chain.EventHash)

	if err := e.backup.Save(evt); err != nil {
		return err
	}

	if err := e.chainTracker.SetHead(chainKey, evt.Chain.EventHash); err != nil {
		log.Printf("[provenance] warning: failed to update chain head: %v", err)
	}

	return nil
}

// Close releases resources.
func (e *FileOnlyEmitter) Close() error {
	return nil
}
