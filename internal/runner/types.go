package runner

import (
	"errors"
	"time"

	"github.com/withObsrvr/rxnspace/internal/component"
	"github.com/withObsrvr/rxnspace/internal/space"
	"github.com/withObsrvr/rxnspace/internal/storage"
	"github.com/withObsrvr/rxnspace/internal/tables"
)

// Version information (set via ldflags)
var (
	Version = "v0.1.0"
	GitSHA  = "unknown"
)

const producerName = "rxnspace"

var (
	// ErrSpaceExists is returned when the output is already published from
	// the same inputs and overwrite is disabled. Callers treat it as a skip.
	ErrSpaceExists = errors.New("reaction space already published")

	// ErrOutputExists is returned when an output exists that cannot be shown
	// to come from the current inputs and overwrite is disabled.
	ErrOutputExists = errors.New("output already exists")

	// ErrValidation is returned when an encoded space fails quality checks.
	ErrValidation = errors.New("reaction space failed validation")
)

// LoadedComponent is one ingested component with the provenance of its bytes.
type LoadedComponent struct {
	Table    *component.Table
	Source   string // path as configured
	Checksum string // sha256 over the decoded source bytes
	Bytes    int64
}

// Result is the outcome of a successful build.
type Result struct {
	BuildID    string
	Dataset    string
	InputHash  string
	Components []LoadedComponent
	Schema     space.Schema
	Entries    int
	Output     *tables.Output
	Publish    storage.PublishResult
	Validation ValidationResult
	Duration   time.Duration
}
