package provenance

import (
	"time"
)

// Event is a provenance record for one published reaction space.
type Event struct {
	Version   string    `json:"version"`
	EventType string    `json:"event_type"`
	EventID   string    `json:"event_id"`
	Timestamp time.Time `json:"timestamp"`

	Space      SpaceInfo       `json:"space"`
	Output     OutputInfo      `json:"output"`
	Components []ComponentInfo `json:"components"`
	Producer   ProducerInfo    `json:"producer"`
	Chain      ChainInfo       `json:"chain"`
}

// SpaceInfo identifies the build being audited.
type SpaceInfo struct {
	Dataset   string `json:"dataset"`
	BuildID   string `json:"build_id"`
	InputHash string `json:"input_hash"`
	Separator string `json:"separator"`
}

// OutputInfo contains checksum and metadata for the published file.
type OutputInfo struct {
	Format      string `json:"format"`
	Checksum    string `json:"checksum"`
	RowCount    int64  `json:"row_count"`
	Width       int    `json:"width"`
	StoragePath string `json:"storage_path"`
	ByteSize    int64  `json:"byte_size"`
}

// ComponentInfo records one input, in build order.
type ComponentInfo struct {
	Index    int    `json:"index"`
	Name     string `json:"name"`
	Checksum string `json:"checksum"`
	Records  int    `json:"records"`
}

// ProducerInfo identifies the software that produced the data.
type ProducerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	GitSHA  string `json:"git_sha"`
}

// ChainInfo provides hash chaining for tamper-evident audit log.
type ChainInfo struct {
	PrevEventHash string `json:"prev_event_hash"`
	EventHash     string `json:"event_hash"`
}

// ChainKey returns the unique key for this dataset's chain.
func (s SpaceInfo) ChainKey() string {
	if s.Dataset == "" {
		return "rxnspace/default"
	}
	return "rxnspace/" + s.Dataset
}

// SetChainHashes links the event to prev and computes its own hash.
func (e *Event) SetChainHashes(prev string) {
	e.Chain.PrevEventHash = prev
	e.Chain.EventHash = ComputeEventHash(e)
}
