package tables

import "fmt"

// Format is the serialized form of a reaction space.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

// OutputConfig configures result encoding.
type OutputConfig struct {
	Format      Format
	Filename    string // "reaction_space.csv"
	Compression string // csv: "none" | "zstd"; parquet: "snappy" | "zstd" | "none"
	IndexLabel  string // header of the identifier column; empty like an unnamed index
	Separator   string // recorded in parquet metadata
}

// DefaultOutputConfig returns sensible defaults.
func DefaultOutputConfig() OutputConfig {
	return OutputConfig{
		Format:      FormatCSV,
		Filename:    "reaction_space.csv",
		Compression: "none",
		Separator:   ".",
	}
}

// Validate rejects unknown format and compression combinations.
func (c OutputConfig) Validate() error {
	if c.Filename == "" {
		return fmt.Errorf("output filename required")
	}
	switch c.Format {
	case FormatCSV:
		switch c.Compression {
		case "", "none", "zstd":
		default:
			return fmt.Errorf("unsupported csv compression: %s", c.Compression)
		}
	case FormatParquet:
		switch c.Compression {
		case "", "none", "snappy", "zstd":
		default:
			return fmt.Errorf("unsupported parquet compression: %s", c.Compression)
		}
	default:
		return fmt.Errorf("unknown output format: %s", c.Format)
	}
	return nil
}

// SchemaVersion returns the version of the output layout.
// Increment this when making breaking changes.
const SchemaVersion = "1.0.0"
