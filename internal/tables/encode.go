package tables

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/withObsrvr/rxnspace/internal/space"
)

// Output is an encoded reaction space ready for storage.
type Output struct {
	Format   Format
	Filename string
	Data     []byte
	Checksum string
	RowCount int64
	ByteSize int64
	Columns  []string
}

// EncodeCSV serializes s as CSV, zstd framed when cfg.Compression is "zstd".
func EncodeCSV(s *space.Table, cfg OutputConfig) ([]byte, error) {
	var buf bytes.Buffer

	if cfg.Compression != "zstd" {
		if err := WriteCSV(&buf, s, cfg.IndexLabel); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	if err := WriteCSV(enc, s, cfg.IndexLabel); err != nil {
		enc.Close()
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("close zstd encoder: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeParquet serializes s as a parquet file.
func EncodeParquet(s *space.Table, cfg OutputConfig) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteParquet(&buf, s, cfg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encode serializes s according to cfg and checksums the result.
func Encode(s *space.Table, cfg OutputConfig) (*Output, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		data     []byte
		err      error
		filename = cfg.Filename
	)
	switch cfg.Format {
	case FormatCSV:
		data, err = EncodeCSV(s, cfg)
		if cfg.Compression == "zstd" && !strings.HasSuffix(filename, ".zst") {
			filename += ".zst"
		}
	case FormatParquet:
		data, err = EncodeParquet(s, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", cfg.Format, err)
	}

	return &Output{
		Format:   cfg.Format,
		Filename: filename,
		Data:     data,
		Checksum: ComputeChecksum(data),
		RowCount: int64(s.Len()),
		ByteSize: int64(len(data)),
		Columns:  s.Columns(),
	}, nil
}
