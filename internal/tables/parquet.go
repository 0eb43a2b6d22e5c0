package tables

import (
	"fmt"
	"io"
	"strings"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"

	"github.com/withObsrvr/rxnspace/internal/space"
)

// defaultIDColumn names the identifier column when no index label is set.
const defaultIDColumn = "reaction"

const rowBatch = 1024

// WriteParquet writes the reaction space as a flat parquet file with one
// string identifier column and one DOUBLE column per schema column.
func WriteParquet(w io.Writer, s *space.Table, cfg OutputConfig) error {
	idName := cfg.IndexLabel
	if idName == "" {
		idName = defaultIDColumn
	}

	group := parquet.Group{idName: parquet.String()}
	for _, col := range s.Columns() {
		if _, dup := group[col]; dup {
			return fmt.Errorf("duplicate parquet column %q", col)
		}
		group[col] = parquet.Leaf(parquet.DoubleType)
	}
	schema := parquet.NewSchema("reaction_space", group)

	// parquet orders group fields by name; map each column to its leaf index
	leaf := make(map[string]int, len(group))
	for i, path := range schema.Columns() {
		leaf[path[0]] = i
	}
	idLeaf := leaf[idName]
	featLeaf := make([]int, s.Width())
	for j, col := range s.Columns() {
		featLeaf[j] = leaf[col]
	}

	codec, err := parquetCodec(cfg.Compression)
	if err != nil {
		return err
	}

	pw := parquet.NewWriter(w,
		schema,
		parquet.Compression(codec),
		parquet.KeyValueMetadata("rxnspace.id_column", idName),
		parquet.KeyValueMetadata("rxnspace.columns", strings.Join(s.Columns(), ",")),
		parquet.KeyValueMetadata("rxnspace.separator", cfg.Separator),
		parquet.KeyValueMetadata("rxnspace.schema_version", SchemaVersion),
	)

	rows := make([]parquet.Row, 0, rowBatch)
	for _, e := range s.Entries {
		row := make(parquet.Row, len(group))
		row[idLeaf] = parquet.ByteArrayValue([]byte(e.Identifier)).Level(0, 0, idLeaf)
		for j, v := range e.Features {
			row[featLeaf[j]] = parquet.DoubleValue(v).Level(0, 0, featLeaf[j])
		}
		rows = append(rows, row)

		if len(rows) == rowBatch {
			if _, err := pw.WriteRows(rows); err != nil {
				return fmt.Errorf("write rows: %w", err)
			}
			rows = rows[:0]
		}
	}
	if len(rows) > 0 {
		if _, err := pw.WriteRows(rows); err != nil {
			return fmt.Errorf("write rows: %w", err)
		}
	}

	if err := pw.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}

func parquetCodec(name string) (compress.Codec, error) {
	switch name {
	case "", "snappy":
		return &parquet.Snappy, nil
	case "zstd":
		return &parquet.Zstd, nil
	case "none":
		return &parquet.Uncompressed, nil
	default:
		return nil, fmt.Errorf("unsupported parquet compression: %s", name)
	}
}
