package component

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Declaration states which columns of a source carry the identifier and the
// features. Zero values select the first retained column as identifier and
// every other retained column, in file order, as features.
type Declaration struct {
	Name           string
	IDColumn       string
	FeatureColumns []string
}

// Load reads a CSV component with a header row and returns a validated Table.
//
// Columns whose data cells are all blank are dropped before the identifier and
// feature columns are resolved. An explicitly declared feature column is kept
// even if blank. Blank cells and the usual missing-value markers (NA, N/A,
// null, None, #N/A and friends) count as missing: they become NaN in feature
// columns and do not keep a column alive. Any other value must parse as a
// 64-bit float.
func Load(r io.Reader, index int, decl Declaration) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 0
	cr.ReuseRecord = false

	rows, err := cr.ReadAll()
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) && errors.Is(perr.Err, csv.ErrFieldCount) {
			return nil, &ShapeError{Component: index, Record: perr.Line - 2, Err: ErrRaggedRow}
		}
		return nil, fmt.Errorf("read %s: %w", decl.Name, err)
	}
	if len(rows) == 0 {
		return nil, &ShapeError{Component: index, Record: -1, Err: ErrNoHeader}
	}

	header := rows[0]
	header[0] = strings.TrimPrefix(header[0], "\ufeff")
	data := rows[1:]

	retained := retainedColumns(header, data)
	if len(retained) == 0 {
		return nil, &ShapeError{Component: index, Record: -1, Err: ErrMissingColumn}
	}

	idCol := retained[0]
	if decl.IDColumn != "" {
		idCol = columnIndex(header, decl.IDColumn)
		if idCol < 0 {
			return nil, &ShapeError{Component: index, Record: -1, Column: decl.IDColumn, Err: ErrMissingColumn}
		}
	}

	var featureCols []int
	if decl.FeatureColumns != nil {
		for _, name := range decl.FeatureColumns {
			j := columnIndex(header, name)
			if j < 0 {
				return nil, &ShapeError{Component: index, Record: -1, Column: name, Err: ErrMissingColumn}
			}
			featureCols = append(featureCols, j)
		}
	} else {
		for _, j := range retained {
			if j != idCol {
				featureCols = append(featureCols, j)
			}
		}
	}

	t := &Table{
		Index:        index,
		Name:         decl.Name,
		FeatureNames: make([]string, len(featureCols)),
		Records:      make([]Record, 0, len(data)),
	}
	for k, j := range featureCols {
		t.FeatureNames[k] = header[j]
	}

	for i, row := range data {
		rec := Record{
			Identifier: row[idCol],
			Features:   make([]float64, len(featureCols)),
		}
		for k, j := range featureCols {
			v, err := parseFeature(row[j])
			if err != nil {
				return nil, &ShapeError{
					Component: index,
					Record:    i,
					Column:    header[j],
					Value:     row[j],
					Err:       ErrNonNumeric,
				}
			}
			rec.Features[k] = v
		}
		t.Records = append(t.Records, rec)
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// retainedColumns returns the indexes of columns holding at least one
// non-blank data cell. With no data rows every column is retained so the
// feature schema can still be derived.
func retainedColumns(header []string, data [][]string) []int {
	out := make([]int, 0, len(header))
	for j := range header {
		if len(data) == 0 {
			out = append(out, j)
			continue
		}
		for _, row := range data {
			if !isMissing(row[j]) {
				out = append(out, j)
				break
			}
		}
	}
	return out
}

func columnIndex(header []string, name string) int {
	for j, h := range header {
		if h == name {
			return j
		}
	}
	return -1
}

// missingValues are the cell spellings read as a missing value.
var missingValues = map[string]struct{}{
	"":         {},
	"#N/A":     {},
	"#N/A N/A": {},
	"#NA":      {},
	"-1.#IND":  {},
	"-1.#QNAN": {},
	"-NaN":     {},
	"-nan":     {},
	"1.#IND":   {},
	"1.#QNAN":  {},
	"<NA>":     {},
	"N/A":      {},
	"NA":       {},
	"NULL":     {},
	"NaN":      {},
	"None":     {},
	"n/a":      {},
	"nan":      {},
	"null":     {},
}

func isMissing(raw string) bool {
	_, ok := missingValues[strings.TrimSpace(raw)]
	return ok
}

func parseFeature(raw string) (float64, error) {
	if isMissing(raw) {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(strings.TrimSpace(raw), 64)
}
