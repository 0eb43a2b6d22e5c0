package tables

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/withObsrvr/rxnspace/internal/space"
)

// WriteCSV writes the reaction space as CSV: a header of indexLabel followed
// by the schema columns, then one row per entry keyed by its identifier.
func WriteCSV(w io.Writer, s *space.Table, indexLabel string) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, s.Width()+1)
	header = append(header, indexLabel)
	header = append(header, s.Columns()...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	record := make([]string, s.Width()+1)
	for i, e := range s.Entries {
		record[0] = e.Identifier
		for j, v := range e.Features {
			record[j+1] = FormatFloat(v)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// FormatFloat renders v with the fewest digits that parse back to the same
// float64. Integral values keep a trailing ".0" and large or tiny magnitudes
// switch to exponent form, matching the usual tabular export convention. NaN
// is written as an empty cell.
func FormatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return ""
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}

	e := strconv.FormatFloat(v, 'e', -1, 64)
	exp, err := strconv.Atoi(e[strings.LastIndexByte(e, 'e')+1:])
	if err == nil && (exp < -4 || exp >= 16) {
		return e
	}

	f := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsRune(f, '.') {
		f += ".0"
	}
	return f
}
