// Package component holds validated reactant tables and the CSV loader that
// produces them.
package component

// Record is one candidate compound: an identifier plus its feature vector.
type Record struct {
	Identifier string
	Features   []float64
}

// Table is a validated, immutable set of records for one reaction component.
type Table struct {
	Index        int    // 1-based position in the request, used for column labels
	Name         string // source name, informational
	FeatureNames []string
	Records      []Record
}

// Len returns the number of records.
func (t *Table) Len() int { return len(t.Records) }

// Width returns the number of features per record.
func (t *Table) Width() int { return len(t.FeatureNames) }

// Validate checks the per-component invariants: a positive index, unique
// feature names, non-empty identifiers and one fixed feature width.
func (t *Table) Validate() error {
	if t == nil {
		return &ShapeError{Record: -1, Err: ErrNilTable}
	}
	if t.Index < 1 {
		return &ShapeError{Component: t.Index, Record: -1, Err: ErrInvalidIndex}
	}

	seen := make(map[string]struct{}, len(t.FeatureNames))
	for _, name := range t.FeatureNames {
		if _, dup := seen[name]; dup {
			return &ShapeError{Component: t.Index, Record: -1, Column: name, Err: ErrDuplicateColumn}
		}
		seen[name] = struct{}{}
	}

	width := len(t.FeatureNames)
	for i, rec := range t.Records {
		if rec.Identifier == "" {
			return &ShapeError{Component: t.Index, Record: i, Err: ErrEmptyIdentifier}
		}
		if len(rec.Features) != width {
			return &ShapeError{
				Component: t.Index,
				Record:    i,
				Expected:  width,
				Actual:    len(rec.Features),
				Err:       ErrWidthMismatch,
			}
		}
	}
	return nil
}
