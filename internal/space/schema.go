package space

import (
	"fmt"

	"github.com/withObsrvr/rxnspace/internal/component"
)

// Schema is the column layout of a reaction space.
type Schema struct {
	Columns []string // comp<i>_<name>, component then feature order
	Offsets []int    // start of each component's features within a row
	Widths  []int    // feature count of each component
}

// ColumnName returns the output column for a feature of component index.
func ColumnName(index int, feature string) string {
	return fmt.Sprintf("comp%d_%s", index, feature)
}

// DeriveSchema concatenates the prefixed feature names of tables in order.
func DeriveSchema(tables []*component.Table) Schema {
	s := Schema{
		Offsets: make([]int, len(tables)),
		Widths:  make([]int, len(tables)),
	}
	for i, t := range tables {
		s.Offsets[i] = len(s.Columns)
		s.Widths[i] = t.Width()
		for _, name := range t.FeatureNames {
			s.Columns = append(s.Columns, ColumnName(t.Index, name))
		}
	}
	return s
}

// Width returns the number of feature columns.
func (s Schema) Width() int { return len(s.Columns) }
