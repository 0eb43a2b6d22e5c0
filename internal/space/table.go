package space

// Entry is one combination: the joined identifier and concatenated features.
type Entry struct {
	Identifier string
	Features   []float64
}

// Table is a built reaction space. It is not modified after Build returns.
type Table struct {
	Schema  Schema
	Entries []Entry
}

// Len returns the number of entries.
func (t *Table) Len() int { return len(t.Entries) }

// Width returns the number of feature columns.
func (t *Table) Width() int { return t.Schema.Width() }

// Columns returns the feature column names.
func (t *Table) Columns() []string { return t.Schema.Columns }

// Duplicates returns combined identifiers that occur more than once, with
// their counts. Duplicates are legal: a component may reuse an identifier.
func (t *Table) Duplicates() map[string]int {
	counts := make(map[string]int, len(t.Entries))
	for _, e := range t.Entries {
		counts[e.Identifier]++
	}
	dups := make(map[string]int)
	for id, n := range counts {
		if n > 1 {
			dups[id] = n
		}
	}
	return dups
}
