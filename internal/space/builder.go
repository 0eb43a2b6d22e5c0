package space

import (
	"context"
	"fmt"
	"math"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/withObsrvr/rxnspace/internal/component"
)

// DefaultSeparator joins record identifiers into a combined identifier.
const DefaultSeparator = "."

// minChunk is the smallest index range handed to one worker.
const minChunk = 4096

// Builder constructs reaction spaces. The zero value is not usable; call
// NewBuilder. A Builder holds no per-build state and may be shared.
type Builder struct {
	separator        string
	checkIdentifiers bool
	workers          int
	maxEntries       int
}

// Option configures a Builder.
type Option func(*Builder)

// WithSeparator sets the identifier join separator.
func WithSeparator(sep string) Option {
	return func(b *Builder) { b.separator = sep }
}

// WithIdentifierCheck toggles rejection of identifiers that contain the
// separator. Enabled by default.
func WithIdentifierCheck(enabled bool) Option {
	return func(b *Builder) { b.checkIdentifiers = enabled }
}

// WithWorkers sets the number of goroutines filling the product.
func WithWorkers(n int) Option {
	return func(b *Builder) { b.workers = n }
}

// WithMaxEntries caps the product size. Zero means no cap.
func WithMaxEntries(n int) Option {
	return func(b *Builder) { b.maxEntries = n }
}

// NewBuilder returns a Builder with the given options applied.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		separator:        DefaultSeparator,
		checkIdentifiers: true,
		workers:          1,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.workers < 1 {
		b.workers = 1
	}
	if b.maxEntries < 0 {
		b.maxEntries = 0
	}
	return b
}

// Build returns the reaction space of tables using default options.
func Build(tables ...*component.Table) (*Table, error) {
	return NewBuilder().Build(context.Background(), tables)
}

// Build validates tables and materializes their product in odometer order.
// On error no table is returned.
func (b *Builder) Build(ctx context.Context, tables []*component.Table) (*Table, error) {
	if len(tables) == 0 {
		return nil, ErrNoComponents
	}
	if err := b.validate(tables); err != nil {
		return nil, err
	}

	schema := DeriveSchema(tables)
	width := schema.Width()

	sizes := make([]int, len(tables))
	for i, t := range tables {
		sizes[i] = t.Len()
	}
	total, err := productSize(sizes, width, b.maxEntries)
	if err != nil {
		return nil, err
	}

	out := &Table{Schema: schema, Entries: make([]Entry, total)}
	if total == 0 {
		return out, nil
	}

	// one backing array, each entry owns a disjoint full-capacity slice
	backing := make([]float64, total*width)

	f := filler{
		tables:  tables,
		sizes:   sizes,
		offsets: schema.Offsets,
		width:   width,
		sep:     b.separator,
		entries: out.Entries,
		backing: backing,
	}

	if b.workers == 1 || total <= minChunk {
		for lo := 0; lo < total; lo += minChunk {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			f.fill(lo, min(lo+minChunk, total))
		}
		return out, nil
	}

	chunk := max(minChunk, (total+b.workers*4-1)/(b.workers*4))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for lo := 0; lo < total; lo += chunk {
		lo, hi := lo, min(lo+chunk, total)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			f.fill(lo, hi)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *Builder) validate(tables []*component.Table) error {
	for pos, t := range tables {
		if err := t.Validate(); err != nil {
			return err
		}
		if t.Index != pos+1 {
			return &component.ShapeError{
				Component: t.Index,
				Record:    -1,
				Expected:  pos + 1,
				Actual:    t.Index,
				Err:       ErrIndexOrder,
			}
		}
		if !b.checkIdentifiers || b.separator == "" {
			continue
		}
		for i, rec := range t.Records {
			if strings.Contains(rec.Identifier, b.separator) {
				return &IdentifierError{
					Component:  t.Index,
					Record:     i,
					Identifier: rec.Identifier,
					Separator:  b.separator,
				}
			}
		}
	}
	return nil
}

// productSize multiplies sizes, failing on int overflow of either the entry
// count or the feature backing array, or when limit is exceeded.
func productSize(sizes []int, width, limit int) (int, error) {
	total := 1
	for _, n := range sizes {
		if n == 0 {
			return 0, nil
		}
	}
	for _, n := range sizes {
		if total > math.MaxInt/n {
			return 0, fmt.Errorf("%w: product of %d component sizes overflows", ErrTooLarge, len(sizes))
		}
		total *= n
	}
	if width > 0 && total > math.MaxInt/width {
		return 0, fmt.Errorf("%w: %d entries of width %d overflow", ErrTooLarge, total, width)
	}
	if limit > 0 && total > limit {
		return 0, fmt.Errorf("%w: %d entries exceeds limit %d", ErrTooLarge, total, limit)
	}
	return total, nil
}

// filler writes entries [lo, hi) of the product. Concurrent calls on
// disjoint ranges are safe.
type filler struct {
	tables  []*component.Table
	sizes   []int
	offsets []int
	width   int
	sep     string
	entries []Entry
	backing []float64
}

func (f *filler) fill(lo, hi int) {
	digits := decode(lo, f.sizes)
	var sb strings.Builder
	for k := lo; k < hi; k++ {
		row := f.backing[k*f.width : (k+1)*f.width : (k+1)*f.width]
		sb.Reset()
		for c, t := range f.tables {
			rec := &t.Records[digits[c]]
			if c > 0 {
				sb.WriteString(f.sep)
			}
			sb.WriteString(rec.Identifier)
			copy(row[f.offsets[c]:], rec.Features)
		}
		f.entries[k] = Entry{Identifier: sb.String(), Features: row}
		advance(digits, f.sizes)
	}
}

// decode splits linear index k into per-component record positions, last
// component least significant.
func decode(k int, sizes []int) []int {
	digits := make([]int, len(sizes))
	for c := len(sizes) - 1; c >= 0; c-- {
		digits[c] = k % sizes[c]
		k /= sizes[c]
	}
	return digits
}

// advance steps digits to the next odometer position.
func advance(digits, sizes []int) {
	for c := len(digits) - 1; c >= 0; c-- {
		digits[c]++
		if digits[c] < sizes[c] {
			return
		}
		digits[c] = 0
	}
}
