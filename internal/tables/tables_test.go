package tables

import (
	"bytes"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/parquet-go/parquet-go"

	"github.com/withObsrvr/rxnspace/internal/component"
	"github.com/withObsrvr/rxnspace/internal/space"
)

func workedExample(t *testing.T) *space.Table {
	t.Helper()
	c1 := &component.Table{
		Index:        1,
		FeatureNames: []string{"f1", "f2"},
		Records: []component.Record{
			{Identifier: "A", Features: []float64{1.0, 2.0}},
			{Identifier: "B", Features: []float64{3.0, 4.0}},
		},
	}
	c2 := &component.Table{
		Index:        2,
		FeatureNames: []string{"f1"},
		Records: []component.Record{
			{Identifier: "X", Features: []float64{9.0}},
		},
	}
	s, err := space.Build(c1, c2)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return s
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1, "1.0"},
		{0, "0.0"},
		{math.Copysign(0, -1), "-0.0"},
		{0.5, "0.5"},
		{-2.25, "-2.25"},
		{0.1, "0.1"},
		{0.0001, "0.0001"},
		{0.00001, "1e-05"},
		{1e15, "1000000000000000.0"},
		{1e16, "1e+16"},
		{123456789.125, "123456789.125"},
		{math.NaN(), ""},
		{math.Inf(1), "inf"},
		{math.Inf(-1), "-inf"},
	}
	for _, tt := range tests {
		if got := FormatFloat(tt.in); got != tt.want {
			t.Errorf("FormatFloat(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatFloatRoundTrip(t *testing.T) {
	values := []float64{
		0.1 + 0.2,
		math.Pi,
		-math.E,
		math.MaxFloat64,
		math.SmallestNonzeroFloat64,
		1.0 / 3.0,
		6.02214076e23,
		-1.602176634e-19,
	}
	for _, v := range values {
		s := FormatFloat(v)
		got, err := strconv.ParseFloat(s, 64)
		if err != nil {
			t.Fatalf("ParseFloat(%q): %v", s, err)
		}
		if math.Float64bits(got) != math.Float64bits(v) {
			t.Errorf("round trip %v: got %v via %q", v, got, s)
		}
	}
}

func TestWriteCSVWorkedExample(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, workedExample(t), ""); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	want := ",comp1_f1,comp1_f2,comp2_f1\n" +
		"A.X,1.0,2.0,9.0\n" +
		"B.X,3.0,4.0,9.0\n"
	if buf.String() != want {
		t.Errorf("csv mismatch\ngot:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestWriteCSVIndexLabelAndNaN(t *testing.T) {
	c := &component.Table{
		Index:        1,
		FeatureNames: []string{"yield"},
		Records:      []component.Record{{Identifier: "r1", Features: []float64{math.NaN()}}},
	}
	s, err := space.Build(c)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, s, "reaction"); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	want := "reaction,comp1_yield\nr1,\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestWriteCSVEmptySpaceKeepsHeader(t *testing.T) {
	c1 := &component.Table{Index: 1, FeatureNames: []string{"a"}}
	c2 := &component.Table{
		Index:        2,
		FeatureNames: []string{"b"},
		Records:      []component.Record{{Identifier: "X", Features: []float64{1}}},
	}
	s, err := space.Build(c1, c2)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, s, ""); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if buf.String() != ",comp1_a,comp2_b\n" {
		t.Errorf("got %q", buf.String())
	}
}

func TestEncodeCSV(t *testing.T) {
	cfg := DefaultOutputConfig()
	out, err := Encode(workedExample(t), cfg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	if out.Filename != "reaction_space.csv" {
		t.Errorf("filename = %q", out.Filename)
	}
	if out.RowCount != 2 {
		t.Errorf("row count = %d, want 2", out.RowCount)
	}
	if out.ByteSize != int64(len(out.Data)) {
		t.Errorf("byte size = %d, data = %d", out.ByteSize, len(out.Data))
	}
	if !VerifyChecksum(out.Data, out.Checksum) {
		t.Error("checksum does not verify")
	}
	if len(out.Columns) != 3 {
		t.Errorf("columns = %v", out.Columns)
	}
}

func TestEncodeCSVZstd(t *testing.T) {
	cfg := DefaultOutputConfig()
	cfg.Compression = "zstd"

	out, err := Encode(workedExample(t), cfg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if out.Filename != "reaction_space.csv.zst" {
		t.Errorf("filename = %q", out.Filename)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		t.Fatalf("zstd reader: %v", err)
	}
	defer dec.Close()
	plain, err := dec.DecodeAll(out.Data, nil)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(string(plain), ",comp1_f1,comp1_f2,comp2_f1\nA.X,") {
		t.Errorf("unexpected payload %q", plain)
	}
}

func TestEncodeDeterministic(t *testing.T) {
	for _, format := range []Format{FormatCSV, FormatParquet} {
		cfg := DefaultOutputConfig()
		cfg.Format = format
		cfg.Filename = "space." + string(format)

		a, err := Encode(workedExample(t), cfg)
		if err != nil {
			t.Fatalf("%s: %v", format, err)
		}
		b, err := Encode(workedExample(t), cfg)
		if err != nil {
			t.Fatalf("%s: %v", format, err)
		}
		if a.Checksum != b.Checksum {
			t.Errorf("%s: checksums differ: %s vs %s", format, a.Checksum, b.Checksum)
		}
	}
}

func TestEncodeParquet(t *testing.T) {
	cfg := DefaultOutputConfig()
	cfg.Format = FormatParquet
	cfg.Filename = "reaction_space.parquet"
	cfg.Compression = "zstd"

	out, err := Encode(workedExample(t), cfg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	f, err := parquet.OpenFile(bytes.NewReader(out.Data), int64(len(out.Data)))
	if err != nil {
		t.Fatalf("open parquet: %v", err)
	}
	if f.NumRows() != 2 {
		t.Fatalf("rows = %d, want 2", f.NumRows())
	}
	if sep, ok := f.Lookup("rxnspace.separator"); !ok || sep != "." {
		t.Errorf("separator metadata = %q, %v", sep, ok)
	}

	leaf := map[string]int{}
	for i, path := range f.Schema().Columns() {
		leaf[path[0]] = i
	}
	for _, col := range []string{"reaction", "comp1_f1", "comp1_f2", "comp2_f1"} {
		if _, ok := leaf[col]; !ok {
			t.Fatalf("missing column %q in %v", col, f.Schema().Columns())
		}
	}

	r := parquet.NewReader(bytes.NewReader(out.Data))
	defer r.Close()
	rows := make([]parquet.Row, 4)
	n, err := r.ReadRows(rows)
	if err != nil && !errors.Is(err, io.EOF) {
		t.Fatalf("read rows: %v", err)
	}
	if n != 2 {
		t.Fatalf("read %d rows, want 2", n)
	}

	if id := string(rows[1][leaf["reaction"]].ByteArray()); id != "B.X" {
		t.Errorf("row 1 id = %q, want B.X", id)
	}
	if v := rows[1][leaf["comp1_f2"]].Double(); v != 4 {
		t.Errorf("row 1 comp1_f2 = %v, want 4", v)
	}
	if v := rows[0][leaf["comp2_f1"]].Double(); v != 9 {
		t.Errorf("row 0 comp2_f1 = %v, want 9", v)
	}
}

func TestOutputConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     OutputConfig
		wantErr bool
	}{
		{"default", DefaultOutputConfig(), false},
		{"parquet snappy", OutputConfig{Format: FormatParquet, Filename: "x", Compression: "snappy"}, false},
		{"csv snappy", OutputConfig{Format: FormatCSV, Filename: "x", Compression: "snappy"}, true},
		{"unknown format", OutputConfig{Format: "xlsx", Filename: "x"}, true},
		{"no filename", OutputConfig{Format: FormatCSV}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint("sha256:aa", "sha256:bb", "sep=.")
	b := Fingerprint("sha256:bb", "sha256:aa", "sep=.")
	if a == b {
		t.Error("fingerprint should depend on order")
	}
	if a != Fingerprint("sha256:aa", "sha256:bb", "sep=.") {
		t.Error("fingerprint should be stable")
	}
}
