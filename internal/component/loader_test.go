package component_test

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/withObsrvr/rxnspace/internal/component"
)

func TestLoadBasic(t *testing.T) {
	t.Parallel()

	src := "name,feature1,feature2\nA,23.1,54\nB,5.7,80\n"
	tbl, err := component.Load(strings.NewReader(src), 1, component.Declaration{Name: "reactant1.csv"})
	require.NoError(t, err)

	require.Equal(t, 1, tbl.Index)
	require.Equal(t, "reactant1.csv", tbl.Name)
	require.Equal(t, []string{"feature1", "feature2"}, tbl.FeatureNames)
	require.Equal(t, 2, tbl.Len())
	require.Equal(t, 2, tbl.Width())
	require.Equal(t, "A", tbl.Records[0].Identifier)
	require.Equal(t, []float64{23.1, 54}, tbl.Records[0].Features)
	require.Equal(t, "B", tbl.Records[1].Identifier)
	require.Equal(t, []float64{5.7, 80}, tbl.Records[1].Features)
}

func TestLoadDropsBlankColumns(t *testing.T) {
	t.Parallel()

	src := "name,empty,f1,\nA,,1.5,\nB, ,2.5,\n"
	tbl, err := component.Load(strings.NewReader(src), 1, component.Declaration{})
	require.NoError(t, err)
	require.Equal(t, []string{"f1"}, tbl.FeatureNames)
	require.Equal(t, []float64{1.5}, tbl.Records[0].Features)

	src = "name,na,f1,nulls\nA,NA,1.5,null\nB,N/A,2.5,NULL\nC,#N/A,3.5,None\n"
	tbl, err = component.Load(strings.NewReader(src), 1, component.Declaration{})
	require.NoError(t, err)
	require.Equal(t, []string{"f1"}, tbl.FeatureNames)
	require.Equal(t, []float64{3.5}, tbl.Records[2].Features)
}

func TestLoadBlankCellIsNaN(t *testing.T) {
	t.Parallel()

	src := "name,f1,f2\nA,1,\nB,2,3\n"
	tbl, err := component.Load(strings.NewReader(src), 1, component.Declaration{})
	require.NoError(t, err)
	require.True(t, math.IsNaN(tbl.Records[0].Features[1]))
	require.Equal(t, 3.0, tbl.Records[1].Features[1])

	for _, marker := range []string{"NA", "N/A", "null", "NULL", "#N/A", "None", "n/a", "-NaN", "<NA>"} {
		src := "name,f1,f2\nA,1," + marker + "\nB,2,3\n"
		tbl, err := component.Load(strings.NewReader(src), 1, component.Declaration{})
		require.NoError(t, err, marker)
		require.True(t, math.IsNaN(tbl.Records[0].Features[1]), marker)
		require.Equal(t, 2.0, tbl.Records[1].Features[0], marker)
	}
}

func TestLoadFullPrecision(t *testing.T) {
	t.Parallel()

	src := "name,f1\nA,0.1234567890123456789\nB,1e-310\nC,-0\n"
	tbl, err := component.Load(strings.NewReader(src), 1, component.Declaration{})
	require.NoError(t, err)
	require.Equal(t, 0.1234567890123456789, tbl.Records[0].Features[0])
	require.Equal(t, 1e-310, tbl.Records[1].Features[0])
	require.True(t, math.Signbit(tbl.Records[2].Features[0]))
}

func TestLoadNumericLookingIdentifier(t *testing.T) {
	t.Parallel()

	// identifiers are taken from the declared column, never sniffed by type
	src := "id,f1\n42,1\n007,2\n"
	tbl, err := component.Load(strings.NewReader(src), 1, component.Declaration{})
	require.NoError(t, err)
	require.Equal(t, "42", tbl.Records[0].Identifier)
	require.Equal(t, "007", tbl.Records[1].Identifier)
}

func TestLoadDeclaredColumns(t *testing.T) {
	t.Parallel()

	src := "f1,name,f2,f3\n1,A,2,3\n4,B,5,6\n"
	tbl, err := component.Load(strings.NewReader(src), 2, component.Declaration{
		IDColumn:       "name",
		FeatureColumns: []string{"f3", "f1"},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"f3", "f1"}, tbl.FeatureNames)
	require.Equal(t, "B", tbl.Records[1].Identifier)
	require.Equal(t, []float64{6, 4}, tbl.Records[1].Features)
}

func TestLoadHeaderOnly(t *testing.T) {
	t.Parallel()

	tbl, err := component.Load(strings.NewReader("name,f1,f2\n"), 3, component.Declaration{})
	require.NoError(t, err)
	require.Equal(t, 0, tbl.Len())
	require.Equal(t, []string{"f1", "f2"}, tbl.FeatureNames)
}

func TestLoadStripsBOM(t *testing.T) {
	t.Parallel()

	tbl, err := component.Load(strings.NewReader("\ufeffname,f1\nA,1\n"), 1, component.Declaration{IDColumn: "name"})
	require.NoError(t, err)
	require.Equal(t, "A", tbl.Records[0].Identifier)
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		src     string
		decl    component.Declaration
		wantErr error
	}{
		{"empty input", "", component.Declaration{}, component.ErrNoHeader},
		{"non numeric", "name,f1\nA,abc\n", component.Declaration{}, component.ErrNonNumeric},
		{"ragged row", "name,f1\nA,1,2\n", component.Declaration{}, component.ErrRaggedRow},
		{"empty identifier", "name,f1\nA,1\n,2\n", component.Declaration{}, component.ErrEmptyIdentifier},
		{"missing id column", "name,f1\nA,1\n", component.Declaration{IDColumn: "smiles"}, component.ErrMissingColumn},
		{"missing feature column", "name,f1\nA,1\n", component.Declaration{FeatureColumns: []string{"f9"}}, component.ErrMissingColumn},
		{"duplicate feature", "name,f1,f1\nA,1,2\n", component.Declaration{}, component.ErrDuplicateColumn},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := component.Load(strings.NewReader(tc.src), 1, tc.decl)
			require.Error(t, err)
			require.ErrorIs(t, err, tc.wantErr)
			require.ErrorIs(t, err, component.ErrInputShape)
		})
	}
}

func TestLoadNonNumericDetail(t *testing.T) {
	t.Parallel()

	_, err := component.Load(strings.NewReader("name,f1,f2\nA,1,2\nB,3,x\n"), 4, component.Declaration{})
	var shapeErr *component.ShapeError
	require.ErrorAs(t, err, &shapeErr)
	require.Equal(t, 4, shapeErr.Component)
	require.Equal(t, 1, shapeErr.Record)
	require.Equal(t, "f2", shapeErr.Column)
	require.Equal(t, "x", shapeErr.Value)
}
