package tabular

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0666); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseTsv(t *testing.T) {
	path := writeFile(t, "expression.tsv",
		"gene\ts1\ts2\ts3\n"+
			"# a comment line\n"+
			"gA\t1\t2\t3\n"+
			"gB\t4\t5\t6\n")

	table, err := ParseTable(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"s1", "s2", "s3"}, table.Columns)
	assert.Equal(t, []string{"gA", "gB"}, table.Rows)
	assert.Equal(t, [][]string{{"1", "2", "3"}, {"4", "5", "6"}}, table.Values)
	assert.Equal(t, []Dtype{IntegerDtype, IntegerDtype, IntegerDtype}, table.Dtypes())
}

func TestParseCsv(t *testing.T) {
	path := writeFile(t, "annotations.csv",
		"sample,group,age\n"+
			"s1,CTRL,40\n"+
			"s2,TRTD,38.5\n")

	table, err := ParseTable(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"group", "age"}, table.Columns)
	assert.Equal(t, []string{"s1", "s2"}, table.Rows)
	assert.Equal(t, []Dtype{StringDtype, FloatDtype}, table.Dtypes())
}

func writeWorkbook(t *testing.T, sheets map[string][][]interface{}) string {
	t.Helper()

	file := excelize.NewFile()
	defer file.Close()

	for name, rows := range sheets {
		if name != "Sheet1" {
			if _, err := file.NewSheet(name); err != nil {
				t.Fatal(err)
			}
		}
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			if err != nil {
				t.Fatal(err)
			}
			if err := file.SetSheetRow(name, cell, &row); err != nil {
				t.Fatal(err)
			}
		}
	}

	path := filepath.Join(t.TempDir(), "workbook.xlsx")
	if err := file.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseSpreadsheet(t *testing.T) {
	path := writeWorkbook(t, map[string][][]interface{}{
		"Sheet1": {
			{"gene", "s1", "s2"},
			{"# a comment row"},
			{"gA", "1", "2"},
			{"gB", "3", "4"},
		},
	})

	table, err := ParseTable(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"s1", "s2"}, table.Columns)
	assert.Equal(t, []string{"gA", "gB"}, table.Rows)
	assert.Equal(t, [][]string{{"1", "2"}, {"3", "4"}}, table.Values)
	assert.Equal(t, []Dtype{IntegerDtype, IntegerDtype}, table.Dtypes())
}

func TestParseSpreadsheetReadsFirstSheetOnly(t *testing.T) {
	path := writeWorkbook(t, map[string][][]interface{}{
		"Sheet1": {
			{"gene", "s1"},
			{"gA", "1"},
		},
		"Extra": {
			{"gene", "other1", "other2"},
			{"gX", "7", "8"},
			{"gY", "9", "10"},
		},
	})

	table, err := ParseTable(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"s1"}, table.Columns)
	assert.Equal(t, []string{"gA"}, table.Rows)
}

func TestParseCorruptSpreadsheet(t *testing.T) {
	path := writeFile(t, "broken.xlsx", "this is not a zip archive")

	_, err := ParseTable(path)
	assert.True(t, errors.Is(err, ErrParseFailure))
}

func TestParseUnknownExtension(t *testing.T) {
	path := writeFile(t, "data.xyz", "a\tb\n1\t2\n")

	_, err := ParseTable(path)
	assert.True(t, errors.Is(err, ErrParserNotFound))
}

func TestParseMissingFile(t *testing.T) {
	_, err := ParseTable(filepath.Join(t.TempDir(), "does-not-exist.tsv"))
	assert.True(t, errors.Is(err, ErrParseFailure))
}

func TestShortRowsArePadded(t *testing.T) {
	path := writeFile(t, "padded.csv",
		"gene,s1,s2\n"+
			"gA,1,2\n"+
			"gB\n")

	_, err := ParseTable(path)
	// the csv reader enforces rectangular input, a short record is a parse
	// failure rather than a silently padded row
	assert.True(t, errors.Is(err, ErrParseFailure))
}

func TestDtypeInference(t *testing.T) {
	assert.Equal(t, IntegerDtype, inferColumnDtype([]string{"1", "2", "-3"}))
	assert.Equal(t, FloatDtype, inferColumnDtype([]string{"1", "2.5", "3"}))
	assert.Equal(t, StringDtype, inferColumnDtype([]string{"1", "x", "3"}))

	// missing cells do not widen the type
	assert.Equal(t, IntegerDtype, inferColumnDtype([]string{"1", "NA", "3"}))

	// a column that is entirely missing behaves like a numeric column full of
	// missing values
	assert.Equal(t, FloatDtype, inferColumnDtype([]string{"", "NA", "NaN"}))
	assert.Equal(t, FloatDtype, inferColumnDtype([]string{"1.0", "2.0", "", "4.0"}))
}

func TestHead(t *testing.T) {
	path := writeFile(t, "big.tsv",
		"gene\ts1\n"+
			"g1\t1\ng2\t2\ng3\t3\ng4\t4\ng5\t5\ng6\tx\n")

	table, err := ParseTable(path)
	require.NoError(t, err)
	assert.Equal(t, 6, table.NumRows())
	assert.Equal(t, []Dtype{StringDtype}, table.Dtypes())

	head := table.Head(5)
	assert.Equal(t, []string{"g1", "g2", "g3", "g4", "g5"}, head.Rows)
	// dtypes are recomputed on the retained rows only
	assert.Equal(t, []Dtype{IntegerDtype}, head.Dtypes())

	assert.Equal(t, 6, table.Head(100).NumRows())
}

func TestParseBed(t *testing.T) {
	path := writeFile(t, "regions.bed",
		"chr1\t100\t200\n"+
			"chr2\t300\t400\textra\tcolumns\n")

	table, err := ParseBed(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"chrom", "start", "stop"}, table.Columns)
	assert.Equal(t, []string{"0", "1"}, table.Rows)
	assert.Equal(t, [][]string{{"chr1", "100", "200"}, {"chr2", "300", "400"}}, table.Values)
	assert.Equal(t, []Dtype{StringDtype, IntegerDtype, IntegerDtype}, table.Dtypes())
}

func TestParseBedHeaderSurfacesAsStringColumn(t *testing.T) {
	path := writeFile(t, "header.bed",
		"chrom\tstart\tstop\n"+
			"chr1\t100\t200\n")

	table, err := ParseBed(path)
	require.NoError(t, err)

	dtypes := table.Dtypes()
	assert.Equal(t, StringDtype, dtypes[1])
	assert.Equal(t, StringDtype, dtypes[2])
}
