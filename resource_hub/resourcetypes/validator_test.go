package resourcetypes

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"biodata_platform/resource_hub/metadata"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0666); err != nil {
		t.Fatal(err)
	}
	return path
}

func lookup(t *testing.T, tag string) Validator {
	t.Helper()
	v, err := Lookup(tag, Config{})
	require.NoError(t, err)
	return v
}

func TestLookup(t *testing.T) {
	for _, tag := range []string{TableType, MatrixType, IntegerMatrixType, AnnotationType, FeatureTableType, BedType} {
		v, err := Lookup(tag, Config{})
		assert.NoError(t, err, tag)
		assert.NotNil(t, v, tag)
	}

	for _, tag := range []string{FastqType, FastaType, AlignmentType} {
		_, err := Lookup(tag, Config{})
		assert.ErrorIs(t, err, ErrNoValidatorForType, tag)
	}

	_, err := Lookup("NOPE", Config{})
	assert.ErrorIs(t, err, ErrUnknownResourceType)
}

func TestTableValidator(t *testing.T) {
	v := lookup(t, TableType)

	path := writeFile(t, "data.tsv", "gene\ts1\ts2\ngA\t1\tx\ngB\t2\ty\n")
	assert.True(t, v.ValidateType(path).Valid)

	res := v.ValidateType(writeFile(t, "data.txt", "gene\ts1\ngA\t1\n"))
	assert.False(t, res.Valid)
	assert.Equal(t, MsgParserNotFound, res.Message)

	res = v.ValidateType(writeFile(t, "empty.tsv", ""))
	assert.False(t, res.Valid)
	assert.Equal(t, MsgEmptyTable, res.Message)
}

func TestTrivialTableRejected(t *testing.T) {
	v := lookup(t, TableType)

	res := v.ValidateType(writeFile(t, "index_only.csv", "gene\ngA\ngB\n"))
	assert.False(t, res.Valid)
	assert.Equal(t, MsgTrivialTable, res.Message)
}

func TestNumberedLabelHeuristics(t *testing.T) {
	v := lookup(t, TableType)

	res := v.ValidateType(writeFile(t, "numbered_cols.csv", "gene,1,2\ngA,5,6\n"))
	assert.False(t, res.Valid)
	assert.Equal(t, MsgNumberedColumns, res.Message)

	res = v.ValidateType(writeFile(t, "numbered_rows.csv", "gene,s1,s2\n1,5,6\n2,7,8\n"))
	assert.False(t, res.Valid)
	assert.Equal(t, MsgNumberedRows, res.Message)

	// both heuristics are deployment toggles
	permissive, err := Lookup(TableType, Config{AllowNumericColumnNames: true, AllowNumericRowNames: true})
	require.NoError(t, err)
	assert.True(t, permissive.ValidateType(writeFile(t, "n1.csv", "gene,1,2\ngA,5,6\n")).Valid)
	assert.True(t, permissive.ValidateType(writeFile(t, "n2.csv", "gene,s1,s2\n1,5,6\n2,7,8\n")).Valid)
}

func TestDuplicateRowNamesRejected(t *testing.T) {
	v := lookup(t, TableType)

	res := v.ValidateType(writeFile(t, "dups.csv", "gene,s1\ngA,1\ngA,2\n"))
	assert.False(t, res.Valid)
	assert.Equal(t, MsgDuplicateRowNames, res.Message)
}

func TestMatrixValidator(t *testing.T) {
	v := lookup(t, MatrixType)

	assert.True(t, v.ValidateType(writeFile(t, "ok.tsv", "gene\ts1\ts2\ngA\t1\t2.5\ngB\t3\tNA\n")).Valid)

	res := v.ValidateType(writeFile(t, "bad.tsv", "gene\ts1\ts2\ngA\t1\tx\ngB\t3\ty\n"))
	assert.False(t, res.Valid)
	assert.Equal(t, fmt.Sprintf(MsgNonNumeric, "s2 (column 2)"), res.Message)
}

func TestMatrixMetadata(t *testing.T) {
	v := lookup(t, MatrixType)

	path := writeFile(t, "counts.tsv", "gene\ts1\ts2\ngA\t1\t2\ngB\t3\t4\n")
	meta, err := v.ExtractMetadata(path, nil)
	require.NoError(t, err)

	expectedFeatures, err := metadata.NewFeatureSet([]metadata.Element{metadata.NewElement("gA"), metadata.NewElement("gB")})
	require.NoError(t, err)
	expectedObservations, err := metadata.NewObservationSet([]metadata.Element{metadata.NewElement("s1"), metadata.NewElement("s2")})
	require.NoError(t, err)

	assert.True(t, meta.Features.ContentEquals(expectedFeatures))
	assert.True(t, meta.Observations.ContentEquals(expectedObservations))
	assert.Nil(t, meta.ParentOperationId)
}

func TestExtractMetadataOnInvalidFile(t *testing.T) {
	v := lookup(t, MatrixType)

	path := writeFile(t, "bad.tsv", "gene\ts1\ngA\tx\n")
	_, err := v.ExtractMetadata(path, nil)
	assert.ErrorIs(t, err, ErrUnexpectedValidation)
}

func TestIntegerMatrixValidator(t *testing.T) {
	v := lookup(t, IntegerMatrixType)

	assert.True(t, v.ValidateType(writeFile(t, "ints.tsv", "gene\ts1\ts2\ngA\t1\t2\ngB\t3\t4\n")).Valid)

	// a missing value forces the column to floats; whole-number cells are
	// still accepted as integers
	assert.True(t, v.ValidateType(writeFile(t, "gaps.tsv", "gene\ts1\ngA\t1.0\ngB\t2.0\ngC\tNA\ngD\t4.0\n")).Valid)

	res := v.ValidateType(writeFile(t, "floats.tsv", "gene\ts1\ts2\ngA\t1.5\t2\ngB\t3\t4\n"))
	assert.False(t, res.Valid)
	assert.Equal(t, fmt.Sprintf(MsgNonInteger, "s1 (column 1)"), res.Message)
}

func TestAnnotationValidator(t *testing.T) {
	v := lookup(t, AnnotationType)

	res := v.ValidateType(writeFile(t, "ann.csv", "sample,group\ns1,CTRL\ns2,TRTD\n"))
	assert.True(t, res.Valid)
	assert.Empty(t, res.Message)

	// a column label matching a cell in its own column suggests the header
	// line was missing; valid with a warning
	res = v.ValidateType(writeFile(t, "noheader.csv", "s0,CTRL\ns1,CTRL\ns2,TRTD\n"))
	assert.True(t, res.Valid)
	assert.Equal(t, MsgMissingHeaderWarning, res.Message)
}

func TestAnnotationMetadata(t *testing.T) {
	v := lookup(t, AnnotationType)

	opId := uuid.New()
	path := writeFile(t, "ann.csv", "sample,group,age\ns1,CTRL,40\ns2,TRTD,NA\n")
	meta, err := v.ExtractMetadata(path, &opId)
	require.NoError(t, err)

	require.NotNil(t, meta.Observations)
	assert.Nil(t, meta.Features)
	assert.Equal(t, &opId, meta.ParentOperationId)

	elements := meta.Observations.Elements
	require.Len(t, elements, 2)
	assert.Equal(t, "s1", elements[0].Id)
	assert.Equal(t, metadata.Attribute{Type: metadata.StringAttribute, Value: "CTRL"}, elements[0].Attributes["group"])
	assert.Equal(t, metadata.Attribute{Type: metadata.IntegerAttribute, Value: int64(40)}, elements[0].Attributes["age"])
	assert.Equal(t, metadata.Attribute{Type: metadata.IntegerAttribute, Value: nil}, elements[1].Attributes["age"])
}

func TestFeatureTableMetadata(t *testing.T) {
	v := lookup(t, FeatureTableType)

	path := writeFile(t, "dge.tsv", "gene\tlog2fc\tpadj\ngA\t1.5\t0.01\ngB\t-0.4\t0.2\n")
	meta, err := v.ExtractMetadata(path, nil)
	require.NoError(t, err)

	require.NotNil(t, meta.Features)
	assert.Nil(t, meta.Observations)
	require.Len(t, meta.Features.Elements, 2)
	assert.Equal(t, metadata.Attribute{Type: metadata.FloatAttribute, Value: 1.5}, meta.Features.Elements[0].Attributes["log2fc"])
}

func TestBedValidator(t *testing.T) {
	v := lookup(t, BedType)

	assert.True(t, v.ValidateType(writeFile(t, "ok.bed", "chr1\t100\t200\nchr2\t300\t400\n")).Valid)

	// non-integer second column is named by 1-based position
	res := v.ValidateType(writeFile(t, "bad.bed", "chr1\t100\t200\nchr2\tabc\t300\n"))
	assert.False(t, res.Valid)
	assert.Equal(t, fmt.Sprintf(MsgBedFormat, "2"), res.Message)

	// a header line shifts both numeric columns to text
	res = v.ValidateType(writeFile(t, "header.bed", "chrom\tstart\tstop\nchr1\t100\t200\n"))
	assert.False(t, res.Valid)
	assert.Equal(t, fmt.Sprintf(MsgBedFormat, "2,3"), res.Message)
}

func TestPreview(t *testing.T) {
	v := lookup(t, MatrixType)

	var rows []string
	for i := 0; i < 10; i++ {
		rows = append(rows, fmt.Sprintf("g%d\t%d", i, i))
	}
	path := writeFile(t, "counts.tsv", "gene\ts1\n"+strings.Join(rows, "\n")+"\n")

	preview := v.GetPreview(path)
	assert.Empty(t, preview.Error)
	assert.Equal(t, []string{"s1"}, preview.Columns)
	assert.Len(t, preview.Rows, 5)

	// previews do not depend on validity, only parseability
	again := v.GetPreview(path)
	assert.Equal(t, preview, again)

	missing := v.GetPreview(filepath.Join(t.TempDir(), "gone.tsv"))
	assert.Equal(t, MsgParseError, missing.Error)
}

func TestBedPreview(t *testing.T) {
	v := lookup(t, BedType)

	preview := v.GetPreview(writeFile(t, "r.bed", "chr1\t100\t200\n"))
	assert.Equal(t, []string{"chrom", "start", "stop"}, preview.Columns)
	assert.Equal(t, [][]string{{"chr1", "100", "200"}}, preview.Values)
}
