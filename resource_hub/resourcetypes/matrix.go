package resourcetypes

import (
	"fmt"
	"regexp"
	"strings"

	"biodata_platform/resource_hub/metadata"
	"biodata_platform/resource_hub/tabular"

	"github.com/google/uuid"
)

// problemColumn identifies an offending column by label and 1-based position.
type problemColumn struct {
	label    string
	position int
}

func formatProblemColumns(cols []problemColumn) string {
	parts := make([]string, 0, len(cols))
	for _, c := range cols {
		parts = append(parts, fmt.Sprintf("%s (column %d)", c.label, c.position))
	}
	return strings.Join(parts, ", ")
}

// MatrixValidator checks a table whose every data column must be numeric.
// Integer and float columns may be mixed.
type MatrixValidator struct {
	parent TableValidator
}

func NewMatrixValidator(cfg Config) *MatrixValidator {
	return &MatrixValidator{parent: TableValidator{cfg: cfg}}
}

func nonNumericColumns(table *tabular.Table) []problemColumn {
	var problems []problemColumn
	for i, dtype := range table.Dtypes() {
		if !dtype.IsNumeric() {
			problems = append(problems, problemColumn{label: table.Columns[i], position: i + 1})
		}
	}
	return problems
}

func (v *MatrixValidator) checkTable(table *tabular.Table) Result {
	if res := v.parent.checkTable(table); !res.Valid {
		return res
	}

	if problems := nonNumericColumns(table); len(problems) > 0 {
		return invalid(fmt.Sprintf(MsgNonNumeric, formatProblemColumns(problems)))
	}

	return ok()
}

func (v *MatrixValidator) ValidateType(path string) Result {
	table, res := v.parent.load(path)
	if table == nil {
		return res
	}
	return v.checkTable(table)
}

func (v *MatrixValidator) GetPreview(path string) Preview {
	return v.parent.GetPreview(path)
}

// ExtractMetadata derives the FeatureSet from the rows and the
// ObservationSet from the columns: features are the measured quantities,
// observations the samples.
func (v *MatrixValidator) ExtractMetadata(path string, parentOp *uuid.UUID) (*Metadata, error) {
	table, err := v.parent.revalidate(path, v.checkTable)
	if err != nil {
		return nil, err
	}
	return matrixMetadata(table, parentOp)
}

func matrixMetadata(table *tabular.Table, parentOp *uuid.UUID) (*Metadata, error) {
	features := make([]metadata.Element, 0, len(table.Rows))
	for _, row := range table.Rows {
		features = append(features, metadata.NewElement(row))
	}
	featureSet, err := metadata.NewFeatureSet(features)
	if err != nil {
		return nil, fmt.Errorf("error building feature set: %w", err)
	}

	observations := make([]metadata.Element, 0, len(table.Columns))
	for _, col := range table.Columns {
		observations = append(observations, metadata.NewElement(col))
	}
	observationSet, err := metadata.NewObservationSet(observations)
	if err != nil {
		return nil, fmt.Errorf("error building observation set: %w", err)
	}

	return &Metadata{
		Observations:      &observationSet,
		Features:          &featureSet,
		ParentOperationId: parentOp,
	}, nil
}

// integer values stored in floating point form, e.g. "2.0"
var wholeNumberFloat = regexp.MustCompile(`^\d+\.0$`)

// IntegerMatrixValidator further specializes the matrix to admit only
// integers.
type IntegerMatrixValidator struct {
	parent MatrixValidator
}

func NewIntegerMatrixValidator(cfg Config) *IntegerMatrixValidator {
	return &IntegerMatrixValidator{parent: *NewMatrixValidator(cfg)}
}

func (v *IntegerMatrixValidator) checkTable(table *tabular.Table) Result {
	if res := v.parent.checkTable(table); !res.Valid {
		return res
	}

	var problems []problemColumn
	for i, dtype := range table.Dtypes() {
		if dtype == tabular.IntegerDtype {
			continue
		}

		// A missing value forces an otherwise-integer column into floating
		// point form. Re-examine the non-missing cells: if every one reads
		// as a whole number ("2.0"), the column is accepted.
		if dtype == tabular.FloatDtype && columnIsWholeNumbers(table.Column(i)) {
			continue
		}

		problems = append(problems, problemColumn{label: table.Columns[i], position: i + 1})
	}

	if len(problems) > 0 {
		return invalid(fmt.Sprintf(MsgNonInteger, formatProblemColumns(problems)))
	}

	return ok()
}

func columnIsWholeNumbers(cells []string) bool {
	for _, cell := range cells {
		if tabular.IsMissing(cell) {
			continue
		}
		if !wholeNumberFloat.MatchString(cell) {
			return false
		}
	}
	return true
}

func (v *IntegerMatrixValidator) ValidateType(path string) Result {
	table, res := v.parent.parent.load(path)
	if table == nil {
		return res
	}
	return v.checkTable(table)
}

func (v *IntegerMatrixValidator) GetPreview(path string) Preview {
	return v.parent.GetPreview(path)
}

func (v *IntegerMatrixValidator) ExtractMetadata(path string, parentOp *uuid.UUID) (*Metadata, error) {
	table, err := v.parent.parent.revalidate(path, v.checkTable)
	if err != nil {
		return nil, err
	}
	return matrixMetadata(table, parentOp)
}
