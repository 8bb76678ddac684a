package resourcetypes

import (
	"errors"
	"log/slog"
	"regexp"

	"biodata_platform/resource_hub/tabular"

	"github.com/google/uuid"
)

const previewRows = 5

// a label counts as numeric if it begins with digits, matching the common
// case of a shifted header or index column
var numericLabel = regexp.MustCompile(`^\d+`)

func allLabelsNumeric(labels []string) bool {
	if len(labels) == 0 {
		return false
	}
	for _, label := range labels {
		if !numericLabel.MatchString(label) {
			return false
		}
	}
	return true
}

// TableValidator handles the most generic form of a delimited file: any data
// that can be represented as rows and columns. Unless a more specialized
// variant applies, features are assumed to be rows and observations columns.
type TableValidator struct {
	cfg Config
}

// load parses the file and converts parser failures into user-facing
// results. A nil table means the returned result is final.
func (v *TableValidator) load(path string) (*tabular.Table, Result) {
	table, err := tabular.ParseTable(path)
	if err != nil {
		if errors.Is(err, tabular.ErrParserNotFound) {
			return nil, invalid(MsgParserNotFound)
		}
		return nil, invalid(MsgParseError)
	}
	return table, ok()
}

// checkTable runs the structural rules in order, short-circuiting on the
// first failure.
func (v *TableValidator) checkTable(table *tabular.Table) Result {
	if table.NumRows() == 0 && table.NumColumns() == 0 {
		return invalid(MsgEmptyTable)
	}

	if table.NumColumns() == 0 {
		return invalid(MsgTrivialTable)
	}

	// all-numeric column names usually indicate a missing header row
	if !v.cfg.AllowNumericColumnNames && allLabelsNumeric(table.Columns) {
		return invalid(MsgNumberedColumns)
	}

	// all-numeric row names usually indicate a data column parsed as the index
	if !v.cfg.AllowNumericRowNames && allLabelsNumeric(table.Rows) {
		return invalid(MsgNumberedRows)
	}

	seen := make(map[string]struct{}, len(table.Rows))
	for _, row := range table.Rows {
		if _, dup := seen[row]; dup {
			return invalid(MsgDuplicateRowNames)
		}
		seen[row] = struct{}{}
	}

	return ok()
}

func (v *TableValidator) ValidateType(path string) Result {
	table, res := v.load(path)
	if table == nil {
		return res
	}
	return v.checkTable(table)
}

func (v *TableValidator) GetPreview(path string) Preview {
	table, res := v.load(path)
	if table == nil {
		return Preview{Error: res.Message}
	}

	head := table.Head(previewRows)
	return Preview{Columns: head.Columns, Rows: head.Rows, Values: head.Values}
}

// revalidate reloads and rechecks a table for metadata extraction. Failure
// here is infrastructure-shaped: the resource previously validated, so a
// failure now means the backing file changed or was corrupted.
func (v *TableValidator) revalidate(path string, check func(*tabular.Table) Result) (*tabular.Table, error) {
	table, res := v.load(path)
	if table != nil {
		res = check(table)
	}
	if !res.Valid {
		slog.Error("resource failed validation during metadata extraction", "path", path, "message", res.Message)
		return nil, ErrUnexpectedValidation
	}
	return table, nil
}

func (v *TableValidator) ExtractMetadata(path string, parentOp *uuid.UUID) (*Metadata, error) {
	if _, err := v.revalidate(path, v.checkTable); err != nil {
		return nil, err
	}
	return &Metadata{ParentOperationId: parentOp}, nil
}
