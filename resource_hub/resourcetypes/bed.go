package resourcetypes

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"biodata_platform/resource_hub/tabular"

	"github.com/google/uuid"
)

// BedValidator handles minimal BED files: chromosome, start position, end
// position, tab delimited, no header. Additional columns are ignored. It
// bypasses the generic table rules entirely since BED files have no header
// or row index.
type BedValidator struct{}

func (v *BedValidator) ValidateType(path string) Result {
	table, err := tabular.ParseBed(path)
	if err != nil {
		return invalid(MsgParseError)
	}

	// If the file has a header line, it is read as data and shifts the
	// start/stop columns from integer to text.
	dtypes := table.Dtypes()
	var problems []string
	if dtypes[1] != tabular.IntegerDtype {
		problems = append(problems, strconv.Itoa(2))
	}
	if dtypes[2] != tabular.IntegerDtype {
		problems = append(problems, strconv.Itoa(3))
	}

	if len(problems) > 0 {
		return invalid(fmt.Sprintf(MsgBedFormat, strings.Join(problems, ",")))
	}

	return ok()
}

func (v *BedValidator) GetPreview(path string) Preview {
	table, err := tabular.ParseBed(path)
	if err != nil {
		return Preview{Error: MsgParseError}
	}

	head := table.Head(previewRows)
	return Preview{Columns: head.Columns, Rows: head.Rows, Values: head.Values}
}

// ExtractMetadata yields no entity sets: genomic intervals carry neither
// observations nor features.
func (v *BedValidator) ExtractMetadata(path string, parentOp *uuid.UUID) (*Metadata, error) {
	if res := v.ValidateType(path); !res.Valid {
		slog.Error("bed resource failed validation during metadata extraction", "path", path, "message", res.Message)
		return nil, ErrUnexpectedValidation
	}
	return &Metadata{ParentOperationId: parentOp}, nil
}
