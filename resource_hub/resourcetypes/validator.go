package resourcetypes

import (
	"errors"
	"fmt"

	"biodata_platform/resource_hub/metadata"
	"biodata_platform/resource_hub/tabular"

	"github.com/google/uuid"
)

// Resource type tags as stored in the database.
const (
	TableType         = "TBL"
	MatrixType        = "MTX"
	IntegerMatrixType = "I_MTX"
	AnnotationType    = "ANN"
	FeatureTableType  = "FT"
	BedType           = "BED"

	// Sequence formats. Accepted as resource types but validated elsewhere;
	// Lookup has no validator registered for them.
	FastqType     = "FQ"
	FastaType     = "FA"
	AlignmentType = "ALN"
)

var (
	ErrUnknownResourceType = errors.New("unknown resource type")

	ErrNoValidatorForType = errors.New("no validator registered for resource type")

	// ErrUnexpectedValidation is returned when metadata extraction is asked
	// to run on a resource that fails validation despite having previously
	// passed it. This signals data corruption, not a user-input error.
	ErrUnexpectedValidation = errors.New("unexpected validation failure")
)

// Result is the outcome of a type check. A valid result with a non-empty
// message is a warning, which must still be surfaced to the caller.
type Result struct {
	Valid   bool
	Message string
}

func ok() Result {
	return Result{Valid: true}
}

func invalid(message string) Result {
	return Result{Valid: false, Message: message}
}

func warning(message string) Result {
	return Result{Valid: true, Message: message}
}

// Preview holds the leading rows of a resource for display. A parser failure
// populates Error instead of raising.
type Preview struct {
	Columns []string   `json:"columns,omitempty"`
	Rows    []string   `json:"rows,omitempty"`
	Values  [][]string `json:"values,omitempty"`
	Error   string     `json:"error,omitempty"`
	Info    string     `json:"info,omitempty"`
}

// Metadata is the distilled form of a validated resource: the named entity
// sets and the operation that produced the file, if any.
type Metadata struct {
	Observations      *metadata.ObservationSet
	Features          *metadata.FeatureSet
	ParentOperationId *uuid.UUID
}

// Config carries the heuristic toggles for the structural rules. The
// all-numeric label checks misfire on legitimately numeric identifiers, so
// deployments may disable them.
type Config struct {
	AllowNumericColumnNames bool
	AllowNumericRowNames    bool
}

// Validator is the capability set every resource type variant implements.
type Validator interface {
	// ValidateType checks whether the file content is structurally
	// consistent with the type. User-input problems are reported through
	// the Result, never as panics or raw parser errors.
	ValidateType(path string) Result

	// GetPreview returns the first rows of the table, or a Preview carrying
	// an error message when the file cannot be parsed.
	GetPreview(path string) Preview

	// ExtractMetadata converts the validated table into entity sets. It
	// validates internally when needed and returns ErrUnexpectedValidation
	// if a supposedly valid resource no longer passes.
	ExtractMetadata(path string, parentOp *uuid.UUID) (*Metadata, error)
}

// Lookup returns the validator for a type tag. Tags outside the enum return
// ErrUnknownResourceType; tags in the enum without a registered validator
// (sequence formats) return ErrNoValidatorForType.
func Lookup(tag string, cfg Config) (Validator, error) {
	switch tag {
	case TableType:
		return &TableValidator{cfg: cfg}, nil
	case MatrixType:
		return NewMatrixValidator(cfg), nil
	case IntegerMatrixType:
		return NewIntegerMatrixValidator(cfg), nil
	case AnnotationType:
		return NewAnnotationValidator(cfg), nil
	case FeatureTableType:
		return NewFeatureTableValidator(cfg), nil
	case BedType:
		return &BedValidator{}, nil
	case FastqType, FastaType, AlignmentType:
		return nil, fmt.Errorf("%w: %v", ErrNoValidatorForType, tag)
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownResourceType, tag)
	}
}

// ValidTypeTags lists every tag accepted as a resource_type value.
func ValidTypeTags() []string {
	return []string{
		TableType, MatrixType, IntegerMatrixType, AnnotationType,
		FeatureTableType, BedType, FastqType, FastaType, AlignmentType,
	}
}

// IsValidTypeTag reports whether tag is a member of the resource type enum.
func IsValidTypeTag(tag string) bool {
	for _, t := range ValidTypeTags() {
		if t == tag {
			return true
		}
	}
	return false
}

func convertDtype(d tabular.Dtype) metadata.AttributeType {
	switch d {
	case tabular.IntegerDtype:
		return metadata.IntegerAttribute
	case tabular.FloatDtype:
		return metadata.FloatAttribute
	default:
		return metadata.StringAttribute
	}
}
