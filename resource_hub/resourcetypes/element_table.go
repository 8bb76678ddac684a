package resourcetypes

import (
	"fmt"

	"biodata_platform/resource_hub/metadata"
	"biodata_platform/resource_hub/tabular"

	"github.com/google/uuid"
)

// elementTable captures the shared behavior of tables that annotate
// observations or features: entities live in the rows, covariates in the
// columns. It is not registered directly.
type elementTable struct {
	parent TableValidator
}

func (v *elementTable) checkTable(table *tabular.Table) Result {
	if res := v.parent.checkTable(table); !res.Valid {
		return res
	}

	// second guard for usefulness: a table with only an index column parses
	// fine but carries no information
	if table.NumColumns() == 0 {
		return invalid(MsgTrivialTable)
	}

	return ok()
}

// prepareEntities builds one named entity per row, with one typed attribute
// per column. The attribute type is inferred per column from its dtype,
// independent of any individual row's content.
func (v *elementTable) prepareEntities(table *tabular.Table) []metadata.Element {
	attrTypes := make([]metadata.AttributeType, table.NumColumns())
	for i, dtype := range table.Dtypes() {
		attrTypes[i] = convertDtype(dtype)
	}

	elements := make([]metadata.Element, 0, table.NumRows())
	for ri, rowLabel := range table.Rows {
		attrs := make(map[string]metadata.Attribute, table.NumColumns())
		for ci, col := range table.Columns {
			cell := table.Values[ri][ci]
			attrs[col] = metadata.NewAttribute(attrTypes[ci], cell, tabular.IsMissing(cell))
		}
		elements = append(elements, metadata.Element{Id: rowLabel, Attributes: attrs})
	}
	return elements
}

// AnnotationValidator handles tables that annotate observations/samples:
// the first column gives the sample names, the remaining columns covariates
// such as experimental group.
type AnnotationValidator struct {
	parent elementTable
}

func NewAnnotationValidator(cfg Config) *AnnotationValidator {
	return &AnnotationValidator{parent: elementTable{parent: TableValidator{cfg: cfg}}}
}

func (v *AnnotationValidator) checkTable(table *tabular.Table) Result {
	if res := v.parent.checkTable(table); !res.Valid {
		return res
	}

	// Annotation files have a free format, so proper headers are hard to
	// check. If a column name matches any value in its own column, the
	// header line was likely missing; warn without failing.
	for ci, col := range table.Columns {
		for _, cell := range table.Column(ci) {
			if cell == col {
				return warning(MsgMissingHeaderWarning)
			}
		}
	}

	return ok()
}

func (v *AnnotationValidator) ValidateType(path string) Result {
	table, res := v.parent.parent.load(path)
	if table == nil {
		return res
	}
	return v.checkTable(table)
}

func (v *AnnotationValidator) GetPreview(path string) Preview {
	return v.parent.parent.GetPreview(path)
}

// ExtractMetadata derives the ObservationSet from the rows; annotation
// tables describe samples.
func (v *AnnotationValidator) ExtractMetadata(path string, parentOp *uuid.UUID) (*Metadata, error) {
	table, err := v.parent.parent.revalidate(path, v.checkTable)
	if err != nil {
		return nil, err
	}

	observationSet, err := metadata.NewObservationSet(v.parent.prepareEntities(table))
	if err != nil {
		return nil, fmt.Errorf("error building observation set: %w", err)
	}

	return &Metadata{Observations: &observationSet, ParentOperationId: parentOp}, nil
}

// FeatureTableValidator handles tables with aggregate information about
// features and no observations in the columns, e.g. differential expression
// results keyed by gene.
type FeatureTableValidator struct {
	parent elementTable
}

func NewFeatureTableValidator(cfg Config) *FeatureTableValidator {
	return &FeatureTableValidator{parent: elementTable{parent: TableValidator{cfg: cfg}}}
}

func (v *FeatureTableValidator) ValidateType(path string) Result {
	table, res := v.parent.parent.load(path)
	if table == nil {
		return res
	}
	return v.parent.checkTable(table)
}

func (v *FeatureTableValidator) GetPreview(path string) Preview {
	return v.parent.parent.GetPreview(path)
}

// ExtractMetadata derives the FeatureSet from the rows.
func (v *FeatureTableValidator) ExtractMetadata(path string, parentOp *uuid.UUID) (*Metadata, error) {
	table, err := v.parent.parent.revalidate(path, v.parent.checkTable)
	if err != nil {
		return nil, err
	}

	featureSet, err := metadata.NewFeatureSet(v.parent.prepareEntities(table))
	if err != nil {
		return nil, fmt.Errorf("error building feature set: %w", err)
	}

	return &Metadata{Features: &featureSet, ParentOperationId: parentOp}, nil
}
