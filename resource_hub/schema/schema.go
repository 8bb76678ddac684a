package schema

import (
	"time"

	"github.com/google/uuid"

	"biodata_platform/resource_hub/metadata"
)

// Resource status values. Any other non-empty status is the error message
// from the last failed validation.
const (
	StatusValidating = "validating"
	StatusReady      = "ready"
)

// Resource describes one addressable data file. It is created as an
// inactive, typeless draft; ResourceType is only ever set after the file
// passes validation for that type.
type Resource struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	OwnerId uuid.UUID `gorm:"type:uuid;not null;index"`
	Owner   *User

	Name string `gorm:"size:255;not null"`
	Path string `gorm:"size:1024;not null;index"`

	ResourceType *string `gorm:"size:16"`

	// IsActive is the edit lock: while false, no field level edits from
	// non-privileged callers are permitted.
	IsActive bool `gorm:"not null;default:false"`
	IsPublic bool `gorm:"not null;default:false"`

	Status string `gorm:"size:2048"`

	WorkspaceId *uuid.UUID `gorm:"type:uuid"`
	Workspace   *Workspace `gorm:"constraint:OnDelete:SET NULL"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validated reports whether the resource has ever passed a type check.
func (r *Resource) Validated() bool {
	return r.ResourceType != nil
}

// ResourceMetadata is the one-to-one side record holding the entity sets
// extracted from a validated resource. It is owned exclusively by its
// resource and copied, never re-pointed, when the resource is copied.
type ResourceMetadata struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	ResourceId uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	Resource   *Resource `gorm:"constraint:OnDelete:CASCADE"`

	Observations JSONColumn[metadata.ObservationSet] `gorm:"type:text"`
	Features     JSONColumn[metadata.FeatureSet]     `gorm:"type:text"`

	ParentOperationId *uuid.UUID `gorm:"type:uuid"`
}

type Workspace struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	OwnerId uuid.UUID `gorm:"type:uuid;not null;index"`
	Owner   *User

	Name string `gorm:"size:100;not null"`

	CreatedAt time.Time
}

type User struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	Email string `gorm:"unique;size:254;not null"`
}

// ExecutedOperation records an analysis run against a resource inside a
// workspace. Its presence, completed or in flight, blocks deletion of the
// resource it references.
type ExecutedOperation struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	WorkspaceId uuid.UUID `gorm:"type:uuid;not null;index"`
	ResourceId  uuid.UUID `gorm:"type:uuid;not null;index"`

	Completed bool `gorm:"not null;default:false"`

	StartedAt time.Time
}

// AllModels lists every record type for migration.
func AllModels() []interface{} {
	return []interface{}{
		&User{}, &Workspace{}, &Resource{}, &ResourceMetadata{}, &ExecutedOperation{},
	}
}
