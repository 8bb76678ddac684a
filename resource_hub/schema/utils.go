package schema

import (
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrResourceNotFound  = errors.New("resource not found")
	ErrWorkspaceNotFound = errors.New("workspace not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrMetadataNotFound  = errors.New("resource metadata not found")

	// ErrMetadataConflict means multiple metadata records reference the same
	// resource. The unique index should make this impossible, so treat it as
	// corruption and refuse to pick one.
	ErrMetadataConflict = errors.New("multiple metadata records for resource")

	ErrDbAccessFailed = errors.New("database access failed")
)

func GetResource(resourceId uuid.UUID, db *gorm.DB, preloadWorkspace bool) (Resource, error) {
	var resource Resource

	if preloadWorkspace {
		db = db.Preload("Workspace")
	}

	result := db.First(&resource, "id = ?", resourceId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Resource{}, ErrResourceNotFound
		}
		slog.Error("sql error getting resource", "resource_id", resourceId, "error", result.Error)
		return Resource{}, ErrDbAccessFailed
	}

	return resource, nil
}

func GetWorkspace(workspaceId uuid.UUID, db *gorm.DB) (Workspace, error) {
	var workspace Workspace

	result := db.First(&workspace, "id = ?", workspaceId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Workspace{}, ErrWorkspaceNotFound
		}
		slog.Error("sql error getting workspace", "workspace_id", workspaceId, "error", result.Error)
		return Workspace{}, ErrDbAccessFailed
	}

	return workspace, nil
}

func GetUser(userId uuid.UUID, db *gorm.DB) (User, error) {
	var user User

	result := db.First(&user, "id = ?", userId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return User{}, ErrUserNotFound
		}
		slog.Error("sql error getting user", "user_id", userId, "error", result.Error)
		return User{}, ErrDbAccessFailed
	}

	return user, nil
}

// GetResourceMetadata returns the single metadata record for a resource.
// Zero records yields ErrMetadataNotFound, more than one ErrMetadataConflict.
func GetResourceMetadata(resourceId uuid.UUID, db *gorm.DB) (ResourceMetadata, error) {
	var records []ResourceMetadata

	result := db.Where("resource_id = ?", resourceId).Find(&records)
	if result.Error != nil {
		slog.Error("sql error getting resource metadata", "resource_id", resourceId, "error", result.Error)
		return ResourceMetadata{}, ErrDbAccessFailed
	}

	switch len(records) {
	case 0:
		return ResourceMetadata{}, ErrMetadataNotFound
	case 1:
		return records[0], nil
	default:
		slog.Error("multiple metadata records found for resource", "resource_id", resourceId, "count", len(records))
		return ResourceMetadata{}, ErrMetadataConflict
	}
}

// CountResourcesWithPath returns how many resource records point at the
// given stored file. Copies created by workspace attachment share the
// backing file, so the count gates physical deletion.
func CountResourcesWithPath(path string, db *gorm.DB) (int64, error) {
	var count int64

	result := db.Model(&Resource{}).Where("path = ?", path).Count(&count)
	if result.Error != nil {
		slog.Error("sql error counting resources by path", "path", path, "error", result.Error)
		return 0, ErrDbAccessFailed
	}

	return count, nil
}

// ResourceUsedByOperation reports whether any executed operation, completed
// or still running, references the resource.
func ResourceUsedByOperation(resourceId uuid.UUID, db *gorm.DB) (bool, error) {
	var count int64

	result := db.Model(&ExecutedOperation{}).Where("resource_id = ?", resourceId).Count(&count)
	if result.Error != nil {
		slog.Error("sql error checking operations for resource", "resource_id", resourceId, "error", result.Error)
		return false, ErrDbAccessFailed
	}

	return count > 0, nil
}

// ListResources returns the resources visible to a user: their own records
// plus public ones, optionally filtered to a workspace.
func ListResources(userId uuid.UUID, workspaceId *uuid.UUID, db *gorm.DB) ([]Resource, error) {
	var resources []Resource

	query := db.Where("owner_id = ? OR is_public = ?", userId, true)
	if workspaceId != nil {
		query = query.Where("workspace_id = ?", *workspaceId)
	}

	result := query.Order("created_at desc").Find(&resources)
	if result.Error != nil {
		slog.Error("sql error listing resources", "user_id", userId, "error", result.Error)
		return nil, ErrDbAccessFailed
	}

	return resources, nil
}
