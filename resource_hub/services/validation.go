package services

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"

	"biodata_platform/resource_hub/resourcetypes"
	"biodata_platform/resource_hub/schema"
	"biodata_platform/resource_hub/storage"
	"biodata_platform/utils/logging"
)

var (
	validationSuccess = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resource_validation_success", Help: "Resources that passed type validation",
	})
	validationFailure = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resource_validation_failure", Help: "Resources that failed type validation",
	})
)

const (
	msgUnknownType        = "'%v' is not a recognized resource type."
	msgTypeNotSupported   = "Validation of the '%v' resource type is not yet supported."
	msgMetadataExtraction = "The file passed validation but its metadata could not be extracted."
	msgFileFinalization   = "The file passed validation but could not be moved into final storage."
)

// Finalizer runs the validation pass for a resource and commits the outcome:
// on success the resource adopts the requested type, gains metadata, and (on
// its first ever success) has its file moved to the owner's directory. On
// failure the status carries the reason and the type and file are untouched.
type Finalizer struct {
	db    *gorm.DB
	store storage.Storage
	cfg   resourcetypes.Config
}

func NewFinalizer(db *gorm.DB, store storage.Storage, cfg resourcetypes.Config) *Finalizer {
	return &Finalizer{db: db, store: store, cfg: cfg}
}

func (f *Finalizer) Run(resourceId uuid.UUID, resourceType string, stale func() bool) {
	slog.Info("validation: starting", "resource_id", resourceId, "resource_type", resourceType, "code", logging.FILE_VALIDATION)

	resource, err := schema.GetResource(resourceId, f.db, false)
	if err != nil {
		slog.Error("validation: error loading resource", "resource_id", resourceId, "error", err, "code", logging.FILE_VALIDATION)
		return
	}

	validator, err := resourcetypes.Lookup(resourceType, f.cfg)
	if err != nil {
		if errors.Is(err, resourcetypes.ErrUnknownResourceType) {
			f.recordFailure(&resource, fmt.Sprintf(msgUnknownType, resourceType), stale)
		} else {
			f.recordFailure(&resource, fmt.Sprintf(msgTypeNotSupported, resourceType), stale)
		}
		return
	}

	// Validators read files directly rather than through the storage
	// interface, so resolve the path against the storage root.
	localPath := filepath.Join(f.store.Location(), resource.Path)

	result := validator.ValidateType(localPath)
	if !result.Valid {
		f.recordFailure(&resource, result.Message, stale)
		return
	}

	meta, err := validator.ExtractMetadata(localPath, nil)
	if err != nil {
		slog.Error("validation: error extracting metadata", "resource_id", resourceId, "error", err, "code", logging.METADATA_EXTRACT)
		f.recordFailure(&resource, msgMetadataExtraction, stale)
		return
	}

	if stale() {
		slog.Info("validation: discarding superseded result", "resource_id", resourceId, "resource_type", resourceType, "code", logging.FILE_VALIDATION)
		return
	}

	// The file is only relocated on the first successful validation.
	// Revalidating an already validated resource leaves it in place.
	finalPath := resource.Path
	if !resource.Validated() {
		if err := f.store.EnsureDir(storage.UserDir(resource.OwnerId)); err != nil {
			f.recordFailure(&resource, msgFileFinalization, stale)
			return
		}
		moved, err := f.store.Move(resource.Path, storage.FinalPath(resource.OwnerId, resource.Id, resource.Name))
		if err != nil {
			slog.Error("validation: error moving file to final location", "resource_id", resourceId, "error", err, "code", logging.FILE_VALIDATION)
			f.recordFailure(&resource, msgFileFinalization, stale)
			return
		}
		finalPath = moved
	}

	status := schema.StatusReady
	if result.Message != "" {
		status = fmt.Sprintf("%v: %v", schema.StatusReady, result.Message)
	}

	err = f.db.Transaction(func(txn *gorm.DB) error {
		if stale() {
			// The physical move already happened; record the new path but
			// let the newer request decide type and status.
			slog.Info("validation: discarding superseded result", "resource_id", resourceId, "resource_type", resourceType, "code", logging.FILE_VALIDATION)
			if finalPath != resource.Path {
				return txn.Model(&schema.Resource{}).Where("id = ?", resourceId).Update("path", finalPath).Error
			}
			return nil
		}

		updates := map[string]interface{}{
			"resource_type": resourceType,
			"status":        status,
			"is_active":     true,
			"path":          finalPath,
		}
		result := txn.Model(&schema.Resource{}).Where("id = ?", resourceId).Updates(updates)
		if result.Error != nil {
			slog.Error("validation: sql error finalizing resource", "resource_id", resourceId, "error", result.Error, "code", logging.FILE_VALIDATION)
			return schema.ErrDbAccessFailed
		}

		return f.upsertMetadata(txn, resourceId, meta)
	})
	if err != nil {
		slog.Error("validation: error committing validation result", "resource_id", resourceId, "error", err, "code", logging.FILE_VALIDATION)
		return
	}

	validationSuccess.Inc()
	slog.Info("validation: completed successfully", "resource_id", resourceId, "resource_type", resourceType, "code", logging.FILE_VALIDATION)
}

// upsertMetadata maintains the one-to-one invariant: a revalidation replaces
// the contents of the existing record instead of creating a second one.
func (f *Finalizer) upsertMetadata(txn *gorm.DB, resourceId uuid.UUID, meta *resourcetypes.Metadata) error {
	existing, err := schema.GetResourceMetadata(resourceId, txn)
	if err != nil && !errors.Is(err, schema.ErrMetadataNotFound) {
		return err
	}

	if errors.Is(err, schema.ErrMetadataNotFound) {
		record := schema.ResourceMetadata{
			Id:                uuid.New(),
			ResourceId:        resourceId,
			Observations:      schema.NewJSONColumn(meta.Observations),
			Features:          schema.NewJSONColumn(meta.Features),
			ParentOperationId: meta.ParentOperationId,
		}
		if result := txn.Create(&record); result.Error != nil {
			slog.Error("sql error creating resource metadata", "resource_id", resourceId, "error", result.Error, "code", logging.METADATA_EXTRACT)
			return schema.ErrDbAccessFailed
		}
		return nil
	}

	existing.Observations = schema.NewJSONColumn(meta.Observations)
	existing.Features = schema.NewJSONColumn(meta.Features)
	existing.ParentOperationId = meta.ParentOperationId
	if result := txn.Save(&existing); result.Error != nil {
		slog.Error("sql error updating resource metadata", "resource_id", resourceId, "error", result.Error, "code", logging.METADATA_EXTRACT)
		return schema.ErrDbAccessFailed
	}
	return nil
}

func (f *Finalizer) recordFailure(resource *schema.Resource, message string, stale func() bool) {
	validationFailure.Inc()

	if stale() {
		slog.Info("validation: discarding superseded failure", "resource_id", resource.Id, "code", logging.FILE_VALIDATION)
		return
	}

	// A previously validated resource stays usable under its old type, so it
	// is reactivated. A draft remains inactive until it first validates.
	updates := map[string]interface{}{"status": message, "is_active": resource.Validated()}
	result := f.db.Model(&schema.Resource{}).Where("id = ?", resource.Id).Updates(updates)
	if result.Error != nil {
		slog.Error("validation: error recording failure status", "resource_id", resource.Id, "error", result.Error, "code", logging.FILE_VALIDATION)
		return
	}

	slog.Info("validation: resource failed validation", "resource_id", resource.Id, "message", message, "code", logging.FILE_VALIDATION)
}
