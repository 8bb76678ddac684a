package services

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"biodata_platform/resource_hub/jobs"
	"biodata_platform/resource_hub/metadata"
	"biodata_platform/resource_hub/resourcetypes"
	"biodata_platform/resource_hub/schema"
	"biodata_platform/resource_hub/storage"
	"biodata_platform/resource_hub/utils"
	"biodata_platform/utils/logging"
)

const (
	msgNoTypeSet = "This resource has not been assigned a type, so no preview is available."

	msgResourceInUse      = "This resource has been used by one or more analysis operations and cannot be removed."
	msgResourceValidating = "This resource is being validated and cannot be removed until validation completes."
	msgResourceInactive   = "This resource is not active and cannot be modified."
	msgResourceNotReady   = "Only validated resources can be added to a workspace."
	msgResourceAttached   = "This resource already belongs to a workspace. Attach the standalone resource instead."
)

type ResourceService struct {
	db *gorm.DB

	storage    storage.Storage
	dispatcher jobs.Dispatcher

	typeConfig resourcetypes.Config
}

func (s *ResourceService) Routes() chi.Router {
	r := chi.NewRouter()

	r.With(checkSufficientStorage(s.storage)).Post("/create", s.Create)
	r.Get("/list", s.List)
	r.Get("/types", s.Types)

	r.Route("/{resource_id}", func(r chi.Router) {
		r.Get("/", s.Info)
		r.Delete("/", s.Delete)
		r.Post("/type", s.SetType)
		r.Get("/preview", s.Preview)
		r.Get("/metadata", s.Metadata)
		r.Post("/attach", s.AttachToWorkspace)
	})

	return r
}

type ResourceInfo struct {
	ResourceId   uuid.UUID  `json:"resource_id"`
	OwnerId      uuid.UUID  `json:"owner_id"`
	Name         string     `json:"name"`
	ResourceType *string    `json:"resource_type"`
	IsActive     bool       `json:"is_active"`
	IsPublic     bool       `json:"is_public"`
	Status       string     `json:"status"`
	WorkspaceId  *uuid.UUID `json:"workspace_id"`
	Created      time.Time  `json:"created"`
}

func convertToResourceInfo(resource schema.Resource) ResourceInfo {
	return ResourceInfo{
		ResourceId:   resource.Id,
		OwnerId:      resource.OwnerId,
		Name:         resource.Name,
		ResourceType: resource.ResourceType,
		IsActive:     resource.IsActive,
		IsPublic:     resource.IsPublic,
		Status:       resource.Status,
		WorkspaceId:  resource.WorkspaceId,
		Created:      resource.CreatedAt,
	}
}

// Create accepts a file upload and registers it as an inactive, typeless
// resource. The file is parked in the upload area until the first successful
// validation moves it to the owner's directory. A requested_type form field
// submits the resource for validation immediately.
func (s *ResourceService) Create(w http.ResponseWriter, r *http.Request) {
	err := r.ParseMultipartForm(100 * 1024 * 1024)
	if err != nil {
		http.Error(w, fmt.Sprintf("error parsing multipart form: %v", err), http.StatusBadRequest)
		return
	}

	ownerId, err := uuid.Parse(r.FormValue("owner_id"))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid owner_id: %v", err), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, fmt.Sprintf("error reading file from request: %v", err), http.StatusBadRequest)
		return
	}
	defer file.Close()

	name := r.FormValue("name")
	if name == "" {
		name = filepath.Base(header.Filename)
	}

	requestedType := r.FormValue("requested_type")
	if requestedType != "" && !resourcetypes.IsValidTypeTag(requestedType) {
		http.Error(w, fmt.Sprintf("invalid resource type '%v', must be one of %v", requestedType, resourcetypes.ValidTypeTags()), http.StatusUnprocessableEntity)
		return
	}

	if err := checkUserExists(s.db, ownerId); err != nil {
		http.Error(w, err.Error(), GetResponseCode(err))
		return
	}

	resourceId := uuid.New()
	uploadPath := storage.UploadPath(resourceId, name)

	if err := s.storage.Write(uploadPath, file); err != nil {
		slog.Error("error writing uploaded file", "resource_id", resourceId, "error", err, "code", logging.RESOURCE_CREATE)
		http.Error(w, "error storing uploaded file", http.StatusInternalServerError)
		return
	}

	resource := schema.Resource{
		Id:        resourceId,
		OwnerId:   ownerId,
		Name:      name,
		Path:      uploadPath,
		IsActive:  false,
		IsPublic:  false,
		CreatedAt: time.Now().UTC(),
	}
	if requestedType != "" {
		resource.Status = schema.StatusValidating
	}

	if result := s.db.Create(&resource); result.Error != nil {
		slog.Error("sql error creating resource entry", "resource_id", resourceId, "error", result.Error, "code", logging.RESOURCE_CREATE)
		if err := s.storage.Delete(uploadPath); err != nil {
			slog.Error("error cleaning up uploaded file after failed create", "resource_id", resourceId, "error", err, "code", logging.RESOURCE_CREATE)
		}
		http.Error(w, schema.ErrDbAccessFailed.Error(), http.StatusInternalServerError)
		return
	}

	slog.Info("created new resource", "resource_id", resourceId, "owner_id", ownerId, "name", name, "code", logging.RESOURCE_CREATE)

	if requestedType != "" {
		slog.Info("submitting resource for validation", "resource_id", resourceId, "resource_type", requestedType, "code", logging.FILE_VALIDATION)
		s.dispatcher.SubmitValidation(resourceId, requestedType)
	}

	utils.WriteJsonResponse(w, map[string]uuid.UUID{"resource_id": resourceId})
}

type setTypeRequest struct {
	ResourceType string `json:"resource_type"`
}

// SetType requests asynchronous validation of the resource against a type.
// The resource is deactivated and marked validating; the outcome is applied
// by the validation worker. Re-typing an already validated resource is
// permitted and follows the same path.
func (s *ResourceService) SetType(w http.ResponseWriter, r *http.Request) {
	resourceId, err := utils.URLParamUUID(r, "resource_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var params setTypeRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if !resourcetypes.IsValidTypeTag(params.ResourceType) {
		http.Error(w, fmt.Sprintf("invalid resource type '%v', must be one of %v", params.ResourceType, resourcetypes.ValidTypeTags()), http.StatusUnprocessableEntity)
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		resource, err := schema.GetResource(resourceId, txn, false)
		if err != nil {
			if errors.Is(err, schema.ErrResourceNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		// A validated resource must be active for its type to change; drafts
		// (never validated) are always eligible.
		if resource.Validated() && !resource.IsActive {
			return CodedError(errors.New(msgResourceInactive), http.StatusConflict)
		}

		updates := map[string]interface{}{"status": schema.StatusValidating, "is_active": false}
		if result := txn.Model(&schema.Resource{}).Where("id = ?", resourceId).Updates(updates); result.Error != nil {
			slog.Error("sql error marking resource as validating", "resource_id", resourceId, "error", result.Error, "code", logging.FILE_VALIDATION)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})
	if err != nil {
		http.Error(w, err.Error(), GetResponseCode(err))
		return
	}

	slog.Info("submitting resource for validation", "resource_id", resourceId, "resource_type", params.ResourceType, "code", logging.FILE_VALIDATION)
	s.dispatcher.SubmitValidation(resourceId, params.ResourceType)

	utils.WriteSuccess(w)
}

func (s *ResourceService) Info(w http.ResponseWriter, r *http.Request) {
	resourceId, err := utils.URLParamUUID(r, "resource_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resource, err := schema.GetResource(resourceId, s.db, true)
	if err != nil {
		if errors.Is(err, schema.ErrResourceNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, convertToResourceInfo(resource))
}

func (s *ResourceService) List(w http.ResponseWriter, r *http.Request) {
	userId, err := uuid.Parse(r.URL.Query().Get("user_id"))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid user_id query parameter: %v", err), http.StatusBadRequest)
		return
	}

	workspaceId, err := utils.QueryParamUUID(r, "workspace_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resources, err := schema.ListResources(userId, workspaceId, s.db)
	if err != nil {
		http.Error(w, fmt.Sprintf("unable to list resources: %v", err), http.StatusInternalServerError)
		return
	}

	infos := make([]ResourceInfo, 0, len(resources))
	for _, resource := range resources {
		infos = append(infos, convertToResourceInfo(resource))
	}

	utils.WriteJsonResponse(w, infos)
}

func (s *ResourceService) Types(w http.ResponseWriter, r *http.Request) {
	utils.WriteJsonResponse(w, map[string][]string{"resource_types": resourcetypes.ValidTypeTags()})
}

// Preview returns the leading rows of the resource's table. Typeless
// resources get an informational message since no parser can be chosen
// without a type.
func (s *ResourceService) Preview(w http.ResponseWriter, r *http.Request) {
	resourceId, err := utils.URLParamUUID(r, "resource_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resource, err := schema.GetResource(resourceId, s.db, false)
	if err != nil {
		if errors.Is(err, schema.ErrResourceNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if !resource.Validated() {
		utils.WriteJsonResponse(w, resourcetypes.Preview{Info: msgNoTypeSet})
		return
	}

	validator, err := resourcetypes.Lookup(*resource.ResourceType, s.typeConfig)
	if err != nil {
		slog.Info("no preview available for resource type", "resource_id", resourceId, "resource_type", *resource.ResourceType, "code", logging.RESOURCE_PREVIEW)
		utils.WriteJsonResponse(w, resourcetypes.Preview{Info: fmt.Sprintf("Previews are not available for the '%v' resource type.", *resource.ResourceType)})
		return
	}

	preview := validator.GetPreview(filepath.Join(s.storage.Location(), resource.Path))
	utils.WriteJsonResponse(w, preview)
}

type MetadataResponse struct {
	ResourceId        uuid.UUID                `json:"resource_id"`
	Observations      *metadata.ObservationSet `json:"observations"`
	Features          *metadata.FeatureSet     `json:"features"`
	ParentOperationId *uuid.UUID               `json:"parent_operation_id"`
}

func (s *ResourceService) Metadata(w http.ResponseWriter, r *http.Request) {
	resourceId, err := utils.URLParamUUID(r, "resource_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	record, err := schema.GetResourceMetadata(resourceId, s.db)
	if err != nil {
		if errors.Is(err, schema.ErrMetadataNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, MetadataResponse{
		ResourceId:        resourceId,
		Observations:      record.Observations.Data,
		Features:          record.Features.Data,
		ParentOperationId: record.ParentOperationId,
	})
}

// Delete removes a resource record and, when no other record shares the
// backing file, the file itself. Resources referenced by operations and
// resources mid-validation cannot be removed.
func (s *ResourceService) Delete(w http.ResponseWriter, r *http.Request) {
	resourceId, err := utils.URLParamUUID(r, "resource_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var deleteFile bool
	var path string

	err = s.db.Transaction(func(txn *gorm.DB) error {
		resource, err := schema.GetResource(resourceId, txn, false)
		if err != nil {
			if errors.Is(err, schema.ErrResourceNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		if resource.Status == schema.StatusValidating {
			return CodedError(errors.New(msgResourceValidating), http.StatusConflict)
		}

		inUse, err := schema.ResourceUsedByOperation(resourceId, txn)
		if err != nil {
			return CodedError(err, http.StatusInternalServerError)
		}
		if inUse {
			return CodedError(errors.New(msgResourceInUse), http.StatusConflict)
		}

		// Workspace copies share the backing file with their source record.
		// Only the last record referencing the file may remove it.
		shared, err := schema.CountResourcesWithPath(resource.Path, txn)
		if err != nil {
			return CodedError(err, http.StatusInternalServerError)
		}

		switch {
		case shared == 1:
			deleteFile = true
		case shared > 1:
			slog.Info("backing file is shared, keeping it", "resource_id", resourceId, "path", resource.Path, "references", shared, "code", logging.RESOURCE_DELETE)
		default:
			// The resource itself holds this path, so a zero count means the
			// database is inconsistent. Abort rather than guess.
			slog.Error("no resource records found for path during delete", "resource_id", resourceId, "path", resource.Path, "code", logging.RESOURCE_DELETE)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		path = resource.Path

		if result := txn.Where("resource_id = ?", resourceId).Delete(&schema.ResourceMetadata{}); result.Error != nil {
			slog.Error("sql error deleting resource metadata", "resource_id", resourceId, "error", result.Error, "code", logging.RESOURCE_DELETE)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		if result := txn.Delete(&schema.Resource{}, "id = ?", resourceId); result.Error != nil {
			slog.Error("sql error deleting resource", "resource_id", resourceId, "error", result.Error, "code", logging.RESOURCE_DELETE)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		return nil
	})
	if err != nil {
		http.Error(w, err.Error(), GetResponseCode(err))
		return
	}

	if deleteFile {
		if err := s.storage.Delete(path); err != nil {
			slog.Error("error deleting backing file for resource", "resource_id", resourceId, "path", path, "error", err, "code", logging.RESOURCE_DELETE)
		}
	}

	slog.Info("deleted resource", "resource_id", resourceId, "file_deleted", deleteFile, "code", logging.RESOURCE_DELETE)

	utils.WriteSuccess(w)
}

type attachRequest struct {
	WorkspaceId uuid.UUID `json:"workspace_id"`
}

// AttachToWorkspace copies the resource into a workspace: a new private
// record pointing at the same backing file, with its own copy of the
// metadata. The source record is left untouched so the user's standalone
// view of the file persists.
func (s *ResourceService) AttachToWorkspace(w http.ResponseWriter, r *http.Request) {
	resourceId, err := utils.URLParamUUID(r, "resource_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var params attachRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	var copyId uuid.UUID

	err = s.db.Transaction(func(txn *gorm.DB) error {
		resource, err := schema.GetResource(resourceId, txn, false)
		if err != nil {
			if errors.Is(err, schema.ErrResourceNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		if !resource.Validated() || !resource.IsActive {
			return CodedError(errors.New(msgResourceNotReady), http.StatusUnprocessableEntity)
		}

		// Workspace copies are not re-attachable; the standalone record is the
		// source of truth for further copies.
		if resource.WorkspaceId != nil {
			return CodedError(errors.New(msgResourceAttached), http.StatusUnprocessableEntity)
		}

		if err := checkWorkspaceExists(txn, params.WorkspaceId); err != nil {
			return err
		}

		workspaceId := params.WorkspaceId
		copyId = uuid.New()
		resourceCopy := schema.Resource{
			Id:           copyId,
			OwnerId:      resource.OwnerId,
			Name:         resource.Name,
			Path:         resource.Path,
			ResourceType: resource.ResourceType,
			IsActive:     true,
			IsPublic:     false,
			Status:       resource.Status,
			WorkspaceId:  &workspaceId,
			CreatedAt:    time.Now().UTC(),
		}
		if result := txn.Create(&resourceCopy); result.Error != nil {
			slog.Error("sql error creating workspace resource copy", "resource_id", resourceId, "error", result.Error, "code", logging.RESOURCE_ATTACH)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		meta, err := schema.GetResourceMetadata(resourceId, txn)
		if err != nil {
			if errors.Is(err, schema.ErrMetadataNotFound) {
				// Validated resources normally carry metadata; tolerate its
				// absence but leave a trace.
				slog.Warn("validated resource has no metadata to copy", "resource_id", resourceId, "code", logging.RESOURCE_ATTACH)
				return nil
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		metaCopy := schema.ResourceMetadata{
			Id:                uuid.New(),
			ResourceId:        copyId,
			Observations:      meta.Observations,
			Features:          meta.Features,
			ParentOperationId: meta.ParentOperationId,
		}
		if result := txn.Create(&metaCopy); result.Error != nil {
			slog.Error("sql error copying resource metadata", "resource_id", resourceId, "error", result.Error, "code", logging.RESOURCE_ATTACH)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		return nil
	})
	if err != nil {
		http.Error(w, err.Error(), GetResponseCode(err))
		return
	}

	slog.Info("attached resource to workspace", "resource_id", resourceId, "workspace_id", params.WorkspaceId, "copy_id", copyId, "code", logging.RESOURCE_ATTACH)

	utils.WriteJsonResponse(w, map[string]uuid.UUID{"resource_id": copyId})
}
