package services

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"biodata_platform/resource_hub/schema"
	"biodata_platform/resource_hub/utils"
)

type WorkspaceService struct {
	db *gorm.DB
}

func (s *WorkspaceService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/create", s.Create)
	r.Get("/list", s.List)

	r.Route("/{workspace_id}", func(r chi.Router) {
		r.Get("/", s.Info)
		r.Post("/operation/start", s.StartOperation)
	})

	r.Post("/operation/{operation_id}/complete", s.CompleteOperation)

	return r
}

type createWorkspaceRequest struct {
	OwnerId uuid.UUID `json:"owner_id"`
	Name    string    `json:"name"`
}

type WorkspaceInfo struct {
	WorkspaceId uuid.UUID `json:"workspace_id"`
	OwnerId     uuid.UUID `json:"owner_id"`
	Name        string    `json:"name"`
	Created     time.Time `json:"created"`
}

func convertToWorkspaceInfo(workspace schema.Workspace) WorkspaceInfo {
	return WorkspaceInfo{
		WorkspaceId: workspace.Id,
		OwnerId:     workspace.OwnerId,
		Name:        workspace.Name,
		Created:     workspace.CreatedAt,
	}
}

func (s *WorkspaceService) Create(w http.ResponseWriter, r *http.Request) {
	var params createWorkspaceRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.Name == "" {
		http.Error(w, "workspace name cannot be empty", http.StatusUnprocessableEntity)
		return
	}

	if err := checkUserExists(s.db, params.OwnerId); err != nil {
		http.Error(w, err.Error(), GetResponseCode(err))
		return
	}

	workspace := schema.Workspace{
		Id:        uuid.New(),
		OwnerId:   params.OwnerId,
		Name:      params.Name,
		CreatedAt: time.Now().UTC(),
	}

	if result := s.db.Create(&workspace); result.Error != nil {
		slog.Error("sql error creating workspace", "error", result.Error)
		http.Error(w, schema.ErrDbAccessFailed.Error(), http.StatusInternalServerError)
		return
	}

	slog.Info("created new workspace", "workspace_id", workspace.Id, "owner_id", params.OwnerId)

	utils.WriteJsonResponse(w, map[string]uuid.UUID{"workspace_id": workspace.Id})
}

func (s *WorkspaceService) Info(w http.ResponseWriter, r *http.Request) {
	workspaceId, err := utils.URLParamUUID(r, "workspace_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	workspace, err := schema.GetWorkspace(workspaceId, s.db)
	if err != nil {
		if errors.Is(err, schema.ErrWorkspaceNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, convertToWorkspaceInfo(workspace))
}

func (s *WorkspaceService) List(w http.ResponseWriter, r *http.Request) {
	userId, err := uuid.Parse(r.URL.Query().Get("user_id"))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid user_id query parameter: %v", err), http.StatusBadRequest)
		return
	}

	var workspaces []schema.Workspace
	result := s.db.Where("owner_id = ?", userId).Order("created_at desc").Find(&workspaces)
	if result.Error != nil {
		slog.Error("sql error listing workspaces", "user_id", userId, "error", result.Error)
		http.Error(w, schema.ErrDbAccessFailed.Error(), http.StatusInternalServerError)
		return
	}

	infos := make([]WorkspaceInfo, 0, len(workspaces))
	for _, workspace := range workspaces {
		infos = append(infos, convertToWorkspaceInfo(workspace))
	}

	utils.WriteJsonResponse(w, infos)
}

type startOperationRequest struct {
	ResourceId uuid.UUID `json:"resource_id"`
}

// StartOperation records an analysis run against a workspace resource. The
// record blocks deletion of the resource for as long as it exists.
func (s *WorkspaceService) StartOperation(w http.ResponseWriter, r *http.Request) {
	workspaceId, err := utils.URLParamUUID(r, "workspace_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var params startOperationRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	operationId := uuid.New()

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkWorkspaceExists(txn, workspaceId); err != nil {
			return err
		}

		resource, err := schema.GetResource(params.ResourceId, txn, false)
		if err != nil {
			if errors.Is(err, schema.ErrResourceNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		if !resource.Validated() || !resource.IsActive {
			return CodedError(errors.New("operations can only be started on validated, active resources"), http.StatusUnprocessableEntity)
		}

		operation := schema.ExecutedOperation{
			Id:          operationId,
			WorkspaceId: workspaceId,
			ResourceId:  params.ResourceId,
			StartedAt:   time.Now().UTC(),
		}
		if result := txn.Create(&operation); result.Error != nil {
			slog.Error("sql error creating executed operation", "workspace_id", workspaceId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		return nil
	})
	if err != nil {
		http.Error(w, err.Error(), GetResponseCode(err))
		return
	}

	slog.Info("started operation", "operation_id", operationId, "workspace_id", workspaceId, "resource_id", params.ResourceId)

	utils.WriteJsonResponse(w, map[string]uuid.UUID{"operation_id": operationId})
}

func (s *WorkspaceService) CompleteOperation(w http.ResponseWriter, r *http.Request) {
	operationId, err := utils.URLParamUUID(r, "operation_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result := s.db.Model(&schema.ExecutedOperation{}).Where("id = ?", operationId).Update("completed", true)
	if result.Error != nil {
		slog.Error("sql error completing operation", "operation_id", operationId, "error", result.Error)
		http.Error(w, schema.ErrDbAccessFailed.Error(), http.StatusInternalServerError)
		return
	}
	if result.RowsAffected == 0 {
		http.Error(w, "operation not found", http.StatusNotFound)
		return
	}

	slog.Info("completed operation", "operation_id", operationId)

	utils.WriteSuccess(w)
}
