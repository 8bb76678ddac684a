package services

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"biodata_platform/resource_hub/schema"
	"biodata_platform/resource_hub/utils"
)

type UserService struct {
	db *gorm.DB
}

func (s *UserService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/create", s.Create)
	r.Get("/{user_id}", s.Info)

	return r
}

type createUserRequest struct {
	Email string `json:"email"`
}

func (s *UserService) Create(w http.ResponseWriter, r *http.Request) {
	var params createUserRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.Email == "" {
		http.Error(w, "email cannot be empty", http.StatusUnprocessableEntity)
		return
	}

	user := schema.User{Id: uuid.New(), Email: params.Email}

	if result := s.db.Create(&user); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			http.Error(w, "a user with this email already exists", http.StatusConflict)
			return
		}
		slog.Error("sql error creating user", "error", result.Error)
		http.Error(w, schema.ErrDbAccessFailed.Error(), http.StatusInternalServerError)
		return
	}

	slog.Info("created new user", "user_id", user.Id)

	utils.WriteJsonResponse(w, map[string]uuid.UUID{"user_id": user.Id})
}

type UserInfo struct {
	UserId uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
}

func (s *UserService) Info(w http.ResponseWriter, r *http.Request) {
	userId, err := utils.URLParamUUID(r, "user_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := schema.GetUser(userId, s.db)
	if err != nil {
		if errors.Is(err, schema.ErrUserNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, UserInfo{UserId: user.Id, Email: user.Email})
}
