package services

import (
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"gorm.io/gorm"

	"biodata_platform/resource_hub/jobs"
	"biodata_platform/resource_hub/resourcetypes"
	"biodata_platform/resource_hub/schema"
	"biodata_platform/resource_hub/storage"
	"biodata_platform/resource_hub/utils"
	"biodata_platform/utils/logging"
)

type ResourceHub struct {
	user      UserService
	workspace WorkspaceService
	resource  ResourceService

	db   *gorm.DB
	stop chan bool
}

func NewResourceHub(db *gorm.DB, store storage.Storage, dispatcher jobs.Dispatcher, typeConfig resourcetypes.Config) ResourceHub {
	return ResourceHub{
		user:      UserService{db: db},
		workspace: WorkspaceService{db: db},
		resource: ResourceService{
			db:         db,
			storage:    store,
			dispatcher: dispatcher,
			typeConfig: typeConfig,
		},
		db:   db,
		stop: make(chan bool, 1),
	}
}

func (h *ResourceHub) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger: log.New(os.Stderr, "", log.LstdFlags), NoColor: false,
	}))

	r.Mount("/user", h.user.Routes())
	r.Mount("/workspace", h.workspace.Routes())
	r.Mount("/resource", h.resource.Routes())

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteSuccess(w)
	})

	return r
}

// reapStaleValidations fails resources stuck in the validating state longer
// than the timeout. This covers validations lost to a process restart, since
// the queue is in memory.
func (h *ResourceHub) reapStaleValidations(timeout time.Duration) {
	cutoff := time.Now().UTC().Add(-timeout)

	result := h.db.Model(&schema.Resource{}).
		Where("status = ?", schema.StatusValidating).
		Where("updated_at < ?", cutoff).
		Update("status", "Validation did not complete. Please try setting the type again.")
	if result.Error != nil {
		slog.Error("status sync: sql error reaping stale validations", "error", result.Error, "code", logging.FILE_VALIDATION)
		return
	}
	if result.RowsAffected > 0 {
		slog.Info("status sync: failed stale validations", "count", result.RowsAffected, "code", logging.FILE_VALIDATION)
	}
}

// ValidationStatusSync periodically cleans up validations that will never
// complete. Run it in its own goroutine.
func (h *ResourceHub) ValidationStatusSync(interval, timeout time.Duration) {
	slog.Info("status sync: starting")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.reapStaleValidations(timeout)
		case <-h.stop:
			slog.Info("status sync: process stopped")
			return
		}
	}
}

func (h *ResourceHub) StopValidationStatusSync() {
	close(h.stop)
}
