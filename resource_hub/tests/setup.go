package tests

import (
	"os"
	"path/filepath"
	"testing"

	"biodata_platform/resource_hub/jobs"
	"biodata_platform/resource_hub/resourcetypes"
	"biodata_platform/resource_hub/schema"
	"biodata_platform/resource_hub/services"
	"biodata_platform/resource_hub/storage"

	"github.com/go-chi/chi/v5"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testEnv struct {
	hub     services.ResourceHub
	api     chi.Router
	storage storage.Storage
	db      *gorm.DB
}

func setupTestEnv(t *testing.T) *testEnv {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatal(err)
	}

	err = db.AutoMigrate(schema.AllModels()...)
	if err != nil {
		t.Fatal(err)
	}

	storagePath := filepath.Join(t.TempDir(), "storage")
	err = os.MkdirAll(storagePath, 0777)
	if err != nil {
		t.Fatalf("error creating storage directory: %v", err)
	}

	store := storage.NewSharedDisk(storagePath)

	typeConfig := resourcetypes.Config{}

	// the synchronous dispatcher makes validation outcomes visible as soon as
	// the type request returns
	finalizer := services.NewFinalizer(db, store, typeConfig)
	dispatcher := &jobs.SyncDispatcher{Runner: finalizer}

	hub := services.NewResourceHub(db, store, dispatcher, typeConfig)

	return &testEnv{hub: hub, api: hub.Routes(), storage: store, db: db}
}

func (e *testEnv) newClient() client {
	return client{api: e.api}
}

func (e *testEnv) fileExists(t *testing.T, path string) bool {
	t.Helper()
	exists, err := e.storage.Exists(path)
	if err != nil {
		t.Fatalf("error checking file existence: %v", err)
	}
	return exists
}
