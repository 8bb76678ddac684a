package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"biodata_platform/resource_hub/jobs"
	"biodata_platform/resource_hub/resourcetypes"
	"biodata_platform/resource_hub/schema"
	"biodata_platform/resource_hub/services"
	"biodata_platform/resource_hub/storage"
	"biodata_platform/utils/logging"

	"github.com/caarlos0/env/v10"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	slogmulti "github.com/samber/slog-multi"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type resourceHubEnv struct {
	DatabaseUri string `env:"DATABASE_URI,required"`
	StorageDir  string `env:"USER_STORAGE_DIR,required"`

	IngressHostname string `env:"INGRESS_HOSTNAME" envDefault:"*"`

	ValidationQueueSize int `env:"VALIDATION_QUEUE_SIZE" envDefault:"64"`

	AllowNumericColumnNames bool `env:"ALLOW_NUMERIC_COLUMN_NAMES" envDefault:"false"`
	AllowNumericRowNames    bool `env:"ALLOW_NUMERIC_ROW_NAMES" envDefault:"false"`
}

func loadEnvFile(envFile string) {
	slog.Info(fmt.Sprintf("loading env from file %v", envFile))
	err := godotenv.Load(envFile)
	if err != nil {
		log.Fatalf("error loading .env file '%v': %v", envFile, err)
	}
}

func (e *resourceHubEnv) postgresDsn() string {
	parts, err := url.Parse(e.DatabaseUri)
	if err != nil {
		log.Fatalf("error parsing db uri: %v", err)
	}
	pwd, _ := parts.User.Password()
	dbname := strings.TrimPrefix(parts.Path, "/")
	return fmt.Sprintf("host=%v user=%v password=%v dbname=%v port=%v", parts.Hostname(), parts.User.Username(), pwd, dbname, parts.Port())
}

func initLogging(logFile *os.File) {
	jsonHandler := slog.NewJSONHandler(logFile, logging.GetVictoriaLogsOptions(true))
	textHandler := slog.NewTextHandler(os.Stderr, nil)

	logger := slog.New(slogmulti.Fanout(jsonHandler, textHandler))
	slog.SetDefault(logger)
	slog.Info("logging initialized", "log_file", logFile.Name(), "code", logging.SYSTEM)
}

func initDb(dsn string) *gorm.DB {
	// TranslateError turns driver constraint violations into gorm sentinels
	// like ErrDuplicatedKey, which the services branch on.
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("error opening database connection: %v", err)
	}

	err = db.AutoMigrate(schema.AllModels()...)
	if err != nil {
		log.Fatalf("error migrating db schema: %v", err)
	}

	return db
}

func main() {
	envFile := flag.String("env", "", "File to load env variables from. If not specified will just load them from the environment variables already defined.")
	port := flag.Int("port", 8000, "Port to run server on")

	flag.Parse()

	if *envFile != "" {
		loadEnvFile(*envFile)
	}

	var envVars resourceHubEnv
	if err := env.Parse(&envVars); err != nil {
		log.Fatalf("error parsing environment variables: %v", err)
	}

	err := os.MkdirAll(filepath.Join(envVars.StorageDir, "logs/"), 0777)
	if err != nil {
		log.Fatalf("error creating log dir: %v", err)
	}

	logFile, err := os.OpenFile(filepath.Join(envVars.StorageDir, "logs/resource_hub.log"), os.O_CREATE|os.O_APPEND|os.O_RDWR, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer logFile.Close()

	initLogging(logFile)

	db := initDb(envVars.postgresDsn())

	sharedStorage := storage.NewSharedDisk(envVars.StorageDir)

	typeConfig := resourcetypes.Config{
		AllowNumericColumnNames: envVars.AllowNumericColumnNames,
		AllowNumericRowNames:    envVars.AllowNumericRowNames,
	}

	finalizer := services.NewFinalizer(db, sharedStorage, typeConfig)
	dispatcher := jobs.NewLocalDispatcher(finalizer, envVars.ValidationQueueSize)
	go dispatcher.Worker()

	resourceHub := services.NewResourceHub(db, sharedStorage, dispatcher, typeConfig)
	go resourceHub.ValidationStatusSync(time.Minute, 30*time.Minute)

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{envVars.IngressHostname},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Mount("/api/v1", resourceHub.Routes())
	r.Handle("/metrics", promhttp.Handler())

	server := &http.Server{Addr: fmt.Sprintf(":%d", *port), Handler: r}

	go func() {
		slog.Info("starting server", "port", *port, "code", logging.SYSTEM)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen and serve returned error: %v", err.Error())
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	slog.Info("shutting down", "code", logging.SYSTEM)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("error shutting down server", "error", err, "code", logging.SYSTEM)
	}

	resourceHub.StopValidationStatusSync()
	dispatcher.Stop()
}
