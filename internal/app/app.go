package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/hansard-backend/internal/data/db"
	httpserver "github.com/yungbote/hansard-backend/internal/http"
	"github.com/yungbote/hansard-backend/internal/observability"
	"github.com/yungbote/hansard-backend/internal/pkg/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Clients  Clients
	Repos    Repos
	Services Services

	stopTracing func(context.Context) error
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	stopTracing := observability.InitTracing(context.Background(), log, observability.Config{
		ServiceName: "hansard-backend",
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})

	// Postgres only backs the sitting catalog and pipeline run history; the
	// pipelines themselves run off object storage, so a missing database
	// degrades rather than aborts.
	var theDB *gorm.DB
	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Warn("Postgres init failed, catalog disabled", "error", err)
	} else if err := pg.AutoMigrateAll(); err != nil {
		log.Warn("Postgres automigrate failed, catalog disabled", "error", err)
	} else {
		theDB = pg.DB()
	}

	clientset, err := wireClients(log)
	if err != nil {
		log.Sync()
		return nil, err
	}

	reposet := wireRepos(theDB, log)
	serviceset := wireServices(log, clientset, reposet)
	handlerset := wireHandlers(log, clientset, reposet, serviceset, theDB != nil)

	router := httpserver.NewRouter(httpserver.RouterConfig{
		Log:               log,
		HealthHandler:     handlerset.Health,
		IngestHandler:     handlerset.Ingest,
		TranscriptHandler: handlerset.Transcript,
		MomentsHandler:    handlerset.Moments,
		VideoHandler:      handlerset.Video,
		ChatHandler:       handlerset.Chat,
	})

	return &App{
		Log:         log,
		DB:          theDB,
		Router:      router,
		Cfg:         cfg,
		Clients:     clientset,
		Repos:       reposet,
		Services:    serviceset,
		stopTracing: stopTracing,
	}, nil
}

func (a *App) Run(addr string) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Router.Run(addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.stopTracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.stopTracing(ctx); err != nil {
			a.Log.Warn("trace exporter shutdown failed", "error", err)
		}
		cancel()
		a.stopTracing = nil
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
