package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mediaserver/internal/config"
	"mediaserver/internal/logger"
	"mediaserver/internal/repository/sqlite"
	"mediaserver/internal/route"
	"mediaserver/internal/service/capture"
	"mediaserver/internal/service/files"
	"mediaserver/internal/service/storage"
	"mediaserver/internal/service/websocket"
	"mediaserver/internal/vision"
	"mediaserver/internal/vision/cv"
)

type App struct {
	config         *config.Config
	logger         *logger.Logger
	db             *sqlite.DB
	store          storage.Store
	hubService     *websocket.HubService
	filesService   *files.Service
	captureService *capture.Service
}

func NewApp() (*App, error) {
	cfg := config.Load()
	log := logger.NewLogger(cfg)

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	store, err := storage.New(cfg, log)
	if err != nil {
		db.Close()
		return nil, err
	}

	hub := websocket.NewHubService(log)
	filesService := files.NewService(sqlite.NewFileRepository(db), store, hub, log)

	publisher := vision.NewHTTPPublisher(cfg.Domain, time.Duration(cfg.PublishTimeout)*time.Second)
	components := func(detection vision.DetectionConfig) (vision.Components, func(), error) {
		return cv.Components(cfg.CascadeDir, detection, publisher)
	}
	captureService := capture.NewService(cfg, sqlite.NewCaptureRepository(db), components, hub, log)

	return &App{
		config:         cfg,
		logger:         log,
		db:             db,
		store:          store,
		hubService:     hub,
		filesService:   filesService,
		captureService: captureService,
	}, nil
}

// Run serves HTTP until SIGINT or SIGTERM.
func (a *App) Run() error {
	defer a.db.Close()

	go a.hubService.Run()
	defer a.hubService.Stop()

	router := route.SetupRoutes(a.config, a.logger, route.Services{
		Files:   a.filesService,
		Capture: a.captureService,
		Store:   a.store,
		Hub:     a.hubService,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.config.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.logger.Info("Media server listening on :%d (domain %s, media backend %s)",
		a.config.Port, a.config.Domain, a.config.MediaBackend)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case sig := <-stop:
		a.logger.Info("Received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(a.config.AllowedTimeout+5)*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}
