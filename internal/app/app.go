package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pagemill/internal/common"
	"github.com/ternarybob/pagemill/internal/generator"
	"github.com/ternarybob/pagemill/internal/handlers"
	"github.com/ternarybob/pagemill/internal/interfaces"
	"github.com/ternarybob/pagemill/internal/services/events"
	"github.com/ternarybob/pagemill/internal/services/scheduler"
	badgerstorage "github.com/ternarybob/pagemill/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	EventService     interfaces.EventService
	GeneratorService *generator.Service
	Scheduler        *scheduler.Scheduler

	APIHandler  *handlers.APIHandler
	JobHandler  *handlers.JobHandler
	PageHandler *handlers.PageHandler
	WSHandler   *handlers.WebSocketHandler
}

// New wires the application together: storage, services, handlers
func New(ctx context.Context, config *common.Config, logger arbor.ILogger) (*App, error) {
	storageManager, err := badgerstorage.NewManager(logger, &config.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	if config.Seeds.Dir != "" {
		if err := storageManager.LoadSeedData(ctx, config.Seeds.Dir); err != nil {
			storageManager.Close()
			return nil, fmt.Errorf("failed to load seed data: %w", err)
		}
	}

	eventService := events.NewService(logger)
	generatorService := generator.NewService(storageManager, eventService, logger)
	maintenanceScheduler := scheduler.NewScheduler(storageManager.JobStorage(), &config.Maintenance, logger)

	app := &App{
		Config:           config,
		Logger:           logger,
		StorageManager:   storageManager,
		EventService:     eventService,
		GeneratorService: generatorService,
		Scheduler:        maintenanceScheduler,

		APIHandler:  handlers.NewAPIHandler(logger),
		JobHandler:  handlers.NewJobHandler(generatorService, logger),
		PageHandler: handlers.NewPageHandler(storageManager.PageStorage(), logger),
		WSHandler:   handlers.NewWebSocketHandler(eventService, logger),
	}

	if err := maintenanceScheduler.Start(); err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("failed to start maintenance scheduler: %w", err)
	}

	logger.Info().Msg("Application initialized")
	return app, nil
}

// Close releases application resources in dependency order
func (a *App) Close() error {
	a.GeneratorService.Shutdown()
	a.Scheduler.Stop()
	a.EventService.Close()

	if err := a.StorageManager.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to close storage")
		return err
	}
	return nil
}
