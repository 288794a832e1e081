package app

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/dei-rnl/thesis-service/internal/config"
	"github.com/dei-rnl/thesis-service/internal/delivery/httpd"
	"github.com/dei-rnl/thesis-service/internal/repository"
	"github.com/dei-rnl/thesis-service/internal/service"
	"github.com/dei-rnl/thesis-service/internal/service/integration"
	"github.com/dei-rnl/thesis-service/internal/worker"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

type App struct {
	server    *http.Server
	logger    zerolog.Logger
	config    *config.Config
	db        *sql.DB
	publisher integration.EventPublisher
	sweeper   *worker.Sweeper
}

func New(cfg *config.Config, log zerolog.Logger, db *sql.DB) (*App, error) {
	publisher, err := integration.NewRabbitMQClient(
		cfg.RabbitMQ.URL,
		cfg.RabbitMQ.Exchange,
		cfg.RabbitMQ.RoutingKey,
		cfg.RabbitMQ.QueueName,
		log,
	)
	if err != nil {
		// Workflow transitions work without the broker; events are dropped.
		log.Error().Err(err).Msg("Failed to create RabbitMQ client")
		publisher = nil
	}

	store := repository.NewPostgresStore(db, log)

	personService := service.NewPersonService(store, log)
	thesisService := service.NewThesisWorkflowService(store, publisher, log)
	defenseService := service.NewDefenseWorkflowService(store, publisher, log)
	dashboardService := service.NewDashboardService(store, log)

	handler := httpd.NewHandler(
		personService,
		thesisService,
		defenseService,
		dashboardService,
		log,
	)

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		ExposedHeaders:   cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           cfg.CORS.MaxAge,
	}))

	handler.RegisterRoutes(router)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	var sweeper *worker.Sweeper
	if cfg.Worker.SweepEnabled {
		sweeper = worker.NewSweeper(defenseService, cfg.Worker.SweepInterval, log)
	}

	return &App{
		server:    server,
		logger:    log,
		config:    cfg,
		db:        db,
		publisher: publisher,
		sweeper:   sweeper,
	}, nil
}

func (a *App) Run() error {
	if a.sweeper != nil {
		a.sweeper.Start(context.Background())
	}

	a.logger.Info().Msgf("Starting thesis service on %s", a.config.Server.Address)
	return a.server.ListenAndServe()
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info().Msg("Shutting down thesis service...")

	if a.sweeper != nil {
		a.sweeper.Stop()
	}

	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close RabbitMQ connection")
		}
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close database connection")
		}
	}

	return a.server.Shutdown(ctx)
}
