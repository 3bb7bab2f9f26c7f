// Package main provides the Leadion API server implementation.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/google/uuid"

	"github.com/dukex/leadion/pkg/auth"
	"github.com/dukex/leadion/pkg/eventbus"
	"github.com/dukex/leadion/pkg/evaluation"
	"github.com/dukex/leadion/pkg/metrics"
	"github.com/dukex/leadion/pkg/otelhelper"
	"github.com/dukex/leadion/pkg/persistence"
	"github.com/dukex/leadion/pkg/registry"
	"github.com/dukex/leadion/pkg/runner"
	"github.com/dukex/leadion/pkg/services"
	"github.com/dukex/leadion/pkg/sessioncache"
	"github.com/dukex/leadion/pkg/tracker"
	"github.com/dukex/leadion/pkg/web"
)

// APIConfig carries the optional pieces of the API server.
type APIConfig struct {
	RedisURL       string
	MetricsEnabled bool
	MetricsPort    int
	// EmbeddedRunner executes dispatched runs inside this process. It is the
	// mode for the in-memory event bus, where no separate runner can share
	// the channel.
	EmbeddedRunner bool
}

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	eventBus    eventbus.EventBus
	validate    *validator.Validate

	config    APIConfig
	state     *tracker.StateManager
	collector *metrics.Collector
	cache     *sessioncache.Cache
	auth      *auth.Service
	campaigns *services.Campaign
}

func NewAPI(
	ctx context.Context,
	logger *slog.Logger,
	store persistence.Persistence,
	reg *registry.Registry,
	eventBus eventbus.EventBus,
	config APIConfig,
) (*API, error) {
	collector, err := metrics.NewCollector(config.MetricsEnabled)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics collector: %w", err)
	}

	var cache *sessioncache.Cache

	if config.RedisURL != "" {
		cache, err = sessioncache.NewCache(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open session cache: %w", err)
		}
	}

	authService := auth.NewService(store, cache)
	campaignService := services.NewCampaign(store, eventBus)

	api := &API{
		logger:      logger,
		persistence: store,
		registry:    reg,
		eventBus:    eventBus,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		config:      config,
		state:       tracker.NewStateManager(),
		collector:   collector,
		cache:       cache,
		auth:        authService,
		campaigns:   campaignService,
	}

	if err := api.registerTracking(); err != nil {
		return nil, err
	}

	if config.EmbeddedRunner {
		if err := api.registerRunner(ctx); err != nil {
			return nil, err
		}
	}

	return api, nil
}

// registerTracking subscribes the state tracker and the lightweight progress
// listener to the pipeline lifecycle events.
func (a *API) registerTracking() error {
	var evaluator tracker.Evaluator

	if apiKey := os.Getenv("EVALUATION_API_KEY"); apiKey != "" {
		evaluator = evaluation.NewClient(apiKey)
	}

	handlers := tracker.NewHandlers(a.state, a.collector, evaluator)
	if err := handlers.Register(a.eventBus); err != nil {
		return fmt.Errorf("failed to register tracker handlers: %w", err)
	}

	listener := tracker.NewProgressListener()
	if err := listener.Register(a.eventBus); err != nil {
		return fmt.Errorf("failed to register progress listener: %w", err)
	}

	return nil
}

func (a *API) registerRunner(ctx context.Context) error {
	tracer, err := otelhelper.NewTracer(ctx, "leadion-api")
	if err != nil {
		return fmt.Errorf("failed to create tracer: %w", err)
	}

	runnerID := "runner-" + uuid.New().String()[:8]

	embedded := runner.NewRunner(runnerID, a.registry, a.campaigns, a.eventBus, tracer)
	if err := embedded.Register(); err != nil {
		return fmt.Errorf("failed to register embedded runner: %w", err)
	}

	return nil
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.campaigns, a.auth, a.state, a.registry, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Leadion API")
	})

	handlers.RegisterRoutes(app)

	return app
}

func (a *API) Start(ctx context.Context, port int) error {
	if err := a.auth.StartCleanup("@hourly"); err != nil {
		return fmt.Errorf("failed to start session cleanup: %w", err)
	}

	if a.config.MetricsEnabled {
		if err := a.collector.StartPrometheusServer(a.config.MetricsPort); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
	}

	go func() {
		if err := a.eventBus.Subscribe(ctx); err != nil {
			a.logger.ErrorContext(ctx, "Event bus subscription ended", "error", err)
		}
	}()

	return a.App().Listen(":" + strconv.Itoa(port))
}

func (a *API) Shutdown(ctx context.Context) {
	a.auth.StopCleanup()

	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.ErrorContext(ctx, "Failed to close session cache", "error", err)
		}
	}

	if err := a.collector.Shutdown(ctx); err != nil {
		a.logger.ErrorContext(ctx, "Failed to shut down metrics collector", "error", err)
	}
}
