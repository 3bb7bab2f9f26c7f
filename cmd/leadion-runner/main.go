// Package main provides the standalone campaign runner, for deployments where
// the pipeline executes outside the API process.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/dukex/leadion/pkg/cmd"
	"github.com/dukex/leadion/pkg/log"
	"github.com/dukex/leadion/pkg/otelhelper"
	"github.com/dukex/leadion/pkg/runner"
	"github.com/dukex/leadion/pkg/services"
)

func main() {
	command := &cli.Command{
		Name:                  "leadion-runner",
		EnableShellCompletion: true,
		Usage:                 "Start a runner to execute campaign pipelines",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "runner-id",
				Aliases: []string{"id"},
				Usage:   "Custom runner ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("RUNNER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "event-bus",
				Usage:    "Event bus type (kafka)",
				Required: true,
				Sources:  cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup("leadion-runner", command.String("log-level"))

			runnerID := command.String("runner-id")
			if runnerID == "" {
				runnerID = "runner-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("leadion-runner").With("runner_id", runnerID)

			logger.InfoContext(ctx, "Initializing Leadion Runner")

			registry := cmd.NewRegistry(logger)

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), "leadion-runner", logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			tracer, err := otelhelper.NewTracer(ctx, "leadion-runner")
			if err != nil {
				return err
			}

			campaignService := services.NewCampaign(persistence, eventBus)

			worker := runner.NewRunner(runnerID, registry, campaignService, eventBus, tracer)
			if err := worker.Register(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			go func() {
				if err := eventBus.Subscribe(ctx); err != nil {
					logger.ErrorContext(ctx, "Event bus subscription ended", "error", err)
					stop()
				}
			}()

			<-ctx.Done()
			logger.Info("Shutting down runner")

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
