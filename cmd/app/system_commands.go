package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v3"

	"github.com/antistereov/singularity-core-sub003/cmd/app/commands"
	"github.com/antistereov/singularity-core-sub003/internal/app"
	"github.com/antistereov/singularity-core-sub003/internal/config"
)

func getSystemCommands(version string) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "worker",
			Usage: "Run scheduled secret rotation with the health and metrics server",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				gin.SetMode(cfg.GetGinMode())

				container := app.NewContainer(cfg)
				logger := container.Logger()
				defer commands.CloseContainer(container, logger)

				logger.Info("starting worker", slog.String("version", version))

				scheduler, err := container.RotationScheduler()
				if err != nil {
					return fmt.Errorf("failed to initialize rotation scheduler: %w", err)
				}
				server, err := container.OpsServer()
				if err != nil {
					return fmt.Errorf("failed to initialize ops server: %w", err)
				}

				ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer cancel()

				return commands.RunWorker(ctx, scheduler, server, logger, cfg.DBConnMaxLifetime)
			},
		},
		{
			Name:  "migrate",
			Usage: "Run database migrations",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)

				return commands.RunMigrations(container.Logger(), cfg.DBDriver, cfg.DBConnectionString)
			},
		},
	}
}

func loadConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
