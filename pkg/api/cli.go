package api

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/travigo/journeymapper/pkg/config"
	"github.com/travigo/journeymapper/pkg/ingest"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Provides the dated service journey lookup API",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run web api server along with the scheduled ingestion",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "listen",
						Usage: "listen target for the web server, overrides the configuration",
					},
				},
				Action: func(c *cli.Context) error {
					cfg, err := config.Load()
					if err != nil {
						return err
					}
					if listen := c.String("listen"); listen != "" {
						cfg.Listen = listen
					}

					ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
					defer cancel()

					runtime, err := ingest.NewRuntime(ctx, cfg)
					if err != nil {
						return err
					}
					defer runtime.Close()

					go runtime.Loader.Run(ctx, cfg.PollInterval)

					webApp := NewApp(Options{
						Identity:                runtime.Identity,
						Loader:                  runtime.Loader,
						Metrics:                 runtime.Metrics,
						HealthAllowedInactivity: cfg.HealthAllowedInactivity,
						QueueConnection:         runtime.QueueConnection,
					})

					go func() {
						<-ctx.Done()
						log.Info().Msg("Shutting down web server")
						webApp.Shutdown()
					}()

					log.Info().Str("listen", cfg.Listen).Msg("Starting web server")

					return webApp.Listen(cfg.Listen)
				},
			},
		},
	}
}
