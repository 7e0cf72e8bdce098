package ingest

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/travigo/journeymapper/pkg/config"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "ingest",
		Usage: "Ingest published timetable files",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run a single ingestion pass over the blob store and exit",
				Action: func(c *cli.Context) error {
					cfg, err := config.Load()
					if err != nil {
						return err
					}

					ctx := context.Background()

					runtime, err := NewRuntime(ctx, cfg)
					if err != nil {
						return err
					}
					defer runtime.Close()

					runtime.Loader.LoadAll(ctx)
					log.Info().Time("lastsuccess", runtime.Loader.LastSuccessfulLoad()).Msg("Ingestion pass complete")

					return nil
				},
			},
		},
	}
}
