package netex

import (
	"fmt"

	"github.com/kr/pretty"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "netex",
		Usage: "Inspect NeTEx timetable archives",
		Subcommands: []*cli.Command{
			{
				Name:  "inspect",
				Usage: "Parse an archive and print the dated occurrences it expands to",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Usage:    "Path to the NeTEx zip archive",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "occurrences",
						Usage: "Print every occurrence rather than only the summary",
					},
				},
				Action: func(c *cli.Context) error {
					path := c.String("file")

					processor := NewProcessor(path)
					if err := processor.LoadFile(path); err != nil {
						return err
					}

					occurrences, stats, err := processor.Occurrences()
					if err != nil {
						return err
					}

					log.Info().
						Str("file", path).
						Time("publicationtimestamp", processor.PublicationTimestamp).
						Str("timezone", processor.TimeZone).
						Msg("Loaded archive")

					for _, document := range processor.Documents {
						fmt.Printf("%# v\n", pretty.Formatter(document))
					}
					fmt.Printf("%# v\n", pretty.Formatter(stats))

					if c.Bool("occurrences") {
						for _, occurrence := range occurrences {
							fmt.Printf("%# v\n", pretty.Formatter(occurrence))
						}
					}

					return nil
				},
			},
		},
	}
}
