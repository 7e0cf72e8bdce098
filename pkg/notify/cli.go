package notify

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/journeymapper/pkg/config"
	"github.com/travigo/journeymapper/pkg/consumer"
	"github.com/travigo/journeymapper/pkg/redis_client"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "notify",
		Usage: "Follow the new lineage notifications",
		Subcommands: []*cli.Command{
			{
				Name:  "tail",
				Usage: "print lineage events from the rmq queue as they arrive",
				Action: func(c *cli.Context) error {
					cfg, err := config.Load()
					if err != nil {
						return err
					}

					if err := redis_client.Connect(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.Database); err != nil {
						return err
					}
					if err := redis_client.OpenQueueConnection(); err != nil {
						return err
					}

					redisConsumer := consumer.RedisConsumer{
						Connection:      redis_client.QueueConnection,
						QueueName:       cfg.Notifier.Queue,
						NumberConsumers: 1,
						BatchSize:       20,
						Timeout:         2 * time.Second,
						Consumer:        NewPrintBatchConsumer(),
					}
					if err := redisConsumer.Setup(); err != nil {
						return err
					}

					signals := make(chan os.Signal, 1)
					signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
					defer signal.Stop(signals)

					<-signals
					go func() {
						<-signals
						os.Exit(1)
					}()

					log.Info().Msg("Stopping consumers")
					<-redis_client.QueueConnection.StopAllConsuming()

					return nil
				},
			},
		},
	}
}
