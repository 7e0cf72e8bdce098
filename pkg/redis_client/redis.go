package redis_client

import (
	"context"

	"github.com/adjust/rmq/v5"
	"github.com/redis/go-redis/v9"
)

var Client *redis.Client
var QueueConnection rmq.Connection

const defaultConnectionAddress = "localhost:6379"

func Connect(address string, password string, database int) error {
	if address == "" {
		address = defaultConnectionAddress
	}

	if password == "" {
		Client = redis.NewClient(&redis.Options{
			Addr: address,
			DB:   database,
		})
	} else {
		Client = redis.NewClient(&redis.Options{
			Addr:     address,
			Password: password,
			DB:       database,
		})
	}

	statusCmd := Client.Ping(context.Background())
	err := statusCmd.Err()
	if err != nil {
		return err
	}

	return nil
}

// OpenQueueConnection is only needed by the rmq lineage notifier
func OpenQueueConnection() error {
	var err error
	QueueConnection, err = rmq.OpenConnectionWithRedisClient("journeymapper", Client, nil)

	return err
}
