package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/adjust/rmq/v5"
	"github.com/rs/zerolog/log"
	"github.com/travigo/journeymapper/pkg/blobstore"
	"github.com/travigo/journeymapper/pkg/config"
	"github.com/travigo/journeymapper/pkg/database"
	"github.com/travigo/journeymapper/pkg/elastic_client"
	"github.com/travigo/journeymapper/pkg/identity"
	"github.com/travigo/journeymapper/pkg/leader"
	"github.com/travigo/journeymapper/pkg/metrics"
	"github.com/travigo/journeymapper/pkg/notify"
	"github.com/travigo/journeymapper/pkg/redis_client"
	"github.com/travigo/journeymapper/pkg/storage"
)

// Runtime is everything a running instance is built from
type Runtime struct {
	Config   *config.Config
	Metrics  *metrics.Collector
	Store    *storage.Store
	Identity *identity.Service
	Loader   *Loader
	Elector  leader.Elector

	// QueueConnection is only opened for the rmq notifier
	QueueConnection rmq.Connection

	closers []func()
}

func NewRuntime(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	runtime := &Runtime{
		Config:  cfg,
		Metrics: metrics.NewCollector(),
		Elector: leader.Always{},
	}

	if err := database.Connect(cfg.MongoDB.Connection, cfg.MongoDB.Database); err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	runtime.closers = append(runtime.closers, func() { database.Disconnect() })

	if err := redis_client.Connect(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.Database); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	runtime.closers = append(runtime.closers, func() { redis_client.Client.Close() })

	if err := elastic_client.Connect(cfg.Elasticsearch.Address, cfg.Elasticsearch.Username, cfg.Elasticsearch.Password); err != nil {
		return nil, fmt.Errorf("connecting to elasticsearch: %w", err)
	}
	runtime.closers = append(runtime.closers, elastic_client.WaitUntilQueueEmpty)

	repository := database.NewMongoRepository(database.MongoGlobalInstance.Database)
	runtime.Store = storage.NewStore(repository, redis_client.Client, cfg.CacheIdleTTL)

	count, err := runtime.Store.Populate(ctx, time.Now())
	if err != nil {
		log.Error().Err(err).Msg("Failed to warm up cache")
	} else {
		log.Info().Int("count", count).Msg("Warmed up cache")
	}

	notifier, err := runtime.notifier(cfg)
	if err != nil {
		return nil, err
	}

	runtime.Identity, err = identity.NewService(ctx, runtime.Store, notifier, runtime.Metrics, cfg.GeneratedIDPrefix)
	if err != nil {
		return nil, err
	}

	source, err := runtime.source(ctx, cfg)
	if err != nil {
		return nil, err
	}

	options := Options{
		Prefix:            cfg.BlobStore.Subfolder,
		TempFileDirectory: cfg.TempFileDirectory,
		Metrics:           runtime.Metrics,
		ImportDisabled:    cfg.ImportDisabled,
	}

	if cfg.LeaderElection.Enabled {
		elector := leader.NewRedisElector(redis_client.Client, cfg.LeaderElection.Key, cfg.LeaderElection.LeaseTTL)
		runtime.Elector = elector
		runtime.closers = append(runtime.closers, func() { elector.Release(context.Background()) })

		options.LeaseRenewInterval = cfg.LeaderElection.LeaseTTL / 3
	}
	options.Elector = runtime.Elector

	runtime.Loader = NewLoader(runtime.Store, runtime.Identity, source, options)

	return runtime, nil
}

func (r *Runtime) notifier(cfg *config.Config) (notify.Notifier, error) {
	switch cfg.Notifier.Kind {
	case "rmq":
		if err := redis_client.OpenQueueConnection(); err != nil {
			return nil, fmt.Errorf("opening queue connection: %w", err)
		}
		r.QueueConnection = redis_client.QueueConnection

		return notify.NewRMQNotifier(redis_client.QueueConnection, cfg.Notifier.Queue)
	case "nats":
		notifier, err := notify.NewNATSNotifier(cfg.Notifier.NATSURL, cfg.Notifier.Subject)
		if err != nil {
			return nil, err
		}
		r.closers = append(r.closers, notifier.Close)

		return notifier, nil
	default:
		return notify.LogNotifier{}, nil
	}
}

func (r *Runtime) source(ctx context.Context, cfg *config.Config) (blobstore.Source, error) {
	switch cfg.BlobStore.Kind {
	case "filesystem":
		return &blobstore.FilesystemSource{Directory: cfg.BlobStore.Directory}, nil
	default:
		source, err := blobstore.NewGCSSource(ctx, cfg.BlobStore.Bucket)
		if err != nil {
			return nil, err
		}
		r.closers = append(r.closers, func() { source.Close() })

		return source, nil
	}
}

// Close releases everything in reverse order of creation
func (r *Runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}
