package leader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Elector decides whether this instance should run the scheduled ingestion
type Elector interface {
	IsLeader(ctx context.Context) bool
}

// Always is used when only a single instance is deployed
type Always struct{}

func (Always) IsLeader(ctx context.Context) bool {
	return true
}

// RedisElector holds a lease key in redis, the holder renews it on every check
type RedisElector struct {
	client   *redis.Client
	key      string
	identity string
	leaseTTL time.Duration
}

// Renews the lease only when it is still held by this identity
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

func NewRedisElector(client *redis.Client, key string, leaseTTL time.Duration) *RedisElector {
	hostname, _ := os.Hostname()

	return &RedisElector{
		client:   client,
		key:      key,
		identity: fmt.Sprintf("%s-%s", hostname, uuid.NewString()),
		leaseTTL: leaseTTL,
	}
}

func (e *RedisElector) IsLeader(ctx context.Context) bool {
	leader, err := e.acquire(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.Error().Err(err).Str("key", e.key).Msg("Failed to check leadership")
		}
		return false
	}

	return leader
}

func (e *RedisElector) acquire(ctx context.Context) (bool, error) {
	acquired, err := e.client.SetNX(ctx, e.key, e.identity, e.leaseTTL).Result()
	if err != nil {
		return false, err
	}
	if acquired {
		log.Info().Str("key", e.key).Str("identity", e.identity).Msg("Acquired leadership")
		return true, nil
	}

	renewed, err := renewScript.Run(ctx, e.client, []string{e.key}, e.identity, e.leaseTTL.Milliseconds()).Int()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return renewed == 1, nil
}

// Release gives up the lease if this instance holds it
func (e *RedisElector) Release(ctx context.Context) error {
	holder, err := e.client.Get(ctx, e.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}

	if holder == e.identity {
		return e.client.Del(ctx, e.key).Err()
	}

	return nil
}
