package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/travigo/journeymapper/pkg/ctdf"
	"github.com/travigo/journeymapper/pkg/database"
)

const populateDaysBack = 2

// Store puts a Redis cache in front of the repository. DatedServiceJourneys are immutable so cached
// copies never need invalidating, entries only expire after being left unread for the idle TTL.
type Store struct {
	repository  database.Repository
	redisClient *redis.Client
	idleTTL     time.Duration

	journeyCache *cache.Cache[string]
	fileCache    *cache.Cache[string]
}

func NewStore(repository database.Repository, redisClient *redis.Client, idleTTL time.Duration) *Store {
	redisStore := redisstore.NewRedis(redisClient, store.WithExpiration(idleTTL))

	return &Store{
		repository:   repository,
		redisClient:  redisClient,
		idleTTL:      idleTTL,
		journeyCache: cache.New[string](redisStore),
		fileCache:    cache.New[string](redisStore),
	}
}

func (s *Store) ByDatedServiceJourneyID(ctx context.Context, datedServiceJourneyID string) (*ctdf.DatedServiceJourney, error) {
	return s.lookup(ctx, ctdf.DatedServiceJourneyKey(datedServiceJourneyID), func() (*ctdf.DatedServiceJourney, error) {
		return s.repository.FindByDatedServiceJourneyID(ctx, datedServiceJourneyID)
	})
}

func (s *Store) ByServiceJourneyIDAndDate(ctx context.Context, serviceJourneyID string, departureDate string) (*ctdf.DatedServiceJourney, error) {
	return s.lookup(ctx, ctdf.ServiceJourneyDateKey(serviceJourneyID, departureDate), func() (*ctdf.DatedServiceJourney, error) {
		return s.repository.FindByServiceJourneyIDAndDate(ctx, serviceJourneyID, departureDate)
	})
}

func (s *Store) ByPrivateCodeAndDate(ctx context.Context, privateCode string, departureDate string) (*ctdf.DatedServiceJourney, error) {
	return s.lookup(ctx, ctdf.PrivateCodeDateKey(privateCode, departureDate), func() (*ctdf.DatedServiceJourney, error) {
		return s.repository.FindByPrivateCodeAndDate(ctx, privateCode, departureDate)
	})
}

// ByOriginalDatedServiceJourneyID is multi-valued so always served by the repository
func (s *Store) ByOriginalDatedServiceJourneyID(ctx context.Context, originalDatedServiceJourneyID string) ([]*ctdf.DatedServiceJourney, error) {
	return s.repository.FindByOriginalDatedServiceJourneyID(ctx, originalDatedServiceJourneyID)
}

// Add persists a new record and then makes it reachable from the cache by all of its keys
func (s *Store) Add(ctx context.Context, datedServiceJourney *ctdf.DatedServiceJourney) error {
	if err := s.repository.SaveDatedServiceJourney(ctx, datedServiceJourney); err != nil {
		return err
	}

	if err := s.Refresh(ctx, datedServiceJourney); err != nil {
		log.Warn().Err(err).Str("datedservicejourney", datedServiceJourney.DatedServiceJourneyID).Msg("Failed to cache new dated service journey")
	}

	return nil
}

// Refresh writes the record under every key it can be looked up by
func (s *Store) Refresh(ctx context.Context, datedServiceJourney *ctdf.DatedServiceJourney) error {
	encoded, err := json.Marshal(datedServiceJourney)
	if err != nil {
		return err
	}

	for _, key := range datedServiceJourney.CacheKeys() {
		if err := s.journeyCache.Set(ctx, key, string(encoded), store.WithExpiration(s.idleTTL)); err != nil {
			return fmt.Errorf("caching %s: %w", key, err)
		}
	}

	return nil
}

func (s *Store) lookup(ctx context.Context, key string, fetch func() (*ctdf.DatedServiceJourney, error)) (*ctdf.DatedServiceJourney, error) {
	if cached, err := s.journeyCache.Get(ctx, key); err == nil && cached != "" {
		var datedServiceJourney ctdf.DatedServiceJourney
		if err := json.Unmarshal([]byte(cached), &datedServiceJourney); err == nil {
			s.touch(ctx, key)
			return &datedServiceJourney, nil
		}

		log.Warn().Str("key", key).Msg("Discarding unreadable cache entry")
	}

	datedServiceJourney, err := fetch()
	if err != nil {
		return nil, err
	}
	if datedServiceJourney == nil {
		return nil, nil
	}

	if err := s.Refresh(ctx, datedServiceJourney); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to backfill cache")
	}

	return datedServiceJourney, nil
}

// touch restarts the idle expiry of a key that has just been read
func (s *Store) touch(ctx context.Context, key string) {
	if err := s.redisClient.Expire(ctx, key, s.idleTTL).Err(); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("Failed to extend cache expiry")
	}
}

func (s *Store) IsAlreadyProcessed(ctx context.Context, sourceFileName string) (bool, error) {
	key := sourceFileKey(sourceFileName)

	if cached, err := s.fileCache.Get(ctx, key); err == nil && cached != "" {
		s.touch(ctx, key)
		return cached == strconv.FormatBool(true), nil
	}

	sourceFile, err := s.repository.FindSourceFile(ctx, sourceFileName)
	if err != nil {
		return false, err
	}
	if sourceFile == nil {
		return false, nil
	}

	if err := s.fileCache.Set(ctx, key, strconv.FormatBool(sourceFile.Processed), store.WithExpiration(s.idleTTL)); err != nil {
		log.Debug().Err(err).Str("file", sourceFileName).Msg("Failed to cache source file status")
	}

	return sourceFile.Processed, nil
}

func (s *Store) SetFileStatus(ctx context.Context, sourceFileName string, processed bool) error {
	err := s.repository.SaveSourceFile(ctx, &ctdf.SourceFile{
		SourceFileName: sourceFileName,
		Processed:      processed,
	})
	if err != nil {
		return err
	}

	// The repository is authoritative, a failed cache write only costs a later repository read
	if err := s.fileCache.Set(ctx, sourceFileKey(sourceFileName), strconv.FormatBool(processed), store.WithExpiration(s.idleTTL)); err != nil {
		log.Warn().Err(err).Str("file", sourceFileName).Msg("Failed to cache source file status")
	}

	return nil
}

func (s *Store) MaxCreationNumber(ctx context.Context) (int64, error) {
	return s.repository.MaxCreationNumber(ctx)
}

// Populate warms the cache with every record departing from two days before the given time onwards
func (s *Store) Populate(ctx context.Context, from time.Time) (int, error) {
	departureDate := from.AddDate(0, 0, -populateDaysBack).Format(ctdf.DepartureDateFormat)

	datedServiceJourneys, err := s.repository.FindFromDepartureDate(ctx, departureDate)
	if err != nil {
		return 0, err
	}

	for _, datedServiceJourney := range datedServiceJourneys {
		if err := s.Refresh(ctx, datedServiceJourney); err != nil {
			return 0, err
		}
	}

	log.Info().Str("from", departureDate).Int("count", len(datedServiceJourneys)).Msg("Populated dated service journey cache")

	return len(datedServiceJourneys), nil
}

func sourceFileKey(sourceFileName string) string {
	return fmt.Sprintf("sourcefile:%s", sourceFileName)
}
