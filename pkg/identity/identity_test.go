package identity

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/journeymapper/pkg/ctdf"
	"github.com/travigo/journeymapper/pkg/database"
	"github.com/travigo/journeymapper/pkg/metrics"
	"github.com/travigo/journeymapper/pkg/notify"
	"github.com/travigo/journeymapper/pkg/storage"
)

const prefix = "ENT:DatedServiceJourney:"

var (
	firstPublication  = time.Date(2018, 1, 1, 10, 0, 0, 0, time.UTC)
	secondPublication = time.Date(2018, 1, 1, 12, 0, 0, 0, time.UTC)
	createdAt         = time.Date(2018, 1, 1, 13, 0, 0, 0, time.UTC)
)

type fixture struct {
	service    *Service
	store      *storage.Store
	repository *database.MemoryRepository
	notifier   *notify.MemoryNotifier
	metrics    *metrics.Collector
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	redisServer := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: redisServer.Addr()})
	t.Cleanup(func() { redisClient.Close() })

	repository := database.NewMemoryRepository()
	f := &fixture{
		store:      storage.NewStore(repository, redisClient, time.Hour),
		repository: repository,
		notifier:   &notify.MemoryNotifier{},
		metrics:    metrics.NewCollector(),
	}
	f.service = f.newService(t)

	return f
}

func (f *fixture) newService(t *testing.T) *Service {
	t.Helper()

	service, err := NewService(context.Background(), f.store, f.notifier, f.metrics, prefix)
	require.NoError(t, err)
	service.now = func() time.Time { return createdAt }

	return service
}

func occurrence(serviceJourneyID string, privateCode string, departureDate string) ctdf.ServiceJourney {
	return ctdf.ServiceJourney{
		ServiceJourneyID: serviceJourneyID,
		Version:          1,
		PrivateCode:      privateCode,
		LineRef:          "NSB:Line:L1",
		DepartureDate:    departureDate,
		DepartureTime:    "07:05",
	}
}

func withProvidedID(serviceJourney ctdf.ServiceJourney, datedServiceJourneyID string) ctdf.ServiceJourney {
	serviceJourney.DatedServiceJourneyID = datedServiceJourneyID
	return serviceJourney
}

func (f *fixture) resolve(t *testing.T, serviceJourney ctdf.ServiceJourney, publicationTimestamp time.Time) Result {
	t.Helper()

	result, err := f.service.Resolve(context.Background(), serviceJourney, publicationTimestamp, "rb_nsb.zip")
	require.NoError(t, err)

	return result
}

func TestReingestionIsIdempotent(t *testing.T) {
	f := newFixture(t)

	first := f.resolve(t, occurrence("NSB:ServiceJourney:A", "812", "2018-01-01"), firstPublication)
	assert.Equal(t, Created, first.Outcome)
	assert.True(t, first.NewLineage)

	second := f.resolve(t, occurrence("NSB:ServiceJourney:A", "812", "2018-01-01"), secondPublication)
	assert.Equal(t, Duplicate, second.Outcome)
	assert.False(t, second.NewLineage)
	assert.Equal(t, first.Journey.DatedServiceJourneyID, second.Journey.DatedServiceJourneyID)

	assert.Equal(t, 1, f.repository.Count())
	assert.Equal(t, 1, f.notifier.Count())
}

func TestLineageIsStableAcrossServiceJourneyChanges(t *testing.T) {
	f := newFixture(t)

	r1 := f.resolve(t, occurrence("NSB:ServiceJourney:A", "812", "2018-01-01"), firstPublication)
	r2 := f.resolve(t, occurrence("NSB:ServiceJourney:B", "812", "2018-01-01"), secondPublication)

	require.Equal(t, Created, r1.Outcome)
	require.Equal(t, Created, r2.Outcome)

	assert.NotEqual(t, r1.Journey.DatedServiceJourneyID, r2.Journey.DatedServiceJourneyID)
	assert.Equal(t, r1.Journey.DatedServiceJourneyID, r1.Journey.OriginalDatedServiceJourneyID)
	assert.Equal(t, r1.Journey.OriginalDatedServiceJourneyID, r2.Journey.OriginalDatedServiceJourneyID)
	assert.NotEqual(t, r2.Journey.DatedServiceJourneyID, r2.Journey.OriginalDatedServiceJourneyID)

	assert.True(t, r1.NewLineage)
	assert.False(t, r2.NewLineage)
	assert.Equal(t, 1, f.notifier.Count())

	// Same private code on another date is a different trip
	r3 := f.resolve(t, occurrence("NSB:ServiceJourney:A", "812", "2018-01-02"), firstPublication)
	assert.True(t, r3.NewLineage)
	assert.Equal(t, r3.Journey.DatedServiceJourneyID, r3.Journey.OriginalDatedServiceJourneyID)
}

func TestCreationNumbersAreMonotonicAcrossRestarts(t *testing.T) {
	f := newFixture(t)

	var last int64
	for _, privateCode := range []string{"1", "2", "3", "4", "5"} {
		result := f.resolve(t, occurrence("NSB:ServiceJourney:"+privateCode, privateCode, "2018-01-01"), firstPublication)
		require.Equal(t, Created, result.Outcome)

		assert.Greater(t, result.Journey.CreationNumber, last)
		assert.Equal(t, prefix+itoa(result.Journey.CreationNumber), result.Journey.DatedServiceJourneyID)
		last = result.Journey.CreationNumber
	}

	// A duplicate does not consume a number
	f.resolve(t, occurrence("NSB:ServiceJourney:1", "1", "2018-01-01"), firstPublication)

	f.service = f.newService(t)
	result := f.resolve(t, occurrence("NSB:ServiceJourney:6", "6", "2018-01-01"), firstPublication)
	assert.Equal(t, last+1, result.Journey.CreationNumber)
}

func TestReseedFollowsOtherInstances(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := f.newService(t)

	f.resolve(t, occurrence("NSB:ServiceJourney:A", "1", "2018-01-01"), firstPublication)

	// A stale counter collides on the generated id instead of silently dropping the occurrence
	_, err := other.Resolve(ctx, occurrence("NSB:ServiceJourney:B", "2", "2018-01-01"), firstPublication, "rb_nsb.zip")
	require.ErrorIs(t, err, database.ErrDuplicateDatedServiceJourney)

	f.resolve(t, occurrence("NSB:ServiceJourney:C", "3", "2018-01-01"), firstPublication)

	require.NoError(t, other.Reseed(ctx))
	result, err := other.Resolve(ctx, occurrence("NSB:ServiceJourney:B", "2", "2018-01-01"), firstPublication, "rb_nsb.zip")
	require.NoError(t, err)
	assert.Equal(t, Created, result.Outcome)
	assert.Equal(t, int64(3), result.Journey.CreationNumber)
	assert.Equal(t, 3, f.repository.Count())

	// Never moves back below numbers this instance already handed out
	f.service.nextCreationNumber.Store(10)
	require.NoError(t, f.service.Reseed(ctx))
	assert.Equal(t, int64(10), f.service.nextCreationNumber.Load())
}

func TestProvidedIdentifierIsUsed(t *testing.T) {
	f := newFixture(t)

	result := f.resolve(t, withProvidedID(occurrence("ATB:ServiceJourney:S1", "100", "2019-05-02"), "ATB:DatedServiceJourney:X1"), firstPublication)

	require.Equal(t, Created, result.Outcome)
	assert.Equal(t, "ATB:DatedServiceJourney:X1", result.Journey.DatedServiceJourneyID)
	assert.Equal(t, "ATB:DatedServiceJourney:X1", result.Journey.OriginalDatedServiceJourneyID)
	assert.True(t, result.NewLineage)
}

func TestProvidedIdentifierCollisionFallsBackToGeneratedID(t *testing.T) {
	f := newFixture(t)

	first := f.resolve(t, withProvidedID(occurrence("ATB:ServiceJourney:S1", "100", "2019-05-02"), "ATB:DatedServiceJourney:X1"), firstPublication)
	second := f.resolve(t, withProvidedID(occurrence("ATB:ServiceJourney:S2", "100", "2019-05-02"), "ATB:DatedServiceJourney:X1"), secondPublication)

	require.Equal(t, Created, second.Outcome)
	assert.Equal(t, prefix+itoa(second.Journey.CreationNumber), second.Journey.DatedServiceJourneyID)
	assert.Equal(t, first.Journey.OriginalDatedServiceJourneyID, second.Journey.OriginalDatedServiceJourneyID)
	assert.False(t, second.NewLineage)
}

func TestProvidedIdentifierOnNewServiceJourneyWithExistingLineage(t *testing.T) {
	f := newFixture(t)

	first := f.resolve(t, occurrence("ATB:ServiceJourney:S1", "100", "2019-05-02"), firstPublication)
	second := f.resolve(t, withProvidedID(occurrence("ATB:ServiceJourney:S2", "100", "2019-05-02"), "ATB:DatedServiceJourney:X9"), secondPublication)

	assert.Equal(t, "ATB:DatedServiceJourney:X9", second.Journey.DatedServiceJourneyID)
	assert.Equal(t, first.Journey.DatedServiceJourneyID, second.Journey.OriginalDatedServiceJourneyID)
}

func TestProvidedIdentifierBoundToAnotherDateIsRejected(t *testing.T) {
	f := newFixture(t)

	f.resolve(t, withProvidedID(occurrence("ATB:ServiceJourney:S1", "100", "2019-05-02"), "ATB:DatedServiceJourney:X1"), firstPublication)
	result := f.resolve(t, withProvidedID(occurrence("ATB:ServiceJourney:S3", "300", "2019-05-03"), "ATB:DatedServiceJourney:X1"), secondPublication)

	assert.Equal(t, Rejected, result.Outcome)
	assert.Equal(t, 1, f.repository.Count())
	assert.Equal(t, 1, f.notifier.Count())
}

func TestProvidedIdentifierBoundOnSameDateReusesLineage(t *testing.T) {
	f := newFixture(t)

	first := f.resolve(t, withProvidedID(occurrence("ATB:ServiceJourney:S1", "100", "2019-05-02"), "ATB:DatedServiceJourney:X1"), firstPublication)
	second := f.resolve(t, withProvidedID(occurrence("ATB:ServiceJourney:S4", "400", "2019-05-02"), "ATB:DatedServiceJourney:X1"), secondPublication)

	require.Equal(t, Created, second.Outcome)
	assert.Equal(t, first.Journey.OriginalDatedServiceJourneyID, second.Journey.OriginalDatedServiceJourneyID)
	assert.NotEqual(t, "ATB:DatedServiceJourney:X1", second.Journey.DatedServiceJourneyID)
	assert.False(t, second.NewLineage)
}

func TestCreatedRecordIsServedFromCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result := f.resolve(t, occurrence("NSB:ServiceJourney:A", "812", "2018-01-01"), firstPublication)
	readsBefore := f.repository.Reads

	byID, err := f.service.FindByDatedServiceJourneyID(ctx, result.Journey.DatedServiceJourneyID)
	require.NoError(t, err)
	assert.Equal(t, result.Journey, byID)

	byServiceJourney, err := f.service.FindByServiceJourneyID(ctx, "NSB:ServiceJourney:A", "latest", "2018-01-01")
	require.NoError(t, err)
	assert.Equal(t, result.Journey, byServiceJourney)

	byPrivateCode, err := f.service.FindByPrivateCode(ctx, "812", "", "2018-01-01")
	require.NoError(t, err)
	assert.Equal(t, result.Journey, byPrivateCode)

	assert.Equal(t, readsBefore, f.repository.Reads)
}

func TestLineageScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r1 := f.resolve(t, occurrence("A", "812", "2018-01-01"), firstPublication)
	r2 := f.resolve(t, occurrence("B", "812", "2018-01-01"), secondPublication)

	assert.Equal(t, r1.Journey.DatedServiceJourneyID, r1.Journey.OriginalDatedServiceJourneyID)
	assert.NotEqual(t, r1.Journey.DatedServiceJourneyID, r2.Journey.DatedServiceJourneyID)
	assert.Equal(t, r1.Journey.OriginalDatedServiceJourneyID, r2.Journey.OriginalDatedServiceJourneyID)

	lineage, err := f.service.FindByOriginalDatedServiceJourneyID(ctx, r1.Journey.OriginalDatedServiceJourneyID)
	require.NoError(t, err)
	require.Len(t, lineage, 2)
	assert.Equal(t, r2.Journey.DatedServiceJourneyID, lineage[0].DatedServiceJourneyID)
	assert.Equal(t, r1.Journey.DatedServiceJourneyID, lineage[1].DatedServiceJourneyID)
}

func TestVersionFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.resolve(t, occurrence("NSB:ServiceJourney:A", "812", "2018-01-01"), firstPublication)

	found, err := f.service.FindByServiceJourneyID(ctx, "NSB:ServiceJourney:A", "1", "2018-01-01")
	require.NoError(t, err)
	assert.NotNil(t, found)

	found, err = f.service.FindByServiceJourneyID(ctx, "NSB:ServiceJourney:A", "2", "2018-01-01")
	require.NoError(t, err)
	assert.Nil(t, found)

	_, err = f.service.FindByServiceJourneyID(ctx, "NSB:ServiceJourney:A", "newest", "2018-01-01")
	assert.ErrorIs(t, err, ErrInvalidVersion)
}

func TestBatchLookupsReturnOnlyMatchesInOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.resolve(t, occurrence("NSB:ServiceJourney:A", "812", "2018-01-01"), firstPublication)
	b := f.resolve(t, occurrence("NSB:ServiceJourney:B", "813", "2018-01-01"), firstPublication)

	found, err := f.service.FindDatedServiceJourneys(ctx, []ServiceJourneyParam{
		{ServiceJourneyID: "NSB:ServiceJourney:B", DepartureDate: "2018-01-01"},
		{ServiceJourneyID: "NSB:ServiceJourney:C", DepartureDate: "2018-01-01"},
		{ServiceJourneyID: "NSB:ServiceJourney:A", DepartureDate: "2018-01-01"},
	})
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, b.Journey.DatedServiceJourneyID, found[0].DatedServiceJourneyID)
	assert.Equal(t, a.Journey.DatedServiceJourneyID, found[1].DatedServiceJourneyID)

	found, err = f.service.FindByDatedServiceJourneyIDs(ctx, []DatedServiceJourneyParam{
		{DatedServiceJourneyID: "unknown"},
		{DatedServiceJourneyID: a.Journey.DatedServiceJourneyID},
	})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, a.Journey.DatedServiceJourneyID, found[0].DatedServiceJourneyID)

	found, err = f.service.FindByDatedServiceJourneyIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestNotFoundIsNotAnError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	found, err := f.service.FindByDatedServiceJourneyID(ctx, "unknown")
	assert.NoError(t, err)
	assert.Nil(t, found)

	lineage, err := f.service.FindByOriginalDatedServiceJourneyID(ctx, "unknown")
	assert.NoError(t, err)
	assert.NotNil(t, lineage)
	assert.Empty(t, lineage)
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
