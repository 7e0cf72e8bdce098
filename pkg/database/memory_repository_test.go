package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/journeymapper/pkg/ctdf"
)

func testJourney(serviceJourneyID string, privateCode string, date string, creationNumber int64) *ctdf.DatedServiceJourney {
	return &ctdf.DatedServiceJourney{
		ServiceJourneyID:              serviceJourneyID,
		DepartureDate:                 date,
		PrivateCode:                   privateCode,
		DatedServiceJourneyID:         "TST:DatedServiceJourney:" + serviceJourneyID,
		OriginalDatedServiceJourneyID: "TST:DatedServiceJourney:original",
		CreationNumber:                creationNumber,
		PublicationTimestamp:          time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestMemoryRepositoryRejectsDuplicateServiceJourneyDate(t *testing.T) {
	ctx := context.Background()
	repository := NewMemoryRepository()

	require.NoError(t, repository.SaveDatedServiceJourney(ctx, testJourney("A", "812", "2018-01-01", 1)))

	err := repository.SaveDatedServiceJourney(ctx, testJourney("A", "812", "2018-01-01", 2))
	assert.ErrorIs(t, err, ErrDuplicateDatedServiceJourney)
	assert.Equal(t, 1, repository.Count())

	nextDay := testJourney("A", "812", "2018-01-02", 3)
	nextDay.DatedServiceJourneyID = "TST:DatedServiceJourney:A2"
	require.NoError(t, repository.SaveDatedServiceJourney(ctx, nextDay))
	assert.Equal(t, 2, repository.Count())
}

func TestMemoryRepositoryRejectsDuplicateDatedServiceJourneyID(t *testing.T) {
	ctx := context.Background()
	repository := NewMemoryRepository()

	require.NoError(t, repository.SaveDatedServiceJourney(ctx, testJourney("A", "812", "2018-01-01", 1)))

	sameID := testJourney("B", "813", "2018-01-02", 2)
	sameID.DatedServiceJourneyID = "TST:DatedServiceJourney:A"
	assert.ErrorIs(t, repository.SaveDatedServiceJourney(ctx, sameID), ErrDuplicateDatedServiceJourney)
	assert.Equal(t, 1, repository.Count())
}

func TestMemoryRepositoryFinders(t *testing.T) {
	ctx := context.Background()
	repository := NewMemoryRepository()

	require.NoError(t, repository.SaveDatedServiceJourney(ctx, testJourney("A", "812", "2018-01-01", 1)))

	found, err := repository.FindByServiceJourneyIDAndDate(ctx, "A", "2018-01-01")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "TST:DatedServiceJourney:A", found.DatedServiceJourneyID)

	found, err = repository.FindByPrivateCodeAndDate(ctx, "812", "2018-01-01")
	require.NoError(t, err)
	require.NotNil(t, found)

	found, err = repository.FindByDatedServiceJourneyID(ctx, "TST:DatedServiceJourney:A")
	require.NoError(t, err)
	require.NotNil(t, found)

	found, err = repository.FindByServiceJourneyIDAndDate(ctx, "A", "2018-01-02")
	assert.NoError(t, err)
	assert.Nil(t, found)
}

func TestMemoryRepositoryLineageOrdering(t *testing.T) {
	ctx := context.Background()
	repository := NewMemoryRepository()

	older := testJourney("A", "812", "2018-01-01", 1)
	newer := testJourney("B", "812", "2018-01-01", 2)
	newer.PublicationTimestamp = older.PublicationTimestamp.Add(time.Hour)
	sameTime := testJourney("C", "812", "2018-01-01", 3)

	require.NoError(t, repository.SaveDatedServiceJourney(ctx, older))
	require.NoError(t, repository.SaveDatedServiceJourney(ctx, newer))
	require.NoError(t, repository.SaveDatedServiceJourney(ctx, sameTime))

	lineage, err := repository.FindByOriginalDatedServiceJourneyID(ctx, "TST:DatedServiceJourney:original")
	require.NoError(t, err)
	require.Len(t, lineage, 3)

	assert.Equal(t, "B", lineage[0].ServiceJourneyID)
	assert.Equal(t, "C", lineage[1].ServiceJourneyID)
	assert.Equal(t, "A", lineage[2].ServiceJourneyID)

	lineage, err = repository.FindByOriginalDatedServiceJourneyID(ctx, "unknown")
	assert.NoError(t, err)
	assert.Empty(t, lineage)
}

func TestMemoryRepositoryMaxCreationNumberAndSourceFiles(t *testing.T) {
	ctx := context.Background()
	repository := NewMemoryRepository()

	max, err := repository.MaxCreationNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), max)

	require.NoError(t, repository.SaveDatedServiceJourney(ctx, testJourney("A", "812", "2018-01-01", 7)))
	require.NoError(t, repository.SaveDatedServiceJourney(ctx, testJourney("B", "813", "2018-01-01", 3)))

	max, err = repository.MaxCreationNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), max)

	sourceFile, err := repository.FindSourceFile(ctx, "rb_nsb.zip")
	require.NoError(t, err)
	assert.Nil(t, sourceFile)

	require.NoError(t, repository.SaveSourceFile(ctx, &ctdf.SourceFile{SourceFileName: "rb_nsb.zip", Processed: true}))
	sourceFile, err = repository.FindSourceFile(ctx, "rb_nsb.zip")
	require.NoError(t, err)
	require.NotNil(t, sourceFile)
	assert.True(t, sourceFile.Processed)
}

func TestMemoryRepositoryFindFromDepartureDate(t *testing.T) {
	ctx := context.Background()
	repository := NewMemoryRepository()

	require.NoError(t, repository.SaveDatedServiceJourney(ctx, testJourney("A", "812", "2017-12-30", 1)))
	require.NoError(t, repository.SaveDatedServiceJourney(ctx, testJourney("B", "812", "2018-01-01", 2)))
	require.NoError(t, repository.SaveDatedServiceJourney(ctx, testJourney("C", "812", "2018-02-01", 3)))

	journeys, err := repository.FindFromDepartureDate(ctx, "2018-01-01")
	require.NoError(t, err)
	assert.Len(t, journeys, 2)
}
