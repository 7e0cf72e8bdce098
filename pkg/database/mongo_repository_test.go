package database

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/journeymapper/pkg/ctdf"
)

func TestMongoRepository(t *testing.T) {
	connection := os.Getenv("TRAVIGO_TEST_MONGODB_CONNECTION")
	if connection == "" {
		t.Skip("TRAVIGO_TEST_MONGODB_CONNECTION not set")
	}

	require.NoError(t, Connect(connection, fmt.Sprintf("journeymapper_test_%d", time.Now().UnixNano())))
	t.Cleanup(func() {
		MongoGlobalInstance.Database.Drop(context.Background())
		Disconnect()
	})

	ctx := context.Background()
	repository := NewMongoRepository(MongoGlobalInstance.Database)

	require.NoError(t, repository.SaveDatedServiceJourney(ctx, testJourney("A", "812", "2018-01-01", 4)))
	assert.ErrorIs(t, repository.SaveDatedServiceJourney(ctx, testJourney("A", "812", "2018-01-01", 5)), ErrDuplicateDatedServiceJourney)
	require.NoError(t, repository.SaveDatedServiceJourney(ctx, testJourney("B", "812", "2018-01-01", 2)))

	max, err := repository.MaxCreationNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), max)

	// Same generated id on another service journey
	duplicateID := testJourney("C", "900", "2018-01-01", 6)
	duplicateID.DatedServiceJourneyID = "TST:DatedServiceJourney:A"
	assert.ErrorIs(t, repository.SaveDatedServiceJourney(ctx, duplicateID), ErrDuplicateDatedServiceJourney)

	// A record stored without its counter update still counts
	_, err = MongoGlobalInstance.Database.Collection(DatedServiceJourneysCollection).InsertOne(ctx, testJourney("D", "901", "2018-01-01", 9))
	require.NoError(t, err)
	max, err = repository.MaxCreationNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(9), max)

	found, err := repository.FindByPrivateCodeAndDate(ctx, "812", "2018-01-01")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "B", found.ServiceJourneyID)

	lineage, err := repository.FindByOriginalDatedServiceJourneyID(ctx, "TST:DatedServiceJourney:original")
	require.NoError(t, err)
	assert.Len(t, lineage, 2)

	missing, err := repository.FindByDatedServiceJourneyID(ctx, "nothing")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, repository.SaveSourceFile(ctx, &ctdf.SourceFile{SourceFileName: "a.zip", Processed: false}))
	require.NoError(t, repository.SaveSourceFile(ctx, &ctdf.SourceFile{SourceFileName: "a.zip", Processed: true}))
	sourceFile, err := repository.FindSourceFile(ctx, "a.zip")
	require.NoError(t, err)
	assert.True(t, sourceFile.Processed)
}
