package database

import (
	"context"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	DatedServiceJourneysCollection = "dated_service_journeys"
	SourceFilesCollection          = "source_files"
	CountersCollection             = "counters"
)

func createIndexes() {
	createDatedServiceJourneyIndexes(MongoGlobalInstance.Database)
	createSourceFileIndexes(MongoGlobalInstance.Database)
}

func createDatedServiceJourneyIndexes(database *mongo.Database) {
	serviceJourneyDateIndexName := "ServiceJourneyDate"
	privateCodeDateIndexName := "PrivateCodeDate"

	datedServiceJourneysCollection := database.Collection(DatedServiceJourneysCollection)
	_, err := datedServiceJourneysCollection.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{
			Options: options.Index().SetName(serviceJourneyDateIndexName).SetUnique(true),
			Keys: bson.D{
				{Key: "servicejourneyid", Value: 1},
				{Key: "departuredate", Value: 1},
			},
		},
		{
			Options: &options.IndexOptions{
				Name: &privateCodeDateIndexName,
			},
			Keys: bson.D{
				{Key: "privatecode", Value: 1},
				{Key: "departuredate", Value: 1},
			},
		},
		{
			Options: options.Index().SetUnique(true),
			Keys:    bson.D{{Key: "datedservicejourneyid", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "originaldatedservicejourneyid", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "creationnumber", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "sourcefilename", Value: 1}},
		},
	}, options.CreateIndexes())
	if err != nil {
		log.Error().Err(err).Msg("Creating Index")
	}
}

func createSourceFileIndexes(database *mongo.Database) {
	sourceFilesCollection := database.Collection(SourceFilesCollection)
	_, err := sourceFilesCollection.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{
			Options: options.Index().SetUnique(true),
			Keys:    bson.D{{Key: "sourcefilename", Value: 1}},
		},
	}, options.CreateIndexes())
	if err != nil {
		log.Error().Err(err).Msg("Creating Index")
	}
}
