package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/travigo/journeymapper/pkg/ctdf"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const creationNumberCounterID = "creationnumber"

type MongoRepository struct {
	datedServiceJourneys *mongo.Collection
	sourceFiles          *mongo.Collection
	counters             *mongo.Collection
}

func NewMongoRepository(database *mongo.Database) *MongoRepository {
	return &MongoRepository{
		datedServiceJourneys: database.Collection(DatedServiceJourneysCollection),
		sourceFiles:          database.Collection(SourceFilesCollection),
		counters:             database.Collection(CountersCollection),
	}
}

func (r *MongoRepository) SaveDatedServiceJourney(ctx context.Context, datedServiceJourney *ctdf.DatedServiceJourney) error {
	_, err := r.datedServiceJourneys.InsertOne(ctx, datedServiceJourney)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateDatedServiceJourney
	}
	if err != nil {
		return fmt.Errorf("inserting dated service journey %s: %w", datedServiceJourney.DatedServiceJourneyID, err)
	}

	// The counter only ever moves forward so concurrent writers cannot lower it
	_, err = r.counters.UpdateOne(ctx,
		bson.M{"_id": creationNumberCounterID},
		bson.M{"$max": bson.M{"value": datedServiceJourney.CreationNumber}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("updating creation number counter: %w", err)
	}

	return nil
}

func (r *MongoRepository) FindByDatedServiceJourneyID(ctx context.Context, datedServiceJourneyID string) (*ctdf.DatedServiceJourney, error) {
	return r.findOne(ctx, bson.M{"datedservicejourneyid": datedServiceJourneyID})
}

func (r *MongoRepository) FindByServiceJourneyIDAndDate(ctx context.Context, serviceJourneyID string, departureDate string) (*ctdf.DatedServiceJourney, error) {
	return r.findOne(ctx, bson.M{"servicejourneyid": serviceJourneyID, "departuredate": departureDate})
}

func (r *MongoRepository) FindByPrivateCodeAndDate(ctx context.Context, privateCode string, departureDate string) (*ctdf.DatedServiceJourney, error) {
	// Oldest first so the record that started the lineage is preferred
	return r.findOne(ctx,
		bson.M{"privatecode": privateCode, "departuredate": departureDate},
		options.FindOne().SetSort(bson.D{{Key: "creationnumber", Value: 1}}),
	)
}

func (r *MongoRepository) FindByOriginalDatedServiceJourneyID(ctx context.Context, originalDatedServiceJourneyID string) ([]*ctdf.DatedServiceJourney, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "publicationtimestamp", Value: -1},
		{Key: "creationnumber", Value: -1},
	})

	return r.find(ctx, bson.M{"originaldatedservicejourneyid": originalDatedServiceJourneyID}, opts)
}

func (r *MongoRepository) FindFromDepartureDate(ctx context.Context, departureDate string) ([]*ctdf.DatedServiceJourney, error) {
	return r.find(ctx, bson.M{"departuredate": bson.M{"$gte": departureDate}}, options.Find())
}

// MaxCreationNumber is the larger of the counter document and the highest stored record, so a record
// written without its counter update is still accounted for
func (r *MongoRepository) MaxCreationNumber(ctx context.Context) (int64, error) {
	var counter struct {
		Value int64 `bson:"value"`
	}

	err := r.counters.FindOne(ctx, bson.M{"_id": creationNumberCounterID}).Decode(&counter)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return 0, fmt.Errorf("reading creation number counter: %w", err)
	}

	highest, err := r.findOne(ctx, bson.M{}, options.FindOne().SetSort(bson.D{{Key: "creationnumber", Value: -1}}))
	if err != nil {
		return 0, fmt.Errorf("reading highest creation number: %w", err)
	}

	if highest != nil && highest.CreationNumber > counter.Value {
		return highest.CreationNumber, nil
	}

	return counter.Value, nil
}

func (r *MongoRepository) FindSourceFile(ctx context.Context, sourceFileName string) (*ctdf.SourceFile, error) {
	var sourceFile ctdf.SourceFile

	err := r.sourceFiles.FindOne(ctx, bson.M{"sourcefilename": sourceFileName}).Decode(&sourceFile)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding source file %s: %w", sourceFileName, err)
	}

	return &sourceFile, nil
}

func (r *MongoRepository) SaveSourceFile(ctx context.Context, sourceFile *ctdf.SourceFile) error {
	_, err := r.sourceFiles.UpdateOne(ctx,
		bson.M{"sourcefilename": sourceFile.SourceFileName},
		bson.M{"$set": sourceFile},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("saving source file %s: %w", sourceFile.SourceFileName, err)
	}

	return nil
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*ctdf.DatedServiceJourney, error) {
	var datedServiceJourney ctdf.DatedServiceJourney

	err := r.datedServiceJourneys.FindOne(ctx, filter, opts...).Decode(&datedServiceJourney)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &datedServiceJourney, nil
}

func (r *MongoRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*ctdf.DatedServiceJourney, error) {
	cursor, err := r.datedServiceJourneys.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	datedServiceJourneys := []*ctdf.DatedServiceJourney{}
	for cursor.Next(ctx) {
		var datedServiceJourney ctdf.DatedServiceJourney
		if err := cursor.Decode(&datedServiceJourney); err != nil {
			return nil, err
		}

		datedServiceJourneys = append(datedServiceJourneys, &datedServiceJourney)
	}

	return datedServiceJourneys, cursor.Err()
}
