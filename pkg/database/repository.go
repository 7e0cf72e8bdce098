package database

import (
	"context"
	"errors"

	"github.com/travigo/journeymapper/pkg/ctdf"
)

// ErrDuplicateDatedServiceJourney is returned by SaveDatedServiceJourney when a record for the same
// service journey and departure date, or with the same DatedServiceJourney id, is already stored
var ErrDuplicateDatedServiceJourney = errors.New("dated service journey already exists")

// Repository is the durable storage behind the lookup cache.
// Finders return nil with no error when nothing matches.
type Repository interface {
	SaveDatedServiceJourney(ctx context.Context, datedServiceJourney *ctdf.DatedServiceJourney) error

	FindByDatedServiceJourneyID(ctx context.Context, datedServiceJourneyID string) (*ctdf.DatedServiceJourney, error)
	FindByServiceJourneyIDAndDate(ctx context.Context, serviceJourneyID string, departureDate string) (*ctdf.DatedServiceJourney, error)
	FindByPrivateCodeAndDate(ctx context.Context, privateCode string, departureDate string) (*ctdf.DatedServiceJourney, error)

	// FindByOriginalDatedServiceJourneyID returns the whole lineage, newest publication first
	FindByOriginalDatedServiceJourneyID(ctx context.Context, originalDatedServiceJourneyID string) ([]*ctdf.DatedServiceJourney, error)

	// FindFromDepartureDate returns every record departing on or after the given date
	FindFromDepartureDate(ctx context.Context, departureDate string) ([]*ctdf.DatedServiceJourney, error)

	// MaxCreationNumber returns the highest creation number ever stored, 0 if empty
	MaxCreationNumber(ctx context.Context) (int64, error)

	FindSourceFile(ctx context.Context, sourceFileName string) (*ctdf.SourceFile, error)
	SaveSourceFile(ctx context.Context, sourceFile *ctdf.SourceFile) error
}
