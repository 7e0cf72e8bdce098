package identity

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/jinzhu/copier"
	"github.com/rs/zerolog/log"
	"github.com/travigo/journeymapper/pkg/ctdf"
	"github.com/travigo/journeymapper/pkg/database"
	"github.com/travigo/journeymapper/pkg/metrics"
	"github.com/travigo/journeymapper/pkg/notify"
)

type Outcome int

const (
	// Created means a new DatedServiceJourney was stored
	Created Outcome = iota
	// Duplicate means the service journey already had a DatedServiceJourney on the date
	Duplicate
	// Rejected means the provided identifier is already bound to another departure date
	Rejected
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "Created"
	case Duplicate:
		return "Duplicate"
	case Rejected:
		return "Rejected"
	default:
		return "Unknown"
	}
}

type Result struct {
	Outcome    Outcome
	Journey    *ctdf.DatedServiceJourney
	NewLineage bool
}

// Store is the cached storage the service reads and writes through
type Store interface {
	ByDatedServiceJourneyID(ctx context.Context, datedServiceJourneyID string) (*ctdf.DatedServiceJourney, error)
	ByServiceJourneyIDAndDate(ctx context.Context, serviceJourneyID string, departureDate string) (*ctdf.DatedServiceJourney, error)
	ByPrivateCodeAndDate(ctx context.Context, privateCode string, departureDate string) (*ctdf.DatedServiceJourney, error)
	ByOriginalDatedServiceJourneyID(ctx context.Context, originalDatedServiceJourneyID string) ([]*ctdf.DatedServiceJourney, error)
	Add(ctx context.Context, datedServiceJourney *ctdf.DatedServiceJourney) error
	MaxCreationNumber(ctx context.Context) (int64, error)
}

// Service decides the permanent identity of every dated occurrence read from the timetables.
// Ingestion runs one at a time so only reads can be concurrent with Resolve.
type Service struct {
	store    Store
	notifier notify.Notifier
	metrics  *metrics.Collector

	generatedIDPrefix  string
	nextCreationNumber atomic.Int64

	now func() time.Time
}

func NewService(ctx context.Context, store Store, notifier notify.Notifier, collector *metrics.Collector, generatedIDPrefix string) (*Service, error) {
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	if collector == nil {
		collector = metrics.NewCollector()
	}

	service := &Service{
		store:             store,
		notifier:          notifier,
		metrics:           collector,
		generatedIDPrefix: generatedIDPrefix,
		now:               time.Now,
	}

	if err := service.Reseed(ctx); err != nil {
		return nil, err
	}

	return service, nil
}

// Reseed continues creation numbers from the highest one ever stored. Another instance may have
// written records since the last call so this runs before every load, the counter never moves back.
func (s *Service) Reseed(ctx context.Context) error {
	maxCreationNumber, err := s.store.MaxCreationNumber(ctx)
	if err != nil {
		return err
	}

	next := maxCreationNumber + 1
	for {
		current := s.nextCreationNumber.Load()
		if current >= next {
			return nil
		}

		if s.nextCreationNumber.CompareAndSwap(current, next) {
			log.Info().Int64("next", next).Int64("previous", current).Msg("Seeded creation number")
			return nil
		}
	}
}

func (s *Service) Resolve(ctx context.Context, occurrence ctdf.ServiceJourney, publicationTimestamp time.Time, sourceFileName string) (Result, error) {
	existing, err := s.store.ByServiceJourneyIDAndDate(ctx, occurrence.ServiceJourneyID, occurrence.DepartureDate)
	if err != nil {
		return Result{}, err
	}
	if existing != nil {
		s.metrics.Duplicates.Inc()
		return Result{Outcome: Duplicate, Journey: existing}, nil
	}

	// PrivateCode on a date identifies the same real world trip across service journey id changes
	lineage, err := s.FindByPrivateCode(ctx, occurrence.PrivateCode, "", occurrence.DepartureDate)
	if err != nil {
		return Result{}, err
	}

	creationNumber := s.nextCreationNumber.Add(1) - 1
	generatedID := s.generatedIDPrefix + strconv.FormatInt(creationNumber, 10)

	datedServiceJourneyID := generatedID
	provided := occurrence.HasProvidedIdentifier()
	if provided {
		datedServiceJourneyID = occurrence.DatedServiceJourneyID
	}

	var bound *ctdf.DatedServiceJourney
	if provided {
		bound, err = s.FindByDatedServiceJourneyID(ctx, occurrence.DatedServiceJourneyID)
		if err != nil {
			return Result{}, err
		}
	}

	if provided && lineage == nil && bound != nil {
		if bound.DepartureDate != occurrence.DepartureDate {
			log.Warn().
				Str("datedservicejourney", occurrence.DatedServiceJourneyID).
				Str("departuredate", occurrence.DepartureDate).
				Str("bounddeparturedate", bound.DepartureDate).
				Str("file", sourceFileName).
				Msg("Ignoring DatedServiceJourney as it already exists for another departure date")
			s.metrics.Rejected.Inc()

			return Result{Outcome: Rejected, Journey: bound}, nil
		}

		lineage = bound
	}

	newLineage := false
	originalDatedServiceJourneyID := datedServiceJourneyID
	if lineage != nil {
		originalDatedServiceJourneyID = lineage.OriginalDatedServiceJourneyID

		// A provided identifier that is already stored cannot be given to a second service journey
		if bound != nil {
			datedServiceJourneyID = generatedID
		}
	} else {
		newLineage = true
	}

	datedServiceJourney := &ctdf.DatedServiceJourney{}
	if err := copier.Copy(datedServiceJourney, &occurrence); err != nil {
		return Result{}, err
	}
	datedServiceJourney.DatedServiceJourneyID = datedServiceJourneyID
	datedServiceJourney.OriginalDatedServiceJourneyID = originalDatedServiceJourneyID
	datedServiceJourney.PublicationTimestamp = publicationTimestamp
	datedServiceJourney.SourceFileName = sourceFileName
	datedServiceJourney.CreationNumber = creationNumber
	datedServiceJourney.CreatedDate = s.now()

	if err := s.store.Add(ctx, datedServiceJourney); err != nil {
		if errors.Is(err, database.ErrDuplicateDatedServiceJourney) {
			existing, findErr := s.store.ByServiceJourneyIDAndDate(ctx, occurrence.ServiceJourneyID, occurrence.DepartureDate)
			if findErr != nil {
				return Result{}, findErr
			}

			// Otherwise the DatedServiceJourney id is taken, retrying after a reseed picks a fresh one
			if existing == nil {
				return Result{}, fmt.Errorf("storing %s: %w", datedServiceJourney.DatedServiceJourneyID, err)
			}

			s.metrics.Duplicates.Inc()
			return Result{Outcome: Duplicate, Journey: existing}, nil
		}

		return Result{}, err
	}

	s.metrics.MarkNewDatedServiceJourney(newLineage)

	if newLineage {
		if err := s.notifier.Notify(ctx, datedServiceJourney); err != nil {
			log.Error().Err(err).Str("datedservicejourney", datedServiceJourney.DatedServiceJourneyID).Msg("Failed to publish new lineage")
		}
	}

	return Result{Outcome: Created, Journey: datedServiceJourney, NewLineage: newLineage}, nil
}
