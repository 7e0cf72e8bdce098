package database

import (
	"context"
	"strings"
	"sync"

	"github.com/travigo/journeymapper/pkg/ctdf"
	"golang.org/x/exp/slices"
)

// MemoryRepository keeps everything in process. Used by tests and local runs without MongoDB.
type MemoryRepository struct {
	mutex sync.RWMutex

	datedServiceJourneys []*ctdf.DatedServiceJourney
	sourceFiles          map[string]ctdf.SourceFile
	maxCreationNumber    int64

	// Reads counts every DatedServiceJourney lookup that reached the repository
	Reads int
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		sourceFiles: map[string]ctdf.SourceFile{},
	}
}

func (r *MemoryRepository) SaveDatedServiceJourney(ctx context.Context, datedServiceJourney *ctdf.DatedServiceJourney) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, existing := range r.datedServiceJourneys {
		if existing.ServiceJourneyID == datedServiceJourney.ServiceJourneyID && existing.DepartureDate == datedServiceJourney.DepartureDate {
			return ErrDuplicateDatedServiceJourney
		}
		if existing.DatedServiceJourneyID == datedServiceJourney.DatedServiceJourneyID {
			return ErrDuplicateDatedServiceJourney
		}
	}

	stored := *datedServiceJourney
	r.datedServiceJourneys = append(r.datedServiceJourneys, &stored)

	if datedServiceJourney.CreationNumber > r.maxCreationNumber {
		r.maxCreationNumber = datedServiceJourney.CreationNumber
	}

	return nil
}

func (r *MemoryRepository) FindByDatedServiceJourneyID(ctx context.Context, datedServiceJourneyID string) (*ctdf.DatedServiceJourney, error) {
	return r.findFirst(func(d *ctdf.DatedServiceJourney) bool {
		return d.DatedServiceJourneyID == datedServiceJourneyID
	}), nil
}

func (r *MemoryRepository) FindByServiceJourneyIDAndDate(ctx context.Context, serviceJourneyID string, departureDate string) (*ctdf.DatedServiceJourney, error) {
	return r.findFirst(func(d *ctdf.DatedServiceJourney) bool {
		return d.ServiceJourneyID == serviceJourneyID && d.DepartureDate == departureDate
	}), nil
}

func (r *MemoryRepository) FindByPrivateCodeAndDate(ctx context.Context, privateCode string, departureDate string) (*ctdf.DatedServiceJourney, error) {
	return r.findFirst(func(d *ctdf.DatedServiceJourney) bool {
		return d.PrivateCode == privateCode && d.DepartureDate == departureDate
	}), nil
}

func (r *MemoryRepository) FindByOriginalDatedServiceJourneyID(ctx context.Context, originalDatedServiceJourneyID string) ([]*ctdf.DatedServiceJourney, error) {
	matches := r.findAll(func(d *ctdf.DatedServiceJourney) bool {
		return d.OriginalDatedServiceJourneyID == originalDatedServiceJourneyID
	})

	slices.SortFunc(matches, func(a, b *ctdf.DatedServiceJourney) int {
		if c := b.PublicationTimestamp.Compare(a.PublicationTimestamp); c != 0 {
			return c
		}
		if a.CreationNumber > b.CreationNumber {
			return -1
		} else if a.CreationNumber < b.CreationNumber {
			return 1
		}
		return 0
	})

	return matches, nil
}

func (r *MemoryRepository) FindFromDepartureDate(ctx context.Context, departureDate string) ([]*ctdf.DatedServiceJourney, error) {
	return r.findAll(func(d *ctdf.DatedServiceJourney) bool {
		return strings.Compare(d.DepartureDate, departureDate) >= 0
	}), nil
}

func (r *MemoryRepository) MaxCreationNumber(ctx context.Context) (int64, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return r.maxCreationNumber, nil
}

func (r *MemoryRepository) FindSourceFile(ctx context.Context, sourceFileName string) (*ctdf.SourceFile, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	sourceFile, exists := r.sourceFiles[sourceFileName]
	if !exists {
		return nil, nil
	}

	return &sourceFile, nil
}

func (r *MemoryRepository) SaveSourceFile(ctx context.Context, sourceFile *ctdf.SourceFile) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.sourceFiles[sourceFile.SourceFileName] = *sourceFile

	return nil
}

// Count returns the number of stored DatedServiceJourneys
func (r *MemoryRepository) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return len(r.datedServiceJourneys)
}

func (r *MemoryRepository) findFirst(match func(*ctdf.DatedServiceJourney) bool) *ctdf.DatedServiceJourney {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.Reads++

	for _, datedServiceJourney := range r.datedServiceJourneys {
		if match(datedServiceJourney) {
			found := *datedServiceJourney
			return &found
		}
	}

	return nil
}

func (r *MemoryRepository) findAll(match func(*ctdf.DatedServiceJourney) bool) []*ctdf.DatedServiceJourney {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.Reads++

	matches := []*ctdf.DatedServiceJourney{}
	for _, datedServiceJourney := range r.datedServiceJourneys {
		if match(datedServiceJourney) {
			found := *datedServiceJourney
			matches = append(matches, &found)
		}
	}

	return matches
}
