package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/journeymapper/pkg/ctdf"
)

const EventTypeDatedServiceJourneyCreated = "DatedServiceJourneyCreated"

// Notifier is told about every DatedServiceJourney that starts a new lineage
type Notifier interface {
	Notify(ctx context.Context, datedServiceJourney *ctdf.DatedServiceJourney) error
}

type Event struct {
	Type      string                    `json:"type"`
	Timestamp time.Time                 `json:"timestamp"`
	Body      *ctdf.DatedServiceJourney `json:"body"`
}

func newEvent(datedServiceJourney *ctdf.DatedServiceJourney) ([]byte, error) {
	return json.Marshal(Event{
		Type:      EventTypeDatedServiceJourneyCreated,
		Timestamp: time.Now(),
		Body:      datedServiceJourney,
	})
}

type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, datedServiceJourney *ctdf.DatedServiceJourney) error {
	log.Info().
		Str("datedservicejourney", datedServiceJourney.DatedServiceJourneyID).
		Str("servicejourney", datedServiceJourney.ServiceJourneyID).
		Str("departuredate", datedServiceJourney.DepartureDate).
		Msg("New dated service journey lineage")

	return nil
}

// MemoryNotifier keeps every notification, used in tests
type MemoryNotifier struct {
	mutex    sync.Mutex
	Notified []*ctdf.DatedServiceJourney
}

func (n *MemoryNotifier) Notify(ctx context.Context, datedServiceJourney *ctdf.DatedServiceJourney) error {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	n.Notified = append(n.Notified, datedServiceJourney)

	return nil
}

func (n *MemoryNotifier) Count() int {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	return len(n.Notified)
}
