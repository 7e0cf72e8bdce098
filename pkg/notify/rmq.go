package notify

import (
	"context"

	"github.com/adjust/rmq/v5"
	"github.com/travigo/journeymapper/pkg/ctdf"
)

// RMQNotifier publishes lineage events onto a redis backed rmq queue
type RMQNotifier struct {
	queue rmq.Queue
}

func NewRMQNotifier(connection rmq.Connection, queueName string) (*RMQNotifier, error) {
	queue, err := connection.OpenQueue(queueName)
	if err != nil {
		return nil, err
	}

	return &RMQNotifier{queue: queue}, nil
}

func (n *RMQNotifier) Notify(ctx context.Context, datedServiceJourney *ctdf.DatedServiceJourney) error {
	eventBytes, err := newEvent(datedServiceJourney)
	if err != nil {
		return err
	}

	return n.queue.PublishBytes(eventBytes)
}
