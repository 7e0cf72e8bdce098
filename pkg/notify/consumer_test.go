package notify

import (
	"encoding/json"
	"testing"

	"github.com/adjust/rmq/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintBatchConsumerAcksEveryDelivery(t *testing.T) {
	printed := []Event{}
	batchConsumer := &PrintBatchConsumer{
		print: func(event Event) {
			printed = append(printed, event)
		},
	}

	eventBytes, err := newEvent(testDatedServiceJourney())
	require.NoError(t, err)

	valid := rmq.NewTestDeliveryString(string(eventBytes))
	invalid := rmq.NewTestDeliveryString("{not json")

	batchConsumer.Consume(rmq.Deliveries{valid, invalid})

	require.Len(t, printed, 1)
	assert.Equal(t, "ENT:DatedServiceJourney:1", printed[0].Body.DatedServiceJourneyID)
	assert.Equal(t, rmq.Acked, valid.State)
	assert.Equal(t, rmq.Acked, invalid.State)

	var event Event
	require.NoError(t, json.Unmarshal(eventBytes, &event))
	assert.Equal(t, EventTypeDatedServiceJourneyCreated, event.Type)
}
