package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/adjust/rmq/v5"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/journeymapper/pkg/ctdf"
)

func testDatedServiceJourney() *ctdf.DatedServiceJourney {
	return &ctdf.DatedServiceJourney{
		ServiceJourneyID:              "NSB:ServiceJourney:A",
		DepartureDate:                 "2018-01-01",
		PrivateCode:                   "812",
		DatedServiceJourneyID:         "ENT:DatedServiceJourney:1",
		OriginalDatedServiceJourneyID: "ENT:DatedServiceJourney:1",
	}
}

func TestRMQNotifierPublishesEvent(t *testing.T) {
	redisServer := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: redisServer.Addr()})

	connection, err := rmq.OpenConnectionWithRedisClient("journeymapper-test", redisClient, nil)
	require.NoError(t, err)
	t.Cleanup(func() { <-connection.StopAllConsuming() })

	notifier, err := NewRMQNotifier(connection, "dated-service-journeys")
	require.NoError(t, err)

	require.NoError(t, notifier.Notify(context.Background(), testDatedServiceJourney()))

	queue, err := connection.OpenQueue("dated-service-journeys")
	require.NoError(t, err)
	require.NoError(t, queue.StartConsuming(10, 10*time.Millisecond))

	received := make(chan string, 1)
	_, err = queue.AddConsumerFunc("test", func(delivery rmq.Delivery) {
		received <- delivery.Payload()
		delivery.Ack()
	})
	require.NoError(t, err)

	select {
	case payload := <-received:
		var event Event
		require.NoError(t, json.Unmarshal([]byte(payload), &event))
		assert.Equal(t, EventTypeDatedServiceJourneyCreated, event.Type)
		assert.Equal(t, "ENT:DatedServiceJourney:1", event.Body.DatedServiceJourneyID)
	case <-time.After(5 * time.Second):
		t.Fatal("no event received")
	}
}

func TestEventSubject(t *testing.T) {
	assert.Equal(t, "journeymapper.datedservicejourney.NSB", eventSubject("journeymapper.datedservicejourney", testDatedServiceJourney()))
	assert.Equal(t, "events._", eventSubject("events", &ctdf.DatedServiceJourney{}))
}

func TestMemoryNotifier(t *testing.T) {
	notifier := &MemoryNotifier{}
	require.NoError(t, notifier.Notify(context.Background(), testDatedServiceJourney()))
	require.NoError(t, LogNotifier{}.Notify(context.Background(), testDatedServiceJourney()))

	assert.Equal(t, 1, notifier.Count())
}
