package notify

import (
	"encoding/json"

	"github.com/adjust/rmq/v5"
	"github.com/kr/pretty"
	"github.com/rs/zerolog/log"
)

// PrintBatchConsumer prints every lineage event it receives, used to follow the queue from a terminal
type PrintBatchConsumer struct {
	print func(event Event)
}

func NewPrintBatchConsumer() *PrintBatchConsumer {
	return &PrintBatchConsumer{
		print: func(event Event) {
			pretty.Println(event)
		},
	}
}

func (c *PrintBatchConsumer) Consume(batch rmq.Deliveries) {
	payloads := batch.Payloads()

	for _, payload := range payloads {
		var event Event
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			log.Error().Err(err).Msg("Failed to decode lineage event")
			continue
		}

		c.print(event)
	}

	if ackErrors := batch.Ack(); len(ackErrors) > 0 {
		for _, err := range ackErrors {
			log.Error().Err(err).Msg("Failed to ack lineage events")
		}
	}
}
