package elastic_client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/rs/zerolog/log"
)

var Client *elasticsearch.Client
var bulkIndexer esutil.BulkIndexer

// Connect sets up the bulk indexer, an empty address leaves indexing disabled
func Connect(address string, username string, password string) error {
	if address == "" {
		log.Info().Msg("Skipping Elasticsearch setup")
		return nil
	}

	retryBackoff := backoff.NewExponentialBackOff()

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{address},
		Username:  username,
		Password:  password,

		RetryOnStatus: []int{502, 503, 504, 429},

		RetryBackoff: func(i int) time.Duration {
			if i == 1 {
				retryBackoff.Reset()
			}
			return retryBackoff.NextBackOff()
		},
		MaxRetries: 5,
	})
	if err != nil {
		return err
	}

	_, err = es.Info()
	if err != nil {
		return err
	}

	bulkIndexer, err = esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client:        es,
		FlushInterval: 15 * time.Second,
	})
	if err != nil {
		return err
	}

	Client = es

	log.Info().Str("address", address).Msg("Elasticsearch client setup")

	return nil
}

func IndexRequest(indexName string, document []byte) {
	if Client == nil {
		return
	}

	err := bulkIndexer.Add(
		context.Background(),
		esutil.BulkIndexerItem{
			Index:  indexName,
			Action: "index",
			Body:   bytes.NewReader(document),
			OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				if err != nil {
					log.Error().Err(err).Str("indexName", indexName).Msg("Failed to index document")
				} else {
					log.Error().Str("type", res.Error.Type).Str("reason", res.Error.Reason).Msg("Failed to index document")
				}
			},
		},
	)
	if err != nil {
		log.Error().Err(err).Str("indexName", indexName).Msg("Failed to queue document")
	}
}

// IngestEvent records the outcome of processing one published file
type IngestEvent struct {
	Timestamp time.Time `json:"timestamp"`
	FileName  string    `json:"fileName"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`

	Occurrences int `json:"occurrences"`
	Created     int `json:"created"`
	NewLineages int `json:"newLineages"`
	Duplicates  int `json:"duplicates"`
	Rejected    int `json:"rejected"`
	Skipped     int `json:"skipped"`

	DurationMillis int64 `json:"durationMillis"`
}

// IngestIndexName is rotated weekly
func IngestIndexName(timestamp time.Time) string {
	yearNumber, weekNumber := timestamp.ISOWeek()
	return fmt.Sprintf("journeymapper-ingest-%d-%d", yearNumber, weekNumber)
}

func IndexIngestEvent(event *IngestEvent) {
	if Client == nil {
		return
	}

	document, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal ingest event")
		return
	}

	IndexRequest(IngestIndexName(event.Timestamp), document)
}

func WaitUntilQueueEmpty() {
	if bulkIndexer == nil {
		return
	}

	if err := bulkIndexer.Close(context.Background()); err != nil {
		log.Error().Err(err).Msg("Failed to flush bulk indexer")
	}
}
