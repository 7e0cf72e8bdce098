package elastic_client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIngestIndexName(t *testing.T) {
	assert.Equal(t, "journeymapper-ingest-2018-1", IngestIndexName(time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "journeymapper-ingest-2020-53", IngestIndexName(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestDisabledClientIgnoresEvents(t *testing.T) {
	assert.NoError(t, Connect("", "", ""))
	assert.Nil(t, Client)

	IndexIngestEvent(&IngestEvent{FileName: "rb_nsb.zip"})
	WaitUntilQueueEmpty()
}
