package metrics

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type SearchType string

const (
	SearchDatedServiceJourney         SearchType = "DATED_SERVICE_JOURNEY"
	SearchOriginalDatedServiceJourney SearchType = "ORIGINAL_DATED_SERVICE_JOURNEY"
	SearchServiceJourneyIDDate        SearchType = "SERVICE_JOURNEY_ID_DATE"
	SearchPrivateCodeDepartureDate    SearchType = "PRIVATE_CODE_DEPARTURE_DATE"
)

type Collector struct {
	reg *prometheus.Registry

	NewDatedServiceJourneys *prometheus.CounterVec // new_lineage label: true|false
	Duplicates              prometheus.Counter
	Rejected                prometheus.Counter

	Lookups *prometheus.CounterVec // search_type, codespace

	FilesProcessed prometheus.Counter
	FilesFailed    prometheus.Counter
	IngestDuration prometheus.Histogram
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		NewDatedServiceJourneys: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "journeymapper_dated_service_journeys_created_total",
			Help: "Dated service journeys created, by whether they started a new lineage.",
		}, []string{"new_lineage"}),
		Duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "journeymapper_dated_service_journeys_duplicate_total",
			Help: "Occurrences that already had a dated service journey.",
		}),
		Rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "journeymapper_dated_service_journeys_rejected_total",
			Help: "Occurrences whose provided identifier was already bound to another date.",
		}),
		Lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "journeymapper_lookups_total",
			Help: "Dated service journey lookups.",
		}, []string{"search_type", "codespace"}),
		FilesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "journeymapper_files_processed_total",
			Help: "Source files ingested successfully.",
		}),
		FilesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "journeymapper_files_failed_total",
			Help: "Source files that failed to ingest.",
		}),
		IngestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "journeymapper_file_ingest_duration_seconds",
			Help:    "Time taken to download and ingest a single source file.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}

	reg.MustRegister(
		c.NewDatedServiceJourneys, c.Duplicates, c.Rejected,
		c.Lookups,
		c.FilesProcessed, c.FilesFailed, c.IngestDuration,
		collectors.NewGoCollector(),
	)

	return c
}

func (c *Collector) MarkNewDatedServiceJourney(newLineage bool) {
	c.NewDatedServiceJourneys.WithLabelValues(strconv.FormatBool(newLineage)).Inc()
}

// MarkLookup counts a lookup against the codespace of what was found, or "none" on a miss
func (c *Collector) MarkLookup(searchType SearchType, codespace string) {
	if codespace == "" {
		codespace = "none"
	}

	c.Lookups.WithLabelValues(string(searchType), codespace).Inc()
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.reg
}

func (c *Collector) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}))
}
