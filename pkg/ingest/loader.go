package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/journeymapper/pkg/blobstore"
	"github.com/travigo/journeymapper/pkg/ctdf"
	"github.com/travigo/journeymapper/pkg/elastic_client"
	"github.com/travigo/journeymapper/pkg/identity"
	"github.com/travigo/journeymapper/pkg/leader"
	"github.com/travigo/journeymapper/pkg/metrics"
	"github.com/travigo/journeymapper/pkg/netex"
	"github.com/travigo/journeymapper/pkg/util"
)

// FileStore tracks which published files have been fully ingested
type FileStore interface {
	IsAlreadyProcessed(ctx context.Context, sourceFileName string) (bool, error)
	SetFileStatus(ctx context.Context, sourceFileName string, processed bool) error
}

type Resolver interface {
	// Reseed picks up creation numbers handed out by other instances since the last load
	Reseed(ctx context.Context) error
	Resolve(ctx context.Context, occurrence ctdf.ServiceJourney, publicationTimestamp time.Time, sourceFileName string) (identity.Result, error)
}

type Options struct {
	// Prefix limits the listing to one folder of the source
	Prefix            string
	TempFileDirectory string
	Metrics           *metrics.Collector

	// Elector gates scheduled and triggered loads, it defaults to always leading
	Elector leader.Elector
	// LeaseRenewInterval is how often leadership is confirmed while a load runs
	LeaseRenewInterval time.Duration
	// ImportDisabled turns every load into a no-op
	ImportDisabled bool
}

// Loader pulls every new file from the source and resolves its occurrences.
// Only one load runs at a time per Loader.
type Loader struct {
	files    FileStore
	resolver Resolver
	source   blobstore.Source

	prefix            string
	tempFileDirectory string
	metrics           *metrics.Collector

	elector            leader.Elector
	leaseRenewInterval time.Duration
	importDisabled     bool

	loading     atomic.Bool
	lastSuccess atomic.Int64
}

func NewLoader(files FileStore, resolver Resolver, source blobstore.Source, opts Options) *Loader {
	if opts.TempFileDirectory == "" {
		opts.TempFileDirectory = os.TempDir()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewCollector()
	}
	if opts.Elector == nil {
		opts.Elector = leader.Always{}
	}

	loader := &Loader{
		files:             files,
		resolver:          resolver,
		source:            source,
		prefix:            opts.Prefix,
		tempFileDirectory: opts.TempFileDirectory,
		metrics:           opts.Metrics,

		elector:            opts.Elector,
		leaseRenewInterval: opts.LeaseRenewInterval,
		importDisabled:     opts.ImportDisabled,
	}
	loader.lastSuccess.Store(time.Now().UnixNano())

	return loader
}

// LoadAll ingests every unprocessed file, returning false without doing anything if a load is already running
func (l *Loader) LoadAll(ctx context.Context) bool {
	if !l.loading.CompareAndSwap(false, true) {
		log.Info().Msg("Already loading, skipping")
		return false
	}
	defer l.loading.Store(false)

	if err := l.resolver.Reseed(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to read the highest creation number, skipping load")
		return true
	}

	objects, err := l.source.List(ctx, l.prefix)
	if err != nil {
		log.Error().Err(err).Str("prefix", l.prefix).Msg("Failed to list source files")
		return true
	}

	log.Info().Int("count", len(objects)).Str("prefix", l.prefix).Msg("Checking source files")

	for _, object := range objects {
		if ctx.Err() != nil {
			break
		}

		fileName := util.BaseName(object.Name)
		if fileName == "" {
			continue
		}

		processed, err := l.files.IsAlreadyProcessed(ctx, fileName)
		if err != nil {
			log.Error().Err(err).Str("file", fileName).Msg("Failed to check file status")
			continue
		}
		if processed {
			log.Debug().Str("file", fileName).Msg("File already processed")
			continue
		}

		l.ingestObject(ctx, object, fileName)
	}

	return true
}

func (l *Loader) ingestObject(ctx context.Context, object blobstore.Object, fileName string) {
	startTime := time.Now()
	event := &elastic_client.IngestEvent{
		Timestamp: startTime,
		FileName:  fileName,
	}

	err := l.loadFile(ctx, object, fileName, event)

	duration := time.Since(startTime)
	event.DurationMillis = duration.Milliseconds()
	l.metrics.IngestDuration.Observe(duration.Seconds())

	if err != nil {
		log.Error().Err(err).Str("file", fileName).Msg("Failed to ingest file")
		l.metrics.FilesFailed.Inc()
		event.Error = err.Error()
	} else {
		log.Info().
			Str("file", fileName).
			Int("occurrences", event.Occurrences).
			Int("created", event.Created).
			Int("newlineages", event.NewLineages).
			Int("duplicates", event.Duplicates).
			Int("rejected", event.Rejected).
			Dur("duration", duration).
			Msg("Ingested file")
		l.metrics.FilesProcessed.Inc()
		l.lastSuccess.Store(time.Now().UnixNano())
		event.Success = true
	}

	elastic_client.IndexIngestEvent(event)
}

func (l *Loader) loadFile(ctx context.Context, object blobstore.Object, fileName string, event *elastic_client.IngestEvent) error {
	if err := l.files.SetFileStatus(ctx, fileName, false); err != nil {
		return err
	}

	path, err := l.download(ctx, object, fileName)
	if err != nil {
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	if info.Size() > 0 {
		processor := netex.NewProcessor(fileName)
		if err := processor.LoadFile(path); err != nil {
			return err
		}

		occurrences, stats, err := processor.Occurrences()
		if err != nil {
			return err
		}
		event.Occurrences = stats.Occurrences
		event.Skipped = stats.SkippedTemplates + stats.SkippedDates

		for _, occurrence := range occurrences {
			result, err := l.resolver.Resolve(ctx, occurrence, processor.PublicationTimestamp, fileName)
			if err != nil {
				return fmt.Errorf("resolving %s on %s: %w", occurrence.ServiceJourneyID, occurrence.DepartureDate, err)
			}

			switch result.Outcome {
			case identity.Created:
				event.Created++
				if result.NewLineage {
					event.NewLineages++
				}
			case identity.Duplicate:
				event.Duplicates++
			case identity.Rejected:
				event.Rejected++
			}
		}
	} else {
		log.Warn().Str("file", fileName).Msg("Empty file, nothing to ingest")
	}

	if err := l.files.SetFileStatus(ctx, fileName, true); err != nil {
		return err
	}

	os.Remove(path)

	return nil
}

// download copies the object into the temp directory, a non empty copy left by an earlier attempt is reused
func (l *Loader) download(ctx context.Context, object blobstore.Object, fileName string) (string, error) {
	path := filepath.Join(l.tempFileDirectory, fileName)

	info, err := os.Stat(path)
	if err == nil && info.Size() > 0 {
		log.Debug().Str("file", fileName).Str("path", path).Msg("Reusing downloaded file")
		return path, nil
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	reader, err := l.source.Open(ctx, object.Name)
	if err != nil {
		return "", err
	}
	defer reader.Close()

	tmpFile, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating temporary file: %w", err)
	}

	_, err = io.Copy(tmpFile, reader)
	closeErr := tmpFile.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("downloading %s: %w", object.Name, err)
	}

	return path, nil
}

// TriggerAsync starts a load in the background, gated the same way as scheduled loads
func (l *Loader) TriggerAsync() {
	go l.runOnce(context.Background())
}

// Run loads immediately and then on every interval until the context is cancelled
func (l *Loader) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		l.runOnce(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// runOnce loads only while this instance leads. Leadership is confirmed every renew interval
// during the load and losing it cancels the load before the next file.
func (l *Loader) runOnce(ctx context.Context) bool {
	if l.importDisabled {
		log.Warn().Msg("Import disabled - doing nothing")
		return false
	}

	if !l.elector.IsLeader(ctx) {
		log.Debug().Msg("Not the leader, skipping load")
		return false
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if l.leaseRenewInterval > 0 {
		go l.holdLease(runCtx, cancel)
	}

	return l.LoadAll(runCtx)
}

func (l *Loader) holdLease(ctx context.Context, cancel context.CancelFunc) {
	ticker := time.NewTicker(l.leaseRenewInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if !l.elector.IsLeader(ctx) {
			if ctx.Err() != nil {
				return
			}

			log.Warn().Msg("Lost leadership during load, stopping")
			cancel()
			return
		}
	}
}

func (l *Loader) LastSuccessfulLoad() time.Time {
	return time.Unix(0, l.lastSuccess.Load())
}

// Healthy reports whether a file was ingested within the window, start up counts as a success
func (l *Loader) Healthy(window time.Duration) bool {
	return time.Since(l.LastSuccessfulLoad()) <= window
}
