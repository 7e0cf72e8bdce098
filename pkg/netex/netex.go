package netex

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/journeymapper/pkg/util"
	"golang.org/x/exp/slices"
)

const defaultTimeZone = "GMT"

var publicationTimestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// Processor holds every entity read from a single NeTEx archive, keyed by id.
// Loading only fills these tables; resolving them into occurrences is a separate pass.
type Processor struct {
	FileName string

	PublicationTimestamp time.Time
	TimeZone             string

	JourneyPatterns      map[string]*JourneyPattern
	Routes               map[string]*Route
	DayTypes             map[string]*DayType
	DayTypeAssignments   map[string][]*DayTypeAssignment
	OperatingDays        map[string]*OperatingDay
	DatedServiceJourneys map[string][]*DatedServiceJourney
	ServiceJourneys      []*ServiceJourney

	Documents []*Document
}

func NewProcessor(fileName string) *Processor {
	return &Processor{
		FileName: fileName,
		TimeZone: defaultTimeZone,

		JourneyPatterns:      map[string]*JourneyPattern{},
		Routes:               map[string]*Route{},
		DayTypes:             map[string]*DayType{},
		DayTypeAssignments:   map[string][]*DayTypeAssignment{},
		OperatingDays:        map[string]*OperatingDay{},
		DatedServiceJourneys: map[string][]*DatedServiceJourney{},
		ServiceJourneys:      []*ServiceJourney{},
	}
}

func (p *Processor) LoadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	return p.LoadArchive(file, info.Size())
}

// LoadArchive reads every XML entry of the zip archive. Entries holding shared data, named with a
// leading underscore, are read before the rest as the others reference what they define.
func (p *Processor) LoadArchive(reader io.ReaderAt, size int64) error {
	archive, err := zip.NewReader(reader, size)
	if err != nil {
		return fmt.Errorf("opening archive %s: %w", p.FileName, err)
	}

	entries := []*zip.File{}
	for _, entry := range archive.File {
		if entry.FileInfo().IsDir() {
			continue
		}

		if !strings.HasSuffix(strings.ToLower(entry.Name), ".xml") {
			log.Debug().Str("file", p.FileName).Str("entry", entry.Name).Msg("Skipping non XML entry")
			continue
		}

		entries = append(entries, entry)
	}

	slices.SortStableFunc(entries, func(a, b *zip.File) int {
		aShared := isSharedDataEntry(a.Name)
		bShared := isSharedDataEntry(b.Name)

		if aShared && !bShared {
			return -1
		} else if !aShared && bShared {
			return 1
		}
		return 0
	})

	for _, entry := range entries {
		if err := p.loadEntry(entry); err != nil {
			return err
		}
	}

	log.Debug().
		Str("file", p.FileName).
		Int("documents", len(p.Documents)).
		Int("servicejourneys", len(p.ServiceJourneys)).
		Int("journeypatterns", len(p.JourneyPatterns)).
		Int("routes", len(p.Routes)).
		Int("daytypes", len(p.DayTypes)).
		Int("operatingdays", len(p.OperatingDays)).
		Msg("Loaded archive")

	return nil
}

func (p *Processor) loadEntry(entry *zip.File) error {
	reader, err := entry.Open()
	if err != nil {
		return fmt.Errorf("opening entry %s: %w", entry.Name, err)
	}
	defer reader.Close()

	document, err := p.parseDocument(entry.Name, reader)
	if err != nil {
		return err
	}

	if document.TimeZone != "" {
		p.TimeZone = document.TimeZone
	}

	if document.PublicationTimestamp != "" {
		publicationTimestamp, err := parsePublicationTimestamp(document.PublicationTimestamp, p.TimeZone)
		if err != nil {
			return fmt.Errorf("entry %s: %w", entry.Name, err)
		}

		p.PublicationTimestamp = publicationTimestamp
	}

	p.Documents = append(p.Documents, document)

	return nil
}

func isSharedDataEntry(name string) bool {
	return strings.HasPrefix(util.BaseName(name), "_")
}

func parsePublicationTimestamp(value string, timeZone string) (time.Time, error) {
	location, err := time.LoadLocation(timeZone)
	if err != nil {
		location = time.UTC
	}

	value = strings.TrimSpace(value)
	for _, layout := range publicationTimestampLayouts {
		if timestamp, err := time.ParseInLocation(layout, value, location); err == nil {
			return timestamp, nil
		}
	}

	return time.Time{}, fmt.Errorf("invalid PublicationTimestamp %q", value)
}
