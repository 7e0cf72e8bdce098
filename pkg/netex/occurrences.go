package netex

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/journeymapper/pkg/ctdf"
)

// ExpansionStrategy is how a ServiceJourney template is turned into dated occurrences
type ExpansionStrategy int

const (
	// CalendarDriven expands through DayType -> DayTypeAssignment -> date
	CalendarDriven ExpansionStrategy = iota
	// OverrideDriven expands through DatedServiceJourney -> OperatingDay -> date
	OverrideDriven
)

func (s ExpansionStrategy) String() string {
	switch s {
	case CalendarDriven:
		return "CalendarDriven"
	case OverrideDriven:
		return "OverrideDriven"
	default:
		return "Unknown"
	}
}

// MissingReferenceError is returned when a template points at an entity that the archive never defined
type MissingReferenceError struct {
	Kind           string
	Ref            string
	ServiceJourney string
}

func (e *MissingReferenceError) Error() string {
	return fmt.Sprintf("service journey %s references unknown %s %q", e.ServiceJourney, e.Kind, e.Ref)
}

// InvalidValueError is returned when a template or calendar entry carries an unparseable value
type InvalidValueError struct {
	Field          string
	Value          string
	ServiceJourney string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("service journey %s has invalid %s %q", e.ServiceJourney, e.Field, e.Value)
}

// IsDataError reports whether err is a problem with the published data rather than the processor
func IsDataError(err error) bool {
	var missingReference *MissingReferenceError
	var invalidValue *InvalidValueError

	return errors.As(err, &missingReference) || errors.As(err, &invalidValue)
}

type Stats struct {
	Templates        int
	Occurrences      int
	SkippedTemplates int
	SkippedDates     int
	NoPrivateCode    int
	Unsupported      int
}

// StrategyFor picks the expansion strategy for a template, which is fixed for all of its dates
func StrategyFor(serviceJourney *ServiceJourney) ExpansionStrategy {
	if len(serviceJourney.DayTypes) > 0 {
		return CalendarDriven
	}

	return OverrideDriven
}

// Occurrences resolves every loaded template into its dated occurrences.
// Templates or dates with broken references are logged and skipped, any other failure is returned.
func (p *Processor) Occurrences() ([]ctdf.ServiceJourney, Stats, error) {
	occurrences := []ctdf.ServiceJourney{}
	stats := Stats{Templates: len(p.ServiceJourneys)}

	for _, serviceJourney := range p.ServiceJourneys {
		templateOccurrences, err := p.resolveOccurrences(serviceJourney, &stats)
		if err != nil {
			if !IsDataError(err) {
				return nil, stats, err
			}

			log.Warn().
				Err(err).
				Str("file", p.FileName).
				Str("servicejourney", serviceJourney.ID).
				Msg("Skipping service journey")
			stats.SkippedTemplates++
			continue
		}

		occurrences = append(occurrences, templateOccurrences...)
	}

	stats.Occurrences = len(occurrences)

	return occurrences, stats, nil
}

func (p *Processor) resolveOccurrences(serviceJourney *ServiceJourney, stats *Stats) ([]ctdf.ServiceJourney, error) {
	if serviceJourney.PrivateCode == "" {
		log.Debug().Str("file", p.FileName).Str("servicejourney", serviceJourney.ID).Msg("Service journey has no PrivateCode")
		stats.NoPrivateCode++
		return nil, nil
	}

	lineRef, err := p.resolveLineRef(serviceJourney)
	if err != nil {
		return nil, err
	}

	departureTime, err := resolveDepartureTime(serviceJourney)
	if err != nil {
		return nil, err
	}

	version, err := parseVersion(serviceJourney.Version)
	if err != nil {
		return nil, &InvalidValueError{Field: "version", Value: serviceJourney.Version, ServiceJourney: serviceJourney.ID}
	}

	template := ctdf.ServiceJourney{
		ServiceJourneyID: serviceJourney.ID,
		Version:          version,
		PrivateCode:      serviceJourney.PrivateCode,
		LineRef:          lineRef,
		DepartureTime:    departureTime,
	}

	var dates []datedOccurrence
	switch StrategyFor(serviceJourney) {
	case CalendarDriven:
		dates = p.calendarDates(serviceJourney, stats)
	case OverrideDriven:
		dates = p.overrideDates(serviceJourney, stats)
	}

	occurrences := make([]ctdf.ServiceJourney, 0, len(dates))
	for _, dated := range dates {
		occurrence := template
		occurrence.DepartureDate = dated.date
		occurrence.DatedServiceJourneyID = dated.datedServiceJourneyID

		occurrences = append(occurrences, occurrence)
	}

	return occurrences, nil
}

type datedOccurrence struct {
	date                  string
	datedServiceJourneyID string
}

func (p *Processor) calendarDates(serviceJourney *ServiceJourney, stats *Stats) []datedOccurrence {
	dates := []datedOccurrence{}
	seen := map[string]bool{}

	for _, dayTypeRef := range serviceJourney.DayTypes {
		if p.DayTypes[dayTypeRef.Ref] == nil {
			p.skipDate(serviceJourney, &MissingReferenceError{Kind: "DayType", Ref: dayTypeRef.Ref, ServiceJourney: serviceJourney.ID}, stats)
			continue
		}

		for _, dayTypeAssignment := range p.DayTypeAssignments[dayTypeRef.Ref] {
			if !dayTypeAssignment.Available() {
				continue
			}

			date, err := p.assignmentDate(serviceJourney, dayTypeAssignment)
			if err != nil {
				p.skipDate(serviceJourney, err, stats)
				continue
			}
			if date == "" {
				stats.Unsupported++
				continue
			}

			if !seen[date] {
				seen[date] = true
				dates = append(dates, datedOccurrence{date: date})
			}
		}
	}

	return dates
}

func (p *Processor) assignmentDate(serviceJourney *ServiceJourney, dayTypeAssignment *DayTypeAssignment) (string, error) {
	if dayTypeAssignment.Date != "" {
		return parseDate(dayTypeAssignment.Date, serviceJourney.ID)
	}

	if dayTypeAssignment.OperatingDayRef != nil {
		return p.operatingDayDate(serviceJourney, dayTypeAssignment.OperatingDayRef.Ref)
	}

	if dayTypeAssignment.OperatingPeriodRef != nil {
		log.Debug().
			Str("file", p.FileName).
			Str("servicejourney", serviceJourney.ID).
			Str("operatingperiod", dayTypeAssignment.OperatingPeriodRef.Ref).
			Msg("OperatingPeriod assignments are not supported")
	}

	return "", nil
}

func (p *Processor) overrideDates(serviceJourney *ServiceJourney, stats *Stats) []datedOccurrence {
	dates := []datedOccurrence{}

	for _, datedServiceJourney := range p.DatedServiceJourneys[serviceJourney.ID] {
		date, err := p.operatingDayDate(serviceJourney, datedServiceJourney.OperatingDayRef.Ref)
		if err != nil {
			p.skipDate(serviceJourney, err, stats)
			continue
		}

		dates = append(dates, datedOccurrence{
			date:                  date,
			datedServiceJourneyID: datedServiceJourney.ID,
		})
	}

	return dates
}

func (p *Processor) operatingDayDate(serviceJourney *ServiceJourney, operatingDayRef string) (string, error) {
	operatingDay := p.OperatingDays[operatingDayRef]
	if operatingDay == nil {
		return "", &MissingReferenceError{Kind: "OperatingDay", Ref: operatingDayRef, ServiceJourney: serviceJourney.ID}
	}

	return parseDate(operatingDay.CalendarDate, serviceJourney.ID)
}

func (p *Processor) skipDate(serviceJourney *ServiceJourney, err error, stats *Stats) {
	log.Warn().
		Err(err).
		Str("file", p.FileName).
		Str("servicejourney", serviceJourney.ID).
		Msg("Skipping departure date")
	stats.SkippedDates++
}

func (p *Processor) resolveLineRef(serviceJourney *ServiceJourney) (string, error) {
	journeyPatternRef := serviceJourney.JourneyPattern()
	journeyPattern := p.JourneyPatterns[journeyPatternRef]
	if journeyPattern == nil {
		return "", &MissingReferenceError{Kind: "JourneyPattern", Ref: journeyPatternRef, ServiceJourney: serviceJourney.ID}
	}

	if journeyPattern.RouteRef == nil {
		return "", &MissingReferenceError{Kind: "RouteRef", Ref: journeyPattern.ID, ServiceJourney: serviceJourney.ID}
	}

	route := p.Routes[journeyPattern.RouteRef.Ref]
	if route == nil {
		return "", &MissingReferenceError{Kind: "Route", Ref: journeyPattern.RouteRef.Ref, ServiceJourney: serviceJourney.ID}
	}

	lineRef := route.Line()
	if lineRef == "" {
		return "", &MissingReferenceError{Kind: "LineRef", Ref: route.ID, ServiceJourney: serviceJourney.ID}
	}

	return lineRef, nil
}

func resolveDepartureTime(serviceJourney *ServiceJourney) (string, error) {
	if len(serviceJourney.PassingTimes) == 0 {
		return "", &MissingReferenceError{Kind: "TimetabledPassingTime", ServiceJourney: serviceJourney.ID}
	}

	departureTime := strings.TrimSpace(serviceJourney.PassingTimes[0].DepartureTime)
	if departureTime == "" {
		return "", &MissingReferenceError{Kind: "DepartureTime", ServiceJourney: serviceJourney.ID}
	}

	for _, layout := range []string{"15:04:05", "15:04"} {
		if parsed, err := time.Parse(layout, departureTime); err == nil {
			return parsed.Format(ctdf.DepartureTimeFormat), nil
		}
	}

	return "", &InvalidValueError{Field: "DepartureTime", Value: departureTime, ServiceJourney: serviceJourney.ID}
}

// parseDate accepts both plain dates and the date-time form some producers write
func parseDate(value string, serviceJourneyID string) (string, error) {
	value = strings.TrimSpace(value)
	if len(value) >= len(ctdf.DepartureDateFormat) {
		if date, err := time.Parse(ctdf.DepartureDateFormat, value[:len(ctdf.DepartureDateFormat)]); err == nil {
			return date.Format(ctdf.DepartureDateFormat), nil
		}
	}

	return "", &InvalidValueError{Field: "date", Value: value, ServiceJourney: serviceJourneyID}
}

func parseVersion(value string) (int, error) {
	if value == "" || value == "any" {
		return 0, nil
	}

	return strconv.Atoi(value)
}
