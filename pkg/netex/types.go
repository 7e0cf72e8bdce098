package netex

import (
	"encoding/xml"
)

type Ref struct {
	Ref     string `xml:"ref,attr"`
	Version string `xml:"version,attr"`
}

type FrameDefaults struct {
	TimeZone string `xml:"DefaultLocale>TimeZone"`
}

type Route struct {
	ID      string `xml:"id,attr"`
	Version string `xml:"version,attr"`

	LineRef         *Ref `xml:"LineRef"`
	FlexibleLineRef *Ref `xml:"FlexibleLineRef"`
}

// Line returns the referenced line, which may be either a fixed or flexible line
func (r *Route) Line() string {
	if r.LineRef != nil && r.LineRef.Ref != "" {
		return r.LineRef.Ref
	}
	if r.FlexibleLineRef != nil {
		return r.FlexibleLineRef.Ref
	}

	return ""
}

type PointInSequence struct {
	XMLName xml.Name
	ID      string `xml:"id,attr"`
}

// PointsInSequence accepts any of the StopPointInJourneyPattern, TimingPointInJourneyPattern or
// PointInJourneyPattern elements
type PointsInSequence struct {
	Points []PointInSequence `xml:",any"`
}

// JourneyPattern covers both JourneyPattern and ServiceJourneyPattern elements
type JourneyPattern struct {
	ID       string `xml:"id,attr"`
	Version  string `xml:"version,attr"`
	RouteRef *Ref   `xml:"RouteRef"`

	PointsInSequence PointsInSequence `xml:"pointsInSequence"`
}

type DayType struct {
	ID      string `xml:"id,attr"`
	Version string `xml:"version,attr"`
}

type DayTypeAssignment struct {
	ID    string `xml:"id,attr"`
	Order string `xml:"order,attr"`

	DayTypeRef         Ref    `xml:"DayTypeRef"`
	Date               string `xml:"Date"`
	OperatingDayRef    *Ref   `xml:"OperatingDayRef"`
	OperatingPeriodRef *Ref   `xml:"OperatingPeriodRef"`
	IsAvailable        *bool  `xml:"isAvailable"`
}

func (d *DayTypeAssignment) Available() bool {
	return d.IsAvailable == nil || *d.IsAvailable
}

type OperatingDay struct {
	ID           string `xml:"id,attr"`
	CalendarDate string `xml:"CalendarDate"`
}

type TimetabledPassingTime struct {
	ArrivalTime   string `xml:"ArrivalTime"`
	DepartureTime string `xml:"DepartureTime"`
}

// ServiceJourney is the timetabled template that gets expanded into one occurrence per operating date
type ServiceJourney struct {
	ID      string `xml:"id,attr"`
	Version string `xml:"version,attr"`

	PrivateCode string `xml:"PrivateCode"`

	DayTypes []Ref `xml:"dayTypes>DayTypeRef"`

	JourneyPatternRef        *Ref `xml:"JourneyPatternRef"`
	ServiceJourneyPatternRef *Ref `xml:"ServiceJourneyPatternRef"`

	PassingTimes []TimetabledPassingTime `xml:"passingTimes>TimetabledPassingTime"`
}

func (s *ServiceJourney) JourneyPattern() string {
	if s.JourneyPatternRef != nil && s.JourneyPatternRef.Ref != "" {
		return s.JourneyPatternRef.Ref
	}
	if s.ServiceJourneyPatternRef != nil {
		return s.ServiceJourneyPatternRef.Ref
	}

	return ""
}

// DatedServiceJourney binds one or more ServiceJourneys to a single OperatingDay under its own identifier
type DatedServiceJourney struct {
	ID      string `xml:"id,attr"`
	Version string `xml:"version,attr"`

	ServiceJourneyRefs []Ref `xml:"ServiceJourneyRef"`
	JourneyRefs        []Ref `xml:"journeyRef>ServiceJourneyRef"`
	OperatingDayRef    Ref   `xml:"OperatingDayRef"`

	ServiceAlteration string `xml:"ServiceAlteration"`
}

func (d *DatedServiceJourney) ServiceJourneys() []string {
	refs := []string{}
	for _, ref := range d.ServiceJourneyRefs {
		refs = append(refs, ref.Ref)
	}
	for _, ref := range d.JourneyRefs {
		refs = append(refs, ref.Ref)
	}

	return refs
}
