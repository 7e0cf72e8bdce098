package netex

import (
	"encoding/xml"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/spkg/bom"
	"golang.org/x/net/html/charset"
)

// Variant is the frame layout a document was published with
type Variant string

const (
	// VariantCompositeFrame wraps every frame in dataObjects/CompositeFrame/frames
	VariantCompositeFrame Variant = "CompositeFrame"
	// VariantBareFrames places the frames directly under dataObjects
	VariantBareFrames Variant = "BareFrames"
)

type Document struct {
	Name    string
	Variant Variant

	PublicationTimestamp string
	TimeZone             string

	ServiceJourneys int
	Dropped         int
}

func (p *Processor) parseDocument(name string, reader io.Reader) (*Document, error) {
	document := &Document{
		Name:    name,
		Variant: VariantBareFrames,
	}

	pendingServiceJourneys := []*ServiceJourney{}
	elementStack := []string{}

	d := xml.NewDecoder(bom.NewReader(reader))
	d.CharsetReader = charset.NewReaderLabel
	for {
		tok, err := d.Token()
		if tok == nil || err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("decoding token in %s: %w", name, err)
		}

		switch ty := tok.(type) {
		case xml.StartElement:
			decoded, err := p.decodeElement(d, &ty, document, elementStack, &pendingServiceJourneys)
			if err != nil {
				return nil, fmt.Errorf("decoding %s in %s: %w", ty.Name.Local, name, err)
			}

			if !decoded {
				elementStack = append(elementStack, ty.Name.Local)
			}
		case xml.EndElement:
			if len(elementStack) > 0 {
				elementStack = elementStack[:len(elementStack)-1]
			}
		}
	}

	// Journey patterns may be declared after the timetable in the same document so the
	// passing time guard only runs once the whole document is read
	for _, serviceJourney := range pendingServiceJourneys {
		journeyPattern := p.JourneyPatterns[serviceJourney.JourneyPattern()]

		if journeyPattern == nil || len(journeyPattern.PointsInSequence.Points) != len(serviceJourney.PassingTimes) {
			document.Dropped++
			continue
		}

		p.ServiceJourneys = append(p.ServiceJourneys, serviceJourney)
		document.ServiceJourneys++
	}

	log.Debug().
		Str("file", p.FileName).
		Str("document", name).
		Str("variant", string(document.Variant)).
		Int("servicejourneys", document.ServiceJourneys).
		Int("dropped", document.Dropped).
		Msg("Parsed document")

	return document, nil
}

// decodeElement consumes the element if it is one the processor keeps, reporting whether it did so
func (p *Processor) decodeElement(d *xml.Decoder, start *xml.StartElement, document *Document, elementStack []string, pendingServiceJourneys *[]*ServiceJourney) (bool, error) {
	parent := ""
	if len(elementStack) > 0 {
		parent = elementStack[len(elementStack)-1]
	}

	switch start.Name.Local {
	case "CompositeFrame":
		document.Variant = VariantCompositeFrame
		return false, nil
	case "PublicationTimestamp":
		if parent != "PublicationDelivery" {
			return false, nil
		}

		return true, d.DecodeElement(&document.PublicationTimestamp, start)
	case "FrameDefaults":
		if parent != "CompositeFrame" {
			return false, nil
		}

		var frameDefaults FrameDefaults
		if err := d.DecodeElement(&frameDefaults, start); err != nil {
			return true, err
		}
		document.TimeZone = frameDefaults.TimeZone

		return true, nil
	case "Route":
		var route Route
		if err := d.DecodeElement(&route, start); err != nil {
			return true, err
		}
		p.Routes[route.ID] = &route

		return true, nil
	case "JourneyPattern", "ServiceJourneyPattern":
		var journeyPattern JourneyPattern
		if err := d.DecodeElement(&journeyPattern, start); err != nil {
			return true, err
		}
		p.JourneyPatterns[journeyPattern.ID] = &journeyPattern

		return true, nil
	case "DayType":
		var dayType DayType
		if err := d.DecodeElement(&dayType, start); err != nil {
			return true, err
		}
		p.DayTypes[dayType.ID] = &dayType

		return true, nil
	case "DayTypeAssignment":
		var dayTypeAssignment DayTypeAssignment
		if err := d.DecodeElement(&dayTypeAssignment, start); err != nil {
			return true, err
		}
		p.DayTypeAssignments[dayTypeAssignment.DayTypeRef.Ref] = append(p.DayTypeAssignments[dayTypeAssignment.DayTypeRef.Ref], &dayTypeAssignment)

		return true, nil
	case "OperatingDay":
		var operatingDay OperatingDay
		if err := d.DecodeElement(&operatingDay, start); err != nil {
			return true, err
		}
		p.OperatingDays[operatingDay.ID] = &operatingDay

		return true, nil
	case "ServiceJourney":
		var serviceJourney ServiceJourney
		if err := d.DecodeElement(&serviceJourney, start); err != nil {
			return true, err
		}
		*pendingServiceJourneys = append(*pendingServiceJourneys, &serviceJourney)

		return true, nil
	case "DatedServiceJourney":
		var datedServiceJourney DatedServiceJourney
		if err := d.DecodeElement(&datedServiceJourney, start); err != nil {
			return true, err
		}
		for _, serviceJourneyRef := range datedServiceJourney.ServiceJourneys() {
			p.DatedServiceJourneys[serviceJourneyRef] = append(p.DatedServiceJourneys[serviceJourneyRef], &datedServiceJourney)
		}

		return true, nil
	}

	return false, nil
}
