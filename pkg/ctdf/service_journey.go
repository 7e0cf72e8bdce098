package ctdf

// ServiceJourney is a single dated occurrence of a timetabled journey as read from a schedule publication.
// DatedServiceJourneyID is only set when the publication provides an explicit identifier.
type ServiceJourney struct {
	ServiceJourneyID string
	Version          int
	PrivateCode      string
	LineRef          string
	DepartureDate    string
	DepartureTime    string

	DatedServiceJourneyID string
}

func (s *ServiceJourney) HasProvidedIdentifier() bool {
	return s.DatedServiceJourneyID != ""
}
