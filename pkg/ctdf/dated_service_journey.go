package ctdf

import (
	"encoding/json"
	"fmt"
	"time"
)

const DepartureDateFormat = "2006-01-02"
const DepartureTimeFormat = "15:04"

// DatedServiceJourney is the durable identity of one service journey on one departure date.
// Records are never modified once created.
type DatedServiceJourney struct {
	ServiceJourneyID string `groups:"basic" json:"serviceJourneyId" bson:"servicejourneyid"`
	DepartureDate    string `groups:"basic" json:"departureDate" bson:"departuredate"`
	DepartureTime    string `groups:"basic" json:"departureTime" bson:"departuretime"`
	PrivateCode      string `groups:"basic" json:"privateCode" bson:"privatecode"`
	LineRef          string `groups:"basic" json:"lineRef" bson:"lineref"`
	Version          int    `groups:"basic" json:"version" bson:"version"`

	DatedServiceJourneyID         string `groups:"basic" json:"datedServiceJourneyId" bson:"datedservicejourneyid"`
	OriginalDatedServiceJourneyID string `groups:"basic" json:"originalDatedServiceJourneyId" bson:"originaldatedservicejourneyid"`

	PublicationTimestamp time.Time `groups:"basic" json:"publicationTimestamp" bson:"publicationtimestamp"`
	SourceFileName       string    `groups:"basic" json:"sourceFileName" bson:"sourcefilename"`

	CreationNumber int64     `groups:"internal" json:"creationNumber" bson:"creationnumber"`
	CreatedDate    time.Time `groups:"internal" json:"createdDate" bson:"createddate"`
}

func (d *DatedServiceJourney) MarshalBinary() ([]byte, error) {
	return json.Marshal(d)
}

func (d *DatedServiceJourney) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, d)
}

// Codespace is the leading three characters of the service journey id, eg. NSB
func (d *DatedServiceJourney) Codespace() string {
	return Codespace(d.ServiceJourneyID)
}

// CacheKeys returns every key the record can be looked up by
func (d *DatedServiceJourney) CacheKeys() []string {
	return []string{
		DatedServiceJourneyKey(d.DatedServiceJourneyID),
		ServiceJourneyDateKey(d.ServiceJourneyID, d.DepartureDate),
		PrivateCodeDateKey(d.PrivateCode, d.DepartureDate),
	}
}

func (d *DatedServiceJourney) String() string {
	return fmt.Sprintf("DatedServiceJourney[%s original=%s servicejourney=%s date=%s privatecode=%s]",
		d.DatedServiceJourneyID, d.OriginalDatedServiceJourneyID, d.ServiceJourneyID, d.DepartureDate, d.PrivateCode)
}

func DatedServiceJourneyKey(datedServiceJourneyID string) string {
	return fmt.Sprintf("dsj:id:%s", datedServiceJourneyID)
}

func ServiceJourneyDateKey(serviceJourneyID string, departureDate string) string {
	return fmt.Sprintf("dsj:servicejourney:%s:%s", serviceJourneyID, departureDate)
}

func PrivateCodeDateKey(privateCode string, departureDate string) string {
	return fmt.Sprintf("dsj:privatecode:%s:%s", privateCode, departureDate)
}

func Codespace(serviceJourneyID string) string {
	if len(serviceJourneyID) < 3 {
		return serviceJourneyID
	}

	return serviceJourneyID[:3]
}
