// Package models defines the route data shared by the parser, the local
// store and the tracker.
package models

import "time"

// Card is implemented by everything that can appear in the tracker feed.
// CardTime is the single orderable value used to search and merge both
// destinations and stream entries.
type Card interface {
	CardTime() time.Time
}

// Location is a WGS84 coordinate.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Weather struct {
	URL   string  `json:"url,omitempty"`
	TempC float64 `json:"tempC"`
	TempF float64 `json:"tempF"`
}

type StreetView struct {
	ID       string   `json:"id"`
	Location Location `json:"location"`
	Heading  float64  `json:"heading"`
}

type Photo struct {
	URL             string `json:"url"`
	AttributionHTML string `json:"attributionHtml,omitempty"`
}

// Destination is one stop on the route. Destinations are ordered by
// Departure; Arrival <= Departure is expected but not enforced.
type Destination struct {
	ID                string
	Arrival           time.Time
	Departure         time.Time
	Population        int64
	PresentsDelivered int64
	City              string
	Region            string
	Location          Location
	// TimezoneOffset is the local offset from UTC.
	TimezoneOffset time.Duration
	Altitude       float64

	Weather       *Weather
	StreetView    *StreetView
	GmmStreetView *StreetView
	Photo         *Photo
}

func (d Destination) CardTime() time.Time { return d.Departure }

// PrintName is the label shown for a destination: "City, Region" or just the
// city when the region is unknown.
func (d Destination) PrintName() string {
	if d.Region == "" {
		return d.City
	}
	return d.City + ", " + d.Region
}

type StreamKind string

const (
	StreamStatus     StreamKind = "status"
	StreamDidYouKnow StreamKind = "didyouknow"
	StreamImageURL   StreamKind = "imageUrl"
	StreamYouTubeID  StreamKind = "youtubeId"
)

// StreamEntry is a timestamped feed item. Timestamp is unique within the
// store.
type StreamEntry struct {
	Timestamp      time.Time
	Kind           StreamKind
	IsNotification bool
	Content        string
}

func (s StreamEntry) CardTime() time.Time { return s.Timestamp }

// Metadata keys persisted next to the route.
const (
	MetaStatus      = "status"
	MetaLanguage    = "language"
	MetaFingerprint = "fingerprint"
	MetaTimeOffset  = "time_offset"
	MetaSyncedAt    = "synced_at"
)

// Itinerary is a fully decoded route document.
type Itinerary struct {
	Status       string
	Language     string
	TimeOffset   time.Duration
	Fingerprint  string
	Destinations []Destination
	Stream       []StreamEntry
}

// Metadata returns the key/value pairs stored alongside the route tables.
func (it *Itinerary) Metadata() map[string]string {
	return map[string]string{
		MetaStatus:      it.Status,
		MetaLanguage:    it.Language,
		MetaFingerprint: it.Fingerprint,
		MetaTimeOffset:  it.TimeOffset.String(),
	}
}
