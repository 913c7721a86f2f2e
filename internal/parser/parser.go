// Package parser decodes route documents into models.Itinerary.
package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/santatracker/internal/models"
	"github.com/dmitrijs2005/santatracker/internal/timex"
)

var ErrMalformedDocument = errors.New("malformed route document")

type document struct {
	Status             string        `json:"status"`
	Language           string        `json:"language"`
	TimeOffset         int64         `json:"timeOffset"`
	Fingerprint        string        `json:"fingerprint"`
	Destinations       []destination `json:"destinations"`
	Stream             []streamItem  `json:"stream"`
	NotificationStream []streamItem  `json:"notificationStream"`
}

type destination struct {
	ID                string          `json:"id"`
	Arrival           int64           `json:"arrival"`
	Departure         int64           `json:"departure"`
	Population        int64           `json:"population"`
	PresentsDelivered int64           `json:"presentsDelivered"`
	City              string          `json:"city"`
	Region            string          `json:"region"`
	Location          models.Location `json:"location"`
	Details           details         `json:"details"`
}

type details struct {
	Timezone      int64           `json:"timezone"`
	Altitude      float64         `json:"altitude"`
	Weather       *models.Weather `json:"weather"`
	StreetView    *streetView     `json:"streetView"`
	GmmStreetView *streetView     `json:"gmmStreetView"`
	Photos        []photo         `json:"photos"`
}

type streetView struct {
	ID        string  `json:"id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Heading   float64 `json:"heading"`
}

// photo accepts both spellings of the attribution field found in the feed.
type photo struct {
	URL             string `json:"url"`
	AttributionHTML string `json:"attributionHTML"`
	AttributionHtml string `json:"attributionHtml"`
}

type streamItem struct {
	Timestamp  int64   `json:"timestamp"`
	Status     *string `json:"status"`
	DidYouKnow *string `json:"didyouknow"`
	ImageURL   *string `json:"imageUrl"`
	YouTubeID  *string `json:"youtubeId"`
}

// Parse decodes a route document. The regular stream and the notification
// stream are concatenated in that order; ordering by time and collapsing of
// equal timestamps are left to the consumer. Stream items that carry none of
// the known content fields are dropped.
func Parse(data []byte) (*models.Itinerary, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	it := &models.Itinerary{
		Status:       doc.Status,
		Language:     doc.Language,
		TimeOffset:   time.Duration(doc.TimeOffset) * time.Millisecond,
		Fingerprint:  doc.Fingerprint,
		Destinations: make([]models.Destination, 0, len(doc.Destinations)),
		Stream:       make([]models.StreamEntry, 0, len(doc.Stream)+len(doc.NotificationStream)),
	}

	for i, d := range doc.Destinations {
		if d.ID == "" {
			return nil, fmt.Errorf("%w: destination %d has no id", ErrMalformedDocument, i)
		}
		it.Destinations = append(it.Destinations, d.toModel())
	}

	it.Stream = appendStream(it.Stream, doc.Stream, false)
	it.Stream = appendStream(it.Stream, doc.NotificationStream, true)

	return it, nil
}

func (d destination) toModel() models.Destination {
	m := models.Destination{
		ID:                d.ID,
		Arrival:           timex.FromMillis(d.Arrival),
		Departure:         timex.FromMillis(d.Departure),
		Population:        d.Population,
		PresentsDelivered: d.PresentsDelivered,
		City:              d.City,
		Region:            d.Region,
		Location:          d.Location,
		TimezoneOffset:    time.Duration(d.Details.Timezone) * time.Second,
		Altitude:          d.Details.Altitude,
		Weather:           d.Details.Weather,
		StreetView:        d.Details.StreetView.toModel(),
		GmmStreetView:     d.Details.GmmStreetView.toModel(),
	}
	if len(d.Details.Photos) > 0 {
		p := d.Details.Photos[0]
		attribution := p.AttributionHTML
		if attribution == "" {
			attribution = p.AttributionHtml
		}
		m.Photo = &models.Photo{URL: p.URL, AttributionHTML: attribution}
	}
	return m
}

func (s *streetView) toModel() *models.StreetView {
	if s == nil {
		return nil
	}
	return &models.StreetView{
		ID:       s.ID,
		Location: models.Location{Lat: s.Latitude, Lng: s.Longitude},
		Heading:  s.Heading,
	}
}

func appendStream(dst []models.StreamEntry, items []streamItem, notification bool) []models.StreamEntry {
	for _, item := range items {
		kind, content, ok := item.content()
		if !ok {
			continue
		}
		dst = append(dst, models.StreamEntry{
			Timestamp:      timex.FromMillis(item.Timestamp),
			Kind:           kind,
			IsNotification: notification,
			Content:        content,
		})
	}
	return dst
}

// content returns the first non-null content field.
func (s streamItem) content() (models.StreamKind, string, bool) {
	switch {
	case s.Status != nil:
		return models.StreamStatus, *s.Status, true
	case s.DidYouKnow != nil:
		return models.StreamDidYouKnow, *s.DidYouKnow, true
	case s.ImageURL != nil:
		return models.StreamImageURL, *s.ImageURL, true
	case s.YouTubeID != nil:
		return models.StreamYouTubeID, *s.YouTubeID, true
	default:
		return "", "", false
	}
}
