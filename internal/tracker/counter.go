package tracker

import (
	"time"

	"github.com/dmitrijs2005/santatracker/internal/models"
)

// TravelShare is the part of a destination's presents handed out while
// flying towards it; the rest is delivered during the visit.
const TravelShare = 0.3

// PresentCounter linearly interpolates the delivered presents between two
// points in time.
type PresentCounter struct {
	StartCount int64
	EndCount   int64
	StartTime  time.Time
	EndTime    time.Time
}

// At returns the interpolated count, clamped to the window.
func (c PresentCounter) At(now time.Time) int64 {
	if !now.After(c.StartTime) {
		return c.StartCount
	}
	if !now.Before(c.EndTime) {
		return c.EndCount
	}
	span := c.EndTime.Sub(c.StartTime)
	elapsed := now.Sub(c.StartTime)
	return c.StartCount + int64(float64(c.EndCount-c.StartCount)*float64(elapsed)/float64(span))
}

func fixedCounter(count int64) PresentCounter {
	return PresentCounter{StartCount: count, EndCount: count}
}

// handedOutInFlight is the count reached on arrival at cur.
func handedOutInFlight(prev, cur models.Destination) int64 {
	return prev.PresentsDelivered + int64(float64(cur.PresentsDelivered-prev.PresentsDelivered)*TravelShare)
}

func travelCounter(prev, cur models.Destination) PresentCounter {
	return PresentCounter{
		StartCount: prev.PresentsDelivered,
		EndCount:   handedOutInFlight(prev, cur),
		StartTime:  prev.Departure,
		EndTime:    cur.Arrival,
	}
}

func visitCounter(prev, cur models.Destination) PresentCounter {
	return PresentCounter{
		StartCount: handedOutInFlight(prev, cur),
		EndCount:   cur.PresentsDelivered,
		StartTime:  cur.Arrival,
		EndTime:    cur.Departure,
	}
}
