package tracker

import "github.com/dmitrijs2005/santatracker/internal/models"

type Phase int

const (
	NotStarted Phase = iota
	Traveling
	Visiting
	Finished
)

func (p Phase) String() string {
	switch p {
	case Traveling:
		return "traveling"
	case Visiting:
		return "visiting"
	case Finished:
		return "finished"
	default:
		return "not_started"
	}
}

type LocationKind int

const (
	// LocationCurrent labels the destination Santa is at.
	LocationCurrent LocationKind = iota
	// LocationNext labels the destination Santa is flying to.
	LocationNext
)

type Location struct {
	Kind LocationKind
	Name string
}

// State is one published snapshot of the tracker. Visited shares memory with
// the loaded route and must not be modified.
type State struct {
	Phase             Phase
	Traveling         bool
	Finished          bool
	Current           *models.Destination
	Location          Location
	Countdown         Countdown
	PresentsDelivered int64
	Visited           []models.Destination
	// Feed holds departed destinations and past stream entries, newest first.
	Feed []models.Card
}
