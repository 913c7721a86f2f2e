// Package village resolves the coarse flight phase of the whole journey and
// republishes it on every tick.
package village

import "time"

type FlyingState int

const (
	PreFlight FlyingState = iota
	Flying
	PostFlight
	Disabled
)

func (s FlyingState) String() string {
	switch s {
	case PreFlight:
		return "pre_flight"
	case Flying:
		return "flying"
	case PostFlight:
		return "post_flight"
	default:
		return "disabled"
	}
}

// Resolve maps the current time onto the journey bounds. A disabled tracker
// stays Disabled; so does a journey that has started while no route data is
// available.
func Resolve(now, takeoff, arrival time.Time, disabled, hasData bool) FlyingState {
	switch {
	case disabled:
		return Disabled
	case now.Before(takeoff):
		return PreFlight
	case !hasData:
		return Disabled
	case now.Before(arrival):
		return Flying
	default:
		return PostFlight
	}
}
