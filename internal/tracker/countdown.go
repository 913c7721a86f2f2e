package tracker

import (
	"fmt"
	"time"
)

type CountdownKind int

const (
	CountdownNone CountdownKind = iota
	CountdownArriving
	CountdownDeparting
)

func (k CountdownKind) String() string {
	switch k {
	case CountdownArriving:
		return "arriving"
	case CountdownDeparting:
		return "departing"
	default:
		return "none"
	}
}

type Countdown struct {
	Kind      CountdownKind
	Remaining time.Duration
	Text      string
	Blink     bool
}

func newCountdown(kind CountdownKind, remaining time.Duration) Countdown {
	remaining = max(remaining, 0)
	return Countdown{
		Kind:      kind,
		Remaining: remaining,
		Text:      FormatCountdown(remaining),
		Blink:     Blink(remaining),
	}
}

// FormatCountdown renders H:MM:SS from one hour up and MM:SS below.
// Negative durations render as zero.
func FormatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	h, m, s := secs/3600, secs%3600/60, secs%60
	if h >= 1 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// Blink toggles every five seconds of the remaining time.
func Blink(d time.Duration) bool {
	return (d.Milliseconds()/5000)%2 == 0
}
