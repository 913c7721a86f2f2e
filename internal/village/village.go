package village

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/santatracker/internal/logging"
	"github.com/dmitrijs2005/santatracker/internal/observable"
	"github.com/dmitrijs2005/santatracker/internal/timex"
)

// Remote flag keys read by ApplyFlags. Bounds are unix milliseconds; zero
// leaves the route-derived bound in place.
const (
	FlagTakeoff = "SantaTakeoff"
	FlagArrival = "SantaArrival"
	FlagDisable = "DisableSantaTracker"
)

// Flags is the read side of the remote flag store.
type Flags interface {
	Int(key string) int64
	Bool(key string) bool
}

type Status struct {
	Phase        FlyingState
	Takeoff      time.Time
	Arrival      time.Time
	UntilTakeoff time.Duration
}

type Village struct {
	mu     sync.Mutex
	clock  timex.Clock
	logger logging.Logger
	out    *observable.Value[Status]

	routeTakeoff time.Time
	routeArrival time.Time
	hasData      bool

	takeoffOverride time.Time
	arrivalOverride time.Time
	disabled        bool

	last    FlyingState
	started bool
}

func New(clock timex.Clock, logger logging.Logger) *Village {
	return &Village{
		clock:  clock,
		logger: logger.With("component", "village"),
		out:    observable.NewValue[Status](),
	}
}

// SetRoute records the bounds taken from the stored route: the arrival of the
// first and of the last destination.
func (v *Village) SetRoute(takeoff, arrival time.Time, hasData bool) Status {
	v.mu.Lock()
	v.routeTakeoff, v.routeArrival, v.hasData = takeoff, arrival, hasData
	v.mu.Unlock()
	return v.Tick()
}

// ApplyFlags reads the bound overrides and the kill switch.
func (v *Village) ApplyFlags(f Flags) Status {
	v.mu.Lock()
	v.takeoffOverride = fromFlag(f.Int(FlagTakeoff))
	v.arrivalOverride = fromFlag(f.Int(FlagArrival))
	v.disabled = f.Bool(FlagDisable)
	v.mu.Unlock()
	return v.Tick()
}

// Tick recomputes the phase for the current time and publishes it.
func (v *Village) Tick() Status {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.clock.Now()
	takeoff, arrival := v.bounds()
	st := Status{
		Phase:        Resolve(now, takeoff, arrival, v.disabled, v.hasData),
		Takeoff:      takeoff,
		Arrival:      arrival,
		UntilTakeoff: max(takeoff.Sub(now), 0),
	}

	if !v.started || st.Phase != v.last {
		v.logger.Info(context.Background(), "flight phase", "phase", st.Phase.String())
		v.last, v.started = st.Phase, true
	}

	v.out.Publish(st)
	return st
}

func (v *Village) State() Status {
	st, _ := v.out.Latest()
	return st
}

func (v *Village) Subscribe() (<-chan Status, func()) {
	return v.out.Subscribe()
}

func (v *Village) bounds() (time.Time, time.Time) {
	takeoff, arrival := v.routeTakeoff, v.routeArrival
	if !v.takeoffOverride.IsZero() {
		takeoff = v.takeoffOverride
	}
	if !v.arrivalOverride.IsZero() {
		arrival = v.arrivalOverride
	}
	return takeoff, arrival
}

func fromFlag(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return timex.FromMillis(ms)
}
