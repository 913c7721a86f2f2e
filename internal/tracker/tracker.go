package tracker

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/santatracker/internal/logging"
	"github.com/dmitrijs2005/santatracker/internal/models"
	"github.com/dmitrijs2005/santatracker/internal/observable"
	"github.com/dmitrijs2005/santatracker/internal/timex"
)

type Tracker struct {
	mu     sync.Mutex
	clock  timex.Clock
	logger logging.Logger
	out    *observable.Value[State]

	dests  []models.Destination
	stream []models.StreamEntry

	destIdx   int
	streamIdx int
	active    bool
	traveling bool
	finished  bool
	counter   PresentCounter
	visited   int
	// feed is kept oldest first.
	feed []models.Card
}

func New(clock timex.Clock, logger logging.Logger) *Tracker {
	return &Tracker{
		clock:  clock,
		logger: logger.With("component", "tracker"),
		out:    observable.NewValue[State](),
	}
}

// Load replaces the route and places both cursors for the current time.
// dests must be ordered by departure and stream by timestamp; neither is
// modified afterwards.
func (t *Tracker) Load(dests []models.Destination, stream []models.StreamEntry) State {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.dests = dests
	t.stream = stream

	now := t.clock.Now()
	t.initialize(now)
	t.logger.Info(context.Background(), "route loaded",
		"destinations", len(dests),
		"stream", len(stream),
		"phase", t.phase().String())

	st := t.snapshot(now)
	t.out.Publish(st)
	return st
}

// Tick advances the tracker to the current time and publishes the result.
func (t *Tracker) Tick() State {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	if !t.active && !t.finished && len(t.dests) > 0 && !now.Before(t.dests[0].Departure) {
		t.initialize(now)
	}
	if t.active && !t.finished {
		t.updateSanta(now)
	}
	t.updateStream(now)

	st := t.snapshot(now)
	t.out.Publish(st)
	return st
}

// State returns the last published snapshot.
func (t *Tracker) State() State {
	st, _ := t.out.Latest()
	return st
}

func (t *Tracker) Subscribe() (<-chan State, func()) {
	return t.out.Subscribe()
}

func (t *Tracker) initialize(now time.Time) {
	n := len(t.dests)

	t.destIdx = FindIndex(t.dests, now) + 1
	t.streamIdx = FindIndex(t.stream, now) + 1
	t.visited = min(t.destIdx, n)
	t.active = false
	t.traveling = false
	t.finished = false
	t.feed = mergeFeed(t.dests[:t.visited], t.stream[:t.streamIdx])

	switch {
	case n == 0 || t.destIdx < 1:
		t.counter = PresentCounter{}
		if n > 0 {
			t.counter = fixedCounter(t.dests[0].PresentsDelivered)
		}
	case t.destIdx >= n:
		t.destIdx = n - 1
		t.finished = true
		t.counter = fixedCounter(t.dests[n-1].PresentsDelivered)
	default:
		prev, cur := t.dests[t.destIdx-1], t.dests[t.destIdx]
		t.active = true
		t.traveling = !now.Before(prev.Departure) && now.Before(cur.Arrival)
		if t.traveling {
			t.counter = travelCounter(prev, cur)
		} else {
			t.counter = visitCounter(prev, cur)
			if t.destIdx == n-1 {
				t.finish(cur)
			}
		}
	}
}

func (t *Tracker) updateSanta(now time.Time) {
	cur := t.dests[t.destIdx]

	switch {
	case t.shouldVisit(now, cur):
		t.traveling = false
		if t.destIdx == len(t.dests)-1 {
			t.finish(cur)
			return
		}
		t.counter = visitCounter(t.dests[t.destIdx-1], cur)
		t.logger.Info(context.Background(), "arrived", "destination", cur.ID)

	case t.shouldDepart(now, cur):
		t.visited = t.destIdx + 1
		t.feed = insertCard(t.feed, cur)
		if t.destIdx+1 >= len(t.dests) {
			t.finish(cur)
			return
		}
		t.destIdx++
		t.traveling = true
		t.counter = travelCounter(cur, t.dests[t.destIdx])
		t.logger.Info(context.Background(), "departed",
			"destination", cur.ID,
			"next", t.dests[t.destIdx].ID)
	}
}

func (t *Tracker) shouldVisit(now time.Time, cur models.Destination) bool {
	return t.traveling && !now.Before(cur.Arrival)
}

func (t *Tracker) shouldDepart(now time.Time, cur models.Destination) bool {
	return !t.traveling && !now.Before(cur.Departure)
}

func (t *Tracker) finish(last models.Destination) {
	t.finished = true
	t.traveling = false
	t.counter = fixedCounter(last.PresentsDelivered)
	t.logger.Info(context.Background(), "finished", "destination", last.ID)
}

func (t *Tracker) updateStream(now time.Time) {
	for t.streamIdx < len(t.stream) && !t.stream[t.streamIdx].Timestamp.After(now) {
		t.feed = append(t.feed, t.stream[t.streamIdx])
		t.streamIdx++
	}
}

func (t *Tracker) phase() Phase {
	switch {
	case t.finished:
		return Finished
	case !t.active:
		return NotStarted
	case t.traveling:
		return Traveling
	default:
		return Visiting
	}
}

func (t *Tracker) snapshot(now time.Time) State {
	st := State{
		Phase:             t.phase(),
		Traveling:         t.traveling,
		Finished:          t.finished,
		PresentsDelivered: t.counter.At(now),
		Visited:           t.dests[:t.visited:t.visited],
		Feed:              make([]models.Card, len(t.feed)),
	}
	for i, c := range t.feed {
		st.Feed[len(t.feed)-1-i] = c
	}

	if !t.active && !t.finished {
		return st
	}

	cur := t.dests[t.destIdx]
	st.Current = &cur
	st.Location = Location{Kind: LocationCurrent, Name: cur.PrintName()}

	switch {
	case t.finished:
	case t.traveling:
		st.Location.Kind = LocationNext
		st.Countdown = newCountdown(CountdownArriving, cur.Arrival.Sub(now))
	default:
		st.Countdown = newCountdown(CountdownDeparting, cur.Departure.Sub(now))
	}
	return st
}

// insertCard places c after every card that is not later than it. A late
// tick can have replayed stream entries stamped after a departure before the
// departure itself is recorded.
func insertCard(feed []models.Card, c models.Card) []models.Card {
	i := sort.Search(len(feed), func(i int) bool { return feed[i].CardTime().After(c.CardTime()) })
	return slices.Insert(feed, i, c)
}

// mergeFeed merges departed destinations and past stream entries into one
// list ordered oldest first.
func mergeFeed(dests []models.Destination, stream []models.StreamEntry) []models.Card {
	feed := make([]models.Card, 0, len(dests)+len(stream))
	i, j := 0, 0
	for i < len(dests) && j < len(stream) {
		if stream[j].CardTime().Before(dests[i].CardTime()) {
			feed = append(feed, stream[j])
			j++
		} else {
			feed = append(feed, dests[i])
			i++
		}
	}
	for ; i < len(dests); i++ {
		feed = append(feed, dests[i])
	}
	for ; j < len(stream); j++ {
		feed = append(feed, stream[j])
	}
	return feed
}
