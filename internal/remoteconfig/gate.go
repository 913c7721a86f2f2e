package remoteconfig

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/santatracker/internal/logging"
	"github.com/dmitrijs2005/santatracker/internal/timex"
)

// Keys lists the flags a Gate compares across an activation. Each scene in
// Scenes is read as the pair <scene>WebEnabled / <scene>WebURL and reported
// under the scene name.
type Keys struct {
	Ints    []string
	Strings []string
	Bools   []string
	Scenes  []string
}

// ChangeFunc receives the keys whose values changed. It is never called with
// an empty list.
type ChangeFunc func(ctx context.Context, changed []string)

type Gate struct {
	provider    Provider
	clock       timex.Clock
	logger      logging.Logger
	keys        Keys
	minInterval time.Duration

	throttledUntil atomic.Int64

	mu        sync.Mutex
	listeners []ChangeFunc
}

func NewGate(provider Provider, keys Keys, minInterval time.Duration, clock timex.Clock, logger logging.Logger) *Gate {
	return &Gate{
		provider:    provider,
		clock:       clock,
		logger:      logger.With("component", "remoteconfig"),
		keys:        keys,
		minInterval: minInterval,
	}
}

func (g *Gate) OnChange(fn ChangeFunc) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listeners = append(g.listeners, fn)
}

// ThrottledUntil reports the end of the current throttle window, or the zero
// time when not throttled.
func (g *Gate) ThrottledUntil() time.Time {
	ms := g.throttledUntil.Load()
	if ms == 0 {
		return time.Time{}
	}
	return timex.FromMillis(ms)
}

// Sync fetches and activates the remote flags and returns the keys whose
// values changed. While throttled it returns without contacting the backend.
// A throttle signal from the backend is recorded and is not an error; any
// other failure leaves the active flags as they were.
func (g *Gate) Sync(ctx context.Context) ([]string, error) {
	now := g.clock.Now()
	if until := g.throttledUntil.Load(); until != 0 && now.UnixMilli() < until {
		g.logger.Debug(ctx, "config sync suppressed", "until", g.ThrottledUntil())
		return nil, nil
	}

	if err := g.provider.Fetch(ctx, g.minInterval); err != nil {
		var te *ThrottledError
		if errors.As(err, &te) {
			g.throttledUntil.Store(te.Until.UnixMilli())
			g.logger.Warn(ctx, "config fetch throttled", "until", te.Until)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch config: %w", err)
	}

	before := g.snapshot()
	if err := g.provider.Activate(ctx); err != nil {
		return nil, fmt.Errorf("failed to activate config: %w", err)
	}
	after := g.snapshot()

	changed := diff(before, after)
	if len(changed) == 0 {
		return nil, nil
	}

	g.logger.Info(ctx, "config changed", "keys", changed)
	g.mu.Lock()
	listeners := append([]ChangeFunc(nil), g.listeners...)
	g.mu.Unlock()
	for _, fn := range listeners {
		fn(ctx, changed)
	}
	return changed, nil
}

type entry struct {
	key   string
	value string
}

func (g *Gate) snapshot() []entry {
	p := g.provider
	out := make([]entry, 0, len(g.keys.Ints)+len(g.keys.Strings)+len(g.keys.Bools)+len(g.keys.Scenes))
	for _, k := range g.keys.Ints {
		out = append(out, entry{k, strconv.FormatInt(p.Int(k), 10)})
	}
	for _, k := range g.keys.Strings {
		out = append(out, entry{k, p.String(k)})
	}
	for _, k := range g.keys.Bools {
		out = append(out, entry{k, strconv.FormatBool(p.Bool(k))})
	}
	for _, scene := range g.keys.Scenes {
		out = append(out, entry{scene, Scene(p, scene).String()})
	}
	return out
}

// diff expects both snapshots to come from the same Keys.
func diff(before, after []entry) []string {
	var changed []string
	for i := range after {
		if before[i].value != after[i].value {
			changed = append(changed, after[i].key)
		}
	}
	return changed
}

// WebScene is the derived setting of a scene served from the web.
type WebScene struct {
	Enabled bool
	URL     string
}

func (s WebScene) String() string {
	return strconv.FormatBool(s.Enabled) + "|" + s.URL
}

// Scene reads the web scene pair for name from p.
func Scene(p Provider, name string) WebScene {
	return WebScene{Enabled: p.Bool(name + "WebEnabled"), URL: p.String(name + "WebURL")}
}
