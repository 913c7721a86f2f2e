// Package app wires the tracker daemon: the route store and its fetcher, the
// tracker and flight phase publishers driven by one shared ticker, periodic
// route and flag synchronization, and the NATS sync trigger.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/santatracker/internal/config"
	"github.com/dmitrijs2005/santatracker/internal/fetcher"
	"github.com/dmitrijs2005/santatracker/internal/logging"
	"github.com/dmitrijs2005/santatracker/internal/prefs"
	"github.com/dmitrijs2005/santatracker/internal/remoteconfig"
	"github.com/dmitrijs2005/santatracker/internal/repositories/repomanager"
	"github.com/dmitrijs2005/santatracker/internal/services"
	"github.com/dmitrijs2005/santatracker/internal/synctrigger"
	"github.com/dmitrijs2005/santatracker/internal/timex"
	"github.com/dmitrijs2005/santatracker/internal/tracker"
	"github.com/dmitrijs2005/santatracker/internal/village"
)

type App struct {
	config *config.Config
	logger logging.Logger
	clock  *timex.OffsetClock

	repos     repomanager.RepositoryManager
	itinerary *services.ItineraryService
	tracker   *tracker.Tracker
	village   *village.Village
	flags     remoteconfig.Provider
	gate      *remoteconfig.Gate
	trigger   *synctrigger.Subscriber

	closers []func() error

	// syncMu guards the route resync: fetch, table swap and tracker reload.
	syncMu   sync.Mutex
	language string
}

// NewApp opens the store, the preference store and the blob store described
// by cfg. Optional parts (remote flags, NATS trigger) are skipped when their
// URL is empty.
func NewApp(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	repos, err := repomanager.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	closers := []func() error{repos.Close}
	fail := func(err error) (*App, error) {
		closeAll(closers)
		return nil, err
	}

	store, closeStore, err := openPrefs(ctx, cfg)
	if err != nil {
		return fail(fmt.Errorf("prefs init error: %w", err))
	}
	if closeStore != nil {
		closers = append(closers, closeStore)
	}

	client, err := fetcher.NewS3Client(ctx, fetcher.S3Settings{
		User:         cfg.S3User,
		Password:     cfg.S3Password,
		Region:       cfg.S3Region,
		BaseEndpoint: cfg.S3BaseEndpoint,
	})
	if err != nil {
		return fail(fmt.Errorf("s3 init error: %w", err))
	}
	f := fetcher.New(fetcher.NewS3Store(client, cfg.S3Bucket), store, cfg.CacheDir, logger,
		fetcher.WithWorkers(cfg.Workers()))

	var flags remoteconfig.Provider
	if cfg.RemoteConfigURL != "" {
		flags = remoteconfig.NewHTTPProvider(cfg.RemoteConfigURL, cfg.RemoteConfigSecret)
	}

	var trigger *synctrigger.Subscriber
	if cfg.NatsURL != "" {
		nc, err := synctrigger.Connect(cfg.NatsURL)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() error { nc.Close(); return nil })
		trigger = synctrigger.NewSubscriber(nc, cfg.SyncSubject, cfg.SyncMinInterval, logger)
	}

	a := newApp(cfg, logger, repos, f, flags)
	a.trigger = trigger
	a.closers = closers
	return a, nil
}

func newApp(cfg *config.Config, logger logging.Logger, repos repomanager.RepositoryManager,
	f services.Fetcher, flags remoteconfig.Provider) *App {
	clock := timex.NewOffsetClock(nil, cfg.TimeOffset)

	a := &App{
		config:    cfg,
		logger:    logger,
		clock:     clock,
		repos:     repos,
		itinerary: services.NewItineraryService(repos, f, cfg.RoutePathTemplate, cfg.RouteMaxAge, clock, logger),
		tracker:   tracker.New(clock, logger),
		village:   village.New(clock, logger),
		flags:     flags,
		language:  cfg.Language,
	}

	if flags != nil {
		// Throttle deadlines come from the backend in wall-clock time, so the
		// gate must not see the route's time offset.
		wall := timex.NewOffsetClock(nil, 0)
		a.gate = remoteconfig.NewGate(flags, remoteconfig.DefaultKeys(), cfg.RemoteConfigCacheDuration, wall, logger)
		a.gate.OnChange(a.onFlagsChanged)
	}
	return a
}

func openPrefs(ctx context.Context, cfg *config.Config) (prefs.Store, func() error, error) {
	if cfg.RedisAddr != "" {
		s, err := prefs.NewRedisStore(ctx, cfg.RedisAddr, "santatracker:")
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
	s, err := prefs.OpenFileStore(cfg.PrefsPath)
	if err != nil {
		return nil, nil, err
	}
	return s, nil, nil
}

func (a *App) Tracker() *tracker.Tracker { return a.tracker }

func (a *App) Village() *village.Village { return a.village }

// SyncRoute brings the store and the tracker up to date. lang switches the
// tracked language when not empty; force fetches the route even when the
// stored language matches, replacing it if its fingerprint changed.
func (a *App) SyncRoute(ctx context.Context, lang string, force bool) error {
	a.syncMu.Lock()
	defer a.syncMu.Unlock()

	if lang != "" {
		a.language = lang
	}

	if force {
		if _, err := a.itinerary.Refresh(ctx, a.language); err != nil {
			a.logger.Warn(ctx, "route refresh failed", "error", err)
		}
	}
	ready := a.itinerary.EnsureReady(ctx, a.language)

	offset, err := a.itinerary.TimeOffset(ctx)
	if err != nil {
		a.logger.Warn(ctx, "stored time offset ignored", "error", err)
	}
	a.clock.SetOffset(a.config.TimeOffset + offset)

	dests, err := a.itinerary.LoadDestinations(ctx)
	if err != nil {
		return fmt.Errorf("failed to load destinations: %w", err)
	}
	stream, err := a.itinerary.LoadStreamEntries(ctx)
	if err != nil {
		return fmt.Errorf("failed to load stream: %w", err)
	}
	if !ready {
		dests, stream = nil, nil
	}
	a.tracker.Load(dests, stream)

	first, err := a.itinerary.FirstDestination(ctx)
	if err != nil {
		return fmt.Errorf("failed to load first destination: %w", err)
	}
	last, err := a.itinerary.LastDestination(ctx)
	if err != nil {
		return fmt.Errorf("failed to load last destination: %w", err)
	}

	var takeoff, arrival time.Time
	if first != nil && last != nil {
		takeoff, arrival = first.Arrival, last.Arrival
	}
	a.village.SetRoute(takeoff, arrival, ready)

	a.logger.Info(ctx, "route synced", "language", a.language, "ready", ready, "destinations", len(dests))
	return nil
}

// SyncConfig runs one remote flag sync and applies the result to the village.
func (a *App) SyncConfig(ctx context.Context) {
	if a.gate == nil {
		return
	}
	if _, err := a.gate.Sync(ctx); err != nil {
		a.logger.Warn(ctx, "config sync failed", "error", err)
	}
}

func (a *App) onFlagsChanged(ctx context.Context, changed []string) {
	a.village.ApplyFlags(a.flags)
	a.logger.Info(ctx, "flags applied", "changed", changed)
}

func (a *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run performs the initial sync and then runs the ticker, the periodic sync
// and the sync trigger until ctx ends or a signal arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer a.Close()

	a.logger.Info(ctx, "Starting app...")
	a.initSignalHandler(cancelFunc)

	if err := a.SyncRoute(ctx, "", false); err != nil {
		a.logger.Error(ctx, "initial route sync failed", "error", err)
	}
	a.SyncConfig(ctx)
	if a.flags != nil {
		a.village.ApplyFlags(a.flags)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.tickLoop(ctx) })
	g.Go(func() error { return a.syncLoop(ctx) })
	if a.trigger != nil {
		g.Go(func() error {
			if err := a.trigger.Start(ctx, a.onSyncRequest); err != nil {
				return err
			}
			<-ctx.Done()
			return nil
		})
	}

	err := g.Wait()
	a.logger.Info(context.Background(), "App stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *App) tickLoop(ctx context.Context) error {
	ticker := time.NewTicker(a.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			a.tracker.Tick()
			a.village.Tick()
		}
	}
}

func (a *App) syncLoop(ctx context.Context) error {
	ticker := time.NewTicker(a.config.SyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := a.SyncRoute(ctx, "", true); err != nil {
				a.logger.Warn(ctx, "periodic route sync failed", "error", err)
			}
			a.SyncConfig(ctx)
		}
	}
}

func (a *App) onSyncRequest(ctx context.Context, req synctrigger.Request) {
	if err := a.SyncRoute(ctx, req.Language, req.Force); err != nil {
		a.logger.Warn(ctx, "requested route sync failed", "id", req.ID, "error", err)
	}
}

// Close releases the store and connections. It is safe to call more than
// once.
func (a *App) Close() {
	closeAll(a.closers)
	a.closers = nil
}

func closeAll(closers []func() error) {
	for i := len(closers) - 1; i >= 0; i-- {
		_ = closers[i]()
	}
}
