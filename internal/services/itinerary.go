// Package services holds the data repository that owns the route store: it
// decides when the local copy must be replaced, fetches and parses the
// remote document and swaps all three tables in one transaction.
package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/santatracker/internal/dbx"
	"github.com/dmitrijs2005/santatracker/internal/logging"
	"github.com/dmitrijs2005/santatracker/internal/models"
	"github.com/dmitrijs2005/santatracker/internal/parser"
	"github.com/dmitrijs2005/santatracker/internal/repositories/repomanager"
	"github.com/dmitrijs2005/santatracker/internal/timex"
)

// ErrNoData is returned when the route document could not be obtained or
// decoded. The store is left untouched.
var ErrNoData = errors.New("route data unavailable")

// MinDestinations is the smallest route the tracker can animate.
const MinDestinations = 2

// Fetcher returns the content at path, or false when neither the remote nor
// the cache could provide it.
type Fetcher interface {
	Fetch(ctx context.Context, path string, maxAge time.Duration) ([]byte, bool)
}

type ItineraryService struct {
	repos        repomanager.RepositoryManager
	fetcher      Fetcher
	pathTemplate string
	maxAge       time.Duration
	clock        timex.Clock
	logger       logging.Logger
}

func NewItineraryService(repos repomanager.RepositoryManager, fetcher Fetcher, pathTemplate string,
	maxAge time.Duration, clock timex.Clock, logger logging.Logger) *ItineraryService {
	return &ItineraryService{
		repos:        repos,
		fetcher:      fetcher,
		pathTemplate: pathTemplate,
		maxAge:       maxAge,
		clock:        clock,
		logger:       logger.With("component", "itinerary"),
	}
}

// RoutePath expands the remote path template for a language.
func (s *ItineraryService) RoutePath(lang string) string {
	return fmt.Sprintf(s.pathTemplate, lang)
}

// EnsureReady reloads the store when it holds no route or a route in another
// language, then reports whether enough destinations are stored to track.
// A failed reload is logged and whatever is stored is judged as is.
func (s *ItineraryService) EnsureReady(ctx context.Context, lang string) bool {
	stored, ok, err := s.repos.Metadata(s.repos.DB()).Get(ctx, models.MetaLanguage)
	if err != nil {
		s.logger.Warn(ctx, "failed to read stored language", "error", err)
	}

	if !ok || stored != lang {
		if err := s.ReloadAll(ctx, lang); err != nil {
			s.logger.Warn(ctx, "route reload failed", "language", lang, "error", err)
		}
	}

	n, err := s.repos.Destinations(s.repos.DB()).Count(ctx)
	if err != nil {
		s.logger.Warn(ctx, "failed to count destinations", "error", err)
		return false
	}
	return n >= MinDestinations
}

// ReloadAll fetches the route for lang and replaces every table.
func (s *ItineraryService) ReloadAll(ctx context.Context, lang string) error {
	it, err := s.fetch(ctx, lang)
	if err != nil {
		return err
	}
	return s.replace(ctx, it)
}

// Refresh fetches the route and replaces the store only when the document's
// fingerprint or language differs from what is stored.
func (s *ItineraryService) Refresh(ctx context.Context, lang string) (bool, error) {
	it, err := s.fetch(ctx, lang)
	if err != nil {
		return false, err
	}

	meta, err := s.repos.Metadata(s.repos.DB()).List(ctx)
	if err != nil {
		return false, err
	}
	if it.Fingerprint != "" &&
		meta[models.MetaFingerprint] == it.Fingerprint &&
		meta[models.MetaLanguage] == it.Language {
		s.logger.Debug(ctx, "route unchanged", "fingerprint", it.Fingerprint)
		return false, nil
	}

	if err := s.replace(ctx, it); err != nil {
		return false, err
	}
	return true, nil
}

func (s *ItineraryService) fetch(ctx context.Context, lang string) (*models.Itinerary, error) {
	path := s.RoutePath(lang)
	data, ok := s.fetcher.Fetch(ctx, path, s.maxAge)
	if !ok {
		return nil, fmt.Errorf("failed to fetch route[%s]: %w", path, ErrNoData)
	}

	it, err := parser.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse route[%s]: %w: %w", path, ErrNoData, err)
	}
	if it.Language == "" {
		it.Language = lang
	}
	return it, nil
}

func (s *ItineraryService) replace(ctx context.Context, it *models.Itinerary) error {
	meta := it.Metadata()
	meta[models.MetaSyncedAt] = strconv.FormatInt(s.clock.Now().UnixMilli(), 10)

	err := dbx.WithTx(ctx, s.repos.DB(), nil, func(ctx context.Context, tx dbx.DBTX) error {
		dests := s.repos.Destinations(tx)
		if err := dests.DeleteAll(ctx); err != nil {
			return err
		}
		if err := dests.InsertAll(ctx, it.Destinations); err != nil {
			return err
		}

		stream := s.repos.StreamEntries(tx)
		if err := stream.DeleteAll(ctx); err != nil {
			return err
		}
		if err := stream.InsertAll(ctx, it.Stream); err != nil {
			return err
		}

		md := s.repos.Metadata(tx)
		if err := md.Clear(ctx); err != nil {
			return err
		}
		for k, v := range meta {
			if err := md.Set(ctx, k, v); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to replace route: %w", err)
	}

	s.logger.Info(ctx, "route replaced",
		"language", it.Language,
		"fingerprint", it.Fingerprint,
		"destinations", len(it.Destinations),
		"stream", len(it.Stream))
	return nil
}

func (s *ItineraryService) LoadDestinations(ctx context.Context) ([]models.Destination, error) {
	return s.repos.Destinations(s.repos.DB()).All(ctx)
}

func (s *ItineraryService) LoadStreamEntries(ctx context.Context) ([]models.StreamEntry, error) {
	return s.repos.StreamEntries(s.repos.DB()).All(ctx)
}

// FirstDestination returns the destination with the earliest arrival, or nil
// when the store is empty.
func (s *ItineraryService) FirstDestination(ctx context.Context) (*models.Destination, error) {
	return s.repos.Destinations(s.repos.DB()).First(ctx)
}

// LastDestination returns the destination with the latest arrival, or nil
// when the store is empty.
func (s *ItineraryService) LastDestination(ctx context.Context) (*models.Destination, error) {
	return s.repos.Destinations(s.repos.DB()).Last(ctx)
}

func (s *ItineraryService) Metadata(ctx context.Context, key string) (string, bool, error) {
	return s.repos.Metadata(s.repos.DB()).Get(ctx, key)
}

// TimeOffset returns the clock offset published with the stored route.
func (s *ItineraryService) TimeOffset(ctx context.Context) (time.Duration, error) {
	v, ok, err := s.Metadata(ctx, models.MetaTimeOffset)
	if err != nil || !ok || v == "" {
		return 0, err
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("failed to parse time offset[%s]: %w", v, err)
	}
	return d, nil
}
