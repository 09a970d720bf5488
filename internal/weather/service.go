package weather

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Service runs the weather pipeline: it queries every configured provider
// concurrently and merges the successful snapshots in provider order.
type Service struct {
	store     Store
	providers []Provider
	logger    *zap.Logger
}

// NewService creates a new Service. Providers are listed by priority; the
// first successful one is the merge primary.
func NewService(store Store, providers []Provider, logger *zap.Logger) *Service {
	return &Service{
		store:     store,
		providers: providers,
		logger:    logger.Named("weather-service"),
	}
}

// Providers returns the configured source labels in priority order.
func (s *Service) Providers() []string {
	names := make([]string, 0, len(s.providers))
	for _, p := range s.providers {
		names = append(names, p.Name())
	}
	return names
}

// GetWeather fetches and merges a snapshot for coords. The returned label names
// the contributing sources. A lone successful source is returned as-is.
func (s *Service) GetWeather(ctx context.Context, coords Coordinates, units Units) (Snapshot, string, error) {
	if len(s.providers) == 0 {
		s.logger.Error("no weather providers configured")
		return Snapshot{}, "", ErrAllSourcesExhausted
	}

	type outcome struct {
		snapshot Snapshot
		err      error
	}

	results := make([]outcome, len(s.providers))
	var wg sync.WaitGroup
	for i, p := range s.providers {
		wg.Add(1)
		go func(i int, p Provider) {
			defer wg.Done()
			snap, err := p.Fetch(ctx, coords, units)
			results[i] = outcome{snapshot: snap, err: err}
		}(i, p)
	}
	wg.Wait()

	var (
		merged  Snapshot
		sources []string
	)
	for i, r := range results {
		name := s.providers[i].Name()
		if r.err != nil {
			// Log and continue; we want partial success when possible.
			s.logger.Warn("provider fetch failed",
				zap.String("provider", name),
				zap.String("coords", coords.Key()),
				zap.Error(r.err))
			continue
		}
		if len(sources) == 0 {
			merged = r.snapshot
		} else {
			snap := r.snapshot
			merged = Merge(merged, &snap)
		}
		sources = append(sources, name)
	}

	if len(sources) == 0 {
		return Snapshot{}, "", ErrAllSourcesExhausted
	}

	label := strings.Join(sources, " + ")
	s.logger.Debug("weather resolved",
		zap.String("coords", coords.Key()),
		zap.String("source", label),
		zap.Int("hourly", len(merged.Hourly)),
		zap.Int("daily", len(merged.Daily)))
	return merged, label, nil
}

// Update pairs the previously stored snapshot with the fresh one.
type Update struct {
	Key      string    `json:"key"`
	Source   string    `json:"source"`
	Previous *Snapshot `json:"previous,omitempty"`
	Current  Snapshot  `json:"current"`
	Changes  []Change  `json:"changes,omitempty"`
}

// Refresh fetches coords, stores the snapshot and reports what changed since
// the previously stored one.
func (s *Service) Refresh(ctx context.Context, coords Coordinates, units Units) (Update, error) {
	snap, source, err := s.GetWeather(ctx, coords, units)
	if err != nil {
		return Update{}, err
	}

	if snap.Current.Timestamp.IsZero() {
		snap.Current.Timestamp = time.Now().UTC()
	}

	key := storeKey(coords, units)
	update := Update{Key: key, Source: source, Current: snap}
	prev, err := s.store.GetLatest(key)
	switch {
	case err == nil:
		update.Previous = &prev
	case errors.Is(err, ErrNoSnapshot):
	default:
		s.logger.Warn("failed to read previous snapshot", zap.String("key", key), zap.Error(err))
	}

	s.store.SaveSnapshot(key, snap)
	update.Changes = DetectChanges(update.Previous, snap)
	return update, nil
}

// History returns stored snapshots for coords between from and to.
func (s *Service) History(coords Coordinates, units Units, from, to time.Time) ([]Snapshot, error) {
	return s.store.GetRange(storeKey(coords, units), from, to)
}

func storeKey(coords Coordinates, units Units) string {
	return coords.Key() + ":" + string(units)
}
