package referral

import (
	"context"
	"time"

	"github.com/gasfeel/gaspay/internal/cache"
	"github.com/gasfeel/gaspay/internal/metrics"
	"github.com/gasfeel/gaspay/internal/models"
	"go.uber.org/zap"
)

// Service is the query surface handed to the presentation layer. It is
// the only layer that reads the real clock; everything below takes the
// reference instant as a parameter.
type Service struct {
	cache   *cache.Cache
	engine  *Engine
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time

	defaultWindowDays int
}

// NewService wires the engine to the refresh cache.
func NewService(c *cache.Cache, engine *Engine, defaultWindowDays int, m *metrics.Metrics, logger *zap.Logger) *Service {
	return &Service{
		cache:             c,
		engine:            engine,
		metrics:           m,
		logger:            logger,
		now:               time.Now,
		defaultWindowDays: defaultWindowDays,
	}
}

// WithClock overrides the wall clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Lookup returns stats for one referral code, or (nil, nil) when no
// events match it. "Code not found" is a normal outcome, distinct from a
// failed ingestion, which surfaces as an error.
func (s *Service) Lookup(ctx context.Context, code string) (*models.ReferrerStats, error) {
	set, err := s.cache.Get(ctx)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordLookup("unavailable")
		}
		return nil, err
	}

	stats := s.engine.StatsForCode(set, code, s.now())
	if stats.TotalCount == 0 {
		if s.metrics != nil {
			s.metrics.RecordLookup("not_found")
		}
		return nil, nil
	}
	if s.metrics != nil {
		s.metrics.RecordLookup("found")
	}
	return &stats, nil
}

// Leaderboard returns the full ranked table.
func (s *Service) Leaderboard(ctx context.Context) ([]models.LeaderboardRow, error) {
	set, err := s.cache.Get(ctx)
	if err != nil {
		return nil, err
	}
	return s.engine.Rank(set), nil
}

// Summary returns program-wide metrics. windowDays <= 0 selects the
// configured default growth window.
func (s *Service) Summary(ctx context.Context, windowDays int) (*models.ProgramSummary, error) {
	set, err := s.cache.Get(ctx)
	if err != nil {
		return nil, err
	}
	if windowDays <= 0 {
		windowDays = s.defaultWindowDays
	}
	sum := s.engine.Summary(set, s.now(), windowDays)
	return &sum, nil
}

// Health reports refresh state, refreshing the staleness gauge as a
// side effect.
func (s *Service) Health(ctx context.Context) models.Health {
	h := s.cache.Health()
	if s.metrics != nil {
		s.metrics.SetServingStale(h.ServingStale)
	}
	return h
}
