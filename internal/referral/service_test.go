package referral

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gasfeel/gaspay/internal/cache"
	"github.com/gasfeel/gaspay/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func serviceOver(t *testing.T, fetch cache.FetchFunc) *Service {
	t.Helper()
	c := cache.New(fetch, 10*time.Second, zap.NewNop())
	svc := NewService(c, testEngine(), 7, nil, zap.NewNop())
	return svc.WithClock(func() time.Time {
		return time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)
	})
}

func TestServiceLookupFound(t *testing.T) {
	svc := serviceOver(t, func(ctx context.Context) (*models.EventSet, error) {
		return sampleSet(), nil
	})

	stats, err := svc.Lookup(context.Background(), "ref1")
	require.NoError(t, err)
	require.NotNil(t, stats)
	assert.Equal(t, 2, stats.TotalCount)
	assert.EqualValues(t, 200, stats.TotalEarnings)
}

func TestServiceLookupNotFoundIsNilNil(t *testing.T) {
	svc := serviceOver(t, func(ctx context.Context) (*models.EventSet, error) {
		return sampleSet(), nil
	})

	stats, err := svc.Lookup(context.Background(), "UNKNOWN")
	require.NoError(t, err, "no matching events is a normal outcome")
	assert.Nil(t, stats)
}

func TestServiceLookupIngestFailureIsAnError(t *testing.T) {
	svc := serviceOver(t, func(ctx context.Context) (*models.EventSet, error) {
		return nil, errors.New("feed unreachable")
	})

	_, err := svc.Lookup(context.Background(), "REF1")
	require.Error(t, err, "a dead feed must be distinguishable from a missing code")
	assert.ErrorIs(t, err, cache.ErrNoData)
}

func TestServiceLeaderboardAndSummary(t *testing.T) {
	svc := serviceOver(t, func(ctx context.Context) (*models.EventSet, error) {
		return sampleSet(), nil
	})

	rows, err := svc.Leaderboard(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].Rank)

	sum, err := svc.Summary(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 7, sum.WindowDays, "zero selects the configured default window")
	assert.Equal(t, 2, sum.DistinctReferrers)
}

func TestServiceHealthBeforeFirstIngest(t *testing.T) {
	svc := serviceOver(t, func(ctx context.Context) (*models.EventSet, error) {
		return nil, errors.New("feed unreachable")
	})

	h := svc.Health(context.Background())
	assert.Nil(t, h.LastRefresh)
	assert.False(t, h.ServingStale)
}
