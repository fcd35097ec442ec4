package referral

import (
	"time"

	"github.com/gasfeel/gaspay/internal/models"
)

// Engine derives referrer and program metrics from an EventSet snapshot.
// Its methods are pure: identical (events, now) inputs always produce
// identical outputs. The reference instant is injected so the wall clock
// is read in exactly one place, at the request boundary.
//
// "Today" means the same UTC calendar date as the reference instant, not
// a rolling 24h window. "This week" is a rolling window with an
// inclusive lower bound.
type Engine struct {
	// Payout is credited per qualifying event, in whole currency units.
	Payout int64
	// WeekWindowDays sizes the rolling "this week" window.
	WeekWindowDays int
}

// NewEngine constructs an Engine with the program's payout constants.
func NewEngine(payout int64, weekWindowDays int) *Engine {
	return &Engine{Payout: payout, WeekWindowDays: weekWindowDays}
}

// StatsForCode aggregates earnings for one referral code. Matching is
// case-insensitive; the returned Code echoes the caller's query. A code
// with zero matching events yields all-zero fields, not an error.
func (g *Engine) StatsForCode(set *models.EventSet, code string, now time.Time) models.ReferrerStats {
	stats := models.ReferrerStats{Code: code}
	if set == nil {
		return stats
	}

	folded := models.FoldCode(code)
	if folded == "" {
		return stats
	}

	today := now.UTC().Truncate(24 * time.Hour)
	weekStart := now.Add(-time.Duration(g.WeekWindowDays) * 24 * time.Hour)

	var todayCount, weekCount int
	for _, e := range set.Events {
		if e.Fold() != folded {
			continue
		}
		stats.TotalCount++
		if e.Timestamp.UTC().Truncate(24 * time.Hour).Equal(today) {
			todayCount++
		}
		if !e.Timestamp.Before(weekStart) {
			weekCount++
		}
	}

	stats.TotalEarnings = int64(stats.TotalCount) * g.Payout
	stats.EarningsToday = int64(todayCount) * g.Payout
	stats.EarningsThisWeek = int64(weekCount) * g.Payout
	return stats
}

// Summary aggregates program-wide metrics: total orders, total payout,
// distinct referrers, and events inside the trailing growth window.
func (g *Engine) Summary(set *models.EventSet, now time.Time, windowDays int) models.ProgramSummary {
	s := models.ProgramSummary{WindowDays: windowDays}
	if set == nil {
		return s
	}

	windowStart := now.Add(-time.Duration(windowDays) * 24 * time.Hour)
	codes := make(map[string]struct{})
	for _, e := range set.Events {
		codes[e.Fold()] = struct{}{}
		if !e.Timestamp.Before(windowStart) {
			s.WindowGrowth++
		}
	}

	s.TotalCount = len(set.Events)
	s.TotalPayout = int64(s.TotalCount) * g.Payout
	s.DistinctReferrers = len(codes)
	return s
}
