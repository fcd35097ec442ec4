package models

import (
	"strings"
	"time"
)

// ReferralEvent is a single qualifying order attributed to a referral code.
// Code keeps the casing the feed supplied; all grouping and matching goes
// through Fold.
type ReferralEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Code      string    `json:"code"`
}

// Fold returns the canonical form of the code used for comparison and
// grouping. Identity is case-insensitive, display is case-preserving.
func (e ReferralEvent) Fold() string {
	return FoldCode(e.Code)
}

// FoldCode normalizes a referral code for case-insensitive comparison.
func FoldCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// EventSet is one immutable snapshot of the feed after sanitization. It is
// replaced wholesale on every successful refresh and never mutated in
// place, so readers can hold a pointer without locking.
type EventSet struct {
	Events    []ReferralEvent `json:"events"`
	Skipped   int             `json:"skipped"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// Len returns the number of valid events in the set.
func (s *EventSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Events)
}

// ReferrerStats aggregates earnings for a single referral code.
type ReferrerStats struct {
	Code             string `json:"code"`
	TotalCount       int    `json:"total_count"`
	TotalEarnings    int64  `json:"total_earnings"`
	EarningsToday    int64  `json:"earnings_today"`
	EarningsThisWeek int64  `json:"earnings_this_week"`
}

// LeaderboardRow is one entry in the ranked ambassador table.
type LeaderboardRow struct {
	Rank          int    `json:"rank"`
	Code          string `json:"code"`
	OrderCount    int    `json:"order_count"`
	TotalEarnings int64  `json:"total_earnings"`
}

// ProgramSummary aggregates metrics across the whole program.
type ProgramSummary struct {
	TotalCount        int   `json:"total_count"`
	TotalPayout       int64 `json:"total_payout"`
	DistinctReferrers int   `json:"distinct_referrers"`
	WindowGrowth      int   `json:"window_growth"`
	WindowDays        int   `json:"window_days"`
}

// Health reports refresh state to the presentation layer. LastRefresh is
// nil until the first successful ingest; ServingStale is set while the
// snapshot on hand is older than a failed refresh attempt.
type Health struct {
	LastRefresh  *time.Time `json:"last_successful_refresh,omitempty"`
	ServingStale bool       `json:"serving_stale"`
}
