package referral

import (
	"testing"

	"github.com/gasfeel/gaspay/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankOrdersByEarningsDescending(t *testing.T) {
	set := &models.EventSet{Events: []models.ReferralEvent{
		event("2024-01-01T10:00:00Z", "REF_LOW"),
		event("2024-01-01T11:00:00Z", "REF_HIGH"),
		event("2024-01-01T12:00:00Z", "REF_HIGH"),
		event("2024-01-01T13:00:00Z", "REF_HIGH"),
		event("2024-01-01T14:00:00Z", "REF_MID"),
		event("2024-01-01T15:00:00Z", "REF_MID"),
	}}

	rows := testEngine().Rank(set)
	require.Len(t, rows, 3)
	assert.Equal(t, "REF_HIGH", rows[0].Code)
	assert.Equal(t, "REF_MID", rows[1].Code)
	assert.Equal(t, "REF_LOW", rows[2].Code)

	for i := 1; i < len(rows); i++ {
		assert.GreaterOrEqual(t, rows[i-1].TotalEarnings, rows[i].TotalEarnings)
	}
}

func TestRankTieBreakIsFoldedCodeAscending(t *testing.T) {
	set := &models.EventSet{Events: []models.ReferralEvent{
		event("2024-01-01T10:00:00Z", "zeta"),
		event("2024-01-01T11:00:00Z", "Alpha"),
		event("2024-01-01T12:00:00Z", "mike"),
	}}

	rows := testEngine().Rank(set)
	require.Len(t, rows, 3)
	assert.Equal(t, "Alpha", rows[0].Code)
	assert.Equal(t, "mike", rows[1].Code)
	assert.Equal(t, "zeta", rows[2].Code)
}

func TestRankSequentialOneBasedRanks(t *testing.T) {
	set := &models.EventSet{Events: []models.ReferralEvent{
		event("2024-01-01T10:00:00Z", "a"),
		event("2024-01-01T11:00:00Z", "b"),
		event("2024-01-01T12:00:00Z", "c"),
	}}

	rows := testEngine().Rank(set)
	for i, row := range rows {
		assert.Equal(t, i+1, row.Rank, "ranks are sequential even across ties")
	}
}

func TestRankGroupsCaseInsensitivelyKeepsFirstSeenCasing(t *testing.T) {
	set := &models.EventSet{Events: []models.ReferralEvent{
		event("2024-01-01T10:00:00Z", "Ref_Mubarak"),
		event("2024-01-01T11:00:00Z", "REF_MUBARAK"),
		event("2024-01-01T12:00:00Z", "ref_mubarak"),
	}}

	rows := testEngine().Rank(set)
	require.Len(t, rows, 1)
	assert.Equal(t, "Ref_Mubarak", rows[0].Code)
	assert.Equal(t, 3, rows[0].OrderCount)
	assert.EqualValues(t, 300, rows[0].TotalEarnings)
}

func TestRankConservesTotalCount(t *testing.T) {
	set := &models.EventSet{Events: []models.ReferralEvent{
		event("2024-01-01T10:00:00Z", "a"),
		event("2024-01-01T11:00:00Z", "b"),
		event("2024-01-01T12:00:00Z", "a"),
		event("2024-01-01T13:00:00Z", "c"),
		event("2024-01-01T14:00:00Z", "B"),
	}}

	rows := testEngine().Rank(set)
	total := 0
	for _, row := range rows {
		total += row.OrderCount
	}
	assert.Equal(t, len(set.Events), total, "every event lands in exactly one row")
}

func TestRankEmptySet(t *testing.T) {
	assert.Empty(t, testEngine().Rank(&models.EventSet{}))
	assert.Empty(t, testEngine().Rank(nil))
}

func TestRankDeterministic(t *testing.T) {
	set := &models.EventSet{Events: []models.ReferralEvent{
		event("2024-01-01T10:00:00Z", "c"),
		event("2024-01-01T11:00:00Z", "a"),
		event("2024-01-01T12:00:00Z", "b"),
	}}

	g := testEngine()
	first := g.Rank(set)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, g.Rank(set), "map iteration order must not leak into the output")
	}
}
