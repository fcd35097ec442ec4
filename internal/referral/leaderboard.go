package referral

import (
	"sort"

	"github.com/gasfeel/gaspay/internal/models"
)

// Rank groups events by normalized code and produces the full
// leaderboard, materialized eagerly. Ordering is total and deterministic:
// earnings descending, then normalized code ascending as the tie-break.
// Ranks are sequential and 1-based; tied earnings do not share a rank.
// Display casing is whatever the code's first event in feed order used.
func (g *Engine) Rank(set *models.EventSet) []models.LeaderboardRow {
	if set == nil || len(set.Events) == 0 {
		return []models.LeaderboardRow{}
	}

	type group struct {
		display string
		count   int
	}
	groups := make(map[string]*group)
	order := make([]string, 0)
	for _, e := range set.Events {
		key := e.Fold()
		gr, ok := groups[key]
		if !ok {
			gr = &group{display: e.Code}
			groups[key] = gr
			order = append(order, key)
		}
		gr.count++
	}

	rows := make([]models.LeaderboardRow, 0, len(groups))
	for _, key := range order {
		gr := groups[key]
		rows = append(rows, models.LeaderboardRow{
			Code:          gr.display,
			OrderCount:    gr.count,
			TotalEarnings: int64(gr.count) * g.Payout,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].TotalEarnings != rows[j].TotalEarnings {
			return rows[i].TotalEarnings > rows[j].TotalEarnings
		}
		return models.FoldCode(rows[i].Code) < models.FoldCode(rows[j].Code)
	})

	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows
}
