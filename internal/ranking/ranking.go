// Package ranking turns user aggregates into leaderboard rows.
package ranking

import (
	"math"
	"sort"
	"strings"

	"getlowlevel-service/internal/domain"
)

// DefaultLimit is the leaderboard size shown when callers don't ask for one.
const DefaultLimit = 20

// SuccessRate returns 100*correct/(correct+incorrect), or 0 with no attempts.
func SuccessRate(correct, incorrect int) float64 {
	total := correct + incorrect
	if total <= 0 {
		return 0
	}
	return float64(correct) / float64(total) * 100
}

// Score weights correct answers by the user's own success ratio.
func Score(correct, incorrect int) int {
	rate := SuccessRate(correct, incorrect)
	return int(math.Round(float64(correct) * (1 + rate/100)))
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Rank scores every aggregate and orders them: score desc, correct desc, uid asc.
// Ranks are distinct and consecutive even when scores tie.
func Rank(aggregates []domain.UserAggregate) []domain.LeaderboardRow {
	rows := make([]domain.LeaderboardRow, 0, len(aggregates))
	for _, agg := range aggregates {
		correct := agg.Stats.CorrectCount
		incorrect := agg.Stats.IncorrectCount
		row := domain.LeaderboardRow{
			UID:         agg.UID,
			Username:    Username(agg),
			Correct:     correct,
			Incorrect:   incorrect,
			SuccessRate: Round2(SuccessRate(correct, incorrect)),
			Score:       Score(correct, incorrect),
		}
		if agg.Settings.ShowAvatar {
			row.Avatar = agg.PhotoURL
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		if rows[i].Correct != rows[j].Correct {
			return rows[i].Correct > rows[j].Correct
		}
		return rows[i].UID < rows[j].UID
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows
}

// Compute ranks the aggregates and keeps the first limit rows.
func Compute(aggregates []domain.UserAggregate, limit int) []domain.LeaderboardRow {
	return Top(Rank(aggregates), limit)
}

// Top truncates already ranked rows. A non-positive limit means DefaultLimit.
func Top(rows []domain.LeaderboardRow, limit int) []domain.LeaderboardRow {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if len(rows) > limit {
		rows = rows[:limit]
	}
	out := make([]domain.LeaderboardRow, len(rows))
	copy(out, rows)
	return out
}

// Podium returns the top three in display order [2nd, 1st, 3rd].
// Rank values are kept and rows is left untouched.
func Podium(rows []domain.LeaderboardRow) []domain.LeaderboardRow {
	switch len(rows) {
	case 0:
		return []domain.LeaderboardRow{}
	case 1:
		return []domain.LeaderboardRow{rows[0]}
	case 2:
		return []domain.LeaderboardRow{rows[1], rows[0]}
	default:
		return []domain.LeaderboardRow{rows[1], rows[0], rows[2]}
	}
}

// Username picks the public name: display name, then email local part, then "Anonymous".
func Username(agg domain.UserAggregate) string {
	if name := strings.TrimSpace(agg.DisplayName); name != "" {
		return name
	}
	if local, _, _ := strings.Cut(agg.Email, "@"); local != "" {
		return local
	}
	return "Anonymous"
}
