package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/TrashMob-eco/trashmob-api/internal/models"
)

// StatsRepository computes site-wide aggregates over reviewed submissions.
// Weight math mirrors models.ToPounds: adjusted values win for adjusted rows,
// kilogram-native weights are converted with the fixed constant.
type StatsRepository struct {
	db *sqlx.DB
}

// NewStatsRepository constructs the repository.
func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

const effectiveWeightSQL = `CASE
WHEN m.status = 'adjusted' AND m.adjusted_picked_weight IS NOT NULL THEN
  CASE WHEN COALESCE(m.adjusted_picked_weight_unit, m.picked_weight_unit) = 'kilograms'
       THEN m.adjusted_picked_weight * 2.20462 ELSE m.adjusted_picked_weight END
ELSE
  CASE WHEN m.picked_weight_unit = 'kilograms'
       THEN COALESCE(m.picked_weight, 0) * 2.20462 ELSE COALESCE(m.picked_weight, 0) END
END`

const effectiveBagsSQL = `CASE WHEN m.status = 'adjusted' AND m.adjusted_bags_collected IS NOT NULL
THEN m.adjusted_bags_collected ELSE COALESCE(m.bags_collected, 0) END`

const effectiveDurationSQL = `CASE WHEN m.status = 'adjusted' AND m.adjusted_duration_minutes IS NOT NULL
THEN m.adjusted_duration_minutes ELSE COALESCE(m.duration_minutes, 0) END`

// SiteTotals sums effective bags, weight and duration over counted submissions.
func (r *StatsRepository) SiteTotals(ctx context.Context) (bags int, weightPounds float64, durationMinutes int, err error) {
	query := fmt.Sprintf(`SELECT COALESCE(SUM(%s),0), COALESCE(SUM(%s),0), COALESCE(SUM(%s),0)
FROM event_attendee_metrics m
WHERE m.status IN ('approved', 'adjusted')`, effectiveBagsSQL, effectiveWeightSQL, effectiveDurationSQL)
	if err = r.db.QueryRowxContext(ctx, query).Scan(&bags, &weightPounds, &durationMinutes); err != nil {
		return 0, 0, 0, fmt.Errorf("site totals: %w", err)
	}
	return bags, weightPounds, durationMinutes, nil
}

// TopContributors ranks users by effective bags then weight over counted
// submissions for events on or after the cutoff.
func (r *StatsRepository) TopContributors(ctx context.Context, since time.Time, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 25
	}
	query := fmt.Sprintf(`SELECT m.user_id, u.user_name,
COUNT(DISTINCT m.event_id) AS events_attended,
COALESCE(SUM(%s),0) AS total_bags,
COALESCE(SUM(%s),0) AS total_weight_pounds
FROM event_attendee_metrics m
JOIN users u ON u.id = m.user_id
JOIN events e ON e.id = m.event_id
WHERE m.status IN ('approved', 'adjusted') AND e.event_date >= $1
GROUP BY m.user_id, u.user_name
ORDER BY total_bags DESC, total_weight_pounds DESC
LIMIT %d`, effectiveBagsSQL, effectiveWeightSQL, limit)
	var entries []models.LeaderboardEntry
	if err := r.db.SelectContext(ctx, &entries, query, since); err != nil {
		return nil, fmt.Errorf("top contributors: %w", err)
	}
	return entries, nil
}
