package models

import "time"

// SiteStats is the site-wide impact rollup shown on the public landing page.
type SiteStats struct {
	TotalEvents          int       `json:"total_events"`
	TotalAttendees       int       `json:"total_attendees"`
	TotalBagsCollected   int       `json:"total_bags_collected"`
	TotalWeightPounds    float64   `json:"total_weight_pounds"`
	TotalDurationMinutes int       `json:"total_duration_minutes"`
	GeneratedAt          time.Time `json:"generated_at"`
}

// LeaderboardEntry is one ranked contributor on the public leaderboard.
type LeaderboardEntry struct {
	UserID            string  `db:"user_id" json:"user_id"`
	UserName          string  `db:"user_name" json:"user_name"`
	EventsAttended    int     `db:"events_attended" json:"events_attended"`
	TotalBags         int     `db:"total_bags" json:"total_bags"`
	TotalWeightPounds float64 `db:"total_weight_pounds" json:"total_weight_pounds"`
}
