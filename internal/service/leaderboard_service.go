package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/TrashMob-eco/trashmob-api/internal/models"
	appErrors "github.com/TrashMob-eco/trashmob-api/pkg/errors"
)

const (
	siteStatsCacheKey       = "stats:site"
	leaderboardCachePrefix  = "stats:leaderboard:"
	statsCachePattern       = "stats:*"
	defaultLeaderboardDays  = 365
	defaultLeaderboardLimit = 25
)

type siteStatsReader interface {
	SiteTotals(ctx context.Context) (bags int, weightPounds float64, durationMinutes int, err error)
	TopContributors(ctx context.Context, since time.Time, limit int) ([]models.LeaderboardEntry, error)
}

type completedEventCounter interface {
	CountCompleted(ctx context.Context) (int, error)
}

type attendeeCounter interface {
	CountDistinctAttendees(ctx context.Context) (int, error)
}

// LeaderboardService serves the public site-wide stats and the contributor
// leaderboard, cached in Redis and invalidated on review transitions.
type LeaderboardService struct {
	stats     siteStatsReader
	events    completedEventCounter
	attendees attendeeCounter
	cache     *CacheService
	cacheTTL  time.Duration
	topLimit  int
	logger    *zap.Logger
}

// NewLeaderboardService constructs the service. Cache may be nil.
func NewLeaderboardService(stats siteStatsReader, events completedEventCounter, attendees attendeeCounter, cache *CacheService, cacheTTL time.Duration, topLimit int, logger *zap.Logger) *LeaderboardService {
	if topLimit <= 0 {
		topLimit = defaultLeaderboardLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaderboardService{
		stats:     stats,
		events:    events,
		attendees: attendees,
		cache:     cache,
		cacheTTL:  cacheTTL,
		topLimit:  topLimit,
		logger:    logger,
	}
}

// SiteStats returns the site-wide impact rollup.
func (s *LeaderboardService) SiteStats(ctx context.Context) (*models.SiteStats, error) {
	var cached models.SiteStats
	if hit, err := s.cache.Get(ctx, siteStatsCacheKey, &cached); err == nil && hit {
		return &cached, nil
	}

	bags, weightPounds, durationMinutes, err := s.stats.SiteTotals(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute site totals")
	}
	totalEvents, err := s.events.CountCompleted(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count events")
	}
	totalAttendees, err := s.attendees.CountDistinctAttendees(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count attendees")
	}

	stats := &models.SiteStats{
		TotalEvents:          totalEvents,
		TotalAttendees:       totalAttendees,
		TotalBagsCollected:   bags,
		TotalWeightPounds:    weightPounds,
		TotalDurationMinutes: durationMinutes,
		GeneratedAt:          time.Now().UTC(),
	}
	if err := s.cache.Set(ctx, siteStatsCacheKey, stats, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache site stats", zap.Error(err))
	}
	return stats, nil
}

// TopContributors ranks users over the trailing window. days <= 0 defaults to a
// year; limit is capped at the configured maximum.
func (s *LeaderboardService) TopContributors(ctx context.Context, days, limit int) ([]models.LeaderboardEntry, error) {
	if days <= 0 {
		days = defaultLeaderboardDays
	}
	if limit <= 0 || limit > s.topLimit {
		limit = s.topLimit
	}

	key := leaderboardCacheKey(days, limit)
	var cached []models.LeaderboardEntry
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}

	since := time.Now().UTC().AddDate(0, 0, -days)
	entries, err := s.stats.TopContributors(ctx, since, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute leaderboard")
	}
	if entries == nil {
		entries = []models.LeaderboardEntry{}
	}
	if err := s.cache.Set(ctx, key, entries, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache leaderboard", zap.Error(err))
	}
	return entries, nil
}

// InvalidateStats drops every cached stats view. Called after a review
// transition changes the counted submissions.
func (s *LeaderboardService) InvalidateStats(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, statsCachePattern); err != nil {
		s.logger.Warn("failed to invalidate stats cache", zap.Error(err))
	}
}

func leaderboardCacheKey(days, limit int) string {
	return fmt.Sprintf("%s%d:%d", leaderboardCachePrefix, days, limit)
}
