package service

import (
	"context"
	"encoding/json"
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TrashMob-eco/trashmob-api/internal/models"
	appErrors "github.com/TrashMob-eco/trashmob-api/pkg/errors"
)

type memoryCacheRepo struct {
	entries map[string][]byte
	deletes []string
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{entries: make(map[string][]byte)}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	payload, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = payload
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	m.deletes = append(m.deletes, pattern)
	for key := range m.entries {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.entries, key)
		}
	}
	return nil
}

type mockSiteStatsReader struct {
	bags     int
	weight   float64
	duration int
	entries  []models.LeaderboardEntry
	calls    int
}

func (m *mockSiteStatsReader) SiteTotals(ctx context.Context) (int, float64, int, error) {
	m.calls++
	return m.bags, m.weight, m.duration, nil
}

func (m *mockSiteStatsReader) TopContributors(ctx context.Context, since time.Time, limit int) ([]models.LeaderboardEntry, error) {
	m.calls++
	if limit < len(m.entries) {
		return m.entries[:limit], nil
	}
	return m.entries, nil
}

type staticCounter int

func (c staticCounter) CountCompleted(ctx context.Context) (int, error)         { return int(c), nil }
func (c staticCounter) CountDistinctAttendees(ctx context.Context) (int, error) { return int(c), nil }

func newLeaderboardFixture(reader *mockSiteStatsReader) (*LeaderboardService, *memoryCacheRepo) {
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, nil, time.Minute, nil, true)
	svc := NewLeaderboardService(reader, staticCounter(12), staticCounter(40), cache, time.Minute, 25, nil)
	return svc, repo
}

func TestSiteStatsCacheAside(t *testing.T) {
	reader := &mockSiteStatsReader{bags: 42, weight: 181.5, duration: 960}
	svc, repo := newLeaderboardFixture(reader)
	ctx := context.Background()

	stats, err := svc.SiteStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 42, stats.TotalBagsCollected)
	assert.Equal(t, 12, stats.TotalEvents)
	assert.Equal(t, 40, stats.TotalAttendees)
	assert.Contains(t, repo.entries, "stats:site")

	// Second read is served from cache without touching the store.
	before := reader.calls
	again, err := svc.SiteStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, stats.TotalBagsCollected, again.TotalBagsCollected)
	assert.Equal(t, before, reader.calls)
}

func TestSiteStatsWorksWithoutCache(t *testing.T) {
	reader := &mockSiteStatsReader{bags: 7}
	svc := NewLeaderboardService(reader, staticCounter(1), staticCounter(2), nil, time.Minute, 25, nil)

	stats, err := svc.SiteStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, stats.TotalBagsCollected)
}

func TestTopContributorsDefaultsAndCap(t *testing.T) {
	reader := &mockSiteStatsReader{entries: []models.LeaderboardEntry{
		{UserID: "usr-1", TotalBags: 12},
		{UserID: "usr-2", TotalBags: 9},
	}}
	svc, repo := newLeaderboardFixture(reader)

	entries, err := svc.TopContributors(context.Background(), 0, 500)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Contains(t, repo.entries, "stats:leaderboard:365:25")
}

func TestTopContributorsEmptyWindow(t *testing.T) {
	svc, _ := newLeaderboardFixture(&mockSiteStatsReader{})

	entries, err := svc.TopContributors(context.Background(), 30, 10)
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestInvalidateStatsDropsCachedViews(t *testing.T) {
	reader := &mockSiteStatsReader{bags: 1}
	svc, repo := newLeaderboardFixture(reader)
	ctx := context.Background()

	_, err := svc.SiteStats(ctx)
	require.NoError(t, err)
	_, err = svc.TopContributors(ctx, 30, 10)
	require.NoError(t, err)
	require.NotEmpty(t, repo.entries)

	svc.InvalidateStats(ctx)
	assert.Equal(t, []string{"stats:*"}, repo.deletes)
	assert.Empty(t, repo.entries)
}
