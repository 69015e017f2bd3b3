package history

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glowcart/storefront-search/internal/domain"
)

func setupStore(t *testing.T, maxTerms int) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	s := NewStore(client, maxTerms)
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return s, mr
}

func TestStore_RecordAndRecent(t *testing.T) {
	ctx := context.Background()
	s, _ := setupStore(t, 0)

	require.NoError(t, s.Record(ctx, "Serum", 12))
	require.NoError(t, s.Record(ctx, "vitamin c serum", 3))
	require.NoError(t, s.Record(ctx, "lipstick", 40))

	got, err := s.Recent(ctx, "ser", 10)
	require.NoError(t, err)
	assert.Equal(t, []domain.HistoryTerm{
		{Term: "vitamin c serum", ResultCount: 3},
		{Term: "serum", ResultCount: 12},
	}, got)
}

func TestStore_RecordUpdatesCountAndRecency(t *testing.T) {
	ctx := context.Background()
	s, _ := setupStore(t, 0)

	require.NoError(t, s.Record(ctx, "serum", 12))
	require.NoError(t, s.Record(ctx, "toner", 5))
	require.NoError(t, s.Record(ctx, "  SERUM ", 15))

	got, err := s.Recent(ctx, "", 10)
	require.NoError(t, err)
	assert.Equal(t, []domain.HistoryTerm{
		{Term: "serum", ResultCount: 15},
		{Term: "toner", ResultCount: 5},
	}, got)
}

func TestStore_RecentRespectsLimit(t *testing.T) {
	ctx := context.Background()
	s, _ := setupStore(t, 0)

	for _, term := range []string{"cream a", "cream b", "cream c"} {
		require.NoError(t, s.Record(ctx, term, 1))
	}

	got, err := s.Recent(ctx, "cream", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "cream c", got[0].Term)
	assert.Equal(t, "cream b", got[1].Term)
}

func TestStore_RecentNoMatch(t *testing.T) {
	s, _ := setupStore(t, 0)
	got, err := s.Recent(context.Background(), "mascara", 5)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestStore_BlankTermIsIgnored(t *testing.T) {
	ctx := context.Background()
	s, mr := setupStore(t, 0)

	require.NoError(t, s.Record(ctx, "   ", 3))
	assert.False(t, mr.Exists(termsKey))
}

func TestStore_EvictsOldestTerms(t *testing.T) {
	ctx := context.Background()
	s, mr := setupStore(t, 2)

	require.NoError(t, s.Record(ctx, "oldest", 1))
	require.NoError(t, s.Record(ctx, "middle", 2))
	require.NoError(t, s.Record(ctx, "newest", 3))

	got, err := s.Recent(ctx, "", 10)
	require.NoError(t, err)
	assert.Equal(t, []domain.HistoryTerm{
		{Term: "newest", ResultCount: 3},
		{Term: "middle", ResultCount: 2},
	}, got)

	assert.Equal(t, "", mr.HGet(countsKey, "oldest"))
}

func TestStore_RedisUnavailable(t *testing.T) {
	s, mr := setupStore(t, 0)
	mr.Close()

	assert.Error(t, s.Record(context.Background(), "serum", 1))
	_, err := s.Recent(context.Background(), "ser", 5)
	assert.Error(t, err)
}
