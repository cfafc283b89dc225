package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"KOLStats/internal/domain/models"
	domrepo "KOLStats/internal/domain/repository"
	"KOLStats/pkg/cache"
)

type countingSource struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *countingSource) FetchChannelStats(_ context.Context, channelID string) (*models.ChannelStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	var m models.PeriodMetrics
	m.Set(models.FieldPriceTrueCount, 7)
	m.Set(models.FieldPriceFalseCount, 3)
	return &models.ChannelStats{
		ChannelID: channelID,
		Overall: models.PartitionIndex{
			Yearly: models.TimeBucketIndex{"2024": models.MetricsBucket{models.TF30Days: &m}},
		},
	}, nil
}

type recordingMetrics struct {
	mu     sync.Mutex
	cache  map[string]int
	errors map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{cache: map[string]int{}, errors: map[string]int{}}
}

func (m *recordingMetrics) RecordResolution(string, string) {}
func (m *recordingMetrics) RecordTimeframeFallback()        {}
func (m *recordingMetrics) RecordLatency(string, float64)   {}

func (m *recordingMetrics) RecordCacheResult(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[result]++
}

func (m *recordingMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}

// brokenCache fails every operation.
type brokenCache struct{ cache.Service }

func (brokenCache) Get(context.Context, string, interface{}) error { return errors.New("redis down") }

func (brokenCache) Set(context.Context, string, interface{}, time.Duration) error {
	return errors.New("redis down")
}

func TestCachedStatsSourceHitAfterMiss(t *testing.T) {
	src := &countingSource{}
	mc := cache.NewMemoryCache()
	defer mc.Close()
	rec := newRecordingMetrics()
	s := NewCachedStatsSource(src, mc, time.Minute, rec, nil)

	first, err := s.FetchChannelStats(context.Background(), "chan-1")
	require.NoError(t, err)
	second, err := s.FetchChannelStats(context.Background(), "chan-1")
	require.NoError(t, err)

	assert.Equal(t, 1, src.calls)
	assert.Equal(t, 1, rec.cache["miss"])
	assert.Equal(t, 1, rec.cache["hit"])
	assert.Equal(t, *first.Overall.Yearly["2024"][models.TF30Days].PriceTrueCount,
		*second.Overall.Yearly["2024"][models.TF30Days].PriceTrueCount)
}

func TestCachedStatsSourceInvalidate(t *testing.T) {
	src := &countingSource{}
	mc := cache.NewMemoryCache()
	defer mc.Close()
	s := NewCachedStatsSource(src, mc, time.Minute, nil, nil)

	_, err := s.FetchChannelStats(context.Background(), "chan-1")
	require.NoError(t, err)
	require.NoError(t, s.Invalidate(context.Background(), "chan-1"))
	_, err = s.FetchChannelStats(context.Background(), "chan-1")
	require.NoError(t, err)

	assert.Equal(t, 2, src.calls)
	ok, err := mc.Exists(context.Background(), SnapshotKey("chan-1"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCachedStatsSourceDegradesOnCacheFailure(t *testing.T) {
	src := &countingSource{}
	rec := newRecordingMetrics()
	s := NewCachedStatsSource(src, brokenCache{}, time.Minute, rec, nil)

	stats, err := s.FetchChannelStats(context.Background(), "chan-1")
	require.NoError(t, err)
	assert.Equal(t, "chan-1", stats.ChannelID)
	assert.Equal(t, 2, rec.cache["error"])
}

func TestCachedStatsSourcePropagatesSourceErrors(t *testing.T) {
	rec := newRecordingMetrics()
	mc := cache.NewMemoryCache()
	defer mc.Close()

	notFound := NewCachedStatsSource(&countingSource{err: domrepo.ErrChannelNotFound}, mc, time.Minute, rec, nil)
	_, err := notFound.FetchChannelStats(context.Background(), "x")
	assert.ErrorIs(t, err, domrepo.ErrChannelNotFound)
	assert.Zero(t, rec.errors["stats_source"])

	failing := NewCachedStatsSource(&countingSource{err: errors.New("boom")}, mc, time.Minute, rec, nil)
	_, err = failing.FetchChannelStats(context.Background(), "y")
	assert.Error(t, err)
	assert.Equal(t, 1, rec.errors["stats_source"])
}

func TestCachedStatsSourceRefreshBypassesCache(t *testing.T) {
	src := &countingSource{}
	mc := cache.NewMemoryCache()
	defer mc.Close()
	s := NewCachedStatsSource(src, mc, time.Minute, nil, nil)

	_, err := s.FetchChannelStats(context.Background(), "chan-1")
	require.NoError(t, err)
	_, err = s.Refresh(context.Background(), "chan-1")
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
}

type gatedSource struct {
	countingSource
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedSource) FetchChannelStats(ctx context.Context, channelID string) (*models.ChannelStats, error) {
	g.once.Do(func() { close(g.started) })
	<-g.release
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return g.countingSource.FetchChannelStats(ctx, channelID)
}

func TestCachedSourceSharedLoadSurvivesCallerCancel(t *testing.T) {
	src := &gatedSource{started: make(chan struct{}), release: make(chan struct{})}
	c := cache.NewMemoryCache()
	t.Cleanup(func() { _ = c.Close() })
	store := NewCachedStatsSource(src, c, time.Minute, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := store.FetchChannelStats(ctx, "chan-1")
		first <- err
	}()
	<-src.started

	type result struct {
		stats *models.ChannelStats
		err   error
	}
	second := make(chan result, 1)
	go func() {
		st, err := store.FetchChannelStats(context.Background(), "chan-1")
		second <- result{st, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	select {
	case err := <-first:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(src.release)
	select {
	case r := <-second:
		require.NoError(t, r.err)
		assert.Equal(t, "chan-1", r.stats.ChannelID)
	case <-time.After(2 * time.Second):
		t.Fatal("waiting caller did not return")
	}
	assert.Equal(t, 1, src.calls)
}
