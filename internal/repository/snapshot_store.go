package repository

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"KOLStats/internal/domain/models"
	domrepo "KOLStats/internal/domain/repository"
	"KOLStats/pkg/cache"
	applogger "KOLStats/pkg/logger"
)

const (
	snapshotKeyPrefix = "snapshot"
	// sharedLoadTimeout bounds a coalesced load, which outlives any single caller.
	sharedLoadTimeout = 30 * time.Second
)

// SnapshotKey is the cache key of a channel snapshot.
func SnapshotKey(channelID string) string { return cache.GenerateKey(snapshotKeyPrefix, channelID) }

// CachedStatsSource caches whole channel snapshots in front of another StatsSource.
// Cache failures fall through to the source and are only logged.
type CachedStatsSource struct {
	next    domrepo.StatsSource
	cache   cache.Service
	ttl     time.Duration
	metrics domrepo.Metrics
	l       *applogger.Logger
	group   singleflight.Group
}

func NewCachedStatsSource(next domrepo.StatsSource, c cache.Service, ttl time.Duration, m domrepo.Metrics, l *applogger.Logger) *CachedStatsSource {
	if l == nil {
		l = applogger.Nop()
	}
	return &CachedStatsSource{next: next, cache: c, ttl: ttl, metrics: m, l: l}
}

func (s *CachedStatsSource) FetchChannelStats(ctx context.Context, channelID string) (*models.ChannelStats, error) {
	key := SnapshotKey(channelID)

	var stats models.ChannelStats
	err := s.cache.Get(ctx, key, &stats)
	switch {
	case err == nil:
		s.recordCache("hit")
		return &stats, nil
	case errors.Is(err, cache.ErrCacheMiss):
		s.recordCache("miss")
	default:
		s.recordCache("error")
		s.l.Warn("snapshot cache read failed", applogger.String("channel_id", channelID), applogger.Error(err))
	}

	ch := s.group.DoChan(channelID, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedLoadTimeout)
		defer cancel()
		return s.load(loadCtx, channelID)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*models.ChannelStats), nil
	}
}

// Refresh bypasses the cached copy and stores a fresh snapshot.
func (s *CachedStatsSource) Refresh(ctx context.Context, channelID string) (*models.ChannelStats, error) {
	return s.load(ctx, channelID)
}

func (s *CachedStatsSource) load(ctx context.Context, channelID string) (*models.ChannelStats, error) {
	start := time.Now()
	fresh, err := s.next.FetchChannelStats(ctx, channelID)
	if s.metrics != nil {
		s.metrics.RecordLatency("fetch_channel_stats", time.Since(start).Seconds())
	}
	if err != nil {
		if s.metrics != nil && !errors.Is(err, domrepo.ErrChannelNotFound) {
			s.metrics.RecordError("stats_source")
		}
		return nil, err
	}
	if err := s.cache.Set(ctx, SnapshotKey(channelID), fresh, s.ttl); err != nil {
		s.recordCache("error")
		s.l.Warn("snapshot cache write failed", applogger.String("channel_id", channelID), applogger.Error(err))
	}
	return fresh, nil
}

func (s *CachedStatsSource) Invalidate(ctx context.Context, channelID string) error {
	return s.cache.Delete(ctx, SnapshotKey(channelID))
}

func (s *CachedStatsSource) recordCache(result string) {
	if s.metrics != nil {
		s.metrics.RecordCacheResult(result)
	}
}

// DirectStatsSource is a SnapshotStore without a cache.
type DirectStatsSource struct {
	domrepo.StatsSource
}

func (DirectStatsSource) Invalidate(context.Context, string) error { return nil }

func (d DirectStatsSource) Refresh(ctx context.Context, channelID string) (*models.ChannelStats, error) {
	return d.FetchChannelStats(ctx, channelID)
}

var (
	_ domrepo.StatsArchive  = (*CHStatsStore)(nil)
	_ domrepo.SnapshotStore = (*CachedStatsSource)(nil)
	_ domrepo.SnapshotStore = DirectStatsSource{}
)
