package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	domrepo "KOLStats/internal/domain/repository"
	"KOLStats/pkg/cache"
	applogger "KOLStats/pkg/logger"
	"KOLStats/pkg/queue"
)

const RefreshJobType = "stats.refresh"

type RefreshPayload struct {
	ChannelID string `json:"channel_id"`
}

// SnapshotRefreshJob rebuilds a channel snapshot so the next dashboard load hits a warm cache.
type SnapshotRefreshJob struct {
	store   domrepo.SnapshotStore
	archive domrepo.StatsArchive
	locks   cache.Service
	lockTTL time.Duration
	l       *applogger.Logger
}

type RefreshOption func(*SnapshotRefreshJob)

// WithArchive also persists every refreshed snapshot.
func WithArchive(a domrepo.StatsArchive) RefreshOption {
	return func(j *SnapshotRefreshJob) { j.archive = a }
}

// WithRefreshLock skips a refresh while another worker holds the channel lock.
func WithRefreshLock(c cache.Service, ttl time.Duration) RefreshOption {
	return func(j *SnapshotRefreshJob) {
		j.locks = c
		j.lockTTL = ttl
	}
}

func NewSnapshotRefreshJob(store domrepo.SnapshotStore, l *applogger.Logger, opts ...RefreshOption) *SnapshotRefreshJob {
	if l == nil {
		l = applogger.Nop()
	}
	j := &SnapshotRefreshJob{store: store, l: l, lockTTL: 30 * time.Second}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

func (j *SnapshotRefreshJob) Name() string { return "snapshot-refresh" }

func (j *SnapshotRefreshJob) Type() string { return RefreshJobType }

func (j *SnapshotRefreshJob) Handle(ctx context.Context, payload json.RawMessage) error {
	p, err := queue.Decode[RefreshPayload](payload)
	if err != nil {
		return err
	}
	if p.ChannelID == "" {
		return fmt.Errorf("refresh payload without channel_id")
	}

	if j.locks != nil {
		lockKey := cache.GenerateKey("lock:refresh", p.ChannelID)
		ok, err := j.locks.TryLock(ctx, lockKey, j.lockTTL)
		if err != nil {
			return fmt.Errorf("acquire refresh lock: %w", err)
		}
		if !ok {
			j.l.Debug("snapshot refresh already running", applogger.String("channel_id", p.ChannelID))
			return nil
		}
		defer func() { _ = j.locks.Unlock(context.Background(), lockKey) }()
	}

	stats, err := j.store.Refresh(ctx, p.ChannelID)
	if errors.Is(err, domrepo.ErrChannelNotFound) {
		j.l.Info("refresh of unknown channel skipped", applogger.String("channel_id", p.ChannelID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("refresh snapshot %s: %w", p.ChannelID, err)
	}
	if j.archive != nil {
		if err := j.archive.Save(ctx, stats); err != nil {
			return fmt.Errorf("archive snapshot %s: %w", p.ChannelID, err)
		}
	}
	return nil
}
