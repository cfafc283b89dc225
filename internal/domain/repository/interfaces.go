package repository

import (
	"context"
	"errors"

	"KOLStats/internal/domain/models"
)

// ErrChannelNotFound is returned by a StatsSource that has no statistics for a channel.
var ErrChannelNotFound = errors.New("channel not found")

// StatsSource loads the full statistics tree for a channel.
type StatsSource interface {
	FetchChannelStats(ctx context.Context, channelID string) (*models.ChannelStats, error)
}

// SnapshotStore is a StatsSource that can drop or rebuild a cached snapshot.
type SnapshotStore interface {
	StatsSource
	Invalidate(ctx context.Context, channelID string) error
	Refresh(ctx context.Context, channelID string) (*models.ChannelStats, error)
}

// StatsArchive persists fetched snapshots.
type StatsArchive interface {
	Save(ctx context.Context, stats *models.ChannelStats) error
}

// EventPublisher publishes payloads to a named topic.
type EventPublisher interface {
	PublishMessage(ctx context.Context, topic string, payload interface{}) error
	Close() error
}

type Metrics interface {
	RecordResolution(partition, outcome string)
	RecordTimeframeFallback()
	RecordCacheResult(result string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
