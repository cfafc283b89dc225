package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	domrepo "KOLStats/internal/domain/repository"
	applogger "KOLStats/pkg/logger"
	"KOLStats/pkg/queue"
	"KOLStats/pkg/util"
)

// ChannelNotifier is told when a channel's statistics changed.
type ChannelNotifier interface {
	NotifyChannel(ctx context.Context, channelID string)
}

// StatsUpdatedEvent is published upstream when a channel's statistics are recomputed.
// UpdatedAt is RFC3339 or unix seconds, as a string or a number.
type StatsUpdatedEvent struct {
	ChannelID string          `json:"channel_id"`
	UpdatedAt json.RawMessage `json:"updated_at,omitempty"`
}

// StatsUpdatedHandler consumes stats-updated events from Kafka.
type StatsUpdatedHandler struct {
	topic    string
	store    domrepo.SnapshotStore
	notifier ChannelNotifier
	jobs     queue.Publisher
	metrics  domrepo.Metrics
	l        *applogger.Logger
}

// NewStatsUpdatedHandler builds the handler. notifier and jobs may be nil.
func NewStatsUpdatedHandler(topic string, store domrepo.SnapshotStore, notifier ChannelNotifier, jobs queue.Publisher, metrics domrepo.Metrics, l *applogger.Logger) *StatsUpdatedHandler {
	if l == nil {
		l = applogger.Nop()
	}
	return &StatsUpdatedHandler{topic: topic, store: store, notifier: notifier, jobs: jobs, metrics: metrics, l: l}
}

func (h *StatsUpdatedHandler) Topic() string { return h.topic }

func (h *StatsUpdatedHandler) Handle(ctx context.Context, b []byte) error {
	var ev StatsUpdatedEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		h.recordError("stats_event_unmarshal")
		return fmt.Errorf("decode stats-updated event: %w", err)
	}
	ev.ChannelID = strings.TrimSpace(ev.ChannelID)
	if ev.ChannelID == "" {
		h.recordError("stats_event_invalid")
		return fmt.Errorf("stats-updated event without channel_id")
	}
	if t, ok := util.ParseTime(strings.Trim(string(ev.UpdatedAt), `"`)); ok && h.metrics != nil {
		h.metrics.RecordLatency("stats_update_lag", time.Since(t).Seconds())
	}

	if err := h.store.Invalidate(ctx, ev.ChannelID); err != nil {
		h.recordError("snapshot_invalidate")
		return fmt.Errorf("invalidate snapshot %s: %w", ev.ChannelID, err)
	}
	if h.notifier != nil {
		h.notifier.NotifyChannel(ctx, ev.ChannelID)
	}
	if h.jobs != nil {
		if err := h.jobs.Enqueue(ctx, RefreshJobType, RefreshPayload{ChannelID: ev.ChannelID}); err != nil {
			// The snapshot is already invalidated; the next read refills it.
			h.l.Warn("enqueue snapshot refresh failed", applogger.String("channel_id", ev.ChannelID), applogger.Error(err))
			h.recordError("refresh_enqueue")
		}
	}
	h.l.Debug("channel stats updated", applogger.String("channel_id", ev.ChannelID))
	return nil
}

func (h *StatsUpdatedHandler) recordError(kind string) {
	if h.metrics != nil {
		h.metrics.RecordError(kind)
	}
}
