package service

import "KOLStats/internal/domain/models"

// MetricsResolver resolves queries against an already-fetched statistics snapshot.
// Implementations are pure: they never perform I/O and never mutate the snapshot.
type MetricsResolver interface {
	// Timeframe maps a UI selector to a bucket key, reporting whether it fell back.
	Timeframe(selector string) (models.Timeframe, bool)
	// Resolve answers q for every partition of stats. travel is the bar travel distance.
	Resolve(stats *models.ChannelStats, q models.Query, travel float64) *models.Resolution
}
