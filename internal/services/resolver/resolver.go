package resolver

import (
	"KOLStats/internal/domain/models"
	domrepo "KOLStats/internal/domain/repository"
	domsvc "KOLStats/internal/domain/service"
	"KOLStats/internal/services/display"
	applogger "KOLStats/pkg/logger"
)

// Resolver composes the resolution pipeline over all three partitions.
type Resolver struct {
	l           *applogger.Logger
	metrics     domrepo.Metrics
	warnUnknown bool
}

type Option func(*Resolver)

// WithLogger sets the logger used for unknown-selector warnings.
func WithLogger(l *applogger.Logger) Option { return func(r *Resolver) { r.l = l } }

// WithMetrics sets the recorder for resolution outcomes.
func WithMetrics(m domrepo.Metrics) Option { return func(r *Resolver) { r.metrics = m } }

// WithUnknownTimeframeWarnings toggles the warning logged on selector fallback.
func WithUnknownTimeframeWarnings(on bool) Option { return func(r *Resolver) { r.warnUnknown = on } }

func New(opts ...Option) *Resolver {
	r := &Resolver{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Timeframe resolves a selector. The fallback to DefaultTimeframe is always applied.
func (r *Resolver) Timeframe(selector string) (models.Timeframe, bool) {
	tf, ok := ResolveTimeframeKey(selector)
	if ok {
		return tf, false
	}
	if r.metrics != nil {
		r.metrics.RecordTimeframeFallback()
	}
	if r.warnUnknown && r.l != nil {
		r.l.Warn("resolver unknown timeframe selector",
			applogger.String("selector", selector),
			applogger.String("fallback", string(tf)),
		)
	}
	return tf, true
}

// Resolve answers q for the overall, hyperactive and normal partitions. q.Partition is ignored.
func (r *Resolver) Resolve(stats *models.ChannelStats, q models.Query, travel float64) *models.Resolution {
	res := &models.Resolution{
		PeriodKey: q.PeriodKey,
		Quarter:   q.Quarter,
		Timeframe: q.Timeframe,
		Sentiment: q.Sentiment,
	}
	if stats != nil {
		res.ChannelID = stats.ChannelID
		res.Overall = ComputeYearMetrics(SelectPeriodMetrics(stats.Overall, q))
		res.Hyperactive = ComputeActivityMetrics(stats.Hyperactive, q)
		res.Normal = ComputeActivityMetrics(stats.Normal, q)
	}
	if res.Overall != nil {
		f := NormalizeReturnForBar(res.Overall.AverageReturn)
		res.Bar = &models.BarPosition{Fraction: f, Offset: BarOffset(f, travel)}
	}
	res.Display = display.Row(res.Overall, res.Hyperactive, res.Normal)

	r.record(models.PartitionOverall, res.Overall != nil)
	r.record(models.PartitionHyperactive, res.Hyperactive != nil)
	r.record(models.PartitionNormal, res.Normal != nil)
	return res
}

// ResolvePartition returns the filtered metrics of the partition named by q.Partition.
func ResolvePartition(stats *models.ChannelStats, q models.Query) *models.PeriodMetrics {
	return SelectPeriodMetrics(stats.Partition(q.Partition), q)
}

func (r *Resolver) record(p models.Partition, ok bool) {
	if r.metrics == nil {
		return
	}
	outcome := "no_data"
	if ok {
		outcome = "ok"
	}
	r.metrics.RecordResolution(string(p), outcome)
}

var _ domsvc.MetricsResolver = (*Resolver)(nil)
