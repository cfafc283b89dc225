package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"KOLStats/internal/domain/models"
	domrepo "KOLStats/internal/domain/repository"
	domsvc "KOLStats/internal/domain/service"
	"KOLStats/internal/services/display"
	"KOLStats/internal/services/resolver"
)

// ErrInvalidQuery is returned for query values the resolver cannot interpret.
var ErrInvalidQuery = errors.New("invalid query")

// ChannelMetricsUseCase answers dashboard queries from a channel snapshot.
type ChannelMetricsUseCase struct {
	source   domrepo.StatsSource
	resolver domsvc.MetricsResolver
}

func NewChannelMetricsUseCase(source domrepo.StatsSource, r domsvc.MetricsResolver) *ChannelMetricsUseCase {
	return &ChannelMetricsUseCase{source: source, resolver: r}
}

type MetricsParams struct {
	ChannelID string
	Period    string
	Quarter   string
	Timeframe string
	Sentiment string
	Travel    float64
}

type PerformanceParams struct {
	ChannelID string
	// Periods are the table columns. Empty selects DefaultPeriodColumns.
	Periods   []string
	Quarter   string
	Timeframe string
	Sentiment string
}

func (uc *ChannelMetricsUseCase) GetMetrics(ctx context.Context, p MetricsParams) (*models.Resolution, error) {
	if p.Period == "" {
		return nil, fmt.Errorf("%w: period required", ErrInvalidQuery)
	}
	q, fellBack, err := uc.query(p.Period, p.Quarter, p.Timeframe, p.Sentiment)
	if err != nil {
		return nil, err
	}
	stats, err := uc.fetch(ctx, p.ChannelID)
	if err != nil {
		return nil, err
	}
	res := uc.resolver.Resolve(stats, q, p.Travel)
	res.ChannelID = p.ChannelID
	res.TimeframeFallback = fellBack
	return res, nil
}

// GetPerformanceTable resolves one row per period column. Reserved columns resolve to no data.
func (uc *ChannelMetricsUseCase) GetPerformanceTable(ctx context.Context, p PerformanceParams) (*models.PerformanceTable, error) {
	q, fellBack, err := uc.query("", p.Quarter, p.Timeframe, p.Sentiment)
	if err != nil {
		return nil, err
	}
	stats, err := uc.fetch(ctx, p.ChannelID)
	if err != nil {
		return nil, err
	}

	periods := p.Periods
	if len(periods) == 0 {
		periods = DefaultPeriodColumns(stats)
	}
	table := &models.PerformanceTable{
		ChannelID:         p.ChannelID,
		Timeframe:         q.Timeframe,
		TimeframeFallback: fellBack,
		Sentiment:         q.Sentiment,
		Quarter:           q.Quarter,
		Rows:              make([]*models.Resolution, 0, len(periods)),
	}
	for _, period := range periods {
		q.PeriodKey = period
		row := uc.resolver.Resolve(stats, q, 0)
		row.ChannelID = p.ChannelID
		row.TimeframeFallback = fellBack
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// GetPeriods lists the period keys present in each partition, newest first.
func (uc *ChannelMetricsUseCase) GetPeriods(ctx context.Context, channelID string) (*models.PeriodCatalog, error) {
	stats, err := uc.fetch(ctx, channelID)
	if err != nil {
		return nil, err
	}
	catalog := &models.PeriodCatalog{
		ChannelID:  channelID,
		Partitions: make(map[models.Partition]models.PeriodLists, len(models.Partitions)),
	}
	for _, p := range models.Partitions {
		idx := stats.Partition(p)
		catalog.Partitions[p] = models.PeriodLists{Yearly: idx.Yearly.Keys(), Quarterly: idx.Quarterly.Keys()}
	}
	return catalog, nil
}

// Timeframes returns the selector vocabulary.
func (uc *ChannelMetricsUseCase) Timeframes() []resolver.Selector { return resolver.Selectors() }

// ResolveView answers a live-view state. Sub-rows are dropped unless expanded.
func (uc *ChannelMetricsUseCase) ResolveView(ctx context.Context, channelID string, v models.ViewState) (*models.Resolution, error) {
	res, err := uc.GetMetrics(ctx, MetricsParams{
		ChannelID: channelID,
		Period:    v.Period,
		Quarter:   v.Quarter,
		Timeframe: v.Timeframe,
		Sentiment: v.Sentiment,
		Travel:    v.Travel,
	})
	if err != nil {
		return nil, err
	}
	if !v.Expanded.Hyperactive {
		res.Hyperactive = nil
	}
	if !v.Expanded.Normal {
		res.Normal = nil
	}
	res.Display = display.Row(res.Overall, res.Hyperactive, res.Normal)
	return res, nil
}

// DefaultPeriodColumns is the reserved columns followed by every overall Yearly key, newest first.
func DefaultPeriodColumns(stats *models.ChannelStats) []string {
	years := stats.Partition(models.PartitionOverall).Yearly.Keys()
	out := make([]string, 0, len(resolver.ReservedPeriods)+len(years))
	out = append(out, resolver.ReservedPeriods...)
	return append(out, years...)
}

// ParsePeriods splits a comma-separated column list.
func ParsePeriods(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (uc *ChannelMetricsUseCase) query(period, quarter, timeframe, sentiment string) (models.Query, bool, error) {
	sent, ok := models.ParseSentiment(sentiment)
	if !ok {
		return models.Query{}, false, fmt.Errorf("%w: unknown sentiment %q", ErrInvalidQuery, sentiment)
	}
	tf, fellBack := uc.resolver.Timeframe(timeframe)
	return models.Query{
		PeriodKey: strings.TrimSpace(period),
		Quarter:   strings.ToUpper(strings.TrimSpace(quarter)),
		Timeframe: tf,
		Sentiment: sent,
		Partition: models.PartitionOverall,
	}, fellBack, nil
}

func (uc *ChannelMetricsUseCase) fetch(ctx context.Context, channelID string) (*models.ChannelStats, error) {
	if strings.TrimSpace(channelID) == "" {
		return nil, fmt.Errorf("%w: channel_id required", ErrInvalidQuery)
	}
	stats, err := uc.source.FetchChannelStats(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("fetch stats: %w", err)
	}
	return stats, nil
}
