package resolver

import (
	"math"

	"KOLStats/internal/domain/models"
)

// Return scale used to position the average-return indicator. Values outside it are clipped.
const (
	ReturnScaleMin = -100.0
	ReturnScaleMax = 500.0
)

// SelectPeriodMetrics runs bucket resolution, timeframe lookup and sentiment filtering.
func SelectPeriodMetrics(idx models.PartitionIndex, q models.Query) *models.PeriodMetrics {
	bucket := ResolveBucket(idx, q.PeriodKey, q.Quarter)
	if bucket == nil {
		return nil
	}
	return ApplySentimentFilter(bucket[q.Timeframe], q.Sentiment)
}

// ComputeYearMetrics derives the overall row. Zero recommendations is reported as no data.
func ComputeYearMetrics(m *models.PeriodMetrics) *models.YearMetrics {
	if m == nil {
		return nil
	}
	wins := intOrZero(m.PriceTrueCount)
	losses := intOrZero(m.PriceFalseCount)
	total := wins + losses
	if total == 0 {
		return nil
	}
	return &models.YearMetrics{
		TotalRecommendations: total,
		WinPercentage:        floatOrZero(m.WinPercentage),
		LossPercentage:       floatOrZero(m.LossPercentage),
		AverageReturn:        floatOrZero(m.WeightedReturn),
		WinningTrades:        wins,
		LosingTrades:         losses,
	}
}

// ComputeActivityMetrics resolves q against a hyperactive or normal partition index.
// A zero count is still a result; only a missing bucket or sentiment slice is no data.
func ComputeActivityMetrics(idx models.PartitionIndex, q models.Query) *models.ActivityMetrics {
	m := SelectPeriodMetrics(idx, q)
	if m == nil {
		return nil
	}
	return &models.ActivityMetrics{
		ActivityCount: intOrZero(m.PriceTrueCount) + intOrZero(m.PriceFalseCount),
		Raw:           m,
	}
}

// NormalizeReturnForBar clamps v to the return scale and maps it linearly onto [0, 1].
func NormalizeReturnForBar(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	clamped := math.Max(ReturnScaleMin, math.Min(ReturnScaleMax, v))
	return (clamped - ReturnScaleMin) / (ReturnScaleMax - ReturnScaleMin)
}

// BarOffset converts a normalized fraction into a position along travel.
func BarOffset(fraction, travel float64) float64 { return fraction * travel }

func intOrZero(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}

func floatOrZero(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
