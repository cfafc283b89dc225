package resolver

import "KOLStats/internal/domain/models"

// ApplySentimentFilter narrows m to one sentiment slice. SentimentAll returns m unchanged.
// The result is nil when no field carried the sentiment's prefix.
func ApplySentimentFilter(m *models.PeriodMetrics, s models.Sentiment) *models.PeriodMetrics {
	if m == nil {
		return nil
	}
	if s == models.SentimentAll {
		return m
	}
	set := m.Sentiment(s)
	if set == nil {
		return nil
	}
	return &models.PeriodMetrics{MetricSet: copySet(set)}
}

func copySet(src *models.MetricSet) models.MetricSet {
	dst := models.MetricSet{
		PriceTrueCount:  copyPtr(src.PriceTrueCount),
		PriceFalseCount: copyPtr(src.PriceFalseCount),
		WinPercentage:   copyPtr(src.WinPercentage),
		LossPercentage:  copyPtr(src.LossPercentage),
		WeightedReturn:  copyPtr(src.WeightedReturn),
	}
	if len(src.Extra) > 0 {
		dst.Extra = make(map[string]float64, len(src.Extra))
		for k, v := range src.Extra {
			dst.Extra[k] = v
		}
	}
	return dst
}

func copyPtr[T int64 | float64](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
