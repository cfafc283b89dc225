package resolver

import (
	"strings"

	"KOLStats/internal/domain/models"
)

// DefaultTimeframe is used for any selector outside the vocabulary.
const DefaultTimeframe = models.TF30Days

// Selector pairs a UI timeframe selector with the bucket key it resolves to.
type Selector struct {
	Value     string           `json:"selector"`
	Timeframe models.Timeframe `json:"timeframe"`
}

// selectors is the fixed UI vocabulary (hours for 1/24, days otherwise).
var selectors = []Selector{
	{"1", models.TF1Hour},
	{"24", models.TF24Hours},
	{"7", models.TF7Days},
	{"30", models.TF30Days},
	{"90", models.TF90Days},
	{"180", models.TF180Days},
	{"365", models.TF1Year},
}

var selectorIndex = func() map[string]models.Timeframe {
	m := make(map[string]models.Timeframe, 2*len(selectors))
	for _, s := range selectors {
		m[s.Value] = s.Timeframe
		m[string(s.Timeframe)] = s.Timeframe
	}
	return m
}()

// Selectors returns the selector vocabulary in display order.
func Selectors() []Selector {
	out := make([]Selector, len(selectors))
	copy(out, selectors)
	return out
}

// ResolveTimeframeKey maps a selector ("30") or its explicit key ("30_days") to a bucket key.
// Unrecognized input resolves to DefaultTimeframe with ok=false.
func ResolveTimeframeKey(selector string) (tf models.Timeframe, ok bool) {
	if tf, ok := selectorIndex[strings.TrimSpace(selector)]; ok {
		return tf, true
	}
	return DefaultTimeframe, false
}
