package models

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
)

// Upstream field names read by the resolver. The misspellings are part of the wire format.
const (
	FieldPriceTrueCount  = "price_true_count"
	FieldPriceFalseCount = "price_false_count"
	FieldWinPercentage   = "price_probablity_of_winning_percentage"
	FieldLossPercentage  = "price_probablity_of_loosing_percentage"
	FieldWeightedReturn  = "probablity_weighted_returns_percentage"
)

// MetricSet holds the metrics the resolver interprets. A nil pointer means the field
// was omitted (or null) upstream.
type MetricSet struct {
	PriceTrueCount  *int64
	PriceFalseCount *int64
	WinPercentage   *float64
	LossPercentage  *float64
	WeightedReturn  *float64
	// Extra keeps numeric fields the resolver does not read.
	Extra map[string]float64
}

// PeriodMetrics is one (period, timeframe) cell of the statistics tree: the aggregate
// metrics plus the per-sentiment slices that were present upstream.
type PeriodMetrics struct {
	MetricSet
	Sentiments map[Sentiment]*MetricSet
}

func (s *MetricSet) assign(name string, v *float64) {
	switch name {
	case FieldPriceTrueCount:
		s.PriceTrueCount = toCount(v)
	case FieldPriceFalseCount:
		s.PriceFalseCount = toCount(v)
	case FieldWinPercentage:
		s.WinPercentage = v
	case FieldLossPercentage:
		s.LossPercentage = v
	case FieldWeightedReturn:
		s.WeightedReturn = v
	default:
		if v == nil {
			return
		}
		if s.Extra == nil {
			s.Extra = make(map[string]float64)
		}
		s.Extra[name] = *v
	}
}

// Set assigns a field by its upstream (unprefixed) name.
func (s *MetricSet) Set(name string, v float64) { s.assign(name, &v) }

// put writes every non-nil field under prefix into out and returns how many were written.
func (s *MetricSet) put(out map[string]*float64, prefix string) int {
	n := 0
	add := func(name string, v *float64) {
		if v != nil {
			out[prefix+name] = v
			n++
		}
	}
	add(FieldPriceTrueCount, fromCount(s.PriceTrueCount))
	add(FieldPriceFalseCount, fromCount(s.PriceFalseCount))
	add(FieldWinPercentage, s.WinPercentage)
	add(FieldLossPercentage, s.LossPercentage)
	add(FieldWeightedReturn, s.WeightedReturn)
	for k, v := range s.Extra {
		add(k, &v)
	}
	return n
}

// FieldNames returns the sorted upstream names of the non-nil fields in s.
func (s *MetricSet) FieldNames() []string {
	out := make(map[string]*float64)
	s.put(out, "")
	names := make([]string, 0, len(out))
	for k := range out {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Sentiment returns the slice for sent, or nil when no field carried its prefix.
func (m *PeriodMetrics) Sentiment(sent Sentiment) *MetricSet {
	if m == nil || m.Sentiments == nil {
		return nil
	}
	return m.Sentiments[sent]
}

func (m *PeriodMetrics) sentimentSet(sent Sentiment) *MetricSet {
	if m.Sentiments == nil {
		m.Sentiments = make(map[Sentiment]*MetricSet, len(Sentiments))
	}
	set, ok := m.Sentiments[sent]
	if !ok {
		set = &MetricSet{}
		m.Sentiments[sent] = set
	}
	return set
}

// SetField assigns a field by its flat upstream name, routing sentiment-prefixed names
// into their slice. A nil value still marks a sentiment slice as present.
func (m *PeriodMetrics) SetField(key string, v *float64) {
	if sent, name, ok := splitSentimentKey(key); ok {
		m.sentimentSet(sent).assign(name, v)
		return
	}
	m.MetricSet.assign(key, v)
}

// UnmarshalJSON decodes the flat upstream object.
func (m *PeriodMetrics) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*m = PeriodMetrics{}
	for key, val := range raw {
		m.SetField(key, decodeNumber(val))
	}
	return nil
}

// Fields flattens m into upstream field names. A sentiment slice without any value is
// kept as a null count so that it is still present after decoding.
func (m *PeriodMetrics) Fields() map[string]*float64 {
	out := make(map[string]*float64)
	m.MetricSet.put(out, "")
	for sent, set := range m.Sentiments {
		if set == nil {
			continue
		}
		if set.put(out, sent.Prefix()) == 0 {
			out[sent.Prefix()+FieldPriceTrueCount] = nil
		}
	}
	return out
}

// MarshalJSON encodes back to the flat upstream object.
func (m PeriodMetrics) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Fields())
}

func decodeNumber(raw json.RawMessage) *float64 {
	var f *float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// toCount drops values that do not fit an int64 count.
func toCount(v *float64) *int64 {
	if v == nil {
		return nil
	}
	r := math.Round(*v)
	if math.IsNaN(r) || r < math.MinInt64 || r >= math.MaxInt64 {
		return nil
	}
	n := int64(r)
	return &n
}

func fromCount(n *int64) *float64 {
	if n == nil {
		return nil
	}
	f := float64(*n)
	return &f
}
