package resolver

import (
	"encoding/json"
	"strings"
	"testing"

	"KOLStats/internal/domain/models"
)

func decodePeriod(t *testing.T, raw string) *models.PeriodMetrics {
	t.Helper()
	var m models.PeriodMetrics
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("decode period: %v", err)
	}
	return &m
}

func TestApplySentimentFilterAggregate(t *testing.T) {
	m := decodePeriod(t, `{"price_true_count": 3, "Strong_Bullish_price_true_count": 1}`)
	if got := ApplySentimentFilter(m, models.SentimentAll); got != m {
		t.Fatalf("aggregate view must return the input unchanged")
	}
}

func TestApplySentimentFilterStripsPrefix(t *testing.T) {
	m := decodePeriod(t, `{"price_true_count": 9, "Strong_Bullish_price_true_count": 4}`)
	got := ApplySentimentFilter(m, models.StrongBullish)
	if got == nil {
		t.Fatalf("expected strong bullish slice")
	}
	if names := got.FieldNames(); len(names) != 1 || names[0] != models.FieldPriceTrueCount {
		t.Fatalf("unexpected fields %v", names)
	}
	if *got.PriceTrueCount != 4 {
		t.Fatalf("expected 4, got %d", *got.PriceTrueCount)
	}
	ym := ComputeYearMetrics(got)
	if ym == nil || ym.TotalRecommendations != 4 || ym.LosingTrades != 0 || ym.WinningTrades != 4 {
		t.Fatalf("unexpected year metrics %+v", ym)
	}
}

func TestApplySentimentFilterMissingSlice(t *testing.T) {
	m := decodePeriod(t, `{"price_true_count": 9, "Strong_Bullish_price_true_count": 4, "Mild_Bullish_price_false_count": 1}`)
	if got := ApplySentimentFilter(m, models.MildBearish); got != nil {
		t.Fatalf("expected nil for absent sentiment slice, got %+v", got)
	}
}

func TestApplySentimentFilterZeroValuesArePresent(t *testing.T) {
	m := decodePeriod(t, `{"Mild_Bearish_price_true_count": 0, "Mild_Bearish_price_false_count": 0}`)
	got := ApplySentimentFilter(m, models.MildBearish)
	if got == nil {
		t.Fatalf("all-zero slice is still present")
	}
	if ComputeYearMetrics(got) != nil {
		t.Fatalf("zero recommendations must be no data")
	}
}

func TestApplySentimentFilterNilInput(t *testing.T) {
	if ApplySentimentFilter(nil, models.StrongBearish) != nil {
		t.Fatalf("expected nil")
	}
	if ApplySentimentFilter(nil, models.SentimentAll) != nil {
		t.Fatalf("expected nil")
	}
}

func TestApplySentimentFilterDoesNotAlias(t *testing.T) {
	m := decodePeriod(t, `{"Strong_Bearish_price_true_count": 2, "Strong_Bearish_volume_usd": 10}`)
	got := ApplySentimentFilter(m, models.StrongBearish)
	*got.PriceTrueCount = 99
	got.Extra["volume_usd"] = 0
	src := m.Sentiment(models.StrongBearish)
	if *src.PriceTrueCount != 2 || src.Extra["volume_usd"] != 10 {
		t.Fatalf("filter must not alias the snapshot")
	}
}

// Every output field is an input field with the prefix stripped, and no unprefixed
// input field leaks into the output.
func TestApplySentimentFilterPartitionProperty(t *testing.T) {
	raw := `{
		"price_true_count": 11,
		"price_false_count": 2,
		"probablity_weighted_returns_percentage": 3.5,
		"volume_usd": 100,
		"Strong_Bullish_price_true_count": 4,
		"Strong_Bullish_price_probablity_of_winning_percentage": 80,
		"Mild_Bullish_price_false_count": 1,
		"Mild_Bullish_volume_usd": 7,
		"Mild_Bearish_probablity_weighted_returns_percentage": -12,
		"Strong_Bearish_price_probablity_of_loosing_percentage": 60
	}`
	m := decodePeriod(t, raw)
	var input map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &input); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, s := range models.Sentiments {
		out := ApplySentimentFilter(m, s)
		if out == nil {
			t.Fatalf("expected slice for %s", s)
		}
		for _, name := range out.FieldNames() {
			if _, ok := input[s.Prefix()+name]; !ok {
				t.Fatalf("%s: output field %q has no prefixed source", s, name)
			}
		}
		for key := range input {
			if strings.HasPrefix(key, s.Prefix()) {
				continue
			}
			for _, name := range out.FieldNames() {
				if name == key && !hasPrefixedTwin(input, s, key) {
					t.Fatalf("%s: unprefixed field %q leaked", s, key)
				}
			}
		}
	}
}

func hasPrefixedTwin(input map[string]interface{}, s models.Sentiment, key string) bool {
	_, ok := input[s.Prefix()+key]
	return ok
}
