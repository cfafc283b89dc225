package models

import (
	"encoding/json"
	"testing"
)

func TestPeriodMetricsDecodeFlatObject(t *testing.T) {
	raw := `{
		"price_true_count": 7,
		"price_false_count": "3",
		"price_probablity_of_winning_percentage": 70,
		"probablity_weighted_returns_percentage": null,
		"volume_usd": 12000,
		"label": "ignored",
		"Strong_Bullish_price_true_count": 4,
		"Mild_Bearish_price_false_count": null
	}`
	var m PeriodMetrics
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.PriceTrueCount == nil || *m.PriceTrueCount != 7 {
		t.Fatalf("unexpected true count %v", m.PriceTrueCount)
	}
	if m.PriceFalseCount == nil || *m.PriceFalseCount != 3 {
		t.Fatalf("numeric strings must decode, got %v", m.PriceFalseCount)
	}
	if m.WeightedReturn != nil {
		t.Fatalf("null must decode as absent")
	}
	if m.Extra["volume_usd"] != 12000 {
		t.Fatalf("extra numeric fields must be kept, got %v", m.Extra)
	}
	if _, ok := m.Extra["label"]; ok {
		t.Fatalf("non-numeric values must be dropped")
	}
	sb := m.Sentiment(StrongBullish)
	if sb == nil || *sb.PriceTrueCount != 4 {
		t.Fatalf("unexpected strong bullish slice %+v", sb)
	}
	if m.Sentiment(MildBearish) == nil {
		t.Fatalf("a prefixed null still marks the slice present")
	}
	if m.Sentiment(StrongBearish) != nil {
		t.Fatalf("unprefixed slices must be absent")
	}
}

func TestPeriodMetricsRoundTripKeepsPresence(t *testing.T) {
	raw := `{"price_true_count": 2, "Mild_Bearish_price_false_count": null, "Strong_Bullish_volume_usd": 5}`
	var m PeriodMetrics
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	b, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back PeriodMetrics
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal again: %v", err)
	}
	if back.Sentiment(MildBearish) == nil {
		t.Fatalf("empty slice lost in round trip: %s", b)
	}
	if back.Sentiment(StrongBullish).Extra["volume_usd"] != 5 {
		t.Fatalf("extra field lost in round trip: %s", b)
	}
	if *back.PriceTrueCount != 2 {
		t.Fatalf("count lost in round trip: %s", b)
	}
}

func TestChannelStatsDecode(t *testing.T) {
	raw := `{
		"channel_id": "c1",
		"overall": {"Yearly": {"2023": {"30_days": {"price_true_count": 1}}, "2024": {}}, "Quarterly": {"2024Q4": {}}},
		"hyperactive": {"Yearly": {}, "Quarterly": {}},
		"normal": {}
	}`
	var cs ChannelStats
	if err := json.Unmarshal([]byte(raw), &cs); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	keys := cs.Overall.Yearly.Keys()
	if len(keys) != 2 || keys[0] != "2024" || keys[1] != "2023" {
		t.Fatalf("unexpected key order %v", keys)
	}
	if !cs.Hyperactive.IsEmpty() || !cs.Normal.IsEmpty() {
		t.Fatalf("expected empty partitions")
	}
	if cs.Partition("bogus").Quarterly["2024Q4"] == nil {
		t.Fatalf("unknown partition must select overall")
	}
}

func TestParseSentiment(t *testing.T) {
	cases := map[string]struct {
		want Sentiment
		ok   bool
	}{
		"":                 {SentimentAll, true},
		"Strong_Bullish":   {StrongBullish, true},
		" mild_bearish ":   {MildBearish, true},
		"bullish":          {SentimentAll, false},
		"strong_bearish_x": {SentimentAll, false},
	}
	for in, c := range cases {
		got, ok := ParseSentiment(in)
		if got != c.want || ok != c.ok {
			t.Fatalf("ParseSentiment(%q)=%q,%v want %q,%v", in, got, ok, c.want, c.ok)
		}
	}
}

func TestPeriodMetricsDropsUnrepresentableNumbers(t *testing.T) {
	raw := `{
		"price_true_count": "NaN",
		"price_false_count": 1e30,
		"price_probablity_of_winning_percentage": "Inf",
		"price_probablity_of_loosing_percentage": "-Infinity",
		"probablity_weighted_returns_percentage": "1e30"
	}`
	var m PeriodMetrics
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.PriceTrueCount != nil || m.PriceFalseCount != nil {
		t.Fatalf("counts must be absent, got %v %v", m.PriceTrueCount, m.PriceFalseCount)
	}
	if m.WinPercentage != nil || m.LossPercentage != nil {
		t.Fatalf("non-finite percentages must be absent")
	}
	if m.WeightedReturn == nil || *m.WeightedReturn != 1e30 {
		t.Fatalf("finite floats are kept, got %v", m.WeightedReturn)
	}
}
