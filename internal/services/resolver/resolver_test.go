package resolver

import (
	"testing"

	"KOLStats/internal/domain/models"
)

type fakeMetrics struct {
	outcomes  map[string]int
	fallbacks int
}

func newFakeMetrics() *fakeMetrics { return &fakeMetrics{outcomes: map[string]int{}} }

func (f *fakeMetrics) RecordResolution(partition, outcome string) {
	f.outcomes[partition+"/"+outcome]++
}
func (f *fakeMetrics) RecordTimeframeFallback()      { f.fallbacks++ }
func (f *fakeMetrics) RecordCacheResult(string)      {}
func (f *fakeMetrics) RecordError(string)            {}
func (f *fakeMetrics) RecordLatency(string, float64) {}

func TestResolverTimeframeFallbackIsCounted(t *testing.T) {
	fm := newFakeMetrics()
	r := New(WithMetrics(fm), WithUnknownTimeframeWarnings(true))

	tf, fellBack := r.Timeframe("90")
	if tf != models.TF90Days || fellBack {
		t.Fatalf("unexpected %q %v", tf, fellBack)
	}
	tf, fellBack = r.Timeframe("60")
	if tf != models.TF30Days || !fellBack {
		t.Fatalf("unexpected %q %v", tf, fellBack)
	}
	if fm.fallbacks != 1 {
		t.Fatalf("expected one fallback, got %d", fm.fallbacks)
	}
}

func TestResolverResolveAllPartitions(t *testing.T) {
	fm := newFakeMetrics()
	r := New(WithMetrics(fm))
	cs := decodeStats(t, sampleStats)

	res := r.Resolve(cs, models.Query{PeriodKey: "2024", Timeframe: models.TF30Days}, 200)
	if res.ChannelID != "chan-1" {
		t.Fatalf("unexpected channel %q", res.ChannelID)
	}
	if res.Overall == nil || res.Overall.TotalRecommendations != 10 {
		t.Fatalf("unexpected overall %+v", res.Overall)
	}
	if res.Hyperactive == nil || res.Hyperactive.ActivityCount != 6 {
		t.Fatalf("unexpected hyperactive %+v", res.Hyperactive)
	}
	if res.Normal == nil || res.Normal.ActivityCount != 4 {
		t.Fatalf("unexpected normal %+v", res.Normal)
	}
	if res.Bar == nil {
		t.Fatalf("expected bar position")
	}
	wantFraction := (12.5 + 100) / 600
	if res.Bar.Fraction != wantFraction || res.Bar.Offset != wantFraction*200 {
		t.Fatalf("unexpected bar %+v", res.Bar)
	}
	if res.Display.TotalRecommendations != "10" || res.Display.Hyperactivity != "6" {
		t.Fatalf("unexpected display %+v", res.Display)
	}
	for _, key := range []string{"overall/ok", "hyperactive/ok", "normal/ok"} {
		if fm.outcomes[key] != 1 {
			t.Fatalf("expected outcome %s recorded once, got %v", key, fm.outcomes)
		}
	}
}

func TestResolverResolveNoData(t *testing.T) {
	fm := newFakeMetrics()
	r := New(WithMetrics(fm))
	cs := decodeStats(t, sampleStats)

	res := r.Resolve(cs, models.Query{PeriodKey: PeriodLast7Days, Timeframe: models.TF30Days}, 100)
	if res.HasData() {
		t.Fatalf("reserved period must have no data")
	}
	if res.Bar != nil {
		t.Fatalf("bar must be absent without overall metrics")
	}
	if res.Display.TotalRecommendations != "-" || res.Display.Hyperactivity != "N/A" || res.Display.NonHyperactivity != "N/A" {
		t.Fatalf("unexpected placeholders %+v", res.Display)
	}
	if fm.outcomes["overall/no_data"] != 1 {
		t.Fatalf("expected no_data outcome, got %v", fm.outcomes)
	}
}

func TestResolverResolveNilStats(t *testing.T) {
	res := New().Resolve(nil, models.Query{PeriodKey: "2024", Timeframe: models.TF30Days}, 0)
	if res == nil || res.HasData() {
		t.Fatalf("expected empty resolution")
	}
}

func TestResolverZeroRecommendationsIsNoData(t *testing.T) {
	cs := decodeStats(t, sampleStats)
	res := New().Resolve(cs, models.Query{PeriodKey: "2024", Timeframe: models.TF7Days}, 0)
	if res.Overall != nil {
		t.Fatalf("zero recommendations must be no data, got %+v", res.Overall)
	}
}

func TestResolvePartition(t *testing.T) {
	cs := decodeStats(t, sampleStats)
	q := models.Query{PeriodKey: "2024", Timeframe: models.TF30Days, Partition: models.PartitionHyperactive}
	m := ResolvePartition(cs, q)
	if m == nil || *m.PriceTrueCount != 5 {
		t.Fatalf("unexpected partition metrics %+v", m)
	}
	q.Partition = "bogus"
	m = ResolvePartition(cs, q)
	if m == nil || *m.PriceTrueCount != 7 {
		t.Fatalf("unknown partition must use overall")
	}
}
