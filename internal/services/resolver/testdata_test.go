package resolver

import (
	"encoding/json"
	"testing"

	"KOLStats/internal/domain/models"
)

// decodeStats builds a ChannelStats from the upstream JSON shape.
func decodeStats(t *testing.T, raw string) *models.ChannelStats {
	t.Helper()
	var cs models.ChannelStats
	if err := json.Unmarshal([]byte(raw), &cs); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	return &cs
}

func ptrInt(v int64) *int64       { return &v }
func ptrFloat(v float64) *float64 { return &v }

const sampleStats = `{
  "channel_id": "chan-1",
  "overall": {
    "Yearly": {
      "2024": {
        "30_days": {
          "price_true_count": 7,
          "price_false_count": 3,
          "price_probablity_of_winning_percentage": 70,
          "probablity_weighted_returns_percentage": 12.5,
          "Strong_Bullish_price_true_count": 4
        },
        "7_days": {"price_true_count": 0, "price_false_count": 0}
      },
      "2023": {"30_days": {"price_probablity_of_winning_percentage": 50}}
    },
    "Quarterly": {
      "2024Q1": {"30_days": {"price_true_count": 2, "price_false_count": 1}}
    }
  },
  "hyperactive": {
    "Yearly": {"2024": {"30_days": {"price_true_count": 5, "price_false_count": 1}}},
    "Quarterly": {}
  },
  "normal": {
    "Yearly": {"2024": {"30_days": {"price_true_count": 2, "price_false_count": 2, "Mild_Bearish_price_false_count": 0}}},
    "Quarterly": {}
  }
}`
