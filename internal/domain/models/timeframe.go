package models

// Timeframe is the holding-period bucket a recommendation outcome is measured over.
type Timeframe string

const (
	TF1Hour   Timeframe = "1_hour"
	TF24Hours Timeframe = "24_hours"
	TF7Days   Timeframe = "7_days"
	TF30Days  Timeframe = "30_days"
	TF60Days  Timeframe = "60_days"
	TF90Days  Timeframe = "90_days"
	TF180Days Timeframe = "180_days"
	TF1Year   Timeframe = "1_year"
)

// Timeframes lists every bucket key the upstream payload may carry, shortest first.
var Timeframes = []Timeframe{TF1Hour, TF24Hours, TF7Days, TF30Days, TF60Days, TF90Days, TF180Days, TF1Year}

// IsValid reports whether tf is one of the known bucket keys.
func (tf Timeframe) IsValid() bool {
	for _, t := range Timeframes {
		if t == tf {
			return true
		}
	}
	return false
}

func (tf Timeframe) String() string { return string(tf) }
