package models

// Query selects one cell of the statistics tree.
type Query struct {
	PeriodKey string
	Quarter   string
	Timeframe Timeframe
	Sentiment Sentiment
	Partition Partition
}

// YearMetrics is the overall row for one period.
type YearMetrics struct {
	TotalRecommendations int64   `json:"total_recommendations"`
	WinPercentage        float64 `json:"win_percentage"`
	LossPercentage       float64 `json:"loss_percentage"`
	AverageReturn        float64 `json:"average_return"`
	WinningTrades        int64   `json:"winning_trades"`
	LosingTrades         int64   `json:"losing_trades"`
}

// ActivityMetrics is the hyperactive or normal sub-row for one period.
type ActivityMetrics struct {
	ActivityCount int64          `json:"activity_count"`
	Raw           *PeriodMetrics `json:"raw"`
}

// BarPosition places the average return on the fixed [-100, 500] return scale.
type BarPosition struct {
	Fraction float64 `json:"fraction"`
	Offset   float64 `json:"offset"`
}

// DisplayRow is a resolved row formatted for a table. Placeholders stand in for missing data.
type DisplayRow struct {
	TotalRecommendations string `json:"total_recommendations"`
	WinPercentage        string `json:"win_percentage"`
	LossPercentage       string `json:"loss_percentage"`
	AverageReturn        string `json:"average_return"`
	WinningTrades        string `json:"winning_trades"`
	LosingTrades         string `json:"losing_trades"`
	Hyperactivity        string `json:"hyperactivity"`
	NonHyperactivity     string `json:"non_hyperactivity"`
}

// Resolution is the full answer to a Query across the three partitions.
type Resolution struct {
	ChannelID         string           `json:"channel_id"`
	PeriodKey         string           `json:"period"`
	Quarter           string           `json:"quarter,omitempty"`
	Timeframe         Timeframe        `json:"timeframe"`
	TimeframeFallback bool             `json:"timeframe_fallback"`
	Sentiment         Sentiment        `json:"sentiment,omitempty"`
	Overall           *YearMetrics     `json:"overall"`
	Hyperactive       *ActivityMetrics `json:"hyperactive"`
	Normal            *ActivityMetrics `json:"normal"`
	Bar               *BarPosition     `json:"bar"`
	Display           DisplayRow       `json:"display"`
}

// HasData reports whether the overall row resolved to a populated record.
func (r *Resolution) HasData() bool { return r != nil && r.Overall != nil }

// PerformanceTable is a set of resolved period columns for one channel.
type PerformanceTable struct {
	ChannelID         string        `json:"channel_id"`
	Timeframe         Timeframe     `json:"timeframe"`
	TimeframeFallback bool          `json:"timeframe_fallback"`
	Sentiment         Sentiment     `json:"sentiment,omitempty"`
	Quarter           string        `json:"quarter,omitempty"`
	Rows              []*Resolution `json:"rows"`
}

// PeriodCatalog lists the period keys available per partition.
type PeriodCatalog struct {
	ChannelID  string                    `json:"channel_id"`
	Partitions map[Partition]PeriodLists `json:"partitions"`
}

// PeriodLists holds the sorted Yearly and Quarterly keys of one partition.
type PeriodLists struct {
	Yearly    []string `json:"yearly"`
	Quarterly []string `json:"quarterly"`
}

// ViewState is the client-owned state of a live metrics view.
type ViewState struct {
	Period    string  `json:"period" validate:"required"`
	Quarter   string  `json:"quarter" validate:"omitempty,oneof=Q1 Q2 Q3 Q4"`
	Timeframe string  `json:"timeframe"`
	Sentiment string  `json:"sentiment" validate:"omitempty,oneof=strong_bullish mild_bullish mild_bearish strong_bearish"`
	Travel    float64 `json:"travel" validate:"gte=0"`
	Expanded  struct {
		Hyperactive bool `json:"hyperactive"`
		Normal      bool `json:"normal"`
	} `json:"expanded"`
}
