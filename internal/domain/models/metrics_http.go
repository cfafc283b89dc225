package models

// Requests for channel metrics HTTP endpoints.

type MetricsRequest struct {
	ChannelID string  `param:"channel_id" validate:"required"`
	Period    string  `query:"period" json:"period" validate:"required"`
	Quarter   string  `query:"quarter" json:"quarter" validate:"omitempty,oneof=Q1 Q2 Q3 Q4"`
	Timeframe string  `query:"timeframe" json:"timeframe" default:"30"`
	Sentiment string  `query:"sentiment" json:"sentiment" validate:"omitempty,oneof=strong_bullish mild_bullish mild_bearish strong_bearish"`
	Travel    float64 `query:"travel" json:"travel" validate:"gte=0"`
}

type PerformanceRequest struct {
	ChannelID string `param:"channel_id" validate:"required"`
	Periods   string `query:"periods" json:"periods" validate:"omitempty,max=512"`
	Quarter   string `query:"quarter" json:"quarter" validate:"omitempty,oneof=Q1 Q2 Q3 Q4"`
	Timeframe string `query:"timeframe" json:"timeframe" default:"30"`
	Sentiment string `query:"sentiment" json:"sentiment" validate:"omitempty,oneof=strong_bullish mild_bullish mild_bearish strong_bearish"`
}

type ChannelRequest struct {
	ChannelID string `param:"channel_id" validate:"required"`
}
