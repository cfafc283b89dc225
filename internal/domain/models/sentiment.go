package models

import "strings"

// Sentiment is the qualitative tag attached to a recommendation.
type Sentiment string

const (
	// SentimentAll selects the aggregate view across every sentiment.
	SentimentAll Sentiment = ""

	StrongBullish Sentiment = "strong_bullish"
	MildBullish   Sentiment = "mild_bullish"
	MildBearish   Sentiment = "mild_bearish"
	StrongBearish Sentiment = "strong_bearish"
)

// Sentiments lists the four partitioned sentiments.
var Sentiments = []Sentiment{StrongBullish, MildBullish, MildBearish, StrongBearish}

var sentimentPrefixes = map[Sentiment]string{
	StrongBullish: "Strong_Bullish_",
	MildBullish:   "Mild_Bullish_",
	MildBearish:   "Mild_Bearish_",
	StrongBearish: "Strong_Bearish_",
}

// Prefix returns the upstream field-name prefix for s, or "" for SentimentAll and unknown values.
func (s Sentiment) Prefix() string { return sentimentPrefixes[s] }

// IsPartition reports whether s is one of the four partitioned sentiments.
func (s Sentiment) IsPartition() bool {
	_, ok := sentimentPrefixes[s]
	return ok
}

// ParseSentiment maps a query value to a Sentiment. Empty input selects the aggregate view.
func ParseSentiment(s string) (Sentiment, bool) {
	v := Sentiment(strings.ToLower(strings.TrimSpace(s)))
	if v == SentimentAll || v.IsPartition() {
		return v, true
	}
	return SentimentAll, false
}

// splitSentimentKey returns the sentiment whose prefix key starts with and the stripped name.
func splitSentimentKey(key string) (Sentiment, string, bool) {
	for _, s := range Sentiments {
		p := sentimentPrefixes[s]
		if strings.HasPrefix(key, p) {
			return s, key[len(p):], true
		}
	}
	return SentimentAll, key, false
}
