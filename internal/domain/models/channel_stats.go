package models

import (
	"sort"
	"time"
)

// MetricsBucket maps a timeframe to its metrics for one period.
type MetricsBucket map[Timeframe]*PeriodMetrics

// TimeBucketIndex maps a period key ("2024" or "2024Q2") to its bucket.
type TimeBucketIndex map[string]MetricsBucket

// Keys returns the period keys sorted newest first.
func (idx TimeBucketIndex) Keys() []string {
	keys := make([]string, 0, len(idx))
	for k := range idx {
		keys = append(keys, k)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	return keys
}

// PartitionIndex is the Yearly/Quarterly pair for one activity partition.
type PartitionIndex struct {
	Yearly    TimeBucketIndex `json:"Yearly"`
	Quarterly TimeBucketIndex `json:"Quarterly"`
}

// IsEmpty reports whether neither index holds a period.
func (p PartitionIndex) IsEmpty() bool { return len(p.Yearly) == 0 && len(p.Quarterly) == 0 }

// Partition selects the overall statistics or one side of the hyperactivity split.
type Partition string

const (
	PartitionOverall     Partition = "overall"
	PartitionHyperactive Partition = "hyperactive"
	PartitionNormal      Partition = "normal"
)

// Partitions lists every partition in display order.
var Partitions = []Partition{PartitionOverall, PartitionHyperactive, PartitionNormal}

// ChannelStats is the full statistics payload for one channel.
type ChannelStats struct {
	ChannelID   string         `json:"channel_id"`
	Overall     PartitionIndex `json:"overall"`
	Hyperactive PartitionIndex `json:"hyperactive"`
	Normal      PartitionIndex `json:"normal"`
	FetchedAt   time.Time      `json:"fetched_at"`
}

// Partition returns the index pair for p. Unknown values select the overall partition.
func (c *ChannelStats) Partition(p Partition) PartitionIndex {
	if c == nil {
		return PartitionIndex{}
	}
	switch p {
	case PartitionHyperactive:
		return c.Hyperactive
	case PartitionNormal:
		return c.Normal
	default:
		return c.Overall
	}
}

// SetPartition replaces the index pair for p.
func (c *ChannelStats) SetPartition(p Partition, idx PartitionIndex) {
	switch p {
	case PartitionHyperactive:
		c.Hyperactive = idx
	case PartitionNormal:
		c.Normal = idx
	default:
		c.Overall = idx
	}
}
