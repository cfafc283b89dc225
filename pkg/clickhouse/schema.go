package clickhouse

import "fmt"

// ChannelPeriodMetricsSchema returns the DDL for the long-format channel statistics table.
// One row holds one flat field of one (partition, granularity, period, timeframe) cell.
func ChannelPeriodMetricsSchema(database, table string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
	channel_id  String,
	partition   LowCardinality(String),
	granularity LowCardinality(String),
	period_key  String,
	timeframe   LowCardinality(String),
	field       String,
	value       Nullable(Float64),
	updated_at  DateTime64(3) DEFAULT now64(3)
) ENGINE = ReplacingMergeTree(updated_at)
ORDER BY (channel_id, partition, granularity, period_key, timeframe, field)`, database, table),
	}
}
