package resolver

import "KOLStats/internal/domain/models"

// Reserved period columns. They have no backing data and never resolve.
const (
	PeriodLast7Days  = "last7days"
	PeriodLast15Days = "last15days"
)

// ReservedPeriods lists the reserved columns in display order.
var ReservedPeriods = []string{PeriodLast7Days, PeriodLast15Days}

// IsReservedPeriod reports whether key is a reserved column.
func IsReservedPeriod(key string) bool {
	return key == PeriodLast7Days || key == PeriodLast15Days
}

// QuarterKey builds the composite Quarterly index key, e.g. "2024"+"Q2".
func QuarterKey(periodKey, quarter string) string { return periodKey + quarter }

// ResolveBucket selects the bucket for periodKey. With a quarter filter the Quarterly
// index is consulted and a missing quarter is never backfilled from Yearly data.
func ResolveBucket(idx models.PartitionIndex, periodKey, quarter string) models.MetricsBucket {
	if IsReservedPeriod(periodKey) {
		return nil
	}
	if quarter != "" {
		return idx.Quarterly[QuarterKey(periodKey, quarter)]
	}
	return idx.Yearly[periodKey]
}
