package display

import (
	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"KOLStats/internal/domain/models"
)

// Placeholders rendered in place of missing data.
const (
	NoData       = "-"
	NotAvailable = "N/A"
)

// FormatPercent renders v with two fixed decimals, e.g. "70.00%".
func FormatPercent(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2) + "%"
}

// FormatReturn renders a signed return, e.g. "+12.50%" or "-3.10%".
func FormatReturn(v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	if d.IsPositive() {
		return "+" + d.StringFixed(2) + "%"
	}
	return d.StringFixed(2) + "%"
}

// FormatOptionalPercent renders a possibly-missing percentage.
func FormatOptionalPercent(v *float64) string {
	if v == nil {
		return NotAvailable
	}
	return FormatPercent(*v)
}

// FormatCount renders n with thousands separators, e.g. "1,234".
func FormatCount(n int64) string { return humanize.Comma(n) }

// Row formats a resolved overall row and its activity sub-rows.
func Row(overall *models.YearMetrics, hyper, normal *models.ActivityMetrics) models.DisplayRow {
	row := models.DisplayRow{
		TotalRecommendations: NoData,
		WinPercentage:        NoData,
		LossPercentage:       NoData,
		AverageReturn:        NoData,
		WinningTrades:        NoData,
		LosingTrades:         NoData,
		Hyperactivity:        activity(hyper),
		NonHyperactivity:     activity(normal),
	}
	if overall == nil {
		return row
	}
	row.TotalRecommendations = FormatCount(overall.TotalRecommendations)
	row.WinPercentage = FormatPercent(overall.WinPercentage)
	row.LossPercentage = FormatPercent(overall.LossPercentage)
	row.AverageReturn = FormatReturn(overall.AverageReturn)
	row.WinningTrades = FormatCount(overall.WinningTrades)
	row.LosingTrades = FormatCount(overall.LosingTrades)
	return row
}

func activity(a *models.ActivityMetrics) string {
	if a == nil {
		return NotAvailable
	}
	return FormatCount(a.ActivityCount)
}
