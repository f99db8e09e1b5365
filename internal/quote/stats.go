package quote

import "github.com/shopspring/decimal"

// Stats is a read-only snapshot derived from a quote collection. It is
// never persisted.
type Stats struct {
	Total          int
	ByStatus       map[Status]int
	TotalValue     decimal.Decimal
	AcceptedValue  decimal.Decimal
	ConversionRate float64 // percentage of closed quotes that were won
}

// ComputeStats folds a quote collection into dashboard counters. The
// input is not mutated. The conversion rate is 0 when no quote has
// closed yet.
func ComputeStats(quotes []*Quote) Stats {
	byStatus := make(map[Status]int, len(AllStatuses))
	for _, st := range AllStatuses {
		byStatus[st] = 0
	}

	var totalValue, acceptedValue decimal.Decimal

	for _, q := range quotes {
		byStatus[q.Status]++

		totalValue = totalValue.Add(q.Totals.Total)

		if q.Status == StatusAccepted || q.Status == StatusConverted {
			acceptedValue = acceptedValue.Add(q.Totals.Total)
		}
	}

	stats := Stats{
		Total:         len(quotes),
		ByStatus:      byStatus,
		TotalValue:    totalValue,
		AcceptedValue: acceptedValue,
	}

	closed := byStatus[StatusAccepted] + byStatus[StatusRejected] + byStatus[StatusConverted]
	if closed > 0 {
		won := byStatus[StatusAccepted] + byStatus[StatusConverted]
		stats.ConversionRate = float64(won) / float64(closed) * 100
	}

	return stats
}
