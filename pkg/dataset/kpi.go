package dataset

import "sort"

// MonthRevenue is one entry of the monthly revenue series.
type MonthRevenue struct {
	Month   string
	Revenue float64
}

// KPISummary is a read-only aggregate snapshot computed once per run.
type KPISummary struct {
	TotalRevenue      float64
	TopCountry        string
	TopCountryRevenue float64
	MonthlyRevenue    []MonthRevenue // ascending by month key

	// HasData is false when the cleaned table was empty, in which case
	// TopCountry is undefined.
	HasData bool
}

// ComputeKPIs aggregates the cleaned table. Pure function of its input.
// Top-country ties break in favor of the country encountered first in input
// order.
func ComputeKPIs(table *Table) KPISummary {
	summary := KPISummary{}
	if table == nil || len(table.Records) == 0 {
		return summary
	}
	summary.HasData = true

	byCountry := make(map[string]float64)
	var countryOrder []string
	byMonth := make(map[string]float64)

	for _, rec := range table.Records {
		summary.TotalRevenue += rec.Revenue
		if _, seen := byCountry[rec.Country]; !seen {
			countryOrder = append(countryOrder, rec.Country)
		}
		byCountry[rec.Country] += rec.Revenue
		byMonth[rec.YearMonth] += rec.Revenue
	}

	for i, country := range countryOrder {
		if revenue := byCountry[country]; i == 0 || revenue > summary.TopCountryRevenue {
			summary.TopCountry = country
			summary.TopCountryRevenue = revenue
		}
	}

	months := make([]string, 0, len(byMonth))
	for month := range byMonth {
		months = append(months, month)
	}
	sort.Strings(months)
	for _, month := range months {
		summary.MonthlyRevenue = append(summary.MonthlyRevenue, MonthRevenue{
			Month:   month,
			Revenue: byMonth[month],
		})
	}

	return summary
}
