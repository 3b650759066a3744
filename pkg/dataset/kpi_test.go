package dataset

import (
	"math"
	"sort"
	"testing"
	"time"
)

func record(invoice, country, month string, qty int, price float64) InvoiceRecord {
	date, _ := time.Parse("2006-01", month)
	rec := InvoiceRecord{
		InvoiceNo:   invoice,
		Country:     country,
		InvoiceDate: date,
		Quantity:    qty,
		UnitPrice:   price,
		CustomerID:  10000,
	}
	rec.Revenue = float64(qty) * price
	rec.YearMonth = month
	return rec
}

func TestComputeKPIsEmpty(t *testing.T) {
	summary := ComputeKPIs(&Table{})
	if summary.HasData {
		t.Errorf("expected HasData=false on empty table")
	}
	if summary.TotalRevenue != 0 {
		t.Errorf("expected total revenue 0, got %v", summary.TotalRevenue)
	}
	if summary.TopCountry != "" {
		t.Errorf("expected no top country, got %q", summary.TopCountry)
	}

	summary = ComputeKPIs(nil)
	if summary.HasData {
		t.Errorf("expected HasData=false on nil table")
	}
}

func TestComputeKPIsTotalRevenue(t *testing.T) {
	table := &Table{Records: []InvoiceRecord{
		record("1", "United Kingdom", "2010-12", 6, 2.55),
		record("2", "France", "2011-01", 3, 3.39),
	}}

	summary := ComputeKPIs(table)
	want := 6*2.55 + 3*3.39
	if math.Abs(summary.TotalRevenue-want) > 1e-9 {
		t.Errorf("expected total revenue %v, got %v", want, summary.TotalRevenue)
	}
	if !summary.HasData {
		t.Errorf("expected HasData=true")
	}
}

func TestComputeKPIsTopCountryTieBreak(t *testing.T) {
	// France and Germany tie; France appears first in input order.
	table := &Table{Records: []InvoiceRecord{
		record("1", "France", "2011-01", 2, 5.0),
		record("2", "Germany", "2011-01", 5, 2.0),
		record("3", "Spain", "2011-02", 1, 1.0),
	}}

	summary := ComputeKPIs(table)
	if summary.TopCountry != "France" {
		t.Errorf("expected tie to break to France, got %s", summary.TopCountry)
	}
	if summary.TopCountryRevenue != 10.0 {
		t.Errorf("expected top revenue 10.0, got %v", summary.TopCountryRevenue)
	}
}

func TestComputeKPIsTopCountry(t *testing.T) {
	table := &Table{Records: []InvoiceRecord{
		record("1", "Spain", "2011-01", 1, 1.0),
		record("2", "Portugal", "2011-01", 9, 9.0),
		record("3", "Spain", "2011-02", 2, 2.0),
	}}

	summary := ComputeKPIs(table)
	if summary.TopCountry != "Portugal" {
		t.Errorf("expected Portugal, got %s", summary.TopCountry)
	}
}

func TestComputeKPIsMonthlyOrder(t *testing.T) {
	table := &Table{Records: []InvoiceRecord{
		record("1", "Spain", "2011-03", 1, 1.0),
		record("2", "Spain", "2010-12", 1, 2.0),
		record("3", "Spain", "2011-01", 1, 3.0),
		record("4", "Spain", "2010-12", 1, 4.0),
	}}

	summary := ComputeKPIs(table)
	months := make([]string, len(summary.MonthlyRevenue))
	for i, mr := range summary.MonthlyRevenue {
		months[i] = mr.Month
	}
	if !sort.StringsAreSorted(months) {
		t.Errorf("expected ascending months, got %v", months)
	}
	if len(months) != 3 || months[0] != "2010-12" || months[2] != "2011-03" {
		t.Errorf("unexpected month keys %v", months)
	}
	if summary.MonthlyRevenue[0].Revenue != 6.0 {
		t.Errorf("expected 2010-12 revenue 6.0, got %v", summary.MonthlyRevenue[0].Revenue)
	}
}
