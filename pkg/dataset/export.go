package dataset

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ExportKPIsXLSX renders the KPI summary as an XLSX workbook and returns its
// bytes, one sheet for the headline numbers and one for the monthly series.
func ExportKPIsXLSX(summary KPISummary) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const summarySheet = "Summary"
	const monthlySheet = "Monthly Revenue"

	// excelize creates "Sheet1" by default; rename it.
	defaultSheet := f.GetSheetName(f.GetActiveSheetIndex())
	if err := f.SetSheetName(defaultSheet, summarySheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	write := func(sheet string, col, row int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheet, cell, v)
	}

	write(summarySheet, 1, 1, "Metric")
	write(summarySheet, 2, 1, "Value")
	write(summarySheet, 1, 2, "Total Revenue")
	write(summarySheet, 2, 2, summary.TotalRevenue)
	write(summarySheet, 1, 3, "Top Country")
	if summary.HasData {
		write(summarySheet, 2, 3, summary.TopCountry)
		write(summarySheet, 1, 4, "Top Country Revenue")
		write(summarySheet, 2, 4, summary.TopCountryRevenue)
	} else {
		write(summarySheet, 2, 3, "no data")
	}

	if _, err := f.NewSheet(monthlySheet); err != nil {
		return nil, fmt.Errorf("create monthly sheet: %w", err)
	}
	write(monthlySheet, 1, 1, "Month")
	write(monthlySheet, 2, 1, "Revenue")
	for i, mr := range summary.MonthlyRevenue {
		write(monthlySheet, 1, i+2, mr.Month)
		write(monthlySheet, 2, i+2, mr.Revenue)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}
