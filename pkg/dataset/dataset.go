// Package dataset loads the retail invoice spreadsheet, applies the cleaning
// rules and derives the per-row features the rest of the system consumes.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	qaerrors "github.com/jllopis/retailqa/pkg/errors"
)

// Required source columns, by exact header name.
const (
	ColInvoiceNo   = "InvoiceNo"
	ColCountry     = "Country"
	ColInvoiceDate = "InvoiceDate"
	ColDescription = "Description"
	ColQuantity    = "Quantity"
	ColUnitPrice   = "UnitPrice"
	ColCustomerID  = "CustomerID"
)

// cancellationMarker prefixes invoice numbers of cancelled orders.
const cancellationMarker = "C"

var requiredColumns = []string{
	ColInvoiceNo, ColCountry, ColInvoiceDate, ColDescription,
	ColQuantity, ColUnitPrice, ColCustomerID,
}

// InvoiceRecord is one cleaned row of the source spreadsheet.
// Revenue and YearMonth are derived during loading and are always consistent
// with Quantity, UnitPrice and InvoiceDate.
type InvoiceRecord struct {
	InvoiceNo   string
	Country     string
	InvoiceDate time.Time
	Description string
	Quantity    int
	UnitPrice   float64
	CustomerID  int

	Revenue   float64
	YearMonth string // "YYYY-MM", sorts in calendar order
}

// Table is the cleaned, ordered invoice dataset. It is built once at load
// time and never mutated afterwards.
type Table struct {
	Records []InvoiceRecord

	// Skipped counts rows excluded for unparseable numeric/date cells,
	// as opposed to rows dropped by the cleaning rules.
	Skipped int
}

// Load reads the spreadsheet at path, validates its schema and returns the
// cleaned table. Format is decided by extension: .csv is read as CSV,
// anything else through excelize. A missing or unreadable file yields a
// FILE_ACCESS error, a missing column a SCHEMA_ERROR; individual rows that
// fail coercion are skipped and counted.
func Load(path string) (*Table, error) {
	return LoadFormat(path, "")
}

// LoadFormat is Load with an explicit format override ("xlsx" or "csv").
func LoadFormat(path, format string) (*Table, error) {
	if format == "" {
		if strings.EqualFold(filepath.Ext(path), ".csv") {
			format = "csv"
		} else {
			format = "xlsx"
		}
	}

	var (
		rows [][]string
		err  error
	)
	switch format {
	case "csv":
		rows, err = readCSVRows(path)
	case "xlsx":
		rows, err = readXLSXRows(path)
	default:
		return nil, qaerrors.New(qaerrors.CodeInvalidInput,
			fmt.Sprintf("unsupported data format %q", format), nil)
	}
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, qaerrors.New(qaerrors.CodeSchema, "source has no header row", nil).
			WithContext("path", path)
	}

	cols, err := mapColumns(rows[0])
	if err != nil {
		return nil, qaerrors.AsQAError(err).WithContext("path", path)
	}

	table := &Table{}
	for _, row := range rows[1:] {
		rec, ok, parseErr := buildRecord(row, cols)
		if parseErr != nil {
			table.Skipped++
			continue
		}
		if ok {
			table.Records = append(table.Records, rec)
		}
	}

	if table.Skipped > 0 {
		slog.Warn("skipped unparseable rows", "path", path, "skipped", table.Skipped)
	}

	return table, nil
}

// buildRecord coerces one raw row. The bool result reports whether the row
// survives the cleaning rules; a non-nil error means the row is unparseable
// and counts as skipped.
func buildRecord(row []string, cols map[string]int) (InvoiceRecord, bool, error) {
	cell := func(name string) string {
		i := cols[name]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	invoiceNo := cell(ColInvoiceNo)

	// Cancellation marker check happens before any coercion so cancelled
	// rows never count as parse failures.
	if strings.HasPrefix(invoiceNo, cancellationMarker) {
		return InvoiceRecord{}, false, nil
	}

	customerRaw := cell(ColCustomerID)
	if customerRaw == "" {
		return InvoiceRecord{}, false, nil
	}

	quantity, err := parseInt(cell(ColQuantity))
	if err != nil {
		return InvoiceRecord{}, false, qaerrors.New(qaerrors.CodeRowParse, "bad quantity", err)
	}
	if quantity <= 0 {
		return InvoiceRecord{}, false, nil
	}

	customerID, err := parseInt(customerRaw)
	if err != nil {
		return InvoiceRecord{}, false, qaerrors.New(qaerrors.CodeRowParse, "bad customer id", err)
	}

	unitPrice, err := strconv.ParseFloat(cell(ColUnitPrice), 64)
	if err != nil {
		return InvoiceRecord{}, false, qaerrors.New(qaerrors.CodeRowParse, "bad unit price", err)
	}

	invoiceDate, err := parseTimestamp(cell(ColInvoiceDate))
	if err != nil {
		return InvoiceRecord{}, false, qaerrors.New(qaerrors.CodeRowParse, "bad invoice date", err)
	}

	rec := InvoiceRecord{
		InvoiceNo:   invoiceNo,
		Country:     cell(ColCountry),
		InvoiceDate: invoiceDate,
		Description: cell(ColDescription),
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		CustomerID:  customerID,
	}
	rec.Revenue = float64(rec.Quantity) * rec.UnitPrice
	rec.YearMonth = rec.InvoiceDate.Format("2006-01")

	return rec, true, nil
}

func mapColumns(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, qaerrors.New(qaerrors.CodeSchema,
				fmt.Sprintf("required column %q is missing", name), nil)
		}
	}
	return cols, nil
}

func readXLSXRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, qaerrors.New(qaerrors.CodeFileAccess, "cannot open spreadsheet", err).
			WithContext("path", path)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, qaerrors.New(qaerrors.CodeSchema, "workbook has no sheets", nil).
			WithContext("path", path)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, qaerrors.New(qaerrors.CodeSchema, "cannot read sheet rows", err).
			WithContext("sheet", sheets[0])
	}
	return rows, nil
}

func readCSVRows(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, qaerrors.New(qaerrors.CodeFileAccess, "cannot open csv", err).
			WithContext("path", path)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, qaerrors.New(qaerrors.CodeSchema, "malformed csv", err).
				WithContext("path", path)
		}
		rows = append(rows, record)
	}
	return rows, nil
}

// parseInt accepts plain integers plus float renderings like "17850.0" that
// spreadsheet tools produce for numeric cells.
func parseInt(s string) (int, error) {
	if v, err := strconv.Atoi(s); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%q is not an integer", s)
	}
	return int(f), nil
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"1/2/06 15:04",
	"01/02/2006 15:04:05",
	"1/2/2006 15:04",
}

// parseTimestamp tries the known cell layouts, then falls back to an Excel
// serial date number.
func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
