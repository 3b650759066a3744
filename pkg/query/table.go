package query

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jllopis/retailqa/pkg/dataset"
	qaerrors "github.com/jllopis/retailqa/pkg/errors"
	"github.com/jllopis/retailqa/pkg/llm"
)

// TableEngine is the numeric path: the LLM translates the question into one
// of a fixed set of aggregation operations, which are then executed locally
// against the cleaned table. The model never sees or produces code.
type TableEngine struct {
	provider    llm.Provider
	model       string
	temperature float64
	table       *dataset.Table
	kpis        dataset.KPISummary
	logger      *slog.Logger
}

// NewTableEngine creates the numeric query engine.
func NewTableEngine(provider llm.Provider, model string, temperature float64, table *dataset.Table, kpis dataset.KPISummary, logger *slog.Logger) *TableEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &TableEngine{
		provider:    provider,
		model:       model,
		temperature: temperature,
		table:       table,
		kpis:        kpis,
		logger:      logger,
	}
}

// aggregationSpec is the constrained operation the LLM may request.
type aggregationSpec struct {
	Op        string `json:"op"`
	Column    string `json:"column,omitempty"`
	Direction string `json:"direction,omitempty"`
}

const translatePrompt = `You translate retail-analytics questions into a single JSON object and nothing else.

The dataset is a table of invoice line items with columns:
InvoiceNo, Country, InvoiceDate, Description, Quantity, UnitPrice, CustomerID, Revenue, YearMonth.

Allowed operations:
{"op": "total_revenue"}
{"op": "top_country"}
{"op": "monthly_revenue"}
{"op": "revenue_by_country"}
{"op": "average", "column": "<Quantity|UnitPrice|Revenue>"}
{"op": "extreme", "column": "<Quantity|UnitPrice|Revenue>", "direction": "<highest|lowest>"}

Reply with exactly one of these JSON objects, choosing the operation that best
answers the question. If none fits, reply {"op": "unsupported"}.`

// Query translates and executes the question. Failures of the translation
// call, or an unusable translation, surface as recoverable external-service
// errors for this question only.
func (e *TableEngine) Query(ctx context.Context, question string) (string, error) {
	resp, err := e.provider.Chat(ctx, llm.ChatRequest{
		Model:       e.model,
		Temperature: e.temperature,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: translatePrompt},
			{Role: llm.RoleUser, Content: question},
		},
	})
	if err != nil {
		return "", qaerrors.New(qaerrors.CodeExternalService, "question translation failed", err).
			WithContext("question", question)
	}

	spec, err := parseSpec(resp.Content)
	if err != nil {
		return "", qaerrors.New(qaerrors.CodeExternalService, "unusable translation", err).
			WithContext("raw", resp.Content)
	}

	e.logger.Debug("numeric query translated", "op", spec.Op, "column", spec.Column, "direction", spec.Direction)
	return e.execute(spec)
}

// parseSpec extracts the JSON object from the model reply, tolerating code
// fences and surrounding prose.
func parseSpec(raw string) (aggregationSpec, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return aggregationSpec{}, fmt.Errorf("no JSON object in reply")
	}
	var spec aggregationSpec
	if err := json.Unmarshal([]byte(raw[start:end+1]), &spec); err != nil {
		return aggregationSpec{}, fmt.Errorf("decode spec: %w", err)
	}
	if spec.Op == "" {
		return aggregationSpec{}, fmt.Errorf("spec has no op")
	}
	return spec, nil
}

func (e *TableEngine) execute(spec aggregationSpec) (string, error) {
	switch spec.Op {
	case "total_revenue":
		return fmt.Sprintf("The total revenue is %.2f.", e.kpis.TotalRevenue), nil

	case "top_country":
		if !e.kpis.HasData {
			return "There is no data to report on.", nil
		}
		return fmt.Sprintf("The country with the highest revenue is %s with %.2f.",
			e.kpis.TopCountry, e.kpis.TopCountryRevenue), nil

	case "monthly_revenue":
		if len(e.kpis.MonthlyRevenue) == 0 {
			return "There is no data to report on.", nil
		}
		var b strings.Builder
		b.WriteString("Monthly revenue:")
		for _, mr := range e.kpis.MonthlyRevenue {
			fmt.Fprintf(&b, "\n  %s: %.2f", mr.Month, mr.Revenue)
		}
		return b.String(), nil

	case "revenue_by_country":
		return e.revenueByCountry()

	case "average":
		return e.average(spec.Column)

	case "extreme":
		return e.extreme(spec.Column, spec.Direction)

	default:
		return "", qaerrors.New(qaerrors.CodeExternalService,
			fmt.Sprintf("unsupported aggregation %q", spec.Op), nil)
	}
}

func (e *TableEngine) revenueByCountry() (string, error) {
	if len(e.table.Records) == 0 {
		return "There is no data to report on.", nil
	}
	byCountry := make(map[string]float64)
	var order []string
	for _, rec := range e.table.Records {
		if _, seen := byCountry[rec.Country]; !seen {
			order = append(order, rec.Country)
		}
		byCountry[rec.Country] += rec.Revenue
	}
	var b strings.Builder
	b.WriteString("Revenue by country:")
	for _, country := range order {
		fmt.Fprintf(&b, "\n  %s: %.2f", country, byCountry[country])
	}
	return b.String(), nil
}

func (e *TableEngine) average(column string) (string, error) {
	if len(e.table.Records) == 0 {
		return "There is no data to report on.", nil
	}
	var sum float64
	for _, rec := range e.table.Records {
		v, err := columnValue(rec, column)
		if err != nil {
			return "", err
		}
		sum += v
	}
	avg := sum / float64(len(e.table.Records))
	return fmt.Sprintf("The average %s is %.2f.", column, avg), nil
}

func (e *TableEngine) extreme(column, direction string) (string, error) {
	if len(e.table.Records) == 0 {
		return "There is no data to report on.", nil
	}
	if direction != "highest" && direction != "lowest" {
		return "", qaerrors.New(qaerrors.CodeExternalService,
			fmt.Sprintf("unsupported direction %q", direction), nil)
	}

	best := e.table.Records[0]
	bestVal, err := columnValue(best, column)
	if err != nil {
		return "", err
	}
	for _, rec := range e.table.Records[1:] {
		v, err := columnValue(rec, column)
		if err != nil {
			return "", err
		}
		if (direction == "highest" && v > bestVal) || (direction == "lowest" && v < bestVal) {
			best, bestVal = rec, v
		}
	}
	return fmt.Sprintf("The %s %s is %.2f, on invoice %s (%s, %s).",
		direction, column, bestVal, best.InvoiceNo, best.Country, best.Description), nil
}

func columnValue(rec dataset.InvoiceRecord, column string) (float64, error) {
	switch column {
	case "Quantity":
		return float64(rec.Quantity), nil
	case "UnitPrice":
		return rec.UnitPrice, nil
	case "Revenue":
		return rec.Revenue, nil
	default:
		return 0, qaerrors.New(qaerrors.CodeExternalService,
			fmt.Sprintf("unsupported column %q", column), nil)
	}
}
