package query

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jllopis/retailqa/pkg/dataset"
	qaerrors "github.com/jllopis/retailqa/pkg/errors"
	"github.com/jllopis/retailqa/pkg/llm"
)

func testTable() (*dataset.Table, dataset.KPISummary) {
	date, _ := time.Parse("2006-01-02", "2010-12-01")
	table := &dataset.Table{Records: []dataset.InvoiceRecord{
		{InvoiceNo: "536365", Country: "United Kingdom", InvoiceDate: date, Description: "T-LIGHT HOLDER",
			Quantity: 6, UnitPrice: 2.5, CustomerID: 17850, Revenue: 15.0, YearMonth: "2010-12"},
		{InvoiceNo: "536366", Country: "France", InvoiceDate: date.AddDate(0, 1, 0), Description: "HOTTIE",
			Quantity: 2, UnitPrice: 5.0, CustomerID: 12583, Revenue: 10.0, YearMonth: "2011-01"},
	}}
	return table, dataset.ComputeKPIs(table)
}

func newEngine(provider llm.Provider) *TableEngine {
	table, kpis := testTable()
	return NewTableEngine(provider, "test-model", 0.2, table, kpis, nil)
}

func TestTableEngineTotalRevenue(t *testing.T) {
	provider := llm.NewScriptedMockProvider(`{"op": "total_revenue"}`)
	e := newEngine(provider)

	answer, err := e.Query(context.Background(), "What is the total revenue?")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if !strings.Contains(answer, "25.00") {
		t.Errorf("expected total 25.00 in answer, got %q", answer)
	}

	// The question must reach the translation call.
	if len(provider.Requests) != 1 {
		t.Fatalf("expected 1 chat call, got %d", len(provider.Requests))
	}
	msgs := provider.Requests[0].Messages
	if msgs[len(msgs)-1].Content != "What is the total revenue?" {
		t.Errorf("question not forwarded to translator")
	}
}

func TestTableEngineTopCountry(t *testing.T) {
	e := newEngine(llm.NewScriptedMockProvider(`{"op": "top_country"}`))
	answer, err := e.Query(context.Background(), "highest revenue country")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if !strings.Contains(answer, "United Kingdom") {
		t.Errorf("expected United Kingdom, got %q", answer)
	}
}

func TestTableEngineMonthlyRevenue(t *testing.T) {
	e := newEngine(llm.NewScriptedMockProvider(`{"op": "monthly_revenue"}`))
	answer, err := e.Query(context.Background(), "sum per month")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	dec := strings.Index(answer, "2010-12")
	jan := strings.Index(answer, "2011-01")
	if dec < 0 || jan < 0 || dec > jan {
		t.Errorf("expected months in ascending order, got %q", answer)
	}
}

func TestTableEngineAverage(t *testing.T) {
	e := newEngine(llm.NewScriptedMockProvider(`{"op": "average", "column": "Quantity"}`))
	answer, err := e.Query(context.Background(), "average quantity sold")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if !strings.Contains(answer, "4.00") {
		t.Errorf("expected average 4.00, got %q", answer)
	}
}

func TestTableEngineExtreme(t *testing.T) {
	e := newEngine(llm.NewScriptedMockProvider(`{"op": "extreme", "column": "UnitPrice", "direction": "highest"}`))
	answer, err := e.Query(context.Background(), "highest unit price")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if !strings.Contains(answer, "536366") {
		t.Errorf("expected the France invoice, got %q", answer)
	}
}

func TestTableEngineFencedReply(t *testing.T) {
	e := newEngine(llm.NewScriptedMockProvider("```json\n{\"op\": \"total_revenue\"}\n```"))
	answer, err := e.Query(context.Background(), "total revenue")
	if err != nil {
		t.Fatalf("Query failed on fenced reply: %v", err)
	}
	if !strings.Contains(answer, "25.00") {
		t.Errorf("unexpected answer %q", answer)
	}
}

func TestTableEngineUnsupported(t *testing.T) {
	e := newEngine(llm.NewScriptedMockProvider(`{"op": "unsupported"}`))
	_, err := e.Query(context.Background(), "translate this to klingon, on average")
	if err == nil {
		t.Fatalf("expected error for unsupported op")
	}
	var qe *qaerrors.QAError
	if !errors.As(err, &qe) || qe.Code != qaerrors.CodeExternalService {
		t.Errorf("expected EXTERNAL_SERVICE, got %v", err)
	}
	if !qe.Recoverable {
		t.Errorf("per-question errors must be recoverable")
	}
}

func TestTableEngineGarbageReply(t *testing.T) {
	e := newEngine(llm.NewScriptedMockProvider("I cannot help with that"))
	if _, err := e.Query(context.Background(), "total revenue"); err == nil {
		t.Errorf("expected error for non-JSON reply")
	}
}

func TestTableEngineChatFailure(t *testing.T) {
	e := newEngine(&llm.FailingMockProvider{Err: errors.New("service unavailable")})
	_, err := e.Query(context.Background(), "total revenue")
	if err == nil {
		t.Fatalf("expected error when chat fails")
	}
	var qe *qaerrors.QAError
	if !errors.As(err, &qe) || qe.Code != qaerrors.CodeExternalService {
		t.Errorf("expected EXTERNAL_SERVICE, got %v", err)
	}
}

func TestParseSpec(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantOp  string
		wantErr bool
	}{
		{"bare object", `{"op": "total_revenue"}`, "total_revenue", false},
		{"with prose", `Sure! Here it is: {"op": "average", "column": "Revenue"} Hope that helps.`, "average", false},
		{"no json", "no object here", "", true},
		{"empty op", `{"column": "Revenue"}`, "", true},
		{"broken json", `{"op": `, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := parseSpec(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseSpec failed: %v", err)
			}
			if spec.Op != tt.wantOp {
				t.Errorf("expected op %q, got %q", tt.wantOp, spec.Op)
			}
		})
	}
}
