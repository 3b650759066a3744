package mcpserver

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/xuri/excelize/v2"

	"github.com/jllopis/retailqa/pkg/app"
	"github.com/jllopis/retailqa/pkg/index"
	"github.com/jllopis/retailqa/pkg/llm"
)

func newTestServer(t *testing.T, provider llm.Provider) *Server {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	rows := [][]interface{}{
		{"InvoiceNo", "Country", "InvoiceDate", "Description", "Quantity", "UnitPrice", "CustomerID"},
		{"536365", "United Kingdom", "2010-12-01 08:26:00", "WHITE HANGING HEART T-LIGHT HOLDER", 6, 2.5, 17850},
		{"536366", "France", "2010-12-02 10:03:00", "RED WOOLLY HOTTIE", 4, 2.5, 12583},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		r := row
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			t.Fatalf("write row %d: %v", i, err)
		}
	}
	path := filepath.Join(t.TempDir(), "invoices.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}

	a, err := app.New(context.Background(), provider, &llm.MockEmbedder{Dim: 16}, index.NewInMemoryStore(), app.Options{
		DataPath: path,
		Model:    "test-model",
	})
	if err != nil {
		t.Fatalf("app.New failed: %v", err)
	}
	return New(a, "retailqa-test", "0.0.1")
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatalf("result has no content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", result.Content[0])
	}
	return text.Text
}

func TestAskQuestionTool(t *testing.T) {
	s := newTestServer(t, llm.NewScriptedMockProvider(`{"op": "total_revenue"}`))

	result, err := s.handleAskQuestion(context.Background(), map[string]interface{}{
		"question": "What is the total revenue?",
	})
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}

	var answer app.Answer
	if err := json.Unmarshal([]byte(resultText(t, result)), &answer); err != nil {
		t.Fatalf("decode answer: %v", err)
	}
	if answer.Text != "The total revenue is 25.00." {
		t.Errorf("unexpected answer %q", answer.Text)
	}
	if answer.Evaluation == nil {
		t.Errorf("expected an evaluation in the tool answer")
	}
}

func TestAskQuestionToolRequiresQuestion(t *testing.T) {
	s := newTestServer(t, llm.NewScriptedMockProvider())

	result, err := s.handleAskQuestion(context.Background(), nil)
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if !result.IsError {
		t.Errorf("expected a tool error for a missing question")
	}
}

func TestKPISummaryTool(t *testing.T) {
	s := newTestServer(t, llm.NewScriptedMockProvider())

	result, err := s.handleKPISummary(context.Background(), nil)
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}

	var summary map[string]interface{}
	if err := json.Unmarshal([]byte(resultText(t, result)), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary["total_revenue"] != 25.0 {
		t.Errorf("total_revenue = %v, want 25", summary["total_revenue"])
	}
	if summary["top_country"] != "United Kingdom" {
		t.Errorf("top_country = %v, want United Kingdom", summary["top_country"])
	}
}

func TestRetrieveRowsTool(t *testing.T) {
	s := newTestServer(t, llm.NewScriptedMockProvider())

	result, err := s.handleRetrieveRows(context.Background(), map[string]interface{}{
		"question": "heart shaped t-light holder",
		"top_k":    float64(1),
	})
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}

	var docs []index.ScoredDocument
	if err := json.Unmarshal([]byte(resultText(t, result)), &docs); err != nil {
		t.Fatalf("decode documents: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
	if !strings.Contains(docs[0].Document.Text, "Invoice 536365") &&
		!strings.Contains(docs[0].Document.Text, "Invoice 536366") {
		t.Errorf("unexpected document text %q", docs[0].Document.Text)
	}
}
