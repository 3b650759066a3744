package index

import (
	"strings"
	"testing"
	"time"

	"github.com/jllopis/retailqa/pkg/dataset"
)

func makeTable(n int) *dataset.Table {
	table := &dataset.Table{}
	date, _ := time.Parse("2006-01-02 15:04:05", "2010-12-01 08:26:00")
	for i := 0; i < n; i++ {
		rec := dataset.InvoiceRecord{
			InvoiceNo:   "53636" + string(rune('0'+i%10)),
			Country:     "United Kingdom",
			InvoiceDate: date,
			Description: "WHITE HANGING HEART T-LIGHT HOLDER",
			Quantity:    6,
			UnitPrice:   2.5,
			CustomerID:  17850,
		}
		rec.Revenue = float64(rec.Quantity) * rec.UnitPrice
		rec.YearMonth = rec.InvoiceDate.Format("2006-01")
		table.Records = append(table.Records, rec)
	}
	return table
}

func TestSynthesizeDocumentsBound(t *testing.T) {
	tests := []struct {
		name    string
		records int
		maxRows int
		want    int
	}{
		{"bound below count", 10, 3, 3},
		{"bound above count", 2, 100, 2},
		{"zero bound", 5, 0, 0},
		{"empty table", 0, 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs := SynthesizeDocuments(makeTable(tt.records), tt.maxRows)
			if len(docs) != tt.want {
				t.Errorf("expected %d documents, got %d", tt.want, len(docs))
			}
		})
	}
}

func TestSynthesizeDocumentsPrefixOrder(t *testing.T) {
	table := makeTable(10)
	docs := SynthesizeDocuments(table, 3)

	for i, doc := range docs {
		if !strings.Contains(doc.Text, "Invoice "+table.Records[i].InvoiceNo) {
			t.Errorf("document %d does not correspond to record %d: %q", i, i, doc.Text)
		}
	}
}

func TestSynthesizeDocumentsText(t *testing.T) {
	docs := SynthesizeDocuments(makeTable(1), 1)
	if len(docs) != 1 {
		t.Fatalf("expected 1 document")
	}
	text := docs[0].Text

	for _, want := range []string{
		"Invoice 536360 from United Kingdom on 2010-12-01.",
		"Product: WHITE HANGING HEART T-LIGHT HOLDER.",
		"Quantity: 6.",
		"Unit Price: 2.5.",
		"Revenue: 15.",
		"Customer ID: 17850.",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("text missing %q:\n%s", want, text)
		}
	}
}

func TestSynthesizeDocumentsMetadata(t *testing.T) {
	docs := SynthesizeDocuments(makeTable(1), 1)
	md := docs[0].Metadata

	if md["country"] != "United Kingdom" {
		t.Errorf("expected country metadata, got %v", md["country"])
	}
	if md["month"] != "2010-12" {
		t.Errorf("expected month metadata, got %v", md["month"])
	}
	if md["revenue"] != 15.0 {
		t.Errorf("expected revenue metadata 15.0, got %v", md["revenue"])
	}
	if md["customer_id"] != 17850 {
		t.Errorf("expected customer_id metadata, got %v", md["customer_id"])
	}
}

func TestSynthesizeDocumentsDeterministicIDs(t *testing.T) {
	table := makeTable(5)
	first := SynthesizeDocuments(table, 5)
	second := SynthesizeDocuments(table, 5)

	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("document %d got different IDs across runs", i)
		}
	}
	if first[0].ID == first[1].ID {
		t.Errorf("distinct rows share an ID")
	}
}
