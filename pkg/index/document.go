// Package index synthesizes retrievable documents from invoice rows and
// stores them in a vector store for similarity search.
package index

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/jllopis/retailqa/pkg/dataset"
)

// documentNamespace scopes the deterministic document IDs.
var documentNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("retailqa/documents"))

// Document is a free-text rendering of one invoice row plus structured tags.
// Immutable once created.
type Document struct {
	ID       string
	Text     string
	Metadata map[string]interface{}
}

// SynthesizeDocuments renders the first maxRows cleaned records as documents.
// It is a literal prefix of the table, not a sample, so whatever rows sort
// first in the source file dominate retrieval. Deterministic for a given
// table and bound: IDs are derived from row position and invoice number, so
// re-indexing upserts the same points.
func SynthesizeDocuments(table *dataset.Table, maxRows int) []Document {
	if table == nil || maxRows <= 0 {
		return nil
	}

	n := maxRows
	if n > len(table.Records) {
		n = len(table.Records)
	}

	docs := make([]Document, 0, n)
	for i, rec := range table.Records[:n] {
		docs = append(docs, Document{
			ID:   uuid.NewSHA1(documentNamespace, []byte(fmt.Sprintf("%d|%s", i, rec.InvoiceNo))).String(),
			Text: renderText(rec),
			Metadata: map[string]interface{}{
				"country":     rec.Country,
				"month":       rec.YearMonth,
				"revenue":     rec.Revenue,
				"customer_id": rec.CustomerID,
			},
		})
	}
	return docs
}

func renderText(rec dataset.InvoiceRecord) string {
	return fmt.Sprintf(
		"Invoice %s from %s on %s.\n"+
			"Product: %s.\n"+
			"Quantity: %d.\n"+
			"Unit Price: %s.\n"+
			"Revenue: %s.\n"+
			"Customer ID: %d.",
		rec.InvoiceNo,
		rec.Country,
		rec.InvoiceDate.Format("2006-01-02"),
		rec.Description,
		rec.Quantity,
		formatFloat(rec.UnitPrice),
		formatFloat(rec.Revenue),
		rec.CustomerID,
	)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
