// Package query routes natural-language questions and answers them against
// the cleaned table or the vector index.
package query

import "strings"

// Route is the answering strategy chosen for a question.
type Route string

const (
	// RouteNumeric answers by aggregating the cleaned table.
	RouteNumeric Route = "numeric"
	// RouteSemantic answers by retrieval over indexed documents.
	RouteSemantic Route = "semantic"
)

// DefaultNumericKeywords trigger the numeric path when present anywhere in
// the question.
var DefaultNumericKeywords = []string{"total", "sum", "average", "mean", "highest", "lowest"}

// Router classifies questions by case-insensitive substring match against a
// fixed keyword set. Deliberately dumb: no tokenization, no negation
// handling, so "not the highest" still routes numeric.
type Router struct {
	keywords []string
}

// NewRouter creates a Router with the given keyword set. A nil or empty set
// falls back to DefaultNumericKeywords.
func NewRouter(keywords []string) *Router {
	if len(keywords) == 0 {
		keywords = DefaultNumericKeywords
	}
	lowered := make([]string, len(keywords))
	for i, kw := range keywords {
		lowered[i] = strings.ToLower(kw)
	}
	return &Router{keywords: lowered}
}

// Route classifies the question.
func (r *Router) Route(question string) Route {
	q := strings.ToLower(question)
	for _, kw := range r.keywords {
		if strings.Contains(q, kw) {
			return RouteNumeric
		}
	}
	return RouteSemantic
}
