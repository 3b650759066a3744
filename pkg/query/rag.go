package query

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	qaerrors "github.com/jllopis/retailqa/pkg/errors"
	"github.com/jllopis/retailqa/pkg/index"
	"github.com/jllopis/retailqa/pkg/llm"
)

// RAGEngine is the semantic path: retrieve the top-K most similar invoice
// documents and ask the model to compose an answer from them.
type RAGEngine struct {
	builder     *index.Builder
	provider    llm.Provider
	model       string
	temperature float64
	topK        int
	logger      *slog.Logger
}

// NewRAGEngine creates the retrieval-augmented query engine.
func NewRAGEngine(builder *index.Builder, provider llm.Provider, model string, temperature float64, topK int, logger *slog.Logger) *RAGEngine {
	if logger == nil {
		logger = slog.Default()
	}
	if topK <= 0 {
		topK = 5
	}
	return &RAGEngine{
		builder:     builder,
		provider:    provider,
		model:       model,
		temperature: temperature,
		topK:        topK,
		logger:      logger,
	}
}

const composePrompt = `You answer questions about retail invoices using only the context records provided.
If the context does not contain the answer, say so instead of guessing.`

// Query retrieves context and composes an answer. Retrieval and composition
// failures surface as recoverable external-service errors.
func (e *RAGEngine) Query(ctx context.Context, question string) (string, error) {
	docs, err := e.builder.Retrieve(ctx, question, e.topK)
	if err != nil {
		return "", err
	}
	e.logger.Debug("retrieved context", "question", question, "documents", len(docs))

	if len(docs) == 0 {
		return "I could not find any invoice records related to that question.", nil
	}

	var b strings.Builder
	for i, doc := range docs {
		fmt.Fprintf(&b, "Record %d (score %.3f):\n%s\n\n", i+1, doc.Score, doc.Document.Text)
	}

	resp, err := e.provider.Chat(ctx, llm.ChatRequest{
		Model:       e.model,
		Temperature: e.temperature,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: composePrompt},
			{Role: llm.RoleUser, Content: "Context:\n\n" + b.String() + "Question: " + question},
		},
	})
	if err != nil {
		return "", qaerrors.New(qaerrors.CodeExternalService, "answer composition failed", err).
			WithContext("question", question)
	}

	return resp.Content, nil
}
