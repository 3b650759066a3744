package index

import (
	"context"
	"log/slog"

	qaerrors "github.com/jllopis/retailqa/pkg/errors"
	"github.com/jllopis/retailqa/pkg/llm"
)

// Builder embeds documents into a vector store and answers top-K retrieval
// requests. Built once at startup; read-only afterwards.
type Builder struct {
	store      VectorStore
	embedder   llm.Embedder
	collection string
	logger     *slog.Logger
}

// ScoredDocument is a retrieved document with its similarity score.
type ScoredDocument struct {
	Document Document
	Score    float32
}

// NewBuilder creates a Builder over the given store and embedder.
func NewBuilder(store VectorStore, embedder llm.Embedder, collection string, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		store:      store,
		embedder:   embedder,
		collection: collection,
		logger:     logger,
	}
}

// BuildIndex embeds every document and upserts it. The collection dimension
// comes from the first embedding; creation failures are tolerated when a
// probe search shows the collection already exists.
func (b *Builder) BuildIndex(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		b.logger.Warn("no documents to index")
		return nil
	}

	points := make([]Point, 0, len(docs))
	for _, doc := range docs {
		vec, err := b.embedder.Embed(ctx, doc.Text)
		if err != nil {
			return qaerrors.New(qaerrors.CodeExternalService, "embedding failed", err).
				WithContext("document", doc.ID)
		}
		payload := make(map[string]interface{}, len(doc.Metadata)+1)
		for k, v := range doc.Metadata {
			payload[k] = v
		}
		payload["text"] = doc.Text
		points = append(points, Point{ID: doc.ID, Vector: vec, Payload: payload})
	}

	dim := uint64(len(points[0].Vector))
	if err := b.store.CreateCollection(ctx, b.collection, dim); err != nil {
		// Qdrant errors on an existing collection; probe before giving up.
		if _, probeErr := b.store.Search(ctx, b.collection, points[0].Vector, 1, 0); probeErr != nil {
			return qaerrors.New(qaerrors.CodeExternalService, "cannot create collection", err).
				WithContext("collection", b.collection)
		}
	}

	if err := b.store.Upsert(ctx, b.collection, points); err != nil {
		return qaerrors.New(qaerrors.CodeExternalService, "upsert failed", err).
			WithContext("collection", b.collection)
	}

	b.logger.Info("index built", "collection", b.collection, "documents", len(points), "dim", dim)
	return nil
}

// Retrieve embeds the question and returns the topK most similar documents.
func (b *Builder) Retrieve(ctx context.Context, question string, topK int) ([]ScoredDocument, error) {
	vec, err := b.embedder.Embed(ctx, question)
	if err != nil {
		return nil, qaerrors.New(qaerrors.CodeExternalService, "question embedding failed", err)
	}

	results, err := b.store.Search(ctx, b.collection, vec, topK, 0)
	if err != nil {
		return nil, qaerrors.New(qaerrors.CodeExternalService, "vector search failed", err).
			WithContext("collection", b.collection)
	}

	docs := make([]ScoredDocument, 0, len(results))
	for _, r := range results {
		text, _ := r.Payload["text"].(string)
		metadata := make(map[string]interface{}, len(r.Payload))
		for k, v := range r.Payload {
			if k == "text" {
				continue
			}
			metadata[k] = v
		}
		docs = append(docs, ScoredDocument{
			Document: Document{ID: r.ID, Text: text, Metadata: metadata},
			Score:    r.Score,
		})
	}
	return docs, nil
}
