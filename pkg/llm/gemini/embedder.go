// Copyright 2026 © The RetailQA Authors
// SPDX-License-Identifier: Apache-2.0

package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	qaerrors "github.com/jllopis/retailqa/pkg/errors"
	"github.com/jllopis/retailqa/pkg/llm"
)

// Embedder implements llm.Embedder using the Gemini embedding models.
type Embedder struct {
	client *genai.Client
	model  string
}

// NewEmbedder creates an Embedder with the given API key and model.
func NewEmbedder(ctx context.Context, apiKey, model string) (*Embedder, error) {
	if apiKey == "" {
		return nil, qaerrors.New(qaerrors.CodeUnauthorized,
			"gemini api key is not configured", nil)
	}
	if model == "" {
		model = "gemini-embedding-001"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Embedder{client: client, model: model}, nil
}

// Embed converts a text string into a vector.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	contents := []*genai.Content{
		{Parts: []*genai.Part{{Text: text}}},
	}

	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, nil)
	if err != nil {
		return nil, qaerrors.New(qaerrors.CodeExternalService,
			"gemini embedding call failed", err).WithContext("model", e.model)
	}

	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, qaerrors.New(qaerrors.CodeExternalService,
			"gemini returned an empty embedding", nil)
	}

	return resp.Embeddings[0].Values, nil
}

// Ensure Embedder implements llm.Embedder.
var _ llm.Embedder = (*Embedder)(nil)
