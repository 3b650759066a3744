package llm

import (
	"context"
	"fmt"
	"hash/fnv"
)

// MockProvider is a testing implementation of Provider.
type MockProvider struct {
	Response string
	Err      error
	ChatFunc func(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

func (m *MockProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, req)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return &ChatResponse{
		Content: m.Response,
		Usage: Usage{
			PromptTokens:     10,
			CompletionTokens: 10,
			TotalTokens:      20,
		},
	}, nil
}

// FailingMockProvider always fails.
type FailingMockProvider struct {
	Err error
}

func (f *FailingMockProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if f.Err == nil {
		return nil, fmt.Errorf("mock error")
	}
	return nil, f.Err
}

// MockEmbedder produces deterministic low-dimension vectors from an FNV hash
// of the text. Identical texts embed identically, which is all the index
// tests need.
type MockEmbedder struct {
	Dim int
	Err error
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	dim := m.Dim
	if dim <= 0 {
		dim = 8
	}
	vec := make([]float32, dim)
	h := fnv.New64a()
	for i := range vec {
		h.Write([]byte(text))
		h.Write([]byte{byte(i)})
		vec[i] = float32(h.Sum64()%1000)/500.0 - 1.0
	}
	return vec, nil
}
