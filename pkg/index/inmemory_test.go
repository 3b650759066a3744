package index

import (
	"context"
	"errors"
	"testing"

	qaerrors "github.com/jllopis/retailqa/pkg/errors"
)

func TestInMemoryStoreSearchRanking(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	if err := store.CreateCollection(ctx, "test", 3); err != nil {
		t.Fatalf("CreateCollection failed: %v", err)
	}

	points := []Point{
		{ID: "a", Vector: []float32{1, 0, 0}, Payload: map[string]interface{}{"text": "a"}},
		{ID: "b", Vector: []float32{0.9, 0.1, 0}, Payload: map[string]interface{}{"text": "b"}},
		{ID: "c", Vector: []float32{0, 1, 0}, Payload: map[string]interface{}{"text": "c"}},
	}
	if err := store.Upsert(ctx, "test", points); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	results, err := store.Search(ctx, "test", []float32{1, 0, 0}, 2, 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "a" || results[1].ID != "b" {
		t.Errorf("unexpected ranking: %s, %s", results[0].ID, results[1].ID)
	}
	if results[0].Score < results[1].Score {
		t.Errorf("scores not descending: %v < %v", results[0].Score, results[1].Score)
	}
}

func TestInMemoryStoreUpsertOverwrites(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	p := Point{ID: "a", Vector: []float32{1, 0}, Payload: map[string]interface{}{"v": 1}}
	if err := store.Upsert(ctx, "test", []Point{p}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	p.Payload = map[string]interface{}{"v": 2}
	if err := store.Upsert(ctx, "test", []Point{p}); err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}

	results, err := store.Search(ctx, "test", []float32{1, 0}, 10, 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result after overwrite, got %d", len(results))
	}
	if results[0].Payload["v"] != 2 {
		t.Errorf("expected updated payload, got %v", results[0].Payload["v"])
	}
}

func TestInMemoryStoreMissingCollection(t *testing.T) {
	store := NewInMemoryStore()
	_, err := store.Search(context.Background(), "nope", []float32{1}, 1, 0)
	if err == nil {
		t.Fatalf("expected error for missing collection")
	}
	var qe *qaerrors.QAError
	if !errors.As(err, &qe) || qe.Code != qaerrors.CodeNotFound {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

func TestInMemoryStoreScoreThreshold(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	_ = store.Upsert(ctx, "test", []Point{
		{ID: "near", Vector: []float32{1, 0}},
		{ID: "far", Vector: []float32{-1, 0}},
	})

	results, err := store.Search(ctx, "test", []float32{1, 0}, 10, 0.5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 || results[0].ID != "near" {
		t.Errorf("expected only the near point, got %v", results)
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float32
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"mismatched dims", []float32{1, 0}, []float32{1}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cosineSimilarity(tt.a, tt.b)
			if diff := got - tt.want; diff > 1e-6 || diff < -1e-6 {
				t.Errorf("cosineSimilarity = %v, want %v", got, tt.want)
			}
		})
	}
}
