package index

import (
	"context"
	"sort"
	"sync"

	qaerrors "github.com/jllopis/retailqa/pkg/errors"
)

// InMemoryStore is a brute-force, in-process vector store. It is the default
// backend: the indexed row count is bounded, so a linear cosine scan is fine.
type InMemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]Point
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{collections: make(map[string]map[string]Point)}
}

// CreateCollection creates a new collection if it doesn't exist.
func (s *InMemoryStore) CreateCollection(_ context.Context, name string, _ uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; !ok {
		s.collections[name] = make(map[string]Point)
	}
	return nil
}

// Upsert adds or updates points keyed by ID.
func (s *InMemoryStore) Upsert(_ context.Context, collection string, points []Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	coll, ok := s.collections[collection]
	if !ok {
		coll = make(map[string]Point)
		s.collections[collection] = coll
	}
	for _, p := range points {
		coll[p.ID] = p
	}
	return nil
}

// Search returns the limit nearest points by cosine similarity.
func (s *InMemoryStore) Search(_ context.Context, collection string, vector []float32, limit int, scoreThreshold float32) ([]SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll, ok := s.collections[collection]
	if !ok {
		return nil, qaerrors.New(qaerrors.CodeNotFound, "collection not found", nil).
			WithContext("collection", collection)
	}

	results := make([]SearchResult, 0, len(coll))
	for id, p := range coll {
		score := cosineSimilarity(vector, p.Vector)
		if scoreThreshold > 0 && score < scoreThreshold {
			continue
		}
		results = append(results, SearchResult{ID: id, Score: score, Payload: p.Payload})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Ensure InMemoryStore implements VectorStore.
var _ VectorStore = (*InMemoryStore)(nil)
