package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sort"

	_ "modernc.org/sqlite"

	qaerrors "github.com/jllopis/retailqa/pkg/errors"
)

// SQLiteStore persists vectors and payloads in SQLite, so the index survives
// restarts without re-embedding. Search is a linear scan with cosine scoring,
// which matches the bounded index size.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (or creates) the database file and ensures schema.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, qaerrors.New(qaerrors.CodeFileAccess, "cannot open index database", err).
			WithContext("path", path)
	}
	return NewSQLiteStore(db)
}

// NewSQLiteStore wraps an existing database handle and ensures schema.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("db is nil")
	}
	if err := ensureIndexSchema(db); err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func ensureIndexSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS collections (
			name TEXT PRIMARY KEY,
			vector_size INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS points (
			collection TEXT NOT NULL,
			id TEXT NOT NULL,
			vector_json TEXT NOT NULL,
			payload_json TEXT NOT NULL,
			PRIMARY KEY (collection, id)
		);
	`)
	return err
}

// CreateCollection creates a new collection if it doesn't exist.
func (s *SQLiteStore) CreateCollection(ctx context.Context, name string, vectorSize uint64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO collections (name, vector_size) VALUES (?, ?)
		ON CONFLICT(name) DO NOTHING
	`, name, int64(vectorSize))
	return err
}

// Upsert adds or updates points in the vector store.
func (s *SQLiteStore) Upsert(ctx context.Context, collection string, points []Point) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO points (collection, id, vector_json, payload_json) VALUES (?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			vector_json = excluded.vector_json,
			payload_json = excluded.payload_json
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range points {
		vec, err := json.Marshal(p.Vector)
		if err != nil {
			return err
		}
		payload, err := json.Marshal(p.Payload)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, collection, p.ID, string(vec), string(payload)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Search returns the limit nearest points by cosine similarity.
func (s *SQLiteStore) Search(ctx context.Context, collection string, vector []float32, limit int, scoreThreshold float32) ([]SearchResult, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM collections WHERE name = ?`, collection).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, qaerrors.New(qaerrors.CodeNotFound, "collection not found", nil).
			WithContext("collection", collection)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, vector_json, payload_json FROM points WHERE collection = ?`, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var id, vecJSON, payloadJSON string
		if err := rows.Scan(&id, &vecJSON, &payloadJSON); err != nil {
			return nil, err
		}
		var vec []float32
		if err := json.Unmarshal([]byte(vecJSON), &vec); err != nil {
			return nil, err
		}
		score := cosineSimilarity(vector, vec)
		if scoreThreshold > 0 && score < scoreThreshold {
			continue
		}
		var payload map[string]interface{}
		if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
			return nil, err
		}
		results = append(results, SearchResult{ID: id, Score: score, Payload: payload})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Ensure SQLiteStore implements VectorStore.
var _ VectorStore = (*SQLiteStore)(nil)
