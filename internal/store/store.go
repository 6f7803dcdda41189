// Package store persists policy documents with vector embeddings in SQLite.
// Similarity search uses the sqlite-vec extension when the binary is built
// with the sqlite_vec tag, and falls back to brute-force cosine scan
// otherwise.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"clauseguard/internal/embedding"
	"clauseguard/internal/logging"
)

// SearchResult is one similarity hit against a policy collection.
type SearchResult struct {
	ID         int64
	Content    string
	SourceType string
	Metadata   map[string]string
	Similarity float64
}

// PolicyStore stores policy documents and serves similarity queries.
type PolicyStore struct {
	db           *sql.DB
	engine       embedding.Engine
	vecAvailable bool
	mu           sync.RWMutex
}

// Open opens (or creates) a policy store at path. Use ":memory:" for tests.
func Open(path string, engine embedding.Engine) (*PolicyStore, error) {
	if engine == nil {
		return nil, fmt.Errorf("embedding engine is required")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &PolicyStore{db: db, engine: engine}
	s.vecAvailable = detectVecExtension(db)

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	logging.Store("Policy store opened: path=%s vec_extension=%t dims=%d", path, s.vecAvailable, engine.Dimensions())
	return s, nil
}

// detectVecExtension probes whether sqlite-vec was loaded into the driver.
func detectVecExtension(db *sql.DB) bool {
	var version string
	if err := db.QueryRow("SELECT vec_version()").Scan(&version); err != nil {
		return false
	}
	logging.Store("sqlite-vec extension available: %s", version)
	return true
}

func (s *PolicyStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS policies (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			collection TEXT NOT NULL,
			content TEXT NOT NULL,
			source_type TEXT NOT NULL,
			metadata TEXT,
			embedding BLOB,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_policies_collection ON policies(collection);
	`)
	if err != nil {
		return fmt.Errorf("failed to create policies table: %w", err)
	}

	if s.vecAvailable {
		stmt := fmt.Sprintf(
			"CREATE VIRTUAL TABLE IF NOT EXISTS vec_policies USING vec0(embedding float[%d])",
			s.engine.Dimensions(),
		)
		if _, err := s.db.Exec(stmt); err != nil {
			logging.Get(logging.CategoryStore).Warn("Failed to create vec0 table, falling back to brute force: %v", err)
			s.vecAvailable = false
		}
	}
	return nil
}

// Insert embeds content and stores it in the given collection.
func (s *PolicyStore) Insert(ctx context.Context, collection, content, sourceType string, metadata map[string]string) error {
	timer := logging.StartTimer(logging.CategoryStore, "Insert")
	defer timer.Stop()

	vec, err := s.engine.Embed(ctx, content)
	if err != nil {
		return fmt.Errorf("failed to embed policy content: %w", err)
	}

	metaJSON, _ := json.Marshal(metadata)

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		"INSERT INTO policies (collection, content, source_type, metadata, embedding) VALUES (?, ?, ?, ?, ?)",
		collection, content, sourceType, string(metaJSON), encodeFloat32Blob(vec),
	)
	if err != nil {
		return fmt.Errorf("failed to insert policy: %w", err)
	}

	if s.vecAvailable {
		rowid, err := res.LastInsertId()
		if err != nil {
			return err
		}
		_, err = s.db.Exec(
			"INSERT INTO vec_policies (rowid, embedding) VALUES (?, ?)",
			rowid, encodeFloat32Blob(vec),
		)
		if err != nil {
			return fmt.Errorf("failed to insert vec index entry: %w", err)
		}
	}

	logging.StoreDebug("Inserted policy: collection=%s type=%s len=%d", collection, sourceType, len(content))
	return nil
}

// Search embeds query and returns the topK most similar documents in the
// collection, sorted by similarity descending. Similarity is 1 - cosine
// distance, in [0, 1] for non-degenerate vectors.
func (s *PolicyStore) Search(ctx context.Context, collection, query string, topK int) ([]SearchResult, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Search")
	defer timer.Stop()

	if topK <= 0 {
		topK = 5
	}

	queryVec, err := s.engine.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.vecAvailable {
		return s.searchVec(collection, queryVec, topK)
	}
	return s.searchBruteForce(collection, queryVec, topK)
}

// searchVec uses the vec0 index for the distance computation.
func (s *PolicyStore) searchVec(collection string, queryVec []float32, topK int) ([]SearchResult, error) {
	rows, err := s.db.Query(`
		SELECT p.id, p.content, p.source_type, p.metadata,
		       vec_distance_cosine(v.embedding, ?) AS distance
		FROM policies p
		JOIN vec_policies v ON v.rowid = p.id
		WHERE p.collection = ?
		ORDER BY distance ASC
		LIMIT ?`,
		encodeFloat32Blob(queryVec), collection, topK,
	)
	if err != nil {
		return nil, fmt.Errorf("vec search failed: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var metaJSON sql.NullString
		var distance float64
		if err := rows.Scan(&r.ID, &r.Content, &r.SourceType, &metaJSON, &distance); err != nil {
			continue
		}
		r.Similarity = 1.0 - distance
		if metaJSON.Valid && metaJSON.String != "" {
			json.Unmarshal([]byte(metaJSON.String), &r.Metadata)
		}
		results = append(results, r)
	}

	logging.StoreDebug("Vec search: collection=%s returned %d results", collection, len(results))
	return results, rows.Err()
}

// searchBruteForce scans every embedding in the collection. Fine for policy
// corpora of a few thousand documents.
func (s *PolicyStore) searchBruteForce(collection string, queryVec []float32, topK int) ([]SearchResult, error) {
	rows, err := s.db.Query(
		"SELECT id, content, source_type, metadata, embedding FROM policies WHERE collection = ? AND embedding IS NOT NULL",
		collection,
	)
	if err != nil {
		return nil, fmt.Errorf("brute-force search failed: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var metaJSON sql.NullString
		var blob []byte
		if err := rows.Scan(&r.ID, &r.Content, &r.SourceType, &metaJSON, &blob); err != nil {
			continue
		}
		vec, err := decodeFloat32Blob(blob)
		if err != nil {
			continue
		}
		sim, err := embedding.CosineSimilarity(queryVec, vec)
		if err != nil {
			continue
		}
		r.Similarity = sim
		if metaJSON.Valid && metaJSON.String != "" {
			json.Unmarshal([]byte(metaJSON.String), &r.Metadata)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > topK {
		results = results[:topK]
	}

	logging.StoreDebug("Brute-force search: collection=%s returned %d results", collection, len(results))
	return results, nil
}

// Count returns the number of documents in a collection.
func (s *PolicyStore) Count(collection string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM policies WHERE collection = ?", collection).Scan(&n)
	return n, err
}

// Collections lists the distinct collections in the store.
func (s *PolicyStore) Collections() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT DISTINCT collection FROM policies ORDER BY collection")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			continue
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Close closes the underlying database.
func (s *PolicyStore) Close() error {
	return s.db.Close()
}
