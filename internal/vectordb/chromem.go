package vectordb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"
)

const (
	collectionName = "knowledge"
	exportFile     = "chromem.gob.gz"

	metaBotID    = "bot_id"
	metaSourceID = "source_id"
)

var errNoEmbedding = errors.New("knowledge chunks must carry precomputed embeddings")

// ChromemStore implements KnowledgeStore using chromem-go. All bots share one
// collection, partitioned by the bot_id metadata field.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
}

// NewChromemStore creates a new in-memory ChromemStore.
func NewChromemStore() (*ChromemStore, error) {
	db := chromem.NewDB()

	col, err := db.GetOrCreateCollection(collectionName, nil, refuseEmbedding)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &ChromemStore{
		db:         db,
		collection: col,
	}, nil
}

// Vectors are produced by the ingestion pipeline, never by the store itself.
func refuseEmbedding(context.Context, string) ([]float32, error) {
	return nil, errNoEmbedding
}

// AddChunks adds or replaces chunks. Every chunk must have an embedding and
// a bot id.
func (s *ChromemStore) AddChunks(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(chunks))
	for i, c := range chunks {
		if c.BotID == "" {
			return fmt.Errorf("chunk %d: bot id is required", i)
		}
		if len(c.Embedding) == 0 {
			return fmt.Errorf("chunk %d: %w", i, errNoEmbedding)
		}
		id := c.ID
		if id == "" {
			id = uuid.New().String()
		}
		docs[i] = chromem.Document{
			ID:      id,
			Content: c.Text,
			Metadata: map[string]string{
				metaBotID:    c.BotID,
				metaSourceID: c.SourceID,
			},
			Embedding: c.Embedding,
		}
	}

	return s.collection.AddDocuments(ctx, docs, 1)
}

// Search returns up to k of botID's chunks ordered by descending similarity.
func (s *ChromemStore) Search(ctx context.Context, botID string, vector []float32, k int) ([]ScoredChunk, error) {
	if k <= 0 || len(vector) == 0 {
		return nil, nil
	}

	// chromem-go requires nResults <= collection size.
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	n := min(k, count)

	results, err := s.collection.QueryEmbedding(ctx, vector, n, map[string]string{metaBotID: botID}, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}
	if len(results) > k {
		results = results[:k]
	}

	chunks := make([]ScoredChunk, len(results))
	for i, r := range results {
		chunks[i] = ScoredChunk{
			ID:         r.ID,
			SourceID:   r.Metadata[metaSourceID],
			Text:       r.Content,
			Similarity: clampSimilarity(float64(r.Similarity)),
		}
	}
	return chunks, nil
}

// Persist exports the collection to dir.
func (s *ChromemStore) Persist(ctx context.Context, dir string) error {
	return s.db.ExportToFile(filepath.Join(dir, exportFile), true, "")
}

// Load imports a collection previously written by Persist.
func (s *ChromemStore) Load(ctx context.Context, dir string) error {
	err := s.db.ImportFromFile(filepath.Join(dir, exportFile), "")
	if err != nil {
		return fmt.Errorf("import from file: %w", err)
	}

	// Re-acquire collection reference after import.
	col := s.db.GetCollection(collectionName, refuseEmbedding)
	if col == nil {
		return fmt.Errorf("collection %q not found after import", collectionName)
	}
	s.collection = col
	return nil
}

// Count returns the number of chunks across all bots.
func (s *ChromemStore) Count() int {
	return s.collection.Count()
}

// Cosine similarity can dip below zero for opposed vectors.
func clampSimilarity(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
