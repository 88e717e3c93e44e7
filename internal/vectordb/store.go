package vectordb

import "context"

// Chunk is a unit of tenant knowledge with its precomputed embedding.
type Chunk struct {
	ID        string
	BotID     string
	SourceID  string
	Text      string
	Embedding []float32
}

// ScoredChunk is a search hit. Similarity is in [0,1].
type ScoredChunk struct {
	ID         string  `json:"id"`
	SourceID   string  `json:"source_id,omitempty"`
	Text       string  `json:"chunk_text"`
	Similarity float64 `json:"similarity"`
}

// KnowledgeStore answers similarity queries over one bot's knowledge.
type KnowledgeStore interface {
	// Search returns up to k chunks belonging to botID, most similar first.
	Search(ctx context.Context, botID string, vector []float32, k int) ([]ScoredChunk, error)
}
