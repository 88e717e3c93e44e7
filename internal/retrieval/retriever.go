// Package retrieval finds the knowledge chunks relevant to a user message.
package retrieval

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ziadkadry99/kbchat/internal/embeddings"
	"github.com/ziadkadry99/kbchat/internal/vectordb"
)

// Result is the outcome of one retrieval.
type Result struct {
	Chunks        []vectordb.ScoredChunk
	TopSimilarity float64
}

// Retriever embeds a message and searches a bot's knowledge.
type Retriever struct {
	store vectordb.KnowledgeStore
	log   *zap.Logger
}

// New creates a Retriever over store.
func New(store vectordb.KnowledgeStore, log *zap.Logger) *Retriever {
	return &Retriever{store: store, log: log}
}

// Retrieve embeds message with e and returns up to k of botID's chunks.
// Embedding failures are returned; search failures are logged and yield an
// empty result so the caller can continue with a fallback answer.
func (r *Retriever) Retrieve(ctx context.Context, e embeddings.Embedder, botID, message string, k int) (Result, error) {
	vec, err := embeddings.EmbedOne(ctx, e, message)
	if err != nil {
		return Result{}, fmt.Errorf("embedding message: %w", err)
	}

	chunks, err := r.store.Search(ctx, botID, vec, k)
	if err != nil {
		r.log.Warn("knowledge search failed, continuing without context",
			zap.String("bot_id", botID), zap.Error(err))
		return Result{}, nil
	}
	if len(chunks) > k {
		chunks = chunks[:k]
	}

	return Result{Chunks: chunks, TopSimilarity: TopSimilarity(chunks)}, nil
}

// TopSimilarity returns the highest similarity among chunks, or 0 if none.
func TopSimilarity(chunks []vectordb.ScoredChunk) float64 {
	var top float64
	for _, c := range chunks {
		if c.Similarity > top {
			top = c.Similarity
		}
	}
	return top
}
