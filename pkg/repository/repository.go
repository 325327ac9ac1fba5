package repository

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/mnemo/pkg/model"
)

// ErrCacheMiss is returned by GetEmbedding when no entry exists for the key
var ErrCacheMiss = goerr.New("embedding cache miss")

// Repository defines persistence for memory chunks and the embedding cache
type Repository interface {
	// PutChunk upserts a chunk under its content-derived key
	PutChunk(ctx context.Context, chunk *model.MemoryChunk) error

	// HasChunk reports whether a chunk with the given content hash already
	// exists in the (collection, agent) scope
	HasChunk(ctx context.Context, collection model.Collection, agentID model.AgentID, contentHash string) (bool, error)

	// SearchSimilarChunks returns nearest-first candidates for the vector
	// within the (collection, agent) scope. Implementations may over-fetch;
	// the caller applies the similarity threshold.
	SearchSimilarChunks(ctx context.Context, collection model.Collection, agentID model.AgentID, embedding []float32, limit int) ([]*model.MemoryChunk, error)

	// ListChunks returns all chunks in the (collection, agent) scope
	ListChunks(ctx context.Context, collection model.Collection, agentID model.AgentID) ([]*model.MemoryChunk, error)

	// GetEmbedding returns the cached vector for a key, or ErrCacheMiss
	GetEmbedding(ctx context.Context, key string) ([]float32, error)

	// PutEmbedding upserts a cache entry; last write wins
	PutEmbedding(ctx context.Context, entry *model.EmbeddingCacheEntry) error
}
