package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/mnemo/pkg/model"
)

// Memory is an in-process Repository for tests and local runs. Vector search
// is a linear cosine scan, which matches the degraded-but-correct behavior of
// a collection too small for an approximate index.
type Memory struct {
	mu     sync.RWMutex
	chunks map[string]*model.MemoryChunk
	cache  map[string]*model.EmbeddingCacheEntry
}

// NewMemory creates an in-memory repository
func NewMemory() *Memory {
	return &Memory{
		chunks: make(map[string]*model.MemoryChunk),
		cache:  make(map[string]*model.EmbeddingCacheEntry),
	}
}

func (r *Memory) PutChunk(_ context.Context, chunk *model.MemoryChunk) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *chunk
	r.chunks[chunk.Key()] = &copied
	return nil
}

func (r *Memory) HasChunk(_ context.Context, collection model.Collection, agentID model.AgentID, contentHash string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	chunk := &model.MemoryChunk{Collection: collection, AgentID: agentID, ContentHash: contentHash}
	_, ok := r.chunks[chunk.Key()]
	return ok, nil
}

func (r *Memory) SearchSimilarChunks(_ context.Context, collection model.Collection, agentID model.AgentID, embedding []float32, limit int) ([]*model.MemoryChunk, error) {
	if limit <= 0 {
		return nil, goerr.New("limit must be positive", goerr.V("limit", limit))
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	type scored struct {
		chunk *model.MemoryChunk
		sim   float64
	}

	var candidates []scored
	for _, chunk := range r.chunks {
		if chunk.Collection != collection || chunk.AgentID != agentID {
			continue
		}
		candidates = append(candidates, scored{
			chunk: chunk,
			sim:   model.CosineSimilarity(chunk.Embedding, embedding),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].sim > candidates[j].sim
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	chunks := make([]*model.MemoryChunk, 0, len(candidates))
	for _, c := range candidates {
		copied := *c.chunk
		chunks = append(chunks, &copied)
	}

	return chunks, nil
}

func (r *Memory) ListChunks(_ context.Context, collection model.Collection, agentID model.AgentID) ([]*model.MemoryChunk, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var chunks []*model.MemoryChunk
	for _, chunk := range r.chunks {
		if chunk.Collection != collection || chunk.AgentID != agentID {
			continue
		}
		copied := *chunk
		chunks = append(chunks, &copied)
	}

	sort.Slice(chunks, func(i, j int) bool {
		if chunks[i].DocumentID != chunks[j].DocumentID {
			return chunks[i].DocumentID < chunks[j].DocumentID
		}
		return chunks[i].ChunkIndex < chunks[j].ChunkIndex
	})

	return chunks, nil
}

func (r *Memory) GetEmbedding(_ context.Context, key string) ([]float32, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.cache[key]
	if !ok {
		return nil, goerr.Wrap(ErrCacheMiss, "no cached embedding", goerr.V("key", key))
	}

	return append([]float32(nil), entry.Vector...), nil
}

func (r *Memory) PutEmbedding(_ context.Context, entry *model.EmbeddingCacheEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *entry
	r.cache[entry.Key] = &copied
	return nil
}
