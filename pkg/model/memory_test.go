package model_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/mnemo/pkg/model"
)

func TestHashContent(t *testing.T) {
	h1 := model.HashContent("User prefers dark mode")
	h2 := model.HashContent("User prefers dark mode")
	h3 := model.HashContent("User prefers light mode")

	gt.Equal(t, h1, h2)
	gt.Equal(t, len(h1), 64)
	if h1 == h3 {
		t.Error("different content must hash differently")
	}
}

func TestChunkKey(t *testing.T) {
	chunk := &model.MemoryChunk{
		AgentID:     "agent-1",
		Collection:  model.CollectionMemory,
		ContentHash: "abc123",
	}
	gt.Equal(t, chunk.Key(), "agent-1:memory:abc123")
}

func TestCacheKey(t *testing.T) {
	k1 := model.CacheKey("gemini", "gemini-embedding-001", "hello")
	k2 := model.CacheKey("gemini", "gemini-embedding-001", "hello")
	gt.Equal(t, k1, k2)

	// Any component change yields a new key
	if k1 == model.CacheKey("gemini", "gemini-embedding-002", "hello") {
		t.Error("model change must change the cache key")
	}
	if k1 == model.CacheKey("openai", "gemini-embedding-001", "hello") {
		t.Error("provider change must change the cache key")
	}
	if k1 == model.CacheKey("gemini", "gemini-embedding-001", "hello ") {
		t.Error("text change must change the cache key")
	}
}

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{1, 0, 0}
	c := []float32{0, 1, 0}
	d := []float32{-1, 0, 0}

	gt.Equal(t, model.CosineSimilarity(a, b), 1.0)
	gt.Equal(t, model.CosineSimilarity(a, c), 0.0)
	gt.Equal(t, model.CosineSimilarity(a, d), -1.0)

	// Mismatched dimensions and zero vectors yield 0
	gt.Equal(t, model.CosineSimilarity(a, []float32{1, 0}), 0.0)
	gt.Equal(t, model.CosineSimilarity(a, []float32{0, 0, 0}), 0.0)
	gt.Equal(t, model.CosineSimilarity(nil, nil), 0.0)
}
