package index_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/mnemo/pkg/model"
	"github.com/m-mizutani/mnemo/pkg/repository"
	"github.com/m-mizutani/mnemo/pkg/service/embedding"
	"github.com/m-mizutani/mnemo/pkg/service/index"
)

type fakeEmbedder struct {
	mu      sync.Mutex
	calls   int
	fail    bool
	vectors map[string][]float32
}

func (e *fakeEmbedder) Provider() string { return "fake" }
func (e *fakeEmbedder) Model() string    { return "fake-embed-1" }

func (e *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.fail {
		return nil, errors.New("embedding backend unavailable")
	}
	if v, ok := e.vectors[text]; ok {
		return v, nil
	}
	return []float32{1, 1, 1}, nil
}

func (e *fakeEmbedder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func newIndexer(embedder *fakeEmbedder, opts ...index.Option) (*index.Indexer, *repository.Memory) {
	repo := repository.NewMemory()
	cache := embedding.New(repo, embedder)
	return index.New(repo, cache, opts...), repo
}

func TestIndexIdempotent(t *testing.T) {
	ctx := context.Background()
	embedder := &fakeEmbedder{}
	indexer, repo := newIndexer(embedder)

	input := index.IndexInput{
		DocumentID: "2026-02-10.md",
		Content:    "First paragraph of memory.\n\nSecond paragraph of memory.",
		Collection: model.CollectionMemory,
		AgentID:    "agent-1",
		UpdatedAt:  time.Now(),
	}
	gt.NoError(t, indexer.Index(ctx, input))

	chunks, err := repo.ListChunks(ctx, model.CollectionMemory, "agent-1")
	gt.NoError(t, err)
	before := len(chunks)
	gt.True(t, before > 0)

	calls := embedder.callCount()

	// Reindexing unchanged content writes nothing and embeds nothing
	gt.NoError(t, indexer.Index(ctx, input))

	chunks, err = repo.ListChunks(ctx, model.CollectionMemory, "agent-1")
	gt.NoError(t, err)
	gt.Equal(t, len(chunks), before)
	gt.Equal(t, embedder.callCount(), calls)
}

func TestIndexChunkBounds(t *testing.T) {
	ctx := context.Background()
	indexer, repo := newIndexer(&fakeEmbedder{}, index.WithMaxChunkChars(40))

	gt.NoError(t, indexer.Index(ctx, index.IndexInput{
		DocumentID: "2026-02-10.md",
		Content:    "alpha paragraph one here\n\nbeta paragraph two here\n\ngamma paragraph three",
		Collection: model.CollectionMemory,
		AgentID:    "agent-1",
		UpdatedAt:  time.Now(),
	}))

	chunks, err := repo.ListChunks(ctx, model.CollectionMemory, "agent-1")
	gt.NoError(t, err)
	gt.A(t, chunks).Longer(1)

	for i, chunk := range chunks {
		gt.Equal(t, chunk.ChunkIndex, i)
		gt.True(t, len([]rune(chunk.Content)) <= 40)
		gt.Equal(t, chunk.ContentHash, model.HashContent(chunk.Content))
		gt.A(t, chunk.Keywords).Longer(0)
	}
}

func TestSearchThresholdAndOrder(t *testing.T) {
	ctx := context.Background()
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"dark mode":                   {1, 0, 0},
		"User prefers dark mode":      {1, 0, 0},
		"Deploys happen on Thursdays": {0.8, 0.6, 0},
		"Lunch was a sandwich":        {0, 1, 0},
	}}
	indexer, _ := newIndexer(embedder)

	docs := []string{"User prefers dark mode", "Deploys happen on Thursdays", "Lunch was a sandwich"}
	for i, content := range docs {
		gt.NoError(t, indexer.Index(ctx, index.IndexInput{
			DocumentID: model.LogDate("2026-02-10").FileName(),
			Content:    content,
			Collection: model.CollectionMemory,
			AgentID:    "agent-1",
			UpdatedAt:  time.Date(2026, 2, 10, 0, i, 0, 0, time.UTC),
		}))
	}

	out, err := indexer.Search(ctx, index.SearchInput{
		Query:         "dark mode",
		Collection:    model.CollectionMemory,
		AgentID:       "agent-1",
		Limit:         10,
		MinSimilarity: 0.5,
	})
	gt.NoError(t, err)
	gt.False(t, out.Degraded)
	gt.A(t, out.Results).Length(2)

	gt.Equal(t, out.Results[0].Chunk.Content, "User prefers dark mode")
	gt.Equal(t, out.Results[1].Chunk.Content, "Deploys happen on Thursdays")
	for _, r := range out.Results {
		gt.True(t, r.Similarity >= 0.5)
	}
}

func TestSearchBelowThresholdReturnsNothing(t *testing.T) {
	ctx := context.Background()
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"dark mode":            {1, 0, 0},
		"Lunch was a sandwich": {0, 1, 0},
	}}
	indexer, _ := newIndexer(embedder)

	gt.NoError(t, indexer.Index(ctx, index.IndexInput{
		DocumentID: "2026-02-10.md",
		Content:    "Lunch was a sandwich",
		Collection: model.CollectionMemory,
		AgentID:    "agent-1",
		UpdatedAt:  time.Now(),
	}))

	out, err := indexer.Search(ctx, index.SearchInput{
		Query:         "dark mode",
		Collection:    model.CollectionMemory,
		AgentID:       "agent-1",
		Limit:         10,
		MinSimilarity: 0.65,
	})
	gt.NoError(t, err)

	// Candidates exist but none clears the threshold; no fallback fires
	gt.False(t, out.Degraded)
	gt.A(t, out.Results).Length(0)
}

func TestSearchTieBreakByRecency(t *testing.T) {
	ctx := context.Background()
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"standup": {1, 0, 0},
	}}
	indexer, repo := newIndexer(embedder)

	older := time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	for _, c := range []*model.MemoryChunk{
		{
			Content: "old standup note", ContentHash: model.HashContent("old standup note"),
			Embedding: []float32{1, 0, 0}, Collection: model.CollectionMemory,
			AgentID: "agent-1", DocumentID: "2026-02-09.md", SourceUpdatedAt: older,
		},
		{
			Content: "new standup note", ContentHash: model.HashContent("new standup note"),
			Embedding: []float32{1, 0, 0}, Collection: model.CollectionMemory,
			AgentID: "agent-1", DocumentID: "2026-02-10.md", SourceUpdatedAt: newer,
		},
	} {
		gt.NoError(t, repo.PutChunk(ctx, c))
	}

	out, err := indexer.Search(ctx, index.SearchInput{
		Query:         "standup",
		Collection:    model.CollectionMemory,
		AgentID:       "agent-1",
		Limit:         10,
		MinSimilarity: 0.5,
	})
	gt.NoError(t, err)
	gt.A(t, out.Results).Length(2)
	gt.Equal(t, out.Results[0].Chunk.Content, "new standup note")
}

func TestSearchSkipsRetiredModelVectors(t *testing.T) {
	ctx := context.Background()
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"standup": {1, 0, 0},
	}}
	indexer, repo := newIndexer(embedder)

	// A vector of another dimension comes from a retired embedding model
	gt.NoError(t, repo.PutChunk(ctx, &model.MemoryChunk{
		Content: "standup note from retired model", ContentHash: model.HashContent("standup note from retired model"),
		Embedding: []float32{1, 0}, Collection: model.CollectionMemory,
		AgentID: "agent-1", DocumentID: "2026-02-08.md", SourceUpdatedAt: time.Now(),
	}))
	gt.NoError(t, repo.PutChunk(ctx, &model.MemoryChunk{
		Content: "standup note", ContentHash: model.HashContent("standup note"),
		Embedding: []float32{1, 0, 0}, Collection: model.CollectionMemory,
		AgentID: "agent-1", DocumentID: "2026-02-10.md", SourceUpdatedAt: time.Now(),
	}))

	out, err := indexer.Search(ctx, index.SearchInput{
		Query:         "standup",
		Collection:    model.CollectionMemory,
		AgentID:       "agent-1",
		Limit:         10,
		MinSimilarity: 0.5,
	})
	gt.NoError(t, err)
	gt.A(t, out.Results).Length(1)
	gt.Equal(t, out.Results[0].Chunk.Content, "standup note")
}

func TestSearchKeywordFallbackOnEmbedFailure(t *testing.T) {
	ctx := context.Background()
	embedder := &fakeEmbedder{}
	indexer, _ := newIndexer(embedder)

	gt.NoError(t, indexer.Index(ctx, index.IndexInput{
		DocumentID: "2026-02-10.md",
		Content:    "Deploy window opens thursday evening",
		Collection: model.CollectionMemory,
		AgentID:    "agent-1",
		UpdatedAt:  time.Now(),
	}))

	embedder.mu.Lock()
	embedder.fail = true
	embedder.mu.Unlock()

	out, err := indexer.Search(ctx, index.SearchInput{
		Query:         "thursday deploy",
		Collection:    model.CollectionMemory,
		AgentID:       "agent-1",
		Limit:         10,
		MinSimilarity: 0.65,
	})
	gt.NoError(t, err)
	gt.True(t, out.Degraded)
	gt.A(t, out.Results).Length(1)
	gt.S(t, out.Results[0].Chunk.Content).Contains("thursday")
}

func TestSearchScopeIsolation(t *testing.T) {
	ctx := context.Background()
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"secret": {1, 0, 0},
	}}
	indexer, repo := newIndexer(embedder)

	gt.NoError(t, repo.PutChunk(ctx, &model.MemoryChunk{
		Content: "secret belonging to another agent", ContentHash: model.HashContent("secret belonging to another agent"),
		Embedding: []float32{1, 0, 0}, Collection: model.CollectionMemory,
		AgentID: "agent-2", DocumentID: "2026-02-10.md", SourceUpdatedAt: time.Now(),
	}))

	out, err := indexer.Search(ctx, index.SearchInput{
		Query:         "secret",
		Collection:    model.CollectionMemory,
		AgentID:       "agent-1",
		Limit:         10,
		MinSimilarity: 0.1,
	})
	gt.NoError(t, err)
	gt.A(t, out.Results).Length(0)
}
