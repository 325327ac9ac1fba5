// Package index turns documents into retrievable memory chunks and answers
// ranked similarity queries over them.
package index

import (
	"context"
	"sort"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/mnemo/pkg/model"
	"github.com/m-mizutani/mnemo/pkg/repository"
	"github.com/m-mizutani/mnemo/pkg/service/embedding"
	"github.com/m-mizutani/mnemo/pkg/utils/logging"
)

const (
	defaultMaxChunkChars = 1200

	// candidateFactor over-fetches nearest neighbors so that threshold
	// filtering still leaves enough results
	candidateFactor = 4
)

// Indexer chunks, embeds and persists documents, and searches the result
type Indexer struct {
	repo          repository.Repository
	cache         *embedding.Cache
	maxChunkChars int
}

type Option func(*Indexer)

// WithMaxChunkChars bounds the size of a single chunk
func WithMaxChunkChars(n int) Option {
	return func(x *Indexer) {
		x.maxChunkChars = n
	}
}

// New creates an indexer over the given repository and embedding cache
func New(repo repository.Repository, cache *embedding.Cache, opts ...Option) *Indexer {
	x := &Indexer{
		repo:          repo,
		cache:         cache,
		maxChunkChars: defaultMaxChunkChars,
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// IndexInput identifies a document and the scope its chunks belong to
type IndexInput struct {
	DocumentID string
	Content    string
	Collection model.Collection
	AgentID    model.AgentID
	UpdatedAt  time.Time
}

// Index splits the document into chunks, embeds each through the cache, and
// persists them. Chunks whose content hash already exists in the scope are
// skipped, so reindexing unchanged content writes nothing.
func (x *Indexer) Index(ctx context.Context, input IndexInput) error {
	if err := input.AgentID.Validate(); err != nil {
		return err
	}

	chunks := splitChunks(input.Content, x.maxChunkChars)
	logger := logging.From(ctx)

	for i, content := range chunks {
		hash := model.HashContent(content)

		exists, err := x.repo.HasChunk(ctx, input.Collection, input.AgentID, hash)
		if err != nil {
			return goerr.Wrap(err, "failed to check chunk existence", goerr.V("hash", hash))
		}
		if exists {
			logger.Debug("skipping indexed chunk", "hash", hash, "document_id", input.DocumentID)
			continue
		}

		vector, err := x.cache.Resolve(ctx, content)
		if err != nil {
			return goerr.Wrap(err, "failed to embed chunk",
				goerr.V("document_id", input.DocumentID), goerr.V("chunk_index", i))
		}

		chunk := &model.MemoryChunk{
			Content:         content,
			ContentHash:     hash,
			Embedding:       vector,
			Keywords:        deriveKeywords(content),
			Collection:      input.Collection,
			AgentID:         input.AgentID,
			DocumentID:      input.DocumentID,
			ChunkIndex:      i,
			SourceUpdatedAt: input.UpdatedAt,
			CreatedAt:       time.Now(),
		}
		if err := x.repo.PutChunk(ctx, chunk); err != nil {
			return goerr.Wrap(err, "failed to persist chunk",
				goerr.V("document_id", input.DocumentID), goerr.V("chunk_index", i))
		}
	}

	return nil
}

// SearchInput is a ranked similarity query over one (collection, agent) scope
type SearchInput struct {
	Query         string
	Collection    model.Collection
	AgentID       model.AgentID
	Limit         int
	MinSimilarity float64
}

// SearchResult is one ranked hit
type SearchResult struct {
	Chunk      *model.MemoryChunk
	Similarity float64
}

// SearchOutput carries ranked results. Degraded marks keyword-fallback
// results; that is not an error condition.
type SearchOutput struct {
	Results  []SearchResult
	Degraded bool
}

// Search embeds the query and ranks chunks by cosine similarity, filtered by
// the minimum threshold, ties broken by the most recent source document.
// When the query embedding fails or the vector index yields nothing, it falls
// back to keyword matching.
func (x *Indexer) Search(ctx context.Context, input SearchInput) (*SearchOutput, error) {
	if err := input.AgentID.Validate(); err != nil {
		return nil, err
	}
	if input.Limit <= 0 {
		return nil, goerr.New("limit must be positive", goerr.V("limit", input.Limit))
	}

	logger := logging.From(ctx)

	queryVector, err := x.cache.Resolve(ctx, input.Query)
	if err != nil {
		logger.Warn("query embedding failed, falling back to keyword search", "error", err)
		return x.keywordSearch(ctx, input)
	}

	candidates, err := x.repo.SearchSimilarChunks(ctx, input.Collection, input.AgentID, queryVector, input.Limit*candidateFactor)
	if err != nil {
		logger.Warn("vector search failed, falling back to keyword search", "error", err)
		return x.keywordSearch(ctx, input)
	}
	if len(candidates) == 0 {
		// Nothing materialized in the vector index yet
		return x.keywordSearch(ctx, input)
	}

	var results []SearchResult
	for _, chunk := range candidates {
		// A stored vector of another dimension belongs to a retired
		// embedding model; it cannot be compared and needs a reindex.
		if len(chunk.Embedding) != len(queryVector) {
			logger.Debug("skipping chunk from retired embedding model",
				"hash", chunk.ContentHash, "dimension", len(chunk.Embedding))
			continue
		}

		sim := model.CosineSimilarity(chunk.Embedding, queryVector)
		if sim < input.MinSimilarity {
			continue
		}
		results = append(results, SearchResult{Chunk: chunk, Similarity: sim})
	}

	sortResults(results)
	if len(results) > input.Limit {
		results = results[:input.Limit]
	}

	return &SearchOutput{Results: results}, nil
}

// keywordSearch ranks chunks by keyword overlap with the query. Used when the
// semantic path is unavailable; degraded but correct.
func (x *Indexer) keywordSearch(ctx context.Context, input SearchInput) (*SearchOutput, error) {
	queryKeywords := deriveKeywords(input.Query)

	chunks, err := x.repo.ListChunks(ctx, input.Collection, input.AgentID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list chunks for keyword search")
	}

	var results []SearchResult
	for _, chunk := range chunks {
		score := keywordScore(queryKeywords, chunk.Keywords)
		if score <= 0 {
			continue
		}
		results = append(results, SearchResult{Chunk: chunk, Similarity: score})
	}

	sortResults(results)
	if len(results) > input.Limit {
		results = results[:input.Limit]
	}

	return &SearchOutput{Results: results, Degraded: true}, nil
}

func sortResults(results []SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].Chunk.SourceUpdatedAt.After(results[j].Chunk.SourceUpdatedAt)
	})
}
