// Package embedding provides a content-addressed cache over an embedding
// provider. Each unique (provider, model, text) tuple is embedded at most once
// over the cache's lifetime; everything after the first call is a repository
// read.
package embedding

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/mnemo/pkg/adapter"
	"github.com/m-mizutani/mnemo/pkg/model"
	"github.com/m-mizutani/mnemo/pkg/repository"
	"github.com/m-mizutani/mnemo/pkg/utils/logging"
)

const defaultEmbedTimeout = 30 * time.Second

// Cache resolves text to vectors through the repository-backed cache
type Cache struct {
	repo     repository.Repository
	embedder adapter.Embedder
	timeout  time.Duration
}

type Option func(*Cache)

// WithTimeout bounds each provider call
func WithTimeout(d time.Duration) Option {
	return func(c *Cache) {
		c.timeout = d
	}
}

// New creates a cache bound to one repository and one embedder
func New(repo repository.Repository, embedder adapter.Embedder, opts ...Option) *Cache {
	c := &Cache{
		repo:     repo,
		embedder: embedder,
		timeout:  defaultEmbedTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Provider returns the active provider name
func (c *Cache) Provider() string {
	return c.embedder.Provider()
}

// Model returns the active embedding model name
func (c *Cache) Model() string {
	return c.embedder.Model()
}

// Resolve returns the vector for the text, calling the provider only on a
// cache miss. Concurrent misses for the same key may both call the provider;
// the upsert by key keeps the cache consistent either way.
func (c *Cache) Resolve(ctx context.Context, text string) ([]float32, error) {
	key := model.CacheKey(c.embedder.Provider(), c.embedder.Model(), text)

	vector, err := c.repo.GetEmbedding(ctx, key)
	if err == nil {
		return vector, nil
	}
	if !errors.Is(err, repository.ErrCacheMiss) {
		return nil, goerr.Wrap(err, "failed to look up embedding cache")
	}

	embedCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	vector, err = c.embedder.Embed(embedCtx, text)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed text",
			goerr.V("provider", c.embedder.Provider()),
			goerr.V("model", c.embedder.Model()))
	}

	entry := &model.EmbeddingCacheEntry{
		Key:       key,
		Provider:  c.embedder.Provider(),
		Model:     c.embedder.Model(),
		Vector:    vector,
		CreatedAt: time.Now(),
	}
	if err := c.repo.PutEmbedding(ctx, entry); err != nil {
		// The vector is still valid; the next resolve just misses again
		logging.From(ctx).Warn("failed to store embedding cache entry",
			"error", err, "key", key)
	}

	return vector, nil
}
