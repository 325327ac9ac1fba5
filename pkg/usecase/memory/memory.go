// Package memory implements the agent memory tools: saving to daily log and
// core memory documents, and recalling by semantic search or by date.
package memory

import (
	"time"

	"github.com/m-mizutani/mnemo/pkg/service/docstore"
	"github.com/m-mizutani/mnemo/pkg/service/index"
	"github.com/m-mizutani/mnemo/pkg/service/queue"
)

// UseCase wires the document store, the indexer and the job queue
type UseCase struct {
	docs    *docstore.DocStore
	indexer *index.Indexer
	queue   *queue.Queue
	config  Config

	now func() time.Time
}

type Option func(*UseCase)

// WithClock replaces the wall clock, for tests
func WithClock(now func() time.Time) Option {
	return func(u *UseCase) {
		u.now = now
	}
}

// New creates the memory use case
func New(docs *docstore.DocStore, indexer *index.Indexer, q *queue.Queue, config Config, opts ...Option) *UseCase {
	u := &UseCase{
		docs:    docs,
		indexer: indexer,
		queue:   q,
		config:  config,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Config returns the active policy
func (u *UseCase) Config() Config {
	return u.config
}
