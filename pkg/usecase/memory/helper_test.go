package memory_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/mnemo/pkg/adapter"
	"github.com/m-mizutani/mnemo/pkg/repository"
	"github.com/m-mizutani/mnemo/pkg/service/docstore"
	"github.com/m-mizutani/mnemo/pkg/service/embedding"
	"github.com/m-mizutani/mnemo/pkg/service/index"
	"github.com/m-mizutani/mnemo/pkg/service/queue"
	"github.com/m-mizutani/mnemo/pkg/usecase/memory"
)

// wordVocab spans the topics used across these tests. Texts sharing a topic
// word embed close together; unrelated texts embed nearly orthogonal.
var wordVocab = []string{"dark", "mode", "deploy", "thursday", "lunch", "sandwich"}

type fakeEmbedder struct {
	mu   sync.Mutex
	fail bool
}

func (e *fakeEmbedder) Provider() string { return "fake" }
func (e *fakeEmbedder) Model() string    { return "fake-embed-1" }

func (e *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fail {
		return nil, errors.New("embedding backend unavailable")
	}

	lower := strings.ToLower(text)
	v := make([]float32, len(wordVocab)+1)
	for i, word := range wordVocab {
		if strings.Contains(lower, word) {
			v[i] = 1
		}
	}
	// Bias keeps every vector non-zero
	v[len(wordVocab)] = 0.1
	return v, nil
}

// testEnv assembles the full save/recall pipeline on in-process backends
type testEnv struct {
	uc       *memory.UseCase
	docs     *docstore.DocStore
	repo     *repository.Memory
	queue    *queue.Queue
	embedder *fakeEmbedder

	clock time.Time
}

func newTestEnv(t *testing.T, cfg memory.Config) *testEnv {
	t.Helper()

	env := &testEnv{
		repo:     repository.NewMemory(),
		embedder: &fakeEmbedder{},
		docs:     docstore.New(adapter.NewMemoryStorage()),
		clock:    time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC),
	}

	cache := embedding.New(env.repo, env.embedder)
	indexer := index.New(env.repo, cache, index.WithMaxChunkChars(cfg.MaxChunkChars))

	env.queue = queue.New(queue.WithWorkers(1), queue.WithRetryPolicy(queue.RetryPolicy{
		MaxAttempts:    2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
	}))
	env.queue.Start(context.Background())
	t.Cleanup(env.queue.Stop)

	env.uc = memory.New(env.docs, indexer, env.queue, cfg,
		memory.WithClock(func() time.Time { return env.clock }))
	return env
}

// drain waits until every enqueued indexing job has run
func (e *testEnv) drain() {
	e.queue.Stop()
}
