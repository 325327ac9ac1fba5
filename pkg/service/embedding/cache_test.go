package embedding_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/mnemo/pkg/repository"
	"github.com/m-mizutani/mnemo/pkg/service/embedding"
)

type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
	fail  bool
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

	// Deterministic vector derived from the text length
	return []float32{float32(len(text)), 1, 0}, nil
}

func (e *fakeEmbedder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func TestResolveCallsProviderOnce(t *testing.T) {
	ctx := context.Background()
	embedder := &fakeEmbedder{}
	cache := embedding.New(repository.NewMemory(), embedder)

	v1, err := cache.Resolve(ctx, "User prefers dark mode")
	gt.NoError(t, err)
	gt.A(t, v1).Longer(0)

	v2, err := cache.Resolve(ctx, "User prefers dark mode")
	gt.NoError(t, err)
	gt.Equal(t, v1, v2)

	gt.Equal(t, embedder.callCount(), 1)
}

func TestResolveDistinctTexts(t *testing.T) {
	ctx := context.Background()
	embedder := &fakeEmbedder{}
	cache := embedding.New(repository.NewMemory(), embedder)

	_, err := cache.Resolve(ctx, "alpha")
	gt.NoError(t, err)
	_, err = cache.Resolve(ctx, "beta beta")
	gt.NoError(t, err)

	gt.Equal(t, embedder.callCount(), 2)
}

func TestResolveProviderFailure(t *testing.T) {
	ctx := context.Background()
	embedder := &fakeEmbedder{fail: true}
	cache := embedding.New(repository.NewMemory(), embedder)

	_, err := cache.Resolve(ctx, "alpha")
	gt.Error(t, err)
}
