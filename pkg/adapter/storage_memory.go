package adapter

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/m-mizutani/goerr/v2"
)

// memoryStorage is an in-process Storage for tests and local runs
type memoryStorage struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryStorage creates an in-memory document store
func NewMemoryStorage() Storage {
	return &memoryStorage{
		objects: make(map[string][]byte),
	}
}

func (s *memoryStorage) Get(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.objects[key]
	if !ok {
		return nil, goerr.Wrap(ErrObjectNotFound, "no such object", goerr.V("key", key))
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memoryStorage) Put(_ context.Context, key string) (io.WriteCloser, error) {
	return &memoryWriter{store: s, key: key}, nil
}

func (s *memoryStorage) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for key := range s.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	return keys, nil
}

// memoryWriter commits the buffered object on Close, mirroring the
// write-then-commit behavior of Cloud Storage writers.
type memoryWriter struct {
	store *memoryStorage
	key   string
	buf   bytes.Buffer
}

func (w *memoryWriter) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *memoryWriter) Close() error {
	w.store.mu.Lock()
	defer w.store.mu.Unlock()
	w.store.objects[w.key] = append([]byte(nil), w.buf.Bytes()...)
	return nil
}
