// Package docstore provides append-oriented access to named memory documents
// over the storage substrate. Appends to the same document are serialized so
// concurrent saves never lose each other's entries.
package docstore

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/mnemo/pkg/adapter"
)

// DocStore reads and appends named documents
type DocStore struct {
	storage adapter.Storage

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a document store over the given storage
func New(storage adapter.Storage) *DocStore {
	return &DocStore{
		storage: storage,
		locks:   make(map[string]*sync.Mutex),
	}
}

// lockFor returns the per-document mutex, creating it on first use
func (s *DocStore) lockFor(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	return lock
}

// Read returns the full content of a document.
// Returns adapter.ErrObjectNotFound when the document does not exist.
func (s *DocStore) Read(ctx context.Context, key string) (string, error) {
	reader, err := s.storage.Get(ctx, key)
	if err != nil {
		return "", err
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return "", goerr.Wrap(err, "failed to read document", goerr.V("key", key))
	}

	return string(data), nil
}

// Exists reports whether a document exists
func (s *DocStore) Exists(ctx context.Context, key string) (bool, error) {
	reader, err := s.storage.Get(ctx, key)
	if err != nil {
		if errors.Is(err, adapter.ErrObjectNotFound) {
			return false, nil
		}
		return false, err
	}
	reader.Close()
	return true, nil
}

// List returns the keys of all documents under a prefix
func (s *DocStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.storage.List(ctx, prefix)
}

// Append adds a block to the end of a document, creating it with the given
// head when absent. Prior content is always preserved.
func (s *DocStore) Append(ctx context.Context, key, head, block string) error {
	lock := s.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	current, err := s.Read(ctx, key)
	if err != nil {
		if !errors.Is(err, adapter.ErrObjectNotFound) {
			return err
		}
		current = head
	}

	return s.write(ctx, key, current+block)
}

// AppendExisting adds a block to a document that must already exist. When the
// document is absent it returns adapter.ErrObjectNotFound and writes nothing.
func (s *DocStore) AppendExisting(ctx context.Context, key, block string) error {
	lock := s.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	current, err := s.Read(ctx, key)
	if err != nil {
		return err
	}

	return s.write(ctx, key, current+block)
}

// Create writes a document with the given content only when it does not yet
// exist; creating an existing document is a no-op.
func (s *DocStore) Create(ctx context.Context, key, content string) (created bool, err error) {
	lock := s.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	exists, err := s.Exists(ctx, key)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	if err := s.write(ctx, key, content); err != nil {
		return false, err
	}
	return true, nil
}

func (s *DocStore) write(ctx context.Context, key, content string) error {
	writer, err := s.storage.Put(ctx, key)
	if err != nil {
		return goerr.Wrap(err, "failed to open document for writing", goerr.V("key", key))
	}

	if _, err := io.Copy(writer, strings.NewReader(content)); err != nil {
		writer.Close()
		return goerr.Wrap(err, "failed to write document", goerr.V("key", key))
	}

	if err := writer.Close(); err != nil {
		return goerr.Wrap(err, "failed to commit document", goerr.V("key", key))
	}

	return nil
}
