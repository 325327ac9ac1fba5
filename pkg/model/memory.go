package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
)

var ErrInvalidAgentID = goerr.New("invalid agent ID")

// Collection is a logical namespace partitioning chunks
type Collection string

const (
	// CollectionMemory holds chunks indexed from agent memory documents
	CollectionMemory Collection = "memory"

	// CollectionDocument holds chunks indexed from general documents
	CollectionDocument Collection = "document"
)

type AgentID string

// Validate checks that the agent ID is usable as a storage path segment
func (id AgentID) Validate() error {
	s := string(id)
	if s == "" {
		return goerr.Wrap(ErrInvalidAgentID, "agent ID is empty")
	}
	if strings.ContainsAny(s, "/\\ ") || strings.Contains(s, "..") {
		return goerr.Wrap(ErrInvalidAgentID, "agent ID must not contain path separators",
			goerr.V("agent_id", s))
	}
	return nil
}

// MemoryChunk is a retrievable unit of indexed memory. Chunks are created by
// the indexing job and never mutated in place; their identity is
// (Collection, AgentID, ContentHash).
type MemoryChunk struct {
	Content     string             `firestore:"content"`
	ContentHash string             `firestore:"content_hash"`
	Embedding   firestore.Vector32 `firestore:"embedding"`
	Keywords    []string           `firestore:"keywords"`
	Collection  Collection         `firestore:"collection"`
	AgentID     AgentID            `firestore:"agent_id"`
	DocumentID  string             `firestore:"document_id"`
	ChunkIndex  int                `firestore:"chunk_index"`

	// SourceUpdatedAt carries the last-updated timestamp of the source document
	SourceUpdatedAt time.Time `firestore:"source_updated_at"`
	CreatedAt       time.Time `firestore:"created_at"`
}

// Key returns the storage document ID for the chunk. The same content under
// the same scope always maps to the same key, so reindexing is idempotent.
func (c *MemoryChunk) Key() string {
	return fmt.Sprintf("%s:%s:%s", c.AgentID, c.Collection, c.ContentHash)
}

// HashContent returns the SHA-256 hex digest of a chunk's content
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// EmbeddingCacheEntry maps (provider, model, text) to a vector. Entries are
// immutable once written; a different text, provider or model yields a new key.
type EmbeddingCacheEntry struct {
	Key       string             `firestore:"key"`
	Provider  string             `firestore:"provider"`
	Model     string             `firestore:"model"`
	Vector    firestore.Vector32 `firestore:"vector"`
	CreatedAt time.Time          `firestore:"created_at"`
}

// CacheKey returns the content-addressed key for an embedding cache entry
func CacheKey(provider, model, text string) string {
	sum := sha256.Sum256([]byte(provider + ":" + model + ":" + text))
	return hex.EncodeToString(sum[:])
}

// CosineSimilarity computes the cosine of the angle between two vectors.
// Returns 0 when the vectors differ in dimension or either is zero.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
