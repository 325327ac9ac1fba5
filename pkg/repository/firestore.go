package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/mnemo/pkg/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	chunkCollection = "memory_chunks"
	cacheCollection = "embedding_cache"
)

// Firestore implements Repository using Firestore vector search
type Firestore struct {
	client *firestore.Client
}

// New creates a Firestore-backed repository
func New(ctx context.Context, projectID, databaseID string) (*Firestore, error) {
	if projectID == "" {
		return nil, goerr.New("project ID is required")
	}
	if databaseID == "" {
		return nil, goerr.New("database ID is required")
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client")
	}

	return &Firestore{client: client}, nil
}

// Close releases the underlying client
func (r *Firestore) Close() error {
	return r.client.Close()
}

func (r *Firestore) PutChunk(ctx context.Context, chunk *model.MemoryChunk) error {
	if _, err := r.client.Collection(chunkCollection).Doc(chunk.Key()).Set(ctx, chunk); err != nil {
		return goerr.Wrap(err, "failed to put chunk", goerr.V("key", chunk.Key()))
	}
	return nil
}

func (r *Firestore) HasChunk(ctx context.Context, collection model.Collection, agentID model.AgentID, contentHash string) (bool, error) {
	chunk := &model.MemoryChunk{Collection: collection, AgentID: agentID, ContentHash: contentHash}

	_, err := r.client.Collection(chunkCollection).Doc(chunk.Key()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return false, nil
		}
		return false, goerr.Wrap(err, "failed to get chunk", goerr.V("key", chunk.Key()))
	}

	return true, nil
}

func (r *Firestore) SearchSimilarChunks(ctx context.Context, collection model.Collection, agentID model.AgentID, embedding []float32, limit int) ([]*model.MemoryChunk, error) {
	query := r.client.Collection(chunkCollection).
		Where("collection", "==", string(collection)).
		Where("agent_id", "==", string(agentID)).
		FindNearest("embedding", firestore.Vector32(embedding), limit, firestore.DistanceMeasureCosine, nil)

	iter := query.Documents(ctx)
	defer iter.Stop()

	var chunks []*model.MemoryChunk
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to run vector search",
				goerr.V("collection", collection), goerr.V("agent_id", agentID))
		}

		var chunk model.MemoryChunk
		if err := doc.DataTo(&chunk); err != nil {
			return nil, goerr.Wrap(err, "failed to decode chunk", goerr.V("doc", doc.Ref.ID))
		}
		chunks = append(chunks, &chunk)
	}

	return chunks, nil
}

func (r *Firestore) ListChunks(ctx context.Context, collection model.Collection, agentID model.AgentID) ([]*model.MemoryChunk, error) {
	iter := r.client.Collection(chunkCollection).
		Where("collection", "==", string(collection)).
		Where("agent_id", "==", string(agentID)).
		Documents(ctx)
	defer iter.Stop()

	var chunks []*model.MemoryChunk
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list chunks",
				goerr.V("collection", collection), goerr.V("agent_id", agentID))
		}

		var chunk model.MemoryChunk
		if err := doc.DataTo(&chunk); err != nil {
			return nil, goerr.Wrap(err, "failed to decode chunk", goerr.V("doc", doc.Ref.ID))
		}
		chunks = append(chunks, &chunk)
	}

	return chunks, nil
}

func (r *Firestore) GetEmbedding(ctx context.Context, key string) ([]float32, error) {
	doc, err := r.client.Collection(cacheCollection).Doc(key).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrCacheMiss, "no cached embedding", goerr.V("key", key))
		}
		return nil, goerr.Wrap(err, "failed to get cache entry", goerr.V("key", key))
	}

	var entry model.EmbeddingCacheEntry
	if err := doc.DataTo(&entry); err != nil {
		return nil, goerr.Wrap(err, "failed to decode cache entry", goerr.V("key", key))
	}

	return entry.Vector, nil
}

func (r *Firestore) PutEmbedding(ctx context.Context, entry *model.EmbeddingCacheEntry) error {
	if _, err := r.client.Collection(cacheCollection).Doc(entry.Key).Set(ctx, entry); err != nil {
		return goerr.Wrap(err, "failed to put cache entry", goerr.V("key", entry.Key))
	}
	return nil
}
