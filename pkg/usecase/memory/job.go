package memory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/mnemo/pkg/adapter"
	"github.com/m-mizutani/mnemo/pkg/model"
	"github.com/m-mizutani/mnemo/pkg/service/docstore"
	"github.com/m-mizutani/mnemo/pkg/service/index"
)

// IndexingJob re-reads a memory document and indexes its chunks. It runs on
// the job queue after every save; the content hash makes re-runs idempotent,
// so retrying a partially indexed document is safe.
type IndexingJob struct {
	id          string
	docs        *docstore.DocStore
	indexer     *index.Indexer
	agentID     model.AgentID
	documentKey string
	updatedAt   time.Time
}

// NewIndexingJob creates a job for one modified document
func NewIndexingJob(docs *docstore.DocStore, indexer *index.Indexer, agentID model.AgentID, documentKey string, updatedAt time.Time) *IndexingJob {
	return &IndexingJob{
		id:          uuid.New().String(),
		docs:        docs,
		indexer:     indexer,
		agentID:     agentID,
		documentKey: documentKey,
		updatedAt:   updatedAt,
	}
}

func (j *IndexingJob) ID() string {
	return j.id
}

func (j *IndexingJob) Name() string {
	return "index-memory-document"
}

func (j *IndexingJob) Run(ctx context.Context) error {
	content, err := j.docs.Read(ctx, j.documentKey)
	if err != nil {
		if errors.Is(err, adapter.ErrObjectNotFound) {
			// Document was removed since the save; nothing to index
			return nil
		}
		return goerr.Wrap(err, "failed to read document for indexing",
			goerr.V("key", j.documentKey))
	}

	return j.indexer.Index(ctx, index.IndexInput{
		DocumentID: j.documentKey,
		Content:    model.StripDocumentHead(content),
		Collection: model.CollectionMemory,
		AgentID:    j.agentID,
		UpdatedAt:  j.updatedAt,
	})
}
