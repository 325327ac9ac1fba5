package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/mnemo/pkg/model"
	"github.com/m-mizutani/mnemo/pkg/service/index"
	"github.com/m-mizutani/mnemo/pkg/utils/logging"
)

// Reindex synchronously re-chunks and re-embeds every memory document of an
// agent. Chunks from the active embedding model are deduplicated by content
// hash; run this after switching the embedding model, since stored vectors of
// another dimension are skipped during search.
func (u *UseCase) Reindex(ctx context.Context, agentID model.AgentID) (string, error) {
	if err := agentID.Validate(); err != nil {
		return "", err
	}

	keys, err := u.docs.List(ctx, model.AgentMemoryPrefix(agentID))
	if err != nil {
		return "", goerr.Wrap(err, "failed to list memory documents", goerr.V("agent_id", agentID))
	}

	logger := logging.From(ctx)
	indexed := 0
	for _, key := range keys {
		content, err := u.docs.Read(ctx, key)
		if err != nil {
			return "", goerr.Wrap(err, "failed to read memory document", goerr.V("key", key))
		}

		err = u.indexer.Index(ctx, index.IndexInput{
			DocumentID: key,
			Content:    model.StripDocumentHead(content),
			Collection: model.CollectionMemory,
			AgentID:    agentID,
			UpdatedAt:  time.Now(),
		})
		if err != nil {
			return "", goerr.Wrap(err, "failed to index memory document", goerr.V("key", key))
		}

		logger.Info("reindexed memory document", "key", key)
		indexed++
	}

	return fmt.Sprintf("Reindexed %d memory documents", indexed), nil
}
