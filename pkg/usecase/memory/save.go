package memory

import (
	"context"
	"errors"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/mnemo/pkg/adapter"
	"github.com/m-mizutani/mnemo/pkg/model"
	"github.com/m-mizutani/mnemo/pkg/utils/logging"
)

var (
	ErrCoreMemoryNotFound = goerr.New("core memory document not found")
	ErrInvalidTarget      = goerr.New("invalid save target")
)

// Target selects the document kind a save goes to
type Target string

const (
	// TargetLog appends to today's daily log document
	TargetLog Target = "log"

	// TargetCore appends a section to the curated core memory document
	TargetCore Target = "core"
)

const defaultCategory = "general"

// SaveInput describes one save_memory call
type SaveInput struct {
	AgentID  model.AgentID
	Content  string
	Category string
	Target   Target
}

// Save appends the content to the target document and schedules indexing.
// The returned confirmation names the log file for log saves. Indexing is
// fire-and-forget: success means the append is durable, not that the content
// is already searchable.
func (u *UseCase) Save(ctx context.Context, input SaveInput) (string, error) {
	if err := input.AgentID.Validate(); err != nil {
		return "", err
	}
	if input.Category == "" {
		input.Category = defaultCategory
	}
	if input.Target == "" {
		input.Target = TargetLog
	}

	now := u.now()

	var key, confirmation string
	switch input.Target {
	case TargetLog:
		date := model.LogDateOf(now)
		key = model.LogDocumentKey(input.AgentID, date)

		block := model.LogEntry(now, input.Category, input.Content)
		if err := u.docs.Append(ctx, key, model.LogHead(date), block); err != nil {
			return "", goerr.Wrap(err, "failed to append to memory log", goerr.V("key", key))
		}
		confirmation = fmt.Sprintf("Saved to memory log %s", date.FileName())

	case TargetCore:
		key = model.CoreDocumentKey(input.AgentID)

		block := model.CoreSection(input.Category, input.Content)
		if err := u.docs.AppendExisting(ctx, key, block); err != nil {
			if errors.Is(err, adapter.ErrObjectNotFound) {
				return "", goerr.Wrap(ErrCoreMemoryNotFound, "create core memory before saving to it",
					goerr.V("agent_id", input.AgentID))
			}
			return "", goerr.Wrap(err, "failed to append to core memory", goerr.V("key", key))
		}
		confirmation = "Saved to core memory"

	default:
		return "", goerr.Wrap(ErrInvalidTarget, "target must be log or core",
			goerr.V("target", input.Target))
	}

	job := NewIndexingJob(u.docs, u.indexer, input.AgentID, key, now)
	if err := u.queue.Enqueue(job); err != nil {
		// The append is already durable; the reindex command can catch up
		logging.From(ctx).Warn("failed to enqueue indexing job", "error", err, "key", key)
	}

	return confirmation, nil
}

// InitCore creates an agent's core memory document when it does not exist yet
func (u *UseCase) InitCore(ctx context.Context, agentID model.AgentID) (string, error) {
	if err := agentID.Validate(); err != nil {
		return "", err
	}

	key := model.CoreDocumentKey(agentID)
	created, err := u.docs.Create(ctx, key, model.CoreHead())
	if err != nil {
		return "", goerr.Wrap(err, "failed to create core memory", goerr.V("key", key))
	}

	if !created {
		return "Core memory already exists", nil
	}
	return "Core memory created", nil
}
